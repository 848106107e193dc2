package combatant

import (
	"time"

	"github.com/cory-johannsen/skirmish/internal/game/battle"
	"github.com/cory-johannsen/skirmish/internal/game/dice"
)

// Mob is a spawned creature controlled by the server.
type Mob struct {
	base
	// TemplateID is the template the mob was spawned from.
	TemplateID string
	// Description is copied from the template.
	Description string
	// XPReward is rolled and awarded to the player who defeats the mob.
	XPReward dice.Expression
	// Loot is granted to the player who defeats the mob.
	Loot map[string]int
	// Script names the Lua namespace whose choose_ability hook drives the mob.
	// Empty means the mob picks a random affordable ability.
	Script string
	// RespawnDelay is how long after defeat a replacement spawns. Zero disables respawn.
	RespawnDelay time.Duration
}

// IsMob reports true.
func (m *Mob) IsMob() bool { return true }

var (
	_ battle.Combatant = (*Mob)(nil)
	_ battle.Combatant = (*Player)(nil)
)
