package battle

import (
	"github.com/cory-johannsen/skirmish/internal/game/dice"
	"github.com/cory-johannsen/skirmish/internal/game/gamedata"
)

// Combatant is the capability surface the engine needs from a player or mob.
// Stat names are validated against the game data catalog by the implementation.
type Combatant interface {
	// Name is the display name used in battle text.
	Name() string
	// IsMob reports whether health costs are exempt from affordability checks.
	IsMob() bool
	// Stat returns the current value of the named stat.
	Stat(name string) (float64, error)
	// AdjustStat adds delta to the named stat, capping at the stat's maximum.
	AdjustStat(name string, delta float64) error
	// ItemQuantity returns how many units of item are held.
	ItemQuantity(item string) int
	// AdjustItems applies every delta atomically; a failure changes nothing.
	AdjustItems(deltas map[string]int) error
	// Equipped returns the equipped item ID, or "" when nothing is equipped.
	Equipped() string
	// SetEquipped replaces the equipped item; "" clears it.
	SetEquipped(item string) error
	// AttackBuffs returns the outgoing damage multipliers of the worn items.
	AttackBuffs() gamedata.DamageMap
	// Message queues a line of text for the combatant.
	Message(text string)
	// Image queues an image reference for the combatant.
	Image(ref string)
	// Rand returns the combatant's random source.
	Rand() dice.Source
}

// Roster resolves identities to combatants from a single owning collection.
type Roster interface {
	Combatant(id Identity) (Combatant, bool)
}
