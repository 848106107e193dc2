package gameserver

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/cory-johannsen/skirmish/internal/game/battle"
	"github.com/cory-johannsen/skirmish/internal/game/combatant"
)

// ErrNameTaken is returned when a player name is already connected.
var ErrNameTaken = errors.New("name already in use")

// World holds every live player and mob in slot arrays indexed by
// battle.Identity.Index. Freed slots are reused.
//
// World is not safe for concurrent use; BattleHandler guards it.
type World struct {
	players []*combatant.Player
	mobs    []*combatant.Mob
}

// NewWorld returns an empty World.
func NewWorld() *World {
	return &World{}
}

// Combatant implements battle.Roster.
func (w *World) Combatant(id battle.Identity) (battle.Combatant, bool) {
	switch id.Kind {
	case battle.KindPlayer:
		if p, ok := w.Player(id); ok {
			return p, true
		}
	case battle.KindMob:
		if m, ok := w.Mob(id); ok {
			return m, true
		}
	}
	return nil, false
}

// Player returns the player in id's slot.
func (w *World) Player(id battle.Identity) (*combatant.Player, bool) {
	if id.Kind != battle.KindPlayer || id.Index < 0 || id.Index >= len(w.players) || w.players[id.Index] == nil {
		return nil, false
	}
	return w.players[id.Index], true
}

// Mob returns the mob in id's slot.
func (w *World) Mob(id battle.Identity) (*combatant.Mob, bool) {
	if id.Kind != battle.KindMob || id.Index < 0 || id.Index >= len(w.mobs) || w.mobs[id.Index] == nil {
		return nil, false
	}
	return w.mobs[id.Index], true
}

// AddPlayer places p in the first free player slot.
//
// Precondition: p must not be nil.
// Postcondition: Returns p's identity, or ErrNameTaken when a player with the
// same name (case-insensitive) is already present.
func (w *World) AddPlayer(p *combatant.Player) (battle.Identity, error) {
	if _, ok := w.FindPlayer(p.Name()); ok {
		return battle.Identity{}, fmt.Errorf("%q: %w", p.Name(), ErrNameTaken)
	}
	return battle.PlayerID(place(&w.players, p)), nil
}

// RemovePlayer frees id's slot. Removing an empty slot is a no-op.
func (w *World) RemovePlayer(id battle.Identity) {
	if _, ok := w.Player(id); ok {
		w.players[id.Index] = nil
	}
}

// AddMob places m in the first free mob slot.
func (w *World) AddMob(m *combatant.Mob) battle.Identity {
	return battle.MobID(place(&w.mobs, m))
}

// RemoveMob frees id's slot. Removing an empty slot is a no-op.
func (w *World) RemoveMob(id battle.Identity) {
	if _, ok := w.Mob(id); ok {
		w.mobs[id.Index] = nil
	}
}

func place[T any](slots *[]*T, v *T) int {
	for i, s := range *slots {
		if s == nil {
			(*slots)[i] = v
			return i
		}
	}
	*slots = append(*slots, v)
	return len(*slots) - 1
}

// FindPlayer looks up a player by name, case-insensitively.
func (w *World) FindPlayer(name string) (battle.Identity, bool) {
	for i, p := range w.players {
		if p != nil && strings.EqualFold(p.Name(), name) {
			return battle.PlayerID(i), true
		}
	}
	return battle.Identity{}, false
}

// FindMobs returns every mob whose name or template ID matches name,
// case-insensitively, in slot order.
func (w *World) FindMobs(name string) []battle.Identity {
	var out []battle.Identity
	for i, m := range w.mobs {
		if m != nil && (strings.EqualFold(m.Name(), name) || strings.EqualFold(m.TemplateID, name)) {
			out = append(out, battle.MobID(i))
		}
	}
	return out
}

// Players returns the identities of all present players in slot order.
func (w *World) Players() []battle.Identity {
	var out []battle.Identity
	for i, p := range w.players {
		if p != nil {
			out = append(out, battle.PlayerID(i))
		}
	}
	return out
}

// Mobs returns the identities of all present mobs in slot order.
func (w *World) Mobs() []battle.Identity {
	var out []battle.Identity
	for i, m := range w.mobs {
		if m != nil {
			out = append(out, battle.MobID(i))
		}
	}
	return out
}

// CountTemplate returns how many live mobs were spawned from templateID.
func (w *World) CountTemplate(templateID string) int {
	n := 0
	for _, m := range w.mobs {
		if m != nil && m.TemplateID == templateID {
			n++
		}
	}
	return n
}

// PlayerNames returns the sorted names of all present players.
func (w *World) PlayerNames() []string {
	var names []string
	for _, p := range w.players {
		if p != nil {
			names = append(names, p.Name())
		}
	}
	sort.Strings(names)
	return names
}

// MobNames returns the names of all present mobs in slot order.
func (w *World) MobNames() []string {
	var names []string
	for _, m := range w.mobs {
		if m != nil {
			names = append(names, m.Name())
		}
	}
	return names
}
