package battle

import (
	"fmt"
	"strings"

	"github.com/cory-johannsen/skirmish/internal/game/gamedata"
)

// EffectKind tags the variant of a status effect.
type EffectKind int

const (
	EffectStun EffectKind = iota
	EffectDamage
	EffectBlock
	EffectCounter
)

// String returns the lowercase effect name.
func (k EffectKind) String() string {
	switch k {
	case EffectStun:
		return "stun"
	case EffectDamage:
		return "damage"
	case EffectBlock:
		return "block"
	case EffectCounter:
		return "counter"
	default:
		return "unknown"
	}
}

// Effect is a status effect. Stun carries no payload; Damage carries amounts
// per damage type; Block and Counter carry multipliers per damage type.
type Effect struct {
	Kind    EffectKind
	Amounts gamedata.DamageMap
}

// Stun returns a stun effect.
func Stun() Effect { return Effect{Kind: EffectStun} }

// Damage returns a damage effect dealing amounts.
func Damage(amounts gamedata.DamageMap) Effect {
	return Effect{Kind: EffectDamage, Amounts: amounts.Clone()}
}

// Block returns a block effect scaling incoming damage by multipliers.
func Block(multipliers gamedata.DamageMap) Effect {
	return Effect{Kind: EffectBlock, Amounts: multipliers.Clone()}
}

// Counter returns a counter effect reflecting multipliers of incoming damage.
func Counter(multipliers gamedata.DamageMap) Effect {
	return Effect{Kind: EffectCounter, Amounts: multipliers.Clone()}
}

// Value reads the payload for damageType. Missing keys read as 1 for Block
// and 0 for every other kind.
func (e Effect) Value(damageType string) float64 {
	if e.Kind == EffectBlock {
		return e.Amounts.Get(damageType, 1)
	}
	return e.Amounts.Get(damageType, 0)
}

// String renders the effect as "damage{fire:5}".
func (e Effect) String() string {
	if e.Kind == EffectStun {
		return e.Kind.String()
	}
	parts := make([]string, 0, len(e.Amounts))
	for _, k := range e.Amounts.Keys() {
		parts = append(parts, fmt.Sprintf("%s:%g", k, e.Amounts[k]))
	}
	return fmt.Sprintf("%s{%s}", e.Kind, strings.Join(parts, ","))
}

// QueuedEffect is an effect together with the number of resolution passes it
// still lasts.
//
// Invariant: Turns > 0 while the effect is queued.
type QueuedEffect struct {
	Effect Effect
	Turns  int
}
