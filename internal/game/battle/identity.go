// Package battle implements the two-combatant battle engine: the registry of
// active battles, the speed-driven turn scheduler, the status effect engine
// and the ability resolver.
//
// The engine is not safe for concurrent use. The caller must serialise every
// command that touches a given Registry.
package battle

import "fmt"

// Kind distinguishes player combatants from mob combatants.
type Kind int

const (
	KindPlayer Kind = iota
	KindMob
)

// String returns "player" or "mob".
func (k Kind) String() string {
	switch k {
	case KindPlayer:
		return "player"
	case KindMob:
		return "mob"
	default:
		return "unknown"
	}
}

// Identity names one combatant by kind and slot index. Identities are
// comparable and used as map keys; two identities are equal only when both
// kind and index match.
type Identity struct {
	Kind  Kind
	Index int
}

// PlayerID returns the identity of the player in slot index.
func PlayerID(index int) Identity { return Identity{Kind: KindPlayer, Index: index} }

// MobID returns the identity of the mob in slot index.
func MobID(index int) Identity { return Identity{Kind: KindMob, Index: index} }

// String renders the identity as "player#3" or "mob#0".
func (id Identity) String() string {
	return fmt.Sprintf("%s#%d", id.Kind, id.Index)
}
