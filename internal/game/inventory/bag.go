// Package inventory tracks item quantities held by a combatant.
package inventory

import (
	"errors"
	"fmt"
	"sort"

	"github.com/cory-johannsen/skirmish/internal/game/gamedata"
)

// ErrInsufficient is returned when removing more units than are held.
var ErrInsufficient = errors.New("insufficient quantity")

// Bag holds item quantities keyed by item ID.
// It is not safe for concurrent use; the caller must serialise access.
//
// Invariant: every stored quantity is > 0.
type Bag struct {
	items map[string]int
}

// NewBag creates an empty Bag.
func NewBag() *Bag {
	return &Bag{items: make(map[string]int)}
}

// Quantity returns the number of units of id held, or 0.
func (b *Bag) Quantity(id string) int {
	return b.items[id]
}

// Has reports whether at least qty units of id are held.
func (b *Bag) Has(id string, qty int) bool {
	return b.items[id] >= qty
}

// Add places qty units of id into the bag.
//
// Precondition: qty > 0.
// Postcondition: on success Quantity(id) grows by qty; on error the bag is unchanged.
func (b *Bag) Add(cat *gamedata.Catalog, id string, qty int) error {
	return b.Apply(cat, map[string]int{id: qty})
}

// Remove takes qty units of id out of the bag.
//
// Precondition: qty > 0.
// Postcondition: on success Quantity(id) shrinks by qty; on error the bag is unchanged.
func (b *Bag) Remove(cat *gamedata.Catalog, id string, qty int) error {
	return b.Apply(cat, map[string]int{id: -qty})
}

// Apply adjusts several quantities at once. Positive deltas add, negative
// deltas remove. It is atomic: either every delta applies or none does.
//
// Postcondition: on error, bag state is unchanged.
func (b *Bag) Apply(cat *gamedata.Catalog, deltas map[string]int) error {
	// Phase 1: validate everything.
	for _, id := range sortedKeys(deltas) {
		if _, err := cat.Item(id); err != nil {
			return fmt.Errorf("inventory: %w", err)
		}
		if b.items[id]+deltas[id] < 0 {
			return fmt.Errorf("inventory: %w: have %d %s, need %d", ErrInsufficient, b.items[id], id, -deltas[id])
		}
	}
	// Phase 2: apply.
	for id, d := range deltas {
		n := b.items[id] + d
		if n == 0 {
			delete(b.items, id)
			continue
		}
		b.items[id] = n
	}
	return nil
}

// Snapshot returns a copy of all held quantities.
func (b *Bag) Snapshot() map[string]int {
	out := make(map[string]int, len(b.items))
	for k, v := range b.items {
		out[k] = v
	}
	return out
}

// Restore replaces the bag contents with items, dropping non-positive entries.
func (b *Bag) Restore(items map[string]int) {
	b.items = make(map[string]int, len(items))
	for k, v := range items {
		if v > 0 {
			b.items[k] = v
		}
	}
}

// IDs returns the held item IDs in sorted order.
func (b *Bag) IDs() []string {
	return sortedKeys(b.items)
}

func sortedKeys(m map[string]int) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
