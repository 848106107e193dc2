// Package combatant provides the player and mob implementations of the
// battle engine's combatant capability.
package combatant

import (
	"fmt"
	"slices"

	"github.com/cory-johannsen/skirmish/internal/game/dice"
	"github.com/cory-johannsen/skirmish/internal/game/gamedata"
	"github.com/cory-johannsen/skirmish/internal/game/inventory"
)

// Stats is the set of stat values and maxima a combatant starts with.
// Stats without an entry in Max are unbounded.
type Stats struct {
	Values map[string]float64 `yaml:"values"`
	Max    map[string]float64 `yaml:"max"`
}

// Validate checks every stat name against cat and that each maximum is
// positive and not below its starting value.
func (s Stats) Validate(cat *gamedata.Catalog) error {
	for name := range s.Values {
		if err := cat.ValidStat(name); err != nil {
			return err
		}
	}
	for name, m := range s.Max {
		if err := cat.ValidStat(name); err != nil {
			return err
		}
		if m <= 0 {
			return fmt.Errorf("max %s must be > 0, got %v", name, m)
		}
		if v := s.Values[name]; v > m {
			return fmt.Errorf("%s %v exceeds max %v", name, v, m)
		}
	}
	return nil
}

// Output buffers text lines and image references until drained.
type Output struct {
	lines  []string
	images []string
}

// Drain returns and clears the buffered lines and images.
func (o *Output) Drain() ([]string, []string) {
	lines, images := o.lines, o.images
	o.lines, o.images = nil, nil
	return lines, images
}

// base is the state shared by players and mobs.
type base struct {
	catalog   *gamedata.Catalog
	name      string
	stats     map[string]float64
	maxima    map[string]float64
	bag       *inventory.Bag
	equipped  string
	worn      []string
	abilities []string
	rng       dice.Source
	out       Output
}

func newBase(cat *gamedata.Catalog, name string, stats Stats, rng dice.Source) base {
	b := base{
		catalog: cat,
		name:    name,
		stats:   make(map[string]float64, len(cat.Stats())),
		maxima:  make(map[string]float64, len(stats.Max)),
		bag:     inventory.NewBag(),
		rng:     rng,
	}
	for _, s := range cat.Stats() {
		b.stats[s] = stats.Values[s]
	}
	for s, m := range stats.Max {
		b.maxima[s] = m
	}
	return b
}

// Name returns the display name.
func (b *base) Name() string { return b.name }

// Stat returns the current value of the named stat.
func (b *base) Stat(name string) (float64, error) {
	if err := b.catalog.ValidStat(name); err != nil {
		return 0, err
	}
	return b.stats[name], nil
}

// Max returns the maximum of the named stat and whether it is bounded.
func (b *base) Max(name string) (float64, bool) {
	m, ok := b.maxima[name]
	return m, ok
}

// AdjustStat adds delta to the named stat, capping at its maximum. There is
// no lower bound; callers check affordability before applying costs.
func (b *base) AdjustStat(name string, delta float64) error {
	if err := b.catalog.ValidStat(name); err != nil {
		return err
	}
	v := b.stats[name] + delta
	if m, ok := b.maxima[name]; ok && v > m {
		v = m
	}
	b.stats[name] = v
	return nil
}

// SetStat overwrites the named stat, capping at its maximum.
func (b *base) SetStat(name string, v float64) error {
	if err := b.catalog.ValidStat(name); err != nil {
		return err
	}
	if m, ok := b.maxima[name]; ok && v > m {
		v = m
	}
	b.stats[name] = v
	return nil
}

// StatValues returns a copy of every stat value.
func (b *base) StatValues() map[string]float64 {
	out := make(map[string]float64, len(b.stats))
	for k, v := range b.stats {
		out[k] = v
	}
	return out
}

// ItemQuantity returns how many units of item are held.
func (b *base) ItemQuantity(item string) int { return b.bag.Quantity(item) }

// AdjustItems applies deltas to the inventory atomically. An equipped or
// worn item whose last unit is removed leaves its slot.
func (b *base) AdjustItems(deltas map[string]int) error {
	if err := b.bag.Apply(b.catalog, deltas); err != nil {
		return err
	}
	if b.equipped != "" && !b.bag.Has(b.equipped, 1) {
		b.equipped = ""
	}
	b.worn = slices.DeleteFunc(b.worn, func(item string) bool { return !b.bag.Has(item, 1) })
	return nil
}

// Inventory returns a copy of the held quantities.
func (b *base) Inventory() map[string]int { return b.bag.Snapshot() }

// Equipped returns the equipped item ID, or "".
func (b *base) Equipped() string { return b.equipped }

// SetEquipped equips item, or clears the slot when item is "".
//
// Precondition: a non-empty item must be held.
func (b *base) SetEquipped(item string) error {
	if item == "" {
		b.equipped = ""
		return nil
	}
	if _, err := b.catalog.Item(item); err != nil {
		return err
	}
	if b.bag.Quantity(item) < 1 {
		return fmt.Errorf("%w: %s", inventory.ErrInsufficient, item)
	}
	b.equipped = item
	return nil
}

// Worn returns the worn item IDs.
func (b *base) Worn() []string { return slices.Clone(b.worn) }

// Wear puts on item.
//
// Precondition: item must be wearable, held, and not already worn.
func (b *base) Wear(item string) error {
	def, err := b.catalog.Item(item)
	if err != nil {
		return err
	}
	if !def.Wearable {
		return fmt.Errorf("%s cannot be worn", def.Name)
	}
	if b.bag.Quantity(item) < 1 {
		return fmt.Errorf("%w: %s", inventory.ErrInsufficient, item)
	}
	if slices.Contains(b.worn, item) {
		return fmt.Errorf("%s is already worn", def.Name)
	}
	b.worn = append(b.worn, item)
	return nil
}

// Remove takes off a worn item.
func (b *base) Remove(item string) error {
	i := slices.Index(b.worn, item)
	if i < 0 {
		return fmt.Errorf("%s is not worn", item)
	}
	b.worn = slices.Delete(b.worn, i, i+1)
	return nil
}

// AttackBuffs multiplies the attack buffs of every worn item. Missing damage
// types read as 1.
func (b *base) AttackBuffs() gamedata.DamageMap {
	out := b.catalog.Fill(nil, 1)
	for _, item := range b.worn {
		def, err := b.catalog.Item(item)
		if err != nil {
			continue
		}
		out = out.Mul(def.AttackBuffs, 1)
	}
	return out
}

// Abilities returns the inherent ability IDs.
func (b *base) Abilities() []string { return slices.Clone(b.abilities) }

// Message buffers a line of text.
func (b *base) Message(text string) { b.out.lines = append(b.out.lines, text) }

// Image buffers an image reference.
func (b *base) Image(ref string) { b.out.images = append(b.out.images, ref) }

// Drain returns and clears buffered output.
func (b *base) Drain() ([]string, []string) { return b.out.Drain() }

// Rand returns the combatant's random source.
func (b *base) Rand() dice.Source { return b.rng }

// Alive reports whether health is above zero.
func (b *base) Alive() bool { return b.stats[gamedata.StatHealth] > 0 }
