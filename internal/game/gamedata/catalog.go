// Package gamedata holds the externally loaded game definitions the battle
// engine validates against: damage types, stat names, items and abilities.
package gamedata

import (
	"errors"
	"fmt"
)

// Core stat names every catalog must declare.
const (
	StatSpeed      = "speed"
	StatAccuracy   = "accuracy"
	StatHealth     = "health"
	StatEnergy     = "energy"
	StatExperience = "experience"
)

// RequiredStats lists the stats the battle engine reads or mutates.
var RequiredStats = []string{StatSpeed, StatAccuracy, StatHealth, StatEnergy, StatExperience}

var (
	// ErrUnknownStat is returned when a stat name is not declared in the catalog.
	ErrUnknownStat = errors.New("unknown stat")
	// ErrUnknownDamageType is returned when a damage type is not declared in the catalog.
	ErrUnknownDamageType = errors.New("unknown damage type")
	// ErrUnknownItem is returned when an item name is not defined.
	ErrUnknownItem = errors.New("unknown item")
	// ErrUnknownAbility is returned when an ability name is not defined.
	ErrUnknownAbility = errors.New("unknown ability")
)

// Catalog is the authoritative, immutable-after-load set of game definitions.
// It is safe for concurrent reads once construction completes.
type Catalog struct {
	damageTypes []string
	stats       []string
	damageSet   map[string]bool
	statSet     map[string]bool
	items       map[string]*ItemDef
	abilities   map[string]*AbilityDef
}

// NewCatalog builds a Catalog from declared damage types and stats.
//
// Precondition: damageTypes must be non-empty and unique; stats must include RequiredStats.
// Postcondition: Returns a Catalog with no items or abilities, or an error describing the violation.
func NewCatalog(damageTypes, stats []string) (*Catalog, error) {
	if len(damageTypes) == 0 {
		return nil, errors.New("gamedata: at least one damage type is required")
	}
	c := &Catalog{
		damageTypes: append([]string(nil), damageTypes...),
		stats:       append([]string(nil), stats...),
		damageSet:   make(map[string]bool, len(damageTypes)),
		statSet:     make(map[string]bool, len(stats)),
		items:       make(map[string]*ItemDef),
		abilities:   make(map[string]*AbilityDef),
	}
	for _, d := range damageTypes {
		if d == "" {
			return nil, errors.New("gamedata: damage type names must not be empty")
		}
		if c.damageSet[d] {
			return nil, fmt.Errorf("gamedata: duplicate damage type %q", d)
		}
		c.damageSet[d] = true
	}
	for _, s := range stats {
		if c.statSet[s] {
			return nil, fmt.Errorf("gamedata: duplicate stat %q", s)
		}
		c.statSet[s] = true
	}
	for _, s := range RequiredStats {
		if !c.statSet[s] {
			return nil, fmt.Errorf("gamedata: required stat %q is not declared", s)
		}
	}
	return c, nil
}

// DamageTypes returns the declared damage types in declaration order.
func (c *Catalog) DamageTypes() []string {
	return append([]string(nil), c.damageTypes...)
}

// Stats returns the declared stat names in declaration order.
func (c *Catalog) Stats() []string {
	return append([]string(nil), c.stats...)
}

// ValidStat returns nil if name is a declared stat, or an error wrapping ErrUnknownStat.
func (c *Catalog) ValidStat(name string) error {
	if !c.statSet[name] {
		return fmt.Errorf("%w: %q", ErrUnknownStat, name)
	}
	return nil
}

// ValidDamageType returns nil if name is a declared damage type, or an error wrapping ErrUnknownDamageType.
func (c *Catalog) ValidDamageType(name string) error {
	if !c.damageSet[name] {
		return fmt.Errorf("%w: %q", ErrUnknownDamageType, name)
	}
	return nil
}

// ValidDamageMap checks every key of m against the declared damage types.
func (c *Catalog) ValidDamageMap(m DamageMap) error {
	for _, k := range m.Keys() {
		if err := c.ValidDamageType(k); err != nil {
			return err
		}
	}
	return nil
}

// Fill returns a copy of m with every declared damage type present;
// missing entries are set to def.
//
// Postcondition: len(result) == len(DamageTypes()) for a valid m.
func (c *Catalog) Fill(m DamageMap, def float64) DamageMap {
	out := make(DamageMap, len(c.damageTypes))
	for _, d := range c.damageTypes {
		out[d] = m.Get(d, def)
	}
	return out
}

// Item returns the item definition for id.
func (c *Catalog) Item(id string) (*ItemDef, error) {
	def, ok := c.items[id]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownItem, id)
	}
	return def, nil
}

// Ability returns the ability definition for id.
func (c *Catalog) Ability(id string) (*AbilityDef, error) {
	def, ok := c.abilities[id]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownAbility, id)
	}
	return def, nil
}

// RegisterItem adds def to the catalog, replacing any definition with the same ID.
//
// Precondition: def must pass Validate against this catalog.
func (c *Catalog) RegisterItem(def *ItemDef) {
	c.items[def.ID] = def
}

// RegisterAbility adds def to the catalog, replacing any definition with the same ID.
//
// Precondition: def must pass Validate against this catalog.
func (c *Catalog) RegisterAbility(def *AbilityDef) {
	c.abilities[def.ID] = def
}

// ItemCount returns the number of registered items.
func (c *Catalog) ItemCount() int { return len(c.items) }

// AbilityCount returns the number of registered abilities.
func (c *Catalog) AbilityCount() int { return len(c.abilities) }

// CrossValidate checks references between items and abilities: every ability
// named by an item exists and every item named by an ability exists.
//
// Postcondition: Returns nil iff all references resolve.
func (c *Catalog) CrossValidate() error {
	var errs []error
	for _, it := range c.items {
		for _, ref := range []string{it.Ability, it.Eat} {
			if ref == "" {
				continue
			}
			if _, ok := c.abilities[ref]; !ok {
				errs = append(errs, fmt.Errorf("item %q: %w: %q", it.ID, ErrUnknownAbility, ref))
			}
		}
	}
	for _, ab := range c.abilities {
		for _, m := range []map[string]int{ab.Requires, ab.Consumes, ab.Produces} {
			for name := range m {
				if _, ok := c.items[name]; !ok {
					errs = append(errs, fmt.Errorf("ability %q: %w: %q", ab.ID, ErrUnknownItem, name))
				}
			}
		}
	}
	return errors.Join(errs...)
}
