package gamedata

import (
	"errors"
	"fmt"
)

// ItemDef is the static definition of an item, loaded from YAML.
type ItemDef struct {
	ID          string `yaml:"id"`
	Name        string `yaml:"name"`
	Description string `yaml:"description"`
	// Ability is used when the item is equipped and the holder strikes with it.
	Ability string `yaml:"ability"`
	// Eat is the ability resolved once per unit eaten; empty means inedible.
	Eat      string `yaml:"eat"`
	Wearable bool   `yaml:"wearable"`
	// AttackBuffs multiply outgoing damage per damage type while the item is worn.
	AttackBuffs DamageMap `yaml:"attack_buffs"`
}

// Validate checks that the ItemDef satisfies its invariants against c.
//
// Postcondition: returns nil iff all fields are valid.
func (d *ItemDef) Validate(c *Catalog) error {
	var errs []error
	if d.ID == "" {
		errs = append(errs, errors.New("id must not be empty"))
	}
	if d.Name == "" {
		errs = append(errs, errors.New("name must not be empty"))
	}
	if err := c.ValidDamageMap(d.AttackBuffs); err != nil {
		errs = append(errs, fmt.Errorf("attack_buffs: %w", err))
	}
	if len(errs) > 0 {
		return fmt.Errorf("item %q validation failed: %w", d.ID, errors.Join(errs...))
	}
	return nil
}

// AbilityDef is the static definition of an ability, loaded from YAML.
// Negative experience/energy/health values are costs.
type AbilityDef struct {
	ID          string  `yaml:"id"`
	Name        string  `yaml:"name"`
	Description string  `yaml:"description"`
	Accuracy    float64 `yaml:"accuracy"`
	Experience  float64 `yaml:"experience"`
	Energy      float64 `yaml:"energy"`
	Health      float64 `yaml:"health"`
	// Requires lists items that must be held but are not consumed.
	Requires map[string]int `yaml:"requires"`
	Consumes map[string]int `yaml:"consumes"`
	Produces map[string]int `yaml:"produces"`
	Damage   DamageMap      `yaml:"damage"`
	Block    DamageMap      `yaml:"block"`
	Counter  DamageMap      `yaml:"counter"`
	// Repeat is the number of additional turns the queued effects last.
	Repeat       int    `yaml:"repeat"`
	DestroyItem  bool   `yaml:"destroy_item"`
	SelfText string `yaml:"self_text"`
	// OpponentText is a verb phrase shown to the opponent after the user's name.
	OpponentText string `yaml:"opponent_text"`
	Image        string `yaml:"image"`
}

// Turns returns the duration of the effects this ability queues.
func (d *AbilityDef) Turns() int { return d.Repeat + 1 }

// Validate checks that the AbilityDef satisfies its invariants against c.
// Item references are checked later by Catalog.CrossValidate.
//
// Postcondition: returns nil iff all fields are valid.
func (d *AbilityDef) Validate(c *Catalog) error {
	var errs []error
	if d.ID == "" {
		errs = append(errs, errors.New("id must not be empty"))
	}
	if d.Name == "" {
		errs = append(errs, errors.New("name must not be empty"))
	}
	if d.Accuracy <= 0 || d.Accuracy > 1 {
		errs = append(errs, fmt.Errorf("accuracy must be in (0, 1], got %v", d.Accuracy))
	}
	if d.Repeat < 0 {
		errs = append(errs, fmt.Errorf("repeat must be >= 0, got %d", d.Repeat))
	}
	for field, m := range map[string]DamageMap{"damage": d.Damage, "block": d.Block, "counter": d.Counter} {
		if err := c.ValidDamageMap(m); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", field, err))
		}
	}
	for field, m := range map[string]map[string]int{"requires": d.Requires, "consumes": d.Consumes, "produces": d.Produces} {
		for name, qty := range m {
			if qty <= 0 {
				errs = append(errs, fmt.Errorf("%s: quantity of %q must be > 0", field, name))
			}
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("ability %q validation failed: %w", d.ID, errors.Join(errs...))
	}
	return nil
}
