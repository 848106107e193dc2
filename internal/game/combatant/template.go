package combatant

import (
	"bytes"
	"errors"
	"fmt"
	"maps"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/cory-johannsen/skirmish/internal/game/dice"
	"github.com/cory-johannsen/skirmish/internal/game/gamedata"
)

// Template defines a reusable combatant loadout loaded from YAML. Mob
// templates spawn mobs; the player template seeds new players.
type Template struct {
	ID          string         `yaml:"id"`
	Name        string         `yaml:"name"`
	Description string         `yaml:"description"`
	Stats       Stats          `yaml:"stats"`
	Abilities   []string       `yaml:"abilities"`
	Inventory   map[string]int `yaml:"inventory"`
	Equipped    string         `yaml:"equipped"`
	Worn        []string       `yaml:"worn"`
	// XPReward is a dice expression such as "2d6+3" or a constant.
	XPReward string         `yaml:"xp_reward"`
	Loot     map[string]int `yaml:"loot"`
	Script   string         `yaml:"script"`
	// RespawnDelay is a Go duration string; empty means no respawn.
	RespawnDelay string `yaml:"respawn_delay"`
	// Count is how many mobs of this template are spawned at startup.
	Count int `yaml:"count"`
}

// Validate checks the template against cat.
//
// Precondition: t and cat must not be nil.
// Postcondition: Returns nil iff every stat, ability and item reference
// resolves, xp_reward parses, respawn_delay parses, and health is positive.
func (t *Template) Validate(cat *gamedata.Catalog) error {
	var errs []error
	if t.ID == "" {
		errs = append(errs, errors.New("id must not be empty"))
	}
	if t.Name == "" {
		errs = append(errs, errors.New("name must not be empty"))
	}
	if err := t.Stats.Validate(cat); err != nil {
		errs = append(errs, err)
	}
	if t.Stats.Values[gamedata.StatHealth] <= 0 {
		errs = append(errs, errors.New("health must be > 0"))
	}
	for _, id := range t.Abilities {
		if _, err := cat.Ability(id); err != nil {
			errs = append(errs, err)
		}
	}
	for _, m := range []map[string]int{t.Inventory, t.Loot} {
		for id, n := range m {
			if _, err := cat.Item(id); err != nil {
				errs = append(errs, err)
			}
			if n <= 0 {
				errs = append(errs, fmt.Errorf("quantity of %q must be > 0", id))
			}
		}
	}
	if t.XPReward != "" {
		if _, err := dice.Parse(t.XPReward); err != nil {
			errs = append(errs, fmt.Errorf("xp_reward: %w", err))
		}
	}
	if t.RespawnDelay != "" {
		if _, err := time.ParseDuration(t.RespawnDelay); err != nil {
			errs = append(errs, fmt.Errorf("respawn_delay %q is not a valid duration: %w", t.RespawnDelay, err))
		}
	}
	if t.Count < 0 {
		errs = append(errs, fmt.Errorf("count must be >= 0, got %d", t.Count))
	}
	if len(errs) > 0 {
		return fmt.Errorf("template %q: %w", t.ID, errors.Join(errs...))
	}
	return nil
}

// Spawn creates a mob from the template.
//
// Precondition: t must have passed Validate against cat; rng must not be nil.
// Postcondition: the mob starts with the template's stats, inventory and equipment.
func (t *Template) Spawn(cat *gamedata.Catalog, rng dice.Source) (*Mob, error) {
	m := &Mob{
		base:        newBase(cat, t.Name, t.Stats, rng),
		TemplateID:  t.ID,
		Description: t.Description,
		Loot:        maps.Clone(t.Loot),
		Script:      t.Script,
	}
	if t.XPReward != "" {
		expr, err := dice.Parse(t.XPReward)
		if err != nil {
			return nil, err
		}
		m.XPReward = expr
	}
	if t.RespawnDelay != "" {
		d, err := time.ParseDuration(t.RespawnDelay)
		if err != nil {
			return nil, err
		}
		m.RespawnDelay = d
	}
	if err := m.load(t.Inventory, t.Equipped, t.Worn, t.Abilities); err != nil {
		return nil, fmt.Errorf("spawning %q: %w", t.ID, err)
	}
	return m, nil
}

// PlayerState returns the starting state of a new player named name.
func (t *Template) PlayerState(name string) PlayerState {
	return PlayerState{
		Name:      name,
		Stats:     maps.Clone(t.Stats.Values),
		Max:       maps.Clone(t.Stats.Max),
		Inventory: maps.Clone(t.Inventory),
		Equipped:  t.Equipped,
		Worn:      append([]string(nil), t.Worn...),
		Abilities: append([]string(nil), t.Abilities...),
	}
}

// LoadTemplateFromBytes parses and validates a single template.
//
// Precondition: data must be valid YAML for a single Template.
// Postcondition: Returns a validated *Template, or an error.
func LoadTemplateFromBytes(data []byte, cat *gamedata.Catalog) (*Template, error) {
	var tmpl Template
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&tmpl); err != nil {
		return nil, fmt.Errorf("parsing template YAML: %w", err)
	}
	if err := tmpl.Validate(cat); err != nil {
		return nil, err
	}
	return &tmpl, nil
}

// LoadTemplateFile reads a single template from path.
func LoadTemplateFile(path string, cat *gamedata.Catalog) (*Template, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %q: %w", path, err)
	}
	tmpl, err := LoadTemplateFromBytes(data, cat)
	if err != nil {
		return nil, fmt.Errorf("loading %q: %w", path, err)
	}
	return tmpl, nil
}

// LoadTemplates reads every *.yaml file in dir, in name order.
//
// Precondition: dir must be a readable directory.
// Postcondition: Returns all templates or an error on the first parse or
// validate failure; duplicate IDs are an error.
func LoadTemplates(dir string, cat *gamedata.Catalog) ([]*Template, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("reading template dir %q: %w", dir, err)
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Name() < entries[j].Name() })

	seen := make(map[string]bool)
	var templates []*Template
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".yaml") {
			continue
		}
		tmpl, err := LoadTemplateFile(filepath.Join(dir, entry.Name()), cat)
		if err != nil {
			return nil, err
		}
		if seen[tmpl.ID] {
			return nil, fmt.Errorf("duplicate template id %q in %q", tmpl.ID, dir)
		}
		seen[tmpl.ID] = true
		templates = append(templates, tmpl)
	}
	return templates, nil
}
