package combatant

import (
	"fmt"
	"slices"

	"github.com/cory-johannsen/skirmish/internal/game/dice"
	"github.com/cory-johannsen/skirmish/internal/game/gamedata"
)

// Player is a connected player's combatant.
type Player struct {
	base
}

// PlayerState is the persistent snapshot of a Player.
type PlayerState struct {
	Name      string
	Stats     map[string]float64
	Max       map[string]float64
	Inventory map[string]int
	Equipped  string
	Worn      []string
	Abilities []string
}

// NewPlayer builds a player from state.
//
// Precondition: cat and rng must not be nil.
// Postcondition: Returns a Player whose stats, inventory and worn items match
// state, or an error when state references unknown stats or items.
func NewPlayer(cat *gamedata.Catalog, state PlayerState, rng dice.Source) (*Player, error) {
	stats := Stats{Values: state.Stats, Max: state.Max}
	if err := stats.Validate(cat); err != nil {
		return nil, fmt.Errorf("player %q: %w", state.Name, err)
	}
	p := &Player{base: newBase(cat, state.Name, stats, rng)}
	if err := p.load(state.Inventory, state.Equipped, state.Worn, state.Abilities); err != nil {
		return nil, fmt.Errorf("player %q: %w", state.Name, err)
	}
	return p, nil
}

// IsMob reports false.
func (p *Player) IsMob() bool { return false }

// State snapshots the player for persistence.
func (p *Player) State() PlayerState {
	maxima := make(map[string]float64, len(p.maxima))
	for k, v := range p.maxima {
		maxima[k] = v
	}
	return PlayerState{
		Name:      p.name,
		Stats:     p.StatValues(),
		Max:       maxima,
		Inventory: p.Inventory(),
		Equipped:  p.equipped,
		Worn:      slices.Clone(p.worn),
		Abilities: slices.Clone(p.abilities),
	}
}

// load populates inventory, equipment and abilities, validating each reference.
func (b *base) load(items map[string]int, equipped string, worn, abilities []string) error {
	if len(items) > 0 {
		if err := b.bag.Apply(b.catalog, items); err != nil {
			return err
		}
	}
	for _, id := range abilities {
		if _, err := b.catalog.Ability(id); err != nil {
			return err
		}
	}
	b.abilities = slices.Clone(abilities)
	if err := b.SetEquipped(equipped); err != nil {
		return fmt.Errorf("equipped: %w", err)
	}
	for _, item := range worn {
		if err := b.Wear(item); err != nil {
			return fmt.Errorf("worn: %w", err)
		}
	}
	return nil
}
