package battle_test

import (
	"github.com/stretchr/testify/require"

	"github.com/cory-johannsen/skirmish/internal/game/battle"
	"github.com/cory-johannsen/skirmish/internal/game/combatant"
	"github.com/cory-johannsen/skirmish/internal/game/dice"
	"github.com/cory-johannsen/skirmish/internal/game/gamedata"
)

type testingT interface {
	require.TestingT
	Helper()
}

// roster is a map-backed battle.Roster.
type roster map[battle.Identity]battle.Combatant

func (r roster) Combatant(id battle.Identity) (battle.Combatant, bool) {
	c, ok := r[id]
	return c, ok
}

var (
	ada    = battle.PlayerID(0)
	bea    = battle.PlayerID(1)
	goblin = battle.MobID(0)
)

func newCatalog(t testingT) *gamedata.Catalog {
	t.Helper()
	cat, err := gamedata.NewCatalog([]string{"physical", "fire"}, gamedata.RequiredStats)
	require.NoError(t, err)
	for _, ab := range []*gamedata.AbilityDef{
		{ID: "jab", Name: "Jab", Accuracy: 1, Damage: gamedata.DamageMap{"physical": 6}},
		{ID: "flame", Name: "Flame", Accuracy: 1, Energy: -2, Damage: gamedata.DamageMap{"fire": 3}, Repeat: 2, OpponentText: "scorches you."},
		{ID: "nova", Name: "Nova", Accuracy: 1, Energy: -50, Damage: gamedata.DamageMap{"fire": 30}},
		{ID: "guard", Name: "Guard", Accuracy: 1, Block: gamedata.DamageMap{"physical": 0.5}, Counter: gamedata.DamageMap{"physical": 0.25}},
		{ID: "brew", Name: "Brew", Accuracy: 1, Experience: 1, Consumes: map[string]int{"herb": 2}, Produces: map[string]int{"potion": 1}, SelfText: "You brew a potion.", Image: "img/brew.png"},
		{ID: "smash", Name: "Smash", Accuracy: 1, DestroyItem: true, Requires: map[string]int{"club": 1}, Damage: gamedata.DamageMap{"physical": 4}},
		{ID: "sacrifice", Name: "Sacrifice", Accuracy: 1, Health: -5, Damage: gamedata.DamageMap{"physical": 10}},
		{ID: "nibble", Name: "Nibble", Accuracy: 1, Health: 2},
		{ID: "wild", Name: "Wild Swing", Accuracy: 0.5, Energy: -1, Damage: gamedata.DamageMap{"physical": 9}},
	} {
		cat.RegisterAbility(ab)
	}
	for _, it := range []*gamedata.ItemDef{
		{ID: "herb", Name: "Herb"},
		{ID: "potion", Name: "Potion"},
		{ID: "club", Name: "Club", Ability: "smash"},
		{ID: "apple", Name: "Apple", Eat: "nibble"},
		{ID: "hood", Name: "Hood", Wearable: true, AttackBuffs: gamedata.DamageMap{"fire": 2}},
	} {
		cat.RegisterItem(it)
	}
	require.NoError(t, cat.CrossValidate())
	return cat
}

type profile struct {
	name      string
	speed     float64
	health    float64
	energy    float64
	inventory map[string]int
	worn      []string
	rng       dice.Source
}

func newPlayer(t testingT, cat *gamedata.Catalog, s profile) *combatant.Player {
	t.Helper()
	if s.rng == nil {
		s.rng = &dice.Fixed{Values: []float64{0}}
	}
	p, err := combatant.NewPlayer(cat, combatant.PlayerState{
		Name:      s.name,
		Stats:     map[string]float64{"speed": s.speed, "accuracy": 1, "health": s.health, "energy": s.energy},
		Max:       map[string]float64{"health": max(s.health, 1), "energy": max(s.energy, 1)},
		Inventory: s.inventory,
		Worn:      s.worn,
	}, s.rng)
	require.NoError(t, err)
	return p
}

func newMob(t testingT, cat *gamedata.Catalog, speed, health float64) *combatant.Mob {
	t.Helper()
	tmpl := &combatant.Template{
		ID:   "goblin",
		Name: "Goblin",
		Stats: combatant.Stats{
			Values: map[string]float64{"speed": speed, "accuracy": 1, "health": health},
			Max:    map[string]float64{"health": health},
		},
	}
	require.NoError(t, tmpl.Validate(cat))
	m, err := tmpl.Spawn(cat, &dice.Fixed{Values: []float64{0}})
	require.NoError(t, err)
	return m
}

func health(t testingT, c battle.Combatant) float64 {
	t.Helper()
	v, err := c.Stat(gamedata.StatHealth)
	require.NoError(t, err)
	return v
}

type drainer interface{ Drain() ([]string, []string) }

func lines(c battle.Combatant) []string {
	l, _ := c.(drainer).Drain()
	return l
}
