package battle_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/cory-johannsen/skirmish/internal/game/battle"
	"github.com/cory-johannsen/skirmish/internal/game/dice"
	"github.com/cory-johannsen/skirmish/internal/game/gamedata"
)

func ability(t testingT, cat *gamedata.Catalog, id string) *gamedata.AbilityDef {
	t.Helper()
	ab, err := cat.Ability(id)
	require.NoError(t, err)
	return ab
}

func TestEndToEnd_SingleHitResolves(t *testing.T) {
	cat := newCatalog(t)
	a := newPlayer(t, cat, profile{name: "A", speed: 10, health: 20})
	b := newPlayer(t, cat, profile{name: "B", speed: 5, health: 20})
	r := roster{ada: a, bea: b}
	reg := battle.NewRegistry(cat)
	_, err := reg.Start(r, ada, bea)
	require.NoError(t, err)

	turn, err := reg.Turn(ada)
	require.NoError(t, err)
	require.True(t, turn)

	out, err := reg.Apply(r, ada, ability(t, cat, "jab"), "")
	require.NoError(t, err)
	assert.False(t, out.Missed)
	assert.True(t, out.InBattle)

	for range 2 {
		require.NoError(t, reg.Advance(r, ada, bea))
	}
	assert.Equal(t, 14.0, health(t, b))
	assert.Equal(t, 20.0, health(t, a))

	snap, err := reg.Snapshot(ada)
	require.NoError(t, err)
	assert.False(t, snap.Resolving)
	assert.Empty(t, snap.Records[0].Effects)
	assert.Empty(t, snap.Records[1].Effects)
}

func TestApply_MissIsSuccessWithoutEffect(t *testing.T) {
	cat := newCatalog(t)
	a := newPlayer(t, cat, profile{name: "Ada", speed: 10, health: 20, energy: 5, rng: &dice.Fixed{Values: []float64{0.9}}})
	m := newMob(t, cat, 5, 20)
	r := roster{ada: a, goblin: m}
	reg := battle.NewRegistry(cat)
	_, err := reg.Start(r, ada, goblin)
	require.NoError(t, err)
	lines(a)
	lines(m)

	out, err := reg.Apply(r, ada, ability(t, cat, "wild"), "")
	require.NoError(t, err)
	assert.True(t, out.Missed)
	assert.Equal(t, []string{"Your Wild Swing misses."}, lines(a))
	assert.Equal(t, []string{"Ada's Wild Swing misses you."}, lines(m))

	energy, _ := a.Stat(gamedata.StatEnergy)
	assert.Equal(t, 5.0, energy, "a miss costs nothing")
	snap, err := reg.Snapshot(goblin)
	require.NoError(t, err)
	assert.Empty(t, snap.Records[0].Effects)
}

func TestApply_Property_FailedAffordabilityChangesNothing(t *testing.T) {
	cat := newCatalog(t)
	rapid.Check(t, func(rt *rapid.T) {
		energy := rapid.Float64Range(0, 49).Draw(rt, "energy")
		a := newPlayer(rt, cat, profile{name: "Ada", speed: 10, health: 20, energy: energy, inventory: map[string]int{"herb": 1}})
		r := roster{ada: a, goblin: newMob(rt, cat, 5, 20)}
		reg := battle.NewRegistry(cat)
		_, err := reg.Start(r, ada, goblin)
		require.NoError(rt, err)

		before := a.State()
		_, err = reg.Apply(r, ada, ability(rt, cat, "nova"), "")
		require.Error(rt, err)
		assert.True(rt, errors.Is(err, battle.ErrCannotAfford))
		assert.Equal(rt, before, a.State())

		snap, err := reg.Snapshot(ada)
		require.NoError(rt, err)
		assert.Empty(rt, snap.Records[0].Effects)
		assert.Empty(rt, snap.Records[1].Effects)
	})
}

func TestApply_MissingItemChangesNothing(t *testing.T) {
	cat := newCatalog(t)
	a := newPlayer(t, cat, profile{name: "Ada", speed: 10, health: 20, inventory: map[string]int{"herb": 1}})
	r := roster{ada: a}
	reg := battle.NewRegistry(cat)

	before := a.State()
	_, err := reg.Apply(r, ada, ability(t, cat, "brew"), "")
	assert.True(t, errors.Is(err, battle.ErrMissingItem))
	assert.Equal(t, before, a.State())
}

func TestApply_OutsideBattleAppliesCostsAndProducts(t *testing.T) {
	cat := newCatalog(t)
	a := newPlayer(t, cat, profile{name: "Ada", speed: 10, health: 20, inventory: map[string]int{"herb": 3}})
	r := roster{ada: a}
	reg := battle.NewRegistry(cat)

	out, err := reg.Apply(r, ada, ability(t, cat, "brew"), "")
	require.NoError(t, err)
	assert.False(t, out.InBattle)
	assert.Equal(t, 1, a.ItemQuantity("herb"))
	assert.Equal(t, 1, a.ItemQuantity("potion"))
	xp, _ := a.Stat(gamedata.StatExperience)
	assert.Equal(t, 1.0, xp)
	l, images := a.Drain()
	assert.Equal(t, []string{"You brew a potion."}, l)
	assert.Equal(t, []string{"img/brew.png"}, images)
}

func TestApply_QueuesBuffedDamageAndDefences(t *testing.T) {
	cat := newCatalog(t)
	a := newPlayer(t, cat, profile{name: "Ada", speed: 10, health: 20, energy: 10, inventory: map[string]int{"hood": 1}, worn: []string{"hood"}})
	m := newMob(t, cat, 5, 20)
	r := roster{ada: a, goblin: m}
	reg := battle.NewRegistry(cat)
	_, err := reg.Start(r, ada, goblin)
	require.NoError(t, err)
	lines(m)

	_, err = reg.Apply(r, ada, ability(t, cat, "flame"), "")
	require.NoError(t, err)
	energy, _ := a.Stat(gamedata.StatEnergy)
	assert.Equal(t, 8.0, energy)
	assert.Equal(t, []string{"Ada scorches you."}, lines(m))

	snap, err := reg.Snapshot(goblin)
	require.NoError(t, err)
	require.Len(t, snap.Records[0].Effects, 1)
	assert.Equal(t, 6.0, snap.Records[0].Effects[0].Effect.Value("fire"))
	assert.Equal(t, 3, snap.Records[0].Effects[0].Turns)
	assert.Empty(t, snap.Records[1].Effects, "empty block and counter are not queued")

	_, err = reg.Apply(r, ada, ability(t, cat, "guard"), "")
	require.NoError(t, err)
	snap, err = reg.Snapshot(ada)
	require.NoError(t, err)
	require.Len(t, snap.Records[0].Effects, 2)
	assert.Equal(t, battle.EffectBlock, snap.Records[0].Effects[0].Effect.Kind)
	assert.Equal(t, battle.EffectCounter, snap.Records[0].Effects[1].Effect.Kind)
	assert.Equal(t, 1, snap.Records[0].Effects[0].Turns)
}

func TestApply_DestroyItemClearsEquipped(t *testing.T) {
	cat := newCatalog(t)
	a := newPlayer(t, cat, profile{name: "Ada", speed: 10, health: 20, inventory: map[string]int{"club": 1}})
	require.NoError(t, a.SetEquipped("club"))
	r := roster{ada: a}
	reg := battle.NewRegistry(cat)

	_, err := reg.Apply(r, ada, ability(t, cat, "smash"), "club")
	require.NoError(t, err)
	assert.Equal(t, "", a.Equipped())
}

func TestApply_HealthCostExemptForMobs(t *testing.T) {
	cat := newCatalog(t)
	m := newMob(t, cat, 5, 3)
	a := newPlayer(t, cat, profile{name: "Ada", speed: 10, health: 3})
	r := roster{ada: a, goblin: m}
	reg := battle.NewRegistry(cat)

	_, err := reg.Apply(r, ada, ability(t, cat, "sacrifice"), "")
	assert.True(t, errors.Is(err, battle.ErrCannotAfford))
	assert.Equal(t, 3.0, health(t, a))

	_, err = reg.Apply(r, goblin, ability(t, cat, "sacrifice"), "")
	require.NoError(t, err)
	assert.Equal(t, -2.0, health(t, m))
}

func TestEat_ConsumesOneUnitPerRepetition(t *testing.T) {
	cat := newCatalog(t)
	a := newPlayer(t, cat, profile{name: "Ada", speed: 10, health: 20, inventory: map[string]int{"apple": 2}})
	require.NoError(t, a.AdjustStat(gamedata.StatHealth, -10))
	r := roster{ada: a}
	reg := battle.NewRegistry(cat)

	res, err := reg.Eat(r, ada, "apple", 3)
	require.NoError(t, err)
	assert.Equal(t, 2, res.Eaten)
	assert.Equal(t, 0, a.ItemQuantity("apple"))
	assert.Equal(t, 14.0, health(t, a))

	_, err = reg.Eat(r, ada, "apple", 1)
	assert.True(t, errors.Is(err, battle.ErrMissingItem))
}

func TestEat_CapsRepetitions(t *testing.T) {
	cat := newCatalog(t)
	a := newPlayer(t, cat, profile{name: "Ada", speed: 10, health: 20, inventory: map[string]int{"apple": 5}})
	r := roster{ada: a}
	reg := battle.NewRegistry(cat, battle.WithMaxEat(2))

	res, err := reg.Eat(r, ada, "apple", 5)
	require.NoError(t, err)
	assert.Equal(t, 2, res.Eaten)
	assert.Equal(t, 3, a.ItemQuantity("apple"))

	res, err = reg.Eat(r, ada, "apple", 0)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Eaten)
}

func TestEat_RejectsInedible(t *testing.T) {
	cat := newCatalog(t)
	a := newPlayer(t, cat, profile{name: "Ada", speed: 10, health: 20, inventory: map[string]int{"herb": 1}})
	reg := battle.NewRegistry(cat)
	_, err := reg.Eat(roster{ada: a}, ada, "herb", 1)
	assert.True(t, errors.Is(err, battle.ErrInedible))
	_, err = reg.Eat(roster{ada: a}, ada, "stone", 1)
	assert.True(t, errors.Is(err, gamedata.ErrUnknownItem))
}
