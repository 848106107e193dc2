package gameserver_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/cory-johannsen/skirmish/internal/game/battle"
	"github.com/cory-johannsen/skirmish/internal/game/combatant"
	"github.com/cory-johannsen/skirmish/internal/game/command"
	"github.com/cory-johannsen/skirmish/internal/game/dice"
	"github.com/cory-johannsen/skirmish/internal/game/gamedata"
	"github.com/cory-johannsen/skirmish/internal/gameserver"
)

func testCatalog(t testing.TB) *gamedata.Catalog {
	t.Helper()
	cat, err := gamedata.NewCatalog([]string{"physical"}, gamedata.RequiredStats)
	require.NoError(t, err)
	cat.RegisterAbility(&gamedata.AbilityDef{ID: "jab", Name: "Jab", Accuracy: 1, Damage: gamedata.DamageMap{"physical": 5}})
	cat.RegisterAbility(&gamedata.AbilityDef{ID: "bite", Name: "Bite", Accuracy: 1, Damage: gamedata.DamageMap{"physical": 2}})
	cat.RegisterAbility(&gamedata.AbilityDef{ID: "zap", Name: "Zap", Accuracy: 1, Energy: -5, Damage: gamedata.DamageMap{"physical": 9}})
	cat.RegisterAbility(&gamedata.AbilityDef{ID: "nibble", Name: "Nibble", Accuracy: 1, Health: 2})
	cat.RegisterItem(&gamedata.ItemDef{ID: "apple", Name: "Apple", Eat: "nibble"})
	cat.RegisterItem(&gamedata.ItemDef{ID: "fang", Name: "Fang"})
	cat.RegisterItem(&gamedata.ItemDef{ID: "stick", Name: "Stick", Ability: "jab"})
	return cat
}

func ratTemplate() *combatant.Template {
	return &combatant.Template{
		ID:   "rat",
		Name: "Rat",
		Stats: combatant.Stats{
			Values: map[string]float64{"speed": 5, "accuracy": 1, "health": 3, "energy": 0, "experience": 0},
			Max:    map[string]float64{"health": 3},
		},
		Abilities:    []string{"bite"},
		XPReward:     "4",
		Loot:         map[string]int{"fang": 2},
		RespawnDelay: "30s",
		Count:        1,
	}
}

func playerState(name string) combatant.PlayerState {
	return combatant.PlayerState{
		Name:      name,
		Stats:     map[string]float64{"speed": 5, "accuracy": 1, "health": 20, "energy": 0, "experience": 0},
		Max:       map[string]float64{"health": 20},
		Inventory: map[string]int{"apple": 3, "stick": 1},
		Abilities: []string{"jab", "zap"},
	}
}

type fixture struct {
	handler *gameserver.BattleHandler
	world   *gameserver.World
	battles *battle.Registry
	now     time.Time
	logs    *observer.ObservedLogs
}

func newFixture(t *testing.T, src dice.Source, templates ...*combatant.Template) *fixture {
	t.Helper()
	cat := testCatalog(t)
	core, logs := observer.New(zapcore.InfoLevel)
	logger := zap.New(core)
	f := &fixture{
		logs:    logs,
		world:   gameserver.NewWorld(),
		battles: battle.NewRegistry(cat, battle.WithLogger(logger)),
		now:     time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC),
	}
	f.handler = gameserver.NewBattleHandler(
		cat, f.world, f.battles, command.DefaultRegistry(),
		gameserver.NewMobBrain(cat, nil, logger),
		gameserver.NewRespawner(templates),
		dice.NewLoggedRoller(src, logger),
		0, logger,
	)
	f.handler.SetClock(func() time.Time { return f.now })
	_, err := f.handler.SpawnInitial(templates)
	require.NoError(t, err)
	return f
}

func (f *fixture) join(t *testing.T, name string) battle.Identity {
	t.Helper()
	id, err := f.handler.Join(playerState(name))
	require.NoError(t, err)
	return id
}

func (f *fixture) exec(t *testing.T, id battle.Identity, line string) gameserver.Response {
	t.Helper()
	resp, err := f.handler.Execute(id, line)
	require.NoError(t, err)
	return resp
}

func (f *fixture) health(t *testing.T, id battle.Identity) float64 {
	t.Helper()
	c, ok := f.world.Combatant(id)
	require.True(t, ok)
	v, err := c.Stat("health")
	require.NoError(t, err)
	return v
}
