package battle_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/cory-johannsen/skirmish/internal/game/battle"
	"github.com/cory-johannsen/skirmish/internal/game/gamedata"
)

func TestIdentity_EqualityAndString(t *testing.T) {
	assert.Equal(t, battle.PlayerID(3), battle.Identity{Kind: battle.KindPlayer, Index: 3})
	assert.NotEqual(t, battle.PlayerID(3), battle.MobID(3))
	assert.Equal(t, "player#3", battle.PlayerID(3).String())
	assert.Equal(t, "mob#0", battle.MobID(0).String())
}

func TestEffect_ValueDefaults(t *testing.T) {
	assert.Equal(t, 0.0, battle.Damage(nil).Value("fire"))
	assert.Equal(t, 0.0, battle.Counter(nil).Value("fire"))
	assert.Equal(t, 1.0, battle.Block(nil).Value("fire"))
	assert.Equal(t, 0.5, battle.Block(gamedata.DamageMap{"fire": 0.5}).Value("fire"))
	assert.Equal(t, "damage{fire:3}", battle.Damage(gamedata.DamageMap{"fire": 3}).String())
	assert.Equal(t, "stun", battle.Stun().String())
}

func TestStart_NotifiesBothSides(t *testing.T) {
	cat := newCatalog(t)
	a := newPlayer(t, cat, profile{name: "Ada", speed: 10, health: 20})
	m := newMob(t, cat, 5, 20)
	reg := battle.NewRegistry(cat)

	h, err := reg.Start(roster{ada: a, goblin: m}, ada, goblin)
	require.NoError(t, err)
	assert.Equal(t, battle.Handle(1), h)
	want := "Ada is fighting Goblin. It is Ada's turn."
	assert.Equal(t, []string{want}, lines(a))
	assert.Equal(t, []string{want}, lines(m))

	opp, err := reg.Opponent(goblin)
	require.NoError(t, err)
	assert.Equal(t, ada, opp)
	assert.Equal(t, 1, reg.Count())
}

func TestStart_RejectsRegisteredIdentity(t *testing.T) {
	cat := newCatalog(t)
	r := roster{
		ada:    newPlayer(t, cat, profile{name: "Ada", speed: 10, health: 20}),
		bea:    newPlayer(t, cat, profile{name: "Bea", speed: 10, health: 20}),
		goblin: newMob(t, cat, 5, 20),
	}
	reg := battle.NewRegistry(cat)
	h, err := reg.Start(r, ada, goblin)
	require.NoError(t, err)

	_, err = reg.Start(r, bea, goblin)
	assert.True(t, errors.Is(err, battle.ErrAlreadyInBattle))
	assert.False(t, reg.InBattle(bea))
	assert.Equal(t, 1, reg.Count())
	got, ok := reg.HandleOf(goblin)
	require.True(t, ok)
	assert.Equal(t, h, got)

	_, err = reg.Start(r, bea, bea)
	assert.Error(t, err)
	_, err = reg.Start(r, bea, battle.MobID(9))
	assert.True(t, errors.Is(err, battle.ErrUnknownCombatant))
	assert.False(t, reg.InBattle(bea))
}

func TestEnd_RemovesBothIdentities(t *testing.T) {
	cat := newCatalog(t)
	r := roster{ada: newPlayer(t, cat, profile{name: "Ada", speed: 1, health: 5}), goblin: newMob(t, cat, 1, 5)}
	reg := battle.NewRegistry(cat)
	h1, err := reg.Start(r, ada, goblin)
	require.NoError(t, err)

	require.NoError(t, reg.End(goblin))
	assert.False(t, reg.InBattle(ada))
	assert.False(t, reg.InBattle(goblin))
	assert.Equal(t, 0, reg.Count())
	_, err = reg.Opponent(ada)
	assert.True(t, errors.Is(err, battle.ErrNotInBattle))
	assert.True(t, errors.Is(reg.End(ada), battle.ErrNotInBattle))

	h2, err := reg.Start(r, goblin, ada)
	require.NoError(t, err)
	assert.Greater(t, h2, h1, "handles are never reused")
}

func TestQueueEffect_Errors(t *testing.T) {
	cat := newCatalog(t)
	r := roster{ada: newPlayer(t, cat, profile{name: "Ada", speed: 1, health: 5}), goblin: newMob(t, cat, 1, 5)}
	reg := battle.NewRegistry(cat)
	assert.True(t, errors.Is(reg.QueueEffect(ada, battle.Stun(), 1), battle.ErrNotInBattle))
	_, err := reg.Start(r, ada, goblin)
	require.NoError(t, err)
	assert.Error(t, reg.QueueEffect(ada, battle.Stun(), 0))
	require.NoError(t, reg.QueueEffect(ada, battle.Stun(), 2))

	snap, err := reg.Snapshot(ada)
	require.NoError(t, err)
	require.Len(t, snap.Records[0].Effects, 1)
	assert.Equal(t, battle.EffectStun, snap.Records[0].Effects[0].Effect.Kind)
	assert.Equal(t, 2, snap.Records[0].Effects[0].Turns)
	assert.Empty(t, snap.Records[1].Effects)
}

func TestRegistry_Property_IdentityInAtMostOneBattle(t *testing.T) {
	cat := newCatalog(t)
	rapid.Check(t, func(rt *rapid.T) {
		ids := []battle.Identity{battle.PlayerID(0), battle.PlayerID(1), battle.PlayerID(2), battle.MobID(0), battle.MobID(1)}
		r := roster{}
		for _, id := range ids {
			if id.Kind == battle.KindMob {
				r[id] = newMob(rt, cat, 3, 10)
			} else {
				r[id] = newPlayer(rt, cat, profile{name: id.String(), speed: 3, health: 10})
			}
		}
		reg := battle.NewRegistry(cat)
		var last battle.Handle

		steps := rapid.IntRange(1, 40).Draw(rt, "steps")
		for range steps {
			a := rapid.SampledFrom(ids).Draw(rt, "a")
			b := rapid.SampledFrom(ids).Draw(rt, "b")
			if rapid.Bool().Draw(rt, "end") {
				wasIn := reg.InBattle(a)
				err := reg.End(a)
				assert.Equal(rt, wasIn, err == nil)
				continue
			}
			before := reg.Count()
			busy := a == b || reg.InBattle(a) || reg.InBattle(b)
			h, err := reg.Start(r, a, b)
			if busy {
				require.Error(rt, err)
				assert.Equal(rt, before, reg.Count())
				continue
			}
			require.NoError(rt, err)
			assert.Greater(rt, h, last)
			last = h
		}

		seen := map[battle.Identity]int{}
		for _, pair := range reg.Participants() {
			seen[pair[0]]++
			seen[pair[1]]++
			opp, err := reg.Opponent(pair[0])
			require.NoError(rt, err)
			assert.Equal(rt, pair[1], opp)
		}
		for id, n := range seen {
			assert.Equal(rt, 1, n, "%s registered %d times", id, n)
		}
		for _, id := range ids {
			assert.Equal(rt, seen[id] == 1, reg.InBattle(id))
		}
	})
}
