package battle_test

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cory-johannsen/skirmish/internal/game/battle"
	"github.com/cory-johannsen/skirmish/internal/game/combatant"
	"github.com/cory-johannsen/skirmish/internal/game/dice"
	"github.com/cory-johannsen/skirmish/internal/game/gamedata"
)

const contentDir = "../../../content"

func loadContent(t *testing.T) *gamedata.Catalog {
	t.Helper()
	cat, err := gamedata.Load(
		filepath.Join(contentDir, "gamedata.yaml"),
		filepath.Join(contentDir, "items"),
		filepath.Join(contentDir, "abilities"),
	)
	require.NoError(t, err)
	return cat
}

func TestApply_ShippedOpponentTextNamesTheUser(t *testing.T) {
	cat := loadContent(t)
	tmpl, err := combatant.LoadTemplateFile(filepath.Join(contentDir, "mobs", "rat.yaml"), cat)
	require.NoError(t, err)
	rat, err := tmpl.Spawn(cat, &dice.Fixed{Values: []float64{0}})
	require.NoError(t, err)
	a := newPlayer(t, cat, profile{name: "Ada", speed: 5, health: 20})
	r := roster{ada: a, goblin: rat}
	reg := battle.NewRegistry(cat)
	_, err = reg.Start(r, goblin, ada)
	require.NoError(t, err)
	lines(a)

	out, err := reg.Apply(r, goblin, ability(t, cat, "bite"), "")
	require.NoError(t, err)
	require.False(t, out.Missed)
	assert.Equal(t, []string{"Rat bites you."}, lines(a))
}

func TestShippedAbilities_OpponentTextIsAVerbPhrase(t *testing.T) {
	cat := loadContent(t)
	for _, id := range []string{"bite", "jab", "slash", "burn", "guard"} {
		ab := ability(t, cat, id)
		require.NotEmpty(t, ab.OpponentText, id)
		first := ab.OpponentText[0]
		assert.True(t, first >= 'a' && first <= 'z', "%s opponent text should follow the user's name: %q", id, ab.OpponentText)
	}
}
