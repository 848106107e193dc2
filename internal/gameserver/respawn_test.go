package gameserver_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cory-johannsen/skirmish/internal/game/combatant"
	"github.com/cory-johannsen/skirmish/internal/gameserver"
)

func TestRespawner_DueDrainsReadyEntries(t *testing.T) {
	rat := ratTemplate()
	r := gameserver.NewRespawner([]*combatant.Template{rat})
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	r.Schedule("rat", now, 10*time.Second)
	r.Schedule("rat", now, 20*time.Second)
	assert.Equal(t, 2, r.Pending())

	assert.Empty(t, r.Due(now.Add(9*time.Second)))
	due := r.Due(now.Add(10 * time.Second))
	require.Len(t, due, 1)
	assert.Same(t, rat, due[0])
	assert.Equal(t, 1, r.Pending())

	assert.Len(t, r.Due(now.Add(time.Hour)), 1)
	assert.Zero(t, r.Pending())
}

func TestRespawner_IgnoresZeroDelayAndUnknownTemplates(t *testing.T) {
	r := gameserver.NewRespawner([]*combatant.Template{ratTemplate()})
	now := time.Now()
	r.Schedule("rat", now, 0)
	r.Schedule("dragon", now, time.Second)
	assert.Zero(t, r.Pending())
}
