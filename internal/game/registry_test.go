package game

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"arena-server/internal/physics"
)

func newTestRegistry(max int) *Registry {
	return NewRegistry(RegistryConfig{
		Tuning:      DefaultTuning(),
		NewWorld:    func() physics.World { return newFakeWorld() },
		MaxSessions: max,
	})
}

func TestRegistryStartGetDelete(t *testing.T) {
	reg := newTestRegistry(0)
	defer reg.Close()

	c := &mockConn{}
	s, err := reg.Start("alpha", []Member{{ID: "a", Name: "alice", Conn: c}})
	require.NoError(t, err)
	assert.Same(t, s, reg.Get("alpha"))
	assert.Equal(t, 1, reg.Len())
	assert.Equal(t, []string{"alpha"}, reg.Rooms())

	_, err = reg.Start("alpha", nil)
	assert.ErrorIs(t, err, ErrAlreadyStarted)

	require.Eventually(t, func() bool {
		c.mu.Lock()
		defer c.mu.Unlock()
		return len(c.binary) > 0
	}, waitFor, pollEvery, "tick loop runs")
	assert.Len(t, c.lastSnapshot(t).Players, 1)

	assert.True(t, reg.Delete("alpha"))
	assert.False(t, reg.Delete("alpha"))
	assert.Nil(t, reg.Get("alpha"))
	assert.True(t, s.Closed())
	assert.Zero(t, reg.Len())
}

func TestRegistrySessionsAreIndependent(t *testing.T) {
	reg := newTestRegistry(0)
	defer reg.Close()

	a, err := reg.Start("alpha", []Member{{ID: "a", Name: "alice", Conn: &mockConn{}}})
	require.NoError(t, err)
	b, err := reg.Start("beta", []Member{{ID: "b", Name: "bob", Conn: &mockConn{}}})
	require.NoError(t, err)

	reg.Delete("alpha")
	assert.True(t, a.Closed())
	assert.False(t, b.Closed())
	assert.Same(t, b, reg.Get("beta"))
}

func TestRegistryLimit(t *testing.T) {
	reg := newTestRegistry(1)
	defer reg.Close()

	_, err := reg.Start("alpha", nil)
	require.NoError(t, err)
	_, err = reg.Start("beta", nil)
	assert.ErrorIs(t, err, ErrTooManyRooms)
}

func TestLoadTuningOverlay(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tuning.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
levels:
  total: 5
player_base:
  max_health: 6
  speed: 90
  attack: 1
boss:
  health: 50
`), 0o644))

	tu, err := LoadTuning(path)
	require.NoError(t, err)
	assert.Equal(t, 5, tu.Levels.Total)
	assert.Equal(t, 6, tu.PlayerBase.MaxHealth)
	assert.Equal(t, 50, tu.Boss.Health)
	assert.Equal(t, 10.0, tu.Levels.Enemies.Base, "unset keys keep defaults")
	assert.Equal(t, 48.0, tu.Boss.Speed)

	def, err := LoadTuning("")
	require.NoError(t, err)
	assert.Equal(t, DefaultTuning(), def)
}

func TestLoadTuningRejectsBadValues(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tuning.yaml")
	require.NoError(t, os.WriteFile(path, []byte("tick_ms: 0\n"), 0o644))
	_, err := LoadTuning(path)
	assert.Error(t, err)

	_, err = LoadTuning(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}
