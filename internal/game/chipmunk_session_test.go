package game

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"arena-server/internal/physics"
)

// newChipmunkRoom starts room "cp" with one member on the real physics
// backend. Enemies only appear when a test adds them.
func newChipmunkRoom(t *testing.T) (*Session, *mockConn) {
	t.Helper()
	tuning := DefaultTuning()
	tuning.Levels.SpawnInterval = Curve{Base: 1e9, Final: 1e9}
	s := NewSession("cp", Options{Tuning: tuning, World: physics.NewChipmunkWorld(), Seed: 11})
	t.Cleanup(s.Close)

	c := &mockConn{}
	require.NoError(t, s.Begin([]Member{{ID: "a", Name: "alice", Conn: c}}))
	locked(s, func() {
		p := s.member("a").player
		s.world.SetPosition(p.body, physics.Vector{X: 400, Y: 300})
	})
	return s, c
}

func addEnemy(s *Session, at physics.Vector, health int) *Enemy {
	e := &Enemy{body: s.newEnemyBody(at), Health: health, Speed: 60}
	s.world.Add(e.body)
	s.enemies = append(s.enemies, e)
	return e
}

func TestChipmunkSwordHitsEnemy(t *testing.T) {
	s, c := newChipmunkRoom(t)

	var e *Enemy
	locked(s, func() {
		p := s.member("a").player
		at, angle := p.swordPlacement(s.tuning)
		e = addEnemy(s, at, 5)
		blade := s.newSwordBody(at)
		p.composite.Add(blade)
		s.world.SetAngle(blade, angle)
	})
	s.Tick()

	locked(s, func() { assert.Equal(t, 4, e.Health) })
	env, ok := c.last(MsgEnemyHurt)
	require.True(t, ok)
	assert.Equal(t, HurtMsg{ID: uint64(e.ID()), Health: 4}, env.Data)
}

func TestChipmunkGooHoldsPlayerAgainstPushes(t *testing.T) {
	s, _ := newChipmunkRoom(t)

	var p *Player
	locked(s, func() {
		p = s.member("a").player
		goo := s.newGooBody(p.body.Position())
		s.world.Add(goo)
	})
	s.Tick()

	locked(s, func() {
		require.True(t, p.Stuck())
		require.True(t, p.body.Sleeping())
		addEnemy(s, physics.Vector{X: 470, Y: 300}, 3)
	})

	touched := false
	for i := 0; i < 90; i++ {
		s.Move("a", physics.Vector{X: -1})
		s.Tick()
		locked(s, func() {
			if len(s.enemies) > 0 && s.enemies[0].body.Position().X < 470 {
				touched = true
			}
		})
	}

	assert.True(t, touched, "enemy closed in")
	locked(s, func() {
		assert.True(t, p.Stuck())
		assert.Equal(t, physics.Vector{X: 400, Y: 300}, p.body.Position())
	})
	snap := s.Snapshot()
	assert.True(t, snap.Players["alice"].Stuck)
}

func TestChipmunkBorderClamp(t *testing.T) {
	s, _ := newChipmunkRoom(t)
	border := s.tuning.Border
	half := s.tuning.PlayerSize.W / 2

	locked(s, func() {
		p := s.member("a").player
		s.world.SetPosition(p.body, physics.Vector{X: border.MaxX - half - 5, Y: 300})
	})
	for i := 0; i < 30; i++ {
		s.Move("a", physics.Vector{X: 1})
		s.Tick()
	}

	pos := s.Snapshot().Players["alice"].Position
	assert.LessOrEqual(t, pos.X, border.MaxX-half+0.5)
	assert.Greater(t, pos.X, border.MaxX-half-5)
}
