package game

import (
	"math"

	"arena-server/internal/physics"
)

// Boss stages. Stage only ever increases.
const (
	StageChase = iota
	StageVolley
	StageEnraged
	StageDesperate
)

// Boss is the final-level enemy
type Boss struct {
	body      *physics.Body
	Health    int
	MaxHealth int
	Speed     float64
	Stage     int
	target    string
}

func (s *Session) spawnBoss() {
	if s.boss != nil {
		return
	}
	b := &Boss{
		body:      s.newBossBody(),
		Health:    s.tuning.Boss.Health,
		MaxHealth: s.tuning.Boss.Health,
		Speed:     s.tuning.Boss.Speed,
	}
	s.world.Add(b.body)
	b.target = s.findTarget(b.body.Position())
	s.boss = b
	s.gooClock = 0
}

// below reports whether health has fallen to num/den of the maximum
func (b *Boss) below(num, den float64) bool {
	return float64(b.Health) <= float64(b.MaxHealth)*num/den
}

// updateBoss runs the boss stage machine: chase, volley while resting,
// enraged chase, then volley again until death.
func (s *Session) updateBoss(delta float64) {
	b := s.boss
	if b == nil {
		return
	}
	if b.Health <= 0 {
		s.world.Remove(b.body)
		s.boss = nil
		s.broadcast(MsgBossKilled, IDMsg{ID: uint64(b.body.ID())})
		s.events.Track(EvtBossKilled, s.room, "", "")
		s.endGame(true)
		return
	}

	switch b.Stage {
	case StageChase:
		if b.below(2, 3) {
			b.Stage = StageVolley
			s.world.SetSleeping(b.body, true)
			break
		}
		b.target = s.chase(b.body, b.target, b.Speed)
	case StageVolley:
		if b.below(1, 2) {
			b.Stage = StageEnraged
			b.Speed += s.tuning.Boss.EnrageBonus
			s.world.SetSleeping(b.body, false)
			s.broadcast(MsgBossEnraged, StageMsg{Stage: b.Stage, Speed: b.Speed})
			break
		}
		s.spawnGoo(delta)
	case StageEnraged:
		if b.below(1, 3) {
			b.Stage = StageDesperate
			s.world.SetSleeping(b.body, true)
			break
		}
		b.target = s.chase(b.body, b.target, b.Speed)
	case StageDesperate:
		s.spawnGoo(delta)
	}
}

// spawnGoo fires a volley of goo around the boss once per goo interval.
// Each projectile travels inside its own eighth of the circle.
func (s *Session) spawnGoo(delta float64) {
	s.gooClock += delta
	if s.gooClock < s.tuning.Goo.IntervalMs {
		return
	}
	s.gooClock = 0
	g := s.tuning.Goo
	from := s.boss.body.Position()
	slice := 2 * math.Pi / float64(g.Volley)
	for i := 0; i < g.Volley; i++ {
		angle := float64(i)*slice + s.rng.Float64()*slice
		body := s.newGooBody(from)
		s.world.Add(body)
		s.world.SetVelocity(body, physics.Vector{X: math.Cos(angle), Y: math.Sin(angle)}.Mult(g.Speed))
		s.gooExpiry[body.ID()] = s.after(&s.timers, g.LifetimeMs, "goo expiry", func() {
			s.destroyGoo(body)
		})
	}
}

// destroyGoo removes a goo projectile and its pending expiry
func (s *Session) destroyGoo(body *physics.Body) {
	if t, ok := s.gooExpiry[body.ID()]; ok {
		t.Cancel()
		delete(s.gooExpiry, body.ID())
	}
	if !s.world.Contains(body) {
		return
	}
	s.world.Remove(body)
	s.broadcast(MsgGooDestroyed, IDMsg{ID: uint64(body.ID())})
}
