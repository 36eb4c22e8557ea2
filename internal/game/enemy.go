package game

import (
	"math"

	"arena-server/internal/physics"
)

// Enemy is a melee minion that chases the nearest player
type Enemy struct {
	body   *physics.Body
	Health int
	Speed  float64
	// target is the member id being chased, resolved afresh every tick
	target string
}

// ID returns the enemy's body id
func (e *Enemy) ID() physics.BodyID { return e.body.ID() }

// findTarget returns the member whose player is strictly nearest to from.
// Ties go to the earliest joiner.
func (s *Session) findTarget(from physics.Vector) string {
	best := ""
	bestDist := math.Inf(1)
	for _, m := range s.participants {
		p := m.player
		if p == nil || p.Health <= 0 {
			continue
		}
		if d := from.Distance(p.body.Position()); d < bestDist {
			best, bestDist = m.ID, d
		}
	}
	return best
}

// liveTarget resolves a target id to a spawned, living player
func (s *Session) liveTarget(id string) *Player {
	if id == "" {
		return nil
	}
	m := s.member(id)
	if m == nil || m.player == nil || m.player.Health <= 0 {
		return nil
	}
	return m.player
}

// chase steers body toward its target, or picks a new one when the old
// target is gone. It returns the target id to keep.
func (s *Session) chase(body *physics.Body, target string, speed float64) string {
	p := s.liveTarget(target)
	if p == nil {
		s.world.SetVelocity(body, physics.Vector{})
		return s.findTarget(body.Position())
	}
	dir := p.body.Position().Sub(body.Position()).Normalize()
	s.world.SetVelocity(body, dir.Mult(speed))
	return target
}

// spawnEnemies advances the spawn clock and adds one enemy when the interval
// elapsed, the level quota is not spent and the live cap allows it.
func (s *Session) spawnEnemies(delta float64) {
	s.spawnClock += delta
	if s.spawnClock < s.tuning.SpawnInterval(s.level) {
		return
	}
	if s.enemiesSpawned >= s.tuning.Enemies(s.level) || len(s.enemies) >= s.tuning.MaxEnemies(s.level) {
		return
	}
	s.spawnClock = 0
	s.enemiesSpawned++
	e := &Enemy{
		body:   s.newEnemyBody(s.perimeterPoint()),
		Health: s.tuning.EnemyHealth(s.level),
		Speed:  s.tuning.EnemySpeed(s.level),
	}
	s.world.Add(e.body)
	s.enemies = append(s.enemies, e)
}

func (s *Session) updateEnemies() {
	for _, e := range s.enemies {
		if e.Health > 0 {
			e.target = s.chase(e.body, e.target, e.Speed)
		}
	}
}

// reapEnemies removes dead enemies, drops their coins and ends the level
// when the wave is cleared.
func (s *Session) reapEnemies() {
	live := s.enemies[:0]
	killed := false
	for _, e := range s.enemies {
		if e.Health > 0 {
			live = append(live, e)
			continue
		}
		killed = true
		at := e.body.Position()
		s.world.Remove(e.body)
		s.world.Add(s.newCoinBody(at))
		s.broadcast(MsgEnemyKilled, IDMsg{ID: uint64(e.ID())})
	}
	for i := len(live); i < len(s.enemies); i++ {
		s.enemies[i] = nil
	}
	s.enemies = live

	// the boss level ends with the boss, not with its minions
	if killed && len(s.enemies) == 0 && s.enemiesSpawned >= s.tuning.Enemies(s.level) && !s.tuning.IsFinal(s.level) {
		s.endLevel()
	}
}

func (s *Session) enemyByBody(b *physics.Body) *Enemy {
	for _, e := range s.enemies {
		if e.body == b {
			return e
		}
	}
	return nil
}
