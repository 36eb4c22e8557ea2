package game

import (
	"math"

	"arena-server/internal/physics"
)

func (s *Session) newPlayerBody(at physics.Vector) *physics.Body {
	return s.world.NewBody(physics.Rect(s.tuning.PlayerSize.W, s.tuning.PlayerSize.H), physics.BodyOptions{
		Filter:   playerFilter,
		Label:    KindPlayer.label(),
		Position: at,
	})
}

func (s *Session) newEnemyBody(at physics.Vector) *physics.Body {
	return s.world.NewBody(physics.Rect(s.tuning.EnemySize.W, s.tuning.EnemySize.H), physics.BodyOptions{
		Filter:   enemyFilter,
		Label:    KindEnemy.label(),
		Position: at,
	})
}

func (s *Session) newBossBody() *physics.Body {
	return s.world.NewBody(physics.Circle(s.tuning.Boss.Radius), physics.BodyOptions{
		Filter:   enemyFilter,
		Label:    KindBoss.label(),
		Position: s.tuning.Boss.Spawn,
	})
}

func (s *Session) newCoinBody(at physics.Vector) *physics.Body {
	return s.world.NewBody(physics.Rect(s.tuning.CoinSize.W, s.tuning.CoinSize.H), physics.BodyOptions{
		Static:   true,
		Sensor:   true,
		Filter:   civilianFilter,
		Label:    KindCoin.label(),
		Position: at,
	})
}

func (s *Session) newGooBody(at physics.Vector) *physics.Body {
	return s.world.NewBody(physics.Circle(s.tuning.Goo.Radius), physics.BodyOptions{
		Kinematic: true,
		Sensor:    true,
		Filter:    gooFilter,
		Label:     KindGoo.label(),
		Position:  at,
	})
}

func (s *Session) newSwordBody(at physics.Vector) *physics.Body {
	return s.world.NewBody(physics.Rect(s.tuning.Sword.Range, s.tuning.Sword.Length), physics.BodyOptions{
		Kinematic: true,
		Sensor:    true,
		Filter:    swordFilter,
		Label:     KindSword.label(),
		Position:  at,
	})
}

func (s *Session) newCivilianBody(kind Kind, at physics.Vector) *physics.Body {
	return s.world.NewBody(physics.Rect(s.tuning.CivilianSize.W, s.tuning.CivilianSize.H), physics.BodyOptions{
		Static:   true,
		Sensor:   true,
		Filter:   civilianFilter,
		Label:    kind.label(),
		Position: at,
	})
}

// newBoundaries returns four thin sensors lying on the play-area edges.
func (s *Session) newBoundaries() []*physics.Body {
	const thickness = 0.1
	b := s.tuning.Border
	w, h := b.MaxX-b.MinX, b.MaxY-b.MinY
	cx, cy := b.MinX+w/2, b.MinY+h/2
	edges := []struct {
		shape physics.Shape
		at    physics.Vector
	}{
		{physics.Rect(w, thickness), physics.Vector{X: cx, Y: b.MinY}},
		{physics.Rect(w, thickness), physics.Vector{X: cx, Y: b.MaxY}},
		{physics.Rect(thickness, h), physics.Vector{X: b.MinX, Y: cy}},
		{physics.Rect(thickness, h), physics.Vector{X: b.MaxX, Y: cy}},
	}
	out := make([]*physics.Body, 0, len(edges))
	for _, e := range edges {
		out = append(out, s.world.NewBody(e.shape, physics.BodyOptions{
			Static:   true,
			Sensor:   true,
			Filter:   boundaryFilter,
			Label:    KindBoundary.label(),
			Position: e.at,
		}))
	}
	return out
}

// randomIn returns a uniform point inside a.
func (s *Session) randomIn(a Area) physics.Vector {
	return physics.Vector{
		X: a.MinX + s.rng.Float64()*(a.MaxX-a.MinX),
		Y: a.MinY + s.rng.Float64()*(a.MaxY-a.MinY),
	}
}

// perimeterPoint picks a random point on the rectangle that surrounds the
// player spawn area at the enemy spawn gap, kept inside the border.
func (s *Session) perimeterPoint() physics.Vector {
	b := s.tuning.Border
	sp := s.tuning.PlayerSpawn
	gap := s.tuning.EnemySpawnGap
	ring := Area{
		MinX: math.Max(sp.MinX-gap, b.MinX),
		MaxX: math.Min(sp.MaxX+gap, b.MaxX),
		MinY: math.Max(sp.MinY-gap, b.MinY),
		MaxY: math.Min(sp.MaxY+gap, b.MaxY),
	}
	p := s.randomIn(ring)
	switch s.rng.Intn(4) {
	case 0:
		p.Y = ring.MinY
	case 1:
		p.Y = ring.MaxY
	case 2:
		p.X = ring.MinX
	default:
		p.X = ring.MaxX
	}
	return p
}

// clamp keeps v within [lo, hi].
func clamp(v, lo, hi float64) float64 {
	return math.Min(math.Max(v, lo), hi)
}

// clampToBorder pulls a body back inside the play area, allowing half a
// pixel of overlap with the boundary sensors.
func (s *Session) clampToBorder(b *physics.Body) {
	if b.Options().Static {
		return
	}
	half := b.HalfExtents()
	border := s.tuning.Border
	p := b.Position()
	next := physics.Vector{
		X: clamp(p.X, border.MinX+half.X-0.5, border.MaxX-half.X+0.5),
		Y: clamp(p.Y, border.MinY+half.Y-0.5, border.MaxY-half.Y+0.5),
	}
	if next != p {
		s.world.SetPosition(b, next)
	}
}

// clampToZone keeps a player near a zone centre.
func (s *Session) clampToZone(b, zone *physics.Body, reach float64) {
	c := zone.Position()
	p := b.Position()
	next := physics.Vector{
		X: clamp(p.X, c.X-reach, c.X+reach),
		Y: clamp(p.Y, c.Y-reach, c.Y+reach),
	}
	if next != p {
		s.world.SetPosition(b, next)
	}
}
