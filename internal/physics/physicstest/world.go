// Package physicstest provides a deterministic physics.World for tests.
//
// Bodies move by plain velocity integration and never push each other.
// Contacts are axis-aligned bounding box overlaps filtered the same way as
// the Chipmunk backend; tests can also queue pairs by hand.
package physicstest

import "arena-server/internal/physics"

type key struct{ a, b physics.BodyID }

func keyOf(a, b *physics.Body) key {
	if a.ID() < b.ID() {
		return key{a.ID(), b.ID()}
	}
	return key{b.ID(), a.ID()}
}

// World is a scripted physics.World.
type World struct {
	// Detect turns automatic overlap detection on (default).
	Detect bool
	Steps  int

	nextID   physics.BodyID
	members  map[physics.BodyID]*physics.Body
	order    []*physics.Body
	touching map[key]bool

	queuedStart  []physics.Pair
	queuedActive []physics.Pair

	onStart  []physics.PairHandler
	onActive []physics.PairHandler
}

var _ physics.World = (*World)(nil)

func New() *World {
	return &World{
		Detect:   true,
		members:  make(map[physics.BodyID]*physics.Body),
		touching: make(map[key]bool),
	}
}

func (w *World) NewBody(shape physics.Shape, opts physics.BodyOptions) *physics.Body {
	w.nextID++
	return physics.NewBody(w.nextID, shape, opts)
}

func (w *World) Add(bodies ...*physics.Body) {
	for _, b := range bodies {
		if b == nil || w.Contains(b) {
			continue
		}
		w.members[b.ID()] = b
		w.order = append(w.order, b)
	}
}

func (w *World) Remove(bodies ...*physics.Body) {
	for _, b := range bodies {
		if !w.Contains(b) {
			continue
		}
		delete(w.members, b.ID())
		for i, have := range w.order {
			if have == b {
				w.order = append(w.order[:i], w.order[i+1:]...)
				break
			}
		}
		for k := range w.touching {
			if k.a == b.ID() || k.b == b.ID() {
				delete(w.touching, k)
			}
		}
	}
}

func (w *World) Contains(b *physics.Body) bool {
	if b == nil {
		return false
	}
	have, ok := w.members[b.ID()]
	return ok && have == b
}

func (w *World) SetVelocity(b *physics.Body, v physics.Vector) {
	if b.Sleeping() {
		return
	}
	b.Sync(b.Position(), v, b.Angle(), false)
}

func (w *World) SetPosition(b *physics.Body, p physics.Vector) {
	b.Sync(p, b.Velocity(), b.Angle(), b.Sleeping())
}

func (w *World) SetAngle(b *physics.Body, radians float64) {
	b.Sync(b.Position(), b.Velocity(), radians, b.Sleeping())
}

func (w *World) SetSleeping(b *physics.Body, sleeping bool) {
	v := b.Velocity()
	if sleeping {
		v = physics.Vector{}
	}
	b.Sync(b.Position(), v, b.Angle(), sleeping)
}

// QueueStart makes the next Step report a collision-start for a and b.
func (w *World) QueueStart(a, b *physics.Body) {
	w.queuedStart = append(w.queuedStart, physics.Pair{A: a, B: b})
}

// QueueActive makes the next Step report a collision-active for a and b.
func (w *World) QueueActive(a, b *physics.Body) {
	w.queuedActive = append(w.queuedActive, physics.Pair{A: a, B: b})
}

func movable(b *physics.Body) bool { return !b.Options().Static }

func dynamic(b *physics.Body) bool {
	o := b.Options()
	return !o.Static && !o.Kinematic
}

// Overlap reports whether the bounding boxes of a and b intersect.
func Overlap(a, b *physics.Body) bool {
	pa, pb := a.Position(), b.Position()
	ha, hb := a.HalfExtents(), b.HalfExtents()
	return pa.X-ha.X < pb.X+hb.X && pb.X-hb.X < pa.X+ha.X &&
		pa.Y-ha.Y < pb.Y+hb.Y && pb.Y-hb.Y < pa.Y+ha.Y
}

func (w *World) Step(deltaMs float64) {
	w.Steps++
	dt := deltaMs / 1000
	for _, b := range w.order {
		if !movable(b) || b.Sleeping() {
			continue
		}
		b.Sync(b.Position().Add(b.Velocity().Mult(dt)), b.Velocity(), b.Angle(), false)
	}

	started := w.queuedStart
	active := w.queuedActive
	w.queuedStart, w.queuedActive = nil, nil

	if w.Detect {
		now := make(map[key]bool)
		for i := 0; i < len(w.order); i++ {
			for j := i + 1; j < len(w.order); j++ {
				a, b := w.order[i], w.order[j]
				if !dynamic(a) && !dynamic(b) {
					continue
				}
				if !a.Options().Filter.Accepts(b.Options().Filter) || !Overlap(a, b) {
					continue
				}
				k := keyOf(a, b)
				now[k] = true
				if !w.touching[k] {
					started = append(started, physics.Pair{A: a, B: b})
				}
				active = append(active, physics.Pair{A: a, B: b})
			}
		}
		w.touching = now
	}

	w.dispatch(w.onStart, started)
	w.dispatch(w.onActive, active)
}

func (w *World) dispatch(handlers []physics.PairHandler, pairs []physics.Pair) {
	if len(pairs) == 0 {
		return
	}
	for _, h := range handlers {
		live := make([]physics.Pair, 0, len(pairs))
		for _, p := range pairs {
			if w.Contains(p.A) && w.Contains(p.B) {
				live = append(live, p)
			}
		}
		if len(live) > 0 {
			h(live)
		}
	}
}

func (w *World) OnCollisionStart(h physics.PairHandler)  { w.onStart = append(w.onStart, h) }
func (w *World) OnCollisionActive(h physics.PairHandler) { w.onActive = append(w.onActive, h) }

func (w *World) Bodies(match func(*physics.Body) bool) []*physics.Body {
	out := make([]*physics.Body, 0, len(w.order))
	for _, b := range w.order {
		if match == nil || match(b) {
			out = append(out, b)
		}
	}
	return out
}

func (w *World) Close() {
	w.Remove(append([]*physics.Body(nil), w.order...)...)
	w.onStart, w.onActive = nil, nil
}
