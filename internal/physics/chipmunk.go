package physics

import (
	"math"

	"github.com/jakecoffman/cp"
)

type cpHandle struct {
	body  *cp.Body
	shape *cp.Shape
}

type labelPair struct{ a, b Label }

// ChipmunkWorld implements World on a Chipmunk2D space with zero gravity.
//
// Chipmunk forbids adding or removing bodies while the space is stepping,
// so begin and pre-solve callbacks only record pairs; they are handed to
// the registered handlers once Space.Step has returned.
type ChipmunkWorld struct {
	space   *cp.Space
	nextID  BodyID
	members map[BodyID]*Body
	order   []*Body

	labels  []Label
	handled map[labelPair]bool

	started []Pair
	active  []Pair

	onStart  []PairHandler
	onActive []PairHandler
}

var _ World = (*ChipmunkWorld)(nil)

// NewChipmunkWorld creates an empty space.
func NewChipmunkWorld() *ChipmunkWorld {
	space := cp.NewSpace()
	space.SetGravity(cp.Vector{})
	return &ChipmunkWorld{
		space:   space,
		members: make(map[BodyID]*Body),
		handled: make(map[labelPair]bool),
	}
}

func toCP(v Vector) cp.Vector   { return cp.Vector{X: v.X, Y: v.Y} }
func fromCP(v cp.Vector) Vector { return Vector{X: v.X, Y: v.Y} }

func handleOf(b *Body) *cpHandle {
	h, _ := b.Impl().(*cpHandle)
	return h
}

// NewBody creates a detached body; Add puts it in the space.
func (w *ChipmunkWorld) NewBody(shape Shape, opts BodyOptions) *Body {
	w.nextID++
	b := NewBody(w.nextID, shape, opts)

	var body *cp.Body
	switch {
	case opts.Static:
		body = cp.NewStaticBody()
	case opts.Kinematic:
		body = cp.NewKinematicBody()
	default:
		// infinite moment keeps bodies upright, as the game has no spin
		body = cp.NewBody(1, math.Inf(1))
	}
	body.UserData = b
	body.SetPosition(toCP(opts.Position))

	var s *cp.Shape
	if shape.Kind == ShapeCircle {
		s = cp.NewCircle(body, shape.Radius, cp.Vector{})
	} else {
		s = cp.NewBox(body, shape.Width, shape.Height, 0)
	}
	s.SetSensor(opts.Sensor)
	s.SetFilter(cp.NewShapeFilter(0, uint(opts.Filter.Category), uint(opts.Filter.Mask)))
	s.SetCollisionType(cp.CollisionType(opts.Label))
	s.UserData = b

	b.SetImpl(&cpHandle{body: body, shape: s})
	w.register(opts.Label)
	return b
}

// register installs begin/pre-solve handlers between label and every label
// seen so far.
func (w *ChipmunkWorld) register(label Label) {
	known := false
	for _, l := range w.labels {
		if l == label {
			known = true
			break
		}
	}
	if !known {
		w.labels = append(w.labels, label)
	}
	for _, other := range w.labels {
		key := labelPair{label, other}
		if other < label {
			key = labelPair{other, label}
		}
		if w.handled[key] {
			continue
		}
		w.handled[key] = true
		h := w.space.NewCollisionHandler(cp.CollisionType(key.a), cp.CollisionType(key.b))
		h.BeginFunc = w.begin
		h.PreSolveFunc = w.preSolve
	}
}

func pairOf(arb *cp.Arbiter) (Pair, bool) {
	a, b := arb.Bodies()
	ba, okA := a.UserData.(*Body)
	bb, okB := b.UserData.(*Body)
	if !okA || !okB {
		return Pair{}, false
	}
	return Pair{A: ba, B: bb}, true
}

func (w *ChipmunkWorld) begin(arb *cp.Arbiter, _ *cp.Space, _ interface{}) bool {
	if p, ok := pairOf(arb); ok {
		w.started = append(w.started, p)
	}
	return true
}

func (w *ChipmunkWorld) preSolve(arb *cp.Arbiter, _ *cp.Space, _ interface{}) bool {
	if p, ok := pairOf(arb); ok {
		w.active = append(w.active, p)
	}
	return true
}

func (w *ChipmunkWorld) Add(bodies ...*Body) {
	for _, b := range bodies {
		if b == nil || w.Contains(b) {
			continue
		}
		h := handleOf(b)
		if h == nil {
			continue
		}
		w.space.AddBody(h.body)
		w.space.AddShape(h.shape)
		w.members[b.id] = b
		w.order = append(w.order, b)
	}
}

func (w *ChipmunkWorld) Remove(bodies ...*Body) {
	for _, b := range bodies {
		if b == nil || !w.Contains(b) {
			continue
		}
		h := handleOf(b)
		w.space.RemoveShape(h.shape)
		w.space.RemoveBody(h.body)
		delete(w.members, b.id)
		for i, have := range w.order {
			if have == b {
				w.order = append(w.order[:i], w.order[i+1:]...)
				break
			}
		}
	}
}

func (w *ChipmunkWorld) Contains(b *Body) bool {
	if b == nil {
		return false
	}
	have, ok := w.members[b.id]
	return ok && have == b
}

func (w *ChipmunkWorld) SetVelocity(b *Body, v Vector) {
	if b.sleeping {
		return
	}
	handleOf(b).body.SetVelocity(v.X, v.Y)
	b.vel = v
}

// SetPosition moves a body. Static bodies are re-inserted so the static
// index sees the new bounds.
func (w *ChipmunkWorld) SetPosition(b *Body, p Vector) {
	h := handleOf(b)
	if b.opts.Static && w.Contains(b) {
		w.space.RemoveShape(h.shape)
		h.body.SetPosition(toCP(p))
		w.space.AddShape(h.shape)
	} else {
		h.body.SetPosition(toCP(p))
	}
	b.pos = p
}

func (w *ChipmunkWorld) SetAngle(b *Body, radians float64) {
	handleOf(b).body.SetAngle(radians)
	b.angle = radians
}

// SetSleeping freezes a body in place until woken. Contacts keep firing
// but cannot move it; only SetPosition does.
func (w *ChipmunkWorld) SetSleeping(b *Body, sleeping bool) {
	b.sleeping = sleeping
	if sleeping {
		handleOf(b).body.SetVelocity(0, 0)
		b.vel = Vector{}
	}
}

func (w *ChipmunkWorld) Step(deltaMs float64) {
	for _, b := range w.order {
		if b.sleeping {
			handleOf(b).body.SetVelocity(0, 0)
		}
	}
	w.started = w.started[:0]
	w.active = w.active[:0]

	w.space.Step(deltaMs / 1000)

	for _, b := range w.order {
		body := handleOf(b).body
		if b.sleeping {
			// contact impulses still reach a sleeping body; put it back
			body.SetPosition(toCP(b.pos))
			body.SetVelocity(0, 0)
		}
		b.Sync(fromCP(body.Position()), fromCP(body.Velocity()), body.Angle(), b.sleeping)
	}

	started := append([]Pair(nil), w.started...)
	active := append([]Pair(nil), w.active...)
	w.dispatch(w.onStart, started)
	w.dispatch(w.onActive, active)
}

func (w *ChipmunkWorld) dispatch(handlers []PairHandler, pairs []Pair) {
	if len(pairs) == 0 {
		return
	}
	for _, h := range handlers {
		live := make([]Pair, 0, len(pairs))
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

func (w *ChipmunkWorld) OnCollisionStart(h PairHandler)  { w.onStart = append(w.onStart, h) }
func (w *ChipmunkWorld) OnCollisionActive(h PairHandler) { w.onActive = append(w.onActive, h) }

func (w *ChipmunkWorld) Bodies(match func(*Body) bool) []*Body {
	out := make([]*Body, 0, len(w.order))
	for _, b := range w.order {
		if match == nil || match(b) {
			out = append(out, b)
		}
	}
	return out
}

// Close releases every body and handler.
func (w *ChipmunkWorld) Close() {
	w.Remove(append([]*Body(nil), w.order...)...)
	w.onStart = nil
	w.onActive = nil
}
