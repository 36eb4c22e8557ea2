// Package physics is the rigid-body capability the game engine runs on.
// The engine only talks to World; ChipmunkWorld is the production backend.
package physics

import "math"

// Vector is a 2D point or direction in world units (pixels).
type Vector struct {
	X float64 `json:"x" msgpack:"x"`
	Y float64 `json:"y" msgpack:"y"`
}

func (v Vector) Add(o Vector) Vector       { return Vector{v.X + o.X, v.Y + o.Y} }
func (v Vector) Sub(o Vector) Vector       { return Vector{v.X - o.X, v.Y - o.Y} }
func (v Vector) Mult(s float64) Vector     { return Vector{v.X * s, v.Y * s} }
func (v Vector) Length() float64           { return math.Sqrt(v.X*v.X + v.Y*v.Y) }
func (v Vector) Distance(o Vector) float64 { return v.Sub(o).Length() }

// Normalize returns the unit vector, or the zero vector for zero input.
func (v Vector) Normalize() Vector {
	l := v.Length()
	if l == 0 {
		return Vector{}
	}
	return Vector{v.X / l, v.Y / l}
}

// ShapeKind selects the collision geometry of a body.
type ShapeKind uint8

const (
	ShapeRect ShapeKind = iota
	ShapeCircle
)

// Shape describes body geometry centred on the body position.
type Shape struct {
	Kind   ShapeKind
	Width  float64
	Height float64
	Radius float64
}

func Rect(w, h float64) Shape     { return Shape{Kind: ShapeRect, Width: w, Height: h} }
func Circle(radius float64) Shape { return Shape{Kind: ShapeCircle, Radius: radius} }

// Category is a collision category bitset.
type Category uint32

// Filter decides which pairs may report contact: both bodies' masks must
// include the other's category.
type Filter struct {
	Category Category
	Mask     Category
}

// Accepts reports whether the two filters allow contact.
func (f Filter) Accepts(o Filter) bool {
	return f.Mask&o.Category != 0 && o.Mask&f.Category != 0
}

// Label tags a body with the game-level kind it represents.
type Label uint16

// BodyID identifies a body for its whole lifetime; ids are never reused
// within a World.
type BodyID uint64

// BodyOptions mirrors create-body options.
type BodyOptions struct {
	Static    bool
	Sensor    bool
	// Kinematic bodies move by velocity but are not pushed by contacts.
	Kinematic bool
	Filter    Filter
	Label     Label
	Position  Vector
}

// Body is a handle to a body owned by a World.
type Body struct {
	id       BodyID
	label    Label
	shape    Shape
	opts     BodyOptions
	pos      Vector
	vel      Vector
	angle    float64
	sleeping bool

	// backend state
	impl any
}

// NewBody builds a detached body handle. Backends call it from World.NewBody.
func NewBody(id BodyID, shape Shape, opts BodyOptions) *Body {
	return &Body{id: id, label: opts.Label, shape: shape, opts: opts, pos: opts.Position}
}

func (b *Body) ID() BodyID           { return b.id }
func (b *Body) Label() Label         { return b.label }
func (b *Body) Shape() Shape         { return b.shape }
func (b *Body) Options() BodyOptions { return b.opts }
func (b *Body) Position() Vector     { return b.pos }
func (b *Body) Velocity() Vector     { return b.vel }
func (b *Body) Angle() float64       { return b.angle }
func (b *Body) Sleeping() bool       { return b.sleeping }

// Impl returns backend-private state.
func (b *Body) Impl() any { return b.impl }

// SetImpl stores backend-private state.
func (b *Body) SetImpl(v any) { b.impl = v }

// Sync is called by backends to publish integrated state into the handle.
func (b *Body) Sync(pos, vel Vector, angle float64, sleeping bool) {
	b.pos, b.vel, b.angle, b.sleeping = pos, vel, angle, sleeping
}

// HalfExtents returns the half size of the body's axis-aligned bounds.
// Rectangles turned by a quarter turn swap their extents.
func (b *Body) HalfExtents() Vector {
	if b.shape.Kind == ShapeCircle {
		return Vector{b.shape.Radius, b.shape.Radius}
	}
	w, h := b.shape.Width/2, b.shape.Height/2
	if math.Abs(math.Sin(b.angle)) > math.Sqrt2/2 {
		w, h = h, w
	}
	return Vector{w, h}
}

// Pair is a contact between two bodies reported by Step.
type Pair struct {
	A, B *Body
}

// PairHandler receives every pair of one callback class for a step.
type PairHandler func(pairs []Pair)

// World is the physics capability consumed by the game engine.
//
// Collision handlers are invoked synchronously from Step, after the space
// has been integrated, so handlers may add and remove bodies freely. Pairs
// whose bodies were removed by an earlier handler of the same step are
// not delivered.
type World interface {
	NewBody(shape Shape, opts BodyOptions) *Body
	Add(bodies ...*Body)
	Remove(bodies ...*Body)
	Contains(b *Body) bool

	SetVelocity(b *Body, v Vector)
	SetPosition(b *Body, p Vector)
	SetAngle(b *Body, radians float64)
	SetSleeping(b *Body, sleeping bool)

	Step(deltaMs float64)
	OnCollisionStart(h PairHandler)
	OnCollisionActive(h PairHandler)

	// Bodies enumerates bodies in insertion order.
	Bodies(match func(*Body) bool) []*Body
	Close()
}
