package physics

// Composite groups bodies that enter and leave a world as one unit, such as
// a player and its active melee hitbox.
type Composite struct {
	bodies []*Body
	world  World
}

// NewComposite returns an empty, detached composite.
func NewComposite(bodies ...*Body) *Composite {
	return &Composite{bodies: append([]*Body(nil), bodies...)}
}

// Add puts b in the composite, and in the world if the composite is attached.
func (c *Composite) Add(b *Body) {
	for _, have := range c.bodies {
		if have == b {
			return
		}
	}
	c.bodies = append(c.bodies, b)
	if c.world != nil {
		c.world.Add(b)
	}
}

// Remove takes b out of the composite and out of the world if attached.
func (c *Composite) Remove(b *Body) bool {
	for i, have := range c.bodies {
		if have == b {
			c.bodies = append(c.bodies[:i], c.bodies[i+1:]...)
			if c.world != nil {
				c.world.Remove(b)
			}
			return true
		}
	}
	return false
}

// Find returns the first body carrying label.
func (c *Composite) Find(label Label) *Body {
	for _, b := range c.bodies {
		if b.label == label {
			return b
		}
	}
	return nil
}

// Bodies returns a copy of the member list.
func (c *Composite) Bodies() []*Body {
	return append([]*Body(nil), c.bodies...)
}

// Attached reports whether the composite currently lives in a world.
func (c *Composite) Attached() bool { return c.world != nil }

// AttachTo adds every member to w.
func (c *Composite) AttachTo(w World) {
	if c.world != nil {
		return
	}
	c.world = w
	w.Add(c.bodies...)
}

// Detach removes every member from its world.
func (c *Composite) Detach() {
	if c.world == nil {
		return
	}
	c.world.Remove(c.bodies...)
	c.world = nil
}
