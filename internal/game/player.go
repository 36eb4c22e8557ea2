package game

import (
	"math"
	"time"

	"arena-server/internal/physics"
)

// Facing is the direction a player last moved in
type Facing string

const (
	FacingUp    Facing = "up"
	FacingDown  Facing = "down"
	FacingLeft  Facing = "left"
	FacingRight Facing = "right"
)

// angle returns the sword rotation for a facing
func (f Facing) angle() float64 {
	switch f {
	case FacingDown:
		return math.Pi
	case FacingLeft:
		return 3 * math.Pi / 2
	case FacingRight:
		return math.Pi / 2
	default:
		return 0
	}
}

func (f Facing) unit() physics.Vector {
	switch f {
	case FacingDown:
		return physics.Vector{Y: 1}
	case FacingLeft:
		return physics.Vector{X: -1}
	case FacingRight:
		return physics.Vector{X: 1}
	default:
		return physics.Vector{Y: -1}
	}
}

// facingFor picks the facing of a movement direction. Vertical wins over
// horizontal; the zero vector keeps the current facing.
func facingFor(dir physics.Vector, current Facing) Facing {
	switch {
	case dir.Y < 0:
		return FacingUp
	case dir.Y > 0:
		return FacingDown
	case dir.X < 0:
		return FacingLeft
	case dir.X > 0:
		return FacingRight
	}
	return current
}

// Upgrades counts shop purchases per stat
type Upgrades struct {
	MaxHealth int `json:"maxHealth" msgpack:"maxHealth"`
	Attack    int `json:"attack" msgpack:"attack"`
	Speed     int `json:"speed" msgpack:"speed"`
}

// Player is the avatar of one participant while spawned
type Player struct {
	Name string

	body      *physics.Body
	composite *physics.Composite

	MaxHealth int
	Health    int
	Speed     float64
	Attack    int

	Facing     Facing
	Invincible bool
	Gold       int
	Upgrades   Upgrades

	// EndAttackTime is when the current swing ends; zero when idle.
	EndAttackTime time.Time
	swinging      bool
	cooling       bool

	stuck  *task
	timers tasks
}

func newPlayer(name string, body *physics.Body, t Tuning) *Player {
	p := &Player{
		Name:      name,
		body:      body,
		composite: physics.NewComposite(body),
		Facing:    FacingDown,
	}
	p.applyStats(t)
	p.Health = p.MaxHealth
	return p
}

// applyStats derives the stats from base values and upgrade counts
func (p *Player) applyStats(t Tuning) {
	p.MaxHealth = t.PlayerBase.MaxHealth + p.Upgrades.MaxHealth*t.PlayerBonus.MaxHealth
	p.Speed = t.PlayerBase.Speed + float64(p.Upgrades.Speed)*t.PlayerBonus.Speed
	p.Attack = t.PlayerBase.Attack + p.Upgrades.Attack*t.PlayerBonus.Attack
	if p.Health > p.MaxHealth {
		p.Health = p.MaxHealth
	}
}

// Stuck reports whether the player is held by goo
func (p *Player) Stuck() bool { return p.stuck != nil && !p.stuck.done }

func (p *Player) sword() *physics.Body {
	return p.composite.Find(KindSword.label())
}

// damage lowers health, never below zero
func (p *Player) damage(n int) {
	p.Health -= n
	if p.Health < 0 {
		p.Health = 0
	}
}

func (p *Player) heal() { p.Health = p.MaxHealth }

// swordPlacement returns where the hitbox sits for the current facing
func (p *Player) swordPlacement(t Tuning) (physics.Vector, float64) {
	var half float64
	if p.Facing == FacingLeft || p.Facing == FacingRight {
		half = t.PlayerSize.W / 2
	} else {
		half = t.PlayerSize.H / 2
	}
	offset := half + 2*t.Sword.Length/3
	return p.body.Position().Add(p.Facing.unit().Mult(offset)), p.Facing.angle()
}

// release cancels every pending player callback
func (p *Player) release() {
	p.timers.cancelAll()
	p.stuck = nil
}
