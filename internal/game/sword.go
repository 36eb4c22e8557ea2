package game

import "time"

// Attack swings the player's sword. A swing is a wind-up, then the hitbox
// is live for the swing time, then a cooldown.
func (s *Session) Attack(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	m := s.member(id)
	if m == nil || m.player == nil || s.closed {
		return
	}
	p := m.player
	if p.Stuck() || p.swinging || p.cooling {
		return
	}
	sw := s.tuning.Sword
	p.swinging = true
	p.EndAttackTime = time.Now().Add(ms(sw.DelayMs + sw.TimeMs))

	s.after(&p.timers, sw.DelayMs, "sword", func() {
		if !p.composite.Attached() || p.Stuck() {
			s.endSwing(p)
			return
		}
		at, angle := p.swordPlacement(s.tuning)
		blade := s.newSwordBody(at)
		p.composite.Add(blade)
		s.world.SetAngle(blade, angle)

		s.after(&p.timers, sw.TimeMs, "sword", func() {
			p.composite.Remove(blade)
			s.endSwing(p)
		})
	})
}

func (s *Session) endSwing(p *Player) {
	p.swinging = false
	p.EndAttackTime = time.Time{}
	p.cooling = true
	s.after(&p.timers, s.tuning.Sword.CooldownMs, "sword cooldown", func() { p.cooling = false })
}

// sheathe drops an active hitbox; the pending swing callbacks then finish
// the cycle.
func (s *Session) sheathe(p *Player) {
	if blade := p.sword(); blade != nil {
		p.composite.Remove(blade)
	}
}

// updatePlayers keeps hitboxes in front of their owners and handles deaths
func (s *Session) updatePlayers() {
	for _, m := range s.participants {
		p := m.player
		if p == nil {
			continue
		}
		if blade := p.sword(); blade != nil {
			at, angle := p.swordPlacement(s.tuning)
			s.world.SetPosition(blade, at)
			s.world.SetAngle(blade, angle)
		}
		if p.Health > 0 {
			continue
		}
		p.release()
		p.composite.Detach()
		m.player = nil
		m.fallen = p
		m.gameOverPending = true
		s.events.Track(EvtPlayerDeath, s.room, m.Name, "")
		s.send(m, MsgGameOver, LevelMsg{Level: s.level})
		s.log.WithField("player", m.Name).Info("player died")
	}
}
