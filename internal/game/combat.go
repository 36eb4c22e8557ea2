package game

import "arena-server/internal/physics"

// contact is a collision pair ordered so that kinds[0] <= kinds[1]
type contact struct {
	kinds [2]Kind
	a, b  *physics.Body
}

func classify(p physics.Pair) contact {
	ka, kb := kindOf(p.A), kindOf(p.B)
	if ka > kb {
		return contact{kinds: [2]Kind{kb, ka}, a: p.B, b: p.A}
	}
	return contact{kinds: [2]Kind{ka, kb}, a: p.A, b: p.B}
}

// onCollisionStart applies the one-shot effect of every new contact.
// Pairs whose bodies left the world earlier in the same batch are skipped.
func (s *Session) onCollisionStart(pairs []physics.Pair) {
	for _, pair := range pairs {
		if !s.world.Contains(pair.A) || !s.world.Contains(pair.B) {
			continue
		}
		c := classify(pair)
		switch c.kinds {
		case [2]Kind{KindEnemy, KindSword}:
			s.swordHitsEnemy(c.a)
		case [2]Kind{KindBoss, KindSword}:
			s.swordHitsBoss()
		case [2]Kind{KindPlayer, KindEnemy}, [2]Kind{KindPlayer, KindBoss}:
			s.hostileTouch(c.a)
		case [2]Kind{KindPlayer, KindShop}:
			s.offerShop(c.a)
		case [2]Kind{KindPlayer, KindMission}:
			s.offerMission(c.a)
		case [2]Kind{KindPlayer, KindCoin}:
			s.collectCoin(c.a, c.b)
		case [2]Kind{KindPlayer, KindGoo}:
			s.gooHit(c.a, c.b)
		case [2]Kind{KindPlayer, KindSword}:
			s.freeStuck(c.a)
		}
	}
}

// onCollisionActive applies the continuous position clamps
func (s *Session) onCollisionActive(pairs []physics.Pair) {
	for _, pair := range pairs {
		if !s.world.Contains(pair.A) || !s.world.Contains(pair.B) {
			continue
		}
		c := classify(pair)
		switch {
		case c.kinds[1] == KindBoundary:
			s.clampToBorder(c.a)
		case c.kinds == [2]Kind{KindPlayer, KindShop}:
			s.clampToZone(c.a, c.b, s.tuning.ShopClamp)
		}
	}
}

// owner finds the participant whose composite holds body
func (s *Session) owner(body *physics.Body) *participant {
	for _, m := range s.participants {
		if m.player == nil {
			continue
		}
		if m.player.body == body || m.player.sword() == body {
			return m
		}
	}
	return nil
}

func (s *Session) swordHitsEnemy(body *physics.Body) {
	e := s.enemyByBody(body)
	if e == nil || e.Health <= 0 {
		return
	}
	e.Health--
	if e.Health < 0 {
		e.Health = 0
	}
	s.broadcast(MsgEnemyHurt, HurtMsg{ID: uint64(e.ID()), Health: e.Health})
}

func (s *Session) swordHitsBoss() {
	b := s.boss
	if b == nil || b.Health <= 0 {
		return
	}
	b.Health--
	if b.Health < 0 {
		b.Health = 0
	}
	s.broadcast(MsgBossHurt, HurtMsg{ID: uint64(b.body.ID()), Health: b.Health})
}

func (s *Session) hostileTouch(body *physics.Body) {
	m := s.owner(body)
	if m == nil {
		return
	}
	p := m.player
	if p.Invincible {
		return
	}
	p.damage(1)
	p.Invincible = true
	s.after(&p.timers, s.tuning.InvincibleMs, "invincibility", func() { p.Invincible = false })
}

func (s *Session) offerShop(body *physics.Body) {
	m := s.owner(body)
	if m == nil {
		return
	}
	s.send(m, MsgShop, ShopMsg{Items: s.tuning.pricesFor(m.player.Upgrades), Coins: m.player.Gold})
}

func (s *Session) offerMission(body *physics.Body) {
	m := s.owner(body)
	if m == nil || s.levelRunning || s.finished {
		return
	}
	m.missionPending = true
	s.send(m, MsgMission, MissionMsg{Level: s.level, Quota: s.tuning.Enemies(s.level)})
}

func (s *Session) collectCoin(body, coin *physics.Body) {
	m := s.owner(body)
	if m == nil {
		return
	}
	m.player.Gold += s.tuning.GoldPerCoin
	s.world.Remove(coin)
	s.broadcast(MsgCoinCollected, CoinMsg{ID: uint64(coin.ID()), Player: m.Name, Gold: m.player.Gold})
}

// gooHit roots a player in place; on release the goo deals its damage
func (s *Session) gooHit(body, goo *physics.Body) {
	m := s.owner(body)
	if m == nil {
		return
	}
	p := m.player
	s.sheathe(p)
	s.world.SetSleeping(p.body, true)
	p.stuck.Cancel()
	p.stuck = s.after(&p.timers, s.tuning.Goo.StuckMs, "goo", func() {
		s.world.SetSleeping(p.body, false)
		p.damage(s.tuning.Goo.Damage)
	})
	s.destroyGoo(goo)
}

// freeStuck wakes a stuck player hit by a sword
func (s *Session) freeStuck(body *physics.Body) {
	m := s.owner(body)
	if m == nil || !m.player.Stuck() {
		return
	}
	m.player.stuck.Cancel()
	m.player.stuck = nil
	s.world.SetSleeping(body, false)
}
