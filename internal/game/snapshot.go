package game

import (
	"github.com/vmihailenco/msgpack/v5"

	"arena-server/internal/physics"
)

type PlayerInfo struct {
	Position      physics.Vector  `msgpack:"position"`
	Health        int             `msgpack:"health"`
	MaxHealth     int             `msgpack:"maxHealth"`
	Speed         float64         `msgpack:"speed"`
	Attack        int             `msgpack:"attack"`
	Facing        Facing          `msgpack:"facing"`
	Invincible    bool            `msgpack:"invincible"`
	Gold          int             `msgpack:"gold"`
	Upgrades      Upgrades        `msgpack:"upgrades"`
	Stuck         bool            `msgpack:"stuck"`
	EndAttackTime int64           `msgpack:"endAttackTime"` // unix ms, 0 when idle
	Sword         *physics.Vector `msgpack:"sword,omitempty"`
}

type EnemyInfo struct {
	Position physics.Vector `msgpack:"position"`
	Health   int            `msgpack:"health"`
}

type BossInfo struct {
	ID        physics.BodyID `msgpack:"id"`
	Position  physics.Vector `msgpack:"position"`
	Health    int            `msgpack:"health"`
	MaxHealth int            `msgpack:"maxHealth"`
	Stage     int            `msgpack:"stage"`
}

// Snapshot is the per-tick world state sent as a binary frame
type Snapshot struct {
	Tick         uint64                            `msgpack:"tick"`
	Level        int                               `msgpack:"level"`
	LevelRunning bool                              `msgpack:"levelRunning"`
	Players      map[string]PlayerInfo             `msgpack:"players"`
	Enemies      map[physics.BodyID]EnemyInfo      `msgpack:"enemies"`
	Boss         *BossInfo                         `msgpack:"boss,omitempty"`
	Coins        map[physics.BodyID]physics.Vector `msgpack:"coins"`
	Goo          map[physics.BodyID]physics.Vector `msgpack:"goo"`
	Shop         *physics.Vector                   `msgpack:"shop,omitempty"`
	Mission      *physics.Vector                   `msgpack:"mission,omitempty"`
}

// snapshot captures the world. Callers hold s.mu.
func (s *Session) snapshot() Snapshot {
	snap := Snapshot{
		Tick:         s.tick,
		Level:        s.level,
		LevelRunning: s.levelRunning,
		Players:      make(map[string]PlayerInfo, len(s.participants)),
		Enemies:      make(map[physics.BodyID]EnemyInfo, len(s.enemies)),
		Coins:        make(map[physics.BodyID]physics.Vector),
		Goo:          make(map[physics.BodyID]physics.Vector),
	}
	for _, m := range s.participants {
		p := m.player
		if p == nil {
			continue
		}
		info := PlayerInfo{
			Position:   p.body.Position(),
			Health:     p.Health,
			MaxHealth:  p.MaxHealth,
			Speed:      p.Speed,
			Attack:     p.Attack,
			Facing:     p.Facing,
			Invincible: p.Invincible,
			Gold:       p.Gold,
			Upgrades:   p.Upgrades,
			Stuck:      p.Stuck(),
		}
		if !p.EndAttackTime.IsZero() {
			info.EndAttackTime = p.EndAttackTime.UnixMilli()
		}
		if sw := p.sword(); sw != nil {
			at := sw.Position()
			info.Sword = &at
		}
		snap.Players[m.Name] = info
	}
	for _, e := range s.enemies {
		snap.Enemies[e.body.ID()] = EnemyInfo{Position: e.body.Position(), Health: e.Health}
	}
	if b := s.boss; b != nil {
		snap.Boss = &BossInfo{
			ID:        b.body.ID(),
			Position:  b.body.Position(),
			Health:    b.Health,
			MaxHealth: b.MaxHealth,
			Stage:     b.Stage,
		}
	}
	for _, c := range s.world.Bodies(isKind(KindCoin)) {
		snap.Coins[c.ID()] = c.Position()
	}
	for _, g := range s.world.Bodies(isKind(KindGoo)) {
		snap.Goo[g.ID()] = g.Position()
	}
	if s.world.Contains(s.shop) {
		at := s.shop.Position()
		snap.Shop = &at
	}
	if s.world.Contains(s.mission) {
		at := s.mission.Position()
		snap.Mission = &at
	}
	return snap
}

// broadcastSnapshot sends the world state to every participant
func (s *Session) broadcastSnapshot() {
	data, err := msgpack.Marshal(s.snapshot())
	if err != nil {
		s.log.WithError(err).Error("encode snapshot")
		return
	}
	for _, m := range s.participants {
		m.Conn.SendBinary(data)
	}
}
