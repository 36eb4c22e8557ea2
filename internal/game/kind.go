package game

import "arena-server/internal/physics"

// Kind tags every body in a session's world.
type Kind physics.Label

const (
	KindPlayer Kind = iota + 1
	KindEnemy
	KindBoss
	KindCoin
	KindGoo
	KindBoundary
	KindShop
	KindMission
	KindSword
)

var kindNames = map[Kind]string{
	KindPlayer:   "player",
	KindEnemy:    "enemy",
	KindBoss:     "boss",
	KindCoin:     "coin",
	KindGoo:      "goo",
	KindBoundary: "boundary",
	KindShop:     "shop",
	KindMission:  "mission",
	KindSword:    "sword",
}

func (k Kind) String() string {
	if n, ok := kindNames[k]; ok {
		return n
	}
	return "unknown"
}

func (k Kind) label() physics.Label { return physics.Label(k) }

func kindOf(b *physics.Body) Kind { return Kind(b.Label()) }

func isKind(k Kind) func(*physics.Body) bool {
	return func(b *physics.Body) bool { return kindOf(b) == k }
}

// Collision categories.
const (
	catPlayer   physics.Category = 0x1
	catEnemy    physics.Category = 0x2
	catBoundary physics.Category = 0x4
	catCivilian physics.Category = 0x8
	catSword    physics.Category = 0x10
	catGoo      physics.Category = 0x20
)

var (
	playerFilter   = physics.Filter{Category: catPlayer, Mask: catBoundary | catCivilian | catEnemy | catGoo | catSword}
	enemyFilter    = physics.Filter{Category: catEnemy, Mask: catPlayer | catEnemy | catBoundary | catSword}
	boundaryFilter = physics.Filter{Category: catBoundary, Mask: ^catBoundary}
	civilianFilter = physics.Filter{Category: catCivilian, Mask: catPlayer}
	swordFilter    = physics.Filter{Category: catSword, Mask: catEnemy | catPlayer}
	gooFilter      = physics.Filter{Category: catGoo, Mask: catPlayer}
)
