package game

import (
	"fmt"
	"math"
	"os"

	"gopkg.in/yaml.v3"

	"arena-server/internal/physics"
)

// Area is an axis-aligned rectangle.
type Area struct {
	MinX float64 `yaml:"min_x"`
	MaxX float64 `yaml:"max_x"`
	MinY float64 `yaml:"min_y"`
	MaxY float64 `yaml:"max_y"`
}

// Size is a width/height pair.
type Size struct {
	W float64 `yaml:"w"`
	H float64 `yaml:"h"`
}

// Stats holds the three upgradeable player stats.
type Stats struct {
	MaxHealth int     `yaml:"max_health"`
	Speed     float64 `yaml:"speed"`
	Attack    int     `yaml:"attack"`
}

// Cost is a linear upgrade price.
type Cost struct {
	Base     int `yaml:"base"`
	Increase int `yaml:"increase"`
}

// Costs holds the price curve of each upgrade.
type Costs struct {
	MaxHealth Cost `yaml:"max_health"`
	Attack    Cost `yaml:"attack"`
	Speed     Cost `yaml:"speed"`
}

// Curve is a per-level value: Base + PerLevel*level, clamped to
// [Floor, Ceil] when those are non-zero, and Final on the boss level.
type Curve struct {
	Base     float64 `yaml:"base"`
	PerLevel float64 `yaml:"per_level"`
	Floor    float64 `yaml:"floor"`
	Ceil     float64 `yaml:"ceil"`
	Final    float64 `yaml:"final"`
}

func (c Curve) at(level, total int) float64 {
	if level >= total {
		return c.Final
	}
	v := c.Base + c.PerLevel*float64(level)
	if c.Floor != 0 && v < c.Floor {
		v = c.Floor
	}
	if c.Ceil != 0 && v > c.Ceil {
		v = c.Ceil
	}
	return v
}

// Levels holds the difficulty curves.
type Levels struct {
	Total         int   `yaml:"total"`
	Enemies       Curve `yaml:"enemies"`
	MaxEnemies    Curve `yaml:"max_enemies"`
	EnemyHealth   Curve `yaml:"enemy_health"`
	EnemySpeed    Curve `yaml:"enemy_speed"`
	SpawnInterval Curve `yaml:"spawn_interval_ms"`
}

type BossTuning struct {
	Radius      float64        `yaml:"radius"`
	Health      int            `yaml:"health"`
	Speed       float64        `yaml:"speed"`
	EnrageBonus float64        `yaml:"enrage_bonus"`
	Spawn       physics.Vector `yaml:"spawn"`
}

type GooTuning struct {
	IntervalMs float64 `yaml:"interval_ms"`
	Speed      float64 `yaml:"speed"`
	Radius     float64 `yaml:"radius"`
	LifetimeMs float64 `yaml:"lifetime_ms"`
	StuckMs    float64 `yaml:"stuck_ms"`
	Damage     int     `yaml:"damage"`
	Volley     int     `yaml:"volley"`
}

type SwordTuning struct {
	DelayMs    float64 `yaml:"delay_ms"`
	TimeMs     float64 `yaml:"time_ms"`
	CooldownMs float64 `yaml:"cooldown_ms"`
	Range      float64 `yaml:"range"`
	Length     float64 `yaml:"length"`
}

// Tuning is every balance number of a session. Speeds are pixels per
// second, times are milliseconds.
type Tuning struct {
	TickMs float64 `yaml:"tick_ms"`

	Border        Area    `yaml:"border"`
	PlayerSpawn   Area    `yaml:"player_spawn"`
	EnemySpawnGap float64 `yaml:"enemy_spawn_gap"`

	PlayerSize   Size        `yaml:"player_size"`
	PlayerBase   Stats       `yaml:"player_base"`
	PlayerBonus  Stats       `yaml:"player_bonus"`
	Prices       Costs       `yaml:"prices"`
	InvincibleMs float64     `yaml:"invincible_ms"`
	Sword        SwordTuning `yaml:"sword"`

	EnemySize Size       `yaml:"enemy_size"`
	Levels    Levels     `yaml:"levels"`
	Boss      BossTuning `yaml:"boss"`
	Goo       GooTuning  `yaml:"goo"`

	GoldPerCoin int  `yaml:"gold_per_coin"`
	CoinSize    Size `yaml:"coin_size"`

	ShopPosition    physics.Vector `yaml:"shop_position"`
	MissionPosition physics.Vector `yaml:"mission_position"`
	CivilianSize    Size           `yaml:"civilian_size"`
	ShopClamp       float64        `yaml:"shop_clamp"`
}

// DefaultTuning returns the shipped balance.
func DefaultTuning() Tuning {
	return Tuning{
		TickMs: 1000.0 / 60,

		Border:        Area{MinX: 0, MaxX: 800, MinY: 0, MaxY: 600},
		PlayerSpawn:   Area{MinX: 390, MaxX: 410, MinY: 290, MaxY: 310},
		EnemySpawnGap: 200,

		PlayerSize:   Size{W: 80, H: 80},
		PlayerBase:   Stats{MaxHealth: 3, Speed: 90, Attack: 1},
		PlayerBonus:  Stats{MaxHealth: 1, Speed: 15, Attack: 1},
		Prices:       Costs{MaxHealth: Cost{5, 5}, Attack: Cost{5, 5}, Speed: Cost{5, 3}},
		InvincibleMs: 3000,
		Sword:        SwordTuning{DelayMs: 100, TimeMs: 300, CooldownMs: 400, Range: 60, Length: 50},

		EnemySize: Size{W: 50, H: 50},
		Levels: Levels{
			Total:         3,
			Enemies:       Curve{Base: 10, PerLevel: 5, Final: 5},
			MaxEnemies:    Curve{Base: 4, PerLevel: 2, Final: 3},
			EnemyHealth:   Curve{Base: 1, PerLevel: 1, Final: 1},
			EnemySpeed:    Curve{Base: 60, PerLevel: 12, Final: 60},
			SpawnInterval: Curve{Base: 2000, PerLevel: -250, Floor: 750, Final: 2500},
		},
		Boss: BossTuning{Radius: 60, Health: 30, Speed: 48, EnrageBonus: 30, Spawn: physics.Vector{X: 400, Y: 80}},
		Goo:  GooTuning{IntervalMs: 1500, Speed: 180, Radius: 6, LifetimeMs: 5000, StuckMs: 2000, Damage: 2, Volley: 8},

		GoldPerCoin: 1,
		CoinSize:    Size{W: 20, H: 20},

		ShopPosition:    physics.Vector{X: 250, Y: 150},
		MissionPosition: physics.Vector{X: 550, Y: 150},
		CivilianSize:    Size{W: 40, H: 40},
		ShopClamp:       64,
	}
}

// LoadTuning overlays the YAML file at path on DefaultTuning. An empty
// path returns the defaults.
func LoadTuning(path string) (Tuning, error) {
	t := DefaultTuning()
	if path == "" {
		return t, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return t, fmt.Errorf("read tuning: %w", err)
	}
	if err := yaml.Unmarshal(data, &t); err != nil {
		return t, fmt.Errorf("parse tuning %s: %w", path, err)
	}
	if err := t.Validate(); err != nil {
		return t, err
	}
	return t, nil
}

// Validate rejects tunings the engine cannot run.
func (t Tuning) Validate() error {
	switch {
	case t.TickMs <= 0:
		return fmt.Errorf("tuning: tick_ms must be positive")
	case t.Levels.Total < 0:
		return fmt.Errorf("tuning: levels.total must not be negative")
	case t.Border.MaxX <= t.Border.MinX || t.Border.MaxY <= t.Border.MinY:
		return fmt.Errorf("tuning: empty border")
	case t.PlayerBase.MaxHealth <= 0:
		return fmt.Errorf("tuning: player_base.max_health must be positive")
	case t.Boss.Health <= 0:
		return fmt.Errorf("tuning: boss.health must be positive")
	}
	return nil
}

// IsFinal reports whether level is the boss level.
func (t Tuning) IsFinal(level int) bool { return level >= t.Levels.Total }

// Enemies is the spawn quota of a level.
func (t Tuning) Enemies(level int) int {
	return int(math.Round(t.Levels.Enemies.at(level, t.Levels.Total)))
}

// MaxEnemies is the live population cap of a level.
func (t Tuning) MaxEnemies(level int) int {
	return int(math.Round(t.Levels.MaxEnemies.at(level, t.Levels.Total)))
}

func (t Tuning) EnemyHealth(level int) int {
	return int(math.Round(t.Levels.EnemyHealth.at(level, t.Levels.Total)))
}

func (t Tuning) EnemySpeed(level int) float64 {
	return t.Levels.EnemySpeed.at(level, t.Levels.Total)
}

// SpawnInterval is the delay between two enemy spawns, in milliseconds.
func (t Tuning) SpawnInterval(level int) float64 {
	return t.Levels.SpawnInterval.at(level, t.Levels.Total)
}
