package game

// Envelope is the JSON wrapper of every text frame
type Envelope struct {
	T    string      `json:"t"`
	Data interface{} `json:"d,omitempty"`
}

// Outbound message types
const (
	MsgStartGame     = "startGame"
	MsgStartLevel    = "startLevel"
	MsgEndLevel      = "endLevel"
	MsgEndGame       = "endGame"
	MsgEnemyHurt     = "enemyHurt"
	MsgEnemyKilled   = "enemyKilled"
	MsgBossHurt      = "bossHurt"
	MsgBossEnraged   = "bossEnraged"
	MsgBossKilled    = "bossKilled"
	MsgCoinCollected = "coinCollected"
	MsgGooDestroyed  = "gooDestroyed"
	MsgShop          = "shop"
	MsgMission       = "mission"
	MsgGameOver      = "gameOver"
	MsgUsers         = "users"
)

// Answers to the mission and game-over prompts
const (
	AnswerStart = "start"
	AnswerLeave = "leave"
)

type StartGameMsg struct {
	Room    string   `json:"room"`
	Players []string `json:"players"`
}

type LevelMsg struct {
	Level int  `json:"level"`
	Quota int  `json:"quota,omitempty"`
	Final bool `json:"final,omitempty"`
}

type EndGameMsg struct {
	Victory bool `json:"victory"`
	Level   int  `json:"level"`
}

type HurtMsg struct {
	ID     uint64 `json:"id"`
	Health int    `json:"health"`
}

type IDMsg struct {
	ID uint64 `json:"id"`
}

type StageMsg struct {
	Stage int     `json:"stage"`
	Speed float64 `json:"speed"`
}

type CoinMsg struct {
	ID     uint64 `json:"id"`
	Player string `json:"player"`
	Gold   int    `json:"gold"`
}

type ShopMsg struct {
	Items Prices `json:"items"`
	Coins int    `json:"coins"`
}

type MissionMsg struct {
	Level int `json:"level"`
	Quota int `json:"quota"`
}
