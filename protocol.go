package main

import (
	"encoding/json"

	"arena-server/internal/game"
)

// Client -> Server message types
const (
	MsgRegister   = "register"
	MsgLogin      = "login"
	MsgAuth       = "auth"
	MsgList       = "list"
	MsgCreateGame = "createGame"
	MsgJoinGame   = "joinGame"
	MsgLeaveGame  = "leaveGame"
	MsgStart      = "startGame"
	MsgMove       = "move"
	MsgAttack     = "attack"
	MsgBuy        = "shop"
	MsgRespond    = "respond"
	MsgChat       = "chat"
)

// Server -> Client message types
const (
	MsgAuthOK   = "auth_ok"
	MsgGames    = "games"
	MsgAck      = "ack"
	MsgPromoted = "promoted"
	MsgNewAdmin = "newAdmin"
	MsgReceipt  = "receipt"
	MsgError    = "error"
)

// Ack results
const (
	AckCreated = "created"
	AckJoined  = "joined"
	AckStarted = "started"
	AckLeft    = "left"
	AckError   = "error"
)

// Prompts a respond message can answer
const (
	PromptMission  = "mission"
	PromptGameOver = "gameOver"
)

// Envelope wraps all outgoing messages with a type field
type Envelope = game.Envelope

// InEnvelope is used for incoming messages; json.RawMessage avoids double-unmarshal
type InEnvelope struct {
	T string          `json:"t"`
	D json.RawMessage `json:"d,omitempty"`
}

type RegisterMsg struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type LoginMsg struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type AuthMsg struct {
	Token string `json:"token"`
}

type AuthOKMsg struct {
	Token    string `json:"token"`
	Username string `json:"username"`
	PlayerID int64  `json:"pid"`
}

// CreateGameMsg opens a new room
type CreateGameMsg struct {
	Name               string `json:"name"`
	Password           string `json:"password"`
	CanEnterDuringGame bool   `json:"canEnterDuringGame"`
}

// JoinGameMsg enters an existing room
type JoinGameMsg struct {
	Name     string `json:"name"`
	Password string `json:"password"`
}

// AckMsg answers a room intent
type AckMsg struct {
	For    string `json:"for"`
	Result string `json:"result"`
	Reason string `json:"reason,omitempty"`
}

// MoveMsg carries the movement direction; each axis is -1, 0 or 1
type MoveMsg struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// BuyMsg names an upgrade or "cancel"
type BuyMsg struct {
	Item string `json:"item"`
}

// RespondMsg answers a mission or game-over prompt
type RespondMsg struct {
	Prompt string `json:"prompt"`
	Answer string `json:"answer"`
}

type ChatMsg struct {
	From string `json:"from,omitempty"`
	Text string `json:"text"`
}

type ErrorMsg struct {
	Msg string `json:"msg"`
}

// GameInfo describes a room in the lobby list
type GameInfo struct {
	Name               string `json:"name"`
	Status             string `json:"status"`
	Players            int    `json:"players"`
	Locked             bool   `json:"locked"`
	CanEnterDuringGame bool   `json:"canEnterDuringGame"`
}
