package main

import (
	"encoding/json"
	"math"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"arena-server/internal/game"
	"arena-server/internal/logger"
	"arena-server/internal/physics"
)

const (
	writeWait         = 10 * time.Second
	pongWait          = 60 * time.Second
	pingPeriod        = (pongWait * 9) / 10
	maxMessageSize    = 4096
	sendBufSize       = 256
	maxMessagesPerSec = 50
)

// Client represents a WebSocket connection
type Client struct {
	hub        *Hub
	conn       *websocket.Conn
	send       chan []byte
	id         string
	remoteAddr string
	msgCount   int
	msgResetAt time.Time
	log        *logrus.Entry

	// playerID is 0 for guests
	playerID int64
	username string
}

// NewClient creates a Client known as username until it authenticates
func NewClient(hub *Hub, conn *websocket.Conn, remoteAddr, username string, playerID int64) *Client {
	id := uuid.NewString()
	return &Client{
		hub:        hub,
		conn:       conn,
		send:       make(chan []byte, sendBufSize),
		id:         id,
		remoteAddr: remoteAddr,
		log:        logger.Log.WithField("client", id),
		playerID:   playerID,
		username:   username,
	}
}

// ReadPump reads messages from the WebSocket connection
func (c *Client) ReadPump() {
	defer func() {
		c.hub.TrackDisconnect(c.remoteAddr)
		c.hub.unregister <- c
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.log.WithError(err).Warn("ws read")
			}
			break
		}

		now := time.Now()
		if now.After(c.msgResetAt) {
			c.msgCount = 0
			c.msgResetAt = now.Add(time.Second)
		}
		c.msgCount++
		if c.msgCount > maxMessagesPerSec {
			c.log.WithField("ip", c.remoteAddr).Warn("rate limit exceeded, disconnecting")
			break
		}

		c.handleMessage(message)
	}
}

// WritePump writes messages to the WebSocket connection
func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			// 0xFF prefix marks a binary frame, see SendBinary
			var err error
			if len(message) > 0 && message[0] == 0xFF {
				err = c.conn.WriteMessage(websocket.BinaryMessage, message[1:])
			} else {
				err = c.conn.WriteMessage(websocket.TextMessage, message)
			}
			if err != nil {
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// SendJSON sends a JSON message to the client
func (c *Client) SendJSON(msg interface{}) {
	data, err := json.Marshal(msg)
	if err != nil {
		c.log.WithError(err).Error("marshal")
		return
	}
	c.SendRaw(data)
}

// SendRaw sends pre-marshaled bytes as a text message to the client
func (c *Client) SendRaw(data []byte) {
	defer func() { recover() }()
	select {
	case c.send <- data:
	default:
		// Client too slow, drop message
	}
}

// SendBinary sends pre-marshaled bytes as a binary WebSocket message.
// Prefixes with 0xFF marker byte so WritePump can distinguish from text.
func (c *Client) SendBinary(data []byte) {
	defer func() { recover() }()
	msg := make([]byte, len(data)+1)
	msg[0] = 0xFF
	copy(msg[1:], data)
	select {
	case c.send <- msg:
	default:
	}
}

func (c *Client) sendError(err error) {
	c.SendJSON(Envelope{T: MsgError, Data: ErrorMsg{Msg: err.Error()}})
}

func (c *Client) ack(intent, result string, err error) {
	msg := AckMsg{For: intent, Result: result}
	if err != nil {
		msg.Result = AckError
		msg.Reason = err.Error()
		c.log.WithError(err).WithField("intent", intent).Debug("intent rejected")
	}
	c.SendJSON(Envelope{T: MsgAck, Data: msg})
}

// handleMessage routes incoming messages (single-pass decode via InEnvelope)
func (c *Client) handleMessage(raw []byte) {
	var env InEnvelope
	if err := json.Unmarshal(raw, &env); err != nil {
		c.log.WithError(err).Debug("unmarshal")
		return
	}

	switch env.T {
	case MsgRegister:
		c.handleRegister(env.D)
	case MsgLogin:
		c.handleLogin(env.D)
	case MsgAuth:
		c.handleAuth(env.D)
	case MsgList:
		c.SendJSON(Envelope{T: MsgGames, Data: c.hub.rooms.List()})
	case MsgCreateGame:
		c.handleCreateGame(env.D)
	case MsgJoinGame:
		c.handleJoinGame(env.D)
	case MsgLeaveGame:
		c.ack(MsgLeaveGame, AckLeft, c.hub.rooms.Leave(c))
	case MsgStart:
		c.ack(MsgStart, AckStarted, c.hub.rooms.Start(c))
	case MsgMove:
		c.handleMove(env.D)
	case MsgAttack:
		if s := c.hub.rooms.Session(c); s != nil {
			s.Attack(c.id)
		}
	case MsgBuy:
		c.handleBuy(env.D)
	case MsgRespond:
		c.handleRespond(env.D)
	case MsgChat:
		var msg ChatMsg
		if err := json.Unmarshal(env.D, &msg); err != nil {
			return
		}
		if err := c.hub.rooms.Chat(c, msg.Text); err != nil {
			c.sendError(err)
		}
	}
}

func (c *Client) handleCreateGame(data json.RawMessage) {
	var msg CreateGameMsg
	if err := json.Unmarshal(data, &msg); err != nil {
		return
	}
	c.ack(MsgCreateGame, AckCreated, c.hub.rooms.Create(c, msg))
}

func (c *Client) handleJoinGame(data json.RawMessage) {
	var msg JoinGameMsg
	if err := json.Unmarshal(data, &msg); err != nil {
		return
	}
	result, err := c.hub.rooms.Join(c, msg)
	c.ack(MsgJoinGame, result, err)
}

func (c *Client) handleMove(data json.RawMessage) {
	var msg MoveMsg
	if err := json.Unmarshal(data, &msg); err != nil {
		return
	}
	s := c.hub.rooms.Session(c)
	if s == nil {
		return
	}
	s.Move(c.id, physics.Vector{X: axis(msg.X), Y: axis(msg.Y)})
}

// axis snaps a direction component to -1, 0 or 1
func axis(v float64) float64 {
	if math.IsNaN(v) || v == 0 {
		return 0
	}
	return math.Copysign(1, v)
}

func (c *Client) handleBuy(data json.RawMessage) {
	var msg BuyMsg
	if err := json.Unmarshal(data, &msg); err != nil {
		return
	}
	s := c.hub.rooms.Session(c)
	if s == nil {
		c.SendJSON(Envelope{T: MsgReceipt, Data: game.ShopReceipt{Result: game.ResultError, Reason: game.ReasonNotPlaying}})
		return
	}
	c.SendJSON(Envelope{T: MsgReceipt, Data: s.Purchase(c.id, msg.Item)})
}

func (c *Client) handleRespond(data json.RawMessage) {
	var msg RespondMsg
	if err := json.Unmarshal(data, &msg); err != nil {
		return
	}
	s := c.hub.rooms.Session(c)
	if s == nil {
		c.sendError(ErrNotInRoom)
		return
	}
	var err error
	switch msg.Prompt {
	case PromptMission:
		err = s.RespondMission(c.id, msg.Answer)
	case PromptGameOver:
		var leave bool
		leave, err = s.RespondGameOver(c.id, msg.Answer)
		if err == nil && leave {
			err = c.hub.rooms.Leave(c)
		}
	default:
		err = game.ErrNoPrompt
	}
	if err != nil {
		c.log.WithError(err).WithField("prompt", msg.Prompt).Debug("respond")
		c.sendError(err)
	}
}

// Account changes are refused while seated so room and game names stay fixed
func (c *Client) lobbyOnly() bool {
	if c.hub.rooms.InRoom(c) {
		c.sendError(ErrInRoom)
		return false
	}
	return true
}

func (c *Client) authenticated(id int64, username, token string) {
	c.playerID = id
	c.username = username
	c.SendJSON(Envelope{T: MsgAuthOK, Data: AuthOKMsg{
		Token:    token,
		Username: username,
		PlayerID: id,
	}})
}

func (c *Client) handleRegister(data json.RawMessage) {
	var msg RegisterMsg
	if err := json.Unmarshal(data, &msg); err != nil || !c.lobbyOnly() {
		return
	}
	id, token, err := c.hub.auth.Register(msg.Username, "", msg.Password)
	if err != nil {
		c.sendError(err)
		return
	}
	c.authenticated(id, strings.TrimSpace(msg.Username), token)
}

func (c *Client) handleLogin(data json.RawMessage) {
	var msg LoginMsg
	if err := json.Unmarshal(data, &msg); err != nil || !c.lobbyOnly() {
		return
	}
	id, token, err := c.hub.auth.Login(msg.Username, msg.Password, c.remoteAddr)
	if err != nil {
		c.sendError(err)
		return
	}
	c.authenticated(id, msg.Username, token)
}

func (c *Client) handleAuth(data json.RawMessage) {
	var msg AuthMsg
	if err := json.Unmarshal(data, &msg); err != nil || !c.lobbyOnly() {
		return
	}
	id, username, err := c.hub.auth.ValidateToken(msg.Token)
	if err != nil {
		c.sendError(ErrInvalidToken)
		return
	}
	c.authenticated(id, username, msg.Token)
}
