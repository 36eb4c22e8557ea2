package main

import (
	"errors"
	"strings"
	"sync"

	"arena-server/internal/game"
	"arena-server/internal/logger"
)

const (
	maxRoomNameLen = 30
	maxChatLen     = 200
)

// Room errors; the message is the reason sent back to the client
var (
	ErrRoomExists    = errors.New("game with this name already exists")
	ErrNoRoom        = errors.New("game does not exist")
	ErrGameEnded     = errors.New("this game has ended")
	ErrGameStarted   = errors.New("this game has already started")
	ErrWrongPassword = errors.New("wrong password")
	ErrNameTaken     = errors.New("this name is already playing in this game")
	ErrNotCreator    = errors.New("only the creator can start the game")
	ErrInRoom        = errors.New("already in a game")
	ErrNotInRoom     = errors.New("not in a game")
	ErrBadRoomName   = errors.New("game name must be 1-30 characters")
)

type seat struct {
	c    *Client
	name string
}

type room struct {
	name     string
	passHash string
	canEnter bool
	// seats in join order; seats[0] is the creator
	seats    []seat
}

func (rm *room) names() []string {
	out := make([]string, len(rm.seats))
	for i, st := range rm.seats {
		out[i] = st.name
	}
	return out
}

func (rm *room) index(c *Client) int {
	for i, st := range rm.seats {
		if st.c == c {
			return i
		}
	}
	return -1
}

func (rm *room) send(t string, data interface{}) {
	for _, st := range rm.seats {
		st.c.SendJSON(Envelope{T: t, Data: data})
	}
}

// Rooms tracks room membership and the lobby, and owns each room's
// directory record and game session.
type Rooms struct {
	mu    sync.Mutex
	rooms map[string]*room
	where map[*Client]*room
	lobby map[*Client]struct{}

	db     *DB
	games  *game.Registry
	events game.EventSink
}

// NewRooms creates an empty room set
func NewRooms(db *DB, games *game.Registry, events game.EventSink) *Rooms {
	return &Rooms{
		rooms:  make(map[string]*room),
		where:  make(map[*Client]*room),
		lobby:  make(map[*Client]struct{}),
		db:     db,
		games:  games,
		events: events,
	}
}

// Enter puts a fresh connection in the lobby and sends it the room list
func (r *Rooms) Enter(c *Client) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.where[c] != nil {
		return
	}
	r.lobby[c] = struct{}{}
	c.SendJSON(Envelope{T: MsgGames, Data: r.list()})
}

// Create opens a room with c as its creator and first member
func (r *Rooms) Create(c *Client, msg CreateGameMsg) error {
	name := strings.TrimSpace(msg.Name)
	if name == "" || len(name) > maxRoomNameLen {
		return ErrBadRoomName
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.where[c] != nil {
		return ErrInRoom
	}
	if _, ok := r.rooms[name]; ok {
		return ErrRoomExists
	}

	var hash string
	if msg.Password != "" {
		h, err := HashPassword(msg.Password)
		if err != nil {
			return err
		}
		hash = h
	}
	if err := r.db.CreateGame(name, hash, msg.CanEnterDuringGame); err != nil {
		if existing, _ := r.db.GetGame(name); existing != nil {
			return ErrRoomExists
		}
		return err
	}

	rm := &room{name: name, passHash: hash, canEnter: msg.CanEnterDuringGame}
	r.rooms[name] = rm
	r.seat(rm, c)
	r.events.Track(EvtRoomCreate, name, c.username, "")
	logger.Room(name).WithField("creator", c.username).Info("room created")

	rm.send(game.MsgUsers, rm.names())
	r.broadcastGames()
	return nil
}

// Join adds c to a room. The result is AckStarted when the game is already
// running and c was spawned into it, AckJoined otherwise.
func (r *Rooms) Join(c *Client, msg JoinGameMsg) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.where[c] != nil {
		return "", ErrInRoom
	}
	rm := r.rooms[strings.TrimSpace(msg.Name)]
	if rm == nil {
		return "", ErrNoRoom
	}
	s := r.games.Get(rm.name)
	if s != nil {
		if s.Finished() {
			return "", ErrGameEnded
		}
		if !rm.canEnter {
			return "", ErrGameStarted
		}
	}
	if rm.passHash != "" && !CheckPassword(rm.passHash, msg.Password) {
		return "", ErrWrongPassword
	}
	for _, st := range rm.seats {
		if st.name == c.username {
			return "", ErrNameTaken
		}
	}

	r.seat(rm, c)
	if s == nil {
		rm.send(game.MsgUsers, rm.names())
		r.broadcastGames()
		return AckJoined, nil
	}
	if err := s.Admit(game.Member{ID: c.id, Name: c.username, Conn: c}); err != nil {
		r.unseat(rm, c)
		return "", err
	}
	r.broadcastGames()
	return AckStarted, nil
}

// Start begins the game of c's room; only the creator may start it
func (r *Rooms) Start(c *Client) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	rm := r.where[c]
	if rm == nil {
		return ErrNotInRoom
	}
	if rm.seats[0].c != c {
		return ErrNotCreator
	}
	members := make([]game.Member, len(rm.seats))
	for i, st := range rm.seats {
		members[i] = game.Member{ID: st.c.id, Name: st.name, Conn: st.c}
	}
	if _, err := r.games.Start(rm.name, members); err != nil {
		if errors.Is(err, game.ErrAlreadyStarted) {
			return ErrGameStarted
		}
		return err
	}
	r.broadcastGames()
	return nil
}

// Leave takes c out of its room and back to the lobby. A departing creator
// hands the room to the next member; the last one out deletes it.
func (r *Rooms) Leave(c *Client) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.leave(c); err != nil {
		return err
	}
	r.lobby[c] = struct{}{}
	c.SendJSON(Envelope{T: MsgGames, Data: r.list()})
	return nil
}

// Disconnect forgets c entirely
func (r *Rooms) Disconnect(c *Client) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.leave(c)
	delete(r.lobby, c)
}

func (r *Rooms) leave(c *Client) error {
	rm := r.where[c]
	if rm == nil {
		return ErrNotInRoom
	}
	wasCreator := rm.seats[0].c == c
	r.unseat(rm, c)
	s := r.games.Get(rm.name)
	if s != nil {
		s.Leave(c.id)
	}
	log := logger.Room(rm.name).WithField("player", c.username)

	if len(rm.seats) == 0 {
		delete(r.rooms, rm.name)
		r.games.Delete(rm.name)
		if err := r.db.DeleteGame(rm.name); err != nil {
			log.WithError(err).Warn("delete room record")
		}
		r.events.Track(EvtRoomDelete, rm.name, "", "")
		log.Info("room deleted")
		r.broadcastGames()
		return nil
	}

	if wasCreator {
		next := rm.seats[0]
		next.c.SendJSON(Envelope{T: MsgPromoted})
		for _, st := range rm.seats[1:] {
			st.c.SendJSON(Envelope{T: MsgNewAdmin, Data: next.name})
		}
		log.WithField("creator", next.name).Info("creator promoted")
	}
	if s == nil {
		rm.send(game.MsgUsers, rm.names())
	}
	r.broadcastGames()
	return nil
}

func (r *Rooms) seat(rm *room, c *Client) {
	rm.seats = append(rm.seats, seat{c: c, name: c.username})
	r.where[c] = rm
	delete(r.lobby, c)
}

func (r *Rooms) unseat(rm *room, c *Client) {
	if i := rm.index(c); i >= 0 {
		rm.seats = append(rm.seats[:i], rm.seats[i+1:]...)
	}
	delete(r.where, c)
}

// Session returns the running game of c's room, nil if none
func (r *Rooms) Session(c *Client) *game.Session {
	r.mu.Lock()
	rm := r.where[c]
	r.mu.Unlock()
	if rm == nil {
		return nil
	}
	return r.games.Get(rm.name)
}

// InRoom reports whether c is seated in a room
func (r *Rooms) InRoom(c *Client) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.where[c] != nil
}

// Chat relays a line to everyone in c's room
func (r *Rooms) Chat(c *Client, text string) error {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}
	if len(text) > maxChatLen {
		text = text[:maxChatLen]
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	rm := r.where[c]
	if rm == nil {
		return ErrNotInRoom
	}
	rm.send(MsgChat, ChatMsg{From: c.username, Text: text})
	return nil
}

// List returns the lobby view of every room
func (r *Rooms) List() []GameInfo {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.list()
}

// Exists reports whether a room is open
func (r *Rooms) Exists(name string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.rooms[name]
	return ok
}

// Len returns the number of open rooms
func (r *Rooms) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.rooms)
}

func (r *Rooms) list() []GameInfo {
	rows, err := r.db.ListGames()
	if err != nil {
		logger.Log.WithError(err).Warn("list rooms")
	}
	out := make([]GameInfo, 0, len(rows))
	for _, row := range rows {
		rm := r.rooms[row.Name]
		if rm == nil {
			continue
		}
		status := game.StatusCreated
		if s := r.games.Get(rm.name); s != nil {
			status = game.StatusStarted
			if s.Finished() {
				status = game.StatusFinished
			}
		}
		out = append(out, GameInfo{
			Name:               rm.name,
			Status:             string(status),
			Players:            len(rm.seats),
			Locked:             rm.passHash != "",
			CanEnterDuringGame: rm.canEnter,
		})
	}
	return out
}

func (r *Rooms) broadcastGames() {
	list := r.list()
	for c := range r.lobby {
		c.SendJSON(Envelope{T: MsgGames, Data: list})
	}
}
