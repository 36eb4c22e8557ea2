package game

import (
	"errors"
	"math/rand"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"arena-server/internal/logger"
	"arena-server/internal/physics"
)

var (
	ErrAlreadyStarted = errors.New("game: room already started")
	ErrClosed         = errors.New("game: session closed")
	ErrUnknownMember  = errors.New("game: not a participant")
	ErrAlreadySpawned = errors.New("game: player already spawned")
	ErrNoPrompt       = errors.New("game: no pending prompt")
	ErrTooManyRooms   = errors.New("game: too many running sessions")
)

// Broadcaster delivers frames to one connection
type Broadcaster interface {
	SendJSON(msg interface{})
	SendBinary(data []byte)
}

// RoomStatus is the lifecycle of a room record
type RoomStatus string

const (
	StatusCreated  RoomStatus = "created"
	StatusStarted  RoomStatus = "started"
	StatusFinished RoomStatus = "finished"
)

// Directory persists room status changes
type Directory interface {
	SetStatus(room string, status RoomStatus) error
}

// EventSink records gameplay events
type EventSink interface {
	Track(evtType, room, player, data string)
}

// Gameplay event types
const (
	EvtGameStart   = "game_start"
	EvtLevelStart  = "level_start"
	EvtLevelEnd    = "level_end"
	EvtGameEnd     = "game_end"
	EvtBossKilled  = "boss_killed"
	EvtPurchase    = "purchase"
	EvtPlayerDeath = "player_death"
)

type nopDirectory struct{}

func (nopDirectory) SetStatus(string, RoomStatus) error { return nil }

type nopEvents struct{}

func (nopEvents) Track(string, string, string, string) {}

// Member is a connection taking part in a room
type Member struct {
	ID   string
	Name string
	Conn Broadcaster
}

type participant struct {
	Member
	player *Player
	// fallen keeps gold and upgrades across a death
	fallen *Player

	gameOverPending bool
	missionPending  bool
}

// Options configures a Session
type Options struct {
	Tuning    Tuning
	World     physics.World
	Directory Directory
	Events    EventSink
	Seed      int64
}

// Session runs one room's world
type Session struct {
	mu     sync.Mutex
	room   string
	tuning Tuning
	world  physics.World
	dir    Directory
	events EventSink
	rng    *rand.Rand
	log    *logrus.Entry

	participants []*participant

	enemies    []*Enemy
	boss       *Boss
	shop       *physics.Body
	mission    *physics.Body
	boundaries []*physics.Body
	gooExpiry  map[physics.BodyID]*task

	level          int
	levelRunning   bool
	finished       bool
	enemiesSpawned int
	spawnClock     float64
	gooClock       float64

	tick     uint64
	timers   tasks
	running  bool
	closed   bool
	stop     chan struct{}
	statuses chan RoomStatus
}

// NewSession builds a session with its boundaries and civilian zones in place
func NewSession(room string, opts Options) *Session {
	if opts.World == nil {
		opts.World = physics.NewChipmunkWorld()
	}
	if opts.Directory == nil {
		opts.Directory = nopDirectory{}
	}
	if opts.Events == nil {
		opts.Events = nopEvents{}
	}
	if opts.Tuning.TickMs == 0 {
		opts.Tuning = DefaultTuning()
	}
	seed := opts.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	s := &Session{
		room:      room,
		tuning:    opts.Tuning,
		world:     opts.World,
		dir:       opts.Directory,
		events:    opts.Events,
		rng:       rand.New(rand.NewSource(seed)),
		log:       logger.Room(room),
		gooExpiry: make(map[physics.BodyID]*task),
		stop:      make(chan struct{}),
		statuses:  make(chan RoomStatus, 4),
	}
	go s.writeStatuses()
	s.boundaries = s.newBoundaries()
	s.shop = s.newCivilianBody(KindShop, s.tuning.ShopPosition)
	s.mission = s.newCivilianBody(KindMission, s.tuning.MissionPosition)
	s.world.Add(s.boundaries...)
	s.world.Add(s.shop, s.mission)
	s.world.OnCollisionStart(s.onCollisionStart)
	s.world.OnCollisionActive(s.onCollisionActive)
	return s
}

// Room returns the room name
func (s *Session) Room() string { return s.room }

// Run drives the tick loop until Close
func (s *Session) Run() {
	s.mu.Lock()
	if s.running || s.closed {
		s.mu.Unlock()
		return
	}
	s.running = true
	s.mu.Unlock()

	ticker := time.NewTicker(ms(s.tuning.TickMs))
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.Tick()
		case <-s.stop:
			return
		}
	}
}

// Close stops the loop, cancels every pending callback and frees the world
func (s *Session) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.closed = true
	close(s.stop)
	close(s.statuses)
	for _, m := range s.participants {
		if m.player != nil {
			m.player.release()
		}
	}
	s.timers.cancelAll()
	s.world.Close()
	s.log.Info("session closed")
}

// Closed reports whether Close has run
func (s *Session) Closed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

// guard runs fn and logs a panic instead of letting it kill the process
func (s *Session) guard(name string, fn func()) {
	defer func() {
		if r := recover(); r != nil {
			s.log.WithFields(logrus.Fields{"step": name, "panic": r}).Error("session callback failed")
		}
	}()
	fn()
}

// Tick advances the world by one fixed step
func (s *Session) Tick() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.guard("tick", s.update)
}

func (s *Session) update() {
	delta := s.tuning.TickMs
	s.tick++
	if s.levelRunning {
		s.spawnEnemies(delta)
		s.updateEnemies()
		s.reapEnemies()
		s.updateBoss(delta)
	}
	s.updatePlayers()
	s.world.Step(delta)
	s.broadcastSnapshot()
}

func (s *Session) member(id string) *participant {
	for _, m := range s.participants {
		if m.ID == id {
			return m
		}
	}
	return nil
}

func (s *Session) send(m *participant, t string, data interface{}) {
	m.Conn.SendJSON(Envelope{T: t, Data: data})
}

func (s *Session) broadcast(t string, data interface{}) {
	env := Envelope{T: t, Data: data}
	for _, m := range s.participants {
		m.Conn.SendJSON(env)
	}
}

func (s *Session) names() []string {
	out := make([]string, 0, len(s.participants))
	for _, m := range s.participants {
		out = append(out, m.Name)
	}
	return out
}

// Begin spawns every member and starts level 0
func (s *Session) Begin(members []Member) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	for _, mb := range members {
		if s.member(mb.ID) != nil {
			continue
		}
		m := &participant{Member: mb}
		s.participants = append(s.participants, m)
		s.spawn(m)
	}
	s.setStatus(StatusStarted)
	s.events.Track(EvtGameStart, s.room, "", "")
	s.broadcast(MsgStartGame, StartGameMsg{Room: s.room, Players: s.names()})
	s.startLevel()
	s.log.WithField("players", len(s.participants)).Info("game started")
	return nil
}

// Admit adds a member to a running game and spawns them
func (s *Session) Admit(mb Member) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	if s.member(mb.ID) != nil {
		return ErrAlreadySpawned
	}
	m := &participant{Member: mb}
	s.participants = append(s.participants, m)
	s.spawn(m)
	s.send(m, MsgStartGame, StartGameMsg{Room: s.room, Players: s.names()})
	s.broadcast(MsgUsers, s.names())
	return nil
}

// Spawn puts a participant without an avatar back into the world
func (s *Session) Spawn(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	m := s.member(id)
	if m == nil {
		return ErrUnknownMember
	}
	if m.player != nil {
		return ErrAlreadySpawned
	}
	s.spawn(m)
	return nil
}

func (s *Session) spawn(m *participant) {
	p := newPlayer(m.Name, s.newPlayerBody(s.randomIn(s.tuning.PlayerSpawn)), s.tuning)
	if prev := m.fallen; prev != nil {
		p.Gold = prev.Gold
		p.Upgrades = prev.Upgrades
		p.applyStats(s.tuning)
		p.heal()
		m.fallen = nil
	}
	p.composite.AttachTo(s.world)
	p.Invincible = true
	s.after(&p.timers, s.tuning.InvincibleMs, "invincibility", func() { p.Invincible = false })
	m.player = p
	m.gameOverPending = false
}

// Leave removes a participant. Their bodies leave the world at once.
func (s *Session) Leave(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, m := range s.participants {
		if m.ID != id {
			continue
		}
		if m.player != nil {
			m.player.release()
			m.player.composite.Detach()
		}
		s.participants = append(s.participants[:i], s.participants[i+1:]...)
		if !s.closed {
			s.broadcast(MsgUsers, s.names())
		}
		s.log.WithField("player", m.Name).Info("player left")
		return
	}
}

// Len returns the number of participants
func (s *Session) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.participants)
}

// Move steers a player in dir at their speed
func (s *Session) Move(id string, dir physics.Vector) {
	s.mu.Lock()
	defer s.mu.Unlock()
	m := s.member(id)
	if m == nil || m.player == nil || s.closed {
		return
	}
	p := m.player
	if p.Stuck() {
		return
	}
	p.Facing = facingFor(dir, p.Facing)
	s.world.SetVelocity(p.body, dir.Normalize().Mult(p.Speed))
}

// Snapshot returns the current world state
func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshot()
}

// RespondMission answers the mission prompt; "start" begins the next level
func (s *Session) RespondMission(id, answer string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	m := s.member(id)
	if m == nil {
		return ErrUnknownMember
	}
	if !m.missionPending {
		return ErrNoPrompt
	}
	m.missionPending = false
	if answer == AnswerStart {
		s.startLevel()
	}
	return nil
}

// RespondGameOver answers the game-over prompt. It reports whether the
// participant chose to leave; any other answer respawns them.
func (s *Session) RespondGameOver(id, answer string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	m := s.member(id)
	if m == nil {
		return false, ErrUnknownMember
	}
	if !m.gameOverPending {
		return false, ErrNoPrompt
	}
	m.gameOverPending = false
	if answer == AnswerLeave {
		return true, nil
	}
	if s.closed {
		return false, ErrClosed
	}
	s.spawn(m)
	return false, nil
}

// setStatus queues a directory write. Writes land in the order queued,
// off the tick goroutine.
func (s *Session) setStatus(status RoomStatus) {
	if s.closed {
		return
	}
	select {
	case s.statuses <- status:
	default:
		s.log.WithField("status", status).Warn("room status dropped")
	}
}

func (s *Session) writeStatuses() {
	for status := range s.statuses {
		if err := s.dir.SetStatus(s.room, status); err != nil {
			s.log.WithError(err).WithField("status", status).Warn("update room status")
		}
	}
}
