package game

import (
	"sort"
	"sync"

	"arena-server/internal/physics"
)

const defaultMaxSessions = 100

// RegistryConfig holds what every new session is built with
type RegistryConfig struct {
	Tuning      Tuning
	NewWorld    func() physics.World
	Directory   Directory
	Events      EventSink
	MaxSessions int
}

// Registry maps room names to running sessions
type Registry struct {
	mu       sync.RWMutex
	sessions map[string]*Session
	cfg      RegistryConfig
}

// NewRegistry creates an empty registry
func NewRegistry(cfg RegistryConfig) *Registry {
	if cfg.NewWorld == nil {
		cfg.NewWorld = func() physics.World { return physics.NewChipmunkWorld() }
	}
	if cfg.MaxSessions <= 0 {
		cfg.MaxSessions = defaultMaxSessions
	}
	return &Registry{
		sessions: make(map[string]*Session),
		cfg:      cfg,
	}
}

// Start creates the session for room, spawns members and starts its tick
// loop. A room runs at most one session.
func (r *Registry) Start(room string, members []Member) (*Session, error) {
	r.mu.Lock()
	if _, ok := r.sessions[room]; ok {
		r.mu.Unlock()
		return nil, ErrAlreadyStarted
	}
	if len(r.sessions) >= r.cfg.MaxSessions {
		r.mu.Unlock()
		return nil, ErrTooManyRooms
	}
	s := NewSession(room, Options{
		Tuning:    r.cfg.Tuning,
		World:     r.cfg.NewWorld(),
		Directory: r.cfg.Directory,
		Events:    r.cfg.Events,
	})
	r.sessions[room] = s
	r.mu.Unlock()

	if err := s.Begin(members); err != nil {
		r.Delete(room)
		return nil, err
	}
	go s.Run()
	return s, nil
}

// Get returns the session of room, or nil
func (r *Registry) Get(room string) *Session {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.sessions[room]
}

// Delete stops and forgets the session of room
func (r *Registry) Delete(room string) bool {
	r.mu.Lock()
	s, ok := r.sessions[room]
	delete(r.sessions, room)
	r.mu.Unlock()
	if !ok {
		return false
	}
	s.Close()
	return true
}

// Len returns the number of running sessions
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}

// Rooms lists the rooms with a running session, sorted
func (r *Registry) Rooms() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.sessions))
	for room := range r.sessions {
		out = append(out, room)
	}
	sort.Strings(out)
	return out
}

// Close stops every session
func (r *Registry) Close() {
	r.mu.Lock()
	all := r.sessions
	r.sessions = make(map[string]*Session)
	r.mu.Unlock()
	for _, s := range all {
		s.Close()
	}
}
