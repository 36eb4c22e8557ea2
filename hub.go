package main

import (
	"sync"

	"github.com/sirupsen/logrus"

	"arena-server/internal/game"
	"arena-server/internal/logger"
)

const (
	maxConnsPerIP = 5
	maxTotalConns = 1000
)

// Hub manages all connected clients and routes them to rooms
type Hub struct {
	mu         sync.RWMutex
	clients    map[*Client]bool
	register   chan *Client
	unregister chan *Client
	done       chan struct{}

	// Connection limiting (mutex-protected, accessed from HTTP handlers)
	connMu     sync.Mutex
	ipConns    map[string]int
	totalConns int

	db        *DB
	auth      *Auth
	analytics *Analytics
	games     *game.Registry
	rooms     *Rooms
}

// NewHub wires the room layer over a session registry
func NewHub(db *DB, auth *Auth, analytics *Analytics, games *game.Registry) *Hub {
	return &Hub{
		clients:    make(map[*Client]bool),
		register:   make(chan *Client, 64),
		unregister: make(chan *Client, 64),
		done:       make(chan struct{}),
		ipConns:    make(map[string]int),
		db:         db,
		auth:       auth,
		analytics:  analytics,
		games:      games,
		rooms:      NewRooms(db, games, analytics),
	}
}

func (h *Hub) CanAccept(ip string) bool {
	h.connMu.Lock()
	defer h.connMu.Unlock()
	if h.totalConns >= maxTotalConns {
		return false
	}
	if h.ipConns[ip] >= maxConnsPerIP {
		return false
	}
	return true
}

func (h *Hub) TrackConnect(ip string) {
	h.connMu.Lock()
	defer h.connMu.Unlock()
	h.ipConns[ip]++
	h.totalConns++
}

func (h *Hub) TrackDisconnect(ip string) {
	h.connMu.Lock()
	defer h.connMu.Unlock()
	h.ipConns[ip]--
	if h.ipConns[ip] <= 0 {
		delete(h.ipConns, ip)
	}
	h.totalConns--
}

// Run processes register/unregister events until Stop
func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = true
			h.mu.Unlock()
			h.rooms.Enter(client)
			h.analytics.Track(EvtConnect, "", "", client.remoteAddr)
			logger.Log.WithFields(logrus.Fields{
				"client": client.id,
				"ip":     client.remoteAddr,
			}).Debug("client connected")

		case client := <-h.unregister:
			h.rooms.Disconnect(client)
			h.mu.Lock()
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.send)
			}
			h.mu.Unlock()
			h.analytics.Track(EvtDisconnect, "", client.username, "")

		case <-h.done:
			return
		}
		h.analytics.SetLive(h.ClientCount(), h.games.Len())
	}
}

// Stop ends Run
func (h *Hub) Stop() {
	close(h.done)
}

// ClientCount returns the number of connected clients
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// TotalConns returns the tracked connection count
func (h *Hub) TotalConns() int {
	h.connMu.Lock()
	defer h.connMu.Unlock()
	return h.totalConns
}
