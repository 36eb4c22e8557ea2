package main

import (
	"database/sql"
	"sync"
	"time"

	"arena-server/internal/game"
	"arena-server/internal/logger"
)

// Connection-level event types; gameplay events come from the game package
const (
	EvtConnect    = "connect"
	EvtDisconnect = "disconnect"
	EvtRoomCreate = "room_create"
	EvtRoomDelete = "room_delete"
)

// AnalyticsEvent represents a single trackable event
type AnalyticsEvent struct {
	Type      string
	Room      string
	Player    string
	Data      string // free-form detail
	Timestamp time.Time
}

// Analytics handles event tracking with batched background writes
type Analytics struct {
	db     *DB
	events chan AnalyticsEvent
	stop   chan struct{}
	once   sync.Once
	wg     sync.WaitGroup

	mu          sync.RWMutex
	connections int
	sessions    int
}

// NewAnalytics creates and starts the analytics background writer
func NewAnalytics(db *DB) *Analytics {
	a := &Analytics{
		db:     db,
		events: make(chan AnalyticsEvent, 1024),
		stop:   make(chan struct{}),
	}
	a.wg.Add(1)
	go a.writer()
	return a
}

// Track enqueues an event for async persistence (non-blocking). It
// satisfies game.EventSink.
func (a *Analytics) Track(evtType, room, player, data string) {
	select {
	case a.events <- AnalyticsEvent{
		Type:      evtType,
		Room:      room,
		Player:    player,
		Data:      data,
		Timestamp: time.Now().UTC(),
	}:
	default:
		// full: drop rather than stall a tick
	}
}

// SetLive updates the live gauges
func (a *Analytics) SetLive(connections, sessions int) {
	a.mu.Lock()
	a.connections = connections
	a.sessions = sessions
	a.mu.Unlock()
}

// Live returns the current connection and session counts
func (a *Analytics) Live() (int, int) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.connections, a.sessions
}

// Stop drains pending events and shuts down the writer
func (a *Analytics) Stop() {
	a.once.Do(func() {
		close(a.stop)
		a.wg.Wait()
	})
}

// writer is the background goroutine that batches and writes events to DB
func (a *Analytics) writer() {
	defer a.wg.Done()

	batch := make([]AnalyticsEvent, 0, 64)
	ticker := time.NewTicker(5 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case evt := <-a.events:
			batch = append(batch, evt)
			if len(batch) >= 50 {
				a.flush(batch)
				batch = batch[:0]
			}
		case <-ticker.C:
			if len(batch) > 0 {
				a.flush(batch)
				batch = batch[:0]
			}
		case <-a.stop:
			for {
				select {
				case evt := <-a.events:
					batch = append(batch, evt)
				default:
					a.flush(batch)
					return
				}
			}
		}
	}
}

// flush writes a batch of events to the database
func (a *Analytics) flush(events []AnalyticsEvent) {
	if a.db == nil || len(events) == 0 {
		return
	}
	log := logger.Log.WithField("component", "analytics")
	tx, err := a.db.conn.Begin()
	if err != nil {
		log.WithError(err).Error("begin tx")
		return
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(`INSERT INTO game_events (event_type, room, player, data, created_at) VALUES (?, ?, ?, ?, ?)`)
	if err != nil {
		log.WithError(err).Error("prepare insert")
		return
	}
	defer stmt.Close()

	for _, evt := range events {
		room := sql.NullString{String: evt.Room, Valid: evt.Room != ""}
		player := sql.NullString{String: evt.Player, Valid: evt.Player != ""}
		data := sql.NullString{String: evt.Data, Valid: evt.Data != ""}
		if _, err := stmt.Exec(evt.Type, room, player, data, evt.Timestamp.Format(time.RFC3339)); err != nil {
			log.WithError(err).Warn("insert event")
		}
	}
	if err := tx.Commit(); err != nil {
		log.WithError(err).Error("commit")
	}
}

// EventCounts returns counts of each event type for the last N days
func (a *Analytics) EventCounts(days int) (map[string]int, error) {
	if a.db == nil {
		return nil, nil
	}
	rows, err := a.db.conn.Query(`
		SELECT event_type, COUNT(*) FROM game_events
		WHERE created_at >= date('now', '-' || ? || ' days')
		GROUP BY event_type ORDER BY COUNT(*) DESC
	`, days)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	result := make(map[string]int)
	for rows.Next() {
		var evtType string
		var count int
		if err := rows.Scan(&evtType, &count); err != nil {
			continue
		}
		result[evtType] = count
	}
	return result, rows.Err()
}

// PopularUpgrades returns how often each upgrade was bought
func (a *Analytics) PopularUpgrades(limit int) ([]ItemAnalytics, error) {
	if a.db == nil {
		return nil, nil
	}
	rows, err := a.db.conn.Query(`
		SELECT COALESCE(data, 'unknown') AS item, COUNT(*) AS cnt
		FROM game_events
		WHERE event_type = ?
		GROUP BY item ORDER BY cnt DESC LIMIT ?
	`, game.EvtPurchase, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []ItemAnalytics
	for rows.Next() {
		var ia ItemAnalytics
		if err := rows.Scan(&ia.Item, &ia.Count); err != nil {
			continue
		}
		result = append(result, ia)
	}
	return result, rows.Err()
}

// ItemAnalytics holds purchase count per upgrade
type ItemAnalytics struct {
	Item  string `json:"item"`
	Count int    `json:"count"`
}
