package main

import (
	"database/sql"
	"time"

	_ "modernc.org/sqlite"

	"arena-server/internal/game"
	"arena-server/internal/logger"
)

// DB wraps the SQLite database connection
type DB struct {
	conn *sql.DB
}

// PlayerRow represents an account record
type PlayerRow struct {
	ID        int64
	Username  string
	Email     string
	PassHash  string
	CreatedAt time.Time
}

// GameRow represents a room record in the directory
type GameRow struct {
	Name               string
	PassHash           string
	CanEnterDuringGame bool
	Status             game.RoomStatus
	CreatedAt          time.Time
}

// OpenDB opens (or creates) the SQLite database
func OpenDB(path string) (*DB, error) {
	conn, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	// a single writer avoids SQLITE_BUSY between the analytics flush and room updates
	conn.SetMaxOpenConns(1)

	if _, err := conn.Exec("PRAGMA journal_mode=WAL"); err != nil {
		conn.Close()
		return nil, err
	}
	if _, err := conn.Exec("PRAGMA foreign_keys=ON"); err != nil {
		conn.Close()
		return nil, err
	}

	db := &DB{conn: conn}
	if err := db.migrate(); err != nil {
		conn.Close()
		return nil, err
	}
	return db, nil
}

// Close closes the database connection
func (db *DB) Close() error {
	return db.conn.Close()
}

// migrate creates tables if they don't exist
func (db *DB) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS players (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		username TEXT NOT NULL UNIQUE,
		email TEXT NOT NULL DEFAULT '',
		pass_hash TEXT NOT NULL DEFAULT '',
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	CREATE TABLE IF NOT EXISTS games (
		name TEXT PRIMARY KEY,
		pass_hash TEXT NOT NULL DEFAULT '',
		can_enter_during_game INTEGER NOT NULL DEFAULT 0,
		status TEXT NOT NULL DEFAULT 'created',
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	CREATE TABLE IF NOT EXISTS game_events (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		event_type TEXT NOT NULL,
		room TEXT,
		player TEXT,
		data TEXT,
		created_at TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS settings (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_game_events_type ON game_events(event_type, created_at);
	`
	_, err := db.conn.Exec(schema)
	if err != nil {
		logger.Log.WithError(err).Error("db migration failed")
	}
	return err
}

// CreatePlayer creates a new account (returns player ID)
func (db *DB) CreatePlayer(username, email, passHash string) (int64, error) {
	res, err := db.conn.Exec(
		"INSERT INTO players (username, email, pass_hash) VALUES (?, ?, ?)",
		username, email, passHash,
	)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

// GetPlayerByUsername returns an account by username, nil if none
func (db *DB) GetPlayerByUsername(username string) (*PlayerRow, error) {
	row := db.conn.QueryRow(
		"SELECT id, username, email, pass_hash, created_at FROM players WHERE username = ?",
		username,
	)
	p := &PlayerRow{}
	err := row.Scan(&p.ID, &p.Username, &p.Email, &p.PassHash, &p.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return p, err
}

// UsernameExists checks if a username is taken
func (db *DB) UsernameExists(username string) (bool, error) {
	var count int
	err := db.conn.QueryRow("SELECT COUNT(*) FROM players WHERE username = ?", username).Scan(&count)
	return count > 0, err
}

// CreateGame inserts a room record with status created
func (db *DB) CreateGame(name, passHash string, canEnter bool) error {
	_, err := db.conn.Exec(
		"INSERT INTO games (name, pass_hash, can_enter_during_game, status) VALUES (?, ?, ?, ?)",
		name, passHash, canEnter, game.StatusCreated,
	)
	return err
}

// GetGame returns a room record, nil if none
func (db *DB) GetGame(name string) (*GameRow, error) {
	row := db.conn.QueryRow(
		"SELECT name, pass_hash, can_enter_during_game, status, created_at FROM games WHERE name = ?",
		name,
	)
	g := &GameRow{}
	var status string
	err := row.Scan(&g.Name, &g.PassHash, &g.CanEnterDuringGame, &status, &g.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	g.Status = game.RoomStatus(status)
	return g, err
}

// SetStatus records a room's lifecycle change
func (db *DB) SetStatus(room string, status game.RoomStatus) error {
	_, err := db.conn.Exec("UPDATE games SET status = ? WHERE name = ?", status, room)
	return err
}

// DeleteGame removes a room record
func (db *DB) DeleteGame(name string) error {
	_, err := db.conn.Exec("DELETE FROM games WHERE name = ?", name)
	return err
}

// ClearGames drops every room record; rooms do not outlive the process
func (db *DB) ClearGames() error {
	_, err := db.conn.Exec("DELETE FROM games")
	return err
}

// ListGames returns all room records ordered by creation
func (db *DB) ListGames() ([]GameRow, error) {
	rows, err := db.conn.Query(
		"SELECT name, pass_hash, can_enter_during_game, status, created_at FROM games ORDER BY created_at, name",
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []GameRow
	for rows.Next() {
		var g GameRow
		var status string
		if err := rows.Scan(&g.Name, &g.PassHash, &g.CanEnterDuringGame, &status, &g.CreatedAt); err != nil {
			continue
		}
		g.Status = game.RoomStatus(status)
		result = append(result, g)
	}
	return result, rows.Err()
}

// GetSetting returns a stored setting, "" if absent
func (db *DB) GetSetting(key string) string {
	var value string
	if err := db.conn.QueryRow("SELECT value FROM settings WHERE key = ?", key).Scan(&value); err != nil {
		return ""
	}
	return value
}

// SetSetting stores a setting
func (db *DB) SetSetting(key, value string) error {
	_, err := db.conn.Exec(
		"INSERT INTO settings (key, value) VALUES (?, ?) ON CONFLICT(key) DO UPDATE SET value = excluded.value",
		key, value,
	)
	return err
}
