package main

import (
	"encoding/json"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/gorilla/websocket"
	"github.com/skip2/go-qrcode"

	"arena-server/internal/logger"
)

const (
	defaultStatsDays = 7
	inviteQRSize     = 256
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true // Non-browser clients don't send Origin
		}
		u, err := url.Parse(origin)
		if err != nil {
			return false
		}
		return u.Host == r.Host
	},
}

func extractIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// AccountRequest is the body of /register and /login
type AccountRequest struct {
	Email    string `json:"email"`
	Username string `json:"username"`
	Password string `json:"password"`
}

// SetupRoutes configures HTTP routes
func SetupRoutes(hub *Hub, cfg Config) *http.ServeMux {
	mux := http.NewServeMux()

	if cfg.ClientDir != "" {
		fs := http.FileServer(http.Dir(cfg.ClientDir))
		mux.Handle("/", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Cache-Control", "no-cache")
			fs.ServeHTTP(w, r)
		}))
	}

	// The handshake may carry ?token=; without one the client plays as a guest
	mux.HandleFunc("/ws", func(w http.ResponseWriter, r *http.Request) {
		ip := extractIP(r)
		if !hub.CanAccept(ip) {
			http.Error(w, "too many connections", http.StatusServiceUnavailable)
			return
		}

		username, playerID := GenerateGuestName(), int64(0)
		if token := r.URL.Query().Get("token"); token != "" {
			pid, usr, err := hub.auth.ValidateToken(token)
			if err != nil {
				http.Error(w, "invalid token", http.StatusUnauthorized)
				return
			}
			username, playerID = usr, pid
		}

		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			logger.Log.WithError(err).Warn("upgrade")
			return
		}

		hub.TrackConnect(ip)

		client := NewClient(hub, conn, ip, username, playerID)
		hub.register <- client

		go client.WritePump()
		go client.ReadPump()
	})

	mux.HandleFunc("POST /register", func(w http.ResponseWriter, r *http.Request) {
		var req AccountRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeJSON(w, http.StatusBadRequest, ErrorMsg{Msg: "invalid body"})
			return
		}
		id, token, err := hub.auth.Register(req.Username, req.Email, req.Password)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, ErrorMsg{Msg: err.Error()})
			return
		}
		writeJSON(w, http.StatusCreated, AuthOKMsg{Token: token, Username: strings.TrimSpace(req.Username), PlayerID: id})
	})

	mux.HandleFunc("POST /login", func(w http.ResponseWriter, r *http.Request) {
		var req AccountRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeJSON(w, http.StatusBadRequest, ErrorMsg{Msg: "invalid body"})
			return
		}
		id, token, err := hub.auth.Login(req.Username, req.Password, extractIP(r))
		if err != nil {
			writeJSON(w, http.StatusUnauthorized, ErrorMsg{Msg: err.Error()})
			return
		}
		writeJSON(w, http.StatusOK, AuthOKMsg{Token: token, Username: req.Username, PlayerID: id})
	})

	mux.HandleFunc("GET /games", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, hub.rooms.List())
	})

	mux.HandleFunc("GET /stats", func(w http.ResponseWriter, r *http.Request) {
		days, err := strconv.Atoi(r.URL.Query().Get("days"))
		if err != nil || days <= 0 {
			days = defaultStatsDays
		}
		counts, err := hub.analytics.EventCounts(days)
		if err != nil {
			logger.Log.WithError(err).Warn("event counts")
		}
		upgrades, err := hub.analytics.PopularUpgrades(5)
		if err != nil {
			logger.Log.WithError(err).Warn("popular upgrades")
		}
		conns, sessions := hub.analytics.Live()
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"connections": conns,
			"sessions":    sessions,
			"rooms":       hub.rooms.Len(),
			"days":        days,
			"events":      counts,
			"upgrades":    upgrades,
		})
	})

	mux.HandleFunc("GET /invite", func(w http.ResponseWriter, r *http.Request) {
		name := r.URL.Query().Get("room")
		if name == "" || !hub.rooms.Exists(name) {
			http.Error(w, ErrNoRoom.Error(), http.StatusNotFound)
			return
		}
		link := cfg.PublicURL + "/?room=" + url.QueryEscape(name)
		png, err := qrcode.Encode(link, qrcode.Medium, inviteQRSize)
		if err != nil {
			logger.Log.WithError(err).Error("invite qr")
			http.Error(w, "internal error", http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "image/png")
		w.Header().Set("X-Invite-Link", link)
		w.Write(png)
	})

	return mux
}
