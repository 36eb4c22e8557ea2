package main

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vmihailenco/msgpack/v5"
	"golang.org/x/crypto/bcrypt"

	"arena-server/internal/game"
	"arena-server/internal/physics"
)

// ---------- helpers ----------

type testServer struct {
	srv   *httptest.Server
	wsURL string
	hub   *Hub
}

// startTestServer spins up an httptest.Server over a fresh database and a
// real physics world per room.
func startTestServer(t *testing.T) *testServer {
	t.Helper()
	bcryptCost = bcrypt.MinCost

	tmpDir := t.TempDir()
	clientDir := filepath.Join(tmpDir, "client")
	require.NoError(t, os.MkdirAll(clientDir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(clientDir, "index.html"), []byte("<html>test</html>"), 0o644))

	db, err := OpenDB(filepath.Join(tmpDir, "test.db"))
	require.NoError(t, err)
	analytics := NewAnalytics(db)
	games := game.NewRegistry(game.RegistryConfig{
		Tuning:    game.DefaultTuning(),
		NewWorld:  func() physics.World { return physics.NewChipmunkWorld() },
		Directory: db,
		Events:    analytics,
	})
	hub := NewHub(db, NewAuth(db, "test-secret"), analytics, games)
	go hub.Run()

	cfg := Config{ClientDir: clientDir, PublicURL: "https://arena.test"}
	srv := httptest.NewServer(SetupRoutes(hub, cfg))

	t.Cleanup(func() {
		srv.Close()
		games.Close()
		hub.Stop()
		analytics.Stop()
		db.Close()
	})
	return &testServer{
		srv:   srv,
		wsURL: "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws",
		hub:   hub,
	}
}

// dialAs opens a WebSocket authenticated as name and drains the initial
// room list.
func (ts *testServer) dialAs(t *testing.T, name string) *websocket.Conn {
	t.Helper()
	token, err := ts.hub.auth.Issue(0, name)
	require.NoError(t, err)
	conn, _, err := websocket.DefaultDialer.Dial(ts.wsURL+"?token="+token, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	readUntil(t, conn, MsgGames)
	return conn
}

func sendMsg(t *testing.T, conn *websocket.Conn, msgType string, data interface{}) {
	t.Helper()
	raw, err := json.Marshal(data)
	require.NoError(t, err)
	require.NoError(t, conn.WriteJSON(InEnvelope{T: msgType, D: raw}))
}

// readUntil skips frames until a JSON message of type want arrives
func readUntil(t *testing.T, conn *websocket.Conn, want string) InEnvelope {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for {
		conn.SetReadDeadline(deadline)
		msgType, raw, err := conn.ReadMessage()
		require.NoError(t, err, "waiting for %q", want)
		if msgType == websocket.BinaryMessage {
			continue
		}
		var env InEnvelope
		require.NoError(t, json.Unmarshal(raw, &env))
		if env.T == want {
			return env
		}
	}
}

// readSnapshot skips text frames until a msgpack snapshot arrives
func readSnapshot(t *testing.T, conn *websocket.Conn) game.Snapshot {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for {
		conn.SetReadDeadline(deadline)
		msgType, raw, err := conn.ReadMessage()
		require.NoError(t, err, "waiting for snapshot")
		if msgType != websocket.BinaryMessage {
			continue
		}
		var snap game.Snapshot
		require.NoError(t, msgpack.Unmarshal(raw, &snap))
		return snap
	}
}

// waitSnapshot reads snapshots until ok accepts one
func waitSnapshot(t *testing.T, conn *websocket.Conn, ok func(game.Snapshot) bool) {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		if ok(readSnapshot(t, conn)) {
			return
		}
	}
	t.Fatal("no matching snapshot")
}

func readAck(t *testing.T, conn *websocket.Conn) AckMsg {
	t.Helper()
	var ack AckMsg
	require.NoError(t, json.Unmarshal(readUntil(t, conn, MsgAck).D, &ack))
	return ack
}

func decode[T any](t *testing.T, env InEnvelope) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(env.D, &v))
	return v
}

func (ts *testServer) create(t *testing.T, conn *websocket.Conn, msg CreateGameMsg) {
	t.Helper()
	sendMsg(t, conn, MsgCreateGame, msg)
	ack := readAck(t, conn)
	require.Equal(t, AckCreated, ack.Result, ack.Reason)
}

func (ts *testServer) join(t *testing.T, conn *websocket.Conn, msg JoinGameMsg) AckMsg {
	t.Helper()
	sendMsg(t, conn, MsgJoinGame, msg)
	return readAck(t, conn)
}

// ---------- lobby and rooms ----------

func TestLobbyReceivesRoomList(t *testing.T) {
	ts := startTestServer(t)
	alice := ts.dialAs(t, "alice")
	bob := ts.dialAs(t, "bob")

	ts.create(t, alice, CreateGameMsg{Name: "arena", Password: "pw"})

	games := decode[[]GameInfo](t, readUntil(t, bob, MsgGames))
	require.Len(t, games, 1)
	assert.Equal(t, GameInfo{Name: "arena", Status: "created", Players: 1, Locked: true}, games[0])

	resp, err := http.Get(ts.srv.URL + "/games")
	require.NoError(t, err)
	defer resp.Body.Close()
	var listed []GameInfo
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&listed))
	assert.Equal(t, games, listed)
}

func TestCreateJoinStart(t *testing.T) {
	ts := startTestServer(t)
	alice := ts.dialAs(t, "alice")
	bob := ts.dialAs(t, "bob")

	ts.create(t, alice, CreateGameMsg{Name: "arena"})
	sendMsg(t, bob, MsgCreateGame, CreateGameMsg{Name: "arena"})
	assert.Equal(t, AckMsg{For: MsgCreateGame, Result: AckError, Reason: ErrRoomExists.Error()}, readAck(t, bob))

	ack := ts.join(t, bob, JoinGameMsg{Name: "arena"})
	assert.Equal(t, AckJoined, ack.Result)
	users := decode[[]string](t, readUntil(t, alice, game.MsgUsers))
	assert.Equal(t, []string{"alice", "bob"}, users)

	sendMsg(t, bob, MsgStart, nil)
	assert.Equal(t, ErrNotCreator.Error(), readAck(t, bob).Reason)

	sendMsg(t, alice, MsgStart, nil)
	assert.Equal(t, AckStarted, readAck(t, alice).Result)

	start := decode[game.StartGameMsg](t, readUntil(t, bob, game.MsgStartGame))
	assert.Equal(t, game.StartGameMsg{Room: "arena", Players: []string{"alice", "bob"}}, start)
	level := decode[game.LevelMsg](t, readUntil(t, bob, game.MsgStartLevel))
	assert.Equal(t, 0, level.Level)

	snap := readSnapshot(t, alice)
	assert.Len(t, snap.Players, 2)
	assert.True(t, snap.LevelRunning)

	sendMsg(t, alice, MsgStart, nil)
	assert.Equal(t, ErrGameStarted.Error(), readAck(t, alice).Reason)
}

func TestJoinRejections(t *testing.T) {
	ts := startTestServer(t)
	alice := ts.dialAs(t, "alice")
	bob := ts.dialAs(t, "bob")

	assert.Equal(t, ErrNoRoom.Error(), ts.join(t, bob, JoinGameMsg{Name: "nowhere"}).Reason)

	ts.create(t, alice, CreateGameMsg{Name: "locked", Password: "secret"})
	assert.Equal(t, ErrWrongPassword.Error(), ts.join(t, bob, JoinGameMsg{Name: "locked", Password: "nope"}).Reason)

	sendMsg(t, alice, MsgStart, nil)
	require.Equal(t, AckStarted, readAck(t, alice).Result)
	assert.Equal(t, ErrGameStarted.Error(), ts.join(t, bob, JoinGameMsg{Name: "locked", Password: "secret"}).Reason)

	twin := ts.dialAs(t, "alice")
	carol := ts.dialAs(t, "carol")
	ts.create(t, carol, CreateGameMsg{Name: "open"})
	assert.Equal(t, AckJoined, ts.join(t, twin, JoinGameMsg{Name: "open"}).Result)
	other := ts.dialAs(t, "alice")
	assert.Equal(t, ErrNameTaken.Error(), ts.join(t, other, JoinGameMsg{Name: "open"}).Reason)
}

func TestJoinRunningGameSpawnsPlayer(t *testing.T) {
	ts := startTestServer(t)
	alice := ts.dialAs(t, "alice")
	bob := ts.dialAs(t, "bob")

	ts.create(t, alice, CreateGameMsg{Name: "drop-in", CanEnterDuringGame: true})
	sendMsg(t, alice, MsgStart, nil)
	require.Equal(t, AckStarted, readAck(t, alice).Result)

	sendMsg(t, bob, MsgJoinGame, JoinGameMsg{Name: "drop-in"})
	start := decode[game.StartGameMsg](t, readUntil(t, bob, game.MsgStartGame))
	assert.Equal(t, []string{"alice", "bob"}, start.Players)
	assert.Equal(t, AckStarted, readAck(t, bob).Result)

	waitSnapshot(t, bob, func(s game.Snapshot) bool { return len(s.Players) == 2 })
}

func TestCreatorLeavingPromotesNextMember(t *testing.T) {
	ts := startTestServer(t)
	alice := ts.dialAs(t, "alice")
	bob := ts.dialAs(t, "bob")
	carol := ts.dialAs(t, "carol")

	ts.create(t, alice, CreateGameMsg{Name: "arena"})
	require.Equal(t, AckJoined, ts.join(t, bob, JoinGameMsg{Name: "arena"}).Result)
	require.Equal(t, AckJoined, ts.join(t, carol, JoinGameMsg{Name: "arena"}).Result)

	sendMsg(t, alice, MsgLeaveGame, nil)
	assert.Equal(t, AckLeft, readAck(t, alice).Result)

	readUntil(t, bob, MsgPromoted)
	assert.Equal(t, "bob", decode[string](t, readUntil(t, carol, MsgNewAdmin)))
	assert.Equal(t, []string{"bob", "carol"}, decode[[]string](t, readUntil(t, carol, game.MsgUsers)))

	sendMsg(t, bob, MsgStart, nil)
	assert.Equal(t, AckStarted, readAck(t, bob).Result)
}

func TestLastMemberOutDeletesRoom(t *testing.T) {
	ts := startTestServer(t)
	alice := ts.dialAs(t, "alice")
	watcher := ts.dialAs(t, "watcher")

	ts.create(t, alice, CreateGameMsg{Name: "arena"})
	sendMsg(t, alice, MsgStart, nil)
	require.Equal(t, AckStarted, readAck(t, alice).Result)
	require.Equal(t, 1, ts.hub.games.Len())

	alice.Close()
	assert.Eventually(t, func() bool {
		return ts.hub.rooms.Len() == 0 && ts.hub.games.Len() == 0
	}, 3*time.Second, 10*time.Millisecond)

	for {
		if games := decode[[]GameInfo](t, readUntil(t, watcher, MsgGames)); len(games) == 0 {
			break
		}
	}

	row, err := ts.hub.db.GetGame("arena")
	require.NoError(t, err)
	assert.Nil(t, row)
}

func TestChatReachesRoom(t *testing.T) {
	ts := startTestServer(t)
	alice := ts.dialAs(t, "alice")
	bob := ts.dialAs(t, "bob")

	ts.create(t, alice, CreateGameMsg{Name: "arena"})
	require.Equal(t, AckJoined, ts.join(t, bob, JoinGameMsg{Name: "arena"}).Result)

	sendMsg(t, alice, MsgChat, ChatMsg{Text: "  hello  "})
	assert.Equal(t, ChatMsg{From: "alice", Text: "hello"}, decode[ChatMsg](t, readUntil(t, bob, MsgChat)))
}

// ---------- in-game intents ----------

func TestBuyOutsideGame(t *testing.T) {
	ts := startTestServer(t)
	alice := ts.dialAs(t, "alice")
	sendMsg(t, alice, MsgBuy, BuyMsg{Item: "speed"})
	receipt := decode[game.ShopReceipt](t, readUntil(t, alice, MsgReceipt))
	assert.Equal(t, game.ReasonNotPlaying, receipt.Reason)
}

func TestBuyWithoutGoldIsRejected(t *testing.T) {
	ts := startTestServer(t)
	alice := ts.dialAs(t, "alice")
	ts.create(t, alice, CreateGameMsg{Name: "arena"})
	sendMsg(t, alice, MsgStart, nil)
	require.Equal(t, AckStarted, readAck(t, alice).Result)

	sendMsg(t, alice, MsgBuy, BuyMsg{Item: "attack"})
	receipt := decode[game.ShopReceipt](t, readUntil(t, alice, MsgReceipt))
	assert.Equal(t, game.ShopReceipt{Result: game.ResultError, Reason: game.ReasonNoGold}, receipt)

	sendMsg(t, alice, MsgRespond, RespondMsg{Prompt: PromptMission, Answer: "start"})
	assert.Equal(t, game.ErrNoPrompt.Error(), decode[ErrorMsg](t, readUntil(t, alice, MsgError)).Msg)
}

func TestMoveChangesFacing(t *testing.T) {
	ts := startTestServer(t)
	alice := ts.dialAs(t, "alice")
	ts.create(t, alice, CreateGameMsg{Name: "arena"})
	sendMsg(t, alice, MsgStart, nil)
	require.Equal(t, AckStarted, readAck(t, alice).Result)

	sendMsg(t, alice, MsgMove, MoveMsg{X: -3})
	waitSnapshot(t, alice, func(s game.Snapshot) bool {
		return s.Players["alice"].Facing == game.FacingLeft
	})
}

func TestAxisSnapsToUnit(t *testing.T) {
	assert.Equal(t, 1.0, axis(0.2))
	assert.Equal(t, -1.0, axis(-7))
	assert.Equal(t, 0.0, axis(0))
}

// ---------- accounts and handshake ----------

func TestRegisterLoginAndHandshake(t *testing.T) {
	ts := startTestServer(t)

	body, _ := json.Marshal(AccountRequest{Email: "d@example.com", Username: "dana", Password: "hunter22"})
	resp, err := http.Post(ts.srv.URL+"/register", "application/json", bytes.NewReader(body))
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusCreated, resp.StatusCode)

	resp, err = http.Post(ts.srv.URL+"/register", "application/json", bytes.NewReader(body))
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode, "username taken")

	body, _ = json.Marshal(AccountRequest{Username: "dana", Password: "wrong"})
	resp, err = http.Post(ts.srv.URL+"/login", "application/json", bytes.NewReader(body))
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	body, _ = json.Marshal(AccountRequest{Username: "dana", Password: "hunter22"})
	resp, err = http.Post(ts.srv.URL+"/login", "application/json", bytes.NewReader(body))
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var ok AuthOKMsg
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&ok))

	conn, _, err := websocket.DefaultDialer.Dial(ts.wsURL+"?token="+ok.Token, nil)
	require.NoError(t, err)
	defer conn.Close()
	sendMsg(t, conn, MsgCreateGame, CreateGameMsg{Name: "dana's"})
	assert.Equal(t, []string{"dana"}, decode[[]string](t, readUntil(t, conn, game.MsgUsers)))
	assert.Equal(t, AckCreated, readAck(t, conn).Result)
}

func TestHandshakeRejectsBadToken(t *testing.T) {
	ts := startTestServer(t)
	_, resp, err := websocket.DefaultDialer.Dial(ts.wsURL+"?token=garbage", nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestGuestCanAuthenticateInLobby(t *testing.T) {
	ts := startTestServer(t)
	conn, _, err := websocket.DefaultDialer.Dial(ts.wsURL, nil)
	require.NoError(t, err)
	defer conn.Close()
	readUntil(t, conn, MsgGames)

	sendMsg(t, conn, MsgRegister, RegisterMsg{Username: "erin", Password: "pass1234"})
	ok := decode[AuthOKMsg](t, readUntil(t, conn, MsgAuthOK))
	assert.Equal(t, "erin", ok.Username)
	assert.NotZero(t, ok.PlayerID)

	ts.create(t, conn, CreateGameMsg{Name: "erin's"})
	sendMsg(t, conn, MsgAuth, AuthMsg{Token: ok.Token})
	assert.Equal(t, ErrInRoom.Error(), decode[ErrorMsg](t, readUntil(t, conn, MsgError)).Msg)
}

// ---------- HTTP extras ----------

func TestInviteQRCode(t *testing.T) {
	ts := startTestServer(t)
	alice := ts.dialAs(t, "alice")
	ts.create(t, alice, CreateGameMsg{Name: "arena one"})

	resp, err := http.Get(ts.srv.URL + "/invite?room=arena+one")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "image/png", resp.Header.Get("Content-Type"))
	assert.Equal(t, "https://arena.test/?room=arena+one", resp.Header.Get("X-Invite-Link"))
	var buf bytes.Buffer
	_, err = buf.ReadFrom(resp.Body)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(buf.Bytes(), []byte("\x89PNG")))

	missing, err := http.Get(ts.srv.URL + "/invite?room=ghost")
	require.NoError(t, err)
	missing.Body.Close()
	assert.Equal(t, http.StatusNotFound, missing.StatusCode)
}

func TestStatsEndpoint(t *testing.T) {
	ts := startTestServer(t)
	ts.dialAs(t, "alice")

	resp, err := http.Get(ts.srv.URL + "/stats?days=3")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var stats map[string]interface{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&stats))
	assert.Equal(t, 3.0, stats["days"])
	assert.Contains(t, stats, "events")
	assert.Contains(t, stats, "connections")
}

func TestStaticFiles(t *testing.T) {
	ts := startTestServer(t)
	resp, err := http.Get(ts.srv.URL + "/")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "no-cache", resp.Header.Get("Cache-Control"))
}
