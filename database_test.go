package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"arena-server/internal/game"
)

func TestRoomDirectory(t *testing.T) {
	db := openTestDB(t)

	require.NoError(t, db.CreateGame("alpha", "", true))
	require.NoError(t, db.CreateGame("beta", "hash", false))
	assert.Error(t, db.CreateGame("alpha", "", false), "names are unique")

	row, err := db.GetGame("beta")
	require.NoError(t, err)
	require.NotNil(t, row)
	assert.Equal(t, "hash", row.PassHash)
	assert.False(t, row.CanEnterDuringGame)
	assert.Equal(t, game.StatusCreated, row.Status)

	var dir game.Directory = db
	require.NoError(t, dir.SetStatus("beta", game.StatusFinished))
	row, err = db.GetGame("beta")
	require.NoError(t, err)
	assert.Equal(t, game.StatusFinished, row.Status)

	rows, err := db.ListGames()
	require.NoError(t, err)
	assert.Len(t, rows, 2)

	require.NoError(t, db.DeleteGame("alpha"))
	row, err = db.GetGame("alpha")
	require.NoError(t, err)
	assert.Nil(t, row)

	require.NoError(t, db.ClearGames())
	rows, err = db.ListGames()
	require.NoError(t, err)
	assert.Empty(t, rows)
}

func TestSettings(t *testing.T) {
	db := openTestDB(t)
	assert.Empty(t, db.GetSetting("k"))
	require.NoError(t, db.SetSetting("k", "v1"))
	require.NoError(t, db.SetSetting("k", "v2"))
	assert.Equal(t, "v2", db.GetSetting("k"))
}

func TestAnalyticsFlushOnStop(t *testing.T) {
	db := openTestDB(t)
	a := NewAnalytics(db)

	var sink game.EventSink = a
	sink.Track(game.EvtGameStart, "alpha", "", "")
	sink.Track(game.EvtPurchase, "alpha", "alice", "speed")
	sink.Track(game.EvtPurchase, "alpha", "bob", "speed")
	sink.Track(game.EvtPurchase, "alpha", "bob", "attack")
	a.Stop()
	a.Stop()

	counts, err := a.EventCounts(1)
	require.NoError(t, err)
	assert.Equal(t, map[string]int{game.EvtGameStart: 1, game.EvtPurchase: 3}, counts)

	top, err := a.PopularUpgrades(5)
	require.NoError(t, err)
	assert.Equal(t, []ItemAnalytics{{Item: "speed", Count: 2}, {Item: "attack", Count: 1}}, top)
}

func TestAnalyticsLiveGauges(t *testing.T) {
	a := NewAnalytics(nil)
	defer a.Stop()
	a.SetLive(3, 1)
	conns, sessions := a.Live()
	assert.Equal(t, 3, conns)
	assert.Equal(t, 1, sessions)
}
