package main

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	bcryptCost = bcrypt.MinCost
	db, err := OpenDB(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func TestTokenRoundTrip(t *testing.T) {
	auth := NewAuth(openTestDB(t), "k1")
	token, err := auth.Issue(42, "alice")
	require.NoError(t, err)

	pid, usr, err := auth.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, int64(42), pid)
	assert.Equal(t, "alice", usr)

	_, _, err = NewAuth(nil, "k2").ValidateToken(token)
	assert.ErrorIs(t, err, ErrInvalidToken, "other secret")
}

func TestExpiredAndForeignTokensRejected(t *testing.T) {
	auth := NewAuth(nil, "k1")

	expired := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"usr": "alice",
		"exp": time.Now().Add(-time.Minute).Unix(),
	})
	signed, err := expired.SignedString([]byte("k1"))
	require.NoError(t, err)
	_, _, err = auth.ValidateToken(signed)
	assert.ErrorIs(t, err, ErrInvalidToken)

	anonymous := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"pid": 1})
	signed, err = anonymous.SignedString([]byte("k1"))
	require.NoError(t, err)
	_, _, err = auth.ValidateToken(signed)
	assert.ErrorIs(t, err, ErrInvalidToken, "username claim is required")
}

func TestSecretPersistsInSettings(t *testing.T) {
	db := openTestDB(t)
	first := NewAuth(db, "")
	token, err := first.Issue(1, "alice")
	require.NoError(t, err)

	_, usr, err := NewAuth(db, "").ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, "alice", usr)
	assert.Len(t, db.GetSetting("jwt_secret"), 64)
}

func TestRegisterAndLogin(t *testing.T) {
	auth := NewAuth(openTestDB(t), "k")

	_, _, err := auth.Register("a", "", "long enough")
	assert.Error(t, err, "short username")
	_, _, err = auth.Register("alice", "", "abc")
	assert.Error(t, err, "short password")

	id, token, err := auth.Register(" alice ", "a@example.com", "pass1234")
	require.NoError(t, err)
	assert.NotEmpty(t, token)

	_, _, err = auth.Register("alice", "", "pass1234")
	assert.EqualError(t, err, "username already taken")

	got, _, err := auth.Login("alice", "pass1234", "1.2.3.4")
	require.NoError(t, err)
	assert.Equal(t, id, got)

	_, _, err = auth.Login("alice", "wrong", "1.2.3.4")
	assert.EqualError(t, err, "invalid username or password")
	_, _, err = auth.Login("nobody", "pass1234", "1.2.3.4")
	assert.EqualError(t, err, "invalid username or password")
}

func TestLoginRateLimit(t *testing.T) {
	auth := NewAuth(openTestDB(t), "k")
	for i := 0; i < maxLoginAttempts; i++ {
		_, _, err := auth.Login("ghost", "x", "9.9.9.9")
		require.EqualError(t, err, "invalid username or password")
	}
	_, _, err := auth.Login("ghost", "x", "9.9.9.9")
	assert.ErrorContains(t, err, "too many login attempts")

	_, _, err = auth.Login("ghost", "x", "8.8.8.8")
	assert.EqualError(t, err, "invalid username or password", "limit is per address")
}

func TestRoomPasswordHash(t *testing.T) {
	bcryptCost = bcrypt.MinCost
	hash, err := HashPassword("open sesame")
	require.NoError(t, err)
	assert.NotEqual(t, "open sesame", hash)
	assert.True(t, CheckPassword(hash, "open sesame"))
	assert.False(t, CheckPassword(hash, "open"))
}

func TestGuestNames(t *testing.T) {
	a, b := GenerateGuestName(), GenerateGuestName()
	assert.Regexp(t, `^Guest_[0-9a-f]{6}$`, a)
	assert.NotEqual(t, a, b)
}
