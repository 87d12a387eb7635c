package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "VC-", cfg.Rooms.RoomPrefix)
	assert.Equal(t, 2, cfg.Rooms.UserLimit)
	assert.Equal(t, 2*time.Minute, cfg.Rooms.ReconcileInterval)
	assert.False(t, cfg.Rooms.RequireTickets)
	assert.True(t, cfg.Worker.CleanupEnabled)
	assert.Equal(t, 10, cfg.Database.MaxConns)
	assert.Equal(t, 5, cfg.Redis.ConnectAttempts)
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("RECONCILE_INTERVAL", "30s")
	t.Setenv("ROOMS_REQUIRE_TICKETS", "true")
	t.Setenv("ROOM_USER_LIMIT", "5")
	t.Setenv("REDIS_DB", "not-a-number")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 30*time.Second, cfg.Rooms.ReconcileInterval)
	assert.True(t, cfg.Rooms.RequireTickets)
	assert.Equal(t, 5, cfg.Rooms.UserLimit)
	assert.Equal(t, 0, cfg.Redis.DB)
}

func TestLoadRejectsNonPositiveUserLimit(t *testing.T) {
	t.Setenv("ROOM_USER_LIMIT", "0")

	_, err := Load()
	assert.Error(t, err)
}

func TestDSNPrefersURL(t *testing.T) {
	t.Parallel()

	c := DatabaseConfig{URL: "postgres://example/db", Host: "ignored"}
	assert.Equal(t, "postgres://example/db", c.DSN())

	c = DatabaseConfig{User: "u", Password: "p", Host: "h", Port: "5432", DBName: "d", SSLMode: "disable"}
	assert.Equal(t, "postgres://u:p@h:5432/d?sslmode=disable", c.DSN())
}
