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

	assert.Equal(t, "studynote.db", cfg.DatabaseURL)
	assert.Equal(t, time.Minute, cfg.SweepInterval)
	assert.Equal(t, 100*time.Millisecond, cfg.StoreLatency)
	assert.Equal(t, "08:00", cfg.DigestTime)
	assert.Equal(t, 587, cfg.SMTP.Port)
	assert.False(t, cfg.MailConfigured())
}

func TestLoadFromEnvironment(t *testing.T) {
	t.Setenv("DATABASE_URL", "data/planner.db")
	t.Setenv("SWEEP_INTERVAL", "30s")
	t.Setenv("STORE_LATENCY", "10ms")
	t.Setenv("DIGEST_TIME", "21:30")
	t.Setenv("DIGEST_TO", "student@example.com")
	t.Setenv("SMTP_HOST", "smtp.example.com")
	t.Setenv("SMTP_FROM", "planner@example.com")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "data/planner.db", cfg.DatabaseURL)
	assert.Equal(t, 30*time.Second, cfg.SweepInterval)
	assert.Equal(t, 10*time.Millisecond, cfg.StoreLatency)
	assert.Equal(t, "21:30", cfg.DigestTime)
	assert.True(t, cfg.MailConfigured())
}

func TestLoadRejectsBadDigestTime(t *testing.T) {
	t.Setenv("DIGEST_TIME", "25:00")

	_, err := Load()
	assert.Error(t, err)
}

func TestParseClock(t *testing.T) {
	clock, err := ParseClock("08:05")
	require.NoError(t, err)
	assert.Equal(t, [2]int{8, 5}, clock)

	for _, bad := range []string{"8", "aa:bb", "24:00", "12:60", ""} {
		_, err := ParseClock(bad)
		assert.Error(t, err, "value %q", bad)
	}
}
