package service

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"studynote/internal/repository"
	"studynote/internal/store"
)

// testNow is the frozen clock used across the service tests.
var testNow = time.Date(2026, 9, 1, 12, 0, 0, 0, time.UTC)

func newTestKV(t *testing.T) *repository.KV {
	t.Helper()
	db, err := repository.NewDB(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	return repository.NewKV(db)
}

func newTestStore(t *testing.T) *store.TaskStore {
	t.Helper()
	s, err := store.New(context.Background(), newTestKV(t), 0)
	require.NoError(t, err)
	return s
}

func fixedClock(at time.Time) func() time.Time {
	return func() time.Time { return at }
}
