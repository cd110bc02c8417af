package sqlite

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/bnema/huddle/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixedClock struct{ now time.Time }

func (c fixedClock) Now() time.Time { return c.now }

func openTestLog(t *testing.T) *Log {
	t.Helper()

	log, err := Open(context.Background(), filepath.Join(t.TempDir(), "history", "past_pairings.db"),
		fixedClock{now: time.Date(2026, time.October, 19, 9, 0, 0, 0, time.UTC)})
	require.NoError(t, err)
	t.Cleanup(func() { _ = log.Close() })
	return log
}

func TestLogAppendAndEntriesKeepInsertionOrder(t *testing.T) {
	t.Parallel()

	log := openTestLog(t)
	ctx := context.Background()

	require.NoError(t, log.Append(ctx, "a@x b@x"))
	require.NoError(t, log.Append(ctx, " c@x d@x "))

	entries, err := log.Entries(ctx)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "a@x b@x", entries[0].Raw)
	assert.Equal(t, "c@x d@x", entries[1].Raw)
	assert.Less(t, entries[0].ID, entries[1].ID)

	var createdAt string
	require.NoError(t, log.db.QueryRowContext(ctx, `SELECT created_at FROM pairings WHERE id = ?`, entries[0].ID).Scan(&createdAt))
	assert.Equal(t, "2026-10-19T09:00:00Z", createdAt)
}

func TestLogRemoveByIDAndByMembers(t *testing.T) {
	t.Parallel()

	log := openTestLog(t)
	ctx := context.Background()
	for _, raw := range []string{"a@x b@x", "c@x d@x", "a@x b@x"} {
		require.NoError(t, log.Append(ctx, raw))
	}

	entries, err := log.Entries(ctx)
	require.NoError(t, err)
	require.NoError(t, log.Remove(ctx, entries[1]))

	require.NoError(t, log.Remove(ctx, domain.HistoryEntry{Raw: "a@x b@x"}))

	remaining, err := log.Entries(ctx)
	require.NoError(t, err)
	require.Len(t, remaining, 1)
	assert.Equal(t, entries[2], remaining[0])

	assert.ErrorIs(t, log.Remove(ctx, entries[0]), domain.ErrHistoryCorruption)
}

func TestLogRejectsEmptyAppend(t *testing.T) {
	t.Parallel()

	assert.ErrorIs(t, openTestLog(t).Append(context.Background(), "   "), domain.ErrHistoryCorruption)
}

func TestLogPersistsAcrossReopen(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "past_pairings.db")
	ctx := context.Background()

	first, err := Open(ctx, path, nil)
	require.NoError(t, err)
	require.NoError(t, first.Append(ctx, "a@x b@x"))
	require.NoError(t, first.Close())

	second, err := Open(ctx, path, nil)
	require.NoError(t, err)
	defer second.Close()

	entries, err := second.Entries(ctx)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "a@x b@x", entries[0].Raw)
}

func TestOpenRejectsEmptyPath(t *testing.T) {
	t.Parallel()

	_, err := Open(context.Background(), "", nil)
	assert.ErrorIs(t, err, domain.ErrInvalidConfig)
}
