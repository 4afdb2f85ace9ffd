package db_test

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"lfreader/db"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// lockStore takes the write lock on the store's file from another connection
func lockStore(t *testing.T, path string) func() {
	t.Helper()
	tx, err := rawDB(t, path).Begin()
	require.NoError(t, err)
	_, err = tx.Exec(`UPDATE feeds SET title = 'locked' WHERE id = 'f1'`)
	require.NoError(t, err)
	return func() { tx.Rollback() }
}

func TestRetryGivesUpWithTransientError(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "lfreader.db")
	store := newStore(t, db.Options{
		Path:        path,
		BusyTimeout: time.Millisecond,
		Retry: db.RetryConfig{
			MaxAttempts:     3,
			InitialInterval: time.Millisecond,
			MaxInterval:     5 * time.Millisecond,
		},
	})
	require.NoError(t, store.UpsertFeed(ctx, feed("f1")))

	release := lockStore(t, path)
	defer release()

	err := store.AddTag(ctx, "f1", "news")
	require.Error(t, err)

	var transient *db.TransientStoreError
	require.ErrorAs(t, err, &transient)
	assert.Equal(t, 3, transient.Attempts)

	// reads are not blocked by the writer in WAL mode
	feeds, err := store.GetFeeds(ctx)
	require.NoError(t, err)
	assert.Len(t, feeds, 1)
}

func TestRetryRecoversWhenLockIsReleased(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "lfreader.db")
	store := newStore(t, db.Options{
		Path:        path,
		BusyTimeout: time.Millisecond,
		Retry: db.RetryConfig{
			MaxAttempts:     50,
			InitialInterval: 5 * time.Millisecond,
			MaxInterval:     20 * time.Millisecond,
		},
	})
	require.NoError(t, store.UpsertFeed(ctx, feed("f1")))

	release := lockStore(t, path)
	go func() {
		time.Sleep(50 * time.Millisecond)
		release()
	}()

	require.NoError(t, store.AddTag(ctx, "f1", "news"))

	got, err := store.GetFeed(ctx, "f1")
	require.NoError(t, err)
	assert.Equal(t, []string{"news"}, got.Tags)
}

func TestRetryStopsOnCancelledContext(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "lfreader.db")
	store := newStore(t, db.Options{
		Path:        path,
		BusyTimeout: time.Millisecond,
		Retry: db.RetryConfig{
			MaxAttempts:     1000,
			InitialInterval: 10 * time.Millisecond,
			MaxInterval:     10 * time.Millisecond,
		},
	})
	require.NoError(t, store.UpsertFeed(ctx, feed("f1")))

	release := lockStore(t, path)
	defer release()

	cctx, cancel := context.WithTimeout(ctx, 50*time.Millisecond)
	defer cancel()

	start := time.Now()
	err := store.AddTag(cctx, "f1", "news")
	require.Error(t, err)
	assert.Less(t, time.Since(start), 5*time.Second)
}
