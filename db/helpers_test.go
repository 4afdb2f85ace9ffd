package db_test

import (
	"context"
	"database/sql"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"lfreader/db"
	"lfreader/models"

	"github.com/stretchr/testify/require"
)

func newStore(t *testing.T, opts db.Options) *db.Store {
	t.Helper()
	if opts.Path == "" {
		opts.Path = filepath.Join(t.TempDir(), "lfreader.db")
	}
	if opts.BusyTimeout == 0 {
		opts.BusyTimeout = time.Second
	}
	store, err := db.Open(context.Background(), opts)
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

// rawDB opens the store's file behind its back, to corrupt rows or hold locks
func rawDB(t *testing.T, path string) *sql.DB {
	t.Helper()
	raw, err := sql.Open("sqlite", fmt.Sprintf("%s?_pragma=busy_timeout(0)", path))
	require.NoError(t, err)
	raw.SetMaxOpenConns(1)
	t.Cleanup(func() { raw.Close() })
	return raw
}

func date(s string) *time.Time {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic(err)
	}
	return &t
}

func feed(id string) models.Feed {
	return models.Feed{
		Id:    id,
		Title: models.StringPtr("Feed " + id),
		Links: []models.Link{{Href: "https://example.com/" + id, Rel: models.StringPtr("alternate")}},
	}
}

func entry(feedID, id string, published *time.Time) models.Entry {
	return models.Entry{
		Id:        id,
		Feed:      feedID,
		Title:     &models.Text{ContentType: models.TextPlain, Content: "Entry " + id},
		Published: published,
	}
}

func entryIDs(entries []models.Entry) []string {
	ids := make([]string, len(entries))
	for i, e := range entries {
		ids[i] = e.Id
	}
	return ids
}
