package db_test

import (
	"context"
	"path/filepath"
	"testing"

	"lfreader/codec"
	"lfreader/db"
	"lfreader/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetFeedsEmptyFeed(t *testing.T) {
	ctx := context.Background()
	store := newStore(t, db.Options{})

	require.NoError(t, store.UpsertFeed(ctx, feed("F1")))

	feeds, err := store.GetFeeds(ctx)
	require.NoError(t, err)
	require.Len(t, feeds, 1)
	assert.Equal(t, "F1", feeds[0].Id)
	assert.Empty(t, feeds[0].Entries)
	assert.Empty(t, feeds[0].Tags)

	require.NoError(t, store.UpsertEntry(ctx, entry("F1", "E1", date("2024-01-01"))))
	require.NoError(t, store.UpsertEntry(ctx, entry("F1", "E2", date("2024-02-01"))))

	feeds, err = store.GetFeeds(ctx)
	require.NoError(t, err)
	require.Len(t, feeds, 1)
	assert.Equal(t, []string{"E2", "E1"}, entryIDs(feeds[0].Entries))
	assert.Equal(t, date("2024-02-01"), feeds[0].Entries[0].Published)
}

func TestGetFeedsAssembly(t *testing.T) {
	ctx := context.Background()
	store := newStore(t, db.Options{})

	for _, id := range []string{"b", "a"} {
		require.NoError(t, store.UpsertFeed(ctx, feed(id)))
		require.NoError(t, store.UpsertEntries(ctx, []models.Entry{
			entry(id, "first", date("2024-01-01")),
			entry(id, id+"-only", date("2024-03-01")),
		}))
		require.NoError(t, store.AddTag(ctx, id, "shared"))
	}
	require.NoError(t, store.AddTag(ctx, "a", "extra"))

	feeds, err := store.GetFeeds(ctx)
	require.NoError(t, err)
	require.Len(t, feeds, 2)

	tests := []struct {
		id      string
		entries []string
		tags    []string
	}{
		{id: "a", entries: []string{"a-only", "first"}, tags: []string{"extra", "shared"}},
		{id: "b", entries: []string{"b-only", "first"}, tags: []string{"shared"}},
	}

	for i, tt := range tests {
		t.Run(tt.id, func(t *testing.T) {
			got := feeds[i]
			assert.Equal(t, tt.id, got.Id)
			assert.Equal(t, tt.entries, entryIDs(got.Entries))
			assert.Equal(t, tt.tags, got.Tags)
			for _, e := range got.Entries {
				assert.Equal(t, tt.id, e.Feed)
			}
			assert.Equal(t, feed(tt.id).Links, got.Links)
		})
	}
}

func TestGetFeedsOrderingIsStable(t *testing.T) {
	ctx := context.Background()
	store := newStore(t, db.Options{})

	require.NoError(t, store.UpsertFeed(ctx, feed("f1")))
	// inserted in the order A, B, C but with ids that sort differently
	for _, id := range []string{"zz-a", "mm-b", "aa-c"} {
		require.NoError(t, store.UpsertEntry(ctx, entry("f1", id, nil)))
	}
	require.NoError(t, store.UpsertEntry(ctx, entry("f1", "dated", date("2020-01-01"))))
	// updating an undated entry must not move it
	require.NoError(t, store.UpsertEntry(ctx, entry("f1", "zz-a", nil)))

	expected := []string{"dated", "zz-a", "mm-b", "aa-c"}
	for i := 0; i < 3; i++ {
		feeds, err := store.GetFeeds(ctx)
		require.NoError(t, err)
		require.Len(t, feeds, 1)
		assert.Equal(t, expected, entryIDs(feeds[0].Entries))
	}
}

func TestUndatedOrderIgnoresRowid(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "lfreader.db")
	store := newStore(t, db.Options{Path: path})

	require.NoError(t, store.UpsertFeed(ctx, feed("f1")))
	for _, id := range []string{"first", "second", "third"} {
		require.NoError(t, store.UpsertEntry(ctx, entry("f1", id, nil)))
	}

	// VACUUM may renumber rowids; reverse them to make it deterministic
	raw := rawDB(t, path)
	_, err := raw.Exec(`UPDATE entries SET rowid = 1000 - rowid`)
	require.NoError(t, err)

	entries, err := store.GetEntries(ctx, db.EntryQuery{})
	require.NoError(t, err)
	assert.Equal(t, []string{"first", "second", "third"}, entryIDs(entries))

	// a later insert still goes last
	require.NoError(t, store.UpsertEntry(ctx, entry("f1", "fourth", nil)))
	entries, err = store.GetEntries(ctx, db.EntryQuery{})
	require.NoError(t, err)
	assert.Equal(t, []string{"first", "second", "third", "fourth"}, entryIDs(entries))
}

func TestGetFeed(t *testing.T) {
	ctx := context.Background()
	store := newStore(t, db.Options{})

	got, err := store.GetFeed(ctx, "unknown")
	require.NoError(t, err)
	assert.Nil(t, got)

	f := feed("f1")
	f.Authors = []models.Person{{Name: "Ada", Email: models.StringPtr("ada@example.com")}}
	f.Description = models.StringPtr("About things")
	f.Updated = date("2024-05-01")
	require.NoError(t, store.UpsertFeed(ctx, f))
	require.NoError(t, store.UpsertFeed(ctx, feed("f2")))
	require.NoError(t, store.UpsertEntry(ctx, entry("f2", "other", nil)))

	got, err = store.GetFeed(ctx, "f1")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, f.Authors, got.Authors)
	assert.Equal(t, f.Description, got.Description)
	assert.Equal(t, f.Updated, got.Updated)
	assert.Nil(t, got.Published)
	assert.Empty(t, got.Entries)
}

func TestGetFeedsByTag(t *testing.T) {
	ctx := context.Background()
	store := newStore(t, db.Options{})

	for _, id := range []string{"f1", "f2", "f3"} {
		require.NoError(t, store.UpsertFeed(ctx, feed(id)))
		require.NoError(t, store.UpsertEntry(ctx, entry(id, "e1", nil)))
	}
	require.NoError(t, store.AddTag(ctx, "f1", "news"))
	require.NoError(t, store.AddTag(ctx, "f3", "news"))
	require.NoError(t, store.AddTag(ctx, "f3", "tech"))

	feeds, err := store.GetFeedsByTag(ctx, "news")
	require.NoError(t, err)
	require.Len(t, feeds, 2)
	assert.Equal(t, "f1", feeds[0].Id)
	assert.Equal(t, "f3", feeds[1].Id)
	assert.Equal(t, []string{"news", "tech"}, feeds[1].Tags)
	assert.Len(t, feeds[1].Entries, 1)

	feeds, err = store.GetFeedsByTag(ctx, "unknown")
	require.NoError(t, err)
	assert.Empty(t, feeds)

	tags, err := store.ListTags(ctx)
	require.NoError(t, err)
	assert.Equal(t, []models.TagCount{{Name: "news", Feeds: 2}, {Name: "tech", Feeds: 1}}, tags)
}

func TestGetEntries(t *testing.T) {
	ctx := context.Background()
	store := newStore(t, db.Options{})

	require.NoError(t, store.UpsertFeed(ctx, feed("f1")))
	require.NoError(t, store.UpsertFeed(ctx, feed("f2")))
	require.NoError(t, store.UpsertEntries(ctx, []models.Entry{
		entry("f1", "e1", date("2024-01-01")),
		entry("f1", "e2", date("2024-01-03")),
	}))
	require.NoError(t, store.UpsertEntries(ctx, []models.Entry{
		entry("f2", "e3", date("2024-01-02")),
		entry("f2", "e4", nil),
	}))
	require.NoError(t, store.AddTag(ctx, "f2", "news"))

	_, err := store.SetEntryStatus(ctx, "e2", "f1", models.FlagRead, true)
	require.NoError(t, err)
	_, err = store.SetEntryStatus(ctx, "e3", "f2", models.FlagStarred, true)
	require.NoError(t, err)

	tests := []struct {
		name     string
		query    db.EntryQuery
		expected []string
	}{
		{name: "all", query: db.EntryQuery{}, expected: []string{"e2", "e3", "e1", "e4"}},
		{name: "one feed", query: db.EntryQuery{FeedIDs: []string{"f1"}}, expected: []string{"e2", "e1"}},
		{name: "two feeds", query: db.EntryQuery{FeedIDs: []string{"f1", "f2"}}, expected: []string{"e2", "e3", "e1", "e4"}},
		{name: "by tag", query: db.EntryQuery{Tag: "news"}, expected: []string{"e3", "e4"}},
		{name: "unread", query: db.EntryQuery{UnreadOnly: true}, expected: []string{"e3", "e1", "e4"}},
		{name: "starred", query: db.EntryQuery{StarredOnly: true}, expected: []string{"e3"}},
		{name: "first page", query: db.EntryQuery{Limit: 2}, expected: []string{"e2", "e3"}},
		{name: "second page", query: db.EntryQuery{Limit: 2, Offset: 2}, expected: []string{"e1", "e4"}},
		{name: "offset only", query: db.EntryQuery{Offset: 3}, expected: []string{"e4"}},
		{name: "unknown feed", query: db.EntryQuery{FeedIDs: []string{"nope"}}, expected: []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			entries, err := store.GetEntries(ctx, tt.query)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, entryIDs(entries))
		})
	}
}

func TestGetEntryNotFound(t *testing.T) {
	ctx := context.Background()
	store := newStore(t, db.Options{})

	require.NoError(t, store.UpsertFeed(ctx, feed("f1")))

	_, err := store.GetEntry(ctx, "e1", "f1")
	assert.ErrorIs(t, err, db.ErrNotFound)
}

func TestDecodePolicySkip(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "lfreader.db")

	var skipped []*db.RowError
	store := newStore(t, db.Options{
		Path:          path,
		Decode:        db.DecodeSkip,
		OnDecodeError: func(rerr *db.RowError) { skipped = append(skipped, rerr) },
	})

	for _, id := range []string{"good", "bad"} {
		require.NoError(t, store.UpsertFeed(ctx, feed(id)))
		require.NoError(t, store.UpsertEntries(ctx, []models.Entry{
			entry(id, "e1", date("2024-01-01")),
			entry(id, "e2", date("2024-01-02")),
		}))
		require.NoError(t, store.AddTag(ctx, id, "shared"))
	}

	raw := rawDB(t, path)
	_, err := raw.Exec(`UPDATE entries SET authors = 'not json' WHERE feed = 'good' AND id = 'e2'`)
	require.NoError(t, err)
	_, err = raw.Exec(`UPDATE feeds SET links = '{"href":' WHERE id = 'bad'`)
	require.NoError(t, err)

	feeds, err := store.GetFeeds(ctx)
	require.NoError(t, err)
	require.Len(t, feeds, 1)
	assert.Equal(t, "good", feeds[0].Id)
	assert.Equal(t, []string{"e1"}, entryIDs(feeds[0].Entries))
	assert.Equal(t, []string{"shared"}, feeds[0].Tags)

	require.Len(t, skipped, 2)
	tables := map[string]*db.RowError{}
	for _, rerr := range skipped {
		tables[rerr.Table] = rerr
	}
	require.Contains(t, tables, "feeds")
	require.Contains(t, tables, "entries")
	assert.Equal(t, "bad", tables["feeds"].Feed)
	assert.Equal(t, "good", tables["entries"].Feed)
	assert.Equal(t, "e2", tables["entries"].Entry)

	var decodeErr *codec.DecodeError
	require.ErrorAs(t, tables["entries"], &decodeErr)
	assert.Equal(t, "authors", decodeErr.Column)

	// a single feed read still reports its own broken row
	got, err := store.GetFeed(ctx, "bad")
	assert.Nil(t, got)
	require.ErrorAs(t, err, &decodeErr)
	assert.Equal(t, "links", decodeErr.Column)

	// the broken entry is skipped from listings too
	entries, err := store.GetEntries(ctx, db.EntryQuery{FeedIDs: []string{"good"}})
	require.NoError(t, err)
	assert.Equal(t, []string{"e1"}, entryIDs(entries))
}

func TestDecodePolicyFail(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "lfreader.db")
	store := newStore(t, db.Options{Path: path, Decode: db.DecodeFail})

	require.NoError(t, store.UpsertFeed(ctx, feed("f1")))
	require.NoError(t, store.UpsertEntry(ctx, entry("f1", "e1", nil)))
	require.NoError(t, store.UpsertEntry(ctx, entry("f1", "e2", nil)))

	_, err := rawDB(t, path).Exec(`UPDATE entries SET published = 'last tuesday' WHERE id = 'e2'`)
	require.NoError(t, err)

	feeds, err := store.GetFeeds(ctx)
	assert.Nil(t, feeds)

	var rerr *db.RowError
	require.ErrorAs(t, err, &rerr)
	assert.Equal(t, "entries", rerr.Table)
	assert.Equal(t, "e2", rerr.Entry)

	var decodeErr *codec.DecodeError
	require.ErrorAs(t, err, &decodeErr)
	assert.Equal(t, "published", decodeErr.Column)

	_, err = store.GetEntry(ctx, "e2", "f1")
	assert.ErrorAs(t, err, &rerr)

	_, err = store.GetEntry(ctx, "e1", "f1")
	assert.NoError(t, err)
}

func TestDecodeStatusOutOfRange(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "lfreader.db")
	store := newStore(t, db.Options{Path: path, Decode: db.DecodeFail})

	require.NoError(t, store.UpsertFeed(ctx, feed("f1")))
	require.NoError(t, store.UpsertEntry(ctx, entry("f1", "e1", nil)))

	_, err := rawDB(t, path).Exec(`UPDATE entries SET status = ? WHERE id = 'e1'`, int64(1)<<40)
	require.NoError(t, err)

	_, err = store.GetEntry(ctx, "e1", "f1")
	var decodeErr *codec.DecodeError
	require.ErrorAs(t, err, &decodeErr)
	assert.Equal(t, "status", decodeErr.Column)
}
