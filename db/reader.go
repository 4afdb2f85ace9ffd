package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"lfreader/models"
	"lfreader/query"

	sqlbuilder "github.com/huandu/go-sqlbuilder"
	"github.com/samber/lo"
)

// EntryQuery selects a page of entries across feeds
type EntryQuery struct {
	// FeedIDs restricts the listing to these feeds, all feeds when empty
	FeedIDs     []string
	Tag         string
	UnreadOnly  bool
	StarredOnly bool
	Offset      int
	// Limit of zero returns every matching entry
	Limit int
}

func (q EntryQuery) filters() []query.FilterStrategy {
	var filters []query.FilterStrategy
	if len(q.FeedIDs) > 0 {
		filters = append(filters, &query.FeedFilter{IDs: q.FeedIDs})
	}
	if q.Tag != "" {
		filters = append(filters, &query.TagFilter{Name: q.Tag})
	}
	if q.UnreadOnly {
		filters = append(filters, &query.FlagFilter{Flag: models.FlagRead, Set: false})
	}
	if q.StarredOnly {
		filters = append(filters, &query.FlagFilter{Flag: models.FlagStarred, Set: true})
	}
	return filters
}

// GetFeeds returns every feed with its entries and tags attached. Feeds are
// ordered by id, tags by name and entries newest first.
func (s *Store) GetFeeds(ctx context.Context) ([]models.Feed, error) {
	return s.getFeeds(ctx, "get_feeds", feedScope{})
}

// GetFeedsByTag returns the feeds carrying the tag, assembled like GetFeeds
func (s *Store) GetFeedsByTag(ctx context.Context, name string) ([]models.Feed, error) {
	return s.getFeeds(ctx, "get_feeds_by_tag", feedScope{tag: name})
}

func (s *Store) getFeeds(ctx context.Context, name string, scope feedScope) ([]models.Feed, error) {
	var (
		feeds   []models.Feed
		skipped []*RowError
	)
	err := s.withReadTx(ctx, name, func(tx *sql.Tx) error {
		skipped = nil
		var err error
		feeds, err = s.assemble(ctx, tx, scope, &skipped)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("get feeds: %w", err)
	}
	s.reportSkipped(skipped)
	return feeds, nil
}

// GetFeed returns one assembled feed, or nil without an error when no feed
// has that id. A feed row that cannot be decoded is always an error.
func (s *Store) GetFeed(ctx context.Context, id string) (*models.Feed, error) {
	var (
		feeds   []models.Feed
		skipped []*RowError
	)
	err := s.withReadTx(ctx, "get_feed", func(tx *sql.Tx) error {
		skipped = nil
		var err error
		feeds, err = s.assemble(ctx, tx, feedScope{ids: []string{id}}, &skipped)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("get feed %q: %w", id, err)
	}

	for _, rerr := range skipped {
		if rerr.Table == "feeds" {
			decodeErrors.WithLabelValues(rerr.Table).Inc()
			return nil, fmt.Errorf("get feed %q: %w", id, rerr)
		}
	}
	s.reportSkipped(skipped)

	if len(feeds) == 0 {
		return nil, nil
	}
	return &feeds[0], nil
}

// GetEntries lists entries across feeds in the order GetFeeds uses within a
// feed, ties broken by feed id
func (s *Store) GetEntries(ctx context.Context, q EntryQuery) ([]models.Entry, error) {
	builder := query.NewEntryQueryBuilder(entrySelectColumns...)
	for _, f := range q.filters() {
		builder.AddFilter(f)
	}
	sqlStr, args := builder.Build(q.Limit, q.Offset)

	var (
		entries []models.Entry
		skipped []*RowError
	)
	err := s.withReadTx(ctx, "get_entries", func(tx *sql.Tx) error {
		skipped = nil
		var err error
		entries, err = s.queryEntries(ctx, tx, sqlStr, args, &skipped)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("get entries: %w", err)
	}
	s.reportSkipped(skipped)
	return entries, nil
}

// GetEntry returns a single entry or ErrNotFound
func (s *Store) GetEntry(ctx context.Context, id, feed string) (*models.Entry, error) {
	sb := sqlbuilder.SQLite.NewSelectBuilder()
	sb.Select(entrySelectColumns...).From("entries").
		Where(sb.Equal("entries.id", id), sb.Equal("entries.feed", feed))
	sqlStr, args := sb.Build()

	var entry models.Entry
	err := s.withReadTx(ctx, "get_entry", func(tx *sql.Tx) error {
		row, err := scanEntry(tx.QueryRowContext(ctx, sqlStr, args...))
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return ErrNotFound
			}
			return err
		}
		entry, err = row.decode()
		if err != nil {
			return &RowError{Table: "entries", Feed: feed, Entry: id, Err: err}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("entry %q of feed %q: %w", id, feed, err)
	}
	return &entry, nil
}

// ListTags returns every tag name with the number of feeds carrying it
func (s *Store) ListTags(ctx context.Context) ([]models.TagCount, error) {
	sb := sqlbuilder.SQLite.NewSelectBuilder()
	sb.Select("name", "COUNT(feed)").From("feed_tags").GroupBy("name").OrderBy("name").Asc()
	sqlStr, args := sb.Build()

	var tags []models.TagCount
	err := s.withReadTx(ctx, "list_tags", func(tx *sql.Tx) error {
		rows, err := tx.QueryContext(ctx, sqlStr, args...)
		if err != nil {
			return err
		}
		defer rows.Close()

		tags = nil
		for rows.Next() {
			var tag models.TagCount
			if err := rows.Scan(&tag.Name, &tag.Feeds); err != nil {
				return err
			}
			tags = append(tags, tag)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, fmt.Errorf("list tags: %w", err)
	}
	return tags, nil
}

// feedScope narrows the assembly queries to some feeds
type feedScope struct {
	ids []string
	tag string
}

func (sc feedScope) where(sb *sqlbuilder.SelectBuilder, column string) {
	if len(sc.ids) > 0 {
		sb.Where(sb.In(column, sqlbuilder.List(sc.ids)))
	}
	if sc.tag != "" {
		tagged := sqlbuilder.SQLite.NewSelectBuilder()
		tagged.Select("feed").From("feed_tags").Where(tagged.Equal("name", sc.tag))
		sb.Where(sb.In(column, tagged))
	}
}

func (sc feedScope) entryFilters() []query.FilterStrategy {
	return EntryQuery{FeedIDs: sc.ids, Tag: sc.tag}.filters()
}

// assemble reads the feeds in scope, then all their entries, then all their
// tags, and attaches entries and tags to their feed in memory
func (s *Store) assemble(ctx context.Context, tx *sql.Tx, scope feedScope, skipped *[]*RowError) ([]models.Feed, error) {
	fb := sqlbuilder.SQLite.NewSelectBuilder()
	fb.Select(feedSelectColumns...).From("feeds")
	scope.where(fb, "feeds.id")
	fb.OrderBy("feeds.id").Asc()
	sqlStr, args := fb.Build()

	feeds, err := s.queryFeeds(ctx, tx, sqlStr, args, skipped)
	if err != nil {
		return nil, err
	}

	eb := query.NewEntryQueryBuilder(entrySelectColumns...)
	for _, f := range scope.entryFilters() {
		eb.AddFilter(f)
	}
	sqlStr, args = eb.Build(0, 0)

	entries, err := s.queryEntries(ctx, tx, sqlStr, args, skipped)
	if err != nil {
		return nil, err
	}

	tb := sqlbuilder.SQLite.NewSelectBuilder()
	tb.Select("feed_tags.name", "feed_tags.feed").From("feed_tags")
	scope.where(tb, "feed_tags.feed")
	tb.OrderBy("feed_tags.feed", "feed_tags.name").Asc()
	sqlStr, args = tb.Build()

	tags, err := queryTags(ctx, tx, sqlStr, args)
	if err != nil {
		return nil, err
	}

	// GroupBy keeps the query order within each group
	entriesByFeed := lo.GroupBy(entries, func(e models.Entry) string { return e.Feed })
	tagsByFeed := lo.GroupBy(tags, func(t models.Tag) string { return t.Feed })

	for i := range feeds {
		feeds[i].Entries = entriesByFeed[feeds[i].Id]
		if feeds[i].Entries == nil {
			feeds[i].Entries = []models.Entry{}
		}
		feeds[i].Tags = lo.Map(tagsByFeed[feeds[i].Id], func(t models.Tag, _ int) string { return t.Name })
	}
	return feeds, nil
}

func (s *Store) queryFeeds(ctx context.Context, tx *sql.Tx, sqlStr string, args []interface{}, skipped *[]*RowError) ([]models.Feed, error) {
	rows, err := tx.QueryContext(ctx, sqlStr, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	feeds := []models.Feed{}
	for rows.Next() {
		row, err := scanFeed(rows)
		if err != nil {
			return nil, err
		}
		feed, err := row.decode()
		if err != nil {
			if err := s.rowFailed(skipped, &RowError{Table: "feeds", Feed: row.id, Err: err}); err != nil {
				return nil, err
			}
			continue
		}
		feeds = append(feeds, feed)
	}
	return feeds, rows.Err()
}

func (s *Store) queryEntries(ctx context.Context, tx *sql.Tx, sqlStr string, args []interface{}, skipped *[]*RowError) ([]models.Entry, error) {
	rows, err := tx.QueryContext(ctx, sqlStr, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	entries := []models.Entry{}
	for rows.Next() {
		row, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		entry, err := row.decode()
		if err != nil {
			if err := s.rowFailed(skipped, &RowError{Table: "entries", Feed: row.feed, Entry: row.id, Err: err}); err != nil {
				return nil, err
			}
			continue
		}
		entries = append(entries, entry)
	}
	return entries, rows.Err()
}

func queryTags(ctx context.Context, tx *sql.Tx, sqlStr string, args []interface{}) ([]models.Tag, error) {
	rows, err := tx.QueryContext(ctx, sqlStr, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var tags []models.Tag
	for rows.Next() {
		var tag models.Tag
		if err := rows.Scan(&tag.Name, &tag.Feed); err != nil {
			return nil, err
		}
		tags = append(tags, tag)
	}
	return tags, rows.Err()
}
