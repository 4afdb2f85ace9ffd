package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"lfreader/codec"
	"lfreader/models"
	"strings"

	sqlbuilder "github.com/huandu/go-sqlbuilder"
	"github.com/samber/lo"
	log "github.com/sirupsen/logrus"
)

var feedColumns = []string{"id", "title", "authors", "description", "links", "icon", "logo", "updated", "published"}

// no status: only SetEntryStatus writes it. seq is set by upsertEntrySQL.
var entryColumns = []string{"id", "feed", "title", "authors", "summary", "content", "links", "updated", "published"}

// updateSet builds "col = excluded.col" for every column but the keys
func updateSet(cols []string, keys ...string) string {
	assignments := lo.FilterMap(cols, func(col string, _ int) (string, bool) {
		return col + " = excluded." + col, !lo.Contains(keys, col)
	})
	return strings.Join(assignments, ", ")
}

// insertOnly is a column set from an SQL expression on insert and left alone
// on conflict
type insertOnly struct {
	col  string
	expr string
}

// entries.seq numbers entries in insertion order
var entrySeq = insertOnly{col: "seq", expr: "(SELECT COALESCE(MAX(seq), 0) + 1 FROM entries)"}

var (
	upsertFeedSQL  = buildUpsert("feeds", feedColumns, []string{"id"})
	upsertEntrySQL = buildUpsert("entries", entryColumns, []string{"id", "feed"}, entrySeq)
)

func buildUpsert(table string, cols, keys []string, extra ...insertOnly) string {
	ib := sqlbuilder.SQLite.NewInsertBuilder()
	values := make([]interface{}, 0, len(cols)+len(extra))
	for range cols {
		values = append(values, sqlbuilder.Raw("?"))
	}
	allCols := append([]string{}, cols...)
	for _, e := range extra {
		allCols = append(allCols, e.col)
		values = append(values, sqlbuilder.Raw(e.expr))
	}
	ib.InsertInto(table).Cols(allCols...).Values(values...)
	ib.SQL(fmt.Sprintf("ON CONFLICT (%s) DO UPDATE SET %s", strings.Join(keys, ", "), updateSet(cols, keys...)))
	sql, _ := ib.Build()
	return sql
}

func feedArgs(feed *models.Feed) ([]interface{}, error) {
	authors, err := codec.EncodeList(feed.Authors)
	if err != nil {
		return nil, err
	}
	links, err := codec.EncodeList(feed.Links)
	if err != nil {
		return nil, err
	}
	return []interface{}{
		feed.Id,
		feed.Title,
		authors,
		feed.Description,
		links,
		feed.Icon,
		feed.Logo,
		codec.EncodeTime(feed.Updated),
		codec.EncodeTime(feed.Published),
	}, nil
}

func entryArgs(entry *models.Entry) ([]interface{}, error) {
	title, err := codec.EncodeOptional(entry.Title)
	if err != nil {
		return nil, err
	}
	authors, err := codec.EncodeList(entry.Authors)
	if err != nil {
		return nil, err
	}
	summary, err := codec.EncodeOptional(entry.Summary)
	if err != nil {
		return nil, err
	}
	content, err := codec.EncodeOptional(entry.Content)
	if err != nil {
		return nil, err
	}
	links, err := codec.EncodeList(entry.Links)
	if err != nil {
		return nil, err
	}
	return []interface{}{
		entry.Id,
		entry.Feed,
		title,
		authors,
		summary,
		content,
		links,
		codec.EncodeTime(entry.Updated),
		codec.EncodeTime(entry.Published),
	}, nil
}

// UpsertFeed inserts the feed or overwrites every column but its id. Entries,
// tags and entry status are never touched.
func (s *Store) UpsertFeed(ctx context.Context, feed models.Feed) error {
	if feed.Id == "" {
		return errors.New("upsert feed: id is empty")
	}
	args, err := feedArgs(&feed)
	if err != nil {
		return fmt.Errorf("upsert feed %q: %w", feed.Id, err)
	}

	err = s.withTx(ctx, "upsert_feed", func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, upsertFeedSQL, args...)
		return err
	})
	return classify("upsert feed", err)
}

// UpsertEntry inserts the entry or updates its syndicated fields. The stored
// status is kept as is: refreshing a feed never resets read or starred.
func (s *Store) UpsertEntry(ctx context.Context, entry models.Entry) error {
	return s.UpsertEntries(ctx, []models.Entry{entry})
}

// UpsertEntries upserts a batch of entries in one transaction. Either every
// entry lands or none does.
func (s *Store) UpsertEntries(ctx context.Context, entries []models.Entry) error {
	if len(entries) == 0 {
		return nil
	}
	rows, err := entryRows(entries)
	if err != nil {
		return err
	}

	err = s.withTx(ctx, "upsert_entries", func(tx *sql.Tx) error {
		return upsertEntries(ctx, tx, rows)
	})
	if err != nil {
		return classify("upsert entry", err)
	}

	log.WithFields(log.Fields{
		"feed":    entries[0].Feed,
		"entries": len(entries),
	}).Debug("Upserted entries")
	return nil
}

// RefreshFeed upserts a feed and a batch of its entries in one transaction,
// so a failed entry leaves the feed row as it was
func (s *Store) RefreshFeed(ctx context.Context, feed models.Feed, entries []models.Entry) error {
	if feed.Id == "" {
		return errors.New("refresh feed: id is empty")
	}
	feedRow, err := feedArgs(&feed)
	if err != nil {
		return fmt.Errorf("refresh feed %q: %w", feed.Id, err)
	}
	rows, err := entryRows(entries)
	if err != nil {
		return err
	}

	err = s.withTx(ctx, "refresh_feed", func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, upsertFeedSQL, feedRow...); err != nil {
			return err
		}
		return upsertEntries(ctx, tx, rows)
	})
	if err != nil {
		return classify(fmt.Sprintf("refresh feed %q", feed.Id), err)
	}

	log.WithFields(log.Fields{
		"feed":    feed.Id,
		"entries": len(entries),
	}).Debug("Refreshed feed")
	return nil
}

func entryRows(entries []models.Entry) ([][]interface{}, error) {
	rows := make([][]interface{}, len(entries))
	for i := range entries {
		if entries[i].Id == "" || entries[i].Feed == "" {
			return nil, fmt.Errorf("upsert entry: id and feed are required (got %q, %q)", entries[i].Id, entries[i].Feed)
		}
		args, err := entryArgs(&entries[i])
		if err != nil {
			return nil, fmt.Errorf("upsert entry %q: %w", entries[i].Id, err)
		}
		rows[i] = args
	}
	return rows, nil
}

func upsertEntries(ctx context.Context, tx *sql.Tx, rows [][]interface{}) error {
	if len(rows) == 0 {
		return nil
	}
	stmt, err := tx.PrepareContext(ctx, upsertEntrySQL)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, args := range rows {
		if _, err := stmt.ExecContext(ctx, args...); err != nil {
			return err
		}
	}
	return nil
}

// SetEntryStatus turns one flag of an entry on or off and returns the new
// status. The read and the write happen in one transaction so that no other
// flag change is lost.
func (s *Store) SetEntryStatus(ctx context.Context, id, feed string, flag models.Flag, on bool) (models.Status, error) {
	if !flag.Valid() {
		return 0, fmt.Errorf("set entry status: flag %d out of range", flag)
	}

	var status models.Status
	err := s.withTx(ctx, "set_entry_status", func(tx *sql.Tx) error {
		sb := sqlbuilder.SQLite.NewSelectBuilder()
		sb.Select("status").From("entries").Where(sb.Equal("id", id), sb.Equal("feed", feed))
		query, args := sb.Build()

		var raw interface{}
		if err := tx.QueryRowContext(ctx, query, args...).Scan(&raw); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return ErrNotFound
			}
			return err
		}

		current, err := statusFromColumn(raw)
		if err != nil {
			return &RowError{Table: "entries", Feed: feed, Entry: id, Err: err}
		}
		current.Apply(flag, on)

		ub := sqlbuilder.SQLite.NewUpdateBuilder()
		ub.Update("entries").Set(ub.Assign("status", int64(current))).Where(ub.Equal("id", id), ub.Equal("feed", feed))
		query, args = ub.Build()
		if _, err := tx.ExecContext(ctx, query, args...); err != nil {
			return err
		}

		status = current
		return nil
	})
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return 0, fmt.Errorf("entry %q of feed %q: %w", id, feed, ErrNotFound)
		}
		return 0, classify("set entry status", err)
	}
	return status, nil
}

// AddTag labels a feed. Adding a tag twice is a no-op.
func (s *Store) AddTag(ctx context.Context, feed, name string) error {
	if name == "" {
		return errors.New("add tag: name is empty")
	}
	err := s.withTx(ctx, "add_tag", func(tx *sql.Tx) error {
		ib := sqlbuilder.SQLite.NewInsertBuilder()
		ib.InsertIgnoreInto("feed_tags").Cols("name", "feed").Values(name, feed)
		query, args := ib.Build()
		_, err := tx.ExecContext(ctx, query, args...)
		return err
	})
	return classify("add tag", err)
}

// RemoveTag removes a label from a feed. Removing an absent tag is a no-op.
func (s *Store) RemoveTag(ctx context.Context, feed, name string) error {
	err := s.withTx(ctx, "remove_tag", func(tx *sql.Tx) error {
		db := sqlbuilder.SQLite.NewDeleteBuilder()
		db.DeleteFrom("feed_tags").Where(db.Equal("name", name), db.Equal("feed", feed))
		query, args := db.Build()
		_, err := tx.ExecContext(ctx, query, args...)
		return err
	})
	return classify("remove tag", err)
}

// DeleteFeed removes a feed. Its entries and tags go with it through the
// cascading foreign keys, in the same transaction.
func (s *Store) DeleteFeed(ctx context.Context, id string) error {
	n, err := s.DeleteFeeds(ctx, id)
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("feed %q: %w", id, ErrNotFound)
	}
	return nil
}

// DeleteFeeds removes several feeds at once and returns how many existed
func (s *Store) DeleteFeeds(ctx context.Context, ids ...string) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}

	var deleted int64
	err := s.withTx(ctx, "delete_feeds", func(tx *sql.Tx) error {
		db := sqlbuilder.SQLite.NewDeleteBuilder()
		db.DeleteFrom("feeds").Where(db.In("id", sqlbuilder.List(ids)))
		query, args := db.Build()
		res, err := tx.ExecContext(ctx, query, args...)
		if err != nil {
			return err
		}
		deleted, err = res.RowsAffected()
		return err
	})
	if err != nil {
		return 0, classify("delete feeds", err)
	}

	log.WithFields(log.Fields{
		"requested": len(ids),
		"deleted":   deleted,
	}).Info("Deleted feeds")
	return deleted, nil
}
