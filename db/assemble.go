package db

import (
	"database/sql"
	"fmt"
	"lfreader/codec"
	"lfreader/models"
	"math"

	log "github.com/sirupsen/logrus"
)

var feedSelectColumns = []string{
	"feeds.id", "feeds.title", "feeds.authors", "feeds.description", "feeds.links",
	"feeds.icon", "feeds.logo", "feeds.updated", "feeds.published",
}

var entrySelectColumns = []string{
	"entries.id", "entries.feed", "entries.title", "entries.authors", "entries.summary",
	"entries.content", "entries.links", "entries.updated", "entries.published", "entries.status",
}

type scanner interface {
	Scan(dest ...interface{}) error
}

// feedRow is a feeds row before its columns are decoded
type feedRow struct {
	id          string
	title       sql.NullString
	authors     sql.NullString
	description sql.NullString
	links       sql.NullString
	icon        sql.NullString
	logo        sql.NullString
	updated     sql.NullString
	published   sql.NullString
}

func scanFeed(sc scanner) (*feedRow, error) {
	var r feedRow
	err := sc.Scan(&r.id, &r.title, &r.authors, &r.description, &r.links, &r.icon, &r.logo, &r.updated, &r.published)
	if err != nil {
		return nil, err
	}
	return &r, nil
}

func (r *feedRow) decode() (models.Feed, error) {
	feed := models.Feed{
		Id:          r.id,
		Title:       nullString(r.title),
		Description: nullString(r.description),
		Icon:        nullString(r.icon),
		Logo:        nullString(r.logo),
	}

	var err error
	if feed.Authors, err = codec.DecodeList[models.Person]("authors", r.authors); err != nil {
		return feed, err
	}
	if feed.Links, err = codec.DecodeList[models.Link]("links", r.links); err != nil {
		return feed, err
	}
	if feed.Updated, err = codec.DecodeTime("updated", r.updated); err != nil {
		return feed, err
	}
	if feed.Published, err = codec.DecodeTime("published", r.published); err != nil {
		return feed, err
	}
	return feed, nil
}

// entryRow is an entries row before its columns are decoded
type entryRow struct {
	id        string
	feed      string
	title     sql.NullString
	authors   sql.NullString
	summary   sql.NullString
	content   sql.NullString
	links     sql.NullString
	updated   sql.NullString
	published sql.NullString
	// any SQLite value; checked by statusFromColumn
	status interface{}
}

func scanEntry(sc scanner) (*entryRow, error) {
	var r entryRow
	err := sc.Scan(&r.id, &r.feed, &r.title, &r.authors, &r.summary, &r.content, &r.links, &r.updated, &r.published, &r.status)
	if err != nil {
		return nil, err
	}
	return &r, nil
}

func (r *entryRow) decode() (models.Entry, error) {
	entry := models.Entry{
		Id:   r.id,
		Feed: r.feed,
	}

	var err error
	if entry.Title, err = codec.DecodeOptional[models.Text]("title", r.title); err != nil {
		return entry, err
	}
	if entry.Authors, err = codec.DecodeList[models.Person]("authors", r.authors); err != nil {
		return entry, err
	}
	if entry.Summary, err = codec.DecodeOptional[models.Text]("summary", r.summary); err != nil {
		return entry, err
	}
	if entry.Content, err = codec.DecodeOptional[models.Content]("content", r.content); err != nil {
		return entry, err
	}
	if entry.Links, err = codec.DecodeList[models.Link]("links", r.links); err != nil {
		return entry, err
	}
	if entry.Updated, err = codec.DecodeTime("updated", r.updated); err != nil {
		return entry, err
	}
	if entry.Published, err = codec.DecodeTime("published", r.published); err != nil {
		return entry, err
	}
	if entry.Status, err = statusFromColumn(r.status); err != nil {
		return entry, err
	}
	return entry, nil
}

func statusFromColumn(v interface{}) (models.Status, error) {
	n, ok := v.(int64)
	if !ok {
		return 0, &codec.DecodeError{
			Column: "status",
			Value:  fmt.Sprint(v),
			Err:    fmt.Errorf("expected an integer, got %T", v),
		}
	}
	if n < 0 || n > math.MaxUint32 {
		return 0, &codec.DecodeError{
			Column: "status",
			Value:  fmt.Sprint(n),
			Err:    fmt.Errorf("%d does not fit in 32 bits", n),
		}
	}
	return models.Status(n), nil
}

func nullString(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	return &ns.String
}

// rowFailed applies the decode policy to a row that could not be decoded.
// Under DecodeFail the row error is returned and aborts the read.
func (s *Store) rowFailed(skipped *[]*RowError, rerr *RowError) error {
	if s.decodePolicy == DecodeFail {
		decodeErrors.WithLabelValues(rerr.Table).Inc()
		return rerr
	}
	*skipped = append(*skipped, rerr)
	return nil
}

// reportSkipped records rows dropped by a successful read. It runs once
// per read, after retries are settled.
func (s *Store) reportSkipped(skipped []*RowError) {
	for _, rerr := range skipped {
		decodeErrors.WithLabelValues(rerr.Table).Inc()
		log.WithFields(log.Fields{
			"table": rerr.Table,
			"feed":  rerr.Feed,
			"entry": rerr.Entry,
			"error": rerr.Err,
		}).Warn("Skipping row that could not be decoded")
		if s.onDecodeError != nil {
			s.onDecodeError(rerr)
		}
	}
}
