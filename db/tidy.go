package db

import (
	"context"
	"database/sql"
	"fmt"
	"lfreader/codec"
	"lfreader/models"
	"time"

	sb "github.com/huandu/go-sqlbuilder"
	log "github.com/sirupsen/logrus"
)

// Tidy removes entries that are read, not starred and older than before.
// Entries without any date are never removed. Returns the number of entries
// deleted.
func (s *Store) Tidy(ctx context.Context, before time.Time) (int64, error) {
	deleteEntries := sb.SQLite.NewDeleteBuilder()
	deleteEntries.DeleteFrom("entries").Where(
		fmt.Sprintf("(status & %d) != 0", uint32(1)<<models.FlagRead),
		fmt.Sprintf("(status & %d) = 0", uint32(1)<<models.FlagStarred),
		deleteEntries.LessThan("COALESCE(published, updated)", codec.EncodeTime(&before).String),
	)
	stmt, args := deleteEntries.Build()

	log.WithFields(log.Fields{
		"sql":    stmt,
		"before": before.UTC(),
	}).Info("Tidying database")

	var deleted int64
	err := s.withTx(ctx, "tidy", func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, stmt, args...)
		if err != nil {
			return err
		}
		deleted, err = res.RowsAffected()
		return err
	})
	if err != nil {
		return 0, classify("tidy", err)
	}

	log.WithField("deleted", deleted).Info("Tidied database")
	return deleted, nil
}
