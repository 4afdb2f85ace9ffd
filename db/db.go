package db

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	log "github.com/sirupsen/logrus"
)

// DecodePolicy decides what a bulk read does with a row it cannot decode
type DecodePolicy int

const (
	// DecodeSkip drops the row, records the error and carries on
	DecodeSkip DecodePolicy = iota
	// DecodeFail aborts the read with the first error
	DecodeFail
)

func ParseDecodePolicy(s string) (DecodePolicy, error) {
	switch s {
	case "", "skip":
		return DecodeSkip, nil
	case "fail":
		return DecodeFail, nil
	default:
		return 0, fmt.Errorf("unknown decode policy %q", s)
	}
}

func (p DecodePolicy) String() string {
	if p == DecodeFail {
		return "fail"
	}
	return "skip"
}

// Options configures a Store
type Options struct {
	// Path of the SQLite database file, created if missing
	Path string
	// MaxConnections bounds the read pool. Writes always go through a
	// single connection since SQLite allows one writer at a time.
	MaxConnections int
	// BusyTimeout is how long SQLite itself waits on a lock before the
	// store's own retry takes over
	BusyTimeout time.Duration
	Retry       RetryConfig
	Decode      DecodePolicy
	// OnDecodeError receives every row skipped under DecodeSkip
	OnDecodeError func(*RowError)
}

// Store is the only read and write surface over the feeds, entries and
// feed_tags tables. It is safe for concurrent use.
type Store struct {
	writer *sql.DB
	reader *sql.DB

	retryConfig   RetryConfig
	decodePolicy  DecodePolicy
	onDecodeError func(*RowError)
}

// Open migrates the schema and opens the connection pools. A schema failure
// is returned as *SchemaError and no Store is created.
func Open(ctx context.Context, opts Options) (*Store, error) {
	if opts.Path == "" {
		return nil, fmt.Errorf("database path is empty")
	}
	if opts.MaxConnections <= 0 {
		opts.MaxConnections = 4
	}

	if dir := filepath.Dir(opts.Path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, &SchemaError{Op: "open", Err: err}
		}
	}

	if err := Migrate(opts.Path); err != nil {
		return nil, err
	}

	writer, err := connection(opts.Path, connOptions{
		maxConns:    1,
		busyTimeout: opts.BusyTimeout,
	})
	if err != nil {
		return nil, fmt.Errorf("open writer: %w", err)
	}

	reader, err := connection(opts.Path, connOptions{
		maxConns:    opts.MaxConnections,
		busyTimeout: opts.BusyTimeout,
		readOnly:    true,
	})
	if err != nil {
		writer.Close()
		return nil, fmt.Errorf("open reader: %w", err)
	}

	log.WithFields(log.Fields{
		"database":       opts.Path,
		"maxConnections": opts.MaxConnections,
		"decodePolicy":   opts.Decode.String(),
	}).Info("Store opened")

	return &Store{
		writer:        writer,
		reader:        reader,
		retryConfig:   opts.Retry.withDefaults(),
		decodePolicy:  opts.Decode,
		onDecodeError: opts.OnDecodeError,
	}, nil
}

// Close closes both pools
func (s *Store) Close() error {
	rerr := s.reader.Close()
	werr := s.writer.Close()
	if werr != nil {
		return werr
	}
	return rerr
}

// withTx runs fn in a write transaction, retrying the whole transaction on
// lock contention. The transaction is rolled back unless fn returns nil and
// the commit succeeds, including when ctx is cancelled midway.
func (s *Store) withTx(ctx context.Context, name string, fn func(tx *sql.Tx) error) error {
	return s.retry(ctx, name, func() error {
		tx, err := s.writer.BeginTx(ctx, nil)
		if err != nil {
			return err
		}
		defer tx.Rollback()

		if err := fn(tx); err != nil {
			return err
		}
		return tx.Commit()
	})
}

// withReadTx runs fn in a read transaction so that every query sees the
// same snapshot
func (s *Store) withReadTx(ctx context.Context, name string, fn func(tx *sql.Tx) error) error {
	return s.retry(ctx, name, func() error {
		tx, err := s.reader.BeginTx(ctx, nil)
		if err != nil {
			return err
		}
		defer tx.Rollback()

		if err := fn(tx); err != nil {
			return err
		}
		return tx.Commit()
	})
}
