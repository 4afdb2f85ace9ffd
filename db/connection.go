package db

import (
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite"
)

type connOptions struct {
	maxConns    int
	busyTimeout time.Duration
	readOnly    bool
}

func connection(database string, opts connOptions) (*sql.DB, error) {
	// Enable foreign keys and WAL mode on every connection of the pool
	dsn := fmt.Sprintf(
		"%s?_pragma=foreign_keys(1)&_pragma=journal_mode(WAL)&_pragma=busy_timeout(%d)&_pragma=synchronous(NORMAL)",
		database, opts.busyTimeout.Milliseconds(),
	)
	if opts.readOnly {
		dsn += "&_pragma=query_only(1)"
	} else {
		// Take the write lock when the transaction starts, not on its first write
		dsn += "&_txlock=immediate"
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}

	// Set connection pool settings
	db.SetMaxOpenConns(opts.maxConns)
	db.SetMaxIdleConns(opts.maxConns)
	db.SetConnMaxLifetime(time.Hour) // Recreate connections after an hour
	db.SetConnMaxIdleTime(time.Hour) // Close idle connections after an hour

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to open %s: %w", database, err)
	}

	return db, nil
}
