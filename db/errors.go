package db

import (
	"errors"
	"fmt"

	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

// ErrNotFound is returned when a feed or entry does not exist
var ErrNotFound = errors.New("not found")

// SchemaError means the schema could not be confirmed present. The process
// must not serve requests after one.
type SchemaError struct {
	Op  string
	Err error
}

func (e *SchemaError) Error() string {
	return fmt.Sprintf("schema %s: %v", e.Op, e.Err)
}

func (e *SchemaError) Unwrap() error { return e.Err }

// ConstraintViolation is a write rejected by a primary or foreign key, such
// as an entry or tag referencing an unknown feed.
type ConstraintViolation struct {
	Op  string
	Err error
}

func (e *ConstraintViolation) Error() string {
	return fmt.Sprintf("%s: constraint violation: %v", e.Op, e.Err)
}

func (e *ConstraintViolation) Unwrap() error { return e.Err }

// TransientStoreError is lock contention that outlasted every retry
type TransientStoreError struct {
	Op       string
	Attempts int
	Err      error
}

func (e *TransientStoreError) Error() string {
	return fmt.Sprintf("%s: store busy after %d attempts: %v", e.Op, e.Attempts, e.Err)
}

func (e *TransientStoreError) Unwrap() error { return e.Err }

// RowError ties a decode failure to the row it came from
type RowError struct {
	Table string
	Feed  string
	Entry string
	Err   error
}

func (e *RowError) Error() string {
	if e.Entry != "" {
		return fmt.Sprintf("%s row (feed %q, id %q): %v", e.Table, e.Feed, e.Entry, e.Err)
	}
	return fmt.Sprintf("%s row %q: %v", e.Table, e.Feed, e.Err)
}

func (e *RowError) Unwrap() error { return e.Err }

func sqliteCode(err error) (int, bool) {
	var serr *sqlite.Error
	if !errors.As(err, &serr) {
		return 0, false
	}
	// extended codes carry the primary code in the low byte
	return serr.Code() & 0xff, true
}

// isTransient reports lock contention that is worth retrying
func isTransient(err error) bool {
	code, ok := sqliteCode(err)
	return ok && (code == sqlite3.SQLITE_BUSY || code == sqlite3.SQLITE_LOCKED)
}

func isConstraint(err error) bool {
	code, ok := sqliteCode(err)
	return ok && code == sqlite3.SQLITE_CONSTRAINT
}

// classify turns driver errors into the store's error types
func classify(op string, err error) error {
	if err == nil {
		return nil
	}
	if isConstraint(err) {
		return &ConstraintViolation{Op: op, Err: err}
	}
	return fmt.Errorf("%s: %w", op, err)
}
