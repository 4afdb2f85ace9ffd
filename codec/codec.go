// Package codec converts the nested value objects of feeds and entries to and
// from the text stored in a single column.
//
// Values are serialized as field-keyed JSON so that rows written before a new
// optional field existed still decode. Absent objects and empty sequences are
// stored as NULL and read back as nil.
package codec

import (
	"database/sql"
	"fmt"
	"time"
	"unicode/utf8"

	"github.com/goccy/go-json"
)

// TimeLayout is fixed width so that text order matches time order
const TimeLayout = "2006-01-02T15:04:05.000000000Z"

// Layouts accepted when reading timestamps written by other tools
var readLayouts = []string{
	TimeLayout,
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02",
}

// DecodeError is returned when a stored column cannot be turned back into
// its value type.
type DecodeError struct {
	Column string
	Value  string
	Err    error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("decode column %s: %v", e.Column, e.Err)
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}

// Encode serializes v to its column text
func Encode(v any) (string, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("encode %T: %w", v, err)
	}
	return string(data), nil
}

// Decode parses text written by Encode into v
func Decode(column, text string, v any) error {
	if err := json.Unmarshal([]byte(text), v); err != nil {
		return &DecodeError{Column: column, Value: truncate(text), Err: err}
	}
	return nil
}

// EncodeOptional encodes a nested object, mapping nil to NULL
func EncodeOptional[T any](v *T) (sql.NullString, error) {
	if v == nil {
		return sql.NullString{}, nil
	}
	s, err := Encode(v)
	if err != nil {
		return sql.NullString{}, err
	}
	return sql.NullString{String: s, Valid: true}, nil
}

// DecodeOptional is the inverse of EncodeOptional
func DecodeOptional[T any](column string, ns sql.NullString) (*T, error) {
	if !ns.Valid {
		return nil, nil
	}
	var v T
	if err := Decode(column, ns.String, &v); err != nil {
		return nil, err
	}
	return &v, nil
}

// EncodeList encodes a sequence, mapping an empty one to NULL
func EncodeList[T any](vs []T) (sql.NullString, error) {
	if len(vs) == 0 {
		return sql.NullString{}, nil
	}
	s, err := Encode(vs)
	if err != nil {
		return sql.NullString{}, err
	}
	return sql.NullString{String: s, Valid: true}, nil
}

// DecodeList is the inverse of EncodeList
func DecodeList[T any](column string, ns sql.NullString) ([]T, error) {
	if !ns.Valid {
		return nil, nil
	}
	var vs []T
	if err := Decode(column, ns.String, &vs); err != nil {
		return nil, err
	}
	if len(vs) == 0 {
		return nil, nil
	}
	return vs, nil
}

// EncodeTime formats t in UTC with TimeLayout, mapping nil to NULL
func EncodeTime(t *time.Time) sql.NullString {
	if t == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: t.UTC().Format(TimeLayout), Valid: true}
}

// DecodeTime parses a timestamp column. The result is always in UTC.
func DecodeTime(column string, ns sql.NullString) (*time.Time, error) {
	if !ns.Valid {
		return nil, nil
	}
	for _, layout := range readLayouts {
		if t, err := time.Parse(layout, ns.String); err == nil {
			t = t.UTC()
			return &t, nil
		}
	}
	return nil, &DecodeError{
		Column: column,
		Value:  truncate(ns.String),
		Err:    fmt.Errorf("not an ISO-8601 timestamp"),
	}
}

func truncate(s string) string {
	const max = 120
	if len(s) <= max {
		return s
	}
	cut := max
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut] + "..."
}
