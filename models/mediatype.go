package models

import (
	"fmt"
	"mime"
	"strings"
)

// MediaType is a parsed MIME content type such as "text/html; charset=utf-8".
// Values only come from ParseMediaType, so they are always canonical. The
// zero value is not a valid media type.
type MediaType struct {
	typ     string
	subtype string
	params  map[string]string
}

var (
	TextPlain = MustParseMediaType("text/plain")
	TextHTML  = MustParseMediaType("text/html")
)

// ParseMediaType parses s with the RFC 2045 grammar. A subtype is required and
// malformed parameters are rejected rather than dropped.
func ParseMediaType(s string) (MediaType, error) {
	full, params, err := mime.ParseMediaType(s)
	if err != nil {
		return MediaType{}, fmt.Errorf("invalid media type %q: %w", s, err)
	}

	typ, sub, ok := strings.Cut(full, "/")
	if !ok || typ == "" || sub == "" {
		return MediaType{}, fmt.Errorf("invalid media type %q: missing subtype", s)
	}

	if len(params) == 0 {
		params = nil
	}

	return MediaType{typ: typ, subtype: sub, params: params}, nil
}

// MustParseMediaType is like ParseMediaType but panics on error
func MustParseMediaType(s string) MediaType {
	mt, err := ParseMediaType(s)
	if err != nil {
		panic(err)
	}
	return mt
}

// Type returns the lower-case top-level type, e.g. "text"
func (m MediaType) Type() string {
	return m.typ
}

// Subtype returns the lower-case subtype, e.g. "html"
func (m MediaType) Subtype() string {
	return m.subtype
}

// Param returns the value of a parameter. Names are matched case-insensitively.
func (m MediaType) Param(name string) (string, bool) {
	v, ok := m.params[strings.ToLower(name)]
	return v, ok
}

// Params returns a copy of the parameters, nil when there are none
func (m MediaType) Params() map[string]string {
	if len(m.params) == 0 {
		return nil
	}
	params := make(map[string]string, len(m.params))
	for k, v := range m.params {
		params[k] = v
	}
	return params
}

// Essence returns type/subtype without parameters
func (m MediaType) Essence() string {
	return m.typ + "/" + m.subtype
}

// IsZero reports whether m was never set
func (m MediaType) IsZero() bool {
	return m.typ == "" && m.subtype == ""
}

// String returns the canonical form, which ParseMediaType reads back to an
// equal value.
func (m MediaType) String() string {
	if m.IsZero() {
		return ""
	}
	return mime.FormatMediaType(m.Essence(), m.params)
}

func (m MediaType) MarshalText() ([]byte, error) {
	s := m.String()
	if s == "" {
		return nil, fmt.Errorf("cannot format media type %q", m.Essence())
	}
	return []byte(s), nil
}

func (m *MediaType) UnmarshalText(text []byte) error {
	parsed, err := ParseMediaType(string(text))
	if err != nil {
		return err
	}
	*m = parsed
	return nil
}
