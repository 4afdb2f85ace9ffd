package models

import "time"

// Feed is one syndication source. Entries and Tags are not stored on the
// feed row, they are attached by the store when a feed is read back.
type Feed struct {
	Id          string     `json:"id"`
	Title       *string    `json:"title,omitempty"`
	Authors     []Person   `json:"authors,omitempty"`
	Description *string    `json:"description,omitempty"`
	Links       []Link     `json:"links,omitempty"`
	Icon        *string    `json:"icon,omitempty"`
	Logo        *string    `json:"logo,omitempty"`
	Updated     *time.Time `json:"updated,omitempty"`
	Published   *time.Time `json:"published,omitempty"`

	Tags    []string `json:"tags"`
	Entries []Entry  `json:"entries"`
}

// Entry is one item of a feed. Id is only unique within Feed.
type Entry struct {
	Id        string     `json:"id"`
	Feed      string     `json:"feed"`
	Title     *Text      `json:"title,omitempty"`
	Authors   []Person   `json:"authors,omitempty"`
	Summary   *Text      `json:"summary,omitempty"`
	Content   *Content   `json:"content,omitempty"`
	Links     []Link     `json:"links,omitempty"`
	Updated   *time.Time `json:"updated,omitempty"`
	Published *time.Time `json:"published,omitempty"`

	// Status is owned by the application, never by the syndicated source
	Status Status `json:"status"`
}

// Tag associates a user label with a single feed
type Tag struct {
	Name string `json:"name"`
	Feed string `json:"feed"`
}

// TagCount is a tag name with the number of feeds carrying it
type TagCount struct {
	Name  string `json:"name"`
	Feeds int64  `json:"feeds"`
}

// StringPtr returns a pointer to s, handy for the optional fields above
func StringPtr(s string) *string {
	return &s
}

// TimePtr returns a pointer to t
func TimePtr(t time.Time) *time.Time {
	return &t
}
