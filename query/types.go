package query

import (
	"github.com/huandu/go-sqlbuilder"
)

// Builder builds a paginated SQL query
type Builder interface {
	Build(limit, offset int) (string, []interface{})
}

// FilterStrategy adds WHERE conditions to the query
type FilterStrategy interface {
	// ApplyFilter adds filter conditions to the query builder
	ApplyFilter(sb *sqlbuilder.SelectBuilder)
}

// EntryOrder sorts entries newest first. Undated entries come last in the
// order they were first inserted (entries.seq), so repeated reads agree.
var EntryOrder = []string{
	"entries.published IS NULL",
	"entries.published DESC",
	"CASE WHEN entries.published IS NULL THEN entries.seq END ASC",
	"entries.id ASC",
	"entries.feed ASC",
}
