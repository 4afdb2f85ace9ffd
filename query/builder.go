package query

import (
	"math"

	"github.com/huandu/go-sqlbuilder"
)

// EntryQueryBuilder builds entry listings with filters
type EntryQueryBuilder struct {
	columns []string
	filters []FilterStrategy
}

func NewEntryQueryBuilder(columns ...string) *EntryQueryBuilder {
	return &EntryQueryBuilder{
		columns: columns,
		filters: make([]FilterStrategy, 0),
	}
}

func (b *EntryQueryBuilder) AddFilter(filter FilterStrategy) {
	b.filters = append(b.filters, filter)
}

// Build returns the query. A limit of zero or less means no limit.
func (b *EntryQueryBuilder) Build(limit, offset int) (string, []interface{}) {
	sb := sqlbuilder.SQLite.NewSelectBuilder()
	sb.Select(b.columns...).From("entries")

	// Apply all filters
	for _, filter := range b.filters {
		filter.ApplyFilter(sb)
	}

	sb.OrderBy(EntryOrder...)

	if offset > 0 && limit <= 0 {
		// SQLite only accepts OFFSET after a LIMIT
		limit = math.MaxInt32
	}
	if limit > 0 {
		sb.Limit(limit)
	}
	if offset > 0 {
		sb.Offset(offset)
	}

	return sb.Build()
}

var _ Builder = (*EntryQueryBuilder)(nil)
