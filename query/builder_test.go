package query_test

import (
	"fmt"
	"testing"

	"lfreader/models"
	"lfreader/query"

	"github.com/stretchr/testify/assert"
)

func TestEntryQueryBuilder(t *testing.T) {
	tests := []struct {
		name     string
		filters  []query.FilterStrategy
		limit    int
		offset   int
		contains []string
		excludes []string
		args     []interface{}
	}{
		{
			name:     "no filters",
			excludes: []string{"WHERE", "LIMIT", "OFFSET"},
		},
		{
			name:     "single feed",
			filters:  []query.FilterStrategy{&query.FeedFilter{IDs: []string{"f1"}}},
			contains: []string{"entries.feed = ?"},
			args:     []interface{}{"f1"},
		},
		{
			name:     "several feeds",
			filters:  []query.FilterStrategy{&query.FeedFilter{IDs: []string{"f1", "f2"}}},
			contains: []string{"entries.feed IN (?, ?)"},
			args:     []interface{}{"f1", "f2"},
		},
		{
			name: "unread and starred",
			filters: []query.FilterStrategy{
				&query.FlagFilter{Flag: models.FlagRead, Set: false},
				&query.FlagFilter{Flag: models.FlagStarred, Set: true},
			},
			contains: []string{"(entries.status & 1) = 0", "(entries.status & 2) != 0"},
		},
		{
			name:     "tag",
			filters:  []query.FilterStrategy{&query.TagFilter{Name: "news"}},
			contains: []string{"entries.feed IN (SELECT feed FROM feed_tags WHERE name = ?)"},
			args:     []interface{}{"news"},
		},
		{
			name:     "page",
			limit:    10,
			offset:   20,
			contains: []string{"LIMIT", "OFFSET", "10", "20"},
		},
		{
			name:     "offset without limit",
			offset:   5,
			contains: []string{"LIMIT", "OFFSET", "2147483647"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := query.NewEntryQueryBuilder("entries.id")
			for _, f := range tt.filters {
				b.AddFilter(f)
			}
			sql, args := b.Build(tt.limit, tt.offset)
			// limit and offset may be rendered inline or as arguments
			rendered := fmt.Sprint(sql, args)

			assert.Contains(t, sql, "FROM entries")
			assert.Contains(t, sql, "ORDER BY")
			for _, s := range tt.contains {
				assert.Contains(t, rendered, s)
			}
			for _, s := range tt.excludes {
				assert.NotContains(t, sql, s)
			}
			assert.Subset(t, args, tt.args)
		})
	}
}
