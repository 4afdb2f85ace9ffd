package query

import (
	"fmt"

	"lfreader/models"

	"github.com/huandu/go-sqlbuilder"
)

// FeedFilter keeps entries of the given feeds. An empty list keeps all.
type FeedFilter struct {
	IDs []string
}

func (f *FeedFilter) ApplyFilter(sb *sqlbuilder.SelectBuilder) {
	switch len(f.IDs) {
	case 0:
	case 1:
		sb.Where(sb.Equal("entries.feed", f.IDs[0]))
	default:
		sb.Where(sb.In("entries.feed", sqlbuilder.List(f.IDs)))
	}
}

// FlagFilter keeps entries whose flag is set, or cleared when Set is false
type FlagFilter struct {
	Flag models.Flag
	Set  bool
}

func (f *FlagFilter) ApplyFilter(sb *sqlbuilder.SelectBuilder) {
	mask := int64(1) << f.Flag
	if f.Set {
		sb.Where(fmt.Sprintf("(entries.status & %d) != 0", mask))
	} else {
		sb.Where(fmt.Sprintf("(entries.status & %d) = 0", mask))
	}
}

// TagFilter keeps entries of feeds carrying the tag
type TagFilter struct {
	Name string
}

func (f *TagFilter) ApplyFilter(sb *sqlbuilder.SelectBuilder) {
	tagged := sqlbuilder.SQLite.NewSelectBuilder()
	tagged.Select("feed").From("feed_tags").Where(tagged.Equal("name", f.Name))
	sb.Where(sb.In("entries.feed", tagged))
}

var _ FilterStrategy = (*FeedFilter)(nil)
var _ FilterStrategy = (*FlagFilter)(nil)
var _ FilterStrategy = (*TagFilter)(nil)
