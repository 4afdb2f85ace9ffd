package ingest

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"lfreader/models"

	"github.com/mmcdole/gofeed"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	log "github.com/sirupsen/logrus"
)

var ingestedEntries = promauto.NewCounter(prometheus.CounterOpts{
	Name: "lfreader_ingested_entries_total",
	Help: "Entries written by fetch and import runs",
})

// Store is what the ingester needs from the repository
type Store interface {
	RefreshFeed(ctx context.Context, feed models.Feed, entries []models.Entry) error
}

// Result describes one ingested feed
type Result struct {
	Feed    string
	Title   string
	Entries int
}

type Ingester struct {
	store  Store
	parser *gofeed.Parser
}

// New creates an ingester fetching with the given user agent and timeout
func New(store Store, userAgent string, timeout time.Duration) *Ingester {
	parser := gofeed.NewParser()
	parser.UserAgent = userAgent
	parser.Client = &http.Client{Timeout: timeout}

	return &Ingester{
		store:  store,
		parser: parser,
	}
}

// FetchURL downloads and stores the feed at url. The url is the feed id.
func (i *Ingester) FetchURL(ctx context.Context, url string) (*Result, error) {
	parsed, err := i.parser.ParseURLWithContext(url, ctx)
	if err != nil {
		return nil, fmt.Errorf("fetch %q: %w", url, err)
	}
	return i.save(ctx, url, parsed)
}

// ImportReader parses a feed document and stores it under feedID
func (i *Ingester) ImportReader(ctx context.Context, feedID string, r io.Reader) (*Result, error) {
	parsed, err := i.parser.Parse(r)
	if err != nil {
		return nil, fmt.Errorf("parse feed %q: %w", feedID, err)
	}
	return i.save(ctx, feedID, parsed)
}

func (i *Ingester) save(ctx context.Context, feedID string, parsed *gofeed.Feed) (*Result, error) {
	feed, entries := Convert(feedID, parsed)

	if err := i.store.RefreshFeed(ctx, feed, entries); err != nil {
		return nil, err
	}
	ingestedEntries.Add(float64(len(entries)))

	result := &Result{Feed: feedID, Entries: len(entries)}
	if feed.Title != nil {
		result.Title = *feed.Title
	}

	log.WithFields(log.Fields{
		"feed":    feedID,
		"title":   result.Title,
		"entries": result.Entries,
	}).Info("Ingested feed")

	return result, nil
}
