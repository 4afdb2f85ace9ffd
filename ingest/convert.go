// Package ingest turns parsed syndication feeds into feeds and entries and
// hands them to the store.
package ingest

import (
	"strconv"
	"strings"
	"time"

	"lfreader/models"

	"github.com/google/uuid"
	"github.com/mmcdole/gofeed"
	"github.com/samber/lo"
)

const (
	relAlternate = "alternate"
	relSelf      = "self"
	relEnclosure = "enclosure"
)

// Convert maps a parsed feed to a Feed and its entries. Entry status is
// always zero here: the store keeps the stored status on upsert.
func Convert(feedID string, parsed *gofeed.Feed) (models.Feed, []models.Entry) {
	feed := models.Feed{
		Id:          feedID,
		Title:       optional(parsed.Title),
		Description: optional(parsed.Description),
		Authors:     people(parsed.Authors),
		Links:       feedLinks(parsed),
		Updated:     utc(parsed.UpdatedParsed),
		Published:   utc(parsed.PublishedParsed),
	}
	if parsed.Image != nil {
		feed.Logo = optional(parsed.Image.URL)
	}

	entries := lo.FilterMap(parsed.Items, func(item *gofeed.Item, _ int) (models.Entry, bool) {
		if item == nil {
			return models.Entry{}, false
		}
		return convertItem(feedID, item), true
	})
	// a feed repeating an id would upsert the same row twice in one batch
	entries = lo.UniqBy(entries, func(e models.Entry) string { return e.Id })

	return feed, entries
}

func convertItem(feedID string, item *gofeed.Item) models.Entry {
	entry := models.Entry{
		Id:        EntryID(feedID, item),
		Feed:      feedID,
		Authors:   people(item.Authors),
		Links:     itemLinks(item),
		Updated:   utc(item.UpdatedParsed),
		Published: utc(item.PublishedParsed),
	}

	if title := strings.TrimSpace(item.Title); title != "" {
		entry.Title = &models.Text{ContentType: models.TextPlain, Content: title}
	}
	if item.Description != "" {
		entry.Summary = &models.Text{ContentType: models.TextHTML, Content: item.Description}
	}
	if item.Content != "" {
		length := uint64(len(item.Content))
		entry.Content = &models.Content{
			Body:        &item.Content,
			ContentType: models.TextHTML,
			Length:      &length,
		}
	}
	return entry
}

// EntryID picks the guid, then the link. Items with neither get a name based
// UUID so that re-importing the same item yields the same id.
func EntryID(feedID string, item *gofeed.Item) string {
	if guid := strings.TrimSpace(item.GUID); guid != "" {
		return guid
	}
	if link := strings.TrimSpace(item.Link); link != "" {
		return link
	}

	published := ""
	if item.PublishedParsed != nil {
		published = item.PublishedParsed.UTC().Format(time.RFC3339)
	}
	name := strings.Join([]string{feedID, item.Title, published}, "|")
	return uuid.NewSHA1(uuid.NameSpaceURL, []byte(name)).String()
}

func feedLinks(parsed *gofeed.Feed) []models.Link {
	var links []models.Link
	if parsed.Link != "" {
		links = append(links, models.Link{Href: parsed.Link, Rel: models.StringPtr(relAlternate)})
	}
	if parsed.FeedLink != "" {
		links = append(links, models.Link{Href: parsed.FeedLink, Rel: models.StringPtr(relSelf)})
	}
	for _, href := range parsed.Links {
		if href == "" {
			continue
		}
		links = append(links, models.Link{Href: href, Rel: models.StringPtr(relAlternate)})
	}
	return lo.UniqBy(links, func(l models.Link) string { return l.Href })
}

func itemLinks(item *gofeed.Item) []models.Link {
	hrefs := lo.Uniq(lo.Compact(append([]string{item.Link}, item.Links...)))
	links := lo.Map(hrefs, func(href string, _ int) models.Link {
		return models.Link{Href: href, Rel: models.StringPtr(relAlternate)}
	})

	for _, enc := range item.Enclosures {
		if enc == nil || enc.URL == "" {
			continue
		}
		link := models.Link{
			Href:      enc.URL,
			Rel:       models.StringPtr(relEnclosure),
			MediaType: optional(enc.Type),
		}
		if n, err := strconv.ParseUint(enc.Length, 10, 64); err == nil && n > 0 {
			link.Length = &n
		}
		links = append(links, link)
	}
	if len(links) == 0 {
		return nil
	}
	return links
}

func people(authors []*gofeed.Person) []models.Person {
	out := lo.FilterMap(authors, func(p *gofeed.Person, _ int) (models.Person, bool) {
		if p == nil || strings.TrimSpace(p.Name) == "" {
			return models.Person{}, false
		}
		return models.Person{Name: strings.TrimSpace(p.Name), Email: optional(p.Email)}, true
	})
	if len(out) == 0 {
		return nil
	}
	return out
}

func optional(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}

func utc(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	u := t.UTC()
	return &u
}
