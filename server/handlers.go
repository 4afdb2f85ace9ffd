package server

import (
	"lfreader/db"
	"lfreader/models"

	"github.com/gofiber/fiber/v2"
	log "github.com/sirupsen/logrus"
)

type handlers struct {
	store       Store
	pageSize    int
	maxPageSize int
}

type statusRequest struct {
	Feed  string `json:"feed"`
	Id    string `json:"id"`
	Flag  string `json:"flag"`
	Value bool   `json:"value"`
}

type tagRequest struct {
	Feed string `json:"feed"`
	Name string `json:"name"`
}

// queryAll returns every value of a repeated query parameter
func queryAll(c *fiber.Ctx, key string) []string {
	var values []string
	for _, v := range c.Context().QueryArgs().PeekMulti(key) {
		if len(v) > 0 {
			values = append(values, string(v))
		}
	}
	return values
}

func (h *handlers) getFeeds(c *fiber.Ctx) error {
	var (
		feeds []models.Feed
		err   error
	)
	if tag := c.Query("tag"); tag != "" {
		feeds, err = h.store.GetFeedsByTag(c.UserContext(), tag)
	} else {
		feeds, err = h.store.GetFeeds(c.UserContext())
	}
	if err != nil {
		return err
	}
	return c.JSON(feeds)
}

func (h *handlers) getFeed(c *fiber.Ctx) error {
	id := c.Query("id")
	if id == "" {
		return fiber.NewError(fiber.StatusBadRequest, "missing id")
	}

	feed, err := h.store.GetFeed(c.UserContext(), id)
	if err != nil {
		return err
	}
	if feed == nil {
		return fiber.NewError(fiber.StatusNotFound, "no feed with id "+id)
	}
	return c.JSON(feed)
}

// putFeed upserts the feed metadata. Entries and tags in the body are ignored.
func (h *handlers) putFeed(c *fiber.Ctx) error {
	var feed models.Feed
	if err := c.BodyParser(&feed); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}
	if feed.Id == "" {
		return fiber.NewError(fiber.StatusBadRequest, "missing id")
	}
	feed.Entries = nil
	feed.Tags = nil

	if err := h.store.UpsertFeed(c.UserContext(), feed); err != nil {
		return err
	}

	log.WithField("feed", feed.Id).Info("Feed upserted")
	return c.SendStatus(fiber.StatusNoContent)
}

func (h *handlers) deleteFeeds(c *fiber.Ctx) error {
	ids := queryAll(c, "id")
	if len(ids) == 0 {
		return fiber.NewError(fiber.StatusBadRequest, "missing id")
	}

	deleted, err := h.store.DeleteFeeds(c.UserContext(), ids...)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"deleted": deleted})
}

func (h *handlers) getEntries(c *fiber.Ctx) error {
	limit := c.QueryInt("limit", h.pageSize)
	if limit < 1 || limit > h.maxPageSize {
		limit = h.pageSize
	}
	offset := c.QueryInt("offset", 0)
	if offset < 0 {
		offset = 0
	}

	entries, err := h.store.GetEntries(c.UserContext(), db.EntryQuery{
		FeedIDs:     queryAll(c, "feed"),
		Tag:         c.Query("tag"),
		UnreadOnly:  c.QueryBool("unread", false),
		StarredOnly: c.QueryBool("starred", false),
		Offset:      offset,
		Limit:       limit,
	})
	if err != nil {
		return err
	}
	return c.JSON(entries)
}

func (h *handlers) putEntryStatus(c *fiber.Ctx) error {
	var req statusRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}
	if req.Feed == "" || req.Id == "" {
		return fiber.NewError(fiber.StatusBadRequest, "feed and id are required")
	}
	flag, ok := models.ParseFlag(req.Flag)
	if !ok {
		return fiber.NewError(fiber.StatusBadRequest, "unknown flag "+req.Flag)
	}

	status, err := h.store.SetEntryStatus(c.UserContext(), req.Id, req.Feed, flag, req.Value)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{
		"feed":    req.Feed,
		"id":      req.Id,
		"status":  status,
		"read":    status.IsRead(),
		"starred": status.IsStarred(),
	})
}

func (h *handlers) getTags(c *fiber.Ctx) error {
	tags, err := h.store.ListTags(c.UserContext())
	if err != nil {
		return err
	}
	if tags == nil {
		tags = []models.TagCount{}
	}
	return c.JSON(tags)
}

func (h *handlers) parseTag(c *fiber.Ctx) (*tagRequest, error) {
	var req tagRequest
	if err := c.BodyParser(&req); err != nil {
		return nil, fiber.NewError(fiber.StatusBadRequest, err.Error())
	}
	if req.Feed == "" || req.Name == "" {
		return nil, fiber.NewError(fiber.StatusBadRequest, "feed and name are required")
	}
	return &req, nil
}

func (h *handlers) putTag(c *fiber.Ctx) error {
	req, err := h.parseTag(c)
	if err != nil {
		return err
	}
	if err := h.store.AddTag(c.UserContext(), req.Feed, req.Name); err != nil {
		return err
	}
	return c.SendStatus(fiber.StatusNoContent)
}

func (h *handlers) deleteTag(c *fiber.Ctx) error {
	req, err := h.parseTag(c)
	if err != nil {
		return err
	}
	if err := h.store.RemoveTag(c.UserContext(), req.Feed, req.Name); err != nil {
		return err
	}
	return c.SendStatus(fiber.StatusNoContent)
}
