package server

import (
	"context"
	"errors"
	"lfreader/codec"
	"lfreader/db"
	"lfreader/models"
	"time"

	"github.com/goccy/go-json"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/compress"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	log "github.com/sirupsen/logrus"
)

// Store is the part of the repository the HTTP API exposes
type Store interface {
	GetFeeds(ctx context.Context) ([]models.Feed, error)
	GetFeedsByTag(ctx context.Context, name string) ([]models.Feed, error)
	GetFeed(ctx context.Context, id string) (*models.Feed, error)
	UpsertFeed(ctx context.Context, feed models.Feed) error
	DeleteFeeds(ctx context.Context, ids ...string) (int64, error)
	GetEntries(ctx context.Context, q db.EntryQuery) ([]models.Entry, error)
	SetEntryStatus(ctx context.Context, id, feed string, flag models.Flag, on bool) (models.Status, error)
	AddTag(ctx context.Context, feed, name string) error
	RemoveTag(ctx context.Context, feed, name string) error
	ListTags(ctx context.Context) ([]models.TagCount, error)
}

type ServerConfig struct {
	// The store backing every route
	Store Store

	// Default and maximum page size of entry listings
	PageSize    int
	MaxPageSize int
}

// Server returns a fiber.App serving the JSON API and /metrics
func Server(config *ServerConfig) *fiber.App {
	if config.PageSize <= 0 {
		config.PageSize = 50
	}
	if config.MaxPageSize < config.PageSize {
		config.MaxPageSize = 500
	}

	app := fiber.New(fiber.Config{
		AppName:               "lfreader",
		DisableStartupMessage: true,
		ErrorHandler:          errorHandler,
		JSONEncoder:           json.Marshal,
		JSONDecoder:           json.Unmarshal,
	})

	// Middleware to track the latency of each request
	app.Use(func(c *fiber.Ctx) error {
		// start timer
		start := time.Now()

		// next routes
		err := c.Next()

		log.WithFields(log.Fields{
			"method":    c.Method(),
			"route":     c.Route().Path,
			"requestId": c.Locals(requestid.ConfigDefault.ContextKey),
			"latency":   time.Since(start),
		}).Info("Request")
		return err
	})

	app.Use(requestid.New(requestid.ConfigDefault))
	app.Use(compress.New())

	h := &handlers{store: config.Store, pageSize: config.PageSize, maxPageSize: config.MaxPageSize}

	api := app.Group("/api")
	api.Get("/feeds", h.getFeeds)
	api.Put("/feeds", h.putFeed)
	api.Delete("/feeds", h.deleteFeeds)
	api.Get("/feed", h.getFeed)
	api.Get("/entries", h.getEntries)
	api.Put("/entries/status", h.putEntryStatus)
	api.Get("/tags", h.getTags)
	api.Put("/tags", h.putTag)
	api.Delete("/tags", h.deleteTag)

	app.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))

	return app
}

// errorHandler maps store errors to status codes
func errorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError

	var (
		fiberErr  *fiber.Error
		violation *db.ConstraintViolation
		transient *db.TransientStoreError
		decodeErr *codec.DecodeError
	)
	switch {
	case errors.As(err, &fiberErr):
		code = fiberErr.Code
	case errors.Is(err, db.ErrNotFound):
		code = fiber.StatusNotFound
	case errors.As(err, &violation):
		code = fiber.StatusConflict
	case errors.As(err, &transient):
		code = fiber.StatusServiceUnavailable
		c.Set(fiber.HeaderRetryAfter, "1")
	case errors.As(err, &decodeErr):
		code = fiber.StatusInternalServerError
	}

	if code >= fiber.StatusInternalServerError {
		log.WithFields(log.Fields{
			"path":  c.Path(),
			"error": err,
		}).Error("Request failed")
	}

	return c.Status(code).JSON(fiber.Map{"error": err.Error()})
}
