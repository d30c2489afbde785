// Package server implements the reference catalog origin: a thin paginated
// read API over a catalog store, refreshed from the upstream GP feed.
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/Sternrassler/sat-catalog-client/internal/catalog"
	"github.com/Sternrassler/sat-catalog-client/internal/upstream"
	"github.com/Sternrassler/sat-catalog-client/pkg/logging"
	"github.com/Sternrassler/sat-catalog-client/pkg/metrics"
	"github.com/Sternrassler/sat-catalog-client/pkg/satellite"
	"github.com/gin-gonic/gin"
	"github.com/klauspost/compress/gzhttp"
	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"
)

// Feed is the upstream source of satellite groups.
type Feed interface {
	FetchGroup(ctx context.Context, group string) ([]satellite.Record, error)
	FetchByID(ctx context.Context, id string) (satellite.Record, error)
}

// Config holds the origin configuration.
type Config struct {
	// DefaultGroup is used when a request names no group
	DefaultGroup string

	// MaxLimit caps limit and is used when a listing names none
	MaxLimit int
}

// DefaultConfig returns the default origin configuration.
func DefaultConfig() Config {
	return Config{
		DefaultGroup: "visual",
		MaxLimit:     10000,
	}
}

// Server serves /satellites from a catalog store.
type Server struct {
	engine *gin.Engine
	store  catalog.Store
	feed   Feed
	config Config
	logger zerolog.Logger

	// fills keeps one upstream fetch per cold group
	fills singleflight.Group
}

// New creates the origin server and registers its routes.
func New(store catalog.Store, feed Feed, cfg Config) *Server {
	if cfg.DefaultGroup == "" {
		cfg.DefaultGroup = DefaultConfig().DefaultGroup
	}
	if cfg.MaxLimit <= 0 {
		cfg.MaxLimit = DefaultConfig().MaxLimit
	}

	gin.SetMode(gin.ReleaseMode)

	s := &Server{
		engine: gin.New(),
		store:  store,
		feed:   feed,
		config: cfg,
		logger: logging.NewLogger(logging.ComponentOrigin),
	}

	s.engine.Use(gin.Recovery(), requestLogger(s.logger), instrument(), cors())
	s.registerRoutes()
	return s
}

func (s *Server) registerRoutes() {
	s.engine.GET("/", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": "Welcome to the Satellite Tracking API"})
	})
	s.engine.GET("/health", func(c *gin.Context) {
		c.String(http.StatusOK, "OK")
	})
	s.engine.GET("/metrics", gin.WrapH(metrics.Handler()))

	s.engine.GET("/satellites", s.listSatellites)
	s.engine.GET("/satellites/:id", s.getSatellite)
	s.engine.POST("/satellites/cache", s.refreshCache)
}

// Handler returns the gzip-wrapped HTTP handler.
func (s *Server) Handler() http.Handler {
	return gzhttp.GzipHandler(s.engine)
}

func (s *Server) listSatellites(c *gin.Context) {
	group := c.DefaultQuery("group", s.config.DefaultGroup)

	limit, err := queryInt(c, "limit", s.config.MaxLimit)
	if err != nil || limit <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be a positive integer"})
		return
	}
	limit = min(limit, s.config.MaxLimit)

	offset, err := queryInt(c, "offset", 0)
	if err != nil || offset < 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "offset must be a non-negative integer"})
		return
	}

	ctx := c.Request.Context()
	page, err := s.store.Page(ctx, group, limit, offset)
	if errors.Is(err, catalog.ErrGroupNotCached) {
		if _, err = s.fillGroup(ctx, group, 0); err == nil {
			page, err = s.store.Page(ctx, group, limit, offset)
		}
	}
	if err != nil {
		s.fail(c, err)
		return
	}

	c.JSON(http.StatusOK, page)
}

func (s *Server) getSatellite(c *gin.Context) {
	id := c.Param("id")
	if _, err := strconv.Atoi(id); err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "satellite not found"})
		return
	}

	ctx := c.Request.Context()
	record, err := s.store.Get(ctx, id)
	if errors.Is(err, catalog.ErrNotFound) {
		record, err = s.feed.FetchByID(ctx, id)
		if err == nil {
			if putErr := s.store.Put(ctx, record); putErr != nil {
				s.logger.Warn().Err(putErr).Str("id", id).Msg("Failed to store looked-up satellite")
			}
		}
	}
	if err != nil {
		s.fail(c, err)
		return
	}

	c.JSON(http.StatusOK, record)
}

func (s *Server) refreshCache(c *gin.Context) {
	group := c.DefaultQuery("group", s.config.DefaultGroup)

	limit, err := queryInt(c, "limit", 0)
	if err != nil || limit < 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be a non-negative integer"})
		return
	}

	cached, err := s.replaceGroup(c.Request.Context(), group, limit)
	if err != nil {
		s.fail(c, err)
		return
	}

	c.JSON(http.StatusOK, satellite.CacheStatus{
		Status:      "ok",
		Group:       group,
		Cached:      cached,
		RefreshedAt: time.Now().UTC(),
	})
}

// fillGroup loads a cold group once no matter how many requests miss it.
func (s *Server) fillGroup(ctx context.Context, group string, limit int) (int, error) {
	v, err, _ := s.fills.Do(group, func() (any, error) {
		return s.replaceGroup(context.WithoutCancel(ctx), group, limit)
	})
	if err != nil {
		return 0, err
	}
	return v.(int), nil
}

// replaceGroup pulls group from the feed, drops invalid records, keeps at
// most limit (0 keeps all), and stores the result.
func (s *Server) replaceGroup(ctx context.Context, group string, limit int) (int, error) {
	start := time.Now()

	fetched, err := s.feed.FetchGroup(ctx, group)
	if err != nil {
		return 0, err
	}

	records := make([]satellite.Record, 0, len(fetched))
	for _, r := range fetched {
		if err := r.Validate(); err != nil {
			s.logger.Debug().Err(err).Str("group", group).Msg("Skipping invalid record")
			continue
		}
		records = append(records, r)
	}
	if limit > 0 && len(records) > limit {
		records = records[:limit]
	}

	if err := s.store.Replace(ctx, group, records); err != nil {
		return 0, fmt.Errorf("store group %s: %w", group, err)
	}
	catalogRecords.WithLabelValues(group).Set(float64(len(records)))

	s.logger.Info().
		Str("group", group).
		Int("fetched", len(fetched)).
		Int("cached", len(records)).
		Dur("duration", time.Since(start)).
		Msg("Group cached from upstream feed")

	return len(records), nil
}

// fail maps an error to a JSON error response.
func (s *Server) fail(c *gin.Context, err error) {
	switch {
	case errors.Is(err, catalog.ErrNotFound), errors.Is(err, upstream.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "satellite not found"})
	case errors.Is(err, context.Canceled):
		c.Status(499)
	case isFeedError(err):
		s.logger.Warn().Err(err).Msg("Upstream feed unavailable")
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": fmt.Sprintf("CelesTrak API error: %v", err)})
	default:
		s.logger.Error().Err(err).Msg("Catalog request failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}

func isFeedError(err error) bool {
	var feedErr *upstream.FeedError
	return errors.As(err, &feedErr) ||
		errors.Is(err, upstream.ErrRetryExhausted) ||
		errors.Is(err, upstream.ErrContextCancelled)
}

func queryInt(c *gin.Context, key string, def int) (int, error) {
	raw, ok := c.GetQuery(key)
	if !ok || raw == "" {
		return def, nil
	}
	return strconv.Atoi(raw)
}
