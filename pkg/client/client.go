// Package client provides the satellite catalog client with time-boxed
// caching, request coalescing, and sticky primary/secondary failover.
package client

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"sync"
	"time"

	"github.com/Sternrassler/sat-catalog-client/pkg/cache"
	"github.com/Sternrassler/sat-catalog-client/pkg/endpoint"
	"github.com/Sternrassler/sat-catalog-client/pkg/logging"
	"github.com/Sternrassler/sat-catalog-client/pkg/satellite"
	"github.com/goccy/go-json"
	"github.com/rs/zerolog"
)

// Client is the satellite catalog client. Create one per session and share it;
// its cache and failover state are only consistent within one instance.
type Client struct {
	httpClient *http.Client
	selector   *endpoint.Selector
	executor   *Executor
	pages      *cache.Manager[[]satellite.Record]
	records    *cache.Manager[satellite.Record]
	pageCalls  coalescer[[]satellite.Record]
	lookups    coalescer[satellite.Record]
	config     Config
	logger     zerolog.Logger

	clockMu sync.RWMutex
	now     func() time.Time
}

// Config holds the client configuration.
type Config struct {
	// Origins (REQUIRED)
	PrimaryURL   string // local origin, tried first
	SecondaryURL string // remote origin, used after failover

	// User-Agent header sent with every call
	UserAgent string

	// PrimaryTimeout bounds how long a dead primary can stall a request.
	// Secondary calls carry no client-side timeout.
	PrimaryTimeout time.Duration

	// CacheTTL is how long a fetched page or record is served from memory
	CacheTTL time.Duration

	// FallbackRedispatch retries a request once against the secondary in the
	// same call when the primary fails it
	FallbackRedispatch bool

	// HTTPClient overrides the transport (optional)
	HTTPClient *http.Client
}

// FetchOptions scope one request.
type FetchOptions struct {
	// Cancellable gives the request its own network call bound to the
	// caller's context, so cancelling it aborts that call. Never coalesced.
	Cancellable bool

	// ForceRefresh skips the cache lookup and is never coalesced.
	// The fresh result still replaces the cached one.
	ForceRefresh bool
}

// DefaultConfig returns a safe default configuration.
func DefaultConfig(primaryURL, secondaryURL string) Config {
	return Config{
		PrimaryURL:         primaryURL,
		SecondaryURL:       secondaryURL,
		UserAgent:          "sat-catalog-client/0.1.0",
		PrimaryTimeout:     1 * time.Second,
		CacheTTL:           60 * time.Second,
		FallbackRedispatch: true,
	}
}

// New creates a new catalog client.
func New(cfg Config) (*Client, error) {
	if cfg.PrimaryURL == "" {
		return nil, fmt.Errorf("primary url is required")
	}

	if cfg.SecondaryURL == "" {
		return nil, fmt.Errorf("secondary url is required")
	}

	for _, raw := range []string{cfg.PrimaryURL, cfg.SecondaryURL} {
		u, err := url.Parse(raw)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			return nil, fmt.Errorf("invalid origin url %q", raw)
		}
	}

	if cfg.UserAgent == "" {
		return nil, fmt.Errorf("user-agent is required")
	}

	if cfg.PrimaryTimeout <= 0 {
		return nil, fmt.Errorf("primary_timeout must be > 0 (got %s)", cfg.PrimaryTimeout)
	}

	if cfg.CacheTTL <= 0 {
		return nil, fmt.Errorf("cache_ttl must be > 0 (got %s)", cfg.CacheTTL)
	}

	logger := logging.NewLogger(logging.ComponentClient)

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		// No client-wide timeout: the primary is bounded per call and
		// secondary calls are bounded only by the caller's ctx.
		httpClient = &http.Client{}
	}

	selector := endpoint.NewSelector(cfg.PrimaryURL, cfg.SecondaryURL, logging.NewLogger(logging.ComponentEndpoint))

	c := &Client{
		httpClient: httpClient,
		selector:   selector,
		executor:   NewExecutor(httpClient, selector, cfg.UserAgent, logger),
		config:     cfg,
		logger:     logger,
		now:        time.Now,
	}

	c.pages = cache.NewManager(
		cache.WithClock[[]satellite.Record](c.clock),
		cache.WithCloner(satellite.Clone),
	)
	c.records = cache.NewManager(cache.WithClock[satellite.Record](c.clock))

	return c, nil
}

// FetchPage returns up to limit records of group starting at offset.
// Fewer than limit records means the group is exhausted.
func (c *Client) FetchPage(ctx context.Context, group string, limit, offset int, opts FetchOptions) ([]satellite.Record, error) {
	if group == "" {
		return nil, fmt.Errorf("group is required")
	}
	if limit <= 0 {
		return nil, fmt.Errorf("limit must be > 0 (got %d)", limit)
	}
	if offset < 0 {
		return nil, fmt.Errorf("offset must be >= 0 (got %d)", offset)
	}

	key := cache.PageKey(group, limit, offset)

	// Step 1: Check Cache
	if !opts.ForceRefresh {
		if records, ttl, ok := c.pages.GetWithTTL(key); ok {
			c.logger.Debug().
				Str("group", group).
				Int("limit", limit).
				Int("offset", offset).
				Bool("cache_hit", true).
				Dur("ttl_remaining", ttl).
				Msg("Serving page from cache")
			return records, nil
		}
	}

	spec := RequestSpec{
		Method: http.MethodGet,
		Path:   "/satellites",
		Query: url.Values{
			"group":  []string{group},
			"limit":  []string{strconv.Itoa(limit)},
			"offset": []string{strconv.Itoa(offset)},
		},
	}

	// Step 2: Fetch (coalesced unless individually scoped) and cache
	records, err := fetchThrough(ctx, &c.pageCalls, key, opts, func(ctx context.Context) ([]satellite.Record, error) {
		body, origin, err := c.dispatch(ctx, spec)
		if err != nil {
			return nil, err
		}

		var page []satellite.Record
		if err := json.Unmarshal(body, &page); err != nil {
			return nil, fmt.Errorf("decode %s page: %w", origin, err)
		}

		c.pages.Set(key, page, c.config.CacheTTL)
		return page, nil
	})
	if err != nil {
		c.logFailure(err, "Page fetch failed", group, offset)
		return nil, fmt.Errorf("fetch page %s (limit %d, offset %d): %w", group, limit, offset, err)
	}

	return satellite.Clone(records), nil
}

// FetchSatellite returns the record with the given NORAD catalog id.
// Returns an error matching ErrNotFound when the active origin has no such record.
func (c *Client) FetchSatellite(ctx context.Context, id string, opts FetchOptions) (satellite.Record, error) {
	if id == "" {
		return satellite.Record{}, fmt.Errorf("id is required")
	}

	key := cache.RecordKey(id)

	if !opts.ForceRefresh {
		if record, ok := c.records.Get(key); ok {
			return record, nil
		}
	}

	spec := RequestSpec{
		Method: http.MethodGet,
		Path:   "/satellites/" + url.PathEscape(id),
		Lookup: true,
	}

	record, err := fetchThrough(ctx, &c.lookups, key, opts, func(ctx context.Context) (satellite.Record, error) {
		body, origin, err := c.dispatch(ctx, spec)
		if err != nil {
			return satellite.Record{}, err
		}

		var rec satellite.Record
		if err := json.Unmarshal(body, &rec); err != nil {
			return satellite.Record{}, fmt.Errorf("decode %s record: %w", origin, err)
		}

		c.records.Set(key, rec, c.config.CacheTTL)
		return rec, nil
	})
	if err != nil {
		if ClassOf(err) == ErrorClassNotFound {
			// A forced lookup may have learned the record is gone.
			c.records.Delete(key)
		}
		c.logFailure(err, "Satellite lookup failed", "", 0)
		return satellite.Record{}, fmt.Errorf("fetch satellite %s: %w", id, err)
	}

	return record, nil
}

// RefreshCache asks the active origin to reload group from its upstream and
// drops every cached page of group. It is never cached or coalesced.
func (c *Client) RefreshCache(ctx context.Context, group string, limit int) (*satellite.CacheStatus, error) {
	if group == "" {
		return nil, fmt.Errorf("group is required")
	}

	query := url.Values{"group": []string{group}}
	if limit > 0 {
		query.Set("limit", strconv.Itoa(limit))
	}

	body, origin, err := c.dispatch(ctx, RequestSpec{
		Method: http.MethodPost,
		Path:   "/satellites/cache",
		Query:  query,
	})
	if err != nil {
		c.logFailure(err, "Cache refresh failed", group, 0)
		return nil, fmt.Errorf("refresh %s: %w", group, err)
	}

	var status satellite.CacheStatus
	if err := json.Unmarshal(body, &status); err != nil {
		return nil, fmt.Errorf("decode %s refresh status: %w", origin, err)
	}

	purged := c.pages.PurgePrefix(cache.GroupPrefix(group))
	c.logger.Info().
		Str("group", group).
		Str("origin", string(origin)).
		Int("cached", status.Cached).
		Int("purged_pages", purged).
		Msg("Origin cache refreshed")

	return &status, nil
}

// dispatch sends spec to the active origin. When the primary fails it and
// fallback is enabled, it re-dispatches once to the secondary the failure
// just switched to.
func (c *Client) dispatch(ctx context.Context, spec RequestSpec) ([]byte, endpoint.Origin, error) {
	origin := c.selector.Active()

	body, err := c.executor.Execute(ctx, origin, spec, c.execOptions(origin))
	if err == nil {
		return body, origin, nil
	}

	if origin != endpoint.Primary || !c.config.FallbackRedispatch ||
		!ShouldFailover(ClassOf(err)) || c.selector.Active() != endpoint.Secondary {
		return nil, origin, err
	}

	fallbackTotal.Inc()
	c.logger.Info().
		Str("path", spec.Path).
		Str("error_class", string(ClassOf(err))).
		Msg("Re-dispatching request to secondary origin")

	body, fallbackErr := c.executor.Execute(ctx, endpoint.Secondary, spec, c.execOptions(endpoint.Secondary))
	if fallbackErr != nil {
		return nil, endpoint.Secondary, fmt.Errorf("secondary after primary %s: %w", ClassOf(err), fallbackErr)
	}
	return body, endpoint.Secondary, nil
}

// execOptions applies the primary timeout; secondary calls are unbounded here.
func (c *Client) execOptions(origin endpoint.Origin) ExecOptions {
	if origin == endpoint.Primary {
		return ExecOptions{Timeout: c.config.PrimaryTimeout}
	}
	return ExecOptions{}
}

// logFailure keeps cancellations out of warning logs.
func (c *Client) logFailure(err error, msg, group string, offset int) {
	event := c.logger.Warn()
	if IsCancelled(err) {
		event = c.logger.Debug()
	}
	event.Err(err).
		Str("group", group).
		Int("offset", offset).
		Str("error_class", string(ClassOf(err))).
		Msg(msg)
}

// fetchThrough runs produce directly for individually scoped requests and
// through the coalescer otherwise.
func fetchThrough[V any](ctx context.Context, calls *coalescer[V], key cache.Key, opts FetchOptions, produce func(context.Context) (V, error)) (V, error) {
	if opts.Cancellable || opts.ForceRefresh {
		return produce(ctx)
	}
	v, _, err := calls.Do(ctx, key.String(), produce)
	return v, err
}

// ActiveOrigin returns the origin the next request will target.
func (c *Client) ActiveOrigin() endpoint.Origin {
	return c.selector.Active()
}

// FailedOver reports whether the client has permanently switched to the secondary.
func (c *Client) FailedOver() bool {
	return c.selector.FailedOver()
}

// Close releases idle connections.
func (c *Client) Close() error {
	c.httpClient.CloseIdleConnections()
	return nil
}

// SetClock replaces the cache time source (for testing).
func (c *Client) SetClock(now func() time.Time) {
	c.clockMu.Lock()
	defer c.clockMu.Unlock()
	c.now = now
}

func (c *Client) clock() time.Time {
	c.clockMu.RLock()
	defer c.clockMu.RUnlock()
	return c.now()
}
