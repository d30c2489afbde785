// Package upstream fetches GP element sets from the CelesTrak feed.
package upstream

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/Sternrassler/sat-catalog-client/pkg/logging"
	"github.com/Sternrassler/sat-catalog-client/pkg/satellite"
	"github.com/goccy/go-json"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
)

var fetchesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "satcat_upstream_fetches_total",
	Help: "Total number of GP feed fetches by outcome",
}, []string{"status"})

// DefaultBaseURL is the CelesTrak GP query endpoint.
const DefaultBaseURL = "https://celestrak.org/NORAD/elements/gp.php"

// noDataMarker is the plain-text body CelesTrak answers with for an empty query.
const noDataMarker = "No GP data found"

// maxBodySize caps a feed response; the largest groups are a few MB.
const maxBodySize = 64 << 20

// Config holds the feed fetcher configuration.
type Config struct {
	// BaseURL of the gp.php endpoint
	BaseURL string

	// Timeout bounds each attempt
	Timeout time.Duration

	// UserAgent header sent with every request
	UserAgent string

	// Retry overrides the per-class retry configuration when MaxAttempts > 0
	Retry RetryConfig

	// HTTPClient overrides the transport (optional)
	HTTPClient *http.Client
}

// DefaultConfig returns the default feed configuration.
func DefaultConfig() Config {
	return Config{
		BaseURL:   DefaultBaseURL,
		Timeout:   10 * time.Second,
		UserAgent: "sat-catalog-client/0.1.0",
	}
}

// Fetcher pulls GP data for groups and single objects.
type Fetcher struct {
	httpClient *http.Client
	config     Config
	logger     zerolog.Logger
}

// NewFetcher creates a feed fetcher.
func NewFetcher(cfg Config) (*Fetcher, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("base url is required")
	}
	if u, err := url.Parse(cfg.BaseURL); err != nil || u.Host == "" {
		return nil, fmt.Errorf("invalid base url %q", cfg.BaseURL)
	}
	if cfg.Timeout <= 0 {
		return nil, fmt.Errorf("timeout must be > 0 (got %s)", cfg.Timeout)
	}
	if cfg.UserAgent == "" {
		return nil, fmt.Errorf("user-agent is required")
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{}
	}

	return &Fetcher{
		httpClient: httpClient,
		config:     cfg,
		logger:     logging.NewLogger(logging.ComponentUpstream),
	}, nil
}

// FetchGroup returns every record of a CelesTrak group such as "visual" or "active".
// An unknown or empty group yields an empty slice.
func (f *Fetcher) FetchGroup(ctx context.Context, group string) ([]satellite.Record, error) {
	if group == "" {
		return nil, fmt.Errorf("group is required")
	}

	records, err := f.fetch(ctx, url.Values{"GROUP": {group}, "FORMAT": {"JSON"}})
	if errors.Is(err, ErrNotFound) {
		return []satellite.Record{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("fetch group %s: %w", group, err)
	}
	return records, nil
}

// FetchByID returns the record with NORAD catalog number id.
// Returns ErrNotFound when the feed has no such object.
func (f *Fetcher) FetchByID(ctx context.Context, id string) (satellite.Record, error) {
	if id == "" {
		return satellite.Record{}, fmt.Errorf("id is required")
	}

	records, err := f.fetch(ctx, url.Values{"CATNR": {id}, "FORMAT": {"JSON"}})
	if err == nil && len(records) == 0 {
		err = ErrNotFound
	}
	if err != nil {
		return satellite.Record{}, fmt.Errorf("fetch satellite %s: %w", id, err)
	}
	return records[0], nil
}

func (f *Fetcher) fetch(ctx context.Context, query url.Values) ([]satellite.Record, error) {
	start := time.Now()
	var records []satellite.Record

	err := retryWithBackoff(ctx, f.logger, f.retryConfig, func() error {
		var err error
		records, err = f.attempt(ctx, query)
		return err
	})

	switch {
	case err == nil:
		fetchesTotal.WithLabelValues("ok").Inc()
	case errors.Is(err, ErrNotFound):
		fetchesTotal.WithLabelValues("empty").Inc()
	default:
		fetchesTotal.WithLabelValues(string(ClassOf(err))).Inc()
		return nil, err
	}

	f.logger.Debug().
		Str("query", query.Encode()).
		Int("records", len(records)).
		Dur("duration", time.Since(start)).
		Msg("Feed fetch complete")

	return records, err
}

func (f *Fetcher) retryConfig(class ErrorClass) RetryConfig {
	if f.config.Retry.MaxAttempts > 0 {
		return f.config.Retry
	}
	return RetryConfigForErrorClass(class)
}

// attempt performs one bounded feed request.
func (f *Fetcher) attempt(ctx context.Context, query url.Values) ([]satellite.Record, error) {
	attemptCtx, cancel := context.WithTimeout(ctx, f.config.Timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(attemptCtx, http.MethodGet, f.config.BaseURL+"?"+query.Encode(), nil)
	if err != nil {
		return nil, &FeedError{Class: ErrorClassClient, Err: err}
	}
	req.Header.Set("User-Agent", f.config.UserAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := f.httpClient.Do(req)
	if err != nil {
		return nil, &FeedError{Class: ErrorClassNetwork, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return nil, &FeedError{
			Class:      classifyStatus(resp.StatusCode),
			StatusCode: resp.StatusCode,
			Err:        errors.New(resp.Status),
		}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return nil, &FeedError{Class: ErrorClassNetwork, Err: fmt.Errorf("read response body: %w", err)}
	}

	return decodeRecords(body)
}

// decodeRecords accepts a JSON array, a single JSON object, or the feed's
// plain-text "no data" answer.
func decodeRecords(body []byte) ([]satellite.Record, error) {
	trimmed := bytes.TrimSpace(body)

	switch {
	case len(trimmed) == 0 || strings.Contains(string(trimmed), noDataMarker):
		return nil, ErrNotFound
	case trimmed[0] == '[':
		var records []satellite.Record
		if err := json.Unmarshal(trimmed, &records); err != nil {
			return nil, &FeedError{Class: ErrorClassClient, Err: fmt.Errorf("decode records: %w", err)}
		}
		return records, nil
	case trimmed[0] == '{':
		var record satellite.Record
		if err := json.Unmarshal(trimmed, &record); err != nil {
			return nil, &FeedError{Class: ErrorClassClient, Err: fmt.Errorf("decode record: %w", err)}
		}
		return []satellite.Record{record}, nil
	default:
		return nil, &FeedError{Class: ErrorClassClient, Err: fmt.Errorf("unexpected response: %.80s", trimmed)}
	}
}
