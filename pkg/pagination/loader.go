// Package pagination provides incremental loading of paginated satellite groups
package pagination

import (
	"context"
	"fmt"
	"time"

	"github.com/Sternrassler/sat-catalog-client/pkg/client"
	"github.com/Sternrassler/sat-catalog-client/pkg/logging"
	"github.com/Sternrassler/sat-catalog-client/pkg/satellite"
	"github.com/rs/zerolog"
)

// Config holds loader configuration
type Config struct {
	// PageSize is the largest page requested per call
	PageSize int
}

// DefaultConfig returns the default loader configuration
func DefaultConfig() Config {
	return Config{
		PageSize: 500,
	}
}

// PageFetcher is the interface the catalog client implements for single-page fetching
type PageFetcher interface {
	FetchPage(ctx context.Context, group string, limit, offset int, opts client.FetchOptions) ([]satellite.Record, error)
}

// Options scope one Load call.
type Options struct {
	// Target is the number of records wanted; 0 loads until the group is exhausted
	Target int

	// ForceRefresh and Cancellable are passed through to every page fetch
	ForceRefresh bool
	Cancellable  bool

	// OnPage is called after each page with the page's offset and records
	OnPage func(offset int, records []satellite.Record)
}

// Result is the outcome of a Load call. It is returned with partial data on error.
type Result struct {
	Records   []satellite.Record
	Pages     int
	Offsets   []int
	Exhausted bool // a short page was received
	Duration  time.Duration
}

// Loader pulls a group page by page until a short page or the target.
type Loader struct {
	fetcher PageFetcher
	config  Config
	logger  zerolog.Logger
}

// NewLoader creates a new incremental loader
func NewLoader(fetcher PageFetcher, config Config) *Loader {
	if config.PageSize <= 0 {
		config.PageSize = DefaultConfig().PageSize
	}

	return &Loader{
		fetcher: fetcher,
		config:  config,
		logger:  logging.NewLogger(logging.ComponentLoader),
	}
}

// Load fetches pages of group sequentially. Offsets start at 0 and advance by
// the number of records received.
func (l *Loader) Load(ctx context.Context, group string, opts Options) (*Result, error) {
	if opts.Target < 0 {
		return nil, fmt.Errorf("target must be >= 0 (got %d)", opts.Target)
	}

	start := time.Now()
	result := &Result{}
	fetchOpts := client.FetchOptions{
		Cancellable:  opts.Cancellable,
		ForceRefresh: opts.ForceRefresh,
	}

	l.logger.Info().
		Str("group", group).
		Int("page_size", l.config.PageSize).
		Int("target", opts.Target).
		Msg("Starting incremental load")

	for {
		limit := l.config.PageSize
		if opts.Target > 0 {
			limit = min(limit, opts.Target-len(result.Records))
		}
		if limit <= 0 {
			break
		}

		offset := len(result.Records)
		records, err := l.fetcher.FetchPage(ctx, group, limit, offset, fetchOpts)
		if err != nil {
			result.Duration = time.Since(start)
			if client.IsCancelled(err) {
				l.logger.Debug().
					Str("group", group).
					Int("loaded", len(result.Records)).
					Msg("Incremental load cancelled")
			} else {
				l.logger.Warn().
					Err(err).
					Str("group", group).
					Int("offset", offset).
					Int("loaded", len(result.Records)).
					Msg("Page fetch failed - returning partial results")
			}
			return result, fmt.Errorf("load %s (partial data: %d records in %d pages): %w", group, len(result.Records), result.Pages, err)
		}

		result.Records = append(result.Records, records...)
		result.Pages++
		result.Offsets = append(result.Offsets, offset)

		if opts.OnPage != nil {
			opts.OnPage(offset, records)
		}

		l.logger.Debug().
			Str("group", group).
			Int("offset", offset).
			Int("received", len(records)).
			Int("loaded", len(result.Records)).
			Msg("Page loaded")

		if len(records) < limit {
			result.Exhausted = true
			break
		}
	}

	result.Duration = time.Since(start)
	l.logger.Info().
		Str("group", group).
		Int("records", len(result.Records)).
		Int("pages", result.Pages).
		Bool("exhausted", result.Exhausted).
		Dur("duration", result.Duration).
		Msg("Incremental load complete")

	return result, nil
}
