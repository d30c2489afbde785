// Package catalog stores the satellite groups served by the reference origin.
package catalog

import (
	"context"
	"errors"
	"fmt"

	"github.com/Sternrassler/sat-catalog-client/pkg/satellite"
)

var (
	// ErrNotFound is returned by Get for an unknown catalog id.
	ErrNotFound = errors.New("satellite not found")

	// ErrGroupNotCached is returned by Page for a group that was never stored.
	ErrGroupNotCached = errors.New("group not cached")
)

// Store holds satellite groups and indexes their records by NORAD id.
type Store interface {
	// Page returns up to limit records of group starting at offset.
	Page(ctx context.Context, group string, limit, offset int) ([]satellite.Record, error)

	// Get returns the record with the given NORAD id.
	Get(ctx context.Context, id string) (satellite.Record, error)

	// Put stores a single record so Get can find it without a group.
	Put(ctx context.Context, record satellite.Record) error

	// Replace swaps the full content of group.
	Replace(ctx context.Context, group string, records []satellite.Record) error

	// Close releases the store's resources.
	Close() error
}

// window returns records[offset:offset+limit] clamped to the slice bounds.
func window(records []satellite.Record, limit, offset int) []satellite.Record {
	if offset >= len(records) {
		return []satellite.Record{}
	}
	end := min(offset+limit, len(records))
	return records[offset:end]
}

func validatePage(group string, limit, offset int) error {
	if group == "" {
		return fmt.Errorf("group is required")
	}
	if limit <= 0 {
		return fmt.Errorf("limit must be > 0 (got %d)", limit)
	}
	if offset < 0 {
		return fmt.Errorf("offset must be >= 0 (got %d)", offset)
	}
	return nil
}
