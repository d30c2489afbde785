package catalog

import (
	"context"
	"errors"
	"fmt"

	"github.com/Sternrassler/sat-catalog-client/pkg/satellite"
	"github.com/goccy/go-json"
	"github.com/klauspost/compress/zstd"
	"github.com/redis/go-redis/v9"
)

const (
	groupKeyTemplate  = "satcat:group:%s"
	recordKeyTemplate = "satcat:sat:%s"
)

var enc, _ = zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedFastest))
var dec, _ = zstd.NewReader(nil)

// RedisStore keeps each group as one zstd-compressed JSON blob and every
// record under its own key for lookups by id.
type RedisStore struct {
	cli *redis.Client
}

// NewRedisStore wraps an existing client. Close closes the client.
func NewRedisStore(cli *redis.Client) *RedisStore {
	return &RedisStore{cli: cli}
}

func (s *RedisStore) Page(ctx context.Context, group string, limit, offset int) ([]satellite.Record, error) {
	if err := validatePage(group, limit, offset); err != nil {
		return nil, err
	}

	blob, err := s.cli.Get(ctx, groupKey(group)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrGroupNotCached
		}
		return nil, fmt.Errorf("redis get group %s: %w", group, err)
	}

	records, err := decodeGroup(blob)
	if err != nil {
		return nil, fmt.Errorf("decode group %s: %w", group, err)
	}
	return window(records, limit, offset), nil
}

func (s *RedisStore) Get(ctx context.Context, id string) (satellite.Record, error) {
	data, err := s.cli.Get(ctx, recordKey(id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return satellite.Record{}, ErrNotFound
		}
		return satellite.Record{}, fmt.Errorf("redis get satellite %s: %w", id, err)
	}

	var record satellite.Record
	if err := json.Unmarshal(data, &record); err != nil {
		return satellite.Record{}, fmt.Errorf("invalid record %s: %w", id, err)
	}
	return record, nil
}

func (s *RedisStore) Put(ctx context.Context, record satellite.Record) error {
	data, err := json.Marshal(record)
	if err != nil {
		return err
	}
	return s.cli.Set(ctx, recordKey(record.ID()), data, 0).Err()
}

// Replace writes the group blob and all record keys in one MULTI/EXEC.
func (s *RedisStore) Replace(ctx context.Context, group string, records []satellite.Record) error {
	blob, err := encodeGroup(records)
	if err != nil {
		return fmt.Errorf("encode group %s: %w", group, err)
	}

	_, err = s.cli.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, groupKey(group), blob, 0)
		for _, r := range records {
			data, err := json.Marshal(r)
			if err != nil {
				return err
			}
			pipe.Set(ctx, recordKey(r.ID()), data, 0)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("redis replace group %s: %w", group, err)
	}
	return nil
}

func (s *RedisStore) Close() error {
	return s.cli.Close()
}

func encodeGroup(records []satellite.Record) ([]byte, error) {
	if records == nil {
		records = []satellite.Record{}
	}
	raw, err := json.Marshal(records)
	if err != nil {
		return nil, err
	}
	return enc.EncodeAll(raw, nil), nil
}

func decodeGroup(blob []byte) ([]satellite.Record, error) {
	raw, err := dec.DecodeAll(blob, nil)
	if err != nil {
		return nil, err
	}
	var records []satellite.Record
	if err := json.Unmarshal(raw, &records); err != nil {
		return nil, err
	}
	return records, nil
}

func groupKey(group string) string {
	return fmt.Sprintf(groupKeyTemplate, group)
}

func recordKey(id string) string {
	return fmt.Sprintf(recordKeyTemplate, id)
}
