//go:build integration

package catalog

import (
	"context"
	"testing"

	"github.com/Sternrassler/sat-catalog-client/internal/testutil"
	"github.com/redis/go-redis/v9"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

// setupRedisContainer creates a Redis container for integration testing.
func setupRedisContainer(t *testing.T) *redis.Client {
	t.Helper()

	ctx := context.Background()

	req := testcontainers.ContainerRequest{
		Image:        "redis:7-alpine",
		ExposedPorts: []string{"6379/tcp"},
		WaitingFor:   wait.ForLog("Ready to accept connections"),
	}

	redisContainer, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		t.Fatalf("Failed to start Redis container: %v", err)
	}
	t.Cleanup(func() {
		_ = redisContainer.Terminate(context.Background())
	})

	host, err := redisContainer.Host(ctx)
	if err != nil {
		t.Fatalf("Failed to get container host: %v", err)
	}

	port, err := redisContainer.MappedPort(ctx, "6379")
	if err != nil {
		t.Fatalf("Failed to get container port: %v", err)
	}

	return redis.NewClient(&redis.Options{
		Addr: host + ":" + port.Port(),
	})
}

func TestIntegration_RedisStore(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	cli := setupRedisContainer(t)
	defer cli.Close()

	runStoreTests(t, func(t *testing.T) Store {
		if err := cli.FlushDB(context.Background()).Err(); err != nil {
			t.Fatalf("Failed to flush DB: %v", err)
		}
		// Shares cli with the other subtests; the outer defer closes it.
		return &RedisStore{cli: cli}
	})
}

func TestIntegration_RedisStoreLayout(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	ctx := context.Background()
	cli := setupRedisContainer(t)
	store := NewRedisStore(cli)
	defer store.Close()

	if err := store.Replace(ctx, "visual", testutil.GenerateRecords(3, 25544)); err != nil {
		t.Fatalf("Replace failed: %v", err)
	}

	keys, err := cli.Keys(ctx, "satcat:*").Result()
	if err != nil {
		t.Fatalf("Keys failed: %v", err)
	}
	if len(keys) != 4 {
		t.Errorf("Expected 1 group key + 3 record keys, got %v", keys)
	}

	blob, err := cli.Get(ctx, "satcat:group:visual").Bytes()
	if err != nil {
		t.Fatalf("Get group blob failed: %v", err)
	}
	records, err := decodeGroup(blob)
	if err != nil {
		t.Fatalf("Group blob is not zstd JSON: %v", err)
	}
	if len(records) != 3 {
		t.Errorf("Expected 3 records in blob, got %d", len(records))
	}
}
