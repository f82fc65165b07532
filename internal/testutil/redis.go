package testutil

import (
	"context"
	"net"
	"time"

	"github.com/redis/go-redis/v9"
)

// TestRedisAddr returns the address of the test Redis instance.
// Defaults to port 56379 (local test instance from the docker-compose test
// profile). CI environments should set TEST_REDIS_PORT=6379 explicitly.
func TestRedisAddr() string {
	host := getEnvOrDefault("TEST_REDIS_HOST", "localhost")
	port := getEnvOrDefault("TEST_REDIS_PORT", "56379")
	return net.JoinHostPort(host, port)
}

// SetupTestRedis creates a Redis client for testing and flushes any leftover
// data. Tests are skipped when Redis is not reachable.
func SetupTestRedis(t TestingTB) *redis.Client {
	t.Helper()

	addr := TestRedisAddr()
	client := redis.NewClient(&redis.Options{Addr: addr})

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		if cerr := client.Close(); cerr != nil {
			t.Logf("redis client close failed: %v", cerr)
		}
		if requireRedis() {
			t.Fatalf("Test Redis not reachable at %s: %v", addr, err)
		}
		t.Skipf("Test Redis not reachable at %s: %v", addr, err)
	}

	client.FlushDB(ctx)
	return client
}

func requireRedis() bool { return envBool("TEST_REQUIRE_REDIS") || envBool("TEST_REQUIRE_INFRA") }
