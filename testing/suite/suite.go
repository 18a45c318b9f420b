package suite

import (
	"context"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/ory/dockertest/v3"
	"github.com/ory/dockertest/v3/docker"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap/exp/zapslog"
	"go.uber.org/zap/zaptest"
)

const (
	expireDuration  = 120
	maxWaitDuration = 120 * time.Second
)

const (
	redisPort  = "6379/tcp"
	redisImage = "redis"
	redisTag   = "alpine"
)

// IntegrationEnv enables tests against a real Redis started in docker.
const IntegrationEnv = "REDIS_INTEGRATION"

type Suite struct {
	*testing.T
	Logger *slog.Logger

	Storage *redis.Client

	// Memory is set for in-memory suites and lets tests move the clock of key expiry.
	Memory *miniredis.Miniredis
}

// NewInMemory starts a miniredis server for the test.
func NewInMemory(t *testing.T) (context.Context, *Suite) {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), maxWaitDuration)
	t.Cleanup(cancel)

	memory := miniredis.RunT(t)

	redisClient := redis.NewClient(&redis.Options{
		Addr: memory.Addr(),
	})
	t.Cleanup(func() {
		_ = redisClient.Close()
	})

	return ctx, &Suite{
		T:       t,
		Logger:  newLogger(t),
		Storage: redisClient,
		Memory:  memory,
	}
}

// New starts a real Redis in docker. It skips the test unless IntegrationEnv is set.
func New(t *testing.T) (context.Context, *Suite) {
	t.Helper()

	if os.Getenv(IntegrationEnv) == "" {
		t.Skipf("set %s to run tests against a real Redis", IntegrationEnv)
	}

	ctx, cancel := context.WithTimeout(context.Background(), maxWaitDuration)
	t.Cleanup(func() {
		cancel()
	})

	pool, err := dockertest.NewPool("")
	if err != nil {
		t.Fatalf("could not connect to docker: %v", err)
	}

	// pulls an image, creates a container based on it and runs it
	resource, err := pool.RunWithOptions(&dockertest.RunOptions{
		Repository: redisImage,
		Tag:        redisTag,
		Env:        []string{},
	}, func(config *docker.HostConfig) {
		// set AutoRemove to true so that stopped container goes away by itself
		config.AutoRemove = true
		config.RestartPolicy = docker.RestartPolicy{Name: "no"}
	})
	if err != nil {
		t.Fatalf("could not start resource: %v", err)
	}

	// never returns error
	_ = resource.Expire(expireDuration)

	redisHost := resource.GetHostPort(redisPort)

	// the container may not accept connections yet
	pool.MaxWait = maxWaitDuration

	var redisClient *redis.Client
	if err = pool.Retry(func() error {
		redisClient = redis.NewClient(&redis.Options{
			Addr: redisHost,
		})
		return redisClient.Ping(ctx).Err()
	}); err != nil {
		if err = pool.Purge(resource); err != nil {
			t.Fatalf("could not purge resource: %v", err)
		}

		t.Fatalf("could not connect to redis: %v", err)
	}

	if err = redisClient.FlushDB(ctx).Err(); err != nil {
		t.Fatalf("could not flush database: %v", err)
	}

	t.Cleanup(func() {
		t.Helper()

		_ = redisClient.Close()
		if err = pool.Purge(resource); err != nil {
			t.Fatalf("could not purge resource: %v", err)
		}
	})

	return ctx, &Suite{
		T:       t,
		Logger:  newLogger(t),
		Storage: redisClient,
	}
}

func newLogger(t *testing.T) *slog.Logger {
	return slog.New(zapslog.NewHandler(zaptest.NewLogger(t).Core()))
}
