package redis

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

// setupTestRedis creates a Redis client backed by miniredis, so the tests
// need no real Redis server.
func setupTestRedis(t *testing.T) (*redis.Client, *miniredis.Miniredis) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("Failed to create miniredis: %v", err)
	}

	client := redis.NewClient(&redis.Options{
		Addr: mr.Addr(),
	})

	if err := client.Ping(context.Background()).Err(); err != nil {
		mr.Close()
		t.Fatalf("Failed to connect to miniredis: %v", err)
	}

	return client, mr
}

func cleanupTestRedis(client *redis.Client, mr *miniredis.Miniredis) {
	if client != nil {
		client.Close()
	}
	if mr != nil {
		mr.Close()
	}
}

func TestTooManyFailures_LockoutAtLimit(t *testing.T) {
	client, mr := setupTestRedis(t)
	defer cleanupTestRedis(client, mr)

	t.Setenv("OTP_MAX_ATTEMPTS", "3")

	a := NewAttempts(client)
	orderID := "order-123"

	// Fresh order: no failures recorded, no lockout.
	locked, err := a.TooManyFailures(orderID)
	require.NoError(t, err)
	assert.False(t, locked)

	// Two failures stay under the limit of three.
	require.NoError(t, a.RecordFailure(orderID))
	require.NoError(t, a.RecordFailure(orderID))

	locked, err = a.TooManyFailures(orderID)
	require.NoError(t, err)
	assert.False(t, locked)

	// Third failure trips the lockout.
	require.NoError(t, a.RecordFailure(orderID))

	locked, err = a.TooManyFailures(orderID)
	require.NoError(t, err)
	assert.True(t, locked)
}

func TestTooManyFailures_CountersArePerOrder(t *testing.T) {
	client, mr := setupTestRedis(t)
	defer cleanupTestRedis(client, mr)

	t.Setenv("OTP_MAX_ATTEMPTS", "1")

	a := NewAttempts(client)

	require.NoError(t, a.RecordFailure("order-A"))

	locked, err := a.TooManyFailures("order-A")
	require.NoError(t, err)
	assert.True(t, locked)

	locked, err = a.TooManyFailures("order-B")
	require.NoError(t, err)
	assert.False(t, locked, "Lockout on one order must not affect another")
}

func TestRecordFailure_WindowExpires(t *testing.T) {
	client, mr := setupTestRedis(t)
	defer cleanupTestRedis(client, mr)

	t.Setenv("OTP_MAX_ATTEMPTS", "1")
	t.Setenv("OTP_ATTEMPT_WINDOW_MINUTES", "1")

	a := NewAttempts(client)
	orderID := "order-expiry"

	require.NoError(t, a.RecordFailure(orderID))

	locked, err := a.TooManyFailures(orderID)
	require.NoError(t, err)
	assert.True(t, locked)

	// Past the window, the counter is gone and the order unlocks itself.
	mr.FastForward(2 * time.Minute)

	locked, err = a.TooManyFailures(orderID)
	require.NoError(t, err)
	assert.False(t, locked)
}

func TestReset_ClearsCounter(t *testing.T) {
	client, mr := setupTestRedis(t)
	defer cleanupTestRedis(client, mr)

	t.Setenv("OTP_MAX_ATTEMPTS", "1")

	a := NewAttempts(client)
	orderID := "order-reset"

	require.NoError(t, a.RecordFailure(orderID))

	locked, err := a.TooManyFailures(orderID)
	require.NoError(t, err)
	assert.True(t, locked)

	require.NoError(t, a.Reset(orderID))

	locked, err = a.TooManyFailures(orderID)
	require.NoError(t, err)
	assert.False(t, locked)
}

func TestEnvOverrides_FallBackToDefaults(t *testing.T) {
	client, mr := setupTestRedis(t)
	defer cleanupTestRedis(client, mr)

	t.Setenv("OTP_MAX_ATTEMPTS", "not-a-number")
	t.Setenv("OTP_ATTEMPT_WINDOW_MINUTES", "-3")

	a := NewAttempts(client)
	orderID := "order-defaults"

	// Default limit is 5: four failures stay unlocked, the fifth locks.
	for i := 0; i < 4; i++ {
		require.NoError(t, a.RecordFailure(orderID))
	}
	locked, err := a.TooManyFailures(orderID)
	require.NoError(t, err)
	assert.False(t, locked)

	require.NoError(t, a.RecordFailure(orderID))
	locked, err = a.TooManyFailures(orderID)
	require.NoError(t, err)
	assert.True(t, locked)

	assert.Equal(t, 15*time.Minute, a.window())
}

// TestAttemptsIntegration runs the limiter against a real Redis container.
func TestAttemptsIntegration(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping Redis integration test in short mode")
	}

	ctx := context.Background()
	redisContainer, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "redis:latest",
			ExposedPorts: []string{"6379/tcp"},
			WaitingFor:   wait.ForLog("Ready to accept connections"),
		},
		Started: true,
	})
	require.NoError(t, err)
	defer redisContainer.Terminate(ctx)

	endpoint, err := redisContainer.Endpoint(ctx, "")
	require.NoError(t, err)

	client := redis.NewClient(&redis.Options{Addr: endpoint})
	defer client.Close()
	require.NoError(t, client.Ping(ctx).Err())

	t.Setenv("OTP_MAX_ATTEMPTS", "2")

	a := NewAttempts(client)
	orderID := "order-integration"

	require.NoError(t, a.RecordFailure(orderID))
	locked, err := a.TooManyFailures(orderID)
	require.NoError(t, err)
	assert.False(t, locked)

	require.NoError(t, a.RecordFailure(orderID))
	locked, err = a.TooManyFailures(orderID)
	require.NoError(t, err)
	assert.True(t, locked)

	require.NoError(t, a.Reset(orderID))
	locked, err = a.TooManyFailures(orderID)
	require.NoError(t, err)
	assert.False(t, locked)
}
