package redis

import (
	"context"
	"fmt"
	"log"
	"os"
	"strconv"
	"time"

	"github.com/go-redis/redis/v8"
)

// Attempts tracks failed delivery-code verifications per order. A 4-digit
// code space needs a lockout: once an order crosses the limit inside the
// window, verification is refused until the window expires.
type Attempts struct {
	Client *redis.Client
	Logger *log.Logger
}

func NewAttempts(client *redis.Client) *Attempts {
	return &Attempts{
		Client: client,
		Logger: log.Default(),
	}
}

func (a *Attempts) maxFailures() int {
	defaultMax := 5

	maxStr := os.Getenv("OTP_MAX_ATTEMPTS")
	if maxStr == "" {
		return defaultMax
	}
	max, err := strconv.Atoi(maxStr)
	if err != nil || max < 1 {
		a.Logger.Println("REDIS: Invalid OTP_MAX_ATTEMPTS value '" + maxStr + "', using default 5")
		return defaultMax
	}
	return max
}

func (a *Attempts) window() time.Duration {
	defaultWindow := 15 * time.Minute

	windowStr := os.Getenv("OTP_ATTEMPT_WINDOW_MINUTES")
	if windowStr == "" {
		return defaultWindow
	}
	windowMin, err := strconv.Atoi(windowStr)
	if err != nil || windowMin < 1 {
		a.Logger.Println("REDIS: Invalid OTP_ATTEMPT_WINDOW_MINUTES value '" + windowStr + "', using default 15 minutes")
		return defaultWindow
	}
	return time.Duration(windowMin) * time.Minute
}

func key(orderID string) string {
	return "otp_attempts:" + orderID
}

// TooManyFailures reports whether the order has exhausted its attempts inside
// the current window.
func (a *Attempts) TooManyFailures(orderID string) (bool, error) {
	val, err := a.Client.Get(context.Background(), key(orderID)).Result()
	if err == redis.Nil {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	count, err := strconv.Atoi(val)
	if err != nil {
		return false, fmt.Errorf("corrupt attempt counter for order %s: %w", orderID, err)
	}
	return count >= a.maxFailures(), nil
}

// RecordFailure bumps the counter. The window starts at the first failure and
// is not extended by later ones.
func (a *Attempts) RecordFailure(orderID string) error {
	ctx := context.Background()
	count, err := a.Client.Incr(ctx, key(orderID)).Result()
	if err != nil {
		return err
	}
	if count == 1 {
		if err := a.Client.Expire(ctx, key(orderID), a.window()).Err(); err != nil {
			return err
		}
	}
	return nil
}

// Reset clears the counter after a successful verification.
func (a *Attempts) Reset(orderID string) error {
	return a.Client.Del(context.Background(), key(orderID)).Err()
}
