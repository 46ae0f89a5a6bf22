package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const registryKeyPrefix = "commitkeeper:jobs:"

// RedisRegistry is a JobRegistry backed by Redis, shared between the API
// server (which schedules and cancels) and the worker (which acquires)
type RedisRegistry struct {
	client *redis.Client
}

// NewRedisRegistry creates a registry over an existing Redis client
func NewRedisRegistry(client *redis.Client) *RedisRegistry {
	return &RedisRegistry{client: client}
}

// Register records a job id using SETNX so a second registration of the
// same id reports false
func (r *RedisRegistry) Register(ctx context.Context, jobID string, ttl time.Duration) (bool, error) {
	ok, err := r.client.SetNX(ctx, registryKeyPrefix+jobID, "1", ttl).Result()
	if err != nil {
		return false, fmt.Errorf("failed to register job %s: %w", jobID, err)
	}
	return ok, nil
}

// Acquire consumes a registration atomically with GETDEL
func (r *RedisRegistry) Acquire(ctx context.Context, jobID string) (bool, error) {
	val, err := r.client.GetDel(ctx, registryKeyPrefix+jobID).Result()
	if err == redis.Nil {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to acquire job %s: %w", jobID, err)
	}
	return val != "", nil
}

// Remove drops a registration, cancelling the job
func (r *RedisRegistry) Remove(ctx context.Context, jobID string) error {
	if err := r.client.Del(ctx, registryKeyPrefix+jobID).Err(); err != nil {
		return fmt.Errorf("failed to remove job %s: %w", jobID, err)
	}
	return nil
}

// Exists reports whether a registration is still present
func (r *RedisRegistry) Exists(ctx context.Context, jobID string) (bool, error) {
	n, err := r.client.Exists(ctx, registryKeyPrefix+jobID).Result()
	if err != nil {
		return false, fmt.Errorf("failed to check job %s: %w", jobID, err)
	}
	return n > 0, nil
}

var _ JobRegistry = (*RedisRegistry)(nil)
