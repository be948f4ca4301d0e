package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"bms/internal/models"

	"github.com/go-redis/redis/v8"
)

type TaskCache struct {
	client *redis.Client
	ttl    time.Duration
}

func NewTaskCache(client *redis.Client, ttl time.Duration) *TaskCache {
	return &TaskCache{client: client, ttl: ttl}
}

func taskKey(id int) string {
	return fmt.Sprintf("task:%d", id)
}

// Get returns the cached task body, or nil on a miss. Team ids are not
// cached; callers reload them before any access check.
func (c *TaskCache) Get(ctx context.Context, id int) (*models.Task, error) {
	raw, err := c.client.Get(ctx, taskKey(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var task models.Task
	if err := json.Unmarshal(raw, &task); err != nil {
		return nil, err
	}
	return &task, nil
}

func (c *TaskCache) Set(ctx context.Context, task *models.Task) error {
	raw, err := json.Marshal(task)
	if err != nil {
		return err
	}
	return c.client.SetEX(ctx, taskKey(task.ID), raw, c.ttl).Err()
}

func (c *TaskCache) Invalidate(ctx context.Context, id int) error {
	return c.client.Del(ctx, taskKey(id)).Err()
}
