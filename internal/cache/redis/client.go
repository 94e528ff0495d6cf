package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/senatai/backend/pkg/logger"
)

type Client struct {
	client *redis.Client
}

func NewClient(host string, port int, password string, db int) (*Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%d", host, port),
		Password: password,
		DB:       db,
	})

	ctx := context.Background()
	_, err := client.Ping(ctx).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	logger.Info("Redis client initialized", zap.String("addr", fmt.Sprintf("%s:%d", host, port)))

	return &Client{client: client}, nil
}

func (c *Client) Close() error {
	return c.client.Close()
}

func (c *Client) SetMatches(ctx context.Context, queryHash string, results interface{}, ttl time.Duration) error {
	data, err := json.Marshal(results)
	if err != nil {
		return fmt.Errorf("failed to marshal match results: %w", err)
	}

	err = c.client.Set(ctx, fmt.Sprintf("match:%s", queryHash), data, ttl).Err()
	if err != nil {
		return fmt.Errorf("failed to set match cache: %w", err)
	}

	logger.Debug("Match results cached", zap.String("query_hash", queryHash), zap.Duration("ttl", ttl))
	return nil
}

func (c *Client) GetMatches(ctx context.Context, queryHash string, results interface{}) (bool, error) {
	data, err := c.client.Get(ctx, fmt.Sprintf("match:%s", queryHash)).Bytes()
	if err == redis.Nil {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to get match cache: %w", err)
	}

	err = json.Unmarshal(data, results)
	if err != nil {
		return false, fmt.Errorf("failed to unmarshal match results: %w", err)
	}

	logger.Debug("Match cache hit", zap.String("query_hash", queryHash))
	return true, nil
}

// InvalidateMatches drops all cached match results. Called after
// ingestion so fresh documents become matchable immediately.
func (c *Client) InvalidateMatches(ctx context.Context) error {
	iter := c.client.Scan(ctx, 0, "match:*", 0).Iterator()
	for iter.Next(ctx) {
		err := c.client.Del(ctx, iter.Val()).Err()
		if err != nil {
			logger.Warn("Failed to delete cache key", zap.Error(err))
		}
	}

	if err := iter.Err(); err != nil {
		return fmt.Errorf("failed to iterate cache keys: %w", err)
	}

	logger.Info("Match cache invalidated")
	return nil
}
