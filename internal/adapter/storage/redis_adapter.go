package storage

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

const attachmentKeyPrefix = "attachment:"

type RedisAdapter struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisAdapter(client *redis.Client, ttl time.Duration) *RedisAdapter {
	return &RedisAdapter{client: client, ttl: ttl}
}

func attachmentKey(attachmentID int64) string {
	return attachmentKeyPrefix + strconv.FormatInt(attachmentID, 10)
}

func (r *RedisAdapter) GetAttachmentURL(ctx context.Context, attachmentID int64) (string, bool, error) {
	url, err := r.client.Get(ctx, attachmentKey(attachmentID)).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}

	return url, true, nil
}

func (r *RedisAdapter) SetAttachmentURL(ctx context.Context, attachmentID int64, url string) error {
	return r.client.Set(ctx, attachmentKey(attachmentID), url, r.ttl).Err()
}

func (r *RedisAdapter) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}
