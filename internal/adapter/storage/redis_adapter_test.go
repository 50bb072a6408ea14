package storage

import (
	"context"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
)

func getRedisClient(t *testing.T) *redis.Client {
	addr := os.Getenv("REDIS_ADDR")
	if addr == "" {
		addr = "localhost:6379"
	}

	client := redis.NewClient(&redis.Options{Addr: addr})
	if err := client.Ping(context.Background()).Err(); err != nil {
		t.Skipf("Redis not available: %v", err)
	}
	return client
}

func TestAttachmentURL_RoundTrip(t *testing.T) {
	client := getRedisClient(t)
	defer client.Close()

	ctx := context.Background()
	adapter := NewRedisAdapter(client, time.Minute)

	client.Del(ctx, "attachment:501")

	_, ok, err := adapter.GetAttachmentURL(ctx, 501)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ok {
		t.Error("expected miss on empty cache")
	}

	if err := adapter.SetAttachmentURL(ctx, 501, "https://cdn.example.com/501.jpg"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	url, ok, err := adapter.GetAttachmentURL(ctx, 501)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !ok || url != "https://cdn.example.com/501.jpg" {
		t.Errorf("expected cached url, got %q (hit=%v)", url, ok)
	}

	ttl, _ := client.TTL(ctx, "attachment:501").Result()
	if ttl <= 0 || ttl > time.Minute {
		t.Errorf("expected ttl within a minute, got %v", ttl)
	}
}

func TestAttachmentURL_EmptyValueIsAHit(t *testing.T) {
	client := getRedisClient(t)
	defer client.Close()

	ctx := context.Background()
	adapter := NewRedisAdapter(client, time.Minute)

	client.Del(ctx, "attachment:502")
	if err := adapter.SetAttachmentURL(ctx, 502, ""); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	url, ok, err := adapter.GetAttachmentURL(ctx, 502)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !ok || url != "" {
		t.Errorf("expected cached empty url, got %q (hit=%v)", url, ok)
	}
}

func TestAttachmentURL_Concurrent(t *testing.T) {
	client := getRedisClient(t)
	defer client.Close()

	ctx := context.Background()
	adapter := NewRedisAdapter(client, time.Minute)
	client.Del(ctx, "attachment:503")

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := adapter.SetAttachmentURL(ctx, 503, "https://cdn.example.com/503.jpg"); err != nil {
				t.Errorf("unexpected error: %v", err)
			}
			if _, _, err := adapter.GetAttachmentURL(ctx, 503); err != nil {
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()

	url, ok, _ := adapter.GetAttachmentURL(ctx, 503)
	if !ok || url != "https://cdn.example.com/503.jpg" {
		t.Errorf("expected cached url, got %q", url)
	}
}
