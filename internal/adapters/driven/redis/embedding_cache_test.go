package redis

import (
	"context"
	"testing"
	"time"
)

func TestEmbeddingCache_Miss(t *testing.T) {
	client, cleanup := setupTestRedis(t)
	defer cleanup()

	cache := NewEmbeddingCache(client)

	vec, ok, err := cache.Get(context.Background(), "model", "unknown text")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ok || vec != nil {
		t.Errorf("expected miss, got %v", vec)
	}
}

func TestEmbeddingCache_SetGet(t *testing.T) {
	client, cleanup := setupTestRedis(t)
	defer cleanup()

	cache := NewEmbeddingCache(client)
	ctx := context.Background()
	want := []float64{0.25, -1.5, 3e-7, 0}

	if err := cache.Set(ctx, "model-a", "hello", want, time.Hour); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	got, ok, err := cache.Get(ctx, "model-a", "hello")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !ok {
		t.Fatal("expected hit")
	}
	if len(got) != len(want) {
		t.Fatalf("expected %d values, got %d", len(want), len(got))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("value %d: expected %v, got %v", i, want[i], got[i])
		}
	}

	// Keys are scoped by model
	_, ok, err = cache.Get(ctx, "model-b", "hello")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ok {
		t.Error("expected miss for another model")
	}
}

func TestEmbeddingCache_TTL(t *testing.T) {
	client, cleanup := setupTestRedis(t)
	defer cleanup()

	cache := NewEmbeddingCache(client)
	ctx := context.Background()

	if err := cache.Set(ctx, "m", "text", []float64{1}, time.Minute); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	ttl, err := client.TTL(ctx, embeddingKey("m", "text")).Result()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ttl <= 0 || ttl > time.Minute {
		t.Errorf("expected TTL within a minute, got %v", ttl)
	}
}

func TestEmbeddingCache_Corrupt(t *testing.T) {
	client, cleanup := setupTestRedis(t)
	defer cleanup()

	cache := NewEmbeddingCache(client)
	ctx := context.Background()
	client.Set(ctx, embeddingKey("m", "bad"), "abc", 0)

	if _, _, err := cache.Get(ctx, "m", "bad"); err == nil {
		t.Error("expected error for corrupt entry")
	}
}
