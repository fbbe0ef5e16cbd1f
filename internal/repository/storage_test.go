package repository

import (
	"context"
	"testing"
	"time"

	"emergency-alert/internal/config"
	"emergency-alert/internal/geo"

	"github.com/google/uuid"
)

func TestRedisCachePutGet(t *testing.T) {
	redisCfg := config.GetRedisConfig()
	if redisCfg.Addr == "" {
		t.Skip("REDIS_ADDR not set, skipping integration test")
	}

	ctx := context.Background()
	cache, err := NewRedisCache(ctx, redisCfg)
	if err != nil {
		t.Fatalf("failed to init redis cache: %v", err)
	}
	defer cache.Close()

	key := "test-" + uuid.NewString()
	if _, ok, err := cache.GetPosition(ctx, key); err != nil || ok {
		t.Fatalf("expected miss, got ok=%v err=%v", ok, err)
	}

	want := geo.Position{Lat: -12.05, Lon: -77.04, Timestamp: time.Now().UTC().Truncate(time.Second)}
	if err := cache.PutPosition(ctx, key, want, time.Minute); err != nil {
		t.Fatalf("PutPosition: %v", err)
	}

	got, ok, err := cache.GetPosition(ctx, key)
	if err != nil || !ok {
		t.Fatalf("expected hit, got ok=%v err=%v", ok, err)
	}
	if got.Lat != want.Lat || got.Lon != want.Lon || !got.Timestamp.Equal(want.Timestamp) {
		t.Fatalf("unexpected position: %+v", got)
	}
}

func TestRedisCacheExpiry(t *testing.T) {
	redisCfg := config.GetRedisConfig()
	if redisCfg.Addr == "" {
		t.Skip("REDIS_ADDR not set, skipping integration test")
	}

	ctx := context.Background()
	cache, err := NewRedisCache(ctx, redisCfg)
	if err != nil {
		t.Fatalf("failed to init redis cache: %v", err)
	}
	defer cache.Close()

	key := "test-" + uuid.NewString()
	if err := cache.PutPosition(ctx, key, geo.Position{Lat: 1, Lon: 2}, 100*time.Millisecond); err != nil {
		t.Fatalf("PutPosition: %v", err)
	}
	time.Sleep(300 * time.Millisecond)
	if _, ok, err := cache.GetPosition(ctx, key); err != nil || ok {
		t.Fatalf("expected expired entry, got ok=%v err=%v", ok, err)
	}
}
