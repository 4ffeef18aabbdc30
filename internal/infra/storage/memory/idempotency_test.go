package memory

import (
	"context"
	"testing"
	"time"

	"staybook/internal/app/middleware"
)

func TestIdempotencyStoreEvictsExpiredRecords(t *testing.T) {
	store := NewIdempotencyStore(time.Minute)
	ctx := context.Background()

	fresh := middleware.IdempotencyRecord{Key: "fresh", OccurredAt: time.Now().UTC()}
	stale := middleware.IdempotencyRecord{Key: "stale", OccurredAt: time.Now().UTC().Add(-2 * time.Minute)}
	for _, rec := range []middleware.IdempotencyRecord{fresh, stale} {
		if err := store.Save(ctx, rec); err != nil {
			t.Fatal(err)
		}
	}

	if _, ok, err := store.Get(ctx, "fresh"); err != nil || !ok {
		t.Fatalf("fresh record: ok = %v, err = %v", ok, err)
	}
	if _, ok, err := store.Get(ctx, "stale"); err != nil || ok {
		t.Fatalf("stale record should be evicted: ok = %v, err = %v", ok, err)
	}
}

func TestIdempotencyStoreZeroTTLKeepsRecords(t *testing.T) {
	store := NewIdempotencyStore(0)
	ctx := context.Background()

	rec := middleware.IdempotencyRecord{Key: "old", OccurredAt: time.Now().UTC().Add(-24 * time.Hour)}
	if err := store.Save(ctx, rec); err != nil {
		t.Fatal(err)
	}
	if _, ok, err := store.Get(ctx, "old"); err != nil || !ok {
		t.Fatalf("zero-ttl store must retain records: ok = %v, err = %v", ok, err)
	}
}
