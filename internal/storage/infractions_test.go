package storage

import (
	"context"
	"testing"
	"time"
)

func TestIncrementInfractionCounts(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	for want := 1; want <= 3; want++ {
		got, err := store.IncrementInfraction(ctx, "g1", "u1", CategoryWarn, "warn", 24*time.Hour)
		if err != nil {
			t.Fatalf("increment: %v", err)
		}
		if got != want {
			t.Fatalf("expected count %d, got %d", want, got)
		}
	}

	other, err := store.IncrementInfraction(ctx, "g1", "u2", CategoryWarn, "warn", 24*time.Hour)
	if err != nil {
		t.Fatalf("increment other: %v", err)
	}
	if other != 1 {
		t.Fatalf("expected independent counter, got %d", other)
	}
}

func TestInfractionForgiveness(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	now := time.Unix(1_700_000_000, 0)
	store.now = func() time.Time { return now }

	if _, err := store.IncrementInfraction(ctx, "g1", "u1", CategoryWarn, "warn", time.Hour); err != nil {
		t.Fatalf("increment: %v", err)
	}
	if _, err := store.IncrementInfraction(ctx, "g1", "u1", CategoryWarn, "warn", time.Hour); err != nil {
		t.Fatalf("increment: %v", err)
	}

	inf, err := store.GetInfraction(ctx, "g1", "u1", CategoryWarn)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if inf.CountTotal != 2 || inf.ResetAt == nil {
		t.Fatalf("unexpected infraction: %+v", inf)
	}

	now = now.Add(2 * time.Hour)
	inf, err = store.GetInfraction(ctx, "g1", "u1", CategoryWarn)
	if err != nil {
		t.Fatalf("get after forgiveness: %v", err)
	}
	if inf.CountTotal != 0 {
		t.Fatalf("expected forgiven count, got %d", inf.CountTotal)
	}

	count, err := store.IncrementInfraction(ctx, "g1", "u1", CategoryWarn, "warn", time.Hour)
	if err != nil {
		t.Fatalf("increment after forgiveness: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected count to restart at 1, got %d", count)
	}
}

func TestResetInfraction(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	if _, err := store.IncrementInfraction(ctx, "g1", "u1", CategoryWarn, "warn", 0); err != nil {
		t.Fatalf("increment: %v", err)
	}
	if err := store.ResetInfraction(ctx, "g1", "u1", CategoryWarn); err != nil {
		t.Fatalf("reset: %v", err)
	}
	inf, err := store.GetInfraction(ctx, "g1", "u1", CategoryWarn)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if inf.CountTotal != 0 || inf.ResetAt != nil {
		t.Fatalf("expected empty infraction, got %+v", inf)
	}
}
