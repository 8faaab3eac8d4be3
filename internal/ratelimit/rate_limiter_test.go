package ratelimit

import (
	"context"
	"testing"
	"time"

	"golang.org/x/time/rate"
)

func TestBurstIsImmediate(t *testing.T) {
	rl := NewRateLimiter(3, time.Hour)
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	for i := 0; i < 3; i++ {
		if err := rl.Wait(ctx); err != nil {
			t.Fatalf("burst token %d: %v", i, err)
		}
	}
}

func TestWaitHonorsContext(t *testing.T) {
	rl := NewRateLimiter(1, time.Hour)
	if err := rl.Wait(context.Background()); err != nil {
		t.Fatalf("first Wait() error = %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	start := time.Now()
	if err := rl.Wait(ctx); err == nil {
		t.Fatalf("expected Wait to fail when the next token is an hour away")
	}
	if elapsed := time.Since(start); elapsed > time.Second {
		t.Fatalf("Wait should return before the deadline passes by much, took %v", elapsed)
	}
}

func TestWaitRefills(t *testing.T) {
	rl := NewRateLimiter(1, 20*time.Millisecond)
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	for i := 0; i < 3; i++ {
		if err := rl.Wait(ctx); err != nil {
			t.Fatalf("Wait() %d error = %v", i, err)
		}
	}
}

func TestNilLimiterNeverBlocks(t *testing.T) {
	rl := PerMinute(0)
	if rl != nil {
		t.Fatalf("PerMinute(0) should disable limiting")
	}
	if err := rl.Wait(context.Background()); err != nil {
		t.Fatalf("nil limiter Wait: %v", err)
	}
}

func TestPerMinuteSpacing(t *testing.T) {
	rl := PerMinute(12)
	if rl.limiter.Burst() != 12 {
		t.Fatalf("burst = %d, want 12", rl.limiter.Burst())
	}
	if rl.limiter.Limit() != rate.Every(5*time.Second) {
		t.Fatalf("limit = %v, want one per 5s", rl.limiter.Limit())
	}
}
