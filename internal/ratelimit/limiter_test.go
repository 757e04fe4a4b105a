package ratelimit

import (
	"context"
	"sync"
	"testing"
	"time"
)

func TestNewRateLimiterStartsFull(t *testing.T) {
	rl := NewRateLimiter(1.0, 5.0)
	if tokens := rl.GetCurrentTokens(); tokens < 4.99 {
		t.Errorf("expected full bucket of 5 tokens, got %.2f", tokens)
	}
}

func TestBurstThenBlock(t *testing.T) {
	rl := NewRateLimiter(0.5, 3.0)
	for i := 0; i < 3; i++ {
		if !rl.tryAcquire() {
			t.Fatalf("burst token %d should be available", i)
		}
	}
	if rl.tryAcquire() {
		t.Error("bucket should be empty after burst")
	}
}

func TestWaitBlocksUntilTokenAvailable(t *testing.T) {
	rl := NewRateLimiter(20.0, 1.0) // one token every 50ms
	if err := rl.Wait(context.Background()); err != nil {
		t.Fatalf("first Wait() error = %v", err)
	}

	start := time.Now()
	if err := rl.Wait(context.Background()); err != nil {
		t.Fatalf("second Wait() error = %v", err)
	}
	if elapsed := time.Since(start); elapsed < 30*time.Millisecond {
		t.Errorf("expected Wait to block ~50ms, took %v", elapsed)
	}
}

func TestWaitRespectsContextCancellation(t *testing.T) {
	rl := NewRateLimiter(0.01, 1.0)
	_ = rl.Wait(context.Background())

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	if err := rl.Wait(ctx); err == nil {
		t.Error("expected context error from Wait on an empty bucket")
	}
}

func TestMinimumBurstIsOne(t *testing.T) {
	rl := NewRateLimiter(1.0, 0)
	if !rl.tryAcquire() {
		t.Error("a zero burst must be raised to one token")
	}
}

func TestConcurrentAccess(t *testing.T) {
	rl := NewRateLimiter(1000.0, 50.0)
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = rl.Wait(context.Background())
		}()
	}
	wg.Wait()
}
