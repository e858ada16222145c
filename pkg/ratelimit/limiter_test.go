package ratelimit

import (
	"context"
	"sync"
	"testing"
	"time"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func TestTokenBucket(t *testing.T) {
	clock := &fakeClock{now: time.Unix(0, 0)}
	tb := newBucket(5, 5, clock.Now)

	// Test initial capacity
	for i := 0; i < 5; i++ {
		if !tb.Allow() {
			t.Errorf("Expected token %d to be available", i+1)
		}
	}

	// Test exhaustion
	if tb.Allow() {
		t.Error("Expected no more tokens to be available")
	}

	// Partial refill
	clock.Advance(200 * time.Millisecond)
	if !tb.Allow() {
		t.Error("Expected one token after 200ms at 5/s")
	}
	if tb.Allow() {
		t.Error("Expected only one token to be refilled")
	}

	// Refill never exceeds capacity
	clock.Advance(time.Hour)
	for i := 0; i < 5; i++ {
		tb.Allow()
	}
	if tb.Allow() {
		t.Error("Expected refill to be capped at capacity")
	}

	// Test reset
	tb.Reset()
	if tb.tokens != tb.capacity {
		t.Error("Expected tokens to be reset to capacity")
	}
}

func TestPerMinuteDefaults(t *testing.T) {
	tb := PerMinute(0, 0)
	if tb.capacity != 1 {
		t.Errorf("Expected burst 1, got %v", tb.capacity)
	}
	if tb.rate != 1 {
		t.Errorf("Expected 1 token per second, got %v", tb.rate)
	}
}

func TestWaitRespectsContext(t *testing.T) {
	tb := NewTokenBucket(1, time.Hour)
	if !tb.Allow() {
		t.Fatal("Expected first token")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()

	if err := tb.Wait(ctx); err == nil {
		t.Error("Expected Wait to fail when the context expires")
	}
}

func TestWaitReturnsWhenTokenRefills(t *testing.T) {
	tb := NewTokenBucket(1, 50*time.Millisecond)
	tb.Allow()

	start := time.Now()
	if err := tb.Wait(context.Background()); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if time.Since(start) > time.Second {
		t.Error("Expected Wait to return after roughly one refill period")
	}
}

func TestUnlimited(t *testing.T) {
	var l Limiter = Unlimited{}
	for i := 0; i < 100; i++ {
		if !l.Allow() {
			t.Fatal("Unlimited must always allow")
		}
	}
	if err := l.Wait(context.Background()); err != nil {
		t.Errorf("Unexpected error: %v", err)
	}
}
