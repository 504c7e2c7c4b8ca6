package ratelimit

import (
	"testing"
	"time"
)

func TestFixedIntervalFirstRequestPasses(t *testing.T) {
	f := NewFixedInterval(time.Hour)
	if !f.Allow() {
		t.Fatal("first request should pass immediately")
	}
	if f.Allow() {
		t.Fatal("second request inside the interval should be denied")
	}
}

func TestFixedIntervalElapsed(t *testing.T) {
	f := NewFixedInterval(20 * time.Millisecond)
	if !f.Allow() {
		t.Fatal("first request should pass")
	}
	time.Sleep(25 * time.Millisecond)
	if !f.Allow() {
		t.Fatal("request after the interval should pass")
	}
}

func TestFixedIntervalWaitBlocks(t *testing.T) {
	interval := 50 * time.Millisecond
	f := NewFixedInterval(interval)

	f.Wait() // first passes immediately
	start := time.Now()
	f.Wait()
	elapsed := time.Since(start)

	if elapsed < interval-5*time.Millisecond {
		t.Errorf("Wait returned after %v, expected at least %v", elapsed, interval)
	}
}

func TestFixedIntervalReset(t *testing.T) {
	f := NewFixedInterval(time.Hour)
	f.Allow()
	f.Reset()
	if !f.Allow() {
		t.Fatal("request after reset should pass")
	}
}

func TestTokenBucketAllow(t *testing.T) {
	tb := NewTokenBucket(3, time.Hour)

	for i := 0; i < 3; i++ {
		if !tb.Allow() {
			t.Fatalf("request %d should be allowed", i+1)
		}
	}
	if tb.Allow() {
		t.Fatal("request beyond capacity should be denied")
	}
}

func TestTokenBucketRefill(t *testing.T) {
	tb := NewTokenBucket(1, 20*time.Millisecond)

	if !tb.Allow() {
		t.Fatal("first request should be allowed")
	}
	if tb.Allow() {
		t.Fatal("bucket should be empty")
	}

	time.Sleep(25 * time.Millisecond)
	if !tb.Allow() {
		t.Fatal("bucket should refill after the period")
	}
}

func TestTokenBucketReset(t *testing.T) {
	tb := NewTokenBucket(1, time.Hour)
	tb.Allow()
	tb.Reset()
	if !tb.Allow() {
		t.Fatal("request after reset should be allowed")
	}
}
