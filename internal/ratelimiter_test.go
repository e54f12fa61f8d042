package internal

import (
	"testing"
	"time"
)

func TestRateLimiterAllowsWithinLimit(t *testing.T) {
	limiter := NewRateLimiter(3, time.Minute)
	for i := 0; i < 3; i++ {
		if !limiter.Allow("alice") {
			t.Fatalf("request %d should be allowed", i)
		}
	}
	if limiter.Allow("alice") {
		t.Fatal("fourth request within the window should be denied")
	}
	if !limiter.Allow("bob") {
		t.Fatal("keys are limited independently")
	}
}

func TestRateLimiterWindowSlides(t *testing.T) {
	limiter := NewRateLimiter(1, 10*time.Millisecond)
	if !limiter.Allow("alice") {
		t.Fatal("first request should be allowed")
	}
	if limiter.Allow("alice") {
		t.Fatal("second immediate request should be denied")
	}
	time.Sleep(20 * time.Millisecond)
	if !limiter.Allow("alice") {
		t.Fatal("request after the window should be allowed again")
	}
}
