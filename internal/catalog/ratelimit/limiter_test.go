package ratelimit

import (
	"context"
	"testing"
	"time"
)

func TestBurst_AllowsUpToBurst(t *testing.T) {
	p := NewBurst(5, time.Second)

	for i := 0; i < 5; i++ {
		if !p.Allow() {
			t.Fatalf("request %d should be allowed within burst", i)
		}
	}
	if p.Allow() {
		t.Error("request past the burst should be throttled")
	}
}

func TestInterval_EnforcesGap(t *testing.T) {
	p := NewInterval(50 * time.Millisecond)

	if !p.Allow() {
		t.Fatal("first request should pass")
	}
	if p.Allow() {
		t.Error("second immediate request should be throttled")
	}

	time.Sleep(60 * time.Millisecond)
	if !p.Allow() {
		t.Error("request after the gap should pass")
	}
}

func TestWait_HonorsContext(t *testing.T) {
	p := NewInterval(time.Hour)
	p.Allow() // consume the only token

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	if err := p.Wait(ctx); err == nil {
		t.Error("Wait should fail when the context expires before a token")
	}
}
