package ratelimit

import (
	"context"
	"testing"
	"time"
)

func TestWaitUnknownLimiter(t *testing.T) {
	m := NewMultiLimiter()
	if err := m.Wait(context.Background(), "missing"); err == nil {
		t.Fatal("expected error for unknown limiter")
	}
	if m.Allow("missing") {
		t.Fatal("expected Allow to be false for unknown limiter")
	}
}

func TestZeroRateIsUnlimited(t *testing.T) {
	m := New(0, 1)
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	for i := 0; i < 50; i++ {
		if err := m.Wait(ctx, LimiterLLM); err != nil {
			t.Fatalf("Wait %d: %v", i, err)
		}
	}
}

func TestBurstExhaustion(t *testing.T) {
	m := NewMultiLimiter()
	m.AddLimiter("slow", 0.001, 2)
	if !m.Allow("slow") || !m.Allow("slow") {
		t.Fatal("expected burst of two to be allowed")
	}
	if m.Allow("slow") {
		t.Fatal("expected third event to be throttled")
	}
}
