package telemetry

import (
	"context"
	"testing"
)

func TestCountersInitialized(t *testing.T) {
	Init()

	if SessionEvents == nil {
		t.Error("SessionEvents counter not initialized")
	}
	if GroupFetches == nil {
		t.Error("GroupFetches counter not initialized")
	}
	if GroupFetchFailures == nil {
		t.Error("GroupFetchFailures counter not initialized")
	}
	if ThrottleRejections == nil {
		t.Error("ThrottleRejections counter not initialized")
	}
	if GroupsCachedGauge == nil {
		t.Error("GroupsCachedGauge gauge not initialized")
	}
}

func TestHelpersDoNotPanic(t *testing.T) {
	Init()

	for _, kind := range []string{"qr", "authenticated", "ready", "disconnected", "unknown"} {
		CountSessionEvent(kind)
	}
	CountGroupFetch(true)
	CountGroupFetch(false)
	CountThrottleRejection()
	for _, n := range []int{0, 10, 100} {
		SetGroupsCached(n)
	}
}

func TestCorrelationRoundTrip(t *testing.T) {
	ctx := context.Background()
	if got := GetCorrelation(ctx); got != "" {
		t.Errorf("GetCorrelation on empty context = %q, want empty", got)
	}
	ctx = WithCorrelation(ctx, "abc-123")
	if got := GetCorrelation(ctx); got != "abc-123" {
		t.Errorf("GetCorrelation = %q, want abc-123", got)
	}
	if logger := LoggerWithCorr(ctx); logger == nil {
		t.Error("LoggerWithCorr returned nil")
	}
}
