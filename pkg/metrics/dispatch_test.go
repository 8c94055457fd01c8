package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestNilSafeCollectors(t *testing.T) {
	var m *DispatchMetrics
	m.ObserveTurn("ok", time.Second)
	m.IncCache(CacheHit)
	m.IncCommand("matched")
	m.IncDrop(DropUnsupported)
	m.IncHandlerFailure()

	empty := NewDispatchMetrics(nil)
	empty.IncCache(CacheMiss)
}

func TestCountersIncrement(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewDispatchMetrics(reg)

	m.IncCache(CacheHit)
	m.IncCache(CacheHit)
	m.IncCache(CacheStale)
	m.IncDrop(DropDuplicate)
	m.IncHandlerFailure()
	m.ObserveTurn("ok", 120*time.Millisecond)

	if got := testutil.ToFloat64(m.cacheOutcomes.WithLabelValues(CacheHit)); got != 2 {
		t.Fatalf("expected 2 cache hits, got %v", got)
	}
	if got := testutil.ToFloat64(m.drops.WithLabelValues(DropDuplicate)); got != 1 {
		t.Fatalf("expected 1 duplicate drop, got %v", got)
	}
	if got := testutil.ToFloat64(m.handlerFailures); got != 1 {
		t.Fatalf("expected 1 handler failure, got %v", got)
	}
}

func TestLabelNormalization(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewDispatchMetrics(reg)
	m.IncCommand("")
	if got := testutil.ToFloat64(m.commands.WithLabelValues("unknown")); got != 1 {
		t.Fatalf("expected empty label to normalize to unknown, got %v", got)
	}
}
