package analytics

import (
	"testing"
	"time"

	"github.com/otoproxy/otoproxy/internal/aggregate"
	"github.com/otoproxy/otoproxy/internal/model"
)

func TestCompute(t *testing.T) {
	verified := []model.VerifiedProxy{
		{Candidate: model.Candidate{IP: "1.1.1.1", Port: 80, Protocol: model.ProtocolHTTP}, Latency: 100 * time.Millisecond},
		{Candidate: model.Candidate{IP: "2.2.2.2", Port: 80, Protocol: model.ProtocolHTTP}, Latency: 300 * time.Millisecond},
	}
	invalid := []model.Candidate{
		{IP: "3.3.3.3", Port: 80, Protocol: model.ProtocolHTTP},
	}

	set := aggregate.Build(verified, invalid, nil)
	stats := Compute(set, 5, 1, 10, 3, 2*time.Second)

	if stats.SourcesTotal != 5 || stats.SourcesFailed != 1 {
		t.Fatalf("source counters: %#v", stats)
	}
	if stats.VerifiedProxies != 2 || stats.InvalidProxies != 1 {
		t.Fatalf("proxy counters: %#v", stats)
	}
	if stats.AvgLatencyMs != 200 {
		t.Fatalf("avg latency = %v, want 200", stats.AvgLatencyMs)
	}
	if stats.TotalProcessingTimeMs != 2000 {
		t.Fatalf("total ms = %d", stats.TotalProcessingTimeMs)
	}
	if want := float64(2) / 3 * 100; stats.SuccessRatePct < want-0.01 || stats.SuccessRatePct > want+0.01 {
		t.Fatalf("success rate = %v", stats.SuccessRatePct)
	}
}

func TestCompute_EmptyRun(t *testing.T) {
	set := aggregate.Build(nil, nil, nil)
	stats := Compute(set, 2, 2, 0, 0, time.Second)

	if stats.VerifiedProxies != 0 || stats.AvgLatencyMs != 0 || stats.SuccessRatePct != 0 {
		t.Fatalf("empty run stats: %#v", stats)
	}
}
