package analytics

import (
	"time"

	"github.com/otoproxy/otoproxy/internal/aggregate"
)

// RunStats aggregates summary analytics for an entire run.
type RunStats struct {
	SourcesTotal          int     `json:"sources_total"`
	SourcesFailed         int     `json:"sources_failed"`
	CandidatesExtracted   int     `json:"candidates_extracted"`
	CandidatesAdmitted    int     `json:"candidates_admitted"`
	VerifiedProxies       int     `json:"verified_proxies"`
	InvalidProxies        int     `json:"invalid_proxies"`
	CountryMatches        int     `json:"country_matches"`
	AvgLatencyMs          float64 `json:"avg_latency_ms"`
	SuccessRatePct        float64 `json:"success_rate_pct"`
	TotalProcessingTimeMs int64   `json:"total_processing_time_ms"`
}

// Compute derives run stats from the aggregated result set and the
// pipeline's stage counters.
func Compute(set *aggregate.ResultSet, sourcesTotal, sourcesFailed, extracted, admitted int, duration time.Duration) RunStats {
	stats := RunStats{
		SourcesTotal:          sourcesTotal,
		SourcesFailed:         sourcesFailed,
		CandidatesExtracted:   extracted,
		CandidatesAdmitted:    admitted,
		VerifiedProxies:       len(set.All),
		InvalidProxies:        len(set.Invalid),
		TotalProcessingTimeMs: duration.Milliseconds(),
	}

	if set.Country != nil {
		stats.CountryMatches = set.CountryTotal()
	}

	var latencySum time.Duration
	for _, v := range set.All {
		latencySum += v.Latency
	}
	if len(set.All) > 0 {
		stats.AvgLatencyMs = float64(latencySum.Milliseconds()) / float64(len(set.All))
	}

	if admitted > 0 {
		stats.SuccessRatePct = float64(len(set.All)) / float64(admitted) * 100.0
	}

	return stats
}
