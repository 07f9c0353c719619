package pipeline

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/otoproxy/otoproxy/internal/aggregate"
	"github.com/otoproxy/otoproxy/internal/analytics"
	"github.com/otoproxy/otoproxy/internal/checker"
	"github.com/otoproxy/otoproxy/internal/config"
	"github.com/otoproxy/otoproxy/internal/dedup"
	"github.com/otoproxy/otoproxy/internal/extract"
	"github.com/otoproxy/otoproxy/internal/fetcher"
	"github.com/otoproxy/otoproxy/internal/geo"
	"github.com/otoproxy/otoproxy/internal/logging"
	"github.com/otoproxy/otoproxy/internal/model"
	"github.com/otoproxy/otoproxy/internal/sources"
)

// Pipeline wires the discovery and verification stages into a single
// configurable run: sources -> fetch -> extract -> dedup -> verify ->
// optional geo -> aggregate. Persistence stays with the caller.
type Pipeline struct {
	cfg      config.Config
	log      *slog.Logger
	registry *sources.Registry
	fetch    *fetcher.Fetcher
	dedup    *dedup.Deduplicator
	verifier *checker.Scheduler
	geo      *geo.Classifier
}

// New loads the run's static inputs and builds every stage. A missing
// sources file is a startup precondition failure and surfaces as an error
// here; a missing blacklist degrades to an empty one.
func New(cfg config.Config, log *slog.Logger) (*Pipeline, error) {
	registry, err := sources.Load(cfg.SourcesFile)
	if err != nil {
		return nil, err
	}

	blacklist, err := dedup.LoadBlacklist(cfg.BlacklistFile)
	if err != nil {
		log.Warn("blacklist unreadable, starting empty", "path", cfg.BlacklistFile, "err", err)
		blacklist = nil
	}

	p := &Pipeline{
		cfg:      cfg,
		log:      log,
		registry: registry,
		fetch: fetcher.New(
			cfg.FetchConcurrency,
			cfg.ConnectTimeout(),
			cfg.FetchTimeout(),
			logging.WithComponent(log, "fetcher"),
		),
		dedup:    dedup.New(blacklist),
		verifier: checker.New(cfg, logging.WithComponent(log, "checker")),
	}

	if cfg.GeoEnabled() {
		classifier, err := geo.New(cfg, logging.WithComponent(log, "geo"))
		if err != nil {
			return nil, err
		}
		p.geo = classifier
	}

	return p, nil
}

// Run executes one full pass and returns the partitioned result set plus
// run stats. Per-source and per-candidate failures are absorbed by their
// stages; Run itself always completes.
func (p *Pipeline) Run(ctx context.Context) (*aggregate.ResultSet, analytics.RunStats) {
	start := time.Now()

	entries := p.registry.Entries()
	p.log.Info("run starting",
		"sources", len(entries),
		"blacklisted", p.dedup.BlacklistSize(),
		"geo_enabled", p.geo != nil,
	)

	bodies, failed := p.fetchAll(ctx, entries)

	var admitted []model.Candidate
	extracted := 0
	for _, fr := range bodies {
		candidates := extract.FromSource(fr.body, fr.entry.Protocol)
		extracted += len(candidates)
		for _, c := range candidates {
			if p.dedup.Admit(c) {
				admitted = append(admitted, c)
			}
		}
		p.log.Debug("source extracted",
			"url", fr.entry.URL,
			"candidates", len(candidates),
		)
	}
	p.log.Info("extraction finished",
		"extracted", extracted,
		"admitted", len(admitted),
	)

	verified, invalid := p.verifier.Verify(ctx, admitted)

	var geoMatch map[string]bool
	if p.geo != nil {
		geoMatch = p.classify(ctx, verified)
	}

	set := aggregate.Build(verified, invalid, geoMatch)
	stats := analytics.Compute(set, len(entries), failed, extracted, len(admitted), time.Since(start))

	p.log.Info("run finished",
		"verified", stats.VerifiedProxies,
		"invalid", stats.InvalidProxies,
		"total_ms", stats.TotalProcessingTimeMs,
	)
	return set, stats
}

// Close releases stage resources.
func (p *Pipeline) Close() error {
	if p.geo != nil {
		return p.geo.Close()
	}
	return nil
}

type fetchResult struct {
	entry model.SourceEntry
	body  string
}

// fetchAll issues every source fetch concurrently (the fetcher bounds how
// many are actually in flight) and joins them before extraction starts, so
// fetch latency is capped by the slowest surviving source, not the sum.
func (p *Pipeline) fetchAll(ctx context.Context, entries []model.SourceEntry) ([]fetchResult, int) {
	results := make(chan fetchResult, len(entries))
	wg := &sync.WaitGroup{}

	for _, e := range entries {
		wg.Add(1)
		go func(e model.SourceEntry) {
			defer wg.Done()
			body, ok := p.fetch.Fetch(ctx, e.URL)
			if ok {
				results <- fetchResult{entry: e, body: body}
			}
		}(e)
	}

	wg.Wait()
	close(results)

	out := make([]fetchResult, 0, len(entries))
	for fr := range results {
		out = append(out, fr)
	}
	return out, len(entries) - len(out)
}

// classify runs the geo stage serially over the verified set; the
// classifier's token bucket paces the lookups. One lookup per distinct IP.
func (p *Pipeline) classify(ctx context.Context, verified []model.VerifiedProxy) map[string]bool {
	match := make(map[string]bool)
	for _, v := range verified {
		if _, done := match[v.IP]; done {
			continue
		}
		match[v.IP] = p.geo.IsTargetCountry(ctx, v.IP)
	}
	return match
}
