package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/otoproxy/otoproxy/internal/config"
	"github.com/otoproxy/otoproxy/internal/logging"
	"github.com/otoproxy/otoproxy/internal/output"
	"github.com/otoproxy/otoproxy/internal/pipeline"
)

func main() {
	var (
		profilePath = flag.String("config", "", "optional YAML profile with pipeline parameters")

		sourcesFile   = flag.String("sources", "", "path to the source list file")
		blacklistFile = flag.String("blacklist", "", "path to the blacklist file")
		outputDir     = flag.String("output", "", "directory to write result files into")

		concurrency    = flag.Int("concurrency", 0, "max concurrent source fetches")
		batchSize      = flag.Int("batch", 0, "verification batch size")
		latencyCeiling = flag.Int("latency-ceiling", 0, "latency ceiling in ms for a probe to count as success")
		probeTimeout   = flag.Int("probe-timeout", 0, "per-endpoint probe timeout in seconds")

		country = flag.String("country", "", "target country code to tag verified proxies against (enables geo stage)")
		geoipDB = flag.String("geoip", "", "optional local GeoIP database; replaces the rate-limited HTTP lookup")

		annotate = flag.Bool("annotate", false, "append latency annotations to output lines")
		verbose  = flag.Bool("verbose", false, "enable debug logs")
	)

	flag.Parse()

	cfg, err := config.Load(*profilePath)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	// Explicit flags override the profile.
	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "sources":
			cfg.SourcesFile = *sourcesFile
		case "blacklist":
			cfg.BlacklistFile = *blacklistFile
		case "output":
			cfg.OutputDir = *outputDir
		case "concurrency":
			cfg.FetchConcurrency = *concurrency
		case "batch":
			cfg.BatchSize = *batchSize
		case "latency-ceiling":
			cfg.LatencyCeilingMs = *latencyCeiling
		case "probe-timeout":
			cfg.ProbeTimeoutSeconds = *probeTimeout
		case "country":
			cfg.TargetCountry = *country
		case "geoip":
			cfg.GeoIPDatabase = *geoipDB
		case "annotate":
			cfg.AnnotateLatency = *annotate
		case "verbose":
			cfg.Verbose = *verbose
		}
	})

	if err := cfg.Validate(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	log := logging.NewLogger(cfg.Verbose)

	log.Info("starting otoproxy",
		"sources_file", cfg.SourcesFile,
		"batch_size", cfg.BatchSize,
		"latency_ceiling_ms", cfg.LatencyCeilingMs,
		"geo_enabled", cfg.GeoEnabled(),
	)

	p, err := pipeline.New(cfg, log)
	if err != nil {
		log.Error("startup failed", "err", err)
		os.Exit(1)
	}
	defer p.Close()

	set, stats := p.Run(context.Background())

	writer := &output.Writer{
		Dir:             cfg.OutputDir,
		Country:         cfg.TargetCountry,
		AnnotateLatency: cfg.AnnotateLatency,
	}
	if err := writer.WriteResults(set); err != nil {
		log.Error("failed to write results", "err", err, "dir", cfg.OutputDir)
	} else {
		log.Info("results written", "dir", cfg.OutputDir)
	}

	if err := output.AppendBlacklist(cfg.BlacklistFile, set.Invalid); err != nil {
		log.Error("failed to append blacklist", "err", err, "path", cfg.BlacklistFile)
	}

	output.PrintSummary(os.Stdout, stats)
}
