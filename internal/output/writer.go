package output

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/otoproxy/otoproxy/internal/aggregate"
	"github.com/otoproxy/otoproxy/internal/analytics"
	"github.com/otoproxy/otoproxy/internal/model"
)

// Writer persists the partitioned result set as line-oriented text files:
// one per protocol, an aggregate all.txt, and optionally a
// country-filtered subdirectory. Files are always written, even when a
// partition is empty, so a failed run still leaves the expected layout.
type Writer struct {
	Dir             string
	Country         string // country subdirectory name; empty disables it
	AnnotateLatency bool
}

// WriteResults writes every partition of the result set.
func (w *Writer) WriteResults(set *aggregate.ResultSet) error {
	if err := os.MkdirAll(w.Dir, 0o755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}

	for _, proto := range model.Protocols {
		path := filepath.Join(w.Dir, string(proto)+".txt")
		if err := w.writeProxies(path, set.ByProtocol[proto]); err != nil {
			return err
		}
	}
	if err := w.writeProxies(filepath.Join(w.Dir, "all.txt"), set.All); err != nil {
		return err
	}

	if set.Country != nil {
		subdir := filepath.Join(w.Dir, strings.ToUpper(w.Country))
		if err := os.MkdirAll(subdir, 0o755); err != nil {
			return fmt.Errorf("create country dir: %w", err)
		}
		for _, proto := range model.Protocols {
			path := filepath.Join(subdir, string(proto)+".txt")
			if err := w.writeProxies(path, set.Country[proto]); err != nil {
				return err
			}
		}
	}

	return nil
}

func (w *Writer) writeProxies(path string, proxies []model.VerifiedProxy) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	defer f.Close()

	bw := bufio.NewWriter(f)
	for _, p := range proxies {
		if w.AnnotateLatency {
			fmt.Fprintf(bw, "%s:%d | %dms\n", p.IP, p.Port, p.Latency.Milliseconds())
		} else {
			fmt.Fprintf(bw, "%s:%d\n", p.IP, p.Port)
		}
	}
	return bw.Flush()
}

// AppendBlacklist appends invalid pairs to the blacklist file. The file is
// append-only; entries are never rewritten or pruned here.
func AppendBlacklist(path string, invalid []model.Candidate) error {
	if len(invalid) == 0 {
		return nil
	}

	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open blacklist for append: %w", err)
	}
	defer f.Close()

	bw := bufio.NewWriter(f)
	for _, c := range invalid {
		fmt.Fprintf(bw, "%s:%d\n", c.IP, c.Port)
	}
	return bw.Flush()
}

// PrintSummary prints the aggregated run stats.
func PrintSummary(w io.Writer, stats analytics.RunStats) {
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Summary:")
	fmt.Fprintf(w, "  Sources:                %d (%d failed)\n", stats.SourcesTotal, stats.SourcesFailed)
	fmt.Fprintf(w, "  Candidates extracted:   %d\n", stats.CandidatesExtracted)
	fmt.Fprintf(w, "  Candidates admitted:    %d\n", stats.CandidatesAdmitted)
	fmt.Fprintf(w, "  Verified proxies:       %d\n", stats.VerifiedProxies)
	fmt.Fprintf(w, "  Invalid proxies:        %d\n", stats.InvalidProxies)
	if stats.CountryMatches > 0 {
		fmt.Fprintf(w, "  Country matches:        %d\n", stats.CountryMatches)
	}
	fmt.Fprintf(w, "  Avg latency (verified): %.1f ms\n", stats.AvgLatencyMs)
	fmt.Fprintf(w, "  Success rate:           %.1f%%\n", stats.SuccessRatePct)
	fmt.Fprintf(w, "  Run time:               %.2f s\n", float64(stats.TotalProcessingTimeMs)/1000.0)
}
