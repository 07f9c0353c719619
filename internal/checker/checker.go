package checker

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/otoproxy/otoproxy/internal/config"
	"github.com/otoproxy/otoproxy/internal/model"
)

// Reason tags why a probe attempt did not survive. Keeping the cause
// observable instead of collapsing everything into a bool is what makes
// the failure taxonomy testable.
type Reason int

const (
	ReasonNone Reason = iota
	ReasonClientBuild
	ReasonConnect
	ReasonTimeout
	ReasonBadStatus
	ReasonTooSlow
)

func (r Reason) String() string {
	switch r {
	case ReasonNone:
		return "none"
	case ReasonClientBuild:
		return "client_build"
	case ReasonConnect:
		return "connect"
	case ReasonTimeout:
		return "timeout"
	case ReasonBadStatus:
		return "bad_status"
	case ReasonTooSlow:
		return "too_slow"
	default:
		return "unknown"
	}
}

// Result is the tagged outcome of probing one candidate.
type Result struct {
	Alive    bool
	Latency  time.Duration
	Endpoint string // endpoint that produced the verdict
	Reason   Reason // last failure cause when not alive
}

// ClientBuilder builds an http.Client that routes requests through the
// candidate acting as a forward proxy. Injectable so tests can substitute
// a direct client.
type ClientBuilder func(c model.Candidate, timeout time.Duration) (*http.Client, error)

// Scheduler drives bounded-concurrency liveness probing of candidates.
type Scheduler struct {
	batchSize    int
	pause        time.Duration
	probeTimeout time.Duration
	ceiling      time.Duration
	endpoints    []string
	newClient    ClientBuilder
	log          *slog.Logger
}

// New builds a Scheduler from the run profile, probing through real proxy
// clients.
func New(cfg config.Config, log *slog.Logger) *Scheduler {
	return &Scheduler{
		batchSize:    cfg.BatchSize,
		pause:        cfg.BatchPause(),
		probeTimeout: cfg.ProbeTimeout(),
		ceiling:      cfg.LatencyCeiling(),
		endpoints:    cfg.ProbeEndpoints,
		newClient:    BuildClient,
		log:          log,
	}
}

// WithClientBuilder swaps the proxy client construction, for tests.
func (s *Scheduler) WithClientBuilder(b ClientBuilder) *Scheduler {
	s.newClient = b
	return s
}

type outcome struct {
	candidate model.Candidate
	result    Result
}

// Verify probes every candidate and splits them into verified and invalid.
// Candidates are processed in fixed-size batches; within a batch each
// candidate gets its own goroutine, the whole batch is joined before the
// next starts, and a short pause between batches caps sustained resource
// pressure. Probe failures never propagate: a candidate that errors in any
// way is simply classified invalid.
func (s *Scheduler) Verify(ctx context.Context, candidates []model.Candidate) ([]model.VerifiedProxy, []model.Candidate) {
	var verified []model.VerifiedProxy
	var invalid []model.Candidate

	total := len(candidates)
	processed := 0

	for start := 0; start < total; start += s.batchSize {
		end := start + s.batchSize
		if end > total {
			end = total
		}
		batch := candidates[start:end]

		outcomes := make(chan outcome, len(batch))
		wg := &sync.WaitGroup{}

		for _, c := range batch {
			wg.Add(1)
			go func(c model.Candidate) {
				defer wg.Done()
				outcomes <- outcome{candidate: c, result: s.probe(ctx, c)}
			}(c)
		}

		wg.Wait()
		close(outcomes)

		for o := range outcomes {
			if o.result.Alive {
				verified = append(verified, model.VerifiedProxy{
					Candidate: o.candidate,
					Latency:   o.result.Latency,
				})
			} else {
				invalid = append(invalid, o.candidate)
			}

			processed++
			if processed%100 == 0 {
				s.log.Info("verification progress",
					"processed", processed,
					"total", total,
					"alive", len(verified),
				)
			}
		}

		if end < total && s.pause > 0 {
			select {
			case <-time.After(s.pause):
			case <-ctx.Done():
				// Remaining candidates are untried, not dead; leave them out
				// of both partitions.
				s.log.Warn("verification cancelled", "processed", processed, "total", total)
				return verified, invalid
			}
		}
	}

	s.log.Info("verification finished",
		"verified", len(verified),
		"invalid", len(invalid),
	)
	return verified, invalid
}

// probe attempts the test endpoints in fixed order through the candidate.
// The first endpoint answering 200/201/202 within the timeout and below
// the latency ceiling wins; remaining endpoints are not consulted. A
// success that measures at or above the ceiling counts as a failure for
// that endpoint and the probe moves on.
func (s *Scheduler) probe(ctx context.Context, c model.Candidate) Result {
	client, err := s.newClient(c, s.probeTimeout)
	if err != nil {
		return Result{Reason: ReasonClientBuild}
	}
	defer client.CloseIdleConnections()

	last := Result{Reason: ReasonConnect}
	for _, endpoint := range s.endpoints {
		res := s.probeEndpoint(ctx, client, endpoint)
		if res.Alive {
			return res
		}
		last = res
	}
	return last
}

func (s *Scheduler) probeEndpoint(ctx context.Context, client *http.Client, endpoint string) Result {
	probeCtx, cancel := context.WithTimeout(ctx, s.probeTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(probeCtx, http.MethodGet, endpoint, nil)
	if err != nil {
		return Result{Endpoint: endpoint, Reason: ReasonConnect}
	}

	start := time.Now()
	resp, err := client.Do(req)
	if err != nil {
		return Result{Endpoint: endpoint, Reason: failureReason(err)}
	}
	defer resp.Body.Close()

	// Drain a bounded slice of the body so the connection can be reused.
	io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))

	latency := time.Since(start)

	switch resp.StatusCode {
	case http.StatusOK, http.StatusCreated, http.StatusAccepted:
	default:
		return Result{Endpoint: endpoint, Reason: ReasonBadStatus}
	}

	if latency >= s.ceiling {
		return Result{Endpoint: endpoint, Latency: latency, Reason: ReasonTooSlow}
	}

	return Result{Alive: true, Endpoint: endpoint, Latency: latency}
}

// failureReason distinguishes a timed-out probe from one refused outright.
func failureReason(err error) Reason {
	if errors.Is(err, context.DeadlineExceeded) {
		return ReasonTimeout
	}
	var nerr net.Error
	if errors.As(err, &nerr) && nerr.Timeout() {
		return ReasonTimeout
	}
	return ReasonConnect
}
