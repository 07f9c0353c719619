package fetcher

import (
	"context"
	"io"
	"log/slog"
	"net"
	"net/http"
	"time"

	"golang.org/x/sync/semaphore"
)

const userAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) Chrome/91.0.4472.124"

// Fetcher performs bounded-concurrency GETs against source URLs. A single
// shared client (and its connection pool) backs every fetch; the weighted
// semaphore caps how many are in flight at once.
type Fetcher struct {
	client *http.Client
	sem    *semaphore.Weighted
	log    *slog.Logger
}

// New builds a Fetcher with the given concurrency bound, connect timeout
// and total per-request timeout.
func New(concurrency int, connectTimeout, totalTimeout time.Duration, log *slog.Logger) *Fetcher {
	transport := &http.Transport{
		DialContext: (&net.Dialer{
			Timeout:   connectTimeout,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		MaxIdleConns:        concurrency,
		MaxIdleConnsPerHost: 4,
		TLSHandshakeTimeout: connectTimeout,
	}

	return &Fetcher{
		client: &http.Client{
			Transport: transport,
			Timeout:   totalTimeout,
		},
		sem: semaphore.NewWeighted(int64(concurrency)),
		log: log,
	}
}

// Fetch GETs one source URL and returns its body. A non-200 status,
// timeout or transport error yields ok=false and an empty body; the
// failure is logged and never escalated, a single dead source must not
// abort the run.
func (f *Fetcher) Fetch(ctx context.Context, url string) (string, bool) {
	if err := f.sem.Acquire(ctx, 1); err != nil {
		return "", false
	}
	defer f.sem.Release(1)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		f.log.Warn("bad source url", "url", url, "err", err)
		return "", false
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "*/*")

	resp, err := f.client.Do(req)
	if err != nil {
		f.log.Warn("source fetch failed", "url", url, "err", err)
		return "", false
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		f.log.Warn("source returned non-200", "url", url, "status", resp.StatusCode)
		return "", false
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		f.log.Warn("source body read failed", "url", url, "err", err)
		return "", false
	}

	return string(body), true
}
