package geo

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/otoproxy/otoproxy/internal/config"
)

// CountryLookup resolves an IP to an ISO country code.
type CountryLookup interface {
	CountryCode(ctx context.Context, ip string) (string, error)
}

// Classifier tags verified proxies against a target country code. Lookups
// are serialized by the caller and paced by a token bucket so the
// third-party rate limit is a first-class policy, not inlined sleeps.
type Classifier struct {
	lookup  CountryLookup
	limiter *rate.Limiter
	target  string
	log     *slog.Logger
}

// New builds a Classifier from the run profile. When the profile names a
// local GeoIP database the lookups go there and are not paced; otherwise
// the HTTP API is used at the configured per-minute rate.
func New(cfg config.Config, log *slog.Logger) (*Classifier, error) {
	if cfg.GeoIPDatabase != "" {
		lookup, err := OpenMMDB(cfg.GeoIPDatabase)
		if err != nil {
			return nil, err
		}
		return NewWithLookup(lookup, rate.Inf, cfg.TargetCountry, log), nil
	}

	lookup := &APILookup{
		BaseURL: cfg.GeoAPIURL,
		Client:  &http.Client{Timeout: 5 * time.Second},
	}
	every := rate.Every(time.Minute / time.Duration(cfg.GeoLookupsPerMin))
	return NewWithLookup(lookup, every, cfg.TargetCountry, log), nil
}

// NewWithLookup wires an explicit lookup and pacing rate; used directly by
// tests.
func NewWithLookup(lookup CountryLookup, r rate.Limit, target string, log *slog.Logger) *Classifier {
	return &Classifier{
		lookup:  lookup,
		limiter: rate.NewLimiter(r, 1),
		target:  target,
		log:     log,
	}
}

// IsTargetCountry reports whether ip resolves to the target country. Any
// lookup failure (timeout, malformed response) is a non-match, never
// fatal.
func (c *Classifier) IsTargetCountry(ctx context.Context, ip string) bool {
	if err := c.limiter.Wait(ctx); err != nil {
		return false
	}

	code, err := c.lookup.CountryCode(ctx, ip)
	if err != nil {
		c.log.Debug("geo lookup failed", "ip", ip, "err", err)
		return false
	}
	return strings.EqualFold(code, c.target)
}

// Close releases lookup resources (the mmdb reader, when in use).
func (c *Classifier) Close() error {
	if closer, ok := c.lookup.(interface{ Close() error }); ok {
		return closer.Close()
	}
	return nil
}

// APILookup resolves country codes through an ip-api style JSON endpoint.
type APILookup struct {
	BaseURL string
	Client  *http.Client
}

type apiResponse struct {
	CountryCode string `json:"countryCode"`
}

func (l *APILookup) CountryCode(ctx context.Context, ip string) (string, error) {
	url := fmt.Sprintf("%s/%s?fields=countryCode", strings.TrimRight(l.BaseURL, "/"), ip)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", err
	}

	resp, err := l.Client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("geo api status %d", resp.StatusCode)
	}

	var parsed apiResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return "", err
	}
	if parsed.CountryCode == "" {
		return "", fmt.Errorf("geo api returned no country code for %s", ip)
	}
	return parsed.CountryCode, nil
}
