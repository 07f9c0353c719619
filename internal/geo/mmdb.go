package geo

import (
	"context"
	"fmt"
	"net"

	"github.com/oschwald/geoip2-golang"
)

// MMDBLookup resolves country codes from a local MaxMind database, for
// runs that cannot afford the HTTP API's rate limit.
type MMDBLookup struct {
	reader *geoip2.Reader
}

// OpenMMDB opens a GeoLite2/GeoIP2 country database.
func OpenMMDB(path string) (*MMDBLookup, error) {
	reader, err := geoip2.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open geoip database: %w", err)
	}
	return &MMDBLookup{reader: reader}, nil
}

func (l *MMDBLookup) CountryCode(_ context.Context, ip string) (string, error) {
	parsed := net.ParseIP(ip)
	if parsed == nil {
		return "", fmt.Errorf("invalid ip %q", ip)
	}

	record, err := l.reader.Country(parsed)
	if err != nil {
		return "", err
	}
	if record.Country.IsoCode == "" {
		return "", fmt.Errorf("no country record for %s", ip)
	}
	return record.Country.IsoCode, nil
}

func (l *MMDBLookup) Close() error {
	return l.reader.Close()
}
