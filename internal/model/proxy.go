package model

import (
	"fmt"
	"strings"
	"time"
)

// Protocol is the proxy protocol a candidate is expected (and later
// confirmed) to speak.
type Protocol string

const (
	ProtocolHTTP   Protocol = "http"
	ProtocolSOCKS4 Protocol = "socks4"
	ProtocolSOCKS5 Protocol = "socks5"
)

// Protocols lists all supported protocols in the fixed order used for
// aggregation and output.
var Protocols = []Protocol{ProtocolHTTP, ProtocolSOCKS4, ProtocolSOCKS5}

// GuessProtocol maps free-form text (source URLs, config values) to a
// Protocol. Anything that doesn't mention socks4/socks5 counts as http.
func GuessProtocol(s string) Protocol {
	lower := strings.ToLower(s)
	switch {
	case strings.Contains(lower, "socks4"):
		return ProtocolSOCKS4
	case strings.Contains(lower, "socks5"):
		return ProtocolSOCKS5
	default:
		return ProtocolHTTP
	}
}

// Candidate is an unverified ip:port pair extracted from a source.
// Identity is (IP, Port); Protocol is an advisory hint carried over from
// the source the pair was scraped from.
type Candidate struct {
	IP       string
	Port     int
	Protocol Protocol
}

// Key returns the identity of the candidate, used for deduplication and
// blacklist membership.
func (c Candidate) Key() string {
	return fmt.Sprintf("%s:%d", c.IP, c.Port)
}

func (c Candidate) String() string {
	return fmt.Sprintf("%s://%s:%d", c.Protocol, c.IP, c.Port)
}

// VerifiedProxy is a candidate that passed a probe within the latency
// ceiling. Never mutated after creation.
type VerifiedProxy struct {
	Candidate
	Latency time.Duration
}

// SourceEntry is one list-server URL plus the protocol hint derived from
// its text. Static for the lifetime of a run.
type SourceEntry struct {
	URL      string
	Protocol Protocol
}
