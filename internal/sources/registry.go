package sources

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/otoproxy/otoproxy/internal/model"
)

// Registry owns the list of source URLs, partitioned by the protocol hint
// derived from each URL's text.
type Registry struct {
	byProtocol map[model.Protocol][]string
}

// Load reads a line-oriented sources file. Each non-empty line starting
// with an http(s) scheme is a source URL; a URL mentioning "socks4" or
// "socks5" (case-insensitive) is classified accordingly, everything else
// defaults to http.
//
// A missing file is a startup precondition failure: the caller is expected
// to abort the run.
func Load(path string) (*Registry, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open sources file: %w", err)
	}
	defer f.Close()

	r := &Registry{byProtocol: make(map[model.Protocol][]string)}

	sc := bufio.NewScanner(f)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || !strings.HasPrefix(strings.ToLower(line), "http") {
			continue
		}
		proto := model.GuessProtocol(line)
		r.byProtocol[proto] = append(r.byProtocol[proto], line)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("scan sources file: %w", err)
	}

	return r, nil
}

// SourcesFor returns the URLs classified under the given protocol.
func (r *Registry) SourcesFor(proto model.Protocol) []string {
	return r.byProtocol[proto]
}

// Entries returns every source with its protocol hint, in the fixed
// protocol order http, socks4, socks5.
func (r *Registry) Entries() []model.SourceEntry {
	var out []model.SourceEntry
	for _, proto := range model.Protocols {
		for _, url := range r.byProtocol[proto] {
			out = append(out, model.SourceEntry{URL: url, Protocol: proto})
		}
	}
	return out
}

// Len reports the total number of sources.
func (r *Registry) Len() int {
	n := 0
	for _, urls := range r.byProtocol {
		n += len(urls)
	}
	return n
}
