package dedup

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/otoproxy/otoproxy/internal/model"
)

// Deduplicator is the run-scoped registry of (ip, port) pairs already
// admitted, plus the blacklist of pairs confirmed dead in prior runs.
// It is instantiated once per run and passed to the stages that need it;
// mutation happens only between concurrent fan-outs, so it carries no lock.
type Deduplicator struct {
	seen      map[string]struct{}
	blacklist map[string]struct{}
}

// New builds a Deduplicator around an already-loaded blacklist set.
func New(blacklist map[string]struct{}) *Deduplicator {
	if blacklist == nil {
		blacklist = make(map[string]struct{})
	}
	return &Deduplicator{
		seen:      make(map[string]struct{}),
		blacklist: blacklist,
	}
}

// Admit returns true exactly once per (ip, port) pair per run, and never
// for a blacklisted pair. This guarantees at most one verification attempt
// per address per run.
func (d *Deduplicator) Admit(c model.Candidate) bool {
	key := c.Key()
	if _, dead := d.blacklist[key]; dead {
		return false
	}
	if _, ok := d.seen[key]; ok {
		return false
	}
	d.seen[key] = struct{}{}
	return true
}

// Seen reports how many distinct pairs have been admitted.
func (d *Deduplicator) Seen() int {
	return len(d.seen)
}

// BlacklistSize reports how many pairs the loaded blacklist holds.
func (d *Deduplicator) BlacklistSize() int {
	return len(d.blacklist)
}

// LoadBlacklist reads a line-oriented ip:port blacklist file into a set.
// A missing file degrades to an empty blacklist; that is the normal state
// of a first run.
func LoadBlacklist(path string) (map[string]struct{}, error) {
	set := make(map[string]struct{})

	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return set, nil
		}
		return nil, fmt.Errorf("open blacklist: %w", err)
	}
	defer f.Close()

	sc := bufio.NewScanner(f)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || !strings.Contains(line, ":") {
			continue
		}
		set[line] = struct{}{}
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("scan blacklist: %w", err)
	}

	return set, nil
}
