package aggregate

import (
	"sort"

	"github.com/otoproxy/otoproxy/internal/model"
)

// ResultSet is the partitioned, ordered outcome of a run. It performs no
// I/O; persistence is the writer's job.
type ResultSet struct {
	// ByProtocol holds verified proxies per confirmed protocol, ascending
	// by latency, ties kept in discovery order.
	ByProtocol map[model.Protocol][]model.VerifiedProxy

	// Country holds the geo-matched subset with the same ordering. Nil
	// when the geo stage did not run.
	Country map[model.Protocol][]model.VerifiedProxy

	// All concatenates the protocol partitions in the fixed order http,
	// socks4, socks5.
	All []model.VerifiedProxy

	// Invalid is the flat list of candidates destined for the blacklist.
	Invalid []model.Candidate
}

// Build partitions verified proxies by protocol (and, when geoMatch is
// non-nil, by geo tag) and stable-sorts each partition by latency.
func Build(verified []model.VerifiedProxy, invalid []model.Candidate, geoMatch map[string]bool) *ResultSet {
	set := &ResultSet{
		ByProtocol: make(map[model.Protocol][]model.VerifiedProxy),
		Invalid:    invalid,
	}

	for _, v := range verified {
		set.ByProtocol[v.Protocol] = append(set.ByProtocol[v.Protocol], v)
	}

	for proto, part := range set.ByProtocol {
		sortByLatency(part)
		set.ByProtocol[proto] = part
	}

	for _, proto := range model.Protocols {
		set.All = append(set.All, set.ByProtocol[proto]...)
	}

	if geoMatch != nil {
		set.Country = make(map[model.Protocol][]model.VerifiedProxy)
		for _, proto := range model.Protocols {
			for _, v := range set.ByProtocol[proto] {
				if geoMatch[v.IP] {
					set.Country[proto] = append(set.Country[proto], v)
				}
			}
		}
	}

	return set
}

// CountryTotal reports how many verified proxies matched the target
// country.
func (s *ResultSet) CountryTotal() int {
	n := 0
	for _, part := range s.Country {
		n += len(part)
	}
	return n
}

func sortByLatency(part []model.VerifiedProxy) {
	sort.SliceStable(part, func(i, j int) bool {
		return part[i].Latency < part[j].Latency
	})
}
