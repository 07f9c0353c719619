package extract

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/otoproxy/otoproxy/internal/model"
)

// tokenPattern finds loose ip:port shaped tokens in scraped text. Matches
// are re-checked with the strict validators below; scraped lists are full
// of noise and a regexp alone is too permissive.
var tokenPattern = regexp.MustCompile(`(\d{1,3}\.\d{1,3}\.\d{1,3}\.\d{1,3}):(\d{1,5})`)

// FromSource extracts validated candidates from one source body, scanning
// plain ip:port tokens and, when the body is HTML, table rows whose first
// two cells hold ip and port. Malformed tokens are dropped silently.
// The result is keyed by candidate identity, so a single source never
// contributes the same (ip, port) twice.
func FromSource(body string, hint model.Protocol) map[string]model.Candidate {
	out := make(map[string]model.Candidate)

	for _, m := range tokenPattern.FindAllStringSubmatch(body, -1) {
		admit(out, m[1], m[2], hint)
	}

	if strings.Contains(body, "<table") || strings.Contains(body, "<tr") {
		scanTables(out, body, hint)
	}

	return out
}

// scanTables walks HTML table rows, treating the first two cells as ip and
// port. Parse failure of the document as a whole is treated like any other
// malformed input: nothing is added.
func scanTables(out map[string]model.Candidate, body string, hint model.Protocol) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(body))
	if err != nil {
		return
	}

	doc.Find("tr").Each(func(_ int, row *goquery.Selection) {
		cells := row.Find("td")
		if cells.Length() < 2 {
			return
		}
		ip := strings.TrimSpace(cells.Eq(0).Text())
		port := strings.TrimSpace(cells.Eq(1).Text())
		admit(out, ip, port, hint)
	})
}

func admit(out map[string]model.Candidate, ip, portStr string, hint model.Protocol) {
	port, err := strconv.Atoi(portStr)
	if err != nil {
		return
	}
	if !ValidIPv4(ip) || !ValidPort(port) {
		return
	}
	c := model.Candidate{IP: ip, Port: port, Protocol: hint}
	out[c.Key()] = c
}

// ValidIPv4 reports whether s is a strict dotted-quad IPv4 address: four
// dot-separated numeric octets, each in [0,255].
func ValidIPv4(s string) bool {
	parts := strings.Split(s, ".")
	if len(parts) != 4 {
		return false
	}
	for _, p := range parts {
		if p == "" || len(p) > 3 {
			return false
		}
		n := 0
		for _, r := range p {
			if r < '0' || r > '9' {
				return false
			}
			n = n*10 + int(r-'0')
		}
		if n > 255 {
			return false
		}
	}
	return true
}

// ValidPort reports whether p is a usable TCP port.
func ValidPort(p int) bool {
	return p >= 1 && p <= 65535
}
