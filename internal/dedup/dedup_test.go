package dedup

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/otoproxy/otoproxy/internal/model"
)

func TestAdmit_OncePerPair(t *testing.T) {
	d := New(nil)

	a := model.Candidate{IP: "9.9.9.9", Port: 3128, Protocol: model.ProtocolHTTP}
	if !d.Admit(a) {
		t.Fatalf("first admit must succeed")
	}

	// Same identity under a different protocol hint is still a duplicate.
	b := model.Candidate{IP: "9.9.9.9", Port: 3128, Protocol: model.ProtocolSOCKS5}
	if d.Admit(b) {
		t.Fatalf("second admit of same (ip, port) must fail")
	}

	if d.Seen() != 1 {
		t.Fatalf("seen = %d, want 1", d.Seen())
	}
}

func TestAdmit_BlacklistExcluded(t *testing.T) {
	d := New(map[string]struct{}{"1.2.3.4:8080": {}})

	c := model.Candidate{IP: "1.2.3.4", Port: 8080, Protocol: model.ProtocolHTTP}
	if d.Admit(c) {
		t.Fatalf("blacklisted pair must never be admitted")
	}
	if d.Seen() != 0 {
		t.Fatalf("blacklisted pair must not count as seen")
	}
}

func TestLoadBlacklist(t *testing.T) {
	path := filepath.Join(t.TempDir(), "blacklist.txt")
	content := "1.2.3.4:8080\n\n5.6.7.8:1080\njunk-line\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write blacklist: %v", err)
	}

	set, err := LoadBlacklist(path)
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if len(set) != 2 {
		t.Fatalf("expected 2 entries, got %d: %#v", len(set), set)
	}
	if _, ok := set["1.2.3.4:8080"]; !ok {
		t.Fatalf("missing entry: %#v", set)
	}
}

func TestLoadBlacklist_MissingFileDegrades(t *testing.T) {
	set, err := LoadBlacklist(filepath.Join(t.TempDir(), "absent.txt"))
	if err != nil {
		t.Fatalf("missing blacklist must not error: %v", err)
	}
	if len(set) != 0 {
		t.Fatalf("expected empty set, got %#v", set)
	}
}
