package aggregate

import (
	"testing"
	"time"

	"github.com/otoproxy/otoproxy/internal/model"
)

func vp(ip string, port int, proto model.Protocol, latency time.Duration) model.VerifiedProxy {
	return model.VerifiedProxy{
		Candidate: model.Candidate{IP: ip, Port: port, Protocol: proto},
		Latency:   latency,
	}
}

func TestBuild_SortsPartitionsByLatency(t *testing.T) {
	verified := []model.VerifiedProxy{
		vp("1.1.1.1", 80, model.ProtocolHTTP, 900*time.Millisecond),
		vp("2.2.2.2", 80, model.ProtocolHTTP, 100*time.Millisecond),
		vp("3.3.3.3", 80, model.ProtocolHTTP, 400*time.Millisecond),
	}

	set := Build(verified, nil, nil)

	part := set.ByProtocol[model.ProtocolHTTP]
	for i := 1; i < len(part); i++ {
		if part[i-1].Latency > part[i].Latency {
			t.Fatalf("partition not ordered at %d: %v > %v", i, part[i-1].Latency, part[i].Latency)
		}
	}
}

func TestBuild_StableTies(t *testing.T) {
	verified := []model.VerifiedProxy{
		vp("1.1.1.1", 80, model.ProtocolHTTP, 100*time.Millisecond),
		vp("2.2.2.2", 80, model.ProtocolHTTP, 100*time.Millisecond),
	}

	set := Build(verified, nil, nil)

	part := set.ByProtocol[model.ProtocolHTTP]
	if part[0].IP != "1.1.1.1" || part[1].IP != "2.2.2.2" {
		t.Fatalf("equal latencies must keep discovery order: %#v", part)
	}
}

func TestBuild_AllInFixedProtocolOrder(t *testing.T) {
	verified := []model.VerifiedProxy{
		vp("5.5.5.5", 1080, model.ProtocolSOCKS5, 50*time.Millisecond),
		vp("4.4.4.4", 4145, model.ProtocolSOCKS4, 60*time.Millisecond),
		vp("1.1.1.1", 80, model.ProtocolHTTP, 999*time.Millisecond),
	}

	set := Build(verified, nil, nil)

	if len(set.All) != 3 {
		t.Fatalf("all size = %d, want 3", len(set.All))
	}
	want := []model.Protocol{model.ProtocolHTTP, model.ProtocolSOCKS4, model.ProtocolSOCKS5}
	for i, proto := range want {
		if set.All[i].Protocol != proto {
			t.Fatalf("all[%d] protocol = %s, want %s", i, set.All[i].Protocol, proto)
		}
	}
}

func TestBuild_CountryPartition(t *testing.T) {
	verified := []model.VerifiedProxy{
		vp("1.1.1.1", 80, model.ProtocolHTTP, 100*time.Millisecond),
		vp("2.2.2.2", 80, model.ProtocolHTTP, 200*time.Millisecond),
	}
	geo := map[string]bool{"1.1.1.1": true, "2.2.2.2": false}

	set := Build(verified, nil, geo)

	if set.Country == nil {
		t.Fatalf("country partition missing")
	}
	part := set.Country[model.ProtocolHTTP]
	if len(part) != 1 || part[0].IP != "1.1.1.1" {
		t.Fatalf("bad country partition: %#v", part)
	}
	if set.CountryTotal() != 1 {
		t.Fatalf("country total = %d, want 1", set.CountryTotal())
	}
}

func TestBuild_NoGeoLeavesCountryNil(t *testing.T) {
	set := Build(nil, nil, nil)
	if set.Country != nil {
		t.Fatalf("country partition should be nil when geo did not run")
	}
}

func TestBuild_CarriesInvalid(t *testing.T) {
	invalid := []model.Candidate{{IP: "8.8.8.8", Port: 80, Protocol: model.ProtocolHTTP}}
	set := Build(nil, invalid, nil)
	if len(set.Invalid) != 1 {
		t.Fatalf("invalid not carried: %#v", set.Invalid)
	}
}
