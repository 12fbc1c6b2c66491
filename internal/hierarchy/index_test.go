package hierarchy

import (
	"reflect"
	"testing"
)

func nodeSet(ns ...*Node) map[string]*Node {
	out := map[string]*Node{}
	for _, n := range ns {
		if n.UplineSource == "" {
			n.UplineSource = SourceUnknown
		}
		out[n.ID] = n
	}
	return out
}

func TestBuildIndexBuckets(t *testing.T) {
	nodes := nodeSet(
		&Node{ID: "a", LicenseNumber: "111", ProducerNumber: "900", Email: "a@x.com"},
		&Node{ID: "b", LicenseNumber: "111"},
		&Node{ID: "c"},
	)
	idx := BuildIndex(nodes)

	if got := idx.ByLicense["111"]; len(got) != 2 {
		t.Fatalf("license bucket=%v, want 2 entries", got)
	}
	if got := idx.ByProducer["900"]; !reflect.DeepEqual(got, []string{"a"}) {
		t.Fatalf("producer bucket=%v, want [a]", got)
	}
	if got := idx.ByEmail["a@x.com"]; !reflect.DeepEqual(got, []string{"a"}) {
		t.Fatalf("email bucket=%v, want [a]", got)
	}
	for key, bucket := range idx.ByLicense {
		for _, id := range bucket {
			if nodes[id] == nil {
				t.Fatalf("bucket %q references unknown node %q", key, id)
			}
		}
	}
}

func TestBucketOrderingDeterministic(t *testing.T) {
	cases := []struct {
		name  string
		nodes map[string]*Node
		want  []string
	}{
		{
			name: "real_outranks_synthetic",
			nodes: nodeSet(
				&Node{ID: "syn", LicenseNumber: "5", Synthetic: true, SyntheticKind: KindUplinePlaceholder},
				&Node{ID: "real", LicenseNumber: "5"},
			),
			want: []string{"real", "syn"},
		},
		{
			name: "completeness_before_name",
			nodes: nodeSet(
				&Node{ID: "a", LicenseNumber: "5", DisplayName: "Aaa"},
				&Node{ID: "b", LicenseNumber: "5", DisplayName: "Zzz", Email: "z@x.com"},
			),
			want: []string{"b", "a"},
		},
		{
			name: "name_then_id_tiebreak",
			nodes: nodeSet(
				&Node{ID: "b", LicenseNumber: "5", DisplayName: "Same"},
				&Node{ID: "a", LicenseNumber: "5", DisplayName: "Same"},
			),
			want: []string{"a", "b"},
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			idx := BuildIndex(tc.nodes)
			if got := idx.ByLicense["5"]; !reflect.DeepEqual(got, tc.want) {
				t.Fatalf("bucket=%v, want %v", got, tc.want)
			}
		})
	}
}

func TestReindexIdempotent(t *testing.T) {
	nodes := nodeSet(
		&Node{ID: "a", LicenseNumber: "7", Email: "a@x.com", DisplayName: "A"},
		&Node{ID: "b", LicenseNumber: "7", DisplayName: "B", StatedUplineID: "7"},
		&Node{ID: "c", ProducerNumber: "7", Email: "c@x.com"},
	)
	first := BuildIndex(nodes)
	second := BuildIndex(nodes)
	if !reflect.DeepEqual(first, second) {
		t.Fatalf("rebuilt index differs:\nfirst:  %+v\nsecond: %+v", first, second)
	}
}

func TestCandidatesExcludesSelf(t *testing.T) {
	nodes := nodeSet(
		&Node{ID: "a", LicenseNumber: "7"},
		&Node{ID: "b", LicenseNumber: "7"},
	)
	idx := BuildIndex(nodes)
	got := idx.Candidates(idx.ByLicense["7"], "a")
	if !reflect.DeepEqual(got, []string{"b"}) {
		t.Fatalf("Candidates=%v, want [b]", got)
	}
	if got := idx.Candidates(nil, "a"); got != nil {
		t.Fatalf("Candidates(nil)=%v, want nil", got)
	}
}
