package hierarchy

import "testing"

func TestMaterializeUplinePlaceholder(t *testing.T) {
	nodes := nodeSet(
		&Node{ID: "a", LicenseNumber: "111"},
		&Node{ID: "b", StatedUplineID: "999"},
	)
	idx := BuildIndex(nodes)
	Materialize(nodes, idx)

	ph, ok := nodes["upline:999"]
	if !ok {
		t.Fatalf("placeholder for 999 not materialized; nodes=%v", sortedIDs(nodes))
	}
	if !ph.Synthetic || ph.SyntheticKind != KindUplinePlaceholder {
		t.Fatalf("placeholder shape wrong: %+v", ph)
	}
	if ph.LicenseNumber != "999" {
		t.Fatalf("placeholder LicenseNumber=%q, want 999", ph.LicenseNumber)
	}
	if got := idx.ByLicense["999"]; len(got) != 1 || got[0] != "upline:999" {
		t.Fatalf("placeholder not registered in license index: %v", got)
	}
}

func TestMaterializeSkipsResolvableUplines(t *testing.T) {
	cases := []struct {
		name  string
		nodes map[string]*Node
	}{
		{
			name: "matches_license_index",
			nodes: nodeSet(
				&Node{ID: "a", LicenseNumber: "111"},
				&Node{ID: "b", StatedUplineID: "111"},
			),
		},
		{
			name: "matches_producer_index",
			nodes: nodeSet(
				&Node{ID: "a", ProducerNumber: "111"},
				&Node{ID: "b", StatedUplineID: "111"},
			),
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			idx := BuildIndex(tc.nodes)
			Materialize(tc.nodes, idx)
			if _, ok := tc.nodes["upline:111"]; ok {
				t.Fatalf("placeholder materialized for resolvable upline 111")
			}
		})
	}
}

func TestMaterializeDuplicateGroups(t *testing.T) {
	nodes := nodeSet(
		&Node{ID: "d", LicenseNumber: "222"},
		&Node{ID: "e", LicenseNumber: "222"},
		&Node{ID: "f", StatedUplineID: "222"},
	)
	idx := BuildIndex(nodes)
	groups := Materialize(nodes, idx)

	gid, ok := groups["222"]
	if !ok {
		t.Fatalf("no duplicate group for 222: %v", groups)
	}
	g := nodes[gid]
	if g == nil || g.SyntheticKind != KindDuplicateGroup {
		t.Fatalf("group node shape wrong: %+v", g)
	}
	// Group nodes must not be resolvable by identifier lookup.
	for ident, bucket := range idx.ByLicense {
		for _, id := range bucket {
			if id == gid {
				t.Fatalf("group node registered under license %q", ident)
			}
		}
	}
}

func TestMaterializeNoGroupForSyntheticOnlyCollision(t *testing.T) {
	// A lone placeholder sharing its identifier with nobody real never forms
	// a duplicate group.
	nodes := nodeSet(
		&Node{ID: "b", StatedUplineID: "999"},
	)
	idx := BuildIndex(nodes)
	groups := Materialize(nodes, idx)
	if len(groups) != 0 {
		t.Fatalf("groups=%v, want none", groups)
	}
}
