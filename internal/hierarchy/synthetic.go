package hierarchy

import (
	"fmt"
	"sort"
)

// Id prefixes for fabricated nodes. Derived from the identifier so repeated
// runs mint identical ids.
const (
	uplinePlaceholderPrefix = "upline:"
	duplicateGroupPrefix    = "dupgroup:"
)

// Materialize fabricates every synthetic node a run needs, before resolution
// starts, so the resolver only ever reads a closed node set.
//
// Upline placeholders stand in for stated uplines that match no imported
// record; they are registered into the license index so the reference has
// something to resolve to. Duplicate-group nodes serve as shared parents for
// references to an identifier carried by more than one real record; they are
// not registered under any index. Returns identifier -> group node id.
func Materialize(nodes map[string]*Node, idx *Index) map[string]string {
	materializeUplinePlaceholders(nodes, idx)
	return materializeDuplicateGroups(nodes, idx)
}

func materializeUplinePlaceholders(nodes map[string]*Node, idx *Index) {
	missing := map[string]bool{}
	for _, id := range sortedIDs(nodes) {
		ident := nodes[id].StatedUplineID
		if ident == "" {
			continue
		}
		if len(idx.ByLicense[ident]) > 0 || len(idx.ByProducer[ident]) > 0 {
			continue
		}
		missing[ident] = true
	}
	for _, ident := range sortedSet(missing) {
		ph := &Node{
			ID:            uplinePlaceholderPrefix + ident,
			Synthetic:     true,
			SyntheticKind: KindUplinePlaceholder,
			LicenseNumber: ident,
			DisplayName:   fmt.Sprintf("Unknown upline %s", ident),
			UplineSource:  SourceUnknown,
		}
		nodes[ph.ID] = ph
		idx.RegisterLicense(nodes, ident, ph.ID)
	}
}

func materializeDuplicateGroups(nodes map[string]*Node, idx *Index) map[string]string {
	collided := map[string]bool{}
	for _, bucket := range []map[string][]string{idx.ByLicense, idx.ByProducer} {
		for ident, ids := range bucket {
			if countReal(nodes, ids) > 1 {
				collided[ident] = true
			}
		}
	}
	groups := map[string]string{}
	for _, ident := range sortedSet(collided) {
		g := &Node{
			ID:            duplicateGroupPrefix + ident,
			Synthetic:     true,
			SyntheticKind: KindDuplicateGroup,
			DisplayName:   fmt.Sprintf("Shared identifier %s", ident),
			UplineSource:  SourceUnknown,
		}
		nodes[g.ID] = g
		groups[ident] = g.ID
	}
	return groups
}

func countReal(nodes map[string]*Node, ids []string) int {
	c := 0
	for _, id := range ids {
		if n := nodes[id]; n != nil && !n.Synthetic {
			c++
		}
	}
	return c
}

func sortedSet(set map[string]bool) []string {
	out := make([]string, 0, len(set))
	for k := range set {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
