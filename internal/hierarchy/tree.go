package hierarchy

import (
	"sort"

	"github.com/uplinehq/agencytree-backend/internal/types"
)

const (
	NodeTypeLeaf         = "leaf"
	NodeTypeRoot         = "root"
	NodeTypeIntermediate = "intermediate"
)

// Assemble converts resolved parent pointers into an explicit child-list
// forest and serializes it depth-first, computing per-node metrics
// post-order. Nodes whose parent pointer is empty or dangling become roots.
// The configured root sorts first; remaining roots order by display name,
// then id.
func Assemble(nodes map[string]*Node, res *Resolution, flagged map[string]bool) ([]*types.HierarchyNode, types.HierarchyStats) {
	roots := []string{}
	for _, id := range sortedIDs(nodes) {
		n := nodes[id]
		if n.ParentID != "" {
			if parent, ok := nodes[n.ParentID]; ok {
				parent.ChildIDs = append(parent.ChildIDs, id)
				continue
			}
		}
		roots = append(roots, id)
	}
	sort.SliceStable(roots, func(i, j int) bool {
		if res.FallbackRootID != "" {
			if roots[i] == res.FallbackRootID {
				return true
			}
			if roots[j] == res.FallbackRootID {
				return false
			}
		}
		a, b := nodes[roots[i]], nodes[roots[j]]
		if a.DisplayName != b.DisplayName {
			return a.DisplayName < b.DisplayName
		}
		return a.ID < b.ID
	})

	s := &serializer{nodes: nodes, flagged: flagged, maxDepth: len(nodes)}
	forest := make([]*types.HierarchyNode, 0, len(roots))
	for _, id := range roots {
		forest = append(forest, s.serialize(id, 1))
	}

	stats := types.HierarchyStats{Branches: len(forest)}
	for _, n := range nodes {
		if !n.Synthetic && n.LicenseNumber != "" {
			stats.Producers++
		}
		if len(n.VendorFlags) > 0 {
			stats.Enhanced++
		}
	}
	return forest, stats
}

type serializer struct {
	nodes    map[string]*Node
	flagged  map[string]bool
	maxDepth int
}

func (s *serializer) serialize(id string, level int) *types.HierarchyNode {
	n := s.nodes[id]
	out := &types.HierarchyNode{
		ID:               n.ID,
		Name:             n.DisplayName,
		Company:          n.Company,
		LicenseNumber:    n.LicenseNumber,
		Level:            level,
		Synthetic:        n.Synthetic,
		SyntheticKind:    n.SyntheticKind,
		UplineSource:     n.UplineSource,
		UplineConfidence: n.UplineConfidence,
		Tags:             s.tags(n),
	}

	// Acyclicity is enforced before any parent assignment, so the depth
	// bound only trips on data the resolver never saw. Cut off rather than
	// recurse unboundedly.
	if level <= s.maxDepth {
		for _, childID := range n.ChildIDs {
			child := s.serialize(childID, level+1)
			out.Children = append(out.Children, child)
			out.Metrics.DescendantCount += child.Metrics.DescendantCount + 1
		}
	}
	out.Metrics.DirectReports = len(n.ChildIDs)

	switch {
	case len(n.ChildIDs) == 0:
		out.NodeType = NodeTypeLeaf
	case n.ParentID == "":
		out.NodeType = NodeTypeRoot
	default:
		out.NodeType = NodeTypeIntermediate
	}
	return out
}

func (s *serializer) tags(n *Node) []string {
	tags := append([]string{}, n.VendorFlags...)
	if n.Licensed {
		tags = append(tags, "Licensed")
	}
	if n.TrainingComplete {
		tags = append(tags, "Training Complete")
	}
	if s.flagged[n.ID] {
		tags = append(tags, "Needs Review")
	}
	if len(tags) == 0 {
		return nil
	}
	return tags
}
