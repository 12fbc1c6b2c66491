package hierarchy

import (
	"sort"

	"github.com/uplinehq/agencytree-backend/internal/types"
)

// BuildIssueReport aggregates the run's data-quality findings. Sample lists
// are capped so output stays bounded on large batches; counts never are.
// Duplicate groups keep their full membership but the group list is capped.
func BuildIssueReport(nodes map[string]*Node, idx *Index, res *Resolution, cfg Config) types.IssueReport {
	limit := cfg.sampleCap()

	missing := types.IssueCategory{Samples: []types.IssueSummary{}}
	for _, id := range sortedIDs(nodes) {
		n := nodes[id]
		if n.Synthetic || n.LicenseNumber != "" {
			continue
		}
		missing.Count++
		if len(missing.Samples) < limit {
			missing.Samples = append(missing.Samples, summarize(n))
		}
	}

	dup := types.DuplicateCategory{Groups: []types.DuplicateGroup{}}
	idents := make([]string, 0, len(idx.ByLicense))
	for ident, bucket := range idx.ByLicense {
		if countReal(nodes, bucket) > 1 {
			idents = append(idents, ident)
		}
	}
	sort.Strings(idents)
	dup.Count = len(idents)
	for _, ident := range idents {
		if len(dup.Groups) >= limit {
			break
		}
		group := types.DuplicateGroup{Identifier: ident, Members: []types.IssueSummary{}}
		for _, id := range idx.ByLicense[ident] {
			if n := nodes[id]; !n.Synthetic {
				group.Members = append(group.Members, summarize(n))
			}
		}
		dup.Groups = append(dup.Groups, group)
	}

	return types.IssueReport{
		MissingIdentifier:   missing,
		DuplicateIdentifier: dup,
		UplineNotFound:      categoryFromSet(nodes, res.UplineNotFound, limit),
		CycleBreaks:         categoryFromSet(nodes, res.CycleBreaks, limit),
	}
}

// FlaggedIDs is the uncapped union of every node implicated in any issue
// category; the assembler tags these "Needs Review".
func FlaggedIDs(nodes map[string]*Node, idx *Index, res *Resolution) map[string]bool {
	flagged := map[string]bool{}
	for id, n := range nodes {
		if !n.Synthetic && n.LicenseNumber == "" {
			flagged[id] = true
		}
	}
	for _, bucket := range idx.ByLicense {
		if countReal(nodes, bucket) < 2 {
			continue
		}
		for _, id := range bucket {
			if !nodes[id].Synthetic {
				flagged[id] = true
			}
		}
	}
	for id := range res.UplineNotFound {
		flagged[id] = true
	}
	for id := range res.CycleBreaks {
		flagged[id] = true
	}
	return flagged
}

func categoryFromSet(nodes map[string]*Node, set map[string]bool, limit int) types.IssueCategory {
	cat := types.IssueCategory{Count: len(set), Samples: []types.IssueSummary{}}
	for _, id := range sortedSet(set) {
		if len(cat.Samples) >= limit {
			break
		}
		if n, ok := nodes[id]; ok {
			cat.Samples = append(cat.Samples, summarize(n))
		}
	}
	return cat
}

func summarize(n *Node) types.IssueSummary {
	return types.IssueSummary{
		ID:                     n.ID,
		Name:                   n.DisplayName,
		Identifier:             n.LicenseNumber,
		StatedUplineIdentifier: n.StatedUplineID,
		StatedUplineEmail:      n.StatedUplineEmail,
	}
}
