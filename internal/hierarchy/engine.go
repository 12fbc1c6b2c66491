package hierarchy

import (
	"time"

	"github.com/uplinehq/agencytree-backend/internal/types"
)

// Build runs the full resolution pipeline over one batch of raw records:
// normalize, index, materialize synthetic nodes, resolve uplines, assemble
// the forest, report issues. It is pure over its inputs and never fails;
// however messy the batch, the output document is complete and well-formed.
// The caller supplies the clock so identical inputs serialize identically.
func Build(records []types.RawRecord, fields types.FieldMap, cfg Config, now time.Time) *types.HierarchyDocument {
	cfg = cfg.normalized()

	nodes := make(map[string]*Node, len(records))
	for _, rec := range records {
		if rec.ID == "" {
			continue
		}
		// Ids must stay unique across the working set; a repeated raw id
		// keeps its first occurrence.
		if _, ok := nodes[rec.ID]; ok {
			continue
		}
		nodes[rec.ID] = NormalizeRecord(rec, fields)
	}

	idx := BuildIndex(nodes)
	groups := Materialize(nodes, idx)
	res := Resolve(nodes, idx, groups, cfg)

	issues := BuildIssueReport(nodes, idx, res, cfg)
	flagged := FlaggedIDs(nodes, idx, res)
	forest, stats := Assemble(nodes, res, flagged)

	return &types.HierarchyDocument{
		GeneratedAt: now.UTC().Format(time.RFC3339),
		Stats:       stats,
		Issues:      issues,
		Hierarchy:   forest,
	}
}
