package hierarchy

import "sort"

// Resolution carries the cross-cutting outcome of a resolver pass: which
// node anchors the forest as the configured root (if any), and the issue
// sets the reporter turns into the cycleBreaks and uplineNotFound categories.
type Resolution struct {
	FallbackRootID string
	CycleBreaks    map[string]bool
	UplineNotFound map[string]bool
}

type resolver struct {
	nodes  map[string]*Node
	order  []string
	idx    *Index
	groups map[string]string
	cfg    Config
	rootID string
	res    *Resolution
}

// Resolve assigns a parent to every node it can, walking a cascading ladder
// of identity evidence per node: stated upline identifier against the
// license index, then the producer index, then stated upline email, then the
// configured fallback root. A candidate edge is refused outright when it
// would introduce a cycle; refusal is recorded, never corrected after the
// fact. Resolve never fails; unresolvable nodes simply stay roots.
//
// The node set and the indexes must be fully built before the call. Resolve
// mutates nodes in place and touches nothing else.
func Resolve(nodes map[string]*Node, idx *Index, groups map[string]string, cfg Config) *Resolution {
	r := &resolver{
		nodes:  nodes,
		order:  sortedIDs(nodes),
		idx:    idx,
		groups: groups,
		cfg:    cfg,
	}
	r.rootID = r.findFallbackRoot()
	r.res = &Resolution{
		FallbackRootID: r.rootID,
		CycleBreaks:    map[string]bool{},
		UplineNotFound: map[string]bool{},
	}
	for _, id := range r.order {
		r.resolveNode(nodes[id])
	}
	r.refineDuplicateGroups()
	r.finalFallbackSweep()
	return r.res
}

// findFallbackRoot locates the configured root contact: by id when supplied,
// else by an unambiguous email match. A dangling configuration degrades to
// "no fallback available" rather than failing the run.
func (r *resolver) findFallbackRoot() string {
	if r.cfg.FallbackRootContactID != "" {
		if _, ok := r.nodes[r.cfg.FallbackRootContactID]; ok {
			return r.cfg.FallbackRootContactID
		}
	}
	if r.cfg.FallbackRootEmail != "" {
		bucket := r.idx.ByEmail[r.cfg.FallbackRootEmail]
		if len(bucket) == 1 {
			return bucket[0]
		}
	}
	return ""
}

func (r *resolver) resolveNode(n *Node) {
	// Synthetic nodes carry no stated upline of their own; placeholders are
	// swept into the fallback root later and duplicate groups are re-homed
	// by the refinement pass.
	if n.Synthetic {
		return
	}

	if n.StatedUplineID != "" {
		if r.tryIdentifierRung(n, r.idx.ByLicense, SourceLicenseNumber, ConfidenceLicense) {
			return
		}
		if r.tryIdentifierRung(n, r.idx.ByProducer, SourceProducerNumber, ConfidenceProducer) {
			return
		}
	} else if n.StatedUplineEmail != "" {
		if r.tryEmailRung(n) {
			return
		}
	}

	// A node that stated an upline identifier clearly intends to report
	// somewhere; hang it under the configured root rather than floating it.
	if n.StatedUplineID != "" && r.rootID != "" && r.rootID != n.ID && !r.wouldCycle(n.ID, r.rootID) {
		r.assign(n, r.rootID, SourceFallbackRoot, ConfidenceFallbackRoot)
		return
	}

	if n.StatedUplineID != "" || n.StatedUplineEmail != "" {
		r.res.UplineNotFound[n.ID] = true
	}
}

// tryIdentifierRung attempts one rung of the identifier ladder. It reports
// whether an assignment was made; a cycle-refused unambiguous match records
// the refusal and lets the ladder continue.
func (r *resolver) tryIdentifierRung(n *Node, bucket map[string][]string, source string, conf float64) bool {
	ident := n.StatedUplineID
	cands := r.idx.Candidates(bucket[ident], n.ID)
	if len(cands) == 0 {
		return false
	}
	if len(cands) > 1 && r.cfg.ExcludeLowQualityCandidates {
		if filtered := filterLowQuality(r.nodes, cands); len(filtered) == 1 {
			cands = filtered
		}
	}
	if len(cands) == 1 {
		if r.wouldCycle(n.ID, cands[0]) {
			r.res.CycleBreaks[n.ID] = true
			return false
		}
		r.assign(n, cands[0], source, conf)
		return true
	}

	// Ambiguous. Statements of the organization-root identifier resolve to
	// the configured root contact; anything else goes to the shared
	// duplicate-group placeholder so no duplicate is arbitrarily crowned.
	if ident == r.cfg.OrganizationRootIdentifier && r.rootID != "" && r.rootID != n.ID && !r.wouldCycle(n.ID, r.rootID) {
		r.assign(n, r.rootID, source, ConfidenceRootPreferred)
		return true
	}
	if gid, ok := r.groups[ident]; ok && !r.wouldCycle(n.ID, gid) {
		r.assign(n, gid, SourceSynthetic, ConfidenceDuplicateGroup)
		return true
	}
	return false
}

func (r *resolver) tryEmailRung(n *Node) bool {
	cands := r.idx.Candidates(r.idx.ByEmail[n.StatedUplineEmail], n.ID)
	if len(cands) != 1 {
		return false
	}
	if r.wouldCycle(n.ID, cands[0]) {
		r.res.CycleBreaks[n.ID] = true
		return false
	}
	r.assign(n, cands[0], SourceEmail, ConfidenceEmail)
	return true
}

// refineDuplicateGroups re-homes each duplicate-group placeholder after the
// individual pass: under the configured root when the root contact is itself
// a member, under the single parent all members agree on, or nowhere at all
// when members disagree (flagged, not guessed).
func (r *resolver) refineDuplicateGroups() {
	idents := make([]string, 0, len(r.groups))
	for ident := range r.groups {
		idents = append(idents, ident)
	}
	sort.Strings(idents)
	for _, ident := range idents {
		gid := r.groups[ident]
		g := r.nodes[gid]
		members := r.groupMembers(ident)

		if r.rootID != "" && contains(members, r.rootID) {
			if !r.wouldCycle(gid, r.rootID) {
				r.assign(g, r.rootID, SourceSynthetic, ConfidenceDuplicateGroup)
			}
			continue
		}

		shared := ""
		agree := len(members) > 0
		for _, mid := range members {
			p := r.nodes[mid].ParentID
			if p == "" || p == gid {
				agree = false
				break
			}
			if shared == "" {
				shared = p
			} else if shared != p {
				agree = false
				break
			}
		}
		if agree && shared != "" && !r.wouldCycle(gid, shared) {
			r.assign(g, shared, SourceSynthetic, ConfidenceDuplicateGroup)
		}
	}
}

// finalFallbackSweep parents everything still floating under the configured
// root so the display tree has one dominant entry point when one is
// configured. Duplicate groups deliberately left parentless stay parentless.
func (r *resolver) finalFallbackSweep() {
	if r.rootID == "" {
		return
	}
	for _, id := range r.order {
		n := r.nodes[id]
		if n.ParentID != "" || id == r.rootID || n.SyntheticKind == KindDuplicateGroup {
			continue
		}
		if r.wouldCycle(id, r.rootID) {
			continue
		}
		if n.Synthetic {
			r.assign(n, r.rootID, SourceSynthetic, ConfidencePlaceholder)
		} else {
			r.assign(n, r.rootID, SourceFallbackRoot, ConfidenceFallbackRoot)
		}
	}
}

// wouldCycle walks the candidate parent's ancestor chain looking for the
// child. Resolution order is not topological, so an ancestor without a
// parent yet simply terminates the walk. The walk is bounded by the working
// set size; exceeding the bound refuses the edge defensively.
func (r *resolver) wouldCycle(childID, parentID string) bool {
	cur := parentID
	for steps := 0; steps <= len(r.nodes); steps++ {
		if cur == childID {
			return true
		}
		n := r.nodes[cur]
		if n == nil || n.ParentID == "" {
			return false
		}
		cur = n.ParentID
	}
	return true
}

func (r *resolver) assign(n *Node, parentID, source string, conf float64) {
	n.ParentID = parentID
	n.UplineSource = source
	n.UplineConfidence = conf
}

// groupMembers lists the real records sharing an identifier, merged across
// the license and producer indexes.
func (r *resolver) groupMembers(ident string) []string {
	set := map[string]bool{}
	for _, bucket := range [][]string{r.idx.ByLicense[ident], r.idx.ByProducer[ident]} {
		for _, id := range bucket {
			if n := r.nodes[id]; n != nil && !n.Synthetic {
				set[id] = true
			}
		}
	}
	return sortedSet(set)
}

func filterLowQuality(nodes map[string]*Node, ids []string) []string {
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		n := nodes[id]
		if n == nil || n.Synthetic {
			continue
		}
		if n.Email == "" && n.StatedUplineID == "" && n.StatedUplineEmail == "" {
			continue
		}
		out = append(out, id)
	}
	return out
}

func contains(ids []string, id string) bool {
	for _, v := range ids {
		if v == id {
			return true
		}
	}
	return false
}
