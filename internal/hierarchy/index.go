package hierarchy

import "sort"

// Index holds the three identity lookups of a run. It is built once, after
// normalization and materialization, and read-only during resolution so the
// resolver never races its own bucket construction.
type Index struct {
	ByLicense  map[string][]string
	ByProducer map[string][]string
	ByEmail    map[string][]string
}

// BuildIndex scans every node and registers its id under each non-empty
// identifier it carries. Buckets with more than one entry are ordered by
// completeness score, then display name, then id, so identical input always
// yields identical bucket ordering.
func BuildIndex(nodes map[string]*Node) *Index {
	idx := &Index{
		ByLicense:  map[string][]string{},
		ByProducer: map[string][]string{},
		ByEmail:    map[string][]string{},
	}
	for _, id := range sortedIDs(nodes) {
		n := nodes[id]
		if n.LicenseNumber != "" {
			idx.ByLicense[n.LicenseNumber] = append(idx.ByLicense[n.LicenseNumber], id)
		}
		if n.ProducerNumber != "" {
			idx.ByProducer[n.ProducerNumber] = append(idx.ByProducer[n.ProducerNumber], id)
		}
		if n.Email != "" {
			idx.ByEmail[n.Email] = append(idx.ByEmail[n.Email], id)
		}
	}
	for _, bucket := range []map[string][]string{idx.ByLicense, idx.ByProducer, idx.ByEmail} {
		for key := range bucket {
			sortBucket(bucket[key], nodes)
		}
	}
	return idx
}

// RegisterLicense appends id under a license identifier and restores the
// bucket's deterministic ordering. Only the materializer calls this; the
// index is closed before resolution starts.
func (idx *Index) RegisterLicense(nodes map[string]*Node, ident, id string) {
	idx.ByLicense[ident] = append(idx.ByLicense[ident], id)
	sortBucket(idx.ByLicense[ident], nodes)
}

// Candidates returns a bucket minus the querying node itself. One candidate
// is an unambiguous match; more than one is ambiguous and must be surfaced,
// never silently collapsed to the first entry.
func (idx *Index) Candidates(bucket []string, selfID string) []string {
	if len(bucket) == 0 {
		return nil
	}
	out := make([]string, 0, len(bucket))
	for _, id := range bucket {
		if id != selfID {
			out = append(out, id)
		}
	}
	return out
}

func sortBucket(bucket []string, nodes map[string]*Node) {
	if len(bucket) < 2 {
		return
	}
	sort.SliceStable(bucket, func(i, j int) bool {
		a, b := nodes[bucket[i]], nodes[bucket[j]]
		sa, sb := completenessScore(a), completenessScore(b)
		if sa != sb {
			return sa > sb
		}
		if a.DisplayName != b.DisplayName {
			return a.DisplayName < b.DisplayName
		}
		return a.ID < b.ID
	})
}

// completenessScore ranks colliding records by how much identity evidence
// they carry. Real records always outrank synthetic ones.
func completenessScore(n *Node) int {
	s := 0
	if !n.Synthetic {
		s += 10000
	}
	if n.StatedUplineID != "" {
		s += 400
	}
	if n.Email != "" {
		s += 200
	}
	if n.StatedUplineEmail != "" {
		s += 100
	}
	if n.ProducerNumber != "" {
		s += 50
	}
	if n.Licensed {
		s += 15
	}
	if n.TrainingComplete {
		s += 5
	}
	return s
}
