package hierarchy

import "sort"

// Synthetic node kinds.
const (
	KindUplinePlaceholder = "upline-placeholder"
	KindDuplicateGroup    = "duplicate-group"
)

// Upline resolution sources, strongest evidence first.
const (
	SourceLicenseNumber  = "license-number"
	SourceProducerNumber = "producer-number"
	SourceEmail          = "email"
	SourceFallbackRoot   = "fallback-root"
	SourceSynthetic      = "synthetic"
	SourceUnknown        = "unknown"
)

// Confidence ladder. A node's confidence never exceeds the cap of the rung
// that produced its assignment.
const (
	ConfidenceLicense        = 0.95
	ConfidenceRootPreferred  = 0.90
	ConfidenceProducer       = 0.85
	ConfidenceDuplicateGroup = 0.80
	ConfidenceEmail          = 0.60
	ConfidenceFallbackRoot   = 0.40
	ConfidencePlaceholder    = 1.0
)

const DefaultIssueSampleSize = 25

// Node is the canonical working entity of one engine run. All nodes are
// created by the normalizer or the materializer, mutated in place by the
// resolver and the assembler, and discarded when the run's document has been
// serialized.
type Node struct {
	ID            string
	Synthetic     bool
	SyntheticKind string

	LicenseNumber  string
	ProducerNumber string
	Email          string

	StatedUplineID    string
	StatedUplineEmail string
	StatedUplineName  string

	DisplayName      string
	Company          string
	Licensed         bool
	TrainingComplete bool
	VendorFlags      []string

	// Resolution state, written exactly once per run by the resolver.
	ParentID         string
	UplineSource     string
	UplineConfidence float64

	// Structural state, written by the assembler.
	ChildIDs []string
}

// Config carries the caller-supplied knobs of a run. The engine never reads
// process environment itself.
type Config struct {
	// OrganizationRootIdentifier is the license-number value operators use to
	// mean "reports to the organization itself".
	OrganizationRootIdentifier string
	// FallbackRootContactID names the contact that unparented chains hang
	// under. FallbackRootEmail is consulted when the id is unset.
	FallbackRootContactID string
	FallbackRootEmail     string
	// ExcludeLowQualityCandidates collapses an ambiguous bucket to a single
	// match when exactly one candidate is non-synthetic and carries an email
	// or an upline reference of its own.
	ExcludeLowQualityCandidates bool
	// MaxIssueSampleSize caps per-category issue samples. Zero means the
	// default of 25.
	MaxIssueSampleSize int
}

func (c Config) sampleCap() int {
	if c.MaxIssueSampleSize <= 0 {
		return DefaultIssueSampleSize
	}
	return c.MaxIssueSampleSize
}

// normalized returns the config with operator-entered identifiers run through
// the same normalization the records get. A malformed root identifier
// normalizes to empty, which simply disables the root preference.
func (c Config) normalized() Config {
	c.OrganizationRootIdentifier = digitsOnly(c.OrganizationRootIdentifier)
	c.FallbackRootEmail = normalizeEmail(c.FallbackRootEmail)
	return c
}

func sortedIDs(nodes map[string]*Node) []string {
	ids := make([]string, 0, len(nodes))
	for id := range nodes {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
