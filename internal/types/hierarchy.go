package types

// HierarchyDocument is the serializable output of one engine run. It is the
// only durable artifact of a run; the working node set is discarded.
type HierarchyDocument struct {
	GeneratedAt string          `json:"generatedAt"`
	Stats       HierarchyStats  `json:"stats"`
	Issues      IssueReport     `json:"issues"`
	Hierarchy   []*HierarchyNode `json:"hierarchy"`
}

type HierarchyStats struct {
	// Branches is the number of roots in the forest.
	Branches int `json:"branches"`
	// Producers is the number of non-synthetic nodes carrying a license number.
	Producers int `json:"producers"`
	// Enhanced is the number of nodes with at least one vendor affiliation flag.
	Enhanced int `json:"enhanced"`
}

type HierarchyNode struct {
	ID               string           `json:"id"`
	Name             string           `json:"name"`
	Company          string           `json:"company,omitempty"`
	LicenseNumber    string           `json:"licenseNumber,omitempty"`
	Level            int              `json:"level"`
	NodeType         string           `json:"nodeType"`
	Synthetic        bool             `json:"synthetic,omitempty"`
	SyntheticKind    string           `json:"syntheticKind,omitempty"`
	UplineSource     string           `json:"uplineSource"`
	UplineConfidence float64          `json:"uplineConfidence"`
	Tags             []string         `json:"tags,omitempty"`
	Metrics          HierarchyMetrics `json:"metrics"`
	Children         []*HierarchyNode `json:"children,omitempty"`
}

type HierarchyMetrics struct {
	DirectReports   int `json:"directReports"`
	DescendantCount int `json:"descendantCount"`
}

// IssueReport aggregates the data-quality findings of one run. Sample lists
// are capped; counts are not.
type IssueReport struct {
	MissingIdentifier   IssueCategory     `json:"missingIdentifier"`
	DuplicateIdentifier DuplicateCategory `json:"duplicateIdentifier"`
	UplineNotFound      IssueCategory     `json:"uplineNotFound"`
	CycleBreaks         IssueCategory     `json:"cycleBreaks"`
}

type IssueCategory struct {
	Count   int            `json:"count"`
	Samples []IssueSummary `json:"samples"`
}

type DuplicateCategory struct {
	Count  int              `json:"count"`
	Groups []DuplicateGroup `json:"groups"`
}

// DuplicateGroup lists every non-synthetic node sharing one license-number
// value. Membership is uncapped; the group list itself is capped.
type DuplicateGroup struct {
	Identifier string         `json:"identifier"`
	Members    []IssueSummary `json:"members"`
}

type IssueSummary struct {
	ID                     string `json:"id"`
	Name                   string `json:"name"`
	Identifier             string `json:"identifier,omitempty"`
	StatedUplineIdentifier string `json:"statedUplineIdentifier,omitempty"`
	StatedUplineEmail      string `json:"statedUplineEmail,omitempty"`
}
