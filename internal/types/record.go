package types

// RawRecord is one contact as fetched from the upstream CRM. Custom field
// values are left opaque: depending on the field type the CRM returns a
// scalar or a single-element list, and unwrapping is the normalizer's job.
type RawRecord struct {
	ID        string         `json:"id"`
	FirstName string         `json:"first_name"`
	LastName  string         `json:"last_name"`
	FullName  string         `json:"full_name"`
	Email     string         `json:"email"`
	Company   string         `json:"company"`
	Custom    map[string]any `json:"custom_fields"`
}

// FieldDefinition describes one CRM custom field (the side map of the input
// contract). Key is what contacts carry in their custom_fields bag, Label is
// the operator-facing name the field mapping matches against.
type FieldDefinition struct {
	Key   string `json:"key"`
	Label string `json:"label"`
	Type  string `json:"type"`
}

// FieldMap resolves each engine field to the CRM custom-field key carrying
// it. Empty entries mean the CRM has no such field configured; the engine
// normalizes their absence to empty values rather than failing.
type FieldMap struct {
	LicenseNumber    string
	ProducerNumber   string
	UplineIdentifier string
	UplineEmail      string
	UplineName       string
	Licensed         string
	TrainingComplete string
	Company          string
	// VendorFlags maps a display tag to the boolean field key that grants it.
	VendorFlags map[string]string
}
