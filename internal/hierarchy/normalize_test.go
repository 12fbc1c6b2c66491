package hierarchy

import (
	"testing"

	"github.com/uplinehq/agencytree-backend/internal/types"
)

var testFields = types.FieldMap{
	LicenseNumber:    "npn",
	ProducerNumber:   "producer_no",
	UplineIdentifier: "upline_ref",
	UplineEmail:      "upline_email",
	UplineName:       "upline_name",
	Licensed:         "licensed",
	TrainingComplete: "training_done",
	Company:          "agency",
	VendorFlags:      map[string]string{"Carrier Direct": "carrier_direct"},
}

func TestNormalizeIdentifiers(t *testing.T) {
	cases := []struct {
		name         string
		custom       map[string]any
		wantLicense  string
		wantProducer string
	}{
		{
			name:        "strips_non_digits",
			custom:      map[string]any{"npn": "AB-12 34x5"},
			wantLicense: "12345",
		},
		{
			name:        "unwraps_single_element_list",
			custom:      map[string]any{"npn": []any{"111"}},
			wantLicense: "111",
		},
		{
			name:        "json_number_value",
			custom:      map[string]any{"npn": float64(70042)},
			wantLicense: "70042",
		},
		{
			name:        "no_digits_normalizes_empty",
			custom:      map[string]any{"npn": "pending"},
			wantLicense: "",
		},
		{
			name:         "producer_number_independent",
			custom:       map[string]any{"producer_no": "P-900"},
			wantProducer: "900",
		},
		{
			name:   "absent_custom_fields",
			custom: nil,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			n := NormalizeRecord(types.RawRecord{ID: "c1", Custom: tc.custom}, testFields)
			if n.LicenseNumber != tc.wantLicense {
				t.Fatalf("LicenseNumber=%q, want %q", n.LicenseNumber, tc.wantLicense)
			}
			if n.ProducerNumber != tc.wantProducer {
				t.Fatalf("ProducerNumber=%q, want %q", n.ProducerNumber, tc.wantProducer)
			}
			if n.ParentID != "" || n.UplineSource != SourceUnknown || n.UplineConfidence != 0 {
				t.Fatalf("fresh node has resolution state: %+v", n)
			}
		})
	}
}

func TestNormalizeUplineReference(t *testing.T) {
	cases := []struct {
		name      string
		custom    map[string]any
		wantID    string
		wantEmail string
	}{
		{
			name:   "numeric_reference",
			custom: map[string]any{"upline_ref": " 70-100 "},
			wantID: "70100",
		},
		{
			name:      "email_reference_routes_to_email",
			custom:    map[string]any{"upline_ref": "Boss@Agency.COM"},
			wantEmail: "boss@agency.com",
		},
		{
			name:      "explicit_email_field_wins",
			custom:    map[string]any{"upline_ref": "other@x.com", "upline_email": "BOSS@x.com"},
			wantEmail: "boss@x.com",
			wantID:    "",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			n := NormalizeRecord(types.RawRecord{ID: "c1", Custom: tc.custom}, testFields)
			if n.StatedUplineID != tc.wantID {
				t.Fatalf("StatedUplineID=%q, want %q", n.StatedUplineID, tc.wantID)
			}
			if n.StatedUplineEmail != tc.wantEmail {
				t.Fatalf("StatedUplineEmail=%q, want %q", n.StatedUplineEmail, tc.wantEmail)
			}
		})
	}
}

func TestNormalizeDisplayName(t *testing.T) {
	cases := []struct {
		name string
		rec  types.RawRecord
		want string
	}{
		{
			name: "first_and_last",
			rec:  types.RawRecord{ID: "abc123", FirstName: " Ada ", LastName: "Okafor"},
			want: "Ada Okafor",
		},
		{
			name: "last_only",
			rec:  types.RawRecord{ID: "abc123", LastName: "Okafor"},
			want: "Okafor",
		},
		{
			name: "full_name_fallback",
			rec:  types.RawRecord{ID: "abc123", FullName: "Ada Okafor"},
			want: "Ada Okafor",
		},
		{
			name: "email_fallback",
			rec:  types.RawRecord{ID: "abc123", Email: "Ada@Agency.com"},
			want: "ada@agency.com",
		},
		{
			name: "id_suffix_fallback",
			rec:  types.RawRecord{ID: "contact-9001"},
			want: "Contact t-9001",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			n := NormalizeRecord(tc.rec, testFields)
			if n.DisplayName != tc.want {
				t.Fatalf("DisplayName=%q, want %q", n.DisplayName, tc.want)
			}
		})
	}
}

func TestNormalizeFlagsAndTags(t *testing.T) {
	n := NormalizeRecord(types.RawRecord{
		ID:      "c1",
		Company: " Apex Group ",
		Custom: map[string]any{
			"licensed":       true,
			"training_done":  "yes",
			"carrier_direct": []any{"1"},
		},
	}, testFields)
	if !n.Licensed || !n.TrainingComplete {
		t.Fatalf("flags not normalized: licensed=%v training=%v", n.Licensed, n.TrainingComplete)
	}
	if len(n.VendorFlags) != 1 || n.VendorFlags[0] != "Carrier Direct" {
		t.Fatalf("VendorFlags=%v, want [Carrier Direct]", n.VendorFlags)
	}
	if n.Company != "Apex Group" {
		t.Fatalf("Company=%q", n.Company)
	}
}
