package hierarchy

import (
	"testing"

	"github.com/uplinehq/agencytree-backend/internal/types"
)

func buildReport(nodes map[string]*Node, cfg Config) (types.IssueReport, *Resolution) {
	idx := BuildIndex(nodes)
	groups := Materialize(nodes, idx)
	res := Resolve(nodes, idx, groups, cfg.normalized())
	return BuildIssueReport(nodes, idx, res, cfg), res
}

func TestIssueReportCategories(t *testing.T) {
	nodes := nodeSet(
		&Node{ID: "a", DisplayName: "No License"},
		&Node{ID: "d", LicenseNumber: "222", DisplayName: "Dup One"},
		&Node{ID: "e", LicenseNumber: "222", DisplayName: "Dup Two"},
		&Node{ID: "g", LicenseNumber: "1", StatedUplineID: "2"},
		&Node{ID: "h", LicenseNumber: "2", StatedUplineID: "1"},
		&Node{ID: "j", LicenseNumber: "3", StatedUplineEmail: "ghost@x.com"},
	)
	report, _ := buildReport(nodes, Config{})

	if report.MissingIdentifier.Count != 1 || report.MissingIdentifier.Samples[0].ID != "a" {
		t.Fatalf("missingIdentifier=%+v", report.MissingIdentifier)
	}
	if report.DuplicateIdentifier.Count != 1 {
		t.Fatalf("duplicateIdentifier count=%d, want 1", report.DuplicateIdentifier.Count)
	}
	group := report.DuplicateIdentifier.Groups[0]
	if group.Identifier != "222" || len(group.Members) != 2 {
		t.Fatalf("group=%+v", group)
	}
	if report.CycleBreaks.Count != 1 || report.CycleBreaks.Samples[0].ID != "h" {
		t.Fatalf("cycleBreaks=%+v", report.CycleBreaks)
	}
	foundJ := false
	for _, s := range report.UplineNotFound.Samples {
		if s.ID == "j" {
			foundJ = true
			if s.StatedUplineEmail != "ghost@x.com" {
				t.Fatalf("sample=%+v", s)
			}
		}
	}
	if !foundJ {
		t.Fatalf("j missing from uplineNotFound: %+v", report.UplineNotFound)
	}
}

func TestIssueSamplesCapped(t *testing.T) {
	nodes := map[string]*Node{}
	for _, id := range []string{"a", "b", "c", "d"} {
		nodes[id] = &Node{ID: id, UplineSource: SourceUnknown}
	}
	report, _ := buildReport(nodes, Config{MaxIssueSampleSize: 2})

	if report.MissingIdentifier.Count != 4 {
		t.Fatalf("count=%d, want 4 (counts are never capped)", report.MissingIdentifier.Count)
	}
	if len(report.MissingIdentifier.Samples) != 2 {
		t.Fatalf("samples=%d, want 2", len(report.MissingIdentifier.Samples))
	}
}

func TestDuplicateGroupMembershipUncapped(t *testing.T) {
	nodes := map[string]*Node{}
	for _, id := range []string{"a", "b", "c", "d", "e"} {
		nodes[id] = &Node{ID: id, LicenseNumber: "777", UplineSource: SourceUnknown}
	}
	report, _ := buildReport(nodes, Config{MaxIssueSampleSize: 2})

	if report.DuplicateIdentifier.Count != 1 {
		t.Fatalf("count=%d, want 1", report.DuplicateIdentifier.Count)
	}
	if got := len(report.DuplicateIdentifier.Groups[0].Members); got != 5 {
		t.Fatalf("group membership=%d, want 5 (uncapped)", got)
	}
}

func TestFlaggedIDsUncapped(t *testing.T) {
	nodes := map[string]*Node{}
	for i := 0; i < 30; i++ {
		id := string(rune('a'+i%26)) + string(rune('0'+i/26))
		nodes[id] = &Node{ID: id, UplineSource: SourceUnknown}
	}
	idx := BuildIndex(nodes)
	groups := Materialize(nodes, idx)
	res := Resolve(nodes, idx, groups, Config{})
	flagged := FlaggedIDs(nodes, idx, res)
	if len(flagged) != 30 {
		t.Fatalf("flagged=%d, want all 30 license-less nodes", len(flagged))
	}
}
