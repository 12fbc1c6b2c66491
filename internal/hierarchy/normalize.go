package hierarchy

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/uplinehq/agencytree-backend/internal/types"
)

// NormalizeRecord converts one raw CRM contact into a canonical Node. It has
// no failure modes: missing or garbled fields normalize to empty values and
// surface later as data-quality issues.
func NormalizeRecord(rec types.RawRecord, fields types.FieldMap) *Node {
	custom := func(key string) any {
		if key == "" || rec.Custom == nil {
			return nil
		}
		return unwrapFirst(rec.Custom[key])
	}
	str := func(key string) string {
		return asString(custom(key))
	}

	n := &Node{
		ID:                rec.ID,
		LicenseNumber:     digitsOnly(str(fields.LicenseNumber)),
		ProducerNumber:    digitsOnly(str(fields.ProducerNumber)),
		Email:             normalizeEmail(rec.Email),
		StatedUplineEmail: normalizeEmail(str(fields.UplineEmail)),
		StatedUplineName:  strings.TrimSpace(str(fields.UplineName)),
		Licensed:          asBool(custom(fields.Licensed)),
		TrainingComplete:  asBool(custom(fields.TrainingComplete)),
		UplineSource:      SourceUnknown,
	}

	// The reports-to field is operator-entered free text: usually a license
	// or producer number, occasionally an e-mail address.
	uplineRaw := strings.TrimSpace(str(fields.UplineIdentifier))
	if strings.Contains(uplineRaw, "@") && n.StatedUplineEmail == "" {
		n.StatedUplineEmail = normalizeEmail(uplineRaw)
	} else {
		n.StatedUplineID = digitsOnly(uplineRaw)
	}

	n.Company = strings.TrimSpace(rec.Company)
	if n.Company == "" {
		n.Company = strings.TrimSpace(str(fields.Company))
	}

	for _, tag := range sortedKeys(fields.VendorFlags) {
		if asBool(custom(fields.VendorFlags[tag])) {
			n.VendorFlags = append(n.VendorFlags, tag)
		}
	}

	n.DisplayName = displayName(rec, n.Email)
	return n
}

func displayName(rec types.RawRecord, email string) string {
	first := strings.TrimSpace(rec.FirstName)
	last := strings.TrimSpace(rec.LastName)
	if first != "" || last != "" {
		return strings.TrimSpace(first + " " + last)
	}
	if full := strings.TrimSpace(rec.FullName); full != "" {
		return full
	}
	if email != "" {
		return email
	}
	return "Contact " + lastN(rec.ID, 6)
}

// unwrapFirst flattens the single-element list shape some CRM field types
// use into the scalar the normalizer expects.
func unwrapFirst(v any) any {
	switch t := v.(type) {
	case []any:
		if len(t) == 0 {
			return nil
		}
		return t[0]
	case []string:
		if len(t) == 0 {
			return nil
		}
		return t[0]
	default:
		return v
	}
}

func asString(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case int:
		return strconv.Itoa(t)
	case bool:
		return strconv.FormatBool(t)
	default:
		return fmt.Sprintf("%v", t)
	}
}

func asBool(v any) bool {
	switch t := v.(type) {
	case nil:
		return false
	case bool:
		return t
	case float64:
		return t != 0
	case int:
		return t != 0
	case string:
		switch strings.ToLower(strings.TrimSpace(t)) {
		case "1", "true", "yes", "on", "x", "checked":
			return true
		}
	}
	return false
}

func digitsOnly(s string) string {
	var b strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

func normalizeEmail(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

func lastN(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[len(s)-n:]
}

func sortedKeys(m map[string]string) []string {
	if len(m) == 0 {
		return nil
	}
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
