package services

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/uplinehq/agencytree-backend/internal/logger"
	"github.com/uplinehq/agencytree-backend/internal/types"
)

// fieldLabels names the operator-facing CRM field labels each engine field is
// looked up under, in preference order. The built-in defaults match the
// labels the CRM ships with; a YAML file can override any entry.
type fieldLabels struct {
	LicenseNumber    []string            `yaml:"license_number"`
	ProducerNumber   []string            `yaml:"producer_number"`
	UplineIdentifier []string            `yaml:"upline_identifier"`
	UplineEmail      []string            `yaml:"upline_email"`
	UplineName       []string            `yaml:"upline_name"`
	Licensed         []string            `yaml:"licensed"`
	TrainingComplete []string            `yaml:"training_complete"`
	Company          []string            `yaml:"company"`
	VendorFlags      map[string][]string `yaml:"vendor_flags"`
}

func defaultFieldLabels() fieldLabels {
	return fieldLabels{
		LicenseNumber:    []string{"NPN", "License Number"},
		ProducerNumber:   []string{"Producer Number", "Agent Number"},
		UplineIdentifier: []string{"Upline NPN", "Upline License Number", "Upline"},
		UplineEmail:      []string{"Upline Email"},
		UplineName:       []string{"Upline Name"},
		Licensed:         []string{"Licensed"},
		TrainingComplete: []string{"Training Complete", "Training Completed"},
		Company:          []string{"Agency", "Company"},
		VendorFlags: map[string][]string{
			"Carrier Direct": {"Carrier Direct"},
		},
	}
}

type FieldMapService interface {
	Resolve(fields []types.FieldDefinition) types.FieldMap
}

type fieldMapService struct {
	log    *logger.Logger
	labels fieldLabels
}

// NewFieldMapService loads label overrides from the YAML file named by
// FIELD_MAP_CONFIG_PATH when set. An unset path uses the defaults; an
// unreadable or malformed file is an error so a bad deploy fails loudly.
func NewFieldMapService(log *logger.Logger) (FieldMapService, error) {
	if log == nil {
		return nil, fmt.Errorf("logger required")
	}
	labels := defaultFieldLabels()

	path := strings.TrimSpace(os.Getenv("FIELD_MAP_CONFIG_PATH"))
	if path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("field map config read: %w", err)
		}
		var override fieldLabels
		if err := yaml.Unmarshal(raw, &override); err != nil {
			return nil, fmt.Errorf("field map config parse: %w", err)
		}
		labels = mergeLabels(labels, override)
		log.Info("field map overrides loaded", "path", path)
	}

	return &fieldMapService{
		log:    log.With("service", "FieldMapService"),
		labels: labels,
	}, nil
}

func mergeLabels(base, override fieldLabels) fieldLabels {
	if len(override.LicenseNumber) > 0 {
		base.LicenseNumber = override.LicenseNumber
	}
	if len(override.ProducerNumber) > 0 {
		base.ProducerNumber = override.ProducerNumber
	}
	if len(override.UplineIdentifier) > 0 {
		base.UplineIdentifier = override.UplineIdentifier
	}
	if len(override.UplineEmail) > 0 {
		base.UplineEmail = override.UplineEmail
	}
	if len(override.UplineName) > 0 {
		base.UplineName = override.UplineName
	}
	if len(override.Licensed) > 0 {
		base.Licensed = override.Licensed
	}
	if len(override.TrainingComplete) > 0 {
		base.TrainingComplete = override.TrainingComplete
	}
	if len(override.Company) > 0 {
		base.Company = override.Company
	}
	if len(override.VendorFlags) > 0 {
		base.VendorFlags = override.VendorFlags
	}
	return base
}

func (s *fieldMapService) Resolve(fields []types.FieldDefinition) types.FieldMap {
	byLabel := map[string]string{}
	for _, f := range fields {
		label := strings.ToLower(strings.TrimSpace(f.Label))
		if label == "" || strings.TrimSpace(f.Key) == "" {
			continue
		}
		// First definition wins when the CRM carries duplicate labels.
		if _, ok := byLabel[label]; !ok {
			byLabel[label] = f.Key
		}
	}

	lookup := func(labels []string) string {
		for _, l := range labels {
			if key, ok := byLabel[strings.ToLower(strings.TrimSpace(l))]; ok {
				return key
			}
		}
		return ""
	}

	fm := types.FieldMap{
		LicenseNumber:    lookup(s.labels.LicenseNumber),
		ProducerNumber:   lookup(s.labels.ProducerNumber),
		UplineIdentifier: lookup(s.labels.UplineIdentifier),
		UplineEmail:      lookup(s.labels.UplineEmail),
		UplineName:       lookup(s.labels.UplineName),
		Licensed:         lookup(s.labels.Licensed),
		TrainingComplete: lookup(s.labels.TrainingComplete),
		Company:          lookup(s.labels.Company),
		VendorFlags:      map[string]string{},
	}
	for tag, labels := range s.labels.VendorFlags {
		if key := lookup(labels); key != "" {
			fm.VendorFlags[tag] = key
		}
	}

	if fm.LicenseNumber == "" {
		s.log.Warn("no CRM field matched the license number labels", "labels", s.labels.LicenseNumber)
	}
	if fm.UplineIdentifier == "" {
		s.log.Warn("no CRM field matched the upline identifier labels", "labels", s.labels.UplineIdentifier)
	}
	return fm
}
