package validator

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"github.com/ppiankov/hdfhub/internal/converter"
	"github.com/ppiankov/hdfhub/internal/models"
)

// ValidationError represents a validation failure
type ValidationError struct {
	Source string
	Errors []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("Invalid %s:\n  - %s", e.Source, strings.Join(e.Errors, "\n  - "))
}

var sha256Pattern = regexp.MustCompile(`^[0-9a-f]{64}$`)

// Validator checks execution records for structural consistency
type Validator struct{}

// New creates a new validator
func New() *Validator {
	return &Validator{}
}

// ValidateJSON decodes and validates a serialized execution record
func (v *Validator) ValidateJSON(data []byte) (*models.ExecJSON, error) {
	var exec models.ExecJSON
	if err := json.Unmarshal(data, &exec); err != nil {
		return nil, &ValidationError{
			Source: "execution record",
			Errors: []string{fmt.Sprintf("Failed to parse JSON: %v", err)},
		}
	}
	if err := v.Validate(&exec); err != nil {
		return nil, err
	}
	return &exec, nil
}

// Validate checks an execution record and reports every problem found
func (v *Validator) Validate(exec *models.ExecJSON) error {
	if exec == nil {
		return &ValidationError{Source: "execution record", Errors: []string{"Record is nil"}}
	}

	var errors []string

	if exec.Platform.Name == "" {
		errors = append(errors, "Missing required field: 'platform.name'")
	}
	if len(exec.Profiles) == 0 {
		errors = append(errors, "Record has no profiles")
	}

	names := make(map[string]bool, len(exec.Profiles))
	for _, p := range exec.Profiles {
		if p.Name != "" {
			names[p.Name] = true
		}
	}

	for i, p := range exec.Profiles {
		errors = append(errors, validateProfile(i, p, names)...)
	}

	if len(errors) > 0 {
		return &ValidationError{Source: "execution record", Errors: errors}
	}

	return nil
}

func validateProfile(i int, p models.Profile, names map[string]bool) []string {
	var errors []string
	label := fmt.Sprintf("profiles[%d]", i)
	if p.Name != "" {
		label = fmt.Sprintf("profile '%s'", p.Name)
	}

	if p.Name == "" {
		errors = append(errors, fmt.Sprintf("%s: missing required field 'name'", label))
	}

	if !sha256Pattern.MatchString(p.SHA256) {
		errors = append(errors, fmt.Sprintf("%s: sha256 '%s' is not a 64 character hex digest", label, p.SHA256))
	} else if want, err := converter.HashControls(p.Controls); err == nil && want != p.SHA256 {
		errors = append(errors, fmt.Sprintf("%s: sha256 does not match its controls", label))
	}

	if p.ParentProfile != "" && !names[p.ParentProfile] {
		errors = append(errors, fmt.Sprintf("%s: parent_profile '%s' does not name a profile", label, p.ParentProfile))
	}
	for _, dep := range p.Depends {
		if !names[dep.Name] {
			errors = append(errors, fmt.Sprintf("%s: depends on unknown profile '%s'", label, dep.Name))
		}
	}

	// An aggregate profile concatenates its dependencies' controls, so ids
	// repeat when two of them share a requirement.
	aggregate := len(p.Depends) > 0
	seen := make(map[string]bool, len(p.Controls))
	for j, c := range p.Controls {
		if c.ID == "" {
			errors = append(errors, fmt.Sprintf("%s: controls[%d] has no id", label, j))
		} else if seen[c.ID] && !aggregate {
			errors = append(errors, fmt.Sprintf("%s: duplicate control id '%s'", label, c.ID))
		}
		seen[c.ID] = true

		if c.Impact < 0 || c.Impact > 1 {
			errors = append(errors, fmt.Sprintf("%s: control '%s' impact %v outside [0, 1]", label, c.ID, c.Impact))
		}

		for k, r := range c.Results {
			if !models.ValidResultStatuses[r.Status] {
				errors = append(errors, fmt.Sprintf("%s: control '%s' results[%d] has invalid status: '%s'", label, c.ID, k, r.Status))
			}
		}
	}

	return errors
}
