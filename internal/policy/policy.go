package policy

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/ppiankov/hdfhub/internal/models"
	"gopkg.in/yaml.v3"
)

// FileNames are the policy file names searched for, in order
var FileNames = []string{".hdfhub-policy.yaml", ".hdfhub-policy.yml"}

// Policy defines enforcement rules for converted records.
type Policy struct {
	Version string `yaml:"version"`
	Rules   Rules  `yaml:"rules"`
}

// Rules contains all configurable policy rules.
type Rules struct {
	MaxFailed        *int     `yaml:"max_failed,omitempty"`
	MaxProfileErrors *int     `yaml:"max_profile_errors,omitempty"`
	MaxNotReviewed   *int     `yaml:"max_not_reviewed,omitempty"`
	MinPassRate      *float64 `yaml:"min_pass_rate,omitempty"`
	MaxFailedImpact  *float64 `yaml:"max_failed_impact,omitempty"`
	RequireFormats   []string `yaml:"require_formats,omitempty"`
}

// Violation is a single policy failure.
type Violation struct {
	Rule    string `json:"rule"`
	Message string `json:"message"`
}

// Result holds the outcome of a policy check.
type Result struct {
	Pass       bool        `json:"pass"`
	Violations []Violation `json:"violations"`
}

// LoadFromFile reads a policy file. A missing file yields a nil policy.
func LoadFromFile(path string) (*Policy, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("read policy: %w", err)
	}

	var p Policy
	if err := yaml.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("parse policy: %w", err)
	}

	return &p, nil
}

// FindPolicyFile searches dir and its parents up to the filesystem root.
func FindPolicyFile(dir string) string {
	dir, err := filepath.Abs(dir)
	if err != nil {
		return ""
	}

	for {
		for _, name := range FileNames {
			path := filepath.Join(dir, name)
			if _, err := os.Stat(path); err == nil {
				return path
			}
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}

	return ""
}

// counts tallies top-level controls by status. Child profiles repeat their
// parent's controls and are skipped.
type counts struct {
	passed        int
	failed        int
	profileErrors int
	notReviewed   int
	worstFailed   float64
	worstFailedID string
}

func tally(conversions []models.Conversion) counts {
	var c counts
	for _, conv := range conversions {
		if conv.Output == nil {
			continue
		}
		for _, p := range conv.Output.Profiles {
			if p.ParentProfile != "" {
				continue
			}
			for _, ctl := range p.Controls {
				switch models.ControlStatusOf(ctl) {
				case models.ControlPassed:
					c.passed++
				case models.ControlFailed:
					c.failed++
					if ctl.Impact > c.worstFailed {
						c.worstFailed = ctl.Impact
						c.worstFailedID = ctl.ID
					}
				case models.ControlProfileError:
					c.profileErrors++
				case models.ControlNotReviewed:
					c.notReviewed++
				}
			}
		}
	}
	return c
}

// Evaluate checks converted records against the policy rules.
func (p *Policy) Evaluate(conversions []models.Conversion) *Result {
	if p == nil {
		return &Result{Pass: true}
	}

	c := tally(conversions)
	var violations []Violation

	// max_failed
	if p.Rules.MaxFailed != nil && c.failed > *p.Rules.MaxFailed {
		violations = append(violations, Violation{
			Rule:    "max_failed",
			Message: fmt.Sprintf("failed controls %d exceeds limit %d", c.failed, *p.Rules.MaxFailed),
		})
	}

	// max_profile_errors
	if p.Rules.MaxProfileErrors != nil && c.profileErrors > *p.Rules.MaxProfileErrors {
		violations = append(violations, Violation{
			Rule:    "max_profile_errors",
			Message: fmt.Sprintf("profile errors %d exceeds limit %d", c.profileErrors, *p.Rules.MaxProfileErrors),
		})
	}

	// max_not_reviewed
	if p.Rules.MaxNotReviewed != nil && c.notReviewed > *p.Rules.MaxNotReviewed {
		violations = append(violations, Violation{
			Rule:    "max_not_reviewed",
			Message: fmt.Sprintf("controls not reviewed %d exceeds limit %d", c.notReviewed, *p.Rules.MaxNotReviewed),
		})
	}

	// min_pass_rate, over controls that produced a verdict
	if p.Rules.MinPassRate != nil {
		judged := c.passed + c.failed + c.profileErrors
		rate := 100.0
		if judged > 0 {
			rate = float64(c.passed) / float64(judged) * 100
		}
		if rate < *p.Rules.MinPassRate {
			violations = append(violations, Violation{
				Rule:    "min_pass_rate",
				Message: fmt.Sprintf("pass rate %.1f%% below minimum %.1f%%", rate, *p.Rules.MinPassRate),
			})
		}
	}

	// max_failed_impact
	if p.Rules.MaxFailedImpact != nil && c.failed > 0 && c.worstFailed > *p.Rules.MaxFailedImpact {
		violations = append(violations, Violation{
			Rule:    "max_failed_impact",
			Message: fmt.Sprintf("control %s failed with impact %.1f above limit %.1f", c.worstFailedID, c.worstFailed, *p.Rules.MaxFailedImpact),
		})
	}

	// require_formats
	if len(p.Rules.RequireFormats) > 0 {
		seen := make(map[string]bool)
		for _, conv := range conversions {
			seen[string(conv.Tool)] = true
		}
		required := append([]string(nil), p.Rules.RequireFormats...)
		sort.Strings(required)
		for _, format := range required {
			if !seen[format] {
				violations = append(violations, Violation{
					Rule:    "require_formats",
					Message: fmt.Sprintf("required format %q not among converted inputs", format),
				})
			}
		}
	}

	return &Result{
		Pass:       len(violations) == 0,
		Violations: violations,
	}
}
