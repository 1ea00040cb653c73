package reporter

import (
	"github.com/ppiankov/hdfhub/internal/models"
)

// StatusCounts tallies controls by consumer-facing status
type StatusCounts struct {
	Passed        int `json:"passed"`
	Failed        int `json:"failed"`
	NotApplicable int `json:"not_applicable"`
	NotReviewed   int `json:"not_reviewed"`
	ProfileError  int `json:"profile_error"`
}

// Total returns the number of controls counted
func (c StatusCounts) Total() int {
	return c.Passed + c.Failed + c.NotApplicable + c.NotReviewed + c.ProfileError
}

func (c *StatusCounts) add(status string) {
	switch status {
	case models.ControlPassed:
		c.Passed++
	case models.ControlFailed:
		c.Failed++
	case models.ControlNotApplicable:
		c.NotApplicable++
	case models.ControlNotReviewed:
		c.NotReviewed++
	case models.ControlProfileError:
		c.ProfileError++
	}
}

func (c *StatusCounts) merge(o StatusCounts) {
	c.Passed += o.Passed
	c.Failed += o.Failed
	c.NotApplicable += o.NotApplicable
	c.NotReviewed += o.NotReviewed
	c.ProfileError += o.ProfileError
}

// ProfileSummary holds the counts for one profile
type ProfileSummary struct {
	Name          string       `json:"name"`
	Title         string       `json:"title,omitempty"`
	ParentProfile string       `json:"parent_profile,omitempty"`
	Counts        StatusCounts `json:"counts"`
}

// Summary condenses one execution record
type Summary struct {
	Source   string           `json:"source"`
	Target   string           `json:"target,omitempty"`
	Profiles []ProfileSummary `json:"profiles"`
	// Totals skips child profiles when a parent aggregates them so controls
	// are not counted twice.
	Totals StatusCounts `json:"totals"`
}

// Summarize counts control statuses per profile
func Summarize(source string, exec *models.ExecJSON) Summary {
	s := Summary{
		Source:   source,
		Target:   exec.Platform.TargetID,
		Profiles: make([]ProfileSummary, 0, len(exec.Profiles)),
	}

	for _, p := range exec.Profiles {
		ps := ProfileSummary{Name: p.Name, Title: p.Title, ParentProfile: p.ParentProfile}
		for _, c := range p.Controls {
			ps.Counts.add(models.ControlStatusOf(c))
		}
		s.Profiles = append(s.Profiles, ps)
		if p.ParentProfile == "" {
			s.Totals.merge(ps.Counts)
		}
	}

	return s
}
