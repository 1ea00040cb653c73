package models

// ResultStatus is the outcome of a single test within a control
type ResultStatus string

const (
	ResultPassed  ResultStatus = "passed"
	ResultFailed  ResultStatus = "failed"
	ResultError   ResultStatus = "error"
	ResultSkipped ResultStatus = "skipped"
)

// ValidResultStatuses lists every allowed result status
var ValidResultStatuses = map[ResultStatus]bool{
	ResultPassed:  true,
	ResultFailed:  true,
	ResultError:   true,
	ResultSkipped: true,
}

// ExecJSON is the canonical execution record every converter produces
type ExecJSON struct {
	Platform    Platform       `json:"platform"`
	Version     string         `json:"version"`
	Statistics  Statistics     `json:"statistics"`
	Profiles    []Profile      `json:"profiles"`
	Passthrough map[string]any `json:"passthrough,omitempty"`
}

// Platform describes what produced the record
type Platform struct {
	Name     string `json:"name"`
	Release  string `json:"release"`
	TargetID string `json:"target_id,omitempty"`
}

// Statistics holds run-level counters
type Statistics struct {
	Duration *float64 `json:"duration,omitempty"`
}

// Profile is one benchmark/scan worth of controls
type Profile struct {
	Name          string           `json:"name"`
	Version       string           `json:"version,omitempty"`
	Title         string           `json:"title,omitempty"`
	Maintainer    string           `json:"maintainer,omitempty"`
	Summary       string           `json:"summary,omitempty"`
	License       string           `json:"license,omitempty"`
	Copyright     string           `json:"copyright,omitempty"`
	Supports      []map[string]any `json:"supports"`
	Attributes    []map[string]any `json:"attributes"`
	Groups        []Group          `json:"groups"`
	Depends       []Dependency     `json:"depends,omitempty"`
	ParentProfile string           `json:"parent_profile,omitempty"`
	SHA256        string           `json:"sha256"`
	Status        string           `json:"status,omitempty"`
	Controls      []Control        `json:"controls"`
}

// Group bundles control ids under a title
type Group struct {
	ID       string   `json:"id"`
	Title    string   `json:"title,omitempty"`
	Controls []string `json:"controls"`
}

// Dependency names a profile this one depends on
type Dependency struct {
	Name   string `json:"name"`
	Path   string `json:"path,omitempty"`
	Status string `json:"status,omitempty"`
}

// Control is a single requirement with its test results
type Control struct {
	ID             string               `json:"id"`
	Title          string               `json:"title,omitempty"`
	Desc           string               `json:"desc,omitempty"`
	Descriptions   []ControlDescription `json:"descriptions"`
	Impact         float64              `json:"impact"`
	Tags           map[string]any       `json:"tags"`
	Refs           []map[string]any     `json:"refs"`
	SourceLocation SourceLocation       `json:"source_location"`
	Code           string               `json:"code,omitempty"`
	Results        []Result             `json:"results"`
}

// ControlDescription is a labeled sub-text of a control (check, fix, ...)
type ControlDescription struct {
	Label string `json:"label"`
	Data  string `json:"data"`
}

// SourceLocation points at where a control is defined
type SourceLocation struct {
	Ref  string `json:"ref,omitempty"`
	Line *int   `json:"line,omitempty"`
}

// Result is the outcome of one test run for a control
type Result struct {
	Status    ResultStatus `json:"status"`
	CodeDesc  string       `json:"code_desc"`
	Message   *string      `json:"message,omitempty"`
	StartTime string       `json:"start_time"`
	RunTime   *float64     `json:"run_time,omitempty"`
}

// Control-level statuses shown to consumers
const (
	ControlPassed        = "Passed"
	ControlFailed        = "Failed"
	ControlNotApplicable = "Not Applicable"
	ControlNotReviewed   = "Not Reviewed"
	ControlProfileError  = "Profile Error"
)

// ControlStatusOf derives the consumer-facing status of a control from its
// impact and results.
func ControlStatusOf(c Control) string {
	if c.Impact == 0 {
		return ControlNotApplicable
	}
	if len(c.Results) == 0 {
		return ControlNotReviewed
	}

	var failed, errored, skipped int
	for _, r := range c.Results {
		switch r.Status {
		case ResultFailed:
			failed++
		case ResultError:
			errored++
		case ResultSkipped:
			skipped++
		}
	}

	switch {
	case errored > 0:
		return ControlProfileError
	case failed > 0:
		return ControlFailed
	case skipped == len(c.Results):
		return ControlNotReviewed
	default:
		return ControlPassed
	}
}

// StringPtr returns a pointer to s
func StringPtr(s string) *string { return &s }
