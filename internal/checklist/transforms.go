package checklist

import (
	"fmt"
	"strings"

	"github.com/ppiankov/hdfhub/internal/models"
)

// FindingSeparator divides logical results inside one FINDING_DETAILS string
const FindingSeparator = "--------------------------------\n"

// expectedMarker starts the diagnostic part of a segment with a status line
const expectedMarker = "\nexpected"

// Severity impacts on the 0..1 scale
var severityImpact = map[string]float64{
	"high":   0.7,
	"medium": 0.5,
	"low":    0.3,
}

// UnmappedSeverityError is returned in strict mode for a severity that has
// no impact mapping.
type UnmappedSeverityError struct {
	VulnNum  string
	Severity string
}

func (e *UnmappedSeverityError) Error() string {
	return fmt.Sprintf("vuln %s: unmapped severity %q", e.VulnNum, e.Severity)
}

// TransformImpact scores a vuln. Not-applicable findings score 0 regardless
// of severity, and a severity override wins over the declared severity.
// The second result is false when the effective severity is not one of
// high, medium or low; the caller decides the fallback.
func TransformImpact(vuln models.ChecklistVuln) (float64, bool) {
	if isNotApplicable(vuln.Status) {
		return 0.0, true
	}

	severity := vuln.Severity
	if strings.TrimSpace(vuln.SeverityOverride) != "" {
		severity = vuln.SeverityOverride
	}

	impact, ok := severityImpact[strings.ToLower(strings.TrimSpace(severity))]
	return impact, ok
}

// isNotApplicable accepts both "Not Applicable" and the .ckl spelling
// "Not_Applicable".
func isNotApplicable(status string) bool {
	s := strings.ToLower(status)
	s = strings.ReplaceAll(s, "_", "")
	s = strings.ReplaceAll(s, " ", "")
	return s == "notapplicable"
}

// GetStatus maps a checklist status onto a result status. Unknown values
// become skipped; there is no failure case.
func GetStatus(raw string) models.ResultStatus {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "notafinding", "passed":
		return models.ResultPassed
	case "open", "failed":
		return models.ResultFailed
	case "error":
		return models.ResultError
	default:
		return models.ResultSkipped
	}
}

// statusTokens are the words recognized on the first line of a segment.
// Matching is case-sensitive.
var statusTokens = map[string]models.ResultStatus{
	"passed":  models.ResultPassed,
	"failed":  models.ResultFailed,
	"skipped": models.ResultSkipped,
	"error":   models.ResultError,
}

// ParseFindingDetails re-splits a FINDING_DETAILS string into one result per
// separator-delimited segment.
//
// A segment whose first line is a status token takes that status; the rest
// is split at the first "\nexpected" into code_desc and message. Any other
// segment becomes code_desc verbatim and keeps the parent's status and
// message. A literal "\nexpected" inside the assertion text is taken as the
// marker too.
//
// Empty details, or details with no non-empty segment, return the parent
// unchanged.
func ParseFindingDetails(parent models.Result, details string) []models.Result {
	if details == "" {
		return []models.Result{parent}
	}

	var out []models.Result
	for _, segment := range strings.Split(details, FindingSeparator) {
		segment = strings.TrimSuffix(segment, "\n")
		if segment == "" {
			continue
		}
		out = append(out, parseSegment(parent, segment))
	}

	if len(out) == 0 {
		return []models.Result{parent}
	}
	return out
}

func parseSegment(parent models.Result, segment string) models.Result {
	token, rest, _ := strings.Cut(segment, "\n")
	status, ok := statusTokens[token]
	if !ok {
		return models.Result{
			Status:    parent.Status,
			CodeDesc:  segment,
			Message:   parent.Message,
			StartTime: parent.StartTime,
			RunTime:   parent.RunTime,
		}
	}

	r := models.Result{
		Status:    status,
		CodeDesc:  rest,
		StartTime: parent.StartTime,
		RunTime:   parent.RunTime,
	}
	if codeDesc, message, found := strings.Cut(rest, expectedMarker); found {
		r.CodeDesc = codeDesc
		r.Message = models.StringPtr(strings.TrimPrefix(expectedMarker, "\n") + message)
	}
	return r
}

// SplitCCIRef splits a "; "-joined CCI list, dropping blanks
func SplitCCIRef(ref string) []string {
	var out []string
	for _, part := range strings.Split(ref, ";") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
