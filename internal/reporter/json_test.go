package reporter

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/ppiankov/hdfhub/internal/models"
)

func sampleExec() *models.ExecJSON {
	return &models.ExecJSON{
		Platform: models.Platform{Name: "hdfhub", Release: "dev", TargetID: "web01"},
		Profiles: []models.Profile{
			{
				Name: "web01",
				Controls: []models.Control{
					{ID: "V-1", Impact: 0.7, Results: []models.Result{{Status: models.ResultFailed}}},
					{ID: "V-2", Impact: 0.5, Results: []models.Result{{Status: models.ResultPassed}}},
					{ID: "V-3", Impact: 0},
				},
			},
			{
				Name:          "STIG_A",
				ParentProfile: "web01",
				Controls: []models.Control{
					{ID: "V-1", Impact: 0.7, Results: []models.Result{{Status: models.ResultFailed}}},
					{ID: "V-2", Impact: 0.5, Results: []models.Result{{Status: models.ResultPassed}}},
				},
			},
			{
				Name:          "STIG_B",
				ParentProfile: "web01",
				Controls:      []models.Control{{ID: "V-3", Impact: 0}},
			},
		},
	}
}

func TestJSONReporterGenerate(t *testing.T) {
	var buf bytes.Buffer
	r := NewJSONReporter(&buf, false)

	if err := r.Generate(sampleExec()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	output := buf.String()
	if !strings.HasSuffix(output, "\n") {
		t.Error("expected trailing newline")
	}
	if strings.Contains(strings.TrimSpace(output), "\n") {
		t.Error("compact output should be a single line")
	}

	var decoded models.ExecJSON
	if err := json.Unmarshal(buf.Bytes(), &decoded); err != nil {
		t.Fatalf("output is not valid JSON: %v", err)
	}
	if len(decoded.Profiles) != 3 {
		t.Errorf("profiles = %d", len(decoded.Profiles))
	}
}

func TestJSONReporterPretty(t *testing.T) {
	var buf bytes.Buffer
	if err := NewJSONReporter(&buf, true).Generate(sampleExec()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(buf.String(), "\n  \"platform\"") {
		t.Errorf("expected indented output, got %q", buf.String()[:40])
	}
}

func TestJSONReporterSummaries(t *testing.T) {
	var buf bytes.Buffer
	s := Summarize("scan.ckl", sampleExec())
	if err := NewJSONReporter(&buf, false).GenerateSummaries([]Summary{s}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var decoded []Summary
	if err := json.Unmarshal(buf.Bytes(), &decoded); err != nil {
		t.Fatalf("output is not valid JSON: %v", err)
	}
	if diff := cmp.Diff([]Summary{s}, decoded); diff != "" {
		t.Errorf("summary changed across JSON (-want +got):\n%s", diff)
	}
}

func TestSummarize(t *testing.T) {
	s := Summarize("scan.ckl", sampleExec())

	if s.Target != "web01" || len(s.Profiles) != 3 {
		t.Fatalf("unexpected summary: %+v", s)
	}
	want := StatusCounts{Passed: 1, Failed: 1, NotApplicable: 1}
	if diff := cmp.Diff(want, s.Profiles[0].Counts); diff != "" {
		t.Errorf("parent counts (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(want, s.Totals); diff != "" {
		t.Errorf("totals should not double count children (-want +got):\n%s", diff)
	}
	if s.Profiles[2].Counts.Total() != 1 {
		t.Errorf("child total = %d", s.Profiles[2].Counts.Total())
	}
}
