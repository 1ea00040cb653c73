package checklist

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/ppiankov/hdfhub/internal/converter"
	"github.com/ppiankov/hdfhub/internal/mapping"
	"github.com/ppiankov/hdfhub/internal/models"
	"github.com/ppiankov/hdfhub/internal/nist"
	"github.com/ppiankov/hdfhub/internal/validator"
	"github.com/rs/zerolog"
)

func testTable(t *testing.T) *nist.Table {
	t.Helper()
	table, err := nist.Load(strings.NewReader("cci:\n  CCI-000366: CM-6 b\n"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	return table
}

func TestConvertFixture(t *testing.T) {
	c := NewConverter(Options{Table: testTable(t)})
	exec, err := c.Convert(readFixture(t, "rhel8-single.ckl"))
	if err != nil {
		t.Fatalf("Convert: %v", err)
	}

	if exec.Platform.Name != converter.PlatformName || exec.Platform.TargetID != "web01" {
		t.Errorf("unexpected platform: %+v", exec.Platform)
	}
	if len(exec.Profiles) != 1 {
		t.Fatalf("single STIG should give one profile, got %d", len(exec.Profiles))
	}

	p := exec.Profiles[0]
	if p.Name != "RHEL_8_STIG" || p.Version != "2" || p.Title != "Red Hat Enterprise Linux 8 STIG" {
		t.Errorf("unexpected profile header: name=%q version=%q title=%q", p.Name, p.Version, p.Title)
	}
	if p.ParentProfile != "" || len(p.Depends) != 0 {
		t.Error("single profile must not be aggregated")
	}
	if len(p.SHA256) != 64 {
		t.Errorf("sha256 = %q", p.SHA256)
	}
	if len(p.Controls) != 2 {
		t.Fatalf("expected 2 controls, got %d", len(p.Controls))
	}

	ctl := p.Controls[0]
	if ctl.ID != "V-230221" || ctl.Impact != 0.7 {
		t.Errorf("control id/impact = %q/%v", ctl.ID, ctl.Impact)
	}
	wantDescs := []models.ControlDescription{
		{Label: "check", Data: "Verify the version of the operating system is vendor supported."},
		{Label: "fix", Data: "Upgrade to a supported version of RHEL 8."},
	}
	if diff := cmp.Diff(wantDescs, ctl.Descriptions); diff != "" {
		t.Errorf("descriptions (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]any{"CM-6 b"}, ctl.Tags["nist"]); diff != "" {
		t.Errorf("nist tags (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]any{"CCI-000366", "CCI-999999"}, ctl.Tags["cci"]); diff != "" {
		t.Errorf("cci tags (-want +got):\n%s", diff)
	}
	if ctl.Tags["severity"] != "high" || ctl.Tags["weight"] != "10.0" {
		t.Errorf("unexpected tags: %v", ctl.Tags)
	}
	if _, ok := ctl.Tags["mitigations"]; ok {
		t.Error("empty optional tags should be omitted")
	}
	if !strings.Contains(ctl.Code, `"vulnNum": "V-230221"`) {
		t.Errorf("code should hold the raw vuln, got %q", ctl.Code)
	}

	wantResults := []models.Result{
		{Status: models.ResultPassed, CodeDesc: "Operating system release is supported"},
		{
			Status:   models.ResultFailed,
			CodeDesc: "File /etc/redhat-release content",
			Message:  models.StringPtr("expected: \"8.8\"\n     got: \"8.2\""),
		},
	}
	if diff := cmp.Diff(wantResults, ctl.Results); diff != "" {
		t.Errorf("results (-want +got):\n%s", diff)
	}

	na := p.Controls[1]
	if na.Impact != 0 {
		t.Errorf("not applicable impact = %v", na.Impact)
	}
	if diff := cmp.Diff([]any{"SA-11", "RA-5"}, na.Tags["nist"]); diff != "" {
		t.Errorf("control without CCIs should get default tags (-want +got):\n%s", diff)
	}
	if len(na.Results) != 1 || na.Results[0].Status != models.ResultSkipped || na.Results[0].Message != nil {
		t.Errorf("unexpected results: %+v", na.Results)
	}
	if models.ControlStatusOf(na) != models.ControlNotApplicable {
		t.Errorf("status = %q", models.ControlStatusOf(na))
	}

	cl, ok := exec.Passthrough["checklist"].(map[string]any)
	if !ok {
		t.Fatalf("missing checklist passthrough: %v", exec.Passthrough)
	}
	if stigs, _ := cl["stigs"].([]any); len(stigs) != 1 {
		t.Errorf("passthrough stigs = %v", cl["stigs"])
	}
}

func TestConvertMultiStigAggregates(t *testing.T) {
	c := NewConverter(Options{Table: testTable(t)})
	exec, err := c.Convert(buildCKL("db01", 3, 5))
	if err != nil {
		t.Fatalf("Convert: %v", err)
	}

	if len(exec.Profiles) != 3 {
		t.Fatalf("expected parent plus 2 children, got %d profiles", len(exec.Profiles))
	}

	parent := exec.Profiles[0]
	if parent.Name != "db01" {
		t.Errorf("parent name = %q", parent.Name)
	}
	if len(parent.Controls) != 8 {
		t.Errorf("parent controls = %d, want 8", len(parent.Controls))
	}
	wantDeps := []models.Dependency{
		{Name: "STIG_0"},
		{Name: "STIG_1"},
	}
	if diff := cmp.Diff(wantDeps, parent.Depends); diff != "" {
		t.Errorf("depends (-want +got):\n%s", diff)
	}

	for i, child := range exec.Profiles[1:] {
		if child.ParentProfile != "db01" {
			t.Errorf("child %d parent_profile = %q", i, child.ParentProfile)
		}
	}
	if got := len(exec.Profiles[1].Controls) + len(exec.Profiles[2].Controls); got != 8 {
		t.Errorf("children hold %d controls, want 8", got)
	}

	for _, p := range exec.Profiles {
		want, err := converter.HashControls(p.Controls)
		if err != nil {
			t.Fatalf("HashControls: %v", err)
		}
		if p.SHA256 != want {
			t.Errorf("profile %q hash not computed after aggregation", p.Name)
		}
	}
}

func vulnXML(id, details string) string {
	return "<VULN>" +
		"<STIG_DATA><VULN_ATTRIBUTE>Vuln_Num</VULN_ATTRIBUTE><ATTRIBUTE_DATA>" + id + "</ATTRIBUTE_DATA></STIG_DATA>" +
		"<STIG_DATA><VULN_ATTRIBUTE>Severity</VULN_ATTRIBUTE><ATTRIBUTE_DATA>low</ATTRIBUTE_DATA></STIG_DATA>" +
		"<STATUS>Open</STATUS><FINDING_DETAILS>" + details + "</FINDING_DETAILS><COMMENTS>note</COMMENTS>" +
		"</VULN>"
}

func stigXML(stigID string, vulns ...string) string {
	info := "<STIG_INFO></STIG_INFO>"
	if stigID != "" {
		info = "<STIG_INFO><SI_DATA><SID_NAME>stigid</SID_NAME><SID_DATA>" + stigID + "</SID_DATA></SI_DATA></STIG_INFO>"
	}
	return "<iSTIG>" + info + strings.Join(vulns, "") + "</iSTIG>"
}

func checklistXML(stigs ...string) []byte {
	return []byte("<CHECKLIST><ASSET><HOST_NAME>h1</HOST_NAME></ASSET><STIGS>" + strings.Join(stigs, "") + "</STIGS></CHECKLIST>")
}

func TestConvertKeepsFindingDetailsWhitespace(t *testing.T) {
	data := checklistXML(stigXML("S",
		vulnXML("V-1", "    indented code line\npassed\nx"),
		vulnXML("V-2", "passed\nfoo\n--------------------------------\n"),
	))

	exec, err := NewConverter(Options{Table: testTable(t)}).Convert(data)
	if err != nil {
		t.Fatalf("Convert: %v", err)
	}
	controls := exec.Profiles[0].Controls

	wantIndented := []models.Result{{
		Status:   models.ResultFailed,
		CodeDesc: "    indented code line\npassed\nx",
		Message:  models.StringPtr("note"),
	}}
	if diff := cmp.Diff(wantIndented, controls[0].Results); diff != "" {
		t.Errorf("leading indentation (-want +got):\n%s", diff)
	}

	wantSplit := []models.Result{{Status: models.ResultPassed, CodeDesc: "foo"}}
	if diff := cmp.Diff(wantSplit, controls[1].Results); diff != "" {
		t.Errorf("trailing separator (-want +got):\n%s", diff)
	}
}

func TestConvertSharedVulnAcrossStigsValidates(t *testing.T) {
	data := checklistXML(
		stigXML("STIG_R1", vulnXML("V-1", "passed\nok")),
		stigXML("STIG_R2", vulnXML("V-1", "failed\nbad")),
	)

	exec, err := NewConverter(Options{Table: testTable(t)}).Convert(data)
	if err != nil {
		t.Fatalf("Convert: %v", err)
	}
	if len(exec.Profiles) != 3 || len(exec.Profiles[0].Controls) != 2 {
		t.Fatalf("expected parent with both controls plus 2 children, got %+v", exec.Profiles)
	}
	if err := validator.New().Validate(exec); err != nil {
		t.Fatalf("converted record should validate: %v", err)
	}
}

func TestConvertUnnamedStigsGetDistinctNames(t *testing.T) {
	data := checklistXML(stigXML("", vulnXML("V-1", "")), stigXML("", vulnXML("V-2", "")))

	exec, err := NewConverter(Options{Table: testTable(t)}).Convert(data)
	if err != nil {
		t.Fatalf("Convert: %v", err)
	}

	wantDeps := []models.Dependency{{Name: "stig_0"}, {Name: "stig_1"}}
	if diff := cmp.Diff(wantDeps, exec.Profiles[0].Depends); diff != "" {
		t.Errorf("depends (-want +got):\n%s", diff)
	}
	if exec.Profiles[1].Name != "stig_0" || exec.Profiles[2].Name != "stig_1" {
		t.Errorf("child names = %q, %q", exec.Profiles[1].Name, exec.Profiles[2].Name)
	}
	if err := validator.New().Validate(exec); err != nil {
		t.Errorf("converted record should validate: %v", err)
	}
}

func TestConvertParentNameDefault(t *testing.T) {
	c := NewConverter(Options{Table: testTable(t)})
	exec, err := c.Convert(buildCKL("", 1, 1))
	if err != nil {
		t.Fatalf("Convert: %v", err)
	}
	if exec.Profiles[0].Name != DefaultParentName {
		t.Errorf("parent name = %q", exec.Profiles[0].Name)
	}
}

func TestConvertIsDeterministic(t *testing.T) {
	c := NewConverter(Options{Table: testTable(t)})
	data := readFixture(t, "rhel8-single.ckl")

	first, err := c.Convert(data)
	if err != nil {
		t.Fatalf("Convert: %v", err)
	}
	second, err := c.Convert(data)
	if err != nil {
		t.Fatalf("Convert: %v", err)
	}

	a, _ := json.Marshal(first)
	b, _ := json.Marshal(second)
	if !bytes.Equal(a, b) {
		t.Error("converting the same input twice gave different output")
	}
}

func unmappedChecklist() *models.Checklist {
	return &models.Checklist{
		Asset: models.ChecklistAsset{HostName: "h"},
		Stigs: []models.ChecklistStig{{
			Header: models.StigHeader{StigID: "S"},
			Vulns:  []models.ChecklistVuln{{VulnNum: "V-9", Severity: "catastrophic", Status: "Open"}},
		}},
	}
}

func TestUnmappedSeverityFallsBack(t *testing.T) {
	var logs bytes.Buffer
	fallback := 0.6
	c := NewConverter(Options{
		Logger:         zerolog.New(&logs),
		Table:          testTable(t),
		FallbackImpact: &fallback,
	})

	exec, err := c.ToHDF(unmappedChecklist())
	if err != nil {
		t.Fatalf("ToHDF: %v", err)
	}
	if got := exec.Profiles[0].Controls[0].Impact; got != 0.6 {
		t.Errorf("impact = %v, want fallback 0.6", got)
	}
	if !strings.Contains(logs.String(), "catastrophic") {
		t.Errorf("expected a warning naming the severity, got %q", logs.String())
	}
}

func TestUnmappedSeverityStrict(t *testing.T) {
	c := NewConverter(Options{Table: testTable(t), StrictSeverity: true})

	_, err := c.ToHDF(unmappedChecklist())
	var unmapped *UnmappedSeverityError
	if !errors.As(err, &unmapped) {
		t.Fatalf("expected UnmappedSeverityError, got %v", err)
	}
	if unmapped.VulnNum != "V-9" || unmapped.Severity != "catastrophic" {
		t.Errorf("unexpected error fields: %+v", unmapped)
	}

	var transform *mapping.TransformError
	if !errors.As(err, &transform) || transform.Field != "profiles[0].controls[0].impact" {
		t.Errorf("expected transform error at impact, got %v", err)
	}
}

func TestAggregateProfilesDoesNotMutateInput(t *testing.T) {
	in := []models.Profile{
		{Name: "a", Controls: []models.Control{{ID: "1"}}},
		{Name: "b", Controls: []models.Control{{ID: "2"}, {ID: "3"}}},
	}

	out := AggregateProfiles(in, "parent")
	if len(out) != 3 || out[0].Name != "parent" {
		t.Fatalf("unexpected aggregate: %+v", out)
	}
	if in[0].ParentProfile != "" || in[1].ParentProfile != "" {
		t.Error("input profiles were modified")
	}

	ids := make([]string, 0, len(out[0].Controls))
	for _, c := range out[0].Controls {
		ids = append(ids, c.ID)
	}
	if diff := cmp.Diff([]string{"1", "2", "3"}, ids); diff != "" {
		t.Errorf("parent control order (-want +got):\n%s", diff)
	}
}

func TestAggregateProfilesSingleIsUnchanged(t *testing.T) {
	in := []models.Profile{{Name: "only"}}
	out := AggregateProfiles(in, "parent")
	if len(out) != 1 || out[0].Name != "only" || out[0].ParentProfile != "" {
		t.Errorf("unexpected: %+v", out)
	}
}
