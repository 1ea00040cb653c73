package prisma

import (
	"errors"
	"os"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/ppiankov/hdfhub/internal/converter"
	"github.com/ppiankov/hdfhub/internal/models"
)

func TestConvertFixture(t *testing.T) {
	data, err := os.ReadFile("../../testdata/samples/prisma-scan.csv")
	if err != nil {
		t.Fatalf("failed to read fixture: %v", err)
	}

	exec, err := NewConverter().Convert(data)
	if err != nil {
		t.Fatalf("Convert: %v", err)
	}

	names := make([]string, 0, len(exec.Profiles))
	for _, p := range exec.Profiles {
		names = append(names, p.Name)
	}
	want := []string{"Prisma Cloud Scan Report - web01", "Prisma Cloud Scan Report - db01"}
	if diff := cmp.Diff(want, names); diff != "" {
		t.Fatalf("profiles by host in first-seen order (-want +got):\n%s", diff)
	}

	web := exec.Profiles[0]
	if web.Summary != "Ubuntu 20.04" {
		t.Errorf("summary = %q", web.Summary)
	}
	if len(web.Controls) != 2 {
		t.Fatalf("duplicate CVE rows should collapse, got %d controls", len(web.Controls))
	}

	glibc := web.Controls[0]
	if glibc.ID != "CVE-2023-4911" || glibc.Impact != 0.9 || glibc.Title != "CVE-2023-4911: glibc" {
		t.Errorf("unexpected control: id=%q impact=%v title=%q", glibc.ID, glibc.Impact, glibc.Title)
	}
	if glibc.Tags["cvss"] != 7.8 {
		t.Errorf("cvss = %v", glibc.Tags["cvss"])
	}
	if diff := cmp.Diff([]any{"SI-2", "RA-5"}, glibc.Tags["nist"]); diff != "" {
		t.Errorf("nist (-want +got):\n%s", diff)
	}
	if len(glibc.Results) != 2 {
		t.Fatalf("expected merged results, got %d", len(glibc.Results))
	}
	wantResult := models.Result{
		Status:    models.ResultFailed,
		CodeDesc:  "Package: glibc; Version: 2.31-0ubuntu9.9; Fix Status: fixed in 2.31-0ubuntu9.12",
		StartTime: "2023-10-05T12:00:00Z",
	}
	if diff := cmp.Diff(wantResult, glibc.Results[0]); diff != "" {
		t.Errorf("result (-want +got):\n%s", diff)
	}

	if curl := web.Controls[1]; curl.Impact != 0.5 {
		t.Errorf("moderate impact = %v", curl.Impact)
	}

	db := exec.Profiles[1].Controls[0]
	if db.ID != "6112" || db.Impact != 0.7 {
		t.Errorf("compliance control id/impact = %q/%v", db.ID, db.Impact)
	}
	if db.Results[0].Message == nil || *db.Results[0].Message != "PermitRootLogin yes" {
		t.Errorf("message = %v", db.Results[0].Message)
	}
	if _, ok := db.Tags["cvss"]; ok {
		t.Error("empty cvss should be omitted")
	}
}

func TestParseHostsHeaderOnly(t *testing.T) {
	hosts, err := ParseHosts([]byte("\ufeffHostname,CVE ID\n"))
	if err != nil {
		t.Fatalf("ParseHosts: %v", err)
	}
	if len(hosts) != 0 {
		t.Errorf("expected no hosts, got %v", hosts)
	}
}

func TestConvertMalformed(t *testing.T) {
	tests := []struct {
		name   string
		data   string
		reason string
	}{
		{"empty", "", "unreadable CSV header"},
		{"no hostname", "CVE ID,Severity\nCVE-1,high\n", "missing Hostname column"},
		{"no id column", "Hostname,Severity\nh,high\n", "missing id column (one of CVE ID, Compliance ID)"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewConverter().Convert([]byte(tt.data))
			var malformed *converter.MalformedInputError
			if !errors.As(err, &malformed) {
				t.Fatalf("expected MalformedInputError, got %v", err)
			}
			if malformed.Reason != tt.reason {
				t.Errorf("Reason = %q, want %q", malformed.Reason, tt.reason)
			}
		})
	}
}
