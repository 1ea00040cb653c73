package nist

import (
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"sync"
	"testing"
)

func resetShared() {
	initOnce = sync.Once{}
	shared = nil
	initErr = nil
}

func TestEmbeddedTableLoads(t *testing.T) {
	table := Default()
	cci, cwe := table.Size()
	if cci == 0 || cwe == 0 {
		t.Fatalf("expected embedded entries, got cci=%d cwe=%d", cci, cwe)
	}
	if tag, ok := table.CCI("CCI-000366"); !ok || tag != "CM-6 b" {
		t.Errorf("CCI-000366 = %q, %v", tag, ok)
	}
}

func TestDefaultAfterFailedInit(t *testing.T) {
	resetShared()
	t.Cleanup(resetShared)

	bad := filepath.Join(t.TempDir(), "bad.yaml")
	if err := os.WriteFile(bad, []byte("cci: [unterminated"), 0644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	if err := Init(bad); err == nil {
		t.Fatal("expected Init to fail on a bad table")
	}

	table := Default()
	if table == nil {
		t.Fatal("Default returned nil")
	}
	if tag, ok := table.CCI("CCI-000366"); !ok || tag != "CM-6 b" {
		t.Errorf("expected embedded table, CCI-000366 = %q, %v", tag, ok)
	}
}

func TestNISTFilter(t *testing.T) {
	table, err := Load(strings.NewReader(`
cci:
  CCI-000001: AC-1
  CCI-000002: AC-1
  CCI-000003: AC-2
`))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	tests := []struct {
		name string
		ids  []string
		want []string
	}{
		{"dedup in first-seen order", []string{"CCI-000003", "CCI-000001", "CCI-000002"}, []string{"AC-2", "AC-1"}},
		{"unknown ids skipped", []string{"CCI-999999", "CCI-000001"}, []string{"AC-1"}},
		{"case and space tolerant", []string{" cci-000003 "}, []string{"AC-2"}},
		{"nothing maps", []string{"CCI-999999"}, DefaultStaticAnalysisTags},
		{"no ids", nil, DefaultStaticAnalysisTags},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := table.NISTFilter(tt.ids, DefaultStaticAnalysisTags)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("NISTFilter(%v) = %v, want %v", tt.ids, got, tt.want)
			}
		})
	}
}

func TestNISTFilterDefaultsAreCopied(t *testing.T) {
	table, _ := Load(strings.NewReader(`cci: {}`))
	got := table.NISTFilter(nil, DefaultStaticAnalysisTags)
	got[0] = "mutated"
	if DefaultStaticAnalysisTags[0] == "mutated" {
		t.Fatal("defaults slice was shared with caller")
	}
}

func TestCWEFilter(t *testing.T) {
	table, err := Load(strings.NewReader(`
cwe:
  CWE-79: [SI-10]
  CWE-89: [SI-10, SI-11]
`))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	got := table.CWEFilter([]string{"79", "CWE-89"}, nil)
	want := []string{"SI-10", "SI-11"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("CWEFilter = %v, want %v", got, want)
	}

	if got := table.CWEFilter([]string{"CWE-1"}, []string{"RA-5"}); !reflect.DeepEqual(got, []string{"RA-5"}) {
		t.Errorf("expected default, got %v", got)
	}
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "table.yaml")
	if err := os.WriteFile(path, []byte("cci:\n  CCI-000100: XX-1\n"), 0644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	table, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile: %v", err)
	}
	if tag, ok := table.CCI("CCI-000100"); !ok || tag != "XX-1" {
		t.Errorf("CCI-000100 = %q, %v", tag, ok)
	}

	if _, err := LoadFile(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestLoadInvalidYAML(t *testing.T) {
	if _, err := Load(strings.NewReader("cci: [unterminated")); err == nil {
		t.Fatal("expected parse error")
	}
}
