package storage

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/ppiankov/hdfhub/internal/models"
)

func sampleConversion(path string, tool models.ToolType) models.Conversion {
	return models.Conversion{
		Path: path,
		Tool: tool,
		Output: &models.ExecJSON{
			Platform: models.Platform{Name: "hdfhub", Release: "dev"},
			Profiles: []models.Profile{{
				Name:     "scan",
				Controls: []models.Control{{ID: "C-1", Impact: 0.5}},
			}},
		},
	}
}

func TestNewLocal(t *testing.T) {
	s := NewLocal("/tmp/test")
	if s.GetStoragePath() != "/tmp/test" {
		t.Errorf("expected /tmp/test, got %s", s.GetStoragePath())
	}
}

func TestEnsureDirectoryExists(t *testing.T) {
	baseDir := filepath.Join(t.TempDir(), "nested", "hdf")
	s := NewLocal(baseDir)

	if err := s.EnsureDirectoryExists(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := os.Stat(baseDir); err != nil {
		t.Fatalf("expected directory to exist: %v", err)
	}
}

func TestSaveAndLoadRecord(t *testing.T) {
	s := NewLocal(filepath.Join(t.TempDir(), "out"))

	path, err := s.SaveRecord(sampleConversion("reports/web01.ckl", models.ToolChecklist))
	if err != nil {
		t.Fatalf("SaveRecord: %v", err)
	}
	if filepath.Base(path) != "web01.hdf.json" {
		t.Errorf("unexpected path %s", path)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasSuffix(string(data), "}\n") || !strings.Contains(string(data), "\n  \"platform\"") {
		t.Error("expected indented JSON with trailing newline")
	}

	loaded, err := s.LoadRecord("web01.hdf.json")
	if err != nil {
		t.Fatalf("LoadRecord: %v", err)
	}
	if len(loaded.Profiles) != 1 || loaded.Profiles[0].Controls[0].ID != "C-1" {
		t.Errorf("unexpected record: %+v", loaded)
	}
}

func TestSaveRecordNamesDoNotCollide(t *testing.T) {
	s := NewLocal(t.TempDir())

	convs := []models.Conversion{
		sampleConversion("a/scan.ckl", models.ToolChecklist),
		sampleConversion("b/scan.csv", models.ToolPrisma),
		sampleConversion("c/scan.csv", models.ToolPrisma),
		sampleConversion("results.sarif.json", models.ToolSARIF),
	}
	var got []string
	for _, c := range convs {
		path, err := s.SaveRecord(c)
		if err != nil {
			t.Fatalf("SaveRecord: %v", err)
		}
		got = append(got, filepath.Base(path))
	}

	want := []string{"scan.hdf.json", "scan.prisma.hdf.json", "scan.prisma-2.hdf.json", "results.sarif.hdf.json"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("record names (-want +got):\n%s", diff)
	}
}

func TestListRecords(t *testing.T) {
	dir := t.TempDir()
	s := NewLocal(dir)

	for _, p := range []string{"z.ckl", "a.sarif"} {
		if _, err := s.SaveRecord(sampleConversion(p, models.ToolChecklist)); err != nil {
			t.Fatal(err)
		}
	}
	// Non-record files are ignored
	if err := os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("x"), 0644); err != nil {
		t.Fatal(err)
	}
	if err := os.Mkdir(filepath.Join(dir, "sub.hdf.json"), 0755); err != nil {
		t.Fatal(err)
	}

	names, err := s.ListRecords()
	if err != nil {
		t.Fatalf("ListRecords: %v", err)
	}
	if diff := cmp.Diff([]string{"a.hdf.json", "z.hdf.json"}, names); diff != "" {
		t.Errorf("ListRecords (-want +got):\n%s", diff)
	}
}

func TestListRecordsMissingDirectory(t *testing.T) {
	s := NewLocal(filepath.Join(t.TempDir(), "missing"))
	names, err := s.ListRecords()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(names) != 0 {
		t.Errorf("expected no records, got %v", names)
	}
}

func TestLoadFileErrors(t *testing.T) {
	if _, err := LoadFile(filepath.Join(t.TempDir(), "nope.hdf.json")); err == nil || !strings.Contains(err.Error(), "record not found") {
		t.Errorf("expected not found error, got %v", err)
	}

	bad := filepath.Join(t.TempDir(), "bad.hdf.json")
	if err := os.WriteFile(bad, []byte("{broken"), 0644); err != nil {
		t.Fatal(err)
	}
	_, err := LoadFile(bad)
	var decodeErr *DecodeError
	if !errors.As(err, &decodeErr) || decodeErr.Path != bad {
		t.Errorf("expected DecodeError, got %v", err)
	}
}

func TestStorageInterface(t *testing.T) {
	var _ Storage = NewLocal(t.TempDir())
}
