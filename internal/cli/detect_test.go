package cli

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestRunDetectSamples(t *testing.T) {
	files := []string{
		filepath.Join(samplesDir, "rhel8-single.ckl"),
		filepath.Join(samplesDir, "gosec.sarif"),
		filepath.Join(samplesDir, "prisma-scan.csv"),
	}

	var err error
	output := captureStdout(t, func() {
		err = runDetect(nil, files)
	})
	if err != nil {
		t.Fatalf("runDetect = %v", err)
	}

	for _, frag := range []string{"rhel8-single.ckl: checklist", "gosec.sarif: sarif", "prisma-scan.csv: prisma"} {
		if !strings.Contains(output, frag) {
			t.Errorf("expected output to contain %q\n%s", frag, output)
		}
	}
}

func TestRunDetectUnknown(t *testing.T) {
	path := filepath.Join(t.TempDir(), "notes.xml")
	if err := os.WriteFile(path, []byte("<notes><note/></notes>"), 0o644); err != nil {
		t.Fatal(err)
	}

	var err error
	output := captureStdout(t, func() {
		err = runDetect(nil, []string{path})
	})

	var verr *ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
	if !strings.Contains(output, "notes.xml: unknown") {
		t.Errorf("unexpected output %q", output)
	}
}

func TestRunDetectMissingFile(t *testing.T) {
	if err := runDetect(nil, []string{"/nonexistent/scan.ckl"}); err == nil {
		t.Fatal("expected error for missing file")
	}
}
