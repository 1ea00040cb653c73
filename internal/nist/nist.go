// Package nist holds the read-only CCI and CWE to NIST SP 800-53 reference
// tables. Tables are loaded once and never mutated afterwards, so a *Table
// is safe to share between concurrent conversions.
package nist

import (
	"bytes"
	_ "embed"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"
)

//go:embed data/reference.yaml
var embedded []byte

// DefaultStaticAnalysisTags are attached when no identifier maps to a NIST
// control
var DefaultStaticAnalysisTags = []string{"SA-11", "RA-5"}

// Table maps fine-grained identifiers to NIST control tags
type Table struct {
	cci map[string]string
	cwe map[string][]string
}

type tableFile struct {
	CCI map[string]string   `yaml:"cci"`
	CWE map[string][]string `yaml:"cwe"`
}

// Load parses a YAML reference table
func Load(r io.Reader) (*Table, error) {
	var f tableFile
	if err := yaml.NewDecoder(r).Decode(&f); err != nil {
		return nil, fmt.Errorf("failed to parse reference table: %w", err)
	}

	t := &Table{
		cci: make(map[string]string, len(f.CCI)),
		cwe: make(map[string][]string, len(f.CWE)),
	}
	for id, tag := range f.CCI {
		t.cci[normalizeID(id)] = strings.TrimSpace(tag)
	}
	for id, tags := range f.CWE {
		t.cwe[normalizeID(id)] = append([]string(nil), tags...)
	}
	return t, nil
}

// LoadFile parses a YAML reference table from disk
func LoadFile(path string) (*Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open reference table: %w", err)
	}
	defer func() { _ = f.Close() }()
	return Load(f)
}

var (
	initOnce sync.Once
	shared   *Table
	initErr  error
)

// Init loads the process-wide table, from path when non-empty and from the
// embedded subset otherwise. Only the first call has any effect.
func Init(path string) error {
	initOnce.Do(func() {
		if path != "" {
			shared, initErr = LoadFile(path)
			return
		}
		shared, initErr = Load(bytes.NewReader(embedded))
	})
	return initErr
}

var (
	embeddedOnce  sync.Once
	embeddedTable *Table
)

// Default returns the process-wide table, loading the embedded subset if
// Init has not run yet. When Init failed, for example on a bad external
// table, the embedded subset is returned instead.
func Default() *Table {
	if err := Init(""); err == nil && shared != nil {
		return shared
	}
	embeddedOnce.Do(func() {
		t, err := Load(bytes.NewReader(embedded))
		if err != nil {
			// The embedded table is compiled in; failing to parse it is a build defect.
			panic(fmt.Sprintf("nist: embedded reference table unavailable: %v", err))
		}
		embeddedTable = t
	})
	return embeddedTable
}

// CCI returns the NIST tag for a CCI identifier
func (t *Table) CCI(id string) (string, bool) {
	tag, ok := t.cci[normalizeID(id)]
	return tag, ok && tag != ""
}

// NISTFilter maps CCI identifiers to NIST tags, deduplicated in first-seen
// order. When nothing maps, defaults are returned instead.
func (t *Table) NISTFilter(ids []string, defaults []string) []string {
	var tags []string
	for _, id := range ids {
		if tag, ok := t.CCI(id); ok {
			tags = append(tags, tag)
		}
	}
	return dedupOrDefault(tags, defaults)
}

// CWEFilter maps CWE identifiers ("CWE-79" or "79") to NIST tags, with the
// same dedup and default behavior as NISTFilter.
func (t *Table) CWEFilter(ids []string, defaults []string) []string {
	var tags []string
	for _, id := range ids {
		key := normalizeID(id)
		if !strings.HasPrefix(key, "CWE-") {
			key = "CWE-" + key
		}
		tags = append(tags, t.cwe[key]...)
	}
	return dedupOrDefault(tags, defaults)
}

// Size reports how many CCI and CWE entries are loaded
func (t *Table) Size() (cci, cwe int) {
	return len(t.cci), len(t.cwe)
}

func dedupOrDefault(tags, defaults []string) []string {
	if len(tags) == 0 {
		return append([]string{}, defaults...)
	}
	seen := make(map[string]bool, len(tags))
	out := make([]string, 0, len(tags))
	for _, tag := range tags {
		if seen[tag] {
			continue
		}
		seen[tag] = true
		out = append(out, tag)
	}
	return out
}

func normalizeID(id string) string {
	return strings.ToUpper(strings.TrimSpace(id))
}
