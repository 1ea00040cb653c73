// Package sarif converts SARIF 2.1.0 logs into execution records. Each run
// becomes a profile and each rule a control; every location a result points
// at becomes one failed test.
package sarif

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/ppiankov/hdfhub/internal/converter"
	"github.com/ppiankov/hdfhub/internal/mapping"
	"github.com/ppiankov/hdfhub/internal/models"
	"github.com/ppiankov/hdfhub/internal/nist"
	"github.com/ppiankov/hdfhub/internal/record"
)

// Format is the input name used in errors and detection
const Format = "sarif"

// DefaultLevel applies to results that carry no level
const DefaultLevel = "warning"

var levelImpact = map[string]float64{
	"error":   0.7,
	"warning": 0.5,
	"note":    0.3,
	"none":    0.0,
}

var cwePattern = regexp.MustCompile(`(?i)\bcwe[-_/:]?0*(\d+)\b`)

// Options controls a SARIF Converter
type Options struct {
	// Table maps CWEs to NIST tags; nil uses nist.Default()
	Table *nist.Table
}

// Converter turns SARIF logs into execution records
type Converter struct {
	table *nist.Table
}

// NewConverter creates a SARIF converter
func NewConverter(opts Options) *Converter {
	c := &Converter{table: opts.Table}
	if c.table == nil {
		c.table = nist.Default()
	}
	return c
}

// Convert decodes and converts one SARIF log
func (c *Converter) Convert(data []byte) (*models.ExecJSON, error) {
	raw, err := record.FromJSON(data)
	if err != nil {
		return nil, &converter.MalformedInputError{Format: Format, Reason: "invalid JSON", Err: err}
	}
	runs, ok := raw.Get("runs")
	if !ok || runs.Kind() != record.KindList {
		return nil, &converter.MalformedInputError{Format: Format, Reason: "missing runs array"}
	}

	return converter.New(raw, c.spec(), converter.WithCollapseDuplicates()).ToHDF()
}

func (c *Converter) spec() mapping.Node {
	return mapping.Object(
		mapping.Field("platform", mapping.Object(
			mapping.Field("name", mapping.Lit(converter.PlatformName)),
			mapping.Field("release", mapping.Lit(converter.Release)),
		)),
		mapping.Field("version", mapping.Lit(converter.Release)),
		mapping.Field("statistics", mapping.Object()),
		mapping.Field("profiles", mapping.Each("runs", mapping.Object(
			mapping.Field("name", mapping.PathOr("tool.driver.name", "SARIF")),
			mapping.Field("version", mapping.Path("$.version")),
			mapping.Field("title", mapping.Lit("Static Analysis Results Interchange Format")),
			mapping.Field("supports", mapping.Empty()),
			mapping.Field("attributes", mapping.Empty()),
			mapping.Field("groups", mapping.Empty()),
			mapping.Field("status", mapping.Lit("loaded")),
			mapping.Field("controls", mapping.Each("results", c.controlSpec())),
		))),
	)
}

func (c *Converter) controlSpec() mapping.Node {
	return mapping.Object(
		mapping.Field("id", mapping.Compute(ruleID)),
		mapping.Field("title", mapping.Apply("message.text", firstLine)),
		mapping.Field("desc", mapping.Path("message.text")),
		mapping.Field("descriptions", mapping.Empty()),
		mapping.Field("impact", mapping.ApplyOr("level", impact, levelImpact[DefaultLevel])),
		mapping.Field("tags", mapping.Object(
			mapping.Field("cwe", mapping.Compute(cweTags)),
			mapping.Field("nist", mapping.Compute(c.nistTags)),
			mapping.Field("level", mapping.PathOr("level", DefaultLevel)),
		)),
		mapping.Field("refs", mapping.Empty()),
		mapping.Field("source_location", mapping.Apply("locations[0].physicalLocation", sourceLocation)),
		mapping.Field("code", mapping.Compute(code)),
		mapping.Field("results", mapping.Fanout("locations", locationResults)),
	)
}

func ruleID(v record.Value) (any, error) {
	for _, path := range []string{"ruleId", "rule.id"} {
		if got, ok := record.Resolve(v, path); ok && got.Str() != "" {
			return got.Str(), nil
		}
	}
	if idx, ok := v.Get("ruleIndex"); ok {
		return "rule-" + idx.Str(), nil
	}
	return "unknown", nil
}

func firstLine(v record.Value) (any, error) {
	line, _, _ := strings.Cut(v.Str(), "\n")
	return strings.TrimSpace(line), nil
}

func impact(v record.Value) (any, error) {
	if got, ok := levelImpact[strings.ToLower(v.Str())]; ok {
		return got, nil
	}
	return levelImpact[DefaultLevel], nil
}

// CWEs collects CWE ids from a result's tags, taxa and message, normalized
// to "CWE-<n>" and deduplicated in first-seen order.
func CWEs(result record.Value) []string {
	var sources []string
	for _, path := range []string{"properties.tags[]", "rule.properties.tags[]", "taxa[].id"} {
		if got, ok := record.Resolve(result, path); ok {
			for _, item := range got.Items() {
				sources = append(sources, item.Str())
			}
		}
	}
	if msg, ok := record.Resolve(result, "message.text"); ok {
		sources = append(sources, msg.Str())
	}

	var out []string
	seen := map[string]bool{}
	for _, s := range sources {
		for _, m := range cwePattern.FindAllStringSubmatch(s, -1) {
			n, err := strconv.Atoi(m[1])
			if err != nil {
				continue
			}
			id := "CWE-" + strconv.Itoa(n)
			if !seen[id] {
				seen[id] = true
				out = append(out, id)
			}
		}
	}
	return out
}

func cweTags(v record.Value) (any, error) {
	return toAny(CWEs(v)), nil
}

func (c *Converter) nistTags(v record.Value) (any, error) {
	return toAny(c.table.CWEFilter(CWEs(v), nist.DefaultStaticAnalysisTags)), nil
}

func sourceLocation(v record.Value) (any, error) {
	loc := map[string]any{}
	if uri, ok := record.Resolve(v, "artifactLocation.uri"); ok {
		loc["ref"] = uri.Str()
	}
	if line, ok := record.Resolve(v, "region.startLine"); ok {
		loc["line"] = line.Interface()
	}
	return loc, nil
}

func code(v record.Value) (any, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, err
	}
	return string(data), nil
}

// locationResults emits one failed result per location. A result without
// locations still fails once, described by its message.
func locationResults(locations []record.Value, result record.Value) ([]any, error) {
	msg, _ := record.Resolve(result, "message.text")
	if len(locations) == 0 {
		return []any{failed(msg.Str())}, nil
	}

	out := make([]any, 0, len(locations))
	for _, loc := range locations {
		out = append(out, failed(describeLocation(loc)))
	}
	return out, nil
}

func describeLocation(loc record.Value) string {
	uri, _ := record.Resolve(loc, "physicalLocation.artifactLocation.uri")
	desc := "URL : " + uri.Str()
	if line, ok := record.Resolve(loc, "physicalLocation.region.startLine"); ok {
		desc += fmt.Sprintf(" LINE : %s", line.Str())
	}
	if col, ok := record.Resolve(loc, "physicalLocation.region.startColumn"); ok {
		desc += fmt.Sprintf(" COLUMN : %s", col.Str())
	}
	return desc
}

func failed(codeDesc string) map[string]any {
	return map[string]any{
		"status":     string(models.ResultFailed),
		"code_desc":  codeDesc,
		"start_time": "",
	}
}

func toAny(in []string) []any {
	out := make([]any, len(in))
	for i, s := range in {
		out[i] = s
	}
	return out
}
