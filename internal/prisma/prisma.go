// Package prisma converts Prisma Cloud vulnerability and compliance CSV
// exports into execution records, one profile per scanned host.
package prisma

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/gocarina/gocsv"
	"github.com/ppiankov/hdfhub/internal/converter"
	"github.com/ppiankov/hdfhub/internal/mapping"
	"github.com/ppiankov/hdfhub/internal/models"
	"github.com/ppiankov/hdfhub/internal/record"
)

// Format is the input name used in errors and detection
const Format = "prisma"

// Row is one line of a Prisma Cloud scan export
type Row struct {
	Hostname          string `csv:"Hostname" json:"hostname"`
	Distro            string `csv:"Distro" json:"distro"`
	CVEID             string `csv:"CVE ID" json:"cveId"`
	ComplianceID      string `csv:"Compliance ID" json:"complianceId"`
	Type              string `csv:"Type" json:"type"`
	Severity          string `csv:"Severity" json:"severity"`
	Packages          string `csv:"Packages" json:"packages"`
	SourcePackage     string `csv:"Source Package" json:"sourcePackage"`
	PackageVersion    string `csv:"Package Version" json:"packageVersion"`
	PackageLicense    string `csv:"Package License" json:"packageLicense"`
	CVSS              string `csv:"CVSS" json:"cvss"`
	FixStatus         string `csv:"Fix Status" json:"fixStatus"`
	FixDate           string `csv:"Fix Date" json:"fixDate"`
	GraceDays         string `csv:"Grace Days" json:"graceDays"`
	RiskFactors       string `csv:"Risk Factors" json:"riskFactors"`
	VulnerabilityTags string `csv:"Vulnerability Tags" json:"vulnerabilityTags"`
	Description       string `csv:"Description" json:"description"`
	Cause             string `csv:"Cause" json:"cause"`
	Containers        string `csv:"Containers" json:"containers"`
	CustomLabels      string `csv:"Custom Labels" json:"customLabels"`
	Published         string `csv:"Published" json:"published"`
	Discovered        string `csv:"Discovered" json:"discovered"`
	Binaries          string `csv:"Binaries" json:"binaries"`
	Clusters          string `csv:"Clusters" json:"clusters"`
	Namespaces        string `csv:"Namespaces" json:"namespaces"`
	Collections       string `csv:"Collections" json:"collections"`
	ImageName         string `csv:"Image Name" json:"imageName"`
	ImageID           string `csv:"Image ID" json:"imageId"`
	VulnerabilityLink string `csv:"Vulnerability Link" json:"vulnerabilityLink"`
}

// Host groups the rows of one scanned host
type Host struct {
	Hostname string `json:"hostname"`
	Rows     []Row  `json:"rows"`
}

// NISTTags applies to every Prisma finding
var NISTTags = []string{"SI-2", "RA-5"}

var severityImpact = map[string]float64{
	"critical":  0.9,
	"high":      0.7,
	"important": 0.7,
	"medium":    0.5,
	"moderate":  0.5,
	"low":       0.3,
}

var utf8BOM = []byte("\ufeff")

// RequiredColumns must appear in the header; at least one of IDColumns too
var (
	RequiredColumns = []string{"Hostname"}
	IDColumns       = []string{"CVE ID", "Compliance ID"}
)

// Converter turns Prisma Cloud CSV exports into execution records
type Converter struct{}

// NewConverter creates a Prisma converter
func NewConverter() *Converter {
	return &Converter{}
}

// Convert decodes and converts one CSV export
func (c *Converter) Convert(data []byte) (*models.ExecJSON, error) {
	hosts, err := ParseHosts(data)
	if err != nil {
		return nil, err
	}

	raw, err := record.FromStruct(map[string]any{"hosts": hosts})
	if err != nil {
		return nil, fmt.Errorf("failed to read prisma rows: %w", err)
	}
	return converter.New(raw, spec(), converter.WithCollapseDuplicates()).ToHDF()
}

// ParseHosts reads the CSV rows and groups them by Hostname, keeping the
// order in which each host first appears.
func ParseHosts(data []byte) ([]Host, error) {
	data = bytes.TrimPrefix(data, utf8BOM)

	header, err := gocsv.DefaultCSVReader(bytes.NewReader(data)).Read()
	if err != nil {
		return nil, &converter.MalformedInputError{Format: Format, Reason: "unreadable CSV header", Err: err}
	}
	if err := CheckHeader(header); err != nil {
		return nil, err
	}

	var rows []Row
	if err := gocsv.UnmarshalBytes(data, &rows); err != nil {
		return nil, &converter.MalformedInputError{Format: Format, Reason: "invalid CSV", Err: err}
	}

	hosts := []Host{}
	index := map[string]int{}
	for _, row := range rows {
		i, ok := index[row.Hostname]
		if !ok {
			i = len(hosts)
			index[row.Hostname] = i
			hosts = append(hosts, Host{Hostname: row.Hostname})
		}
		hosts[i].Rows = append(hosts[i].Rows, row)
	}
	return hosts, nil
}

// CheckHeader reports whether header looks like a Prisma export
func CheckHeader(header []string) error {
	cols := make(map[string]bool, len(header))
	for _, h := range header {
		cols[strings.TrimSpace(strings.TrimPrefix(h, "\ufeff"))] = true
	}
	for _, col := range RequiredColumns {
		if !cols[col] {
			return &converter.MalformedInputError{Format: Format, Reason: fmt.Sprintf("missing %s column", col)}
		}
	}
	for _, col := range IDColumns {
		if cols[col] {
			return nil
		}
	}
	return &converter.MalformedInputError{
		Format: Format,
		Reason: fmt.Sprintf("missing id column (one of %s)", strings.Join(IDColumns, ", ")),
	}
}

func spec() mapping.Node {
	return mapping.Object(
		mapping.Field("platform", mapping.Object(
			mapping.Field("name", mapping.Lit(converter.PlatformName)),
			mapping.Field("release", mapping.Lit(converter.Release)),
		)),
		mapping.Field("version", mapping.Lit(converter.Release)),
		mapping.Field("statistics", mapping.Object()),
		mapping.Field("profiles", mapping.Each("hosts", mapping.Object(
			mapping.Field("name", mapping.Apply("hostname", profileName)),
			mapping.Field("title", mapping.Apply("hostname", profileName)),
			mapping.Field("summary", mapping.Path("rows[0].distro")),
			mapping.Field("supports", mapping.Empty()),
			mapping.Field("attributes", mapping.Empty()),
			mapping.Field("groups", mapping.Empty()),
			mapping.Field("status", mapping.Lit("loaded")),
			mapping.Field("controls", mapping.Each("rows", controlSpec())),
		))),
	)
}

func controlSpec() mapping.Node {
	return mapping.Object(
		mapping.Field("id", mapping.Compute(controlID)),
		mapping.Field("title", mapping.Compute(title)),
		mapping.Field("desc", mapping.Path("description")),
		mapping.Field("descriptions", mapping.Empty()),
		mapping.Field("impact", mapping.Apply("severity", impact)),
		mapping.Field("tags", mapping.Object(
			mapping.Field("nist", mapping.Lit(toAny(NISTTags))),
			mapping.Field("cve", mapping.Apply("cveId", nonEmpty)),
			mapping.Field("cvss", mapping.Apply("cvss", cvss)),
			mapping.Field("severity", mapping.Apply("severity", nonEmpty)),
			mapping.Field("type", mapping.Apply("type", nonEmpty)),
			mapping.Field("fix_status", mapping.Apply("fixStatus", nonEmpty)),
			mapping.Field("risk_factors", mapping.Apply("riskFactors", nonEmpty)),
			mapping.Field("link", mapping.Apply("vulnerabilityLink", nonEmpty)),
		)),
		mapping.Field("refs", mapping.Empty()),
		mapping.Field("source_location", mapping.Object()),
		mapping.Field("code", mapping.Compute(code)),
		mapping.Field("results", mapping.Each("", mapping.Object(
			mapping.Field("status", mapping.Lit(string(models.ResultFailed))),
			mapping.Field("code_desc", mapping.Compute(codeDesc)),
			mapping.Field("message", mapping.Apply("cause", nonEmpty)),
			mapping.Field("start_time", mapping.PathOr("discovered", "")),
		))),
	)
}

func profileName(v record.Value) (any, error) {
	if h := v.Str(); h != "" {
		return "Prisma Cloud Scan Report - " + h, nil
	}
	return "Prisma Cloud Scan Report", nil
}

func controlID(v record.Value) (any, error) {
	for _, key := range []string{"complianceId", "cveId"} {
		if got, ok := v.Get(key); ok && got.Str() != "" {
			return got.Str(), nil
		}
	}
	return "unknown", nil
}

func title(v record.Value) (any, error) {
	id, _ := controlID(v)
	pkg, _ := v.Get("packages")
	if pkg.Str() == "" {
		return id, nil
	}
	return fmt.Sprintf("%s: %s", id, pkg.Str()), nil
}

func impact(v record.Value) (any, error) {
	if got, ok := severityImpact[strings.ToLower(strings.TrimSpace(v.Str()))]; ok {
		return got, nil
	}
	return 0.5, nil
}

// cvss keeps the score as a number when it parses as one
func cvss(v record.Value) (any, error) {
	if v.Str() == "" {
		return mapping.Omit, nil
	}
	if f, err := v.Float(); err == nil {
		return f, nil
	}
	return v.Str(), nil
}

func codeDesc(v record.Value) (any, error) {
	var parts []string
	for _, f := range []struct{ label, key string }{
		{"Package", "packages"},
		{"Version", "packageVersion"},
		{"Fix Status", "fixStatus"},
		{"Image", "imageName"},
	} {
		if got, ok := v.Get(f.key); ok && got.Str() != "" {
			parts = append(parts, f.label+": "+got.Str())
		}
	}
	return strings.Join(parts, "; "), nil
}

func nonEmpty(v record.Value) (any, error) {
	if s := v.Str(); s != "" {
		return s, nil
	}
	return mapping.Omit, nil
}

func code(v record.Value) (any, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, err
	}
	return string(data), nil
}

func toAny(in []string) []any {
	out := make([]any, len(in))
	for i, s := range in {
		out[i] = s
	}
	return out
}
