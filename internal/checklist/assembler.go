package checklist

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/ppiankov/hdfhub/internal/converter"
	"github.com/ppiankov/hdfhub/internal/mapping"
	"github.com/ppiankov/hdfhub/internal/models"
	"github.com/ppiankov/hdfhub/internal/nist"
	"github.com/ppiankov/hdfhub/internal/record"
	"github.com/rs/zerolog"
)

// DefaultFallbackImpact is used for unmapped severities unless configured
const DefaultFallbackImpact = 0.5

// DefaultParentName names the aggregate profile when the asset has no host name
const DefaultParentName = "Checklist"

// Options controls a checklist Converter
type Options struct {
	Logger zerolog.Logger

	// Table maps CCIs to NIST tags; nil uses nist.Default()
	Table *nist.Table

	// StrictSeverity fails conversion on an unmapped severity instead of
	// falling back.
	StrictSeverity bool

	// FallbackImpact overrides DefaultFallbackImpact when set
	FallbackImpact *float64
}

// Converter turns checklists into execution records
type Converter struct {
	opts     Options
	table    *nist.Table
	fallback float64
}

// NewConverter creates a checklist converter
func NewConverter(opts Options) *Converter {
	c := &Converter{opts: opts, table: opts.Table, fallback: DefaultFallbackImpact}
	if c.table == nil {
		c.table = nist.Default()
	}
	if opts.FallbackImpact != nil {
		c.fallback = *opts.FallbackImpact
	}
	return c
}

// Convert parses a .ckl export and converts it
func (c *Converter) Convert(data []byte) (*models.ExecJSON, error) {
	cl, err := Parse(data)
	if err != nil {
		return nil, err
	}
	return c.ToHDF(cl)
}

// ToHDF converts a checklist domain object. A checklist with more than one
// STIG gains a parent profile that depends on one profile per STIG.
func (c *Converter) ToHDF(cl *models.Checklist) (*models.ExecJSON, error) {
	raw, err := record.FromStruct(cl)
	if err != nil {
		return nil, fmt.Errorf("failed to read checklist: %w", err)
	}

	parentName := cl.Asset.HostName
	if strings.TrimSpace(parentName) == "" {
		parentName = DefaultParentName
	}

	base := converter.New(raw, c.spec(), converter.WithPostProcess(func(exec *models.ExecJSON) error {
		nameUnnamedProfiles(exec.Profiles)
		exec.Profiles = AggregateProfiles(exec.Profiles, parentName)
		return nil
	}))
	return base.ToHDF()
}

func (c *Converter) spec() mapping.Node {
	return mapping.Object(
		mapping.Field("platform", mapping.Object(
			mapping.Field("name", mapping.Lit(converter.PlatformName)),
			mapping.Field("release", mapping.Lit(converter.Release)),
			mapping.Field("target_id", mapping.Apply("asset.hostname", nonEmpty)),
		)),
		mapping.Field("version", mapping.Lit(converter.Release)),
		mapping.Field("statistics", mapping.Object()),
		mapping.Field("profiles", mapping.Each("stigs", mapping.Object(
			mapping.Field("name", mapping.Compute(profileName)),
			mapping.Field("version", mapping.Path("header.version")),
			mapping.Field("title", mapping.Path("header.title")),
			mapping.Field("summary", mapping.Path("header.description")),
			mapping.Field("license", mapping.Path("header.notice")),
			mapping.Field("supports", mapping.Empty()),
			mapping.Field("attributes", mapping.Empty()),
			mapping.Field("groups", mapping.Empty()),
			mapping.Field("status", mapping.Lit("loaded")),
			mapping.Field("controls", mapping.Each("vulns", c.controlSpec())),
		))),
		mapping.Field("passthrough", mapping.Compute(passthrough)),
	)
}

func (c *Converter) controlSpec() mapping.Node {
	return mapping.Object(
		mapping.Field("id", mapping.Path("vulnNum")),
		mapping.Field("title", mapping.Path("ruleTitle")),
		mapping.Field("desc", mapping.Path("vulnDiscuss")),
		mapping.Field("descriptions", mapping.Compute(descriptions)),
		mapping.Field("impact", mapping.Compute(c.impact)),
		mapping.Field("refs", mapping.Empty()),
		mapping.Field("source_location", mapping.Object()),
		mapping.Field("tags", mapping.Object(
			mapping.Field("gtitle", mapping.Path("groupTitle")),
			mapping.Field("gid", mapping.Path("vulnNum")),
			mapping.Field("rid", mapping.Path("ruleId")),
			mapping.Field("stig_id", mapping.Path("ruleVersion")),
			mapping.Field("cci", mapping.ApplyOr("cciRef", splitCCI, []any{})),
			mapping.Field("nist", mapping.ApplyOr("cciRef", c.nistTags, stringsToAny(nist.DefaultStaticAnalysisTags))),
			mapping.Field("severity", mapping.Apply("severity", lower)),
			mapping.Field("weight", mapping.Apply("weight", nonEmpty)),
			mapping.Field("legacy_id", mapping.Apply("legacyId", nonEmpty)),
			mapping.Field("ia_controls", mapping.Apply("iaControls", nonEmpty)),
			mapping.Field("false_positives", mapping.Apply("falsePositives", nonEmpty)),
			mapping.Field("false_negatives", mapping.Apply("falseNegatives", nonEmpty)),
			mapping.Field("documentable", mapping.Apply("documentable", nonEmpty)),
			mapping.Field("mitigations", mapping.Apply("mitigations", nonEmpty)),
			mapping.Field("potential_impact", mapping.Apply("potentialImpact", nonEmpty)),
			mapping.Field("third_party_tools", mapping.Apply("thirdPartyTools", nonEmpty)),
			mapping.Field("mitigation_control", mapping.Apply("mitigationControl", nonEmpty)),
			mapping.Field("responsibility", mapping.Apply("responsibility", nonEmpty)),
			mapping.Field("security_override_guidance", mapping.Apply("securityOverrideGuidance", nonEmpty)),
			mapping.Field("check_content_ref", mapping.Apply("checkContentRef", nonEmpty)),
			mapping.Field("stig_ref", mapping.Apply("stigRef", nonEmpty)),
			mapping.Field("stig_uuid", mapping.Apply("stigUuid", nonEmpty)),
			mapping.Field("severity_override", mapping.Apply("severityOverride", nonEmpty)),
			mapping.Field("severity_justification", mapping.Apply("severityJustification", nonEmpty)),
		)),
		mapping.Field("code", mapping.Compute(code)),
		mapping.Field("results", mapping.Each("", mapping.Object(
			mapping.Field("status", mapping.Apply("status", status)),
			mapping.Field("code_desc", mapping.PathOr("findingDetails", "")),
			mapping.Field("message", mapping.Apply("comments", nonEmpty)),
			mapping.Field("start_time", mapping.Lit("")),
		)).WithPost(splitResults)),
	)
}

func (c *Converter) impact(v record.Value) (any, error) {
	var vuln models.ChecklistVuln
	if err := converter.Decode(v.Interface(), &vuln); err != nil {
		return nil, err
	}

	impact, ok := TransformImpact(vuln)
	if ok {
		return impact, nil
	}

	severity := vuln.Severity
	if strings.TrimSpace(vuln.SeverityOverride) != "" {
		severity = vuln.SeverityOverride
	}
	if c.opts.StrictSeverity {
		return nil, &UnmappedSeverityError{VulnNum: vuln.VulnNum, Severity: severity}
	}

	c.opts.Logger.Warn().
		Str("vuln", vuln.VulnNum).
		Str("severity", severity).
		Float64("impact", c.fallback).
		Msg("Unmapped severity, using fallback impact")
	return c.fallback, nil
}

func (c *Converter) nistTags(v record.Value) (any, error) {
	return stringsToAny(c.table.NISTFilter(SplitCCIRef(v.Str()), nist.DefaultStaticAnalysisTags)), nil
}

func splitCCI(v record.Value) (any, error) {
	return stringsToAny(SplitCCIRef(v.Str())), nil
}

func status(v record.Value) (any, error) {
	return string(GetStatus(v.Str())), nil
}

func lower(v record.Value) (any, error) {
	return strings.ToLower(v.Str()), nil
}

func nonEmpty(v record.Value) (any, error) {
	if s := v.Str(); s != "" {
		return s, nil
	}
	return mapping.Omit, nil
}

func profileName(v record.Value) (any, error) {
	for _, path := range []string{"header.stigid", "header.title", "header.filename"} {
		if got, ok := record.Resolve(v, path); ok && got.Str() != "" {
			return got.Str(), nil
		}
	}
	return mapping.Omit, nil
}

// nameUnnamedProfiles names STIGs that carry no stigid, title or filename
// after their position, so sibling names stay distinct.
func nameUnnamedProfiles(profiles []models.Profile) {
	for i := range profiles {
		if profiles[i].Name == "" {
			profiles[i].Name = fmt.Sprintf("stig_%d", i)
		}
	}
}

func descriptions(v record.Value) (any, error) {
	out := []any{}
	for _, d := range []struct{ label, path string }{
		{"check", "checkContent"},
		{"fix", "fixText"},
	} {
		if got, ok := v.Get(d.path); ok && got.Str() != "" {
			out = append(out, map[string]any{"label": d.label, "data": got.Str()})
		}
	}
	return out, nil
}

// code keeps the whole vuln as indented JSON so nothing is lost
func code(v record.Value) (any, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, err
	}
	return string(data), nil
}

// splitResults replaces the single mapped result with the results encoded
// in the vuln's finding details.
func splitResults(out []any, current record.Value) ([]any, error) {
	if len(out) != 1 {
		return out, nil
	}
	var parent models.Result
	if err := converter.Decode(out[0], &parent); err != nil {
		return nil, err
	}

	details, _ := current.Get("findingDetails")
	results := ParseFindingDetails(parent, details.Str())

	split := make([]any, len(results))
	for i, r := range results {
		split[i] = resultMap(r)
	}
	return split, nil
}

func resultMap(r models.Result) map[string]any {
	m := map[string]any{
		"status":     string(r.Status),
		"code_desc":  r.CodeDesc,
		"start_time": r.StartTime,
	}
	if r.Message != nil {
		m["message"] = *r.Message
	}
	if r.RunTime != nil {
		m["run_time"] = *r.RunTime
	}
	return m
}

func passthrough(v record.Value) (any, error) {
	cl := map[string]any{}
	if asset, ok := v.Get("asset"); ok {
		cl["asset"] = asset.Interface()
	}
	headers := []any{}
	if stigs, ok := record.Resolve(v, "stigs[].header"); ok {
		for _, h := range stigs.Items() {
			headers = append(headers, map[string]any{"header": h.Interface()})
		}
	}
	cl["stigs"] = headers
	return map[string]any{"checklist": cl}, nil
}

func stringsToAny(in []string) []any {
	out := make([]any, len(in))
	for i, s := range in {
		out[i] = s
	}
	return out
}

// AggregateProfiles adds a parent profile when there is more than one STIG
// profile. The parent comes first, depends on every child by name and
// carries all of their controls in order. Children are returned as new
// values with ParentProfile set; the input slice is not modified. Hashes
// are left for the caller to recompute.
func AggregateProfiles(profiles []models.Profile, parentName string) []models.Profile {
	if len(profiles) < 2 {
		return profiles
	}

	parent := models.Profile{
		Name:       parentName,
		Title:      parentName,
		Summary:    fmt.Sprintf("Aggregate of %d STIG profiles", len(profiles)),
		Supports:   []map[string]any{},
		Attributes: []map[string]any{},
		Groups:     []models.Group{},
		Depends:    make([]models.Dependency, 0, len(profiles)),
		Status:     "loaded",
	}

	total := 0
	for _, p := range profiles {
		total += len(p.Controls)
	}
	parent.Controls = make([]models.Control, 0, total)

	out := make([]models.Profile, 0, len(profiles)+1)
	out = append(out, models.Profile{})
	for _, p := range profiles {
		child := p
		child.ParentProfile = parentName
		child.Controls = append([]models.Control(nil), p.Controls...)
		if child.Controls == nil {
			child.Controls = []models.Control{}
		}

		parent.Depends = append(parent.Depends, models.Dependency{Name: p.Name})
		parent.Controls = append(parent.Controls, p.Controls...)
		out = append(out, child)
	}
	out[0] = parent
	return out
}
