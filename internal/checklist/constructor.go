// Package checklist converts STIG checklist (.ckl) exports into execution
// records. Parsing happens in two steps: XML to a generic record through
// xmlparse, then the record to a models.Checklist that no longer depends on
// the XML layout.
package checklist

import (
	"strings"

	"github.com/ppiankov/hdfhub/internal/converter"
	"github.com/ppiankov/hdfhub/internal/models"
	"github.com/ppiankov/hdfhub/internal/record"
	"github.com/ppiankov/hdfhub/internal/xmlparse"
)

// Format is the input name used in errors and detection
const Format = "checklist"

// MalformedChecklistError reports a checklist missing a required section
type MalformedChecklistError = converter.MalformedInputError

// Binding is the XML shape of a checklist export
var Binding = xmlparse.Binding{
	Format: Format,
	Root:   "CHECKLIST",
	Lists: []string{
		"CHECKLIST.STIGS.iSTIG",
		"CHECKLIST.STIGS.iSTIG.STIG_INFO.SI_DATA",
		"CHECKLIST.STIGS.iSTIG.VULN",
		"CHECKLIST.STIGS.iSTIG.VULN.STIG_DATA",
	},
}

// Parse decodes a checklist export into its domain object
func Parse(data []byte) (*models.Checklist, error) {
	raw, err := xmlparse.Parse(data, Binding)
	if err != nil {
		return nil, err
	}
	return Build(raw)
}

// Build constructs the domain object from a parsed checklist record. Single
// elements where lists are expected are tolerated, as are namespaced keys.
func Build(raw record.Value) (*models.Checklist, error) {
	root, ok := field(raw, "CHECKLIST")
	if !ok || root.Kind() != record.KindMap {
		return nil, malformed("missing CHECKLIST root")
	}

	assetRec, ok := field(root, "ASSET")
	if !ok {
		return nil, malformed("missing ASSET section")
	}

	var blocks []record.Value
	if stigs, ok := field(root, "STIGS"); ok {
		if istig, ok := field(stigs, "iSTIG"); ok {
			blocks = listOf(istig)
		}
	}
	if len(blocks) == 0 {
		return nil, malformed("no STIG blocks")
	}

	cl := &models.Checklist{
		Asset: buildAsset(assetRec),
		Stigs: make([]models.ChecklistStig, 0, len(blocks)),
	}
	for _, block := range blocks {
		cl.Stigs = append(cl.Stigs, buildStig(block))
	}
	return cl, nil
}

func malformed(reason string) *MalformedChecklistError {
	return &MalformedChecklistError{Format: Format, Reason: reason}
}

// field looks up key, ignoring any namespace prefix on the record's keys
func field(v record.Value, key string) (record.Value, bool) {
	if got, ok := v.Get(key); ok {
		return got, true
	}
	for _, k := range v.Keys() {
		if xmlparse.LocalName(k) == key {
			return v.Get(k)
		}
	}
	return record.Value{}, false
}

func text(v record.Value, key string) string {
	got, ok := field(v, key)
	if !ok {
		return ""
	}
	if got.Kind() == record.KindMap {
		if inner, ok := got.Get("#text"); ok {
			return inner.Str()
		}
		return ""
	}
	return got.Str()
}

func listOf(v record.Value) []record.Value {
	switch v.Kind() {
	case record.KindList:
		return v.Items()
	case record.KindNull:
		return nil
	default:
		return []record.Value{v}
	}
}

func buildAsset(v record.Value) models.ChecklistAsset {
	return models.ChecklistAsset{
		Role:          text(v, "ROLE"),
		AssetType:     text(v, "ASSET_TYPE"),
		Marking:       text(v, "MARKING"),
		HostName:      text(v, "HOST_NAME"),
		HostIP:        text(v, "HOST_IP"),
		HostMAC:       text(v, "HOST_MAC"),
		HostFQDN:      text(v, "HOST_FQDN"),
		TargetComment: text(v, "TARGET_COMMENT"),
		TechArea:      text(v, "TECH_AREA"),
		TargetKey:     text(v, "TARGET_KEY"),
		WebOrDatabase: strings.EqualFold(strings.TrimSpace(text(v, "WEB_OR_DATABASE")), "true"),
		WebDBSite:     text(v, "WEB_DB_SITE"),
		WebDBInstance: text(v, "WEB_DB_INSTANCE"),
		VulnIDMapping: text(v, "VULN_ID_MAPPING"),
	}
}

func buildStig(block record.Value) models.ChecklistStig {
	stig := models.ChecklistStig{Vulns: []models.ChecklistVuln{}}

	if info, ok := field(block, "STIG_INFO"); ok {
		if data, ok := field(info, "SI_DATA"); ok {
			for _, pair := range listOf(data) {
				setHeader(&stig.Header, text(pair, "SID_NAME"), text(pair, "SID_DATA"))
			}
		}
	}

	if vulns, ok := field(block, "VULN"); ok {
		for _, v := range listOf(vulns) {
			stig.Vulns = append(stig.Vulns, buildVuln(v))
		}
	}
	return stig
}

func setHeader(h *models.StigHeader, name, value string) {
	var dst *string
	switch name {
	case "version":
		dst = &h.Version
	case "classification":
		dst = &h.Classification
	case "customname":
		dst = &h.CustomName
	case "stigid":
		dst = &h.StigID
	case "description":
		dst = &h.Description
	case "filename":
		dst = &h.FileName
	case "releaseinfo":
		dst = &h.ReleaseInfo
	case "title":
		dst = &h.Title
	case "uuid":
		dst = &h.UUID
	case "notice":
		dst = &h.Notice
	case "source":
		dst = &h.Source
	default:
		return
	}
	*dst = value
}

// vulnAttributes maps STIG_DATA attribute names onto vuln fields
var vulnAttributes = map[string]func(*models.ChecklistVuln) *string{
	"Vuln_Num":                   func(v *models.ChecklistVuln) *string { return &v.VulnNum },
	"Severity":                   func(v *models.ChecklistVuln) *string { return &v.Severity },
	"Group_Title":                func(v *models.ChecklistVuln) *string { return &v.GroupTitle },
	"Rule_ID":                    func(v *models.ChecklistVuln) *string { return &v.RuleID },
	"Rule_Ver":                   func(v *models.ChecklistVuln) *string { return &v.RuleVersion },
	"Rule_Title":                 func(v *models.ChecklistVuln) *string { return &v.RuleTitle },
	"Vuln_Discuss":               func(v *models.ChecklistVuln) *string { return &v.VulnDiscuss },
	"IA_Controls":                func(v *models.ChecklistVuln) *string { return &v.IAControls },
	"Check_Content":              func(v *models.ChecklistVuln) *string { return &v.CheckContent },
	"Fix_Text":                   func(v *models.ChecklistVuln) *string { return &v.FixText },
	"False_Positives":            func(v *models.ChecklistVuln) *string { return &v.FalsePositives },
	"False_Negatives":            func(v *models.ChecklistVuln) *string { return &v.FalseNegatives },
	"Documentable":               func(v *models.ChecklistVuln) *string { return &v.Documentable },
	"Mitigations":                func(v *models.ChecklistVuln) *string { return &v.Mitigations },
	"Potential_Impact":           func(v *models.ChecklistVuln) *string { return &v.PotentialImpact },
	"Third_Party_Tools":          func(v *models.ChecklistVuln) *string { return &v.ThirdPartyTools },
	"Mitigation_Control":         func(v *models.ChecklistVuln) *string { return &v.MitigationControl },
	"Responsibility":             func(v *models.ChecklistVuln) *string { return &v.Responsibility },
	"Security_Override_Guidance": func(v *models.ChecklistVuln) *string { return &v.SecurityOverrideGuidance },
	"Check_Content_Ref":          func(v *models.ChecklistVuln) *string { return &v.CheckContentRef },
	"Weight":                     func(v *models.ChecklistVuln) *string { return &v.Weight },
	"Class":                      func(v *models.ChecklistVuln) *string { return &v.Class },
	"STIGRef":                    func(v *models.ChecklistVuln) *string { return &v.StigRef },
	"TargetKey":                  func(v *models.ChecklistVuln) *string { return &v.TargetKey },
	"STIG_UUID":                  func(v *models.ChecklistVuln) *string { return &v.StigUUID },
	"LEGACY_ID":                  func(v *models.ChecklistVuln) *string { return &v.LegacyID },
	"CCI_REF":                    func(v *models.ChecklistVuln) *string { return &v.CCIRef },
}

// joinedAttributes may repeat within one vuln; values are joined with "; "
var joinedAttributes = map[string]bool{
	"CCI_REF":   true,
	"LEGACY_ID": true,
}

func buildVuln(v record.Value) models.ChecklistVuln {
	var vuln models.ChecklistVuln

	if data, ok := field(v, "STIG_DATA"); ok {
		for _, pair := range listOf(data) {
			name := text(pair, "VULN_ATTRIBUTE")
			ref, ok := vulnAttributes[name]
			if !ok {
				continue
			}
			dst := ref(&vuln)
			value := text(pair, "ATTRIBUTE_DATA")
			if joinedAttributes[name] && *dst != "" {
				if value != "" {
					*dst += "; " + value
				}
				continue
			}
			*dst = value
		}
	}

	vuln.Status = text(v, "STATUS")
	vuln.FindingDetails = text(v, "FINDING_DETAILS")
	vuln.Comments = text(v, "COMMENTS")
	vuln.SeverityOverride = text(v, "SEVERITY_OVERRIDE")
	vuln.SeverityJustification = text(v, "SEVERITY_JUSTIFICATION")
	return vuln
}
