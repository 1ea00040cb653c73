package models

// Checklist is a STIG checklist (.ckl) decoupled from its XML layout
type Checklist struct {
	Asset ChecklistAsset  `json:"asset"`
	Stigs []ChecklistStig `json:"stigs"`
}

// ChecklistAsset describes the host or target the checklist was run against
type ChecklistAsset struct {
	Role          string `json:"role"`
	AssetType     string `json:"assettype"`
	Marking       string `json:"marking,omitempty"`
	HostName      string `json:"hostname"`
	HostIP        string `json:"hostip"`
	HostMAC       string `json:"hostmac"`
	HostFQDN      string `json:"hostfqdn"`
	TargetComment string `json:"targetcomment"`
	TechArea      string `json:"techarea"`
	TargetKey     string `json:"targetkey"`
	WebOrDatabase bool   `json:"webordatabase"`
	WebDBSite     string `json:"webdbsite"`
	WebDBInstance string `json:"webdbinstance"`
	VulnIDMapping string `json:"vulnidmapping,omitempty"`
}

// ChecklistStig is one iSTIG block: header metadata plus its findings
type ChecklistStig struct {
	Header StigHeader      `json:"header"`
	Vulns  []ChecklistVuln `json:"vulns"`
}

// StigHeader holds the STIG_INFO name/value pairs
type StigHeader struct {
	Version        string `json:"version"`
	Classification string `json:"classification"`
	CustomName     string `json:"customname"`
	StigID         string `json:"stigid"`
	Description    string `json:"description"`
	FileName       string `json:"filename"`
	ReleaseInfo    string `json:"releaseinfo"`
	Title          string `json:"title"`
	UUID           string `json:"uuid"`
	Notice         string `json:"notice"`
	Source         string `json:"source"`
}

// ChecklistVuln mirrors one VULN element field for field
type ChecklistVuln struct {
	VulnNum                  string `json:"vulnNum"`
	Severity                 string `json:"severity"`
	GroupTitle               string `json:"groupTitle"`
	RuleID                   string `json:"ruleId"`
	RuleVersion              string `json:"ruleVersion"`
	RuleTitle                string `json:"ruleTitle"`
	VulnDiscuss              string `json:"vulnDiscuss"`
	IAControls               string `json:"iaControls"`
	CheckContent             string `json:"checkContent"`
	FixText                  string `json:"fixText"`
	FalsePositives           string `json:"falsePositives"`
	FalseNegatives           string `json:"falseNegatives"`
	Documentable             string `json:"documentable"`
	Mitigations              string `json:"mitigations"`
	PotentialImpact          string `json:"potentialImpact"`
	ThirdPartyTools          string `json:"thirdPartyTools"`
	MitigationControl        string `json:"mitigationControl"`
	Responsibility           string `json:"responsibility"`
	SecurityOverrideGuidance string `json:"securityOverrideGuidance"`
	CheckContentRef          string `json:"checkContentRef"`
	Weight                   string `json:"weight"`
	Class                    string `json:"class"`
	StigRef                  string `json:"stigRef"`
	TargetKey                string `json:"targetKey"`
	StigUUID                 string `json:"stigUuid"`
	LegacyID                 string `json:"legacyId"`
	CCIRef                   string `json:"cciRef"`
	Status                   string `json:"status"`
	FindingDetails           string `json:"findingDetails"`
	Comments                 string `json:"comments"`
	SeverityOverride         string `json:"severityOverride"`
	SeverityJustification    string `json:"severityJustification"`
}
