package models

// ToolType identifies the native export format of an input file
type ToolType string

const (
	ToolChecklist ToolType = "checklist"
	ToolSARIF     ToolType = "sarif"
	ToolPrisma    ToolType = "prisma"
	ToolUnknown   ToolType = "unknown"
)

// ToolInfo contains metadata about a supported input format
type ToolInfo struct {
	Name        string
	Description string
	Encoding    string // xml, json, csv
}

// SupportedTools defines the formats hdfhub can convert
var SupportedTools = map[ToolType]ToolInfo{
	ToolChecklist: {
		Name:        "checklist",
		Description: "DISA STIG Viewer checklist (.ckl)",
		Encoding:    "xml",
	},
	ToolSARIF: {
		Name:        "sarif",
		Description: "Static Analysis Results Interchange Format 2.1.0",
		Encoding:    "json",
	},
	ToolPrisma: {
		Name:        "prisma",
		Description: "Prisma Cloud compliance/vulnerability CSV export",
		Encoding:    "csv",
	},
}

// IsSupportedTool checks if a format is explicitly supported
func IsSupportedTool(tool ToolType) bool {
	_, ok := SupportedTools[tool]
	return ok
}

// GetToolInfo returns information about a format
func GetToolInfo(tool ToolType) (ToolInfo, bool) {
	info, ok := SupportedTools[tool]
	return info, ok
}

// Conversion is the outcome of converting one input file
type Conversion struct {
	Path   string    `json:"path"`
	Tool   ToolType  `json:"tool"`
	Output *ExecJSON `json:"output"`
}
