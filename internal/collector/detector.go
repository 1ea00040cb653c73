package collector

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/antchfx/xmlquery"
	"github.com/gocarina/gocsv"
	"github.com/ppiankov/hdfhub/internal/models"
	"github.com/ppiankov/hdfhub/internal/prisma"
)

var utf8BOM = []byte("\ufeff")

// DetectFormat identifies which export format data is in.
// It probes by leading byte:
// 1. '<' is parsed as XML and checked for a CHECKLIST root
// 2. '{' is parsed as JSON and checked for a SARIF runs array
// 3. anything else is read as a CSV header and checked for Prisma columns
func DetectFormat(data []byte) (models.ToolType, error) {
	trimmed := bytes.TrimSpace(bytes.TrimPrefix(data, utf8BOM))
	if len(trimmed) == 0 {
		return models.ToolUnknown, fmt.Errorf("empty input")
	}

	switch trimmed[0] {
	case '<':
		return detectXML(trimmed)
	case '{':
		return detectJSON(trimmed)
	default:
		return detectCSV(trimmed)
	}
}

func detectXML(data []byte) (models.ToolType, error) {
	doc, err := xmlquery.Parse(bytes.NewReader(data))
	if err != nil {
		return models.ToolUnknown, fmt.Errorf("failed to parse XML: %w", err)
	}

	if xmlquery.FindOne(doc, "/*[local-name()='CHECKLIST']") != nil {
		return models.ToolChecklist, nil
	}

	root := "unknown"
	if el := xmlquery.FindOne(doc, "/*"); el != nil {
		root = el.Data
	}
	return models.ToolUnknown, fmt.Errorf("unrecognized XML document with root <%s>", root)
}

func detectJSON(data []byte) (models.ToolType, error) {
	var probe struct {
		Schema  string          `json:"$schema"`
		Version string          `json:"version"`
		Runs    json.RawMessage `json:"runs"`
	}
	if err := json.Unmarshal(data, &probe); err != nil {
		return models.ToolUnknown, fmt.Errorf("failed to parse JSON: %w", err)
	}

	if len(probe.Runs) > 0 && probe.Runs[0] == '[' {
		if strings.Contains(strings.ToLower(probe.Schema), "sarif") || strings.HasPrefix(probe.Version, "2.") {
			return models.ToolSARIF, nil
		}
	}

	return models.ToolUnknown, fmt.Errorf("unable to detect format from JSON structure")
}

func detectCSV(data []byte) (models.ToolType, error) {
	header, err := gocsv.DefaultCSVReader(bytes.NewReader(data)).Read()
	if err != nil {
		return models.ToolUnknown, fmt.Errorf("failed to read CSV header: %w", err)
	}
	if err := prisma.CheckHeader(header); err != nil {
		return models.ToolUnknown, fmt.Errorf("unrecognized CSV header: %w", err)
	}
	return models.ToolPrisma, nil
}

// ValidateToolType checks if a detected format is supported
func ValidateToolType(toolType models.ToolType) error {
	if toolType == models.ToolUnknown {
		return fmt.Errorf("unknown input format")
	}

	if !models.IsSupportedTool(toolType) {
		return fmt.Errorf("input format '%s' is not supported", toolType)
	}

	return nil
}

// GetToolName returns the human-readable name for a format
func GetToolName(toolType models.ToolType) string {
	if info, ok := models.GetToolInfo(toolType); ok {
		return info.Name
	}
	return string(toolType)
}
