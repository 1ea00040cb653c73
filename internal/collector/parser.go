package collector

import (
	"fmt"

	"github.com/ppiankov/hdfhub/internal/checklist"
	"github.com/ppiankov/hdfhub/internal/models"
	"github.com/ppiankov/hdfhub/internal/nist"
	"github.com/ppiankov/hdfhub/internal/prisma"
	"github.com/ppiankov/hdfhub/internal/sarif"
	"github.com/rs/zerolog"
)

// ConvertOptions are passed through to the format converters
type ConvertOptions struct {
	Logger zerolog.Logger

	// Table maps CCI and CWE ids to NIST tags; nil uses nist.Default()
	Table *nist.Table

	StrictSeverity bool
	FallbackImpact *float64
}

// ConvertReport converts data of the given format into an execution record.
// Each call builds its own converter, so concurrent calls share no state.
func ConvertReport(data []byte, toolType models.ToolType, opts ConvertOptions) (*models.ExecJSON, error) {
	switch toolType {
	case models.ToolChecklist:
		return checklist.NewConverter(checklist.Options{
			Logger:         opts.Logger,
			Table:          opts.Table,
			StrictSeverity: opts.StrictSeverity,
			FallbackImpact: opts.FallbackImpact,
		}).Convert(data)
	case models.ToolSARIF:
		return sarif.NewConverter(sarif.Options{Table: opts.Table}).Convert(data)
	case models.ToolPrisma:
		return prisma.NewConverter().Convert(data)
	default:
		return nil, fmt.Errorf("no converter for input format '%s'", toolType)
	}
}
