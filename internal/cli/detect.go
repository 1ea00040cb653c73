package cli

import (
	"fmt"
	"os"

	"github.com/ppiankov/hdfhub/internal/collector"
	"github.com/ppiankov/hdfhub/internal/models"
	"github.com/spf13/cobra"
)

var detectCmd = &cobra.Command{
	Use:   "detect <file>...",
	Short: "Identify the format of input files",
	Long: `Detect inspects each file and prints the converter that would handle it.

Returns exit 2 if any file has an unrecognized format.

Example:
  hdfhub detect scan.ckl results.sarif export.csv`,
	Args: cobra.MinimumNArgs(1),
	RunE: runDetect,
}

func runDetect(cmd *cobra.Command, args []string) error {
	var unknown []string

	for _, path := range args {
		data, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("failed to read file: %w", err)
		}

		toolType, err := collector.DetectFormat(data)
		if err != nil {
			logger.Debug().Str("file", path).Err(err).Msg("Detection failed")
			toolType = models.ToolUnknown
		}

		info, ok := models.GetToolInfo(toolType)
		if !ok {
			unknown = append(unknown, path)
			fmt.Printf("%s: %s\n", path, models.ToolUnknown)
			continue
		}
		fmt.Printf("%s: %s (%s)\n", path, collector.GetToolName(toolType), info.Description)
	}

	if len(unknown) > 0 {
		return &ValidationError{Message: fmt.Sprintf("unrecognized format: %v", unknown)}
	}
	return nil
}
