package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/ppiankov/hdfhub/internal/reporter"
	"github.com/ppiankov/hdfhub/internal/storage"
	"github.com/spf13/cobra"
)

var (
	// Summarize command flags
	summarizeFormat string
)

// summarizeCmd represents the summarize command
var summarizeCmd = &cobra.Command{
	Use:   "summarize [hdf.json]...",
	Short: "Show control status counts for HDF records",
	Long: `Summarize reads HDF execution records and counts controls per profile by
status: Passed, Failed, Not Applicable, Not Reviewed and Profile Error.

Child profiles of an aggregated checklist are listed under their parent and
left out of the totals. Without arguments every record in the configured
output directory is summarized.

Example:
  hdfhub summarize
  hdfhub summarize scan.hdf.json
  hdfhub summarize ./hdf/*.json --format json`,
	RunE: runSummarize,
}

func init() {
	summarizeCmd.Flags().StringVarP(&summarizeFormat, "format", "f", "",
		"output format: text, json, or both (default from config)")
}

func runSummarize(cmd *cobra.Command, args []string) error {
	format := summarizeFormat
	if format == "" {
		format = cfg.Format
	}

	paths := args
	if len(paths) == 0 {
		var err error
		paths, err = storedRecords()
		if err != nil {
			return err
		}
		if len(paths) == 0 {
			fmt.Println("No stored records found.")
			fmt.Println("Run 'hdfhub convert <path>' to convert your first report.")
			return nil
		}
	}

	summaries := make([]reporter.Summary, 0, len(paths))
	for _, path := range paths {
		exec, err := storage.LoadFile(path)
		if err != nil {
			return err
		}
		logger.Debug().Str("file", path).Int("profiles", len(exec.Profiles)).Msg("Loaded record")
		summaries = append(summaries, reporter.Summarize(path, exec))
	}

	return printSummaries(summaries, format)
}

// storedRecords lists record files in the configured output directory
func storedRecords() ([]string, error) {
	dir, err := cfg.GetOutputPath()
	if err != nil {
		return nil, err
	}
	store := storage.NewLocal(dir)

	names, err := store.ListRecords()
	if err != nil {
		return nil, err
	}
	logger.Debug().Str("dir", dir).Int("records", len(names)).Msg("Listed stored records")

	paths := make([]string, 0, len(names))
	for _, name := range names {
		paths = append(paths, filepath.Join(store.GetStoragePath(), name))
	}
	return paths, nil
}

// printSummaries writes summaries to stdout in the given format
func printSummaries(summaries []reporter.Summary, format string) error {
	switch format {
	case "text":
		return reporter.NewTextReporter(os.Stdout).Generate(summaries)

	case "json":
		return reporter.NewJSONReporter(os.Stdout, true).GenerateSummaries(summaries)

	case "both":
		if err := reporter.NewTextReporter(os.Stdout).Generate(summaries); err != nil {
			return err
		}
		if _, err := fmt.Fprintf(os.Stdout, "\n=== JSON Output ===\n\n"); err != nil {
			return err
		}
		return reporter.NewJSONReporter(os.Stdout, true).GenerateSummaries(summaries)

	default:
		return &ValidationError{Message: fmt.Sprintf("unsupported format: %s (use text, json, or both)", format)}
	}
}
