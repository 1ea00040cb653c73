package cli

import (
	"context"
	"fmt"

	"github.com/ppiankov/hdfhub/internal/collector"
	"github.com/ppiankov/hdfhub/internal/models"
	"github.com/ppiankov/hdfhub/internal/nist"
	"github.com/ppiankov/hdfhub/internal/policy"
	"github.com/ppiankov/hdfhub/internal/reporter"
	"github.com/ppiankov/hdfhub/internal/storage"
	"github.com/spf13/cobra"
)

var (
	// Convert command flags
	convertOutputDir      string
	convertFormat         string
	convertThreshold      int
	convertStrictSeverity bool
	convertWorkers        int
	convertPolicy         string
)

// convertCmd represents the convert command
var convertCmd = &cobra.Command{
	Use:   "convert <path>...",
	Short: "Convert security reports into HDF execution records",
	Long: `Convert reads checklist, SARIF and Prisma Cloud exports and writes one HDF
execution record per input file.

The command will:
1. Expand directories into input files
2. Detect each file's format
3. Convert files concurrently
4. Write <name>.hdf.json records to the output directory
5. Print a control status summary in the requested format
6. Enforce the policy file and failed-control threshold, if any

Example:
  hdfhub convert scan.ckl
  hdfhub convert ./reports -o ./hdf --format text
  hdfhub convert results.sarif --fail-threshold 10
  hdfhub convert scan.ckl --strict-severity`,
	Args: cobra.MinimumNArgs(1),
	RunE: runConvert,
}

func init() {
	convertCmd.Flags().StringVarP(&convertOutputDir, "output-dir", "o", "",
		"directory for converted records (default from config)")
	convertCmd.Flags().StringVarP(&convertFormat, "format", "f", "",
		"summary format: text, json, or both (default from config)")
	convertCmd.Flags().IntVar(&convertThreshold, "fail-threshold", -1,
		"exit with code 1 if failed controls exceed this threshold (default from config)")
	convertCmd.Flags().BoolVar(&convertStrictSeverity, "strict-severity", false,
		"fail on checklist severities with no impact mapping")
	convertCmd.Flags().IntVar(&convertWorkers, "workers", 0,
		"files converted concurrently (default from config)")
	convertCmd.Flags().StringVar(&convertPolicy, "policy", "",
		"policy file (default: nearest .hdfhub-policy.yaml)")
}

func runConvert(cmd *cobra.Command, args []string) error {
	// Apply config defaults if flags not set
	format := convertFormat
	if format == "" {
		format = cfg.Format
	}
	threshold := convertThreshold
	if threshold == -1 {
		threshold = cfg.FailThreshold
	}
	workers := convertWorkers
	if workers <= 0 {
		workers = cfg.Workers
	}
	runCfg := *cfg
	if convertOutputDir != "" {
		runCfg.OutputDir = convertOutputDir
	}
	fallback := cfg.FallbackImpact

	logger.Info().Strs("paths", args).Msg("Converting reports")
	logger.Debug().
		Str("format", format).
		Int("threshold", threshold).
		Int("workers", workers).
		Bool("strict_severity", cfg.StrictSeverity || convertStrictSeverity).
		Msg("Config")

	c := collector.New(collector.Config{
		MaxConcurrency: workers,
		Timeout:        cfg.Timeout,
		Logger:         logger,
		Convert: collector.ConvertOptions{
			Logger:         logger,
			Table:          nist.Default(),
			StrictSeverity: cfg.StrictSeverity || convertStrictSeverity,
			FallbackImpact: &fallback,
		},
	})

	conversions, convErr := c.ConvertPaths(context.Background(), args)
	if len(conversions) == 0 {
		if convErr != nil {
			return convErr
		}
		return &ValidationError{Message: "no reports converted"}
	}

	outPath, err := runCfg.GetOutputPath()
	if err != nil {
		return err
	}
	store := storage.NewLocal(outPath)

	summaries := make([]reporter.Summary, 0, len(conversions))
	failed := 0
	for _, conv := range conversions {
		target, err := store.SaveRecord(conv)
		if err != nil {
			return err
		}
		logger.Info().Str("file", conv.Path).Str("output", target).Msg("Wrote record")

		s := reporter.Summarize(conv.Path, conv.Output)
		failed += s.Totals.Failed
		summaries = append(summaries, s)
	}

	if err := printSummaries(summaries, format); err != nil {
		return err
	}

	// Per-file failures take precedence over the threshold check
	if convErr != nil {
		return convErr
	}

	if err := enforcePolicy(conversions); err != nil {
		return err
	}

	if threshold > 0 && failed > threshold {
		logger.Error().Int("failed", failed).Int("threshold", threshold).Msg("Failed controls exceed threshold")
		return &ThresholdExceededError{
			FailedCount: failed,
			Threshold:   threshold,
		}
	}

	return nil
}

// enforcePolicy evaluates the policy file named by --policy or found by
// searching upward from the working directory.
func enforcePolicy(conversions []models.Conversion) error {
	policyPath := convertPolicy
	if policyPath == "" {
		policyPath = policy.FindPolicyFile(".")
	}
	if policyPath == "" {
		return nil
	}
	logger.Info().Str("policy", policyPath).Msg("Found policy file")

	pol, err := policy.LoadFromFile(policyPath)
	if err != nil {
		return err
	}
	if pol == nil {
		return fmt.Errorf("policy file not found: %s", policyPath)
	}

	result := pol.Evaluate(conversions)
	if result.Pass {
		logger.Info().Msg("Policy check passed")
		return nil
	}

	for _, v := range result.Violations {
		logger.Error().Str("rule", v.Rule).Msg(v.Message)
	}
	return &PolicyViolationError{Violations: result.Violations}
}
