package cli

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/ppiankov/hdfhub/internal/checklist"
	"github.com/ppiankov/hdfhub/internal/config"
	"github.com/ppiankov/hdfhub/internal/converter"
	"github.com/ppiankov/hdfhub/internal/logging"
	"github.com/ppiankov/hdfhub/internal/nist"
	"github.com/ppiankov/hdfhub/internal/policy"
	"github.com/ppiankov/hdfhub/internal/storage"
	"github.com/ppiankov/hdfhub/internal/validator"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

const (
	ExitOK           = 0 // Success
	ExitPolicyFail   = 1 // Failed controls exceed threshold
	ExitInvalidInput = 2 // Malformed input or invalid record
	ExitRuntimeError = 3 // I/O, permissions, or runtime error
)

var (
	// Global config instance
	cfg *config.Config

	// Shared logger, replaced once config is loaded
	logger = zerolog.Nop()

	// Set at build time through SetVersion
	buildVersion = "dev"

	// Global flags
	configFile string
	verbose    bool
	debug      bool
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "hdfhub",
	Short: "hdfhub - normalize security reports into Heimdall Data Format",
	Long: `hdfhub converts security tool exports into the Heimdall Data Format (HDF),
a single JSON execution record of profiles, controls and test results.

Supported inputs:
- DISA STIG Viewer checklists (.ckl)
- SARIF 2.1.0 static analysis results
- Prisma Cloud compliance and vulnerability CSV exports

Quick start:
  hdfhub detect scan.ckl
  hdfhub convert ./reports -o ./hdf
  hdfhub summarize ./hdf/*.json
  hdfhub validate ./hdf/scan.hdf.json`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.LoadFromFile(configFile)
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}

		// Override config with flags if provided
		if verbose {
			cfg.Verbose = true
		}
		if debug {
			cfg.Debug = true
		}

		logger = logging.New(os.Stderr, cfg.LogFormat, cfg.Verbose, cfg.Debug)

		if err := nist.Init(cfg.CCITable); err != nil {
			return fmt.Errorf("failed to load reference table: %w", err)
		}

		return nil
	},
}

// Execute runs the root command and returns its error for HandleError
func Execute() error {
	err := rootCmd.Execute()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	}
	return err
}

// SetVersion records the build version and stamps it into converted records
func SetVersion(v string) {
	if v == "" {
		return
	}
	buildVersion = v
	converter.Release = v
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "",
		"config file (default: ./hdfhub.yaml or ~/hdfhub.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false,
		"verbose output")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false,
		"debug mode (very verbose)")

	rootCmd.AddCommand(convertCmd)
	rootCmd.AddCommand(detectCmd)
	rootCmd.AddCommand(validateCmd)
	rootCmd.AddCommand(summarizeCmd)
	rootCmd.AddCommand(versionCmd)
}

// versionCmd shows version information
var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("hdfhub %s\n", buildVersion)
		fmt.Println("Security report normalization into Heimdall Data Format")
	},
}

// HandleError determines the appropriate exit code for an error
func HandleError(err error) int {
	if err == nil {
		return ExitOK
	}

	var (
		threshold *ThresholdExceededError
		violation *PolicyViolationError
		invalid   *ValidationError
		record    *validator.ValidationError
		malformed *converter.MalformedInputError
		decode    *storage.DecodeError
		unmapped  *checklist.UnmappedSeverityError
	)

	switch {
	case errors.As(err, &threshold), errors.As(err, &violation):
		return ExitPolicyFail
	case errors.As(err, &invalid),
		errors.As(err, &record),
		errors.As(err, &malformed),
		errors.As(err, &decode),
		errors.As(err, &unmapped):
		return ExitInvalidInput
	default:
		return ExitRuntimeError
	}
}

// ValidationError represents invalid user input
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

// ThresholdExceededError represents a threshold policy failure
type ThresholdExceededError struct {
	FailedCount int
	Threshold   int
}

func (e *ThresholdExceededError) Error() string {
	return fmt.Sprintf("failed control count (%d) exceeds threshold (%d)", e.FailedCount, e.Threshold)
}

// PolicyViolationError reports rules of a policy file that were broken
type PolicyViolationError struct {
	Violations []policy.Violation
}

func (e *PolicyViolationError) Error() string {
	rules := make([]string, 0, len(e.Violations))
	for _, v := range e.Violations {
		rules = append(rules, v.Rule)
	}
	return fmt.Sprintf("policy violated: %s", strings.Join(rules, ", "))
}
