package cli

import (
	"fmt"
	"os"

	"github.com/ppiankov/hdfhub/internal/validator"
	"github.com/spf13/cobra"
)

var validateCmd = &cobra.Command{
	Use:   "validate <hdf.json>",
	Short: "Validate an HDF execution record",
	Long: `Validate checks that an HDF execution record is internally consistent:
profile names, sha256 digests, unique control ids, impact range, result
statuses and parent profile references.

Returns exit 0 if valid, exit 2 if invalid with details on stderr.

Example:
  hdfhub validate scan.hdf.json`,
	Args: cobra.ExactArgs(1),
	RunE: runValidate,
}

func runValidate(cmd *cobra.Command, args []string) error {
	filePath := args[0]

	data, err := os.ReadFile(filePath)
	if err != nil {
		return fmt.Errorf("failed to read file: %w", err)
	}

	v := validator.New()
	exec, err := v.ValidateJSON(data)
	if err != nil {
		fmt.Fprintf(os.Stderr, "INVALID: %v\n", err)
		return err
	}

	fmt.Printf("VALID: %d profiles\n", len(exec.Profiles))
	return nil
}
