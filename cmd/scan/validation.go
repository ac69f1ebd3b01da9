package scan

import (
	"fmt"
	"os"
	"strings"
)

// validateScanArgs validates the arguments provided to the scan command.
// Value ranges are checked later against the merged configuration.
func validateScanArgs(options *RunOptionsScan, args []string) error {
	if len(args) > 1 {
		return fmt.Errorf("only one root directory can be specified, got %d: %s", len(args), strings.Join(args, " "))
	}
	if len(args) == 1 && strings.TrimSpace(args[0]) == "" {
		return fmt.Errorf("the root directory must not be empty")
	}

	if strings.TrimSpace(options.OutputPath) == "" {
		return fmt.Errorf("the 'output' flag must not be empty")
	}

	if options.SourceRoot != "" {
		info, err := os.Stat(options.SourceRoot)
		if err == nil && !info.IsDir() {
			return fmt.Errorf("the source root is not a directory: %v", options.SourceRoot)
		}
	}
	return nil
}
