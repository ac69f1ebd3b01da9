package sarif

import (
	"fmt"
	"io"

	"github.com/scan-io-git/permscan/pkg/shared/files"
)

// StdoutPath selects standard output as the report destination.
const StdoutPath = "-"

// DefaultFileName is used when the output path names a directory.
const DefaultFileName = "results.sarif"

// WriteFile stores data at outputPath and returns the path written.
// StdoutPath streams to stdout, directories receive DefaultFileName, and files are
// replaced atomically so a failed run never leaves a truncated report behind.
func WriteFile(outputPath string, data []byte, stdout io.Writer) (string, error) {
	if outputPath == StdoutPath {
		if _, err := stdout.Write(data); err != nil {
			return "", fmt.Errorf("failed to write report to stdout: %w", err)
		}
		return StdoutPath, nil
	}

	fullPath, _, err := files.DetermineFileFullPath(outputPath, DefaultFileName)
	if err != nil {
		return "", fmt.Errorf("failed to resolve output path: %w", err)
	}
	if err := files.WriteFileAtomic(fullPath, data); err != nil {
		return "", fmt.Errorf("failed to write report %q: %w", fullPath, err)
	}
	return fullPath, nil
}
