package files

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// ExpandPath resolves paths that include a tilde (~) to the user's home directory.
func ExpandPath(path string) (string, error) {
	if strings.HasPrefix(path, "~/") {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		return filepath.Join(homeDir, path[2:]), nil
	}
	return path, nil
}

// CreateFolderIfNotExists checks if a folder exists, and if not, creates it.
func CreateFolderIfNotExists(folder string) error {
	if _, err := os.Stat(folder); os.IsNotExist(err) {
		if err := os.MkdirAll(folder, os.ModePerm); err != nil {
			return fmt.Errorf("unable to create folder %q: %w", folder, err)
		}
	} else if err != nil {
		return fmt.Errorf("unable to check folder %q: %w", folder, err)
	}
	return nil
}

// WriteFileAtomic writes data to a temporary file next to outputFile and renames it into place,
// so readers never observe a partially written document.
func WriteFileAtomic(outputFile string, data []byte) error {
	folder := filepath.Dir(outputFile)
	if err := CreateFolderIfNotExists(folder); err != nil {
		return err
	}

	tmp, err := os.CreateTemp(folder, "."+filepath.Base(outputFile)+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed creating temporary file: %w", err)
	}
	tmpName := tmp.Name()
	cleanup := func() { _ = os.Remove(tmpName) }

	datawriter := bufio.NewWriter(tmp)
	if _, err := datawriter.Write(data); err != nil {
		tmp.Close()
		cleanup()
		return fmt.Errorf("error writing data to file: %w", err)
	}
	if err := datawriter.Flush(); err != nil {
		tmp.Close()
		cleanup()
		return fmt.Errorf("error flushing data to file: %w", err)
	}
	if err := tmp.Chmod(0o644); err != nil {
		tmp.Close()
		cleanup()
		return fmt.Errorf("error setting file mode: %w", err)
	}
	if err := tmp.Close(); err != nil {
		cleanup()
		return fmt.Errorf("error closing file: %w", err)
	}
	if err := os.Rename(tmpName, outputFile); err != nil {
		cleanup()
		return fmt.Errorf("failed to move %q into place: %w", outputFile, err)
	}
	return nil
}

// DetermineFileFullPath resolves path into a file path and its folder.
// Existing directories and paths ending in a separator are treated as folders and get
// nameTemplate appended; anything else is a file path, with or without an extension.
func DetermineFileFullPath(path, nameTemplate string) (string, string, error) {
	path, err := ExpandPath(path)
	if err != nil {
		return "", "", fmt.Errorf("failed to unwrap path %q: %w", path, err)
	}

	fileInfo, err := os.Stat(path)
	if err != nil && !os.IsNotExist(err) {
		return "", "", fmt.Errorf("failed to unwrap path %q: %w", path, err)
	}

	var fullPath, folder string
	if err == nil && fileInfo.IsDir() || hasTrailingSeparator(path) {
		folder = filepath.Clean(path)
		fullPath = filepath.Join(folder, nameTemplate)
	} else {
		folder = filepath.Dir(path)
		fullPath = path
	}

	return fullPath, folder, nil
}

func hasTrailingSeparator(path string) bool {
	return path != "" && os.IsPathSeparator(path[len(path)-1])
}

// EnsureWithinRoot returns the absolute form of target, failing when it lies outside root.
func EnsureWithinRoot(root, target string) (string, error) {
	if root == "" {
		return filepath.Clean(target), nil
	}

	absRoot, err := filepath.Abs(root)
	if err != nil {
		return "", fmt.Errorf("resolve root: %w", err)
	}

	absTarget, err := filepath.Abs(target)
	if err != nil {
		return "", fmt.Errorf("resolve path %q: %w", target, err)
	}

	rel, err := filepath.Rel(absRoot, absTarget)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("path %q escapes root %q", absTarget, absRoot)
	}

	return absTarget, nil
}

// RelativeURI returns target as a forward-slash path relative to root.
// Paths outside root are returned as absolute forward-slash paths and ok is false.
func RelativeURI(root, target string) (uri string, ok bool, err error) {
	absTarget, err := filepath.Abs(target)
	if err != nil {
		return "", false, fmt.Errorf("resolve path %q: %w", target, err)
	}
	if _, err := EnsureWithinRoot(root, absTarget); err != nil {
		return filepath.ToSlash(absTarget), false, nil
	}
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return "", false, fmt.Errorf("resolve root: %w", err)
	}
	rel, err := filepath.Rel(absRoot, absTarget)
	if err != nil {
		return "", false, fmt.Errorf("relativize %q: %w", target, err)
	}
	return filepath.ToSlash(rel), true, nil
}
