package files

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDetermineFileFullPath(t *testing.T) {
	type testCase struct {
		name         string
		inputPath    string
		nameTemplate string
		expectFile   string
		expectFolder string
		setup        func(t *testing.T) (inputPath, expectFile, expectFolder string)
	}

	tmpDir := t.TempDir()

	tests := []testCase{
		{
			name:         "Directory path with name template",
			inputPath:    tmpDir,
			nameTemplate: "results.sarif",
			expectFile:   filepath.Join(tmpDir, "results.sarif"),
			expectFolder: tmpDir,
		},
		{
			name:         "File path with extension",
			inputPath:    filepath.Join(tmpDir, "report.sarif"),
			nameTemplate: "ignored.txt",
			expectFile:   filepath.Join(tmpDir, "report.sarif"),
			expectFolder: tmpDir,
			setup: func(t *testing.T) (string, string, string) {
				f := filepath.Join(tmpDir, "report.sarif")
				_ = os.WriteFile(f, []byte("test"), 0644)
				return f, f, tmpDir
			},
		},
		{
			name:         "Path with no extension, treat as file",
			inputPath:    filepath.Join(tmpDir, "report"),
			nameTemplate: "results.sarif",
			expectFile:   filepath.Join(tmpDir, "report"),
			expectFolder: tmpDir,
		},
		{
			name:         "Path with trailing separator, treat as folder",
			inputPath:    filepath.Join(tmpDir, "output_folder") + string(filepath.Separator),
			nameTemplate: "results.sarif",
			expectFile:   filepath.Join(tmpDir, "output_folder", "results.sarif"),
			expectFolder: filepath.Join(tmpDir, "output_folder"),
		},
		{
			name:         "Non-existent file with extension",
			inputPath:    filepath.Join(tmpDir, "nonexistent.sarif"),
			nameTemplate: "ignored.txt",
			expectFile:   filepath.Join(tmpDir, "nonexistent.sarif"),
			expectFolder: tmpDir,
		},
		{
			name:         "Existing folder without extension",
			nameTemplate: "results.sarif",
			setup: func(t *testing.T) (string, string, string) {
				dir := filepath.Join(tmpDir, "reports")
				require.NoError(t, os.MkdirAll(dir, 0o755))
				return dir, filepath.Join(dir, "results.sarif"), dir
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			actualPath := tt.inputPath
			expectFile := tt.expectFile
			expectFolder := tt.expectFolder

			if tt.setup != nil {
				actualPath, expectFile, expectFolder = tt.setup(t)
			}

			filePath, folderPath, err := DetermineFileFullPath(actualPath, tt.nameTemplate)
			if err != nil {
				t.Fatalf("Unexpected error: %v", err)
			}
			if filePath != expectFile {
				t.Errorf("Expected file path %s, got %s", expectFile, filePath)
			}
			if folderPath != expectFolder {
				t.Errorf("Expected folder path %s, got %s", expectFolder, folderPath)
			}
		})
	}
}

func TestWriteFileAtomic(t *testing.T) {
	dir := t.TempDir()
	target := filepath.Join(dir, "nested", "results.sarif")

	require.NoError(t, WriteFileAtomic(target, []byte("first")))
	require.NoError(t, WriteFileAtomic(target, []byte("second")))

	data, err := os.ReadFile(target)
	require.NoError(t, err)
	assert.Equal(t, "second", string(data))

	entries, err := os.ReadDir(filepath.Dir(target))
	require.NoError(t, err)
	assert.Len(t, entries, 1, "temporary files must not be left behind")
}

func TestEnsureWithinRoot(t *testing.T) {
	root := t.TempDir()

	got, err := EnsureWithinRoot(root, filepath.Join(root, "a", "b.yml"))
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(root, "a", "b.yml"), got)

	_, err = EnsureWithinRoot(root, filepath.Join(root, "..", "other.yml"))
	assert.ErrorContains(t, err, "escapes root")

	got, err = EnsureWithinRoot(root, filepath.Join(root, "..file.yml"))
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(root, "..file.yml"), got)
}

func TestRelativeURI(t *testing.T) {
	root := t.TempDir()

	uri, ok, err := RelativeURI(root, filepath.Join(root, ".github", "workflows", "ci.yml"))
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, ".github/workflows/ci.yml", uri)

	outside := filepath.Join(filepath.Dir(root), "elsewhere.yml")
	uri, ok, err = RelativeURI(root, outside)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, filepath.ToSlash(outside), uri)
}
