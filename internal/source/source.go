package source

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"unicode/utf8"

	scanerrors "github.com/scan-io-git/permscan/pkg/shared/errors"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// File is a decoded workflow definition. It is not modified after Load returns.
type File struct {
	// Path is the filesystem path the file was read from.
	Path string
	// URI is the artifact location reported for findings in this file.
	URI string
	// Lines holds the file contents split on newlines, without line terminators.
	Lines []string
}

// Content joins the lines back into a single document.
func (f *File) Content() string {
	return strings.Join(f.Lines, "\n")
}

// Load reads and decodes the file at path.
func Load(path, uri string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		switch {
		case errors.Is(err, fs.ErrPermission):
			return nil, scanerrors.NewPermissionError(path, err)
		case errors.Is(err, fs.ErrNotExist):
			return nil, scanerrors.NewNotFoundError(path, err)
		default:
			return nil, fmt.Errorf("failed to read %q: %w", path, err)
		}
	}
	return Decode(path, uri, data)
}

// Decode turns raw bytes into a File. Content that is not UTF-8 text yields a DecodeError.
func Decode(path, uri string, data []byte) (*File, error) {
	data = bytes.TrimPrefix(data, utf8BOM)

	if i := bytes.IndexByte(data, 0); i >= 0 {
		return nil, scanerrors.NewDecodeError(path, fmt.Sprintf("NUL byte at offset %d", i), nil)
	}
	if !utf8.Valid(data) {
		return nil, scanerrors.NewDecodeError(path, "content is not valid UTF-8", nil)
	}

	var lines []string
	if len(data) > 0 {
		lines = strings.Split(string(data), "\n")
		// A trailing newline terminates the last line rather than starting a new one.
		if lines[len(lines)-1] == "" {
			lines = lines[:len(lines)-1]
		}
		for i, line := range lines {
			lines[i] = strings.TrimSuffix(line, "\r")
		}
	}

	return &File{Path: path, URI: uri, Lines: lines}, nil
}
