package rules

import (
	"fmt"
	"regexp"
	"unicode/utf8"

	"github.com/scan-io-git/permscan/internal/source"
)

// LinePattern matches a regular expression against every line of a file.
//
// It works on raw text and therefore also fires inside comments and string
// literals. Malformed documents are still scanned.
type LinePattern struct {
	re *regexp.Regexp
}

// NewKeyValuePattern builds a case-insensitive pattern matching key, optional
// whitespace, a colon, optional whitespace and value.
func NewKeyValuePattern(key, value string) (*LinePattern, error) {
	if key == "" || value == "" {
		return nil, fmt.Errorf("key and value must not be empty")
	}
	expr := `(?i)` + regexp.QuoteMeta(key) + `\s*:\s*` + regexp.QuoteMeta(value)
	return NewLinePattern(expr)
}

// NewLinePattern compiles expr as-is.
func NewLinePattern(expr string) (*LinePattern, error) {
	re, err := regexp.Compile(expr)
	if err != nil {
		return nil, fmt.Errorf("invalid pattern %q: %w", expr, err)
	}
	return &LinePattern{re: re}, nil
}

// MustKeyValuePattern is like NewKeyValuePattern but panics on error.
func MustKeyValuePattern(key, value string) *LinePattern {
	p, err := NewKeyValuePattern(key, value)
	if err != nil {
		panic(err)
	}
	return p
}

// Kind implements Matcher.
func (p *LinePattern) Kind() string { return "text" }

// String returns the compiled expression.
func (p *LinePattern) String() string { return p.re.String() }

// Match reports the first match on each line.
func (p *LinePattern) Match(f *source.File) ([]Hit, error) {
	var hits []Hit
	for i, line := range f.Lines {
		loc := p.re.FindStringIndex(line)
		if loc == nil {
			continue
		}
		start := utf8.RuneCountInString(line[:loc[0]]) + 1
		end := start + utf8.RuneCountInString(line[loc[0]:loc[1]])
		if end == start {
			// zero-width matches still cover one column
			end++
		}
		hits = append(hits, Hit{Line: i + 1, Column: start, EndColumn: end})
	}
	return hits, nil
}
