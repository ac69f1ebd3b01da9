package rules

import (
	"fmt"
	"strings"

	"github.com/scan-io-git/permscan/internal/source"
)

// Severity is the default reporting level of a rule.
type Severity string

const (
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
	SeverityNote    Severity = "note"
)

// ParseSeverity converts a case-insensitive level name into a Severity.
func ParseSeverity(s string) (Severity, error) {
	switch sev := Severity(strings.ToLower(strings.TrimSpace(s))); sev {
	case SeverityError, SeverityWarning, SeverityNote:
		return sev, nil
	default:
		return "", fmt.Errorf("unknown severity %q: must be one of error, warning, note", s)
	}
}

// Valid reports whether s is one of the known severities.
func (s Severity) Valid() bool {
	_, err := ParseSeverity(string(s))
	return err == nil
}

// Hit is a single position where a matcher fired. Line and columns are 1-based,
// columns are counted in Unicode code points and EndColumn is exclusive.
type Hit struct {
	Line      int
	Column    int
	EndColumn int
}

// Matcher is the detection predicate of a rule.
// Implementations must be safe for concurrent use by multiple goroutines.
type Matcher interface {
	// Match returns the hits for f ordered by line, at most one per line.
	Match(f *source.File) ([]Hit, error)
	// Kind names the matching strategy, e.g. "text" or "yaml".
	Kind() string
}

// ConstructPlaceholder is replaced with Rule.Construct when a message is rendered.
const ConstructPlaceholder = "{construct}"

// Rule is a named, severity-tagged detection predicate.
type Rule struct {
	// ID is a stable, namespaced identifier such as "github-actions/id-token-write".
	ID               string
	Name             string
	ShortDescription string
	FullDescription  string
	Severity         Severity
	Tags             []string
	HelpURI          string
	// Construct is the literal source construct the rule looks for, e.g. "id-token: write".
	Construct string
	// Message is the finding text and may reference ConstructPlaceholder.
	Message string
	Matcher Matcher
}

// Validate checks the fields every catalog entry needs.
func (r *Rule) Validate() error {
	if r == nil {
		return fmt.Errorf("rule is nil")
	}
	if strings.TrimSpace(r.ID) == "" {
		return fmt.Errorf("rule id must not be empty")
	}
	if !r.Severity.Valid() {
		return fmt.Errorf("rule %q: unknown severity %q", r.ID, r.Severity)
	}
	if r.Matcher == nil {
		return fmt.Errorf("rule %q: matcher is not set", r.ID)
	}
	if strings.TrimSpace(r.Message) == "" {
		return fmt.Errorf("rule %q: message must not be empty", r.ID)
	}
	return nil
}

// RenderMessage returns the finding message with the construct substituted.
func (r *Rule) RenderMessage() string {
	return strings.ReplaceAll(r.Message, ConstructPlaceholder, r.Construct)
}

// DisplayName returns Name, falling back to ID.
func (r *Rule) DisplayName() string {
	if r.Name != "" {
		return r.Name
	}
	return r.ID
}
