package findings

import (
	"fmt"

	"github.com/scan-io-git/permscan/internal/matcher"
	"github.com/scan-io-git/permscan/internal/rules"
)

// Location is the source region a finding points at. Lines and columns are 1-based.
type Location struct {
	URI         string `json:"uri"`
	StartLine   int    `json:"start_line"`
	StartColumn int    `json:"start_column"`
	EndLine     int    `json:"end_line"`
	EndColumn   int    `json:"end_column"`
}

// Finding is one located instance of a rule firing.
type Finding struct {
	Rule     *rules.Rule    `json:"-"`
	RuleID   string         `json:"rule_id"`
	Title    string         `json:"title"`
	Severity rules.Severity `json:"severity"`
	Message  string         `json:"message"`
	Location Location       `json:"location"`
}

// New turns a raw match into a finding. The message is derived from the rule only.
// A match that does not belong to rule or carries an impossible position is a
// programming error and panics.
func New(raw matcher.RawMatch, rule *rules.Rule) Finding {
	if rule == nil {
		panic(fmt.Sprintf("findings: nil rule for match %s:%d", raw.URI, raw.Line))
	}
	if raw.RuleID != rule.ID {
		panic(fmt.Sprintf("findings: match for rule %q paired with rule %q", raw.RuleID, rule.ID))
	}
	if raw.Line < 1 || raw.Column < 1 {
		panic(fmt.Sprintf("findings: invalid position %d:%d in %s", raw.Line, raw.Column, raw.URI))
	}

	end := raw.EndColumn
	if end <= raw.Column {
		end = raw.Column + 1
	}

	return Finding{
		Rule:     rule,
		RuleID:   rule.ID,
		Title:    rule.DisplayName(),
		Severity: rule.Severity,
		Message:  rule.RenderMessage(),
		Location: Location{
			URI:         raw.URI,
			StartLine:   raw.Line,
			StartColumn: raw.Column,
			EndLine:     raw.Line,
			EndColumn:   end,
		},
	}
}

// Normalize converts raw matches into findings, keeping their order.
func Normalize(raws []matcher.RawMatch, catalog *rules.Catalog) []Finding {
	out := make([]Finding, 0, len(raws))
	for _, raw := range raws {
		rule, ok := catalog.Get(raw.RuleID)
		if !ok {
			panic(fmt.Sprintf("findings: rule %q is not in the catalog", raw.RuleID))
		}
		out = append(out, New(raw, rule))
	}
	return out
}
