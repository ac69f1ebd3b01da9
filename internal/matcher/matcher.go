package matcher

import (
	"errors"
	"fmt"
	"sort"

	"github.com/scan-io-git/permscan/internal/rules"
	"github.com/scan-io-git/permscan/internal/source"
	scanerrors "github.com/scan-io-git/permscan/pkg/shared/errors"
)

// RawMatch is an unnormalised rule hit inside a single file.
type RawMatch struct {
	Path      string
	URI       string
	Line      int
	Column    int
	EndColumn int
	RuleID    string
}

// RuleError is a rule that could not be applied to one file.
type RuleError struct {
	RuleID string
	Err    *scanerrors.DecodeError
}

func (e *RuleError) Error() string {
	return fmt.Sprintf("rule %q: %v", e.RuleID, e.Err)
}

func (e *RuleError) Unwrap() error {
	return e.Err
}

// Match applies every rule of catalog to f. Results are ordered by line, then by
// catalog order. A rule that cannot decode f is left out for this file and
// returned as a RuleError; the other rules still contribute their hits.
// Any other matcher error aborts the file.
func Match(f *source.File, catalog *rules.Catalog) ([]RawMatch, []*RuleError, error) {
	if f == nil {
		return nil, nil, fmt.Errorf("source file is nil")
	}

	type ordered struct {
		RawMatch
		ruleIdx int
	}
	var (
		collected []ordered
		ruleErrs  []*RuleError
	)

	for idx, rule := range catalog.Rules() {
		hits, err := rule.Matcher.Match(f)
		if err != nil {
			var decodeErr *scanerrors.DecodeError
			if errors.As(err, &decodeErr) {
				ruleErrs = append(ruleErrs, &RuleError{RuleID: rule.ID, Err: decodeErr})
				continue
			}
			return nil, nil, fmt.Errorf("rule %q: %w", rule.ID, err)
		}
		for _, h := range hits {
			collected = append(collected, ordered{
				RawMatch: RawMatch{
					Path:      f.Path,
					URI:       f.URI,
					Line:      h.Line,
					Column:    h.Column,
					EndColumn: h.EndColumn,
					RuleID:    rule.ID,
				},
				ruleIdx: idx,
			})
		}
	}

	sort.SliceStable(collected, func(i, j int) bool {
		if collected[i].Line != collected[j].Line {
			return collected[i].Line < collected[j].Line
		}
		return collected[i].ruleIdx < collected[j].ruleIdx
	})

	out := make([]RawMatch, len(collected))
	for i, c := range collected {
		out[i] = c.RawMatch
	}
	return out, ruleErrs, nil
}
