package matcher

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/scan-io-git/permscan/internal/rules"
	"github.com/scan-io-git/permscan/internal/source"
	scanerrors "github.com/scan-io-git/permscan/pkg/shared/errors"
)

const workflow = `name: release
permissions:
  contents: write
  id-token: write
jobs:
  publish:
    permissions: { id-token: write, contents: write }
`

func testCatalog(t *testing.T, extra ...*rules.Rule) *rules.Catalog {
	t.Helper()
	c, err := rules.NewCatalog(append([]*rules.Rule{rules.IDTokenWrite()}, extra...)...)
	require.NoError(t, err)
	return c
}

func contentsWrite() *rules.Rule {
	return &rules.Rule{
		ID:       "acme/contents-write",
		Severity: rules.SeverityWarning,
		Message:  "contents write",
		Matcher:  rules.MustKeyValuePattern("contents", "write"),
	}
}

func TestMatchOrdersByLineThenCatalog(t *testing.T) {
	f, err := source.Decode("/repo/.github/workflows/release.yml", ".github/workflows/release.yml", []byte(workflow))
	require.NoError(t, err)

	got, ruleErrs, err := Match(f, testCatalog(t, contentsWrite()))
	require.NoError(t, err)
	assert.Empty(t, ruleErrs)

	want := []RawMatch{
		{Line: 3, Column: 3, EndColumn: 18, RuleID: "acme/contents-write"},
		{Line: 4, Column: 3, EndColumn: 18, RuleID: rules.IDTokenWriteRuleID},
		{Line: 7, Column: 20, EndColumn: 35, RuleID: rules.IDTokenWriteRuleID},
		{Line: 7, Column: 37, EndColumn: 52, RuleID: "acme/contents-write"},
	}
	require.Len(t, got, len(want))
	for i := range want {
		want[i].Path = f.Path
		want[i].URI = f.URI
		assert.Equal(t, want[i], got[i])
	}
}

func TestMatchNoHits(t *testing.T) {
	f, err := source.Decode("ci.yml", "ci.yml", []byte("on: push\npermissions: read-all\n"))
	require.NoError(t, err)

	got, ruleErrs, err := Match(f, testCatalog(t))
	require.NoError(t, err)
	assert.Empty(t, got)
	assert.Empty(t, ruleErrs)
}

func TestMatchStructuralFailureSkipsOnlyThatRule(t *testing.T) {
	structural := &rules.Rule{
		ID:       "team/contents-write",
		Severity: rules.SeverityWarning,
		Message:  "structural",
		Matcher:  rules.NewKeyValueNode("contents", "write"),
	}
	f, err := source.Decode("broken.yml", "broken.yml", []byte("permissions:\n  id-token: write\n  bad: [unclosed\n"))
	require.NoError(t, err)

	got, ruleErrs, err := Match(f, testCatalog(t, structural))
	require.NoError(t, err)

	require.Len(t, got, 1)
	assert.Equal(t, RawMatch{
		Path:      "broken.yml",
		URI:       "broken.yml",
		Line:      2,
		Column:    3,
		EndColumn: 18,
		RuleID:    rules.IDTokenWriteRuleID,
	}, got[0])

	require.Len(t, ruleErrs, 1)
	assert.Equal(t, "team/contents-write", ruleErrs[0].RuleID)
	assert.Equal(t, "invalid YAML document", ruleErrs[0].Err.Reason)
	var decodeErr *scanerrors.DecodeError
	assert.True(t, errors.As(ruleErrs[0], &decodeErr))
}

type failingMatcher struct{}

func (failingMatcher) Match(*source.File) ([]rules.Hit, error) {
	return nil, errors.New("matcher exploded")
}

func (failingMatcher) Kind() string { return "failing" }

func TestMatchOtherErrorsAbortFile(t *testing.T) {
	broken := &rules.Rule{
		ID:       "acme/broken",
		Severity: rules.SeverityNote,
		Message:  "broken",
		Matcher:  failingMatcher{},
	}
	f, err := source.Decode("ci.yml", "ci.yml", []byte("id-token: write\n"))
	require.NoError(t, err)

	got, _, err := Match(f, testCatalog(t, broken))
	assert.Nil(t, got)
	assert.ErrorContains(t, err, "acme/broken")
	assert.ErrorContains(t, err, "matcher exploded")
}
