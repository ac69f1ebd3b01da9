package sarif

import (
	"bytes"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"

	gosarif "github.com/owenrumney/go-sarif/v2/sarif"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/scan-io-git/permscan/internal/findings"
	"github.com/scan-io-git/permscan/internal/matcher"
	"github.com/scan-io-git/permscan/internal/rules"
	scanerrors "github.com/scan-io-git/permscan/pkg/shared/errors"
)

func contentsWrite() *rules.Rule {
	return &rules.Rule{
		ID:       "acme/contents-write",
		Name:     "contents: write detected",
		Severity: rules.SeverityWarning,
		Message:  "contents write",
		Matcher:  rules.MustKeyValuePattern("contents", "write"),
	}
}

func testReport(t *testing.T) *Report {
	t.Helper()
	idToken, contents := rules.IDTokenWrite(), contentsWrite()
	return &Report{
		Tool:  ToolMetadata{Name: "permscan", Version: "1.2.3", InformationURI: "https://github.com/scan-io-git/permscan"},
		Rules: []*rules.Rule{idToken, contents},
		Findings: []findings.Finding{
			findings.New(matcher.RawMatch{URI: ".github/workflows/a.yml", Line: 10, Column: 7, EndColumn: 22, RuleID: idToken.ID}, idToken),
			findings.New(matcher.RawMatch{URI: ".github/workflows/b.yml", Line: 3, Column: 3, EndColumn: 18, RuleID: contents.ID}, contents),
		},
		Notifications: []Notification{{Message: "skipped bad.yml: not valid UTF-8", URI: ".github/workflows/bad.yml"}},
	}
}

func decode(t *testing.T, data []byte) map[string]interface{} {
	t.Helper()
	var doc map[string]interface{}
	require.NoError(t, json.Unmarshal(data, &doc))
	return doc
}

func firstRun(t *testing.T, doc map[string]interface{}) map[string]interface{} {
	t.Helper()
	runs, ok := doc["runs"].([]interface{})
	require.True(t, ok)
	require.Len(t, runs, 1)
	return runs[0].(map[string]interface{})
}

func TestEncodeEmptyReport(t *testing.T) {
	data, err := Encode(&Report{
		Tool:  ToolMetadata{Name: "permscan", Version: "dev"},
		Rules: []*rules.Rule{rules.IDTokenWrite()},
	})
	require.NoError(t, err)
	assert.True(t, bytes.HasSuffix(data, []byte("}\n")))

	doc := decode(t, data)
	assert.Equal(t, "2.1.0", doc["version"])
	assert.Contains(t, doc["$schema"], "sarif-schema-2.1.0.json")

	run := firstRun(t, doc)
	results, ok := run["results"].([]interface{})
	require.True(t, ok, "results must be an array, not null")
	assert.Empty(t, results)
	assert.Equal(t, ColumnKind, run["columnKind"])

	driver := run["tool"].(map[string]interface{})["driver"].(map[string]interface{})
	assert.Equal(t, "permscan", driver["name"])
	assert.Len(t, driver["rules"], 1)

	invocations := run["invocations"].([]interface{})
	require.Len(t, invocations, 1)
	assert.Equal(t, true, invocations[0].(map[string]interface{})["executionSuccessful"])

	_, err = gosarif.FromBytes(data)
	assert.NoError(t, err)
}

func TestEncodeNoRules(t *testing.T) {
	data, err := Encode(&Report{Tool: ToolMetadata{Name: "permscan"}})
	require.NoError(t, err)

	driver := firstRun(t, decode(t, data))["tool"].(map[string]interface{})["driver"].(map[string]interface{})
	rulesList, ok := driver["rules"].([]interface{})
	require.True(t, ok)
	assert.Empty(t, rulesList)
}

func TestEncodeIsDeterministic(t *testing.T) {
	first, err := Encode(testReport(t))
	require.NoError(t, err)
	second, err := Encode(testReport(t))
	require.NoError(t, err)
	assert.Equal(t, string(first), string(second))
}

func TestBuildResultsAndCatalog(t *testing.T) {
	doc, err := Build(testReport(t))
	require.NoError(t, err)
	require.Len(t, doc.Runs, 1)
	run := doc.Runs[0]

	require.Len(t, run.Tool.Driver.Rules, 2)
	idRule := run.Tool.Driver.Rules[0]
	assert.Equal(t, rules.IDTokenWriteRuleID, idRule.ID)
	assert.Equal(t, "id-token: write permission detected", *idRule.Name)
	assert.Equal(t, "error", idRule.DefaultConfiguration.Level)
	assert.NotNil(t, idRule.HelpURI)
	assert.Equal(t, []string{"security", "github-actions"}, idRule.Properties["tags"])
	assert.Equal(t, "warning", run.Tool.Driver.Rules[1].DefaultConfiguration.Level)

	require.Len(t, run.Results, 2)
	first := run.Results[0]
	assert.Equal(t, rules.IDTokenWriteRuleID, *first.RuleID)
	assert.Equal(t, uint(0), *first.RuleIndex)
	assert.Equal(t, "error", *first.Level)
	assert.Equal(t, "Workflow uses 'id-token: write' permission which allows requesting OIDC tokens.", *first.Message.Text)
	require.Len(t, first.Locations, 1)
	pl := first.Locations[0].PhysicalLocation
	assert.Equal(t, ".github/workflows/a.yml", *pl.ArtifactLocation.URI)
	assert.Equal(t, 10, *pl.Region.StartLine)
	assert.Equal(t, 7, *pl.Region.StartColumn)
	assert.Equal(t, 10, *pl.Region.EndLine)
	assert.Equal(t, 22, *pl.Region.EndColumn)
	assert.Equal(t, ResultGUID(rules.IDTokenWriteRuleID, findings.Location{URI: ".github/workflows/a.yml", StartLine: 10, StartColumn: 7}), *first.Guid)

	assert.Equal(t, uint(1), *run.Results[1].RuleIndex)

	require.Len(t, run.Invocations, 1)
	notes := run.Invocations[0].ToolExecutionNotifications
	require.Len(t, notes, 1)
	assert.Equal(t, "warning", notes[0].Level)
	assert.Equal(t, ".github/workflows/bad.yml", *notes[0].Locations[0].PhysicalLocation.ArtifactLocation.URI)

	assert.Empty(t, run.VersionControlProvenance)
}

func TestBuildProvenance(t *testing.T) {
	r := testReport(t)
	r.Provenance = &Provenance{RepositoryURI: "https://github.com/acme/app", RevisionID: "abc123", Branch: "main", RevisionTag: "v1.2.0"}

	doc, err := Build(r)
	require.NoError(t, err)
	require.Len(t, doc.Runs[0].VersionControlProvenance, 1)
	vcs := doc.Runs[0].VersionControlProvenance[0]
	assert.Equal(t, "https://github.com/acme/app", *vcs.RepositoryURI)
	assert.Equal(t, "abc123", *vcs.RevisionID)
	assert.Equal(t, "main", *vcs.Branch)
	assert.Equal(t, "v1.2.0", *vcs.RevisionTag)
}

func TestBuildInvariantViolations(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(r *Report)
		reason string
	}{
		{name: "empty uri", mutate: func(r *Report) { r.Findings[0].Location.URI = "" }, reason: "no artifact uri"},
		{name: "zero line", mutate: func(r *Report) { r.Findings[0].Location.StartLine = 0 }, reason: "invalid start position"},
		{name: "empty region", mutate: func(r *Report) { r.Findings[0].Location.EndColumn = 7 }, reason: "does not follow start column"},
		{name: "unknown rule", mutate: func(r *Report) { r.Findings[1].RuleID = "other/rule" }, reason: "not in the catalog"},
		{name: "duplicate rule", mutate: func(r *Report) { r.Rules = append(r.Rules, rules.IDTokenWrite()) }, reason: "listed twice"},
		{name: "missing tool", mutate: func(r *Report) { r.Tool.Name = "" }, reason: "tool name is empty"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := testReport(t)
			tt.mutate(r)
			_, err := Encode(r)
			var serErr *scanerrors.SerializationError
			require.True(t, errors.As(err, &serErr), "got %v", err)
			assert.ErrorContains(t, err, tt.reason)
		})
	}
}

func TestResultGUID(t *testing.T) {
	loc := findings.Location{URI: "a.yml", StartLine: 1, StartColumn: 1}
	a := ResultGUID("r/one", loc)
	assert.Equal(t, a, ResultGUID("r/one", loc))
	assert.NotEqual(t, a, ResultGUID("r/two", loc))
	loc.StartColumn = 2
	assert.NotEqual(t, a, ResultGUID("r/one", loc))
}

func TestCollectSeverityInfo(t *testing.T) {
	info := CollectSeverityInfo(testReport(t).Findings)
	assert.Equal(t, map[string]int{"error": 1, "warning": 1, "note": 0, "total": 2}, info)
}

func TestWriteFile(t *testing.T) {
	data := []byte("{}\n")

	var stdout bytes.Buffer
	path, err := WriteFile(StdoutPath, data, &stdout)
	require.NoError(t, err)
	assert.Equal(t, StdoutPath, path)
	assert.Equal(t, "{}\n", stdout.String())

	dir := t.TempDir()
	path, err = WriteFile(dir, data, nil)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, DefaultFileName), path)

	target := filepath.Join(dir, "reports", "permscan.sarif")
	path, err = WriteFile(target, data, nil)
	require.NoError(t, err)
	assert.Equal(t, target, path)
	written, err := os.ReadFile(target)
	require.NoError(t, err)
	assert.Equal(t, data, written)

	bare := filepath.Join(dir, "report")
	path, err = WriteFile(bare, data, nil)
	require.NoError(t, err)
	assert.Equal(t, bare, path)
	info, err := os.Stat(bare)
	require.NoError(t, err)
	assert.False(t, info.IsDir())
}
