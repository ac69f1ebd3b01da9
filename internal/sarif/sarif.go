package sarif

import (
	"bytes"
	"fmt"
	"strconv"

	"github.com/google/uuid"
	gosarif "github.com/owenrumney/go-sarif/v2/sarif"

	"github.com/scan-io-git/permscan/internal/findings"
	"github.com/scan-io-git/permscan/internal/rules"
	scanerrors "github.com/scan-io-git/permscan/pkg/shared/errors"
)

// ColumnKind is the column unit used by every region in the report.
const ColumnKind = "unicodeCodePoints"

// resultNamespace seeds the name-based result GUIDs.
var resultNamespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("https://github.com/scan-io-git/permscan/results"))

// ToolMetadata describes the driver section of the run.
type ToolMetadata struct {
	Name           string
	Version        string
	InformationURI string
}

// Notification is a tool execution message, such as a skipped file.
type Notification struct {
	Level   string
	Message string
	URI     string
}

// Provenance identifies the revision that was scanned.
type Provenance struct {
	RepositoryURI string
	RevisionID    string
	RevisionTag   string
	Branch        string
}

// Report is everything a SARIF document is built from.
type Report struct {
	Tool          ToolMetadata
	Rules         []*rules.Rule
	Findings      []findings.Finding
	Notifications []Notification
	Provenance    *Provenance
}

// Build converts r into a SARIF 2.1.0 log with a single run.
// Every configured rule is listed in the driver, whether it fired or not.
func Build(r *Report) (*gosarif.Report, error) {
	if r == nil {
		return nil, scanerrors.NewSerializationError("report is nil", nil)
	}
	if r.Tool.Name == "" {
		return nil, scanerrors.NewSerializationError("tool name is empty", nil)
	}

	doc, err := gosarif.New(gosarif.Version210)
	if err != nil {
		return nil, scanerrors.NewSerializationError("unable to create SARIF log", err)
	}

	driver := gosarif.NewDriver(r.Tool.Name)
	if r.Tool.Version != "" {
		driver.WithVersion(r.Tool.Version).WithSemanticVersion(r.Tool.Version)
	}
	if r.Tool.InformationURI != "" {
		driver.WithInformationURI(r.Tool.InformationURI)
	}

	ruleIndex := make(map[string]int, len(r.Rules))
	for _, rule := range r.Rules {
		if rule == nil || rule.ID == "" {
			return nil, scanerrors.NewSerializationError("rule catalog contains a rule without id", nil)
		}
		if _, dup := ruleIndex[rule.ID]; dup {
			return nil, scanerrors.NewSerializationError(fmt.Sprintf("rule %q is listed twice", rule.ID), nil)
		}
		ruleIndex[rule.ID] = len(driver.Rules)
		driver.AddRule(buildRule(rule))
	}

	run := gosarif.NewRun(*gosarif.NewTool(driver))
	run.WithColumnKind(ColumnKind)

	for i, f := range r.Findings {
		idx, ok := ruleIndex[f.RuleID]
		if !ok {
			return nil, scanerrors.NewSerializationError(
				fmt.Sprintf("finding %d references rule %q which is not in the catalog", i, f.RuleID), nil)
		}
		if err := validateLocation(f.Location); err != nil {
			return nil, scanerrors.NewSerializationError(fmt.Sprintf("finding %d (%s)", i, f.RuleID), err)
		}
		run.AddResult(buildResult(f, idx))
	}

	invocation := gosarif.NewInvocation().WithExecutionSuccess(true)
	if len(r.Notifications) > 0 {
		notes := make([]*gosarif.Notification, 0, len(r.Notifications))
		for _, n := range r.Notifications {
			notes = append(notes, buildNotification(n))
		}
		invocation.WithToolExecutionNotifications(notes)
	}
	run.AddInvocations(invocation)

	if p := r.Provenance; p != nil && p.RepositoryURI != "" {
		vcs := gosarif.NewVersionControlDetails().WithRepositoryURI(p.RepositoryURI)
		if p.RevisionID != "" {
			vcs.WithRevisionID(p.RevisionID)
		}
		if p.Branch != "" {
			vcs.WithBranch(p.Branch)
		}
		if p.RevisionTag != "" {
			vcs.WithRevisionTag(p.RevisionTag)
		}
		run.AddVersionControlProvenance(vcs)
	}

	doc.AddRun(run)
	return doc, nil
}

// Encode builds r and renders it as indented JSON terminated by a newline.
// Identical input always yields identical bytes.
func Encode(r *Report) ([]byte, error) {
	doc, err := Build(r)
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	if err := doc.PrettyWrite(&buf); err != nil {
		return nil, scanerrors.NewSerializationError("unable to marshal SARIF log", err)
	}
	buf.WriteByte('\n')
	return buf.Bytes(), nil
}

// ResultGUID returns a stable identifier for a finding position.
func ResultGUID(ruleID string, loc findings.Location) string {
	name := ruleID + "\x00" + loc.URI + "\x00" + strconv.Itoa(loc.StartLine) + ":" + strconv.Itoa(loc.StartColumn)
	return uuid.NewSHA1(resultNamespace, []byte(name)).String()
}

// CollectSeverityInfo counts findings per level plus a total.
func CollectSeverityInfo(fs []findings.Finding) map[string]int {
	info := map[string]int{
		string(rules.SeverityError):   0,
		string(rules.SeverityWarning): 0,
		string(rules.SeverityNote):    0,
		"total":                       0,
	}
	for _, f := range fs {
		info[string(f.Severity)]++
		info["total"]++
	}
	return info
}

func buildRule(rule *rules.Rule) *gosarif.ReportingDescriptor {
	short := rule.ShortDescription
	if short == "" {
		short = rule.DisplayName()
	}

	d := gosarif.NewRule(rule.ID).
		WithName(rule.DisplayName()).
		WithShortDescription(gosarif.NewMultiformatMessageString(short)).
		WithDefaultConfiguration(gosarif.NewReportingConfiguration().WithLevel(string(rule.Severity)))

	if rule.FullDescription != "" {
		d.WithFullDescription(gosarif.NewMultiformatMessageString(rule.FullDescription))
	}
	if rule.HelpURI != "" {
		d.WithHelpURI(rule.HelpURI)
	}
	if len(rule.Tags) > 0 {
		d.WithProperties(gosarif.Properties{"tags": append([]string(nil), rule.Tags...)})
	}
	return d
}

func buildResult(f findings.Finding, ruleIndex int) *gosarif.Result {
	loc := f.Location
	region := gosarif.NewRegion().
		WithStartLine(loc.StartLine).
		WithStartColumn(loc.StartColumn).
		WithEndLine(loc.EndLine).
		WithEndColumn(loc.EndColumn)

	location := gosarif.NewLocationWithPhysicalLocation(
		gosarif.NewPhysicalLocation().
			WithArtifactLocation(gosarif.NewSimpleArtifactLocation(loc.URI)).
			WithRegion(region),
	)

	return gosarif.NewRuleResult(f.RuleID).
		WithRuleIndex(ruleIndex).
		WithLevel(string(f.Severity)).
		WithMessage(gosarif.NewTextMessage(f.Message)).
		WithGuid(ResultGUID(f.RuleID, loc)).
		WithLocations([]*gosarif.Location{location})
}

func buildNotification(n Notification) *gosarif.Notification {
	level := n.Level
	if level == "" {
		level = string(rules.SeverityWarning)
	}
	note := gosarif.NewNotification().WithLevel(level).WithTextMessage(n.Message)
	if n.URI != "" {
		note.AddLocation(gosarif.NewLocationWithPhysicalLocation(
			gosarif.NewPhysicalLocation().WithArtifactLocation(gosarif.NewSimpleArtifactLocation(n.URI)),
		))
	}
	return note
}

func validateLocation(loc findings.Location) error {
	switch {
	case loc.URI == "":
		return fmt.Errorf("location has no artifact uri")
	case loc.StartLine < 1 || loc.StartColumn < 1:
		return fmt.Errorf("invalid start position %d:%d", loc.StartLine, loc.StartColumn)
	case loc.EndLine < loc.StartLine:
		return fmt.Errorf("end line %d precedes start line %d", loc.EndLine, loc.StartLine)
	case loc.EndLine == loc.StartLine && loc.EndColumn <= loc.StartColumn:
		return fmt.Errorf("end column %d does not follow start column %d", loc.EndColumn, loc.StartColumn)
	}
	return nil
}
