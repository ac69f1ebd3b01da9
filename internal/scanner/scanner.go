package scanner

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/hashicorp/go-hclog"

	"github.com/scan-io-git/permscan/internal/ci"
	"github.com/scan-io-git/permscan/internal/findings"
	"github.com/scan-io-git/permscan/internal/locator"
	"github.com/scan-io-git/permscan/internal/matcher"
	"github.com/scan-io-git/permscan/internal/rules"
	"github.com/scan-io-git/permscan/internal/sarif"
	"github.com/scan-io-git/permscan/internal/source"
	"github.com/scan-io-git/permscan/pkg/shared"
	scanerrors "github.com/scan-io-git/permscan/pkg/shared/errors"
	"github.com/scan-io-git/permscan/pkg/shared/files"
)

// Options is the complete input of a scan run. Nothing else is read from the environment.
type Options struct {
	Root                string        // Directory holding workflow files
	Extensions          []string      // Accepted file extensions
	Recursive           bool          // Descend into subdirectories of Root
	TolerateMissingRoot bool          // Treat a missing Root as zero files
	SourceRoot          string        // Artifact URIs are made relative to this directory
	Concurrency         int           // Number of files processed in parallel
	Timeout             time.Duration // Budget for the whole run
	Output              string        // Report destination, "-" for stdout
	Tool                sarif.ToolMetadata
	VCSProvenance       bool // Attach repository, revision and branch to the report
	Catalog             *rules.Catalog
	Stdout              io.Writer     // Receives the report when Output is "-"
	LookupEnv           ci.LookupFunc // CI variable lookup, defaults to os.Getenv
}

// Skipped records a file that could not be scanned.
type Skipped struct {
	Path string
	URI  string
	Err  error
}

// RuleSkipped records a rule that was left out for one scanned file.
type RuleSkipped struct {
	URI    string
	RuleID string
	Err    error
}

// Result is the outcome of the scanning stages, before anything is written.
type Result struct {
	Files        []string
	Scanned      int
	Skipped      []Skipped
	RulesSkipped []RuleSkipped
	Findings     []findings.Finding
	Report       *sarif.Report
}

// Summary reports what a run did.
type Summary struct {
	FilesFound   int
	FilesScanned int
	FilesSkipped int
	Findings     int
	Rules        int
	Severity     map[string]int
	Output       string
}

// Scanner drives Locate, Match, Normalize and Encode for one configuration.
type Scanner struct {
	opts   Options
	logger hclog.Logger
}

// New creates a Scanner.
func New(opts Options, logger hclog.Logger) *Scanner {
	if logger == nil {
		logger = hclog.NewNullLogger()
	}
	if opts.SourceRoot == "" {
		opts.SourceRoot = "."
	}
	if opts.Stdout == nil {
		opts.Stdout = os.Stdout
	}
	if opts.LookupEnv == nil {
		opts.LookupEnv = os.Getenv
	}
	return &Scanner{opts: opts, logger: logger}
}

type fileOutcome struct {
	uri      string
	matches  []matcher.RawMatch
	ruleErrs []*matcher.RuleError
	err      error
}

// Scan runs every stage up to building the report within the configured timeout.
func (s *Scanner) Scan(ctx context.Context) (*Result, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()
	return s.scan(ctx)
}

// Run scans, encodes the report and writes it to the configured output.
// No report is written when any stage fails or the timeout expires.
func (s *Scanner) Run(ctx context.Context) (Summary, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	result, err := s.scan(ctx)
	if err != nil {
		return Summary{}, err
	}

	data, err := sarif.Encode(result.Report)
	if err != nil {
		return Summary{}, scanerrors.WrapStage(scanerrors.StageSerialize, err)
	}
	if err := s.checkContext(ctx, scanerrors.StageSerialize); err != nil {
		return Summary{}, err
	}

	written, err := sarif.WriteFile(s.opts.Output, data, s.opts.Stdout)
	if err != nil {
		return Summary{}, scanerrors.WrapStage(scanerrors.StageWrite, err)
	}

	summary := Summary{
		FilesFound:   len(result.Files),
		FilesScanned: result.Scanned,
		FilesSkipped: len(result.Skipped),
		Findings:     len(result.Findings),
		Rules:        s.opts.Catalog.Len(),
		Severity:     sarif.CollectSeverityInfo(result.Findings),
		Output:       written,
	}
	s.logger.Info("report written", "output", written, "findings", summary.Findings, "skipped", summary.FilesSkipped)
	return summary, nil
}

func (s *Scanner) scan(ctx context.Context) (*Result, error) {
	if s.opts.Catalog == nil {
		return nil, scanerrors.WrapStage(scanerrors.StageConfig, fmt.Errorf("rule catalog is not set"))
	}

	paths, err := locator.Locate(ctx, locator.Options{
		Root:                s.opts.Root,
		Extensions:          s.opts.Extensions,
		Recursive:           s.opts.Recursive,
		TolerateMissingRoot: s.opts.TolerateMissingRoot,
	}, s.logger)
	if err != nil {
		if ctxErr := s.checkContext(ctx, scanerrors.StageLocate); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, scanerrors.WrapStage(scanerrors.StageLocate, err)
	}
	if err := s.checkContext(ctx, scanerrors.StageLocate); err != nil {
		return nil, err
	}

	s.logger.Info("scan starting", "total", len(paths), "goroutines", s.opts.Concurrency, "rules", s.opts.Catalog.Len())

	outcomes := make([]fileOutcome, len(paths))
	poolErr := shared.ForEveryValueWithBoundedGoroutines(ctx, s.opts.Concurrency, paths, func(i int, path string) {
		outcomes[i] = s.scanFile(path)
	})
	if err := s.checkContext(ctx, scanerrors.StageMatch); err != nil {
		return nil, err
	}
	if poolErr != nil {
		return nil, scanerrors.WrapStage(scanerrors.StageMatch, poolErr)
	}

	result := &Result{Files: paths}
	var raws []matcher.RawMatch
	var notes []sarif.Notification
	for i, out := range outcomes {
		if out.err != nil {
			s.logger.Warn("skipping file", "path", paths[i], "error", out.err)
			result.Skipped = append(result.Skipped, Skipped{Path: paths[i], URI: out.uri, Err: out.err})
			notes = append(notes, sarif.Notification{
				Level:   string(rules.SeverityWarning),
				Message: skipMessage(out.err),
				URI:     out.uri,
			})
			continue
		}
		result.Scanned++
		raws = append(raws, out.matches...)
		for _, ruleErr := range out.ruleErrs {
			s.logger.Warn("skipping rule for file", "path", paths[i], "rule", ruleErr.RuleID, "error", ruleErr.Err)
			result.RulesSkipped = append(result.RulesSkipped, RuleSkipped{URI: out.uri, RuleID: ruleErr.RuleID, Err: ruleErr})
			notes = append(notes, sarif.Notification{
				Level:   string(rules.SeverityWarning),
				Message: ruleSkipMessage(ruleErr),
				URI:     out.uri,
			})
		}
	}

	result.Findings = findings.Normalize(raws, s.opts.Catalog)
	result.Report = &sarif.Report{
		Tool:          s.opts.Tool,
		Rules:         s.opts.Catalog.Rules(),
		Findings:      result.Findings,
		Notifications: notes,
		Provenance:    s.provenance(),
	}

	s.logger.Info("scan finished", "scanned", result.Scanned, "skipped", len(result.Skipped), "rulesSkipped", len(result.RulesSkipped), "findings", len(result.Findings))
	return result, nil
}

func (s *Scanner) scanFile(path string) fileOutcome {
	uri, inside, err := files.RelativeURI(s.opts.SourceRoot, path)
	if err != nil {
		return fileOutcome{uri: path, err: err}
	}
	if !inside {
		s.logger.Debug("file is outside the source root, using absolute uri", "path", path, "sourceRoot", s.opts.SourceRoot)
	}

	f, err := source.Load(path, uri)
	if err != nil {
		return fileOutcome{uri: uri, err: err}
	}
	matches, ruleErrs, err := matcher.Match(f, s.opts.Catalog)
	if err != nil {
		return fileOutcome{uri: uri, err: err}
	}
	s.logger.Debug("file scanned", "uri", uri, "matches", len(matches), "rulesSkipped", len(ruleErrs))
	return fileOutcome{uri: uri, matches: matches, ruleErrs: ruleErrs}
}

func (s *Scanner) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.opts.Timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, s.opts.Timeout)
}

// checkContext converts an expired or cancelled context into a stage error.
func (s *Scanner) checkContext(ctx context.Context, stage scanerrors.Stage) error {
	err := ctx.Err()
	switch {
	case err == nil:
		return nil
	case errors.Is(err, context.DeadlineExceeded):
		return scanerrors.WrapStage(stage, scanerrors.NewTimeoutError(s.opts.Timeout, stage))
	default:
		return scanerrors.WrapStage(stage, err)
	}
}

// skipMessage describes a skipped file without host-specific paths.
func skipMessage(err error) string {
	var (
		decodeErr *scanerrors.DecodeError
		permErr   *scanerrors.PermissionError
		notFound  *scanerrors.NotFoundError
	)
	switch {
	case errors.As(err, &decodeErr):
		if decodeErr.Err != nil {
			return fmt.Sprintf("File skipped: %s: %v", decodeErr.Reason, decodeErr.Err)
		}
		return "File skipped: " + decodeErr.Reason
	case errors.As(err, &permErr):
		return "File skipped: permission denied"
	case errors.As(err, &notFound):
		return "File skipped: file disappeared during the scan"
	default:
		return "File skipped: " + err.Error()
	}
}

// ruleSkipMessage describes a rule left out for one file, without host-specific paths.
func ruleSkipMessage(ruleErr *matcher.RuleError) string {
	if ruleErr.Err.Err != nil {
		return fmt.Sprintf("Rule %s skipped: %s: %v", ruleErr.RuleID, ruleErr.Err.Reason, ruleErr.Err.Err)
	}
	return fmt.Sprintf("Rule %s skipped: %s", ruleErr.RuleID, ruleErr.Err.Reason)
}
