package config

import (
	"fmt"
	"regexp"
	"strings"
	"time"
)

const (
	maxConcurrency = 64
	maxTimeout     = 1 * time.Hour
)

var ruleIDRegex = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9._-]*(/[A-Za-z0-9][A-Za-z0-9._-]*)*$`)

// ValidateConfig checks if the configuration has valid values and normalises extensions.
func ValidateConfig(cfg *Config) error {
	if cfg == nil {
		return fmt.Errorf("YAML config: configuration object is nil")
	}
	if err := ValidateScanConfig(&cfg.Scan); err != nil {
		return fmt.Errorf("YAML config: scan directive is invalid: %w", err)
	}
	if strings.TrimSpace(cfg.Report.Output) == "" {
		return fmt.Errorf("YAML config: report directive is invalid: output must not be empty")
	}
	for i := range cfg.Rules {
		if err := ValidateRuleConfig(&cfg.Rules[i]); err != nil {
			return fmt.Errorf("YAML config: rules[%d] is invalid: %w", i, err)
		}
	}
	return nil
}

// ValidateScanConfig checks the scan directive.
func ValidateScanConfig(scan *Scan) error {
	if scan == nil {
		return fmt.Errorf("scan configuration is nil")
	}
	if strings.TrimSpace(scan.Root) == "" {
		return fmt.Errorf("root must not be empty")
	}
	scan.Extensions = NormalizeExtensions(scan.Extensions)
	if len(scan.Extensions) == 0 {
		return fmt.Errorf("at least one extension must be configured")
	}
	if scan.Concurrency < 1 || scan.Concurrency > maxConcurrency {
		return fmt.Errorf("concurrency must be between 1 and %d: %d", maxConcurrency, scan.Concurrency)
	}
	if scan.Timeout == 0 {
		return fmt.Errorf("timeout must be greater than zero")
	}
	if err := validateDuration(scan.Timeout, "timeout", maxTimeout); err != nil {
		return err
	}
	if scan.SourceRoot == "" {
		scan.SourceRoot = DefaultSourceRoot
	}
	return nil
}

// ValidateRuleConfig checks a custom rule definition.
func ValidateRuleConfig(rule *RuleConfig) error {
	if rule == nil {
		return fmt.Errorf("rule configuration is nil")
	}
	if !ruleIDRegex.MatchString(rule.ID) {
		return fmt.Errorf("id %q must be a namespaced identifier like 'team/rule-name'", rule.ID)
	}
	switch strings.ToLower(rule.Severity) {
	case "", "error", "warning", "note":
	default:
		return fmt.Errorf("severity %q must be one of error, warning, note", rule.Severity)
	}

	matcher := strings.ToLower(strings.TrimSpace(rule.Matcher))
	switch matcher {
	case "", "text":
		if rule.Pattern != "" {
			if rule.Key != "" || rule.Value != "" {
				return fmt.Errorf("pattern cannot be combined with key/value")
			}
			if _, err := regexp.Compile(rule.Pattern); err != nil {
				return fmt.Errorf("pattern is not a valid regular expression: %w", err)
			}
			return nil
		}
	case "yaml":
		if rule.Pattern != "" {
			return fmt.Errorf("pattern is not supported by the yaml matcher")
		}
	default:
		return fmt.Errorf("matcher %q must be one of text, yaml", rule.Matcher)
	}

	if strings.TrimSpace(rule.Key) == "" || strings.TrimSpace(rule.Value) == "" {
		return fmt.Errorf("key and value must both be set")
	}
	return nil
}

// validateDuration checks that a time.Duration is valid and within a specified maximum duration.
func validateDuration(d time.Duration, name string, max time.Duration) error {
	if d < 0 {
		return fmt.Errorf("invalid duration for %q: %v cannot be negative", name, d)
	}
	if d > max {
		return fmt.Errorf("%q duration is too long: %v exceeds maximum of %v", name, d, max)
	}
	return nil
}
