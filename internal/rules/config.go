package rules

import (
	"fmt"
	"strings"

	"github.com/scan-io-git/permscan/pkg/shared/config"
)

const defaultCustomMessage = "Workflow contains '" + ConstructPlaceholder + "'."

// FromConfig builds rules from custom rule definitions. Severity defaults to warning.
func FromConfig(defs []config.RuleConfig) ([]*Rule, error) {
	out := make([]*Rule, 0, len(defs))
	for i, def := range defs {
		r, err := fromRuleConfig(def)
		if err != nil {
			return nil, fmt.Errorf("rules[%d] (%s): %w", i, def.ID, err)
		}
		out = append(out, r)
	}
	return out, nil
}

func fromRuleConfig(def config.RuleConfig) (*Rule, error) {
	severity := SeverityWarning
	if def.Severity != "" {
		s, err := ParseSeverity(def.Severity)
		if err != nil {
			return nil, err
		}
		severity = s
	}

	var (
		matcher   Matcher
		construct string
	)
	switch kind := strings.ToLower(strings.TrimSpace(def.Matcher)); kind {
	case "", "text":
		if def.Pattern != "" {
			p, err := NewLinePattern(def.Pattern)
			if err != nil {
				return nil, err
			}
			matcher, construct = p, def.Pattern
			break
		}
		p, err := NewKeyValuePattern(def.Key, def.Value)
		if err != nil {
			return nil, err
		}
		matcher, construct = p, def.Key+": "+def.Value
	case "yaml":
		if def.Key == "" || def.Value == "" {
			return nil, fmt.Errorf("key and value must not be empty")
		}
		matcher, construct = NewKeyValueNode(def.Key, def.Value), def.Key+": "+def.Value
	default:
		return nil, fmt.Errorf("unknown matcher %q", def.Matcher)
	}

	name := def.Name
	if name == "" {
		name = construct + " detected"
	}
	message := def.Message
	if message == "" {
		message = defaultCustomMessage
	}

	return &Rule{
		ID:               def.ID,
		Name:             name,
		ShortDescription: name,
		FullDescription:  def.Description,
		Severity:         severity,
		Tags:             append([]string(nil), def.Tags...),
		HelpURI:          def.HelpURI,
		Construct:        construct,
		Message:          message,
		Matcher:          matcher,
	}, nil
}

// Build assembles the catalog for a run: built-in rules followed by custom
// rules from cfg, restricted to cfg.Scan.EnabledRules when set.
func Build(cfg *config.Config) (*Catalog, error) {
	all, err := NewCatalog(Builtin()...)
	if err != nil {
		return nil, err
	}
	if cfg == nil {
		return all, nil
	}

	custom, err := FromConfig(cfg.Rules)
	if err != nil {
		return nil, err
	}
	for _, r := range custom {
		if err := all.Register(r); err != nil {
			return nil, err
		}
	}
	return all.Select(cfg.Scan.EnabledRules)
}
