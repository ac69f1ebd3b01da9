package config

import (
	"fmt"
	"os"
	"time"

	yaml "gopkg.in/yaml.v2"
)

// DefaultConfigFile is loaded when no --config flag is given and the file exists.
const DefaultConfigFile = "permscan.yml"

// Config is the top-level YAML configuration.
type Config struct {
	Logger Logger       `yaml:"logger"`
	Scan   Scan         `yaml:"scan"`
	Report Report       `yaml:"report"`
	Rules  []RuleConfig `yaml:"rules"`
}

// Logger holds logging settings.
type Logger struct {
	Level           string `yaml:"level"`
	DisableTime     *bool  `yaml:"disable_time"`
	JSONFormat      *bool  `yaml:"json_format"`
	IncludeLocation *bool  `yaml:"include_location"`
}

// Scan holds file discovery and execution settings.
type Scan struct {
	Root                string        `yaml:"root"`
	Extensions          []string      `yaml:"extensions"`
	Recursive           bool          `yaml:"recursive"`
	TolerateMissingRoot *bool         `yaml:"tolerate_missing_root"`
	SourceRoot          string        `yaml:"source_root"`
	Concurrency         int           `yaml:"concurrency"`
	Timeout             time.Duration `yaml:"timeout"`
	EnabledRules        []string      `yaml:"enabled_rules"`
}

// Report holds output document settings.
type Report struct {
	Output        string `yaml:"output"`
	VCSProvenance bool   `yaml:"vcs_provenance"`
}

// RuleConfig describes a custom rule appended to the built-in catalog.
type RuleConfig struct {
	ID          string   `yaml:"id"`
	Name        string   `yaml:"name"`
	Description string   `yaml:"description"`
	Severity    string   `yaml:"severity"`
	Matcher     string   `yaml:"matcher"`
	Key         string   `yaml:"key"`
	Value       string   `yaml:"value"`
	Pattern     string   `yaml:"pattern"`
	Message     string   `yaml:"message"`
	HelpURI     string   `yaml:"help_uri"`
	Tags        []string `yaml:"tags"`
}

// Defaults used when neither the config file, the environment nor flags set a value.
const (
	DefaultRoot        = ".github/workflows"
	DefaultOutput      = "results.sarif"
	DefaultSourceRoot  = "."
	DefaultConcurrency = 1
	DefaultTimeout     = 2 * time.Minute
)

// DefaultExtensions lists the workflow file extensions scanned by default.
var DefaultExtensions = []string{".yml", ".yaml"}

// Default returns a configuration populated with default values.
func Default() *Config {
	tolerate := true
	return &Config{
		Scan: Scan{
			Root:                DefaultRoot,
			Extensions:          append([]string(nil), DefaultExtensions...),
			TolerateMissingRoot: &tolerate,
			SourceRoot:          DefaultSourceRoot,
			Concurrency:         DefaultConcurrency,
			Timeout:             DefaultTimeout,
		},
		Report: Report{
			Output: DefaultOutput,
		},
	}
}

// ValidateConfigPath checks that path points to a regular file.
func ValidateConfigPath(path string) error {
	s, err := os.Stat(path)
	if err != nil {
		return err
	}
	if s.IsDir() {
		return fmt.Errorf("'%s' is a directory, not a file", path)
	}
	return nil
}

// LoadYAML decodes the YAML file at configPath into data.
func LoadYAML(configPath string, data interface{}) error {
	if err := ValidateConfigPath(configPath); err != nil {
		return err
	}

	file, err := os.Open(configPath)
	if err != nil {
		return err
	}
	defer file.Close()

	d := yaml.NewDecoder(file)
	d.SetStrict(true)
	if err := d.Decode(data); err != nil {
		return err
	}

	return nil
}

// LoadConfig returns the default configuration overlaid with the YAML file at configPath.
// An empty configPath falls back to DefaultConfigFile, which is optional.
func LoadConfig(configPath string) (*Config, error) {
	cfg := Default()

	explicit := configPath != ""
	if !explicit {
		configPath = DefaultConfigFile
		if _, err := os.Stat(configPath); os.IsNotExist(err) {
			return cfg, nil
		}
	}

	if err := LoadYAML(configPath, cfg); err != nil {
		return nil, fmt.Errorf("failed to load config file %q: %w", configPath, err)
	}
	return cfg, nil
}

// TolerateMissingRoot reports the effective tolerate-missing-root setting.
func TolerateMissingRoot(cfg *Config) bool {
	return GetBoolValue(cfg, "Scan.TolerateMissingRoot", true)
}
