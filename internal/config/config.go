package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/robert-at-pretension-io/vcd2json/internal/value"
)

// Config is the top-level configuration for vcd2json
type Config struct {
	// Values selects the value representation: "numeric" or "string"
	Values string `json:"values,omitempty"`

	// Output controls serialization
	Output OutputConfig `json:"output,omitempty"`

	// Validate checks the document against the embedded output schema before writing it
	Validate *bool `json:"validate,omitempty"`

	// Policy configures optional Rego checks over the converted waveform
	Policy PolicyConfig `json:"policy,omitempty"`

	// Inputs lists dump files for directory (batch) conversion
	Inputs InputConfig `json:"inputs,omitempty"`

	// Timing writes JSONL stage timing to this file when set
	Timing string `json:"timing,omitempty"`
}

// OutputConfig contains serialization options
type OutputConfig struct {
	// Format is "json" or "yaml"
	Format string `json:"format,omitempty"`

	// Pretty forces indented output. Unset means indent when stdout is a terminal.
	Pretty *bool `json:"pretty,omitempty"`

	// Dir is where batch conversion writes documents (default: next to each input)
	Dir string `json:"dir,omitempty"`
}

// PolicyConfig points at a directory of .rego files
type PolicyConfig struct {
	Dir string `json:"dir,omitempty"`

	// FailOn is the lowest severity that fails the run: "error", "warning", "info" or "off"
	FailOn string `json:"failOn,omitempty"`
}

// InputConfig holds glob patterns for batch conversion
type InputConfig struct {
	// Files is a list of glob patterns; ** matches any number of directories
	Files []string `json:"files,omitempty"`

	// Exclude is a list of glob patterns removed from Files
	Exclude []string `json:"exclude,omitempty"`
}

const (
	defaultFailOn = "error"
)

var defaultInputs = []string{"*.vcd", "**/*.vcd"}

// DefaultConfig returns a sensible default configuration
func DefaultConfig() *Config {
	return &Config{
		Values: value.NumericName,
		Output: OutputConfig{
			Format: "json",
		},
		Validate: boolPtr(true),
		Policy: PolicyConfig{
			FailOn: defaultFailOn,
		},
		Inputs: InputConfig{
			Files:   append([]string(nil), defaultInputs...),
			Exclude: []string{},
		},
	}
}

func boolPtr(v bool) *bool {
	return &v
}

// Load finds and loads the configuration file
// Search order:
//  1. ./vcd2json.json (current working directory)
//  2. ./.vcd2json.json (current working directory)
//  3. <dir of inputPath>/vcd2json.json (if different from cwd)
//  4. ~/.config/vcd2json/config.json
//
// Returns DefaultConfig if no config file is found
func Load(inputPath string) (*Config, error) {
	cwd, _ := os.Getwd()

	searchPaths := []string{
		filepath.Join(cwd, "vcd2json.json"),
		filepath.Join(cwd, ".vcd2json.json"),
	}

	if inputPath != "" {
		dir := inputPath
		if info, err := os.Stat(inputPath); err == nil && !info.IsDir() {
			dir = filepath.Dir(inputPath)
		}
		absDir, _ := filepath.Abs(dir)
		if absDir != cwd {
			searchPaths = append(searchPaths,
				filepath.Join(dir, "vcd2json.json"),
				filepath.Join(dir, ".vcd2json.json"),
			)
		}
	}

	if home, err := os.UserHomeDir(); err == nil {
		searchPaths = append(searchPaths, filepath.Join(home, ".config", "vcd2json", "config.json"))
	}

	for _, path := range searchPaths {
		if _, err := os.Stat(path); err == nil {
			return LoadFile(path)
		}
	}

	return DefaultConfig(), nil
}

// LoadFile loads configuration from a specific file
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	cfg.applyDefaults()
	if err := cfg.Check(); err != nil {
		return nil, fmt.Errorf("invalid config file %s: %w", path, err)
	}

	return &cfg, nil
}

// applyDefaults fills in missing configuration with defaults
func (c *Config) applyDefaults() {
	if c.Values == "" {
		c.Values = value.NumericName
	}
	if c.Output.Format == "" {
		c.Output.Format = "json"
	}
	if c.Validate == nil {
		c.Validate = boolPtr(true)
	}
	if c.Policy.FailOn == "" {
		c.Policy.FailOn = defaultFailOn
	}
	if len(c.Inputs.Files) == 0 {
		c.Inputs.Files = append([]string(nil), defaultInputs...)
	}
}

// Check reports values no component accepts
func (c *Config) Check() error {
	if err := value.CheckName(c.Values); err != nil {
		return err
	}
	switch c.Output.Format {
	case "json", "yaml":
	default:
		return fmt.Errorf("unknown output format %q", c.Output.Format)
	}
	if _, ok := severityRank[c.Policy.FailOn]; !ok && c.Policy.FailOn != "off" {
		return fmt.Errorf("unknown policy.failOn %q", c.Policy.FailOn)
	}
	return nil
}

// Save writes the configuration to a file
func (c *Config) Save(path string) error {
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}

	return nil
}

// ValidateEnabled returns true unless validation was switched off
func (c *Config) ValidateEnabled() bool {
	return c.Validate == nil || *c.Validate
}

// PrettyOutput resolves Output.Pretty with the terminal fallback
func (c *Config) PrettyOutput(stdoutIsTerminal bool) bool {
	if c.Output.Pretty != nil {
		return *c.Output.Pretty
	}
	return stdoutIsTerminal
}

var severityRank = map[string]int{
	"info":    1,
	"warning": 2,
	"error":   3,
}

// ShouldFail returns true if a policy violation of the given severity fails the run
func (c *Config) ShouldFail(severity string) bool {
	if c.Policy.FailOn == "off" {
		return false
	}
	threshold, ok := severityRank[c.Policy.FailOn]
	if !ok {
		threshold = severityRank[defaultFailOn]
	}
	return severityRank[severity] >= threshold
}
