// Package config loads and validates the strata configuration file.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"stratalog/internal/analysis"
)

// Config holds all strata configuration.
type Config struct {
	Engine  EngineConfig  `yaml:"engine"`
	Logging LoggingConfig `yaml:"logging"`
}

// EngineConfig configures the validate, stratify and evaluate pipeline.
type EngineConfig struct {
	// Issue kinds that abort a run. Other issues are reported only.
	FatalIssues []string `yaml:"fatal_issues" validate:"dive,issuekind"`

	MaxFacts  int  `yaml:"max_facts" validate:"gte=0"`  // 0 = unlimited
	MaxRounds int  `yaml:"max_rounds" validate:"gte=0"` // per stratum, 0 = unlimited
	Parallel  bool `yaml:"parallel"`
	Workers   int  `yaml:"workers" validate:"gte=0,lte=1024"` // 0 = GOMAXPROCS
}

var validate *validator.Validate

func init() {
	validate = validator.New()
	_ = validate.RegisterValidation("issuekind", validateIssueKind)
}

func validateIssueKind(fl validator.FieldLevel) bool {
	kind := analysis.IssueKind(fl.Field().String())
	for _, k := range analysis.AllIssueKinds {
		if k == kind {
			return true
		}
	}
	return false
}

// DefaultConfig returns the configuration used when no file exists.
func DefaultConfig() *Config {
	return &Config{
		Engine: EngineConfig{
			FatalIssues: []string{
				string(analysis.KindRangeRestriction),
				string(analysis.KindArityMismatch),
			},
			MaxFacts: 1_000_000,
			Workers:  4,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
	}
}

// Load reads path over the defaults. A missing file yields the defaults.
// Environment overrides are applied last.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}
	if err == nil {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config: %w", err)
		}
	}

	if err := cfg.applyEnvOverrides(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Save writes the configuration as YAML, creating the directory if needed.
func (c *Config) Save(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}

	return nil
}

// applyEnvOverrides applies STRATA_* environment variables.
func (c *Config) applyEnvOverrides() error {
	if level := os.Getenv("STRATA_LOG_LEVEL"); level != "" {
		c.Logging.Level = level
	}
	if v := os.Getenv("STRATA_PARALLEL"); v != "" {
		parallel, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("invalid STRATA_PARALLEL %q: %w", v, err)
		}
		c.Engine.Parallel = parallel
	}
	if v := os.Getenv("STRATA_MAX_FACTS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid STRATA_MAX_FACTS %q: %w", v, err)
		}
		c.Engine.MaxFacts = n
	}
	return nil
}

// Validate checks the configuration against its struct tags.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

// FatalKinds returns the fatal issue kinds as a set.
func (c *EngineConfig) FatalKinds() map[analysis.IssueKind]bool {
	out := make(map[analysis.IssueKind]bool, len(c.FatalIssues))
	for _, k := range c.FatalIssues {
		out[analysis.IssueKind(strings.TrimSpace(k))] = true
	}
	return out
}
