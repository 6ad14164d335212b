package config

import "stratalog/internal/logging"

// LoggingConfig configures logging.
type LoggingConfig struct {
	Level      string          `yaml:"level" validate:"omitempty,oneof=debug info warn warning error"`
	Format     string          `yaml:"format" validate:"omitempty,oneof=json console"`
	DebugMode  bool            `yaml:"debug_mode"`           // master toggle, false = no logging
	Categories map[string]bool `yaml:"categories,omitempty"` // per-category toggles
}

// Options converts the configuration for logging.Initialize, which applies
// the debug_mode and per-category gating.
func (c *LoggingConfig) Options() logging.Options {
	return logging.Options{
		Level:      c.Level,
		Format:     c.Format,
		DebugMode:  c.DebugMode,
		Categories: c.Categories,
	}
}
