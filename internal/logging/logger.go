// Package logging provides config-driven categorized logging on top of zap.
// Every subsystem asks for a logger by category; categories are switched on
// and off through Options. Until Initialize is called, and whenever debug
// mode is off, every logger is a no-op.
package logging

import (
	"fmt"
	"strings"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Category represents a log category/system
type Category string

const (
	CategoryBoot     Category = "boot"     // Startup, config loading
	CategoryValidate Category = "validate" // Signature and range checks
	CategoryStratify Category = "stratify" // Dependency graph, strata
	CategoryEval     Category = "eval"     // Fixpoint evaluation
	CategoryMangle   Category = "mangle"   // Mangle text boundary, reference eval
	CategoryPipeline Category = "pipeline" // validate -> stratify -> eval runs
	CategoryCLI      Category = "cli"      // Command handling
	CategoryWatch    Category = "watch"    // File watching
	CategoryAudit    Category = "audit"    // Run audit trail
)

// Options mirrors config.LoggingConfig to avoid an import cycle.
type Options struct {
	Level       string          // debug, info, warn, error
	Format      string          // json, console
	DebugMode   bool            // master toggle; false = no logging
	Categories  map[string]bool // per-category toggles, missing = enabled
	OutputPaths []string        // zap sinks, default stderr
}

var (
	mu      sync.RWMutex
	opts    Options
	base    = zap.NewNop()
	loggers = make(map[Category]*Logger)
)

// Logger is a category-scoped logger with printf-style helpers.
type Logger struct {
	category Category
	sugar    *zap.SugaredLogger
	zl       *zap.Logger
}

// Initialize builds the shared zap logger from o. Calling it again replaces
// the previous configuration.
func Initialize(o Options) error {
	if !o.DebugMode {
		setBase(o, zap.NewNop())
		return nil
	}

	var cfg zap.Config
	if strings.EqualFold(o.Format, "console") {
		cfg = zap.NewDevelopmentConfig()
	} else {
		cfg = zap.NewProductionConfig()
	}

	level, err := ParseLevel(o.Level)
	if err != nil {
		return err
	}
	cfg.Level = zap.NewAtomicLevelAt(level)
	if len(o.OutputPaths) > 0 {
		cfg.OutputPaths = o.OutputPaths
	}

	zl, err := cfg.Build()
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	setBase(o, zl)

	Get(CategoryBoot).Debug("logging initialized (level=%s format=%s)", level, cfg.Encoding)
	return nil
}

// InitializeWith installs an already built zap logger. Tests use it with
// zaptest/observer cores.
func InitializeWith(o Options, zl *zap.Logger) {
	setBase(o, zl)
}

func setBase(o Options, zl *zap.Logger) {
	mu.Lock()
	defer mu.Unlock()
	_ = base.Sync()
	opts = o
	base = zl
	loggers = make(map[Category]*Logger)
}

// ParseLevel maps a level name to a zap level. Empty means info.
func ParseLevel(name string) (zapcore.Level, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "debug":
		return zapcore.DebugLevel, nil
	case "", "info":
		return zapcore.InfoLevel, nil
	case "warn", "warning":
		return zapcore.WarnLevel, nil
	case "error":
		return zapcore.ErrorLevel, nil
	default:
		return zapcore.InfoLevel, fmt.Errorf("unknown log level %q", name)
	}
}

// IsCategoryEnabled returns whether a specific category is enabled
func IsCategoryEnabled(category Category) bool {
	mu.RLock()
	defer mu.RUnlock()
	return categoryEnabledLocked(category)
}

func categoryEnabledLocked(category Category) bool {
	if !opts.DebugMode {
		return false
	}
	if opts.Categories == nil {
		return true
	}
	enabled, exists := opts.Categories[string(category)]
	if !exists {
		return true
	}
	return enabled
}

// Get returns (or creates) a logger for the given category.
// Returns a no-op logger if debug mode is disabled or category is disabled.
func Get(category Category) *Logger {
	mu.RLock()
	if l, ok := loggers[category]; ok {
		mu.RUnlock()
		return l
	}
	mu.RUnlock()

	mu.Lock()
	defer mu.Unlock()
	if l, ok := loggers[category]; ok {
		return l
	}

	zl := zap.NewNop()
	if categoryEnabledLocked(category) {
		zl = base.Named(string(category))
	}
	l := &Logger{category: category, zl: zl, sugar: zl.Sugar()}
	loggers[category] = l
	return l
}

// Category returns the logger's category.
func (l *Logger) Category() Category { return l.category }

// Zap exposes the underlying structured logger.
func (l *Logger) Zap() *zap.Logger { return l.zl }

// With returns a logger carrying extra structured fields.
func (l *Logger) With(fields ...zap.Field) *Logger {
	zl := l.zl.With(fields...)
	return &Logger{category: l.category, zl: zl, sugar: zl.Sugar()}
}

func (l *Logger) Debug(format string, args ...interface{}) { l.sugar.Debugf(format, args...) }

func (l *Logger) Info(format string, args ...interface{}) { l.sugar.Infof(format, args...) }

func (l *Logger) Warn(format string, args ...interface{}) { l.sugar.Warnf(format, args...) }

func (l *Logger) Error(format string, args ...interface{}) { l.sugar.Errorf(format, args...) }

// Sync flushes buffered entries (call at shutdown).
func Sync() error {
	mu.RLock()
	defer mu.RUnlock()
	return base.Sync()
}
