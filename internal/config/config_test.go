package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"stratalog/internal/analysis"
	"stratalog/internal/logging"
)

func TestLoadMissingFileReturnsDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), cfg)
	assert.NoError(t, cfg.Validate())
}

func TestLoadOverlaysFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "strata.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
engine:
  fatal_issues: [non_ground_fact]
  max_rounds: 50
  parallel: true
logging:
  level: debug
  debug_mode: true
  categories: {eval: false}
`), 0644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"non_ground_fact"}, cfg.Engine.FatalIssues)
	assert.Equal(t, 50, cfg.Engine.MaxRounds)
	assert.Equal(t, 1_000_000, cfg.Engine.MaxFacts)
	assert.True(t, cfg.Engine.Parallel)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.True(t, cfg.Logging.DebugMode)
	assert.Equal(t, map[string]bool{"eval": false}, cfg.Logging.Options().Categories)
	assert.NoError(t, cfg.Validate())
}

func TestLoadRejectsMalformedYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "strata.yaml")
	require.NoError(t, os.WriteFile(path, []byte("engine: [\n"), 0644))
	_, err := Load(path)
	assert.Error(t, err)
}

func TestSaveRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "strata.yaml")
	cfg := DefaultConfig()
	cfg.Engine.Workers = 8
	cfg.Logging.Categories = map[string]bool{"watch": true}
	require.NoError(t, cfg.Save(path))

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, cfg, loaded)
}

func TestEnvOverrides(t *testing.T) {
	t.Run("all set", func(t *testing.T) {
		t.Setenv("STRATA_LOG_LEVEL", "warn")
		t.Setenv("STRATA_PARALLEL", "true")
		t.Setenv("STRATA_MAX_FACTS", "10")

		cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
		require.NoError(t, err)
		assert.Equal(t, "warn", cfg.Logging.Level)
		assert.True(t, cfg.Engine.Parallel)
		assert.Equal(t, 10, cfg.Engine.MaxFacts)
	})

	t.Run("bad bool", func(t *testing.T) {
		t.Setenv("STRATA_PARALLEL", "sometimes")
		_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
		assert.ErrorContains(t, err, "STRATA_PARALLEL")
	})

	t.Run("bad number", func(t *testing.T) {
		t.Setenv("STRATA_MAX_FACTS", "lots")
		_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
		assert.ErrorContains(t, err, "STRATA_MAX_FACTS")
	})
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		ok     bool
	}{
		{"defaults", func(*Config) {}, true},
		{"every issue kind", func(c *Config) {
			c.Engine.FatalIssues = nil
			for _, k := range analysis.AllIssueKinds {
				c.Engine.FatalIssues = append(c.Engine.FatalIssues, string(k))
			}
		}, true},
		{"unknown issue kind", func(c *Config) { c.Engine.FatalIssues = []string{"typo"} }, false},
		{"negative facts", func(c *Config) { c.Engine.MaxFacts = -1 }, false},
		{"negative rounds", func(c *Config) { c.Engine.MaxRounds = -1 }, false},
		{"too many workers", func(c *Config) { c.Engine.Workers = 5000 }, false},
		{"bad level", func(c *Config) { c.Logging.Level = "loud" }, false},
		{"bad format", func(c *Config) { c.Logging.Format = "xml" }, false},
		{"console format", func(c *Config) { c.Logging.Format = "console" }, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.ok {
				assert.NoError(t, err)
			} else {
				assert.Error(t, err)
			}
		})
	}
}

func TestFatalKinds(t *testing.T) {
	cfg := DefaultConfig()
	kinds := cfg.Engine.FatalKinds()
	assert.True(t, kinds[analysis.KindRangeRestriction])
	assert.True(t, kinds[analysis.KindArityMismatch])
	assert.False(t, kinds[analysis.KindNonGroundFact])
}

func TestLoggingOptions(t *testing.T) {
	c := LoggingConfig{Level: "debug", Format: "console", DebugMode: true, Categories: map[string]bool{"eval": false}}
	o := c.Options()
	assert.Equal(t, "debug", o.Level)
	assert.Equal(t, "console", o.Format)
	assert.True(t, o.DebugMode)
	assert.Equal(t, map[string]bool{"eval": false}, o.Categories)
}

func TestLoggingOptionsGateCategories(t *testing.T) {
	t.Cleanup(func() { logging.InitializeWith(logging.Options{}, zap.NewNop()) })

	c := &LoggingConfig{DebugMode: true, Categories: map[string]bool{"eval": false}}
	logging.InitializeWith(c.Options(), zap.NewNop())
	assert.False(t, logging.IsCategoryEnabled(logging.CategoryEval))
	assert.True(t, logging.IsCategoryEnabled(logging.CategoryStratify))

	logging.InitializeWith((&LoggingConfig{}).Options(), zap.NewNop())
	assert.False(t, logging.IsCategoryEnabled(logging.CategoryEval))
}
