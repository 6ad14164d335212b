package logging

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func observe(t *testing.T, o Options) *observer.ObservedLogs {
	t.Helper()
	core, logs := observer.New(zapcore.DebugLevel)
	InitializeWith(o, zap.New(core))
	t.Cleanup(func() { InitializeWith(Options{}, zap.NewNop()) })
	return logs
}

func TestGetIsNoopWhenDebugModeOff(t *testing.T) {
	logs := observe(t, Options{DebugMode: false})
	Get(CategoryEval).Info("hidden %d", 1)
	assert.Equal(t, 0, logs.Len())
	assert.False(t, IsCategoryEnabled(CategoryEval))
}

func TestGetRespectsCategoryToggles(t *testing.T) {
	logs := observe(t, Options{
		DebugMode:  true,
		Categories: map[string]bool{"eval": false},
	})

	Get(CategoryEval).Info("hidden")
	Get(CategoryStratify).Info("visible %s", "yes")

	require.Equal(t, 1, logs.Len())
	entry := logs.All()[0]
	assert.Equal(t, "visible yes", entry.Message)
	assert.Equal(t, "stratify", entry.LoggerName)
}

func TestGetCachesPerCategory(t *testing.T) {
	observe(t, Options{DebugMode: true})
	assert.Same(t, Get(CategoryCLI), Get(CategoryCLI))
}

func TestWithAddsFields(t *testing.T) {
	logs := observe(t, Options{DebugMode: true})
	Get(CategoryPipeline).With(zap.String("run", "r1")).Warn("slow")

	require.Equal(t, 1, logs.Len())
	assert.Equal(t, "r1", logs.All()[0].ContextMap()["run"])
	assert.Equal(t, zapcore.WarnLevel, logs.All()[0].Level)
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want zapcore.Level
		ok   bool
	}{
		{"debug", zapcore.DebugLevel, true},
		{"", zapcore.InfoLevel, true},
		{"WARNING", zapcore.WarnLevel, true},
		{"error", zapcore.ErrorLevel, true},
		{"loud", zapcore.InfoLevel, false},
	}
	for _, tt := range tests {
		got, err := ParseLevel(tt.in)
		if tt.ok {
			require.NoError(t, err, tt.in)
		} else {
			require.Error(t, err, tt.in)
		}
		assert.Equal(t, tt.want, got, tt.in)
	}
}

func TestInitializeRejectsBadLevel(t *testing.T) {
	t.Cleanup(func() { InitializeWith(Options{}, zap.NewNop()) })
	err := Initialize(Options{DebugMode: true, Level: "shout"})
	assert.Error(t, err)
}

func TestInitializeDisabledIsSilent(t *testing.T) {
	require.NoError(t, Initialize(Options{}))
	assert.False(t, IsCategoryEnabled(CategoryBoot))
}

func TestAuditEventMangleFact(t *testing.T) {
	e := AuditEvent{Timestamp: 42, EventType: AuditRunIssue, RunID: "r1", Target: "range_restriction", Success: false, Count: 2}
	assert.Equal(t, `run_event(42, /run_issue, "r1", "range_restriction", /false, 2).`, e.MangleFact())

	e = AuditEvent{Timestamp: 7, EventType: AuditRunAborted, RunID: `a"b`, Target: "eval"}
	assert.Equal(t, `run_event(7, /run_aborted, "a\"b", "eval", /false, 0).`, e.MangleFact())
}

func TestAuditLoggerWritesEvents(t *testing.T) {
	logs := observe(t, Options{DebugMode: true})
	a := AuditRun("run-1")
	a.now = func() time.Time { return time.UnixMilli(1000) }

	a.RunStart(3, 2)
	a.RunEnd(4, 1500*time.Millisecond)

	require.Equal(t, 2, logs.Len())
	start := logs.All()[0]
	assert.Equal(t, "run_start", start.Message)
	assert.Equal(t, "audit", start.LoggerName)
	assert.Equal(t, `run_event(1000, /run_start, "run-1", "program", /true, 5).`, start.ContextMap()["mangle"])

	end := logs.All()[1].ContextMap()
	assert.Equal(t, int64(1500), end["dur_ms"])
	assert.Equal(t, int64(4), end["count"])
}

func TestAuditLoggerSilentWhenDisabled(t *testing.T) {
	logs := observe(t, Options{DebugMode: true, Categories: map[string]bool{"audit": false}})
	AuditRun("r").RunAborted("eval", assert.AnError)
	assert.Equal(t, 0, logs.Len())
}
