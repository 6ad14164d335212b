package logging

import (
	"fmt"
	"strconv"
	"time"

	"go.uber.org/zap"
)

// AuditEventType names a pipeline run event. Each type maps to the first
// argument of the run_event/6 fact written with every audit entry.
type AuditEventType string

const (
	AuditRunStart   AuditEventType = "run_start"
	AuditRunIssue   AuditEventType = "run_issue"
	AuditRunStrata  AuditEventType = "run_strata"
	AuditRunEnd     AuditEventType = "run_end"
	AuditRunAborted AuditEventType = "run_aborted"
)

// AuditEvent is one structured audit entry.
type AuditEvent struct {
	Timestamp  int64 // Unix milliseconds
	EventType  AuditEventType
	RunID      string
	Target     string // issue kind, stage name, etc.
	Success    bool
	Count      int
	DurationMs int64
	Message    string
}

// MangleFact renders e as a Mangle fact:
//
//	run_event(ts, /type, "run id", "target", /true|/false, count).
func (e AuditEvent) MangleFact() string {
	ok := "/false"
	if e.Success {
		ok = "/true"
	}
	return fmt.Sprintf("run_event(%d, /%s, %s, %s, %s, %d).",
		e.Timestamp, e.EventType, strconv.Quote(e.RunID), strconv.Quote(e.Target), ok, e.Count)
}

// AuditLogger writes audit events for one run to the audit category.
type AuditLogger struct {
	runID string
	now   func() time.Time
}

// AuditRun returns an audit logger scoped to runID.
func AuditRun(runID string) *AuditLogger {
	return &AuditLogger{runID: runID, now: time.Now}
}

// Log writes an audit event, filling in the timestamp and run id.
func (a *AuditLogger) Log(event AuditEvent) {
	l := Get(CategoryAudit)
	if !l.zl.Core().Enabled(zap.InfoLevel) {
		return
	}
	if event.Timestamp == 0 {
		event.Timestamp = a.now().UnixMilli()
	}
	if event.RunID == "" {
		event.RunID = a.runID
	}
	l.zl.Info(string(event.EventType),
		zap.String("run_id", event.RunID),
		zap.String("target", event.Target),
		zap.Bool("success", event.Success),
		zap.Int("count", event.Count),
		zap.Int64("dur_ms", event.DurationMs),
		zap.String("msg", event.Message),
		zap.String("mangle", event.MangleFact()),
	)
}

// RunStart records the size of the program entering a run.
func (a *AuditLogger) RunStart(facts, rules int) {
	a.Log(AuditEvent{EventType: AuditRunStart, Target: "program", Success: true, Count: facts + rules,
		Message: fmt.Sprintf("%d facts, %d rules", facts, rules)})
}

// RunIssue records how many issues of one kind validation found.
func (a *AuditLogger) RunIssue(kind string, count int, fatal bool) {
	a.Log(AuditEvent{EventType: AuditRunIssue, Target: kind, Success: !fatal, Count: count})
}

// RunStrata records the number of strata.
func (a *AuditLogger) RunStrata(levels int) {
	a.Log(AuditEvent{EventType: AuditRunStrata, Target: "stratify", Success: true, Count: levels})
}

// RunEnd records a finished evaluation.
func (a *AuditLogger) RunEnd(derived int, duration time.Duration) {
	a.Log(AuditEvent{EventType: AuditRunEnd, Target: "eval", Success: true, Count: derived, DurationMs: duration.Milliseconds()})
}

// RunAborted records the stage that stopped a run.
func (a *AuditLogger) RunAborted(stage string, err error) {
	a.Log(AuditEvent{EventType: AuditRunAborted, Target: stage, Success: false, Message: err.Error()})
}
