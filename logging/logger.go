// Package logging provides the harness-level structured logger used by
// cmd/locklab. It is strictly an ambient concern: no package under
// internal/lock imports it, since a log call on a lock's hot path would
// dwarf the very contention effects the benchmark exists to measure.
package logging

import (
	"os"

	"github.com/sirupsen/logrus"
)

// New returns a logger configured the way cmd/locklab wants its own
// diagnostics formatted: full timestamps, no color codes (the harness's
// stdout is the report itself and is meant to be redirectable to a file),
// writing to stderr so it never interleaves with WriteReport's stdout
// output.
func New() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(os.Stderr)
	l.SetFormatter(&logrus.TextFormatter{
		FullTimestamp: true,
		DisableColors: true,
	})
	l.SetLevel(logrus.InfoLevel)
	return l
}

// RunStart logs the one-line startup summary a run begins with: which lock
// is under test and at what concurrency.
func RunStart(l *logrus.Logger, lockKind string, threads int) {
	l.WithFields(logrus.Fields{
		"lock_kind": lockKind,
		"threads":   threads,
	}).Info("starting run")
}

// RunDone logs the one-line shutdown summary a run ends with.
func RunDone(l *logrus.Logger, totalOps uint64, elapsedSeconds float64) {
	l.WithFields(logrus.Fields{
		"total_operations": totalOps,
		"elapsed_seconds":  elapsedSeconds,
	}).Info("run complete")
}

// ConvoyWarning logs the property-9 diagnostic: a run's warm-up phase took
// longer than its configured budget, which can happen when a lock's own
// convoy-recovery behavior is still draining a backlog of waiters formed
// during warm-up. This never fails the run; it only surfaces the condition
// so a human reviewing the log can tell a slow warm-up from a hung one.
func ConvoyWarning(l *logrus.Logger, lockKind string, warmupDurationMs int, actual float64) {
	l.WithFields(logrus.Fields{
		"lock_kind":          lockKind,
		"warmup_duration_ms": warmupDurationMs,
		"actual_seconds":     actual,
	}).Warn("warm-up phase exceeded its configured budget")
}
