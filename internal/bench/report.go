package bench

import (
	"fmt"
	"io"
)

// WriteReport prints r as key-value lines on w, one per line, in the order
// documented in spec.md §6's output table (plus the cpu_* diagnostics
// appended at the end). Grounded on mutex_bench.cpp's std::cout key:value
// dump, generalized from a single fixed lock to any of the six kinds and
// extended with the w0/w_gt0 split and avg_waiters_before_lock fields.
func WriteReport(w io.Writer, r *Report) error {
	lines := []struct {
		key string
		val any
	}{
		{"lock_kind", string(r.Config.LockKind)},
		{"threads", r.Config.Threads},
		{"duration_ms", r.Config.DurationMs},
		{"warmup_duration_ms", r.Config.WarmupDurationMs},
		{"critical_iters", r.Config.CriticalIters},
		{"outside_iters", r.Config.OutsideIters},
		{"timing_sample_stride", r.Config.TimingSampleStride},
		{"total_operations", r.TotalOperations},
		{"protected_counter", r.ProtectedCounter},
		{"elapsed_seconds", fmt.Sprintf("%.6f", r.ElapsedSeconds)},
		{"throughput_ops_per_sec", fmt.Sprintf("%.2f", r.ThroughputOpsPerSec)},
		{"avg_lock_hold_ns", fmt.Sprintf("%.2f", r.AvgLockHoldNs)},
		{"avg_unlock_to_next_lock_ns_w0", fmt.Sprintf("%.2f", r.AvgUnlockToNextLockW0)},
		{"avg_unlock_to_next_lock_ns_w_gt0", fmt.Sprintf("%.2f", r.AvgUnlockToNextLockGt0)},
		{"avg_waiters_before_lock", fmt.Sprintf("%.4f", r.AvgWaitersBeforeLock)},
		{"cpu_vendor", r.Sys.Vendor},
		{"cpu_cache_line_bytes", r.Sys.CacheLineBytes},
		{"cpu_cores", r.Sys.Cores},
	}

	for _, line := range lines {
		if _, err := fmt.Fprintf(w, "%s: %v\n", line.key, line.val); err != nil {
			return fmt.Errorf("writing report line %q: %w", line.key, err)
		}
	}
	return nil
}
