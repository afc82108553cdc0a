// Package main implements the locklab CLI tool.
//
// locklab runs a single contention benchmark against one of six mutual
// exclusion lock implementations (a plain sync.Mutex wrapper and five
// queue-based spinlock algorithms: TWA, MCS, CLH, Reciprocating, and
// Hapax) and prints a key-value report of its throughput and latency to
// stdout.
//
// Usage:
//
//	locklab --lock-kind mcs --threads 8 --duration-ms 2000
package main

import (
	"fmt"
	"os"

	"github.com/kolkov/locklab/internal/bench"
	"github.com/kolkov/locklab/logging"
)

func main() {
	for _, arg := range os.Args[1:] {
		if arg == "--help" || arg == "-h" {
			printUsage()
			os.Exit(0)
		}
	}

	cfg, err := bench.ParseArgs(os.Args[1:])
	if err != nil {
		fmt.Fprintln(os.Stderr, err.Error())
		os.Exit(1)
	}

	log := logging.New()
	logging.RunStart(log, string(cfg.LockKind), cfg.Threads)

	rep, err := bench.Run(*cfg)
	if err != nil {
		fmt.Fprintln(os.Stderr, err.Error())
		os.Exit(1)
	}

	warmupBudget := float64(cfg.WarmupDurationMs) / 1000
	if rep.WarmupElapsedSeconds > warmupBudget*1.5+0.05 {
		logging.ConvoyWarning(log, string(cfg.LockKind), cfg.WarmupDurationMs, rep.WarmupElapsedSeconds)
	}

	if err := bench.WriteReport(os.Stdout, rep); err != nil {
		fmt.Fprintln(os.Stderr, err.Error())
		os.Exit(1)
	}

	logging.RunDone(log, rep.TotalOperations, rep.ElapsedSeconds)
}

func printUsage() {
	fmt.Print(`locklab - lock contention benchmark

USAGE:
    locklab [flags]

FLAGS:
    --lock-kind NAME              mutex, reciprocating, hapax, mcs, twa, clh (default mutex)
    --threads N                   number of contending goroutines (default 4)
    --duration-ms N                measurement phase length (default 1000)
    --warmup-duration-ms N         warm-up phase length (default 200)
    --critical-iters N             simulated work inside the critical section (default 100)
    --outside-iters N              simulated work outside the critical section (default 100)
    --timing-sample-stride N       sample one in every N iterations for latency stats (default 1)
    --help, -h                     show this help message

OUTPUT:
    One "key: value" line per stdout row: lock_kind, threads, duration_ms,
    warmup_duration_ms, critical_iters, outside_iters, timing_sample_stride,
    total_operations, protected_counter, elapsed_seconds,
    throughput_ops_per_sec, avg_lock_hold_ns, avg_unlock_to_next_lock_ns_w0,
    avg_unlock_to_next_lock_ns_w_gt0, avg_waiters_before_lock, cpu_vendor,
    cpu_cache_line_bytes, cpu_cores.
`)
}
