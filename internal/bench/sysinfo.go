package bench

import (
	"github.com/klauspost/cpuid/v2"

	"github.com/kolkov/locklab/internal/lock/pause"
)

// SysInfo carries the CPU diagnostics the report adds alongside the
// original mutex_bench.cpp output (spec.md §6's output table plus the
// cpu_vendor/cpu_cache_line_bytes/cpu_cores fields documented in
// SPEC_FULL.md §12). These are informational only and never gate the
// documented pass/fail semantics of a run.
type SysInfo struct {
	Vendor         string
	CacheLineBytes int
	Cores          int
}

// DetectSysInfo reads CPU identification and topology via cpuid, the same
// library glycerine-uart's drwmutex.go uses to size its per-core lock
// striping, and publishes the detected cache line width to package pause
// so the value reported alongside a run's other diagnostics is the exact
// one pause.CacheLineBytes holds for the process, not an independent read.
func DetectSysInfo() SysInfo {
	line := cpuid.CPU.CacheLine
	if line <= 0 {
		line = 64
	}
	pause.CacheLineBytes = line

	return SysInfo{
		Vendor:         cpuid.CPU.VendorString,
		CacheLineBytes: line,
		Cores:          cpuid.CPU.PhysicalCores,
	}
}
