//go:build amd64 || 386

package bench

import _ "unsafe"

//go:linkname cputicks runtime.cputicks
func cputicks() int64

// tick reads the runtime's own RDTSC-backed cycle counter, the same
// counter mutex_bench.cpp's ReadTsc wraps directly with an LFENCE-guarded
// __rdtsc() on this architecture family.
func tick() uint64 {
	return uint64(cputicks())
}
