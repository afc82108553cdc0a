//go:build amd64 || 386

package pause

import _ "unsafe" // for go:linkname

// onceHint executes a single PAUSE instruction by linking directly into the
// runtime's own procyield, the same primitive the Go scheduler uses to back
// off in its internal spinlocks. This is the technique lrita's MCS spinlock
// implementation uses (spinlock.go's "//go:linkname procyield
// runtime.procyield"); we link to a 1-cycle count instead of looping inside
// the runtime call so Once's cost matches a single call to the C++
// original's _mm_pause().
//
//go:linkname procyield runtime.procyield
func procyield(cycles uint32)

func onceHint() {
	procyield(1)
}
