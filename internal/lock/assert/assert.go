// Package assert provides the debug-only precondition checks every lock in
// internal/lock except the plain mutexlock wrapper calls on its Release
// path. Checks compile away entirely in
// a normal build and only run when the module is built with the
// locklab_debug tag, the same opt-in-overhead shape as the original
// algorithms' own assert() calls in their C++ source (reciprocating.hpp in
// particular; see that package's Release for the direct ports).
package assert

// Check panics with msg if cond is false and the module was built with the
// locklab_debug tag. Every call site is written as a plain
// `assert.Check(cond, "message")`; with Enabled a compile-time false
// constant, the compiler folds the surrounding `if Enabled` away entirely
// in a release build, leaving only cond's own evaluation (the caller's
// comparison, not a function call) on the Release path.
func Check(cond bool, msg string) {
	if Enabled && !cond {
		panic("lock precondition violated: " + msg)
	}
}
