//go:build locklab_debug

package assert

// Enabled is true when the module is built with `-tags locklab_debug`.
const Enabled = true
