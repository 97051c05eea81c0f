//go:build !tinygo

package core

// State is a placeholder for interrupt state on regular Go
type State uintptr

// disableInterrupts is a no-op on regular Go: the foreground loop and
// timer dispatch share one goroutine, so critical sections are trivially
// atomic. On real hardware this masks the axis capture interrupts.
func disableInterrupts() State {
	return 0
}

// restoreInterrupts is a no-op on regular Go
func restoreInterrupts(state State) {
}
