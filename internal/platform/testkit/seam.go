package testkit

import (
	"sync"
	"testing"
)

// seams guards package level hooks (newPool, ping, rename) that tests replace
var seams sync.Mutex

// Swap installs v into *hook until the test ends and returns the previous value,
// so a replacement can delegate to the real implementation
func Swap[T any](t testing.TB, hook *T, v T) T {
	t.Helper()
	prev := *hook
	*hook = v
	t.Cleanup(func() { *hook = prev })
	return prev
}

// Serial holds the seam lock for the rest of the test; call it before Swap in tests
// that may run in parallel with others touching the same hooks
func Serial(t testing.TB) {
	t.Helper()
	seams.Lock()
	t.Cleanup(seams.Unlock)
}
