//go:build !cgo

package rendezvous

import (
	"testing"
	"unsafe"

	"github.com/shimguin/shimguin-go/internal/trampoline"
	"github.com/stretchr/testify/require"
)

// Without cgo there is no resume trampoline address to target, so Install
// must fail loudly rather than silently install a trampoline that jumps to
// address zero.
func TestInstallRequiresCgo(t *testing.T) {
	buf := make([]byte, 64)
	d := FromAddr(uintptr(unsafe.Pointer(&buf[0])))

	err := Install(trampoline.X86_64, d, func(*Debug) int { return 0 })
	require.Error(t, err)
}
