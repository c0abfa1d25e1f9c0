// Package fatal centralizes the shim's error propagation policy: every
// failure during bootstrap or a rendezvous-hook invocation is fatal. There is
// no recovery path — a shim that has patched some functions but failed on
// another is not in a well-defined state, so the host process is aborted
// rather than left running half-patched.
package fatal

import (
	"fmt"

	"github.com/shimguin/shimguin-go/internal/shimlog"
	"go.uber.org/zap"
)

// Abort logs a fatal diagnostic identifying the component and the
// underlying error, then terminates the process. It never returns.
//
// zap.Logger.Fatal calls os.Exit(1) after flushing, so in the normal case
// this function simply doesn't return. If the logger was never initialized
// (Init not yet called, e.g. in a test harness), fall back to panic so the
// constructor still aborts loudly instead of limping on half-patched.
func Abort(component string, err error) {
	if shimlog.L != nil {
		shimlog.L.Fatal("fatal",
			zap.String("component", component),
			zap.Error(err),
		)
	}
	panic(fmt.Sprintf("shimguin: fatal in %s: %v", component, err))
}
