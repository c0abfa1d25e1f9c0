package rendezvous

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/shimguin/shimguin-go/internal/cbridge"
	"github.com/shimguin/shimguin-go/internal/fatal"
	"github.com/shimguin/shimguin-go/internal/patcher"
	"github.com/shimguin/shimguin-go/internal/shimlog"
	"github.com/shimguin/shimguin-go/internal/trampoline"
)

// Handler is the function the rendezvous hook calls back into once it has
// confirmed the link map is CONSISTENT: the patch pass proper.
type Handler func(d *Debug) (patched int)

// Install writes a trampoline at d.Brk() that, when the dynamic linker
// invokes it on a state transition, guards on State() == Consistent and then
// calls handler. Every invocation that passes the guard reinstalls the
// trampoline after the patch pass, because nothing prevents the linker from
// overwriting that address itself between calls; an invocation that finds
// any other state returns at once and writes nothing. A reinstall failure is
// fatal.
//
// Each invocation is tagged with a fresh UUID purely for log correlation
// across the guard check, the patch pass, and any reinstall failure.
func Install(arch trampoline.Arch, d *Debug, handler Handler) error {
	resume := func() {
		id := uuid.NewString()
		state := d.State()
		if state != Consistent {
			if shimlog.L != nil {
				shimlog.L.Rendezvous(id, int32(state), 0)
			}
			return
		}

		patched := handler(d)
		if shimlog.L != nil {
			shimlog.L.Rendezvous(id, int32(state), patched)
		}

		if err := Install(arch, d, handler); err != nil {
			fatal.Abort("rendezvous", fmt.Errorf("reinstall failed (invocation %s): %w", id, err))
		}
	}

	// Go closures have no stable code address a foreign breakpoint could
	// jump to; cbridge exposes one fixed C-callable entrypoint
	// (goResumeDispatch) and a registration slot instead. Every rendezvous
	// hook trampoline targets that one address.
	cbridge.SetActiveResume(resume)
	target := cbridge.ResumeTrampolineAddr()
	if target == 0 {
		return fmt.Errorf("rendezvous: install: resume trampoline address unavailable (cgo required)")
	}

	code, err := trampoline.Encode(arch, d.Brk(), target, true)
	if err != nil {
		return fmt.Errorf("rendezvous: install: encode trampoline: %w", err)
	}
	return patcher.Write(d.Brk(), code)
}
