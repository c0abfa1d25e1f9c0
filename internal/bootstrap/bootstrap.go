// Package bootstrap wires every component together and is the single
// function cmd/shimguinso's pre-main constructor calls: build
// configuration, locate linker state, patch what's already loaded, then
// install a hook so future dlopen'd libraries get patched too.
package bootstrap

import (
	"fmt"
	"os"
	"runtime"

	"github.com/shimguin/shimguin-go/internal/elfsym"
	"github.com/shimguin/shimguin-go/internal/fatal"
	"github.com/shimguin/shimguin-go/internal/linkmap"
	"github.com/shimguin/shimguin-go/internal/patcher"
	"github.com/shimguin/shimguin-go/internal/rendezvous"
	"github.com/shimguin/shimguin-go/internal/resolver"
	"github.com/shimguin/shimguin-go/internal/ruleset"
	"github.com/shimguin/shimguin-go/internal/shimlog"
	"github.com/shimguin/shimguin-go/internal/trampoline"
)

// Env names the environment variables the bootstrap reads, kept here rather
// than scattered across call sites.
const (
	EnvRules    = "SHIMGUIN_SHIMS"
	EnvDenyList = "SHIMGUIN_DENYLIST"
	EnvDebug    = "SHIMGUIN_DEBUG"
)

// Run performs the four-step bootstrap:
//  1. build the Rule Set from SHIMGUIN_SHIMS
//  2. locate the rendezvous structure and assert it is CONSISTENT
//  3. walk the link map, patching every eligible object's matching symbols
//  4. install the rendezvous hook so future dlopen'd libraries are patched too
//
// Any failure here is unrecoverable and is routed through
// internal/fatal.Abort, which never returns. SHIMGUIN_SHIMS is required and
// non-empty (spec E4): an unset or empty variable aborts just as surely as a
// malformed one, there is no "nothing to do" no-op mode.
func Run() {
	shimlog.Init(os.Getenv(EnvDebug) != "")

	ruleSpec, ok := os.LookupEnv(EnvRules)
	if !ok || ruleSpec == "" {
		fatal.Abort("bootstrap", fmt.Errorf("%s is required and must be non-empty", EnvRules))
	}
	rules, err := ruleset.Parse(ruleSpec)
	if err != nil {
		fatal.Abort("bootstrap", fmt.Errorf("parse %s: %w", EnvRules, err))
	}
	denyList := ruleset.ParseDenyList(os.Getenv(EnvDenyList))

	arch, err := archFor(runtime.GOARCH)
	if err != nil {
		fatal.Abort("bootstrap", err)
	}

	d, err := rendezvous.Locate()
	if err != nil {
		fatal.Abort("bootstrap", fmt.Errorf("locate rendezvous: %w", err))
	}
	if d.State() != rendezvous.Consistent {
		fatal.Abort("bootstrap", fmt.Errorf("rendezvous state is %s at startup, expected CONSISTENT", d.State()))
	}

	patchPass(d, rules, denyList, arch)

	if err := rendezvous.Install(arch, d, func(d *rendezvous.Debug) int {
		return patchPass(d, rules, denyList, arch)
	}); err != nil {
		fatal.Abort("bootstrap", fmt.Errorf("install rendezvous hook: %w", err))
	}
}

// patchPass walks the link map once, patching every rule whose replacement
// resolves for every eligible object. It is idempotent: re-running it
// against an already-patched object installs the same trampoline again,
// which is a semantic no-op.
//
// An eligible object whose file cannot be opened or parsed as ELF, and a
// resolution, encoding, or patch failure for a matched symbol, are routed
// through fatal.Abort rather than skipped (an object with no dynamic symbol
// table is not a failure: elfsym.Read returns an empty table for it, which
// simply matches no rule): spec.md §7 makes resolution and
// memory-protection errors fatal with no partial-success path, so a rule
// whose replacement can't be found or whose trampoline can't be written
// takes the host process down instead of silently leaving it half-patched.
func patchPass(d *rendezvous.Debug, rules *ruleset.RuleSet, denyList map[string]bool, arch trampoline.Arch) int {
	patched := 0
	for _, obj := range linkmap.Walk(d) {
		if !linkmap.Eligible(obj, denyList) {
			if shimlog.L != nil {
				shimlog.L.Skip(obj.Path, "empty path or deny-listed")
			}
			continue
		}

		tbl, err := elfsym.Read(obj.Path)
		if err != nil {
			fatal.Abort("bootstrap", fmt.Errorf("read dynamic symbols of %s: %w", obj.Path, err))
		}

		for _, name := range rules.Names() {
			value, ok := tbl.Lookup(name)
			if !ok {
				continue
			}
			replName, _ := rules.Get(name)
			target, err := resolver.Resolve(replName)
			if err != nil {
				fatal.Abort("bootstrap", fmt.Errorf("resolve replacement %s for %s in %s: %w", replName, name, obj.Path, err))
			}
			if target == 0 {
				fatal.Abort("bootstrap", fmt.Errorf("resolve replacement %s for %s in %s: resolved to null address", replName, name, obj.Path))
			}

			pc := obj.LoadBias + uintptr(value)
			code, err := trampoline.Encode(arch, pc, target, true)
			if err != nil {
				fatal.Abort("bootstrap", fmt.Errorf("encode trampoline for %s in %s: %w", name, obj.Path, err))
			}
			if err := patcher.Write(pc, code); err != nil {
				fatal.Abort("bootstrap", fmt.Errorf("patch %s in %s: %w", name, obj.Path, err))
			}
			if shimlog.L != nil {
				shimlog.L.Patch(name, obj.Path, uint64(pc), uint64(target))
			}
			patched++
		}
	}
	return patched
}

func archFor(goarch string) (trampoline.Arch, error) {
	switch goarch {
	case "amd64":
		return trampoline.X86_64, nil
	case "arm":
		return trampoline.ARM, nil
	case "mips":
		return trampoline.MIPS, nil
	case "mipsle":
		return trampoline.MIPSLE, nil
	case "mips64", "mips64le":
		return trampoline.MIPS64, nil
	default:
		return 0, fmt.Errorf("bootstrap: unsupported GOARCH %q", goarch)
	}
}
