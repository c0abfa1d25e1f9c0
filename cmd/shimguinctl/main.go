// Command shimguinctl is a companion diagnostic tool, separate from the
// injected shim itself: an operator picking rule-set targets needs to see a
// shared object's dynamic symbols and relocations before writing a rule, and
// dry-run lets them preview what a rule set would patch without an actual
// LD_PRELOAD run. A single cobra root command with subcommands as
// flag-bearing RunE functions.
package main

import (
	"debug/elf"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/arch/x86/x86asm"

	"github.com/shimguin/shimguin-go/internal/elfsym"
	"github.com/shimguin/shimguin-go/internal/ruleset"
	"github.com/shimguin/shimguin-go/internal/uicolor"
)

// disasmWindow and disasmMaxInsns bound the preview decoded per symbol: just
// enough to show an operator the prologue shimguin would overwrite, not a
// full function disassembly.
const (
	disasmWindow   = 32
	disasmMaxInsns = 3
)

var showRelocs bool

func main() {
	root := &cobra.Command{
		Use:   "shimguinctl",
		Short: "Inspect and dry-run shimguin rule sets against shared objects",
	}

	inspectCmd := &cobra.Command{
		Use:   "inspect <shared-object>",
		Short: "List dynamic symbols (and, with --relocs, relocations) in a shared object",
		Args:  cobra.ExactArgs(1),
		RunE:  runInspect,
	}
	inspectCmd.Flags().BoolVar(&showRelocs, "relocs", false, "also list .rela.dyn/.rela.plt entries")
	root.AddCommand(inspectCmd)

	root.AddCommand(&cobra.Command{
		Use:   "dry-run <shared-object> <rules>",
		Short: "Show which symbols in a shared object a rule set would patch",
		Args:  cobra.ExactArgs(2),
		RunE:  runDryRun,
	})

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, uicolor.Error(err.Error()))
		os.Exit(1)
	}
}

func runInspect(cmd *cobra.Command, args []string) error {
	path := args[0]

	tbl, err := elfsym.Read(path)
	if err != nil {
		return err
	}

	fmt.Printf("%s: %d dynamic symbols\n", path, len(tbl.Symbols))
	for name, value := range tbl.Symbols {
		line := fmt.Sprintf("  %s  %s", uicolor.Address(value), uicolor.FuncName(name))
		if preview := disasmPreview(path, tbl.Machine, value); preview != "" {
			line += "  " + uicolor.Detail(preview)
		}
		fmt.Println(line)
	}

	if showRelocs {
		relocs, err := elfsym.Relocations(path)
		if err != nil {
			return err
		}
		fmt.Printf("\n%d relocations\n", len(relocs))
		for _, r := range relocs {
			sym := r.Symbol
			if sym == "" {
				sym = uicolor.Detail("(none)")
			}
			fmt.Printf("  %s  type=%d  addend=%d  %s\n", uicolor.Address(r.Offset), r.Type, r.Addend, sym)
		}
	}
	return nil
}

// disasmPreview decodes up to disasmMaxInsns instructions starting at value
// (the same bytes a patch would overwrite) and returns them colorized and
// semicolon-joined, or "" if machine isn't x86-64 (the only architecture
// x86asm can decode) or the bytes don't decode as valid instructions.
func disasmPreview(path string, machine elf.Machine, value uint64) string {
	if machine != elf.EM_X86_64 {
		return ""
	}
	code, err := elfsym.CodeBytes(path, value, disasmWindow)
	if err != nil || len(code) == 0 {
		return ""
	}

	var insns []string
	for i := 0; i < len(code) && len(insns) < disasmMaxInsns; {
		inst, err := x86asm.Decode(code[i:], 64)
		if err != nil || inst.Len == 0 {
			break
		}
		insns = append(insns, uicolor.Instruction(inst.String()))
		i += inst.Len
	}
	return strings.Join(insns, "; ")
}

func runDryRun(cmd *cobra.Command, args []string) error {
	path, ruleSpec := args[0], args[1]

	rules, err := ruleset.Parse(ruleSpec)
	if err != nil {
		return fmt.Errorf("parse rules: %w", err)
	}

	tbl, err := elfsym.Read(path)
	if err != nil {
		return err
	}

	matched := 0
	for _, name := range rules.Names() {
		value, ok := tbl.Lookup(name)
		if !ok {
			continue
		}
		repl, _ := rules.Get(name)
		fmt.Printf("  %s -> %s  at %s\n", uicolor.FuncName(name), uicolor.FuncName(repl), uicolor.Address(value))
		matched++
	}
	fmt.Printf("%s: %d/%d rules would match\n", path, matched, rules.Len())
	return nil
}
