// Package uicolor colorizes shimguinctl's diagnostic output: a Chroma-based
// approach to syntax-highlighting disassembly text, covering the handful of
// output kinds shimguinctl prints (addresses, symbol names, decoded
// instructions, errors).
package uicolor

import (
	"fmt"
	"os"
	"strings"

	"github.com/alecthomas/chroma/v2"
	"github.com/alecthomas/chroma/v2/formatters"
	"github.com/alecthomas/chroma/v2/lexers"
	"github.com/alecthomas/chroma/v2/styles"
)

// IsDisabled reports whether colorized output was suppressed, via this
// tool's own env var or the NO_COLOR convention.
func IsDisabled() bool {
	return os.Getenv("SHIMGUIN_NO_COLOR") != "" || os.Getenv("NO_COLOR") != ""
}

func getStyle() *chroma.Style {
	for _, name := range []string{"disasm-dark", "dracula", "monokai"} {
		if s := styles.Get(name); s != nil {
			return s
		}
	}
	return styles.Fallback
}

func getFormatter() chroma.Formatter {
	for _, name := range []string{"terminal16m", "terminal256"} {
		if f := formatters.Get(name); f != nil {
			return f
		}
	}
	return formatters.Fallback
}

// Instruction colorizes one decoded x86/arm assembly line. shimguinctl only
// ever targets the trampoline-bearing architectures internal/trampoline
// supports, none of which is arm64, so this always reaches for an
// x86/gas-family lexer.
func Instruction(insn string) string {
	if IsDisabled() {
		return insn
	}
	lexer := lexers.Get("nasm")
	if lexer == nil {
		lexer = lexers.Get("gas")
	}
	if lexer == nil {
		return insn
	}

	iterator, err := lexer.Tokenise(nil, insn)
	if err != nil {
		return insn
	}
	var buf strings.Builder
	if err := getFormatter().Format(&buf, getStyle(), iterator); err != nil {
		return insn
	}
	return strings.TrimSuffix(buf.String(), "\n")
}

// Address formats a runtime address in yellow.
func Address(addr uint64) string {
	if IsDisabled() {
		return fmt.Sprintf("0x%016x", addr)
	}
	return fmt.Sprintf("\033[38;2;255;200;0m0x%016x\033[0m", addr)
}

// FuncName formats a symbol name in yellow.
func FuncName(name string) string {
	if IsDisabled() {
		return name
	}
	return fmt.Sprintf("\033[38;2;255;200;0m%s\033[0m", name)
}

// Detail formats secondary detail text in light gray.
func Detail(s string) string {
	if IsDisabled() {
		return s
	}
	return fmt.Sprintf("\033[38;2;180;180;180m%s\033[0m", s)
}

// Error formats an error message in pink.
func Error(s string) string {
	if IsDisabled() {
		return s
	}
	return fmt.Sprintf("\033[38;2;255;128;192m%s\033[0m", s)
}
