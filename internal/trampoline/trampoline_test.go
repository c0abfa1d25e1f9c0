package trampoline

import (
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/require"
	"golang.org/x/arch/x86/x86asm"
)

func TestEncodeX86_64Relative(t *testing.T) {
	pc := uintptr(0x401000)
	target := uintptr(0x401500)

	code, err := Encode(X86_64, pc, target, false)
	require.NoError(t, err)
	require.Len(t, code, x86RelativeLen)
	require.Equal(t, byte(0xE9), code[0])

	// Self-verify by disassembling the encoded bytes rather than just
	// reading back the raw opcode byte.
	inst, err := x86asm.Decode(code, 64)
	require.NoError(t, err)
	require.Equal(t, x86asm.JMP, inst.Op)
}

func TestEncodeX86_64AbsoluteFallback(t *testing.T) {
	pc := uintptr(0x1000)
	target := uintptr(0x7fffffffffff) // far beyond int32 relative range

	code, err := Encode(X86_64, pc, target, true)
	require.NoError(t, err)
	require.Len(t, code, x86AbsoluteLen)

	inst, err := x86asm.Decode(code, 64)
	require.NoError(t, err)
	require.Equal(t, x86asm.MOV, inst.Op)
}

func TestEncodeX86_64RangeExceededNoFallback(t *testing.T) {
	pc := uintptr(0x1000)
	target := uintptr(0x7fffffffffff)

	_, err := Encode(X86_64, pc, target, false)
	require.ErrorIs(t, err, ErrRelativeRangeExceeded)
}

func TestEncodeARM(t *testing.T) {
	pc := uintptr(0x8000)
	target := uintptr(0x8100)

	code, err := Encode(ARM, pc, target, false)
	require.NoError(t, err)
	require.Len(t, code, armLen)
	require.Equal(t, byte(0xEA), code[3])

	words := (int64(target) - int64(pc)) / 4 - 2
	got := int32(code[0]) | int32(code[1])<<8 | int32(code[2])<<16
	// sign-extend 24 bits
	if got&0x800000 != 0 {
		got |= ^int32(0xFFFFFF)
	}
	require.Equal(t, int32(words), got)
}

func TestEncodeARMUnaligned(t *testing.T) {
	_, err := Encode(ARM, 0x8000, 0x8001, false)
	require.Error(t, err)
}

func TestEncodeARMOutOfRange(t *testing.T) {
	_, err := Encode(ARM, 0, uintptr(1)<<26, false)
	require.ErrorIs(t, err, ErrBranchRangeExceeded)
}

func TestEncodeMIPS(t *testing.T) {
	// MIPS is the big-endian variant; MIPSLE the little-endian one. Both
	// share the same instruction fields, just serialized in opposite word
	// order, so encode both and check each against its own byte order.
	code, err := Encode(MIPS, 0, 0x12345678, false)
	require.NoError(t, err)
	require.Len(t, code, mipsLen)

	const tReg = 25
	wantJR := uint32(tReg<<21) | 0x08
	require.Equal(t, wantJR, binary.BigEndian.Uint32(code[8:12]))
	require.Equal(t, []byte{0, 0, 0, 0}, code[12:16]) // trailing nop

	codeLE, err := Encode(MIPSLE, 0, 0x12345678, false)
	require.NoError(t, err)
	require.Len(t, codeLE, mipsLen)
	require.Equal(t, wantJR, binary.LittleEndian.Uint32(codeLE[8:12]))
	require.NotEqual(t, code, codeLE)
}

func TestEncodeMIPS64(t *testing.T) {
	code, err := Encode(MIPS64, 0, 0x0123456789ABCDEF, false)
	require.NoError(t, err)
	require.Len(t, code, mips64Len)
}

func TestEncodeUnsupportedArch(t *testing.T) {
	_, err := Encode(Arch(99), 0, 0, false)
	require.ErrorIs(t, err, ErrUnsupportedArch)
}

func TestArchExhaustive(t *testing.T) {
	for _, a := range []Arch{X86_64, ARM, MIPS, MIPSLE, MIPS64} {
		_, err := Encode(a, 0x1000, 0x1010, true)
		require.NoErrorf(t, err, "Arch %s must be handled by Encode", a)
		_, err = MinLength(a)
		require.NoErrorf(t, err, "Arch %s must be handled by MinLength", a)
	}
}

func TestArchString(t *testing.T) {
	require.Equal(t, "x86-64", X86_64.String())
	require.Equal(t, "arm", ARM.String())
	require.Equal(t, "mips", MIPS.String())
	require.Equal(t, "mipsle", MIPSLE.String())
	require.Equal(t, "mips64", MIPS64.String())
}
