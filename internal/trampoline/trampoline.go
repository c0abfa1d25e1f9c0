// Package trampoline synthesizes the architecture-specific absolute jump
// sequences patched into a target function's prologue: the bytes that make
// "call the original function" become "call the replacement instead".
//
// Encoding logic is pure byte arithmetic with no architecture-specific
// assembly or syscalls, so unlike internal/cbridge this package carries no
// GOARCH build tags: tests on any host can exercise every Arch's encoder,
// not just whichever arch the test binary happens to run on.
package trampoline

import (
	"encoding/binary"
	"errors"
	"fmt"
)

// Arch identifies one of the architecture families this system can
// generate a trampoline for. It is a closed enum: Encode's switch is
// exhaustive and TestArchExhaustive asserts every constant below is
// handled.
type Arch int

const (
	X86_64 Arch = iota
	ARM
	MIPS
	MIPSLE
	MIPS64
)

func (a Arch) String() string {
	switch a {
	case X86_64:
		return "x86-64"
	case ARM:
		return "arm"
	case MIPS:
		return "mips"
	case MIPSLE:
		return "mipsle"
	case MIPS64:
		return "mips64"
	default:
		return fmt.Sprintf("Arch(%d)", int(a))
	}
}

// ErrUnsupportedArch is returned for any Arch value outside the closed set
// above (aarch64/arm64 included — this system is scoped to the four
// families above, not arm64).
var ErrUnsupportedArch = errors.New("trampoline: unsupported architecture")

// ErrRelativeRangeExceeded is returned by the x86-64 encoder's strict mode
// when the displacement does not fit in a 32-bit relative jump and the
// caller asked for the short form only (allowAbsoluteFallback == false).
var ErrRelativeRangeExceeded = errors.New("trampoline: x86-64 relative displacement exceeds int32 range")

// ErrBranchRangeExceeded is returned when an arm branch's 24-bit signed word
// offset cannot reach target (±32 MiB).
var ErrBranchRangeExceeded = errors.New("trampoline: arm branch displacement exceeds 24-bit range")

// MinLength is the worst-case number of bytes Encode may write for arch,
// i.e. the minimum prologue length a function must have to be patched
// safely. The patch pass does not consult it: no function is skipped for
// being shorter than this. For
// x86-64 this is the extended absolute-indirect form's length, since
// callers can't know ahead of encoding whether the short or long form will
// be used.
func MinLength(arch Arch) (int, error) {
	switch arch {
	case X86_64:
		return x86AbsoluteLen, nil
	case ARM:
		return armLen, nil
	case MIPS, MIPSLE:
		return mipsLen, nil
	case MIPS64:
		return mips64Len, nil
	default:
		return 0, ErrUnsupportedArch
	}
}

// Encode synthesizes the trampoline bytes to overwrite at pc so that
// execution jumps unconditionally to target. allowAbsoluteFallback governs
// only the x86-64 case: when the relative displacement doesn't fit in
// int32, true extends to a 12-byte absolute-indirect form, false returns
// ErrRelativeRangeExceeded instead.
func Encode(arch Arch, pc, target uintptr, allowAbsoluteFallback bool) ([]byte, error) {
	switch arch {
	case X86_64:
		return encodeX86_64(pc, target, allowAbsoluteFallback)
	case ARM:
		return encodeARM(pc, target)
	case MIPS:
		return encodeMIPS(target, binary.BigEndian)
	case MIPSLE:
		return encodeMIPS(target, binary.LittleEndian)
	case MIPS64:
		return encodeMIPS64(target)
	default:
		return nil, ErrUnsupportedArch
	}
}

const (
	x86RelativeLen = 5
	x86AbsoluteLen = 12
)

// encodeX86_64 emits a near relative jump (E9 + int32(target - pc - 5)),
// falling back to a movabs-rax/jmp-rax absolute form when the displacement
// overflows int32 and the caller allows it.
func encodeX86_64(pc, target uintptr, allowAbsoluteFallback bool) ([]byte, error) {
	delta := int64(target) - int64(pc) - x86RelativeLen
	if delta >= int64(minInt32) && delta <= int64(maxInt32) {
		buf := make([]byte, x86RelativeLen)
		buf[0] = 0xE9
		binary.LittleEndian.PutUint32(buf[1:], uint32(int32(delta)))
		return buf, nil
	}
	if !allowAbsoluteFallback {
		return nil, ErrRelativeRangeExceeded
	}
	// mov rax, imm64 (48 B8 imm64) ; jmp rax (FF E0)
	buf := make([]byte, x86AbsoluteLen)
	buf[0] = 0x48
	buf[1] = 0xB8
	binary.LittleEndian.PutUint64(buf[2:], uint64(target))
	buf[10] = 0xFF
	buf[11] = 0xE0
	return buf, nil
}

const armLen = 4

// encodeARM emits an unconditional branch B: a 24-bit signed relative word
// offset (target - pc)/4 - 2, tagged with the 0xEA condition/opcode byte.
// arm has no longer multi-instruction form the way mips does, so its
// 24-bit range limit is asserted here rather than extended.
func encodeARM(pc, target uintptr) ([]byte, error) {
	delta := int64(target) - int64(pc)
	if delta%4 != 0 {
		return nil, fmt.Errorf("trampoline: arm target not 4-byte aligned relative to pc")
	}
	words := delta/4 - 2
	const maxOffset = 1 << 23
	if words >= maxOffset || words < -maxOffset {
		return nil, ErrBranchRangeExceeded
	}
	offset := uint32(words) & 0x00FFFFFF
	buf := make([]byte, armLen)
	binary.LittleEndian.PutUint32(buf, offset|0xEA000000)
	return buf, nil
}

const mipsLen = 16

// encodeMIPS emits "lui $t9, hi16(target); ori $t9, lo16(target); jr $t9;
// nop", shared between mips and mipsle since both load the same absolute
// 32-bit value into the same register; only the instruction word's own byte
// order differs between the two at the CPU level, which is why the caller
// passes the word order in explicitly rather than this function assuming
// one (mips64's big-endian form is the only one encodeMIPS64 ever needs).
func encodeMIPS(target uintptr, order binary.ByteOrder) ([]byte, error) {
	t := uint32(target)
	hi := t >> 16
	lo := t & 0xFFFF

	const tReg = 25 // $t9
	lui := (0x0F << 26) | (tReg << 16) | hi
	ori := (0x0D << 26) | (tReg << 21) | (tReg << 16) | lo
	jr := uint32(tReg<<21) | 0x08
	nop := uint32(0)

	buf := make([]byte, mipsLen)
	order.PutUint32(buf[0:], lui)
	order.PutUint32(buf[4:], ori)
	order.PutUint32(buf[8:], jr)
	order.PutUint32(buf[12:], nop)
	return buf, nil
}

const mips64Len = 28

// encodeMIPS64 emits "lui; ori; dsll 16; ori; dsll 16; ori; jr $t9": seven
// 32-bit words building a full 64-bit absolute address into $t9 in four
// 16-bit chunks before jumping through it, big-endian. BigEndian governs
// only intra-word byte order, not the field layout of the instruction
// itself, which is architecture-defined. The branch delay slot is left to
// whatever instruction follows in the patched prologue rather than spending
// an eighth word on an explicit nop, which is how the seven-instruction
// sequence accounts for all 28 bytes.
func encodeMIPS64(target uintptr) ([]byte, error) {
	t := uint64(target)
	const tReg = 25 // $t9

	b0 := uint32(t >> 48)
	b1 := uint32(t>>32) & 0xFFFF
	b2 := uint32(t>>16) & 0xFFFF
	b3 := uint32(t) & 0xFFFF

	lui := (0x0F << 26) | (tReg << 16) | b0
	ori1 := (0x0D << 26) | (tReg << 21) | (tReg << 16) | b1
	dsll := uint32(tReg<<16) | (tReg << 11) | (16 << 6) | 0x38
	ori2 := (0x0D << 26) | (tReg << 21) | (tReg << 16) | b2
	ori3 := (0x0D << 26) | (tReg << 21) | (tReg << 16) | b3
	jr := uint32(tReg<<21) | 0x08

	buf := make([]byte, mips64Len)
	binary.BigEndian.PutUint32(buf[0:], lui)
	binary.BigEndian.PutUint32(buf[4:], ori1)
	binary.BigEndian.PutUint32(buf[8:], dsll)
	binary.BigEndian.PutUint32(buf[12:], ori2)
	binary.BigEndian.PutUint32(buf[16:], dsll)
	binary.BigEndian.PutUint32(buf[20:], ori3)
	binary.BigEndian.PutUint32(buf[24:], jr)
	return buf, nil
}

const (
	minInt32 = -1 << 31
	maxInt32 = 1<<31 - 1
)
