// Package word defines the machine's native 32-bit word type together with
// the small, closed vocabularies (registers, opcodes, comparison flags)
// that every other package in this module builds on.
package word

import "fmt"

// Word is the machine's native unsigned 32-bit unit.
type Word = uint32

// SignedWord is the two's-complement signed counterpart of Word.
type SignedWord = int32

// Size is the size in bytes of a Word. Instruction offsets are always
// multiples of Size.
const Size = 4

// Register names one of the 16 architectural registers r0..r15. By
// convention r15 is the return-address register used by call, and r14 is
// used by programs as a stack pointer; no register is architecturally
// privileged beyond r15.
type Register uint8

// The 16 architectural registers.
const (
	R0 Register = iota
	R1
	R2
	R3
	R4
	R5
	R6
	R7
	R8
	R9
	R10
	R11
	R12
	R13
	R14
	R15

	NumRegisters = 16
)

var registerNames = [NumRegisters]string{
	R0: "r0", R1: "r1", R2: "r2", R3: "r3",
	R4: "r4", R5: "r5", R6: "r6", R7: "r7",
	R8: "r8", R9: "r9", R10: "r10", R11: "r11",
	R12: "r12", R13: "r13", R14: "r14", R15: "r15",
}

// String returns the canonical textual form of a register ("r0".."r15"),
// or "invalid" if r is out of range.
func (r Register) String() string {
	if int(r) >= len(registerNames) {
		return "invalid"
	}
	return registerNames[r]
}

// ParseRegister converts a register name to its Register value. It
// returns false if name does not name a register.
func ParseRegister(name string) (Register, bool) {
	for i, n := range registerNames {
		if n == name {
			return Register(i), true
		}
	}
	return 0, false
}

// ComparisonFlag qualifies a jump or ijump instruction, selecting which
// outcome of the most recent compare triggers the transfer.
type ComparisonFlag uint8

// The instruction-level comparison flags.
const (
	Eq ComparisonFlag = iota
	Ne
	Gt
	Ge
	Lt
	Le
	Unc

	NumComparisonFlags = 7
)

var comparisonFlagNames = [NumComparisonFlags]string{
	Eq: "eq", Ne: "ne", Gt: "gt", Ge: "ge", Lt: "lt", Le: "le", Unc: "unc",
}

// String returns the canonical textual form of a comparison flag.
func (f ComparisonFlag) String() string {
	if int(f) >= len(comparisonFlagNames) {
		return "invalid"
	}
	return comparisonFlagNames[f]
}

// ParseComparisonFlag converts a flag name to its ComparisonFlag value.
func ParseComparisonFlag(name string) (ComparisonFlag, bool) {
	for i, n := range comparisonFlagNames {
		if n == name {
			return ComparisonFlag(i), true
		}
	}
	return 0, false
}

// Opcode identifies the operation encoded in the low 8 bits of every
// instruction word.
type Opcode uint8

// The closed set of opcodes.
const (
	OpSet Opcode = iota
	OpStore
	OpLoad
	OpAdd
	OpSub
	OpHalt
	OpCompare
	OpJump
	OpIJump
	OpCall

	NumOpcodes = 10
)

var opcodeNames = [NumOpcodes]string{
	OpSet: "set", OpStore: "store", OpLoad: "load", OpAdd: "add",
	OpSub: "sub", OpHalt: "halt", OpCompare: "compare", OpJump: "jump",
	OpIJump: "ijump", OpCall: "call",
}

// String returns the canonical mnemonic for an opcode.
func (op Opcode) String() string {
	if int(op) >= len(opcodeNames) {
		return "invalid"
	}
	return opcodeNames[op]
}

// ParseOpcode converts a mnemonic to its Opcode value.
func ParseOpcode(name string) (Opcode, bool) {
	for i, n := range opcodeNames {
		if n == name {
			return Opcode(i), true
		}
	}
	return 0, false
}

// Width is a load/store access width in bytes. Only 1, 2, and 4 are legal.
type Width uint8

// Legal access widths.
const (
	Width1 Width = 1
	Width2 Width = 2
	Width4 Width = 4
)

// WidthFromSelector converts a 2-bit encoded width selector (0, 1, 2) to
// its access width in bytes. Selector 3 is illegal.
func WidthFromSelector(sel uint32) (Width, error) {
	switch sel {
	case 0:
		return Width1, nil
	case 1:
		return Width2, nil
	case 2:
		return Width4, nil
	default:
		return 0, fmt.Errorf("word: illegal width selector %d", sel)
	}
}

// SelectorFromWidth is the inverse of WidthFromSelector.
func SelectorFromWidth(w Width) (uint32, error) {
	switch w {
	case Width1:
		return 0, nil
	case Width2:
		return 1, nil
	case Width4:
		return 2, nil
	default:
		return 0, fmt.Errorf("word: illegal access width %d", w)
	}
}
