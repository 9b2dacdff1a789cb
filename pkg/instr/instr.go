// Package instr implements the instruction codec: encoding each of the ten
// opcodes into a packed 32-bit word and decoding a word back into its
// operands. Every instruction word carries its opcode in the low 8 bits;
// the remaining 24 bits are interpreted according to that opcode's format.
package instr

import (
	"fmt"

	"github.com/coretoy32/corevm/pkg/word"
)

// ErrEncodingOverflow is returned by a constructor when an operand does not
// fit the bit width its field allows.
var ErrEncodingOverflow = fmt.Errorf("instr: value does not fit its encoding")

const opcodeBits = 8

var (
	fmtSet   = newFormat(opcodeBits, 4, 20)       // op, dst, value
	fmtLoad  = newFormat(opcodeBits, 4, 4, 2, 14) // op, dst, addr, width
	fmtStore = newFormat(opcodeBits, 4, 4, 2, 14) // op, addr, src, width
	fmtArith = newFormat(opcodeBits, 4, 4, 4, 12) // op, dst, lhs, rhs
	fmtHalt  = newFormat(opcodeBits, 24)          // op
	fmtCmp   = newFormat(opcodeBits, 4, 4, 16)    // op, lhs, rhs
	fmtJump  = newFormat(opcodeBits, 4, 20)       // op, flag, offset(words)
	fmtIJump = newFormat(opcodeBits, 4, 4, 16)    // op, flag, target
	fmtCall  = newFormat(opcodeBits, 24)          // op, offset(words)
)

// MaxSetValue is the largest immediate a set instruction can carry.
const MaxSetValue word.Word = (1 << 20) - 1

const (
	jumpOffsetBits = 20
	callOffsetBits = 24
)

// JumpOffsetMin and JumpOffsetMax bound the signed byte displacement a jump
// instruction can encode, once decoded from its word-unit field.
const (
	JumpOffsetMax = word.SignedWord(word.Size) * ((1 << (jumpOffsetBits - 1)) - 1)
	JumpOffsetMin = -JumpOffsetMax - word.SignedWord(word.Size)
)

// CallOffsetMin and CallOffsetMax bound the signed byte displacement a call
// instruction can encode.
const (
	CallOffsetMax = word.SignedWord(word.Size) * ((1 << (callOffsetBits - 1)) - 1)
	CallOffsetMin = -CallOffsetMax - word.SignedWord(word.Size)
)

func putOpcode(op word.Opcode) uint32 {
	return uint32(op)
}

// DecodeOpcode reads the opcode out of an instruction word without
// interpreting the rest of it. Callers dispatch on this before calling the
// opcode-specific decoder.
func DecodeOpcode(w word.Word) word.Opcode {
	return word.Opcode(w & 0xff)
}

// offsetToWords converts a byte displacement, which must be a multiple of
// word.Size and within [min,max], to the word-unit count the wire format
// stores.
func offsetToWords(bytes, min, max word.SignedWord) (uint32, error) {
	if bytes%word.SignedWord(word.Size) != 0 {
		return 0, fmt.Errorf("%w: offset %d is not word-aligned", ErrEncodingOverflow, bytes)
	}
	if bytes < min || bytes > max {
		return 0, fmt.Errorf("%w: offset %d out of range [%d,%d]", ErrEncodingOverflow, bytes, min, max)
	}
	return uint32(bytes / word.SignedWord(word.Size)), nil
}

func wordsToOffset(v uint32, bits uint32) word.SignedWord {
	return word.SignedWord(signExtend(v, bits)) * word.SignedWord(word.Size)
}

// NewSet encodes "set dst, value".
func NewSet(dst word.Register, value word.Word) (word.Word, error) {
	if value > MaxSetValue {
		return 0, fmt.Errorf("%w: set value %d exceeds %d", ErrEncodingOverflow, value, MaxSetValue)
	}
	return fmtSet.pack(putOpcode(word.OpSet), uint32(dst), uint32(value)), nil
}

// DecodeSet decodes a set instruction word.
func DecodeSet(w word.Word) (dst word.Register, value word.Word) {
	return word.Register(fmtSet.extract(w, 1)), fmtSet.extract(w, 2)
}

// NewLoad encodes "load dst, [addr], width".
func NewLoad(dst, addr word.Register, width word.Width) (word.Word, error) {
	sel, err := word.SelectorFromWidth(width)
	if err != nil {
		return 0, err
	}
	return fmtLoad.pack(putOpcode(word.OpLoad), uint32(dst), uint32(addr), sel), nil
}

// DecodeLoad decodes a load instruction word.
func DecodeLoad(w word.Word) (dst, addr word.Register, width word.Width, err error) {
	width, err = word.WidthFromSelector(fmtLoad.extract(w, 3))
	if err != nil {
		return 0, 0, 0, err
	}
	return word.Register(fmtLoad.extract(w, 1)), word.Register(fmtLoad.extract(w, 2)), width, nil
}

// NewStore encodes "store [addr], src, width".
func NewStore(addr, src word.Register, width word.Width) (word.Word, error) {
	sel, err := word.SelectorFromWidth(width)
	if err != nil {
		return 0, err
	}
	return fmtStore.pack(putOpcode(word.OpStore), uint32(addr), uint32(src), sel), nil
}

// DecodeStore decodes a store instruction word.
func DecodeStore(w word.Word) (addr, src word.Register, width word.Width, err error) {
	width, err = word.WidthFromSelector(fmtStore.extract(w, 3))
	if err != nil {
		return 0, 0, 0, err
	}
	return word.Register(fmtStore.extract(w, 1)), word.Register(fmtStore.extract(w, 2)), width, nil
}

// NewAdd encodes "add dst, lhs, rhs".
func NewAdd(dst, lhs, rhs word.Register) (word.Word, error) {
	return fmtArith.pack(putOpcode(word.OpAdd), uint32(dst), uint32(lhs), uint32(rhs)), nil
}

// DecodeAdd decodes an add instruction word.
func DecodeAdd(w word.Word) (dst, lhs, rhs word.Register) {
	return word.Register(fmtArith.extract(w, 1)), word.Register(fmtArith.extract(w, 2)), word.Register(fmtArith.extract(w, 3))
}

// NewSub encodes "sub dst, lhs, rhs".
func NewSub(dst, lhs, rhs word.Register) (word.Word, error) {
	return fmtArith.pack(putOpcode(word.OpSub), uint32(dst), uint32(lhs), uint32(rhs)), nil
}

// DecodeSub decodes a sub instruction word.
func DecodeSub(w word.Word) (dst, lhs, rhs word.Register) {
	return word.Register(fmtArith.extract(w, 1)), word.Register(fmtArith.extract(w, 2)), word.Register(fmtArith.extract(w, 3))
}

// NewHalt encodes "halt".
func NewHalt() (word.Word, error) {
	return fmtHalt.pack(putOpcode(word.OpHalt)), nil
}

// NewCompare encodes "compare lhs, rhs".
func NewCompare(lhs, rhs word.Register) (word.Word, error) {
	return fmtCmp.pack(putOpcode(word.OpCompare), uint32(lhs), uint32(rhs)), nil
}

// DecodeCompare decodes a compare instruction word.
func DecodeCompare(w word.Word) (lhs, rhs word.Register) {
	return word.Register(fmtCmp.extract(w, 1)), word.Register(fmtCmp.extract(w, 2))
}

// NewJump encodes "jump flag, offset", where offset is a signed byte
// displacement from the address of this instruction to the target.
func NewJump(flag word.ComparisonFlag, offsetBytes word.SignedWord) (word.Word, error) {
	words, err := offsetToWords(offsetBytes, JumpOffsetMin, JumpOffsetMax)
	if err != nil {
		return 0, err
	}
	return fmtJump.pack(putOpcode(word.OpJump), uint32(flag), words), nil
}

// DecodeJump decodes a jump instruction word, returning the signed byte
// displacement encoded in its offset field.
func DecodeJump(w word.Word) (flag word.ComparisonFlag, offsetBytes word.SignedWord) {
	flag = word.ComparisonFlag(fmtJump.extract(w, 1))
	offsetBytes = wordsToOffset(fmtJump.extract(w, 2), jumpOffsetBits)
	return flag, offsetBytes
}

// NewIJump encodes "ijump flag, target", an indirect jump to the address
// held in register target.
func NewIJump(flag word.ComparisonFlag, target word.Register) (word.Word, error) {
	return fmtIJump.pack(putOpcode(word.OpIJump), uint32(flag), uint32(target)), nil
}

// DecodeIJump decodes an ijump instruction word.
func DecodeIJump(w word.Word) (flag word.ComparisonFlag, target word.Register) {
	return word.ComparisonFlag(fmtIJump.extract(w, 1)), word.Register(fmtIJump.extract(w, 2))
}

// NewCall encodes "call offset", a PC-relative call that stores the return
// address in r15 before transferring control.
func NewCall(offsetBytes word.SignedWord) (word.Word, error) {
	words, err := offsetToWords(offsetBytes, CallOffsetMin, CallOffsetMax)
	if err != nil {
		return 0, err
	}
	return fmtCall.pack(putOpcode(word.OpCall), words), nil
}

// DecodeCall decodes a call instruction word, returning the signed byte
// displacement encoded in its offset field.
func DecodeCall(w word.Word) (offsetBytes word.SignedWord) {
	return wordsToOffset(fmtCall.extract(w, 1), callOffsetBits)
}
