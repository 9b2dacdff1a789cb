package asm

import (
	"encoding/binary"
	"fmt"
	"strings"

	"github.com/coretoy32/corevm/pkg/instr"
	"github.com/coretoy32/corevm/pkg/word"
)

// Disassemble renders a ROM byte image as canonical assembly text, one
// instruction per line. Feeding the result back through Assemble produces
// a byte-identical image: widths are always spelled out with their .w
// suffix and jump/ijump always carry a flag suffix, including .unc, since
// the binary alone does not distinguish a bare mnemonic from its default.
// Labels are never reconstructed; jump and call offsets are rendered as
// literal signed byte displacements.
func Disassemble(rom []byte) (string, error) {
	if len(rom)%word.Size != 0 {
		return "", fmt.Errorf("%w: %d bytes", ErrBadDisasmInput, len(rom))
	}
	var out strings.Builder
	for off := 0; off < len(rom); off += word.Size {
		w := binary.LittleEndian.Uint32(rom[off : off+word.Size])
		line, err := disassembleOne(w)
		if err != nil {
			return "", fmt.Errorf("asm: word at byte %d: %w", off, err)
		}
		out.WriteString(line)
		out.WriteByte('\n')
	}
	return out.String(), nil
}

func disassembleOne(w word.Word) (string, error) {
	op := instr.DecodeOpcode(w)
	switch op {
	case word.OpSet:
		dst, value := instr.DecodeSet(w)
		return fmt.Sprintf("set %s %d", dst, value), nil
	case word.OpLoad:
		dst, addr, width, err := instr.DecodeLoad(w)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("load.%d %s %s", width, dst, addr), nil
	case word.OpStore:
		addr, src, width, err := instr.DecodeStore(w)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("store.%d %s %s", width, addr, src), nil
	case word.OpAdd:
		dst, lhs, rhs := instr.DecodeAdd(w)
		return fmt.Sprintf("add %s %s %s", dst, lhs, rhs), nil
	case word.OpSub:
		dst, lhs, rhs := instr.DecodeSub(w)
		return fmt.Sprintf("sub %s %s %s", dst, lhs, rhs), nil
	case word.OpHalt:
		return "halt", nil
	case word.OpCompare:
		lhs, rhs := instr.DecodeCompare(w)
		return fmt.Sprintf("compare %s %s", lhs, rhs), nil
	case word.OpJump:
		flag, offset := instr.DecodeJump(w)
		return fmt.Sprintf("jump.%s %d", flag, offset), nil
	case word.OpIJump:
		flag, target := instr.DecodeIJump(w)
		return fmt.Sprintf("ijump.%s %s", flag, target), nil
	case word.OpCall:
		offset := instr.DecodeCall(w)
		return fmt.Sprintf("call %d", offset), nil
	default:
		return "", fmt.Errorf("%w: unknown opcode %d", ErrBadDisasmInput, w&0xff)
	}
}
