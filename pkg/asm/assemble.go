// Package asm implements the two-pass text assembler and its inverse, the
// disassembler. The assembler tokenizes input lines, collects label
// definitions in a first pass, then dispatches each remaining line through
// a mnemonic table to emit one instruction word per line.
package asm

import (
	"encoding/binary"
	"fmt"
	"io"
	"strconv"

	"github.com/coretoy32/corevm/pkg/instr"
	"github.com/coretoy32/corevm/pkg/word"
)

// emitFunc parses a line's operand tokens and produces its encoded word.
// pc is the word offset of the instruction being emitted, used to resolve
// label references to relative offsets.
type emitFunc func(tokens []string, labels map[string]int64, pc int64) (word.Word, error)

var flagSuffixes = map[string]word.ComparisonFlag{
	"unc": word.Unc, "eq": word.Eq, "ne": word.Ne,
	"gt": word.Gt, "ge": word.Ge, "lt": word.Lt, "le": word.Le,
}

var mnemonics = buildMnemonics()

func buildMnemonics() map[string]emitFunc {
	m := map[string]emitFunc{
		"set":     emitSet,
		"add":     emitAdd,
		"sub":     emitSub,
		"halt":    emitHalt,
		"compare": emitCompare,
		"call":    emitCall,
		"load":    emitLoad(word.Width4),
		"store":   emitStore(word.Width4),
		"load.1":  emitLoad(word.Width1),
		"load.2":  emitLoad(word.Width2),
		"load.4":  emitLoad(word.Width4),
		"store.1": emitStore(word.Width1),
		"store.2": emitStore(word.Width2),
		"store.4": emitStore(word.Width4),
		"jump":    emitJump(word.Unc),
		"ijump":   emitIJump(word.Unc),
	}
	for suffix, flag := range flagSuffixes {
		m["jump."+suffix] = emitJump(flag)
		m["ijump."+suffix] = emitIJump(flag)
	}
	return m
}

// reservedWord reports whether name collides with a register or opcode
// mnemonic, which label definitions must not do.
func reservedWord(name string) bool {
	if _, ok := word.ParseRegister(name); ok {
		return true
	}
	if _, ok := word.ParseOpcode(name); ok {
		return true
	}
	return false
}

type buffered struct {
	lineNo int
	tokens []string
}

// Assemble runs the two-pass assembler over r and returns the resulting
// ROM image, or the first error encountered.
func Assemble(r io.Reader) ([]byte, error) {
	labels := make(map[string]int64)
	var body []buffered

	var pc int64
	for ln := range tokenize(r) {
		if name, ok := isLabelDefinition(ln.tokens); ok {
			if reservedWord(name) {
				return nil, fail(ln.number, "%w: label %q collides with a register or mnemonic", ErrMalformedProgram, name)
			}
			if _, dup := labels[name]; dup {
				return nil, fail(ln.number, "%w: duplicate label %q", ErrMalformedProgram, name)
			}
			labels[name] = pc
			continue
		}
		body = append(body, buffered{lineNo: ln.number, tokens: ln.tokens})
		pc++
	}

	image := make([]byte, 0, len(body)*word.Size)
	for pc, b := range body {
		emit, ok := mnemonics[b.tokens[0]]
		if !ok {
			return nil, fail(b.lineNo, "%w: unknown mnemonic %q", ErrMalformedProgram, b.tokens[0])
		}
		encoded, err := emit(b.tokens[1:], labels, int64(pc))
		if err != nil {
			return nil, fail(b.lineNo, "%w: %v", ErrMalformedProgram, err)
		}
		var buf [word.Size]byte
		binary.LittleEndian.PutUint32(buf[:], encoded)
		image = append(image, buf[:]...)
	}
	return image, nil
}

func parseReg(tok string) (word.Register, error) {
	r, ok := word.ParseRegister(tok)
	if !ok {
		return 0, fmt.Errorf("%q is not a register", tok)
	}
	return r, nil
}

func parseUint20(tok string) (word.Word, error) {
	v, err := strconv.ParseUint(tok, 10, 32)
	if err != nil {
		return 0, fmt.Errorf("%q is not an unsigned integer: %w", tok, err)
	}
	if word.Word(v) > instr.MaxSetValue {
		return 0, fmt.Errorf("%q exceeds the maximum set value %d", tok, instr.MaxSetValue)
	}
	return word.Word(v), nil
}

// parseOffset resolves a jump/call operand, either a label name or a
// literal signed byte offset, to the signed byte displacement from the
// word at pc.
func parseOffset(tok string, labels map[string]int64, pc int64) (word.SignedWord, error) {
	if target, ok := labels[tok]; ok {
		return word.SignedWord(target-pc) * word.SignedWord(word.Size), nil
	}
	v, err := strconv.ParseInt(tok, 10, 32)
	if err != nil {
		return 0, fmt.Errorf("%q is neither a defined label nor a signed integer", tok)
	}
	return word.SignedWord(v), nil
}

func wantOperands(tokens []string, n int, mnemonic string) error {
	if len(tokens) != n {
		return fmt.Errorf("%s expects %d operand(s), got %d", mnemonic, n, len(tokens))
	}
	return nil
}

func emitSet(tokens []string, _ map[string]int64, _ int64) (word.Word, error) {
	if err := wantOperands(tokens, 2, "set"); err != nil {
		return 0, err
	}
	dst, err := parseReg(tokens[0])
	if err != nil {
		return 0, err
	}
	value, err := parseUint20(tokens[1])
	if err != nil {
		return 0, err
	}
	return instr.NewSet(dst, value)
}

func emitLoad(width word.Width) emitFunc {
	return func(tokens []string, _ map[string]int64, _ int64) (word.Word, error) {
		if err := wantOperands(tokens, 2, "load"); err != nil {
			return 0, err
		}
		dst, err := parseReg(tokens[0])
		if err != nil {
			return 0, err
		}
		addr, err := parseReg(tokens[1])
		if err != nil {
			return 0, err
		}
		return instr.NewLoad(dst, addr, width)
	}
}

func emitStore(width word.Width) emitFunc {
	return func(tokens []string, _ map[string]int64, _ int64) (word.Word, error) {
		if err := wantOperands(tokens, 2, "store"); err != nil {
			return 0, err
		}
		addr, err := parseReg(tokens[0])
		if err != nil {
			return 0, err
		}
		src, err := parseReg(tokens[1])
		if err != nil {
			return 0, err
		}
		return instr.NewStore(addr, src, width)
	}
}

func emitAdd(tokens []string, _ map[string]int64, _ int64) (word.Word, error) {
	if err := wantOperands(tokens, 3, "add"); err != nil {
		return 0, err
	}
	regs, err := parseRegs(tokens)
	if err != nil {
		return 0, err
	}
	return instr.NewAdd(regs[0], regs[1], regs[2])
}

func emitSub(tokens []string, _ map[string]int64, _ int64) (word.Word, error) {
	if err := wantOperands(tokens, 3, "sub"); err != nil {
		return 0, err
	}
	regs, err := parseRegs(tokens)
	if err != nil {
		return 0, err
	}
	return instr.NewSub(regs[0], regs[1], regs[2])
}

func emitHalt(tokens []string, _ map[string]int64, _ int64) (word.Word, error) {
	if err := wantOperands(tokens, 0, "halt"); err != nil {
		return 0, err
	}
	return instr.NewHalt()
}

func emitCompare(tokens []string, _ map[string]int64, _ int64) (word.Word, error) {
	if err := wantOperands(tokens, 2, "compare"); err != nil {
		return 0, err
	}
	regs, err := parseRegs(tokens)
	if err != nil {
		return 0, err
	}
	return instr.NewCompare(regs[0], regs[1])
}

func emitJump(flag word.ComparisonFlag) emitFunc {
	return func(tokens []string, labels map[string]int64, pc int64) (word.Word, error) {
		if err := wantOperands(tokens, 1, "jump"); err != nil {
			return 0, err
		}
		offset, err := parseOffset(tokens[0], labels, pc)
		if err != nil {
			return 0, err
		}
		return instr.NewJump(flag, offset)
	}
}

func emitIJump(flag word.ComparisonFlag) emitFunc {
	return func(tokens []string, _ map[string]int64, _ int64) (word.Word, error) {
		if err := wantOperands(tokens, 1, "ijump"); err != nil {
			return 0, err
		}
		target, err := parseReg(tokens[0])
		if err != nil {
			return 0, err
		}
		return instr.NewIJump(flag, target)
	}
}

func emitCall(tokens []string, labels map[string]int64, pc int64) (word.Word, error) {
	if err := wantOperands(tokens, 1, "call"); err != nil {
		return 0, err
	}
	offset, err := parseOffset(tokens[0], labels, pc)
	if err != nil {
		return 0, err
	}
	return instr.NewCall(offset)
}

func parseRegs(tokens []string) ([]word.Register, error) {
	regs := make([]word.Register, len(tokens))
	for i, tok := range tokens {
		r, err := parseReg(tok)
		if err != nil {
			return nil, err
		}
		regs[i] = r
	}
	return regs, nil
}
