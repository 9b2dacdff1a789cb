// Package machine implements the fetch-decode-execute loop: the register
// file, comparison-flag state, instruction pointer, and the memory-access
// path shared by instruction fetch and every load/store.
package machine

import (
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/coretoy32/corevm/internal/corelog"
	"github.com/coretoy32/corevm/pkg/instr"
	"github.com/coretoy32/corevm/pkg/iomap"
	"github.com/coretoy32/corevm/pkg/word"
)

// Errors returned by Machine. Every one of them is fatal to the run that
// produced it: the canonical design aborts the process on any of these,
// but Machine itself only ever returns them, leaving the decision to abort
// to its caller (see cmd/corevm).
var (
	ErrBadAddress    = errors.New("machine: address outside any mapped region")
	ErrBadAlignment  = errors.New("machine: address misaligned for access width")
	ErrBadWidth      = errors.New("machine: illegal access width")
	ErrReadOnlyWrite = errors.New("machine: write to a read-only region")
	ErrBadOpcode     = errors.New("machine: unknown opcode")
	ErrFlagsInvalid  = errors.New("machine: conditional branch taken before any compare")
	ErrRomOverflow   = errors.New("machine: program image exceeds rom size")
)

// flags holds the CPU's runtime comparison state: eq/lt/gt plus a validity
// bit that is false until the first compare executes.
type flags struct {
	valid      bool
	eq, lt, gt bool
}

// Machine is one virtual CPU instance together with its owned ROM, RAM,
// and console buffers. It is not goroutine safe; a single goroutine should
// drive a given Machine.
type Machine struct {
	Registers [word.NumRegisters]word.Word
	IP        word.Word
	Console   []byte

	rom   []byte
	ram   []byte
	flags flags
}

// New returns a Machine with zeroed registers and memory, its instruction
// pointer set to the base of ROM.
func New() *Machine {
	return &Machine{
		IP:  iomap.RomBase,
		rom: make([]byte, iomap.RomSize),
		ram: make([]byte, iomap.RamSize),
	}
}

// InstallROM zero-fills the ROM buffer and copies image into it starting
// at offset 0. image may be shorter than RomSize; it must not exceed
// RomSize-1 bytes, mirroring the one-byte margin the canonical design
// reserves.
func (m *Machine) InstallROM(image []byte) error {
	if word.Word(len(image)) > iomap.RomSize-1 {
		return fmt.Errorf("%w: %d bytes exceeds %d", ErrRomOverflow, len(image), iomap.RomSize-1)
	}
	for i := range m.rom {
		m.rom[i] = 0
	}
	copy(m.rom, image)
	corelog.Debug("installed rom image of %d bytes", len(image))
	return nil
}

// Reset zeroes registers, RAM, and the console stream and rewinds the
// instruction pointer to the base of ROM, without touching the installed
// ROM image.
func (m *Machine) Reset() {
	m.Registers = [word.NumRegisters]word.Word{}
	m.IP = iomap.RomBase
	m.Console = nil
	for i := range m.ram {
		m.ram[i] = 0
	}
	m.flags = flags{}
}

// Run drives the fetch-decode-execute loop until a halt instruction
// executes or a fatal error occurs.
func (m *Machine) Run() error {
	for {
		raw, err := m.access(true, m.IP, word.Width4, 0)
		if err != nil {
			return fmt.Errorf("fetch at ip=%#x: %w", m.IP, err)
		}
		halted, err := m.step(word.Word(raw))
		if err != nil {
			return fmt.Errorf("execute at ip=%#x: %w", m.IP, err)
		}
		if halted {
			corelog.Info("halted at ip=%#x", m.IP)
			return nil
		}
		m.IP += word.Size
	}
}

func (m *Machine) step(w word.Word) (halted bool, err error) {
	op := instr.DecodeOpcode(w)
	corelog.Debug("step ip=%#x opcode=%s word=%#08x", m.IP, op, w)
	switch op {
	case word.OpSet:
		dst, value := instr.DecodeSet(w)
		m.Registers[dst] = value

	case word.OpLoad:
		dst, addrReg, width, derr := instr.DecodeLoad(w)
		if derr != nil {
			return false, fmt.Errorf("%w: %v", ErrBadWidth, derr)
		}
		value, aerr := m.access(true, m.Registers[addrReg], width, 0)
		if aerr != nil {
			return false, aerr
		}
		m.Registers[dst] = value

	case word.OpStore:
		addrReg, src, width, derr := instr.DecodeStore(w)
		if derr != nil {
			return false, fmt.Errorf("%w: %v", ErrBadWidth, derr)
		}
		if _, aerr := m.access(false, m.Registers[addrReg], width, m.Registers[src]); aerr != nil {
			return false, aerr
		}

	case word.OpAdd:
		dst, lhs, rhs := instr.DecodeAdd(w)
		m.Registers[dst] = m.Registers[lhs] + m.Registers[rhs]

	case word.OpSub:
		dst, lhs, rhs := instr.DecodeSub(w)
		m.Registers[dst] = m.Registers[lhs] - m.Registers[rhs]

	case word.OpCompare:
		lhs, rhs := instr.DecodeCompare(w)
		a, b := m.Registers[lhs], m.Registers[rhs]
		m.flags = flags{valid: true, eq: a == b, lt: a < b, gt: a > b}

	case word.OpJump:
		flag, offset := instr.DecodeJump(w)
		taken, terr := m.isTaken(flag)
		if terr != nil {
			return false, terr
		}
		if taken {
			m.IP = word.Word(word.SignedWord(m.IP) + offset - word.SignedWord(word.Size))
		}

	case word.OpIJump:
		flag, target := instr.DecodeIJump(w)
		taken, terr := m.isTaken(flag)
		if terr != nil {
			return false, terr
		}
		if taken {
			m.IP = m.Registers[target] - word.Size
		}

	case word.OpCall:
		offset := instr.DecodeCall(w)
		m.Registers[word.R15] = m.IP + word.Size
		m.IP = word.Word(word.SignedWord(m.IP) + offset - word.SignedWord(word.Size))

	case word.OpHalt:
		return true, nil

	default:
		return false, fmt.Errorf("%w: %d", ErrBadOpcode, w&0xff)
	}
	return false, nil
}

// isTaken evaluates a jump/ijump comparison flag against the current flag
// state. unc is always taken and never consults validity; every other
// flag requires a prior compare to have run.
func (m *Machine) isTaken(flag word.ComparisonFlag) (bool, error) {
	if flag == word.Unc {
		return true, nil
	}
	if !m.flags.valid {
		return false, ErrFlagsInvalid
	}
	switch flag {
	case word.Eq:
		return m.flags.eq, nil
	case word.Ne:
		return !m.flags.eq, nil
	case word.Gt:
		return m.flags.gt, nil
	case word.Ge:
		return m.flags.gt || m.flags.eq, nil
	case word.Lt:
		return m.flags.lt, nil
	case word.Le:
		return m.flags.lt || m.flags.eq, nil
	default:
		return false, fmt.Errorf("%w: comparison flag %d", ErrBadOpcode, flag)
	}
}

// access is the single memory-access path shared by instruction fetch and
// every load/store: it enforces alignment, region legality, and the
// read-only/write-only restrictions of each region, then moves width
// bytes between the addressed region and value (for a store) or returns
// the bytes read, zero-extended to a Word (for a load).
func (m *Machine) access(isLoad bool, addr word.Word, width word.Width, value word.Word) (word.Word, error) {
	if addr%word.Word(width) != 0 {
		return 0, fmt.Errorf("%w: address %#x width %d", ErrBadAlignment, addr, width)
	}

	switch {
	case !isLoad && width == word.Width1 && addr == iomap.ConsoleWrite:
		m.Console = append(m.Console, byte(value))
		return 0, nil

	case addr >= iomap.RamBase && addr <= iomap.RamBase+iomap.RamSize-word.Word(width):
		off := addr - iomap.RamBase
		if isLoad {
			return readLE(m.ram[off : off+word.Word(width)]), nil
		}
		writeLE(m.ram[off:off+word.Word(width)], value)
		return 0, nil

	case addr >= iomap.RomBase && addr <= iomap.RomBase+iomap.RomSize-word.Word(width):
		if !isLoad {
			return 0, fmt.Errorf("%w: address %#x", ErrReadOnlyWrite, addr)
		}
		off := addr - iomap.RomBase
		return readLE(m.rom[off : off+word.Word(width)]), nil

	default:
		return 0, fmt.Errorf("%w: address %#x", ErrBadAddress, addr)
	}
}

func readLE(buf []byte) word.Word {
	switch len(buf) {
	case 1:
		return word.Word(buf[0])
	case 2:
		return word.Word(binary.LittleEndian.Uint16(buf))
	case 4:
		return binary.LittleEndian.Uint32(buf)
	default:
		panic("machine: impossible access width")
	}
}

func writeLE(buf []byte, value word.Word) {
	switch len(buf) {
	case 1:
		buf[0] = byte(value)
	case 2:
		binary.LittleEndian.PutUint16(buf, uint16(value))
	case 4:
		binary.LittleEndian.PutUint32(buf, value)
	default:
		panic("machine: impossible access width")
	}
}
