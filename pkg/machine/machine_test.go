package machine_test

import (
	"encoding/binary"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/coretoy32/corevm/pkg/asm"
	"github.com/coretoy32/corevm/pkg/machine"
	"github.com/coretoy32/corevm/pkg/word"
)

func runProgram(t *testing.T, src string) *machine.Machine {
	t.Helper()
	img, err := asm.Assemble(strings.NewReader(src))
	require.NoError(t, err)
	m := machine.New()
	require.NoError(t, m.InstallROM(img))
	require.NoError(t, m.Run())
	return m
}

func TestHelloWorld(t *testing.T) {
	src := "set r0 65536\n" +
		"set r1 104\n" + "store.1 r0 r1\n" + // 'h'
		"set r1 105\n" + "store.1 r0 r1\n" + // 'i'
		"halt\n"
	m := runProgram(t, src)
	assert.Equal(t, []byte("hi"), m.Console)
}

func TestAddFromRomValueIntoRam(t *testing.T) {
	// The data words 42 and 43 sit at word offset 64 of ROM (rom_base+256).
	src := `
set r0 82176
load.4 r1 r0
set r2 4
add r0 r0 r2
load.4 r2 r0
add r3 r1 r2
set r4 98304
store.4 r4 r3
load.4 r5 r4
halt
`
	img, err := asm.Assemble(strings.NewReader(src))
	require.NoError(t, err)
	rom := make([]byte, 66*word.Size)
	copy(rom, img)
	binary.LittleEndian.PutUint32(rom[64*word.Size:], 42)
	binary.LittleEndian.PutUint32(rom[65*word.Size:], 43)
	m := machine.New()
	require.NoError(t, m.InstallROM(rom))
	require.NoError(t, m.Run())
	assert.Equal(t, word.Word(85), m.Registers[word.R5])
}

func TestBackwardBranchLoopCountsToTen(t *testing.T) {
	src := `
set r0 0
set r1 10
set r2 1
loop:
add r0 r0 r2
compare r0 r1
jump.lt loop
halt
`
	m := runProgram(t, src)
	assert.Equal(t, word.Word(10), m.Registers[word.R0])
}

func TestCallAndReturnViaR15(t *testing.T) {
	src := `
call add_one
halt
add_one:
set r0 1
ijump.unc r15
`
	m := runProgram(t, src)
	assert.Equal(t, word.Word(1), m.Registers[word.R0])
}

// fibonacciProgram is a genuine recursive subroutine: fib(0) = fib(1) = 1,
// fib(n) = fib(n-1) + fib(n-2). Every call spills the return address (r15)
// and the live argument (r0) to a RAM stack addressed by r14, since both
// are clobbered by the nested call before they're needed again; r12 holds
// the word-size stack-slot constant for the whole run. The result comes
// back in r13, per spec.md's end-to-end scenario.
const fibonacciProgram = `
set r14 98304
set r12 4
set r0 %d
call fib
halt
fib:
set r6 2
compare r0 r6
jump.lt base
store.4 r14 r15
add r14 r14 r12
store.4 r14 r0
add r14 r14 r12
set r7 1
sub r0 r0 r7
call fib
sub r14 r14 r12
load.4 r0 r14
store.4 r14 r13
add r14 r14 r12
set r8 2
sub r0 r0 r8
call fib
sub r14 r14 r12
load.4 r9 r14
add r13 r13 r9
sub r14 r14 r12
load.4 r15 r14
ijump.unc r15
base:
set r13 1
ijump.unc r15
`

func TestRecursiveFibonacciUsesCallStackInRAM(t *testing.T) {
	cases := []struct{ n, want word.Word }{
		{1, 1}, {2, 2}, {3, 3}, {4, 5}, {5, 8},
	}
	for _, c := range cases {
		src := fmt.Sprintf(fibonacciProgram, c.n)
		m := runProgram(t, src)
		assert.Equal(t, c.want, m.Registers[word.R13], "fib(%d)", c.n)
		assert.Equal(t, word.Word(98304), m.Registers[word.R14], "stack pointer should return to ram_base for n=%d", c.n)
	}
}

func TestJumpFlagTruthTable(t *testing.T) {
	cases := []struct {
		flag     string
		lhs, rhs word.Word
		taken    bool
	}{
		{"eq", 3, 3, true}, {"eq", 3, 4, false},
		{"ne", 3, 4, true}, {"ne", 3, 3, false},
		{"gt", 5, 3, true}, {"gt", 3, 5, false},
		{"ge", 5, 5, true}, {"ge", 3, 5, false},
		{"lt", 3, 5, true}, {"lt", 5, 3, false},
		{"le", 3, 3, true}, {"le", 5, 3, false},
	}
	for _, c := range cases {
		src := buildFlagProgram(c.lhs, c.rhs, c.flag)
		m := runProgram(t, src)
		if c.taken {
			assert.Equal(t, word.Word(1), m.Registers[word.R2], "flag=%s lhs=%d rhs=%d", c.flag, c.lhs, c.rhs)
		} else {
			assert.Equal(t, word.Word(0), m.Registers[word.R2], "flag=%s lhs=%d rhs=%d", c.flag, c.lhs, c.rhs)
		}
	}
}

func buildFlagProgram(lhs, rhs word.Word, flag string) string {
	return "set r0 " + itoa(lhs) + "\n" +
		"set r1 " + itoa(rhs) + "\n" +
		"set r2 0\n" +
		"compare r0 r1\n" +
		"jump." + flag + " taken\n" +
		"jump.unc skip\n" +
		"taken:\n" +
		"set r2 1\n" +
		"skip:\n" +
		"halt\n"
}

func itoa(w word.Word) string {
	if w == 0 {
		return "0"
	}
	var digits []byte
	for w > 0 {
		digits = append([]byte{byte('0' + w%10)}, digits...)
		w /= 10
	}
	return string(digits)
}

func TestUnconditionalJumpIgnoresInvalidFlags(t *testing.T) {
	src := "jump.unc skip\nhalt\nskip:\nset r0 7\nhalt\n"
	m := runProgram(t, src)
	assert.Equal(t, word.Word(7), m.Registers[word.R0])
}

func TestConditionalJumpBeforeCompareIsFatal(t *testing.T) {
	img, err := asm.Assemble(strings.NewReader("jump.eq skip\nhalt\nskip:\nhalt\n"))
	require.NoError(t, err)
	m := machine.New()
	require.NoError(t, m.InstallROM(img))
	err = m.Run()
	assert.ErrorIs(t, err, machine.ErrFlagsInvalid)
}

func TestConsoleWriteRejectsNonByteWidth(t *testing.T) {
	img, err := asm.Assemble(strings.NewReader("set r0 65536\nset r1 1\nstore.4 r0 r1\nhalt\n"))
	require.NoError(t, err)
	m := machine.New()
	require.NoError(t, m.InstallROM(img))
	err = m.Run()
	assert.ErrorIs(t, err, machine.ErrBadAddress)
}

func TestRomWriteIsFatal(t *testing.T) {
	img, err := asm.Assemble(strings.NewReader("set r0 81920\nset r1 1\nstore.4 r0 r1\nhalt\n"))
	require.NoError(t, err)
	m := machine.New()
	require.NoError(t, m.InstallROM(img))
	err = m.Run()
	assert.ErrorIs(t, err, machine.ErrReadOnlyWrite)
}

func TestMisalignedAccessIsFatal(t *testing.T) {
	img, err := asm.Assemble(strings.NewReader("set r0 98305\nset r1 1\nstore.4 r0 r1\nhalt\n"))
	require.NoError(t, err)
	m := machine.New()
	require.NoError(t, m.InstallROM(img))
	err = m.Run()
	assert.ErrorIs(t, err, machine.ErrBadAlignment)
}

func TestRomOverflowIsFatal(t *testing.T) {
	m := machine.New()
	err := m.InstallROM(make([]byte, 1<<20))
	assert.ErrorIs(t, err, machine.ErrRomOverflow)
}

func TestBadOpcodeIsFatal(t *testing.T) {
	m := machine.New()
	require.NoError(t, m.InstallROM([]byte{0xff, 0, 0, 0}))
	err := m.Run()
	assert.ErrorIs(t, err, machine.ErrBadOpcode)
}

func TestResetClearsStateButKeepsRom(t *testing.T) {
	img, err := asm.Assemble(strings.NewReader("set r0 7\nhalt\n"))
	require.NoError(t, err)
	m := machine.New()
	require.NoError(t, m.InstallROM(img))
	require.NoError(t, m.Run())
	assert.Equal(t, word.Word(7), m.Registers[word.R0])

	m.Reset()
	assert.Equal(t, word.Word(0), m.Registers[word.R0])
	require.NoError(t, m.Run())
	assert.Equal(t, word.Word(7), m.Registers[word.R0])
}
