package instr_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/coretoy32/corevm/pkg/instr"
	"github.com/coretoy32/corevm/pkg/word"
)

func TestSetRoundTrip(t *testing.T) {
	w, err := instr.NewSet(word.R3, 12345)
	require.NoError(t, err)
	assert.Equal(t, word.OpSet, instr.DecodeOpcode(w))
	dst, value := instr.DecodeSet(w)
	assert.Equal(t, word.R3, dst)
	assert.Equal(t, word.Word(12345), value)
}

func TestSetOverflow(t *testing.T) {
	_, err := instr.NewSet(word.R0, instr.MaxSetValue+1)
	assert.ErrorIs(t, err, instr.ErrEncodingOverflow)
}

func TestLoadStoreRoundTrip(t *testing.T) {
	w, err := instr.NewLoad(word.R1, word.R2, word.Width2)
	require.NoError(t, err)
	dst, addr, width, err := instr.DecodeLoad(w)
	require.NoError(t, err)
	assert.Equal(t, word.R1, dst)
	assert.Equal(t, word.R2, addr)
	assert.Equal(t, word.Width2, width)

	w, err = instr.NewStore(word.R4, word.R5, word.Width4)
	require.NoError(t, err)
	addr, src, width, err := instr.DecodeStore(w)
	require.NoError(t, err)
	assert.Equal(t, word.R4, addr)
	assert.Equal(t, word.R5, src)
	assert.Equal(t, word.Width4, width)
}

func TestArithRoundTrip(t *testing.T) {
	w, err := instr.NewAdd(word.R0, word.R1, word.R2)
	require.NoError(t, err)
	dst, lhs, rhs := instr.DecodeAdd(w)
	assert.Equal(t, word.R0, dst)
	assert.Equal(t, word.R1, lhs)
	assert.Equal(t, word.R2, rhs)

	w, err = instr.NewSub(word.R3, word.R4, word.R5)
	require.NoError(t, err)
	dst, lhs, rhs = instr.DecodeSub(w)
	assert.Equal(t, word.R3, dst)
	assert.Equal(t, word.R4, lhs)
	assert.Equal(t, word.R5, rhs)
}

func TestHaltAndCompare(t *testing.T) {
	w, err := instr.NewHalt()
	require.NoError(t, err)
	assert.Equal(t, word.OpHalt, instr.DecodeOpcode(w))

	w, err = instr.NewCompare(word.R6, word.R7)
	require.NoError(t, err)
	lhs, rhs := instr.DecodeCompare(w)
	assert.Equal(t, word.R6, lhs)
	assert.Equal(t, word.R7, rhs)
}

func TestJumpOffsetSignExtension(t *testing.T) {
	cases := []word.SignedWord{0, 4, -4, 1024, -1024, instr.JumpOffsetMax, instr.JumpOffsetMin}
	for _, off := range cases {
		w, err := instr.NewJump(word.Lt, off)
		require.NoError(t, err)
		flag, decoded := instr.DecodeJump(w)
		assert.Equal(t, word.Lt, flag)
		assert.Equal(t, off, decoded)
	}
}

func TestJumpOffsetOutOfRange(t *testing.T) {
	_, err := instr.NewJump(word.Unc, instr.JumpOffsetMax+word.SignedWord(word.Size))
	assert.ErrorIs(t, err, instr.ErrEncodingOverflow)

	_, err = instr.NewJump(word.Unc, instr.JumpOffsetMin-word.SignedWord(word.Size))
	assert.ErrorIs(t, err, instr.ErrEncodingOverflow)
}

func TestJumpOffsetMustBeAligned(t *testing.T) {
	_, err := instr.NewJump(word.Eq, 3)
	assert.ErrorIs(t, err, instr.ErrEncodingOverflow)
}

func TestIJumpRoundTrip(t *testing.T) {
	w, err := instr.NewIJump(word.Ge, word.R9)
	require.NoError(t, err)
	flag, target := instr.DecodeIJump(w)
	assert.Equal(t, word.Ge, flag)
	assert.Equal(t, word.R9, target)
}

func TestCallOffsetSignExtension(t *testing.T) {
	cases := []word.SignedWord{0, 4, -4, 4096, -4096, instr.CallOffsetMax, instr.CallOffsetMin}
	for _, off := range cases {
		w, err := instr.NewCall(off)
		require.NoError(t, err)
		assert.Equal(t, word.OpCall, instr.DecodeOpcode(w))
		assert.Equal(t, off, instr.DecodeCall(w))
	}
}

func TestCallOffsetOutOfRange(t *testing.T) {
	_, err := instr.NewCall(instr.CallOffsetMax + word.SignedWord(word.Size))
	assert.ErrorIs(t, err, instr.ErrEncodingOverflow)
}
