// Package iomap defines the machine's static address-space map: the
// console, ROM, and RAM regions and their sizes. See the machine package for
// how these regions are enforced at access time.
package iomap

import "github.com/coretoy32/corevm/pkg/word"

// PageSize is the unit the console, ROM, and RAM regions are sized and
// based on.
const PageSize word.Word = 16384

// Console is write-only; the only legal access is a 1-byte store at
// ConsoleWrite, which appends one byte to the machine's console stream.
const (
	ConsoleBase  word.Word = PageSize * 4
	ConsoleWrite word.Word = ConsoleBase
	ConsoleSize  word.Word = PageSize
)

// Rom is read-only after the machine installs a program image into it.
const (
	RomBase word.Word = PageSize * 5
	RomSize word.Word = PageSize
)

// Ram is read-write for the lifetime of a run.
const (
	RamBase word.Word = PageSize * 6
	RamSize word.Word = PageSize
)

// Region names the address-space region a byte address falls in, for use
// in diagnostics. It returns ok=false for any address outside the three
// defined regions.
func Region(addr word.Word) (name string, ok bool) {
	switch {
	case addr >= ConsoleBase && addr < ConsoleBase+ConsoleSize:
		return "console", true
	case addr >= RomBase && addr < RomBase+RomSize:
		return "rom", true
	case addr >= RamBase && addr < RamBase+RamSize:
		return "ram", true
	default:
		return "", false
	}
}
