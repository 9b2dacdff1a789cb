package instr

// field describes one bit field's position within a 32-bit instruction
// word: shift is the position of its least-significant bit, bits is its
// width. A format is an ordered list of fields that occupy contiguous bits
// from the LSB upward in declaration order — the value-level realization
// of the bitfield-builder idea from the original source: fields are added
// one at a time and each one's position is derived from the widths of the
// fields added before it.
type field struct {
	shift uint32
	bits  uint32
}

func (f field) mask() uint32 {
	return (uint32(1) << f.bits) - 1
}

func (f field) pack(value uint32) uint32 {
	return (value & f.mask()) << f.shift
}

func (f field) extract(w uint32) uint32 {
	return (w >> f.shift) & f.mask()
}

// format is a fixed layout of fields built by newFormat, LSB upward.
type format struct {
	fields []field
}

// newFormat builds a format from field widths listed LSB upward. The first
// width is conventionally the 8-bit opcode field shared by every
// instruction word.
func newFormat(widths ...uint32) format {
	f := format{fields: make([]field, len(widths))}
	var shift uint32
	for i, w := range widths {
		f.fields[i] = field{shift: shift, bits: w}
		shift += w
	}
	return f
}

// pack combines one value per field (LSB-upward order) into a word.
// Trailing unused fields may be omitted from values.
func (f format) pack(values ...uint32) uint32 {
	var out uint32
	for i, fl := range f.fields {
		if i < len(values) {
			out |= fl.pack(values[i])
		}
	}
	return out
}

// extract pulls a single field's value out of a word by index.
func (f format) extract(w uint32, index int) uint32 {
	return f.fields[index].extract(w)
}

// signExtend interprets the low bits-wide field of v as a two's-complement
// signed integer and sign-extends it to a full int32.
func signExtend(v uint32, bits uint32) int32 {
	shift := 32 - bits
	return int32(v<<shift) >> shift
}
