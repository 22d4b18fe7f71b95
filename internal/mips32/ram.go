package mips32

// ram bytes span 0x8000_0000..0x8200_0000 (32 MiB), zero-initialized at
// start and addressed with the kseg0/kseg1 offset already folded out by the
// bus (§3 RAM).
type ram struct {
	data []byte
}

const ramSize = 32 * 1024 * 1024

func newRAM() *ram {
	return &ram{data: make([]byte, ramSize)}
}

// loadByte and storeByte are bounds-checked: a byte access anywhere in the
// 32-bit address space must succeed per §4.A, so an offset past the end of
// the 32 MiB backing slice (including the top few bytes of RAM reached by a
// word/halfword read straddling the boundary) reads as zero / drops the
// write instead of panicking.
func (r *ram) loadByte(addr uint32) byte {
	i := addr - ramStart
	if i >= ramSize {
		return 0
	}
	return r.data[i]
}

func (r *ram) storeByte(addr uint32, v byte) {
	i := addr - ramStart
	if i >= ramSize {
		return
	}
	r.data[i] = v
}
