package mips32

import (
	"fmt"
	"io"
	"log"
	"os"
)

// flash models the 2 MiB boot device plus the CFI/AMD-auto-select command
// state machine that overlays it once firmware starts probing for the part
// number (§4.B). The backing bytes are read-only after NewMachine loads the
// image; all writes are commands, never storage.
type flash struct {
	data [flashSize]byte

	cfiQuery   bool
	autoSelect bool

	pendingAA   bool // saw 0xAA @ 0xAAA, waiting for 0x55 @ 0x554
	pendingAA55 bool // saw the 0x55 too, waiting for 0x90 @ 0xAAA
}

const flashSize = 2 * 1024 * 1024

// newFlash reads fwPath (at most flashSize bytes, zero-padded) as the boot
// image. Per §6 there is no command-line override: the file is always named
// fw.bin in the working directory; callers pass that path in.
func newFlash(fwPath string) (*flash, error) {
	f := &flash{}

	file, err := os.Open(fwPath)
	if err != nil {
		return nil, fmt.Errorf("loading firmware image: %w", err)
	}
	defer file.Close()

	n, err := file.Read(f.data[:])
	if err != nil && err != io.EOF && n == 0 {
		return nil, fmt.Errorf("reading firmware image: %w", err)
	}
	return f, nil
}

// cfiTable holds the ST M29W160EB CFI query response, indexed by 16-bit
// word offset; a halfword read at byte offset `off` returns
// cfiTable[off>>1] packed into the high byte, matching the 'Q'=0x51 ->
// 0x5100 pattern the firmware's CFI parser expects.
var cfiTable = buildCFITable()

func buildCFITable() [256]byte {
	var t [256]byte

	// "QRY" signature at word offsets 0x10/0x11/0x12 (byte 0x20/0x22/0x24).
	t[0x10] = 'Q'
	t[0x11] = 'R'
	t[0x12] = 'Y'

	// Primary vendor command set: 0x0002 (AMD/Fujitsu standard command set).
	t[0x13] = 0x02
	t[0x14] = 0x00

	// Address of primary algorithm extended query table.
	t[0x15] = 0x40
	t[0x16] = 0x00

	// Device size: 2^0x15 = 2 MiB.
	t[0x27] = 0x15

	// Four erase block regions (byte offsets 0x5A-0x78, word 0x2D-0x3C):
	// 31 sectors of 64 KiB, then 8 sectors of 8 KiB, then the third and
	// fourth region descriptors below, matching the M29W160EB's top-boot
	// sector layout.
	t[0x2D], t[0x2E] = 0x1E, 0x00 // 31 sectors - 1
	t[0x2F], t[0x30] = 0x00, 0x01 // 64 KiB each
	t[0x31], t[0x32] = 0x07, 0x00 // 8 sectors - 1
	t[0x33], t[0x34] = 0x20, 0x00 // 8 KiB each
	t[0x35], t[0x36] = 0x01, 0x00
	t[0x37], t[0x38] = 0x00, 0x00
	t[0x39], t[0x3A] = 0x01, 0x00
	t[0x3B], t[0x3C] = 0x00, 0x02

	// "PRI" extended query signature at word offset 0x40/0x41/0x42.
	t[0x40] = 'P'
	t[0x41] = 'R'
	t[0x42] = 'I'

	return t
}

const (
	amdManufacturerID uint16 = 0x2000
)

// offset masks the low 21 bits, per §4.B ("offsets masked to the low 21
// bits").
func flashOffset(vaddr uint32) uint32 {
	return vaddr & 0x1FFFFF
}

// handleWrite advances the CFI/auto-select state machine (§4.B). Writes
// outside a recognized command sequence are logged and otherwise ignored.
func (f *flash) handleWrite(vaddr uint32, val uint32, logger *log.Logger) {
	off := flashOffset(vaddr)
	b := byte(val)

	switch {
	case off == 0x000 && (b == 0xF0 || b == 0xFF):
		f.cfiQuery = false
		f.autoSelect = false
	case off == 0x0AA && b == 0x98:
		f.cfiQuery = true
	case off == 0xAAA && b == 0xAA && !f.cfiQuery && !f.autoSelect:
		f.pendingAA = true
	case off == 0x554 && b == 0x55 && f.pendingAA:
		f.pendingAA55 = true
		f.pendingAA = false
	case off == 0xAAA && b == 0x90 && f.pendingAA55:
		f.autoSelect = true
		f.cfiQuery = true
		f.pendingAA55 = false
	default:
		f.pendingAA = false
		f.pendingAA55 = false
		logger.Printf("flash: write 0x%02x @ offset 0x%05x outside recognized command sequence", b, off)
	}
}

func (f *flash) readByte(vaddr uint32, logger *log.Logger) byte {
	off := flashOffset(vaddr)
	switch {
	case f.autoSelect:
		if off&1 != 0 {
			fatalUnexpected(logger, "flash auto-select byte read at odd offset 0x%05x", off)
		}
		return byte(amdManufacturerID >> 8)
	case f.cfiQuery:
		word := cfiTable[(off>>1)&0xFF]
		if off&1 == 0 {
			return word
		}
		return 0
	default:
		return f.data[off%flashSize]
	}
}

func (f *flash) readHalfword(vaddr uint32, logger *log.Logger) uint16 {
	off := flashOffset(vaddr)
	switch {
	case f.autoSelect:
		if off&1 != 0 {
			fatalUnexpected(logger, "flash auto-select halfword read at odd offset 0x%05x", off)
		}
		return amdManufacturerID
	case f.cfiQuery:
		return uint16(cfiTable[(off>>1)&0xFF]) << 8
	default:
		// off is already < flashSize (masked to the low 21 bits), but the
		// second byte of a halfword straddling the very last offset would
		// run past the backing array; wrap it rather than panic (§1, §4.A:
		// any access completes).
		i := off % flashSize
		return uint16(f.data[i])<<8 | uint16(f.data[(i+1)%flashSize])
	}
}

func (f *flash) readWord(vaddr uint32, logger *log.Logger) uint32 {
	if f.cfiQuery {
		return 0
	}
	hi := f.readHalfword(vaddr, logger)
	lo := f.readHalfword(vaddr+2, logger)
	return uint32(hi)<<16 | uint32(lo)
}

func fatalUnexpected(logger *log.Logger, format string, args ...interface{}) {
	logger.Printf("flash: unexpected "+format, args...)
	os.Exit(1)
}
