package mips32

import (
	"fmt"
)

// hookFunc is the "closed sum type" design note's concrete Go shape: a
// handler closure rather than an arbitrary function pointer, invoked with
// the full machine context (§9, "Function-pointer handlers").
type hookFunc func(m *Machine)

type callbackEntry struct {
	addr    uint32
	fn      hookFunc
	oneShot bool
}

// callbackList is a prepend-at-head list of (address, handler) pairs (§4.G).
// Lookup is O(n) per step; the reference expects n < 16, so no index is
// built.
type callbackList struct {
	entries []callbackEntry
}

func newCallbackList() *callbackList {
	return &callbackList{}
}

// register prepends a permanent callback, so it is visited before
// previously-registered entries at the same address (§4.G, "insertion-
// reverse order").
func (c *callbackList) register(addr uint32, fn hookFunc) {
	c.entries = append([]callbackEntry{{addr: addr, fn: fn}}, c.entries...)
}

// registerOneShot is used by the shell's `next` command for its
// self-removing re-entry point; `bp` registers a permanent entry instead.
func (c *callbackList) registerOneShot(addr uint32, fn hookFunc) {
	c.entries = append([]callbackEntry{{addr: addr, fn: fn, oneShot: true}}, c.entries...)
}

// dispatch invokes every handler whose address matches the current PC, in
// list (insertion-reverse) order, and drops any one-shot entries that fired.
func (c *callbackList) dispatch(m *Machine) {
	pc := m.PC
	kept := c.entries[:0]
	for _, e := range c.entries {
		if e.addr == pc {
			e.fn(m)
		}
		if !(e.addr == pc && e.oneShot) {
			kept = append(kept, e)
		}
	}
	c.entries = kept
}

// hookPrintString emits the NUL-terminated string pointed at by GPR[5]
// (§4.E "Firmware-side debug hooks").
func hookPrintString(m *Machine) {
	writeCString(m, m.GetReg(5))
}

// hookPrintChar emits the low byte of GPR[4].
func hookPrintChar(m *Machine) {
	m.out.WriteByte(byte(m.GetReg(4)))
	m.out.Flush()
}

func writeCString(m *Machine, addr uint32) {
	const maxLen = 4096
	for i := 0; i < maxLen; i++ {
		b := m.Bus.LoadByte(addr + uint32(i))
		if b == 0 {
			break
		}
		m.out.WriteByte(b)
	}
	m.out.Flush()
}

// hookPrintfString reimplements the firmware's printf hook as a bounds-
// checked mini-formatter: it never hands a raw emulated pointer to the host
// libc the way the reference does (§9 design note). It walks the fmt
// string at GPR[4] and consumes one argument register per conversion from
// GPR[5], GPR[6], GPR[7] in turn — the calling convention the firmware
// itself uses for its three variadic slots.
func hookPrintfString(m *Machine) {
	fmtAddr := m.GetReg(4)
	argRegs := [3]uint8{5, 6, 7}
	argIdx := 0
	nextArg := func() uint32 {
		if argIdx >= len(argRegs) {
			return 0
		}
		v := m.GetReg(argRegs[argIdx])
		argIdx++
		return v
	}

	const maxLen = 4096
	for i := 0; i < maxLen; i++ {
		c := m.Bus.LoadByte(fmtAddr + uint32(i))
		if c == 0 {
			break
		}
		if c != '%' {
			m.out.WriteByte(c)
			continue
		}
		i++
		if i >= maxLen {
			break
		}
		conv := m.Bus.LoadByte(fmtAddr + uint32(i))
		switch conv {
		case 'd':
			fmt.Fprintf(m.out, "%d", int32(nextArg()))
		case 'u':
			fmt.Fprintf(m.out, "%d", nextArg())
		case 'x':
			fmt.Fprintf(m.out, "%x", nextArg())
		case 'c':
			m.out.WriteByte(byte(nextArg()))
		case 's':
			writeCString(m, nextArg())
		case '%':
			m.out.WriteByte('%')
		default:
			m.out.WriteByte('%')
			m.out.WriteByte(conv)
		}
	}
	m.out.Flush()
}

// hookBreakpoint is the `bp` handler (§4.E): drop into the shell.
func hookBreakpoint(m *Machine) {
	m.running = false
	m.debugTrace = true
}
