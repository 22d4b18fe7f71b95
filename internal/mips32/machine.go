// Package mips32 implements a user-space functional emulator for the MIPS32
// big-endian CPU core found in TCM410/SB5100-class cable modems: instruction
// fetch/decode/dispatch, the physical memory bus, a minimal CP0, the
// interrupt/timer model, and the debug shell that drives them from a
// terminal.
package mips32

import (
	"bufio"
	"fmt"
	"log"
	"os"
)

// resetPC is where kseg1 flash begins; firmware starts executing here.
const resetPC = 0x9FC00000

// ResetPC exposes the reset vector to offline tools (cmd/mips_disassemble)
// that need to anchor a raw fw.bin at the same kseg1 base the Machine boots
// from.
const ResetPC = resetPC

// Machine owns every piece of process-wide state the reference emulator
// kept as globals: CPU registers, CP0, the bus, the callback table, and the
// three debug flags. There is exactly one Machine per process and exactly
// one goroutine (Run) mutates it; other goroutines may only signal
// breakRequested (the keypress watcher in shell.go) or stopRequested (Stop).
type Machine struct {
	GPR [32]uint32
	HI  int32
	LO  int32
	PC  uint32

	prevPC [3]uint32

	delayedJump bool
	jumpPC      uint32

	cp0 *CP0
	Bus *Bus

	callbacks *callbackList

	debugTrace bool // "debug": print trace before each instruction
	running    bool // "run": free-running, shell not consulted
	stepping   bool // "step": single-step then re-enter shell

	breakRequested      chan struct{} // signalled by the keypress watcher in shell.go
	breakWatcherStarted bool
	stopRequested       chan struct{} // signalled by Stop (SIGINT/SIGTERM)

	in  *bufio.Reader
	out *bufio.Writer
	log *log.Logger
}

// NewMachine constructs a Machine with RAM, flash (loaded from fwPath), and
// the MMIO bank wired up, PC at the reset vector, and the two TCM410
// firmware hooks from the original build registered (see SPEC_FULL.md).
func NewMachine(fwPath string) (*Machine, error) {
	flash, err := newFlash(fwPath)
	if err != nil {
		return nil, err
	}

	m := &Machine{
		PC:             resetPC,
		cp0:            newCP0(),
		callbacks:      newCallbackList(),
		in:             bufio.NewReader(os.Stdin),
		out:            bufio.NewWriter(os.Stdout),
		log:            log.New(os.Stderr, "", 0),
		breakRequested: make(chan struct{}, 1),
		stopRequested:  make(chan struct{}),
	}
	m.Bus = newBus(flash, m.out, m.log)

	m.callbacks.register(0x8028bcf0, hookPrintString)
	m.callbacks.register(0x80268558, hookPrintfString)

	return m, nil
}

// TraceOn puts the Machine into the same free-running, trace-printing state
// as typing "drun" at the first shell prompt (§4.H); cmd/cmemu's -v flag
// uses this for trace-on-start (§6).
func (m *Machine) TraceOn() {
	m.running = true
	m.debugTrace = true
}

// GetReg enforces the reads-as-zero invariant for GPR[0].
func (m *Machine) GetReg(n uint8) uint32 {
	if n == 0 {
		return 0
	}
	return m.GPR[n&0x1F]
}

// SetReg enforces writes-ignored for GPR[0].
func (m *Machine) SetReg(n uint8, val uint32) {
	if n == 0 {
		return
	}
	m.GPR[n&0x1F] = val
}

// pushPC records the pre-advance PC into the sliding trace window (§3,
// prev_pc[3]: shift left, store current PC last). No hook in this package
// reads the window back; hookPrintfString does not consult it.
func (m *Machine) pushPC(pc uint32) {
	m.prevPC[0] = m.prevPC[1]
	m.prevPC[1] = m.prevPC[2]
	m.prevPC[2] = pc
}

// latchJump records a pending delay-slot transfer. It is consumed exactly
// once, at the top of the next fetch (§3 Delay-slot latch invariant).
func (m *Machine) latchJump(target uint32) {
	m.delayedJump = true
	m.jumpPC = target
}

// Run drives the top-level loop until told to stop by the shell ("anything
// else while not stepping" -> exit) or by an unimplemented/unknown opcode.
// Ordering within one cycle matches §5: interrupt eval -> callbacks -> shell
// -> fetch -> PC update -> decode -> execute -> CP0 Count tick.
func (m *Machine) Run() {
	for {
		select {
		case <-m.stopRequested:
			m.out.Flush()
			return
		default:
		}

		m.evaluateInterrupts()
		m.callbacks.dispatch(m)

		if !m.running {
			if !m.consultShell() {
				return
			}
		}

		select {
		case <-m.breakRequested:
			m.running = false
			m.debugTrace = true
			continue
		default:
		}

		m.step()

		if m.stepping {
			m.stepping = false
			m.running = false
		}
	}
}

// step performs exactly one fetch-execute-retire cycle.
func (m *Machine) step() {
	pc := m.PC
	m.pushPC(pc)

	var nextPC uint32
	skipDelay := false
	if m.delayedJump {
		nextPC = m.jumpPC
		m.delayedJump = false
	} else {
		nextPC = pc + 4
	}

	raw := m.Bus.LoadWord(pc)

	if m.debugTrace {
		fmt.Fprintln(m.out, formatTrace(pc, raw, m))
		m.out.Flush()
	}

	decoded := decode(raw)
	result := decoded.execute(m, pc)

	if result.halt {
		m.out.Flush()
		os.Exit(result.exitCode)
	}
	if result.exception {
		m.PC = result.target
		m.tickCP0()
		return
	}
	if result.branch {
		m.latchJump(result.target)
	}
	if result.extraSkip {
		skipDelay = true
	}

	if skipDelay {
		nextPC += 4
	}
	m.PC = nextPC
	m.tickCP0()
}

// tickCP0 advances Count and, on the tick where Count first reaches
// Compare, pulses the MMIO timer-tick debounce register (§4.F.1/§9).
func (m *Machine) tickCP0() {
	if m.cp0.tickCount() {
		m.Bus.mmio.tick()
	}
}

// evaluateInterrupts implements §4.F: timer + UART lines feed Cause, and if
// delivery conditions hold, PC is redirected to the exception vector.
func (m *Machine) evaluateInterrupts() {
	uartPending := m.Bus.mmio.uartTXInterruptPending()
	m.Bus.mmio.updateIRQStatus(uartPending)
	m.cp0.updateUARTLine(uartPending)
	if m.cp0.deliverable() {
		m.PC = m.cp0.enter(m.PC, m.delayedJump)
		m.delayedJump = false
	}
}

// consultShell implements §4.H: print trace if enabled, prompt, and parse
// one command line. runShell exits the process itself on an unrecognized
// command or EOF, so in practice this returns true.
func (m *Machine) consultShell() bool {
	return runShell(m)
}

// RequestBreak asks the running machine to drop back into the debug shell
// at the next cycle boundary; see shell.go's keypress watcher.
func (m *Machine) RequestBreak() {
	select {
	case m.breakRequested <- struct{}{}:
	default:
	}
}

// Stop asks the machine to exit at the next cycle boundary; wired from
// cmd/cmemu's signal handler the same way the teacher's cmd/mipsvm wires
// its own CPU.Stop().
func (m *Machine) Stop() {
	select {
	case <-m.stopRequested:
	default:
		close(m.stopRequested)
	}
}
