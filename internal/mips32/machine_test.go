package mips32

import (
	"bufio"
	"bytes"
	"log"
	"os"
	"path/filepath"
	"testing"
)

// newTestMachine builds a Machine against a scratch fw.bin without touching
// the real filesystem layout cmemu expects, and with output captured in a
// buffer instead of going to the real stdout.
func newTestMachine(t *testing.T, firmware []byte) (*Machine, *bytes.Buffer) {
	t.Helper()

	dir := t.TempDir()
	path := filepath.Join(dir, "fw.bin")
	if err := os.WriteFile(path, firmware, 0o644); err != nil {
		t.Fatalf("writing scratch firmware: %v", err)
	}

	m, err := NewMachine(path)
	if err != nil {
		t.Fatalf("NewMachine: %v", err)
	}

	var out bytes.Buffer
	m.out = bufio.NewWriter(&out)
	m.Bus.mmio.out = m.out
	m.log = log.New(&bytes.Buffer{}, "", 0)
	m.Bus.log = m.log
	m.Bus.mmio.log = m.log
	return m, &out
}

func beWord(v uint32) []byte {
	return []byte{byte(v >> 24), byte(v >> 16), byte(v >> 8), byte(v)}
}

// TestMachineResetVectorIsFlashStart covers S1: PC starts at the kseg1 flash
// base and the first fetch reads the firmware image's first word.
func TestMachineResetVectorIsFlashStart(t *testing.T) {
	nop := beWord(0x00000000)
	m, _ := newTestMachine(t, nop)

	if m.PC != resetPC {
		t.Fatalf("PC = 0x%08x, want reset vector 0x%08x", m.PC, resetPC)
	}
	if got := m.Bus.LoadWord(m.PC); got != 0 {
		t.Errorf("first fetched word = 0x%08x, want 0 (nop)", got)
	}
}

// TestMachineBranchDelaySlotExecutesBeforeJump covers S2: the instruction
// after an unconditional branch still executes once before control
// transfers to the branch target.
func TestMachineBranchDelaySlotExecutesBeforeJump(t *testing.T) {
	m, _ := newTestMachine(t, nil)

	// beq $0, $0, 2         ; always taken, target = pc+4+(2<<2) = pc+12
	// addiu $t0, $0, 7      ; delay slot, must still execute
	// addiu $t0, $0, 99     ; skipped by the branch
	// addiu $t1, $0, 1      ; branch target
	beq := uint32(0x10000002)
	addiuT0_7 := uint32(0x24080007)
	addiuT0_99 := uint32(0x24080063)
	addiuT1_1 := uint32(0x24090001)

	raws := []uint32{beq, addiuT0_7, addiuT0_99, addiuT1_1}
	decoded := make([]instruction, len(raws))
	for i, raw := range raws {
		decoded[i] = decode(raw)
	}

	pc := uint32(0x9FC00000)
	res := decoded[0].execute(m, pc)
	if !res.branch {
		t.Fatal("beq $0,$0 should always be taken")
	}
	m.latchJump(res.target)

	pc += 4
	decoded[1].execute(m, pc) // delay slot executes unconditionally
	if got := m.GetReg(8); got != 7 {
		t.Fatalf("delay-slot instruction did not execute: $t0 = %d, want 7", got)
	}

	if !m.delayedJump {
		t.Fatal("delayed jump should still be latched after the delay slot")
	}
	pc = m.jumpPC
	if pc != 0x9FC00000+12 {
		t.Fatalf("branch target = 0x%08x, want 0x9FC0000C", pc)
	}
	decoded[3].execute(m, pc)
	if got := m.GetReg(9); got != 1 {
		t.Errorf("branch target instruction did not run: $t1 = %d, want 1", got)
	}
}

func TestMachineGPRZeroAlwaysReadsZero(t *testing.T) {
	m, _ := newTestMachine(t, nil)
	m.SetReg(0, 0xFFFFFFFF)
	if got := m.GetReg(0); got != 0 {
		t.Errorf("GPR[0] = %d, want 0 even after a write", got)
	}
}

// TestMachineUARTByteWriteGoesToStdout covers S3.
func TestMachineUARTByteWriteGoesToStdout(t *testing.T) {
	m, out := newTestMachine(t, nil)
	m.Bus.StoreByte(0xFFFE0317, 'A')
	m.out.Flush()
	if out.String() != "A" {
		t.Errorf("UART TX byte write produced %q, want \"A\"", out.String())
	}
}

// TestMachineUARTIRQStatusTracksCauseIP2 covers §4.F.2: the UART TX
// condition must set/clear IrqStatus bit 2 (MMIO-visible at 0xFFFE0010) and
// CP0.Cause.IP2 together, not just the Cause side.
func TestMachineUARTIRQStatusTracksCauseIP2(t *testing.T) {
	m, _ := newTestMachine(t, nil)
	m.Bus.mmio.storeHalfword(0xFFFE0310, 0x0020) // enable UART TX interrupt

	m.Bus.StoreByte(0xFFFE0317, 'A') // TX a byte, setting the pending bit
	m.evaluateInterrupts()

	if m.Bus.mmio.loadWord(0xFFFE0010)&irqStatusUARTBit == 0 {
		t.Error("IrqStatus bit 2 should be set once the UART TX interrupt is pending")
	}
	if m.cp0.cause()&causeIP2 == 0 {
		t.Error("Cause.IP2 should be set alongside IrqStatus bit 2")
	}
}

// TestMachineTimerCompareFiresIRQAndPulsesMMIO covers S4: once Count reaches
// Compare, Cause.IP7 is set, the interrupt is taken when IE permits it, and
// the MMIO debounce register reads 0xFF for the following two reads.
func TestMachineTimerCompareFiresIRQAndPulsesMMIO(t *testing.T) {
	m, _ := newTestMachine(t, nil)
	m.cp0.set(cp0Compare, 0, 1)
	m.cp0.set(cp0Status, 0, statusIE|statusCauseIMMask)

	m.tickCP0()

	if m.Bus.mmio.loadByte(0xFFFE0203) != 0xFF {
		t.Error("expected the timer-tick debounce register to read 0xFF right after the match")
	}
	if m.Bus.mmio.loadByte(0xFFFE0203) != 0xFF {
		t.Error("expected the debounce register to still read 0xFF on the second read")
	}
	if m.Bus.mmio.loadByte(0xFFFE0203) != 0x00 {
		t.Error("expected the debounce register to drop back to 0x00 on the third read")
	}

	m.evaluateInterrupts()
	if m.PC != 0x80000180 {
		t.Errorf("PC = 0x%08x, want the exception vector 0x80000180", m.PC)
	}
}

// TestMachineStopEndsRun drives Run() over a NOP sled (running free, so the
// shell is never consulted) and confirms Stop() breaks the loop without
// needing stdin input.
func TestMachineStopEndsRun(t *testing.T) {
	m, _ := newTestMachine(t, nil)
	m.running = true

	done := make(chan struct{})
	go func() {
		m.Run()
		close(done)
	}()
	m.Stop()
	<-done
}
