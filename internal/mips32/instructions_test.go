package mips32

import "testing"

func newBareMachine(t *testing.T) *Machine {
	t.Helper()
	m, _ := newTestMachine(t, nil)
	return m
}

func TestDecodeDispatchesByMajorOpcode(t *testing.T) {
	cases := []struct {
		name string
		raw  uint32
		want interface{}
	}{
		{"SPECIAL", 0x012A4020, rType{}},        // add $t0, $t1, $t2
		{"REGIMM", 0x04010000, regimmInstr{}},    // bgez $0, 0
		{"J", 0x08000010, jType{}},               // j 0x40
		{"COP0", 0x40056000, cop0Instr{}},        // mfc0 $5, $12
		{"SPECIAL2", 0x70000002, special2Instr{}}, // mul $0, $0, $0
		{"I-type", 0x21280005, iType{}},          // addi $t0, $t1, 5
	}
	for _, c := range cases {
		got := decode(c.raw)
		switch got.(type) {
		case rType:
			if _, ok := c.want.(rType); !ok {
				t.Errorf("%s: decoded as rType", c.name)
			}
		case regimmInstr:
			if _, ok := c.want.(regimmInstr); !ok {
				t.Errorf("%s: decoded as regimmInstr", c.name)
			}
		case jType:
			if _, ok := c.want.(jType); !ok {
				t.Errorf("%s: decoded as jType", c.name)
			}
		case cop0Instr:
			if _, ok := c.want.(cop0Instr); !ok {
				t.Errorf("%s: decoded as cop0Instr", c.name)
			}
		case special2Instr:
			if _, ok := c.want.(special2Instr); !ok {
				t.Errorf("%s: decoded as special2Instr", c.name)
			}
		case iType:
			if _, ok := c.want.(iType); !ok {
				t.Errorf("%s: decoded as iType", c.name)
			}
		default:
			t.Errorf("%s: unexpected decoded type %T", c.name, got)
		}
	}
}

func TestRTypeAddSubUnsignedWraparound(t *testing.T) {
	m := newBareMachine(t)
	m.SetReg(9, 0xFFFFFFFF)
	m.SetReg(10, 2)

	// add $t0, $t1, $t2 -> $t0 = $t1 + $t2, wraps with no trap
	decode(0x012A4020).execute(m, 0x9FC00000)
	if got := m.GetReg(8); got != 1 {
		t.Errorf("ADD wraparound = %d, want 1", got)
	}

	// sub $t0, $t2, $t1 -> 2 - 0xFFFFFFFF wraps to 3
	decode(0x01494022).execute(m, 0x9FC00000)
	if got := m.GetReg(8); got != 3 {
		t.Errorf("SUB wraparound result in $t0 = %d, want 3", got)
	}
}

func TestJALRLinksPastDelaySlot(t *testing.T) {
	m := newBareMachine(t)
	m.SetReg(4, 0x9FC01000)

	// jalr $ra, $a0  (rs=$a0=4, rd=$ra=31, funct=0x09)
	raw := uint32((0 << 26) | (4 << 21) | (0 << 16) | (31 << 11) | (0 << 6) | 0x09)
	res := decode(raw).execute(m, 0x9FC00100)
	if !res.branch || res.target != 0x9FC01000 {
		t.Fatalf("JALR branch target = 0x%08x, want 0x9FC01000", res.target)
	}
	if got := m.GetReg(31); got != 0x9FC00108 {
		t.Errorf("$ra = 0x%08x, want pc+8 = 0x9FC00108", got)
	}
}

func TestJJumpTargetFoldsSegmentFromDelaySlot(t *testing.T) {
	m := newBareMachine(t)
	// j targeting imm26=0x10 (word address 0x40)
	res := decode(0x08000010).execute(m, 0x9FC00000)
	if !res.branch {
		t.Fatal("J should always branch")
	}
	// The segment fold keeps only the top 4 bits of pc+4 (0x9...), not the
	// full kseg1 prefix, so the rest of the target comes purely from imm26.
	want := uint32(0x90000040)
	if res.target != want {
		t.Errorf("J target = 0x%08x, want 0x%08x", res.target, want)
	}
}

func TestMTC0IsANoOp(t *testing.T) {
	m := newBareMachine(t)
	m.SetReg(5, 0xAAAAAAAA)
	before := m.cp0.Get(12, 0)

	// mtc0 $5, $12 (rs=0x04, rt=5, rd=12)
	raw := uint32((0x10 << 26) | (0x04 << 21) | (5 << 16) | (12 << 11))
	decode(raw).execute(m, 0x9FC00000)

	if got := m.cp0.Get(12, 0); got != before {
		t.Errorf("MTC0 modified CP0[12][0]: got 0x%08x, want unchanged 0x%08x", got, before)
	}
}

func TestMFC0ReadsCP0Cell(t *testing.T) {
	m := newBareMachine(t)
	m.cp0.set(12, 0, 0x12345678)

	// mfc0 $5, $12 (rs=0x00, rt=5, rd=12)
	raw := uint32((0x10 << 26) | (0x00 << 21) | (5 << 16) | (12 << 11))
	decode(raw).execute(m, 0x9FC00000)

	if got := m.GetReg(5); got != 0x12345678 {
		t.Errorf("MFC0 = 0x%08x, want 0x12345678", got)
	}
}

func TestERETRestoresPCAndClearsEXL(t *testing.T) {
	m := newBareMachine(t)
	m.cp0.set(cp0Status, 0, statusEXL)
	m.cp0.eret = 0x9FC02000

	// eret: rs=0x10, funct=0x18
	raw := uint32((0x10 << 26) | (0x10 << 21) | 0x18)
	res := decode(raw).execute(m, 0x80000180)

	if !res.exception || res.target != 0x9FC02000 {
		t.Fatalf("ERET target = 0x%08x, want 0x9FC02000", res.target)
	}
	if m.cp0.status()&statusEXL != 0 {
		t.Error("ERET should clear Status.EXL")
	}
}

func TestUnknownMajorHalts(t *testing.T) {
	m := newBareMachine(t)
	// major 0x3F is not assigned to anything in §4.E.
	raw := uint32(0x3F << 26)
	res := decode(raw).execute(m, 0x9FC00000)
	if !res.halt {
		t.Error("unknown major opcode should request a halt")
	}
}
