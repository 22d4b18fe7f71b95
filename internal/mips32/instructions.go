package mips32

import (
	"fmt"

	"github.com/patriksevallius/tcm410emu-go/internal/utils"
)

// execResult communicates the effect of one executed instruction back to
// the step loop: a latched delay-slot jump, a likely-branch's extra skip,
// or termination.
type execResult struct {
	branch        bool
	target        uint32
	extraSkip     bool // branch-likely, not taken: skip the delay slot
	halt          bool
	exitCode      int
	exception     bool // ERET: step sets m.PC to target directly, bypassing the delay-slot latch
}

type instruction interface {
	execute(m *Machine, pc uint32) execResult
}

// decode dispatches on the major opcode per §4.E: SPECIAL selects by funct,
// REGIMM by the rt sub-field, SPECIAL2 only implements MUL, everything else
// dispatches directly by major.
func decode(raw uint32) instruction {
	major := uint8((raw >> 26) & 0x3F)
	switch major {
	case majorSPECIAL:
		return rType{raw: raw}
	case majorREGIMM:
		return regimmInstr{raw: raw}
	case majorJ, majorJAL:
		return jType{raw: raw, link: major == majorJAL}
	case majorCOP0:
		return cop0Instr{raw: raw}
	case majorSPECIAL2:
		return special2Instr{raw: raw}
	default:
		return iType{raw: raw, major: major}
	}
}

func signExt16(imm uint16) int32 { return int32(int16(imm)) }

func unimplemented(name string, raw uint32, pc uint32) execResult {
	fmt.Printf("unimplemented instruction %s (0x%08x) at pc=0x%08x\n", name, raw, pc)
	return execResult{halt: true, exitCode: 1}
}

// unknownMajor reproduces the reference's three-way diagnostic dump before
// exiting with status 0 (§7, supplemented from original_source/emulator.c).
func unknownMajor(raw uint32, pc uint32) execResult {
	major := (raw >> 26) & 0x3F
	special := raw & 0x3F
	regimmSub := (raw >> 16) & 0x1F
	fmt.Printf("unknown opcode 0x%08x at pc=0x%08x: major=0x%02x special=0x%02x regimm=0x%02x\n",
		raw, pc, major, special, regimmSub)
	return execResult{halt: true, exitCode: 0}
}

// ---- R-type (SPECIAL) ----

type rType struct{ raw uint32 }

func (r rType) fields() (rs, rt, rd, sa, funct uint8) {
	return uint8((r.raw >> 21) & 0x1F), uint8((r.raw >> 16) & 0x1F),
		uint8((r.raw >> 11) & 0x1F), uint8((r.raw >> 6) & 0x1F), uint8(r.raw & 0x3F)
}

func (r rType) execute(m *Machine, pc uint32) execResult {
	rs, rt, rd, sa, funct := r.fields()

	switch funct {
	case functSLL:
		m.SetReg(rd, m.GetReg(rt)<<sa)
	case functSRL:
		m.SetReg(rd, m.GetReg(rt)>>sa)
	case functSRA:
		m.SetReg(rd, uint32(int32(m.GetReg(rt))>>sa))
	case functSLLV:
		m.SetReg(rd, m.GetReg(rt)<<(m.GetReg(rs)&0x1F))
	case functSRLV:
		m.SetReg(rd, m.GetReg(rt)>>(m.GetReg(rs)&0x1F))
	case functSRAV:
		m.SetReg(rd, uint32(int32(m.GetReg(rt))>>(m.GetReg(rs)&0x1F)))
	case functJR:
		return execResult{branch: true, target: m.GetReg(rs) &^ ksegMask}
	case functJALR:
		// Link value is the address after the delay slot (§4.E): pc is this
		// instruction's own fetch address, so the delay slot is pc+4 and the
		// return address is pc+8.
		m.SetReg(rd, pc+8)
		return execResult{branch: true, target: m.GetReg(rs) &^ ksegMask}
	case functMFHI:
		m.SetReg(rd, uint32(m.HI))
	case functMTHI:
		m.HI = int32(m.GetReg(rs))
	case functMFLO:
		m.SetReg(rd, uint32(m.LO))
	case functMTLO:
		m.LO = int32(m.GetReg(rs))
	case functMULT:
		prod := int64(int32(m.GetReg(rs))) * int64(int32(m.GetReg(rt)))
		m.LO, m.HI = int32(uint64(prod)&0xFFFFFFFF), int32(uint64(prod)>>32)
	case functMULTU:
		prod := uint64(m.GetReg(rs)) * uint64(m.GetReg(rt))
		m.LO, m.HI = int32(prod&0xFFFFFFFF), int32(prod>>32)
	case functDIV:
		rsv, rtv := int32(m.GetReg(rs)), int32(m.GetReg(rt))
		if rtv == 0 {
			m.LO, m.HI = 0, 0
		} else {
			m.LO, m.HI = rsv/rtv, rsv%rtv
		}
	case functDIVU:
		rsv, rtv := m.GetReg(rs), m.GetReg(rt)
		if rtv == 0 {
			m.LO, m.HI = 0, 0
		} else {
			m.LO, m.HI = int32(rsv/rtv), int32(rsv%rtv)
		}
	case functADD, functADDU:
		sum := m.GetReg(rs) + m.GetReg(rt)
		if funct == functADD && utils.CheckAdditionOverflow(int32(m.GetReg(rs)), int32(m.GetReg(rt)), int32(sum)) {
			m.log.Printf("add overflow at pc=0x%08x (trap not modeled)", pc)
		}
		m.SetReg(rd, sum)
	case functSUB, functSUBU:
		diff := m.GetReg(rs) - m.GetReg(rt)
		if funct == functSUB && utils.CheckSubtractionOverflow(int32(m.GetReg(rs)), int32(m.GetReg(rt)), int32(diff)) {
			m.log.Printf("sub overflow at pc=0x%08x (trap not modeled)", pc)
		}
		m.SetReg(rd, diff)
	case functAND:
		m.SetReg(rd, m.GetReg(rs)&m.GetReg(rt))
	case functOR:
		m.SetReg(rd, m.GetReg(rs)|m.GetReg(rt))
	case functXOR:
		m.SetReg(rd, m.GetReg(rs)^m.GetReg(rt))
	case functNOR:
		m.SetReg(rd, ^(m.GetReg(rs) | m.GetReg(rt)))
	case functSLT:
		if int32(m.GetReg(rs)) < int32(m.GetReg(rt)) {
			m.SetReg(rd, 1)
		} else {
			m.SetReg(rd, 0)
		}
	case functSLTU:
		if m.GetReg(rs) < m.GetReg(rt) {
			m.SetReg(rd, 1)
		} else {
			m.SetReg(rd, 0)
		}
	default:
		return unimplemented("SPECIAL", r.raw, pc)
	}
	return execResult{}
}

// ---- SPECIAL2 (only MUL) ----

type special2Instr struct{ raw uint32 }

func (s special2Instr) execute(m *Machine, pc uint32) execResult {
	rs := uint8((s.raw >> 21) & 0x1F)
	rt := uint8((s.raw >> 16) & 0x1F)
	rd := uint8((s.raw >> 11) & 0x1F)
	funct := uint8(s.raw & 0x3F)

	if funct != functMUL {
		return unimplemented("SPECIAL2", s.raw, pc)
	}
	prod := int64(int32(m.GetReg(rs))) * int64(int32(m.GetReg(rt)))
	m.SetReg(rd, uint32(prod))
	return execResult{}
}

// ---- REGIMM ----

type regimmInstr struct{ raw uint32 }

func (g regimmInstr) execute(m *Machine, pc uint32) execResult {
	rs := uint8((g.raw >> 21) & 0x1F)
	sub := uint8((g.raw >> 16) & 0x1F)
	imm := uint16(g.raw & 0xFFFF)
	target := branchTarget(pc, imm)
	rsv := int32(m.GetReg(rs))

	link := sub == regimmBLTZAL || sub == regimmBGEZAL
	if link {
		m.SetReg(31, pc+8) // return address is after the delay slot, see JALR
	}

	var taken bool
	likely := false
	switch sub {
	case regimmBLTZ, regimmBLTZAL:
		taken = rsv < 0
	case regimmBGEZ, regimmBGEZAL:
		taken = rsv >= 0
	case regimmBLTZL:
		taken, likely = rsv < 0, true
	case regimmBGEZL:
		taken, likely = rsv >= 0, true
	default:
		return unimplemented("REGIMM", g.raw, pc)
	}

	if taken {
		return execResult{branch: true, target: target}
	}
	if likely {
		return execResult{extraSkip: true}
	}
	return execResult{}
}

// ---- J-type ----

type jType struct {
	raw  uint32
	link bool
}

func (j jType) execute(m *Machine, pc uint32) execResult {
	target := jumpTarget(pc, j.raw)
	if j.link {
		m.SetReg(31, pc+8) // return address is after the delay slot, see JALR
	}
	return execResult{branch: true, target: target}
}

// ---- COP0 ----

type cop0Instr struct{ raw uint32 }

func (c cop0Instr) execute(m *Machine, pc uint32) execResult {
	rs := uint8((c.raw >> 21) & 0x1F)
	rt := uint8((c.raw >> 16) & 0x1F)
	rd := uint8((c.raw >> 11) & 0x1F)
	sel := uint8(c.raw & 0x7)
	funct := uint8(c.raw & 0x3F)

	switch rs {
	case cop0SubMF: // MFC0: GPR[rt] = CP0[rd][sel]
		m.SetReg(rt, m.cp0.Get(int(rd), int(sel)))
		return execResult{}
	case cop0SubMT:
		// MTC0 is a no-op in the reference; CP0 state is driven by the
		// interpreter/interrupt engine only (§4.D, §9 open question).
		return execResult{}
	case cop0SubCO:
		switch funct {
		case cop0FunctERET:
			return execResult{branch: false, exception: true, target: m.cp0.ERET()}
		case cop0FunctTLBWI:
			fmt.Printf("tlbwi (no-op) at pc=0x%08x\n", pc)
			return execResult{}
		default:
			return unimplemented("COP0", c.raw, pc)
		}
	default:
		return unimplemented("COP0", c.raw, pc)
	}
}

// ---- I-type (arithmetic-immediate, loads/stores, branches) ----

type iType struct {
	raw   uint32
	major uint8
}

func (it iType) execute(m *Machine, pc uint32) execResult {
	rs := uint8((it.raw >> 21) & 0x1F)
	rt := uint8((it.raw >> 16) & 0x1F)
	imm := uint16(it.raw & 0xFFFF)
	se := signExt16(imm)

	switch it.major {
	case majorADDI, majorADDIU:
		m.SetReg(rt, m.GetReg(rs)+uint32(se))
	case majorSLTI:
		// (unsigned)rs < (unsigned)(int)imm16 — reproduced verbatim from
		// the reference's asymmetric cast (§4.E, §9).
		if m.GetReg(rs) < uint32(se) {
			m.SetReg(rt, 1)
		} else {
			m.SetReg(rt, 0)
		}
	case majorSLTIU:
		if m.GetReg(rs) < uint32(uint16(se)) {
			m.SetReg(rt, 1)
		} else {
			m.SetReg(rt, 0)
		}
	case majorANDI:
		m.SetReg(rt, m.GetReg(rs)&uint32(imm))
	case majorORI:
		m.SetReg(rt, m.GetReg(rs)|uint32(imm))
	case majorXORI:
		m.SetReg(rt, m.GetReg(rs)^uint32(imm))
	case majorLUI:
		m.SetReg(rt, uint32(imm)<<16)

	case majorLB:
		m.SetReg(rt, uint32(int32(int8(m.Bus.LoadByte(addr(m, rs, se))))))
	case majorLBU:
		m.SetReg(rt, uint32(m.Bus.LoadByte(addr(m, rs, se))))
	case majorLH:
		m.SetReg(rt, uint32(int32(int16(m.Bus.LoadHalfword(addr(m, rs, se))))))
	case majorLHU:
		m.SetReg(rt, uint32(m.Bus.LoadHalfword(addr(m, rs, se))))
	case majorLW:
		m.SetReg(rt, m.Bus.LoadWord(addr(m, rs, se)))
	case majorSB:
		m.Bus.StoreByte(addr(m, rs, se), byte(m.GetReg(rt)))
	case majorSH:
		m.Bus.StoreHalfword(addr(m, rs, se), uint16(m.GetReg(rt)))
	case majorSW:
		m.Bus.StoreWord(addr(m, rs, se), m.GetReg(rt))
	case majorLWL:
		m.SetReg(rt, m.Bus.LWL(m.GetReg(rt), addr(m, rs, se)))
	case majorLWR:
		m.SetReg(rt, m.Bus.LWR(m.GetReg(rt), addr(m, rs, se)))
	case majorSWL:
		m.Bus.SWL(m.GetReg(rt), addr(m, rs, se))
	case majorSWR:
		m.Bus.SWR(m.GetReg(rt), addr(m, rs, se))

	case majorBEQ:
		return branchResult(m.GetReg(rs) == m.GetReg(rt), false, pc, imm)
	case majorBNE:
		return branchResult(m.GetReg(rs) != m.GetReg(rt), false, pc, imm)
	case majorBLEZ:
		return branchResult(int32(m.GetReg(rs)) <= 0, false, pc, imm)
	case majorBGTZ:
		return branchResult(int32(m.GetReg(rs)) > 0, false, pc, imm)
	case majorBEQL:
		return branchResult(m.GetReg(rs) == m.GetReg(rt), true, pc, imm)
	case majorBNEL:
		return branchResult(m.GetReg(rs) != m.GetReg(rt), true, pc, imm)
	case majorBLEZL:
		return branchResult(int32(m.GetReg(rs)) <= 0, true, pc, imm)
	case majorBGTZL:
		return branchResult(int32(m.GetReg(rs)) > 0, true, pc, imm)

	default:
		return unknownMajor(it.raw, pc)
	}
	return execResult{}
}

func addr(m *Machine, rs uint8, offset int32) uint32 {
	return uint32(int32(m.GetReg(rs)) + offset)
}

func branchResult(taken bool, likely bool, pc uint32, imm uint16) execResult {
	if taken {
		return execResult{branch: true, target: branchTarget(pc, imm)}
	}
	if likely {
		return execResult{extraSkip: true}
	}
	return execResult{}
}
