package mips32

import "fmt"

// regName is the classic MIPS assembler register-name table, reproduced
// from the reference interpreter's r2rn() so trace output matches the
// assembler convention named in §6.
var regName = [32]string{
	"$0", "$at", "$v0", "$v1", "$a0", "$a1", "$a2", "$a3",
	"$t0", "$t1", "$t2", "$t3", "$t4", "$t5", "$t6", "$t7",
	"$s0", "$s1", "$s2", "$s3", "$s4", "$s5", "$s6", "$s7",
	"$t8", "$t9", "$k0", "$k1", "$gp", "$sp", "$s8", "$ra",
}

// formatTrace renders one disassembled line per §6: the address and
// mnemonic/operands, followed by the ANSI right-aligned annotation the
// reference uses to line up a semantic note alongside columnar trace
// output.
func formatTrace(pc uint32, raw uint32, m *Machine) string {
	mnemonic, operands := disassemble(raw, pc)
	return fmt.Sprintf("0x%08x: \t%s\t%s\033[100D\033[65C[%08x]", pc, mnemonic, operands, raw)
}

// Disassemble exposes the trace formatter's mnemonic/operand decoder to
// offline tools (cmd/mips_disassemble) so a standalone listing can never
// drift from what cmemu itself prints while running.
func Disassemble(raw uint32, pc uint32) (string, string) {
	return disassemble(raw, pc)
}

// disassemble produces a best-effort mnemonic/operand pair for trace
// output; instructions the interpreter does not implement fall back to a
// raw word dump rather than failing the trace.
func disassemble(raw uint32, pc uint32) (string, string) {
	major := uint8((raw >> 26) & 0x3F)
	rs := uint8((raw >> 21) & 0x1F)
	rt := uint8((raw >> 16) & 0x1F)
	rd := uint8((raw >> 11) & 0x1F)
	sa := uint8((raw >> 6) & 0x1F)
	funct := uint8(raw & 0x3F)
	imm := uint16(raw & 0xFFFF)

	r := func(n uint8) string { return regName[n&0x1F] }

	switch major {
	case majorSPECIAL:
		switch funct {
		case functSLL:
			if raw == 0 {
				return "nop", ""
			}
			return "sll", fmt.Sprintf("%s, %s, %d", r(rd), r(rt), sa)
		case functSRL:
			return "srl", fmt.Sprintf("%s, %s, %d", r(rd), r(rt), sa)
		case functSRA:
			return "sra", fmt.Sprintf("%s, %s, %d", r(rd), r(rt), sa)
		case functJR:
			return "jr", r(rs)
		case functJALR:
			return "jalr", fmt.Sprintf("%s, %s", r(rd), r(rs))
		case functMFHI:
			return "mfhi", r(rd)
		case functMFLO:
			return "mflo", r(rd)
		case functADD:
			return "add", fmt.Sprintf("%s, %s, %s", r(rd), r(rs), r(rt))
		case functADDU:
			return "addu", fmt.Sprintf("%s, %s, %s", r(rd), r(rs), r(rt))
		case functSUB:
			return "sub", fmt.Sprintf("%s, %s, %s", r(rd), r(rs), r(rt))
		case functSUBU:
			return "subu", fmt.Sprintf("%s, %s, %s", r(rd), r(rs), r(rt))
		case functAND:
			return "and", fmt.Sprintf("%s, %s, %s", r(rd), r(rs), r(rt))
		case functOR:
			return "or", fmt.Sprintf("%s, %s, %s", r(rd), r(rs), r(rt))
		case functXOR:
			return "xor", fmt.Sprintf("%s, %s, %s", r(rd), r(rs), r(rt))
		case functNOR:
			return "nor", fmt.Sprintf("%s, %s, %s", r(rd), r(rs), r(rt))
		case functSLT:
			return "slt", fmt.Sprintf("%s, %s, %s", r(rd), r(rs), r(rt))
		case functSLTU:
			return "sltu", fmt.Sprintf("%s, %s, %s", r(rd), r(rs), r(rt))
		case functMULT:
			return "mult", fmt.Sprintf("%s, %s", r(rs), r(rt))
		case functMULTU:
			return "multu", fmt.Sprintf("%s, %s", r(rs), r(rt))
		case functDIV:
			return "div", fmt.Sprintf("%s, %s", r(rs), r(rt))
		case functDIVU:
			return "divu", fmt.Sprintf("%s, %s", r(rs), r(rt))
		default:
			return ".special", fmt.Sprintf("0x%02x", funct)
		}
	case majorREGIMM:
		names := map[uint8]string{
			regimmBLTZ: "bltz", regimmBGEZ: "bgez",
			regimmBLTZL: "bltzl", regimmBGEZL: "bgezl",
			regimmBLTZAL: "bltzal", regimmBGEZAL: "bgezal",
		}
		name, ok := names[rt]
		if !ok {
			name = ".regimm"
		}
		return name, fmt.Sprintf("%s, 0x%08x", r(rs), branchTarget(pc, imm))
	case majorJ:
		return "j", fmt.Sprintf("0x%08x", jumpTarget(pc, raw))
	case majorJAL:
		return "jal", fmt.Sprintf("0x%08x", jumpTarget(pc, raw))
	case majorBEQ:
		return "beq", fmt.Sprintf("%s, %s, 0x%08x", r(rs), r(rt), branchTarget(pc, imm))
	case majorBNE:
		return "bne", fmt.Sprintf("%s, %s, 0x%08x", r(rs), r(rt), branchTarget(pc, imm))
	case majorBLEZ:
		return "blez", fmt.Sprintf("%s, 0x%08x", r(rs), branchTarget(pc, imm))
	case majorBGTZ:
		return "bgtz", fmt.Sprintf("%s, 0x%08x", r(rs), branchTarget(pc, imm))
	case majorBEQL:
		return "beql", fmt.Sprintf("%s, %s, 0x%08x", r(rs), r(rt), branchTarget(pc, imm))
	case majorBNEL:
		return "bnel", fmt.Sprintf("%s, %s, 0x%08x", r(rs), r(rt), branchTarget(pc, imm))
	case majorBLEZL:
		return "blezl", fmt.Sprintf("%s, 0x%08x", r(rs), branchTarget(pc, imm))
	case majorBGTZL:
		return "bgtzl", fmt.Sprintf("%s, 0x%08x", r(rs), branchTarget(pc, imm))
	case majorADDI:
		return "addi", fmt.Sprintf("%s, %s, %d", r(rt), r(rs), int16(imm))
	case majorADDIU:
		return "addiu", fmt.Sprintf("%s, %s, %d", r(rt), r(rs), int16(imm))
	case majorSLTI:
		return "slti", fmt.Sprintf("%s, %s, %d", r(rt), r(rs), int16(imm))
	case majorSLTIU:
		return "sltiu", fmt.Sprintf("%s, %s, %d", r(rt), r(rs), int16(imm))
	case majorANDI:
		return "andi", fmt.Sprintf("%s, %s, 0x%x", r(rt), r(rs), imm)
	case majorORI:
		return "ori", fmt.Sprintf("%s, %s, 0x%x", r(rt), r(rs), imm)
	case majorXORI:
		return "xori", fmt.Sprintf("%s, %s, 0x%x", r(rt), r(rs), imm)
	case majorLUI:
		return "lui", fmt.Sprintf("%s, 0x%x", r(rt), imm)
	case majorCOP0:
		return disassembleCOP0(raw)
	case majorSPECIAL2:
		if funct == functMUL {
			return "mul", fmt.Sprintf("%s, %s, %s", r(rd), r(rs), r(rt))
		}
		return ".special2", fmt.Sprintf("0x%02x", funct)
	case majorLB:
		return "lb", fmt.Sprintf("%s, %d(%s)", r(rt), int16(imm), r(rs))
	case majorLBU:
		return "lbu", fmt.Sprintf("%s, %d(%s)", r(rt), int16(imm), r(rs))
	case majorLH:
		return "lh", fmt.Sprintf("%s, %d(%s)", r(rt), int16(imm), r(rs))
	case majorLHU:
		return "lhu", fmt.Sprintf("%s, %d(%s)", r(rt), int16(imm), r(rs))
	case majorLW:
		return "lw", fmt.Sprintf("%s, %d(%s)", r(rt), int16(imm), r(rs))
	case majorLWL:
		return "lwl", fmt.Sprintf("%s, %d(%s)", r(rt), int16(imm), r(rs))
	case majorLWR:
		return "lwr", fmt.Sprintf("%s, %d(%s)", r(rt), int16(imm), r(rs))
	case majorSB:
		return "sb", fmt.Sprintf("%s, %d(%s)", r(rt), int16(imm), r(rs))
	case majorSH:
		return "sh", fmt.Sprintf("%s, %d(%s)", r(rt), int16(imm), r(rs))
	case majorSW:
		return "sw", fmt.Sprintf("%s, %d(%s)", r(rt), int16(imm), r(rs))
	case majorSWL:
		return "swl", fmt.Sprintf("%s, %d(%s)", r(rt), int16(imm), r(rs))
	case majorSWR:
		return "swr", fmt.Sprintf("%s, %d(%s)", r(rt), int16(imm), r(rs))
	default:
		return ".word", fmt.Sprintf("0x%08x", raw)
	}
}

func disassembleCOP0(raw uint32) (string, string) {
	rs := uint8((raw >> 21) & 0x1F)
	rt := uint8((raw >> 16) & 0x1F)
	rd := uint8((raw >> 11) & 0x1F)
	funct := uint8(raw & 0x3F)

	switch rs {
	case cop0SubMF:
		return "mfc0", fmt.Sprintf("%s, $%d", regName[rt&0x1F], rd)
	case cop0SubMT:
		return "mtc0", fmt.Sprintf("%s, $%d", regName[rt&0x1F], rd)
	case cop0SubCO:
		switch funct {
		case cop0FunctERET:
			return "eret", ""
		case cop0FunctTLBWI:
			return "tlbwi", ""
		default:
			return ".cop0", fmt.Sprintf("0x%02x", funct)
		}
	default:
		return ".cop0", fmt.Sprintf("rs=0x%02x", rs)
	}
}

// branchTarget and jumpTarget take pc as the branch/jump instruction's own
// fetch address; per §4.E the formula's "pc" already points to the delay
// slot, so both add 4 before applying the offset/segment fold.
func branchTarget(pc uint32, imm uint16) uint32 {
	return pc + 4 + uint32(int32(int16(imm))<<2)
}

func jumpTarget(pc uint32, raw uint32) uint32 {
	return ((pc + 4) & 0xF0000000) | ((raw & 0x3FFFFFF) << 2)
}
