package mips32

// Major opcodes (instruction[31:26]).
const (
	majorSPECIAL  = 0x00
	majorREGIMM   = 0x01
	majorJ        = 0x02
	majorJAL      = 0x03
	majorBEQ      = 0x04
	majorBNE      = 0x05
	majorBLEZ     = 0x06
	majorBGTZ     = 0x07
	majorADDI     = 0x08
	majorADDIU    = 0x09
	majorSLTI     = 0x0A
	majorSLTIU    = 0x0B
	majorANDI     = 0x0C
	majorORI      = 0x0D
	majorXORI     = 0x0E
	majorLUI      = 0x0F
	majorCOP0     = 0x10
	majorBEQL     = 0x14
	majorBNEL     = 0x15
	majorBLEZL    = 0x16
	majorBGTZL    = 0x17
	majorSPECIAL2 = 0x1C
	majorLB       = 0x20
	majorLH       = 0x21
	majorLWL      = 0x22
	majorLW       = 0x23
	majorLBU      = 0x24
	majorLHU      = 0x25
	majorLWR      = 0x26
	majorSB       = 0x28
	majorSH       = 0x29
	majorSWL      = 0x2A
	majorSW       = 0x2B
	majorSWR      = 0x2E
)

// SPECIAL funct codes (instruction[5:0] when major == SPECIAL).
const (
	functSLL     = 0x00
	functSRL     = 0x02
	functSRA     = 0x03
	functSLLV    = 0x04
	functSRLV    = 0x06
	functSRAV    = 0x07
	functJR      = 0x08
	functJALR    = 0x09
	functMFHI    = 0x10
	functMTHI    = 0x11
	functMFLO    = 0x12
	functMTLO    = 0x13
	functMULT    = 0x18
	functMULTU   = 0x19
	functDIV     = 0x1A
	functDIVU    = 0x1B
	functADD     = 0x20
	functADDU    = 0x21
	functSUB     = 0x22
	functSUBU    = 0x23
	functAND     = 0x24
	functOR      = 0x25
	functXOR     = 0x26
	functNOR     = 0x27
	functSLT     = 0x2A
	functSLTU    = 0x2B
)

// SPECIAL2 funct codes.
const functMUL = 0x02

// REGIMM sub-opcodes (instruction[20:16] when major == REGIMM).
const (
	regimmBLTZ   = 0x00
	regimmBGEZ   = 0x01
	regimmBLTZL  = 0x02
	regimmBGEZL  = 0x03
	regimmBLTZAL = 0x10
	regimmBGEZAL = 0x11 // encodes BAL when rs == 0
)

// COP0 "rs" sub-field selects MFC0/MTC0 versus the funct-coded group.
const (
	cop0SubMF  = 0x00
	cop0SubMT  = 0x04
	cop0SubCO  = 0x10 // ERET / TLB ops live under funct when rs == 0x10
)

const (
	cop0FunctTLBWI = 0x02
	cop0FunctERET  = 0x18
)
