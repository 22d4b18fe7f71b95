// Command mips_disassemble is an offline companion to cmemu's live trace
// formatter: it walks a raw TCM410 fw.bin image, anchors it at the kseg1
// flash reset vector the Machine itself boots from, and prints one
// disassembled line per instruction word without executing anything. Useful
// for eyeballing a reset vector or a crash address before dropping into the
// interactive debug shell.
package main

import (
	"encoding/binary"
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/patriksevallius/tcm410emu-go/internal/mips32"
)

func main() {
	flag.Parse()

	if flag.NArg() != 1 {
		fmt.Println("Usage: mips_disassemble <firmware_image>")
		return
	}

	data, err := os.ReadFile(flag.Arg(0))
	if err != nil {
		log.Fatalf("reading firmware image: %v", err)
	}

	// fw.bin is always mapped at the kseg1 flash base (§4.A) and is always
	// big-endian (§1); there is no format to sniff, unlike the teacher's
	// generic ELF-or-raw disassembler.
	for i := 0; i+4 <= len(data); i += 4 {
		addr := mips32.ResetPC + uint32(i)
		inst := binary.BigEndian.Uint32(data[i : i+4])
		mnemonic, operands := mips32.Disassemble(inst, addr)
		fmt.Printf("0x%08X: 0x%08X\t%s\t%s\n", addr, inst, mnemonic, operands)
	}
}
