// Command cmemu boots the cable-modem MIPS core against fw.bin in the
// current directory and drives it until the debug shell or the firmware
// itself ends the process.
package main

import (
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/patriksevallius/tcm410emu-go/internal/mips32"
)

func main() {
	verbose := flag.Bool("v", false, "trace-on-start (as typing drun first) and log lifecycle events to stderr")
	flag.Parse()

	printIfVerbose(*verbose, "Loading fw.bin...")
	machine, err := mips32.NewMachine("fw.bin")
	if err != nil {
		log.Fatalf("cmemu: %v", err)
	}
	if *verbose {
		machine.TraceOn()
	}

	done := make(chan struct{})

	printIfVerbose(*verbose, "Running core...")
	start := time.Now()

	go func() {
		machine.Run()
		close(done)
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	select {
	case <-sigCh:
		printIfVerbose(*verbose, "Signal received, stopping core...")
		machine.Stop()
		<-done
	case <-done:
	}

	printIfVerbose(*verbose, "Core stopped after %s", time.Since(start))
}

func printIfVerbose(verbose bool, format string, v ...interface{}) {
	if verbose {
		log.Printf(format, v...)
	}
}
