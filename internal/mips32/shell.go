package mips32

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/eiannone/keyboard"
	"golang.org/x/term"
)

// runShell implements §4.H: prompt, read one line, parse it. Returns true
// once a command resumes execution; an unrecognized command or EOF on stdin
// exits the process directly (§6/§7) instead of returning.
func runShell(m *Machine) bool {
	interactive := term.IsTerminal(int(os.Stdin.Fd()))
	if interactive {
		fmt.Fprint(m.out, "MIPS> ")
		m.out.Flush()
	}

	line, err := m.in.ReadString('\n')
	if err != nil && line == "" {
		m.out.Flush()
		os.Exit(0)
	}
	line = strings.TrimSpace(line)

	switch {
	case line == "run":
		m.running = true
		m.debugTrace = false
		m.watchForBreak()
	case line == "drun":
		m.running = true
		m.debugTrace = true
		m.watchForBreak()
	case line == "step" || line == "s":
		m.stepping = true
		m.debugTrace = true
		m.running = true // let the loop fall through to one step()
	case line == "next":
		target := m.PC + 4
		m.callbacks.registerOneShot(target, hookBreakpoint)
		m.running = true
	case strings.HasPrefix(line, "bp "):
		addrStr := strings.TrimSpace(strings.TrimPrefix(line, "bp "))
		addr, perr := strconv.ParseUint(addrStr, 0, 32)
		if perr != nil {
			m.log.Printf("shell: could not parse address %q", addrStr)
			return runShell(m)
		}
		m.callbacks.register(uint32(addr), hookBreakpoint)
		return runShell(m)
	default:
		m.out.Flush()
		if m.stepping {
			os.Exit(1)
		}
		os.Exit(0)
	}
	return true
}

// watchForBreak starts (at most once) a goroutine that waits for a single
// keystroke and asks the machine to drop back into the shell. This reuses
// the reference LC-3 trap handlers' use of github.com/eiannone/keyboard for
// raw single-key input; it only ever sets one flag the main loop consults
// once per cycle (see Machine.RequestBreak), so it does not add a second
// mutator of CPU state (§5).
func (m *Machine) watchForBreak() {
	if m.breakWatcherStarted {
		return
	}
	m.breakWatcherStarted = true
	go func() {
		for {
			_, key, err := keyboard.GetSingleKey()
			if err != nil {
				return
			}
			m.RequestBreak()
			if key == keyboard.KeyCtrlC {
				return
			}
		}
	}()
}
