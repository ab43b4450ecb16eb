package factor

import (
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/peterh/liner"
)

// debugger.go: the `-fep` low-level debugger console (spec.md §6.2),
// entered before the startup quotation runs. Grounded on
// _examples/daios-ai-msg/cmd/msg/main.go's cmdRepl -- same
// liner.NewLiner/Prompt/Close loop, retargeted from evaluating source
// text to inspecting VM state, since this core has no source-level
// reader for the console to feed a parser.

const (
	fepPrompt = "fep> "
)

// RunDebuggerConsole drives an interactive liner session over vm,
// returning when the user types "continue" or "quit", or on EOF/Ctrl-D.
// vocab is used by "run WORD" to resolve a word by its source name.
func RunDebuggerConsole(vm *VM, vocab Vocabulary, in io.Reader, out io.Writer) error {
	fmt.Fprintln(out, "factorvm low-level debugger -- type help for commands")

	ln := liner.NewLiner()
	defer ln.Close()
	ln.SetCtrlCAborts(true)

	for {
		line, err := ln.Prompt(fepPrompt)
		if errors.Is(err, io.EOF) {
			fmt.Fprintln(out)
			return nil
		}
		if err != nil {
			return nil
		}
		ln.AppendHistory(line)

		fields := strings.Fields(line)
		if len(fields) == 0 {
			continue
		}
		cmd, rest := fields[0], fields[1:]
		switch cmd {
		case "help":
			printDebuggerHelp(out)
		case "continue", "quit", "c", "q":
			return nil
		case "stats":
			fmt.Fprintln(out, vm.DispatchStatsString())
		case "mem":
			vm.DumpMemoryLayout(out)
		case "data":
			printSegment(out, "data", vm.CurrentContext.DataStack, vm.Mem)
		case "retain":
			printSegment(out, "retain", vm.CurrentContext.RetainStack, vm.Mem)
		case "call":
			printSegment(out, "call", vm.CurrentContext.CallStack, vm.Mem)
		case "inspect":
			if len(rest) != 1 {
				fmt.Fprintln(out, "usage: inspect ADDR")
				continue
			}
			inspectAddr(out, vm, rest[0])
		case "gc":
			if len(rest) != 1 {
				fmt.Fprintln(out, "usage: gc nursery|full|compact")
				continue
			}
			runDebuggerGC(out, vm, rest[0])
		case "run":
			if len(rest) != 1 {
				fmt.Fprintln(out, "usage: run WORD")
				continue
			}
			word, ok := vocab[rest[0]]
			if !ok {
				fmt.Fprintf(out, "undefined word %q\n", rest[0])
				continue
			}
			if err := vm.Run(word); err != nil {
				fmt.Fprintln(out, err)
			}
		default:
			fmt.Fprintf(out, "unknown command %q, type help\n", cmd)
		}
	}
}

func printDebuggerHelp(out io.Writer) {
	fmt.Fprint(out, `commands:
  stats             print dispatch counters
  mem               print heap region occupancy
  data              print the data stack
  retain            print the retain stack
  call              print the call stack
  inspect ADDR      print the tagged value at data-heap address ADDR (0x-prefixed hex or decimal)
  gc nursery|full|compact   force a collection
  run WORD          call a word by name
  continue, quit    leave the debugger and proceed
`)
}

func printSegment(out io.Writer, name string, seg *Segment, mem *Memory) {
	depth := seg.Depth()
	fmt.Fprintf(out, "%s stack, depth %d:\n", name, depth)
	for i := depth - 1; i >= 0; i-- {
		addr := seg.Start + Cell(i)*CellSize
		fmt.Fprintf(out, "  [%d] 0x%x\n", i, mem.GetCell(addr))
	}
}

func inspectAddr(out io.Writer, vm *VM, arg string) {
	var n int64
	var err error
	if strings.HasPrefix(arg, "0x") {
		n, err = strconv.ParseInt(arg[2:], 16, 64)
	} else {
		n, err = strconv.ParseInt(arg, 10, 64)
	}
	if err != nil {
		fmt.Fprintf(out, "bad address %q\n", arg)
		return
	}
	addr := Cell(n)
	cell := vm.Mem.GetCell(addr)
	fmt.Fprintf(out, "0x%x: 0x%x\n", addr, cell)
	if IsObjectPtr(cell) {
		h := vm.Mem.GetCell(Untag(cell))
		fmt.Fprintf(out, "  -> object at 0x%x, type %s\n", Untag(cell), HeaderType(h))
	}
}

func runDebuggerGC(out io.Writer, vm *VM, kind string) {
	switch kind {
	case "nursery":
		vm.GC.collectNursery()
	case "full":
		vm.GC.collectFull()
	case "compact":
		vm.GC.collectFull()
		vm.GC.compactTenured()
	default:
		fmt.Fprintf(out, "unknown gc kind %q\n", kind)
		return
	}
	fmt.Fprintln(out, "ok")
}
