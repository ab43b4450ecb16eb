// Command factorvm boots the VM and runs an image, per spec.md §6.2's
// command-line surface. Flag parsing follows the teacher's
// (daios-ai-msg/cmd/msg/main.go) flag.FlagSet shape; there is no REPL
// here since this core has no source-level reader, only Boot/Run
// against a heap-resident quotation or image.
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/JakeChampion/factor"
)

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	fs := flag.NewFlagSet("factorvm", flag.ContinueOnError)
	image := fs.String("image", "", "path to a saved image")
	dataStackKiB := fs.Int("datastack", 64, "data stack size, in KiB")
	retainStackKiB := fs.Int("retainstack", 64, "retain stack size, in KiB")
	callStackKiB := fs.Int("callstack", 64, "call stack size, in KiB")
	youngMiB := fs.Int("young", 1, "nursery size, in MiB")
	agingMiB := fs.Int("aging", 4, "aging semispace size, in MiB")
	tenuredMiB := fs.Int("tenured", 16, "tenured heap size, in MiB")
	codeMiB := fs.Int("code", 1, "code heap size, in MiB")
	resourcePath := fs.String("resource-path", "", "resource path the language consults for library files")
	eval := fs.String("e", "", "word to run after the startup quotation")
	fep := fs.Bool("fep", false, "enter the low-level debugger before running")
	if err := fs.Parse(args); err != nil {
		return 1
	}

	opts := factor.BootOptions{
		Config: factor.VMConfig{
			Heap: factor.HeapSizes{
				Nursery: factor.Cell(*youngMiB) << 20,
				Aging:   factor.Cell(*agingMiB) << 20,
				Tenured: factor.Cell(*tenuredMiB) << 20,
				Code:    factor.Cell(*codeMiB) << 20,
			},
			DataStackSize:   factor.Cell(*dataStackKiB) << 10,
			RetainStackSize: factor.Cell(*retainStackKiB) << 10,
			CallStackSize:   factor.Cell(*callStackKiB) << 10,
		},
		ImagePath:    *image,
		ResourcePath: *resourcePath,
		Args:         fs.Args(),
	}

	vm, vocab, err := factor.Boot(opts)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	installAppArgs(vm, opts.Args)

	if *fep {
		if err := factor.RunDebuggerConsole(vm, vocab, os.Stdin, os.Stdout); err != nil {
			fmt.Fprintln(os.Stderr, err)
			return 1
		}
	}

	if err := factor.RunStartup(vm, vocab, *eval, os.Stdout); err != nil {
		return fatal(vm, err)
	}
	return 0
}

// installAppArgs builds an array of heap Strings from the CLI's
// positional args and stores it as the well-known app-args special
// object (SPEC_FULL.md §6.2), the language layer's substitute for a
// real argv this core never parses itself.
func installAppArgs(vm *factor.VM, args []string) {
	elems := make([]factor.Cell, len(args))
	for i, a := range args {
		elems[i] = vm.AllocString(a)
	}
	vm.SpecialObjects[factor.SOAppArgs] = vm.AllocArray(elems)
}

// fatal renders the memory-layout dump and returns the exit code: 86
// if a garbage collection was in progress (vm.CurrentGC) when err
// surfaced, 1 otherwise. It does not track whether a fatal error was
// already being reported, so that case gets no code of its own.
func fatal(vm *factor.VM, err error) int {
	code := 1
	if vm.CurrentGC {
		code = 86
	}
	factor.FatalError(os.Stderr, vm, err.Error(), factor.False)
	return code
}
