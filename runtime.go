// runtime.go: the single entry point that wires a fresh or
// image-loaded VM up to the point where it can run the startup
// quotation (spec.md §6.2). Mirrors the teacher's
// (daios-ai-msg/runtime.go) NewRuntime shape -- one function that
// builds the interpreter, installs every builtin registry, and loads
// the standard prelude -- retargeted since this VM has no prelude
// loader or module registries of its own (source-level libraries are
// an explicit Non-goal, spec.md §1): here "wiring the runtime" means
// booting the heap, installing the closed primitive/combinator
// vocabulary, and optionally loading an image over it.
package factor

import (
	"fmt"
	"io"
	"os"
)

// BootOptions controls how Boot assembles a runtime VM (spec.md
// §6.2's CLI flags feed this in via cmd/factorvm/main.go).
type BootOptions struct {
	Config       VMConfig
	ImagePath    string // if set, LoadImage replaces the freshly booted heap
	ResourcePath string // stored for the language layer to consult; this core never reads files itself
	Args         []string
}

// Boot assembles a runtime VM: either a bare heap with the closed
// vocabulary bootstrapped onto it, or an image loaded from disk. In
// both cases it returns a ready-to-run VM and the Vocabulary a caller
// can use to resolve word names (the image path skips Bootstrap since
// an image already carries whatever words it was saved with).
func Boot(opts BootOptions) (*VM, Vocabulary, error) {
	if opts.ImagePath != "" {
		f, err := os.Open(opts.ImagePath)
		if err != nil {
			return nil, nil, fmt.Errorf("factor: cannot open image %s: %w", opts.ImagePath, err)
		}
		defer f.Close()
		vm, err := LoadImage(f)
		if err != nil {
			return nil, nil, fmt.Errorf("factor: cannot load image %s: %w", opts.ImagePath, err)
		}
		return vm, nil, nil
	}

	vm := NewVM(opts.Config)
	vocab := vm.Bootstrap()
	return vm, vocab, nil
}

// RunStartup runs the startup quotation installed in
// SpecialObjects[SOStartupQuot], if any, then evaluates -e's
// expression by looking it up as a word in vocab and calling it
// (spec.md §6.2: "after the startup quotation returns, evaluate EXPR
// via the language's evaluator" -- this core has no source-level
// evaluator of its own, so EXPR here names a word already present in
// vocab rather than source text to parse).
func RunStartup(vm *VM, vocab Vocabulary, evalWord string, w io.Writer) error {
	if startup := vm.SpecialObjects[SOStartupQuot]; ToBoolean(startup) {
		if err := vm.Run(startup); err != nil {
			return err
		}
	}
	if evalWord == "" {
		return nil
	}
	word, ok := vocab[evalWord]
	if !ok {
		fmt.Fprintf(w, "factor: -e: undefined word %q\n", evalWord)
		return &VMError{Kind: ErrorKind_UNDEFINED_SYMBOL, Fatal: true}
	}
	return vm.Run(word)
}
