package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/cogvm/cog"
	"github.com/cogvm/cog/internal/presentation/graph"
	"github.com/cogvm/cog/internal/presentation/tui"
	"github.com/cogvm/cog/pkg/lang"
	"github.com/cogvm/cog/pkg/protocol"
)

// RunOptions contains all the configuration for the run command.
type RunOptions struct {
	SourcePath string
	PuzzlesDir string

	// Catalog target.
	HardwareSlug string
	ProgramSlug  string

	// Ad-hoc target, used when no catalog slugs are given.
	Registers int
	Stacks    int
	StackSize int
	Input     string
	Expected  string

	Trace bool
	Step  bool
	Graph bool
	Speed int
	Debug bool
}

var errCompileFailed = errors.New("compile failed")
var errSolutionFailed = errors.New("solution failed")

// Execute handles the 'run' command logic, dispatching to the one-shot
// runner or the stepping session.
func Execute(opts RunOptions) error {
	source, err := os.ReadFile(opts.SourcePath)
	if err != nil {
		return fmt.Errorf("read solution: %w", err)
	}

	sigCtx := NewSignalContext(context.Background())
	defer sigCtx.Cancel()

	hw, spec, label, err := ResolveTarget(sigCtx, opts)
	if err != nil {
		return err
	}

	if opts.Step {
		return handleExecutionError(StepSession(sigCtx, string(source), hw, spec, label, opts))
	}
	return RunOnce(string(source), hw, spec, opts)
}

// RunOnce compiles and executes the solution to termination and reports
// the verdict. A failed compile or an unsolved program yields a
// non-nil error so the command exits non-zero.
func RunOnce(source string, hw lang.HardwareSpec, spec lang.ProgramSpec, opts RunOptions) error {
	program, err := cog.Compile(source, hw)
	if err != nil {
		var ce *lang.CompileError
		if errors.As(err, &ce) {
			fmt.Print(tui.Diagnostics(source, ce.Diagnostics))
			return errCompileFailed
		}
		return err
	}

	runner := cog.NewRunner()
	runner.Output = os.Stdout
	runner.Trace = opts.Trace
	runner.Formatter = func(snap protocol.MachineSnapshot) string {
		return strings.TrimRight(tui.Snapshot(snap), "\n")
	}

	result, err := runner.Run(program, spec)
	if err != nil {
		return err
	}

	if d := result.Err; d != nil {
		fmt.Print(tui.Diagnostic(source, *d))
	}
	fmt.Println(tui.Verdict(result.Successful))
	fmt.Printf("cycles: %d  output: %v\n", result.CycleCount, result.Output)

	if !result.Successful {
		return errSolutionFailed
	}
	return nil
}

// Compile assembles the solution and prints its listing, or the
// diagnostics when the source is rejected. With Graph set it prints a
// Mermaid flowchart of the control flow instead of the listing.
func Compile(opts RunOptions) error {
	source, err := os.ReadFile(opts.SourcePath)
	if err != nil {
		return fmt.Errorf("read solution: %w", err)
	}

	sigCtx := NewSignalContext(context.Background())
	defer sigCtx.Cancel()

	hw, _, label, err := ResolveTarget(sigCtx, opts)
	if err != nil {
		return err
	}

	program, err := cog.Compile(string(source), hw)
	if err != nil {
		var ce *lang.CompileError
		if errors.As(err, &ce) {
			fmt.Print(tui.Diagnostics(string(source), ce.Diagnostics))
			return errCompileFailed
		}
		return err
	}

	if opts.Graph {
		fmt.Print(graph.Flowchart(program))
		return nil
	}

	printSystemMessage("Compiled %d instructions on %s.", len(program.Instructions()), label)
	fmt.Print(tui.Listing(program.Instructions()))
	return nil
}
