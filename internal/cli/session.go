package cli

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/cogvm/cog"
	"github.com/cogvm/cog/internal/presentation/tui"
	"github.com/cogvm/cog/pkg/ide"
	"github.com/cogvm/cog/pkg/lang"
)

// StepSession runs the solution through an editing session with
// auto-stepping, printing every machine state until the program
// terminates or the user interrupts.
func StepSession(ctx context.Context, source string, hw lang.HardwareSpec, spec lang.ProgramSpec, label string, opts RunOptions) error {
	tui.PrintBanner(strings.TrimSpace(cog.Version))
	logger := createLogger(opts.Debug)

	session, err := ide.NewLocalSession(hw, spec, ide.WithLogger(logger))
	if err != nil {
		return err
	}
	defer session.Close()

	// Subscribe before loading the source so no state change is missed.
	events, cancel := session.Subscribe()
	defer cancel()

	session.SetSource(source)
	if err := session.Compile(); err != nil {
		return err
	}

	switch state := session.State().(type) {
	case ide.CompileFailed:
		fmt.Print(tui.Diagnostics(source, state.Diagnostics))
		return errCompileFailed
	case ide.Compiled:
		printSystemMessage("Compiled %d instructions on %s.", len(state.Instructions), label)
	default:
		return errors.New("session did not compile")
	}

	if opts.Speed > 1 {
		if err := session.SetSpeed(opts.Speed); err != nil {
			return err
		}
	}
	if err := session.StartAutoStep(); err != nil {
		return err
	}

	for {
		select {
		case <-ctx.Done():
			_ = session.StopAutoStep()
			return ctx.Err()
		case ev := <-events:
			if ev.Kind != ide.EventStateChanged {
				continue
			}
			compiled, ok := ev.State.(ide.Compiled)
			if !ok {
				continue
			}
			fmt.Print(tui.Snapshot(compiled.Machine))
			if compiled.Machine.Terminated {
				if d := compiled.Machine.RuntimeError; d != nil {
					fmt.Print(tui.Diagnostic(source, *d))
				}
				fmt.Println(tui.Verdict(compiled.Machine.Successful))
				if !compiled.Machine.Successful {
					return errSolutionFailed
				}
				return nil
			}
		}
	}
}
