package cog

import (
	"fmt"
	"io"

	"github.com/cogvm/cog/pkg/ide"
	"github.com/cogvm/cog/pkg/lang"
	"github.com/cogvm/cog/pkg/protocol"
)

// Runner drives a machine to termination using provided IO.
// This allows for easy testing and integration with different frontends
// (CLI, TUI, etc).
type Runner struct {
	Output    io.Writer
	Trace     bool
	Formatter SnapshotFormatter
}

// SnapshotFormatter turns a machine snapshot into one trace line. It
// lets a frontend render snapshots its own way without coupling the
// root package to a terminal library.
type SnapshotFormatter func(protocol.MachineSnapshot) string

// NewRunner creates a Runner with the default trace format. Set Output
// before calling Run with tracing enabled.
func NewRunner() *Runner {
	return &Runner{Formatter: defaultFormat}
}

func defaultFormat(snap protocol.MachineSnapshot) string {
	return fmt.Sprintf("cycle %d pc %d out %v", snap.CycleCount, snap.ProgramCounter, snap.Output)
}

// Run executes the program until termination. With Trace set, every
// consumed cycle writes one formatted snapshot line to Output.
func (r *Runner) Run(program *lang.Program, spec lang.ProgramSpec) (Result, error) {
	if r.Trace && r.Output == nil {
		return Result{}, fmt.Errorf("output writer must be set (use os.Stdout)")
	}
	format := r.Formatter
	if format == nil {
		format = defaultFormat
	}

	machine := program.NewMachine(spec)
	for machine.ExecuteNext() {
		if r.Trace {
			fmt.Fprintln(r.Output, format(ide.Snapshot(machine)))
		}
	}
	return resultOf(machine), nil
}
