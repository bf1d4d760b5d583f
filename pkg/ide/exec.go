package ide

import (
	"errors"

	"github.com/cogvm/cog/pkg/lang"
)

var (
	// ErrNotCompiled is returned when execution is requested without a
	// compiled program.
	ErrNotCompiled = errors.New("ide: no compiled program")
	// ErrTerminated is returned when auto-stepping is requested on a
	// machine that already terminated.
	ErrTerminated = errors.New("ide: machine already terminated")
	// ErrAutoStepActive is returned when a manual step or run is
	// requested while auto-stepping is active.
	ErrAutoStepActive = errors.New("ide: auto-step is active")
	// ErrSessionClosed is returned by every operation on a closed
	// session.
	ErrSessionClosed = errors.New("ide: session is closed")
	// ErrNoCompilation is the service's answer to a step request that
	// arrived before any compile. It surfaces through the event stream.
	ErrNoCompilation = errors.New("ide: service has no compiled program")
)

// ExecutionController owns the engine handle of one session: it
// compiles source against fixed hardware and program specs and advances
// the resulting machine. It is not safe for concurrent use; Session
// serializes access to it.
type ExecutionController struct {
	hw      lang.HardwareSpec
	spec    lang.ProgramSpec
	program *lang.Program
	machine *lang.Machine
}

// NewExecutionController validates the hardware spec and returns a
// controller with no compiled program.
func NewExecutionController(hw lang.HardwareSpec, spec lang.ProgramSpec) (*ExecutionController, error) {
	if err := hw.Validate(); err != nil {
		return nil, err
	}
	return &ExecutionController{hw: hw, spec: spec}, nil
}

// Compile compiles source and resets the machine. Source problems come
// back as a CompileFailed state; any other failure means the call
// itself was broken and is returned as an error.
func (e *ExecutionController) Compile(source string) (CompiledState, error) {
	program, err := lang.Compile(source, e.hw)
	if err != nil {
		e.program, e.machine = nil, nil
		var compileErr *lang.CompileError
		if errors.As(err, &compileErr) {
			return CompileFailed{Diagnostics: compileErr.Diagnostics}, nil
		}
		return nil, err
	}
	e.program = program
	e.machine = program.NewMachine(e.spec)
	return Compiled{Instructions: program.Instructions(), Machine: Snapshot(e.machine)}, nil
}

// Execute advances the machine by one instruction, or to termination
// when all is set. Executing a terminated machine changes nothing and
// returns the terminal snapshot again.
func (e *ExecutionController) Execute(all bool) (MachineSnapshot, error) {
	if e.machine == nil {
		return MachineSnapshot{}, ErrNotCompiled
	}
	if all {
		e.machine.ExecuteAll()
	} else {
		e.machine.ExecuteNext()
	}
	return Snapshot(e.machine), nil
}

// Invalidate drops the compiled program and its machine.
func (e *ExecutionController) Invalidate() {
	e.program, e.machine = nil, nil
}
