package cog

import (
	"github.com/cogvm/cog/pkg/ide"
	"github.com/cogvm/cog/pkg/lang"
)

// The root package re-exports the core types so small consumers only
// need a single import. The full APIs live in pkg/lang, pkg/ide,
// pkg/remote and pkg/protocol.
type (
	HardwareSpec = lang.HardwareSpec
	ProgramSpec  = lang.ProgramSpec
	Diagnostic   = lang.Diagnostic
	Program      = lang.Program
	Machine      = lang.Machine
	Session      = ide.Session
	Option       = ide.Option
)

// DefaultHardwareSpec returns the minimal hardware: one user register
// and no stacks.
func DefaultHardwareSpec() HardwareSpec {
	return lang.DefaultHardwareSpec()
}

// Compile assembles source for the given hardware. When the source is
// at fault the returned error is a *lang.CompileError carrying the
// structured diagnostics.
func Compile(source string, hw HardwareSpec) (*Program, error) {
	return lang.Compile(source, hw)
}

// Result summarizes a finished run.
type Result struct {
	Successful bool
	CycleCount int
	Output     []int32
	Err        *Diagnostic
}

// Run assembles source and executes it to completion against the
// program spec.
func Run(source string, hw HardwareSpec, spec ProgramSpec) (Result, error) {
	program, err := Compile(source, hw)
	if err != nil {
		return Result{}, err
	}
	machine := program.NewMachine(spec)
	machine.ExecuteAll()
	return resultOf(machine), nil
}

func resultOf(m *Machine) Result {
	return Result{
		Successful: m.Successful(),
		CycleCount: m.CycleCount(),
		Output:     m.Output(),
		Err:        m.Err(),
	}
}

// NewLocalSession creates an editing session that compiles and executes
// in process.
func NewLocalSession(hw HardwareSpec, spec ProgramSpec, opts ...Option) (*Session, error) {
	return ide.NewLocalSession(hw, spec, opts...)
}

// NewRemoteSession creates an editing session driven by an execution
// service over a websocket.
func NewRemoteSession(addr string, opts ...Option) (*Session, error) {
	return ide.NewRemoteSession(addr, opts...)
}
