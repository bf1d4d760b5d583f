package lang

import "fmt"

// Register and stack naming tags. Reference syntax is case-insensitive;
// canonical names are upper case.
const (
	nullRegisterName        = "RZR"
	inputLengthRegisterName = "RLI"
	stackLengthRegisterTag  = "RS"
	userRegisterTag         = "RX"
	stackTag                = "S"
)

// MaxCycleCount is the execution budget of a single machine. A program
// that is still running after this many cycles halts with a runtime
// error.
const MaxCycleCount = 1000

// HardwareSpec describes the simulated machine a program compiles
// against: how many user registers and stacks exist and how deep a stack
// may grow. The spec is fixed for the lifetime of a compiled program.
type HardwareSpec struct {
	NumRegisters   int `json:"numRegisters" yaml:"numRegisters" mapstructure:"numRegisters"`
	NumStacks      int `json:"numStacks" yaml:"numStacks" mapstructure:"numStacks"`
	MaxStackLength int `json:"maxStackLength" yaml:"maxStackLength" mapstructure:"maxStackLength"`
}

// DefaultHardwareSpec returns the minimal hardware: one user register and
// no stacks.
func DefaultHardwareSpec() HardwareSpec {
	return HardwareSpec{NumRegisters: 1}
}

// Validate reports whether the spec describes usable hardware.
func (hw HardwareSpec) Validate() error {
	if hw.NumRegisters < 1 {
		return fmt.Errorf("hardware needs at least one user register, got %d", hw.NumRegisters)
	}
	if hw.NumStacks < 0 {
		return fmt.Errorf("negative stack count %d", hw.NumStacks)
	}
	if hw.MaxStackLength < 0 {
		return fmt.Errorf("negative max stack length %d", hw.MaxStackLength)
	}
	return nil
}

// RegisterNames lists every readable register except RZR, in the order
// snapshots present them: RLI first, then the stack length registers,
// then the user registers.
func (hw HardwareSpec) RegisterNames() []string {
	names := make([]string, 0, 1+hw.NumStacks+hw.NumRegisters)
	names = append(names, inputLengthRegisterName)
	for i := 0; i < hw.NumStacks; i++ {
		names = append(names, fmt.Sprintf("%s%d", stackLengthRegisterTag, i))
	}
	for i := 0; i < hw.NumRegisters; i++ {
		names = append(names, fmt.Sprintf("%s%d", userRegisterTag, i))
	}
	return names
}

// StackNames lists the stacks in presentation order.
func (hw HardwareSpec) StackNames() []string {
	names := make([]string, 0, hw.NumStacks)
	for i := 0; i < hw.NumStacks; i++ {
		names = append(names, fmt.Sprintf("%s%d", stackTag, i))
	}
	return names
}

// ProgramSpec describes one program to solve on a piece of hardware: the
// values READ consumes and the output WRITE must produce for a successful
// run.
type ProgramSpec struct {
	Input          []int32 `json:"input" yaml:"input" mapstructure:"input"`
	ExpectedOutput []int32 `json:"expectedOutput" yaml:"expectedOutput" mapstructure:"expectedOutput"`
}
