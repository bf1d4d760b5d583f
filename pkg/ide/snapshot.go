package ide

import (
	"github.com/cogvm/cog/pkg/lang"
	"github.com/cogvm/cog/pkg/protocol"
)

// MachineSnapshot is the immutable machine view shared with the
// execution service protocol.
type MachineSnapshot = protocol.MachineSnapshot

// Snapshot captures the full state of a machine as a plain value. The
// engine is never read anywhere else, so one snapshot per mutation is
// all a consumer ever sees. Empty collections come out as empty, not
// nil, so snapshots serialize the same no matter how they were built.
func Snapshot(m *lang.Machine) MachineSnapshot {
	regNames := m.RegisterNames()
	registers := make(protocol.RegisterValues, 0, len(regNames))
	for _, name := range regNames {
		registers = append(registers, protocol.RegisterValue{Name: name, Value: m.Register(name)})
	}

	stackNames := m.StackNames()
	stacks := make(protocol.StackValues, 0, len(stackNames))
	for _, name := range stackNames {
		values := m.Stack(name)
		if values == nil {
			values = []int32{}
		}
		stacks = append(stacks, protocol.StackValue{Name: name, Values: values})
	}

	input := m.Input()
	if input == nil {
		input = []int32{}
	}
	output := m.Output()
	if output == nil {
		output = []int32{}
	}

	return MachineSnapshot{
		ProgramCounter: m.ProgramCounter(),
		Input:          input,
		Output:         output,
		Registers:      registers,
		Stacks:         stacks,
		CycleCount:     m.CycleCount(),
		Terminated:     m.Terminated(),
		Successful:     m.Successful(),
		RuntimeError:   m.Err(),
	}
}
