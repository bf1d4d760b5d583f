package lang

import (
	"fmt"
	"math"
	"slices"
	"strings"
)

// Machine executes one compiled program against one program spec. It
// mutates in place; every accessor returns copies so views taken between
// steps stay stable.
type Machine struct {
	program  *Program
	expected []int32

	pc         int
	cycleCount int
	input      []int32
	output     []int32
	registers  []int32
	stacks     [][]int32
	err        *Diagnostic
}

// NewMachine allocates a fresh machine for the spec: full input, empty
// output, zeroed registers, empty stacks.
func (p *Program) NewMachine(spec ProgramSpec) *Machine {
	m := &Machine{
		program:   p,
		expected:  slices.Clone(spec.ExpectedOutput),
		input:     slices.Clone(spec.Input),
		registers: make([]int32, p.hw.NumRegisters),
		stacks:    make([][]int32, p.hw.NumStacks),
	}
	for i := range m.stacks {
		m.stacks[i] = []int32{}
	}
	return m
}

// ExecuteNext runs a single instruction and reports whether a cycle was
// consumed. A terminated machine is a no-op. Exhausting the cycle budget
// halts the machine with a runtime error without consuming a cycle.
func (m *Machine) ExecuteNext() bool {
	if m.Terminated() {
		return false
	}
	in := m.program.instrs[m.pc]
	if m.cycleCount >= MaxCycleCount {
		m.fail(in.element.Span, fmt.Sprintf("Maximum number of cycles reached, cannot execute instruction `%s`", in.element.Text))
		return false
	}
	// Failing instructions still cost their cycle.
	m.cycleCount++

	switch in.op {
	case opRead:
		if len(m.input) == 0 {
			m.fail(in.element.Span, "Read attempted while input is empty")
			return true
		}
		m.store(in.reg, m.input[0])
		m.input = m.input[1:]
		m.pc++
	case opWrite:
		m.output = append(m.output, m.value(in.val))
		m.pc++
	case opSet:
		m.store(in.reg, m.value(in.val))
		m.pc++
	case opAdd:
		m.store(in.reg, m.load(in.reg)+m.value(in.val))
		m.pc++
	case opSub:
		m.store(in.reg, m.load(in.reg)-m.value(in.val))
		m.pc++
	case opMul:
		m.store(in.reg, m.load(in.reg)*m.value(in.val))
		m.pc++
	case opDiv:
		divisor := m.value(in.val)
		if divisor == 0 {
			m.fail(in.element.Span, "Divide by zero")
			return true
		}
		m.store(in.reg, div32(m.load(in.reg), divisor))
		m.pc++
	case opCmp:
		a, b := m.value(in.val), m.value(in.val2)
		var r int32
		switch {
		case a < b:
			r = -1
		case a > b:
			r = 1
		}
		m.store(in.reg, r)
		m.pc++
	case opPush:
		if len(m.stacks[in.stack]) >= m.program.hw.MaxStackLength {
			m.fail(in.stackEl.Span, fmt.Sprintf("Overflow on stack `%s`", in.stackEl.Text))
			return true
		}
		m.stacks[in.stack] = append(m.stacks[in.stack], m.value(in.val))
		m.pc++
	case opPop:
		s := m.stacks[in.stack]
		if len(s) == 0 {
			m.fail(in.stackEl.Span, fmt.Sprintf("Cannot pop from empty stack `%s`", in.stackEl.Text))
			return true
		}
		m.store(in.reg, s[len(s)-1])
		m.stacks[in.stack] = s[:len(s)-1]
		m.pc++
	default:
		if m.jumpTaken(in) {
			m.pc += in.offset
		} else {
			m.pc++
		}
	}
	return true
}

// ExecuteAll runs the machine to termination and reports success.
func (m *Machine) ExecuteAll() bool {
	for !m.Terminated() {
		if !m.ExecuteNext() {
			break
		}
	}
	return m.Successful()
}

// Terminated reports whether the program has halted, cleanly or with a
// runtime error.
func (m *Machine) Terminated() bool {
	return m.err != nil || m.pc >= len(m.program.instrs)
}

// Successful reports a clean halt with all input consumed and the output
// exactly matching the expectation.
func (m *Machine) Successful() bool {
	return m.Terminated() && m.err == nil && len(m.input) == 0 && slices.Equal(m.output, m.expected)
}

func (m *Machine) jumpTaken(in instr) bool {
	switch in.op {
	case opJmp:
		return true
	case opJez:
		return m.value(in.val) == 0
	case opJnz:
		return m.value(in.val) != 0
	case opJlz:
		return m.value(in.val) < 0
	case opJgz:
		return m.value(in.val) > 0
	}
	return false
}

func (m *Machine) load(r regRef) int32 {
	switch r.kind {
	case regNull:
		return 0
	case regInputLen:
		return int32(len(m.input))
	case regStackLen:
		return int32(len(m.stacks[r.idx]))
	default:
		return m.registers[r.idx]
	}
}

// store ignores writes to RZR. Read-only targets are rejected at compile
// time and cannot reach here.
func (m *Machine) store(r regRef, v int32) {
	if r.kind == regUser {
		m.registers[r.idx] = v
	}
}

func (m *Machine) value(v valueSrc) int32 {
	if v.isConst {
		return v.lit
	}
	return m.load(v.reg)
}

func (m *Machine) fail(sp Span, msg string) {
	d := diag(sp, "Runtime", msg)
	m.err = &d
}

// div32 divides with truncation toward zero. The one overflowing case,
// MinInt32 / -1, wraps instead of faulting.
func div32(a, b int32) int32 {
	if a == math.MinInt32 && b == -1 {
		return math.MinInt32
	}
	return a / b
}

// ProgramCounter returns the index of the next instruction.
func (m *Machine) ProgramCounter() int { return m.pc }

// CycleCount returns the cycles consumed so far.
func (m *Machine) CycleCount() int { return m.cycleCount }

// Input returns the values not yet consumed by READ.
func (m *Machine) Input() []int32 { return slices.Clone(m.input) }

// Output returns the values written so far.
func (m *Machine) Output() []int32 { return slices.Clone(m.output) }

// RegisterNames lists the visible registers in presentation order.
func (m *Machine) RegisterNames() []string { return m.program.hw.RegisterNames() }

// Register reads a register by canonical name. Unknown names read as
// zero, like RZR.
func (m *Machine) Register(name string) int32 {
	ref, ok := parseRegRef(name)
	if !ok {
		return 0
	}
	switch ref.kind {
	case regStackLen:
		if ref.idx >= len(m.stacks) {
			return 0
		}
	case regUser:
		if ref.idx >= len(m.registers) {
			return 0
		}
	}
	return m.load(ref)
}

// StackNames lists the stacks in presentation order.
func (m *Machine) StackNames() []string { return m.program.hw.StackNames() }

// Stack returns a copy of the named stack, bottom first.
func (m *Machine) Stack(name string) []int32 {
	idx, ok := tagIndex(strings.ToUpper(name), stackTag)
	if !ok || idx >= len(m.stacks) {
		return nil
	}
	return slices.Clone(m.stacks[idx])
}

// Err returns the runtime error that halted the machine, if any.
func (m *Machine) Err() *Diagnostic {
	if m.err == nil {
		return nil
	}
	d := *m.err
	return &d
}
