package protocol_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cogvm/cog/pkg/lang"
	"github.com/cogvm/cog/pkg/protocol"
)

func TestClientMessageRoundTrip(t *testing.T) {
	cases := []struct {
		name string
		msg  protocol.ClientMessage
		wire string
	}{
		{
			name: "compile",
			msg:  protocol.Compile{SourceCode: "READ RX0\nWRITE RX0"},
			wire: `{"type":"compile","content":{"sourceCode":"READ RX0\nWRITE RX0"}}`,
		},
		{
			name: "step",
			msg:  protocol.Step{},
			wire: `{"type":"step"}`,
		},
		{
			name: "autoStepStart",
			msg:  protocol.AutoStepStart{Interval: 100},
			wire: `{"type":"autoStepStart","content":{"interval":100}}`,
		},
		{
			name: "autoStepStop",
			msg:  protocol.AutoStepStop{},
			wire: `{"type":"autoStepStop"}`,
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			raw, err := protocol.MarshalClient(tc.msg)
			require.NoError(t, err)
			assert.JSONEq(t, tc.wire, string(raw))

			decoded, err := protocol.UnmarshalClient(raw)
			require.NoError(t, err)
			assert.Equal(t, tc.msg, decoded)
		})
	}
}

func TestServerEventRoundTrip(t *testing.T) {
	snapshot := protocol.MachineSnapshot{
		ProgramCounter: 1,
		Input:          []int32{},
		Output:         []int32{1},
		Registers: protocol.RegisterValues{
			{Name: "RLI", Value: 0},
			{Name: "RS0", Value: 2},
			{Name: "RX0", Value: 1},
		},
		Stacks: protocol.StackValues{
			{Name: "S0", Values: []int32{4, 7}},
		},
		CycleCount: 2,
		Terminated: true,
		Successful: true,
	}
	cases := []struct {
		name string
		ev   protocol.ServerEvent
	}{
		{"machineState", protocol.MachineState{Snapshot: snapshot}},
		{"compileError", protocol.CompileError{}},
		{"runtimeError", protocol.RuntimeError{}},
		{"malformedMessage", protocol.MalformedMessage{Reason: "unknown message type \"frobnicate\""}},
		{"noCompilation", protocol.NoCompilation{}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			raw, err := protocol.MarshalServer(tc.ev)
			require.NoError(t, err)

			decoded, err := protocol.UnmarshalServer(raw)
			require.NoError(t, err)
			assert.Equal(t, tc.ev, decoded)
		})
	}
}

func TestMachineStateCarriesRuntimeError(t *testing.T) {
	ev := protocol.MachineState{Snapshot: protocol.MachineSnapshot{
		ProgramCounter: 0,
		Input:          []int32{},
		Output:         []int32{},
		Registers:      protocol.RegisterValues{{Name: "RLI", Value: 0}, {Name: "RX0", Value: 0}},
		Stacks:         protocol.StackValues{},
		CycleCount:     1,
		Terminated:     true,
		Successful:     false,
		RuntimeError: &lang.Diagnostic{
			Text: "Runtime error at 1:1: Read attempted while input is empty",
			Span: lang.Span{StartLine: 1, StartCol: 1, EndLine: 1, EndCol: 9},
		},
	}}

	raw, err := protocol.MarshalServer(ev)
	require.NoError(t, err)

	decoded, err := protocol.UnmarshalServer(raw)
	require.NoError(t, err)
	assert.Equal(t, ev, decoded)
}

func TestRegisterOrderSurvivesTheWire(t *testing.T) {
	ev := protocol.MachineState{Snapshot: protocol.MachineSnapshot{
		Input:  []int32{},
		Output: []int32{},
		Registers: protocol.RegisterValues{
			{Name: "RLI", Value: 3},
			{Name: "RS0", Value: 0},
			{Name: "RS1", Value: 1},
			{Name: "RX0", Value: -5},
			{Name: "RX1", Value: 12},
		},
		Stacks: protocol.StackValues{
			{Name: "S0", Values: []int32{}},
			{Name: "S1", Values: []int32{9}},
		},
	}}

	raw, err := protocol.MarshalServer(ev)
	require.NoError(t, err)
	assert.Contains(t, string(raw), `"registers":{"RLI":3,"RS0":0,"RS1":1,"RX0":-5,"RX1":12}`)
	assert.Contains(t, string(raw), `"stacks":{"S0":[],"S1":[9]}`)

	decoded, err := protocol.UnmarshalServer(raw)
	require.NoError(t, err)
	ms, ok := decoded.(protocol.MachineState)
	require.True(t, ok, "decoded %T", decoded)

	names := make([]string, 0, len(ms.Snapshot.Registers))
	for _, r := range ms.Snapshot.Registers {
		names = append(names, r.Name)
	}
	assert.Equal(t, []string{"RLI", "RS0", "RS1", "RX0", "RX1"}, names)
}

func TestUnmarshalRejectsGarbage(t *testing.T) {
	cases := []struct {
		name string
		wire string
	}{
		{"not json", "not even json"},
		{"missing type", `{"content":{}}`},
		{"unknown type", `{"type":"frobnicate"}`},
		{"unknown field", `{"type":"compile","content":{"sourceCode":"X:","extra":true}}`},
		{"missing content", `{"type":"compile"}`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := protocol.UnmarshalClient([]byte(tc.wire))
			assert.Error(t, err)
		})
	}
}
