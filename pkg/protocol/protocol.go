// Package protocol defines the JSON messages exchanged with a remote
// execution service. Every frame is an envelope {"type": ..., "content":
// ...}; the content shape depends on the type and is omitted entirely for
// payload-free messages. Encoding and decoding round-trip every message
// exactly.
package protocol

import (
	"bytes"
	"encoding/json"
	"fmt"
)

type envelope struct {
	Type    string          `json:"type"`
	Content json.RawMessage `json:"content,omitempty"`
}

const (
	typeCompile       = "compile"
	typeStep          = "step"
	typeAutoStepStart = "autoStepStart"
	typeAutoStepStop  = "autoStepStop"

	typeMachineState     = "machineState"
	typeCompileError     = "compileError"
	typeRuntimeError     = "runtimeError"
	typeMalformedMessage = "malformedMessage"
	typeNoCompilation    = "noCompilation"
)

// ClientMessage is a frame sent by an editor session to the service.
type ClientMessage interface{ clientMessage() }

// Compile asks the service to compile fresh source and reset the machine.
type Compile struct {
	SourceCode string `json:"sourceCode"`
}

// Step asks the service to execute one instruction.
type Step struct{}

// AutoStepStart asks the service to step repeatedly every Interval
// milliseconds until stopped or the machine terminates.
type AutoStepStart struct {
	Interval int `json:"interval"`
}

// AutoStepStop cancels a running auto-step loop.
type AutoStepStop struct{}

func (Compile) clientMessage()       {}
func (Step) clientMessage()          {}
func (AutoStepStart) clientMessage() {}
func (AutoStepStop) clientMessage()  {}

// ServerEvent is a frame sent by the service to the session.
type ServerEvent interface{ serverEvent() }

// MachineState carries the machine snapshot after a mutation.
type MachineState struct {
	Snapshot MachineSnapshot
}

// CompileError reports that the last Compile was rejected.
type CompileError struct{}

// RuntimeError reports that the last step halted the machine with an
// error. The diagnostic itself arrives on the following MachineState.
type RuntimeError struct{}

// MalformedMessage reports a frame the service could not decode.
type MalformedMessage struct {
	Reason string
}

// NoCompilation reports a Step received before any successful Compile.
type NoCompilation struct{}

func (MachineState) serverEvent()     {}
func (CompileError) serverEvent()     {}
func (RuntimeError) serverEvent()     {}
func (MalformedMessage) serverEvent() {}
func (NoCompilation) serverEvent()    {}

// MarshalClient encodes a client message into its wire envelope.
func MarshalClient(msg ClientMessage) ([]byte, error) {
	switch m := msg.(type) {
	case Compile:
		return sealed(typeCompile, m)
	case Step:
		return sealed(typeStep, nil)
	case AutoStepStart:
		return sealed(typeAutoStepStart, m)
	case AutoStepStop:
		return sealed(typeAutoStepStop, nil)
	default:
		return nil, fmt.Errorf("unsupported client message %T", msg)
	}
}

// UnmarshalClient decodes a wire frame into a client message. Unknown
// types, unknown fields and malformed JSON are errors.
func UnmarshalClient(data []byte) (ClientMessage, error) {
	env, err := open(data)
	if err != nil {
		return nil, err
	}
	switch env.Type {
	case typeCompile:
		var m Compile
		return m, content(env, &m)
	case typeStep:
		return Step{}, nil
	case typeAutoStepStart:
		var m AutoStepStart
		return m, content(env, &m)
	case typeAutoStepStop:
		return AutoStepStop{}, nil
	default:
		return nil, fmt.Errorf("unknown message type %q", env.Type)
	}
}

// MarshalServer encodes a server event into its wire envelope.
func MarshalServer(ev ServerEvent) ([]byte, error) {
	switch e := ev.(type) {
	case MachineState:
		return sealed(typeMachineState, e.Snapshot)
	case CompileError:
		return sealed(typeCompileError, nil)
	case RuntimeError:
		return sealed(typeRuntimeError, nil)
	case MalformedMessage:
		return sealed(typeMalformedMessage, e.Reason)
	case NoCompilation:
		return sealed(typeNoCompilation, nil)
	default:
		return nil, fmt.Errorf("unsupported server event %T", ev)
	}
}

// UnmarshalServer decodes a wire frame into a server event.
func UnmarshalServer(data []byte) (ServerEvent, error) {
	env, err := open(data)
	if err != nil {
		return nil, err
	}
	switch env.Type {
	case typeMachineState:
		var ev MachineState
		return ev, content(env, &ev.Snapshot)
	case typeCompileError:
		return CompileError{}, nil
	case typeRuntimeError:
		return RuntimeError{}, nil
	case typeMalformedMessage:
		var ev MalformedMessage
		return ev, content(env, &ev.Reason)
	case typeNoCompilation:
		return NoCompilation{}, nil
	default:
		return nil, fmt.Errorf("unknown message type %q", env.Type)
	}
}

func sealed(typ string, payload any) ([]byte, error) {
	env := envelope{Type: typ}
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("encode %s content: %w", typ, err)
		}
		env.Content = raw
	}
	return json.Marshal(env)
}

func open(data []byte) (envelope, error) {
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return envelope{}, fmt.Errorf("malformed frame: %w", err)
	}
	if env.Type == "" {
		return envelope{}, fmt.Errorf("frame has no type")
	}
	return env, nil
}

func content(env envelope, dst any) error {
	if env.Content == nil {
		return fmt.Errorf("%s frame has no content", env.Type)
	}
	dec := json.NewDecoder(bytes.NewReader(env.Content))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return fmt.Errorf("decode %s content: %w", env.Type, err)
	}
	return nil
}
