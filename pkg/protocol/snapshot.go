package protocol

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/cogvm/cog/pkg/lang"
)

// MachineSnapshot is an immutable view of a machine between steps. It is
// both the value the IDE layer hands to its subscribers and the content
// of a machineState frame.
type MachineSnapshot struct {
	ProgramCounter int              `json:"programCounter"`
	Input          []int32          `json:"input"`
	Output         []int32          `json:"output"`
	Registers      RegisterValues   `json:"registers"`
	Stacks         StackValues      `json:"stacks"`
	CycleCount     int              `json:"cycleCount"`
	Terminated     bool             `json:"terminated"`
	Successful     bool             `json:"successful"`
	RuntimeError   *lang.Diagnostic `json:"runtimeError,omitempty"`
}

// Register looks up a register value by name.
func (s MachineSnapshot) Register(name string) (int32, bool) {
	for _, r := range s.Registers {
		if r.Name == name {
			return r.Value, true
		}
	}
	return 0, false
}

// Stack looks up a stack by name.
func (s MachineSnapshot) Stack(name string) ([]int32, bool) {
	for _, st := range s.Stacks {
		if st.Name == name {
			return st.Values, true
		}
	}
	return nil, false
}

// RegisterValue is one named register.
type RegisterValue struct {
	Name  string
	Value int32
}

// RegisterValues is an ordered register mapping. It marshals to a JSON
// object whose keys keep their slice order, so consumers render registers
// the way the hardware declares them.
type RegisterValues []RegisterValue

func (rv RegisterValues) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, r := range rv {
		if i > 0 {
			buf.WriteByte(',')
		}
		name, err := json.Marshal(r.Name)
		if err != nil {
			return nil, err
		}
		buf.Write(name)
		buf.WriteByte(':')
		buf.Write(strconv.AppendInt(nil, int64(r.Value), 10))
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

func (rv *RegisterValues) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		return nil
	}
	out := RegisterValues{}
	err := decodeOrdered(data, func(name string, dec *json.Decoder) error {
		var v int32
		if err := dec.Decode(&v); err != nil {
			return err
		}
		out = append(out, RegisterValue{Name: name, Value: v})
		return nil
	})
	if err != nil {
		return err
	}
	*rv = out
	return nil
}

// StackValue is one named stack, bottom first.
type StackValue struct {
	Name   string
	Values []int32
}

// StackValues is an ordered stack mapping with the same object encoding
// as RegisterValues.
type StackValues []StackValue

func (sv StackValues) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, s := range sv {
		if i > 0 {
			buf.WriteByte(',')
		}
		name, err := json.Marshal(s.Name)
		if err != nil {
			return nil, err
		}
		buf.Write(name)
		buf.WriteByte(':')
		values := s.Values
		if values == nil {
			values = []int32{}
		}
		raw, err := json.Marshal(values)
		if err != nil {
			return nil, err
		}
		buf.Write(raw)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

func (sv *StackValues) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		return nil
	}
	out := StackValues{}
	err := decodeOrdered(data, func(name string, dec *json.Decoder) error {
		values := []int32{}
		if err := dec.Decode(&values); err != nil {
			return err
		}
		out = append(out, StackValue{Name: name, Values: values})
		return nil
	})
	if err != nil {
		return err
	}
	*sv = out
	return nil
}

// decodeOrdered walks a JSON object with the token decoder so key order
// survives, handing each value to fn while the decoder is positioned on
// it.
func decodeOrdered(data []byte, fn func(name string, dec *json.Decoder) error) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return fmt.Errorf("expected JSON object, got %v", tok)
	}
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return err
		}
		name, ok := keyTok.(string)
		if !ok {
			return fmt.Errorf("expected object key, got %v", keyTok)
		}
		if err := fn(name, dec); err != nil {
			return err
		}
	}
	_, err = dec.Token()
	return err
}
