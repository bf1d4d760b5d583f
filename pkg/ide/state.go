package ide

import (
	"github.com/cogvm/cog/pkg/lang"
	"github.com/cogvm/cog/pkg/remote"
)

// CompiledState is the compile lifecycle of a session's source buffer.
// Exactly one of Uncompiled, Compiling, CompileFailed or Compiled holds
// at any time, and transitions replace the whole value. Treat the
// contained slices and snapshots as immutable.
type CompiledState interface {
	compiledState()
}

// Uncompiled means the current source has no compiled program. This is
// the state of a fresh session and of any session whose source changed
// after its last compile.
type Uncompiled struct{}

// Compiling means a compile for the current source is in flight.
type Compiling struct{}

// CompileFailed means the last compile rejected the source. Diagnostics
// is nil when the compile ran on a remote service, which reports the
// failure without detail.
type CompileFailed struct {
	Diagnostics []lang.Diagnostic
}

// Compiled means the source compiled and a machine exists. Machine is
// the snapshot taken after the most recent mutation. Instructions is
// nil for remote sessions, where the listing never crosses the wire.
type Compiled struct {
	Instructions []lang.SourceElement
	Machine      MachineSnapshot
}

func (Uncompiled) compiledState()    {}
func (Compiling) compiledState()     {}
func (CompileFailed) compiledState() {}
func (Compiled) compiledState()      {}

// EventKind tags what changed in a session Event.
type EventKind int

const (
	// EventStateChanged fires whenever the CompiledState is replaced.
	EventStateChanged EventKind = iota
	// EventSteppingChanged fires when the speed or the auto-step
	// activity changes.
	EventSteppingChanged
	// EventConnectionChanged fires when the remote connection opens or
	// closes.
	EventConnectionChanged
	// EventError carries a failure that surfaced outside a method
	// call, such as a connection error or a service rejection.
	EventError
)

func (k EventKind) String() string {
	switch k {
	case EventStateChanged:
		return "stateChanged"
	case EventSteppingChanged:
		return "steppingChanged"
	case EventConnectionChanged:
		return "connectionChanged"
	case EventError:
		return "error"
	default:
		return "unknown"
	}
}

// Event is one session notification. Every event carries the full
// session view at emit time, so subscribers render from the event alone
// instead of calling back into the session.
type Event struct {
	Kind       EventKind
	State      CompiledState
	Stepping   SteppingConfig
	Connection remote.Status
	Err        error
}
