package ide_test

import (
	"errors"
	"testing"
	"time"

	"github.com/cogvm/cog/pkg/ide"
	"github.com/cogvm/cog/pkg/lang"
)

func newLocalSession(t *testing.T, opts ...ide.Option) *ide.Session {
	t.Helper()
	s, err := ide.NewLocalSession(
		lang.HardwareSpec{NumRegisters: 1},
		lang.ProgramSpec{Input: []int32{1}, ExpectedOutput: []int32{1}},
		opts...,
	)
	if err != nil {
		t.Fatalf("NewLocalSession() error: %v", err)
	}
	t.Cleanup(s.Close)
	return s
}

func waitFor(t *testing.T, timeout time.Duration, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(2 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

func compiledState(t *testing.T, s *ide.Session) ide.Compiled {
	t.Helper()
	state, ok := s.State().(ide.Compiled)
	if !ok {
		t.Fatalf("state = %T, want Compiled", s.State())
	}
	return state
}

func TestSessionCompileAndStep(t *testing.T) {
	s := newLocalSession(t, ide.WithDebounce(0))

	s.SetSource("READ RX0\nWRITE RX0")
	compiled := compiledState(t, s)
	if len(compiled.Instructions) != 2 {
		t.Fatalf("instructions = %d, want 2", len(compiled.Instructions))
	}
	if compiled.Machine.CycleCount != 0 {
		t.Fatalf("fresh machine cycle count = %d, want 0", compiled.Machine.CycleCount)
	}

	if err := s.Step(); err != nil {
		t.Fatalf("Step() error: %v", err)
	}
	if got := compiledState(t, s).Machine; got.CycleCount != 1 || got.Terminated {
		t.Fatalf("after one step: %+v", got)
	}

	if err := s.Step(); err != nil {
		t.Fatalf("Step() error: %v", err)
	}
	final := compiledState(t, s).Machine
	if !final.Terminated || !final.Successful || final.CycleCount != 2 {
		t.Fatalf("terminal snapshot = %+v", final)
	}
	if len(final.Output) != 1 || final.Output[0] != 1 {
		t.Fatalf("output = %v, want [1]", final.Output)
	}

	// Stepping a terminated machine changes nothing.
	if err := s.Step(); err != nil {
		t.Fatalf("Step() after termination error: %v", err)
	}
	if got := compiledState(t, s).Machine.CycleCount; got != 2 {
		t.Fatalf("cycle count moved to %d after termination", got)
	}
}

func TestSessionRunExecutesToTermination(t *testing.T) {
	s := newLocalSession(t, ide.WithDebounce(0))
	s.SetSource("READ RX0\nWRITE RX0")
	if err := s.Run(); err != nil {
		t.Fatalf("Run() error: %v", err)
	}
	final := compiledState(t, s).Machine
	if !final.Terminated || !final.Successful || final.CycleCount != 2 {
		t.Fatalf("terminal snapshot = %+v", final)
	}
}

func TestSessionExecutionNeedsCompiledProgram(t *testing.T) {
	s := newLocalSession(t, ide.WithDebounce(0))
	if err := s.Step(); !errors.Is(err, ide.ErrNotCompiled) {
		t.Fatalf("Step() error = %v, want ErrNotCompiled", err)
	}
	if err := s.Run(); !errors.Is(err, ide.ErrNotCompiled) {
		t.Fatalf("Run() error = %v, want ErrNotCompiled", err)
	}
	if err := s.StartAutoStep(); !errors.Is(err, ide.ErrNotCompiled) {
		t.Fatalf("StartAutoStep() error = %v, want ErrNotCompiled", err)
	}
}

func TestSessionEditInvalidatesCompiledProgram(t *testing.T) {
	s := newLocalSession(t, ide.WithDebounce(time.Hour))

	s.SetSource("READ RX0\nWRITE RX0")
	if err := s.Compile(); err != nil {
		t.Fatalf("Compile() error: %v", err)
	}
	compiledState(t, s)

	// The edit takes effect immediately even though the recompile is
	// debounced away for an hour.
	s.SetSource("READ RX0\nWRITE RX0\nWRITE RX0")
	if _, ok := s.State().(ide.Uncompiled); !ok {
		t.Fatalf("state after edit = %T, want Uncompiled", s.State())
	}
	if err := s.Step(); !errors.Is(err, ide.ErrNotCompiled) {
		t.Fatalf("Step() after edit error = %v, want ErrNotCompiled", err)
	}
}

func TestSessionDebounceCompilesOnlyTheLastEdit(t *testing.T) {
	s := newLocalSession(t, ide.WithDebounce(30*time.Millisecond))
	events, cancel := s.Subscribe()
	defer cancel()

	s.SetSource("WRITE 1")
	s.SetSource("WRITE 2")
	s.SetSource("READ RX0\nWRITE RX0")

	if _, ok := s.State().(ide.Uncompiled); !ok {
		t.Fatalf("state right after edits = %T, want Uncompiled", s.State())
	}

	waitFor(t, 2*time.Second, "debounced compile", func() bool {
		_, ok := s.State().(ide.Compiled)
		return ok
	})

	compiled := compiledState(t, s)
	if len(compiled.Instructions) != 2 {
		t.Fatalf("instructions = %d, want 2 from the final edit", len(compiled.Instructions))
	}
	if got := compiled.Instructions[0].Text; got != "READ RX0" {
		t.Fatalf("instructions[0] = %q, want the final source", got)
	}

	// Exactly one compile ran: the superseded edits never reached
	// Compiling.
	compiles := 0
	for drained := false; !drained; {
		select {
		case ev := <-events:
			if _, ok := ev.State.(ide.Compiling); ok && ev.Kind == ide.EventStateChanged {
				compiles++
			}
		default:
			drained = true
		}
	}
	if compiles != 1 {
		t.Fatalf("observed %d compiles, want 1", compiles)
	}
}

func TestSessionEmptySourceNeverCompiles(t *testing.T) {
	s := newLocalSession(t, ide.WithDebounce(0))

	s.SetSource("   \n\t")
	if _, ok := s.State().(ide.Uncompiled); !ok {
		t.Fatalf("state = %T, want Uncompiled", s.State())
	}
	if err := s.Compile(); err != nil {
		t.Fatalf("Compile() on empty source error: %v", err)
	}
	if _, ok := s.State().(ide.Uncompiled); !ok {
		t.Fatalf("state after explicit compile = %T, want Uncompiled", s.State())
	}
}

func TestSessionCompileFailureCarriesDiagnostics(t *testing.T) {
	s := newLocalSession(t, ide.WithDebounce(0))
	s.SetSource("FOO BAR")

	failed, ok := s.State().(ide.CompileFailed)
	if !ok {
		t.Fatalf("state = %T, want CompileFailed", s.State())
	}
	if len(failed.Diagnostics) != 1 {
		t.Fatalf("diagnostics = %d, want 1", len(failed.Diagnostics))
	}
	d := failed.Diagnostics[0]
	if d.Text != "Syntax error at 1:1: Expected statement" {
		t.Fatalf("diagnostic text = %q", d.Text)
	}
	want := lang.Span{StartLine: 1, StartCol: 1, EndLine: 1, EndCol: 8}
	if d.Span != want {
		t.Fatalf("diagnostic span = %+v, want %+v", d.Span, want)
	}
}

func TestSessionResetYieldsFreshMachine(t *testing.T) {
	s := newLocalSession(t, ide.WithDebounce(0))
	s.SetSource("READ RX0\nWRITE RX0")
	if err := s.Run(); err != nil {
		t.Fatalf("Run() error: %v", err)
	}
	if !compiledState(t, s).Machine.Terminated {
		t.Fatal("machine did not terminate")
	}

	if err := s.Reset(); err != nil {
		t.Fatalf("Reset() error: %v", err)
	}
	fresh := compiledState(t, s).Machine
	if fresh.Terminated || fresh.CycleCount != 0 {
		t.Fatalf("machine after reset = %+v, want fresh", fresh)
	}
	if len(fresh.Input) != 1 {
		t.Fatalf("input after reset = %v, want restored", fresh.Input)
	}
}

func TestSessionAutoStepExclusion(t *testing.T) {
	s := newLocalSession(t, ide.WithDebounce(0), ide.WithBaseInterval(time.Hour))
	s.SetSource("READ RX0\nWRITE RX0")

	if err := s.StartAutoStep(); err != nil {
		t.Fatalf("StartAutoStep() error: %v", err)
	}
	if !s.Stepping().Active {
		t.Fatal("stepping inactive after StartAutoStep")
	}
	if err := s.StartAutoStep(); err != nil {
		t.Fatalf("second StartAutoStep() error: %v", err)
	}
	if err := s.Step(); !errors.Is(err, ide.ErrAutoStepActive) {
		t.Fatalf("Step() while auto-stepping error = %v, want ErrAutoStepActive", err)
	}
	if err := s.Run(); !errors.Is(err, ide.ErrAutoStepActive) {
		t.Fatalf("Run() while auto-stepping error = %v, want ErrAutoStepActive", err)
	}

	if err := s.StopAutoStep(); err != nil {
		t.Fatalf("StopAutoStep() error: %v", err)
	}
	if s.Stepping().Active {
		t.Fatal("stepping active after StopAutoStep")
	}
	if err := s.Step(); err != nil {
		t.Fatalf("Step() after StopAutoStep error: %v", err)
	}
}

func TestSessionAutoStepRunsToTermination(t *testing.T) {
	s := newLocalSession(t, ide.WithDebounce(0), ide.WithBaseInterval(10*time.Millisecond))
	s.SetSource("READ RX0\nWRITE RX0")

	if err := s.StartAutoStep(); err != nil {
		t.Fatalf("StartAutoStep() error: %v", err)
	}
	waitFor(t, 2*time.Second, "auto-step to finish the program", func() bool {
		compiled, ok := s.State().(ide.Compiled)
		return ok && compiled.Machine.Terminated
	})
	// Termination forces auto-stepping off.
	waitFor(t, 2*time.Second, "stepping to deactivate", func() bool {
		return !s.Stepping().Active
	})
	if !compiledState(t, s).Machine.Successful {
		t.Fatalf("machine = %+v, want successful", compiledState(t, s).Machine)
	}

	if err := s.StartAutoStep(); !errors.Is(err, ide.ErrTerminated) {
		t.Fatalf("StartAutoStep() on terminated machine error = %v, want ErrTerminated", err)
	}
}

func TestSessionSpeedSelection(t *testing.T) {
	s := newLocalSession(t, ide.WithDebounce(0))

	if err := s.SetSpeed(3); !errors.Is(err, ide.ErrInvalidSpeed) {
		t.Fatalf("SetSpeed(3) error = %v, want ErrInvalidSpeed", err)
	}
	if err := s.SetSpeed(5); err != nil {
		t.Fatalf("SetSpeed(5) error: %v", err)
	}
	if got := s.Stepping().SpeedMultiplier; got != 5 {
		t.Fatalf("speed = %d, want 5", got)
	}
}

func TestSessionSubscription(t *testing.T) {
	s := newLocalSession(t, ide.WithDebounce(0))
	events, cancel := s.Subscribe()

	s.SetSource("READ RX0\nWRITE RX0")

	var sawCompiled bool
	for !sawCompiled {
		select {
		case ev := <-events:
			if ev.Kind != ide.EventStateChanged {
				continue
			}
			if _, ok := ev.State.(ide.Compiled); ok {
				sawCompiled = true
			}
		case <-time.After(2 * time.Second):
			t.Fatal("no Compiled event observed")
		}
	}

	cancel()
	waitFor(t, time.Second, "subscriber channel to close", func() bool {
		select {
		case _, ok := <-events:
			return !ok
		default:
			return false
		}
	})
	// Cancelling twice is fine.
	cancel()
}

func TestSessionCloseIsTerminal(t *testing.T) {
	s := newLocalSession(t, ide.WithDebounce(0))
	events, _ := s.Subscribe()
	s.SetSource("READ RX0\nWRITE RX0")

	s.Close()
	s.Close()

	if err := s.Compile(); !errors.Is(err, ide.ErrSessionClosed) {
		t.Fatalf("Compile() error = %v, want ErrSessionClosed", err)
	}
	if err := s.Step(); !errors.Is(err, ide.ErrSessionClosed) {
		t.Fatalf("Step() error = %v, want ErrSessionClosed", err)
	}
	if err := s.StartAutoStep(); !errors.Is(err, ide.ErrSessionClosed) {
		t.Fatalf("StartAutoStep() error = %v, want ErrSessionClosed", err)
	}
	if err := s.SetSpeed(2); !errors.Is(err, ide.ErrSessionClosed) {
		t.Fatalf("SetSpeed() error = %v, want ErrSessionClosed", err)
	}
	s.SetSource("ignored")

	waitFor(t, time.Second, "subscriber channel to close", func() bool {
		select {
		case _, ok := <-events:
			return !ok
		default:
			return false
		}
	})

	late, cancel := s.Subscribe()
	defer cancel()
	if _, ok := <-late; ok {
		t.Fatal("subscription on a closed session delivered an event")
	}
}
