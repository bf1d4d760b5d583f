package ide

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/cogvm/cog/internal/logging"
	"github.com/cogvm/cog/pkg/lang"
	"github.com/cogvm/cog/pkg/protocol"
	"github.com/cogvm/cog/pkg/remote"
)

// DefaultDebounce is how long a session waits after the last edit
// before compiling.
const DefaultDebounce = 500 * time.Millisecond

const subscriberBuffer = 16

// Option configures a Session.
type Option func(*Session)

// WithLogger sets the session logger. The default discards everything.
func WithLogger(log *slog.Logger) Option {
	return func(s *Session) {
		if log != nil {
			s.log = log
		}
	}
}

// WithDebounce sets the edit-to-compile delay. Zero compiles on every
// edit with no delay.
func WithDebounce(d time.Duration) Option {
	return func(s *Session) {
		if d >= 0 {
			s.debounce = d
		}
	}
}

// WithBaseInterval sets the auto-step cadence at speed multiplier 1.
func WithBaseInterval(d time.Duration) Option {
	return func(s *Session) {
		if d > 0 {
			s.baseInterval = d
		}
	}
}

// WithConnOptions forwards options to the connection of a remote
// session. Local sessions ignore it.
func WithConnOptions(opts ...remote.Option) Option {
	return func(s *Session) {
		s.connOpts = append(s.connOpts, opts...)
	}
}

// Session is the execution-control hub of one editor buffer. It tracks
// the source text, compiles it after edits settle, advances the
// resulting machine manually or on a timer, and notifies subscribers of
// every change. All methods are safe for concurrent use.
//
// A session drives either the embedded engine (NewLocalSession) or a
// remote execution service (NewRemoteSession). The surface is the same;
// remote sessions apply results asynchronously as service events
// arrive.
type Session struct {
	log          *slog.Logger
	debounce     time.Duration
	baseInterval time.Duration
	connOpts     []remote.Option

	mu     sync.Mutex
	closed bool

	source        string
	compiled      CompiledState
	compileEpoch  int
	debounceTimer *time.Timer

	exec    *ExecutionController
	stepper *SteppingController

	conn      *remote.Conn
	connEpoch int

	subs    map[int]chan Event
	nextSub int
}

func newSession(opts []Option) *Session {
	s := &Session{
		log:          logging.NewNop(),
		debounce:     DefaultDebounce,
		baseInterval: DefaultBaseInterval,
		compiled:     Uncompiled{},
		subs:         map[int]chan Event{},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// NewLocalSession returns a session backed by the embedded engine,
// running programs against the given hardware and program specs.
func NewLocalSession(hw lang.HardwareSpec, spec lang.ProgramSpec, opts ...Option) (*Session, error) {
	s := newSession(opts)
	exec, err := NewExecutionController(hw, spec)
	if err != nil {
		return nil, err
	}
	s.exec = exec
	s.stepper = NewSteppingController(s.baseInterval, s.autoTick)
	return s, nil
}

// NewRemoteSession returns a session backed by the execution service at
// addr, a websocket URL. Dialing starts immediately; the session
// compiles its source once the connection opens.
func NewRemoteSession(addr string, opts ...Option) (*Session, error) {
	if addr == "" {
		return nil, errors.New("ide: empty service address")
	}
	s := newSession(opts)
	s.stepper = NewSteppingController(s.baseInterval, nil)
	connOpts := append([]remote.Option{remote.WithLogger(s.log)}, s.connOpts...)
	s.conn = remote.Dial(addr, connHandler{s}, connOpts...)
	return s, nil
}

// Source returns the current source text.
func (s *Session) Source() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.source
}

// State returns the current compile state. Treat it as immutable.
func (s *Session) State() CompiledState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.compiled
}

// Stepping returns the current stepping view.
func (s *Session) Stepping() SteppingConfig {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stepper.Config()
}

// ConnectionStatus reports the state of the service connection. Local
// sessions always report StatusConnected; their engine is in process.
func (s *Session) ConnectionStatus() remote.Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.connectionStatusLocked()
}

// Subscribe registers for session events. The channel is buffered;
// subscribers that fall behind lose events rather than stall the
// session. Cancel releases the subscription and closes the channel, and
// closing the session closes every subscriber channel.
func (s *Session) Subscribe() (<-chan Event, func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ch := make(chan Event, subscriberBuffer)
	if s.closed {
		close(ch)
		return ch, func() {}
	}
	id := s.nextSub
	s.nextSub++
	s.subs[id] = ch
	cancel := func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		if sub, ok := s.subs[id]; ok {
			delete(s.subs, id)
			close(sub)
		}
	}
	return ch, cancel
}

// SetSource replaces the source text. Any compiled program is
// invalidated immediately and a fresh compile is scheduled once edits
// settle, so rapid edits compile only the final text. Setting the same
// text again changes nothing, and empty source is never compiled.
func (s *Session) SetSource(text string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed || text == s.source {
		return
	}
	s.source = text
	s.compileEpoch++
	s.invalidateLocked()
	s.scheduleCompileLocked()
	s.emitLocked(EventStateChanged, nil)
}

// Compile compiles the current source immediately, bypassing the
// debounce and superseding any pending compile. Empty source leaves the
// session Uncompiled. Source diagnostics surface as a CompileFailed
// state, not as an error; the returned error means the compile itself
// could not run.
func (s *Session) Compile() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrSessionClosed
	}
	s.compileEpoch++
	s.cancelDebounceLocked()
	return s.compileNowLocked()
}

// Reset discards all execution progress by recompiling the current
// source, which yields a fresh machine.
func (s *Session) Reset() error {
	return s.Compile()
}

// Step executes a single instruction. It fails with ErrNotCompiled
// before a successful compile and with ErrAutoStepActive while
// auto-stepping. Stepping a terminated machine changes nothing.
func (s *Session) Step() error {
	return s.execute(false)
}

// Run executes the program to termination. On a remote session it
// starts auto-stepping instead, which is the service's continuous
// execution mode.
func (s *Session) Run() error {
	return s.execute(true)
}

func (s *Session) execute(all bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrSessionClosed
	}
	compiled, ok := s.compiled.(Compiled)
	if !ok {
		return ErrNotCompiled
	}
	if s.stepper.Config().Active {
		return ErrAutoStepActive
	}
	if s.conn != nil {
		if all {
			return s.startAutoStepLocked()
		}
		return s.conn.Send(protocol.Step{})
	}
	snap, err := s.exec.Execute(all)
	if err != nil {
		return err
	}
	s.compiled = Compiled{Instructions: compiled.Instructions, Machine: snap}
	s.emitLocked(EventStateChanged, nil)
	return nil
}

// SetSpeed selects a speed multiplier from SpeedMultipliers. A running
// auto-step adopts the new cadence immediately; on a remote session the
// new cadence is pushed to the service.
func (s *Session) SetSpeed(multiplier int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrSessionClosed
	}
	if err := s.stepper.SetSpeed(multiplier); err != nil {
		return err
	}
	if s.conn != nil && s.stepper.Config().Active {
		if err := s.conn.Send(protocol.AutoStepStart{Interval: s.intervalMillis()}); err != nil {
			return err
		}
	}
	s.emitLocked(EventSteppingChanged, nil)
	return nil
}

// StartAutoStep begins continuous stepping at the configured cadence.
// It fails with ErrNotCompiled before a successful compile and with
// ErrTerminated once the machine has terminated. Starting an active
// auto-step changes nothing.
func (s *Session) StartAutoStep() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrSessionClosed
	}
	return s.startAutoStepLocked()
}

// StopAutoStep pauses continuous stepping. Stopping an inactive
// auto-step changes nothing.
func (s *Session) StopAutoStep() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrSessionClosed
	}
	if !s.stepper.Config().Active {
		return nil
	}
	s.stepper.Stop()
	if s.conn != nil {
		if err := s.conn.Send(protocol.AutoStepStop{}); err != nil {
			s.log.Warn("auto-step stop not delivered", "error", err)
		}
	}
	s.emitLocked(EventSteppingChanged, nil)
	return nil
}

// Close tears the session down: the debounce and step timers are
// cancelled, the service connection is disposed and every subscriber
// channel is closed. Close is idempotent, and all later calls fail with
// ErrSessionClosed.
func (s *Session) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	s.cancelDebounceLocked()
	s.stepper.Stop()
	conn := s.conn
	subs := s.subs
	s.subs = nil
	s.mu.Unlock()

	if conn != nil {
		conn.Dispose()
	}
	for _, ch := range subs {
		close(ch)
	}
}

func (s *Session) startAutoStepLocked() error {
	compiled, ok := s.compiled.(Compiled)
	if !ok {
		return ErrNotCompiled
	}
	if compiled.Machine.Terminated {
		return ErrTerminated
	}
	if s.stepper.Config().Active {
		return nil
	}
	if s.conn != nil {
		if err := s.conn.Send(protocol.AutoStepStart{Interval: s.intervalMillis()}); err != nil {
			return err
		}
	}
	s.stepper.Start()
	s.emitLocked(EventSteppingChanged, nil)
	return nil
}

// invalidateLocked drops any compiled program and halts stepping. The
// next state is always Uncompiled.
func (s *Session) invalidateLocked() {
	s.compiled = Uncompiled{}
	if s.exec != nil {
		s.exec.Invalidate()
	}
	if s.stepper.Config().Active {
		s.stepper.Stop()
		if s.conn != nil {
			if err := s.conn.Send(protocol.AutoStepStop{}); err != nil {
				s.log.Warn("auto-step stop not delivered", "error", err)
			}
		}
		s.emitLocked(EventSteppingChanged, nil)
	}
}

func (s *Session) scheduleCompileLocked() {
	s.cancelDebounceLocked()
	if strings.TrimSpace(s.source) == "" {
		return
	}
	if s.debounce == 0 {
		if err := s.compileNowLocked(); err != nil {
			s.log.Error("compile failed", "error", err)
			s.emitLocked(EventError, err)
		}
		return
	}
	epoch := s.compileEpoch
	s.debounceTimer = time.AfterFunc(s.debounce, func() {
		s.debouncedCompile(epoch)
	})
}

func (s *Session) debouncedCompile(epoch int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed || epoch != s.compileEpoch {
		// A later edit superseded this compile.
		return
	}
	if err := s.compileNowLocked(); err != nil {
		s.log.Error("compile failed", "error", err)
		s.emitLocked(EventError, err)
	}
}

func (s *Session) compileNowLocked() error {
	if strings.TrimSpace(s.source) == "" {
		return nil
	}
	s.compiled = Compiling{}
	s.emitLocked(EventStateChanged, nil)
	if s.conn != nil {
		// The result arrives later as a machineState or compileError
		// event.
		if err := s.conn.Send(protocol.Compile{SourceCode: s.source}); err != nil {
			s.compiled = Uncompiled{}
			s.emitLocked(EventStateChanged, nil)
			return err
		}
		return nil
	}
	state, err := s.exec.Compile(s.source)
	if err != nil {
		s.compiled = Uncompiled{}
		s.emitLocked(EventStateChanged, nil)
		return err
	}
	s.compiled = state
	s.emitLocked(EventStateChanged, nil)
	return nil
}

// autoTick runs on the step timer goroutine.
func (s *Session) autoTick() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed || !s.stepper.Config().Active {
		return
	}
	compiled, ok := s.compiled.(Compiled)
	if !ok {
		s.stepper.Stop()
		s.emitLocked(EventSteppingChanged, nil)
		return
	}
	snap, err := s.exec.Execute(false)
	if err != nil {
		s.stepper.Stop()
		s.emitLocked(EventError, err)
		return
	}
	s.compiled = Compiled{Instructions: compiled.Instructions, Machine: snap}
	s.haltSteppingOnTerminationLocked()
	s.emitLocked(EventStateChanged, nil)
}

// haltSteppingOnTerminationLocked forces auto-stepping off once the
// machine has terminated.
func (s *Session) haltSteppingOnTerminationLocked() {
	compiled, ok := s.compiled.(Compiled)
	if ok && !compiled.Machine.Terminated {
		return
	}
	if !s.stepper.Config().Active {
		return
	}
	s.stepper.Stop()
	if s.conn != nil {
		if err := s.conn.Send(protocol.AutoStepStop{}); err != nil {
			s.log.Debug("auto-step stop not delivered", "error", err)
		}
	}
	s.emitLocked(EventSteppingChanged, nil)
}

func (s *Session) cancelDebounceLocked() {
	if s.debounceTimer != nil {
		s.debounceTimer.Stop()
		s.debounceTimer = nil
	}
}

func (s *Session) connectionStatusLocked() remote.Status {
	if s.conn == nil {
		return remote.StatusConnected
	}
	return s.conn.Status()
}

func (s *Session) intervalMillis() int {
	return int(s.stepper.Interval() / time.Millisecond)
}

func (s *Session) emitLocked(kind EventKind, err error) {
	ev := Event{
		Kind:       kind,
		State:      s.compiled,
		Stepping:   s.stepper.Config(),
		Connection: s.connectionStatusLocked(),
		Err:        err,
	}
	for _, ch := range s.subs {
		select {
		case ch <- ev:
		default:
			// Slow subscribers lose events rather than stall the
			// session.
		}
	}
}

// connHandler feeds connection callbacks into the session. It exists so
// the remote.Handler methods stay off the session's public surface.
type connHandler struct {
	s *Session
}

func (h connHandler) HandleOpen(epoch int) { h.s.connOpened(epoch) }

func (h connHandler) HandleEvent(epoch int, ev protocol.ServerEvent) { h.s.connEvent(epoch, ev) }

func (h connHandler) HandleError(epoch int, err error) { h.s.connError(epoch, err) }

func (h connHandler) HandleClose(epoch int, status remote.Status) { h.s.connClosed(epoch, status) }

func (s *Session) connOpened(epoch int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.connEpoch = epoch
	s.emitLocked(EventConnectionChanged, nil)
	// A fresh connection holds no compilation; re-establish it from the
	// current source.
	if strings.TrimSpace(s.source) == "" {
		return
	}
	s.compileEpoch++
	s.cancelDebounceLocked()
	if err := s.compileNowLocked(); err != nil {
		s.log.Error("compile on connect failed", "error", err)
		s.emitLocked(EventError, err)
	}
}

func (s *Session) connEvent(epoch int, ev protocol.ServerEvent) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed || epoch != s.connEpoch {
		// An event from a connection that is no longer current.
		return
	}
	switch e := ev.(type) {
	case protocol.MachineState:
		s.applyRemoteSnapshotLocked(e.Snapshot)
	case protocol.CompileError:
		// The service reports the failure without diagnostics.
		s.compiled = CompileFailed{}
		s.emitLocked(EventStateChanged, nil)
	case protocol.RuntimeError:
		// The terminal snapshot carrying the diagnostic follows.
		s.log.Debug("service reported a runtime error")
	case protocol.NoCompilation:
		s.emitLocked(EventError, ErrNoCompilation)
	case protocol.MalformedMessage:
		s.emitLocked(EventError, fmt.Errorf("ide: service rejected a frame: %s", e.Reason))
	}
}

// applyRemoteSnapshotLocked installs a machine snapshot pushed by the
// service. Snapshots are only applied while a compile is in flight or a
// program is live; otherwise they answer a superseded request and are
// dropped.
func (s *Session) applyRemoteSnapshotLocked(snap MachineSnapshot) {
	switch prev := s.compiled.(type) {
	case Compiling:
		s.compiled = Compiled{Machine: snap}
	case Compiled:
		s.compiled = Compiled{Instructions: prev.Instructions, Machine: snap}
	default:
		return
	}
	s.haltSteppingOnTerminationLocked()
	s.emitLocked(EventStateChanged, nil)
}

func (s *Session) connError(epoch int, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.log.Warn("connection error", "epoch", epoch, "error", err)
	s.emitLocked(EventError, err)
}

func (s *Session) connClosed(epoch int, status remote.Status) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	if epoch == s.connEpoch {
		s.connEpoch = 0
	}
	// Without the service there is nothing driving the machine.
	if s.stepper.Config().Active {
		s.stepper.Stop()
		s.emitLocked(EventSteppingChanged, nil)
	}
	s.log.Info("connection closed", "status", status)
	s.emitLocked(EventConnectionChanged, nil)
}

var _ remote.Handler = connHandler{}
