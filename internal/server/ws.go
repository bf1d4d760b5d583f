package server

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/gorilla/websocket"

	"github.com/cogvm/cog/pkg/ide"
	"github.com/cogvm/cog/pkg/lang"
	"github.com/cogvm/cog/pkg/protocol"
)

const (
	// pingInterval paces server pings; pongWait is the read deadline each
	// pong (or any frame) refreshes.
	pingInterval = 5 * time.Second
	pongWait     = 10 * time.Second
	writeWait    = 10 * time.Second

	// minStepInterval clamps client-requested auto-step cadence.
	minStepInterval = 10 * time.Millisecond

	maxFrameBytes = 1 << 20
)

// execConn is the per-connection execution actor. The actor goroutine
// owns the machine and the websocket writer; a reader goroutine feeds it
// frames, so no mutation ever races.
type execConn struct {
	ws      *websocket.Conn
	hw      lang.HardwareSpec
	spec    lang.ProgramSpec
	log     *slog.Logger
	metrics *metrics

	machine *lang.Machine
	ticker  *time.Ticker
}

func (c *execConn) run() {
	defer c.ws.Close()
	defer c.stopAutoStep()

	c.ws.SetReadLimit(maxFrameBytes)
	c.ws.SetReadDeadline(time.Now().Add(pongWait))
	c.ws.SetPongHandler(func(string) error {
		return c.ws.SetReadDeadline(time.Now().Add(pongWait))
	})

	frames := make(chan []byte)
	readErr := make(chan error, 1)
	done := make(chan struct{})
	defer close(done)
	go c.readPump(frames, readErr, done)

	pings := time.NewTicker(pingInterval)
	defer pings.Stop()

	for {
		select {
		case data := <-frames:
			if err := c.handleFrame(data); err != nil {
				c.log.Debug("dropping connection", "error", err)
				return
			}
		case err := <-readErr:
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				c.log.Warn("read failed", "error", err)
			} else {
				c.log.Debug("client disconnected", "error", err)
			}
			return
		case <-c.tickerC():
			if err := c.autoStep(); err != nil {
				c.log.Debug("dropping connection", "error", err)
				return
			}
		case <-pings.C:
			if err := c.ws.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				c.log.Debug("ping failed", "error", err)
				return
			}
		}
	}
}

// readPump feeds raw frames to the actor until the connection or the
// actor goes away.
func (c *execConn) readPump(frames chan<- []byte, readErr chan<- error, done <-chan struct{}) {
	for {
		_, data, err := c.ws.ReadMessage()
		if err != nil {
			select {
			case readErr <- err:
			case <-done:
			}
			return
		}
		select {
		case frames <- data:
		case <-done:
			return
		}
	}
}

// tickerC exposes the auto-step channel, or a nil channel that blocks
// forever while auto-step is idle.
func (c *execConn) tickerC() <-chan time.Time {
	if c.ticker == nil {
		return nil
	}
	return c.ticker.C
}

func (c *execConn) handleFrame(data []byte) error {
	msg, err := protocol.UnmarshalClient(data)
	if err != nil {
		c.metrics.messages.WithLabelValues("malformed").Inc()
		c.log.Debug("rejected frame", "error", err)
		return c.send(protocol.MalformedMessage{Reason: err.Error()})
	}

	switch m := msg.(type) {
	case protocol.Compile:
		c.metrics.messages.WithLabelValues("compile").Inc()
		return c.compile(m.SourceCode)
	case protocol.Step:
		c.metrics.messages.WithLabelValues("step").Inc()
		return c.step()
	case protocol.AutoStepStart:
		c.metrics.messages.WithLabelValues("autoStepStart").Inc()
		return c.startAutoStep(m.Interval)
	case protocol.AutoStepStop:
		c.metrics.messages.WithLabelValues("autoStepStop").Inc()
		c.stopAutoStep()
		return nil
	default:
		return c.send(protocol.MalformedMessage{Reason: fmt.Sprintf("unsupported message %T", msg)})
	}
}

// compile replaces the machine. Diagnostics stay server-side; the wire
// only says the compile was rejected.
func (c *execConn) compile(source string) error {
	c.stopAutoStep()

	start := time.Now()
	program, err := lang.Compile(source, c.hw)
	c.metrics.compileDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		c.machine = nil
		var compileErr *lang.CompileError
		if errors.As(err, &compileErr) {
			c.log.Debug("compile rejected", "diagnostics", len(compileErr.Diagnostics))
			return c.send(protocol.CompileError{})
		}
		return err
	}

	c.machine = program.NewMachine(c.spec)
	c.log.Debug("compiled", "instructions", len(program.Instructions()))
	return c.send(protocol.MachineState{Snapshot: ide.Snapshot(c.machine)})
}

// step executes one instruction. A halt produced by this step is
// announced with runtimeError before the snapshot that carries the
// diagnostic.
func (c *execConn) step() error {
	if c.machine == nil {
		return c.send(protocol.NoCompilation{})
	}

	halted := c.machine.Err() != nil
	if c.machine.ExecuteNext() {
		c.metrics.steps.Inc()
	}
	if d := c.machine.Err(); d != nil && !halted {
		c.log.Debug("program halted", "diagnostic", d.Text)
		if err := c.send(protocol.RuntimeError{}); err != nil {
			return err
		}
	}
	return c.send(protocol.MachineState{Snapshot: ide.Snapshot(c.machine)})
}

func (c *execConn) startAutoStep(intervalMillis int) error {
	if c.machine == nil {
		return c.send(protocol.NoCompilation{})
	}

	interval := time.Duration(intervalMillis) * time.Millisecond
	if interval < minStepInterval {
		interval = minStepInterval
	}
	c.stopAutoStep()
	c.ticker = time.NewTicker(interval)
	c.log.Debug("auto-step started", "interval", interval)
	return nil
}

func (c *execConn) stopAutoStep() {
	if c.ticker == nil {
		return
	}
	c.ticker.Stop()
	c.ticker = nil
	c.log.Debug("auto-step stopped")
}

func (c *execConn) autoStep() error {
	if err := c.step(); err != nil {
		return err
	}
	if c.machine == nil || c.machine.Terminated() {
		c.stopAutoStep()
	}
	return nil
}

func (c *execConn) send(ev protocol.ServerEvent) error {
	data, err := protocol.MarshalServer(ev)
	if err != nil {
		return err
	}
	c.ws.SetWriteDeadline(time.Now().Add(writeWait))
	return c.ws.WriteMessage(websocket.TextMessage, data)
}
