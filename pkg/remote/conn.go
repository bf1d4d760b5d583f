// Package remote maintains one persistent websocket connection to an
// execution service. A Conn dials, decodes incoming frames into typed
// events, redials with a fixed delay after abnormal closures, and hands
// everything to a Handler injected at construction. Callbacks carry an
// epoch so consumers can discard events from superseded connections.
package remote

import (
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/cogvm/cog/internal/logging"
	"github.com/cogvm/cog/pkg/protocol"
)

// ErrSocketNotOpen is returned by Send while the connection is anything
// other than connected.
var ErrSocketNotOpen = errors.New("remote: socket is not open")

// DefaultReconnectDelay is the pause before redialing after an abnormal
// closure.
const DefaultReconnectDelay = 5 * time.Second

const writeWait = 10 * time.Second

// Status is the externally visible connection state.
type Status int

const (
	// StatusConnecting covers both the initial dial and redials.
	StatusConnecting Status = iota
	// StatusConnected means Send will accept messages.
	StatusConnected
	// StatusClosedNormal is a clean shutdown; the connection stays down.
	StatusClosedNormal
	// StatusClosedError is any other termination; a redial is pending
	// unless the attempt budget ran out or the Conn was disposed.
	StatusClosedError
)

func (s Status) String() string {
	switch s {
	case StatusConnecting:
		return "connecting"
	case StatusConnected:
		return "connected"
	case StatusClosedNormal:
		return "closedNormal"
	case StatusClosedError:
		return "closedError"
	default:
		return "unknown"
	}
}

// connState is the internal lifecycle; it is finer grained than Status
// because backing off and disposed both look "closed" from outside.
type connState int

const (
	stateIdle connState = iota
	stateConnecting
	stateConnected
	stateBackingOff
)

// Handler receives everything the connection produces. Calls arrive in
// order from a single goroutine per connection epoch. The handler is
// fixed at construction; there is no unsubscribe, the Conn stops calling
// after Dispose.
type Handler interface {
	// HandleOpen fires once per successful dial.
	HandleOpen(epoch int)
	// HandleEvent fires for every decoded frame, in arrival order.
	HandleEvent(epoch int, ev protocol.ServerEvent)
	// HandleError fires for transport and decode errors. A transport
	// error is always followed by HandleClose; a decode error is not.
	HandleError(epoch int, err error)
	// HandleClose fires once per terminated connection attempt.
	HandleClose(epoch int, status Status)
}

// Option configures a Conn.
type Option func(*Conn)

// WithLogger sets the connection logger. The default discards.
func WithLogger(log *slog.Logger) Option {
	return func(c *Conn) { c.log = log }
}

// WithReconnectDelay overrides DefaultReconnectDelay.
func WithReconnectDelay(d time.Duration) Option {
	return func(c *Conn) { c.delay = d }
}

// WithMaxAttempts bounds consecutive failed attempts before the Conn
// gives up redialing. Zero means unlimited, which is also the default;
// an abandoned session must call Dispose to stop the retry loop.
func WithMaxAttempts(n int) Option {
	return func(c *Conn) { c.maxAttempts = n }
}

// Conn is one logical connection to an execution service. It survives
// abnormal closures by redialing the same address.
type Conn struct {
	addr        string
	handler     Handler
	log         *slog.Logger
	delay       time.Duration
	maxAttempts int

	mu       sync.Mutex
	state    connState
	status   Status
	ws       *websocket.Conn
	epoch    int
	failures int
	retry    *time.Timer
	disposed bool
}

// Dial starts connecting to addr (a full ws:// or wss:// URL) and returns
// immediately. The handler hears about the outcome.
func Dial(addr string, handler Handler, opts ...Option) *Conn {
	c := &Conn{
		addr:    addr,
		handler: handler,
		log:     logging.NewNop(),
		delay:   DefaultReconnectDelay,
		state:   stateConnecting,
		status:  StatusConnecting,
	}
	for _, opt := range opts {
		opt(c)
	}
	c.mu.Lock()
	c.epoch++
	epoch := c.epoch
	c.mu.Unlock()
	go c.connect(epoch)
	return c
}

// Status returns the externally visible connection state.
func (c *Conn) Status() Status {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.status
}

// Send encodes and writes one client message. It fails with
// ErrSocketNotOpen unless the connection is currently open.
func (c *Conn) Send(msg protocol.ClientMessage) error {
	data, err := protocol.MarshalClient(msg)
	if err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state != stateConnected || c.ws == nil {
		return ErrSocketNotOpen
	}
	c.ws.SetWriteDeadline(time.Now().Add(writeWait))
	return c.ws.WriteMessage(websocket.TextMessage, data)
}

// Dispose tears the connection down: the retry timer is cancelled, the
// socket is closed, and no handler callback fires afterwards. Dispose is
// idempotent and safe from any state.
func (c *Conn) Dispose() {
	c.mu.Lock()
	if c.disposed {
		c.mu.Unlock()
		return
	}
	c.disposed = true
	c.state = stateIdle
	c.status = StatusClosedNormal
	if c.retry != nil {
		c.retry.Stop()
		c.retry = nil
	}
	ws := c.ws
	c.ws = nil
	c.mu.Unlock()

	if ws != nil {
		ws.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(writeWait))
		ws.Close()
	}
}

// connect performs one dial attempt for the given epoch.
func (c *Conn) connect(epoch int) {
	ws, resp, err := websocket.DefaultDialer.Dial(c.addr, nil)
	if resp != nil && resp.Body != nil {
		resp.Body.Close()
	}

	c.mu.Lock()
	if c.disposed || epoch != c.epoch {
		c.mu.Unlock()
		if ws != nil {
			ws.Close()
		}
		return
	}
	if err != nil {
		c.mu.Unlock()
		c.log.Warn("dial failed", "addr", c.addr, "epoch", epoch, "error", err)
		c.handler.HandleError(epoch, err)
		c.finishAttempt(epoch)
		return
	}
	c.ws = ws
	c.state = stateConnected
	c.status = StatusConnected
	c.failures = 0
	c.mu.Unlock()

	if !c.live(epoch) {
		// Disposed while we were setting up; Dispose closed the socket.
		return
	}
	c.log.Debug("connected", "addr", c.addr, "epoch", epoch)
	c.handler.HandleOpen(epoch)
	go c.readLoop(ws, epoch)
}

// readLoop decodes frames until the socket dies, dispatching each event
// synchronously so arrival order is preserved.
func (c *Conn) readLoop(ws *websocket.Conn, epoch int) {
	for {
		_, data, err := ws.ReadMessage()
		if err != nil {
			c.closed(epoch, err)
			return
		}
		if !c.live(epoch) {
			return
		}
		ev, decodeErr := protocol.UnmarshalServer(data)
		if decodeErr != nil {
			// A frame that fails to decode does not kill the connection.
			c.log.Warn("undecodable frame", "epoch", epoch, "error", decodeErr)
			c.handler.HandleError(epoch, decodeErr)
			continue
		}
		c.handler.HandleEvent(epoch, ev)
	}
}

// live reports whether callbacks for the given epoch may still fire.
func (c *Conn) live(epoch int) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return !c.disposed && epoch == c.epoch
}

// closed handles the end of a connection's read loop.
func (c *Conn) closed(epoch int, err error) {
	c.mu.Lock()
	if c.disposed || epoch != c.epoch {
		c.mu.Unlock()
		return
	}
	c.ws = nil
	normal := websocket.IsCloseError(err, websocket.CloseNormalClosure)
	if normal {
		c.state = stateIdle
		c.status = StatusClosedNormal
		c.mu.Unlock()
		c.log.Debug("closed", "epoch", epoch)
		c.handler.HandleClose(epoch, StatusClosedNormal)
		return
	}
	c.mu.Unlock()

	c.log.Warn("connection lost", "epoch", epoch, "error", err)
	c.handler.HandleError(epoch, err)
	c.finishAttempt(epoch)
}

// finishAttempt records an abnormal termination, notifies the handler and
// schedules the redial unless the failure budget ran out.
func (c *Conn) finishAttempt(epoch int) {
	c.mu.Lock()
	if c.disposed || epoch != c.epoch {
		c.mu.Unlock()
		return
	}
	c.failures++
	c.status = StatusClosedError
	exhausted := c.maxAttempts > 0 && c.failures >= c.maxAttempts
	if exhausted {
		c.state = stateIdle
	} else {
		c.state = stateBackingOff
		c.retry = time.AfterFunc(c.delay, c.redial)
	}
	c.mu.Unlock()

	c.handler.HandleClose(epoch, StatusClosedError)
	if exhausted {
		c.log.Warn("giving up", "addr", c.addr, "failures", c.failures)
	}
}

// redial moves from backing off to a fresh connection attempt.
func (c *Conn) redial() {
	c.mu.Lock()
	if c.disposed || c.state != stateBackingOff {
		c.mu.Unlock()
		return
	}
	c.retry = nil
	c.state = stateConnecting
	c.status = StatusConnecting
	c.epoch++
	epoch := c.epoch
	c.mu.Unlock()
	go c.connect(epoch)
}
