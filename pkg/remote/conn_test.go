package remote_test

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cogvm/cog/pkg/protocol"
	"github.com/cogvm/cog/pkg/remote"
)

// recorder collects every handler callback for later assertions.
type recorder struct {
	mu     sync.Mutex
	opens  []int
	events []protocol.ServerEvent
	errs   []error
	closes []remote.Status
}

func (r *recorder) HandleOpen(epoch int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.opens = append(r.opens, epoch)
}

func (r *recorder) HandleEvent(epoch int, ev protocol.ServerEvent) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
}

func (r *recorder) HandleError(epoch int, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.errs = append(r.errs, err)
}

func (r *recorder) HandleClose(epoch int, status remote.Status) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.closes = append(r.closes, status)
}

func (r *recorder) openCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.opens)
}

func (r *recorder) eventCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.events)
}

func (r *recorder) closeStatuses() []remote.Status {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]remote.Status, len(r.closes))
	copy(out, r.closes)
	return out
}

// wsServer runs an upgrade endpoint, handing each accepted connection and
// its 1-based dial count to handle.
func wsServer(t *testing.T, handle func(conn *websocket.Conn, dial int)) (*httptest.Server, *atomic.Int32) {
	t.Helper()
	var dials atomic.Int32
	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		handle(conn, int(dials.Add(1)))
	}))
	t.Cleanup(srv.Close)
	return srv, &dials
}

func wsURL(srv *httptest.Server) string {
	return "ws" + strings.TrimPrefix(srv.URL, "http")
}

func closeNormally(conn *websocket.Conn) {
	conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(time.Second))
	conn.Close()
}

func TestConnectReceiveAndSend(t *testing.T) {
	received := make(chan protocol.ClientMessage, 1)
	srv, _ := wsServer(t, func(conn *websocket.Conn, dial int) {
		frame, err := protocol.MarshalServer(protocol.NoCompilation{})
		if err == nil {
			conn.WriteMessage(websocket.TextMessage, frame)
		}
		_, data, err := conn.ReadMessage()
		if err == nil {
			if msg, err := protocol.UnmarshalClient(data); err == nil {
				received <- msg
			}
		}
		closeNormally(conn)
	})

	rec := &recorder{}
	conn := remote.Dial(wsURL(srv), rec)
	defer conn.Dispose()

	require.Eventually(t, func() bool { return rec.eventCount() == 1 }, 2*time.Second, 10*time.Millisecond)
	rec.mu.Lock()
	assert.Equal(t, protocol.NoCompilation{}, rec.events[0])
	rec.mu.Unlock()
	assert.Equal(t, 1, rec.openCount())

	require.NoError(t, conn.Send(protocol.Step{}))
	select {
	case msg := <-received:
		assert.Equal(t, protocol.Step{}, msg)
	case <-time.After(2 * time.Second):
		t.Fatal("server never received the step")
	}

	require.Eventually(t, func() bool {
		return conn.Status() == remote.StatusClosedNormal
	}, 2*time.Second, 10*time.Millisecond)
	assert.Equal(t, []remote.Status{remote.StatusClosedNormal}, rec.closeStatuses())
}

func TestSendFailsWhenNotOpen(t *testing.T) {
	srv, _ := wsServer(t, func(conn *websocket.Conn, dial int) {
		closeNormally(conn)
	})

	rec := &recorder{}
	conn := remote.Dial(wsURL(srv), rec)
	defer conn.Dispose()

	require.Eventually(t, func() bool {
		return conn.Status() == remote.StatusClosedNormal
	}, 2*time.Second, 10*time.Millisecond)

	err := conn.Send(protocol.Step{})
	assert.ErrorIs(t, err, remote.ErrSocketNotOpen)
}

func TestNormalCloseDoesNotReconnect(t *testing.T) {
	srv, dials := wsServer(t, func(conn *websocket.Conn, dial int) {
		closeNormally(conn)
	})

	rec := &recorder{}
	conn := remote.Dial(wsURL(srv), rec, remote.WithReconnectDelay(20*time.Millisecond))
	defer conn.Dispose()

	require.Eventually(t, func() bool {
		return conn.Status() == remote.StatusClosedNormal
	}, 2*time.Second, 10*time.Millisecond)

	// Give a misbehaving implementation time to redial.
	time.Sleep(150 * time.Millisecond)
	assert.Equal(t, int32(1), dials.Load())
	assert.Equal(t, []remote.Status{remote.StatusClosedNormal}, rec.closeStatuses())
}

func TestAbnormalCloseReconnectsExactlyOncePerDrop(t *testing.T) {
	const drops = 3
	srv, dials := wsServer(t, func(conn *websocket.Conn, dial int) {
		if dial <= drops {
			// Abrupt TCP close, no close handshake.
			conn.Close()
			return
		}
		closeNormally(conn)
	})

	rec := &recorder{}
	conn := remote.Dial(wsURL(srv), rec, remote.WithReconnectDelay(20*time.Millisecond))
	defer conn.Dispose()

	require.Eventually(t, func() bool {
		return conn.Status() == remote.StatusClosedNormal
	}, 5*time.Second, 10*time.Millisecond)
	time.Sleep(150 * time.Millisecond)

	// One initial dial, then one redial per abnormal drop. The clean
	// close at the end must not trigger another.
	assert.Equal(t, int32(drops+1), dials.Load())

	want := make([]remote.Status, 0, drops+1)
	for i := 0; i < drops; i++ {
		want = append(want, remote.StatusClosedError)
	}
	want = append(want, remote.StatusClosedNormal)
	assert.Equal(t, want, rec.closeStatuses())
	assert.Equal(t, drops+1, rec.openCount())
}

func TestDisposeCancelsPendingReconnect(t *testing.T) {
	srv, dials := wsServer(t, func(conn *websocket.Conn, dial int) {
		conn.Close()
	})

	rec := &recorder{}
	conn := remote.Dial(wsURL(srv), rec, remote.WithReconnectDelay(100*time.Millisecond))

	require.Eventually(t, func() bool {
		return len(rec.closeStatuses()) == 1
	}, 2*time.Second, 10*time.Millisecond)

	conn.Dispose()
	conn.Dispose() // idempotent

	time.Sleep(300 * time.Millisecond)
	assert.Equal(t, int32(1), dials.Load())
	assert.Equal(t, remote.StatusClosedNormal, conn.Status())
}

func TestUndecodableFrameReportsErrorAndKeepsConnection(t *testing.T) {
	srv, _ := wsServer(t, func(conn *websocket.Conn, dial int) {
		conn.WriteMessage(websocket.TextMessage, []byte("not a frame"))
		frame, _ := protocol.MarshalServer(protocol.NoCompilation{})
		conn.WriteMessage(websocket.TextMessage, frame)
		// Hold the connection open until the client is done.
		conn.ReadMessage()
	})

	rec := &recorder{}
	conn := remote.Dial(wsURL(srv), rec)
	defer conn.Dispose()

	require.Eventually(t, func() bool { return rec.eventCount() == 1 }, 2*time.Second, 10*time.Millisecond)
	assert.Equal(t, remote.StatusConnected, conn.Status())

	rec.mu.Lock()
	defer rec.mu.Unlock()
	require.Len(t, rec.errs, 1)
	assert.Contains(t, rec.errs[0].Error(), "malformed frame")
	assert.Equal(t, protocol.NoCompilation{}, rec.events[0])
}

func TestMaxAttemptsStopsRedialing(t *testing.T) {
	// A server that refuses the websocket handshake entirely, so every
	// dial attempt fails and the consecutive-failure budget applies.
	var dials atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		dials.Add(1)
		http.Error(w, "not here", http.StatusNotFound)
	}))
	t.Cleanup(srv.Close)

	rec := &recorder{}
	conn := remote.Dial(wsURL(srv), rec,
		remote.WithReconnectDelay(20*time.Millisecond),
		remote.WithMaxAttempts(2))
	defer conn.Dispose()

	require.Eventually(t, func() bool {
		return len(rec.closeStatuses()) == 2
	}, 2*time.Second, 10*time.Millisecond)
	time.Sleep(150 * time.Millisecond)

	assert.Equal(t, int32(2), dials.Load())
	assert.Equal(t, remote.StatusClosedError, conn.Status())
	assert.Equal(t, []remote.Status{remote.StatusClosedError, remote.StatusClosedError}, rec.closeStatuses())
}

func TestEpochsIncreaseAcrossReconnects(t *testing.T) {
	srv, _ := wsServer(t, func(conn *websocket.Conn, dial int) {
		if dial == 1 {
			conn.Close()
			return
		}
		closeNormally(conn)
	})

	rec := &recorder{}
	conn := remote.Dial(wsURL(srv), rec, remote.WithReconnectDelay(20*time.Millisecond))
	defer conn.Dispose()

	require.Eventually(t, func() bool { return rec.openCount() == 2 }, 2*time.Second, 10*time.Millisecond)

	rec.mu.Lock()
	defer rec.mu.Unlock()
	assert.Greater(t, rec.opens[1], rec.opens[0], "later connections must carry larger epochs")
}
