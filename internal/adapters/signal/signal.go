// Package signal carries the relay over WebSocket: upgrade, handshake close
// codes and the per-connection read and write pumps.
package signal

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/dkeye/roomrelay/internal/app/orch"
	"github.com/dkeye/roomrelay/internal/core"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

var (
	ErrBackpressure = errors.New("backpressure")
	ErrClosed       = errors.New("connection closed")
)

// Options tune each connection.
type Options struct {
	ReadLimit  int64
	PingPeriod time.Duration
	PongWait   time.Duration
	WriteWait  time.Duration
	SendBuffer int
}

type SignalWSController struct {
	Orch     *orch.Orchestrator
	opts     Options
	upgrader websocket.Upgrader
}

func (o Options) withDefaults() Options {
	if o.ReadLimit <= 0 {
		o.ReadLimit = 32768
	}
	if o.PongWait <= 0 {
		o.PongWait = 60 * time.Second
	}
	if o.PingPeriod <= 0 || o.PingPeriod >= o.PongWait {
		o.PingPeriod = o.PongWait * 9 / 10
	}
	if o.WriteWait <= 0 {
		o.WriteWait = 5 * time.Second
	}
	if o.SendBuffer <= 0 {
		o.SendBuffer = 32
	}
	return o
}

func NewSignalWSController(o *orch.Orchestrator, opts Options) *SignalWSController {
	opts = opts.withDefaults()
	return &SignalWSController{
		Orch: o,
		opts: opts,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}
}

// WsSignalConn is the session's outbound side. Frames are queued to a bounded
// buffer drained by the write pump; a full buffer is reported as backpressure.
type WsSignalConn struct {
	conn *websocket.Conn
	send chan core.Frame

	mu        sync.RWMutex
	closed    bool
	closeCode int
	closeText string
}

func newWsSignalConn(ws *websocket.Conn, buffer int) *WsSignalConn {
	return &WsSignalConn{conn: ws, send: make(chan core.Frame, buffer)}
}

func (c *WsSignalConn) TrySend(f core.Frame) error {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.closed {
		return ErrClosed
	}
	select {
	case c.send <- f:
	default:
		return ErrBackpressure
	}
	return nil
}

// Close stops accepting frames. The write pump flushes what is queued, sends
// a close frame with code and reason, then drops the socket.
func (c *WsSignalConn) Close(code int, reason string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.closed = true
	c.closeCode, c.closeText = code, reason
	close(c.send)
}

func (c *WsSignalConn) closeFrame() (int, string) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.closeCode, c.closeText
}

// HandleSignal upgrades the request and runs the handshake. A refused
// handshake is closed with the rejection's close code; an admitted session is
// served until either side goes away or ctx ends.
func (ctl *SignalWSController) HandleSignal(ctx context.Context, c *gin.Context, h orch.Handshake) {
	ws, err := ctl.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Error().Err(err).Str("module", "signal").Str("addr", h.Addr).Msg("ws upgrade")
		return
	}

	conn := newWsSignalConn(ws, ctl.opts.SendBuffer)
	sess, rej := ctl.Orch.Admit(c.Request.Context(), h, conn)
	if rej != nil {
		code, text := CloseFor(rej.Reason)
		writeClose(ws, code, text, ctl.opts.WriteWait)
		_ = ws.Close()
		return
	}

	go ctl.writePump(ctx, sess, conn)
	go ctl.readPump(sess, conn)
}
