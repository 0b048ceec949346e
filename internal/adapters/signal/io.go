package signal

import (
	"context"
	"errors"
	"time"

	"github.com/dkeye/roomrelay/internal/core"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

func (ctl *SignalWSController) writePump(ctx context.Context, sess *core.Session, c *WsSignalConn) {
	ticker := time.NewTicker(ctl.opts.PingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case <-ctx.Done():
			log.Debug().Str("module", "signal").Str("sid", string(sess.ID)).Msg("writePump ctx done")
			c.Close(websocket.CloseGoingAway, "server shutting down")
			writeClose(c.conn, websocket.CloseGoingAway, "server shutting down", ctl.opts.WriteWait)
			return
		case data, ok := <-c.send:
			if !ok {
				code, text := c.closeFrame()
				writeClose(c.conn, code, text, ctl.opts.WriteWait)
				return
			}
			if err := c.conn.SetWriteDeadline(time.Now().Add(ctl.opts.WriteWait)); err != nil {
				log.Error().Err(err).Str("module", "signal").Msg("writePump set deadline")
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				log.Warn().Err(err).Str("module", "signal").Str("sid", string(sess.ID)).Msg("writePump write error")
				return
			}
		case <-ticker.C:
			if err := ping(c.conn, ctl.opts.WriteWait); err != nil {
				log.Warn().Err(err).Str("module", "signal").Str("sid", string(sess.ID)).Msg("keepalive ping failed")
				return
			}
		}
	}
}

// readPump owns the session's inbound side and runs teardown when the
// connection ends for any reason.
func (ctl *SignalWSController) readPump(sess *core.Session, c *WsSignalConn) {
	defer func() {
		ctl.Orch.Disconnect(sess)
		c.Close(websocket.CloseNormalClosure, "")
	}()

	c.conn.SetReadLimit(ctl.opts.ReadLimit)
	_ = c.conn.SetReadDeadline(time.Now().Add(ctl.opts.PongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(ctl.opts.PongWait))
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			logReadEnd(sess, err)
			return
		}
		ctl.Orch.OnMessage(sess, data)
	}
}

func logReadEnd(sess *core.Session, err error) {
	ev := log.Debug()
	switch {
	case errors.Is(err, websocket.ErrReadLimit):
		ev = log.Warn()
	case websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway, websocket.CloseNoStatusReceived):
		ev = log.Info()
	}
	ev.Err(err).Str("module", "signal").Str("sid", string(sess.ID)).Msg("readPump closing")
}
