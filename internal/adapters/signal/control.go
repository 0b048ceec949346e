package signal

import (
	"time"

	"github.com/dkeye/roomrelay/internal/app/orch"
	"github.com/gorilla/websocket"
)

// Handshake rejection close codes.
const (
	CloseBadRequest         = 4400
	CloseAuthRequired       = 4401
	CloseNotParticipant     = 4403
	CloseNotFound           = 4404
	CloseRateLimited        = 4429
	CloseTooManyConnections = 4430
)

var closeCodes = map[orch.Reason]struct {
	code int
	text string
}{
	orch.ReasonBadRequest:         {CloseBadRequest, "missing room id"},
	orch.ReasonAuthRequired:       {CloseAuthRequired, "authentication required"},
	orch.ReasonNotParticipant:     {CloseNotParticipant, "not a participant"},
	orch.ReasonNotFound:           {CloseNotFound, "room not found or inactive"},
	orch.ReasonRateLimited:        {CloseRateLimited, "too many connection attempts"},
	orch.ReasonTooManyConnections: {CloseTooManyConnections, "too many concurrent connections"},
	orch.ReasonInternal:           {websocket.CloseInternalServerErr, "internal error"},
}

// CloseFor maps a rejection reason to its close code and text.
func CloseFor(r orch.Reason) (int, string) {
	if c, ok := closeCodes[r]; ok {
		return c.code, c.text
	}
	return websocket.CloseInternalServerErr, "internal error"
}

func writeClose(ws *websocket.Conn, code int, text string, wait time.Duration) {
	_ = ws.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(code, text), time.Now().Add(wait))
}

func ping(ws *websocket.Conn, wait time.Duration) error {
	return ws.WriteControl(websocket.PingMessage, nil, time.Now().Add(wait))
}
