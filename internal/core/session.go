package core

import (
	"time"

	"github.com/dkeye/roomrelay/internal/domain"
	"github.com/dkeye/roomrelay/internal/ratelimit"
)

// Session is one admitted signaling connection. Room, role and identity
// never change; a role change needs a reconnect.
type Session struct {
	ID          SessionID
	Identity    domain.Identity
	RoomID      domain.RoomID
	Role        domain.Role
	Addr        string
	ConnectedAt time.Time

	conn SignalConnection

	// owned by the session's read loop
	windows [3]ratelimit.Window
}

func NewSession(id domain.Identity, room domain.RoomID, role domain.Role, addr string, conn SignalConnection) *Session {
	return &Session{
		ID:          NewSessionID(),
		Identity:    id,
		RoomID:      room,
		Role:        role,
		Addr:        addr,
		ConnectedAt: time.Now(),
		conn:        conn,
	}
}

func (s *Session) Signal() SignalConnection { return s.conn }

// Window returns the message counter for class c.
func (s *Session) Window(c domain.RateClass) *ratelimit.Window {
	return &s.windows[c]
}
