package core

import (
	"context"
	"errors"
	"time"

	"github.com/dkeye/roomrelay/internal/domain"
	"github.com/google/uuid"
)

// Frame is a raw text payload written to a signaling connection.
type Frame []byte

type SessionID string

func NewSessionID() SessionID { return SessionID(uuid.NewString()) }

var (
	ErrRoomNotFound    = errors.New("room not found")
	ErrNotParticipant  = errors.New("not a participant")
	ErrUnauthenticated = errors.New("unauthenticated")
)

// RoomOracle is the external room membership store.
type RoomOracle interface {
	// GetRoom returns ErrRoomNotFound when no such room exists.
	GetRoom(ctx context.Context, id domain.RoomID) (domain.Room, error)
	// GetParticipant returns ErrNotParticipant when no record exists.
	GetParticipant(ctx context.Context, room domain.RoomID, user domain.UserID) (domain.Participant, error)
}

// IdentityVerifier resolves connection credentials to an account identity.
// It returns ErrUnauthenticated when no scheme accepts the credentials.
type IdentityVerifier interface {
	Authenticate(ctx context.Context, creds domain.Credentials) (domain.Identity, error)
}

// Abuse notice reasons.
const (
	AbuseConnectionRate  = "connection-rate-limit"
	AbuseConnectionCap   = "connection-cap"
	AbuseMessageRate     = "message-rate-limit"
	AbuseUnauthorizedMsg = "unauthorized-type"
)

// Notice is a security-relevant rejection.
type Notice struct {
	Identity string        `json:"identity,omitempty"`
	Address  string        `json:"address"`
	Reason   string        `json:"reason"`
	RoomID   domain.RoomID `json:"roomId,omitempty"`
	Type     string        `json:"type,omitempty"`
	Count    int           `json:"count,omitempty"`
	At       time.Time     `json:"at"`
}

// AbuseSink receives notices. Report must not block the caller.
type AbuseSink interface {
	Report(Notice)
}
