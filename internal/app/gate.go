package app

import (
	"github.com/dkeye/roomrelay/internal/core"
	"github.com/dkeye/roomrelay/internal/domain"
	"github.com/dkeye/roomrelay/internal/ratelimit"
	"github.com/rs/zerolog/log"
)

type GateReason string

const (
	ReasonParse        GateReason = "parse"
	ReasonRoomMismatch GateReason = "room-mismatch"
	ReasonRateLimited  GateReason = "rate-limited"
	ReasonUnauthorized GateReason = "unauthorized"
)

const (
	MsgInvalidFormat  = "Invalid message format"
	MsgRoomMismatch   = "Room ID mismatch"
	MsgRateLimited    = "Rate limit exceeded"
	MsgMediaForbidden = "Unauthorized: Only speakers and creators can send media offers"
)

// GateError rejects one message; the session stays open.
type GateError struct {
	Reason  GateReason
	Message string
}

func (e *GateError) Error() string { return string(e.Reason) + ": " + e.Message }

// MessageLimits are the per-session quotas for each rate class.
type MessageLimits struct {
	Chat    ratelimit.Limit
	ICE     ratelimit.Limit
	General ratelimit.Limit
}

func (l MessageLimits) For(c domain.RateClass) ratelimit.Limit {
	switch c {
	case domain.RateChat:
		return l.Chat
	case domain.RateICE:
		return l.ICE
	default:
		return l.General
	}
}

// Gate validates inbound payloads: structure, room match, rate and role.
type Gate struct {
	limits MessageLimits
	clock  ratelimit.Clock
	sink   core.AbuseSink
}

func NewGate(limits MessageLimits, clock ratelimit.Clock, sink core.AbuseSink) *Gate {
	if clock == nil {
		clock = ratelimit.RealClock{}
	}
	if sink == nil {
		sink = nopSink{}
	}
	return &Gate{limits: limits, clock: clock, sink: sink}
}

// Check runs every step in order and stops at the first failure. It must
// only be called from the session's own read loop.
func (g *Gate) Check(s *core.Session, data []byte) (*Message, *GateError) {
	msg, err := ParseMessage(data)
	if err != nil {
		return nil, &GateError{Reason: ReasonParse, Message: MsgInvalidFormat}
	}

	if msg.Kind.Category != domain.CategoryControl && msg.RoomID != s.RoomID {
		log.Warn().Str("module", "app.gate").Str("sid", string(s.ID)).Str("room", string(s.RoomID)).Str("claimed_room", string(msg.RoomID)).Msg("room mismatch")
		return nil, &GateError{Reason: ReasonRoomMismatch, Message: MsgRoomMismatch}
	}

	now := g.clock.Now()
	count, ok := s.Window(msg.Kind.Rate).Hit(now, g.limits.For(msg.Kind.Rate))
	if !ok {
		log.Warn().Str("module", "app.gate").Str("sid", string(s.ID)).Str("type", msg.Kind.Type).Int("count", count).Msg("message rate exceeded")
		g.sink.Report(core.Notice{
			Identity: s.Identity.String(),
			Address:  s.Addr,
			Reason:   core.AbuseMessageRate,
			RoomID:   s.RoomID,
			Type:     msg.Kind.Type,
			Count:    count,
			At:       now,
		})
		return nil, &GateError{Reason: ReasonRateLimited, Message: MsgRateLimited}
	}

	if msg.Kind.Category == domain.CategoryMedia && !s.Role.CanNegotiateMedia() {
		log.Warn().Str("module", "app.gate").Str("sid", string(s.ID)).Str("type", msg.Kind.Type).Str("role", string(s.Role)).Msg("unauthorized message type")
		g.sink.Report(core.Notice{
			Identity: s.Identity.String(),
			Address:  s.Addr,
			Reason:   core.AbuseUnauthorizedMsg,
			RoomID:   s.RoomID,
			Type:     msg.Kind.Type,
			Count:    count,
			At:       now,
		})
		return nil, &GateError{Reason: ReasonUnauthorized, Message: MsgMediaForbidden}
	}

	return msg, nil
}
