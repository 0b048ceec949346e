package orch

import (
	"encoding/json"

	"github.com/dkeye/roomrelay/internal/app"
	"github.com/dkeye/roomrelay/internal/core"
	"github.com/dkeye/roomrelay/internal/domain"
	"github.com/dkeye/roomrelay/internal/metrics"
	"github.com/rs/zerolog/log"
)

const msgInternal = "Internal error"

// OnMessage handles one inbound payload of s and returns how many recipients
// it was delivered to. Rejections are answered with an error frame to the
// sender only. A panic is contained to the message.
func (o *Orchestrator) OnMessage(s *core.Session, data []byte) (delivered int) {
	defer func() {
		if r := recover(); r != nil {
			log.Error().Str("module", "orch").Str("sid", string(s.ID)).Interface("panic", r).Msg("message handling panic")
			metrics.Messages.WithLabelValues("internal").Inc()
			_ = s.Signal().TrySend(app.ErrorFrame(msgInternal))
			delivered = 0
		}
	}()

	msg, gerr := o.Gate.Check(s, data)
	if gerr != nil {
		metrics.Messages.WithLabelValues(string(gerr.Reason)).Inc()
		_ = s.Signal().TrySend(app.ErrorFrame(gerr.Message))
		return 0
	}

	if msg.Kind.Category == domain.CategoryControl {
		metrics.Messages.WithLabelValues("control").Inc()
		o.control(s, msg)
		return 0
	}

	metrics.Messages.WithLabelValues("accepted").Inc()
	return o.Router.Route(s, msg)
}

type sessionInfo struct {
	Type      string        `json:"type"`
	UserID    string        `json:"userId"`
	Role      domain.Role   `json:"role"`
	RoomID    domain.RoomID `json:"roomId"`
	Anonymous bool          `json:"anonymous"`
}

func info(typ string, s *core.Session) sessionInfo {
	return sessionInfo{
		Type:      typ,
		UserID:    s.Identity.String(),
		Role:      s.Role,
		RoomID:    s.RoomID,
		Anonymous: s.Identity.Anonymous(),
	}
}

func (o *Orchestrator) control(s *core.Session, msg *app.Message) {
	switch msg.Kind.Type {
	case domain.TypePing:
		sendJSON(s, struct {
			Type string `json:"type"`
		}{"pong"})
	case domain.TypeWhoAmI:
		sendJSON(s, info("whoami", s))
	}
}

func (o *Orchestrator) welcome(s *core.Session) {
	sendJSON(s, info("connected", s))
}

func sendJSON(s *core.Session, v any) {
	b, err := json.Marshal(v)
	if err != nil {
		log.Error().Err(err).Str("module", "orch").Msg("sendJSON marshal")
		return
	}
	_ = s.Signal().TrySend(b)
}
