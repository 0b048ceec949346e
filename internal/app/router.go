package app

import (
	"github.com/dkeye/roomrelay/internal/core"
	"github.com/dkeye/roomrelay/internal/metrics"
	"github.com/rs/zerolog/log"
)

// Router fans accepted messages out to the sender's room.
type Router struct {
	registry *Registry
}

func NewRouter(reg *Registry) *Router {
	return &Router{registry: reg}
}

// Route delivers msg to every other session in the sender's room, or only to
// the sessions of msg.To when set. Recipients that cannot take the frame right
// now are skipped. It returns the number of recipients the frame was queued to.
func (r *Router) Route(from *core.Session, msg *Message) int {
	frame, err := msg.Enriched(from)
	if err != nil {
		log.Error().Err(err).Str("module", "app.router").Str("sid", string(from.ID)).Msg("enrich")
		return 0
	}

	sent, skipped := 0, 0
	r.registry.ForEachInRoom(from.RoomID, func(s *core.Session) {
		if s.ID == from.ID {
			return
		}
		if msg.To != "" && s.Identity.ID() != msg.To {
			return
		}
		if err := s.Signal().TrySend(frame); err != nil {
			skipped++
			return
		}
		sent++
	})

	metrics.Deliveries.Add(float64(sent))
	metrics.Skipped.Add(float64(skipped))
	log.Debug().Str("module", "app.router").Str("from", string(from.ID)).Str("type", msg.Kind.Type).Int("sent_to", sent).Int("skipped", skipped).Msg("broadcast result")
	return sent
}
