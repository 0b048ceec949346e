package orch

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dkeye/roomrelay/internal/core"
	"github.com/dkeye/roomrelay/internal/domain"
	"github.com/dkeye/roomrelay/internal/metrics"
	"github.com/rs/zerolog/log"
)

// Reason is why a connection attempt was refused.
type Reason string

const (
	ReasonBadRequest         Reason = "bad-request"
	ReasonRateLimited        Reason = "rate-limited"
	ReasonNotFound           Reason = "not-found"
	ReasonAuthRequired       Reason = "auth-required"
	ReasonNotParticipant     Reason = "not-a-participant"
	ReasonTooManyConnections Reason = "too-many-connections"
	ReasonInternal           Reason = "internal-error"
)

// Rejection is a terminal admission failure. Nothing was registered.
type Rejection struct {
	Reason Reason
	Err    error
}

func (r *Rejection) Error() string {
	if r.Err == nil {
		return string(r.Reason)
	}
	return fmt.Sprintf("%s: %v", r.Reason, r.Err)
}

func (r *Rejection) Unwrap() error { return r.Err }

func reject(reason Reason, err error) *Rejection {
	metrics.Admissions.WithLabelValues(string(reason)).Inc()
	return &Rejection{Reason: reason, Err: err}
}

// Handshake is what the transport extracted from the connection request.
type Handshake struct {
	RoomID domain.RoomID
	Addr   string
	Creds  domain.Credentials
}

// Admit runs the handshake: attempt rate, room, authentication, role and
// concurrency caps, in that order. On success the session is registered and
// visible to the router.
func (o *Orchestrator) Admit(ctx context.Context, h Handshake, conn core.SignalConnection) (*core.Session, *Rejection) {
	l := log.With().Str("module", "orch").Str("room", string(h.RoomID)).Str("addr", h.Addr).Logger()

	if h.RoomID == "" {
		return nil, reject(ReasonBadRequest, errors.New("missing room id"))
	}
	if !o.Admission.AttemptConnect(h.Addr) {
		return nil, reject(ReasonRateLimited, nil)
	}

	room, rej := o.resolveRoom(ctx, h.RoomID)
	if rej != nil {
		l.Info().Err(rej).Msg("room lookup refused")
		return nil, rej
	}

	identity, rej := o.authenticate(ctx, h.Creds, room)
	if rej != nil {
		l.Info().Err(rej).Msg("authentication refused")
		return nil, rej
	}

	role, rej := o.resolveRole(ctx, room.ID, identity)
	if rej != nil {
		l.Info().Err(rej).Str("identity", identity.String()).Msg("role lookup refused")
		return nil, rej
	}

	sess := core.NewSession(identity, room.ID, role, h.Addr, conn)
	if err := o.Admission.AdmitSession(sess); err != nil {
		return nil, reject(ReasonTooManyConnections, err)
	}

	metrics.Admissions.WithLabelValues("admitted").Inc()
	l.Info().
		Str("sid", string(sess.ID)).
		Str("identity", identity.String()).
		Bool("anonymous", identity.Anonymous()).
		Str("role", string(role)).
		Msg("session connected")
	o.welcome(sess)
	return sess, nil
}

func (o *Orchestrator) resolveRoom(ctx context.Context, id domain.RoomID) (domain.Room, *Rejection) {
	cctx, cancel := o.call(ctx)
	defer cancel()
	room, err := o.Rooms.GetRoom(cctx, id)
	switch {
	case errors.Is(err, core.ErrRoomNotFound):
		return domain.Room{}, reject(ReasonNotFound, err)
	case err != nil:
		return domain.Room{}, reject(ReasonInternal, fmt.Errorf("get room: %w", err))
	case !room.Active:
		return domain.Room{}, reject(ReasonNotFound, errors.New("room inactive"))
	}
	return room, nil
}

func (o *Orchestrator) authenticate(ctx context.Context, creds domain.Credentials, room domain.Room) (domain.Identity, *Rejection) {
	err := core.ErrUnauthenticated
	if !creds.Empty() {
		cctx, cancel := o.call(ctx)
		defer cancel()
		var id domain.Identity
		id, err = o.Identity.Authenticate(cctx, creds)
		if err == nil {
			return id, nil
		}
	}
	if !errors.Is(err, core.ErrUnauthenticated) {
		return domain.Identity{}, reject(ReasonInternal, fmt.Errorf("authenticate: %w", err))
	}
	if room.Public() {
		return domain.NewAnonymousIdentity(), nil
	}
	return domain.Identity{}, reject(ReasonAuthRequired, err)
}

func (o *Orchestrator) resolveRole(ctx context.Context, room domain.RoomID, id domain.Identity) (domain.Role, *Rejection) {
	if id.Anonymous() {
		return domain.RoleListener, nil
	}
	cctx, cancel := o.call(ctx)
	defer cancel()
	p, err := o.Rooms.GetParticipant(cctx, room, id.ID())
	switch {
	case errors.Is(err, core.ErrNotParticipant):
		return "", reject(ReasonNotParticipant, err)
	case err != nil:
		return "", reject(ReasonInternal, fmt.Errorf("get participant: %w", err))
	case !p.Active():
		return "", reject(ReasonNotParticipant, errors.New("participant has left"))
	}
	return p.Role, nil
}

// Disconnect tears the session down. It is safe to call more than once; only
// the first call removes the session and logs.
func (o *Orchestrator) Disconnect(s *core.Session) bool {
	if !o.Admission.Release(s) {
		return false
	}
	log.Info().
		Str("module", "orch").
		Str("sid", string(s.ID)).
		Str("room", string(s.RoomID)).
		Str("identity", s.Identity.String()).
		Dur("connected_for", time.Since(s.ConnectedAt)).
		Msg("session disconnected")
	return true
}
