package orch

import (
	"context"
	"time"

	"github.com/dkeye/roomrelay/internal/app"
	"github.com/dkeye/roomrelay/internal/core"
)

const defaultHandshakeTimeout = 5 * time.Second

// Orchestrator drives a connection from handshake to teardown and feeds its
// messages through the gate and router.
type Orchestrator struct {
	Registry  *app.Registry
	Admission *app.Admission
	Gate      *app.Gate
	Router    *app.Router
	Rooms     core.RoomOracle
	Identity  core.IdentityVerifier

	// HandshakeTimeout bounds each collaborator call made during admission.
	HandshakeTimeout time.Duration
}

func (o *Orchestrator) call(ctx context.Context) (context.Context, context.CancelFunc) {
	d := o.HandshakeTimeout
	if d <= 0 {
		d = defaultHandshakeTimeout
	}
	return context.WithTimeout(ctx, d)
}
