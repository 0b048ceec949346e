package app

import (
	"context"
	"time"

	"github.com/dkeye/roomrelay/internal/core"
	"github.com/dkeye/roomrelay/internal/metrics"
	"github.com/dkeye/roomrelay/internal/ratelimit"
	"github.com/rs/zerolog/log"
)

type AdmissionConfig struct {
	Attempts      ratelimit.Limit
	Caps          Caps
	SweepInterval time.Duration
}

// Admission decides whether a connection may proceed: an attempt-rate check
// per source address before any lookup, and concurrency caps at registration.
type Admission struct {
	cfg      AdmissionConfig
	attempts *ratelimit.Keyed
	registry *Registry
	sink     core.AbuseSink
	clock    ratelimit.Clock
}

func NewAdmission(reg *Registry, cfg AdmissionConfig, clock ratelimit.Clock, sink core.AbuseSink) *Admission {
	if clock == nil {
		clock = ratelimit.RealClock{}
	}
	if sink == nil {
		sink = nopSink{}
	}
	return &Admission{
		cfg:      cfg,
		attempts: ratelimit.NewKeyed(clock, cfg.Attempts),
		registry: reg,
		sink:     sink,
		clock:    clock,
	}
}

// AttemptConnect counts a connection attempt from addr.
func (a *Admission) AttemptConnect(addr string) bool {
	count, ok := a.attempts.Allow(addr)
	metrics.AttemptEntries.Set(float64(a.attempts.Len()))
	if ok {
		return true
	}
	log.Warn().Str("module", "app.admission").Str("addr", addr).Int("count", count).Msg("connection attempt rate exceeded")
	a.sink.Report(core.Notice{
		Address: addr,
		Reason:  core.AbuseConnectionRate,
		Count:   count,
		At:      a.clock.Now(),
	})
	return false
}

// AdmitSession registers s if both concurrency caps allow it. Anonymous
// listeners have no stable identity and are capped per address only.
func (a *Admission) AdmitSession(s *core.Session) error {
	caps := a.cfg.Caps
	if s.Identity.Anonymous() {
		caps.PerIdentity = 0
	}
	err := a.registry.Admit(s, caps)
	if err == nil {
		metrics.SessionsActive.Inc()
		return nil
	}
	log.Warn().Err(err).Str("module", "app.admission").Str("addr", s.Addr).Str("identity", s.Identity.String()).Msg("session refused")
	a.sink.Report(core.Notice{
		Identity: s.Identity.String(),
		Address:  s.Addr,
		Reason:   core.AbuseConnectionCap,
		RoomID:   s.RoomID,
		At:       a.clock.Now(),
	})
	return err
}

// Release removes s from the registry. Only the first call for a session
// has an effect.
func (a *Admission) Release(s *core.Session) bool {
	if _, ok := a.registry.Remove(s.ID); !ok {
		return false
	}
	metrics.SessionsActive.Dec()
	return true
}

// Sweep evicts elapsed attempt windows.
func (a *Admission) Sweep() int {
	n := a.attempts.Sweep()
	metrics.AttemptEntries.Set(float64(a.attempts.Len()))
	return n
}

// Run sweeps the attempt table every SweepInterval until ctx is done.
func (a *Admission) Run(ctx context.Context) error {
	every := a.cfg.SweepInterval
	if every <= 0 {
		every = time.Minute
	}
	t := time.NewTicker(every)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-t.C:
			if n := a.Sweep(); n > 0 {
				log.Debug().Str("module", "app.admission").Int("evicted", n).Msg("attempt table swept")
			}
		}
	}
}

type nopSink struct{}

func (nopSink) Report(core.Notice) {}
