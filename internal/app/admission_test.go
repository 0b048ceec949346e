package app

import (
	"context"
	"testing"
	"time"

	"github.com/dkeye/roomrelay/internal/core"
	"github.com/dkeye/roomrelay/internal/domain"
	"github.com/dkeye/roomrelay/internal/ratelimit"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testAdmission(clk ratelimit.Clock, sink core.AbuseSink) (*Admission, *Registry) {
	reg := NewRegistry()
	cfg := AdmissionConfig{
		Attempts: ratelimit.Limit{Window: time.Minute, Cap: 20},
		Caps:     Caps{PerAddress: 10, PerIdentity: 5},
	}
	return NewAdmission(reg, cfg, clk, sink), reg
}

func TestAdmission_AttemptRate(t *testing.T) {
	clk := &fakeClock{now: time.Unix(0, 0)}
	sink := &recordingSink{}
	a, _ := testAdmission(clk, sink)

	for i := 1; i <= 25; i++ {
		assert.Equal(t, i <= 20, a.AttemptConnect("1.2.3.4"), "attempt %d", i)
	}
	notices := sink.all()
	require.Len(t, notices, 5)
	assert.Equal(t, core.AbuseConnectionRate, notices[0].Reason)
	assert.Equal(t, "1.2.3.4", notices[0].Address)

	clk.Advance(time.Minute)
	assert.True(t, a.AttemptConnect("1.2.3.4"))
}

func TestAdmission_IdentityCap(t *testing.T) {
	sink := &recordingSink{}
	a, reg := testAdmission(nil, sink)

	for i := 0; i < 5; i++ {
		s, _ := newSession(t, "alice", "room", domain.RoleSpeaker, "10.0.0.1")
		require.NoError(t, a.AdmitSession(s))
	}
	s, conn := newSession(t, "alice", "room", domain.RoleSpeaker, "10.0.0.2")
	assert.ErrorIs(t, a.AdmitSession(s), ErrIdentityCap)
	assert.Equal(t, 5, reg.Len())
	assert.False(t, conn.closed, "closing is the caller's job")

	notices := sink.all()
	require.Len(t, notices, 1)
	assert.Equal(t, core.AbuseConnectionCap, notices[0].Reason)
	assert.Equal(t, "alice", notices[0].Identity)
}

func TestAdmission_AnonymousCappedByAddressOnly(t *testing.T) {
	a, reg := testAdmission(nil, nil)
	for i := 0; i < 10; i++ {
		s := core.NewSession(domain.NewAnonymousIdentity(), "room", domain.RoleListener, "9.9.9.9", &fakeConn{})
		require.NoError(t, a.AdmitSession(s))
	}
	s := core.NewSession(domain.NewAnonymousIdentity(), "room", domain.RoleListener, "9.9.9.9", &fakeConn{})
	assert.ErrorIs(t, a.AdmitSession(s), ErrAddressCap)
	assert.Equal(t, 10, reg.Len())
}

func TestAdmission_ReleaseOnce(t *testing.T) {
	a, reg := testAdmission(nil, nil)
	s, _ := newSession(t, "alice", "room", domain.RoleCreator, "10.0.0.1")
	require.NoError(t, a.AdmitSession(s))

	assert.True(t, a.Release(s))
	assert.False(t, a.Release(s))
	assert.Equal(t, 0, reg.Len())
}

func TestAdmission_SweepAndRun(t *testing.T) {
	clk := &fakeClock{now: time.Unix(0, 0)}
	a, _ := testAdmission(clk, nil)
	a.AttemptConnect("a")
	a.AttemptConnect("b")
	clk.Advance(2 * time.Minute)
	assert.Equal(t, 2, a.Sweep())

	a.cfg.SweepInterval = time.Millisecond
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- a.Run(ctx) }()
	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("Run did not stop")
	}
}
