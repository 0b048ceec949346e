package orch

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/dkeye/roomrelay/internal/app"
	"github.com/dkeye/roomrelay/internal/core"
	"github.com/dkeye/roomrelay/internal/domain"
	"github.com/dkeye/roomrelay/internal/ratelimit"
	"github.com/stretchr/testify/require"
)

type fakeConn struct {
	mu     sync.Mutex
	frames []core.Frame
	panics bool
}

func (c *fakeConn) TrySend(f core.Frame) error {
	if c.panics {
		panic("broken connection")
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.frames = append(c.frames, f)
	return nil
}

func (c *fakeConn) Close(int, string) {}

func (c *fakeConn) decoded(t *testing.T) []map[string]any {
	t.Helper()
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]map[string]any, 0, len(c.frames))
	for _, f := range c.frames {
		var m map[string]any
		require.NoError(t, json.Unmarshal(f, &m))
		out = append(out, m)
	}
	return out
}

func (c *fakeConn) last(t *testing.T) map[string]any {
	t.Helper()
	all := c.decoded(t)
	require.NotEmpty(t, all)
	return all[len(all)-1]
}

type fakeOracle struct {
	rooms        map[domain.RoomID]domain.Room
	participants map[domain.RoomID]map[domain.UserID]domain.Participant
	err          error
	delay        time.Duration
}

func newOracle() *fakeOracle {
	return &fakeOracle{
		rooms:        map[domain.RoomID]domain.Room{},
		participants: map[domain.RoomID]map[domain.UserID]domain.Participant{},
	}
}

func (o *fakeOracle) room(id domain.RoomID, vis domain.Visibility, active bool) *fakeOracle {
	o.rooms[id] = domain.Room{ID: id, Active: active, Visibility: vis}
	return o
}

func (o *fakeOracle) member(room domain.RoomID, user domain.UserID, role domain.Role, left bool) *fakeOracle {
	if o.participants[room] == nil {
		o.participants[room] = map[domain.UserID]domain.Participant{}
	}
	o.participants[room][user] = domain.Participant{RoomID: room, UserID: user, Role: role, HasLeft: left}
	return o
}

func (o *fakeOracle) wait(ctx context.Context) error {
	if o.delay == 0 {
		return nil
	}
	select {
	case <-time.After(o.delay):
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (o *fakeOracle) GetRoom(ctx context.Context, id domain.RoomID) (domain.Room, error) {
	if err := o.wait(ctx); err != nil {
		return domain.Room{}, err
	}
	if o.err != nil {
		return domain.Room{}, o.err
	}
	r, ok := o.rooms[id]
	if !ok {
		return domain.Room{}, core.ErrRoomNotFound
	}
	return r, nil
}

func (o *fakeOracle) GetParticipant(_ context.Context, room domain.RoomID, user domain.UserID) (domain.Participant, error) {
	p, ok := o.participants[room][user]
	if !ok {
		return domain.Participant{}, core.ErrNotParticipant
	}
	return p, nil
}

// tokenVerifier treats the bearer token as the user id.
type tokenVerifier struct {
	err error
}

func (v tokenVerifier) Authenticate(_ context.Context, c domain.Credentials) (domain.Identity, error) {
	if v.err != nil {
		return domain.Identity{}, v.err
	}
	if c.BearerToken == "" {
		return domain.Identity{}, core.ErrUnauthenticated
	}
	return domain.NewAccountIdentity(c.BearerToken)
}

type recordingSink struct {
	mu      sync.Mutex
	notices []core.Notice
}

func (s *recordingSink) Report(n core.Notice) {
	s.mu.Lock()
	s.notices = append(s.notices, n)
	s.mu.Unlock()
}

func (s *recordingSink) reasons() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, 0, len(s.notices))
	for _, n := range s.notices {
		out = append(out, n.Reason)
	}
	return out
}

type fixture struct {
	orch *Orchestrator
	sink *recordingSink
}

func newFixture(oracle *fakeOracle, verifier core.IdentityVerifier) *fixture {
	sink := &recordingSink{}
	reg := app.NewRegistry()
	adm := app.NewAdmission(reg, app.AdmissionConfig{
		Attempts: ratelimit.Limit{Window: time.Minute, Cap: 20},
		Caps:     app.Caps{PerAddress: 50, PerIdentity: 5},
	}, nil, sink)
	gate := app.NewGate(app.MessageLimits{
		Chat:    ratelimit.Limit{Window: time.Minute, Cap: 10},
		ICE:     ratelimit.Limit{Window: time.Minute, Cap: 30},
		General: ratelimit.Limit{Window: time.Minute, Cap: 20},
	}, nil, sink)
	return &fixture{
		sink: sink,
		orch: &Orchestrator{
			Registry:         reg,
			Admission:        adm,
			Gate:             gate,
			Router:           app.NewRouter(reg),
			Rooms:            oracle,
			Identity:         verifier,
			HandshakeTimeout: 200 * time.Millisecond,
		},
	}
}

func (f *fixture) connect(t *testing.T, room domain.RoomID, token, addr string) (*core.Session, *fakeConn) {
	t.Helper()
	conn := &fakeConn{}
	s, rej := f.orch.Admit(context.Background(), Handshake{
		RoomID: room,
		Addr:   addr,
		Creds:  domain.Credentials{BearerToken: token},
	}, conn)
	require.Nil(t, rej)
	return s, conn
}

var errBackend = errors.New("backend unavailable")
