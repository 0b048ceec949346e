package app

import (
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/dkeye/roomrelay/internal/core"
	"github.com/dkeye/roomrelay/internal/domain"
	"github.com/stretchr/testify/require"
)

type fakeConn struct {
	mu     sync.Mutex
	frames []core.Frame
	full   bool
	closed bool
}

func (c *fakeConn) TrySend(f core.Frame) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed || c.full {
		return errors.New("not writable")
	}
	c.frames = append(c.frames, f)
	return nil
}

func (c *fakeConn) Close(int, string) {
	c.mu.Lock()
	c.closed = true
	c.mu.Unlock()
}

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

type recordingSink struct {
	mu      sync.Mutex
	notices []core.Notice
}

func (s *recordingSink) Report(n core.Notice) {
	s.mu.Lock()
	s.notices = append(s.notices, n)
	s.mu.Unlock()
}

func (s *recordingSink) all() []core.Notice {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]core.Notice(nil), s.notices...)
}

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func account(t *testing.T, id string) domain.Identity {
	t.Helper()
	i, err := domain.NewAccountIdentity(id)
	require.NoError(t, err)
	return i
}

func newSession(t *testing.T, user string, room domain.RoomID, role domain.Role, addr string) (*core.Session, *fakeConn) {
	t.Helper()
	conn := &fakeConn{}
	return core.NewSession(account(t, user), room, role, addr, conn), conn
}
