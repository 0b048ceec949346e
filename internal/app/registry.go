package app

import (
	"errors"
	"sync"

	"github.com/dkeye/roomrelay/internal/core"
	"github.com/dkeye/roomrelay/internal/domain"
	"github.com/rs/zerolog/log"
)

var (
	ErrAddressCap  = errors.New("too many sessions for address")
	ErrIdentityCap = errors.New("too many sessions for identity")
	ErrDuplicate   = errors.New("session already registered")
)

// Caps bounds concurrent sessions. Zero or negative means unlimited.
type Caps struct {
	PerAddress  int
	PerIdentity int
}

type bucket map[core.SessionID]*core.Session

// Registry is the set of open sessions indexed by room, address and identity.
// All index mutations and reads happen under mu, so a removed session is never
// visible to a broadcast.
type Registry struct {
	mu         sync.RWMutex
	sessions   map[core.SessionID]*core.Session
	byRoom     map[domain.RoomID]bucket
	byAddr     map[string]bucket
	byIdentity map[domain.UserID]bucket
}

func NewRegistry() *Registry {
	return &Registry{
		sessions:   make(map[core.SessionID]*core.Session),
		byRoom:     make(map[domain.RoomID]bucket),
		byAddr:     make(map[string]bucket),
		byIdentity: make(map[domain.UserID]bucket),
	}
}

// Admit checks caps and inserts s into every index in one critical section.
func (r *Registry) Admit(s *core.Session, caps Caps) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.sessions[s.ID]; ok {
		return ErrDuplicate
	}
	if caps.PerAddress > 0 && len(r.byAddr[s.Addr]) >= caps.PerAddress {
		return ErrAddressCap
	}
	if caps.PerIdentity > 0 && len(r.byIdentity[s.Identity.ID()]) >= caps.PerIdentity {
		return ErrIdentityCap
	}

	r.sessions[s.ID] = s
	insert(r.byRoom, s.RoomID, s)
	insert(r.byAddr, s.Addr, s)
	insert(r.byIdentity, s.Identity.ID(), s)
	log.Debug().Str("module", "app.registry").Str("sid", string(s.ID)).Str("room", string(s.RoomID)).Int("total", len(r.sessions)).Msg("session admitted")
	return nil
}

// Remove deletes the session from all indexes. It reports false when the
// session was already gone, so repeated teardown is harmless.
func (r *Registry) Remove(sid core.SessionID) (*core.Session, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.sessions[sid]
	if !ok {
		return nil, false
	}
	delete(r.sessions, sid)
	evict(r.byRoom, s.RoomID, sid)
	evict(r.byAddr, s.Addr, sid)
	evict(r.byIdentity, s.Identity.ID(), sid)
	log.Debug().Str("module", "app.registry").Str("sid", string(sid)).Int("total", len(r.sessions)).Msg("session removed")
	return s, true
}

// ForEachInRoom calls fn for every session in room while holding the read lock.
// fn must not block or call back into the registry.
func (r *Registry) ForEachInRoom(room domain.RoomID, fn func(*core.Session)) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, s := range r.byRoom[room] {
		fn(s)
	}
}

func (r *Registry) Get(sid core.SessionID) (*core.Session, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.sessions[sid]
	return s, ok
}

// All returns a snapshot of every open session.
func (r *Registry) All() []*core.Session {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*core.Session, 0, len(r.sessions))
	for _, s := range r.sessions {
		out = append(out, s)
	}
	return out
}

func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}

func (r *Registry) RoomSize(room domain.RoomID) int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.byRoom[room])
}

func (r *Registry) AddressCount(addr string) int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.byAddr[addr])
}

func (r *Registry) IdentityCount(id domain.UserID) int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.byIdentity[id])
}

func insert[K comparable](idx map[K]bucket, key K, s *core.Session) {
	b, ok := idx[key]
	if !ok {
		b = make(bucket)
		idx[key] = b
	}
	b[s.ID] = s
}

func evict[K comparable](idx map[K]bucket, key K, sid core.SessionID) {
	b, ok := idx[key]
	if !ok {
		return
	}
	delete(b, sid)
	if len(b) == 0 {
		delete(idx, key)
	}
}
