package oracle

import (
	"context"
	"fmt"
	"sync"

	"github.com/dkeye/roomrelay/internal/config"
	"github.com/dkeye/roomrelay/internal/core"
	"github.com/dkeye/roomrelay/internal/domain"
)

type participantKeyT struct {
	room domain.RoomID
	user domain.UserID
}

// MemoryOracle serves rooms from process memory. It backs development setups
// and tests.
type MemoryOracle struct {
	mu           sync.RWMutex
	rooms        map[domain.RoomID]domain.Room
	participants map[participantKeyT]domain.Participant
}

func NewMemoryOracle() *MemoryOracle {
	return &MemoryOracle{
		rooms:        make(map[domain.RoomID]domain.Room),
		participants: make(map[participantKeyT]domain.Participant),
	}
}

// FromSeed builds a MemoryOracle from configured rooms.
func FromSeed(seed []config.RoomSeed) (*MemoryOracle, error) {
	o := NewMemoryOracle()
	for _, r := range seed {
		vis, err := domain.ParseVisibility(r.Visibility)
		if err != nil {
			return nil, fmt.Errorf("room %q: %w", r.ID, err)
		}
		room := domain.Room{ID: domain.RoomID(r.ID), Active: r.Active, Visibility: vis}
		o.PutRoom(room)
		for _, p := range r.Participants {
			role, err := domain.ParseRole(p.Role)
			if err != nil {
				return nil, fmt.Errorf("room %q participant %q: %w", r.ID, p.UserID, err)
			}
			o.PutParticipant(domain.Participant{
				RoomID:  room.ID,
				UserID:  domain.UserID(p.UserID),
				Role:    role,
				HasLeft: p.HasLeft,
			})
		}
	}
	return o, nil
}

func (o *MemoryOracle) PutRoom(r domain.Room) {
	o.mu.Lock()
	o.rooms[r.ID] = r
	o.mu.Unlock()
}

func (o *MemoryOracle) PutParticipant(p domain.Participant) {
	o.mu.Lock()
	o.participants[participantKeyT{p.RoomID, p.UserID}] = p
	o.mu.Unlock()
}

func (o *MemoryOracle) GetRoom(_ context.Context, id domain.RoomID) (domain.Room, error) {
	o.mu.RLock()
	defer o.mu.RUnlock()
	r, ok := o.rooms[id]
	if !ok {
		return domain.Room{}, core.ErrRoomNotFound
	}
	return r, nil
}

func (o *MemoryOracle) GetParticipant(_ context.Context, room domain.RoomID, user domain.UserID) (domain.Participant, error) {
	o.mu.RLock()
	defer o.mu.RUnlock()
	p, ok := o.participants[participantKeyT{room, user}]
	if !ok {
		return domain.Participant{}, core.ErrNotParticipant
	}
	return p, nil
}
