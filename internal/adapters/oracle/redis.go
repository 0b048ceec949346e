// Package oracle answers room and participant lookups for the handshake.
package oracle

import (
	"context"
	"fmt"
	"strconv"

	"github.com/dkeye/roomrelay/internal/core"
	"github.com/dkeye/roomrelay/internal/domain"
	"github.com/redis/go-redis/v9"
)

// RedisOracle reads the room service's hashes:
//
//	room:<id>                       active, visibility
//	room:<id>:participant:<user>    role, has_left
type RedisOracle struct {
	client *redis.Client
}

func NewRedisOracle(client *redis.Client) *RedisOracle {
	return &RedisOracle{client: client}
}

func roomKey(id domain.RoomID) string {
	return fmt.Sprintf("room:%s", id)
}

func participantKey(room domain.RoomID, user domain.UserID) string {
	return fmt.Sprintf("room:%s:participant:%s", room, user)
}

func (o *RedisOracle) GetRoom(ctx context.Context, id domain.RoomID) (domain.Room, error) {
	h, err := o.client.HGetAll(ctx, roomKey(id)).Result()
	if err != nil {
		return domain.Room{}, fmt.Errorf("get room %s: %w", id, err)
	}
	if len(h) == 0 {
		return domain.Room{}, core.ErrRoomNotFound
	}
	active, err := parseFlag(h["active"])
	if err != nil {
		return domain.Room{}, fmt.Errorf("room %s active: %w", id, err)
	}
	vis, err := domain.ParseVisibility(h["visibility"])
	if err != nil {
		return domain.Room{}, fmt.Errorf("room %s: %w", id, err)
	}
	return domain.Room{ID: id, Active: active, Visibility: vis}, nil
}

func (o *RedisOracle) GetParticipant(ctx context.Context, room domain.RoomID, user domain.UserID) (domain.Participant, error) {
	h, err := o.client.HGetAll(ctx, participantKey(room, user)).Result()
	if err != nil {
		return domain.Participant{}, fmt.Errorf("get participant %s/%s: %w", room, user, err)
	}
	if len(h) == 0 {
		return domain.Participant{}, core.ErrNotParticipant
	}
	role, err := domain.ParseRole(h["role"])
	if err != nil {
		return domain.Participant{}, fmt.Errorf("participant %s/%s: %w", room, user, err)
	}
	left, err := parseFlag(h["has_left"])
	if err != nil {
		return domain.Participant{}, fmt.Errorf("participant %s/%s has_left: %w", room, user, err)
	}
	return domain.Participant{RoomID: room, UserID: user, Role: role, HasLeft: left}, nil
}

// parseFlag treats a missing field as false.
func parseFlag(s string) (bool, error) {
	if s == "" {
		return false, nil
	}
	return strconv.ParseBool(s)
}
