package domain

import "fmt"

type Role string

const (
	RoleCreator  Role = "creator"
	RoleSpeaker  Role = "speaker"
	RoleListener Role = "listener"
)

func ParseRole(s string) (Role, error) {
	switch r := Role(s); r {
	case RoleCreator, RoleSpeaker, RoleListener:
		return r, nil
	default:
		return "", fmt.Errorf("unknown role %q", s)
	}
}

// CanNegotiateMedia reports whether the role may originate offers, answers and candidates.
func (r Role) CanNegotiateMedia() bool {
	return r == RoleCreator || r == RoleSpeaker
}

// Participant is the stored membership record of a user in a room.
// A participant who has left is not a current participant.
type Participant struct {
	RoomID  RoomID
	UserID  UserID
	Role    Role
	HasLeft bool
}

func (p Participant) Active() bool { return !p.HasLeft }
