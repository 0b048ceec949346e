package domain

import "fmt"

type RoomID string

type Visibility string

const (
	VisibilityPublic  Visibility = "public"
	VisibilityPrivate Visibility = "private"
)

// ParseVisibility treats an unset value as private.
func ParseVisibility(s string) (Visibility, error) {
	switch v := Visibility(s); v {
	case VisibilityPublic, VisibilityPrivate:
		return v, nil
	case "":
		return VisibilityPrivate, nil
	default:
		return "", fmt.Errorf("unknown visibility %q", s)
	}
}

// Room is a read-only snapshot fetched per connection attempt; never cached.
type Room struct {
	ID         RoomID
	Active     bool
	Visibility Visibility
}

func (r Room) Public() bool { return r.Visibility == VisibilityPublic }
