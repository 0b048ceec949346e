// Package domain contains entities without transport logic, just meta-data
package domain

import (
	"errors"

	"github.com/google/uuid"
)

const (
	MaxUserIDLen = 128
	anonPrefix   = "anon-"
)

var (
	ErrUserIDEmpty   = errors.New("user id empty")
	ErrUserIDTooLong = errors.New("user id too long")
)

type UserID string

// Identity is either a real account or a synthetic anonymous listener.
// The zero value is not a valid identity.
type Identity struct {
	id        UserID
	anonymous bool
}

// NewAccountIdentity wraps a user id resolved by the identity backend.
func NewAccountIdentity(id string) (Identity, error) {
	if len(id) == 0 {
		return Identity{}, ErrUserIDEmpty
	}
	if len(id) > MaxUserIDLen {
		return Identity{}, ErrUserIDTooLong
	}
	return Identity{id: UserID(id)}, nil
}

// NewAnonymousIdentity generates a unique non-account identity for a public room listener.
func NewAnonymousIdentity() Identity {
	return Identity{id: UserID(anonPrefix + uuid.NewString()), anonymous: true}
}

func (i Identity) ID() UserID      { return i.id }
func (i Identity) String() string  { return string(i.id) }
func (i Identity) Anonymous() bool { return i.anonymous }
func (i Identity) IsZero() bool    { return i.id == "" }

// Credentials are the raw values a connection presented, tried in field order.
type Credentials struct {
	BearerToken  string
	SessionToken string
}

func (c Credentials) Empty() bool {
	return c.BearerToken == "" && c.SessionToken == ""
}
