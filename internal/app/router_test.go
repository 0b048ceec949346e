package app

import (
	"testing"

	"github.com/dkeye/roomrelay/internal/core"
	"github.com/dkeye/roomrelay/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func admitAll(t *testing.T, reg *Registry, ss ...*core.Session) {
	t.Helper()
	for _, s := range ss {
		require.NoError(t, reg.Admit(s, Caps{}))
	}
}

func TestRouter_BroadcastEnriched(t *testing.T) {
	reg := NewRegistry()
	alice, aliceConn := newSession(t, "alice", "room-7", domain.RoleSpeaker, "1.1.1.1")
	bob, bobConn := newSession(t, "bob", "room-7", domain.RoleListener, "2.2.2.2")
	carol, carolConn := newSession(t, "carol", "room-7", domain.RoleCreator, "3.3.3.3")
	dave, daveConn := newSession(t, "dave", "room-8", domain.RoleCreator, "4.4.4.4")
	admitAll(t, reg, alice, bob, carol, dave)

	msg, err := ParseMessage([]byte(`{"type":"chat-message","roomId":"room-7","text":"hi","fromUserId":"mallory","fromRole":"creator"}`))
	require.NoError(t, err)

	n := NewRouter(reg).Route(alice, msg)
	assert.Equal(t, 2, n)

	want := map[string]any{
		"type":       "chat-message",
		"roomId":     "room-7",
		"text":       "hi",
		"fromUserId": "alice",
		"fromRole":   "speaker",
	}
	for _, c := range []*fakeConn{bobConn, carolConn} {
		got := c.decoded(t)
		require.Len(t, got, 1)
		assert.Equal(t, want, got[0])
	}
	assert.Empty(t, aliceConn.decoded(t), "sender does not receive its own message")
	assert.Empty(t, daveConn.decoded(t), "other rooms are untouched")
}

func TestRouter_TargetedRecipient(t *testing.T) {
	reg := NewRegistry()
	alice, _ := newSession(t, "alice", "room-7", domain.RoleCreator, "1.1.1.1")
	bob, bobConn := newSession(t, "bob", "room-7", domain.RoleSpeaker, "2.2.2.2")
	carol, carolConn := newSession(t, "carol", "room-7", domain.RoleSpeaker, "3.3.3.3")
	admitAll(t, reg, alice, bob, carol)

	msg, err := ParseMessage([]byte(`{"type":"offer","roomId":"room-7","toUserId":"bob","sdp":"v=0"}`))
	require.NoError(t, err)
	assert.Equal(t, 1, NewRouter(reg).Route(alice, msg))
	assert.Len(t, bobConn.decoded(t), 1)
	assert.Empty(t, carolConn.decoded(t))

	msg, err = ParseMessage([]byte(`{"type":"offer","roomId":"room-7","toUserId":"nobody"}`))
	require.NoError(t, err)
	assert.Equal(t, 0, NewRouter(reg).Route(alice, msg))
}

func TestRouter_SkipsUnwritable(t *testing.T) {
	reg := NewRegistry()
	alice, _ := newSession(t, "alice", "room-7", domain.RoleCreator, "1.1.1.1")
	bob, bobConn := newSession(t, "bob", "room-7", domain.RoleSpeaker, "2.2.2.2")
	carol, carolConn := newSession(t, "carol", "room-7", domain.RoleSpeaker, "3.3.3.3")
	admitAll(t, reg, alice, bob, carol)
	bobConn.full = true

	msg, err := ParseMessage([]byte(`{"type":"hand-raise","roomId":"room-7"}`))
	require.NoError(t, err)
	assert.Equal(t, 1, NewRouter(reg).Route(alice, msg))
	assert.Len(t, carolConn.decoded(t), 1)
}

func TestRouter_PreservesSenderOrder(t *testing.T) {
	reg := NewRegistry()
	alice, _ := newSession(t, "alice", "room-7", domain.RoleCreator, "1.1.1.1")
	bob, bobConn := newSession(t, "bob", "room-7", domain.RoleSpeaker, "2.2.2.2")
	admitAll(t, reg, alice, bob)

	r := NewRouter(reg)
	for _, seq := range []string{"1", "2", "3"} {
		msg, err := ParseMessage([]byte(`{"type":"hand-raise","roomId":"room-7","seq":"` + seq + `"}`))
		require.NoError(t, err)
		r.Route(alice, msg)
	}
	got := bobConn.decoded(t)
	require.Len(t, got, 3)
	for i, seq := range []string{"1", "2", "3"} {
		assert.Equal(t, seq, got[i]["seq"])
	}
}
