package app

import (
	"encoding/json"
	"errors"

	"github.com/dkeye/roomrelay/internal/core"
	"github.com/dkeye/roomrelay/internal/domain"
)

const (
	fieldType   = "type"
	fieldRoomID = "roomId"
	fieldTo     = "toUserId"
	fieldFrom   = "fromUserId"
	fieldRole   = "fromRole"
)

var errMalformed = errors.New("malformed message")

// Message is a parsed inbound payload. Fields keeps every original field so
// the router can forward the payload unchanged apart from sender enrichment.
type Message struct {
	Kind   domain.Kind
	RoomID domain.RoomID
	To     domain.UserID
	Fields map[string]json.RawMessage
}

// ParseMessage requires a JSON object with a non-empty string "type".
// "roomId" and "toUserId" must be strings when present.
func ParseMessage(data []byte) (*Message, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil || fields == nil {
		return nil, errMalformed
	}
	var typ string
	if err := stringField(fields, fieldType, &typ); err != nil || typ == "" {
		return nil, errMalformed
	}
	var room, to string
	if err := stringField(fields, fieldRoomID, &room); err != nil {
		return nil, errMalformed
	}
	if err := stringField(fields, fieldTo, &to); err != nil {
		return nil, errMalformed
	}
	return &Message{
		Kind:   domain.KindOf(typ),
		RoomID: domain.RoomID(room),
		To:     domain.UserID(to),
		Fields: fields,
	}, nil
}

func stringField(fields map[string]json.RawMessage, key string, dst *string) error {
	raw, ok := fields[key]
	if !ok {
		return nil
	}
	return json.Unmarshal(raw, dst)
}

// Enriched marshals the message with the relay-asserted sender fields,
// overwriting anything the client put there.
func (m *Message) Enriched(from *core.Session) (core.Frame, error) {
	out := make(map[string]json.RawMessage, len(m.Fields)+2)
	for k, v := range m.Fields {
		out[k] = v
	}
	id, err := json.Marshal(from.Identity.String())
	if err != nil {
		return nil, err
	}
	role, err := json.Marshal(string(from.Role))
	if err != nil {
		return nil, err
	}
	out[fieldFrom] = id
	out[fieldRole] = role
	return json.Marshal(out)
}

// ErrorFrame is the typed error reply sent to a sender.
func ErrorFrame(message string) core.Frame {
	b, _ := json.Marshal(struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	}{domain.TypeError, message})
	return b
}
