package ws

import (
	"bytes"
	"encoding/json"
	"errors"
)

// Client to server events.
const (
	EventJoinTeam         = "join-team"
	EventLeaveTeam        = "leave-team"
	EventSendMessage      = "send-message"
	EventTyping           = "typing"
	EventStopTyping       = "stop-typing"
	EventMarkMessagesRead = "mark-messages-read"
)

// Server to client events.
const (
	EventJoinedTeam     = "joined-team"
	EventNewMessage     = "new-message"
	EventUserTyping     = "user-typing"
	EventUserStopTyping = "user-stop-typing"
	EventMessagesRead   = "messages-read"
	EventError          = "error"
)

// ErrMalformedFrame is returned for frames that cannot be decoded.
var ErrMalformedFrame = errors.New("malformed frame")

// Frame is the envelope of every websocket message.
type Frame struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// TeamRef names the room an event targets. Clients may send it as an
// object or as a bare team id string.
type TeamRef struct {
	TeamID string `json:"teamId"`
}

// SendMessageData is the payload of send-message.
type SendMessageData struct {
	TeamID  string `json:"teamId"`
	Content string `json:"content"`
}

// TypingData is the payload of typing.
type TypingData struct {
	TeamID   string `json:"teamId"`
	UserName string `json:"userName"`
}

// UserTypingEvent is relayed to the other members of a room.
type UserTypingEvent struct {
	UserID   string `json:"userId"`
	UserName string `json:"userName,omitempty"`
	TeamID   string `json:"teamId"`
}

// MessagesReadEvent announces newly recorded read receipts.
type MessagesReadEvent struct {
	UserID     string   `json:"userId"`
	TeamID     string   `json:"teamId"`
	MessageIDs []string `json:"messageIds"`
}

// ErrorEvent reports a failed client event.
type ErrorEvent struct {
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
	Event   string `json:"event,omitempty"`
}

// DecodeFrame parses a raw client message.
func DecodeFrame(raw []byte) (Frame, error) {
	var f Frame
	if err := json.Unmarshal(raw, &f); err != nil || f.Event == "" {
		return Frame{}, ErrMalformedFrame
	}
	return f, nil
}

// DecodeTeamRef accepts either "team-id" or {"teamId":"team-id"}.
func DecodeTeamRef(data json.RawMessage) (TeamRef, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) > 0 && trimmed[0] == '"' {
		var id string
		if err := json.Unmarshal(trimmed, &id); err != nil {
			return TeamRef{}, ErrMalformedFrame
		}
		return TeamRef{TeamID: id}, nil
	}
	var ref TeamRef
	if err := json.Unmarshal(trimmed, &ref); err != nil {
		return TeamRef{}, ErrMalformedFrame
	}
	return ref, nil
}

// Encode marshals an outgoing event.
func Encode(event string, data any) ([]byte, error) {
	var raw json.RawMessage
	if data != nil {
		b, err := json.Marshal(data)
		if err != nil {
			return nil, err
		}
		raw = b
	}
	return json.Marshal(Frame{Event: event, Data: raw})
}
