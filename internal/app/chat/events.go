/*
Package chat implements the realtime broker: the connection registry, the
presence projector, the message router, and the unread tracker.

This file defines the wire protocol. Every frame is a JSON envelope of
{"event": <name>, "payload": <shape>} with a closed set of event names;
payload shapes are validated at the boundary, and unknown events are dropped.
*/
package chat

import (
	"encoding/json"
	"time"

	"pingchat/internal/app/store"
)

// EventName identifies one variant of the realtime protocol.
type EventName string

// Server to client events.
const (
	// EventUsers carries a viewer-specific presence snapshot.
	EventUsers EventName = "users"

	// EventPublicMessage carries one message addressed to everyone.
	EventPublicMessage EventName = "public message"

	// EventPublicHistory carries the recent public messages on connect.
	EventPublicHistory EventName = "public history"

	// EventMessageHistory carries the viewer's recent messages on connect.
	EventMessageHistory EventName = "message history"

	// EventPrivateMessage carries one directed text message.
	EventPrivateMessage EventName = "private message"

	// EventPrivateImage carries one directed image message.
	EventPrivateImage EventName = "private image"

	// EventTyping and EventStopTyping relay transient typing state.
	EventTyping     EventName = "typing"
	EventStopTyping EventName = "stop typing"

	// EventUserConnected and EventUserDisconnected are best-effort
	// notifications about admissions and disconnects. Message delivery
	// never depends on them.
	EventUserConnected    EventName = "user connected"
	EventUserDisconnected EventName = "user disconnected"

	// EventError reports a failed action back to the client that caused it.
	EventError EventName = "error"
)

// Client to server events. Typing events and the private/public message
// names are shared with the server-to-client direction.
const (
	// EventRequestUsersUpdate asks for a fresh presence snapshot.
	EventRequestUsersUpdate EventName = "request users update"
)

// Envelope is the frame exchanged over the websocket.
type Envelope struct {
	Event   EventName       `json:"event"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// PresenceEntry is one row of a viewer's presence snapshot. It is derived
// state, computed fresh per viewer, and never contains the viewer itself.
type PresenceEntry struct {
	Username  string `json:"username"`
	Avatar    string `json:"avatar,omitempty"`
	Online    bool   `json:"online"`
	LastText  string `json:"lastText"`
	LastFrom  string `json:"lastFrom,omitempty"`
	HasUnread bool   `json:"hasUnread"`
}

// PublicMessagePayload is the outbound shape of a public message.
type PublicMessagePayload struct {
	Sender    string    `json:"sender"`
	Avatar    string    `json:"avatar,omitempty"`
	Text      string    `json:"text"`
	Timestamp time.Time `json:"timestamp"`
}

// PrivateMessagePayload is the outbound shape of a directed message, used
// for both text and image variants.
type PrivateMessagePayload struct {
	Sender    string    `json:"sender"`
	Receiver  string    `json:"receiver"`
	Avatar    string    `json:"avatar,omitempty"`
	Text      string    `json:"text,omitempty"`
	Image     string    `json:"image,omitempty"`
	IsRead    bool      `json:"isRead"`
	Timestamp time.Time `json:"timestamp"`
}

// TypingPayload is the outbound shape of typing relays.
type TypingPayload struct {
	From string `json:"from"`
}

// ConnectionPayload describes an admission or disconnect.
type ConnectionPayload struct {
	ConnectionID string `json:"connectionID"`
	Username     string `json:"username"`
}

// ErrorPayload reports a business error over the socket.
type ErrorPayload struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// PrivateSendPayload is the inbound shape of "private message".
type PrivateSendPayload struct {
	Content    string `json:"content"`
	ToUsername string `json:"toUsername"`
}

// PrivateImageSendPayload is the inbound shape of "private image".
type PrivateImageSendPayload struct {
	ToUsername string `json:"toUsername"`
	Image      string `json:"image"`
}

// TypingSendPayload is the inbound shape of "typing" and "stop typing".
type TypingSendPayload struct {
	To string `json:"to"`
}

// encodeEvent marshals an envelope with the given payload.
func encodeEvent(name EventName, payload any) ([]byte, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}

	return json.Marshal(Envelope{
		Event:   name,
		Payload: raw,
	})
}

// publicPayload projects a persisted message onto the public wire shape.
func publicPayload(m store.Message) PublicMessagePayload {
	return PublicMessagePayload{
		Sender:    m.Sender,
		Avatar:    m.Avatar,
		Text:      m.Text,
		Timestamp: m.Timestamp,
	}
}

// privatePayload projects a persisted message onto the directed wire shape.
func privatePayload(m store.Message) PrivateMessagePayload {
	return PrivateMessagePayload{
		Sender:    m.Sender,
		Receiver:  m.Receiver,
		Avatar:    m.Avatar,
		Text:      m.Text,
		Image:     m.Image,
		IsRead:    m.IsRead,
		Timestamp: m.Timestamp,
	}
}

// publicPayloads maps a history slice preserving order.
func publicPayloads(messages []store.Message) []PublicMessagePayload {
	out := make([]PublicMessagePayload, 0, len(messages))
	for _, m := range messages {
		out = append(out, publicPayload(m))
	}
	return out
}

// privatePayloads maps a history slice preserving order.
func privatePayloads(messages []store.Message) []PrivateMessagePayload {
	out := make([]PrivateMessagePayload, 0, len(messages))
	for _, m := range messages {
		out = append(out, privatePayload(m))
	}
	return out
}
