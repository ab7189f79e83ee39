/*
Package store is the persistence gateway for users and messages.

It defines the Store contract consumed by the broker and the HTTP handlers,
together with two implementations: Postgres (production) and Memory
(tests and local development without a database).
*/
package store

import (
	"context"
	"errors"
	"time"
)

// PublicReceiver is the sentinel receiver for messages visible to everyone.
const PublicReceiver = "public"

var (
	// ErrUserExists is returned by CreateUser on a username conflict.
	ErrUserExists = errors.New("user already exists")

	// ErrUserNotFound is returned when a username lookup matches nothing.
	ErrUserNotFound = errors.New("user does not exist")

	// ErrUsernameReserved is returned by CreateUser when the username
	// collides with the public receiver sentinel. An account named
	// "public" would match every public message in the unread queries.
	ErrUsernameReserved = errors.New("username is reserved")
)

// User is a durable account record. PasswordHash never leaves the handlers
// that verify credentials.
type User struct {
	ID           int64
	Username     string
	PasswordHash string
	Avatar       string
	CreatedAt    time.Time
}

// Message is a persisted chat message. The (sender, receiver, text, image)
// content is write-once; IsRead is the only mutable field and only moves
// from false to true.
type Message struct {
	ID        int64     `json:"id"`
	Sender    string    `json:"sender"`
	Receiver  string    `json:"receiver"`
	Text      string    `json:"text,omitempty"`
	Image     string    `json:"image,omitempty"`
	Avatar    string    `json:"avatar,omitempty"`
	IsRead    bool      `json:"isRead"`
	Timestamp time.Time `json:"timestamp"`
}

// IsPublic reports whether the message is addressed to everyone.
func (m Message) IsPublic() bool {
	return m.Receiver == PublicReceiver
}

// AppendMessageParams carries the write-once content of a new message.
// Avatar is the sender's avatar snapshotted at send time. Directed messages
// are stored unread; the flag is meaningless for public ones.
type AppendMessageParams struct {
	Sender   string
	Receiver string
	Text     string
	Image    string
	Avatar   string
}

// Store is the gateway contract. All ordering is by persistence order:
// timestamp ascending with the assigned id breaking ties.
type Store interface {
	// CreateUser registers a new account. Returns ErrUserExists on conflict.
	CreateUser(ctx context.Context, username, passwordHash, avatar string) (User, error)

	// UserByUsername fetches one account. Returns ErrUserNotFound when absent.
	UserByUsername(ctx context.Context, username string) (User, error)

	// UpdateAvatar replaces the account's avatar reference and returns the
	// updated record. Returns ErrUserNotFound when the account is absent.
	UpdateAvatar(ctx context.Context, username, avatar string) (User, error)

	// ListUsers returns every known account in registration order.
	ListUsers(ctx context.Context) ([]User, error)

	// AppendMessage persists a new message, assigning its id and timestamp.
	AppendMessage(ctx context.Context, params AppendMessageParams) (Message, error)

	// Conversation returns the most recent limit messages exchanged between
	// two users, oldest first.
	Conversation(ctx context.Context, userA, userB string, limit int) ([]Message, error)

	// PublicHistory returns the most recent limit public messages, oldest first.
	PublicHistory(ctx context.Context, limit int) ([]Message, error)

	// UserHistory returns the most recent limit messages sent or received by
	// the user, oldest first.
	UserHistory(ctx context.Context, username string, limit int) ([]Message, error)

	// LastMessageBetween returns the newest message exchanged between two
	// users, or nil when they have no conversation yet.
	LastMessageBetween(ctx context.Context, userA, userB string) (*Message, error)

	// MarkRead flips every unread message from sender to receiver to read.
	MarkRead(ctx context.Context, sender, receiver string) error

	// UnreadSenders lists the distinct usernames with at least one unread
	// message addressed to the given receiver.
	UnreadSenders(ctx context.Context, receiver string) ([]string, error)
}
