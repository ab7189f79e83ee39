package store

import (
	"context"
	"sync"
	"time"
)

// Memory is an in-memory Store used by tests and database-free local runs.
// It mirrors the Postgres ordering semantics: ids are monotonic and message
// order is persistence order.
type Memory struct {
	mu       sync.RWMutex
	users    []User
	byName   map[string]int
	messages []Message
	nextUser int64
	nextMsg  int64
}

// NewMemory returns an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{
		byName: make(map[string]int),
	}
}

func (m *Memory) CreateUser(_ context.Context, username, passwordHash, avatar string) (User, error) {
	if username == PublicReceiver {
		return User{}, ErrUsernameReserved
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.byName[username]; ok {
		return User{}, ErrUserExists
	}

	m.nextUser++
	u := User{
		ID:           m.nextUser,
		Username:     username,
		PasswordHash: passwordHash,
		Avatar:       avatar,
		CreatedAt:    time.Now(),
	}

	m.byName[username] = len(m.users)
	m.users = append(m.users, u)

	return u, nil
}

func (m *Memory) UserByUsername(_ context.Context, username string) (User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	idx, ok := m.byName[username]
	if !ok {
		return User{}, ErrUserNotFound
	}
	return m.users[idx], nil
}

func (m *Memory) UpdateAvatar(_ context.Context, username, avatar string) (User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	idx, ok := m.byName[username]
	if !ok {
		return User{}, ErrUserNotFound
	}

	m.users[idx].Avatar = avatar
	return m.users[idx], nil
}

func (m *Memory) ListUsers(_ context.Context) ([]User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	users := make([]User, len(m.users))
	copy(users, m.users)
	return users, nil
}

func (m *Memory) AppendMessage(_ context.Context, params AppendMessageParams) (Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.nextMsg++
	msg := Message{
		ID:        m.nextMsg,
		Sender:    params.Sender,
		Receiver:  params.Receiver,
		Text:      params.Text,
		Image:     params.Image,
		Avatar:    params.Avatar,
		IsRead:    false,
		Timestamp: time.Now(),
	}

	m.messages = append(m.messages, msg)

	return msg, nil
}

// lastN keeps the tail of an already ordered slice.
func lastN(messages []Message, limit int) []Message {
	if limit > 0 && len(messages) > limit {
		messages = messages[len(messages)-limit:]
	}
	return messages
}

func betweenPair(msg Message, userA, userB string) bool {
	return (msg.Sender == userA && msg.Receiver == userB) ||
		(msg.Sender == userB && msg.Receiver == userA)
}

func (m *Memory) Conversation(_ context.Context, userA, userB string, limit int) ([]Message, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []Message
	for _, msg := range m.messages {
		if betweenPair(msg, userA, userB) {
			out = append(out, msg)
		}
	}
	return lastN(out, limit), nil
}

func (m *Memory) PublicHistory(_ context.Context, limit int) ([]Message, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []Message
	for _, msg := range m.messages {
		if msg.Receiver == PublicReceiver {
			out = append(out, msg)
		}
	}
	return lastN(out, limit), nil
}

func (m *Memory) UserHistory(_ context.Context, username string, limit int) ([]Message, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []Message
	for _, msg := range m.messages {
		if msg.Sender == username || msg.Receiver == username {
			out = append(out, msg)
		}
	}
	return lastN(out, limit), nil
}

func (m *Memory) LastMessageBetween(_ context.Context, userA, userB string) (*Message, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for i := len(m.messages) - 1; i >= 0; i-- {
		if betweenPair(m.messages[i], userA, userB) {
			msg := m.messages[i]
			return &msg, nil
		}
	}
	return nil, nil
}

func (m *Memory) MarkRead(_ context.Context, sender, receiver string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for i := range m.messages {
		msg := &m.messages[i]
		if msg.Sender == sender && msg.Receiver == receiver && !msg.IsRead {
			msg.IsRead = true
		}
	}
	return nil
}

func (m *Memory) UnreadSenders(_ context.Context, receiver string) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	seen := make(map[string]struct{})
	var senders []string
	for _, msg := range m.messages {
		if msg.Receiver == receiver && !msg.IsRead {
			if _, ok := seen[msg.Sender]; !ok {
				seen[msg.Sender] = struct{}{}
				senders = append(senders, msg.Sender)
			}
		}
	}
	return senders, nil
}
