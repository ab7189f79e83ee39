package chat

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"

	"pingchat/internal/app/store"
	"pingchat/internal/app/user"
)

const testSecret = "test_session_secret"

// newTestBroker returns a broker over a fresh in-memory gateway.
func newTestBroker(t *testing.T) (*Broker, *store.Memory) {
	t.Helper()

	mem := store.NewMemory()
	b := NewBroker(mem, testSecret, 50)

	return b, mem
}

// registerUser creates an account directly against the gateway.
func registerUser(t *testing.T, mem *store.Memory, username string) user.User {
	t.Helper()

	u, err := mem.CreateUser(context.Background(), username, "hash", "avatar-"+username)
	require.NoError(t, err)

	return user.User{Username: u.Username, Avatar: u.Avatar}
}

// connect admits a new connection for the given identity. The websocket
// connection is nil: these tests exercise queuing, not pumping.
func connect(t *testing.T, b *Broker, usr user.User) *Client {
	t.Helper()

	c := NewClient(b, nil, usr)
	b.Admit(context.Background(), c)

	return c
}

// drainEvents decodes every frame currently queued on the connection.
func drainEvents(t *testing.T, c *Client) []Envelope {
	t.Helper()

	var envelopes []Envelope
	for {
		select {
		case raw, ok := <-c.send:
			if !ok {
				return envelopes
			}
			var env Envelope
			require.NoError(t, json.Unmarshal(raw, &env))
			envelopes = append(envelopes, env)
		default:
			return envelopes
		}
	}
}

// eventsNamed filters envelopes by event name.
func eventsNamed(envelopes []Envelope, name EventName) []Envelope {
	var out []Envelope
	for _, env := range envelopes {
		if env.Event == name {
			out = append(out, env)
		}
	}
	return out
}

// decodePayload unmarshals an envelope payload into dst.
func decodePayload(t *testing.T, env Envelope, dst any) {
	t.Helper()
	require.NoError(t, json.Unmarshal(env.Payload, dst))
}

// lastSnapshot returns the most recent presence snapshot queued on the
// connection, failing the test when there is none.
func lastSnapshot(t *testing.T, c *Client) []PresenceEntry {
	t.Helper()

	snapshots := eventsNamed(drainEvents(t, c), EventUsers)
	require.NotEmpty(t, snapshots, "expected at least one users event")

	var entries []PresenceEntry
	decodePayload(t, snapshots[len(snapshots)-1], &entries)
	return entries
}

// snapshotRow finds the entry for a username within a snapshot.
func snapshotRow(t *testing.T, entries []PresenceEntry, username string) PresenceEntry {
	t.Helper()

	for _, e := range entries {
		if e.Username == username {
			return e
		}
	}
	t.Fatalf("no presence entry for %q", username)
	return PresenceEntry{}
}
