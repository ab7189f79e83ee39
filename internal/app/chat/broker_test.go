package chat

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"pingchat/internal/pkg/auth/session"
	"pingchat/internal/pkg/errs"
)

func TestAdmitSendsHistories(t *testing.T) {
	t.Parallel()

	b, mem := newTestBroker(t)
	alice := registerUser(t, mem, "alice")
	bob := registerUser(t, mem, "bob")
	registerUser(t, mem, "carol")

	ctx := context.Background()

	_, customErr := b.RoutePublic(ctx, alice, "hello room")
	require.Nil(t, customErr)
	_, customErr = b.RouteDirectedText(ctx, alice, "bob", "hi bob")
	require.Nil(t, customErr)
	_, customErr = b.RouteDirectedText(ctx, alice, "carol", "hi carol")
	require.Nil(t, customErr)

	bobConn := connect(t, b, bob)
	events := drainEvents(t, bobConn)

	publicHistory := eventsNamed(events, EventPublicHistory)
	require.Len(t, publicHistory, 1)
	var public []PublicMessagePayload
	decodePayload(t, publicHistory[0], &public)
	require.Len(t, public, 1)
	require.Equal(t, "hello room", public[0].Text)

	userHistory := eventsNamed(events, EventMessageHistory)
	require.Len(t, userHistory, 1)
	var direct []PrivateMessagePayload
	decodePayload(t, userHistory[0], &direct)
	require.Len(t, direct, 1, "history covers bob's conversations only")
	require.Equal(t, "hi bob", direct[0].Text)
}

func TestAdmitNotifiesOtherConnections(t *testing.T) {
	t.Parallel()

	b, mem := newTestBroker(t)
	alice := registerUser(t, mem, "alice")
	bob := registerUser(t, mem, "bob")

	aliceConn := connect(t, b, alice)
	drainEvents(t, aliceConn)

	bobConn := connect(t, b, bob)

	connected := eventsNamed(drainEvents(t, aliceConn), EventUserConnected)
	require.Len(t, connected, 1)
	var payload ConnectionPayload
	decodePayload(t, connected[0], &payload)
	require.Equal(t, "bob", payload.Username)
	require.Equal(t, bobConn.ID(), payload.ConnectionID)

	require.Empty(t, eventsNamed(drainEvents(t, bobConn), EventUserConnected),
		"the new connection is not notified about itself")
}

func TestDisconnectNotifiesAndIsIdempotent(t *testing.T) {
	t.Parallel()

	b, mem := newTestBroker(t)
	alice := registerUser(t, mem, "alice")
	bob := registerUser(t, mem, "bob")

	aliceConn := connect(t, b, alice)
	bobConn := connect(t, b, bob)
	drainEvents(t, aliceConn)

	b.Disconnect(bobConn)
	b.Disconnect(bobConn)

	events := drainEvents(t, aliceConn)
	disconnected := eventsNamed(events, EventUserDisconnected)
	require.Len(t, disconnected, 1, "a second disconnect is a no-op")

	var payload ConnectionPayload
	decodePayload(t, disconnected[0], &payload)
	require.Equal(t, "bob", payload.Username)

	require.False(t, b.registry.IsOnline("bob"))
}

func TestResolveIdentity(t *testing.T) {
	t.Parallel()

	b, mem := newTestBroker(t)
	registerUser(t, mem, "alice")

	ctx := context.Background()

	token, err := session.Issue("alice", testSecret)
	require.NoError(t, err)

	r := httptest.NewRequest("GET", "/ws", nil)
	r.AddCookie(&http.Cookie{Name: session.CookieName, Value: token})

	usr, customErr := b.ResolveIdentity(ctx, r)
	require.Nil(t, customErr)
	require.Equal(t, "alice", usr.Username)
	require.Equal(t, "avatar-alice", usr.Avatar)
}

func TestResolveIdentityFailures(t *testing.T) {
	t.Parallel()

	b, mem := newTestBroker(t)
	registerUser(t, mem, "alice")

	ctx := context.Background()

	// no cookie at all
	r := httptest.NewRequest("GET", "/ws", nil)
	_, customErr := b.ResolveIdentity(ctx, r)
	require.NotNil(t, customErr)
	require.Equal(t, errs.ErrIdentityUnresolved, customErr.Code)

	// valid signature, deleted account
	token, err := session.Issue("ghost", testSecret)
	require.NoError(t, err)
	r = httptest.NewRequest("GET", "/ws", nil)
	r.AddCookie(&http.Cookie{Name: session.CookieName, Value: token})
	_, customErr = b.ResolveIdentity(ctx, r)
	require.NotNil(t, customErr)
	require.Equal(t, errs.ErrIdentityUnresolved, customErr.Code)

	// cookie signed with a different key
	token, err = session.Issue("alice", "other_secret")
	require.NoError(t, err)
	r = httptest.NewRequest("GET", "/ws", nil)
	r.AddCookie(&http.Cookie{Name: session.CookieName, Value: token})
	_, customErr = b.ResolveIdentity(ctx, r)
	require.NotNil(t, customErr)
	require.Equal(t, errs.ErrIdentityUnresolved, customErr.Code)
}

func TestShutdownDropsAllConnections(t *testing.T) {
	t.Parallel()

	b, mem := newTestBroker(t)
	alice := registerUser(t, mem, "alice")
	bob := registerUser(t, mem, "bob")

	connect(t, b, alice)
	connect(t, b, alice)
	connect(t, b, bob)
	require.Equal(t, 3, b.registry.Len())

	b.Shutdown()

	require.Equal(t, 0, b.registry.Len())
	require.False(t, b.registry.IsOnline("alice"))
	require.False(t, b.registry.IsOnline("bob"))
}
