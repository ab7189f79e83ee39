package chat

import (
	"context"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"pingchat/internal/app/store"
	"pingchat/internal/app/user"
	"pingchat/internal/pkg/auth/session"
	"pingchat/internal/pkg/errs"
	"pingchat/internal/pkg/logx"
)

// persistenceTimeout bounds every call into the store made on behalf of a
// connection, so a stalled database cannot hang a pump goroutine.
const persistenceTimeout = 5 * time.Second

// Broker is the presence and message-routing hub. It owns the connection
// registry and consumes the persistence gateway; routing, presence
// projection, and the unread tracker are its methods (router.go,
// presence.go, tracker.go).
type Broker struct {
	registry *Registry

	store store.Store

	// sessionSecret verifies the signed session cookie on the handshake.
	sessionSecret string

	// historyLimit bounds every history query.
	historyLimit int

	logger zerolog.Logger
}

// NewBroker wires a broker to its persistence gateway.
func NewBroker(st store.Store, sessionSecret string, historyLimit int) *Broker {
	return &Broker{
		registry:      NewRegistry(),
		store:         st,
		sessionSecret: sessionSecret,
		historyLimit:  historyLimit,
		logger:        logx.Logger().With().Str("component", "broker").Logger(),
	}
}

// ResolveIdentity maps a handshake request to a known user: session cookie,
// signature check, then a profile lookup. Every failure collapses to
// ErrIdentityUnresolved; the caller refuses the connection.
func (b *Broker) ResolveIdentity(ctx context.Context, r *http.Request) (user.User, *errs.CustomError) {
	username, err := session.UsernameFromRequest(r, b.sessionSecret)
	if err != nil {
		b.logger.Warn().Err(err).Msg("Handshake session could not be parsed")
		return user.User{}, errs.NewError(errs.ErrIdentityUnresolved)
	}

	account, err := b.store.UserByUsername(ctx, username)
	if err != nil {
		b.logger.Warn().Err(err).Str("username", username).Msg("Handshake user lookup failed")
		return user.User{}, errs.NewError(errs.ErrIdentityUnresolved)
	}

	return user.User{Username: account.Username, Avatar: account.Avatar}, nil
}

// Admit registers a connection and runs the admission side effects: the new
// client receives its message history and the public history, every viewer
// gets a fresh presence snapshot, and the other connections are notified.
// The notification is best-effort; delivery never depends on it.
func (b *Broker) Admit(ctx context.Context, c *Client) {
	b.registry.add(c)

	b.logger.Info().
		Str("connection_id", c.id).
		Str("username", c.user.Username).
		Int("total_connections", b.registry.Len()).
		Msg("Connection admitted")

	b.sendHistories(ctx, c)

	b.PushPresence(ctx)

	b.broadcastExcept(c.id, EventUserConnected, ConnectionPayload{
		ConnectionID: c.id,
		Username:     c.user.Username,
	})
}

// Disconnect removes a connection and runs the disconnect side effects.
// Idempotent: a second call for the same connection is a no-op.
func (b *Broker) Disconnect(c *Client) {
	removed := b.registry.remove(c.id)
	if removed == nil {
		return
	}

	removed.closeSend()

	b.logger.Info().
		Str("connection_id", c.id).
		Str("username", c.user.Username).
		Int("total_connections", b.registry.Len()).
		Msg("Connection removed")

	ctx, cancel := context.WithTimeout(context.Background(), persistenceTimeout)
	defer cancel()

	b.PushPresence(ctx)

	b.broadcastExcept(c.id, EventUserDisconnected, ConnectionPayload{
		ConnectionID: c.id,
		Username:     c.user.Username,
	})
}

// sendHistories pushes the viewer's recent direct messages and the public
// backlog to a freshly admitted connection. A failed history load is logged
// and reported to that client only; the admission stands.
func (b *Broker) sendHistories(ctx context.Context, c *Client) {
	userHistory, err := b.store.UserHistory(ctx, c.user.Username, b.historyLimit)
	if err != nil {
		b.logger.Error().Err(err).Str("username", c.user.Username).Msg("Failed to load user history")
		c.SendError(errs.NewError(errs.ErrPersistenceFailure))
	} else if err := c.sendEvent(EventMessageHistory, privatePayloads(userHistory)); err != nil {
		c.logger.Warn().Err(err).Msg("Failed to queue message history")
	}

	publicHistory, err := b.store.PublicHistory(ctx, b.historyLimit)
	if err != nil {
		b.logger.Error().Err(err).Msg("Failed to load public history")
		c.SendError(errs.NewError(errs.ErrPersistenceFailure))
	} else if err := c.sendEvent(EventPublicHistory, publicPayloads(publicHistory)); err != nil {
		c.logger.Warn().Err(err).Msg("Failed to queue public history")
	}
}

// broadcastExcept queues an event on every connection other than the one
// identified by connectionID. Delivery failures are swallowed.
func (b *Broker) broadcastExcept(connectionID string, name EventName, payload any) {
	messageBytes, err := encodeEvent(name, payload)
	if err != nil {
		b.logger.Error().Err(err).Str("event", string(name)).Msg("Error marshaling broadcast event")
		return
	}

	for _, c := range b.registry.Clients() {
		if c.id == connectionID {
			continue
		}
		_ = c.enqueue(messageBytes)
	}
}

// Shutdown drops every live connection. Used on graceful server stop.
func (b *Broker) Shutdown() {
	for _, c := range b.registry.Clients() {
		b.Disconnect(c)
	}

	b.logger.Info().Msg("Broker shutdown complete.")
}
