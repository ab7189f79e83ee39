package chat

import (
	"context"
	"fmt"

	"pingchat/internal/pkg/errs"
)

// BuildSnapshot derives the viewer's user list: every known account except
// the viewer, each with its online flag, last-message preview, and unread
// marker. Offline users stay listed. The order is the gateway's registration
// order, so snapshots are stable across recomputes.
func (b *Broker) BuildSnapshot(ctx context.Context, viewerUsername string) ([]PresenceEntry, error) {
	users, err := b.store.ListUsers(ctx)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}

	unreadSenders, err := b.store.UnreadSenders(ctx, viewerUsername)
	if err != nil {
		return nil, fmt.Errorf("unread senders: %w", err)
	}

	unread := make(map[string]struct{}, len(unreadSenders))
	for _, sender := range unreadSenders {
		unread[sender] = struct{}{}
	}

	entries := make([]PresenceEntry, 0, len(users))
	for _, u := range users {
		if u.Username == viewerUsername {
			continue
		}

		entry := PresenceEntry{
			Username: u.Username,
			Avatar:   u.Avatar,
			Online:   b.registry.IsOnline(u.Username),
		}

		last, err := b.store.LastMessageBetween(ctx, viewerUsername, u.Username)
		if err != nil {
			return nil, fmt.Errorf("last message between: %w", err)
		}
		if last != nil {
			entry.LastText = last.Text
			entry.LastFrom = last.Sender
		}

		if _, ok := unread[u.Username]; ok {
			entry.HasUnread = true
		}

		entries = append(entries, entry)
	}

	return entries, nil
}

// PushPresence recomputes and delivers a fresh snapshot to every connected
// viewer. The snapshot is computed once per distinct username and fanned out
// to all of that user's connections. Full recompute per trigger is the
// intended behavior at this scale; failures abort the pass with a log entry
// and the next trigger reconverges.
func (b *Broker) PushPresence(ctx context.Context) {
	byViewer := make(map[string][]*Client)
	for _, c := range b.registry.Clients() {
		byViewer[c.user.Username] = append(byViewer[c.user.Username], c)
	}

	for viewer, clients := range byViewer {
		entries, err := b.BuildSnapshot(ctx, viewer)
		if err != nil {
			b.logger.Error().Err(err).Str("viewer", viewer).Msg("Failed to build presence snapshot")
			for _, c := range clients {
				c.SendError(errs.NewError(errs.ErrPersistenceFailure))
			}
			continue
		}

		for _, c := range clients {
			if err := c.sendEvent(EventUsers, entries); err != nil {
				c.logger.Warn().Err(err).Msg("Failed to queue presence snapshot")
			}
		}
	}
}
