package chat

import (
	"context"

	"pingchat/internal/pkg/errs"
)

// The unread tracker is a state machine per (sender, receiver) pair with a
// single one-way transition: a directed message enters Unread when the
// router persists it with isRead=false, and MarkRead flips the whole
// conversation to Read. There is no per-message acknowledgement.

// MarkRead flips every unread message from fromUsername to toUsername to
// read, then refreshes presence so the unread markers clear. The flip never
// reverses; sending again starts a new unread run.
func (b *Broker) MarkRead(ctx context.Context, fromUsername, toUsername string) *errs.CustomError {
	if err := b.store.MarkRead(ctx, fromUsername, toUsername); err != nil {
		b.logger.Error().Err(err).
			Str("from", fromUsername).
			Str("to", toUsername).
			Msg("Failed to mark conversation read")
		return errs.NewError(errs.ErrPersistenceFailure)
	}

	b.PushPresence(ctx)

	return nil
}

// HasUnread reports whether at least one message from fromUsername to the
// viewer is still unread. The presence projector uses the bulk
// UnreadSenders form instead; this is the point query.
func (b *Broker) HasUnread(ctx context.Context, forViewer, fromUsername string) (bool, error) {
	senders, err := b.store.UnreadSenders(ctx, forViewer)
	if err != nil {
		return false, err
	}

	for _, sender := range senders {
		if sender == fromUsername {
			return true, nil
		}
	}
	return false, nil
}

// UnreadSenders lists every username with unread messages addressed to the
// viewer.
func (b *Broker) UnreadSenders(ctx context.Context, forViewer string) ([]string, error) {
	return b.store.UnreadSenders(ctx, forViewer)
}
