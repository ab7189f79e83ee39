package chat

import (
	"context"
	"strings"

	"pingchat/internal/app/store"
	"pingchat/internal/app/user"
	"pingchat/internal/pkg/errs"
)

// ImagePlaceholderText is stored as the text of image messages so previews
// and last-message lines have something to show.
const ImagePlaceholderText = "[image]"

// RoutePublic persists a message addressed to everyone and delivers it to
// every live connection, the sender included. Delivery is the single source
// of truth for the sender's own copy.
func (b *Broker) RoutePublic(ctx context.Context, sender user.User, text string) (*store.Message, *errs.CustomError) {
	if customErr := validateText(text); customErr != nil {
		return nil, customErr
	}

	msg, err := b.store.AppendMessage(ctx, store.AppendMessageParams{
		Sender:   sender.Username,
		Receiver: store.PublicReceiver,
		Text:     text,
		Avatar:   sender.Avatar,
	})
	if err != nil {
		b.logger.Error().Err(err).Str("sender", sender.Username).Msg("Failed to persist public message")
		return nil, errs.NewError(errs.ErrPersistenceFailure)
	}

	messageBytes, err := encodeEvent(EventPublicMessage, publicPayload(msg))
	if err != nil {
		b.logger.Error().Err(err).Msg("Error marshaling public message")
		return &msg, nil
	}

	for _, c := range b.registry.Clients() {
		_ = c.enqueue(messageBytes)
	}

	return &msg, nil
}

// RouteDirectedText persists a directed message and delivers it to every
// live connection of the target and of the sender. An offline target is not
// an error: the message is stored and surfaces later through history and
// the unread tracker.
func (b *Broker) RouteDirectedText(ctx context.Context, sender user.User, targetUsername, text string) (*store.Message, *errs.CustomError) {
	if customErr := validateText(text); customErr != nil {
		return nil, customErr
	}

	return b.routeDirected(ctx, EventPrivateMessage, store.AppendMessageParams{
		Sender:   sender.Username,
		Receiver: targetUsername,
		Text:     text,
		Avatar:   sender.Avatar,
	})
}

// RouteDirectedImage is RouteDirectedText with an image reference instead of
// text; the stored text is a fixed placeholder used for previews.
func (b *Broker) RouteDirectedImage(ctx context.Context, sender user.User, targetUsername, image string) (*store.Message, *errs.CustomError) {
	if strings.TrimSpace(image) == "" {
		return nil, errs.NewError(errs.ErrEmptyContent)
	}

	return b.routeDirected(ctx, EventPrivateImage, store.AppendMessageParams{
		Sender:   sender.Username,
		Receiver: targetUsername,
		Text:     ImagePlaceholderText,
		Image:    image,
		Avatar:   sender.Avatar,
	})
}

// routeDirected persists and fans out one directed message, then refreshes
// presence so unread markers and previews update everywhere.
func (b *Broker) routeDirected(ctx context.Context, event EventName, params store.AppendMessageParams) (*store.Message, *errs.CustomError) {
	if strings.TrimSpace(params.Receiver) == "" || params.Receiver == store.PublicReceiver {
		return nil, errs.NewError(errs.ErrInvalidParams)
	}

	msg, err := b.store.AppendMessage(ctx, params)
	if err != nil {
		b.logger.Error().Err(err).
			Str("sender", params.Sender).
			Str("receiver", params.Receiver).
			Msg("Failed to persist directed message")
		return nil, errs.NewError(errs.ErrPersistenceFailure)
	}

	messageBytes, err := encodeEvent(event, privatePayload(msg))
	if err != nil {
		b.logger.Error().Err(err).Msg("Error marshaling directed message")
		return &msg, nil
	}

	// Target connections first, then sender self-echo. A connection never
	// receives the message twice even when sender and target coincide.
	delivered := make(map[string]struct{})
	for _, c := range b.registry.FindByUsername(msg.Receiver) {
		_ = c.enqueue(messageBytes)
		delivered[c.id] = struct{}{}
	}
	for _, c := range b.registry.FindByUsername(msg.Sender) {
		if _, ok := delivered[c.id]; ok {
			continue
		}
		_ = c.enqueue(messageBytes)
	}

	b.PushPresence(ctx)

	return &msg, nil
}

// RelayTyping forwards transient typing state to the target's connections.
// Nothing is persisted; an offline target silently drops the relay.
func (b *Broker) RelayTyping(senderUsername, targetUsername string, isStarting bool) {
	event := EventStopTyping
	if isStarting {
		event = EventTyping
	}

	messageBytes, err := encodeEvent(event, TypingPayload{From: senderUsername})
	if err != nil {
		b.logger.Error().Err(err).Msg("Error marshaling typing event")
		return
	}

	for _, c := range b.registry.FindByUsername(targetUsername) {
		_ = c.enqueue(messageBytes)
	}
}

// validateText rejects blank or oversized message text.
func validateText(text string) *errs.CustomError {
	if strings.TrimSpace(text) == "" {
		return errs.NewError(errs.ErrEmptyContent)
	}
	if len(text) > MaxContentBytes {
		return errs.NewError(errs.ErrMessageContentTooLong)
	}
	return nil
}
