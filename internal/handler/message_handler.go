package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"pingchat/internal/pkg/errs"
	"pingchat/internal/pkg/req"
	"pingchat/internal/pkg/resp"
)

type MarkReadInput struct {
	From string `json:"from"`
	To   string `json:"to"`
}

// HandleMarkRead flips a whole conversation to read. Only the receiver of
// the messages may mark them, so "to" must match the session user.
func HandleMarkRead(deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		viewer, ok := currentUsername(w, r, deps)
		if !ok {
			return
		}

		var input MarkReadInput
		if customErr := req.BindJSON(w, r, &input); customErr != nil {
			resp.RespondError(w, r, customErr)
			return
		}

		if input.From == "" || input.To != viewer {
			resp.RespondError(w, r, errs.NewError(errs.ErrInvalidParams))
			return
		}

		if customErr := deps.Broker.MarkRead(r.Context(), input.From, input.To); customErr != nil {
			resp.RespondError(w, r, customErr)
			return
		}

		resp.RespondSuccess(w, r, nil)
	}
}

// HandleUnread lists the usernames with unread messages for the session
// user. The path username must match the session.
func HandleUnread(deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		viewer, ok := currentUsername(w, r, deps)
		if !ok {
			return
		}

		if chi.URLParam(r, "username") != viewer {
			resp.RespondError(w, r, errs.NewError(errs.ErrInvalidParams))
			return
		}

		senders, err := deps.Broker.UnreadSenders(r.Context(), viewer)
		if err != nil {
			resp.RespondError(w, r, errs.NewError(errs.ErrPersistenceFailure))
			return
		}

		if senders == nil {
			senders = []string{}
		}

		resp.RespondSuccess(w, r, senders)
	}
}

// HandleMessages serves the bounded conversation history between two users,
// oldest first. The session user must be one of the two.
func HandleMessages(deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		viewer, ok := currentUsername(w, r, deps)
		if !ok {
			return
		}

		query := r.URL.Query()
		user1 := query.Get("user1")
		user2 := query.Get("user2")

		if user1 == "" || user2 == "" {
			resp.RespondError(w, r, errs.NewError(errs.ErrInvalidParams))
			return
		}

		if viewer != user1 && viewer != user2 {
			resp.RespondError(w, r, errs.NewError(errs.ErrUnauthorized))
			return
		}

		messages, err := deps.Store.Conversation(r.Context(), user1, user2, deps.Config.HistoryLimit)
		if err != nil {
			resp.RespondError(w, r, errs.NewError(errs.ErrPersistenceFailure))
			return
		}

		resp.RespondSuccess(w, r, messages)
	}
}
