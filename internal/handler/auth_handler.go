/*
Package handler provides the HTTP and websocket surface of the chat server.

This file holds registration and login. Both are thin collaborators of the
broker: they create or verify an account and issue the signed session cookie
that the realtime handshake later resolves.
*/
package handler

import (
	"errors"
	"net/http"
	"regexp"
	"unicode/utf8"

	"golang.org/x/crypto/bcrypt"

	"pingchat/internal/app/store"
	"pingchat/internal/pkg/auth/session"
	"pingchat/internal/pkg/errs"
	"pingchat/internal/pkg/logx"
	"pingchat/internal/pkg/req"
	"pingchat/internal/pkg/resp"
)

var usernameRegex = regexp.MustCompile(`^[a-z0-9_]{3,20}$`)

type RegisterInput struct {
	Username string `json:"username"`
	Password string `json:"password"`
	Avatar   string `json:"avatar,omitempty"`
}

// HandleRegister creates a new account and signs the caller in.
func HandleRegister(deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var input RegisterInput
		if customErr := req.BindJSON(w, r, &input); customErr != nil {
			resp.RespondError(w, r, customErr)
			return
		}

		// The public receiver sentinel shares the username namespace; an
		// account named after it would match every public message in the
		// unread queries.
		if !usernameRegex.MatchString(input.Username) || input.Username == store.PublicReceiver {
			resp.RespondError(w, r, errs.NewError(errs.ErrInvalidUsername))
			return
		}

		passwordLen := utf8.RuneCountInString(input.Password)
		if passwordLen < 6 || passwordLen > 50 {
			resp.RespondError(w, r, errs.NewError(errs.ErrInvalidPassword))
			return
		}

		hashedPassword, err := bcrypt.GenerateFromPassword([]byte(input.Password), bcrypt.DefaultCost)
		if err != nil {
			resp.RespondError(w, r, errs.NewError(errs.ErrUnknown))
			return
		}

		account, err := deps.Store.CreateUser(r.Context(), input.Username, string(hashedPassword), input.Avatar)
		if err != nil {
			if errors.Is(err, store.ErrUserExists) {
				logx.Warn("registration conflict: username already exists", "username", input.Username)
				resp.RespondError(w, r, errs.NewError(errs.ErrUserAlreadyExists))
				return
			}

			if errors.Is(err, store.ErrUsernameReserved) {
				resp.RespondError(w, r, errs.NewError(errs.ErrInvalidUsername))
				return
			}

			logx.Error(err, "failed to create user")
			resp.RespondError(w, r, errs.NewError(errs.ErrPersistenceFailure))
			return
		}

		token, err := session.Issue(account.Username, deps.Config.SessionSecret)
		if err != nil {
			logx.Error(err, "failed to issue session after registration")
			resp.RespondError(w, r, errs.NewError(errs.ErrUnknown))
			return
		}

		session.SetCookie(w, token)

		resp.RespondSuccess(w, r, map[string]any{
			"username": account.Username,
			"avatar":   account.Avatar,
		})
	}
}

type LoginInput struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// HandleLogin verifies credentials and issues a session cookie.
func HandleLogin(deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var input LoginInput
		if customErr := req.BindJSON(w, r, &input); customErr != nil {
			resp.RespondError(w, r, customErr)
			return
		}

		account, err := deps.Store.UserByUsername(r.Context(), input.Username)
		if err != nil {
			logx.Warn("login: user fetch failed", "username", input.Username, "error", err)
			resp.RespondError(w, r, errs.NewError(errs.ErrInvalidCredentials))
			return
		}

		if err := bcrypt.CompareHashAndPassword([]byte(account.PasswordHash), []byte(input.Password)); err != nil {
			logx.Warn("login: password mismatch", "username", input.Username)
			resp.RespondError(w, r, errs.NewError(errs.ErrInvalidCredentials))
			return
		}

		token, err := session.Issue(account.Username, deps.Config.SessionSecret)
		if err != nil {
			logx.Error(err, "login: session issue failed")
			resp.RespondError(w, r, errs.NewError(errs.ErrUnknown))
			return
		}

		session.SetCookie(w, token)

		resp.RespondSuccess(w, r, map[string]any{
			"username": account.Username,
			"avatar":   account.Avatar,
		})
	}
}

// currentUsername resolves the session cookie on an API request. A nil
// return means the error response has already been written.
func currentUsername(w http.ResponseWriter, r *http.Request, deps *AppDeps) (string, bool) {
	username, err := session.UsernameFromRequest(r, deps.Config.SessionSecret)
	if err != nil {
		resp.RespondError(w, r, errs.NewError(errs.ErrUnauthorized))
		return "", false
	}
	return username, true
}
