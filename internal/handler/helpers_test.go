package handler

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"pingchat/internal/app/chat"
	"pingchat/internal/app/storage"
	"pingchat/internal/app/store"
	"pingchat/internal/configs"
	"pingchat/internal/pkg/auth/session"
	"pingchat/internal/pkg/resp"
)

const testSecret = "test_session_secret"

// newTestServer builds the full routing table over an in-memory store. The
// storage service stays nil; tests touching object storage use
// newTestServerWithStorage.
func newTestServer(t *testing.T) (*httptest.Server, *store.Memory) {
	t.Helper()

	srv, mem, _ := newTestServerWithStorage(t, nil)
	return srv, mem
}

func newTestServerWithStorage(t *testing.T, svc storage.StorageService) (*httptest.Server, *store.Memory, *AppDeps) {
	t.Helper()

	mem := store.NewMemory()
	cfg := &configs.AppConfig{
		Environment:   "development",
		HistoryLimit:  50,
		SessionSecret: testSecret,
	}

	deps := &AppDeps{
		Broker:         chat.NewBroker(mem, cfg.SessionSecret, cfg.HistoryLimit),
		Config:         cfg,
		StorageService: svc,
		Store:          mem,
	}

	srv := httptest.NewServer(Router(deps))
	t.Cleanup(srv.Close)

	return srv, mem, deps
}

// createAccount registers a user directly against the store with a real
// bcrypt hash so login tests can verify the password path.
func createAccount(t *testing.T, mem *store.Memory, username, password string) store.User {
	t.Helper()

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	require.NoError(t, err)

	u, err := mem.CreateUser(t.Context(), username, string(hash), "avatar-"+username)
	require.NoError(t, err)
	return u
}

// sessionCookie issues a signed session cookie for a username.
func sessionCookie(t *testing.T, username string) *http.Cookie {
	t.Helper()

	token, err := session.Issue(username, testSecret)
	require.NoError(t, err)

	return &http.Cookie{Name: session.CookieName, Value: token}
}

// doJSON sends a request with an optional JSON body and session cookie and
// decodes the response envelope.
func doJSON(t *testing.T, method, url string, body any, cookie *http.Cookie) (int, resp.JSONResponse) {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}

	r, err := http.NewRequest(method, url, reader)
	require.NoError(t, err)
	if body != nil {
		r.Header.Set("Content-Type", "application/json")
	}
	if cookie != nil {
		r.AddCookie(cookie)
	}

	res, err := http.DefaultClient.Do(r)
	require.NoError(t, err)
	defer res.Body.Close()

	var envelope resp.JSONResponse
	require.NoError(t, json.NewDecoder(res.Body).Decode(&envelope))

	return res.StatusCode, envelope
}

// dataAs remarshals the envelope data into a typed destination.
func dataAs(t *testing.T, envelope resp.JSONResponse, dst any) {
	t.Helper()

	raw, err := json.Marshal(envelope.Data)
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(raw, dst))
}

// findCookie returns the named cookie from a response, or nil.
func findCookie(res *http.Response, name string) *http.Cookie {
	for _, c := range res.Cookies() {
		if c.Name == name {
			return c
		}
	}
	return nil
}
