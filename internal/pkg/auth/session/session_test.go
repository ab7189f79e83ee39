package session

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
)

const testSecret = "unit_test_secret"

func TestIssueAndParseRoundTrip(t *testing.T) {
	t.Parallel()

	token, err := Issue("alice", testSecret)
	require.NoError(t, err)

	claims, err := Parse(token, testSecret)
	require.NoError(t, err)
	require.Equal(t, "alice", claims.Username)
	require.Equal(t, "pingchat", claims.Issuer)
	require.Greater(t, claims.ExpiresAt, claims.IssuedAt)
}

func TestParseRejectsWrongSecret(t *testing.T) {
	t.Parallel()

	token, err := Issue("alice", testSecret)
	require.NoError(t, err)

	_, err = Parse(token, "a different secret")
	require.Error(t, err)
}

func TestParseRejectsTampering(t *testing.T) {
	t.Parallel()

	token, err := Issue("alice", testSecret)
	require.NoError(t, err)

	_, err = Parse(token+"x", testSecret)
	require.Error(t, err)

	_, err = Parse("not.a.jwt", testSecret)
	require.Error(t, err)
}

func TestUsernameFromRequest(t *testing.T) {
	t.Parallel()

	token, err := Issue("alice", testSecret)
	require.NoError(t, err)

	r := httptest.NewRequest("GET", "/", nil)
	r.AddCookie(&http.Cookie{Name: CookieName, Value: token})

	username, err := UsernameFromRequest(r, testSecret)
	require.NoError(t, err)
	require.Equal(t, "alice", username)

	bare := httptest.NewRequest("GET", "/", nil)
	_, err = UsernameFromRequest(bare, testSecret)
	require.ErrorIs(t, err, ErrNoSession)
}

func TestSetCookieAttributes(t *testing.T) {
	t.Parallel()

	w := httptest.NewRecorder()
	SetCookie(w, "token-value")

	cookies := w.Result().Cookies()
	require.Len(t, cookies, 1)

	c := cookies[0]
	require.Equal(t, CookieName, c.Name)
	require.Equal(t, "token-value", c.Value)
	require.True(t, c.HttpOnly, "the cookie must not be script-readable")
	require.Equal(t, "/", c.Path)
	require.Equal(t, int(Lifetime.Seconds()), c.MaxAge)
}
