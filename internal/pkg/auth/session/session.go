/*
Package session implements the signed session cookie that carries a user's
identity between the HTTP API and the realtime handshake.

The cookie value is an HS256 JWT whose only custom claim is the username.
Anything the broker needs beyond that (avatar, account existence) is resolved
against the user store at connection time, so a stale cookie for a deleted
account still fails identity resolution.
*/
package session

import (
	"errors"
	"net/http"
	"time"

	"github.com/golang-jwt/jwt"
)

const (
	// CookieName is the name of the session cookie.
	CookieName = "session"

	// Lifetime is how long an issued session stays valid.
	Lifetime = 24 * time.Hour

	// tokenIssuer identifies tokens minted by this server.
	tokenIssuer = "pingchat"
)

// ErrNoSession is returned when the request carries no usable session cookie.
var ErrNoSession = errors.New("no session cookie")

// Claims is the JWT claim set stored in the session cookie.
type Claims struct {
	jwt.StandardClaims

	// Username is the stable identity of the signed-in user.
	Username string `json:"username"`
}

// Issue signs a new session token for the given username.
func Issue(username, secretKey string) (string, error) {
	now := time.Now()

	claims := &Claims{
		StandardClaims: jwt.StandardClaims{
			ExpiresAt: now.Add(Lifetime).Unix(),
			IssuedAt:  now.Unix(),
			Issuer:    tokenIssuer,
		},
		Username: username,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)

	return token.SignedString([]byte(secretKey))
}

// Parse validates a session token and returns its claims.
func Parse(tokenString, secretKey string) (*Claims, error) {
	claims := &Claims{}

	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return []byte(secretKey), nil
	})

	if err != nil {
		return nil, err
	}

	if !token.Valid {
		return nil, errors.New("invalid or expired token")
	}

	if claims.Username == "" {
		return nil, errors.New("session token missing username")
	}

	return claims, nil
}

// SetCookie attaches a freshly issued session cookie to the response.
func SetCookie(w http.ResponseWriter, token string) {
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    token,
		Path:     "/",
		MaxAge:   int(Lifetime.Seconds()),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}

// UsernameFromRequest resolves the username carried by the request's session
// cookie. Returns ErrNoSession when the cookie is absent.
func UsernameFromRequest(r *http.Request, secretKey string) (string, error) {
	cookie, err := r.Cookie(CookieName)
	if err != nil {
		return "", ErrNoSession
	}

	claims, err := Parse(cookie.Value, secretKey)
	if err != nil {
		return "", err
	}

	return claims.Username, nil
}
