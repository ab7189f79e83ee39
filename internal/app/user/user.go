/*
Package user defines the identity of a chat participant as the rest of the
application sees it. Account records (password hash, creation time) belong to
the persistence layer; this package only carries what is shown to other users.
*/
package user

// User is the public identity of a participant. The username is unique and
// immutable once registered; the avatar is an opaque reference (an object key
// or a data URL) captured at registration and snapshotted onto every message
// the user sends.
type User struct {
	Username string `json:"username"`
	Avatar   string `json:"avatar,omitempty"`
}
