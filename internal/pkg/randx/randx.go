/*
Package randx generates the identifiers used across the broker: connection
IDs for live sockets and object keys for uploaded files.
*/
package randx

import (
	"fmt"
	"path"
	"strings"

	"github.com/google/uuid"
)

// ConnectionID returns the unique identifier assigned to a live connection
// at admission. IDs are never reused; a reconnecting client gets a new one.
func ConnectionID() string {
	return uuid.New().String()
}

// FileKey builds an object storage key under the given prefix, preserving
// the lowercase extension of the original file name.
func FileKey(prefix, fileName string) string {
	ext := strings.ToLower(path.Ext(fileName))
	return fmt.Sprintf("%s/%s%s", prefix, uuid.New().String(), ext)
}
