/*
Package req contains request parsing helpers for the HTTP API. JSON binding
is strict: unknown fields and trailing content are rejected at the boundary.
*/
package req

import (
	"encoding/json"
	"net/http"
	"strings"

	"pingchat/internal/pkg/errs"
)

// MaxJSONBodySize caps the request body for JSON endpoints. Avatar payloads
// are object keys, not inline binaries, so 1 MB is generous.
const MaxJSONBodySize int64 = 1 << 20

// BindJSON decodes the request body into dst, enforcing the JSON content
// type, the body size limit, and a closed field set.
func BindJSON(w http.ResponseWriter, r *http.Request, dst any) *errs.CustomError {
	contentType := r.Header.Get("Content-Type")
	if !strings.HasPrefix(contentType, "application/json") {
		return errs.NewError(errs.ErrUnsupportedMediaType)
	}

	r.Body = http.MaxBytesReader(w, r.Body, MaxJSONBodySize)

	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()

	if err := decoder.Decode(dst); err != nil {
		if strings.Contains(err.Error(), "request body too large") {
			return errs.NewError(errs.ErrRequestEntityTooLarge)
		}
		return errs.NewError(errs.ErrInvalidJSONFormat)
	}

	if decoder.More() {
		return errs.NewError(errs.ErrExtraContentInBody)
	}

	return nil
}
