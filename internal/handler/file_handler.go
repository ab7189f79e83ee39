package handler

import (
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"pingchat/internal/pkg/errs"
	"pingchat/internal/pkg/logx"
	"pingchat/internal/pkg/randx"
	"pingchat/internal/pkg/req"
	"pingchat/internal/pkg/resp"
)

const (
	// MaxUploadSize caps a single avatar or image upload (5 MB).
	MaxUploadSize = 5 * 1024 * 1024

	// PresignedURLDuration is how long a presigned URL stays valid.
	PresignedURLDuration = 5 * time.Minute
)

// allowedMIMETypes is the set of permitted upload types.
var allowedMIMETypes = map[string]struct{}{
	"image/jpeg": {},
	"image/png":  {},
	"image/webp": {},
	"image/gif":  {},
}

// extToMIME maps file extensions to the MIME type they must declare.
var extToMIME = map[string]string{
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".png":  "image/png",
	".webp": "image/webp",
	".gif":  "image/gif",
}

// validateUpload checks declared size and file type before a URL is signed.
func validateUpload(fileName, mimeType string, fileSize int64) *errs.CustomError {
	if fileSize <= 0 {
		return errs.NewError(errs.ErrInvalidParams)
	}
	if fileSize > MaxUploadSize {
		return errs.NewError(errs.ErrFileSizeTooLarge)
	}

	lowerMimeType := strings.ToLower(mimeType)
	if _, ok := allowedMIMETypes[lowerMimeType]; !ok {
		return errs.NewError(errs.ErrFileTypeInvalid)
	}

	ext := strings.ToLower(filepath.Ext(fileName))
	expectedMIME, ok := extToMIME[ext]
	if !ok || expectedMIME != lowerMimeType {
		return errs.NewError(errs.ErrFileTypeInvalid)
	}

	return nil
}

// PresignUploadInput is the request body for both presign endpoints.
type PresignUploadInput struct {
	FileName string `json:"file_name"`
	MimeType string `json:"mime_type"`
	FileSize int64  `json:"file_size"`
}

// handlePresign signs an upload URL under the given key prefix.
func handlePresign(deps *AppDeps, keyPrefix string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if _, ok := currentUsername(w, r, deps); !ok {
			return
		}

		var input PresignUploadInput
		if customErr := req.BindJSON(w, r, &input); customErr != nil {
			resp.RespondError(w, r, customErr)
			return
		}

		if customErr := validateUpload(input.FileName, input.MimeType, input.FileSize); customErr != nil {
			resp.RespondError(w, r, customErr)
			return
		}

		fileKey := randx.FileKey(keyPrefix, input.FileName)

		url, err := deps.StorageService.PresignUpload(
			r.Context(),
			fileKey,
			input.MimeType,
			input.FileSize,
			PresignedURLDuration,
		)

		if err != nil {
			resp.RespondError(w, r, errs.NewError(errs.ErrFileStorageFailed))
			return
		}

		resp.RespondSuccess(w, r, map[string]any{
			"presignedUrl": url,
			"fileKey":      fileKey,
			"fileName":     input.FileName,
		})
	}
}

// HandlePresignAvatar signs an upload URL for a profile avatar.
func HandlePresignAvatar(deps *AppDeps) http.HandlerFunc {
	return handlePresign(deps, "avatars")
}

// HandlePresignImage signs an upload URL for a message image. The returned
// key is what the client sends in the "private image" event.
func HandlePresignImage(deps *AppDeps) http.HandlerFunc {
	return handlePresign(deps, "images")
}

// UpdateAvatarInput is the request body for the avatar update endpoint. The
// file key comes from a completed presigned upload.
type UpdateAvatarInput struct {
	FileKey string `json:"file_key"`
}

// HandleUpdateAvatar points the session user's profile at a freshly uploaded
// avatar object. The upload is verified against object storage before the
// profile changes, and the previous avatar object is removed afterwards.
func HandleUpdateAvatar(deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		viewer, ok := currentUsername(w, r, deps)
		if !ok {
			return
		}

		var input UpdateAvatarInput
		if customErr := req.BindJSON(w, r, &input); customErr != nil {
			resp.RespondError(w, r, customErr)
			return
		}

		if !strings.HasPrefix(input.FileKey, "avatars/") || strings.Contains(input.FileKey, "..") {
			resp.RespondError(w, r, errs.NewError(errs.ErrInvalidParams))
			return
		}

		metadata, err := deps.StorageService.ObjectMetadata(r.Context(), input.FileKey)
		if err != nil {
			logx.Warn("avatar update: uploaded object not verifiable", "key", input.FileKey, "error", err)
			resp.RespondError(w, r, errs.NewError(errs.ErrFileStorageFailed))
			return
		}

		if _, ok := allowedMIMETypes[strings.ToLower(metadata["Content-Type"])]; !ok {
			resp.RespondError(w, r, errs.NewError(errs.ErrFileTypeInvalid))
			return
		}

		account, err := deps.Store.UserByUsername(r.Context(), viewer)
		if err != nil {
			resp.RespondError(w, r, errs.NewError(errs.ErrPersistenceFailure))
			return
		}
		previous := account.Avatar

		updated, err := deps.Store.UpdateAvatar(r.Context(), viewer, input.FileKey)
		if err != nil {
			logx.Error(err, "avatar update failed", "username", viewer)
			resp.RespondError(w, r, errs.NewError(errs.ErrPersistenceFailure))
			return
		}

		// Remove the replaced object. Best-effort: an orphaned object is a
		// storage leak, not a correctness problem.
		if previous != "" && previous != input.FileKey && strings.HasPrefix(previous, "avatars/") {
			if err := deps.StorageService.Delete(r.Context(), previous); err != nil {
				logx.Warn("avatar update: failed to delete previous object", "key", previous, "error", err)
			}
		}

		// Presence snapshots carry the avatar, so refresh the viewers.
		deps.Broker.PushPresence(r.Context())

		resp.RespondSuccess(w, r, map[string]any{
			"username": updated.Username,
			"avatar":   updated.Avatar,
		})
	}
}

// HandlePresignDownload signs a download URL for a stored object key.
func HandlePresignDownload(deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if _, ok := currentUsername(w, r, deps); !ok {
			return
		}

		key := r.URL.Query().Get("key")
		if key == "" || strings.Contains(key, "..") {
			resp.RespondError(w, r, errs.NewError(errs.ErrInvalidParams))
			return
		}

		url, err := deps.StorageService.PresignDownload(r.Context(), key, PresignedURLDuration)
		if err != nil {
			resp.RespondError(w, r, errs.NewError(errs.ErrFileStorageFailed))
			return
		}

		resp.RespondSuccess(w, r, map[string]any{
			"presignedUrl": url,
		})
	}
}
