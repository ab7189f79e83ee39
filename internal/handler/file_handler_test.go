package handler

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"pingchat/internal/pkg/errs"
)

// stubStorage fakes the object storage backend for handler tests. It signs
// canned URLs, serves configurable metadata, and records deletions.
type stubStorage struct {
	metadata    map[string]string
	metadataErr error
	deleted     []string
}

func (s *stubStorage) PresignUpload(_ context.Context, key, _ string, _ int64, _ time.Duration) (string, error) {
	return "https://storage.test/upload/" + key, nil
}

func (s *stubStorage) PresignDownload(_ context.Context, key string, _ time.Duration) (string, error) {
	return "https://storage.test/download/" + key, nil
}

func (s *stubStorage) Delete(_ context.Context, key string) error {
	s.deleted = append(s.deleted, key)
	return nil
}

func (s *stubStorage) ObjectMetadata(_ context.Context, _ string) (map[string]string, error) {
	if s.metadataErr != nil {
		return nil, s.metadataErr
	}
	return s.metadata, nil
}

func TestPresignAvatarReturnsPrefixedKey(t *testing.T) {
	t.Parallel()

	stub := &stubStorage{}
	srv, mem, _ := newTestServerWithStorage(t, stub)
	createAccount(t, mem, "alice", "secret-pass")

	status, envelope := doJSON(t, http.MethodPost, srv.URL+"/api/avatar/presign", PresignUploadInput{
		FileName: "me.png",
		MimeType: "image/png",
		FileSize: 1024,
	}, sessionCookie(t, "alice"))

	require.Equal(t, http.StatusOK, status)
	require.Equal(t, 0, envelope.Code)

	var data struct {
		PresignedURL string `json:"presignedUrl"`
		FileKey      string `json:"fileKey"`
	}
	dataAs(t, envelope, &data)
	require.True(t, strings.HasPrefix(data.FileKey, "avatars/"))
	require.True(t, strings.HasSuffix(data.FileKey, ".png"))
	require.Contains(t, data.PresignedURL, data.FileKey)
}

func TestPresignRejectsDisallowedType(t *testing.T) {
	t.Parallel()

	stub := &stubStorage{}
	srv, mem, _ := newTestServerWithStorage(t, stub)
	createAccount(t, mem, "alice", "secret-pass")

	status, envelope := doJSON(t, http.MethodPost, srv.URL+"/api/image/presign", PresignUploadInput{
		FileName: "payload.exe",
		MimeType: "application/octet-stream",
		FileSize: 1024,
	}, sessionCookie(t, "alice"))

	require.Equal(t, http.StatusBadRequest, status)
	require.Equal(t, errs.ErrFileTypeInvalid, envelope.Code)
}

func TestUpdateAvatarReplacesAndDeletesOld(t *testing.T) {
	t.Parallel()

	stub := &stubStorage{metadata: map[string]string{"Content-Type": "image/png"}}
	srv, mem, _ := newTestServerWithStorage(t, stub)
	createAccount(t, mem, "alice", "secret-pass")

	_, err := mem.UpdateAvatar(t.Context(), "alice", "avatars/old.png")
	require.NoError(t, err)

	status, envelope := doJSON(t, http.MethodPost, srv.URL+"/api/avatar", UpdateAvatarInput{
		FileKey: "avatars/new.png",
	}, sessionCookie(t, "alice"))

	require.Equal(t, http.StatusOK, status)
	require.Equal(t, 0, envelope.Code)

	account, err := mem.UserByUsername(t.Context(), "alice")
	require.NoError(t, err)
	require.Equal(t, "avatars/new.png", account.Avatar)

	require.Equal(t, []string{"avatars/old.png"}, stub.deleted, "the replaced object is removed")
}

func TestUpdateAvatarKeepsForeignPreviousReference(t *testing.T) {
	t.Parallel()

	stub := &stubStorage{metadata: map[string]string{"Content-Type": "image/png"}}
	srv, mem, _ := newTestServerWithStorage(t, stub)

	// the registration-time avatar is an opaque reference, not an object key
	createAccount(t, mem, "alice", "secret-pass")

	status, _ := doJSON(t, http.MethodPost, srv.URL+"/api/avatar", UpdateAvatarInput{
		FileKey: "avatars/new.png",
	}, sessionCookie(t, "alice"))

	require.Equal(t, http.StatusOK, status)
	require.Empty(t, stub.deleted, "only owned avatar objects are deleted")
}

func TestUpdateAvatarRejectsBadKeys(t *testing.T) {
	t.Parallel()

	stub := &stubStorage{metadata: map[string]string{"Content-Type": "image/png"}}
	srv, mem, _ := newTestServerWithStorage(t, stub)
	createAccount(t, mem, "alice", "secret-pass")

	for _, key := range []string{"", "images/sneaky.png", "avatars/../secrets.txt"} {
		status, envelope := doJSON(t, http.MethodPost, srv.URL+"/api/avatar", UpdateAvatarInput{
			FileKey: key,
		}, sessionCookie(t, "alice"))

		require.Equal(t, http.StatusBadRequest, status)
		require.Equal(t, errs.ErrInvalidParams, envelope.Code)
	}
}

func TestUpdateAvatarRequiresVerifiedUpload(t *testing.T) {
	t.Parallel()

	stub := &stubStorage{metadataErr: errors.New("file not found")}
	srv, mem, _ := newTestServerWithStorage(t, stub)
	createAccount(t, mem, "alice", "secret-pass")

	status, envelope := doJSON(t, http.MethodPost, srv.URL+"/api/avatar", UpdateAvatarInput{
		FileKey: "avatars/ghost.png",
	}, sessionCookie(t, "alice"))

	require.Equal(t, http.StatusInternalServerError, status)
	require.Equal(t, errs.ErrFileStorageFailed, envelope.Code)

	account, err := mem.UserByUsername(t.Context(), "alice")
	require.NoError(t, err)
	require.NotEqual(t, "avatars/ghost.png", account.Avatar, "profile unchanged")
}

func TestUpdateAvatarRejectsNonImageObject(t *testing.T) {
	t.Parallel()

	stub := &stubStorage{metadata: map[string]string{"Content-Type": "text/html"}}
	srv, mem, _ := newTestServerWithStorage(t, stub)
	createAccount(t, mem, "alice", "secret-pass")

	status, envelope := doJSON(t, http.MethodPost, srv.URL+"/api/avatar", UpdateAvatarInput{
		FileKey: "avatars/page.html",
	}, sessionCookie(t, "alice"))

	require.Equal(t, http.StatusBadRequest, status)
	require.Equal(t, errs.ErrFileTypeInvalid, envelope.Code)
}
