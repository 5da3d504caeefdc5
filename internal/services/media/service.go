package media

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"
	"time"

	"github.com/avoronkov/flare/internal/domain/model"
	pgrepo "github.com/avoronkov/flare/internal/repo/postgres"
	authsvc "github.com/avoronkov/flare/internal/services/auth"
)

var (
	ErrValidation        = errors.New("validation error")
	ErrForbidden         = errors.New("media belongs to another user")
	ErrPhotoLimitReached = errors.New("photo limit reached")
)

const (
	signedURLTTL     = 5 * time.Minute
	maxProfilePhotos = 6
)

type ProfileStore interface {
	Get(ctx context.Context, userID string) (model.User, error)
	Update(ctx context.Context, userID string, upd pgrepo.ProfileUpdate) (model.User, error)
}

type ObjectStorage interface {
	EnsureBucket(ctx context.Context) error
	Put(ctx context.Context, key string, body io.Reader, size int64, contentType string) error
	PresignGet(ctx context.Context, key string, ttl time.Duration) (string, error)
	Delete(ctx context.Context, key string) error
}

type Service struct {
	profiles ProfileStore
	storage  ObjectStorage
	now      func() time.Time
}

func NewService(profiles ProfileStore, storage ObjectStorage) *Service {
	return &Service{
		profiles: profiles,
		storage:  storage,
		now:      time.Now,
	}
}

// UploadProfilePhoto stores the image and appends its object key to the
// caller's photo list. The profile carries keys, not URLs; viewers get a
// short-lived signed URL from SignedURL.
func (s *Service) UploadProfilePhoto(ctx context.Context, userID, fileName, contentType string, body io.Reader, size int64) (model.User, error) {
	if userID == "" || body == nil || size <= 0 {
		return model.User{}, ErrValidation
	}
	if s.profiles == nil || s.storage == nil {
		return model.User{}, fmt.Errorf("media dependencies are not configured")
	}
	if authsvc.CurrentUserID(ctx) != userID {
		return model.User{}, ErrForbidden
	}

	user, err := s.profiles.Get(ctx, userID)
	if err != nil {
		return model.User{}, err
	}
	if len(user.PhotoURLs) >= maxProfilePhotos {
		return model.User{}, ErrPhotoLimitReached
	}

	if err := s.storage.EnsureBucket(ctx); err != nil {
		return model.User{}, fmt.Errorf("ensure bucket: %w", err)
	}

	objectKey, err := buildObjectKey("users/"+userID+"/photos", fileName, s.now())
	if err != nil {
		return model.User{}, fmt.Errorf("build object key: %w", err)
	}

	if strings.TrimSpace(contentType) == "" {
		contentType = "application/octet-stream"
	}

	if err := s.storage.Put(ctx, objectKey, body, size, contentType); err != nil {
		return model.User{}, fmt.Errorf("put object: %w", err)
	}

	photos := append(append([]string{}, user.PhotoURLs...), objectKey)
	updated, err := s.profiles.Update(ctx, userID, pgrepo.ProfileUpdate{PhotoURLs: photos})
	if err != nil {
		_ = s.storage.Delete(ctx, objectKey)
		return model.User{}, fmt.Errorf("attach photo to profile: %w", err)
	}

	return updated, nil
}

// RemoveProfilePhoto detaches the key from the caller's profile and deletes
// the object.
func (s *Service) RemoveProfilePhoto(ctx context.Context, userID, objectKey string) (model.User, error) {
	if userID == "" || objectKey == "" {
		return model.User{}, ErrValidation
	}
	if s.profiles == nil || s.storage == nil {
		return model.User{}, fmt.Errorf("media dependencies are not configured")
	}
	if authsvc.CurrentUserID(ctx) != userID {
		return model.User{}, ErrForbidden
	}

	user, err := s.profiles.Get(ctx, userID)
	if err != nil {
		return model.User{}, err
	}

	photos := make([]string, 0, len(user.PhotoURLs))
	found := false
	for _, key := range user.PhotoURLs {
		if key == objectKey {
			found = true
			continue
		}
		photos = append(photos, key)
	}
	if !found {
		return model.User{}, ErrValidation
	}

	updated, err := s.profiles.Update(ctx, userID, pgrepo.ProfileUpdate{PhotoURLs: photos})
	if err != nil {
		return model.User{}, fmt.Errorf("detach photo from profile: %w", err)
	}

	_ = s.storage.Delete(ctx, objectKey)
	return updated, nil
}

// UploadChatImage stores an image for a conversation and returns its object
// key, which the sender then embeds in an IMAGE message.
func (s *Service) UploadChatImage(ctx context.Context, userID, matchID, fileName, contentType string, body io.Reader, size int64) (string, error) {
	if userID == "" || matchID == "" || body == nil || size <= 0 {
		return "", ErrValidation
	}
	if s.storage == nil {
		return "", fmt.Errorf("media dependencies are not configured")
	}
	if authsvc.CurrentUserID(ctx) != userID {
		return "", ErrForbidden
	}

	if err := s.storage.EnsureBucket(ctx); err != nil {
		return "", fmt.Errorf("ensure bucket: %w", err)
	}

	objectKey, err := buildObjectKey("matches/"+matchID+"/images", fileName, s.now())
	if err != nil {
		return "", fmt.Errorf("build object key: %w", err)
	}

	if strings.TrimSpace(contentType) == "" {
		contentType = "application/octet-stream"
	}

	if err := s.storage.Put(ctx, objectKey, body, size, contentType); err != nil {
		return "", fmt.Errorf("put object: %w", err)
	}

	return objectKey, nil
}

// SignedURL exchanges an object key for a short-lived download URL.
func (s *Service) SignedURL(ctx context.Context, objectKey string) (string, error) {
	if objectKey == "" {
		return "", ErrValidation
	}
	if s.storage == nil {
		return "", fmt.Errorf("media dependencies are not configured")
	}
	return s.storage.PresignGet(ctx, objectKey, signedURLTTL)
}

func buildObjectKey(prefix, fileName string, now time.Time) (string, error) {
	rnd := make([]byte, 8)
	if _, err := rand.Read(rnd); err != nil {
		return "", err
	}

	ext := strings.ToLower(path.Ext(strings.TrimSpace(fileName)))
	if ext == "" {
		ext = ".bin"
	}

	stamp := now.UTC().Format("20060102T150405")
	return fmt.Sprintf("%s/%s_%s%s", prefix, stamp, hex.EncodeToString(rnd), ext), nil
}

func MaxProfilePhotos() int {
	return maxProfilePhotos
}
