package service

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/atinyakov/globify/internal/models"
	"github.com/segmentio/ksuid"
	"go.uber.org/zap"
)

// MaxBioLength caps the profile bio in characters.
const MaxBioLength = 1000

var avatarTypes = map[string]string{
	"jpg":  "image/jpeg",
	"jpeg": "image/jpeg",
	"png":  "image/png",
	"webp": "image/webp",
}

// ProfileRepository persists profile fields.
type ProfileRepository interface {
	// UpdateProfile sets bio and, when avatarURL is non-nil, the avatar. It
	// returns the avatar URL that was stored before.
	UpdateProfile(ctx context.Context, id int64, bio string, avatarURL *string) (string, error)
}

// AvatarStore keeps avatar images.
type AvatarStore interface {
	Save(ctx context.Context, name string, r io.Reader, contentType string) (string, error)
	Delete(ctx context.Context, url string) error
}

// Upload is an avatar file received from a form.
type Upload struct {
	Filename string
	Reader   io.Reader
}

// ProfileService updates bios and avatars.
type ProfileService struct {
	repo  ProfileRepository
	store AvatarStore
	log   *zap.Logger
}

// NewProfileService constructs a ProfileService.
func NewProfileService(repo ProfileRepository, store AvatarStore, log *zap.Logger) *ProfileService {
	return &ProfileService{repo: repo, store: store, log: log}
}

// AvatarExtension returns the lower-cased extension of filename and whether
// it is an accepted image type.
func AvatarExtension(filename string) (string, bool) {
	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(filename), "."))
	_, ok := avatarTypes[ext]
	return ext, ok
}

// UpdateProfile sets the user's bio and, if upload is non-nil, replaces the
// avatar. A rejected upload changes nothing.
func (s *ProfileService) UpdateProfile(ctx context.Context, user *models.User, bio string, upload *Upload) error {
	if user == nil {
		return models.ErrUnauthenticated
	}

	bio = strings.TrimSpace(bio)
	if utf8.RuneCountInString(bio) > MaxBioLength {
		return fmt.Errorf("%w: bio must be at most %d characters", models.ErrInvalidInput, MaxBioLength)
	}

	var avatarURL *string
	if upload != nil {
		ext, ok := AvatarExtension(upload.Filename)
		if !ok {
			return fmt.Errorf("%w: %q is not an accepted image type", models.ErrInvalidUpload, upload.Filename)
		}

		name := fmt.Sprintf("avatar_%d_%s.%s", user.ID, ksuid.New().String(), ext)
		url, err := s.store.Save(ctx, name, upload.Reader, avatarTypes[ext])
		if err != nil {
			return fmt.Errorf("store avatar: %w", err)
		}
		avatarURL = &url
	}

	previous, err := s.repo.UpdateProfile(ctx, user.ID, bio, avatarURL)
	if err != nil {
		if avatarURL != nil {
			if derr := s.store.Delete(ctx, *avatarURL); derr != nil {
				s.log.Warn("failed to remove orphaned avatar", zap.String("url", *avatarURL), zap.Error(derr))
			}
		}
		return err
	}

	if avatarURL != nil && previous != "" && previous != *avatarURL {
		if err := s.store.Delete(ctx, previous); err != nil {
			s.log.Warn("failed to remove previous avatar", zap.String("url", previous), zap.Error(err))
		}
	}
	return nil
}
