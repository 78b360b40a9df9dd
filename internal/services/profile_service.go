package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/anonto42/dongne-market/backend/internal/models"
	"github.com/anonto42/dongne-market/backend/internal/querycache"
	"github.com/anonto42/dongne-market/backend/internal/repositories"
	"github.com/anonto42/dongne-market/backend/pkg/storage"
)

type ProfileService struct {
	profiles repositories.ProfileRepository
	users    repositories.UserRepository
	objects  storage.ObjectStore
	cache    *querycache.Cache
}

func NewProfileService(profiles repositories.ProfileRepository, users repositories.UserRepository, objects storage.ObjectStore, cache *querycache.Cache) *ProfileService {
	return &ProfileService{profiles: profiles, users: users, objects: objects, cache: cache}
}

// Get returns the viewer's profile. A viewer who never saved one gets a blank
// profile carrying their account email.
func (s *ProfileService) Get(ctx context.Context, viewerID uint) (*models.Profile, error) {
	if viewerID == 0 {
		return nil, ErrAuthRequired
	}
	p, err := s.profiles.GetProfile(ctx, viewerID)
	if err == nil {
		return p, nil
	}
	if !errors.Is(err, repositories.ErrNotFound) {
		return nil, fmt.Errorf("load profile: %w", err)
	}
	user, err := s.users.GetUserByID(ctx, viewerID)
	if err != nil {
		return nil, lookupError("user", err)
	}
	return &models.Profile{ID: viewerID, Email: user.Email}, nil
}

// Update saves the viewer's profile, replacing the avatar when one is given
func (s *ProfileService) Update(ctx context.Context, viewerID uint, req models.UpdateProfileRequest, avatar *Upload) (*models.Profile, error) {
	p, err := s.Get(ctx, viewerID)
	if err != nil {
		return nil, err
	}

	p.Username = strings.TrimSpace(req.Username)
	p.Phone = strings.TrimSpace(req.Phone)
	p.Location = strings.TrimSpace(req.Location)

	if avatar != nil {
		key := fmt.Sprintf("%d%s", viewerID, avatar.ext())
		if err := s.objects.Upload(ctx, AvatarsBucket, key, avatar.Body, avatar.Size, avatar.ContentType, true); err != nil {
			return nil, fmt.Errorf("upload avatar: %w", err)
		}
		p.AvatarURL = s.objects.PublicURL(AvatarsBucket, key)
	}

	if err := s.profiles.UpsertProfile(ctx, p); err != nil {
		return nil, fmt.Errorf("save profile: %w", err)
	}
	// Comment pages embed author profiles
	invalidate(ctx, s.cache, allCommentsKey())
	return p, nil
}
