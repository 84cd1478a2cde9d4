package profiles

import (
	"context"
	"errors"
	"strings"
)

type Service struct {
	Repo Repo
}

func NewService(repo Repo) *Service {
	return &Service{Repo: repo}
}

// UpsertFromAuth persists the identity from OAuth so uploads have a stable owner.
func (s *Service) UpsertFromAuth(ctx context.Context, profile Profile) error {
	if s == nil || s.Repo == nil {
		return errors.New("profiles service not configured")
	}
	if strings.TrimSpace(profile.ID) == "" || strings.TrimSpace(profile.Email) == "" {
		return errors.New("profile id and email are required")
	}
	return s.Repo.Upsert(ctx, profile)
}

func (s *Service) GetByID(ctx context.Context, profileID string) (Profile, error) {
	if s == nil || s.Repo == nil {
		return Profile{}, errors.New("profiles service not configured")
	}
	if strings.TrimSpace(profileID) == "" {
		return Profile{}, errors.New("profile id is required")
	}
	return s.Repo.GetByID(ctx, profileID)
}

// IsAdmin reports whether the profile has the admin flag. Unknown profiles are not admins.
func (s *Service) IsAdmin(ctx context.Context, profileID string) (bool, error) {
	profile, err := s.GetByID(ctx, profileID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return false, nil
		}
		return false, err
	}
	return profile.IsAdmin, nil
}
