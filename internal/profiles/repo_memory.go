package profiles

import (
	"context"
	"sync"
	"time"
)

type MemoryRepo struct {
	mu       sync.RWMutex
	profiles map[string]Profile
}

func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{profiles: make(map[string]Profile)}
}

func (r *MemoryRepo) Upsert(ctx context.Context, profile Profile) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	existing, ok := r.profiles[profile.ID]
	now := time.Now().UTC()
	if !ok {
		profile.CreatedAt = now
	} else {
		profile.CreatedAt = existing.CreatedAt
		profile.IsAdmin = existing.IsAdmin
	}
	profile.UpdatedAt = now
	r.profiles[profile.ID] = profile
	return nil
}

func (r *MemoryRepo) GetByID(ctx context.Context, profileID string) (Profile, error) {
	if err := ctx.Err(); err != nil {
		return Profile{}, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	profile, ok := r.profiles[profileID]
	if !ok {
		return Profile{}, ErrNotFound
	}
	return profile, nil
}

// SetAdmin flips the admin flag, for tests and local setups.
func (r *MemoryRepo) SetAdmin(profileID string, isAdmin bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if profile, ok := r.profiles[profileID]; ok {
		profile.IsAdmin = isAdmin
		r.profiles[profileID] = profile
	}
}

var _ Repo = (*MemoryRepo)(nil)
