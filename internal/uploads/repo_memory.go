package uploads

import (
	"context"
	"sort"
	"sync"
	"time"
)

// MemoryRepo is an in-memory Repo for dev mode and tests.
type MemoryRepo struct {
	mu      sync.RWMutex
	uploads map[string]Upload
	owners  map[string]OwnerProfile
}

func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{
		uploads: make(map[string]Upload),
		owners:  make(map[string]OwnerProfile),
	}
}

// SetOwner registers an owner profile used by ListAll joins.
func (r *MemoryRepo) SetOwner(userID string, owner OwnerProfile) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.owners[userID] = owner
}

func (r *MemoryRepo) Create(ctx context.Context, upload Upload) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	now := time.Now().UTC()
	if upload.CreatedAt.IsZero() {
		upload.CreatedAt = now
	}
	upload.UpdatedAt = now
	r.uploads[upload.ID] = upload
	return nil
}

func (r *MemoryRepo) GetByID(ctx context.Context, uploadID string) (Upload, error) {
	if err := ctx.Err(); err != nil {
		return Upload{}, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	upload, ok := r.uploads[uploadID]
	if !ok {
		return Upload{}, ErrNotFound
	}
	return upload, nil
}

func (r *MemoryRepo) ListByUser(ctx context.Context, userID string, limit, offset int) ([]Upload, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	limit, offset = clampPage(limit, offset)
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []Upload
	for _, u := range r.uploads {
		if u.UserID == userID {
			out = append(out, u)
		}
	}
	sortNewestFirst(out)
	return page(out, limit, offset), nil
}

func (r *MemoryRepo) ListAll(ctx context.Context, limit, offset int) ([]AdminUpload, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	limit, offset = clampPage(limit, offset)
	r.mu.RLock()
	defer r.mu.RUnlock()

	var all []Upload
	for _, u := range r.uploads {
		all = append(all, u)
	}
	sortNewestFirst(all)
	all = page(all, limit, offset)

	out := make([]AdminUpload, 0, len(all))
	for _, u := range all {
		item := AdminUpload{Upload: u}
		if owner, ok := r.owners[u.UserID]; ok {
			ownerCopy := owner
			item.Owner = &ownerCopy
		}
		out = append(out, item)
	}
	return out, nil
}

func (r *MemoryRepo) CountByStatus(ctx context.Context, userID string) (StatusCounts, error) {
	if err := ctx.Err(); err != nil {
		return StatusCounts{}, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()

	var counts StatusCounts
	for _, u := range r.uploads {
		if u.UserID != userID {
			continue
		}
		counts.Total++
		switch u.Status {
		case StatusPending:
			counts.Pending++
		case StatusProcessing:
			counts.Processing++
		case StatusCompleted:
			counts.Completed++
		case StatusFailed:
			counts.Failed++
		}
	}
	return counts, nil
}

func (r *MemoryRepo) TransitionToProcessing(ctx context.Context, uploadID string, startedAt time.Time) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	upload, ok := r.uploads[uploadID]
	if !ok {
		return ErrNotFound
	}
	if upload.Status != StatusPending {
		return ErrAlreadyProcessing
	}
	upload.Status = StatusProcessing
	upload.StartedAt = &startedAt
	upload.UpdatedAt = time.Now().UTC()
	r.uploads[uploadID] = upload
	return nil
}

func (r *MemoryRepo) MarkCompleted(ctx context.Context, uploadID string, originalText string, feedback Feedback, completedAt time.Time) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	upload, ok := r.uploads[uploadID]
	if !ok {
		return ErrNotFound
	}
	upload.Status = StatusCompleted
	upload.OriginalText = originalText
	fb := feedback
	upload.Feedback = &fb
	upload.ErrorCode = ""
	upload.ErrorMessage = ""
	upload.CompletedAt = &completedAt
	upload.UpdatedAt = time.Now().UTC()
	r.uploads[uploadID] = upload
	return nil
}

func (r *MemoryRepo) MarkFailed(ctx context.Context, uploadID string, errorCode string, errorMessage string, completedAt time.Time) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	upload, ok := r.uploads[uploadID]
	if !ok {
		return ErrNotFound
	}
	upload.Status = StatusFailed
	upload.Feedback = nil
	upload.ErrorCode = errorCode
	upload.ErrorMessage = errorMessage
	upload.CompletedAt = &completedAt
	upload.UpdatedAt = time.Now().UTC()
	r.uploads[uploadID] = upload
	return nil
}

func (r *MemoryRepo) FailStaleProcessing(ctx context.Context, cutoff time.Time, errorCode string, errorMessage string) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	var swept int64
	now := time.Now().UTC()
	for id, u := range r.uploads {
		if u.Status != StatusProcessing {
			continue
		}
		if u.StartedAt == nil || u.StartedAt.After(cutoff) {
			continue
		}
		u.Status = StatusFailed
		u.Feedback = nil
		u.ErrorCode = errorCode
		u.ErrorMessage = errorMessage
		u.CompletedAt = &now
		u.UpdatedAt = now
		r.uploads[id] = u
		swept++
	}
	return swept, nil
}

func sortNewestFirst(list []Upload) {
	sort.Slice(list, func(i, j int) bool {
		if list[i].CreatedAt.Equal(list[j].CreatedAt) {
			return list[i].ID > list[j].ID
		}
		return list[i].CreatedAt.After(list[j].CreatedAt)
	})
}

func clampPage(limit, offset int) (int, int) {
	if limit <= 0 {
		limit = 20
	}
	if limit > 100 {
		limit = 100
	}
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}

func page(list []Upload, limit, offset int) []Upload {
	if offset >= len(list) {
		return nil
	}
	end := offset + limit
	if end > len(list) {
		end = len(list)
	}
	return list[offset:end]
}

var _ Repo = (*MemoryRepo)(nil)
