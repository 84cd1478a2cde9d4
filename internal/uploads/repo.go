package uploads

import (
	"context"
	"time"
)

// Repo persists uploads and enforces the review state machine.
type Repo interface {
	Create(ctx context.Context, upload Upload) error
	GetByID(ctx context.Context, uploadID string) (Upload, error)
	ListByUser(ctx context.Context, userID string, limit, offset int) ([]Upload, error)
	ListAll(ctx context.Context, limit, offset int) ([]AdminUpload, error)
	CountByStatus(ctx context.Context, userID string) (StatusCounts, error)

	// TransitionToProcessing atomically claims a pending upload. It returns
	// ErrAlreadyProcessing when the row exists but is not pending.
	TransitionToProcessing(ctx context.Context, uploadID string, startedAt time.Time) error
	MarkCompleted(ctx context.Context, uploadID string, originalText string, feedback Feedback, completedAt time.Time) error
	MarkFailed(ctx context.Context, uploadID string, errorCode string, errorMessage string, completedAt time.Time) error

	// FailStaleProcessing fails processing rows whose lease started before
	// cutoff and returns how many rows were swept.
	FailStaleProcessing(ctx context.Context, cutoff time.Time, errorCode string, errorMessage string) (int64, error)
}
