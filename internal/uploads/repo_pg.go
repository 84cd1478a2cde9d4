package uploads

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"
)

// PGRepo implements Repo using Postgres.
type PGRepo struct {
	DB *sql.DB
}

const uploadColumns = `id, user_id, file_name, file_path, original_text, feedback, status,
       error_code, error_message, started_at, completed_at, created_at, updated_at`

// Create inserts a new upload row.
func (r *PGRepo) Create(ctx context.Context, upload Upload) error {
	const query = `
INSERT INTO cv_uploads (
	id, user_id, file_name, file_path, original_text, feedback, status,
	error_code, error_message, started_at, completed_at, created_at, updated_at
)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $12)`
	var feedbackPayload any
	if upload.Feedback != nil {
		data, err := json.Marshal(upload.Feedback)
		if err != nil {
			return err
		}
		feedbackPayload = data
	}
	createdAt := upload.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}
	_, err := r.DB.ExecContext(ctx, query,
		upload.ID,
		upload.UserID,
		upload.FileName,
		upload.FilePath,
		upload.OriginalText,
		feedbackPayload,
		upload.Status,
		nullableString(upload.ErrorCode),
		nullableString(upload.ErrorMessage),
		upload.StartedAt,
		upload.CompletedAt,
		createdAt,
	)
	return err
}

// GetByID returns an upload by ID.
func (r *PGRepo) GetByID(ctx context.Context, uploadID string) (Upload, error) {
	const query = `
SELECT ` + uploadColumns + `
FROM cv_uploads
WHERE id = $1
LIMIT 1`
	row := r.DB.QueryRowContext(ctx, query, uploadID)
	upload, err := scanUpload(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Upload{}, ErrNotFound
		}
		return Upload{}, err
	}
	return upload, nil
}

// ListByUser lists a user's uploads newest-first.
func (r *PGRepo) ListByUser(ctx context.Context, userID string, limit, offset int) ([]Upload, error) {
	limit, offset = clampPage(limit, offset)

	const query = `
SELECT ` + uploadColumns + `
FROM cv_uploads
WHERE user_id = $1
ORDER BY created_at DESC
LIMIT $2 OFFSET $3`

	rows, err := r.DB.QueryContext(ctx, query, userID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Upload
	for rows.Next() {
		upload, err := scanUpload(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, upload)
	}
	return out, rows.Err()
}

// ListAll lists every upload with the owning profile joined in. The profile
// columns come back NULL for anonymous uploads.
func (r *PGRepo) ListAll(ctx context.Context, limit, offset int) ([]AdminUpload, error) {
	limit, offset = clampPage(limit, offset)

	const query = `
SELECT u.id, u.user_id, u.file_name, u.file_path, u.original_text, u.feedback, u.status,
       u.error_code, u.error_message, u.started_at, u.completed_at, u.created_at, u.updated_at,
       p.email, p.full_name
FROM cv_uploads u
LEFT JOIN profiles p ON p.id = u.user_id
ORDER BY u.created_at DESC
LIMIT $1 OFFSET $2`

	rows, err := r.DB.QueryContext(ctx, query, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []AdminUpload
	for rows.Next() {
		var u Upload
		var feedback sql.NullString
		var errorCode sql.NullString
		var errorMessage sql.NullString
		var startedAt sql.NullTime
		var completedAt sql.NullTime
		var ownerEmail sql.NullString
		var ownerName sql.NullString
		if err := rows.Scan(
			&u.ID,
			&u.UserID,
			&u.FileName,
			&u.FilePath,
			&u.OriginalText,
			&feedback,
			&u.Status,
			&errorCode,
			&errorMessage,
			&startedAt,
			&completedAt,
			&u.CreatedAt,
			&u.UpdatedAt,
			&ownerEmail,
			&ownerName,
		); err != nil {
			return nil, err
		}
		applyNullableFields(&u, feedback, errorCode, errorMessage, startedAt, completedAt)

		item := AdminUpload{Upload: u}
		if ownerEmail.Valid {
			item.Owner = &OwnerProfile{Email: ownerEmail.String}
			if ownerName.Valid {
				item.Owner.FullName = ownerName.String
			}
		}
		out = append(out, item)
	}
	return out, rows.Err()
}

// CountByStatus aggregates a user's uploads per status.
func (r *PGRepo) CountByStatus(ctx context.Context, userID string) (StatusCounts, error) {
	const query = `
SELECT status, COUNT(*)
FROM cv_uploads
WHERE user_id = $1
GROUP BY status`

	rows, err := r.DB.QueryContext(ctx, query, userID)
	if err != nil {
		return StatusCounts{}, err
	}
	defer rows.Close()

	var counts StatusCounts
	for rows.Next() {
		var status string
		var n int
		if err := rows.Scan(&status, &n); err != nil {
			return StatusCounts{}, err
		}
		counts.Total += n
		switch status {
		case StatusPending:
			counts.Pending = n
		case StatusProcessing:
			counts.Processing = n
		case StatusCompleted:
			counts.Completed = n
		case StatusFailed:
			counts.Failed = n
		}
	}
	return counts, rows.Err()
}

// TransitionToProcessing claims a pending upload with a conditional update so
// two concurrent review requests cannot both win.
func (r *PGRepo) TransitionToProcessing(ctx context.Context, uploadID string, startedAt time.Time) error {
	const query = `
UPDATE cv_uploads
SET status = 'processing',
    started_at = $2,
    updated_at = now()
WHERE id = $1 AND status = 'pending'`

	res, err := r.DB.ExecContext(ctx, query, uploadID, startedAt)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n > 0 {
		return nil
	}

	var exists bool
	if err := r.DB.QueryRowContext(ctx, `SELECT EXISTS (SELECT 1 FROM cv_uploads WHERE id = $1)`, uploadID).Scan(&exists); err != nil {
		return err
	}
	if !exists {
		return ErrNotFound
	}
	return ErrAlreadyProcessing
}

// MarkCompleted stores the review result. Feedback is only ever written on
// this path, so completed is the only status carrying a payload.
func (r *PGRepo) MarkCompleted(ctx context.Context, uploadID string, originalText string, feedback Feedback, completedAt time.Time) error {
	const query = `
UPDATE cv_uploads
SET status = 'completed',
    original_text = $2,
    feedback = $3::jsonb,
    error_code = NULL,
    error_message = NULL,
    completed_at = $4,
    updated_at = now()
WHERE id = $1`

	payload, err := json.Marshal(feedback)
	if err != nil {
		return err
	}
	res, err := r.DB.ExecContext(ctx, query, uploadID, originalText, payload, completedAt)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// MarkFailed records the failure code and message, leaving feedback NULL.
func (r *PGRepo) MarkFailed(ctx context.Context, uploadID string, errorCode string, errorMessage string, completedAt time.Time) error {
	const query = `
UPDATE cv_uploads
SET status = 'failed',
    feedback = NULL,
    error_code = $2,
    error_message = $3,
    completed_at = $4,
    updated_at = now()
WHERE id = $1`

	res, err := r.DB.ExecContext(ctx, query, uploadID, errorCode, errorMessage, completedAt)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// FailStaleProcessing fails processing rows whose lease started before cutoff.
func (r *PGRepo) FailStaleProcessing(ctx context.Context, cutoff time.Time, errorCode string, errorMessage string) (int64, error) {
	const query = `
UPDATE cv_uploads
SET status = 'failed',
    feedback = NULL,
    error_code = $2,
    error_message = $3,
    completed_at = now(),
    updated_at = now()
WHERE status = 'processing' AND started_at IS NOT NULL AND started_at <= $1`

	res, err := r.DB.ExecContext(ctx, query, cutoff, errorCode, errorMessage)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanUpload(row rowScanner) (Upload, error) {
	var u Upload
	var feedback sql.NullString
	var errorCode sql.NullString
	var errorMessage sql.NullString
	var startedAt sql.NullTime
	var completedAt sql.NullTime
	if err := row.Scan(
		&u.ID,
		&u.UserID,
		&u.FileName,
		&u.FilePath,
		&u.OriginalText,
		&feedback,
		&u.Status,
		&errorCode,
		&errorMessage,
		&startedAt,
		&completedAt,
		&u.CreatedAt,
		&u.UpdatedAt,
	); err != nil {
		return Upload{}, err
	}
	applyNullableFields(&u, feedback, errorCode, errorMessage, startedAt, completedAt)
	return u, nil
}

func applyNullableFields(u *Upload, feedback, errorCode, errorMessage sql.NullString, startedAt, completedAt sql.NullTime) {
	if feedback.Valid {
		var fb Feedback
		if err := json.Unmarshal([]byte(feedback.String), &fb); err == nil {
			u.Feedback = &fb
		}
	}
	if errorCode.Valid {
		u.ErrorCode = errorCode.String
	}
	if errorMessage.Valid {
		u.ErrorMessage = errorMessage.String
	}
	if startedAt.Valid {
		u.StartedAt = &startedAt.Time
	}
	if completedAt.Valid {
		u.CompletedAt = &completedAt.Time
	}
}

func nullableString(value string) any {
	if value == "" {
		return nil
	}
	return value
}

var _ Repo = (*PGRepo)(nil)
