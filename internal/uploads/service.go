package uploads

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"cv-review-backend/internal/extract"
	"cv-review-backend/internal/llm"
	"cv-review-backend/internal/shared/metrics"
	"cv-review-backend/internal/shared/storage/object"
	"cv-review-backend/internal/shared/telemetry"
)

// Service contains business logic for CV uploads and reviews.
type Service struct {
	Repo       Repo
	Store      object.ObjectStore
	LLM        llm.Client
	PromptLang string

	// ExtractText overrides PDF text extraction. Nil means the default
	// extractor; tests inject a fake here.
	ExtractText func(ctx context.Context, data []byte) (string, error)
}

// Submit stores the file and creates a pending upload row.
func (s *Service) Submit(ctx context.Context, userID, fileName string, r io.Reader) (Upload, error) {
	if strings.TrimSpace(userID) == "" {
		return Upload{}, errors.New("userID is required")
	}
	if strings.TrimSpace(fileName) == "" {
		return Upload{}, errors.New("fileName is required")
	}
	if s.Store == nil {
		return Upload{}, errors.New("object store not configured")
	}

	ext := strings.ToLower(filepath.Ext(fileName))
	if ext == "" {
		ext = ".pdf"
	}
	key := fmt.Sprintf("cvs/%d%s", time.Now().UnixMilli(), ext)

	if _, err := s.Store.SaveWithKey(ctx, key, "application/pdf", r); err != nil {
		return Upload{}, fmt.Errorf("save upload key=%s: %w", key, err)
	}

	upload := Upload{
		ID:        uuid.NewString(),
		UserID:    userID,
		FileName:  fileName,
		FilePath:  key,
		Status:    StatusPending,
		CreatedAt: time.Now().UTC(),
	}
	if err := s.Repo.Create(ctx, upload); err != nil {
		return Upload{}, err
	}
	return upload, nil
}

// Register creates a pending row for a file the client already pushed to the
// store through a presigned URL. The object itself is not touched here.
func (s *Service) Register(ctx context.Context, userID, fileName, storageKey string) (Upload, error) {
	if strings.TrimSpace(userID) == "" {
		return Upload{}, errors.New("userID is required")
	}
	if strings.TrimSpace(fileName) == "" {
		return Upload{}, errors.New("fileName is required")
	}
	if !strings.HasPrefix(storageKey, "cvs/") {
		return Upload{}, errors.New("storageKey must be under cvs/")
	}

	upload := Upload{
		ID:        uuid.NewString(),
		UserID:    userID,
		FileName:  fileName,
		FilePath:  storageKey,
		Status:    StatusPending,
		CreatedAt: time.Now().UTC(),
	}
	if err := s.Repo.Create(ctx, upload); err != nil {
		return Upload{}, err
	}
	return upload, nil
}

// Review claims a pending upload, runs extraction and the LLM, and stores the
// result. It is synchronous: the caller gets the finished upload or an error.
func (s *Service) Review(ctx context.Context, uploadID, filePath string) (Upload, error) {
	if strings.TrimSpace(uploadID) == "" {
		return Upload{}, errors.New("uploadID is required")
	}

	upload, err := s.Repo.GetByID(ctx, uploadID)
	if err != nil {
		return Upload{}, err
	}
	if strings.TrimSpace(filePath) == "" {
		filePath = upload.FilePath
	}

	startedAt := time.Now().UTC()
	if err := s.Repo.TransitionToProcessing(ctx, uploadID, startedAt); err != nil {
		return Upload{}, err
	}
	metrics.IncReviewStarted()
	telemetry.Info("review.status", map[string]any{
		"upload_id":         uploadID,
		"user_id":           upload.UserID,
		"status":            StatusProcessing,
		"status_transition": "pending->processing",
	})

	text, feedback, err := s.process(ctx, filePath)
	if err != nil {
		s.failUpload(uploadID, upload.UserID, err, &startedAt)
		return Upload{}, err
	}

	completedAt := time.Now().UTC()
	if err := s.Repo.MarkCompleted(ctx, uploadID, text, feedback, completedAt); err != nil {
		err = fmt.Errorf("store review result: %w", err)
		s.failUpload(uploadID, upload.UserID, err, &startedAt)
		return Upload{}, err
	}
	metrics.IncReviewCompleted()
	metrics.ObserveReviewDurationMs(durationMs(&startedAt, &completedAt))
	telemetry.Info("review.status", map[string]any{
		"upload_id":         uploadID,
		"user_id":           upload.UserID,
		"status":            StatusCompleted,
		"status_transition": "processing->completed",
		"duration_ms":       durationMs(&startedAt, &completedAt),
	})

	return s.Repo.GetByID(ctx, uploadID)
}

// AnonymousReview runs the full pipeline on an in-memory file and records a
// completed row under the anonymous sentinel. The file itself is not stored;
// the row carries a synthetic path. Failures leave no row behind.
func (s *Service) AnonymousReview(ctx context.Context, fileName string, data []byte) (Upload, error) {
	if strings.TrimSpace(fileName) == "" {
		return Upload{}, errors.New("fileName is required")
	}

	uploadID := uuid.NewString()
	startedAt := time.Now().UTC()
	metrics.IncReviewStarted()

	text, err := s.extractText(ctx, data)
	if err != nil {
		metrics.IncReviewFailed()
		return Upload{}, fmt.Errorf("extract text: %w", err)
	}
	feedback, err := s.generateFeedback(ctx, text)
	if err != nil {
		metrics.IncReviewFailed()
		return Upload{}, err
	}

	completedAt := time.Now().UTC()
	fb := feedback
	upload := Upload{
		ID:           uploadID,
		UserID:       AnonymousUserID,
		FileName:     fileName,
		FilePath:     fmt.Sprintf("anonymous/%s.pdf", uploadID),
		OriginalText: text,
		Feedback:     &fb,
		Status:       StatusCompleted,
		CompletedAt:  &completedAt,
		CreatedAt:    completedAt,
	}
	if err := s.Repo.Create(ctx, upload); err != nil {
		metrics.IncReviewFailed()
		return Upload{}, fmt.Errorf("store review result: %w", err)
	}
	metrics.IncReviewCompleted()
	metrics.ObserveReviewDurationMs(durationMs(&startedAt, &completedAt))
	telemetry.Info("review.status", map[string]any{
		"upload_id":         uploadID,
		"user_id":           AnonymousUserID,
		"status":            StatusCompleted,
		"status_transition": "anonymous->completed",
	})
	return upload, nil
}

// Get returns an upload by ID.
func (s *Service) Get(ctx context.Context, uploadID string) (Upload, error) {
	if strings.TrimSpace(uploadID) == "" {
		return Upload{}, errors.New("uploadID is required")
	}
	return s.Repo.GetByID(ctx, uploadID)
}

// List returns a user's uploads newest-first.
func (s *Service) List(ctx context.Context, userID string, limit, offset int) ([]Upload, error) {
	if strings.TrimSpace(userID) == "" {
		return nil, errors.New("userID is required")
	}
	return s.Repo.ListByUser(ctx, userID, limit, offset)
}

// ListAll returns every upload with owner profiles, for the admin view.
func (s *Service) ListAll(ctx context.Context, limit, offset int) ([]AdminUpload, error) {
	return s.Repo.ListAll(ctx, limit, offset)
}

// Stats aggregates a user's uploads per status.
func (s *Service) Stats(ctx context.Context, userID string) (StatusCounts, error) {
	if strings.TrimSpace(userID) == "" {
		return StatusCounts{}, errors.New("userID is required")
	}
	return s.Repo.CountByStatus(ctx, userID)
}

func (s *Service) process(ctx context.Context, filePath string) (string, Feedback, error) {
	if s.Store == nil {
		return "", Feedback{}, errors.New("object store not configured")
	}

	body, err := s.Store.Open(ctx, filePath)
	if err != nil {
		return "", Feedback{}, fmt.Errorf("load stored file key=%s: %w", filePath, err)
	}
	data, readErr := io.ReadAll(body)
	body.Close()
	if readErr != nil {
		return "", Feedback{}, fmt.Errorf("load stored file key=%s: %w", filePath, readErr)
	}

	text, err := s.extractText(ctx, data)
	if err != nil {
		return "", Feedback{}, fmt.Errorf("extract text: %w", err)
	}

	feedback, err := s.generateFeedback(ctx, text)
	if err != nil {
		return "", Feedback{}, err
	}
	return text, feedback, nil
}

func (s *Service) extractText(ctx context.Context, data []byte) (string, error) {
	if s.ExtractText != nil {
		return s.ExtractText(ctx, data)
	}
	return extract.ExtractTextFromBytes(ctx, data)
}

func (s *Service) generateFeedback(ctx context.Context, cvText string) (Feedback, error) {
	if s.LLM == nil {
		return Feedback{}, errors.New("llm client not configured")
	}

	prompt := llm.BuildFeedbackPrompt(s.PromptLang, cvText)
	raw, err := s.LLM.Complete(ctx, prompt)
	if err != nil {
		return Feedback{}, fmt.Errorf("llm complete: %w", err)
	}

	feedback, err := ParseFeedback(raw)
	if err != nil {
		return Feedback{}, fmt.Errorf("llm output invalid: %w", err)
	}
	if err := feedback.Validate(); err != nil {
		return Feedback{}, fmt.Errorf("llm output invalid: %w", err)
	}
	return feedback, nil
}

// failUpload records the failure with a fresh context so a cancelled request
// cannot leave the row stuck in processing.
func (s *Service) failUpload(uploadID, userID string, err error, startedAt *time.Time) {
	code := classifyFailure(err)
	msg := sanitizeError(err)
	completedAt := time.Now().UTC()
	if updateErr := s.Repo.MarkFailed(context.Background(), uploadID, code, msg, completedAt); updateErr != nil {
		telemetry.Error("review.fail_update", map[string]any{
			"upload_id": uploadID,
			"error":     updateErr.Error(),
			"original":  msg,
		})
	}
	metrics.IncReviewFailed()
	if startedAt != nil {
		metrics.ObserveReviewDurationMs(durationMs(startedAt, &completedAt))
	}
	telemetry.Info("review.status", map[string]any{
		"upload_id":         uploadID,
		"user_id":           userID,
		"status":            StatusFailed,
		"status_transition": "processing->failed",
		"error_code":        code,
		"duration_ms":       durationMs(startedAt, &completedAt),
	})
}

func durationMs(startedAt, completedAt *time.Time) float64 {
	if startedAt == nil || completedAt == nil {
		return 0
	}
	return float64(completedAt.Sub(*startedAt).Microseconds()) / 1000.0
}

func classifyFailure(err error) string {
	if err == nil {
		return ErrorCodeInternal
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return ErrorCodeLLMTimeout
	}
	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "llm") && strings.Contains(msg, "timeout"):
		return ErrorCodeLLMTimeout
	case strings.Contains(msg, "llm output invalid") || strings.Contains(msg, "no valid json") || strings.Contains(msg, "feedback schema"):
		return ErrorCodeLLMSchemaMismatch
	case strings.Contains(msg, "extract text") || strings.Contains(msg, "no text extracted"):
		return ErrorCodeExtraction
	case strings.Contains(msg, "load stored file") || strings.Contains(msg, "save upload") || strings.Contains(msg, "store review result") || strings.Contains(msg, "storage"):
		return ErrorCodeStorage
	case strings.Contains(msg, "validation") || strings.Contains(msg, "required"):
		return ErrorCodeValidation
	default:
		return ErrorCodeInternal
	}
}

func sanitizeError(err error) string {
	if err == nil {
		return ""
	}
	msg := strings.ReplaceAll(err.Error(), "\n", " ")
	msg = strings.ReplaceAll(msg, "\r", " ")
	msg = strings.TrimSpace(msg)
	const maxLen = 500
	if len(msg) > maxLen {
		msg = msg[:maxLen]
	}
	return msg
}
