package uploads

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"testing"
	"time"
)

type fakeStore struct {
	mu      sync.Mutex
	objects map[string][]byte
	openErr error
}

func newFakeStore() *fakeStore {
	return &fakeStore{objects: make(map[string][]byte)}
}

func (s *fakeStore) SaveWithKey(ctx context.Context, key string, contentType string, r io.Reader) (int64, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return 0, err
	}
	s.mu.Lock()
	s.objects[key] = data
	s.mu.Unlock()
	return int64(len(data)), nil
}

func (s *fakeStore) Open(ctx context.Context, key string) (io.ReadCloser, error) {
	if s.openErr != nil {
		return nil, s.openErr
	}
	s.mu.Lock()
	data, ok := s.objects[key]
	s.mu.Unlock()
	if !ok {
		return nil, fmt.Errorf("object %s missing", key)
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

type fakeLLM struct {
	response string
	err      error
	prompts  []string
}

func (f *fakeLLM) Complete(ctx context.Context, prompt string) (string, error) {
	f.prompts = append(f.prompts, prompt)
	if f.err != nil {
		return "", f.err
	}
	return f.response, nil
}

func passthroughExtract(ctx context.Context, data []byte) (string, error) {
	return string(data), nil
}

func newTestService(repo Repo, store *fakeStore, client *fakeLLM) *Service {
	return &Service{
		Repo:        repo,
		Store:       store,
		LLM:         client,
		PromptLang:  "en",
		ExtractText: passthroughExtract,
	}
}

func seedPending(t *testing.T, repo Repo, store *fakeStore, id, userID, key, body string) {
	t.Helper()
	if store != nil {
		if _, err := store.SaveWithKey(context.Background(), key, "application/pdf", strings.NewReader(body)); err != nil {
			t.Fatalf("seed store: %v", err)
		}
	}
	if err := repo.Create(context.Background(), Upload{
		ID:        id,
		UserID:    userID,
		FileName:  "cv.pdf",
		FilePath:  key,
		Status:    StatusPending,
		CreatedAt: time.Now().UTC(),
	}); err != nil {
		t.Fatalf("seed upload: %v", err)
	}
}

func TestReviewCompletesPendingUpload(t *testing.T) {
	repo := NewMemoryRepo()
	store := newFakeStore()
	client := &fakeLLM{response: validFeedbackJSON}
	svc := newTestService(repo, store, client)

	seedPending(t, repo, store, "u1", "user-1", "cvs/1.pdf", "cv body text")

	got, err := svc.Review(context.Background(), "u1", "")
	if err != nil {
		t.Fatalf("Review: %v", err)
	}
	if got.Status != StatusCompleted {
		t.Fatalf("status = %q, want completed", got.Status)
	}
	if got.Feedback == nil || got.Feedback.OverallScore != 7 {
		t.Fatalf("feedback = %+v", got.Feedback)
	}
	if got.OriginalText != "cv body text" {
		t.Fatalf("originalText = %q", got.OriginalText)
	}
	if got.ErrorCode != "" || got.ErrorMessage != "" {
		t.Fatalf("completed row must not carry error fields: %+v", got)
	}
	if got.CompletedAt == nil || got.StartedAt == nil {
		t.Fatal("timestamps missing")
	}
	if len(client.prompts) != 1 || !strings.Contains(client.prompts[0], "cv body text") {
		t.Fatalf("prompt did not include CV text")
	}
}

func TestReviewSchemaMismatchFails(t *testing.T) {
	repo := NewMemoryRepo()
	store := newFakeStore()
	client := &fakeLLM{response: "I am sorry, I cannot help with that."}
	svc := newTestService(repo, store, client)

	seedPending(t, repo, store, "u1", "user-1", "cvs/1.pdf", "cv body")

	if _, err := svc.Review(context.Background(), "u1", ""); err == nil {
		t.Fatal("expected error for unparseable output")
	}

	got, err := repo.GetByID(context.Background(), "u1")
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if got.Status != StatusFailed {
		t.Fatalf("status = %q, want failed", got.Status)
	}
	if got.Feedback != nil {
		t.Fatal("failed row must not carry feedback")
	}
	if got.ErrorCode != ErrorCodeLLMSchemaMismatch {
		t.Fatalf("errorCode = %q", got.ErrorCode)
	}
	if got.ErrorMessage == "" {
		t.Fatal("errorMessage missing")
	}
}

func TestReviewInvalidScoreFails(t *testing.T) {
	repo := NewMemoryRepo()
	store := newFakeStore()
	client := &fakeLLM{response: `{"overall_score": 0, "summary": "something"}`}
	svc := newTestService(repo, store, client)

	seedPending(t, repo, store, "u1", "user-1", "cvs/1.pdf", "cv body")

	if _, err := svc.Review(context.Background(), "u1", ""); err == nil {
		t.Fatal("expected error for invalid score")
	}
	got, _ := repo.GetByID(context.Background(), "u1")
	if got.ErrorCode != ErrorCodeLLMSchemaMismatch {
		t.Fatalf("errorCode = %q", got.ErrorCode)
	}
}

func TestReviewExtractionFailure(t *testing.T) {
	repo := NewMemoryRepo()
	store := newFakeStore()
	client := &fakeLLM{response: validFeedbackJSON}
	svc := newTestService(repo, store, client)
	svc.ExtractText = func(ctx context.Context, data []byte) (string, error) {
		return "", errors.New("no text extracted")
	}

	seedPending(t, repo, store, "u1", "user-1", "cvs/1.pdf", "scanned image pdf")

	if _, err := svc.Review(context.Background(), "u1", ""); err == nil {
		t.Fatal("expected extraction error")
	}
	got, _ := repo.GetByID(context.Background(), "u1")
	if got.Status != StatusFailed || got.ErrorCode != ErrorCodeExtraction {
		t.Fatalf("status=%q code=%q", got.Status, got.ErrorCode)
	}
	if len(client.prompts) != 0 {
		t.Fatal("llm must not be called after extraction failure")
	}
}

func TestReviewLLMTimeout(t *testing.T) {
	repo := NewMemoryRepo()
	store := newFakeStore()
	client := &fakeLLM{err: context.DeadlineExceeded}
	svc := newTestService(repo, store, client)

	seedPending(t, repo, store, "u1", "user-1", "cvs/1.pdf", "cv body")

	if _, err := svc.Review(context.Background(), "u1", ""); err == nil {
		t.Fatal("expected timeout error")
	}
	got, _ := repo.GetByID(context.Background(), "u1")
	if got.ErrorCode != ErrorCodeLLMTimeout {
		t.Fatalf("errorCode = %q", got.ErrorCode)
	}
}

func TestReviewMissingFileIsStorageError(t *testing.T) {
	repo := NewMemoryRepo()
	store := newFakeStore()
	client := &fakeLLM{response: validFeedbackJSON}
	svc := newTestService(repo, store, client)

	seedPending(t, repo, nil, "u1", "user-1", "cvs/missing.pdf", "")

	if _, err := svc.Review(context.Background(), "u1", ""); err == nil {
		t.Fatal("expected storage error")
	}
	got, _ := repo.GetByID(context.Background(), "u1")
	if got.ErrorCode != ErrorCodeStorage {
		t.Fatalf("errorCode = %q", got.ErrorCode)
	}
}

func TestReviewNotFound(t *testing.T) {
	svc := newTestService(NewMemoryRepo(), newFakeStore(), &fakeLLM{})
	if _, err := svc.Review(context.Background(), "ghost", ""); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestReviewSecondClaimRejected(t *testing.T) {
	repo := NewMemoryRepo()
	store := newFakeStore()
	client := &fakeLLM{response: validFeedbackJSON}
	svc := newTestService(repo, store, client)

	seedPending(t, repo, store, "u1", "user-1", "cvs/1.pdf", "cv body")

	if err := repo.TransitionToProcessing(context.Background(), "u1", time.Now().UTC()); err != nil {
		t.Fatalf("claim: %v", err)
	}
	if _, err := svc.Review(context.Background(), "u1", ""); !errors.Is(err, ErrAlreadyProcessing) {
		t.Fatalf("expected ErrAlreadyProcessing, got %v", err)
	}
}

func TestReviewCompletedRowRejected(t *testing.T) {
	repo := NewMemoryRepo()
	store := newFakeStore()
	client := &fakeLLM{response: validFeedbackJSON}
	svc := newTestService(repo, store, client)

	seedPending(t, repo, store, "u1", "user-1", "cvs/1.pdf", "cv body")
	if _, err := svc.Review(context.Background(), "u1", ""); err != nil {
		t.Fatalf("first review: %v", err)
	}
	if _, err := svc.Review(context.Background(), "u1", ""); !errors.Is(err, ErrAlreadyProcessing) {
		t.Fatalf("expected ErrAlreadyProcessing for completed row, got %v", err)
	}
}

func TestAnonymousReviewCreatesCompletedRow(t *testing.T) {
	repo := NewMemoryRepo()
	client := &fakeLLM{response: validFeedbackJSON}
	svc := newTestService(repo, newFakeStore(), client)

	got, err := svc.AnonymousReview(context.Background(), "cv.pdf", []byte("anonymous cv text"))
	if err != nil {
		t.Fatalf("AnonymousReview: %v", err)
	}
	if got.UserID != AnonymousUserID {
		t.Fatalf("userID = %q", got.UserID)
	}
	if got.Status != StatusCompleted || got.Feedback == nil {
		t.Fatalf("unexpected upload: %+v", got)
	}
	if got.FilePath != "anonymous/"+got.ID+".pdf" {
		t.Fatalf("filePath = %q", got.FilePath)
	}

	stored, err := repo.GetByID(context.Background(), got.ID)
	if err != nil {
		t.Fatalf("row not persisted: %v", err)
	}
	if stored.OriginalText != "anonymous cv text" {
		t.Fatalf("originalText = %q", stored.OriginalText)
	}
}

func TestAnonymousReviewFailureLeavesNoRow(t *testing.T) {
	repo := NewMemoryRepo()
	client := &fakeLLM{response: "not json"}
	svc := newTestService(repo, newFakeStore(), client)

	if _, err := svc.AnonymousReview(context.Background(), "cv.pdf", []byte("text")); err == nil {
		t.Fatal("expected error")
	}
	all, err := repo.ListAll(context.Background(), 100, 0)
	if err != nil {
		t.Fatalf("ListAll: %v", err)
	}
	if len(all) != 0 {
		t.Fatalf("expected no rows, got %d", len(all))
	}
}

func TestSubmitCreatesPendingRow(t *testing.T) {
	repo := NewMemoryRepo()
	store := newFakeStore()
	svc := newTestService(repo, store, &fakeLLM{})

	got, err := svc.Submit(context.Background(), "user-1", "resume.pdf", strings.NewReader("pdf bytes"))
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if got.Status != StatusPending {
		t.Fatalf("status = %q", got.Status)
	}
	if !strings.HasPrefix(got.FilePath, "cvs/") || !strings.HasSuffix(got.FilePath, ".pdf") {
		t.Fatalf("filePath = %q", got.FilePath)
	}
	if _, ok := store.objects[got.FilePath]; !ok {
		t.Fatal("file not stored")
	}
}

func TestStatsCountsPerStatus(t *testing.T) {
	repo := NewMemoryRepo()
	svc := newTestService(repo, newFakeStore(), &fakeLLM{})
	ctx := context.Background()

	now := time.Now().UTC()
	for i, status := range []string{StatusPending, StatusCompleted, StatusCompleted, StatusFailed} {
		if err := repo.Create(ctx, Upload{
			ID:        fmt.Sprintf("u%d", i),
			UserID:    "user-1",
			FileName:  "cv.pdf",
			FilePath:  "cvs/x.pdf",
			Status:    status,
			CreatedAt: now,
		}); err != nil {
			t.Fatalf("seed: %v", err)
		}
	}
	if err := repo.Create(ctx, Upload{ID: "other", UserID: "user-2", Status: StatusPending, CreatedAt: now}); err != nil {
		t.Fatalf("seed: %v", err)
	}

	counts, err := svc.Stats(ctx, "user-1")
	if err != nil {
		t.Fatalf("Stats: %v", err)
	}
	want := StatusCounts{Total: 4, Pending: 1, Completed: 2, Failed: 1}
	if counts != want {
		t.Fatalf("counts = %+v, want %+v", counts, want)
	}
}

func TestClassifyFailure(t *testing.T) {
	cases := []struct {
		err  error
		want string
	}{
		{context.DeadlineExceeded, ErrorCodeLLMTimeout},
		{fmt.Errorf("llm complete: request timeout"), ErrorCodeLLMTimeout},
		{fmt.Errorf("llm output invalid: no valid JSON found in model response"), ErrorCodeLLMSchemaMismatch},
		{fmt.Errorf("llm output invalid: feedback schema: summary is empty"), ErrorCodeLLMSchemaMismatch},
		{fmt.Errorf("extract text: parse pdf: bad xref"), ErrorCodeExtraction},
		{fmt.Errorf("load stored file key=cvs/1.pdf: not found"), ErrorCodeStorage},
		{fmt.Errorf("store review result: connection reset"), ErrorCodeStorage},
		{errors.New("something odd"), ErrorCodeInternal},
	}
	for _, tc := range cases {
		if got := classifyFailure(tc.err); got != tc.want {
			t.Errorf("classifyFailure(%v) = %q, want %q", tc.err, got, tc.want)
		}
	}
}

func TestSanitizeError(t *testing.T) {
	msg := sanitizeError(errors.New("line1\nline2\r\nline3"))
	if strings.ContainsAny(msg, "\n\r") {
		t.Fatalf("newlines left in %q", msg)
	}
	long := sanitizeError(errors.New(strings.Repeat("x", 600)))
	if len(long) != 500 {
		t.Fatalf("len = %d, want 500", len(long))
	}
}
