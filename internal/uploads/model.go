package uploads

import "time"

const (
	StatusPending    = "pending"
	StatusProcessing = "processing"
	StatusCompleted  = "completed"
	StatusFailed     = "failed"
)

// AnonymousUserID is the sentinel owner for anonymous reviews.
const AnonymousUserID = "00000000-0000-0000-0000-000000000000"

// Upload represents a CV upload and its review lifecycle.
type Upload struct {
	ID           string     `json:"id"`
	UserID       string     `json:"userId"`
	FileName     string     `json:"fileName"`
	FilePath     string     `json:"filePath"`
	OriginalText string     `json:"originalText,omitempty"`
	Feedback     *Feedback  `json:"feedback,omitempty"`
	Status       string     `json:"status"`
	ErrorCode    string     `json:"errorCode,omitempty"`
	ErrorMessage string     `json:"errorMessage,omitempty"`
	StartedAt    *time.Time `json:"startedAt,omitempty"`
	CompletedAt  *time.Time `json:"completedAt,omitempty"`
	CreatedAt    time.Time  `json:"createdAt"`
	UpdatedAt    time.Time  `json:"updatedAt"`
}

// OwnerProfile carries the owning profile for admin listings. Nil for
// anonymous uploads.
type OwnerProfile struct {
	Email    string `json:"email"`
	FullName string `json:"fullName"`
}

// AdminUpload is an upload joined with its owner profile.
type AdminUpload struct {
	Upload
	Owner *OwnerProfile `json:"owner,omitempty"`
}

// StatusCounts aggregates a user's uploads per status.
type StatusCounts struct {
	Total      int `json:"total"`
	Pending    int `json:"pending"`
	Processing int `json:"processing"`
	Completed  int `json:"completed"`
	Failed     int `json:"failed"`
}
