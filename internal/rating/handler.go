package rating

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"cv-review-backend/internal/shared/server/respond"
	"cv-review-backend/internal/uploads"
)

// Reader is the subset of the uploads service the rating endpoint needs.
type Reader interface {
	Get(ctx context.Context, uploadID string) (uploads.Upload, error)
}

// Handler serves public read-only rating lookups. A rating only exists once
// the review completed, so anything else looks like a missing resource.
type Handler struct {
	Uploads Reader
}

// NewHandler constructs a Handler.
func NewHandler(uploadsSvc Reader) *Handler {
	return &Handler{Uploads: uploadsSvc}
}

// RegisterRoutes attaches the rating routes to the router group.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/ratings/:uploadId", h.getRating)
}

func (h *Handler) getRating(c *gin.Context) {
	uploadID := c.Param("uploadId")
	if uploadID == "" {
		respond.Error(c, http.StatusBadRequest, "validation_error", "upload id is required", nil)
		return
	}
	c.Set("uploadId", uploadID)

	upload, err := h.Uploads.Get(c.Request.Context(), uploadID)
	if err != nil {
		if errors.Is(err, uploads.ErrNotFound) {
			respond.Error(c, http.StatusNotFound, "not_found", "rating not found", nil)
			return
		}
		respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to fetch rating", nil)
		return
	}
	if upload.Status != uploads.StatusCompleted || upload.Feedback == nil {
		respond.Error(c, http.StatusNotFound, "not_found", "rating not found", nil)
		return
	}

	respond.OK(c, gin.H{
		"uploadId":  upload.ID,
		"score":     upload.Feedback.OverallScore,
		"summary":   upload.Feedback.Summary,
		"fileName":  upload.FileName,
		"createdAt": upload.CreatedAt,
	})
}
