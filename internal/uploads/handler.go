package uploads

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"cv-review-backend/internal/shared/server/middleware"
	"cv-review-backend/internal/shared/server/respond"
)

const maxUploadBytes = 10 << 20

// Handler wires HTTP handlers to the uploads service.
type Handler struct {
	Svc *Service

	// IsAdmin gates the admin listing. Nil denies everyone.
	IsAdmin func(ctx context.Context, userID string) (bool, error)
}

// NewHandler constructs a Handler.
func NewHandler(svc *Service, isAdmin func(ctx context.Context, userID string) (bool, error)) *Handler {
	return &Handler{Svc: svc, IsAdmin: isAdmin}
}

// RegisterRoutes attaches the authenticated upload and review routes.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/uploads", h.createUpload)
	rg.POST("/uploads/presign", h.presignUpload)
	rg.POST("/uploads/from-key", h.registerUpload)
	rg.GET("/uploads", h.listUploads)
	rg.GET("/uploads/stats", h.uploadStats)
	rg.GET("/uploads/:id", h.getUpload)
	rg.POST("/review", h.review)
}

// RegisterPublicRoutes attaches routes that require no authentication.
func (h *Handler) RegisterPublicRoutes(rg *gin.RouterGroup) {
	rg.POST("/anonymous-review", h.anonymousReview)
}

// RegisterAdminRoutes attaches the admin listing.
func (h *Handler) RegisterAdminRoutes(rg *gin.RouterGroup) {
	rg.GET("/admin/uploads", h.adminListUploads)
}

func (h *Handler) createUpload(c *gin.Context) {
	userID := middleware.UserIDFromContext(c)

	fileName, data, ok := h.readUploadedFile(c)
	if !ok {
		return
	}

	upload, err := h.Svc.Submit(c.Request.Context(), userID, fileName, bytes.NewReader(data))
	if err != nil {
		respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to store upload", nil)
		return
	}
	c.Set("uploadId", upload.ID)

	respond.JSON(c, http.StatusCreated, gin.H{
		"success":  true,
		"uploadId": upload.ID,
		"filePath": upload.FilePath,
		"status":   upload.Status,
	})
}

type reviewRequest struct {
	UploadID string `json:"uploadId"`
	FilePath string `json:"filePath"`
}

func (h *Handler) review(c *gin.Context) {
	var req reviewRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "invalid request body", nil)
		return
	}
	if strings.TrimSpace(req.UploadID) == "" {
		respond.Error(c, http.StatusBadRequest, "validation_error", "uploadId is required", nil)
		return
	}
	c.Set("uploadId", req.UploadID)

	userID := middleware.UserIDFromContext(c)
	existing, err := h.Svc.Get(c.Request.Context(), req.UploadID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			respond.Error(c, http.StatusNotFound, "not_found", "upload not found", nil)
			return
		}
		respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to run review", nil)
		return
	}
	if existing.UserID != userID {
		respond.Error(c, http.StatusNotFound, "not_found", "upload not found", nil)
		return
	}

	upload, err := h.Svc.Review(c.Request.Context(), req.UploadID, req.FilePath)
	if err != nil {
		c.Set("statusTransition", "processing->failed")
		switch {
		case errors.Is(err, ErrNotFound):
			respond.Error(c, http.StatusNotFound, "not_found", "upload not found", nil)
		case errors.Is(err, ErrAlreadyProcessing):
			respond.Error(c, http.StatusConflict, "already_processing", "review is already in progress or finished", nil)
		default:
			respond.Error(c, http.StatusInternalServerError, classifyFailure(err), "review failed", nil)
		}
		return
	}
	c.Set("statusTransition", "processing->completed")

	respond.OK(c, gin.H{
		"success":  true,
		"uploadId": upload.ID,
		"status":   upload.Status,
		"feedback": upload.Feedback,
	})
}

func (h *Handler) anonymousReview(c *gin.Context) {
	fileName, data, ok := h.readUploadedFile(c)
	if !ok {
		return
	}

	upload, err := h.Svc.AnonymousReview(c.Request.Context(), fileName, data)
	if err != nil {
		c.Set("statusTransition", "anonymous->failed")
		respond.Error(c, http.StatusInternalServerError, classifyFailure(err), "review failed", nil)
		return
	}
	c.Set("uploadId", upload.ID)
	c.Set("statusTransition", "anonymous->completed")

	var score int
	if upload.Feedback != nil {
		score = upload.Feedback.OverallScore
	}
	respond.OK(c, gin.H{
		"success":  true,
		"uploadId": upload.ID,
		"score":    score,
		"feedback": upload.Feedback,
	})
}

func (h *Handler) getUpload(c *gin.Context) {
	uploadID := c.Param("id")
	userID := middleware.UserIDFromContext(c)

	upload, err := h.Svc.Get(c.Request.Context(), uploadID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			respond.Error(c, http.StatusNotFound, "not_found", "upload not found", nil)
			return
		}
		respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to fetch upload", nil)
		return
	}
	if upload.UserID != userID {
		respond.Error(c, http.StatusNotFound, "not_found", "upload not found", nil)
		return
	}

	respond.OK(c, upload)
}

func (h *Handler) listUploads(c *gin.Context) {
	userID := middleware.UserIDFromContext(c)
	limit, offset := pageParams(c)

	uploads, err := h.Svc.List(c.Request.Context(), userID, limit, offset)
	if err != nil {
		respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to list uploads", nil)
		return
	}
	if uploads == nil {
		uploads = []Upload{}
	}
	respond.OK(c, gin.H{"uploads": uploads})
}

func (h *Handler) uploadStats(c *gin.Context) {
	userID := middleware.UserIDFromContext(c)

	counts, err := h.Svc.Stats(c.Request.Context(), userID)
	if err != nil {
		respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to compute stats", nil)
		return
	}
	respond.OK(c, counts)
}

func (h *Handler) adminListUploads(c *gin.Context) {
	userID := middleware.UserIDFromContext(c)
	if h.IsAdmin == nil {
		respond.Error(c, http.StatusForbidden, "forbidden", "admin access required", nil)
		return
	}
	isAdmin, err := h.IsAdmin(c.Request.Context(), userID)
	if err != nil {
		respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to check permissions", nil)
		return
	}
	if !isAdmin {
		respond.Error(c, http.StatusForbidden, "forbidden", "admin access required", nil)
		return
	}

	limit, offset := pageParams(c)
	uploads, err := h.Svc.ListAll(c.Request.Context(), limit, offset)
	if err != nil {
		respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to list uploads", nil)
		return
	}
	if uploads == nil {
		uploads = []AdminUpload{}
	}
	respond.OK(c, gin.H{"uploads": uploads})
}

// readUploadedFile validates the multipart "file" part and returns its bytes.
// On failure it writes the error response and returns ok=false.
func (h *Handler) readUploadedFile(c *gin.Context) (string, []byte, bool) {
	header, err := c.FormFile("file")
	if err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "file is required", nil)
		return "", nil, false
	}
	if header.Size > maxUploadBytes {
		respond.Error(c, http.StatusRequestEntityTooLarge, "validation_error", "file exceeds the 10MB limit", nil)
		return "", nil, false
	}
	if !isPDF(header.Filename, header.Header.Get("Content-Type")) {
		respond.Error(c, http.StatusBadRequest, "validation_error", "only PDF files are supported", nil)
		return "", nil, false
	}

	f, err := header.Open()
	if err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "failed to read file", nil)
		return "", nil, false
	}
	defer f.Close()

	data, err := io.ReadAll(io.LimitReader(f, maxUploadBytes+1))
	if err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "failed to read file", nil)
		return "", nil, false
	}
	if len(data) > maxUploadBytes {
		respond.Error(c, http.StatusRequestEntityTooLarge, "validation_error", "file exceeds the 10MB limit", nil)
		return "", nil, false
	}
	return header.Filename, data, true
}

func isPDF(fileName, contentType string) bool {
	if strings.EqualFold(strings.TrimSpace(contentType), "application/pdf") {
		return true
	}
	return strings.EqualFold(filepath.Ext(fileName), ".pdf")
}

func pageParams(c *gin.Context) (int, int) {
	limit := 20
	offset := 0
	if v := c.Query("limit"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			limit = parsed
		}
	}
	if v := c.Query("offset"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			offset = parsed
		}
	}
	return limit, offset
}
