package uploads

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"cv-review-backend/internal/shared/server/middleware"
	"cv-review-backend/internal/shared/server/respond"
	"cv-review-backend/internal/shared/storage/object"
	"cv-review-backend/internal/shared/util"
)

const presignExpires = 15 * time.Minute

type presignRequest struct {
	FileName    string `json:"fileName"`
	ContentType string `json:"contentType"`
}

type registerRequest struct {
	FileName string `json:"fileName"`
	Key      string `json:"key"`
}

// presignUpload issues a presigned PUT URL so the client can push the PDF
// straight to the object store. Only available on stores that support it.
func (h *Handler) presignUpload(c *gin.Context) {
	presigner, ok := h.Svc.Store.(object.Presigner)
	if !ok {
		respond.Error(c, http.StatusNotImplemented, "not_supported", "direct uploads are not available on this deployment", nil)
		return
	}

	var req presignRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "invalid request body", nil)
		return
	}
	if !strings.EqualFold(strings.TrimSpace(req.ContentType), "application/pdf") {
		respond.Error(c, http.StatusBadRequest, "validation_error", "only PDF files are supported", nil)
		return
	}
	safeName, err := util.SanitizeFileName(req.FileName)
	if err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "invalid file name", nil)
		return
	}

	key := fmt.Sprintf("cvs/%d-%s", time.Now().UnixMilli(), safeName)
	put, err := presigner.PresignPut(c.Request.Context(), key, "application/pdf", presignExpires)
	if err != nil {
		respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to presign upload", nil)
		return
	}

	headers := map[string]string{}
	for name := range put.Header {
		headers[name] = put.Header.Get(name)
	}
	respond.OK(c, gin.H{
		"key":       key,
		"url":       put.URL,
		"method":    put.Method,
		"headers":   headers,
		"expiresIn": int(presignExpires.Seconds()),
	})
}

// registerUpload records a pending row for a key uploaded via presigned URL.
func (h *Handler) registerUpload(c *gin.Context) {
	var req registerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "invalid request body", nil)
		return
	}
	if strings.TrimSpace(req.Key) == "" || strings.TrimSpace(req.FileName) == "" {
		respond.Error(c, http.StatusBadRequest, "validation_error", "fileName and key are required", nil)
		return
	}

	userID := middleware.UserIDFromContext(c)
	upload, err := h.Svc.Register(c.Request.Context(), userID, req.FileName, req.Key)
	if err != nil {
		if strings.Contains(err.Error(), "storageKey") {
			respond.Error(c, http.StatusBadRequest, "validation_error", "key must be under cvs/", nil)
			return
		}
		respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to register upload", nil)
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
