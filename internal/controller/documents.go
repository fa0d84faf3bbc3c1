package controller

import (
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/klarifai/queen-rag/internal/domain"
)

type uploadResponse struct {
	Status   string `json:"status"`
	Filename string `json:"filename"`
	Message  string `json:"message"`
	Size     int64  `json:"size,omitempty"`
}

// UploadDocument handles POST /api/documents/upload: a multipart upload
// with optional description and tags form fields.
func (ct *Controller) UploadDocument(c *gin.Context) {
	file, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "File is required: " + err.Error()})
		return
	}

	resp, status := ct.saveAndIngest(c, file, c.PostForm("description"), c.PostForm("tags"), false)
	c.JSON(status, resp)
}

// BulkUploadDocuments handles POST /api/documents/bulk-upload. Each file
// is processed independently; one failure does not abort the batch.
func (ct *Controller) BulkUploadDocuments(c *gin.Context) {
	form, err := c.MultipartForm()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid multipart form: " + err.Error()})
		return
	}
	files := form.File["files"]
	if len(files) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "At least one file is required"})
		return
	}

	results := make([]uploadResponse, 0, len(files))
	for _, file := range files {
		resp, _ := ct.saveAndIngest(c, file, "", "", true)
		results = append(results, resp)
	}
	c.JSON(http.StatusOK, results)
}

// saveAndIngest enforces the size cap, builds the upload metadata and
// streams the file to the document store, which owns staging and
// filename reservation.
func (ct *Controller) saveAndIngest(c *gin.Context, file *multipart.FileHeader, description, tags string, bulk bool) (uploadResponse, int) {
	filename := filepath.Base(file.Filename)
	if filename == "" || filename == "." {
		return uploadResponse{Status: "error", Filename: "unknown", Message: "Filename is required"}, http.StatusBadRequest
	}

	if file.Size > ct.maxUploadSize {
		return uploadResponse{
			Status:   "error",
			Filename: filename,
			Message:  fmt.Sprintf("File size exceeds maximum of %dMB", ct.maxUploadSize>>20),
			Size:     file.Size,
		}, http.StatusRequestEntityTooLarge
	}

	if ct.docs.IsTracked(filename) {
		return uploadResponse{
			Status:   string(domain.StatusExists),
			Filename: filename,
			Message:  "Document already exists in knowledge base",
			Size:     file.Size,
		}, http.StatusOK
	}

	metadata := map[string]any{
		"original_filename": filename,
		"content_type":      file.Header.Get("Content-Type"),
		"size":              file.Size,
	}
	if description != "" {
		metadata["description"] = description
	}
	if tags != "" {
		parts := strings.Split(tags, ",")
		cleaned := make([]string, 0, len(parts))
		for _, tag := range parts {
			if tag = strings.TrimSpace(tag); tag != "" {
				cleaned = append(cleaned, tag)
			}
		}
		metadata["tags"] = cleaned
	}
	if bulk {
		metadata["bulk_upload"] = true
	}

	src, err := file.Open()
	if err != nil {
		ct.log.Error().Err(err).Str("filename", filename).Msg("failed to open upload")
		return uploadResponse{Status: "error", Filename: filename, Message: "Upload failed: " + err.Error()}, http.StatusInternalServerError
	}
	defer src.Close()

	result, err := ct.docs.Ingest(c.Request.Context(), filename, src, metadata)
	if err != nil {
		ct.log.Error().Err(err).Str("filename", filename).Msg("failed to ingest upload")

		var extractErr *domain.ExtractionError
		if errors.As(err, &extractErr) {
			return uploadResponse{Status: "error", Filename: filename, Message: "Upload failed: " + err.Error()}, http.StatusUnprocessableEntity
		}
		return uploadResponse{Status: "error", Filename: filename, Message: "Upload failed: " + err.Error()}, http.StatusInternalServerError
	}

	return uploadResponse{
		Status:   string(result.Status),
		Filename: result.Filename,
		Message:  result.Message,
		Size:     file.Size,
	}, http.StatusOK
}

// ListDocuments handles GET /api/documents/list.
func (ct *Controller) ListDocuments(c *gin.Context) {
	documents, err := ct.docs.List()
	if err != nil {
		ct.log.Error().Err(err).Msg("failed to list documents")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list documents: " + err.Error()})
		return
	}
	if documents == nil {
		documents = []domain.Document{}
	}

	c.JSON(http.StatusOK, gin.H{
		"documents": documents,
		"count":     len(documents),
	})
}

type deleteRequest struct {
	Filename string `json:"filename" binding:"required"`
}

// DeleteDocument handles DELETE /api/documents/delete.
func (ct *Controller) DeleteDocument(c *gin.Context) {
	var req deleteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body: " + err.Error()})
		return
	}

	result, err := ct.docs.Remove(c.Request.Context(), filepath.Base(req.Filename))
	if err != nil {
		ct.log.Error().Err(err).Str("filename", req.Filename).Msg("failed to delete document")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Delete failed: " + err.Error()})
		return
	}
	c.JSON(http.StatusOK, result)
}

// DownloadDocument handles GET /api/documents/download/:filename.
func (ct *Controller) DownloadDocument(c *gin.Context) {
	filename := filepath.Base(c.Param("filename"))
	path := filepath.Join(ct.docs.Dir(), filename)

	if _, err := os.Stat(path); err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Document not found"})
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	c.Header("Content-Type", "application/octet-stream")
	c.File(path)
}

// DocumentStats handles GET /api/documents/stats.
func (ct *Controller) DocumentStats(c *gin.Context) {
	documents, err := ct.docs.List()
	if err != nil {
		ct.log.Error().Err(err).Msg("failed to compute document stats")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to get stats: " + err.Error()})
		return
	}

	var totalSize int64
	fileTypes := map[string]int{}
	for _, doc := range documents {
		totalSize += doc.Size
		fileTypes[doc.Type]++
	}

	c.JSON(http.StatusOK, gin.H{
		"total_documents":  len(documents),
		"total_size_bytes": totalSize,
		"total_size_mb":    float64(totalSize) / (1 << 20),
		"file_types":       fileTypes,
		"max_file_size_mb": ct.maxUploadSize >> 20,
		"storage_path":     ct.docs.Dir(),
	})
}
