package handlers

import (
	"errors"
	"io"
	"mime"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/langchou/fleetdash/internal/service"
)

// multipart 表单字段本身的额外开销
const multipartOverhead = 1 << 20

// ListDocuments 文档列表
// GET /api/documents?type=sop|retro&chassis=
func (h *Handler) ListDocuments(c *gin.Context) {
	docs, err := h.documents.List(c.Request.Context(), c.Query("type"), c.Query("chassis"))
	if err != nil {
		h.respondError(c, "list documents", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": docs})
}

// UploadDocument 上传文档
// POST /api/documents (multipart: file, type, chassis, title, description)
func (h *Handler) UploadDocument(c *gin.Context) {
	maxBytes := h.documents.MaxBytes()
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes+multipartOverhead)

	header, err := c.FormFile("file")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			h.respondError(c, "upload document", service.ErrTooLarge)
			return
		}
		c.JSON(http.StatusBadRequest, gin.H{"error": "Missing file"})
		return
	}
	if header.Size > maxBytes {
		h.respondError(c, "upload document", service.ErrTooLarge)
		return
	}

	f, err := header.Open()
	if err != nil {
		h.respondError(c, "open upload", err)
		return
	}
	defer f.Close()

	content, err := io.ReadAll(io.LimitReader(f, maxBytes+1))
	if err != nil {
		h.respondError(c, "read upload", err)
		return
	}

	doc, err := h.documents.Upload(c.Request.Context(), service.DocumentInput{
		Type:          c.PostForm("type"),
		ChassisNumber: c.PostForm("chassis"),
		Title:         c.PostForm("title"),
		Description:   c.PostForm("description"),
		FileName:      header.Filename,
		Content:       content,
	}, currentUser(c))
	if err != nil {
		h.respondError(c, "upload document", err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"data": doc})
}

// DownloadDocument 下载文档
func (h *Handler) DownloadDocument(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	doc, err := h.documents.Get(c.Request.Context(), id)
	if err != nil {
		h.respondError(c, "get document", err)
		return
	}

	c.Header("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": doc.FileName}))
	c.Data(http.StatusOK, doc.ContentType, doc.Content)
}
