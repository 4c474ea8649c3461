package handler

import (
	"context"
	"io"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	app "github.com/erp/pdfonsubmit/internal/application/attachment"
	domain "github.com/erp/pdfonsubmit/internal/domain/attachment"
	"github.com/erp/pdfonsubmit/internal/infrastructure/logger"
	"github.com/erp/pdfonsubmit/internal/interfaces/http/dto"
)

// FileQuery reads stored attachments
type FileQuery interface {
	ListAttachments(ctx context.Context, docType domain.DocType, name string) ([]app.FileResponse, error)
	GetFile(ctx context.Context, id uuid.UUID) (*app.FileResponse, error)
	OpenFile(ctx context.Context, id uuid.UUID) (*app.FileResponse, io.ReadCloser, error)
	DocTypes() []app.DocTypeResponse
}

// FileHandler serves attachments and the document type catalogue
type FileHandler struct {
	BaseHandler
	query FileQuery
}

// NewFileHandler creates a new FileHandler
func NewFileHandler(query FileQuery) *FileHandler {
	return &FileHandler{query: query}
}

type listFilesQuery struct {
	DocType string `form:"doctype" binding:"required"`
	Name    string `form:"name" binding:"required"`
}

// List godoc
// @Summary      List files attached to a document
// @Tags         files
// @Produce      json
// @Param        doctype  query  string  true  "Document type"
// @Param        name     query  string  true  "Document name"
// @Router       /files [get]
func (h *FileHandler) List(c *gin.Context) {
	var q listFilesQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		h.Error(c, http.StatusBadRequest, dto.ErrCodeValidationRequired, "doctype and name are required")
		return
	}
	docType, ok := domain.ParseDocType(q.DocType)
	if !ok {
		h.Error(c, http.StatusBadRequest, dto.ErrCodeInvalidDocType, "Unsupported document type: "+q.DocType)
		return
	}
	files, err := h.query.ListAttachments(c.Request.Context(), docType, q.Name)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, files)
}

// Get godoc
// @Summary      Get one file record
// @Tags         files
// @Produce      json
// @Param        id  path  string  true  "File ID"
// @Router       /files/{id} [get]
func (h *FileHandler) Get(c *gin.Context) {
	id, ok := h.parseID(c)
	if !ok {
		return
	}
	file, err := h.query.GetFile(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, file)
}

// Content godoc
// @Summary      Download the PDF
// @Tags         files
// @Produce      application/pdf
// @Param        id  path  string  true  "File ID"
// @Router       /files/{id}/content [get]
func (h *FileHandler) Content(c *gin.Context) {
	id, ok := h.parseID(c)
	if !ok {
		return
	}
	file, body, err := h.query.OpenFile(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	defer func() {
		if cerr := body.Close(); cerr != nil {
			logger.GetGinLogger(c).Warn("failed to close file content", zap.Error(cerr))
		}
	}()

	c.DataFromReader(http.StatusOK, file.FileSize, "application/pdf", body, map[string]string{
		"Content-Disposition": `attachment; filename="` + file.FileName + `"`,
		"X-Content-Hash":      file.ContentHash,
		"X-Page-Count":        strconv.Itoa(file.PageCount),
	})
}

// DocTypes godoc
// @Summary      List supported document types
// @Tags         doctypes
// @Produce      json
// @Router       /doctypes [get]
func (h *FileHandler) DocTypes(c *gin.Context) {
	h.Success(c, h.query.DocTypes())
}
