package handler

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	app "github.com/erp/pdfonsubmit/internal/application/attachment"
	"github.com/erp/pdfonsubmit/internal/interfaces/http/middleware"
)

// JobQuery lists and fetches attachment jobs
type JobQuery interface {
	ListJobs(ctx context.Context, req app.ListJobsRequest) (*app.ListJobsResponse, error)
	GetJob(ctx context.Context, id uuid.UUID) (*app.JobResponse, error)
}

// JobHandler serves the job endpoints
type JobHandler struct {
	BaseHandler
	query JobQuery
}

// NewJobHandler creates a new JobHandler
func NewJobHandler(query JobQuery) *JobHandler {
	return &JobHandler{query: query}
}

// List godoc
// @Summary      List attachment jobs
// @Tags         jobs
// @Produce      json
// @Param        page       query  int     false  "Page"
// @Param        page_size  query  int     false  "Page size"
// @Param        doctype    query  string  false  "Document type"
// @Param        status     query  string  false  "queued, completed or failed"
// @Router       /jobs [get]
func (h *JobHandler) List(c *gin.Context) {
	var req app.ListJobsRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		middleware.HandleValidationError(c, err)
		return
	}
	resp, err := h.query.ListJobs(c.Request.Context(), req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.SuccessWithMeta(c, resp.Items, resp.Total, resp.Page, resp.Size)
}

// Get godoc
// @Summary      Get one attachment job
// @Tags         jobs
// @Produce      json
// @Param        id  path  string  true  "Job ID"
// @Router       /jobs/{id} [get]
func (h *JobHandler) Get(c *gin.Context) {
	id, ok := h.parseID(c)
	if !ok {
		return
	}
	job, err := h.query.GetJob(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, job)
}
