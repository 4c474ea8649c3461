package handler

import (
	"context"

	app "github.com/erp/pdfonsubmit/internal/application/attachment"
	"github.com/gin-gonic/gin"
)

// FolderQuery lists folders
type FolderQuery interface {
	ListFolders(ctx context.Context, parent string) ([]app.FolderResponse, error)
}

// FolderHandler serves the folder tree
type FolderHandler struct {
	BaseHandler
	query FolderQuery
}

// NewFolderHandler creates a new FolderHandler
func NewFolderHandler(query FolderQuery) *FolderHandler {
	return &FolderHandler{query: query}
}

// List godoc
// @Summary      List the children of a folder
// @Tags         folders
// @Produce      json
// @Param        parent  query  string  false  "Parent path, default Home"
// @Router       /folders [get]
func (h *FolderHandler) List(c *gin.Context) {
	folders, err := h.query.ListFolders(c.Request.Context(), c.Query("parent"))
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, folders)
}
