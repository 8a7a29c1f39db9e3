// handlers_files.go - Generated artifact handlers
package api

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/f1-visualizer/backend/internal/storage"
)

// FilesHandlerImpl implements the FilesHandler interface
type FilesHandlerImpl struct {
	store storage.Store
}

// NewFilesHandler creates a new files handler instance
func NewFilesHandler(store storage.Store) FilesHandler {
	return &FilesHandlerImpl{store: store}
}

// HandleGetRecentFiles returns the most recent artifacts
func (h *FilesHandlerImpl) HandleGetRecentFiles(c echo.Context) error {
	limit, _ := strconv.Atoi(c.QueryParam("limit"))
	if limit < 1 || limit > 100 {
		limit = 20
	}

	files, err := h.store.List(limit)
	if err != nil {
		return NewInternalError("listing artifacts", err)
	}

	return c.JSON(http.StatusOK, files)
}

// HandleGetFile returns artifact metadata
func (h *FilesHandlerImpl) HandleGetFile(c echo.Context) error {
	id := c.Param("id")
	if id == "" {
		return NewValidationError("id")
	}

	info, err := h.store.Get(id)
	if err != nil {
		return NewNotFoundError("file", id)
	}

	return c.JSON(http.StatusOK, info)
}

// HandleDownloadFile streams an artifact's content
func (h *FilesHandlerImpl) HandleDownloadFile(c echo.Context) error {
	id := c.Param("id")
	if id == "" {
		return NewValidationError("id")
	}

	info, err := h.store.Get(id)
	if err != nil {
		return NewNotFoundError("file", id)
	}
	path, err := h.store.GetFilePath(id)
	if err != nil {
		return NewNotFoundError("file", id)
	}

	return c.Attachment(path, info.Name)
}

type renameFileRequest struct {
	Name string `json:"name"`
}

// HandleRenameFile updates the display name of an artifact
func (h *FilesHandlerImpl) HandleRenameFile(c echo.Context) error {
	id := c.Param("id")
	if id == "" {
		return NewValidationError("id")
	}

	var req renameFileRequest
	if err := c.Bind(&req); err != nil {
		return NewBadRequestError("invalid request body", err)
	}
	if req.Name == "" {
		return NewValidationError("name")
	}

	info, err := h.store.Rename(id, req.Name)
	if err != nil {
		return NewNotFoundError("file", id)
	}

	return c.JSON(http.StatusOK, info)
}

// HandleDeleteFile removes an artifact
func (h *FilesHandlerImpl) HandleDeleteFile(c echo.Context) error {
	id := c.Param("id")
	if id == "" {
		return NewValidationError("id")
	}

	if err := h.store.Delete(id); err != nil {
		return NewNotFoundError("file", id)
	}

	return c.NoContent(http.StatusNoContent)
}
