package routes

import (
	"errors"
	"net/http"

	"github.com/docsage-ai/docsage/internal/server/middleware"
	"github.com/docsage-ai/docsage/internal/status"
	"github.com/docsage-ai/docsage/pkg/logger"

	"github.com/labstack/echo/v4"
)

// FolderStatusHandler reports the readiness aggregation of one folder.
func FolderStatusHandler(c echo.Context) error {
	folderID := c.Param("folder")
	if folderID == "" {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Missing folder id"})
	}

	app := c.(*middleware.AppContext).App
	user := c.(*middleware.AppContext).User

	readiness, err := app.Status.Folder(c.Request().Context(), user.OwnerID, folderID)
	if err != nil {
		logger.Error("[Server] folder status failed", "folder_id", folderID, "error", err)
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "Internal server error"})
	}

	return c.JSON(http.StatusOK, readiness)
}

// FileStatusHandler reports the ingestion state of one file.
func FileStatusHandler(c echo.Context) error {
	fileID := c.Param("file")
	if fileID == "" {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Missing file id"})
	}

	app := c.(*middleware.AppContext).App
	user := c.(*middleware.AppContext).User

	fileStatus, err := app.Status.Get(c.Request().Context(), user.OwnerID, fileID)
	if err != nil {
		if errors.Is(err, status.ErrNotFound) {
			return c.JSON(http.StatusNotFound, map[string]string{"error": "File not found"})
		}
		logger.Error("[Server] file status failed", "file_id", fileID, "error", err)
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "Internal server error"})
	}

	return c.JSON(http.StatusOK, fileStatus)
}
