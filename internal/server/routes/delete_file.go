package routes

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/docsage-ai/docsage/internal/queue"
	"github.com/docsage-ai/docsage/internal/server/middleware"
	"github.com/docsage-ai/docsage/internal/status"
	"github.com/docsage-ai/docsage/internal/storage"
	"github.com/docsage-ai/docsage/pkg/common"
	"github.com/docsage-ai/docsage/pkg/logger"

	"github.com/labstack/echo/v4"
)

// DeleteFileHandler enqueues the removal of one file from every store.
// The deletion itself runs on the worker; this only verifies ownership
// and hands the job off.
func DeleteFileHandler(c echo.Context) error {
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
		logger.Error("[Server] delete lookup failed", "file_id", fileID, "error", err)
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "Internal server error"})
	}

	msg := queue.DeleteMsg{
		Document: common.Document{
			FileID:     fileStatus.FileID,
			FolderID:   fileStatus.FolderID,
			OwnerID:    fileStatus.OwnerID,
			SourceName: fileStatus.SourceName,
		},
		ObjectKey: storage.ObjectKey(fileStatus.OwnerID, fileStatus.FolderID, fileStatus.FileID, fileStatus.SourceName),
	}
	body, err := json.Marshal(msg)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "Internal server error"})
	}

	if err := queue.Publish(app.Queue, queue.DeleteQueue, body); err != nil {
		logger.Error("[Server] failed to enqueue delete", "file_id", fileID, "error", err)
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "Internal server error"})
	}

	return c.JSON(http.StatusAccepted, map[string]string{"message": "Deletion queued"})
}
