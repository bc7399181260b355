package routes

import (
	"encoding/json"
	"net/http"

	"github.com/docsage-ai/docsage/internal/queue"
	"github.com/docsage-ai/docsage/internal/server/middleware"
	"github.com/docsage-ai/docsage/internal/storage"
	"github.com/docsage-ai/docsage/pkg/common"
	"github.com/docsage-ai/docsage/pkg/detect"
	"github.com/docsage-ai/docsage/pkg/logger"

	"github.com/labstack/echo/v4"
)

// IngestHandler enqueues the ingestion of an already-uploaded blob.
// The owner comes from the token, never the payload, so a caller cannot
// ingest into someone else's namespace. Unsupported file types are
// rejected here instead of silently skipped by the worker.
func IngestHandler(c echo.Context) error {
	type ingestBody struct {
		FileID      string `json:"file_id" validate:"required"`
		FolderID    string `json:"folder_id,omitempty"`
		SourceName  string `json:"source_name" validate:"required"`
		ContentType string `json:"content_type,omitempty"`
	}

	data := new(ingestBody)
	if err := c.Bind(data); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid request body"})
	}
	if err := c.Validate(data); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid request body"})
	}

	category := detect.Detect(data.SourceName, data.ContentType)
	if !detect.Supported(category) {
		return c.JSON(http.StatusUnprocessableEntity, map[string]string{"error": "Unsupported file type"})
	}

	app := c.(*middleware.AppContext).App
	user := c.(*middleware.AppContext).User

	msg := queue.IngestMsg{
		Document: common.Document{
			FileID:     data.FileID,
			FolderID:   data.FolderID,
			OwnerID:    user.OwnerID,
			SourceName: data.SourceName,
			Category:   category,
		},
		ObjectKey:   storage.ObjectKey(user.OwnerID, data.FolderID, data.FileID, data.SourceName),
		ContentType: data.ContentType,
	}
	body, err := json.Marshal(msg)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "Internal server error"})
	}

	if err := queue.Publish(app.Queue, queue.IngestQueue, body); err != nil {
		logger.Error("[Server] failed to enqueue ingest", "file_id", data.FileID, "error", err)
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "Internal server error"})
	}

	return c.JSON(http.StatusAccepted, map[string]string{"message": "Ingestion queued"})
}
