package routes

import (
	"errors"
	"net/http"

	"github.com/docsage-ai/docsage/internal/server/middleware"
	"github.com/docsage-ai/docsage/pkg/common"
	"github.com/docsage-ai/docsage/pkg/convo"
	"github.com/docsage-ai/docsage/pkg/fusion"
	"github.com/docsage-ai/docsage/pkg/logger"

	"github.com/labstack/echo/v4"
)

// QueryHandler answers one question within the caller's scope.
func QueryHandler(c echo.Context) error {
	type queryBody struct {
		Query      string `json:"query" validate:"required,min=1,max=4000"`
		FolderID   string `json:"folder_id,omitempty"`
		FileID     string `json:"file_id,omitempty"`
		PrevQuery  string `json:"prev_query,omitempty"`
		PrevAnswer string `json:"prev_answer,omitempty"`
	}

	data := new(queryBody)
	if err := c.Bind(data); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid request body"})
	}
	if err := c.Validate(data); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid request body"})
	}

	app := c.(*middleware.AppContext).App
	user := c.(*middleware.AppContext).User
	if user == nil {
		return c.JSON(http.StatusUnauthorized, map[string]string{"error": "Unauthorized"})
	}

	req := fusion.Request{
		Query: data.Query,
		Scope: common.Scope{
			OwnerID:  user.OwnerID,
			FolderID: data.FolderID,
			FileID:   data.FileID,
		},
	}
	if data.PrevQuery != "" {
		req.PrevTurn = &convo.Turn{Query: data.PrevQuery, Answer: data.PrevAnswer}
	}

	resp, err := app.Engine.Answer(c.Request().Context(), req, fusion.DefaultThresholds())
	if err != nil {
		if errors.Is(err, fusion.ErrUnauthorized) {
			return c.JSON(http.StatusForbidden, map[string]string{"error": "Forbidden"})
		}
		logger.Error("[Server] query failed", "owner_id", user.OwnerID, "error", err)
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "Internal server error"})
	}

	return c.JSON(http.StatusOK, resp)
}
