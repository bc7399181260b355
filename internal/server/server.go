// Package server exposes the query and status API over echo.
package server

import (
	mid "github.com/docsage-ai/docsage/internal/server/middleware"
	"github.com/docsage-ai/docsage/internal/server/routes"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
)

type CustomValidator struct {
	validator *validator.Validate
}

func (cv *CustomValidator) Validate(i any) error {
	return cv.validator.Struct(i)
}

// New builds the echo instance with middleware and routes over the
// given dependency bundle.
func New(app *mid.App) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.Validator = &CustomValidator{validator: validator.New()}

	e.Use(mid.AppContextMiddleware(app))
	e.Use(middleware.CORS())
	e.Use(middleware.Recover())
	e.Use(middleware.BodyLimit("1M"))

	registerRoutes(e)
	return e
}

func registerRoutes(e *echo.Echo) {
	e.GET("/health", func(c echo.Context) error {
		return c.String(200, "OK")
	})

	api := e.Group("/api", mid.AuthMiddleware)
	api.POST("/query", routes.QueryHandler)
	api.POST("/ingest", routes.IngestHandler)
	api.GET("/status/:folder", routes.FolderStatusHandler)
	api.GET("/status/file/:file", routes.FileStatusHandler)
	api.DELETE("/files/:file", routes.DeleteFileHandler)
}
