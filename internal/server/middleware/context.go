package middleware

import (
	"github.com/docsage-ai/docsage/internal/status"
	"github.com/docsage-ai/docsage/pkg/fusion"

	"github.com/labstack/echo/v4"
	"github.com/rabbitmq/amqp091-go"
)

// App bundles the shared dependencies handlers pull from the request
// context.
type App struct {
	Engine    *fusion.Engine
	Status    *status.Store
	Queue     *amqp091.Channel
	JWTSecret []byte
}

// AppUser is the authenticated caller, established by AuthMiddleware.
type AppUser struct {
	OwnerID string
}

// AppContext wraps the echo context with the app dependencies and the
// authenticated user.
type AppContext struct {
	echo.Context
	App  *App
	User *AppUser
}

// AppContextMiddleware installs the dependency bundle on every request.
func AppContextMiddleware(app *App) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			return next(&AppContext{Context: c, App: app})
		}
	}
}
