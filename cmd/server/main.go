package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/docsage-ai/docsage/internal/app"
	"github.com/docsage-ai/docsage/internal/queue"
	"github.com/docsage-ai/docsage/internal/server"
	mid "github.com/docsage-ai/docsage/internal/server/middleware"
	"github.com/docsage-ai/docsage/internal/status"
	"github.com/docsage-ai/docsage/internal/util"
	"github.com/docsage-ai/docsage/pkg/answercache"
	"github.com/docsage-ai/docsage/pkg/convo"
	"github.com/docsage-ai/docsage/pkg/fusion"
	"github.com/docsage-ai/docsage/pkg/index"
	"github.com/docsage-ai/docsage/pkg/logger"
	"github.com/docsage-ai/docsage/pkg/logger/console"
)

func main() {
	util.LoadEnv()

	logger.Init(console.NewConsoleLogger(console.ConsoleLoggerParams{
		Debug: util.GetEnvBool("DEBUG", false),
	}))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := app.RunMigrations(); err != nil {
		logger.Fatal("Failed to run migrations", "error", err)
	}

	pool, err := app.NewPgPool(ctx)
	if err != nil {
		logger.Fatal("Failed to connect to database", "error", err)
	}
	defer pool.Close()

	aiClient, err := app.NewAIClient()
	if err != nil {
		logger.Fatal("Failed to create AI client", "error", err)
	}

	graph, err := app.NewGraph(ctx)
	if err != nil {
		logger.Fatal("Failed to connect to graph store", "error", err)
	}
	if graph != nil {
		defer graph.Close(context.Background())
	}

	cache := answercache.New(app.NewRedis(ctx), answercache.DefaultTTL)
	statusStore := status.New(pool)

	engine := fusion.NewEngine(
		aiClient,
		index.New(pool, aiClient),
		graph,
		cache,
		convo.NewDetector(aiClient),
		statusStore,
	)

	mq, err := queue.Init()
	if err != nil {
		logger.Fatal("Failed to connect to rabbitmq", "error", err)
	}
	defer mq.Close()

	ch, err := mq.Channel()
	if err != nil {
		logger.Fatal("Failed to open channel", "error", err)
	}
	defer ch.Close()

	if err := queue.SetupQueues(ch); err != nil {
		logger.Fatal("Failed to declare queues", "error", err)
	}

	secret := util.GetEnv("JWT_SECRET")
	if secret == "" {
		logger.Fatal("JWT_SECRET must be set")
	}

	e := server.New(&mid.App{
		Engine:    engine,
		Status:    statusStore,
		Queue:     ch,
		JWTSecret: []byte(secret),
	})

	go func() {
		port := util.GetEnvString("PORT", "8080")
		logger.Info("Starting server", "port", port)
		if err := e.Start(":" + port); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Server stopped", "error", err)
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		logger.Error("Failed to shut down server", "error", err)
	}
}
