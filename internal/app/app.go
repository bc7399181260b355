// Package app builds the shared infrastructure clients both binaries
// need: database pool with migrations, AI provider, redis, graph store.
package app

import (
	"context"
	"errors"
	"fmt"

	"github.com/docsage-ai/docsage/internal/util"
	"github.com/docsage-ai/docsage/pkg/ai"
	"github.com/docsage-ai/docsage/pkg/ai/ollama"
	"github.com/docsage-ai/docsage/pkg/ai/openai"
	"github.com/docsage-ai/docsage/pkg/graphstore"
	"github.com/docsage-ai/docsage/pkg/logger"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	pgxvec "github.com/pgvector/pgvector-go/pgx"
	"github.com/redis/go-redis/v9"
)

// NewAIClient selects the capability provider by AI_ADAPTER
// (openai is the default, ollama for local hosting).
func NewAIClient() (ai.CapabilityClient, error) {
	switch util.GetEnvString("AI_ADAPTER", "openai") {
	case "ollama":
		return ollama.NewClient(ollama.NewClientParams{
			CompletionModel: util.GetEnv("AI_CHAT_MODEL"),
			ExtractionModel: util.GetEnv("AI_EXTRACT_MODEL"),
			EmbeddingModel:  util.GetEnv("AI_EMBED_MODEL"),
			VisionModel:     util.GetEnv("AI_VISION_MODEL"),
			BaseURL:         util.GetEnv("AI_CHAT_URL"),
			APIKey:          util.GetEnv("AI_CHAT_KEY"),
		})
	case "openai":
		return openai.NewClient(openai.NewClientParams{
			CompletionModel: util.GetEnv("AI_CHAT_MODEL"),
			ExtractionModel: util.GetEnv("AI_EXTRACT_MODEL"),
			EmbeddingModel:  util.GetEnv("AI_EMBED_MODEL"),
			VisionModel:     util.GetEnv("AI_VISION_MODEL"),
			ChatURL:         util.GetEnv("AI_CHAT_URL"),
			ChatKey:         util.GetEnv("AI_CHAT_KEY"),
			EmbeddingURL:    util.GetEnv("AI_EMBED_URL"),
			EmbeddingKey:    util.GetEnv("AI_EMBED_KEY"),
			VisionURL:       util.GetEnv("AI_VISION_URL"),
			VisionKey:       util.GetEnv("AI_VISION_KEY"),
		}), nil
	default:
		return nil, fmt.Errorf("unknown AI_ADAPTER %q", util.GetEnv("AI_ADAPTER"))
	}
}

// NewPgPool connects the pgx pool with pgvector types registered on
// every connection.
func NewPgPool(ctx context.Context) (*pgxpool.Pool, error) {
	cfg, err := pgxpool.ParseConfig(util.GetEnv("DATABASE_URL"))
	if err != nil {
		return nil, fmt.Errorf("invalid DATABASE_URL: %w", err)
	}
	cfg.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
		return pgxvec.RegisterTypes(ctx, conn)
	}

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("database unreachable: %w", err)
	}
	return pool, nil
}

// RunMigrations applies the SQL migrations. An up-to-date schema is not
// an error.
func RunMigrations() error {
	dir := util.GetEnvString("MIGRATIONS_DIR", "db/migrations")
	m, err := migrate.New("file://"+dir, util.GetEnv("DATABASE_URL"))
	if err != nil {
		return fmt.Errorf("failed to open migrations: %w", err)
	}
	defer m.Close()

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("migration failed: %w", err)
	}
	return nil
}

// NewRedis connects the answer cache backend. An empty REDIS_ADDR
// disables caching.
func NewRedis(ctx context.Context) *redis.Client {
	addr := util.GetEnv("REDIS_ADDR")
	if addr == "" {
		logger.Warn("REDIS_ADDR not set, answer caching disabled")
		return nil
	}

	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: util.GetEnv("REDIS_PASSWORD"),
		DB:       int(util.GetEnvNumeric("REDIS_DB", 0)),
	})
	if err := client.Ping(ctx).Err(); err != nil {
		logger.Warn("redis unreachable, answer caching disabled", "error", err)
		return nil
	}
	return client
}

// NewGraph opens the graph store and applies its schema. An unset
// NEO4J_URI disables the graph; queries then run vector-only.
func NewGraph(ctx context.Context) (*graphstore.Store, error) {
	store, err := graphstore.Open(ctx, graphstore.Params{
		URI:      util.GetEnv("NEO4J_URI"),
		User:     util.GetEnv("NEO4J_USER"),
		Password: util.GetEnv("NEO4J_PASSWORD"),
		Database: util.GetEnv("NEO4J_DATABASE"),
	})
	if err != nil {
		return nil, err
	}
	if store == nil {
		logger.Warn("NEO4J_URI not set, graph features disabled")
		return nil, nil
	}

	if err := store.EnsureSchema(ctx); err != nil {
		logger.Warn("graph schema setup incomplete", "error", err)
	}
	return store, nil
}
