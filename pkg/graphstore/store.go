// Package graphstore maintains the knowledge graph: Document, Chunk and
// Entity nodes with CONTAINS, MENTIONS and RELATES edges, upserted with
// confidence-aware MERGE statements and cleaned up when files are
// deleted or confidence drops.
package graphstore

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/docsage-ai/docsage/pkg/logger"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
)

// ErrUnavailable is returned when the graph backend is not connected.
// Callers degrade to vector-only operation instead of failing.
var ErrUnavailable = errors.New("graph store unavailable")

// healthInterval is how long a connectivity verdict is trusted before
// the next call re-checks.
const healthInterval = 30 * time.Second

// Store is the injected graph handle: opened at process start, health
// checked lazily, closed at shutdown.
type Store struct {
	driver   neo4j.DriverWithContext
	database string

	healthMu    sync.Mutex
	healthy     bool
	lastChecked time.Time
}

// Params configures the graph connection.
type Params struct {
	URI      string
	User     string
	Password string
	Database string

	TimeoutSec int
}

// Open connects to the graph backend. An empty URI returns a nil store,
// which every method treats as the graph being disabled.
func Open(ctx context.Context, params Params) (*Store, error) {
	if params.URI == "" {
		return nil, nil
	}

	timeout := params.TimeoutSec
	if timeout <= 0 {
		timeout = 10
	}

	driver, err := neo4j.NewDriverWithContext(
		params.URI,
		neo4j.BasicAuth(params.User, params.Password, ""),
		func(cfg *neo4j.Config) {
			cfg.SocketConnectTimeout = time.Duration(timeout) * time.Second
		},
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create graph driver: %w", err)
	}

	return &Store{
		driver:   driver,
		database: params.Database,
	}, nil
}

// Available reports whether the graph backend currently responds. The
// verdict is cached so queries do not pay a connectivity round trip
// each time.
func (s *Store) Available(ctx context.Context) bool {
	if s == nil || s.driver == nil {
		return false
	}

	s.healthMu.Lock()
	defer s.healthMu.Unlock()

	if time.Since(s.lastChecked) < healthInterval {
		return s.healthy
	}

	err := s.driver.VerifyConnectivity(ctx)
	s.healthy = err == nil
	s.lastChecked = time.Now()
	if err != nil {
		logger.Warn("[Graph] backend unavailable", "error", err)
	}
	return s.healthy
}

// Close shuts the driver down.
func (s *Store) Close(ctx context.Context) error {
	if s == nil || s.driver == nil {
		return nil
	}
	return s.driver.Close(ctx)
}

// EnsureSchema creates the uniqueness constraint on Entity name and the
// lookup indexes. Statements are idempotent; individual failures are
// logged and skipped so a partially initialized schema does not block
// ingestion.
func (s *Store) EnsureSchema(ctx context.Context) error {
	if s == nil || s.driver == nil {
		return ErrUnavailable
	}

	session := s.writeSession(ctx)
	defer session.Close(ctx)

	statements := []string{
		`CREATE CONSTRAINT entity_name_unique IF NOT EXISTS FOR (e:Entity) REQUIRE e.name_key IS UNIQUE`,
		`CREATE CONSTRAINT document_file_unique IF NOT EXISTS FOR (d:Document) REQUIRE d.file_id IS UNIQUE`,
		`CREATE INDEX entity_type_idx IF NOT EXISTS FOR (e:Entity) ON (e.type)`,
		`CREATE INDEX chunk_file_idx IF NOT EXISTS FOR (c:Chunk) ON (c.file_id)`,
	}

	for _, stmt := range statements {
		res, err := session.Run(ctx, stmt, nil)
		if err != nil {
			logger.Warn("[Graph] schema statement failed", "error", err)
			continue
		}
		if _, err := res.Consume(ctx); err != nil {
			logger.Warn("[Graph] schema statement failed", "error", err)
		}
	}

	return nil
}

func (s *Store) writeSession(ctx context.Context) neo4j.SessionWithContext {
	return s.driver.NewSession(ctx, neo4j.SessionConfig{
		AccessMode:   neo4j.AccessModeWrite,
		DatabaseName: s.database,
	})
}

func (s *Store) readSession(ctx context.Context) neo4j.SessionWithContext {
	return s.driver.NewSession(ctx, neo4j.SessionConfig{
		AccessMode:   neo4j.AccessModeRead,
		DatabaseName: s.database,
	})
}

func runConsume(ctx context.Context, tx neo4j.ManagedTransaction, cypher string, params map[string]any) error {
	res, err := tx.Run(ctx, cypher, params)
	if err != nil {
		return err
	}
	_, err = res.Consume(ctx)
	return err
}
