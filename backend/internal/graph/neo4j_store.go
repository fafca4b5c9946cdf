package graph

import (
	"context"
	"fmt"
	"time"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"go.uber.org/zap"
)

// StoreConfig holds Neo4j connection settings
type StoreConfig struct {
	URI       string
	Username  string
	Password  string
	Database  string
	TxTimeout time.Duration
}

// Neo4jStore implements Store on the Neo4j Bolt driver
type Neo4jStore struct {
	driver    neo4j.DriverWithContext
	database  string
	txTimeout time.Duration
	logger    *zap.Logger
}

// NewNeo4jStore creates a driver for cfg. It does not dial; use
// VerifyConnectivity to check the store is reachable.
func NewNeo4jStore(cfg StoreConfig, log *zap.Logger) (*Neo4jStore, error) {
	driver, err := neo4j.NewDriverWithContext(cfg.URI, neo4j.BasicAuth(cfg.Username, cfg.Password, ""))
	if err != nil {
		return nil, fmt.Errorf("failed to create Neo4j driver: %w", err)
	}

	return &Neo4jStore{
		driver:    driver,
		database:  cfg.Database,
		txTimeout: cfg.TxTimeout,
		logger:    log,
	}, nil
}

// VerifyConnectivity checks if the database is reachable
func (s *Neo4jStore) VerifyConnectivity(ctx context.Context) error {
	return s.driver.VerifyConnectivity(ctx)
}

// Close closes the driver connection pool
func (s *Neo4jStore) Close(ctx context.Context) error {
	return s.driver.Close(ctx)
}

func (s *Neo4jStore) session(ctx context.Context, mode AccessMode) neo4j.SessionWithContext {
	accessMode := neo4j.AccessModeRead
	if mode == AccessModeWrite {
		accessMode = neo4j.AccessModeWrite
	}
	return s.driver.NewSession(ctx, neo4j.SessionConfig{
		AccessMode:   accessMode,
		DatabaseName: s.database,
	})
}

// BeginTx opens a session and an explicit transaction on it
func (s *Neo4jStore) BeginTx(ctx context.Context, mode AccessMode) (Tx, error) {
	session := s.session(ctx, mode)

	var configurers []func(*neo4j.TransactionConfig)
	if s.txTimeout > 0 {
		configurers = append(configurers, neo4j.WithTxTimeout(s.txTimeout))
	}

	tx, err := session.BeginTransaction(ctx, configurers...)
	if err != nil {
		_ = session.Close(ctx)
		return nil, err
	}

	return &neo4jTx{session: session, tx: tx}, nil
}

// AlterSchema runs each schema statement in its own auto-commit transaction.
// Schema and data writes cannot share a Neo4j transaction.
func (s *Neo4jStore) AlterSchema(ctx context.Context, statements []string) error {
	session := s.session(ctx, AccessModeWrite)
	defer session.Close(ctx)

	for _, stmt := range statements {
		result, err := session.Run(ctx, stmt, nil)
		if err != nil {
			return err
		}
		if _, err := result.Consume(ctx); err != nil {
			return err
		}
		s.logger.Debug("Schema statement applied", zap.String("statement", stmt))
	}
	return nil
}

type neo4jTx struct {
	session neo4j.SessionWithContext
	tx      neo4j.ExplicitTransaction
	closed  bool
}

func (t *neo4jTx) Run(ctx context.Context, statement string, params map[string]any) ([]Record, error) {
	result, err := t.tx.Run(ctx, statement, params)
	if err != nil {
		return nil, err
	}

	records, err := result.Collect(ctx)
	if err != nil {
		return nil, err
	}

	rows := make([]Record, 0, len(records))
	for _, record := range records {
		rows = append(rows, record.AsMap())
	}
	return rows, nil
}

func (t *neo4jTx) Commit(ctx context.Context) error {
	return t.tx.Commit(ctx)
}

// Discard rolls back an uncommitted transaction and releases the session.
// Closing an already committed transaction is a no-op in the driver.
func (t *neo4jTx) Discard(ctx context.Context) error {
	if t.closed {
		return nil
	}
	t.closed = true

	txErr := t.tx.Close(ctx)
	sessionErr := t.session.Close(ctx)
	if txErr != nil {
		return txErr
	}
	return sessionErr
}
