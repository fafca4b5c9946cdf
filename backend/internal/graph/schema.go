package graph

import (
	"context"

	"go.uber.org/zap"

	apperrors "kindred/backend/pkg/errors"
)

// PersonSchema declares the Person node type. Every statement is
// IF NOT EXISTS, so applying it to a store that already has it changes nothing.
// Relationships in Neo4j are traversable from both ends, which gives HAS_CHILD
// and PARTNER_OF their reverse lookups without extra declarations.
var PersonSchema = []string{
	`CREATE CONSTRAINT person_name_unique IF NOT EXISTS FOR (p:Person) REQUIRE p.name IS UNIQUE`,
	`CREATE CONSTRAINT person_uid_unique IF NOT EXISTS FOR (p:Person) REQUIRE p.uid IS UNIQUE`,
	`CREATE INDEX person_email IF NOT EXISTS FOR (p:Person) ON (p.email)`,
	`CREATE FULLTEXT INDEX person_terms IF NOT EXISTS FOR (p:Person) ON EACH [p.name, p.email]`,
}

// personSchemaDrops removes every object PersonSchema creates
var personSchemaDrops = []string{
	`DROP CONSTRAINT person_name_unique IF EXISTS`,
	`DROP CONSTRAINT person_uid_unique IF EXISTS`,
	`DROP INDEX person_email IF EXISTS`,
	`DROP INDEX person_terms IF EXISTS`,
}

// SchemaManager applies the Person schema at startup
type SchemaManager struct {
	store  Store
	logger *zap.Logger
}

// NewSchemaManager creates a schema manager for store
func NewSchemaManager(store Store, log *zap.Logger) *SchemaManager {
	return &SchemaManager{store: store, logger: log}
}

// ApplySchema verifies the store is reachable and applies PersonSchema.
// An unreachable store is reported as StoreUnavailable.
func (m *SchemaManager) ApplySchema(ctx context.Context) error {
	if err := m.store.VerifyConnectivity(ctx); err != nil {
		return apperrors.NewStoreUnavailable("verify connectivity", err)
	}

	if err := m.store.AlterSchema(ctx, PersonSchema); err != nil {
		return classify("apply schema", err)
	}

	m.logger.Info("Person schema applied", zap.Int("statements", len(PersonSchema)))
	return nil
}

// DropSchema removes the Person constraints and indexes. Data is untouched.
func (m *SchemaManager) DropSchema(ctx context.Context) error {
	if err := m.store.AlterSchema(ctx, personSchemaDrops); err != nil {
		return classify("drop schema", err)
	}

	m.logger.Warn("Person schema dropped", zap.Int("statements", len(personSchemaDrops)))
	return nil
}
