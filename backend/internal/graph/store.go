package graph

import (
	"context"
)

// AccessMode selects a read-only or read-write transaction
type AccessMode int

const (
	AccessModeRead AccessMode = iota
	AccessModeWrite
)

func (m AccessMode) String() string {
	if m == AccessModeWrite {
		return "write"
	}
	return "read"
}

// Record is one result row keyed by column name
type Record = map[string]any

// Store is a transactional property-graph connection. Implementations must be
// safe for concurrent use by many in-flight transactions.
type Store interface {
	BeginTx(ctx context.Context, mode AccessMode) (Tx, error)
	AlterSchema(ctx context.Context, statements []string) error
	VerifyConnectivity(ctx context.Context) error
	Close(ctx context.Context) error
}

// Tx is a single store transaction. Discard must be called on every exit
// path and is a no-op after Commit.
type Tx interface {
	Run(ctx context.Context, statement string, params map[string]any) ([]Record, error)
	Commit(ctx context.Context) error
	Discard(ctx context.Context) error
}
