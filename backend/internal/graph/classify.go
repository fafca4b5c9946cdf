package graph

import (
	"context"
	"errors"
	"fmt"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	apperrors "kindred/backend/pkg/errors"
)

// classify maps a store error onto the repository's error kinds. Errors that
// already carry a kind pass through unchanged.
func classify(operation string, err error) error {
	if err == nil {
		return nil
	}
	if apperrors.KindOf(err) != "" {
		return err
	}
	if isUnavailable(err) {
		return apperrors.NewStoreUnavailable(operation, err)
	}
	return fmt.Errorf("%s: %w", operation, err)
}

// isUnavailable is false for context.Canceled: the caller gave up, the store
// did not fail.
func isUnavailable(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	if neo4j.IsConnectivityError(err) || neo4j.IsTransactionExecutionLimit(err) {
		return true
	}
	var dbErr *neo4j.Neo4jError
	if errors.As(err, &dbErr) {
		// Transient errors cover leader switches, deadlocks and server-side
		// transaction timeouts.
		return dbErr.Classification() == "TransientError"
	}
	return false
}
