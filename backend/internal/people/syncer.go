package people

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"kindred/backend/internal/auth"
	"kindred/backend/internal/graph"
	apperrors "kindred/backend/pkg/errors"
)

// Upserter stores a person by name, merging non-empty fields
type Upserter interface {
	UpsertByName(ctx context.Context, person graph.Person) (*graph.Person, error)
}

// Syncer keeps a Person node in step with each authenticated identity
type Syncer struct {
	people Upserter
	logger *zap.Logger
}

// NewSyncer creates a new identity syncer
func NewSyncer(people Upserter, log *zap.Logger) *Syncer {
	return &Syncer{people: people, logger: log}
}

// SyncIdentity ensures exactly one node exists for id and returns it. The
// projected skeleton has no relationship fields and only non-empty scalars
// are merged, so repeated calls change nothing.
func (s *Syncer) SyncIdentity(ctx context.Context, id *auth.Identity) (*graph.Person, error) {
	if id == nil {
		return nil, apperrors.NewValidation("identity", "identity is required")
	}

	skeleton := Project(*id)
	if strings.TrimSpace(skeleton.Name) == "" {
		return nil, apperrors.NewValidation("name", "identity carries no name")
	}

	person, err := s.people.UpsertByName(ctx, skeleton)
	if err != nil {
		s.logger.Error("Failed to sync identity",
			zap.String("sub", id.Subject),
			zap.String("name", skeleton.Name),
			zap.Error(err),
		)
		return nil, err
	}

	s.logger.Debug("Identity synced", zap.String("sub", id.Subject), zap.String("name", person.Name))
	return person, nil
}

// Project maps an identity onto a Person skeleton
func Project(id auth.Identity) graph.Person {
	return graph.Person{
		Sub:       id.Subject,
		Name:      id.DisplayName(),
		Email:     id.Email,
		CreatedBy: id.Email,
		Username:  localPart(id.Email),
	}
}

func localPart(email string) string {
	local, _, _ := strings.Cut(email, "@")
	return local
}
