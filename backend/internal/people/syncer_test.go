package people

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"kindred/backend/internal/auth"
	"kindred/backend/internal/graph"
	apperrors "kindred/backend/pkg/errors"
)

// memPeople merges non-empty scalars by name, like the graph repository
type memPeople struct {
	mu     sync.Mutex
	byName map[string]*graph.Person
	calls  []graph.Person
	err    error
}

func newMemPeople() *memPeople {
	return &memPeople{byName: make(map[string]*graph.Person)}
}

func (m *memPeople) UpsertByName(ctx context.Context, p graph.Person) (*graph.Person, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, p)
	if m.err != nil {
		return nil, m.err
	}

	stored, ok := m.byName[p.Name]
	if !ok {
		stored = &graph.Person{Name: p.Name, UID: "uid-" + p.Name}
		m.byName[p.Name] = stored
	}
	merge(&stored.Sub, p.Sub)
	merge(&stored.Email, p.Email)
	merge(&stored.CreatedBy, p.CreatedBy)
	merge(&stored.Username, p.Username)
	merge(&stored.Gender, p.Gender)
	copied := *stored
	return &copied, nil
}

func merge(dst *string, src string) {
	if src != "" {
		*dst = src
	}
}

func TestProject(t *testing.T) {
	p := Project(auth.Identity{
		Subject:           "sub-1",
		Email:             "ana.lima@example.com",
		PreferredUsername: "ana",
		Name:              "Ana Lima",
	})

	assert.Equal(t, "Ana Lima", p.Name)
	assert.Equal(t, "sub-1", p.Sub)
	assert.Equal(t, "ana.lima@example.com", p.Email)
	assert.Equal(t, "ana.lima@example.com", p.CreatedBy)
	assert.Equal(t, "ana.lima", p.Username)
	assert.False(t, p.HasRelations())
	assert.Empty(t, p.UID)
}

func TestProject_NoEmail(t *testing.T) {
	p := Project(auth.Identity{Subject: "sub-1", PreferredUsername: "ana"})

	assert.Equal(t, "ana", p.Name)
	assert.Empty(t, p.Username)
	assert.Empty(t, p.CreatedBy)
}

func TestSyncIdentity_Idempotent(t *testing.T) {
	store := newMemPeople()
	s := NewSyncer(store, zap.NewNop())
	id := &auth.Identity{Subject: "sub-1", Email: "ana@example.com", Name: "Ana"}

	first, err := s.SyncIdentity(context.Background(), id)
	require.NoError(t, err)
	second, err := s.SyncIdentity(context.Background(), id)
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Len(t, store.byName, 1)
	require.Len(t, store.calls, 2)
	for _, call := range store.calls {
		assert.False(t, call.HasRelations())
	}
}

func TestSyncIdentity_KeepsStoredFields(t *testing.T) {
	store := newMemPeople()
	store.byName["Ana"] = &graph.Person{Name: "Ana", UID: "u1", Gender: "F"}
	s := NewSyncer(store, zap.NewNop())

	person, err := s.SyncIdentity(context.Background(), &auth.Identity{Email: "ana@example.com", Name: "Ana"})
	require.NoError(t, err)
	assert.Equal(t, "F", person.Gender)
	assert.Equal(t, "ana", person.Username)
}

func TestSyncIdentity_Errors(t *testing.T) {
	store := newMemPeople()
	s := NewSyncer(store, zap.NewNop())

	_, err := s.SyncIdentity(context.Background(), nil)
	assert.True(t, apperrors.IsErrorType(err, apperrors.ErrorTypeValidation))

	_, err = s.SyncIdentity(context.Background(), &auth.Identity{Subject: "sub-1"})
	assert.True(t, apperrors.IsErrorType(err, apperrors.ErrorTypeValidation))
	assert.Empty(t, store.calls)

	store.err = apperrors.NewStoreUnavailable("upsert person", errors.New("connection refused"))
	_, err = s.SyncIdentity(context.Background(), &auth.Identity{Name: "Ana"})
	assert.True(t, apperrors.IsErrorType(err, apperrors.ErrorTypeStoreUnavailable))
}
