package graph

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	apperrors "kindred/backend/pkg/errors"
)

// Repository owns the mapping between Person and the graph store. No other
// component issues graph mutations.
type Repository struct {
	store  Store
	views  ViewBuilder
	locker *keyedLocker
	logger *zap.Logger
	newUID func() string
}

// Option configures a Repository
type Option func(*Repository)

// WithSerializedAppends makes AddChildren and AddPartners hold a per-name lock
// across their read and write, so concurrent appends to one person cannot
// lose each other's relatives. Off by default.
func WithSerializedAppends(enabled bool) Option {
	return func(r *Repository) {
		if enabled {
			r.locker = newKeyedLocker()
		} else {
			r.locker = nil
		}
	}
}

// NewRepository creates a new person graph repository
func NewRepository(store Store, log *zap.Logger, opts ...Option) *Repository {
	r := &Repository{
		store:  store,
		logger: log,
		newUID: uuid.NewString,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Close closes the underlying store
func (r *Repository) Close(ctx context.Context) error {
	return r.store.Close(ctx)
}

// withTx runs work in one transaction. Write transactions are committed when
// work succeeds; every path discards the transaction.
func (r *Repository) withTx(ctx context.Context, mode AccessMode, operation string, work func(ctx context.Context, tx Tx) error) error {
	tx, err := r.store.BeginTx(ctx, mode)
	if err != nil {
		return classify(operation, err)
	}
	defer func() {
		if err := tx.Discard(context.WithoutCancel(ctx)); err != nil {
			r.logger.Warn("Failed to discard transaction",
				zap.String("operation", operation),
				zap.Error(err),
			)
		}
	}()

	if err := work(ctx, tx); err != nil {
		return classify(operation, err)
	}

	if mode == AccessModeWrite {
		if err := tx.Commit(ctx); err != nil {
			return classify(operation, err)
		}
	}
	return nil
}

func requireName(field, name string) error {
	if strings.TrimSpace(name) == "" {
		return apperrors.NewValidation(field, "name is required")
	}
	return nil
}

// FindByName returns the single person named name
func (r *Repository) FindByName(ctx context.Context, name string) (*Person, error) {
	if err := requireName("name", name); err != nil {
		return nil, err
	}

	var person Person
	err := r.withTx(ctx, AccessModeRead, "find person", func(ctx context.Context, tx Tx) error {
		rows, err := tx.Run(ctx, stmtFindByName, map[string]any{"name": name})
		if err != nil {
			return err
		}
		person, err = r.singlePerson(name, rows)
		return err
	})
	if err != nil {
		return nil, err
	}
	return &person, nil
}

func (r *Repository) singlePerson(name string, rows []Record) (Person, error) {
	switch len(rows) {
	case 0:
		r.logger.Warn("No matches found", zap.String("name", name))
		return Person{}, apperrors.NewNotFound(name)
	case 1:
		person, _ := getPersonFromRecord(rows[0], "person")
		return person, nil
	default:
		r.logger.Warn("Found multiple results", zap.String("name", name), zap.Int("count", len(rows)))
		return Person{}, apperrors.NewAmbiguousResult(name, len(rows), "persons")
	}
}

// UpsertByName creates the person or merges its non-empty scalar fields into
// the existing node, in a single transaction. Relationship fields are ignored.
func (r *Repository) UpsertByName(ctx context.Context, person Person) (*Person, error) {
	if err := requireName("name", person.Name); err != nil {
		return nil, err
	}

	var stored Person
	err := r.withTx(ctx, AccessModeWrite, "upsert person", func(ctx context.Context, tx Tx) error {
		rows, err := tx.Run(ctx, stmtUpsertByName, map[string]any{
			"name":  person.Name,
			"uid":   r.newUID(),
			"props": person.sparseProps(),
		})
		if err != nil {
			return err
		}
		// More than one row means duplicates predate the name constraint;
		// returning an error here rolls the merge back.
		stored, err = r.singlePerson(person.Name, rows)
		return err
	})
	if err != nil {
		return nil, err
	}

	r.logger.Info("Person upserted",
		zap.String("name", stored.Name),
		zap.String("uid", stored.UID),
	)
	return &stored, nil
}

// CreatePeople upserts each person by name, stopping at the first failure
func (r *Repository) CreatePeople(ctx context.Context, people []Person) ([]Person, error) {
	created := make([]Person, 0, len(people))
	for _, p := range people {
		stored, err := r.UpsertByName(ctx, p)
		if err != nil {
			return created, fmt.Errorf("failed to create %q: %w", p.Name, err)
		}
		created = append(created, *stored)
	}
	return created, nil
}

// UpdatePerson replaces every scalar field of the named person with those of
// updated; empty fields clear the stored value. The name itself cannot be
// changed. Relationship fields are not written here; callers must route them
// through AddChildren and AddPartners.
func (r *Repository) UpdatePerson(ctx context.Context, name string, updated Person) (*Person, error) {
	if updated.Name != "" && updated.Name != name {
		return nil, apperrors.NewValidation("name", "modifying name key is not allowed")
	}

	current, err := r.FindByName(ctx, name)
	if err != nil {
		return nil, err
	}
	if current.UID == "" {
		return nil, fmt.Errorf("person %q has no uid", name)
	}

	var stored Person
	err = r.withTx(ctx, AccessModeWrite, "update person", func(ctx context.Context, tx Tx) error {
		rows, err := tx.Run(ctx, stmtUpdateByUID, map[string]any{
			"uid":   current.UID,
			"props": updated.fullProps(),
		})
		if err != nil {
			return err
		}
		if len(rows) == 0 {
			return apperrors.NewNotFound(name)
		}
		stored, _ = getPersonFromRecord(rows[0], "person")
		return nil
	})
	if err != nil {
		return nil, err
	}

	r.logger.Info("Person updated", zap.String("name", name), zap.String("uid", current.UID))
	return &stored, nil
}

// DeleteByName deletes every node named name and returns how many were removed
func (r *Repository) DeleteByName(ctx context.Context, name string) (int, error) {
	if err := requireName("name", name); err != nil {
		return 0, err
	}

	var deleted int
	err := r.withTx(ctx, AccessModeWrite, "delete person", func(ctx context.Context, tx Tx) error {
		rows, err := tx.Run(ctx, stmtDeleteByName, map[string]any{"name": name})
		if err != nil {
			return err
		}
		if len(rows) > 0 {
			deleted = int(getInt64FromRecord(rows[0], "deleted"))
		}
		if deleted == 0 {
			return apperrors.NewNotFound(name)
		}
		return nil
	})
	if err != nil {
		return 0, err
	}

	r.logger.Info("Person deleted", zap.String("name", name), zap.Int("nodes", deleted))
	return deleted, nil
}

// DeleteAll removes every named node in one transaction
func (r *Repository) DeleteAll(ctx context.Context) (int, error) {
	var deleted int
	err := r.withTx(ctx, AccessModeWrite, "delete all", func(ctx context.Context, tx Tx) error {
		rows, err := tx.Run(ctx, stmtListNamed, nil)
		if err != nil {
			return err
		}
		for _, row := range rows {
			person, ok := getPersonFromRecord(row, "person")
			if !ok {
				continue
			}
			if person.UID != "" {
				_, err = tx.Run(ctx, stmtDeleteByUID, map[string]any{"uid": person.UID})
			} else {
				_, err = tx.Run(ctx, stmtDeleteByName, map[string]any{"name": person.Name})
			}
			if err != nil {
				return err
			}
			deleted++
			r.logger.Debug("Person deleted from graph", zap.String("name", person.Name))
		}
		return nil
	})
	if err != nil {
		return 0, err
	}

	r.logger.Info("All persons deleted", zap.Int("nodes", deleted))
	return deleted, nil
}

// QueryAll lists every named person without relationships
func (r *Repository) QueryAll(ctx context.Context) ([]Person, error) {
	people := []Person{}
	err := r.withTx(ctx, AccessModeRead, "query all", func(ctx context.Context, tx Tx) error {
		rows, err := tx.Run(ctx, stmtListNamed, nil)
		if err != nil {
			return err
		}
		for _, row := range rows {
			if p, ok := getPersonFromRecord(row, "person"); ok {
				people = append(people, p)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return people, nil
}

// SearchByTerm matches term against the name and email full-text index
func (r *Repository) SearchByTerm(ctx context.Context, term string) ([]Person, error) {
	query := fulltextQuery(term)
	if query == "" {
		return nil, apperrors.NewValidation("name", "search term is required")
	}

	people := []Person{}
	err := r.withTx(ctx, AccessModeRead, "search persons", func(ctx context.Context, tx Tx) error {
		rows, err := tx.Run(ctx, stmtSearchTerms, map[string]any{"query": query})
		if err != nil {
			return err
		}
		for _, row := range rows {
			if p, ok := getPersonFromRecord(row, "person"); ok {
				people = append(people, p)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return people, nil
}

// luceneSpecial are the characters the full-text query parser treats as syntax
const luceneSpecial = `+-&|!(){}[]^"~*?:\/`

// fulltextQuery escapes each word of term and ORs them together
func fulltextQuery(term string) string {
	words := strings.Fields(term)
	escaped := make([]string, 0, len(words))
	for _, word := range words {
		var b strings.Builder
		for _, ch := range word {
			if strings.ContainsRune(luceneSpecial, ch) {
				b.WriteRune('\\')
			}
			b.WriteRune(ch)
		}
		escaped = append(escaped, b.String())
	}
	return strings.Join(escaped, " ")
}
