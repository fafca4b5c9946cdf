package graph

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	apperrors "kindred/backend/pkg/errors"
)

// ============================================================================
// Relationship Operations
// ============================================================================

// loadEdgeSets reads the person and both directions of its relationships.
// found is false when no node is named name.
func (r *Repository) loadEdgeSets(ctx context.Context, tx Tx, name string) (sets edgeSets, found bool, err error) {
	rows, err := tx.Run(ctx, stmtRelations, map[string]any{"name": name})
	if err != nil {
		return edgeSets{}, false, err
	}
	switch len(rows) {
	case 0:
		return edgeSets{}, false, nil
	case 1:
		return edgeSetsFromRecord(rows[0]), true, nil
	default:
		r.logger.Warn("Found multiple results", zap.String("name", name), zap.Int("count", len(rows)))
		return edgeSets{}, false, apperrors.NewAmbiguousResult(name, len(rows), "persons")
	}
}

// relationView reads one relationship view. A person with no record on file
// has an empty view.
func (r *Repository) relationView(ctx context.Context, name string, relation Relation) (RelationView, error) {
	if err := requireName("name", name); err != nil {
		return RelationView{}, err
	}

	var view RelationView
	err := r.withTx(ctx, AccessModeRead, "get "+string(relation), func(ctx context.Context, tx Tx) error {
		sets, found, err := r.loadEdgeSets(ctx, tx, name)
		if err != nil {
			return err
		}
		if !found {
			view = r.views.Empty(name, relation)
			return nil
		}
		view, err = r.views.Build(name, relation, sets)
		return err
	})
	if err != nil {
		return RelationView{}, err
	}
	return view, nil
}

// GetChildren returns the persons this person has a child edge to
func (r *Repository) GetChildren(ctx context.Context, name string) (RelationView, error) {
	return r.relationView(ctx, name, RelationChildren)
}

// GetParents returns the persons with a child edge to this person
func (r *Repository) GetParents(ctx context.Context, name string) (RelationView, error) {
	return r.relationView(ctx, name, RelationParents)
}

// GetPartners returns partners recorded from either side
func (r *Repository) GetPartners(ctx context.Context, name string) (RelationView, error) {
	return r.relationView(ctx, name, RelationPartners)
}

// GetPerson returns the named person with all three relationship views
func (r *Repository) GetPerson(ctx context.Context, name string) (*Person, error) {
	if err := requireName("name", name); err != nil {
		return nil, err
	}

	var person Person
	err := r.withTx(ctx, AccessModeRead, "get person", func(ctx context.Context, tx Tx) error {
		sets, found, err := r.loadEdgeSets(ctx, tx, name)
		if err != nil {
			return err
		}
		if !found {
			return apperrors.NewNotFound(name)
		}
		parents, err := r.views.Parents(name, sets)
		if err != nil {
			return err
		}
		person = sets.Person
		person.Children = r.views.Children(name, sets).Members
		person.Parents = parents.Members
		person.Partners = r.views.Partners(name, sets).Members
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &person, nil
}

// AddChildren appends children to the named person and returns the refreshed
// view. A child already present by name is a RelationConflict.
//
// The current children are read in one transaction and the new set written in
// another. Unless serialized appends are enabled, two concurrent calls for the
// same person can each write from a snapshot that lacks the other's children,
// and the later write wins.
func (r *Repository) AddChildren(ctx context.Context, name string, children []Person) (RelationView, error) {
	return r.appendRelatives(ctx, name, RelationChildren, stmtReplaceChildren, children)
}

// AddPartners appends partners to the named person and returns the refreshed
// view. It has the same conflict and concurrency behaviour as AddChildren.
func (r *Repository) AddPartners(ctx context.Context, name string, partners []Person) (RelationView, error) {
	return r.appendRelatives(ctx, name, RelationPartners, stmtReplacePartners, partners)
}

func (r *Repository) appendRelatives(ctx context.Context, name string, relation Relation, stmt string, relatives []Person) (RelationView, error) {
	if err := validateRelatives(name, relation, relatives); err != nil {
		return RelationView{}, err
	}

	if r.locker != nil {
		unlock, err := r.locker.Lock(ctx, name)
		if err != nil {
			return RelationView{}, classify("lock "+string(relation), err)
		}
		defer unlock()
	}

	var current RelationView
	var owned []Person
	err := r.withTx(ctx, AccessModeRead, "read "+string(relation), func(ctx context.Context, tx Tx) error {
		sets, found, err := r.loadEdgeSets(ctx, tx, name)
		if err != nil {
			return err
		}
		if !found {
			return apperrors.NewNotFound(name)
		}
		current, err = r.views.Build(name, relation, sets)
		owned = sets.outbound(relation)
		return err
	})
	if err != nil {
		return RelationView{}, err
	}

	existing := make(map[string]bool, len(current.Members))
	for _, m := range current.Members {
		existing[m.Name] = true
	}
	for _, rel := range relatives {
		if existing[rel.Name] {
			r.logger.Warn("Relative already present",
				zap.String("name", name),
				zap.String("relation", string(relation)),
				zap.String("relative", rel.Name),
			)
			return RelationView{}, apperrors.NewRelationConflict(name, singular(relation), rel.Name)
		}
	}

	// Only edges drawn from name are rewritten; partnerships recorded from
	// the other side stay where they are.
	params := make([]any, 0, len(owned)+len(relatives))
	for _, m := range owned {
		uid := m.UID
		if uid == "" {
			uid = r.newUID()
		}
		params = append(params, map[string]any{"name": m.Name, "uid": uid, "props": map[string]any{}})
	}
	for _, rel := range relatives {
		params = append(params, map[string]any{"name": rel.Name, "uid": r.newUID(), "props": rel.sparseProps()})
	}

	err = r.withTx(ctx, AccessModeWrite, "write "+string(relation), func(ctx context.Context, tx Tx) error {
		rows, err := tx.Run(ctx, stmt, map[string]any{"name": name, "relatives": params})
		if err != nil {
			return err
		}
		if len(rows) == 0 || len(getStringSliceFromRecord(rows[0], "linked")) == 0 {
			return apperrors.NewNotFound(name)
		}
		return nil
	})
	if err != nil {
		return RelationView{}, err
	}

	r.logger.Info("Relatives added",
		zap.String("name", name),
		zap.String("relation", string(relation)),
		zap.Int("added", len(relatives)),
	)
	return r.relationView(ctx, name, relation)
}

func validateRelatives(name string, relation Relation, relatives []Person) error {
	if err := requireName("name", name); err != nil {
		return err
	}
	if len(relatives) == 0 {
		return apperrors.NewValidation(string(relation), fmt.Sprintf("please select at least one %s", singular(relation)))
	}
	seen := make(map[string]bool, len(relatives))
	for _, rel := range relatives {
		if err := requireName(string(relation), rel.Name); err != nil {
			return err
		}
		if rel.Name == name {
			return apperrors.NewValidation(string(relation), fmt.Sprintf("%s cannot be their own %s", name, singular(relation)))
		}
		if seen[rel.Name] {
			return apperrors.NewValidation(string(relation), fmt.Sprintf("%s listed more than once", rel.Name))
		}
		seen[rel.Name] = true
	}
	return nil
}

func singular(relation Relation) string {
	switch relation {
	case RelationChildren:
		return "child"
	case RelationParents:
		return "parent"
	case RelationPartners:
		return "partner"
	}
	return string(relation)
}
