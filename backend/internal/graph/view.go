package graph

import (
	apperrors "kindred/backend/pkg/errors"
)

// maxParents is the number of parents a person may have in this model
const maxParents = 2

// edgeSets holds both directions of the relationships of one person, as
// returned by stmtRelations.
type edgeSets struct {
	Person      Person
	Children    []Person // outbound HAS_CHILD
	Parents     []Person // inbound HAS_CHILD
	PartnersOut []Person // outbound PARTNER_OF
	PartnersIn  []Person // inbound PARTNER_OF
}

// outbound is the edge set drawn from the person for relation, the part an
// append rewrites
func (s edgeSets) outbound(relation Relation) []Person {
	switch relation {
	case RelationChildren:
		return union(s.Children)
	case RelationPartners:
		return union(s.PartnersOut)
	}
	return nil
}

func edgeSetsFromRecord(record Record) edgeSets {
	person, _ := getPersonFromRecord(record, "person")
	return edgeSets{
		Person:      person,
		Children:    getPersonsFromRecord(record, "children"),
		Parents:     getPersonsFromRecord(record, "parents"),
		PartnersOut: getPersonsFromRecord(record, "partners_out"),
		PartnersIn:  getPersonsFromRecord(record, "partners_in"),
	}
}

// ViewBuilder folds raw edge sets into relationship views
type ViewBuilder struct{}

// Children is the outbound HAS_CHILD set only
func (ViewBuilder) Children(name string, sets edgeSets) RelationView {
	return RelationView{Person: name, Relation: RelationChildren, Members: union(sets.Children)}
}

// Parents is the inbound HAS_CHILD set. More than two parents is a data
// integrity error and is reported, never truncated.
func (ViewBuilder) Parents(name string, sets edgeSets) (RelationView, error) {
	members := union(sets.Parents)
	if len(members) > maxParents {
		return RelationView{}, apperrors.NewAmbiguousResult(name, len(members), "parents")
	}
	return RelationView{Person: name, Relation: RelationParents, Members: members}, nil
}

// Partners is the union of both PARTNER_OF directions, one entry per node
func (ViewBuilder) Partners(name string, sets edgeSets) RelationView {
	return RelationView{Person: name, Relation: RelationPartners, Members: union(sets.PartnersOut, sets.PartnersIn)}
}

// Build dispatches on relation
func (b ViewBuilder) Build(name string, relation Relation, sets edgeSets) (RelationView, error) {
	switch relation {
	case RelationChildren:
		return b.Children(name, sets), nil
	case RelationParents:
		return b.Parents(name, sets)
	case RelationPartners:
		return b.Partners(name, sets), nil
	}
	return RelationView{}, apperrors.NewValidation("relation", string(relation)+" is not a relationship")
}

// Empty is the view of a person with no record on file
func (ViewBuilder) Empty(name string, relation Relation) RelationView {
	return RelationView{Person: name, Relation: relation, Members: []Person{}}
}

// union merges person sets keeping the first occurrence of each node. Nodes
// are identified by uid, falling back to name for nodes stored without one.
func union(sets ...[]Person) []Person {
	seen := make(map[string]bool)
	members := []Person{}
	for _, set := range sets {
		for _, p := range set {
			key := identityKey(p)
			if seen[key] {
				continue
			}
			seen[key] = true
			members = append(members, p.Shallow())
		}
	}
	return members
}

func identityKey(p Person) string {
	if p.UID != "" {
		return "uid:" + p.UID
	}
	return "name:" + p.Name
}
