package graph

// ============================================================================
// Person Graph Types
// ============================================================================

// Person is a node in the family graph. Name is the unique lookup key.
type Person struct {
	UID       string   `json:"uid,omitempty"`
	Sub       string   `json:"sub,omitempty"`
	Name      string   `json:"name,omitempty"`
	Email     string   `json:"email,omitempty"`
	KCID      string   `json:"kcid,omitempty"`
	Gender    string   `json:"gender,omitempty"`
	CreatedBy string   `json:"created_by,omitempty"`
	Username  string   `json:"username,omitempty"`
	Partners  []Person `json:"partners,omitempty"`
	Parents   []Person `json:"parents,omitempty"`
	Children  []Person `json:"children,omitempty"`
}

// Relation names a relationship view
type Relation string

const (
	RelationChildren Relation = "children"
	RelationParents  Relation = "parents"
	RelationPartners Relation = "partners"
)

// RelationView is the deduplicated set of persons related to one person.
// Member order carries no meaning.
type RelationView struct {
	Person   string   `json:"person"`
	Relation Relation `json:"relation"`
	Members  []Person `json:"members"`
}

// Names returns the member names of the view
func (v RelationView) Names() []string {
	names := make([]string, 0, len(v.Members))
	for _, m := range v.Members {
		names = append(names, m.Name)
	}
	return names
}

// HasRelations reports whether any relationship field is set
func (p Person) HasRelations() bool {
	return len(p.Partners) > 0 || len(p.Parents) > 0 || len(p.Children) > 0
}

// Shallow returns a copy of p without relationship fields
func (p Person) Shallow() Person {
	p.Partners = nil
	p.Parents = nil
	p.Children = nil
	return p
}

// scalarFields lists the stored scalar properties in write order.
// uid and name are handled separately because they identify the node.
func (p Person) scalarFields() map[string]string {
	return map[string]string{
		"sub":        p.Sub,
		"email":      p.Email,
		"kcid":       p.KCID,
		"gender":     p.Gender,
		"created_by": p.CreatedBy,
		"username":   p.Username,
	}
}

// sparseProps returns only the non-empty scalar fields, so stored values
// survive an upsert that does not mention them.
func (p Person) sparseProps() map[string]any {
	props := make(map[string]any)
	for k, v := range p.scalarFields() {
		if v != "" {
			props[k] = v
		}
	}
	return props
}

// fullProps returns every scalar field. Empty fields map to nil, which
// removes the stored property.
func (p Person) fullProps() map[string]any {
	props := make(map[string]any)
	for k, v := range p.scalarFields() {
		if v == "" {
			props[k] = nil
			continue
		}
		props[k] = v
	}
	return props
}

// personFromMap decodes a `p {.*}` projection
func personFromMap(m map[string]any) Person {
	return Person{
		UID:       getStringFromMap(m, "uid"),
		Sub:       getStringFromMap(m, "sub"),
		Name:      getStringFromMap(m, "name"),
		Email:     getStringFromMap(m, "email"),
		KCID:      getStringFromMap(m, "kcid"),
		Gender:    getStringFromMap(m, "gender"),
		CreatedBy: getStringFromMap(m, "created_by"),
		Username:  getStringFromMap(m, "username"),
	}
}
