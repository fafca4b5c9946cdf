package graph

// Cypher statements issued by the repository. The relationship types are
// HAS_CHILD (parent -> child) and PARTNER_OF (either direction means partners).
// There is no parent relationship type: parents are read as inbound HAS_CHILD.

const stmtFindByName = `
	MATCH (p:Person {name: $name})
	RETURN p {.*} AS person
`

// stmtUpsertByName finds or binds the node for $name and applies only the
// supplied properties, in one statement.
const stmtUpsertByName = `
	MERGE (p:Person {name: $name})
	ON CREATE SET p.uid = $uid
	SET p += $props
	RETURN p {.*} AS person
`

const stmtUpdateByUID = `
	MATCH (p:Person {uid: $uid})
	SET p += $props
	RETURN p {.*} AS person
`

const stmtDeleteByName = `
	MATCH (p:Person {name: $name})
	DETACH DELETE p
	RETURN count(p) AS deleted
`

const stmtListNamed = `
	MATCH (p:Person)
	WHERE p.name IS NOT NULL
	RETURN p {.*} AS person
	ORDER BY p.name
`

const stmtDeleteByUID = `
	MATCH (p:Person {uid: $uid})
	DETACH DELETE p
`

const stmtSearchTerms = `
	CALL db.index.fulltext.queryNodes('person_terms', $query) YIELD node, score
	RETURN node {.*} AS person
	ORDER BY score DESC
`

// stmtRelations returns the person together with both directions of every
// relationship so views can be folded without further round trips.
const stmtRelations = `
	MATCH (p:Person {name: $name})
	OPTIONAL MATCH (p)-[:HAS_CHILD]->(child:Person)
	WITH p, collect(DISTINCT child {.*}) AS children
	OPTIONAL MATCH (parent:Person)-[:HAS_CHILD]->(p)
	WITH p, children, collect(DISTINCT parent {.*}) AS parents
	OPTIONAL MATCH (p)-[:PARTNER_OF]->(outbound:Person)
	WITH p, children, parents, collect(DISTINCT outbound {.*}) AS partners_out
	OPTIONAL MATCH (inbound:Person)-[:PARTNER_OF]->(p)
	RETURN p {.*} AS person, children, parents, partners_out,
	       collect(DISTINCT inbound {.*}) AS partners_in
`

// stmtReplaceChildren rewrites the outbound HAS_CHILD set of $name to exactly
// $relatives, upserting each relative by name.
const stmtReplaceChildren = `
	MATCH (p:Person {name: $name})
	OPTIONAL MATCH (p)-[old:HAS_CHILD]->(:Person)
	DELETE old
	WITH DISTINCT p
	UNWIND $relatives AS rel
	MERGE (r:Person {name: rel.name})
	ON CREATE SET r.uid = rel.uid
	SET r += rel.props
	MERGE (p)-[:HAS_CHILD]->(r)
	RETURN collect(DISTINCT r.name) AS linked
`

// stmtReplacePartners rewrites the outbound PARTNER_OF set of $name. Inbound
// edges belong to the other person's set and are left alone.
const stmtReplacePartners = `
	MATCH (p:Person {name: $name})
	OPTIONAL MATCH (p)-[old:PARTNER_OF]->(:Person)
	DELETE old
	WITH DISTINCT p
	UNWIND $relatives AS rel
	MERGE (r:Person {name: rel.name})
	ON CREATE SET r.uid = rel.uid
	SET r += rel.props
	MERGE (p)-[:PARTNER_OF]->(r)
	RETURN collect(DISTINCT r.name) AS linked
`
