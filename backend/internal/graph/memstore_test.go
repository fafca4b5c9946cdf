package graph

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
)

// memStore is an in-memory Store that understands the repository's
// statements. Writes apply immediately to the shared graph; a write
// transaction discarded without commit restores the graph it started from,
// which is only sound while no other writer runs in between.
type memStore struct {
	mu       sync.Mutex
	graph    *memGraph
	handlers map[string]memHandler
	writes   map[string]bool

	beginErr   error
	commitErr  error
	connectErr error
	schemaErr  error

	// beforeWrite runs before a write statement is applied, outside the lock
	beforeWrite func(stmt string)

	schemaRuns [][]string
	begins     int
	discards   int
	commits    int
	closed     bool
}

type memHandler func(g *memGraph, params map[string]any) ([]Record, error)

type memNode struct {
	props map[string]any
}

type memEdge struct {
	from, to *memNode
	rel      string
}

type memGraph struct {
	nodes []*memNode
	edges []memEdge
}

const (
	relHasChild  = "HAS_CHILD"
	relPartnerOf = "PARTNER_OF"
)

func newMemStore() *memStore {
	s := &memStore{graph: &memGraph{}}
	s.handlers = map[string]memHandler{
		stmtFindByName:      handleFindByName,
		stmtUpsertByName:    handleUpsertByName,
		stmtUpdateByUID:     handleUpdateByUID,
		stmtDeleteByName:    handleDeleteByName,
		stmtListNamed:       handleListNamed,
		stmtDeleteByUID:     handleDeleteByUID,
		stmtSearchTerms:     handleSearchTerms,
		stmtRelations:       handleRelations,
		stmtReplaceChildren: replaceRelatives(relHasChild),
		stmtReplacePartners: replaceRelatives(relPartnerOf),
	}
	s.writes = map[string]bool{
		stmtUpsertByName:    true,
		stmtUpdateByUID:     true,
		stmtDeleteByName:    true,
		stmtDeleteByUID:     true,
		stmtReplaceChildren: true,
		stmtReplacePartners: true,
	}
	return s
}

// insert adds a node directly, bypassing MERGE, to simulate legacy data
func (s *memStore) insert(props map[string]any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	copied := make(map[string]any, len(props))
	for k, v := range props {
		copied[k] = v
	}
	s.graph.nodes = append(s.graph.nodes, &memNode{props: copied})
}

// link adds an edge between the first nodes with the given names
func (s *memStore) link(from, rel, to string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a := s.graph.byName(from)
	b := s.graph.byName(to)
	if len(a) == 0 || len(b) == 0 {
		panic(fmt.Sprintf("link %s-%s->%s: missing node", from, rel, to))
	}
	s.graph.edges = append(s.graph.edges, memEdge{from: a[0], to: b[0], rel: rel})
}

func (s *memStore) countNamed(name string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.graph.byName(name))
}

func (s *memStore) stats() (begins, commits, discards int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.begins, s.commits, s.discards
}

func (s *memStore) BeginTx(ctx context.Context, mode AccessMode) (Tx, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.beginErr != nil {
		return nil, s.beginErr
	}
	s.begins++
	return &memTx{store: s, mode: mode}, nil
}

func (s *memStore) AlterSchema(ctx context.Context, statements []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.schemaErr != nil {
		return s.schemaErr
	}
	s.schemaRuns = append(s.schemaRuns, statements)
	return nil
}

func (s *memStore) VerifyConnectivity(ctx context.Context) error {
	return s.connectErr
}

func (s *memStore) Close(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

type memTx struct {
	store     *memStore
	mode      AccessMode
	backup    *memGraph
	committed bool
	discarded bool
}

func (t *memTx) Run(ctx context.Context, statement string, params map[string]any) ([]Record, error) {
	s := t.store
	handler, ok := s.handlers[statement]
	if !ok {
		return nil, fmt.Errorf("memstore: unknown statement %q", statement)
	}

	write := s.writes[statement]
	if write && t.mode != AccessModeWrite {
		return nil, errors.New("memstore: write statement in read transaction")
	}
	if write && s.beforeWrite != nil {
		s.beforeWrite(statement)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if write && t.backup == nil {
		t.backup = s.graph.clone()
	}
	if params == nil {
		params = map[string]any{}
	}
	return handler(s.graph, params)
}

func (t *memTx) Commit(ctx context.Context) error {
	s := t.store
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.commitErr != nil {
		return s.commitErr
	}
	t.committed = true
	s.commits++
	return nil
}

func (t *memTx) Discard(ctx context.Context) error {
	s := t.store
	s.mu.Lock()
	defer s.mu.Unlock()
	if t.discarded {
		return nil
	}
	t.discarded = true
	s.discards++
	if !t.committed && t.backup != nil {
		s.graph = t.backup
	}
	return nil
}

// ============================================================================
// Graph helpers
// ============================================================================

func (g *memGraph) clone() *memGraph {
	mapping := make(map[*memNode]*memNode, len(g.nodes))
	out := &memGraph{}
	for _, n := range g.nodes {
		props := make(map[string]any, len(n.props))
		for k, v := range n.props {
			props[k] = v
		}
		c := &memNode{props: props}
		mapping[n] = c
		out.nodes = append(out.nodes, c)
	}
	for _, e := range g.edges {
		out.edges = append(out.edges, memEdge{from: mapping[e.from], to: mapping[e.to], rel: e.rel})
	}
	return out
}

func (g *memGraph) byName(name string) []*memNode {
	var found []*memNode
	for _, n := range g.nodes {
		if n.props["name"] == name {
			found = append(found, n)
		}
	}
	return found
}

func (g *memGraph) byUID(uid string) []*memNode {
	var found []*memNode
	for _, n := range g.nodes {
		if n.props["uid"] == uid {
			found = append(found, n)
		}
	}
	return found
}

func (g *memGraph) remove(target *memNode) {
	nodes := g.nodes[:0]
	for _, n := range g.nodes {
		if n != target {
			nodes = append(nodes, n)
		}
	}
	g.nodes = nodes

	edges := g.edges[:0]
	for _, e := range g.edges {
		if e.from != target && e.to != target {
			edges = append(edges, e)
		}
	}
	g.edges = edges
}

func (g *memGraph) hasEdge(from, to *memNode, rel string) bool {
	for _, e := range g.edges {
		if e.from == from && e.to == to && e.rel == rel {
			return true
		}
	}
	return false
}

func (n *memNode) project() map[string]any {
	out := make(map[string]any, len(n.props))
	for k, v := range n.props {
		out[k] = v
	}
	return out
}

func (n *memNode) set(props map[string]any) {
	for k, v := range props {
		if v == nil {
			delete(n.props, k)
			continue
		}
		n.props[k] = v
	}
}

func projectAll(nodes []*memNode) []any {
	seen := make(map[*memNode]bool)
	out := []any{}
	for _, n := range nodes {
		if seen[n] {
			continue
		}
		seen[n] = true
		out = append(out, n.project())
	}
	return out
}

func personRows(nodes []*memNode) []Record {
	rows := make([]Record, 0, len(nodes))
	for _, n := range nodes {
		rows = append(rows, Record{"person": n.project()})
	}
	return rows
}

func propsParam(params map[string]any) map[string]any {
	props, _ := params["props"].(map[string]any)
	return props
}

// ============================================================================
// Statement handlers
// ============================================================================

func handleFindByName(g *memGraph, params map[string]any) ([]Record, error) {
	return personRows(g.byName(params["name"].(string))), nil
}

func handleUpsertByName(g *memGraph, params map[string]any) ([]Record, error) {
	name := params["name"].(string)
	nodes := g.byName(name)
	if len(nodes) == 0 {
		n := &memNode{props: map[string]any{"name": name, "uid": params["uid"]}}
		g.nodes = append(g.nodes, n)
		nodes = []*memNode{n}
	}
	for _, n := range nodes {
		n.set(propsParam(params))
	}
	return personRows(nodes), nil
}

func handleUpdateByUID(g *memGraph, params map[string]any) ([]Record, error) {
	nodes := g.byUID(params["uid"].(string))
	for _, n := range nodes {
		n.set(propsParam(params))
	}
	return personRows(nodes), nil
}

func handleDeleteByName(g *memGraph, params map[string]any) ([]Record, error) {
	nodes := g.byName(params["name"].(string))
	for _, n := range nodes {
		g.remove(n)
	}
	return []Record{{"deleted": int64(len(nodes))}}, nil
}

func handleDeleteByUID(g *memGraph, params map[string]any) ([]Record, error) {
	for _, n := range g.byUID(params["uid"].(string)) {
		g.remove(n)
	}
	return nil, nil
}

func handleListNamed(g *memGraph, params map[string]any) ([]Record, error) {
	var named []*memNode
	for _, n := range g.nodes {
		if _, ok := n.props["name"]; ok {
			named = append(named, n)
		}
	}
	sort.SliceStable(named, func(i, j int) bool {
		return named[i].props["name"].(string) < named[j].props["name"].(string)
	})
	return personRows(named), nil
}

func handleSearchTerms(g *memGraph, params map[string]any) ([]Record, error) {
	query := strings.ReplaceAll(params["query"].(string), `\`, "")
	words := strings.Fields(strings.ToLower(query))

	var matched []*memNode
	for _, n := range g.nodes {
		haystack := strings.ToLower(fmt.Sprintf("%v %v", n.props["name"], n.props["email"]))
		for _, w := range words {
			if strings.Contains(haystack, w) {
				matched = append(matched, n)
				break
			}
		}
	}
	return personRows(matched), nil
}

func handleRelations(g *memGraph, params map[string]any) ([]Record, error) {
	var rows []Record
	for _, p := range g.byName(params["name"].(string)) {
		var children, parents, out, in []*memNode
		for _, e := range g.edges {
			switch {
			case e.rel == relHasChild && e.from == p:
				children = append(children, e.to)
			case e.rel == relHasChild && e.to == p:
				parents = append(parents, e.from)
			case e.rel == relPartnerOf && e.from == p:
				out = append(out, e.to)
			case e.rel == relPartnerOf && e.to == p:
				in = append(in, e.from)
			}
		}
		rows = append(rows, Record{
			"person":       p.project(),
			"children":     projectAll(children),
			"parents":      projectAll(parents),
			"partners_out": projectAll(out),
			"partners_in":  projectAll(in),
		})
	}
	return rows, nil
}

func replaceRelatives(rel string) memHandler {
	return func(g *memGraph, params map[string]any) ([]Record, error) {
		linked := []any{}
		for _, p := range g.byName(params["name"].(string)) {
			edges := g.edges[:0]
			for _, e := range g.edges {
				if e.rel == rel && e.from == p {
					continue
				}
				edges = append(edges, e)
			}
			g.edges = edges

			relatives, _ := params["relatives"].([]any)
			for _, item := range relatives {
				entry := item.(map[string]any)
				name := entry["name"].(string)
				targets := g.byName(name)
				if len(targets) == 0 {
					n := &memNode{props: map[string]any{"name": name, "uid": entry["uid"]}}
					g.nodes = append(g.nodes, n)
					targets = []*memNode{n}
				}
				for _, r := range targets {
					if props, ok := entry["props"].(map[string]any); ok {
						r.set(props)
					}
					if !g.hasEdge(p, r, rel) {
						g.edges = append(g.edges, memEdge{from: p, to: r, rel: rel})
					}
				}
				linked = append(linked, name)
			}
		}
		return []Record{{"linked": linked}}, nil
	}
}
