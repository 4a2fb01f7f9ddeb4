package aggregates

import (
	"fmt"
	"sort"

	"kujisan/domain/core/entities"
	"kujisan/domain/core/valueobjects"
	pkgerrors "kujisan/pkg/errors"
)

// FamilyGraph is the identity-keyed store of the people and relationships
// currently visible in one tree view.
//
// It is not safe for concurrent use; the owning controller is the single
// writer. Iteration order is insertion order so layout input is deterministic.
type FamilyGraph struct {
	nodes    map[valueobjects.PersonID]*nodeEntry
	edges    map[valueobjects.EdgeKey]*edgeEntry
	outgoing map[valueobjects.PersonID]map[valueobjects.EdgeKey]struct{}
	incoming map[valueobjects.PersonID]map[valueobjects.EdgeKey]struct{}
	seq      uint64
	version  int
}

type nodeEntry struct {
	node *entities.PersonNode
	seq  uint64
}

type edgeEntry struct {
	edge entities.RelationshipEdge
	seq  uint64
}

// NewFamilyGraph creates an empty store
func NewFamilyGraph() *FamilyGraph {
	g := &FamilyGraph{}
	g.Reset()
	return g
}

// Reset discards every node and edge
func (g *FamilyGraph) Reset() {
	g.nodes = make(map[valueobjects.PersonID]*nodeEntry)
	g.edges = make(map[valueobjects.EdgeKey]*edgeEntry)
	g.outgoing = make(map[valueobjects.PersonID]map[valueobjects.EdgeKey]struct{})
	g.incoming = make(map[valueobjects.PersonID]map[valueobjects.EdgeKey]struct{})
	g.version++
}

// Version increases on every mutation
func (g *FamilyGraph) Version() int {
	return g.version
}

// NodeCount returns the number of nodes
func (g *FamilyGraph) NodeCount() int {
	return len(g.nodes)
}

// EdgeCount returns the number of edges
func (g *FamilyGraph) EdgeCount() int {
	return len(g.edges)
}

// HasNode checks if a person is present
func (g *FamilyGraph) HasNode(id valueobjects.PersonID) bool {
	_, ok := g.nodes[id]
	return ok
}

// Node returns the stored node. The pointer is owned by the graph.
func (g *FamilyGraph) Node(id valueobjects.PersonID) (*entities.PersonNode, bool) {
	entry, ok := g.nodes[id]
	if !ok {
		return nil, false
	}
	return entry.node, true
}

// UpsertNode inserts a node or replaces the stored one with the same ID
func (g *FamilyGraph) UpsertNode(node entities.PersonNode) error {
	if node.ID.IsPlaceholder() {
		return pkgerrors.NewValidationError("node ID must not be empty or a placeholder")
	}

	if entry, ok := g.nodes[node.ID]; ok {
		*entry.node = node
	} else {
		g.seq++
		n := node
		g.nodes[node.ID] = &nodeEntry{node: &n, seq: g.seq}
	}
	g.version++
	return nil
}

// DeleteNode removes a node together with every edge touching it, so the
// store can never hold a dangling edge. Missing ids are ignored.
func (g *FamilyGraph) DeleteNode(id valueobjects.PersonID) {
	if _, ok := g.nodes[id]; !ok {
		return
	}

	for key := range g.outgoing[id] {
		g.DeleteEdge(key)
	}
	for key := range g.incoming[id] {
		g.DeleteEdge(key)
	}

	delete(g.nodes, id)
	delete(g.outgoing, id)
	delete(g.incoming, id)
	g.version++
}

// Nodes returns detached copies of all nodes in insertion order
func (g *FamilyGraph) Nodes() []entities.PersonNode {
	entries := make([]*nodeEntry, 0, len(g.nodes))
	for _, e := range g.nodes {
		entries = append(entries, e)
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].seq < entries[j].seq })

	out := make([]entities.PersonNode, len(entries))
	for i, e := range entries {
		out[i] = e.node.Clone()
	}
	return out
}

// HasEdge checks if an edge key is present
func (g *FamilyGraph) HasEdge(key valueobjects.EdgeKey) bool {
	_, ok := g.edges[key]
	return ok
}

// Edge returns the stored edge
func (g *FamilyGraph) Edge(key valueobjects.EdgeKey) (entities.RelationshipEdge, bool) {
	entry, ok := g.edges[key]
	if !ok {
		return entities.RelationshipEdge{}, false
	}
	return entry.edge, true
}

// UpsertEdge inserts or replaces an edge. Both endpoints must already be in
// the store.
func (g *FamilyGraph) UpsertEdge(edge entities.RelationshipEdge) error {
	if !g.HasNode(edge.Source) || !g.HasNode(edge.Target) {
		return pkgerrors.NewValidationError(
			fmt.Sprintf("edge %s references a missing node", edge.Key))
	}
	if edge.Source == edge.Target {
		return pkgerrors.NewValidationError("cannot connect a person to themselves")
	}
	if edge.Key == "" {
		edge.Key = valueobjects.NewEdgeKey(edge.Source, edge.Target)
	}

	if entry, ok := g.edges[edge.Key]; ok {
		g.unindex(entry.edge)
		entry.edge = edge
	} else {
		g.seq++
		g.edges[edge.Key] = &edgeEntry{edge: edge, seq: g.seq}
	}
	g.index(edge)
	g.version++
	return nil
}

// DeleteEdge removes an edge; missing keys are ignored
func (g *FamilyGraph) DeleteEdge(key valueobjects.EdgeKey) {
	entry, ok := g.edges[key]
	if !ok {
		return
	}
	g.unindex(entry.edge)
	delete(g.edges, key)
	g.version++
}

// Edges returns all edges in insertion order
func (g *FamilyGraph) Edges() []entities.RelationshipEdge {
	entries := make([]*edgeEntry, 0, len(g.edges))
	for _, e := range g.edges {
		entries = append(entries, e)
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].seq < entries[j].seq })

	out := make([]entities.RelationshipEdge, len(entries))
	for i, e := range entries {
		out[i] = e.edge
	}
	return out
}

// OutgoingEdges returns the edges whose source is id, in insertion order
func (g *FamilyGraph) OutgoingEdges(id valueobjects.PersonID) []entities.RelationshipEdge {
	return g.ordered(g.outgoing[id])
}

// IncomingEdges returns the edges whose target is id, in insertion order
func (g *FamilyGraph) IncomingEdges(id valueobjects.PersonID) []entities.RelationshipEdge {
	return g.ordered(g.incoming[id])
}

func (g *FamilyGraph) ordered(keys map[valueobjects.EdgeKey]struct{}) []entities.RelationshipEdge {
	entries := make([]*edgeEntry, 0, len(keys))
	for key := range keys {
		entries = append(entries, g.edges[key])
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].seq < entries[j].seq })

	out := make([]entities.RelationshipEdge, len(entries))
	for i, e := range entries {
		out[i] = e.edge
	}
	return out
}

// SetExpanded flips the expanded flag of a stored node
func (g *FamilyGraph) SetExpanded(id valueobjects.PersonID, expanded bool) error {
	entry, ok := g.nodes[id]
	if !ok {
		return pkgerrors.NewNotFoundError("person " + id.String())
	}
	if entry.node.Expanded != expanded {
		entry.node.Expanded = expanded
		g.version++
	}
	return nil
}

// ApplyPositions writes layout coordinates onto stored nodes. Ids that are no
// longer present are skipped.
func (g *FamilyGraph) ApplyPositions(positions map[valueobjects.PersonID]valueobjects.Position) {
	for id, pos := range positions {
		if entry, ok := g.nodes[id]; ok {
			entry.node.PlaceAt(pos)
		}
	}
}

// Validate checks the structural invariants: every edge endpoint exists and
// every key matches its pair.
func (g *FamilyGraph) Validate() error {
	for key, entry := range g.edges {
		if !g.HasNode(entry.edge.Source) || !g.HasNode(entry.edge.Target) {
			return pkgerrors.NewValidationError(fmt.Sprintf("dangling edge %s", key))
		}
		if valueobjects.NewEdgeKey(entry.edge.Source, entry.edge.Target) != key {
			return pkgerrors.NewValidationError(fmt.Sprintf("edge %s stored under the wrong key", key))
		}
	}
	for id, entry := range g.nodes {
		if entry.node.ID != id {
			return pkgerrors.NewValidationError(fmt.Sprintf("node %s stored under the wrong id", id))
		}
	}
	return nil
}

func (g *FamilyGraph) index(e entities.RelationshipEdge) {
	if g.outgoing[e.Source] == nil {
		g.outgoing[e.Source] = make(map[valueobjects.EdgeKey]struct{})
	}
	g.outgoing[e.Source][e.Key] = struct{}{}

	if g.incoming[e.Target] == nil {
		g.incoming[e.Target] = make(map[valueobjects.EdgeKey]struct{})
	}
	g.incoming[e.Target][e.Key] = struct{}{}
}

func (g *FamilyGraph) unindex(e entities.RelationshipEdge) {
	delete(g.outgoing[e.Source], e.Key)
	delete(g.incoming[e.Target], e.Key)
}

// GraphSnapshot is a detached copy of the store
type GraphSnapshot struct {
	Nodes   []entities.PersonNode
	Edges   []entities.RelationshipEdge
	Version int
}

// Snapshot copies the current nodes and edges out of the store
func (g *FamilyGraph) Snapshot() GraphSnapshot {
	return GraphSnapshot{
		Nodes:   g.Nodes(),
		Edges:   g.Edges(),
		Version: g.version,
	}
}
