package services

import (
	"kujisan/domain/core/aggregates"
	"kujisan/domain/core/entities"
	"kujisan/domain/core/valueobjects"
)

// MergeResult counts what a merge inserted
type MergeResult struct {
	AddedNodes []valueobjects.PersonID
	AddedEdges []valueobjects.EdgeKey
}

// Changed reports whether anything was inserted
func (r MergeResult) Changed() bool {
	return len(r.AddedNodes) > 0 || len(r.AddedEdges) > 0
}

// BranchMerger turns a fetched branch into node and edge insertions.
//
// Merging is idempotent: existing nodes are never overwritten and an edge is
// only inserted when its key is absent. Nodes are always inserted before any
// edge that references them.
type BranchMerger struct{}

// NewBranchMerger creates a new merger
func NewBranchMerger() *BranchMerger {
	return &BranchMerger{}
}

// Merge applies one branch to the graph. A nil person or one with a
// placeholder id is ignored.
func (m *BranchMerger) Merge(graph *aggregates.FamilyGraph, person *entities.TreePerson) MergeResult {
	var result MergeResult
	if graph == nil || person == nil || person.ID.IsPlaceholder() {
		return result
	}

	subject := person.ID
	if !graph.HasNode(subject) {
		m.insertNode(graph, entities.PersonNode{
			ID:          subject,
			Name:        person.Name,
			ImageRef:    person.ImageRef,
			Sex:         person.Sex,
			Generation:  person.Generation,
			Slug:        person.Slug,
			HasChildren: person.HasChildren(),
			Expanded:    true,
		}, &result)
	}

	for _, union := range person.Unions {
		parent := subject

		if p := union.Partner; p != nil && !p.ID.IsPlaceholder() && p.ID != subject {
			if !graph.HasNode(p.ID) {
				sex := p.Sex
				if sex == "" {
					sex = person.Sex.Opposite()
				}
				m.insertNode(graph, entities.PersonNode{
					ID:          p.ID,
					Name:        p.Name,
					ImageRef:    p.ImageRef,
					Sex:         sex,
					Generation:  person.Generation,
					Slug:        p.Slug,
					IsSpouse:    true,
					HasChildren: len(union.Children) > 0,
					Expanded:    true,
				}, &result)
			}
			// A partner edge already pointing at subject means the union was
			// drawn from the partner's side, with its children under subject.
			if !graph.HasEdge(valueobjects.NewEdgeKey(p.ID, subject)) {
				m.insertEdge(graph, subject, p.ID, entities.EdgeKindPartner, &result)
				parent = p.ID
			}
		}

		for _, child := range union.Children {
			if child.ID.IsPlaceholder() || child.ID == parent {
				continue
			}
			if !graph.HasNode(child.ID) {
				m.insertNode(graph, entities.PersonNode{
					ID:          child.ID,
					Name:        child.Name,
					ImageRef:    child.ImageRef,
					Sex:         child.Sex,
					Generation:  child.Generation,
					Slug:        child.Slug,
					HasChildren: child.ChildCount > 0,
					Expanded:    false,
				}, &result)
			}
			m.insertEdge(graph, parent, child.ID, entities.EdgeKindParentChild, &result)
		}
	}

	return result
}

func (m *BranchMerger) insertNode(graph *aggregates.FamilyGraph, node entities.PersonNode, result *MergeResult) {
	if err := graph.UpsertNode(node); err == nil {
		result.AddedNodes = append(result.AddedNodes, node.ID)
	}
}

func (m *BranchMerger) insertEdge(
	graph *aggregates.FamilyGraph,
	source, target valueobjects.PersonID,
	kind entities.EdgeKind,
	result *MergeResult,
) {
	edge := entities.NewRelationshipEdge(source, target, kind)
	if graph.HasEdge(edge.Key) {
		return
	}
	if err := graph.UpsertEdge(edge); err == nil {
		result.AddedEdges = append(result.AddedEdges, edge.Key)
	}
}
