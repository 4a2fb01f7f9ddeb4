package services

import (
	"kujisan/domain/core/aggregates"
	"kujisan/domain/core/entities"
	"kujisan/domain/core/valueobjects"
)

// CollapseResult describes what a collapse removed
type CollapseResult struct {
	RemovedNodes []valueobjects.PersonID
	RemovedEdges []valueobjects.EdgeKey
	// Demoted lists surviving nodes that lost an outgoing edge and were
	// marked collapsed.
	Demoted []valueobjects.PersonID
}

// SubtreeService computes and removes descendant sets
type SubtreeService struct{}

// NewSubtreeService creates a new subtree service
func NewSubtreeService() *SubtreeService {
	return &SubtreeService{}
}

// Descendants returns every node reachable from root over outgoing edges,
// excluding root itself, in discovery order. Partner edges are followed too
// because children hang off the partner.
func (s *SubtreeService) Descendants(graph *aggregates.FamilyGraph, root valueobjects.PersonID) []valueobjects.PersonID {
	if graph == nil || !graph.HasNode(root) {
		return nil
	}

	seen := map[valueobjects.PersonID]struct{}{root: {}}
	stack := []valueobjects.PersonID{root}
	var out []valueobjects.PersonID

	for len(stack) > 0 {
		current := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		for _, edge := range graph.OutgoingEdges(current) {
			if _, ok := seen[edge.Target]; ok {
				continue
			}
			seen[edge.Target] = struct{}{}
			out = append(out, edge.Target)
			stack = append(stack, edge.Target)
		}
	}

	return out
}

// IsPartnerOnly reports whether id is in the store only as someone's union
// partner. Such a node has no branch of its own to show or hide; its union
// belongs to the person on the other end of the partner edge.
func (s *SubtreeService) IsPartnerOnly(graph *aggregates.FamilyGraph, id valueobjects.PersonID) bool {
	if graph == nil {
		return false
	}
	partnered := false
	for _, edge := range graph.IncomingEdges(id) {
		switch edge.Kind {
		case entities.EdgeKindParentChild:
			return false
		case entities.EdgeKindPartner:
			partnered = true
		}
	}
	return partnered
}

// Collapse removes the full descendant set of root and every edge whose
// source is root or that touches a removed node, then marks root collapsed.
// Survivors that pointed into the removed set are marked collapsed as well,
// and so is any union head that has root as its partner, since the children
// of that union hang off root and are gone.
func (s *SubtreeService) Collapse(graph *aggregates.FamilyGraph, root valueobjects.PersonID) CollapseResult {
	var result CollapseResult
	if graph == nil || !graph.HasNode(root) {
		return result
	}

	descendants := s.Descendants(graph, root)
	removed := make(map[valueobjects.PersonID]struct{}, len(descendants))
	for _, id := range descendants {
		removed[id] = struct{}{}
	}

	demoted := make(map[valueobjects.PersonID]struct{})
	for _, edge := range graph.Edges() {
		_, srcGone := removed[edge.Source]
		_, dstGone := removed[edge.Target]
		if edge.Source != root && !srcGone && !dstGone {
			continue
		}
		graph.DeleteEdge(edge.Key)
		result.RemovedEdges = append(result.RemovedEdges, edge.Key)

		if dstGone && !srcGone && edge.Source != root {
			demoted[edge.Source] = struct{}{}
		}
	}

	for _, id := range descendants {
		graph.DeleteNode(id)
	}
	result.RemovedNodes = descendants

	for _, edge := range graph.IncomingEdges(root) {
		if edge.Kind == entities.EdgeKindPartner {
			demoted[edge.Source] = struct{}{}
		}
	}

	_ = graph.SetExpanded(root, false)
	for _, n := range graph.Nodes() {
		if _, ok := demoted[n.ID]; ok {
			_ = graph.SetExpanded(n.ID, false)
			result.Demoted = append(result.Demoted, n.ID)
		}
	}

	return result
}
