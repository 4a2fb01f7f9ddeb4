package services

import (
	"fmt"
	"testing"

	"kujisan/domain/core/aggregates"
	"kujisan/domain/core/entities"
	"kujisan/domain/core/valueobjects"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func expandedTree(t *testing.T) *aggregates.FamilyGraph {
	t.Helper()
	g := aggregates.NewFamilyGraph()
	m := NewBranchMerger()

	m.Merge(g, rootA())
	m.Merge(g, &entities.TreePerson{
		ID: "C",
		Unions: []entities.Union{{
			Partner:  &entities.PartnerSummary{ID: "P"},
			Children: []entities.ChildSummary{{ID: "E", ChildCount: 1}, {ID: "F"}},
		}},
	})
	require.NoError(t, g.SetExpanded("C", true))
	m.Merge(g, &entities.TreePerson{
		ID: "E",
		Unions: []entities.Union{{
			Children: []entities.ChildSummary{{ID: "G"}},
		}},
	})
	require.NoError(t, g.SetExpanded("E", true))
	return g
}

func TestDescendantsFollowsPartnerAndChildEdges(t *testing.T) {
	g := expandedTree(t)
	s := NewSubtreeService()

	assert.ElementsMatch(t, []valueobjects.PersonID{"P", "E", "F", "G"}, s.Descendants(g, "C"))
	assert.ElementsMatch(t, []valueobjects.PersonID{"G"}, s.Descendants(g, "E"))
	assert.Empty(t, s.Descendants(g, "D"))
	assert.Nil(t, s.Descendants(g, "missing"))
}

func TestCollapseRemovesWholeSubtree(t *testing.T) {
	g := expandedTree(t)
	s := NewSubtreeService()

	result := s.Collapse(g, "C")

	assert.ElementsMatch(t, []string{"A", "B", "C", "D"}, nodeIDs(g))
	assert.ElementsMatch(t, []string{"A->B", "B->C", "B->D"}, edgeKeys(g))
	assert.ElementsMatch(t, []valueobjects.PersonID{"P", "E", "F", "G"}, result.RemovedNodes)
	assert.Len(t, result.RemovedEdges, 4)
	require.NoError(t, g.Validate())

	c, _ := g.Node("C")
	assert.False(t, c.Expanded)
	assert.True(t, c.HasChildren)
}

func TestCollapseDemotesSurvivorsPointingIntoSubtree(t *testing.T) {
	g := expandedTree(t)
	require.NoError(t, g.UpsertNode(entities.PersonNode{ID: "R", Expanded: true}))
	require.NoError(t, g.UpsertEdge(entities.NewRelationshipEdge("R", "G", entities.EdgeKindParentChild)))

	result := NewSubtreeService().Collapse(g, "C")

	r, ok := g.Node("R")
	require.True(t, ok)
	assert.False(t, r.Expanded)
	assert.Equal(t, []valueobjects.PersonID{"R"}, result.Demoted)
	require.NoError(t, g.Validate())
}

func TestCollapseHandlesCycles(t *testing.T) {
	g := aggregates.NewFamilyGraph()
	for _, id := range []string{"A", "B", "C"} {
		require.NoError(t, g.UpsertNode(entities.PersonNode{ID: valueobjects.PersonID(id), Expanded: true}))
	}
	require.NoError(t, g.UpsertEdge(entities.NewRelationshipEdge("A", "B", entities.EdgeKindPartner)))
	require.NoError(t, g.UpsertEdge(entities.NewRelationshipEdge("B", "C", entities.EdgeKindParentChild)))
	require.NoError(t, g.UpsertEdge(entities.NewRelationshipEdge("C", "A", entities.EdgeKindParentChild)))

	NewSubtreeService().Collapse(g, "A")

	assert.Equal(t, []string{"A"}, nodeIDs(g))
	assert.Equal(t, 0, g.EdgeCount())
}

func TestCollapseDeepChainWithoutRecursion(t *testing.T) {
	g := aggregates.NewFamilyGraph()
	const depth = 5000
	for i := 0; i < depth; i++ {
		require.NoError(t, g.UpsertNode(entities.PersonNode{ID: valueobjects.PersonID(fmt.Sprintf("p%d", i))}))
		if i > 0 {
			require.NoError(t, g.UpsertEdge(entities.NewRelationshipEdge(
				valueobjects.PersonID(fmt.Sprintf("p%d", i-1)),
				valueobjects.PersonID(fmt.Sprintf("p%d", i)),
				entities.EdgeKindParentChild)))
		}
	}

	result := NewSubtreeService().Collapse(g, "p0")

	assert.Len(t, result.RemovedNodes, depth-1)
	assert.Equal(t, 1, g.NodeCount())
	assert.Equal(t, 0, g.EdgeCount())
}

func TestIsPartnerOnly(t *testing.T) {
	g := expandedTree(t)
	s := NewSubtreeService()

	assert.True(t, s.IsPartnerOnly(g, "B"))
	assert.True(t, s.IsPartnerOnly(g, "P"))
	assert.False(t, s.IsPartnerOnly(g, "A"))
	assert.False(t, s.IsPartnerOnly(g, "C"))
	assert.False(t, s.IsPartnerOnly(g, "missing"))

	// a descendant who is also someone's partner keeps their own branch
	require.NoError(t, g.UpsertEdge(entities.NewRelationshipEdge("D", "F", entities.EdgeKindPartner)))
	assert.False(t, s.IsPartnerOnly(g, "F"))
}

func TestCollapseDemotesUnionHeadOfPartner(t *testing.T) {
	g := aggregates.NewFamilyGraph()
	for _, id := range []string{"A", "B", "K", "R"} {
		require.NoError(t, g.UpsertNode(entities.PersonNode{ID: valueobjects.PersonID(id), Expanded: true}))
	}
	// B is A's child and partner; the union's child K hangs off B
	require.NoError(t, g.UpsertEdge(entities.NewRelationshipEdge("A", "B", entities.EdgeKindParentChild)))
	require.NoError(t, g.UpsertEdge(entities.NewRelationshipEdge("R", "B", entities.EdgeKindPartner)))
	require.NoError(t, g.UpsertEdge(entities.NewRelationshipEdge("B", "K", entities.EdgeKindParentChild)))

	result := NewSubtreeService().Collapse(g, "B")

	r, _ := g.Node("R")
	assert.False(t, r.Expanded)
	a, _ := g.Node("A")
	assert.True(t, a.Expanded)
	assert.Contains(t, result.Demoted, valueobjects.PersonID("R"))
	assert.False(t, g.HasNode("K"))
	require.NoError(t, g.Validate())
}
