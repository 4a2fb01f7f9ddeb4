package services

import (
	"testing"

	"kujisan/domain/core/aggregates"
	"kujisan/domain/core/entities"
	"kujisan/domain/core/valueobjects"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// rootA is A (gen 1) with partner B and children C (2 own children) and D.
func rootA() *entities.TreePerson {
	return &entities.TreePerson{
		ID:         "A",
		Name:       "Amadou",
		Generation: 1,
		Sex:        valueobjects.SexMale,
		Unions: []entities.Union{{
			ID:      "u-ab",
			Partner: &entities.PartnerSummary{ID: "B", Name: "Binta"},
			Children: []entities.ChildSummary{
				{ID: "C", Name: "Cheikh", Generation: 2, Sex: valueobjects.SexMale, ChildCount: 2},
				{ID: "D", Name: "Dior", Generation: 2, Sex: valueobjects.SexFemale, ChildCount: 0},
			},
		}},
	}
}

func nodeIDs(g *aggregates.FamilyGraph) []string {
	var ids []string
	for _, n := range g.Nodes() {
		ids = append(ids, n.ID.String())
	}
	return ids
}

func edgeKeys(g *aggregates.FamilyGraph) []string {
	var keys []string
	for _, e := range g.Edges() {
		keys = append(keys, e.Key.String())
	}
	return keys
}

func TestMergeRootBranch(t *testing.T) {
	g := aggregates.NewFamilyGraph()
	m := NewBranchMerger()

	result := m.Merge(g, rootA())

	assert.ElementsMatch(t, []string{"A", "B", "C", "D"}, nodeIDs(g))
	assert.ElementsMatch(t, []string{"A->B", "B->C", "B->D"}, edgeKeys(g))
	assert.Len(t, result.AddedNodes, 4)
	assert.Len(t, result.AddedEdges, 3)

	a, _ := g.Node("A")
	assert.True(t, a.HasChildren)
	assert.True(t, a.Expanded)
	assert.False(t, a.IsSpouse)

	b, _ := g.Node("B")
	assert.True(t, b.IsSpouse)
	assert.True(t, b.Expanded)
	assert.True(t, b.HasChildren)
	assert.Equal(t, valueobjects.Generation(1), b.Generation)
	assert.Equal(t, valueobjects.SexFemale, b.Sex)

	c, _ := g.Node("C")
	assert.True(t, c.HasChildren)
	assert.False(t, c.Expanded)

	d, _ := g.Node("D")
	assert.False(t, d.HasChildren)
	assert.False(t, d.Expanded)

	partner, ok := g.Edge("A->B")
	require.True(t, ok)
	assert.Equal(t, entities.EdgeKindPartner, partner.Kind)
	child, _ := g.Edge("B->C")
	assert.Equal(t, entities.EdgeKindParentChild, child.Kind)
	require.NoError(t, g.Validate())
}

func TestMergeIsIdempotent(t *testing.T) {
	g := aggregates.NewFamilyGraph()
	m := NewBranchMerger()

	m.Merge(g, rootA())
	first := g.Snapshot()

	again := m.Merge(g, rootA())

	assert.False(t, again.Changed())
	second := g.Snapshot()
	assert.Equal(t, first.Nodes, second.Nodes)
	assert.Equal(t, first.Edges, second.Edges)
}

func TestMergeWithoutPartnerAttachesChildrenToSubject(t *testing.T) {
	g := aggregates.NewFamilyGraph()

	NewBranchMerger().Merge(g, &entities.TreePerson{
		ID:         "C",
		Generation: 2,
		Unions: []entities.Union{{
			ID: "u-c",
			Children: []entities.ChildSummary{
				{ID: "E", Generation: 3},
				{ID: "F", Generation: 3, ChildCount: 1},
			},
		}},
	})

	assert.ElementsMatch(t, []string{"C->E", "C->F"}, edgeKeys(g))
	f, _ := g.Node("F")
	assert.True(t, f.HasChildren)
}

func TestMergeIgnoresMalformedInput(t *testing.T) {
	g := aggregates.NewFamilyGraph()
	m := NewBranchMerger()

	assert.False(t, m.Merge(g, nil).Changed())
	assert.False(t, m.Merge(g, &entities.TreePerson{ID: ""}).Changed())
	assert.False(t, m.Merge(g, &entities.TreePerson{ID: "null"}).Changed())
	assert.Equal(t, 0, g.NodeCount())

	m.Merge(g, &entities.TreePerson{
		ID: "A",
		Unions: []entities.Union{{
			Partner:  &entities.PartnerSummary{ID: "undefined"},
			Children: []entities.ChildSummary{{ID: ""}, {ID: "C"}},
		}},
	})

	assert.ElementsMatch(t, []string{"A", "C"}, nodeIDs(g))
	assert.ElementsMatch(t, []string{"A->C"}, edgeKeys(g))
}

func TestMergeNeverDuplicatesSharedChildEdge(t *testing.T) {
	g := aggregates.NewFamilyGraph()
	m := NewBranchMerger()

	// the same B -> C pair arrives from two different branches
	m.Merge(g, rootA())
	m.Merge(g, &entities.TreePerson{
		ID:         "B",
		Generation: 1,
		Unions: []entities.Union{{
			Children: []entities.ChildSummary{{ID: "C", Generation: 2, ChildCount: 2}},
		}},
	})

	count := 0
	for _, e := range g.Edges() {
		if e.Source == "B" && e.Target == "C" {
			count++
		}
	}
	assert.Equal(t, 1, count)
}

func TestMergeDoesNotOverwriteExistingNodes(t *testing.T) {
	g := aggregates.NewFamilyGraph()
	m := NewBranchMerger()
	m.Merge(g, rootA())

	// C is collapsed; merging its branch leaves its flags for the caller
	m.Merge(g, &entities.TreePerson{
		ID:   "C",
		Name: "Changed",
		Unions: []entities.Union{{
			Children: []entities.ChildSummary{{ID: "E"}, {ID: "F"}},
		}},
	})

	c, _ := g.Node("C")
	assert.Equal(t, "Cheikh", c.Name)
	assert.False(t, c.Expanded)
	assert.True(t, g.HasEdge("C->E"))
	assert.True(t, g.HasEdge("C->F"))
}

func TestMergeKeepsPartnerSexFromSummary(t *testing.T) {
	g := aggregates.NewFamilyGraph()

	NewBranchMerger().Merge(g, &entities.TreePerson{
		ID:  "X",
		Sex: valueobjects.SexFemale,
		Unions: []entities.Union{{
			Partner: &entities.PartnerSummary{ID: "Y"},
		}, {
			Partner: &entities.PartnerSummary{ID: "Z", Sex: valueobjects.SexFemale},
		}},
	})

	y, _ := g.Node("Y")
	z, _ := g.Node("Z")
	assert.Equal(t, valueobjects.SexMale, y.Sex)
	assert.Equal(t, valueobjects.SexFemale, z.Sex)
	assert.False(t, y.HasChildren)
}

func TestMergeFromPartnerSideKeepsExistingOrientation(t *testing.T) {
	g := aggregates.NewFamilyGraph()
	m := NewBranchMerger()
	m.Merge(g, rootA())

	// the same union fetched as B's branch, with A as the partner
	result := m.Merge(g, &entities.TreePerson{
		ID:         "B",
		Generation: 1,
		Unions: []entities.Union{{
			ID:      "u-ab",
			Partner: &entities.PartnerSummary{ID: "A"},
			Children: []entities.ChildSummary{
				{ID: "C", Generation: 2, ChildCount: 2},
				{ID: "D", Generation: 2},
			},
		}},
	})

	assert.False(t, result.Changed())
	assert.ElementsMatch(t, []string{"A->B", "B->C", "B->D"}, edgeKeys(g))
	assert.False(t, g.HasEdge(valueobjects.NewEdgeKey("B", "A")))
}
