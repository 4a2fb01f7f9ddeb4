package aggregates

import (
	"testing"

	"kujisan/domain/core/entities"
	"kujisan/domain/core/valueobjects"
	pkgerrors "kujisan/pkg/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func person(id string) entities.PersonNode {
	return entities.PersonNode{ID: valueobjects.PersonID(id), Name: "Person " + id, Generation: 1}
}

func seededGraph(t *testing.T, ids ...string) *FamilyGraph {
	t.Helper()
	g := NewFamilyGraph()
	for _, id := range ids {
		require.NoError(t, g.UpsertNode(person(id)))
	}
	return g
}

func TestUpsertNode(t *testing.T) {
	tests := []struct {
		name    string
		id      string
		wantErr bool
	}{
		{"valid id", "A", false},
		{"empty id", "", true},
		{"null placeholder", "null", true},
		{"undefined placeholder", "undefined", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := NewFamilyGraph()
			err := g.UpsertNode(person(tt.id))
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, pkgerrors.IsValidation(err))
				assert.Equal(t, 0, g.NodeCount())
				return
			}
			require.NoError(t, err)
			assert.True(t, g.HasNode(valueobjects.PersonID(tt.id)))
		})
	}
}

func TestUpsertNodeReplacesWithoutDuplicating(t *testing.T) {
	g := seededGraph(t, "A")

	updated := person("A")
	updated.Name = "Renamed"
	require.NoError(t, g.UpsertNode(updated))

	assert.Equal(t, 1, g.NodeCount())
	node, ok := g.Node("A")
	require.True(t, ok)
	assert.Equal(t, "Renamed", node.Name)
}

func TestUpsertEdgeRejectsDanglingEndpoints(t *testing.T) {
	g := seededGraph(t, "A")

	err := g.UpsertEdge(entities.NewRelationshipEdge("A", "B", entities.EdgeKindPartner))
	require.Error(t, err)
	assert.Equal(t, 0, g.EdgeCount())

	err = g.UpsertEdge(entities.NewRelationshipEdge("A", "A", entities.EdgeKindPartner))
	require.Error(t, err)
}

func TestUpsertEdgeIsKeyedByPair(t *testing.T) {
	g := seededGraph(t, "A", "B")

	require.NoError(t, g.UpsertEdge(entities.NewRelationshipEdge("A", "B", entities.EdgeKindPartner)))
	require.NoError(t, g.UpsertEdge(entities.NewRelationshipEdge("A", "B", entities.EdgeKindPartner)))

	assert.Equal(t, 1, g.EdgeCount())
	assert.True(t, g.HasEdge(valueobjects.NewEdgeKey("A", "B")))
	assert.Len(t, g.OutgoingEdges("A"), 1)
	assert.Empty(t, g.OutgoingEdges("B"))
}

func TestUpsertEdgeDerivesMissingKey(t *testing.T) {
	g := seededGraph(t, "A", "B")

	require.NoError(t, g.UpsertEdge(entities.RelationshipEdge{Source: "A", Target: "B", Kind: entities.EdgeKindParentChild}))

	edge, ok := g.Edge("A->B")
	require.True(t, ok)
	assert.Equal(t, entities.EdgeKindParentChild, edge.Kind)
}

func TestDeleteNodeRemovesTouchingEdges(t *testing.T) {
	g := seededGraph(t, "A", "B", "C")
	require.NoError(t, g.UpsertEdge(entities.NewRelationshipEdge("A", "B", entities.EdgeKindPartner)))
	require.NoError(t, g.UpsertEdge(entities.NewRelationshipEdge("B", "C", entities.EdgeKindParentChild)))

	g.DeleteNode("B")

	assert.False(t, g.HasNode("B"))
	assert.Equal(t, 0, g.EdgeCount())
	assert.Empty(t, g.OutgoingEdges("A"))
	require.NoError(t, g.Validate())

	// unknown ids are ignored
	g.DeleteNode("missing")
	assert.Equal(t, 2, g.NodeCount())
}

func TestNodesAndEdgesKeepInsertionOrder(t *testing.T) {
	g := seededGraph(t, "C", "A", "B")
	require.NoError(t, g.UpsertEdge(entities.NewRelationshipEdge("C", "B", entities.EdgeKindParentChild)))
	require.NoError(t, g.UpsertEdge(entities.NewRelationshipEdge("C", "A", entities.EdgeKindPartner)))

	var ids []string
	for _, n := range g.Nodes() {
		ids = append(ids, n.ID.String())
	}
	assert.Equal(t, []string{"C", "A", "B"}, ids)

	edges := g.Edges()
	require.Len(t, edges, 2)
	assert.Equal(t, valueobjects.EdgeKey("C->B"), edges[0].Key)
	assert.Equal(t, valueobjects.EdgeKey("C->A"), edges[1].Key)
}

func TestNodesReturnsDetachedCopies(t *testing.T) {
	g := seededGraph(t, "A")

	nodes := g.Nodes()
	nodes[0].Expanded = true

	node, _ := g.Node("A")
	assert.False(t, node.Expanded)
}

func TestSetExpanded(t *testing.T) {
	g := seededGraph(t, "A")

	require.NoError(t, g.SetExpanded("A", true))
	node, _ := g.Node("A")
	assert.True(t, node.Expanded)

	err := g.SetExpanded("missing", true)
	require.Error(t, err)
	assert.True(t, pkgerrors.IsNotFound(err))
}

func TestApplyPositionsSkipsUnknownIDs(t *testing.T) {
	g := seededGraph(t, "A", "B")
	pa, _ := valueobjects.NewPosition(10, 20)
	pz, _ := valueobjects.NewPosition(99, 99)

	g.ApplyPositions(map[valueobjects.PersonID]valueobjects.Position{"A": pa, "Z": pz})

	a, _ := g.Node("A")
	b, _ := g.Node("B")
	assert.True(t, a.Positioned())
	assert.True(t, a.Position().Equals(pa))
	assert.False(t, b.Positioned())
	assert.False(t, g.HasNode("Z"))
}

func TestResetAndVersion(t *testing.T) {
	g := seededGraph(t, "A", "B")
	require.NoError(t, g.UpsertEdge(entities.NewRelationshipEdge("A", "B", entities.EdgeKindPartner)))
	before := g.Version()

	g.Reset()

	assert.Greater(t, g.Version(), before)
	assert.Equal(t, 0, g.NodeCount())
	assert.Equal(t, 0, g.EdgeCount())
	assert.Empty(t, g.OutgoingEdges("A"))
}

func TestSnapshot(t *testing.T) {
	g := seededGraph(t, "A", "B")
	require.NoError(t, g.UpsertEdge(entities.NewRelationshipEdge("A", "B", entities.EdgeKindPartner)))

	snap := g.Snapshot()
	assert.Len(t, snap.Nodes, 2)
	assert.Len(t, snap.Edges, 1)
	assert.Equal(t, g.Version(), snap.Version)

	g.DeleteNode("B")
	assert.Len(t, snap.Nodes, 2)
}
