package entities

import (
	"kujisan/domain/core/valueobjects"
)

// PersonNode is one visible individual in the ancestry tree.
//
// Identity is the PersonID. After creation only Expanded and the position
// change; the position belongs to the layout step and is opaque to everything
// else until layout has run (Positioned reports whether it has).
type PersonNode struct {
	ID          valueobjects.PersonID
	Name        string
	ImageRef    string
	Sex         valueobjects.Sex
	Generation  valueobjects.Generation
	Slug        string
	IsSpouse    bool
	HasChildren bool
	Expanded    bool

	position   valueobjects.Position
	positioned bool
}

// Position returns the last coordinate assigned by layout
func (n *PersonNode) Position() valueobjects.Position {
	return n.position
}

// Positioned reports whether layout has ever placed this node
func (n *PersonNode) Positioned() bool {
	return n.positioned
}

// PlaceAt records a layout coordinate
func (n *PersonNode) PlaceAt(p valueobjects.Position) {
	n.position = p
	n.positioned = true
}

// Clone returns a detached copy
func (n *PersonNode) Clone() PersonNode {
	return *n
}

// EdgeKind distinguishes the two relationship edges drawn in the tree
type EdgeKind string

const (
	// EdgeKindPartner links a person to a union partner
	EdgeKindPartner EdgeKind = "partner"
	// EdgeKindParentChild links the effective parent of a union to a child
	EdgeKindParentChild EdgeKind = "parent_child"
)

// RelationshipEdge is a directed edge used for layout and rendering
type RelationshipEdge struct {
	Key    valueobjects.EdgeKey
	Source valueobjects.PersonID
	Target valueobjects.PersonID
	Kind   EdgeKind
}

// NewRelationshipEdge builds an edge with its derived key
func NewRelationshipEdge(source, target valueobjects.PersonID, kind EdgeKind) RelationshipEdge {
	return RelationshipEdge{
		Key:    valueobjects.NewEdgeKey(source, target),
		Source: source,
		Target: target,
		Kind:   kind,
	}
}

// Touches reports whether the edge has id as an endpoint
func (e RelationshipEdge) Touches(id valueobjects.PersonID) bool {
	return e.Source == id || e.Target == id
}
