package events

import (
	"time"

	"github.com/google/uuid"
)

// Event sources
const (
	// SourceTree is the tree session service
	SourceTree = "kujisan.tree"
)

// Event types
const (
	TypeTreeInitialized = "tree.initialized"
	TypeBranchExpanded  = "tree.branch_expanded"
	TypeBranchCollapsed = "tree.branch_collapsed"
)

// Event detail keys
const (
	DetailSessionID    = "sessionId"
	DetailPersonID     = "personId"
	DetailNodesAdded   = "nodesAdded"
	DetailEdgesAdded   = "edgesAdded"
	DetailNodesRemoved = "nodesRemoved"
	DetailEdgesRemoved = "edgesRemoved"
	DetailNodeCount    = "nodeCount"
	DetailEdgeCount    = "edgeCount"
)

// DomainEvent is something that happened to a tree view
type DomainEvent interface {
	EventID() string
	EventType() string
	AggregateID() string
	Timestamp() time.Time
	Version() int
	EventData() map[string]interface{}
}

// BaseEvent carries the fields shared by every tree event
type BaseEvent struct {
	eventID     string
	eventType   string
	aggregateID string
	timestamp   time.Time
	version     int
}

// EventID returns the unique event identifier
func (e BaseEvent) EventID() string {
	return e.eventID
}

// EventType returns the type of event
func (e BaseEvent) EventType() string {
	return e.eventType
}

// AggregateID returns the tree session the event belongs to
func (e BaseEvent) AggregateID() string {
	return e.aggregateID
}

// Timestamp returns the event timestamp
func (e BaseEvent) Timestamp() time.Time {
	return e.timestamp
}

// Version returns the graph version after the change
func (e BaseEvent) Version() int {
	return e.version
}

func newBaseEvent(eventType, sessionID string, version int) BaseEvent {
	return BaseEvent{
		eventID:     uuid.New().String(),
		eventType:   eventType,
		aggregateID: sessionID,
		timestamp:   time.Now(),
		version:     version,
	}
}

// TreeInitializedEvent is fired when a view is loaded from the root query
type TreeInitializedEvent struct {
	BaseEvent
	RootCount int `json:"root_count"`
	NodeCount int `json:"node_count"`
	EdgeCount int `json:"edge_count"`
}

// NewTreeInitializedEvent creates a TreeInitializedEvent
func NewTreeInitializedEvent(sessionID string, roots, nodes, edges, version int) *TreeInitializedEvent {
	return &TreeInitializedEvent{
		BaseEvent: newBaseEvent(TypeTreeInitialized, sessionID, version),
		RootCount: roots,
		NodeCount: nodes,
		EdgeCount: edges,
	}
}

// EventData returns the event-specific data
func (e *TreeInitializedEvent) EventData() map[string]interface{} {
	return map[string]interface{}{
		"rootCount":     e.RootCount,
		DetailNodeCount: e.NodeCount,
		DetailEdgeCount: e.EdgeCount,
	}
}

// BranchExpandedEvent is fired after a fetched branch was merged
type BranchExpandedEvent struct {
	BaseEvent
	PersonID   string `json:"person_id"`
	NodesAdded int    `json:"nodes_added"`
	EdgesAdded int    `json:"edges_added"`
}

// NewBranchExpandedEvent creates a BranchExpandedEvent
func NewBranchExpandedEvent(sessionID, personID string, nodesAdded, edgesAdded, version int) *BranchExpandedEvent {
	return &BranchExpandedEvent{
		BaseEvent:  newBaseEvent(TypeBranchExpanded, sessionID, version),
		PersonID:   personID,
		NodesAdded: nodesAdded,
		EdgesAdded: edgesAdded,
	}
}

// EventData returns the event-specific data
func (e *BranchExpandedEvent) EventData() map[string]interface{} {
	return map[string]interface{}{
		DetailPersonID:   e.PersonID,
		DetailNodesAdded: e.NodesAdded,
		DetailEdgesAdded: e.EdgesAdded,
	}
}

// BranchCollapsedEvent is fired after a subtree was removed
type BranchCollapsedEvent struct {
	BaseEvent
	PersonID     string   `json:"person_id"`
	RemovedIDs   []string `json:"removed_ids"`
	EdgesRemoved int      `json:"edges_removed"`
}

// NewBranchCollapsedEvent creates a BranchCollapsedEvent
func NewBranchCollapsedEvent(sessionID, personID string, removedIDs []string, edgesRemoved, version int) *BranchCollapsedEvent {
	return &BranchCollapsedEvent{
		BaseEvent:    newBaseEvent(TypeBranchCollapsed, sessionID, version),
		PersonID:     personID,
		RemovedIDs:   removedIDs,
		EdgesRemoved: edgesRemoved,
	}
}

// EventData returns the event-specific data
func (e *BranchCollapsedEvent) EventData() map[string]interface{} {
	return map[string]interface{}{
		DetailPersonID:     e.PersonID,
		DetailNodesRemoved: len(e.RemovedIDs),
		"removedIds":       e.RemovedIDs,
		DetailEdgesRemoved: e.EdgesRemoved,
	}
}
