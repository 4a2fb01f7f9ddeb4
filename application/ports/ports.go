package ports

import (
	"context"

	"kujisan/domain/core/entities"
	"kujisan/domain/core/valueobjects"
	"kujisan/domain/events"
)

// BranchFetcher retrieves branches of the person/union graph one level deep.
// This is a port in hexagonal architecture; the CMS, DynamoDB and fixture
// adapters implement it.
type BranchFetcher interface {
	// FetchRoot returns every generation-1 person on the male root line
	FetchRoot(ctx context.Context) ([]*entities.TreePerson, error)

	// FetchBranch returns one person's unions and children. An unknown id
	// yields (nil, nil); a non-nil error is a recoverable fetch failure.
	FetchBranch(ctx context.Context, id valueobjects.PersonID) (*entities.TreePerson, error)
}

// DirectoryReader serves the people and family pages around the tree. Lookups
// by slug return (nil, nil) when nothing matches.
type DirectoryReader interface {
	ListPeople(ctx context.Context) ([]entities.PersonSummary, error)
	GetPerson(ctx context.Context, slug string) (*entities.PersonProfile, error)
	ListFamilies(ctx context.Context) ([]entities.FamilySummary, error)
	GetFamily(ctx context.Context, slug string) (*entities.FamilyProfile, error)
	GetStats(ctx context.Context) (*entities.LineageStats, error)
}

// LayoutNode is one box handed to the layout engine
type LayoutNode struct {
	ID     valueobjects.PersonID
	Width  float64
	Height float64
}

// LayoutEdge is one directed edge handed to the layout engine
type LayoutEdge struct {
	ID     valueobjects.EdgeKey
	Source valueobjects.PersonID
	Target valueobjects.PersonID
}

// Layout placements
const (
	PlacementBalanced = "balanced"
	PlacementLinear   = "linear"
)

// LayoutSettings are the layered layout parameters an operator can tune.
// They are loaded from configuration and may change while the service runs.
type LayoutSettings struct {
	NodeWidth    float64 `yaml:"node_width" validate:"gt=0"`
	NodeHeight   float64 `yaml:"node_height" validate:"gt=0"`
	NodeSpacing  float64 `yaml:"node_spacing" validate:"gte=0"`
	LayerSpacing float64 `yaml:"layer_spacing" validate:"gte=0"`
	Placement    string  `yaml:"placement" validate:"oneof=balanced linear"`
}

// DefaultLayoutSettings returns 170x70 boxes, 60 between siblings and 100
// between generations.
func DefaultLayoutSettings() LayoutSettings {
	return LayoutSettings{
		NodeWidth:    170,
		NodeHeight:   70,
		NodeSpacing:  60,
		LayerSpacing: 100,
		Placement:    PlacementBalanced,
	}
}

// LayoutOptions configures a layered top-down layout
type LayoutOptions struct {
	NodeSpacing  float64
	LayerSpacing float64
	Placement    string
}

// LayoutGraph is the engine input. Node order is the tie-break order for
// siblings.
type LayoutGraph struct {
	Nodes   []LayoutNode
	Edges   []LayoutEdge
	Options LayoutOptions
}

// LayoutEngine computes top-left coordinates for every node it knows about.
// Nodes missing from the returned map keep their previous position.
type LayoutEngine interface {
	Layout(ctx context.Context, graph LayoutGraph) (map[valueobjects.PersonID]valueobjects.Position, error)
}

// EventPublisher defines the interface for publishing domain events
type EventPublisher interface {
	// Publish sends a single event
	Publish(ctx context.Context, event events.DomainEvent) error

	// PublishBatch sends multiple events
	PublishBatch(ctx context.Context, events []events.DomainEvent) error
}

// ImageResolver turns an opaque image reference into something the client
// can display
type ImageResolver interface {
	Resolve(ref string) string
}

// PassthroughImageResolver returns references unchanged
type PassthroughImageResolver struct{}

// Resolve returns ref as-is
func (PassthroughImageResolver) Resolve(ref string) string {
	return ref
}

// BranchWriter persists branches; used by the seeder
type BranchWriter interface {
	SaveBranch(ctx context.Context, person *entities.TreePerson) error
}

// HealthChecker reports whether a backing dependency is reachable
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}
