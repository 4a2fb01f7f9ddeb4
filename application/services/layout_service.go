package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"kujisan/application/ports"
	"kujisan/domain/core/entities"
	"kujisan/domain/core/valueobjects"
	"kujisan/pkg/observability"

	"go.uber.org/zap"
)

// LayoutResult is the filtered node and edge set after a layout run.
// Positioned is false when the engine failed and coordinates were left as
// they were.
type LayoutResult struct {
	Nodes      []entities.PersonNode
	Edges      []entities.RelationshipEdge
	Positioned bool
}

// Positions returns the coordinates of every placed node
func (r *LayoutResult) Positions() map[valueobjects.PersonID]valueobjects.Position {
	out := make(map[valueobjects.PersonID]valueobjects.Position, len(r.Nodes))
	for i := range r.Nodes {
		if r.Nodes[i].Positioned() {
			out[r.Nodes[i].ID] = r.Nodes[i].Position()
		}
	}
	return out
}

// LayoutService adapts the node/edge store to a layered layout engine and
// degrades to unpositioned output when the engine fails.
type LayoutService struct {
	engine  ports.LayoutEngine
	logger  *zap.Logger
	metrics *observability.Collector

	mu       sync.RWMutex
	settings ports.LayoutSettings
}

// NewLayoutService creates a new layout service
func NewLayoutService(
	engine ports.LayoutEngine,
	settings ports.LayoutSettings,
	logger *zap.Logger,
	metrics *observability.Collector,
) *LayoutService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LayoutService{
		engine:   engine,
		settings: settings,
		logger:   logger,
		metrics:  metrics,
	}
}

// UpdateSettings swaps the layout parameters used by subsequent runs
func (s *LayoutService) UpdateSettings(settings ports.LayoutSettings) {
	s.mu.Lock()
	s.settings = settings
	s.mu.Unlock()
	s.logger.Info("Layout settings updated",
		zap.Float64("nodeSpacing", settings.NodeSpacing),
		zap.Float64("layerSpacing", settings.LayerSpacing),
		zap.String("placement", settings.Placement),
	)
}

// Settings returns the current layout parameters
func (s *LayoutService) Settings() ports.LayoutSettings {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.settings
}

// Layout filters malformed entries, runs the engine and maps coordinates back
// onto copies of the nodes. It never returns an error: an engine failure or
// panic is logged and the filtered input comes back unpositioned.
func (s *LayoutService) Layout(
	ctx context.Context,
	nodes []entities.PersonNode,
	edges []entities.RelationshipEdge,
) *LayoutResult {
	result := Filter(nodes, edges)
	if len(result.Nodes) == 0 {
		return result
	}

	settings := s.Settings()
	input := ports.LayoutGraph{
		Nodes: make([]ports.LayoutNode, len(result.Nodes)),
		Edges: make([]ports.LayoutEdge, len(result.Edges)),
		Options: ports.LayoutOptions{
			NodeSpacing:  settings.NodeSpacing,
			LayerSpacing: settings.LayerSpacing,
			Placement:    settings.Placement,
		},
	}
	for i, n := range result.Nodes {
		input.Nodes[i] = ports.LayoutNode{ID: n.ID, Width: settings.NodeWidth, Height: settings.NodeHeight}
	}
	for i, e := range result.Edges {
		input.Edges[i] = ports.LayoutEdge{ID: e.Key, Source: e.Source, Target: e.Target}
	}

	start := time.Now()
	positions, err := s.run(ctx, input)
	s.metrics.RecordLayout(time.Since(start), err != nil)

	if err != nil {
		s.logger.Error("Layout failed, rendering unpositioned",
			zap.Error(err),
			zap.Int("nodes", len(result.Nodes)),
			zap.Int("edges", len(result.Edges)),
		)
		return result
	}

	for i := range result.Nodes {
		if pos, ok := positions[result.Nodes[i].ID]; ok {
			result.Nodes[i].PlaceAt(pos)
		}
	}
	result.Positioned = true
	return result
}

func (s *LayoutService) run(ctx context.Context, input ports.LayoutGraph) (positions map[valueobjects.PersonID]valueobjects.Position, err error) {
	defer func() {
		if r := recover(); r != nil {
			positions = nil
			err = fmt.Errorf("layout engine panicked: %v", r)
		}
	}()
	return s.engine.Layout(ctx, input)
}

// Filter drops nodes with placeholder ids and edges whose endpoints did not
// survive. The returned nodes are copies.
func Filter(nodes []entities.PersonNode, edges []entities.RelationshipEdge) *LayoutResult {
	result := &LayoutResult{
		Nodes: make([]entities.PersonNode, 0, len(nodes)),
		Edges: make([]entities.RelationshipEdge, 0, len(edges)),
	}

	kept := make(map[valueobjects.PersonID]struct{}, len(nodes))
	for _, n := range nodes {
		if n.ID.IsPlaceholder() {
			continue
		}
		if _, dup := kept[n.ID]; dup {
			continue
		}
		kept[n.ID] = struct{}{}
		result.Nodes = append(result.Nodes, n)
	}

	for _, e := range edges {
		_, src := kept[e.Source]
		_, dst := kept[e.Target]
		if src && dst {
			result.Edges = append(result.Edges, e)
		}
	}

	return result
}
