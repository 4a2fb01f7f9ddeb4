package services

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"kujisan/application/ports"
	"kujisan/domain/core/aggregates"
	"kujisan/domain/core/entities"
	"kujisan/domain/core/valueobjects"
	"kujisan/domain/events"
	domainservices "kujisan/domain/services"
	pkgerrors "kujisan/pkg/errors"
	"kujisan/pkg/observability"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// Toggle actions and outcomes recorded in metrics and logs
const (
	ActionExpand   = "expand"
	ActionCollapse = "collapse"

	OutcomeApplied = "applied"
	OutcomeAbsent  = "absent"
	OutcomeStale   = "stale"
	OutcomeFailed  = "failed"
	OutcomeIgnored = "ignored"
)

// TreeDependencies are the collaborators shared by every controller
type TreeDependencies struct {
	Fetcher      ports.BranchFetcher
	Layout       *LayoutService
	Publisher    ports.EventPublisher
	Images       ports.ImageResolver
	Logger       *zap.Logger
	Metrics      *observability.Collector
	Tracer       trace.Tracer
	FetchTimeout time.Duration
}

// TreeController owns one tree view's graph store and runs the expand and
// collapse state machine over it.
//
// Operations are serialized: the mutex is held across fetch, merge and layout
// so a slow fetch can never land on a store another toggle already changed.
type TreeController struct {
	sessionID string
	deps      TreeDependencies
	graph     *aggregates.FamilyGraph
	merger    *domainservices.BranchMerger
	subtree   *domainservices.SubtreeService
	logger    *zap.Logger

	mu       sync.Mutex
	view     *TreeView
	lastUsed atomic.Int64
}

// NewTreeController creates a controller with an empty store
func NewTreeController(sessionID string, deps TreeDependencies) *TreeController {
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	if deps.Images == nil {
		deps.Images = ports.PassthroughImageResolver{}
	}
	if deps.Tracer == nil {
		deps.Tracer = observability.Tracer()
	}

	c := &TreeController{
		sessionID: sessionID,
		deps:      deps,
		graph:     aggregates.NewFamilyGraph(),
		merger:    domainservices.NewBranchMerger(),
		subtree:   domainservices.NewSubtreeService(),
		logger:    deps.Logger.With(zap.String("sessionID", sessionID)),
	}
	c.touch()
	return c
}

// SessionID returns the id this controller is registered under
func (c *TreeController) SessionID() string {
	return c.sessionID
}

// LastUsed returns when the controller last served a request
func (c *TreeController) LastUsed() time.Time {
	return time.Unix(0, c.lastUsed.Load())
}

func (c *TreeController) touch() {
	c.lastUsed.Store(time.Now().UnixNano())
}

// Init loads the root generation into an empty store. Calling it again
// replaces the store only after the root fetch succeeded.
func (c *TreeController) Init(ctx context.Context) (*TreeView, error) {
	ctx, span := c.deps.Tracer.Start(ctx, "tree.Init",
		trace.WithAttributes(attribute.String("session.id", c.sessionID)))
	defer span.End()

	c.mu.Lock()
	c.touch()

	roots, err := c.fetchRoot(ctx)
	if err != nil {
		c.mu.Unlock()
		span.RecordError(err)
		span.SetStatus(codes.Error, "root fetch failed")
		return nil, err
	}

	c.graph.Reset()
	added := 0
	for _, root := range roots {
		added += len(c.merger.Merge(c.graph, root).AddedNodes)
	}
	c.deps.Metrics.RecordGraphDelta(added, 0)

	view := c.render(ctx)
	event := events.NewTreeInitializedEvent(c.sessionID, len(roots), c.graph.NodeCount(), c.graph.EdgeCount(), c.graph.Version())
	c.mu.Unlock()

	c.logger.Info("Tree initialized",
		zap.Int("roots", len(roots)),
		zap.Int("nodes", len(view.Nodes)),
		zap.Int("edges", len(view.Edges)),
	)
	span.SetAttributes(attribute.Int("tree.nodes", len(view.Nodes)))
	c.publish(ctx, event)
	return view, nil
}

// Reload discards the store and loads the root generation again
func (c *TreeController) Reload(ctx context.Context) (*TreeView, error) {
	return c.Init(ctx)
}

// Toggle expands a collapsed node or collapses an expanded one, then lays
// the whole store out again. An unknown id is a NOT_FOUND error; a failed
// fetch is an EXTERNAL error and leaves the store untouched. Toggling a node
// that is present only as a union partner returns the current view.
func (c *TreeController) Toggle(ctx context.Context, id valueobjects.PersonID) (*TreeView, error) {
	ctx, span := c.deps.Tracer.Start(ctx, "tree.Toggle",
		trace.WithAttributes(
			attribute.String("session.id", c.sessionID),
			attribute.String("person.id", id.String()),
		))
	defer span.End()

	c.mu.Lock()
	c.touch()

	node, ok := c.graph.Node(id)
	if !ok {
		c.mu.Unlock()
		err := pkgerrors.NewNotFoundError("person " + id.String() + " in tree")
		span.RecordError(err)
		return nil, err
	}

	var (
		view    *TreeView
		event   events.DomainEvent
		action  string
		outcome string
		err     error
	)
	switch {
	case c.subtree.IsPartnerOnly(c.graph, id):
		// a partner's union belongs to the person it is drawn from
		action = ActionExpand
		if node.Expanded {
			action = ActionCollapse
		}
		view, outcome = c.currentView(ctx), OutcomeIgnored
	case node.Expanded:
		action = ActionCollapse
		view, event, outcome = c.collapse(ctx, id)
	default:
		action = ActionExpand
		view, event, outcome, err = c.expand(ctx, id)
	}
	c.mu.Unlock()

	c.deps.Metrics.RecordToggle(action, outcome)
	span.SetAttributes(
		attribute.String("tree.action", action),
		attribute.String("tree.outcome", outcome),
	)

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "toggle failed")
		c.logger.Warn("Toggle failed, tree left unchanged",
			zap.String("personID", id.String()),
			zap.String("action", action),
			zap.Error(err),
		)
		return nil, err
	}

	c.logger.Debug("Toggle applied",
		zap.String("personID", id.String()),
		zap.String("action", action),
		zap.String("outcome", outcome),
	)
	if event != nil {
		c.publish(ctx, event)
	}
	return view, nil
}

// collapse must be called with mu held
func (c *TreeController) collapse(ctx context.Context, id valueobjects.PersonID) (*TreeView, events.DomainEvent, string) {
	result := c.subtree.Collapse(c.graph, id)
	c.deps.Metrics.RecordGraphDelta(0, len(result.RemovedNodes))

	removed := make([]string, len(result.RemovedNodes))
	for i, r := range result.RemovedNodes {
		removed[i] = r.String()
	}

	view := c.render(ctx)
	event := events.NewBranchCollapsedEvent(c.sessionID, id.String(), removed, len(result.RemovedEdges), c.graph.Version())
	return view, event, OutcomeApplied
}

// expand must be called with mu held
func (c *TreeController) expand(ctx context.Context, id valueobjects.PersonID) (*TreeView, events.DomainEvent, string, error) {
	branch, err := c.fetchBranch(ctx, id)
	if err != nil {
		return nil, nil, OutcomeFailed, err
	}

	if branch == nil {
		return c.currentView(ctx), nil, OutcomeAbsent, nil
	}

	if branch.ID != id {
		return nil, nil, OutcomeFailed, pkgerrors.NewExternalError("branch source", nil).
			WithDetails(map[string]interface{}{"requested": id.String(), "received": branch.ID.String()})
	}

	// The store may have changed under a slow fetch; only merge onto a node
	// that is still present and collapsed.
	if node, ok := c.graph.Node(id); !ok || node.Expanded {
		c.logger.Info("Discarding stale branch", zap.String("personID", id.String()))
		return c.currentView(ctx), nil, OutcomeStale, nil
	}

	result := c.merger.Merge(c.graph, branch)
	if err := c.graph.SetExpanded(id, true); err != nil {
		return nil, nil, OutcomeFailed, err
	}
	c.deps.Metrics.RecordGraphDelta(len(result.AddedNodes), 0)

	view := c.render(ctx)
	event := events.NewBranchExpandedEvent(c.sessionID, id.String(), len(result.AddedNodes), len(result.AddedEdges), c.graph.Version())
	return view, event, OutcomeApplied, nil
}

// View returns the last rendered projection, laying the store out if nothing
// has been rendered yet
func (c *TreeController) View(ctx context.Context) *TreeView {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.touch()
	return c.currentView(ctx)
}

// Snapshot copies the store out for inspection
func (c *TreeController) Snapshot() aggregates.GraphSnapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.graph.Snapshot()
}

func (c *TreeController) currentView(ctx context.Context) *TreeView {
	if c.view == nil {
		return c.render(ctx)
	}
	return c.view.clone()
}

// render lays out the full store, writes positions back and caches the
// projection. Must be called with mu held.
func (c *TreeController) render(ctx context.Context) *TreeView {
	result := c.deps.Layout.Layout(ctx, c.graph.Nodes(), c.graph.Edges())
	if result.Positioned {
		c.graph.ApplyPositions(result.Positions())
	}
	c.view = Project(c.sessionID, c.graph.Version(), result, c.deps.Images)
	return c.view.clone()
}

func (c *TreeController) fetchRoot(ctx context.Context) ([]*entities.TreePerson, error) {
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	roots, err := c.deps.Fetcher.FetchRoot(ctx)
	if err != nil {
		return nil, asFetchError(err)
	}
	return roots, nil
}

func (c *TreeController) fetchBranch(ctx context.Context, id valueobjects.PersonID) (*entities.TreePerson, error) {
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	branch, err := c.deps.Fetcher.FetchBranch(ctx, id)
	if err != nil {
		return nil, asFetchError(err)
	}
	return branch, nil
}

func (c *TreeController) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if c.deps.FetchTimeout > 0 {
		return context.WithTimeout(ctx, c.deps.FetchTimeout)
	}
	return context.WithCancel(ctx)
}

func (c *TreeController) publish(ctx context.Context, event events.DomainEvent) {
	if c.deps.Publisher == nil {
		return
	}
	if err := c.deps.Publisher.Publish(ctx, event); err != nil {
		c.logger.Warn("Failed to publish tree event",
			zap.String("eventType", event.EventType()),
			zap.Error(err),
		)
	}
}

// asFetchError keeps upstream classifications and marks everything else as
// an external failure
func asFetchError(err error) error {
	if pkgerrors.IsExternal(err) || pkgerrors.IsType(err, pkgerrors.ErrorTypeTimeout) {
		return err
	}
	return pkgerrors.NewExternalError("branch source", err)
}
