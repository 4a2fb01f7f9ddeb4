package services

import (
	"kujisan/application/ports"
	"kujisan/domain/core/entities"
)

// NodeType is the renderer component every person node uses
const NodeType = "passport"

// ViewPosition is a node's top-left corner
type ViewPosition struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// ViewNodeData is the payload the renderer shows inside a node
type ViewNodeData struct {
	ID          string `json:"id"`
	Label       string `json:"label"`
	Slug        string `json:"slug,omitempty"`
	Image       string `json:"image,omitempty"`
	Sex         string `json:"sex,omitempty"`
	Generation  int    `json:"generation"`
	IsSpouse    bool   `json:"isSpouse"`
	HasChildren bool   `json:"hasChildren"`
	Expanded    bool   `json:"expanded"`
}

// ViewNode is one rendered person
type ViewNode struct {
	ID       string       `json:"id"`
	Type     string       `json:"type"`
	Position ViewPosition `json:"position"`
	Data     ViewNodeData `json:"data"`
}

// ViewEdge is one rendered relationship
type ViewEdge struct {
	ID       string `json:"id"`
	Source   string `json:"source"`
	Target   string `json:"target"`
	Kind     string `json:"kind"`
	Animated bool   `json:"animated"`
}

// TreeView is the pure projection of a graph store handed to the renderer
type TreeView struct {
	SessionID  string     `json:"sessionId,omitempty"`
	Version    int        `json:"version"`
	Positioned bool       `json:"positioned"`
	Nodes      []ViewNode `json:"nodes"`
	Edges      []ViewEdge `json:"edges"`
}

// Project builds a view from a layout result
func Project(sessionID string, version int, result *LayoutResult, images ports.ImageResolver) *TreeView {
	if images == nil {
		images = ports.PassthroughImageResolver{}
	}

	view := &TreeView{
		SessionID:  sessionID,
		Version:    version,
		Positioned: result.Positioned,
		Nodes:      make([]ViewNode, 0, len(result.Nodes)),
		Edges:      make([]ViewEdge, 0, len(result.Edges)),
	}

	for i := range result.Nodes {
		n := &result.Nodes[i]
		var image string
		if n.ImageRef != "" {
			image = images.Resolve(n.ImageRef)
		}
		view.Nodes = append(view.Nodes, ViewNode{
			ID:       n.ID.String(),
			Type:     NodeType,
			Position: ViewPosition{X: n.Position().X(), Y: n.Position().Y()},
			Data: ViewNodeData{
				ID:          n.ID.String(),
				Label:       n.Name,
				Slug:        n.Slug,
				Image:       image,
				Sex:         string(n.Sex),
				Generation:  int(n.Generation),
				IsSpouse:    n.IsSpouse,
				HasChildren: n.HasChildren,
				Expanded:    n.Expanded,
			},
		})
	}

	for _, e := range result.Edges {
		view.Edges = append(view.Edges, ViewEdge{
			ID:       e.Key.String(),
			Source:   e.Source.String(),
			Target:   e.Target.String(),
			Kind:     string(e.Kind),
			Animated: e.Kind == entities.EdgeKindParentChild,
		})
	}

	return view
}

// Node finds a rendered node by id
func (v *TreeView) Node(id string) (ViewNode, bool) {
	for _, n := range v.Nodes {
		if n.ID == id {
			return n, true
		}
	}
	return ViewNode{}, false
}

func (v *TreeView) clone() *TreeView {
	if v == nil {
		return nil
	}
	out := *v
	out.Nodes = make([]ViewNode, len(v.Nodes))
	copy(out.Nodes, v.Nodes)
	out.Edges = make([]ViewEdge, len(v.Edges))
	copy(out.Edges, v.Edges)
	return &out
}
