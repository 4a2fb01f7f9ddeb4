package layout

import (
	"context"
	"fmt"
	"math"
	"sort"

	"kujisan/application/ports"
	"kujisan/domain/core/valueobjects"
)

// Placement strategies for horizontal coordinates
const (
	PlacementBalanced = ports.PlacementBalanced
	PlacementLinear   = ports.PlacementLinear
)

const defaultSweeps = 8

// LayeredEngine is a top-down Sugiyama layout broken into phases: cycle
// removal, layer assignment, crossing reduction and coordinate assignment.
// It is deterministic: the same input order always yields the same output.
type LayeredEngine struct {
	sweeps int
}

// NewLayeredEngine creates a layered layout engine
func NewLayeredEngine() *LayeredEngine {
	return &LayeredEngine{sweeps: defaultSweeps}
}

// vertex is a real node or a dummy that splits an edge spanning several
// layers
type vertex struct {
	id    valueobjects.PersonID
	w, h  float64
	dummy bool
	layer int
	order int
	x     float64
	succ  []int
	pred  []int
}

type layeredGraph struct {
	vertices []*vertex
	layers   [][]int
	opts     ports.LayoutOptions
}

// Layout returns top-left coordinates for every input node
func (e *LayeredEngine) Layout(ctx context.Context, g ports.LayoutGraph) (map[valueobjects.PersonID]valueobjects.Position, error) {
	placement := g.Options.Placement
	if placement == "" {
		placement = PlacementBalanced
	}
	if placement != PlacementBalanced && placement != PlacementLinear {
		return nil, fmt.Errorf("unknown placement %q", placement)
	}

	lg, edges, err := build(g)
	if err != nil {
		return nil, err
	}
	if len(lg.vertices) == 0 {
		return map[valueobjects.PersonID]valueobjects.Position{}, nil
	}

	dag := lg.removeCycles(edges)
	lg.assignLayers(dag)
	lg.splitLongEdges(dag)

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	lg.initialOrder()
	if err := lg.reduceCrossings(ctx, e.sweeps); err != nil {
		return nil, err
	}

	if placement == PlacementLinear {
		lg.packLinear()
	} else {
		lg.packBalanced()
	}

	return lg.export()
}

func build(g ports.LayoutGraph) (*layeredGraph, [][2]int, error) {
	lg := &layeredGraph{opts: g.Options}
	index := make(map[valueobjects.PersonID]int, len(g.Nodes))

	for _, n := range g.Nodes {
		if _, dup := index[n.ID]; dup {
			return nil, nil, fmt.Errorf("duplicate node %s", n.ID)
		}
		index[n.ID] = len(lg.vertices)
		lg.vertices = append(lg.vertices, &vertex{id: n.ID, w: n.Width, h: n.Height})
	}

	seen := make(map[[2]int]bool, len(g.Edges))
	edges := make([][2]int, 0, len(g.Edges))
	for _, ed := range g.Edges {
		u, ok := index[ed.Source]
		if !ok {
			return nil, nil, fmt.Errorf("edge %s references unknown node %s", ed.ID, ed.Source)
		}
		v, ok := index[ed.Target]
		if !ok {
			return nil, nil, fmt.Errorf("edge %s references unknown node %s", ed.ID, ed.Target)
		}
		key := [2]int{u, v}
		if u == v || seen[key] {
			continue
		}
		seen[key] = true
		edges = append(edges, key)
	}

	return lg, edges, nil
}

// removeCycles reverses DFS back edges so the graph becomes acyclic
func (lg *layeredGraph) removeCycles(edges [][2]int) [][2]int {
	n := len(lg.vertices)
	adj := make([][]int, n)
	for i, e := range edges {
		adj[e[0]] = append(adj[e[0]], i)
	}

	const (
		unvisited = iota
		onStack
		done
	)
	state := make([]int, n)
	reversed := make([]bool, len(edges))

	type frame struct {
		v    int
		next int
	}
	for s := 0; s < n; s++ {
		if state[s] != unvisited {
			continue
		}
		stack := []frame{{v: s}}
		state[s] = onStack
		for len(stack) > 0 {
			top := &stack[len(stack)-1]
			if top.next == len(adj[top.v]) {
				state[top.v] = done
				stack = stack[:len(stack)-1]
				continue
			}
			ei := adj[top.v][top.next]
			top.next++
			w := edges[ei][1]
			switch state[w] {
			case onStack:
				reversed[ei] = true
			case unvisited:
				state[w] = onStack
				stack = append(stack, frame{v: w})
			}
		}
	}

	seen := make(map[[2]int]bool, len(edges))
	dag := make([][2]int, 0, len(edges))
	for i, e := range edges {
		if reversed[i] {
			e = [2]int{e[1], e[0]}
		}
		if seen[e] {
			continue
		}
		seen[e] = true
		dag = append(dag, e)
	}
	return dag
}

// assignLayers puts every vertex one layer below its deepest predecessor
func (lg *layeredGraph) assignLayers(dag [][2]int) {
	n := len(lg.vertices)
	indegree := make([]int, n)
	out := make([][]int, n)
	for _, e := range dag {
		out[e[0]] = append(out[e[0]], e[1])
		indegree[e[1]]++
	}

	queue := make([]int, 0, n)
	for v := 0; v < n; v++ {
		if indegree[v] == 0 {
			queue = append(queue, v)
		}
	}
	for len(queue) > 0 {
		u := queue[0]
		queue = queue[1:]
		for _, v := range out[u] {
			if l := lg.vertices[u].layer + 1; l > lg.vertices[v].layer {
				lg.vertices[v].layer = l
			}
			indegree[v]--
			if indegree[v] == 0 {
				queue = append(queue, v)
			}
		}
	}
}

// splitLongEdges inserts dummy vertices so every edge joins adjacent layers
func (lg *layeredGraph) splitLongEdges(dag [][2]int) {
	for _, e := range dag {
		u, v := e[0], e[1]
		prev := u
		for l := lg.vertices[u].layer + 1; l < lg.vertices[v].layer; l++ {
			d := len(lg.vertices)
			lg.vertices = append(lg.vertices, &vertex{dummy: true, layer: l})
			lg.link(prev, d)
			prev = d
		}
		lg.link(prev, v)
	}

	depth := 0
	for _, vx := range lg.vertices {
		if vx.layer+1 > depth {
			depth = vx.layer + 1
		}
	}
	lg.layers = make([][]int, depth)
}

func (lg *layeredGraph) link(u, v int) {
	lg.vertices[u].succ = append(lg.vertices[u].succ, v)
	lg.vertices[v].pred = append(lg.vertices[v].pred, u)
}

// initialOrder fills the layers breadth first from the top layer in input
// order so siblings start next to each other
func (lg *layeredGraph) initialOrder() {
	placed := make([]bool, len(lg.vertices))
	var queue []int
	for i, vx := range lg.vertices {
		if vx.layer == 0 && !vx.dummy {
			queue = append(queue, i)
			placed[i] = true
		}
	}

	for len(queue) > 0 {
		u := queue[0]
		queue = queue[1:]
		lg.appendToLayer(u)
		for _, v := range lg.vertices[u].succ {
			if !placed[v] {
				placed[v] = true
				queue = append(queue, v)
			}
		}
	}

	for i := range lg.vertices {
		if !placed[i] {
			lg.appendToLayer(i)
		}
	}
}

func (lg *layeredGraph) appendToLayer(v int) {
	l := lg.vertices[v].layer
	lg.vertices[v].order = len(lg.layers[l])
	lg.layers[l] = append(lg.layers[l], v)
}

// reduceCrossings alternates downward and upward barycenter sweeps and keeps
// the ordering with the fewest crossings
func (lg *layeredGraph) reduceCrossings(ctx context.Context, sweeps int) error {
	best := lg.snapshotOrder()
	bestCrossings := lg.crossings()

	for i := 0; i < sweeps && bestCrossings > 0; i++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		if i%2 == 0 {
			for l := 1; l < len(lg.layers); l++ {
				lg.sortByBarycenter(l, true)
			}
		} else {
			for l := len(lg.layers) - 2; l >= 0; l-- {
				lg.sortByBarycenter(l, false)
			}
		}

		if c := lg.crossings(); c < bestCrossings {
			bestCrossings = c
			best = lg.snapshotOrder()
		}
	}

	lg.restoreOrder(best)
	return nil
}

func (lg *layeredGraph) sortByBarycenter(l int, fromAbove bool) {
	layer := lg.layers[l]
	bary := make(map[int]float64, len(layer))
	for _, v := range layer {
		neighbours := lg.vertices[v].succ
		if fromAbove {
			neighbours = lg.vertices[v].pred
		}
		if len(neighbours) == 0 {
			bary[v] = float64(lg.vertices[v].order)
			continue
		}
		sum := 0.0
		for _, w := range neighbours {
			sum += float64(lg.vertices[w].order)
		}
		bary[v] = sum / float64(len(neighbours))
	}

	sort.SliceStable(layer, func(i, j int) bool {
		return bary[layer[i]] < bary[layer[j]]
	})
	for i, v := range layer {
		lg.vertices[v].order = i
	}
}

// crossings counts edge crossings between every pair of adjacent layers
func (lg *layeredGraph) crossings() int {
	total := 0
	for l := 0; l+1 < len(lg.layers); l++ {
		var segs [][2]int
		for _, u := range lg.layers[l] {
			for _, v := range lg.vertices[u].succ {
				segs = append(segs, [2]int{lg.vertices[u].order, lg.vertices[v].order})
			}
		}
		for i := 0; i < len(segs); i++ {
			for j := i + 1; j < len(segs); j++ {
				a, b := segs[i], segs[j]
				if (a[0] < b[0] && a[1] > b[1]) || (a[0] > b[0] && a[1] < b[1]) {
					total++
				}
			}
		}
	}
	return total
}

func (lg *layeredGraph) snapshotOrder() [][]int {
	out := make([][]int, len(lg.layers))
	for l, layer := range lg.layers {
		out[l] = append([]int(nil), layer...)
	}
	return out
}

func (lg *layeredGraph) restoreOrder(order [][]int) {
	lg.layers = order
	for _, layer := range lg.layers {
		for i, v := range layer {
			lg.vertices[v].order = i
		}
	}
}

// gap is the minimum distance between the centres of two neighbours
func (lg *layeredGraph) gap(a, b int) float64 {
	va, vb := lg.vertices[a], lg.vertices[b]
	spacing := lg.opts.NodeSpacing
	if va.dummy || vb.dummy {
		spacing /= 2
	}
	return va.w/2 + spacing + vb.w/2
}

// packLinear places each layer left to right with fixed spacing
func (lg *layeredGraph) packLinear() {
	for _, layer := range lg.layers {
		for i, v := range layer {
			if i == 0 {
				lg.vertices[v].x = lg.vertices[v].w / 2
				continue
			}
			prev := layer[i-1]
			lg.vertices[v].x = lg.vertices[prev].x + lg.gap(prev, v)
		}
	}
}

// packBalanced starts from the linear packing and repeatedly pulls children
// under their parents and parents over their children
func (lg *layeredGraph) packBalanced() {
	lg.packLinear()

	for pass := 0; pass < 4; pass++ {
		for l := 1; l < len(lg.layers); l++ {
			lg.alignLayer(l, true)
		}
		for l := len(lg.layers) - 2; l >= 0; l-- {
			lg.alignLayer(l, false)
		}
	}
}

// alignLayer moves every vertex toward the mean x of its neighbours in the
// adjacent layer while keeping the minimum gaps. It resolves overlaps once
// pushing right and once pushing left and takes the mean of both, which
// satisfies the same gaps.
func (lg *layeredGraph) alignLayer(l int, fromAbove bool) {
	layer := lg.layers[l]
	if len(layer) == 0 {
		return
	}

	desired := make([]float64, len(layer))
	for i, v := range layer {
		neighbours := lg.vertices[v].succ
		if fromAbove {
			neighbours = lg.vertices[v].pred
		}
		if len(neighbours) == 0 {
			desired[i] = lg.vertices[v].x
			continue
		}
		sum := 0.0
		for _, w := range neighbours {
			sum += lg.vertices[w].x
		}
		desired[i] = sum / float64(len(neighbours))
	}

	right := make([]float64, len(layer))
	for i := range layer {
		right[i] = desired[i]
		if i > 0 {
			right[i] = math.Max(right[i], right[i-1]+lg.gap(layer[i-1], layer[i]))
		}
	}
	left := make([]float64, len(layer))
	for i := len(layer) - 1; i >= 0; i-- {
		left[i] = desired[i]
		if i < len(layer)-1 {
			left[i] = math.Min(left[i], left[i+1]-lg.gap(layer[i], layer[i+1]))
		}
	}

	for i, v := range layer {
		lg.vertices[v].x = (left[i] + right[i]) / 2
	}
}

// export converts centres to top-left corners, stacks the layers and shifts
// everything so the leftmost real node starts at x=0
func (lg *layeredGraph) export() (map[valueobjects.PersonID]valueobjects.Position, error) {
	layerY := make([]float64, len(lg.layers))
	y := 0.0
	for l, layer := range lg.layers {
		layerY[l] = y
		tallest := 0.0
		for _, v := range layer {
			if !lg.vertices[v].dummy && lg.vertices[v].h > tallest {
				tallest = lg.vertices[v].h
			}
		}
		y += tallest + lg.opts.LayerSpacing
	}

	minLeft := math.Inf(1)
	for _, vx := range lg.vertices {
		if !vx.dummy {
			minLeft = math.Min(minLeft, vx.x-vx.w/2)
		}
	}

	out := make(map[valueobjects.PersonID]valueobjects.Position)
	for _, vx := range lg.vertices {
		if vx.dummy {
			continue
		}
		p, err := valueobjects.NewPosition(vx.x-vx.w/2-minLeft, layerY[vx.layer])
		if err != nil {
			return nil, fmt.Errorf("node %s: %w", vx.id, err)
		}
		out[vx.id] = p
	}
	return out, nil
}
