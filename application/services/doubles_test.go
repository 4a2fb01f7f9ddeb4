package services

import (
	"context"
	"fmt"

	"kujisan/application/ports"
	"kujisan/domain/core/entities"
	"kujisan/domain/core/valueobjects"
	"kujisan/domain/events"

	"github.com/stretchr/testify/mock"
	"go.uber.org/zap"
)

// MockFetcher is a testify mock of ports.BranchFetcher
type MockFetcher struct {
	mock.Mock
}

func (m *MockFetcher) FetchRoot(ctx context.Context) ([]*entities.TreePerson, error) {
	args := m.Called(ctx)
	roots, _ := args.Get(0).([]*entities.TreePerson)
	return roots, args.Error(1)
}

func (m *MockFetcher) FetchBranch(ctx context.Context, id valueobjects.PersonID) (*entities.TreePerson, error) {
	args := m.Called(ctx, id)
	branch, _ := args.Get(0).(*entities.TreePerson)
	return branch, args.Error(1)
}

// MockPublisher is a testify mock of ports.EventPublisher
type MockPublisher struct {
	mock.Mock
}

func (m *MockPublisher) Publish(ctx context.Context, event events.DomainEvent) error {
	args := m.Called(ctx, event)
	return args.Error(0)
}

func (m *MockPublisher) PublishBatch(ctx context.Context, evts []events.DomainEvent) error {
	args := m.Called(ctx, evts)
	return args.Error(0)
}

// engineFunc adapts a function to ports.LayoutEngine
type engineFunc func(ctx context.Context, g ports.LayoutGraph) (map[valueobjects.PersonID]valueobjects.Position, error)

func (f engineFunc) Layout(ctx context.Context, g ports.LayoutGraph) (map[valueobjects.PersonID]valueobjects.Position, error) {
	return f(ctx, g)
}

// rowEngine places nodes left to right in input order
var rowEngine = engineFunc(func(_ context.Context, g ports.LayoutGraph) (map[valueobjects.PersonID]valueobjects.Position, error) {
	out := make(map[valueobjects.PersonID]valueobjects.Position, len(g.Nodes))
	for i, n := range g.Nodes {
		p, err := valueobjects.NewPosition(float64(i)*(n.Width+g.Options.NodeSpacing), 0)
		if err != nil {
			return nil, err
		}
		out[n.ID] = p
	}
	return out, nil
})

var failingEngine = engineFunc(func(context.Context, ports.LayoutGraph) (map[valueobjects.PersonID]valueobjects.Position, error) {
	return nil, fmt.Errorf("layout exploded")
})

var panickingEngine = engineFunc(func(context.Context, ports.LayoutGraph) (map[valueobjects.PersonID]valueobjects.Position, error) {
	panic("unsupported graph")
})

func newLayout(engine ports.LayoutEngine) *LayoutService {
	return NewLayoutService(engine, ports.DefaultLayoutSettings(), zap.NewNop(), nil)
}

func newDeps(fetcher ports.BranchFetcher) TreeDependencies {
	return TreeDependencies{
		Fetcher: fetcher,
		Layout:  newLayout(rowEngine),
		Logger:  zap.NewNop(),
	}
}

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
				{ID: "D", Name: "Dior", Generation: 2, Sex: valueobjects.SexFemale},
			},
		}},
	}
}

// branchC is C's branch: one union without a partner and children E and F.
func branchC() *entities.TreePerson {
	return &entities.TreePerson{
		ID:         "C",
		Name:       "Cheikh",
		Generation: 2,
		Sex:        valueobjects.SexMale,
		Unions: []entities.Union{{
			ID: "u-c",
			Children: []entities.ChildSummary{
				{ID: "E", Name: "Erica", Generation: 3},
				{ID: "F", Name: "Fatou", Generation: 3},
			},
		}},
	}
}

// familyFetcher serves a generated family: every person has one union with
// a partner and two children down to maxDepth. Partners point back at their
// spouse so cycles appear in the graph.
type familyFetcher struct {
	maxDepth int
	calls    int
}

func (f *familyFetcher) FetchRoot(context.Context) ([]*entities.TreePerson, error) {
	f.calls++
	return []*entities.TreePerson{f.branch("r"), f.branch("q")}, nil
}

func (f *familyFetcher) FetchBranch(_ context.Context, id valueobjects.PersonID) (*entities.TreePerson, error) {
	f.calls++
	return f.branch(string(id)), nil
}

func (f *familyFetcher) branch(id string) *entities.TreePerson {
	spouse := len(id) > 0 && id[len(id)-1] == 's'
	base := id
	if spouse {
		base = id[:len(id)-1]
	}
	depth := len(base)
	if depth > f.maxDepth {
		return nil
	}

	partner := base + "s"
	if spouse {
		partner = base
	}

	var children []entities.ChildSummary
	if depth < f.maxDepth {
		for _, suffix := range []string{"0", "1"} {
			cid := base + suffix
			count := 0
			if len(cid) < f.maxDepth {
				count = 2
			}
			children = append(children, entities.ChildSummary{
				ID:         valueobjects.PersonID(cid),
				Generation: valueobjects.Generation(len(cid)),
				ChildCount: count,
			})
		}
	}

	return &entities.TreePerson{
		ID:         valueobjects.PersonID(id),
		Generation: valueobjects.Generation(depth),
		Unions: []entities.Union{{
			ID:       "u-" + base,
			Partner:  &entities.PartnerSummary{ID: valueobjects.PersonID(partner)},
			Children: children,
		}},
	}
}
