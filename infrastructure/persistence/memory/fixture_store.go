// Package memory holds an in-process branch store loaded from a YAML
// fixture. It backs local development, the seeder and tests.
package memory

import (
	"context"
	"fmt"
	"os"
	"sync"

	"kujisan/application/ports"
	"kujisan/domain/core/entities"
	"kujisan/domain/core/valueobjects"
	"kujisan/infrastructure/validation"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

// Fixture is the on-disk document shape
type Fixture struct {
	People   []*entities.TreePerson `yaml:"people"`
	Families []FamilyEntry          `yaml:"families"`
}

// FamilyEntry names a family page and the person heading it
type FamilyEntry struct {
	ID         string                `yaml:"id"`
	FamilyName string                `yaml:"familyName"`
	Slug       string                `yaml:"slug"`
	ImageRef   string                `yaml:"imageRef"`
	AudioURL   string                `yaml:"audioUrl"`
	Head       valueobjects.PersonID `yaml:"head"`
}

// FixtureStore serves branches from memory
type FixtureStore struct {
	mu       sync.RWMutex
	people   map[valueobjects.PersonID]*entities.TreePerson
	order    []valueobjects.PersonID
	families []FamilyEntry
	logger   *zap.Logger
}

var (
	_ ports.BranchFetcher   = (*FixtureStore)(nil)
	_ ports.BranchWriter    = (*FixtureStore)(nil)
	_ ports.DirectoryReader = (*FixtureStore)(nil)
)

// NewFixtureStore creates an empty store
func NewFixtureStore(logger *zap.Logger) *FixtureStore {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &FixtureStore{
		people: make(map[valueobjects.PersonID]*entities.TreePerson),
		logger: logger.Named("fixture_store"),
	}
}

// LoadFixtureFile reads a YAML fixture into a new store
func LoadFixtureFile(path string, logger *zap.Logger) (*FixtureStore, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read fixture %s: %w", path, err)
	}
	s := NewFixtureStore(logger)
	if err := s.Load(data); err != nil {
		return nil, fmt.Errorf("load fixture %s: %w", path, err)
	}
	return s, nil
}

// Load parses YAML and adds every valid person to the store
func (s *FixtureStore) Load(data []byte) error {
	var f Fixture
	if err := yaml.Unmarshal(data, &f); err != nil {
		return err
	}

	people, report := validation.SanitizeAll(f.People)
	if skipped := len(f.People) - len(people); skipped > 0 || report.Dropped() {
		s.logger.Warn("Fixture contained malformed entries",
			zap.Int("people", skipped),
			zap.Int("partners", report.DroppedPartners),
			zap.Int("children", report.DroppedChildren),
		)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for _, p := range people {
		s.put(p)
	}
	for _, fam := range f.Families {
		if fam.Slug == "" || s.people[fam.Head] == nil {
			s.logger.Warn("Skipping family without slug or known head", zap.String("family", fam.FamilyName))
			continue
		}
		s.families = append(s.families, fam)
	}
	s.logger.Info("Loaded fixture", zap.Int("people", len(people)), zap.Int("families", len(s.families)))
	return nil
}

// SaveBranch stores or replaces a person's branch
func (s *FixtureStore) SaveBranch(ctx context.Context, person *entities.TreePerson) error {
	if person == nil {
		return fmt.Errorf("nil branch")
	}
	clean := person.Clone()
	if _, err := validation.Sanitize(clean); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.put(clean)
	return nil
}

// FetchRoot returns generation-1 male people in load order
func (s *FixtureStore) FetchRoot(ctx context.Context) ([]*entities.TreePerson, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var roots []*entities.TreePerson
	for _, id := range s.order {
		p := s.people[id]
		if p.Generation == valueobjects.RootGeneration && p.Sex == valueobjects.SexMale {
			roots = append(roots, p.Clone())
		}
	}
	return roots, nil
}

// FetchBranch returns the branch for id, or nil when unknown
func (s *FixtureStore) FetchBranch(ctx context.Context, id valueobjects.PersonID) (*entities.TreePerson, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.people[id].Clone(), nil
}

// All returns every stored branch in load order
func (s *FixtureStore) All() []*entities.TreePerson {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*entities.TreePerson, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, s.people[id].Clone())
	}
	return out
}

// Len returns the number of stored people
func (s *FixtureStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.people)
}

// HealthCheck always succeeds
func (s *FixtureStore) HealthCheck(ctx context.Context) error {
	return nil
}

// put must be called with the lock held
func (s *FixtureStore) put(p *entities.TreePerson) {
	if _, exists := s.people[p.ID]; !exists {
		s.order = append(s.order, p.ID)
	}
	s.people[p.ID] = p
}
