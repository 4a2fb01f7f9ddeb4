package memory

import (
	"context"
	"testing"

	"kujisan/domain/core/entities"
	"kujisan/domain/core/valueobjects"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func loadDev(t *testing.T) *FixtureStore {
	t.Helper()
	s, err := LoadFixtureFile(devFixture, nil)
	require.NoError(t, err)
	return s
}

func summaryIDs(people []entities.PersonSummary) []valueobjects.PersonID {
	ids := make([]valueobjects.PersonID, 0, len(people))
	for _, p := range people {
		ids = append(ids, p.ID)
	}
	return ids
}

func TestFixtureListPeopleByName(t *testing.T) {
	people, err := loadDev(t).ListPeople(context.Background())

	require.NoError(t, err)
	require.Len(t, people, 10)
	assert.Equal(t, "Awa Ceesay", people[0].Name)
	assert.False(t, people[0].IsDescendant)
	for i := 1; i < len(people); i++ {
		assert.LessOrEqual(t, people[i-1].Name, people[i].Name)
	}
}

func TestFixtureProfileCollectsRelatives(t *testing.T) {
	p, err := loadDev(t).GetPerson(context.Background(), "musa-kujabi")

	require.NoError(t, err)
	require.NotNil(t, p)
	assert.True(t, p.IsDescendant)
	assert.Empty(t, p.Unions)

	require.Len(t, p.Parents, 1)
	parents := p.Parents[0]
	assert.Equal(t, "union-lamin-isatou", parents.ID)
	assert.Equal(t, []valueobjects.PersonID{"musa", "binta"}, summaryIDs(parents.Children))
	require.Len(t, parents.Partners, 2)
	assert.Equal(t, valueobjects.PersonID("lamin"), parents.Partners[0].ID)
	assert.Equal(t, []valueobjects.PersonID{"sani", "awa"}, summaryIDs(parents.Partners[0].Parents))
	assert.Equal(t, valueobjects.PersonID("isatou"), parents.Partners[1].ID)
	assert.Empty(t, parents.Partners[1].Parents)

	// grandparents heading a family do not make it the person's family
	assert.Nil(t, p.Family)
}

func TestFixtureProfileUnions(t *testing.T) {
	p, err := loadDev(t).GetPerson(context.Background(), "lamin-kujabi")

	require.NoError(t, err)
	require.Len(t, p.Unions, 1)
	assert.Equal(t, []valueobjects.PersonID{"lamin", "isatou"}, summaryIDs(p.Unions[0].Partners))
	assert.Equal(t, []valueobjects.PersonID{"musa", "binta"}, summaryIDs(p.Unions[0].Children))
	require.NotNil(t, p.Family)
	assert.Equal(t, "kujabi", p.Family.Slug)

	missing, err := loadDev(t).GetPerson(context.Background(), "nobody")
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestFixtureFamilies(t *testing.T) {
	s := loadDev(t)
	ctx := context.Background()

	families, err := s.ListFamilies(ctx)
	require.NoError(t, err)
	require.Len(t, families, 1)
	assert.Equal(t, "Sani Kujabi", families[0].HeadName)
	assert.Equal(t, 1, families[0].WivesCount)
	assert.Equal(t, 3, families[0].ChildrenCount)

	f, err := s.GetFamily(ctx, "kujabi")
	require.NoError(t, err)
	require.NotNil(t, f)
	assert.Equal(t, []valueobjects.PersonID{"awa"}, summaryIDs(f.Wives))
	assert.Equal(t, []valueobjects.PersonID{"lamin", "fatou", "ousman"}, summaryIDs(f.Children))

	missing, err := s.GetFamily(ctx, "unknown")
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestFixtureFamilyWithUnknownHeadIsSkipped(t *testing.T) {
	s := NewFixtureStore(nil)
	require.NoError(t, s.Load([]byte(`
people:
  - {id: a, name: A, generation: 1, sex: male, slug: a, unions: []}
families:
  - {id: f1, familyName: Ghost, slug: ghost, head: nobody}
  - {id: f2, familyName: Untitled, head: a}
  - {id: f3, familyName: A, slug: a-family, head: a}
`)))

	families, err := s.ListFamilies(context.Background())

	require.NoError(t, err)
	require.Len(t, families, 1)
	assert.Equal(t, "a-family", families[0].Slug)
}

func TestFixtureStatsCountDescendantsOnly(t *testing.T) {
	stats, err := loadDev(t).GetStats(context.Background())

	require.NoError(t, err)
	assert.Equal(t, entities.LineageStats{Children: 3, Grandchildren: 3}, *stats)
}
