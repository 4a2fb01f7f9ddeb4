package memory

import (
	"context"
	"sort"

	"kujisan/domain/core/entities"
	"kujisan/domain/core/valueobjects"
	domainservices "kujisan/domain/services"
)

// ListPeople returns every stored person ordered by name
func (s *FixtureStore) ListPeople(ctx context.Context) ([]entities.PersonSummary, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]entities.PersonSummary, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, s.summary(id))
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

// GetPerson assembles a profile from the stored branches around the person
func (s *FixtureStore) GetPerson(ctx context.Context, slug string) (*entities.PersonProfile, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	p := s.bySlug(slug)
	if p == nil {
		return nil, nil
	}

	profile := &entities.PersonProfile{
		PersonSummary: s.summary(p.ID),
		Audio:         []entities.AudioClip{},
		Parents:       []entities.BirthUnion{},
		Unions:        s.unionsOf(p),
	}

	for _, u := range s.birthUnions(p.ID) {
		union := entities.BirthUnion{
			ID:       u.union.ID,
			Partners: []entities.ParentSummary{},
			Children: s.childSummaries(u.union),
		}
		for _, parent := range u.parents() {
			var grandparents []entities.PersonSummary
			for _, gu := range s.birthUnions(parent) {
				for _, gp := range gu.parents() {
					grandparents = append(grandparents, s.summary(gp))
				}
			}
			union.Partners = append(union.Partners, entities.ParentSummary{
				PersonSummary: s.summary(parent),
				Parents:       nonNil(grandparents),
			})
		}
		profile.Parents = append(profile.Parents, union)
	}

	profile.Family = s.familyOf(p)
	return profile, nil
}

// ListFamilies returns the fixture families in file order
func (s *FixtureStore) ListFamilies(ctx context.Context) ([]entities.FamilySummary, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]entities.FamilySummary, 0, len(s.families))
	for _, f := range s.families {
		head := s.people[f.Head]
		summary := entities.FamilySummary{
			ID:         f.ID,
			FamilyName: f.FamilyName,
			Slug:       f.Slug,
			ImageRef:   f.ImageRef,
			HeadName:   head.Name,
		}
		for _, u := range head.Unions {
			summary.WivesCount++
			summary.ChildrenCount += len(u.Children)
		}
		out = append(out, summary)
	}
	return out, nil
}

// GetFamily returns the family page with the given slug, or nil
func (s *FixtureStore) GetFamily(ctx context.Context, slug string) (*entities.FamilyProfile, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, f := range s.families {
		if f.Slug != slug {
			continue
		}
		head := s.people[f.Head]
		family := &entities.FamilyProfile{
			ID:         f.ID,
			FamilyName: f.FamilyName,
			Slug:       f.Slug,
			ImageRef:   f.ImageRef,
			AudioURL:   f.AudioURL,
			Head:       s.summary(head.ID),
		}
		family.Wives, family.Children = domainservices.AssembleFamily(family.Head, s.unionsOf(head))
		return family, nil
	}
	return nil, nil
}

// GetStats counts stored descendants in generations two to four
func (s *FixtureStore) GetStats(ctx context.Context) (*entities.LineageStats, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := &entities.LineageStats{}
	for _, id := range s.order {
		if !s.isDescendant(id) {
			continue
		}
		switch s.people[id].Generation {
		case 2:
			stats.Children++
		case 3:
			stats.Grandchildren++
		case 4:
			stats.GreatGrandchildren++
		}
	}
	return stats, nil
}

// birthUnion is a stored union seen from one of its partners
type birthUnion struct {
	owner valueobjects.PersonID
	union entities.Union
}

func (b birthUnion) parents() []valueobjects.PersonID {
	ids := []valueobjects.PersonID{b.owner}
	if b.union.Partner != nil {
		ids = append(ids, b.union.Partner.ID)
	}
	return ids
}

// birthUnions finds the unions listing id as a child, once per union id.
// Callers hold the read lock.
func (s *FixtureStore) birthUnions(id valueobjects.PersonID) []birthUnion {
	var out []birthUnion
	seen := make(map[string]struct{})
	for _, ownerID := range s.order {
		for _, u := range s.people[ownerID].Unions {
			if _, ok := seen[u.ID]; ok || !hasChild(u, id) {
				continue
			}
			seen[u.ID] = struct{}{}
			out = append(out, birthUnion{owner: ownerID, union: u})
		}
	}
	return out
}

func (s *FixtureStore) unionsOf(p *entities.TreePerson) []entities.ProfileUnion {
	out := make([]entities.ProfileUnion, 0, len(p.Unions))
	for _, u := range p.Unions {
		union := entities.ProfileUnion{
			ID:       u.ID,
			Partners: []entities.PersonSummary{s.summary(p.ID)},
			Children: s.childSummaries(u),
		}
		if u.Partner != nil {
			union.Partners = append(union.Partners, s.partnerSummary(*u.Partner))
		}
		out = append(out, union)
	}
	return out
}

func (s *FixtureStore) childSummaries(u entities.Union) []entities.PersonSummary {
	out := make([]entities.PersonSummary, 0, len(u.Children))
	for _, c := range u.Children {
		if _, ok := s.people[c.ID]; ok {
			out = append(out, s.summary(c.ID))
			continue
		}
		out = append(out, entities.PersonSummary{
			ID:           c.ID,
			Name:         c.Name,
			Slug:         c.Slug,
			ImageRef:     c.ImageRef,
			Sex:          c.Sex,
			IsDescendant: true,
			Generation:   c.Generation,
		})
	}
	return out
}

func (s *FixtureStore) partnerSummary(p entities.PartnerSummary) entities.PersonSummary {
	if _, ok := s.people[p.ID]; ok {
		return s.summary(p.ID)
	}
	return entities.PersonSummary{ID: p.ID, Name: p.Name, Slug: p.Slug, ImageRef: p.ImageRef, Sex: p.Sex}
}

// summary falls back to the bare id for people without a stored branch
func (s *FixtureStore) summary(id valueobjects.PersonID) entities.PersonSummary {
	p := s.people[id]
	if p == nil {
		return entities.PersonSummary{ID: id}
	}
	return entities.PersonSummary{
		ID:           p.ID,
		Name:         p.Name,
		Slug:         p.Slug,
		ImageRef:     p.ImageRef,
		Sex:          p.Sex,
		IsDescendant: s.isDescendant(id),
		Generation:   p.Generation,
	}
}

// isDescendant holds for roots and for anyone listed as a child
func (s *FixtureStore) isDescendant(id valueobjects.PersonID) bool {
	p := s.people[id]
	if p != nil && p.Generation == valueobjects.RootGeneration && p.Sex == valueobjects.SexMale {
		return true
	}
	return len(s.birthUnions(id)) > 0
}

// familyOf picks the family headed by the person, then by a partner, then
// by a parent
func (s *FixtureStore) familyOf(p *entities.TreePerson) *entities.FamilyRef {
	candidates := []valueobjects.PersonID{p.ID}
	candidates = append(candidates, p.Partners()...)
	for _, u := range s.birthUnions(p.ID) {
		candidates = append(candidates, u.parents()...)
	}

	for _, id := range candidates {
		for _, f := range s.families {
			if f.Head == id {
				return &entities.FamilyRef{Slug: f.Slug, FamilyName: f.FamilyName}
			}
		}
	}
	return nil
}

func (s *FixtureStore) bySlug(slug string) *entities.TreePerson {
	if slug == "" {
		return nil
	}
	for _, id := range s.order {
		if s.people[id].Slug == slug {
			return s.people[id]
		}
	}
	return nil
}

func hasChild(u entities.Union, id valueobjects.PersonID) bool {
	for _, c := range u.Children {
		if c.ID == id {
			return true
		}
	}
	return false
}

func nonNil(people []entities.PersonSummary) []entities.PersonSummary {
	if people == nil {
		return []entities.PersonSummary{}
	}
	return people
}
