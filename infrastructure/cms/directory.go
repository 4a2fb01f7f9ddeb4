package cms

import (
	"context"
	"encoding/json"
	"time"

	"kujisan/application/ports"
	"kujisan/domain/core/entities"
	"kujisan/domain/core/valueobjects"
	domainservices "kujisan/domain/services"

	"go.uber.org/zap"
)

var _ ports.DirectoryReader = (*Client)(nil)

type minimalPersonDocument struct {
	ID           string      `json:"_id"`
	FullName     string      `json:"fullName"`
	Slug         *slugField  `json:"slug"`
	ProfileImage *imageField `json:"profileImage"`
	Sex          string      `json:"sex"`
	IsDescendant bool        `json:"isDescendant"`
	Generation   *int        `json:"generation"`
	BirthDate    string      `json:"birthDate"`
}

type parentDocument struct {
	minimalPersonDocument
	Parents []*minimalPersonDocument `json:"parents"`
}

type birthUnionDocument struct {
	ID       string                   `json:"_id"`
	Partners []*parentDocument        `json:"partners"`
	Children []*minimalPersonDocument `json:"children"`
}

type profileUnionDocument struct {
	ID           string                   `json:"_id"`
	MarriageDate string                   `json:"marriageDate"`
	Partners     []*minimalPersonDocument `json:"partners"`
	Children     []*minimalPersonDocument `json:"children"`
}

type profileDocument struct {
	minimalPersonDocument
	DeathDate    string          `json:"deathDate"`
	IsDeceased   bool            `json:"isDeceased"`
	Bio          json.RawMessage `json:"bio"`
	AudioGallery []*struct {
		URL   string `json:"url"`
		Title string `json:"title"`
	} `json:"audioGallery"`
	RelevantFamily *struct {
		Slug       *slugField `json:"slug"`
		FamilyName string     `json:"familyName"`
	} `json:"relevantFamily"`
	ParentsData []*birthUnionDocument   `json:"parentsData"`
	UnionsData  []*profileUnionDocument `json:"unionsData"`
}

type familySummaryDocument struct {
	ID           string      `json:"_id"`
	FamilyName   string      `json:"familyName"`
	Slug         *slugField  `json:"slug"`
	MainImage    *imageField `json:"mainImage"`
	HeadOfFamily *struct {
		FullName  string `json:"fullName"`
		BirthDate string `json:"birthDate"`
	} `json:"headOfFamily"`
	WivesCount    int `json:"wivesCount"`
	ChildrenCount int `json:"childrenCount"`
}

type familyDocument struct {
	ID             string                  `json:"_id"`
	FamilyName     string                  `json:"familyName"`
	Slug           *slugField              `json:"slug"`
	MainImage      *imageField             `json:"mainImage"`
	FamilyBio      json.RawMessage         `json:"familyBio"`
	FamilyAudioURL string                  `json:"familyAudioUrl"`
	HeadOfFamily   *minimalPersonDocument  `json:"headOfFamily"`
	RawUnions      []*profileUnionDocument `json:"rawUnions"`
}

// ListPeople returns the people directory ordered by name
func (c *Client) ListPeople(ctx context.Context) ([]entities.PersonSummary, error) {
	start := time.Now()
	var docs []*minimalPersonDocument
	err := c.query(ctx, "list_people", peopleQuery, nil, &docs)
	c.metrics.RecordFetch(serviceName, "people", time.Since(start), err)
	if err != nil {
		return nil, err
	}
	return summaries(docs), nil
}

// GetPerson returns the profile whose slug matches, or nil
func (c *Client) GetPerson(ctx context.Context, slugValue string) (*entities.PersonProfile, error) {
	if slugValue == "" {
		return nil, nil
	}

	start := time.Now()
	var doc *profileDocument
	err := c.query(ctx, "get_person", personQuery, map[string]string{"slug": slugValue}, &doc)
	c.metrics.RecordFetch(serviceName, "person", time.Since(start), err)
	if err != nil {
		return nil, err
	}
	if doc == nil {
		return nil, nil
	}
	if valueobjects.PersonID(doc.ID).IsPlaceholder() {
		c.logger.Warn("Ignoring malformed person document", zap.String("slug", slugValue))
		return nil, nil
	}
	return doc.toEntity(), nil
}

// ListFamilies returns the family directory ordered by the head's birth date
func (c *Client) ListFamilies(ctx context.Context) ([]entities.FamilySummary, error) {
	start := time.Now()
	var docs []*familySummaryDocument
	err := c.query(ctx, "list_families", familiesQuery, nil, &docs)
	c.metrics.RecordFetch(serviceName, "families", time.Since(start), err)
	if err != nil {
		return nil, err
	}

	out := make([]entities.FamilySummary, 0, len(docs))
	for _, d := range docs {
		if d == nil || d.ID == "" {
			continue
		}
		f := entities.FamilySummary{
			ID:            d.ID,
			FamilyName:    d.FamilyName,
			Slug:          slug(d.Slug),
			ImageRef:      imageRef(d.MainImage),
			WivesCount:    d.WivesCount,
			ChildrenCount: d.ChildrenCount,
		}
		if d.HeadOfFamily != nil {
			f.HeadName = d.HeadOfFamily.FullName
			f.HeadBirthDate = d.HeadOfFamily.BirthDate
		}
		out = append(out, f)
	}
	return out, nil
}

// GetFamily returns the family page whose slug matches, or nil
func (c *Client) GetFamily(ctx context.Context, slugValue string) (*entities.FamilyProfile, error) {
	if slugValue == "" {
		return nil, nil
	}

	start := time.Now()
	var doc *familyDocument
	err := c.query(ctx, "get_family", familyQuery, map[string]string{"slug": slugValue}, &doc)
	c.metrics.RecordFetch(serviceName, "family", time.Since(start), err)
	if err != nil {
		return nil, err
	}
	if doc == nil {
		return nil, nil
	}

	family := &entities.FamilyProfile{
		ID:         doc.ID,
		FamilyName: doc.FamilyName,
		Slug:       slug(doc.Slug),
		ImageRef:   imageRef(doc.MainImage),
		AudioURL:   doc.FamilyAudioURL,
		Bio:        richText(doc.FamilyBio),
	}
	if doc.HeadOfFamily != nil {
		family.Head = doc.HeadOfFamily.toSummary()
	}
	family.Wives, family.Children = domainservices.AssembleFamily(family.Head, profileUnions(doc.RawUnions))
	return family, nil
}

// GetStats counts descendants per generation
func (c *Client) GetStats(ctx context.Context) (*entities.LineageStats, error) {
	start := time.Now()
	stats := &entities.LineageStats{}
	err := c.query(ctx, "get_stats", statsQuery, nil, stats)
	c.metrics.RecordFetch(serviceName, "stats", time.Since(start), err)
	if err != nil {
		return nil, err
	}
	return stats, nil
}

func (d *minimalPersonDocument) toSummary() entities.PersonSummary {
	return entities.PersonSummary{
		ID:           valueobjects.PersonID(d.ID),
		Name:         d.FullName,
		Slug:         slug(d.Slug),
		ImageRef:     imageRef(d.ProfileImage),
		Sex:          valueobjects.ParseSex(d.Sex),
		IsDescendant: d.IsDescendant,
		Generation:   generation(d.Generation),
		BirthDate:    d.BirthDate,
	}
}

func (d *profileDocument) toEntity() *entities.PersonProfile {
	p := &entities.PersonProfile{
		PersonSummary: d.toSummary(),
		DeathDate:     d.DeathDate,
		IsDeceased:    d.IsDeceased,
		Bio:           richText(d.Bio),
		Audio:         []entities.AudioClip{},
		Parents:       []entities.BirthUnion{},
		Unions:        profileUnions(d.UnionsData),
	}

	for _, a := range d.AudioGallery {
		if a != nil && a.URL != "" {
			p.Audio = append(p.Audio, entities.AudioClip{URL: a.URL, Title: a.Title})
		}
	}
	if f := d.RelevantFamily; f != nil && slug(f.Slug) != "" {
		p.Family = &entities.FamilyRef{Slug: slug(f.Slug), FamilyName: f.FamilyName}
	}

	for _, u := range d.ParentsData {
		if u == nil {
			continue
		}
		union := entities.BirthUnion{
			ID:       u.ID,
			Partners: []entities.ParentSummary{},
			Children: summaries(u.Children),
		}
		for _, partner := range u.Partners {
			if partner == nil || valueobjects.PersonID(partner.ID).IsPlaceholder() {
				continue
			}
			union.Partners = append(union.Partners, entities.ParentSummary{
				PersonSummary: partner.toSummary(),
				Parents:       summaries(partner.Parents),
			})
		}
		p.Parents = append(p.Parents, union)
	}

	return p
}

func profileUnions(docs []*profileUnionDocument) []entities.ProfileUnion {
	out := make([]entities.ProfileUnion, 0, len(docs))
	for _, u := range docs {
		if u == nil {
			continue
		}
		out = append(out, entities.ProfileUnion{
			ID:           u.ID,
			MarriageDate: u.MarriageDate,
			Partners:     summaries(u.Partners),
			Children:     summaries(u.Children),
		})
	}
	return out
}

// summaries maps person references, skipping dangling and placeholder ones
func summaries(docs []*minimalPersonDocument) []entities.PersonSummary {
	out := make([]entities.PersonSummary, 0, len(docs))
	for _, d := range docs {
		if d == nil || valueobjects.PersonID(d.ID).IsPlaceholder() {
			continue
		}
		out = append(out, d.toSummary())
	}
	return out
}

// richText passes portable text through, treating null as absent
func richText(raw json.RawMessage) json.RawMessage {
	if len(raw) == 0 || string(raw) == "null" {
		return nil
	}
	return raw
}
