package cms

import (
	"kujisan/domain/core/entities"
	"kujisan/domain/core/valueobjects"
)

// queryResponse is the envelope of the CMS query API
type queryResponse[T any] struct {
	Query  string `json:"query"`
	Result T      `json:"result"`
	Ms     int    `json:"ms"`
}

type slugField struct {
	Current string `json:"current"`
}

type imageField struct {
	Asset struct {
		Ref string `json:"_ref"`
	} `json:"asset"`
}

type personDocument struct {
	ID           string          `json:"_id"`
	FullName     string          `json:"fullName"`
	Generation   *int            `json:"generation"`
	Sex          string          `json:"sex"`
	ProfileImage *imageField     `json:"profileImage"`
	Slug         *slugField      `json:"slug"`
	Unions       []unionDocument `json:"unions"`
}

type unionDocument struct {
	ID       string           `json:"_id"`
	Partner  *partnerDocument `json:"partner"`
	Children []*childDocument `json:"children"`
}

type partnerDocument struct {
	ID           string      `json:"_id"`
	FullName     string      `json:"fullName"`
	Sex          string      `json:"sex"`
	ProfileImage *imageField `json:"profileImage"`
	Slug         *slugField  `json:"slug"`
}

type childDocument struct {
	ID           string      `json:"_id"`
	FullName     string      `json:"fullName"`
	Generation   *int        `json:"generation"`
	Sex          string      `json:"sex"`
	ProfileImage *imageField `json:"profileImage"`
	Slug         *slugField  `json:"slug"`
	ChildCount   int         `json:"childCount"`
}

func (d *personDocument) toEntity() *entities.TreePerson {
	p := &entities.TreePerson{
		ID:         valueobjects.PersonID(d.ID),
		Name:       d.FullName,
		Generation: generation(d.Generation),
		Sex:        valueobjects.Sex(d.Sex),
		ImageRef:   imageRef(d.ProfileImage),
		Slug:       slug(d.Slug),
		Unions:     make([]entities.Union, 0, len(d.Unions)),
	}

	for _, u := range d.Unions {
		union := entities.Union{
			ID:       u.ID,
			Children: make([]entities.ChildSummary, 0, len(u.Children)),
		}
		if u.Partner != nil {
			union.Partner = &entities.PartnerSummary{
				ID:       valueobjects.PersonID(u.Partner.ID),
				Name:     u.Partner.FullName,
				Sex:      valueobjects.Sex(u.Partner.Sex),
				ImageRef: imageRef(u.Partner.ProfileImage),
				Slug:     slug(u.Partner.Slug),
			}
		}
		// dangling references dereference to null
		for _, c := range u.Children {
			if c == nil {
				continue
			}
			union.Children = append(union.Children, entities.ChildSummary{
				ID:         valueobjects.PersonID(c.ID),
				Name:       c.FullName,
				Generation: generation(c.Generation),
				Sex:        valueobjects.Sex(c.Sex),
				ImageRef:   imageRef(c.ProfileImage),
				Slug:       slug(c.Slug),
				ChildCount: c.ChildCount,
			})
		}
		p.Unions = append(p.Unions, union)
	}

	return p
}

func generation(g *int) valueobjects.Generation {
	if g == nil {
		return 0
	}
	return valueobjects.Generation(*g)
}

func imageRef(img *imageField) string {
	if img == nil {
		return ""
	}
	return img.Asset.Ref
}

func slug(s *slugField) string {
	if s == nil {
		return ""
	}
	return s.Current
}
