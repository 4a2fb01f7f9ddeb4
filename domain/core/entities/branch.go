package entities

import (
	"kujisan/domain/core/valueobjects"
)

// TreePerson is one person's branch: the person plus the unions they are a
// partner in, one level deep. It is the unit of incremental fetch.
type TreePerson struct {
	ID         valueobjects.PersonID   `json:"id" yaml:"id" validate:"required,ne=null,ne=undefined"`
	Name       string                  `json:"name" yaml:"name"`
	Generation valueobjects.Generation `json:"generation" yaml:"generation" validate:"gte=1"`
	Sex        valueobjects.Sex        `json:"sex,omitempty" yaml:"sex" validate:"omitempty,oneof=male female"`
	ImageRef   string                  `json:"imageRef,omitempty" yaml:"imageRef"`
	Slug       string                  `json:"slug,omitempty" yaml:"slug"`
	Unions     []Union                 `json:"unions" yaml:"unions"`
}

// Union is a partnership through which children are attached
type Union struct {
	ID       string          `json:"id" yaml:"id"`
	Partner  *PartnerSummary `json:"partner,omitempty" yaml:"partner"`
	Children []ChildSummary  `json:"children" yaml:"children"`
}

// PartnerSummary is the other partner of a union, as seen from the subject
type PartnerSummary struct {
	ID       valueobjects.PersonID `json:"id" yaml:"id" validate:"required,ne=null,ne=undefined"`
	Name     string                `json:"name" yaml:"name"`
	Sex      valueobjects.Sex      `json:"sex,omitempty" yaml:"sex" validate:"omitempty,oneof=male female"`
	ImageRef string                `json:"imageRef,omitempty" yaml:"imageRef"`
	Slug     string                `json:"slug,omitempty" yaml:"slug"`
}

// ChildSummary is a child of a union. ChildCount is how many children the
// child itself has across its own unions, precomputed so hasChildren is known
// without another fetch.
type ChildSummary struct {
	ID         valueobjects.PersonID   `json:"id" yaml:"id" validate:"required,ne=null,ne=undefined"`
	Name       string                  `json:"name" yaml:"name"`
	Generation valueobjects.Generation `json:"generation" yaml:"generation" validate:"gte=1"`
	Sex        valueobjects.Sex        `json:"sex,omitempty" yaml:"sex" validate:"omitempty,oneof=male female"`
	ImageRef   string                  `json:"imageRef,omitempty" yaml:"imageRef"`
	Slug       string                  `json:"slug,omitempty" yaml:"slug"`
	ChildCount int                     `json:"childCount" yaml:"childCount" validate:"gte=0"`
}

// HasChildren reports whether any union of the person has at least one child
func (p *TreePerson) HasChildren() bool {
	for _, u := range p.Unions {
		if len(u.Children) > 0 {
			return true
		}
	}
	return false
}

// Partners returns the partner ids of all unions, in union order
func (p *TreePerson) Partners() []valueobjects.PersonID {
	ids := make([]valueobjects.PersonID, 0, len(p.Unions))
	for _, u := range p.Unions {
		if u.Partner != nil {
			ids = append(ids, u.Partner.ID)
		}
	}
	return ids
}

// ChildIDs returns the child ids of all unions, in union order
func (p *TreePerson) ChildIDs() []valueobjects.PersonID {
	var ids []valueobjects.PersonID
	for _, u := range p.Unions {
		for _, c := range u.Children {
			ids = append(ids, c.ID)
		}
	}
	return ids
}

// Clone returns a deep copy; nil stays nil
func (p *TreePerson) Clone() *TreePerson {
	if p == nil {
		return nil
	}
	out := *p
	out.Unions = make([]Union, len(p.Unions))
	for i, u := range p.Unions {
		cu := u
		if u.Partner != nil {
			partner := *u.Partner
			cu.Partner = &partner
		}
		cu.Children = append([]ChildSummary(nil), u.Children...)
		out.Unions[i] = cu
	}
	return &out
}
