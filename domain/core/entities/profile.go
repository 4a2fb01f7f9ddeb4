package entities

import (
	"encoding/json"

	"kujisan/domain/core/valueobjects"
)

// PersonSummary is the minimal person record shown in directories and as a
// relative on a profile. Slug is the navigation key of the profile page.
type PersonSummary struct {
	ID           valueobjects.PersonID   `json:"id" yaml:"id"`
	Name         string                  `json:"name" yaml:"name"`
	Slug         string                  `json:"slug,omitempty" yaml:"slug"`
	ImageRef     string                  `json:"imageRef,omitempty" yaml:"imageRef"`
	Sex          valueobjects.Sex        `json:"sex,omitempty" yaml:"sex"`
	IsDescendant bool                    `json:"isDescendant" yaml:"isDescendant"`
	Generation   valueobjects.Generation `json:"generation,omitempty" yaml:"generation"`
	BirthDate    string                  `json:"birthDate,omitempty" yaml:"birthDate"`
}

// ParentSummary is one partner of the union a person was born into, with
// that partner's own parents
type ParentSummary struct {
	PersonSummary
	Parents []PersonSummary `json:"parents"`
}

// BirthUnion is the union a person was born into: the parents and every
// child of that union, the person included.
type BirthUnion struct {
	ID       string          `json:"id"`
	Partners []ParentSummary `json:"partners"`
	Children []PersonSummary `json:"children"`
}

// ProfileUnion is a union the person is a partner in
type ProfileUnion struct {
	ID           string          `json:"id"`
	MarriageDate string          `json:"marriageDate,omitempty"`
	Partners     []PersonSummary `json:"partners"`
	Children     []PersonSummary `json:"children"`
}

// FamilyRef points at the family page a person belongs to
type FamilyRef struct {
	Slug       string `json:"slug"`
	FamilyName string `json:"familyName"`
}

// AudioClip is a recorded memory attached to a profile
type AudioClip struct {
	URL   string `json:"url"`
	Title string `json:"title"`
}

// PersonProfile is everything the profile page of one person shows. Bio is
// rich text passed through untouched.
type PersonProfile struct {
	PersonSummary
	DeathDate  string          `json:"deathDate,omitempty"`
	IsDeceased bool            `json:"isDeceased"`
	Bio        json.RawMessage `json:"bio,omitempty"`
	Audio      []AudioClip     `json:"audio"`
	Family     *FamilyRef      `json:"family,omitempty"`
	Parents    []BirthUnion    `json:"parents"`
	Unions     []ProfileUnion  `json:"unions"`
}

// FamilySummary is one entry of the family directory
type FamilySummary struct {
	ID            string `json:"id"`
	FamilyName    string `json:"familyName"`
	Slug          string `json:"slug"`
	ImageRef      string `json:"imageRef,omitempty"`
	HeadName      string `json:"headName"`
	HeadBirthDate string `json:"headBirthDate,omitempty"`
	WivesCount    int    `json:"wivesCount"`
	ChildrenCount int    `json:"childrenCount"`
}

// FamilyProfile is a family page: its head, the head's wives and every child
// of the head's unions, oldest first.
type FamilyProfile struct {
	ID         string          `json:"id"`
	FamilyName string          `json:"familyName"`
	Slug       string          `json:"slug"`
	ImageRef   string          `json:"imageRef,omitempty"`
	AudioURL   string          `json:"audioUrl,omitempty"`
	Bio        json.RawMessage `json:"bio,omitempty"`
	Head       PersonSummary   `json:"head"`
	Wives      []PersonSummary `json:"wives"`
	Children   []PersonSummary `json:"children"`
}

// LineageStats counts descendants per generation below the founders
type LineageStats struct {
	Children           int `json:"children"`
	Grandchildren      int `json:"grandchildren"`
	GreatGrandchildren int `json:"greatGrandchildren"`
}
