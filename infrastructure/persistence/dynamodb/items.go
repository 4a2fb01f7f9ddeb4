package dynamodb

import (
	"fmt"
	"strings"
	"time"

	"kujisan/domain/core/entities"
	"kujisan/domain/core/valueobjects"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

const (
	entityTypeBranch = "BRANCH"
	branchSortKey    = "BRANCH"
	personPrefix     = "PERSON#"
)

// branchItem is one denormalized person branch. Unions embed the partner and
// child summaries so a branch is served by a single GetItem.
type branchItem struct {
	PK         string      `dynamodbav:"PK"`
	SK         string      `dynamodbav:"SK"`
	EntityType string      `dynamodbav:"EntityType"`
	GSI1PK     string      `dynamodbav:"GSI1PK"`
	GSI1SK     string      `dynamodbav:"GSI1SK"`
	PersonID   string      `dynamodbav:"PersonID"`
	Name       string      `dynamodbav:"Name"`
	Generation int         `dynamodbav:"Generation"`
	Sex        string      `dynamodbav:"Sex,omitempty"`
	ImageRef   string      `dynamodbav:"ImageRef,omitempty"`
	Slug       string      `dynamodbav:"Slug,omitempty"`
	Unions     []unionItem `dynamodbav:"Unions"`
	UpdatedAt  string      `dynamodbav:"UpdatedAt"`
}

type unionItem struct {
	UnionID  string       `dynamodbav:"UnionID"`
	Partner  *partnerItem `dynamodbav:"Partner,omitempty"`
	Children []childItem  `dynamodbav:"Children"`
}

type partnerItem struct {
	PersonID string `dynamodbav:"PersonID"`
	Name     string `dynamodbav:"Name"`
	Sex      string `dynamodbav:"Sex,omitempty"`
	ImageRef string `dynamodbav:"ImageRef,omitempty"`
	Slug     string `dynamodbav:"Slug,omitempty"`
}

type childItem struct {
	PersonID   string `dynamodbav:"PersonID"`
	Name       string `dynamodbav:"Name"`
	Generation int    `dynamodbav:"Generation"`
	Sex        string `dynamodbav:"Sex,omitempty"`
	ImageRef   string `dynamodbav:"ImageRef,omitempty"`
	Slug       string `dynamodbav:"Slug,omitempty"`
	ChildCount int    `dynamodbav:"ChildCount"`
}

func personKey(id valueobjects.PersonID) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		"PK": &types.AttributeValueMemberS{Value: personPrefix + id.String()},
		"SK": &types.AttributeValueMemberS{Value: branchSortKey},
	}
}

// rootPartition is the GSI partition holding everyone of one generation and sex
func rootPartition(g valueobjects.Generation, sex valueobjects.Sex) string {
	return fmt.Sprintf("GEN#%d#SEX#%s", int(g), sex)
}

func toItem(p *entities.TreePerson, now time.Time) (map[string]types.AttributeValue, error) {
	item := branchItem{
		PK:         personPrefix + p.ID.String(),
		SK:         branchSortKey,
		EntityType: entityTypeBranch,
		GSI1PK:     rootPartition(p.Generation, p.Sex),
		GSI1SK:     personPrefix + p.ID.String(),
		PersonID:   p.ID.String(),
		Name:       p.Name,
		Generation: int(p.Generation),
		Sex:        string(p.Sex),
		ImageRef:   p.ImageRef,
		Slug:       p.Slug,
		Unions:     make([]unionItem, 0, len(p.Unions)),
		UpdatedAt:  now.UTC().Format(time.RFC3339),
	}

	for _, u := range p.Unions {
		ui := unionItem{UnionID: u.ID, Children: make([]childItem, 0, len(u.Children))}
		if u.Partner != nil {
			ui.Partner = &partnerItem{
				PersonID: u.Partner.ID.String(),
				Name:     u.Partner.Name,
				Sex:      string(u.Partner.Sex),
				ImageRef: u.Partner.ImageRef,
				Slug:     u.Partner.Slug,
			}
		}
		for _, c := range u.Children {
			ui.Children = append(ui.Children, childItem{
				PersonID:   c.ID.String(),
				Name:       c.Name,
				Generation: int(c.Generation),
				Sex:        string(c.Sex),
				ImageRef:   c.ImageRef,
				Slug:       c.Slug,
				ChildCount: c.ChildCount,
			})
		}
		item.Unions = append(item.Unions, ui)
	}

	return attributevalue.MarshalMap(item)
}

func parseItem(raw map[string]types.AttributeValue) (*entities.TreePerson, error) {
	var item branchItem
	if err := attributevalue.UnmarshalMap(raw, &item); err != nil {
		return nil, fmt.Errorf("unmarshal branch item: %w", err)
	}
	if item.EntityType != "" && item.EntityType != entityTypeBranch {
		return nil, fmt.Errorf("unexpected entity type %q", item.EntityType)
	}

	id := item.PersonID
	if id == "" {
		id = strings.TrimPrefix(item.PK, personPrefix)
	}

	p := &entities.TreePerson{
		ID:         valueobjects.PersonID(id),
		Name:       item.Name,
		Generation: valueobjects.Generation(item.Generation),
		Sex:        valueobjects.Sex(item.Sex),
		ImageRef:   item.ImageRef,
		Slug:       item.Slug,
		Unions:     make([]entities.Union, 0, len(item.Unions)),
	}

	for _, ui := range item.Unions {
		u := entities.Union{ID: ui.UnionID, Children: make([]entities.ChildSummary, 0, len(ui.Children))}
		if ui.Partner != nil {
			u.Partner = &entities.PartnerSummary{
				ID:       valueobjects.PersonID(ui.Partner.PersonID),
				Name:     ui.Partner.Name,
				Sex:      valueobjects.Sex(ui.Partner.Sex),
				ImageRef: ui.Partner.ImageRef,
				Slug:     ui.Partner.Slug,
			}
		}
		for _, c := range ui.Children {
			u.Children = append(u.Children, entities.ChildSummary{
				ID:         valueobjects.PersonID(c.PersonID),
				Name:       c.Name,
				Generation: valueobjects.Generation(c.Generation),
				Sex:        valueobjects.Sex(c.Sex),
				ImageRef:   c.ImageRef,
				Slug:       c.Slug,
				ChildCount: c.ChildCount,
			})
		}
		p.Unions = append(p.Unions, u)
	}

	return p, nil
}
