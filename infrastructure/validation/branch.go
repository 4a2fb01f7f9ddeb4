// Package validation checks branch data at the fetch boundary.
//
// Every BranchFetcher adapter hands raw records to Sanitize before they reach
// the merger: a malformed subject is an error the adapter turns into an
// absent branch, a malformed partner is dropped
// from its union, and malformed children are dropped from their union.
package validation

import (
	"fmt"
	"strings"

	"kujisan/domain/core/entities"
	"kujisan/domain/core/valueobjects"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

// Report counts what Sanitize dropped
type Report struct {
	DroppedPartners int
	DroppedChildren int
}

// Dropped reports whether anything was filtered out
func (r Report) Dropped() bool {
	return r.DroppedPartners > 0 || r.DroppedChildren > 0
}

// ValidateStruct validates a struct based on its validation tags
func ValidateStruct(s interface{}) error {
	if err := validate.Struct(s); err != nil {
		return formatValidationError(err)
	}
	return nil
}

// Sanitize normalizes and filters one branch in place
func Sanitize(p *entities.TreePerson) (Report, error) {
	var report Report
	if p == nil {
		return report, nil
	}

	p.Sex = valueobjects.ParseSex(string(p.Sex))
	if err := ValidateStruct(p); err != nil {
		return report, fmt.Errorf("person %q: %w", p.ID, err)
	}

	for i := range p.Unions {
		u := &p.Unions[i]

		if u.Partner != nil {
			u.Partner.Sex = valueobjects.ParseSex(string(u.Partner.Sex))
			if ValidateStruct(u.Partner) != nil {
				u.Partner = nil
				report.DroppedPartners++
			}
		}

		kept := u.Children[:0]
		for _, c := range u.Children {
			c.Sex = valueobjects.ParseSex(string(c.Sex))
			if ValidateStruct(c) != nil {
				report.DroppedChildren++
				continue
			}
			kept = append(kept, c)
		}
		u.Children = kept
	}

	return report, nil
}

// SanitizeAll filters a list of branches, dropping invalid subjects
func SanitizeAll(people []*entities.TreePerson) ([]*entities.TreePerson, Report) {
	var total Report
	out := make([]*entities.TreePerson, 0, len(people))
	for _, p := range people {
		if p == nil {
			continue
		}
		r, err := Sanitize(p)
		total.DroppedPartners += r.DroppedPartners
		total.DroppedChildren += r.DroppedChildren
		if err != nil {
			continue
		}
		out = append(out, p)
	}
	return out, total
}

func formatValidationError(err error) error {
	if validationErrors, ok := err.(validator.ValidationErrors); ok {
		msgs := make([]string, 0, len(validationErrors))
		for _, e := range validationErrors {
			msgs = append(msgs, formatFieldError(e))
		}
		return fmt.Errorf("%s", strings.Join(msgs, "; "))
	}
	return err
}

func formatFieldError(e validator.FieldError) string {
	field := strings.ToLower(e.Field())

	switch e.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", field)
	case "ne":
		return fmt.Sprintf("%s must not be %q", field, e.Param())
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", field, e.Param())
	case "gte":
		return fmt.Sprintf("%s must be at least %s", field, e.Param())
	default:
		return fmt.Sprintf("%s is invalid", field)
	}
}
