package valueobjects

import (
	"strings"

	pkgerrors "kujisan/pkg/errors"
)

// PersonID identifies a person document. IDs come from the CMS and are stable
// across fetches, so they double as graph node identity.
type PersonID string

// NewPersonID validates and wraps a raw identifier
func NewPersonID(id string) (PersonID, error) {
	pid := PersonID(id)
	if pid.IsPlaceholder() {
		return "", pkgerrors.NewValidationError("person ID must not be empty or a placeholder")
	}
	if strings.Contains(id, ">") {
		return "", pkgerrors.NewValidationError("person ID must not contain '>'")
	}
	return pid, nil
}

// String returns the raw identifier
func (id PersonID) String() string {
	return string(id)
}

// IsPlaceholder reports ids that upstream data uses for "missing": the empty
// string and the stringified null/undefined values a JS client may send.
func (id PersonID) IsPlaceholder() bool {
	switch id {
	case "", "null", "undefined":
		return true
	}
	return false
}

// Sex of a person as stored in the CMS
type Sex string

const (
	SexMale   Sex = "male"
	SexFemale Sex = "female"
)

// ParseSex normalizes CMS values; anything unknown maps to the empty Sex.
func ParseSex(s string) Sex {
	switch Sex(s) {
	case SexMale, SexFemale:
		return Sex(s)
	}
	return ""
}

// Opposite returns the other sex, or empty when unknown
func (s Sex) Opposite() Sex {
	switch s {
	case SexMale:
		return SexFemale
	case SexFemale:
		return SexMale
	}
	return ""
}

// Generation is a lineage tier; 1 is the root ancestor generation.
type Generation int

// RootGeneration is the tier of the founding ancestors
const RootGeneration Generation = 1

// IsValid reports whether the generation is a positive tier
func (g Generation) IsValid() bool {
	return g >= RootGeneration
}
