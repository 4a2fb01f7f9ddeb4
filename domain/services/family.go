package services

import (
	"sort"
	"time"

	"kujisan/domain/core/entities"
)

// AssembleFamily derives a family page from the unions its head partners in.
// Wives are the head's partners, each listed once in union order. Children
// are every child of those unions ordered by birth date, undated last.
func AssembleFamily(head entities.PersonSummary, unions []entities.ProfileUnion) (wives, children []entities.PersonSummary) {
	wives = []entities.PersonSummary{}
	children = []entities.PersonSummary{}
	seen := make(map[string]struct{})

	for _, u := range unions {
		for _, p := range u.Partners {
			if p.ID == head.ID {
				continue
			}
			if _, ok := seen[p.ID.String()]; ok {
				continue
			}
			seen[p.ID.String()] = struct{}{}
			wives = append(wives, p)
		}
		children = append(children, u.Children...)
	}

	SortByBirthDate(children)
	return wives, children
}

// SortByBirthDate orders people oldest first. People without a readable
// birth date keep their relative order after everyone dated.
func SortByBirthDate(people []entities.PersonSummary) {
	sort.SliceStable(people, func(i, j int) bool {
		a, aok := birthTime(people[i].BirthDate)
		b, bok := birthTime(people[j].BirthDate)
		switch {
		case aok && bok:
			return a.Before(b)
		default:
			return aok && !bok
		}
	})
}

func birthTime(s string) (time.Time, bool) {
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range []string{"2006-01-02", time.RFC3339} {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}
