package domain

import (
	"sort"

	"github.com/google/uuid"
)

// Mutation is an ordered pair of removals and additions submitted to the
// monitoring service: removals are issued first, additions only after the
// removal is confirmed.
type Mutation struct {
	ID        string   `json:"id"`
	Reason    string   `json:"reason"`
	Removals  []string `json:"removals"`
	Additions []Region `json:"additions"`
}

// NewMutation builds a normalised mutation: identifiers are de-duplicated and
// sorted, and for repeated additions the last region wins.
func NewMutation(reason string, removals []string, additions []Region) Mutation {
	seen := make(map[string]struct{}, len(removals))
	ids := make([]string, 0, len(removals))
	for _, id := range removals {
		if _, dup := seen[id]; dup || id == "" {
			continue
		}
		seen[id] = struct{}{}
		ids = append(ids, id)
	}
	sort.Strings(ids)

	byID := make(map[string]Region, len(additions))
	for _, r := range additions {
		byID[r.ID] = r
	}
	regions := make([]Region, 0, len(byID))
	for _, r := range byID {
		regions = append(regions, r)
	}
	SortRegions(regions)

	return Mutation{
		ID:        uuid.NewString(),
		Reason:    reason,
		Removals:  ids,
		Additions: regions,
	}
}

// IsEmpty reports whether the mutation would not touch the service.
func (m Mutation) IsEmpty() bool {
	return len(m.Removals) == 0 && len(m.Additions) == 0
}

// AdditionIDs lists the identifiers of the added regions.
func (m Mutation) AdditionIDs() []string {
	ids := make([]string, len(m.Additions))
	for i, r := range m.Additions {
		ids[i] = r.ID
	}
	return ids
}
