package models

import (
	"encoding/json"
	"slices"

	"github.com/google/uuid"
)

// IDSet is a set of user identities. The zero value is ready to use.
type IDSet struct {
	m map[uuid.UUID]struct{}
}

// NewIDSet returns a set holding ids.
func NewIDSet(ids ...uuid.UUID) IDSet {
	s := IDSet{}
	for _, id := range ids {
		s.Add(id)
	}
	return s
}

// Add inserts id and reports whether it was absent.
func (s *IDSet) Add(id uuid.UUID) bool {
	if s.m == nil {
		s.m = make(map[uuid.UUID]struct{})
	}
	if _, ok := s.m[id]; ok {
		return false
	}
	s.m[id] = struct{}{}
	return true
}

// Remove deletes id and reports whether it was present.
func (s *IDSet) Remove(id uuid.UUID) bool {
	if _, ok := s.m[id]; !ok {
		return false
	}
	delete(s.m, id)
	return true
}

func (s IDSet) Has(id uuid.UUID) bool {
	_, ok := s.m[id]
	return ok
}

func (s IDSet) Len() int { return len(s.m) }

// Sorted returns the members ordered by their string form.
func (s IDSet) Sorted() []uuid.UUID {
	out := make([]uuid.UUID, 0, len(s.m))
	for id := range s.m {
		out = append(out, id)
	}
	slices.SortFunc(out, func(a, b uuid.UUID) int {
		return compareIDs(a, b)
	})
	return out
}

// Intersects reports whether s and other share at least one member.
func (s IDSet) Intersects(other IDSet) bool {
	small, large := s, other
	if small.Len() > large.Len() {
		small, large = large, small
	}
	for id := range small.m {
		if large.Has(id) {
			return true
		}
	}
	return false
}

func (s IDSet) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.Sorted())
}

func (s *IDSet) UnmarshalJSON(data []byte) error {
	var ids []uuid.UUID
	if err := json.Unmarshal(data, &ids); err != nil {
		return err
	}
	*s = NewIDSet(ids...)
	return nil
}

func compareIDs(a, b uuid.UUID) int {
	for i := range a {
		if a[i] != b[i] {
			if a[i] < b[i] {
				return -1
			}
			return 1
		}
	}
	return 0
}
