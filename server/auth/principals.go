// Package auth decides who may schedule meetings.
package auth

import (
	"slices"
)

// PrincipalSet is the fixed set of principal IDs allowed to schedule meetings.
// It is built once at startup and never mutated, so it is safe to share.
type PrincipalSet struct {
	ids map[int64]struct{}
}

// NewPrincipalSet builds a set from ids. Duplicates are ignored.
func NewPrincipalSet(ids ...int64) *PrincipalSet {
	set := &PrincipalSet{ids: make(map[int64]struct{}, len(ids))}
	for _, id := range ids {
		set.ids[id] = struct{}{}
	}
	return set
}

// Contains reports whether id is authorized.
func (s *PrincipalSet) Contains(id int64) bool {
	if s == nil {
		return false
	}
	_, ok := s.ids[id]
	return ok
}

// Len returns the number of authorized principals.
func (s *PrincipalSet) Len() int {
	if s == nil {
		return 0
	}
	return len(s.ids)
}

// IDs returns the authorized IDs in ascending order.
func (s *PrincipalSet) IDs() []int64 {
	if s == nil {
		return nil
	}
	ids := make([]int64, 0, len(s.ids))
	for id := range s.ids {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}
