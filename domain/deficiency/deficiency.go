// Package deficiency holds the elementary fault labels and the persistent
// sets of them that every other layer computes with.
package deficiency

import (
	"sort"
	"strings"
)

// Deficiency is an elementary fault state. Two deficiencies are the same iff
// their names are.
type Deficiency string

// Undet is the single failure state of a boolean effect.
const Undet Deficiency = "UNDET"

func (d Deficiency) String() string {
	return string(d)
}

// Set is an immutable set of deficiencies. The zero value is the empty set.
// Operations never modify their receiver or arguments.
type Set struct {
	m map[Deficiency]struct{}
}

// NewSet builds a set from the given members.
func NewSet(defs ...Deficiency) Set {
	m := make(map[Deficiency]struct{}, len(defs))
	for _, d := range defs {
		m[d] = struct{}{}
	}
	return Set{m: m}
}

func (s Set) Len() int { return len(s.m) }

func (s Set) IsEmpty() bool { return len(s.m) == 0 }

func (s Set) Contains(d Deficiency) bool {
	_, ok := s.m[d]
	return ok
}

// Sorted returns the members in name order.
func (s Set) Sorted() []Deficiency {
	res := make([]Deficiency, 0, len(s.m))
	for d := range s.m {
		res = append(res, d)
	}
	sort.Slice(res, func(i, j int) bool { return res[i] < res[j] })
	return res
}

// Each calls fn for every member in unspecified order.
func (s Set) Each(fn func(Deficiency)) {
	for d := range s.m {
		fn(d)
	}
}

func (s Set) With(defs ...Deficiency) Set {
	m := s.copyMap(len(defs))
	for _, d := range defs {
		m[d] = struct{}{}
	}
	return Set{m: m}
}

func (s Set) Without(defs ...Deficiency) Set {
	m := s.copyMap(0)
	for _, d := range defs {
		delete(m, d)
	}
	return Set{m: m}
}

func (s Set) Union(other Set) Set {
	m := s.copyMap(other.Len())
	for d := range other.m {
		m[d] = struct{}{}
	}
	return Set{m: m}
}

func (s Set) Intersect(other Set) Set {
	small, large := s, other
	if small.Len() > large.Len() {
		small, large = large, small
	}
	m := make(map[Deficiency]struct{}, small.Len())
	for d := range small.m {
		if large.Contains(d) {
			m[d] = struct{}{}
		}
	}
	return Set{m: m}
}

func (s Set) Minus(other Set) Set {
	m := make(map[Deficiency]struct{}, s.Len())
	for d := range s.m {
		if !other.Contains(d) {
			m[d] = struct{}{}
		}
	}
	return Set{m: m}
}

// SubsetOf reports whether every member of s is in other.
func (s Set) SubsetOf(other Set) bool {
	if s.Len() > other.Len() {
		return false
	}
	for d := range s.m {
		if !other.Contains(d) {
			return false
		}
	}
	return true
}

func (s Set) Intersects(other Set) bool {
	small, large := s, other
	if small.Len() > large.Len() {
		small, large = large, small
	}
	for d := range small.m {
		if large.Contains(d) {
			return true
		}
	}
	return false
}

func (s Set) Equal(other Set) bool {
	return s.Len() == other.Len() && s.SubsetOf(other)
}

// Names returns the sorted member names.
func (s Set) Names() []string {
	sorted := s.Sorted()
	res := make([]string, len(sorted))
	for i, d := range sorted {
		res[i] = string(d)
	}
	return res
}

func (s Set) String() string {
	return "{" + strings.Join(s.Names(), ",") + "}"
}

func (s Set) copyMap(extra int) map[Deficiency]struct{} {
	m := make(map[Deficiency]struct{}, len(s.m)+extra)
	for d := range s.m {
		m[d] = struct{}{}
	}
	return m
}
