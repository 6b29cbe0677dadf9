package collections

import (
	"fmt"
	"slices"
)

// Set is a generic set data structure using a map with zero-size values
type Set[T comparable] map[T]struct{}

// NewSet creates a new Set with the given initial values
func NewSet[T comparable](vs ...T) Set[T] {
	s := Set[T]{}
	s.Add(vs...)
	return s
}

// Add adds one or more values to the set
func (s Set[T]) Add(vs ...T) {
	for _, v := range vs {
		s[v] = struct{}{}
	}
}

// Has checks if the set contains the given value
func (s Set[T]) Has(v T) bool {
	_, ok := s[v]
	return ok
}

// OrderedSet is a set that remembers insertion order.
// Template locals are reported in first-seen order, which a plain Set loses.
type OrderedSet[T comparable] struct {
	seen  Set[T]
	order []T
}

// NewOrderedSet creates an OrderedSet holding vs in order, duplicates dropped
func NewOrderedSet[T comparable](vs ...T) *OrderedSet[T] {
	s := &OrderedSet[T]{seen: NewSet[T]()}
	s.Add(vs...)
	return s
}

// Add appends values not already present
func (s *OrderedSet[T]) Add(vs ...T) {
	for _, v := range vs {
		if s.seen.Has(v) {
			continue
		}
		s.seen.Add(v)
		s.order = append(s.order, v)
	}
}

// Has checks if the set contains the given value
func (s *OrderedSet[T]) Has(v T) bool {
	return s.seen.Has(v)
}

// Len returns the number of members
func (s *OrderedSet[T]) Len() int {
	return len(s.order)
}

// Members returns the values in insertion order
func (s *OrderedSet[T]) Members() []T {
	return slices.Clone(s.order)
}

// String returns a string representation of the set
func (s *OrderedSet[T]) String() string {
	return fmt.Sprintf("%v", s.order)
}
