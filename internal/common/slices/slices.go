package slices

import (
	"cmp"

	goslices "golang.org/x/exp/slices"
)

// Map returns a new slice holding fn applied to every element of s.
func Map[S ~[]E, E any, V any](s S, fn func(E) V) []V {
	if s == nil {
		return nil
	}
	rv := make([]V, len(s))
	for i, e := range s {
		rv[i] = fn(e)
	}
	return rv
}

// Filter returns the elements of s for which keep returns true, preserving order.
func Filter[S ~[]E, E any](s S, keep func(E) bool) S {
	if s == nil {
		return nil
	}
	rv := make(S, 0, len(s))
	for _, e := range s {
		if keep(e) {
			rv = append(rv, e)
		}
	}
	return rv
}

// Unique returns a copy of s with duplicate elements removed, keeping only the first occurrence.
func Unique[S ~[]E, E comparable](s S) S {
	if s == nil {
		return nil
	}
	rv := make(S, 0)
	seen := make(map[E]bool)
	for _, v := range s {
		if !seen[v] {
			rv = append(rv, v)
			seen[v] = true
		}
	}
	return rv
}

// Subtract returns the elements of list that do not appear in toRemove, preserving order.
func Subtract[T comparable](list []T, toRemove []T) []T {
	if list == nil {
		return nil
	}
	out := make([]T, 0, len(list))

	toRemoveMap := make(map[T]bool, len(toRemove))
	for _, val := range toRemove {
		toRemoveMap[val] = true
	}

	for _, val := range list {
		if !toRemoveMap[val] {
			out = append(out, val)
		}
	}
	return out
}

// Sorted returns a sorted copy of s.
func Sorted[S ~[]E, E cmp.Ordered](s S) S {
	rv := goslices.Clone(s)
	goslices.Sort(rv)
	return rv
}
