// Copyright ©2025 curioloop. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package chordal

import "sort"

// Vertex sets are kept as sorted int slices: deterministic iteration for
// the graph algorithms and cheap merge-style set operations.

// sortedUnion returns a ∪ b as a fresh sorted slice.
func sortedUnion(a, b []int) []int {
	out := make([]int, 0, len(a)+len(b))
	i, j := 0, 0
	for i < len(a) && j < len(b) {
		switch {
		case a[i] < b[j]:
			out = append(out, a[i])
			i++
		case a[i] > b[j]:
			out = append(out, b[j])
			j++
		default:
			out = append(out, a[i])
			i++
			j++
		}
	}
	out = append(out, a[i:]...)
	out = append(out, b[j:]...)
	return out
}

// sortedIntersect returns a ∩ b as a fresh sorted slice.
func sortedIntersect(a, b []int) []int {
	var out []int
	i, j := 0, 0
	for i < len(a) && j < len(b) {
		switch {
		case a[i] < b[j]:
			i++
		case a[i] > b[j]:
			j++
		default:
			out = append(out, a[i])
			i++
			j++
		}
	}
	return out
}

// intersectLen counts |a ∩ b| without materializing the intersection.
func intersectLen(a, b []int) int {
	n, i, j := 0, 0, 0
	for i < len(a) && j < len(b) {
		switch {
		case a[i] < b[j]:
			i++
		case a[i] > b[j]:
			j++
		default:
			n++
			i++
			j++
		}
	}
	return n
}

// sortedSubtract returns a \ b as a fresh sorted slice.
func sortedSubtract(a, b []int) []int {
	var out []int
	j := 0
	for _, v := range a {
		for j < len(b) && b[j] < v {
			j++
		}
		if j < len(b) && b[j] == v {
			continue
		}
		out = append(out, v)
	}
	return out
}

// isSubset reports a ⊆ b.
func isSubset(a, b []int) bool {
	return intersectLen(a, b) == len(a)
}

// containsVertex reports v ∈ a by binary search.
func containsVertex(a []int, v int) bool {
	k := sort.SearchInts(a, v)
	return k < len(a) && a[k] == v
}

// equalSets reports a == b elementwise.
func equalSets(a, b []int) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
