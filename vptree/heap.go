package vptree

import "container/heap"

// Compile time check to ensure neighborHeap satisfies the heap interface.
var _ heap.Interface = (*neighborHeap)(nil)

// neighbor represents a candidate result during a search. dist holds the
// squared distance to the query; ordering by squared distance matches
// ordering by true distance.
type neighbor struct {
	index int32
	dist  float32
}

// neighborHeap is a max-heap of search candidates keyed on distance, so the
// farthest candidate is always on top and cheap to evict.
type neighborHeap struct {
	items []neighbor
}

// Len returns the number of candidates in the heap.
func (h *neighborHeap) Len() int { return len(h.items) }

// Less reports whether the candidate with index i should sort before the candidate with index j.
func (h *neighborHeap) Less(i, j int) bool { return h.items[i].dist > h.items[j].dist }

// Swap swaps the candidates with indexes i and j.
func (h *neighborHeap) Swap(i, j int) { h.items[i], h.items[j] = h.items[j], h.items[i] }

// Push adds x to the heap.
func (h *neighborHeap) Push(x any) {
	item, _ := x.(neighbor)
	h.items = append(h.items, item)
}

// Pop removes and returns the top candidate from the heap.
func (h *neighborHeap) Pop() any {
	old := h.items
	n := len(old)
	item := old[n-1]
	h.items = old[:n-1]

	return item
}

// Top returns the top candidate without removing it.
func (h *neighborHeap) Top() neighbor { return h.items[0] }
