package inbound

import (
	"container/heap"
	"sync"
)

// Queue is a concurrency-safe priority queue of Candidates ordered by a
// Comparator. The comparator runs under the queue lock and must not do I/O. It does not de-duplicate; that is the
// Filter's job.
type Queue struct {
	mu    sync.Mutex
	items candidateHeap
}

// NewQueue creates an unbounded queue. A nil cmp means NaturalOrder.
func NewQueue(cmp Comparator) *Queue {
	if cmp == nil {
		cmp = NaturalOrder
	}
	return &Queue{items: candidateHeap{cmp: cmp}}
}

// Add inserts c. Never blocks.
func (q *Queue) Add(c Candidate) {
	q.mu.Lock()
	heap.Push(&q.items, c)
	q.mu.Unlock()
}

// Poll removes and returns the head, or false when empty.
func (q *Queue) Poll() (Candidate, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.items.list) == 0 {
		return Candidate{}, false
	}
	return heap.Pop(&q.items).(Candidate), true
}

// Len returns the number of queued candidates.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items.list)
}

// Empty reports whether the queue holds nothing.
func (q *Queue) Empty() bool {
	return q.Len() == 0
}

// candidateHeap implements heap.Interface.
type candidateHeap struct {
	list []Candidate
	cmp  Comparator
}

func (h candidateHeap) Len() int           { return len(h.list) }
func (h candidateHeap) Less(i, j int) bool { return h.cmp(h.list[i], h.list[j]) < 0 }
func (h candidateHeap) Swap(i, j int)      { h.list[i], h.list[j] = h.list[j], h.list[i] }

func (h *candidateHeap) Push(x any) {
	h.list = append(h.list, x.(Candidate))
}

func (h *candidateHeap) Pop() any {
	old := h.list
	n := len(old)
	c := old[n-1]
	old[n-1] = Candidate{}
	h.list = old[:n-1]
	return c
}
