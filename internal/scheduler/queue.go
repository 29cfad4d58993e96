package scheduler

import "container/heap"

// jobHeap orders jobs by (priority DESC, scheduled_at ASC, created_at ASC)
// per spec.md §4.6. It implements container/heap.Interface so insertion
// stays O(log n); dequeueEligible still has to linear-scan to skip jobs
// whose scheduled_at hasn't arrived yet (the heap order alone can't
// express "skip not-yet-eligible", since a higher-priority job due
// later would otherwise sit at the root ahead of an eligible one).
type jobHeap []*Job

func lessJob(a, b *Job) bool {
	if a.Priority != b.Priority {
		return a.Priority > b.Priority
	}
	if !a.ScheduledAt.Equal(b.ScheduledAt) {
		return a.ScheduledAt.Before(b.ScheduledAt)
	}
	return a.CreatedAt.Before(b.CreatedAt)
}

func (h jobHeap) Len() int            { return len(h) }
func (h jobHeap) Less(i, j int) bool  { return lessJob(h[i], h[j]) }
func (h jobHeap) Swap(i, j int) {
	h[i], h[j] = h[j], h[i]
	h[i].heapIndex = i
	h[j].heapIndex = j
}

func (h *jobHeap) Push(x interface{}) {
	j := x.(*Job)
	j.heapIndex = len(*h)
	*h = append(*h, j)
}

func (h *jobHeap) Pop() interface{} {
	old := *h
	n := len(old)
	item := old[n-1]
	old[n-1] = nil
	item.heapIndex = -1
	*h = old[:n-1]
	return item
}

var _ heap.Interface = (*jobHeap)(nil)
