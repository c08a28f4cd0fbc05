package computequeue

// laneHeap is a container/heap.Interface ordered by (Priority, SubmittedAt)
// ascending — lower priority number and earlier submission drain first
// (§4.12 "ordered by (priority, submission_time)").
type laneHeap []Item

func (h laneHeap) Len() int { return len(h) }

func (h laneHeap) Less(i, j int) bool {
	if h[i].Priority != h[j].Priority {
		return h[i].Priority < h[j].Priority
	}
	return h[i].SubmittedAt.Before(h[j].SubmittedAt)
}

func (h laneHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }

func (h *laneHeap) Push(x any) {
	*h = append(*h, x.(Item))
}

func (h *laneHeap) Pop() any {
	old := *h
	n := len(old)
	item := old[n-1]
	*h = old[:n-1]
	return item
}
