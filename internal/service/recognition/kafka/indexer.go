package kafka

import "sync"

const defaultIndexerCapacity = 4096

// Indexer maps segment ids to utterance indexes in first-seen order.
// It remembers at most capacity ids; the oldest are forgotten first.
type Indexer struct {
	mu       sync.Mutex
	capacity int
	next     int
	ids      map[string]int
	order    []string
}

func NewIndexer(capacity int) *Indexer {
	if capacity < 1 {
		capacity = defaultIndexerCapacity
	}
	return &Indexer{capacity: capacity, ids: make(map[string]int)}
}

// Index returns the utterance index for segmentID, assigning the next one
// on first sight.
func (x *Indexer) Index(segmentID string) int {
	x.mu.Lock()
	defer x.mu.Unlock()

	if i, ok := x.ids[segmentID]; ok {
		return i
	}
	i := x.next
	x.next++
	x.ids[segmentID] = i
	x.order = append(x.order, segmentID)
	if len(x.order) > x.capacity {
		delete(x.ids, x.order[0])
		x.order = x.order[1:]
	}
	return i
}

// Len returns the number of remembered ids.
func (x *Indexer) Len() int {
	x.mu.Lock()
	defer x.mu.Unlock()
	return len(x.ids)
}
