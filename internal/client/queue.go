package client

import "sync"

// eventQueue is the FIFO handoff between the receive goroutine (sole
// producer) and the consumer draining on its own cadence. drain never blocks.
type eventQueue struct {
	mu    sync.Mutex
	items []string
}

func (q *eventQueue) push(line string) {
	q.mu.Lock()
	q.items = append(q.items, line)
	q.mu.Unlock()
}

func (q *eventQueue) drain() []string {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.items) == 0 {
		return nil
	}
	items := q.items
	q.items = nil
	return items
}

func (q *eventQueue) reset() {
	q.mu.Lock()
	q.items = nil
	q.mu.Unlock()
}
