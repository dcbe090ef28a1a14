package watcher

// batcher collects the events of one debounce window. Repeated events for a
// path keep the position of the first one and merge their ops.
type batcher struct {
	index  map[string]int
	events []Event
}

func newBatcher() *batcher {
	return &batcher{index: make(map[string]int)}
}

// add records event and reports whether the path was already pending.
func (b *batcher) add(event Event) bool {
	if i, ok := b.index[event.Path]; ok {
		b.events[i].Op |= event.Op
		return true
	}
	b.index[event.Path] = len(b.events)
	b.events = append(b.events, event)
	return false
}

func (b *batcher) len() int {
	return len(b.events)
}

// flush returns the pending batch and starts a new window.
func (b *batcher) flush() Batch {
	batch := Batch(b.events)
	b.events = nil
	b.index = make(map[string]int)
	return batch
}
