package toolsched

import "sync"

// memoryDedup tracks the most recent N save_memory call IDs so the external memory-refresh side
// effect (spec.md §4.2 item 3) fires exactly once per call_id, even if the same call_id is
// re-executed (ex: a recovery continuation re-issuing a tool call the model already made). It
// never suppresses the tool call itself - only whether Scheduler.OnMemorySaved fires again.
// Bounded rather than an ever-growing set, per the Open Question decision in DESIGN.md: a
// long-running session would otherwise retain one entry per save_memory call for its entire
// lifetime.
type memoryDedup struct {
	mu       sync.Mutex
	capacity int
	order    []string
	index    map[string]struct{}
}

func newMemoryDedup(capacity int) *memoryDedup {
	return &memoryDedup{
		capacity: capacity,
		index:    make(map[string]struct{}, capacity),
	}
}

// seen reports whether callID was already recorded, recording it if not. When at capacity, the
// oldest entry is evicted to make room.
func (d *memoryDedup) seen(callID string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	if _, ok := d.index[callID]; ok {
		return true
	}

	if len(d.order) >= d.capacity {
		oldest := d.order[0]
		d.order = d.order[1:]
		delete(d.index, oldest)
	}
	d.order = append(d.order, callID)
	d.index[callID] = struct{}{}
	return false
}
