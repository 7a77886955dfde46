package shim

import "sync"

// Handle is an opaque identifier for a boundary-owned resource. Zero is
// never a valid handle.
type Handle uint64

// table maps handles to owned values. Handles are never reused within a
// table's lifetime, so a stale free cannot touch a newer resource.
type table[T any] struct {
	mu    sync.RWMutex
	next  Handle
	items map[Handle]T
}

func newTable[T any]() *table[T] {
	return &table[T]{items: make(map[Handle]T)}
}

func (t *table[T]) insert(v T) Handle {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.next++
	t.items[t.next] = v
	return t.next
}

func (t *table[T]) get(h Handle) (T, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	v, ok := t.items[h]
	return v, ok
}

// remove drops the handle and returns the value it owned. Unknown or zero
// handles return false.
func (t *table[T]) remove(h Handle) (T, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	v, ok := t.items[h]
	if ok {
		delete(t.items, h)
	}
	return v, ok
}

func (t *table[T]) len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.items)
}

// drain empties the table and returns everything it owned.
func (t *table[T]) drain() []T {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]T, 0, len(t.items))
	for h, v := range t.items {
		out = append(out, v)
		delete(t.items, h)
	}
	return out
}
