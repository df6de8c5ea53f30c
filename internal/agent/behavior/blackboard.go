package behavior

import (
	"sort"
	"sync"
)

// Blackboard is the key/value scratch space shared by the nodes of one tree.
// Values are stored untyped; typed reads treat a type mismatch as absent.
type Blackboard struct {
	mu   sync.RWMutex
	data map[string]interface{}
}

func NewBlackboard() *Blackboard {
	return &Blackboard{
		data: make(map[string]interface{}),
	}
}

func (b *Blackboard) Set(key string, value interface{}) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.data[key] = value
}

// Get returns the raw value stored under key, or nil.
func (b *Blackboard) Get(key string) interface{} {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.data[key]
}

func (b *Blackboard) GetString(key string) string {
	return GetAs[string](b, key)
}

func (b *Blackboard) Contains(key string) bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	_, ok := b.data[key]
	return ok
}

// Remove deletes key and reports whether it was present.
func (b *Blackboard) Remove(key string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	_, ok := b.data[key]
	delete(b.data, key)
	return ok
}

func (b *Blackboard) Clear() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.data = make(map[string]interface{})
}

func (b *Blackboard) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.data)
}

// Keys returns the stored keys in sorted order.
func (b *Blackboard) Keys() []string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	keys := make([]string, 0, len(b.data))
	for k := range b.data {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Snapshot returns a shallow copy of the stored values.
func (b *Blackboard) Snapshot() map[string]interface{} {
	b.mu.RLock()
	defer b.mu.RUnlock()
	out := make(map[string]interface{}, len(b.data))
	for k, v := range b.data {
		out[k] = v
	}
	return out
}

// TryGet returns the value under key if it is present and holds a T.
func TryGet[T any](b *Blackboard, key string) (T, bool) {
	var zero T
	if b == nil {
		return zero, false
	}
	b.mu.RLock()
	raw, ok := b.data[key]
	b.mu.RUnlock()
	if !ok {
		return zero, false
	}
	v, ok := raw.(T)
	if !ok {
		return zero, false
	}
	return v, true
}

// GetAs returns the value under key, or the zero T when it is absent or of
// another type.
func GetAs[T any](b *Blackboard, key string) T {
	v, _ := TryGet[T](b, key)
	return v
}
