package observer

import "sync"

// Revision is a published value stamped with a sequence that grows with every
// state change.
type Revision[T any] struct {
	Value T
	Seq   uint64
}

// Monotonic wraps fn so it never sees a revision at or below one it already
// received. Calls through the returned function are serialized per listener,
// which lets a late subscriber receive its initial value outside the
// publisher's critical section.
func Monotonic[T any](fn func(T)) func(Revision[T]) {
	var (
		mu   sync.Mutex
		seen bool
		last uint64
	)
	return func(r Revision[T]) {
		mu.Lock()
		defer mu.Unlock()
		if seen && r.Seq <= last {
			return
		}
		seen, last = true, r.Seq
		fn(r.Value)
	}
}
