package device

// Ring is a fixed-capacity FIFO buffer. Pushing onto a full ring overwrites
// the oldest element. Storage grows on demand up to the capacity.
//
// Ring is not safe for concurrent use; owners guard it with their own lock.
type Ring[T any] struct {
	buf  []T
	head int // index of the oldest element once the ring is full
	cap  int
}

// NewRing creates an empty ring holding at most capacity elements.
// A capacity below 1 is treated as 1.
func NewRing[T any](capacity int) *Ring[T] {
	if capacity < 1 {
		capacity = 1
	}
	return &Ring[T]{cap: capacity}
}

// Push appends v at the tail. It reports whether the oldest element was evicted.
func (r *Ring[T]) Push(v T) bool {
	if len(r.buf) < r.cap {
		r.buf = append(r.buf, v)
		return false
	}
	r.buf[r.head] = v
	r.head = (r.head + 1) % r.cap
	return true
}

// Len returns the number of elements held.
func (r *Ring[T]) Len() int {
	return len(r.buf)
}

// Cap returns the maximum number of elements held.
func (r *Ring[T]) Cap() int {
	return r.cap
}

// Last returns up to n of the most recent elements, oldest first.
// n <= 0 returns everything held.
func (r *Ring[T]) Last(n int) []T {
	size := len(r.buf)
	if n <= 0 || n > size {
		n = size
	}
	out := make([]T, n)
	start := size - n
	for i := range out {
		out[i] = r.buf[(r.head+start+i)%size]
	}
	return out
}

// Newest returns the most recently pushed element.
func (r *Ring[T]) Newest() (T, bool) {
	var zero T
	if len(r.buf) == 0 {
		return zero, false
	}
	return r.buf[(r.head+len(r.buf)-1)%len(r.buf)], true
}
