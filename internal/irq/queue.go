package irq

// Queue is a fixed-capacity FIFO ring. It is not synchronized: every access
// goes through the Section that owns it. A full queue rejects new items and
// keeps the ones it has.
type Queue[T any] struct {
	buf  []T
	head int
	n    int
}

// NewQueue returns an empty queue holding at most capacity items.
func NewQueue[T any](capacity int) *Queue[T] {
	if capacity < 1 {
		capacity = 1
	}
	return &Queue[T]{buf: make([]T, capacity)}
}

func (q *Queue[T]) Len() int { return q.n }
func (q *Queue[T]) Cap() int { return len(q.buf) }

// Push appends v and reports whether it fit.
func (q *Queue[T]) Push(v T) bool {
	if q.n == len(q.buf) {
		return false
	}
	q.buf[(q.head+q.n)%len(q.buf)] = v
	q.n++
	return true
}

// Pop removes the oldest item.
func (q *Queue[T]) Pop() (T, bool) {
	var zero T
	if q.n == 0 {
		return zero, false
	}
	v := q.buf[q.head]
	q.buf[q.head] = zero
	q.head = (q.head + 1) % len(q.buf)
	q.n--
	return v, true
}

// Peek returns the oldest item without removing it.
func (q *Queue[T]) Peek() (T, bool) {
	if q.n == 0 {
		var zero T
		return zero, false
	}
	return q.buf[q.head], true
}

// Remove drops every item matching fn, keeping the relative order of the
// rest, and returns how many were dropped.
func (q *Queue[T]) Remove(fn func(T) bool) int {
	var zero T
	kept := 0
	for i := 0; i < q.n; i++ {
		v := q.buf[(q.head+i)%len(q.buf)]
		if fn(v) {
			continue
		}
		q.buf[(q.head+kept)%len(q.buf)] = v
		kept++
	}
	for i := kept; i < q.n; i++ {
		q.buf[(q.head+i)%len(q.buf)] = zero
	}
	removed := q.n - kept
	q.n = kept
	return removed
}

// Clear empties the queue.
func (q *Queue[T]) Clear() {
	q.Remove(func(T) bool { return true })
}
