// Package textqueue provides the bounded character queue between the link
// callback context and the emission loop.
package textqueue

import "sync/atomic"

// DefaultCapacity is the ring size in bytes. One slot stays unused to
// distinguish empty from full, so the usable capacity is one less.
const DefaultCapacity = 4096

// Queue is a fixed-capacity circular byte buffer with exactly one producer
// (the link reader goroutine) and one consumer (the controller loop). The
// producer owns tail, the consumer owns head; each side only reads the other
// side's index. Atomic index updates publish buffer writes, so no lock is
// needed and neither operation ever blocks.
type Queue struct {
	buf  []byte
	head atomic.Uint32 // next read position, consumer-owned
	tail atomic.Uint32 // next write position, producer-owned
}

// New creates a queue with the given ring size. Sizes below two fall back to
// DefaultCapacity.
func New(capacity int) *Queue {
	if capacity < 2 {
		capacity = DefaultCapacity
	}
	return &Queue{buf: make([]byte, capacity)}
}

// Enqueue filters data and admits the surviving bytes in order. The filter
// keeps printable ASCII (0x20-0x7E), newline, and tab; it drops carriage
// returns and skips multi-byte UTF-8 sequences whole. When the ring fills,
// the already-admitted prefix stays and the remainder is dropped silently:
// the peer writes fire-and-forget, there is no flow-control channel to push
// back on. Returns the number of bytes admitted.
func (q *Queue) Enqueue(data []byte) int {
	admitted := 0
	tail := q.tail.Load()
	size := uint32(len(q.buf))

	for i := 0; i < len(data); i++ {
		c := data[i]

		// Skip multi-byte UTF-8 sequences; only ASCII is emitted.
		if c >= 0x80 {
			switch {
			case c&0xE0 == 0xC0:
				i++
			case c&0xF0 == 0xE0:
				i += 2
			case c&0xF8 == 0xF0:
				i += 3
			}
			continue
		}

		if c == '\r' {
			continue
		}
		if c != '\n' && c != '\t' && (c < 0x20 || c > 0x7E) {
			continue
		}

		next := (tail + 1) % size
		if next == q.head.Load() {
			break // full, drop the rest
		}
		q.buf[tail] = c
		q.tail.Store(next)
		tail = next
		admitted++
	}

	return admitted
}

// DequeueOne removes and returns the byte at the head, or false when the
// queue is empty.
func (q *Queue) DequeueOne() (byte, bool) {
	head := q.head.Load()
	if head == q.tail.Load() {
		return 0, false
	}
	c := q.buf[head]
	q.head.Store((head + 1) % uint32(len(q.buf)))
	return c, true
}

// Depth returns the number of queued bytes.
func (q *Queue) Depth() int {
	size := uint32(len(q.buf))
	head := q.head.Load()
	tail := q.tail.Load()
	return int((tail + size - head) % size)
}

// Capacity returns the usable capacity (ring size minus the sentinel slot).
func (q *Queue) Capacity() int {
	return len(q.buf) - 1
}
