package telemetry

import "github.com/go-gl/mathgl/mgl64"

// Ring is a fixed capacity buffer that overwrites its oldest entry
type Ring[T any] struct {
	items []T
	start int
	size  int
}

// NewRing creates a ring holding at most capacity items.
// Capacity below one is raised to one.
func NewRing[T any](capacity int) *Ring[T] {
	if capacity < 1 {
		capacity = 1
	}
	return &Ring[T]{items: make([]T, capacity)}
}

// Push appends v, dropping the oldest item when full
func (r *Ring[T]) Push(v T) {
	if r.size < len(r.items) {
		r.items[(r.start+r.size)%len(r.items)] = v
		r.size++
		return
	}
	r.items[r.start] = v
	r.start = (r.start + 1) % len(r.items)
}

// Len returns the number of items held
func (r *Ring[T]) Len() int {
	return r.size
}

// Cap returns the capacity
func (r *Ring[T]) Cap() int {
	return len(r.items)
}

// Items returns a copy of the contents, oldest first
func (r *Ring[T]) Items() []T {
	out := make([]T, r.size)
	for i := range out {
		out[i] = r.items[(r.start+i)%len(r.items)]
	}
	return out
}

// Clear empties the ring
func (r *Ring[T]) Clear() {
	r.start, r.size = 0, 0
}

// Trail samples the aircraft position every interval steps
type Trail struct {
	ring     *Ring[mgl64.Vec3]
	interval uint64
}

// NewTrail creates a trail keeping capacity points, one every interval steps
func NewTrail(interval, capacity int) *Trail {
	if interval < 1 {
		interval = 1
	}
	return &Trail{ring: NewRing[mgl64.Vec3](capacity), interval: uint64(interval)}
}

// Observe offers the position at a step number. It reports whether the
// point was kept.
func (t *Trail) Observe(step uint64, position mgl64.Vec3) bool {
	if step%t.interval != 0 {
		return false
	}
	t.ring.Push(position)
	return true
}

// Points returns the kept positions, oldest first
func (t *Trail) Points() []mgl64.Vec3 {
	return t.ring.Items()
}

// Len returns the number of kept positions
func (t *Trail) Len() int {
	return t.ring.Len()
}

// Reset drops all points
func (t *Trail) Reset() {
	t.ring.Clear()
}
