package main

import (
	"fmt"
	"image"
	"sync"
)

// Frame is a reusable image slot in the ring.
type Frame struct {
	Image *image.RGBA
}

// NewFrame allocates a frame covering bounds.
func NewFrame(bounds image.Rectangle) *Frame {
	return &Frame{Image: image.NewRGBA(bounds)}
}

// Ring hands frame slots from one producer to one consumer.
//
// The producer fills the slot at end and then commits it; the consumer takes
// the slot at start. One slot always stays unused so that start == end means
// empty and end+1 == start means full. Only the indices and counters are
// guarded by mu; a slot's pixels belong to whichever side holds its index.
type Ring struct {
	mu        sync.Mutex
	slots     []*Frame
	start     int
	end       int
	pending   int // committed, not yet consumed
	remaining int // still to be produced
}

// NewRing creates a ring of capacity slots for a session of total frames.
// Every slot is allocated up front by alloc.
func NewRing(capacity, total int, alloc func() *Frame) (*Ring, error) {
	if capacity < 2 {
		return nil, &ParamError{Name: "buffer capacity", Reason: fmt.Sprintf("%d slots, need at least 2", capacity)}
	}
	slots := make([]*Frame, capacity)
	for i := range slots {
		slots[i] = alloc()
	}
	return &Ring{slots: slots, remaining: total}, nil
}

// Cap returns the number of slots, including the unusable one.
func (r *Ring) Cap() int { return len(r.slots) }

// Reserve returns the slot the producer must fill next. The slot is not
// visible to the consumer until Commit. A full ring yields ErrBufferFull.
func (r *Ring) Reserve() (int, *Frame, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if (r.end+1)%len(r.slots) == r.start {
		return -1, nil, fmt.Errorf("%w: start=%d end=%d pending=%d", ErrBufferFull, r.start, r.end, r.pending)
	}
	return r.end, r.slots[r.end], nil
}

// Commit publishes the reserved slot to the consumer.
func (r *Ring) Commit() {
	r.mu.Lock()
	r.end = (r.end + 1) % len(r.slots)
	r.pending++
	r.remaining--
	r.mu.Unlock()
}

// Consume takes the oldest committed slot. The consumer owns it until the
// next call to Consume. ok is false when nothing is pending.
func (r *Ring) Consume() (idx int, f *Frame, ok bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.pending == 0 {
		return -1, nil, false
	}
	idx = r.start
	r.start = (r.start + 1) % len(r.slots)
	r.pending--
	return idx, r.slots[idx], true
}

// RingState is a consistent snapshot of the ring's indices and counters.
type RingState struct {
	Start     int
	End       int
	Pending   int
	Remaining int
}

// State returns a snapshot of the ring.
func (r *Ring) State() RingState {
	r.mu.Lock()
	defer r.mu.Unlock()
	return RingState{Start: r.start, End: r.end, Pending: r.pending, Remaining: r.remaining}
}

// Finished reports whether every frame was produced and consumed.
func (s RingState) Finished() bool {
	return s.Remaining <= 0 && s.Pending == 0
}
