/******************************************************************************\
* Pararuna                                                                     *
*                                                                               *
* Copyright 2020-2023 Leandro Motta Barros                                     *
* Licensed under the MIT license (see LICENSE.txt for details)                 *
\******************************************************************************/

// Package heap implements the bounded, reference-counted object slab used by
// the virtual machine. Objects are never addressed directly: callers get back
// an opaque Handle, which stays valid until the cell it names is actually
// reclaimed. Cells never move: a reclaimable cell is reused in place by a
// later allocation, and the slab is never compacted.
package heap

import (
	"fmt"

	"github.com/stackedboxes/pararuna/pkg/errs"
)

// DefaultCapacity is the slab size used when nothing else is configured.
const DefaultCapacity = 512

// Handle is an opaque, share-counted reference to a heap cell. Two handles
// compare equal (with ==) if and only if they name the same cell generation,
// i.e., the same live object.
type Handle struct {
	index      int
	generation uint32
}

// IsZero reports whether h is the zero Handle, which never refers to a live
// object.
func (h Handle) IsZero() bool {
	return h == Handle{}
}

// Parts exposes h's raw index and generation, so that callers outside this
// package (namely the bytecode value (de)serializer) can persist a Handle
// alongside a heap snapshot without this package knowing anything about wire
// formats.
func (h Handle) Parts() (index, generation uint32) {
	return uint32(h.index), h.generation
}

// FromParts rebuilds a Handle from the raw index/generation pair previously
// obtained from Parts. It's the caller's responsibility to pair it with a
// heap snapshot consistent with where those parts came from.
func FromParts(index, generation uint32) Handle {
	return Handle{index: int(index), generation: generation}
}

func (h Handle) String() string {
	return fmt.Sprintf("Handle{%v,%v}", h.index, h.generation)
}

// cell is one slot in the slab. shares counts every outstanding reference to
// the object, including the one implicitly held by the slab itself: a cell is
// reclaimable exactly when shares == 1 (nobody but the heap still cares).
type cell[T any] struct {
	object     T
	shares     int
	generation uint32
	occupied   bool
}

// Heap is a fixed-capacity slab of shared cells holding values of type T. A
// Heap is not safe for concurrent use: it is exclusively
// owned by a single VM.
type Heap[T any] struct {
	cells    []cell[T]
	capacity int
}

// New creates a new, empty Heap with the given maximum capacity.
func New[T any](capacity int) *Heap[T] {
	return &Heap[T]{
		cells:    make([]cell[T], 0, capacity),
		capacity: capacity,
	}
}

// Len returns the number of occupied slots on the heap.
func (h *Heap[T]) Len() int {
	n := 0
	for i := range h.cells {
		if h.cells[i].occupied {
			n++
		}
	}
	return n
}

// Capacity returns the heap's maximum capacity.
func (h *Heap[T]) Capacity() int {
	return h.capacity
}

// Alloc puts obj on the heap, returning a Handle to it. The returned handle
// itself counts as an outstanding share (on top of the slab's own implicit
// share), so a freshly allocated cell starts at shares == 2; the caller must
// Release it once done, same as any handle obtained via Clone. Allocation
// first scans for a reclaimable cell (one whose only remaining share is the
// heap's own); failing that, it grows the slab by one cell if there's room.
// Returns an out-of-memory Heap error if the slab is both full and has no
// reclaimable cell.
func (h *Heap[T]) Alloc(obj T) (Handle, error) {
	for i := range h.cells {
		if h.cells[i].occupied && h.cells[i].shares == 1 {
			h.cells[i].object = obj
			h.cells[i].generation++
			h.cells[i].shares = 2
			return Handle{index: i, generation: h.cells[i].generation}, nil
		}
	}

	if len(h.cells) >= h.capacity {
		return Handle{}, errs.NewHeap(
			"could not allocate new object on heap: out of memory (capacity: %v objects)", h.capacity)
	}

	h.cells = append(h.cells, cell[T]{object: obj, shares: 2, generation: 1, occupied: true})
	return Handle{index: len(h.cells) - 1, generation: 1}, nil
}

// Get dereferences handle, returning a pointer to the underlying object. The
// returned pointer must not be retained across a VM suspension point: the
// heap may reuse the cell behind it.
func (h *Heap[T]) Get(handle Handle) (*T, error) {
	c, err := h.cellFor(handle)
	if err != nil {
		return nil, err
	}
	return &c.object, nil
}

// Clone registers a new outstanding reference to handle's cell, incrementing
// its share count, and returns the same handle back for convenience.
func (h *Heap[T]) Clone(handle Handle) (Handle, error) {
	c, err := h.cellFor(handle)
	if err != nil {
		return Handle{}, err
	}
	c.shares++
	return handle, nil
}

// Release drops one outstanding reference to handle's cell. Once shares falls
// back to 1, the cell becomes eligible for reuse by a future Alloc.
func (h *Heap[T]) Release(handle Handle) error {
	c, err := h.cellFor(handle)
	if err != nil {
		return err
	}
	if c.shares > 1 {
		c.shares--
	}
	return nil
}

// CellState is a snapshot of one heap cell's state, exposed so a VM can
// serialize and restore a whole heap without this package knowing anything
// about wire formats or the concrete object types it stores.
type CellState[T any] struct {
	Object     T
	Shares     int
	Generation uint32
}

// Cells returns a snapshot of every occupied cell on the heap, in index
// order.
func (h *Heap[T]) Cells() []CellState[T] {
	out := make([]CellState[T], len(h.cells))
	for i, c := range h.cells {
		out[i] = CellState[T]{Object: c.object, Shares: c.shares, Generation: c.generation}
	}
	return out
}

// NewFromCells rebuilds a Heap with the given capacity, pre-populated with
// cells in the given order (so their indices match whatever produced the
// snapshot).
func NewFromCells[T any](capacity int, cells []CellState[T]) *Heap[T] {
	h := New[T](capacity)
	for _, c := range cells {
		h.cells = append(h.cells, cell[T]{object: c.Object, shares: c.Shares, generation: c.Generation, occupied: true})
	}
	return h
}

// cellFor resolves handle to its backing cell, checking bounds and
// generation.
func (h *Heap[T]) cellFor(handle Handle) (*cell[T], error) {
	if handle.index < 0 || handle.index >= len(h.cells) {
		return nil, errs.NewHeap(
			"encountered illegal handle %v: handle index is out-of-bounds (%v >= %v)",
			handle, handle.index, len(h.cells))
	}
	c := &h.cells[handle.index]
	if !c.occupied || c.generation != handle.generation {
		return nil, errs.NewHeap("encountered dangling handle %v", handle)
	}
	return c, nil
}
