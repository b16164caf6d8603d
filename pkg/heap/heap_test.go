/******************************************************************************\
* Pararuna                                                                     *
*                                                                               *
* Copyright 2020-2023 Leandro Motta Barros                                     *
* Licensed under the MIT license (see LICENSE.txt for details)                 *
\******************************************************************************/

package heap

import "testing"

func TestAllocAndGet(t *testing.T) {
	h := New[int](4)

	hdl, err := h.Alloc(42)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	v, err := h.Get(hdl)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if *v != 42 {
		t.Fatalf("got %v, want 42", *v)
	}
}

func TestOutOfMemory(t *testing.T) {
	h := New[int](1)

	if _, err := h.Alloc(1); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	hdl, err := h.Alloc(2)
	if err == nil {
		t.Fatalf("expected out-of-memory error, got handle %v", hdl)
	}
}

func TestIllegalHandle(t *testing.T) {
	h := New[int](4)

	if _, err := h.Get(Handle{index: 7}); err == nil {
		t.Fatalf("expected illegal-handle error")
	}
}

func TestReclaimOnlyWhenUnshared(t *testing.T) {
	h := New[int](1)

	// Alloc's own returned handle counts as a share, same as one obtained
	// from Clone: a freshly allocated, never-cloned cell must already be
	// unreclaimable, or it would be silently overwritten by the very next
	// Alloc call.
	hdl, err := h.Alloc(10)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if _, err := h.Alloc(20); err == nil {
		t.Fatalf("expected out-of-memory error: a live, unreleased handle must not be reclaimed")
	}

	if _, err := h.Clone(hdl); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// Three shares outstanding now (the heap's own, the original caller's,
	// and the clone's): still not reclaimable.
	if _, err := h.Alloc(20); err == nil {
		t.Fatalf("expected out-of-memory error while handle is still shared")
	}

	if err := h.Release(hdl); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// Two shares left (the heap's own, plus the clone): still not
	// reclaimable.
	if _, err := h.Alloc(20); err == nil {
		t.Fatalf("expected out-of-memory error while handle is still shared")
	}

	if err := h.Release(hdl); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	newHdl, err := h.Alloc(30)
	if err != nil {
		t.Fatalf("unexpected error after release: %v", err)
	}

	if _, err := h.Get(hdl); err == nil {
		t.Fatalf("expected dangling-handle error for reclaimed handle")
	}

	v, err := h.Get(newHdl)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if *v != 30 {
		t.Fatalf("got %v, want 30", *v)
	}
}

func TestHandleEquality(t *testing.T) {
	h := New[int](4)

	a, _ := h.Alloc(1)
	b, _ := h.Alloc(2)

	if a == b {
		t.Fatalf("distinct allocations produced equal handles")
	}

	c, err := h.Clone(a)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if a != c {
		t.Fatalf("cloned handle should compare equal to the original")
	}
}
