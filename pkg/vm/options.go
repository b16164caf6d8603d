/******************************************************************************\
* Pararuna                                                                     *
*                                                                               *
* Copyright 2020-2023 Leandro Motta Barros                                     *
* Licensed under the MIT license (see LICENSE.txt for details)                 *
\******************************************************************************/

package vm

import "github.com/stackedboxes/pararuna/pkg/heap"

// Options configures a VM at construction time.
type Options struct {
	// ClearAfterMain makes Main clear the operand stack and any leftover
	// globals-call temporaries once its top-level frame returns, so the VM
	// can accept a new top-level function without contamination from the
	// previous run.
	ClearAfterMain bool

	// HeapCapacity overrides the heap slab size. Zero means
	// heap.DefaultCapacity.
	HeapCapacity int

	// Trace makes the VM emit per-opcode diagnostics as it runs.
	Trace bool
}

// heapCapacity returns the effective heap capacity for these Options.
func (o Options) heapCapacity() int {
	if o.HeapCapacity > 0 {
		return o.HeapCapacity
	}
	return heap.DefaultCapacity
}

// DefaultOptions returns the zero-value Options: no stack clearing, default
// heap size, no tracing.
func DefaultOptions() Options {
	return Options{}
}
