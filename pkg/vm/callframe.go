/******************************************************************************\
* Pararuna                                                                     *
*                                                                               *
* Copyright 2020-2023 Leandro Motta Barros                                     *
* Licensed under the MIT license (see LICENSE.txt for details)                 *
\******************************************************************************/

package vm

import (
	"io"

	"github.com/stackedboxes/pararuna/pkg/bytecode"
	"github.com/stackedboxes/pararuna/pkg/errs"
	"github.com/stackedboxes/pararuna/pkg/heap"
	"github.com/stackedboxes/pararuna/pkg/romutil"
)

// callFrame holds the runtime state of one ongoing function call: which
// function is running, where its instruction pointer is, and where its
// window into the operand stack starts.
type callFrame struct {
	// fn is a handle to the bytecode.Function object on the heap.
	fn heap.Handle

	// ip is the instruction pointer: an index into fn's Chunk.Code of the
	// next instruction to execute.
	ip int

	// stack is this frame's read/write view into the VM's operand stack.
	stack *StackView
}

// function resolves f's handle, returning a Frame error if it doesn't
// resolve to a live Function.
func (vm *VM) function(f *callFrame) (*bytecode.Function, errs.Error) {
	obj, err := vm.heap.Get(f.fn)
	if err != nil {
		return nil, errs.NewFrame("illegal function handle: %v", err)
	}
	fn, ok := (*obj).(*bytecode.Function)
	if !ok {
		return nil, errs.NewFrame("handle does not resolve to a function, got %v", (*obj).TypeName())
	}
	return fn, nil
}

// readU8 advances f's ip by one and returns the byte at the old ip.
func (vm *VM) readU8(f *callFrame) (byte, errs.Error) {
	fn, err := vm.function(f)
	if err != nil {
		return 0, err
	}
	if f.ip >= len(fn.Chunk.Code) {
		return 0, errs.NewFrame("ip out of bounds: %v >= %v", f.ip, len(fn.Chunk.Code))
	}
	b := fn.Chunk.Code[f.ip]
	f.ip++
	return b, nil
}

// readU16 advances f's ip by two and returns the big-endian 16-bit value
// (byte1<<8)|byte2.
func (vm *VM) readU16(f *callFrame) (int, errs.Error) {
	hi, err := vm.readU8(f)
	if err != nil {
		return 0, err
	}
	lo, err := vm.readU8(f)
	if err != nil {
		return 0, err
	}
	return (int(hi) << 8) | int(lo), nil
}

// readUInt31 reads a raw four-byte little-endian operand, advancing f's ip by
// four. Used for local-variable slots and array element counts: operands
// that share OpConstant's wire width but never index the constant pool.
func (vm *VM) readUInt31(f *callFrame) (int, errs.Error) {
	fn, err := vm.function(f)
	if err != nil {
		return 0, err
	}
	if f.ip+4 > len(fn.Chunk.Code) {
		return 0, errs.NewFrame("ip out of bounds reading operand: %v", f.ip)
	}
	v := bytecode.DecodeUInt31(fn.Chunk.Code[f.ip:])
	f.ip += 4
	return v, nil
}

// readConstant reads a four-byte constant-pool index and returns the
// corresponding Constant from the VM's program.
func (vm *VM) readConstant(f *callFrame) (bytecode.Constant, errs.Error) {
	fn, err := vm.function(f)
	if err != nil {
		return bytecode.Constant{}, err
	}
	if f.ip+4 > len(fn.Chunk.Code) {
		return bytecode.Constant{}, errs.NewFrame("ip out of bounds reading constant index: %v", f.ip)
	}
	index := bytecode.DecodeUInt31(fn.Chunk.Code[f.ip:])
	f.ip += 4

	if index < 0 || index >= len(vm.program.Constants) {
		return bytecode.Constant{}, errs.NewFrame("constant index out of bounds: %v >= %v", index, len(vm.program.Constants))
	}
	return vm.program.Constants[index], nil
}

//
// Serialization
//
// A callFrame serializes as its function's identity -- not the handle, which
// is only meaningful within one heap instance, but the function's name, so a
// restored VM can re-resolve it against its own (re-materialized) globals.
//

// Serialize serializes f to w. fn is f's already-resolved Function, passed in
// so Serialize doesn't need direct heap access.
func (f *callFrame) Serialize(w io.Writer, fn *bytecode.Function) error {
	if err := romutil.SerializeString(w, fn.Name); err != nil {
		return err
	}
	if err := romutil.SerializeU32(w, uint32(f.ip)); err != nil {
		return err
	}
	return romutil.SerializeU32(w, uint32(f.stack.base))
}

// serializedCallFrame is the on-disk shape of a callFrame: the information
// needed to re-resolve and re-attach it to a freshly restored VM.
type serializedCallFrame struct {
	FuncName    string
	IP          int
	StackOffset int
}

// deserializeCallFrame reads back what Serialize wrote.
func deserializeCallFrame(r io.Reader) (serializedCallFrame, error) {
	name, err := romutil.DeserializeString(r)
	if err != nil {
		return serializedCallFrame{}, err
	}
	ip, err := romutil.DeserializeU32(r)
	if err != nil {
		return serializedCallFrame{}, err
	}
	offset, err := romutil.DeserializeU32(r)
	if err != nil {
		return serializedCallFrame{}, err
	}
	return serializedCallFrame{FuncName: name, IP: int(ip), StackOffset: int(offset)}, nil
}
