/******************************************************************************\
* Pararuna                                                                     *
*                                                                               *
* Copyright 2020-2023 Leandro Motta Barros                                     *
* Licensed under the MIT license (see LICENSE.txt for details)                 *
\******************************************************************************/

package vm

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/stackedboxes/pararuna/pkg/bytecode"
	"github.com/stackedboxes/pararuna/pkg/errs"
	"github.com/stackedboxes/pararuna/pkg/executor"
)

// binaryArithmetic pops two numeric operands and pushes the result of
// applying op to them. Int op Int stays an Int; anything involving a Real
// promotes to Real. Two heap-allocated Strings under OpAdd concatenate
// instead.
func (vm *VM) binaryArithmetic(op bytecode.OpCode) errs.Error {
	b := vm.pop()
	a := vm.pop()

	if op == bytecode.OpAdd {
		if s, ok := vm.bothStrings(a, b); ok {
			h, err := vm.heap.Alloc(&bytecode.String{Text: s})
			if err != nil {
				return errs.NewHeap("concatenating strings: %v", err)
			}
			vm.release(a)
			vm.release(b)
			vm.push(bytecode.NewHandle(h))
			return nil
		}
	}

	if a.IsInt() && b.IsInt() {
		ai, bi := a.AsInt(), b.AsInt()
		switch op {
		case bytecode.OpAdd:
			vm.push(bytecode.NewInt(ai + bi))
		case bytecode.OpSubtract:
			vm.push(bytecode.NewInt(ai - bi))
		case bytecode.OpMultiply:
			vm.push(bytecode.NewInt(ai * bi))
		case bytecode.OpDivide:
			if bi == 0 {
				vm.runtimeError("integer division by zero")
			}
			vm.push(bytecode.NewInt(ai / bi))
		}
		return nil
	}

	af, aok := vm.asReal(a)
	bf, bok := vm.asReal(b)
	if !aok || !bok {
		vm.runtimeError("operands to arithmetic must both be numbers (int or real)")
	}
	switch op {
	case bytecode.OpAdd:
		vm.push(bytecode.NewReal(af + bf))
	case bytecode.OpSubtract:
		vm.push(bytecode.NewReal(af - bf))
	case bytecode.OpMultiply:
		vm.push(bytecode.NewReal(af * bf))
	case bytecode.OpDivide:
		vm.push(bytecode.NewReal(af / bf))
	}
	return nil
}

// asReal converts an Int or Real Value to float64, reporting false for
// anything else.
func (vm *VM) asReal(v bytecode.Value) (float64, bool) {
	if v.IsInt() {
		return float64(v.AsInt()), true
	}
	if v.IsReal() {
		return v.AsReal(), true
	}
	return 0, false
}

// bothStrings reports whether a and b are both handles to heap String
// objects, returning their concatenation if so.
func (vm *VM) bothStrings(a, b bytecode.Value) (string, bool) {
	as, ok := vm.asString(a)
	if !ok {
		return "", false
	}
	bs, ok := vm.asString(b)
	if !ok {
		return "", false
	}
	return as + bs, true
}

// asString returns v's text, if v is a handle to a heap String object.
func (vm *VM) asString(v bytecode.Value) (string, bool) {
	if !v.IsHandle() {
		return "", false
	}
	obj, err := vm.heap.Get(v.AsHandle())
	if err != nil {
		return "", false
	}
	s, ok := (*obj).(*bytecode.String)
	if !ok {
		return "", false
	}
	return s.Text, true
}

// negate pops a numeric operand and pushes its arithmetic negation.
func (vm *VM) negate() errs.Error {
	v := vm.pop()
	switch {
	case v.IsInt():
		vm.push(bytecode.NewInt(-v.AsInt()))
	case v.IsReal():
		vm.push(bytecode.NewReal(-v.AsReal()))
	default:
		vm.runtimeError("operand to negate must be a number (int or real)")
	}
	return nil
}

// compare pops two numeric operands and pushes the boolean result of
// applying op (Greater or Less) to them.
func (vm *VM) compare(op bytecode.OpCode) errs.Error {
	b := vm.pop()
	a := vm.pop()

	af, aok := vm.asReal(a)
	bf, bok := vm.asReal(b)
	if !aok || !bok {
		vm.runtimeError("operands to comparison must both be numbers (int or real)")
	}

	switch op {
	case bytecode.OpGreater:
		vm.push(bytecode.NewBool(af > bf))
	case bytecode.OpLess:
		vm.push(bytecode.NewBool(af < bf))
	}
	return nil
}

// call pops the callee and its argCount arguments off the operand stack and
// either pushes a new call frame (for a local Function) or suspends to the
// executor (for a FunctionExt), pushing a Service handle that represents the
// dispatched job.
func (vm *VM) call(ctx context.Context, argCount int) errs.Error {
	callee := vm.peek(argCount)
	if !callee.IsHandle() {
		vm.runtimeError("cannot call a value that is not a function")
	}

	obj, err := vm.heap.Get(callee.AsHandle())
	if err != nil {
		return errs.NewFrame("illegal function handle in call: %v", err)
	}

	switch fn := (*obj).(type) {
	case *bytecode.Function:
		if fn.Arity != argCount {
			vm.runtimeError("function %q expects %v arguments, got %v", fn.Name, fn.Arity, argCount)
		}
		return vm.pushFrame(callee.AsHandle(), argCount)

	case *bytecode.FunctionExt:
		if fn.Arity != argCount {
			vm.runtimeError("external function %q expects %v arguments, got %v", fn.Name, fn.Arity, argCount)
		}
		return vm.callExternal(ctx, fn, argCount)

	default:
		vm.runtimeError("cannot call a value of type %v", (*obj).TypeName())
		return nil
	}
}

// callExternal renders the top argCount stack values to strings, schedules a
// job against the executor, pops the callee and arguments, and pushes a
// Service instance handle identifying the dispatched job.
func (vm *VM) callExternal(ctx context.Context, fn *bytecode.FunctionExt, argCount int) errs.Error {
	args := make([]string, argCount)
	for i := 0; i < argCount; i++ {
		args[i] = vm.renderArg(vm.peek(argCount - 1 - i))
	}

	desc := fn.Descriptor
	if desc == "" && vm.index != nil {
		resolved, err := vm.index.Lookup(fn.Kind)
		if err != nil {
			vm.runtimeError("resolving package for external function %q (kind %v): %v", fn.Name, fn.Kind, err)
		}
		desc = resolved
	}

	descriptor := executor.JobDescriptor{
		FunctionName: fn.Name,
		FunctionKind: fn.Kind,
		Descriptor:   desc,
		Args:         args,
	}

	handle, err := vm.executor.Schedule(ctx, descriptor)
	if err != nil {
		vm.runtimeError("scheduling external function %q: %v", fn.Name, err)
	}

	for i := 0; i <= argCount; i++ {
		vm.release(vm.peek(i))
	}
	vm.stack.popN(argCount + 1)

	svc, allocErr := vm.newService(handle)
	if allocErr != nil {
		return allocErr
	}
	vm.push(svc)
	return nil
}

// renderArg converts a Value to the string an executor sees as a job
// argument, resolving heap objects the same way render does.
func (vm *VM) renderArg(v bytecode.Value) string {
	return vm.render(v)
}

// render converts a Value to its display text, the way print and external-call
// arguments see it: heap Strings render as their text, Arrays as
// "[e1,e2,...]" with each element rendered the same way, and Instances as
// "{k1: v1, k2: v2}" with properties in name order. Other heap objects render
// as their type name; non-handle values, and handles that fail to resolve,
// fall back to Value.String().
func (vm *VM) render(v bytecode.Value) string {
	if !v.IsHandle() {
		return v.String()
	}

	obj, err := vm.heap.Get(v.AsHandle())
	if err != nil {
		return v.String()
	}

	switch o := (*obj).(type) {
	case *bytecode.String:
		return o.Text

	case *bytecode.Array:
		parts := make([]string, len(o.Elements))
		for i, e := range o.Elements {
			parts[i] = vm.render(e)
		}
		return "[" + strings.Join(parts, ",") + "]"

	case *bytecode.Instance:
		names := make([]string, 0, len(o.Properties))
		for name := range o.Properties {
			names = append(names, name)
		}
		sort.Strings(names)
		parts := make([]string, len(names))
		for i, name := range names {
			parts[i] = fmt.Sprintf("%v: %v", name, vm.render(o.Properties[name]))
		}
		return "{" + strings.Join(parts, ", ") + "}"

	default:
		return (*obj).TypeName()
	}
}

// doReturn pops the return value, pops the current frame, releases its
// locals (including the callee and argument slots, which never went through
// an explicit OpPop), and pushes the return value onto the caller's (or the
// top level's) view of the stack.
func (vm *VM) doReturn() {
	result := vm.pop()
	finished := vm.frame
	vm.popFrame()
	vm.releaseRange(finished.stack.base)
	vm.stack.data = vm.stack.data[:finished.stack.base]
	vm.push(result)
}

// buildArray pops count values off the stack (in the order they were
// pushed), builds an Array object checking element-type homogeneity, and
// pushes a handle to it.
func (vm *VM) buildArray(count int) errs.Error {
	elements := make([]bytecode.Value, count)
	for i := count - 1; i >= 0; i-- {
		elements[i] = vm.pop()
	}

	arr, err := bytecode.NewArray(elements, vm.heap)
	if err != nil {
		return err.(errs.Error)
	}

	h, allocErr := vm.heap.Alloc(arr)
	if allocErr != nil {
		return errs.NewHeap("allocating array: %v", allocErr)
	}
	vm.push(bytecode.NewHandle(h))
	return nil
}

// buildClass reads a class-name constant and pushes a handle to a freshly
// allocated, method-less Class object.
func (vm *VM) buildClass(f *callFrame) errs.Error {
	name, err := vm.constantString(f)
	if err != nil {
		return err
	}

	cls := &bytecode.Class{Name: name, Methods: map[string]bytecode.Value{}}
	h, allocErr := vm.heap.Alloc(cls)
	if allocErr != nil {
		return errs.NewHeap("allocating class %q: %v", name, allocErr)
	}
	vm.push(bytecode.NewHandle(h))
	return nil
}

// buildInstance pops a Class handle and pushes a handle to a freshly
// allocated Instance of it.
func (vm *VM) buildInstance() errs.Error {
	classVal := vm.pop()
	if !classVal.IsHandle() {
		vm.runtimeError("cannot instantiate a value that is not a class")
	}

	obj, err := vm.heap.Get(classVal.AsHandle())
	if err != nil {
		return errs.NewFrame("illegal class handle: %v", err)
	}
	if _, ok := (*obj).(*bytecode.Class); !ok {
		vm.runtimeError("cannot instantiate a value of type %v", (*obj).TypeName())
	}

	inst := &bytecode.Instance{Class: classVal.AsHandle(), Properties: map[string]bytecode.Value{}}
	h, allocErr := vm.heap.Alloc(inst)
	if allocErr != nil {
		return errs.NewHeap("allocating instance: %v", allocErr)
	}
	vm.push(bytecode.NewHandle(h))
	return nil
}

// getField reads a field-name constant, pops an Instance handle, and pushes
// the named property's value, falling back to the instance's class's method
// table if the instance has no such property.
func (vm *VM) getField(f *callFrame) errs.Error {
	name, err := vm.constantString(f)
	if err != nil {
		return err
	}

	inst, err := vm.instanceFromStack()
	if err != nil {
		return err
	}

	if v, ok := inst.Properties[name]; ok {
		vm.push(vm.retain(v))
		return nil
	}

	clsObj, getErr := vm.heap.Get(inst.Class)
	if getErr == nil {
		if cls, ok := (*clsObj).(*bytecode.Class); ok {
			if v, ok := cls.Methods[name]; ok {
				vm.push(vm.retain(v))
				return nil
			}
		}
	}

	vm.runtimeError("undefined field or method %q", name)
	return nil
}

// setField reads a field-name constant, pops a value and an Instance handle
// (value on top), sets the property, and pushes the value back as the
// assignment expression's result.
func (vm *VM) setField(f *callFrame) errs.Error {
	name, err := vm.constantString(f)
	if err != nil {
		return err
	}

	value := vm.pop()
	inst, err := vm.instanceFromStack()
	if err != nil {
		return err
	}

	if old, ok := inst.Properties[name]; ok {
		vm.release(old)
	}
	inst.Properties[name] = value
	vm.push(vm.retain(value))
	return nil
}

// instanceFromStack pops a Value off the stack and resolves it to a live
// Instance object. The popped handle's own share is released once resolved:
// callers only need the dereferenced Instance, not a lingering stack copy of
// its handle.
func (vm *VM) instanceFromStack() (*bytecode.Instance, errs.Error) {
	v := vm.pop()
	if !v.IsHandle() {
		vm.runtimeError("expected an instance, got %v", v)
	}
	obj, err := vm.heap.Get(v.AsHandle())
	if err != nil {
		return nil, errs.NewFrame("illegal instance handle: %v", err)
	}
	inst, ok := (*obj).(*bytecode.Instance)
	if !ok {
		vm.runtimeError("expected an instance, got %v", (*obj).TypeName())
	}
	vm.release(v)
	return inst, nil
}
