/******************************************************************************\
* Pararuna                                                                     *
*                                                                               *
* Copyright 2020-2023 Leandro Motta Barros                                     *
* Licensed under the MIT license (see LICENSE.txt for details)                 *
\******************************************************************************/

// Package vm implements the Pararuna bytecode interpreter: the dispatch loop,
// its heap-backed object model, and the suspend/resume machinery that lets a
// session yield to an external job executor and later pick up where it left
// off.
package vm

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/stackedboxes/pararuna/pkg/bytecode"
	"github.com/stackedboxes/pararuna/pkg/errs"
	"github.com/stackedboxes/pararuna/pkg/executor"
	"github.com/stackedboxes/pararuna/pkg/heap"
)

// PackageIndex is the read-only lookup a VM consults to resolve external
// function descriptors it doesn't already know about. It's declared here,
// rather than imported from pkg/packageindex, so the VM only depends on the
// shape it actually uses.
type PackageIndex interface {
	Lookup(kind string) (descriptor string, ok error)
}

// VM is a Pararuna Virtual Machine: the owner of one session's heap, globals,
// operand stack and frame stack, and the driver of its interpreter loop.
type VM struct {
	options  Options
	executor executor.Executor
	index    PackageIndex

	heap    *heap.Heap[bytecode.Object]
	globals map[string]bytecode.Value

	program *bytecode.Program

	stack  *Stack
	frames []*callFrame
	frame  *callFrame
}

// New constructs a fresh VM. ex must not be nil; index may be nil if external
// functions are always fully described by the program being run.
func New(ex executor.Executor, index PackageIndex, opts Options) *VM {
	return &VM{
		options:  opts,
		executor: ex,
		index:    index,
		heap:     heap.New[bytecode.Object](opts.heapCapacity()),
		globals:  make(map[string]bytecode.Value),
		stack:    &Stack{},
	}
}

// Load materializes program's constant-pool function declarations onto the
// heap and into globals, readying the VM to run any of them via Main. Call it
// at most once per VM: calling it again allocates every function a second
// time, so VMs restored via NewWithState skip it.
func (vm *VM) Load(program *bytecode.Program) errs.Error {
	vm.program = program

	for i, c := range program.Constants {
		switch c.Kind {
		case bytecode.ConstFunction:
			fn := &bytecode.Function{
				Name:  c.FuncName,
				Arity: c.FuncArity,
				Chunk: program.Chunks[c.ChunkIndex],
			}
			h, err := vm.heap.Alloc(fn)
			if err != nil {
				return errs.NewHeap("loading function %q (constant %v): %v", c.FuncName, i, err)
			}
			vm.globals[c.FuncName] = bytecode.NewHandle(h)

		case bytecode.ConstFunctionExt:
			fn := &bytecode.FunctionExt{
				Name:       c.FuncName,
				Kind:       c.FuncExtKind,
				Arity:      c.FuncArity,
				Descriptor: c.FuncExtDescriptor,
			}
			h, err := vm.heap.Alloc(fn)
			if err != nil {
				return errs.NewHeap("loading external function %q (constant %v): %v", c.FuncName, i, err)
			}
			vm.globals[c.FuncName] = bytecode.NewHandle(h)
		}
	}

	return nil
}

// EntryPoint returns the Value for program.FirstChunk's function, as loaded
// by Load. It's a convenience for callers that just want to run "the"
// top-level function rather than looking one up by name.
func (vm *VM) EntryPoint() (bytecode.Value, errs.Error) {
	for _, c := range vm.program.Constants {
		if c.Kind == bytecode.ConstFunction && c.ChunkIndex == vm.program.FirstChunk {
			v, ok := vm.globals[c.FuncName]
			if !ok {
				return bytecode.Value{}, errs.NewICE("entry point function %q was not loaded", c.FuncName)
			}
			return v, nil
		}
	}
	return bytecode.Value{}, errs.NewICE("program has no function at its FirstChunk index %v", vm.program.FirstChunk)
}

// Global looks up a global by name.
func (vm *VM) Global(name string) (bytecode.Value, bool) {
	v, ok := vm.globals[name]
	return v, ok
}

// Main pushes a top-level frame calling fn (a Value holding a handle to a
// local Function) and drives the interpreter until the frame stack is empty
// or an error occurs. It returns the last value produced, or unit if none
// was.
func (vm *VM) Main(ctx context.Context, fn bytecode.Value) (result bytecode.Value, err errs.Error) {
	defer func() {
		if r := recover(); r != nil {
			if e, ok := r.(errs.Error); ok {
				err = e
				return
			}
			err = errs.NewICE("unexpected panic: %v", r)
			return
		}
	}()

	if !fn.IsHandle() {
		return bytecode.Value{}, errs.NewFrame("main: expected a function value, got %v", fn)
	}

	vm.push(vm.retain(fn))
	if pushErr := vm.pushFrame(fn.AsHandle(), 0); pushErr != nil {
		return bytecode.Value{}, pushErr
	}

	if runErr := vm.run(ctx); runErr != nil {
		return bytecode.Value{}, runErr
	}

	result = bytecode.NewUnit()
	if vm.stack.size() > 0 {
		result = vm.stack.top()
	}

	if vm.options.ClearAfterMain {
		vm.stack.data = nil
		vm.frames = nil
		vm.frame = nil
	}

	return result, nil
}

// pushFrame pushes a new call frame for the local Function named by fn,
// assuming the callee and its argCount arguments are already on the operand
// stack. The new frame's local slot 0 is the callee itself; its declared
// parameters start at slot 1.
func (vm *VM) pushFrame(fn heap.Handle, argCount int) errs.Error {
	obj, err := vm.heap.Get(fn)
	if err != nil {
		return errs.NewFrame("illegal function handle: %v", err)
	}
	if _, ok := (*obj).(*bytecode.Function); !ok {
		return errs.NewFrame("handle does not resolve to a local function, got %v", (*obj).TypeName())
	}

	frame := &callFrame{
		fn:    fn,
		stack: vm.stack.createView(argCount + 1),
	}
	vm.frames = append(vm.frames, frame)
	vm.frame = frame
	return nil
}

// popFrame pops the current call frame, restoring vm.frame to the caller (or
// nil, if this was the top-level frame).
func (vm *VM) popFrame() {
	vm.frames = vm.frames[:len(vm.frames)-1]
	vm.frame = nil
	if len(vm.frames) > 0 {
		vm.frame = vm.frames[len(vm.frames)-1]
	}
}

// push pushes a value into the operand stack.
func (vm *VM) push(v bytecode.Value) {
	vm.stack.push(v)
}

// pop pops a value from the operand stack. Panics on underflow.
func (vm *VM) pop() bytecode.Value {
	return vm.stack.pop()
}

// retain is called whenever a handle is copied out of a slot that keeps its
// own reference (a local, a global, or an instance property) into a new
// place that can outlive it. It clones the handle's heap share so the two
// copies are counted independently; v is returned unchanged if it isn't a
// handle, or if cloning fails (the caller's own Get already validated it).
func (vm *VM) retain(v bytecode.Value) bytecode.Value {
	if !v.IsHandle() {
		return v
	}
	h, err := vm.heap.Clone(v.AsHandle())
	if err != nil {
		return v
	}
	return bytecode.NewHandle(h)
}

// release drops one outstanding heap share for v, if v is a handle. It's a
// no-op for anything else, and for a handle that fails to resolve (nothing
// left to do).
func (vm *VM) release(v bytecode.Value) {
	if v.IsHandle() {
		_ = vm.heap.Release(v.AsHandle())
	}
}

// releaseRange releases every handle-valued stack slot in data[from:], used
// to drop a call frame's locals (including its callee and arguments slots)
// when the frame is torn down without each slot having gone through an
// explicit OpPop.
func (vm *VM) releaseRange(from int) {
	for _, v := range vm.stack.data[from:] {
		vm.release(v)
	}
}

// peek returns a value some distance from the top of the operand stack,
// without popping it.
func (vm *VM) peek(distance int) bytecode.Value {
	return vm.stack.peek(distance)
}

// run is the interpreter's dispatch loop. It runs until the frame stack
// empties (the top-level frame returned) or a runtime error is raised.
func (vm *VM) run(ctx context.Context) errs.Error {
	for vm.frame != nil {
		if vm.options.Trace {
			vm.trace()
		}

		op, err := vm.readU8(vm.frame)
		if err != nil {
			return err
		}

		switch bytecode.OpCode(op) {
		case bytecode.OpNop:
			// Nothing to do.

		case bytecode.OpUnit:
			vm.push(bytecode.NewUnit())

		case bytecode.OpTrue:
			vm.push(bytecode.NewBool(true))

		case bytecode.OpFalse:
			vm.push(bytecode.NewBool(false))

		case bytecode.OpConstant:
			v, err := vm.constantValue(vm.frame)
			if err != nil {
				return err
			}
			vm.push(v)

		case bytecode.OpPop:
			vm.release(vm.pop())

		case bytecode.OpAdd, bytecode.OpSubtract, bytecode.OpMultiply, bytecode.OpDivide:
			if err := vm.binaryArithmetic(bytecode.OpCode(op)); err != nil {
				return err
			}

		case bytecode.OpNegate:
			if err := vm.negate(); err != nil {
				return err
			}

		case bytecode.OpNot:
			v := vm.pop()
			vm.push(bytecode.NewBool(!truthy(v)))

		case bytecode.OpEqual:
			b := vm.pop()
			a := vm.pop()
			vm.push(bytecode.NewBool(bytecode.ValuesEqual(a, b)))

		case bytecode.OpGreater, bytecode.OpLess:
			if err := vm.compare(bytecode.OpCode(op)); err != nil {
				return err
			}

		case bytecode.OpGetLocal:
			index, err := vm.readUInt31(vm.frame)
			if err != nil {
				return err
			}
			vm.push(vm.retain(vm.frame.stack.at(index)))

		case bytecode.OpSetLocal:
			index, err := vm.readUInt31(vm.frame)
			if err != nil {
				return err
			}
			old := vm.frame.stack.at(index)
			vm.frame.stack.setAt(index, vm.retain(vm.peek(0)))
			vm.release(old)

		case bytecode.OpGetGlobal:
			name, err := vm.constantString(vm.frame)
			if err != nil {
				return err
			}
			v, ok := vm.globals[name]
			if !ok {
				vm.runtimeError("undefined global %q", name)
			}
			vm.push(vm.retain(v))

		case bytecode.OpDefineGlobal:
			name, err := vm.constantString(vm.frame)
			if err != nil {
				return err
			}
			vm.globals[name] = vm.pop()

		case bytecode.OpSetGlobal:
			name, err := vm.constantString(vm.frame)
			if err != nil {
				return err
			}
			old, ok := vm.globals[name]
			if !ok {
				vm.runtimeError("undefined global %q", name)
			}
			vm.globals[name] = vm.retain(vm.peek(0))
			vm.release(old)

		case bytecode.OpJump:
			offset, err := vm.readU16(vm.frame)
			if err != nil {
				return err
			}
			vm.frame.ip += offset

		case bytecode.OpJumpIfFalse:
			offset, err := vm.readU16(vm.frame)
			if err != nil {
				return err
			}
			if !truthy(vm.peek(0)) {
				vm.frame.ip += offset
			}

		case bytecode.OpLoop:
			offset, err := vm.readU16(vm.frame)
			if err != nil {
				return err
			}
			vm.frame.ip -= offset

		case bytecode.OpCall:
			argCount, err := vm.readU8(vm.frame)
			if err != nil {
				return err
			}
			if callErr := vm.call(ctx, int(argCount)); callErr != nil {
				return callErr
			}

		case bytecode.OpReturn:
			vm.doReturn()

		case bytecode.OpArray:
			count, err := vm.readUInt31(vm.frame)
			if err != nil {
				return err
			}
			if arrErr := vm.buildArray(count); arrErr != nil {
				return arrErr
			}

		case bytecode.OpClass:
			if err := vm.buildClass(vm.frame); err != nil {
				return err
			}

		case bytecode.OpInstance:
			if err := vm.buildInstance(); err != nil {
				return err
			}

		case bytecode.OpGetField:
			if err := vm.getField(vm.frame); err != nil {
				return err
			}

		case bytecode.OpSetField:
			if err := vm.setField(vm.frame); err != nil {
				return err
			}

		case bytecode.OpBuiltin:
			code, err := vm.readU8(vm.frame)
			if err != nil {
				return err
			}
			if builtinErr := vm.callBuiltin(ctx, bytecode.BuiltinCode(code)); builtinErr != nil {
				return builtinErr
			}

		default:
			vm.runtimeError("unexpected opcode: %v", op)
		}
	}

	return nil
}

// constantValue reads a constant-pool index from f and materializes it into
// a runtime Value, allocating a heap object for String constants.
func (vm *VM) constantValue(f *callFrame) (bytecode.Value, errs.Error) {
	c, err := vm.readConstant(f)
	if err != nil {
		return bytecode.Value{}, err
	}
	return vm.materializeConstant(c)
}

// constantString reads a constant-pool index from f, expecting a
// ConstString, and returns its string directly (used for global and field
// names).
func (vm *VM) constantString(f *callFrame) (string, errs.Error) {
	c, err := vm.readConstant(f)
	if err != nil {
		return "", err
	}
	if c.Kind != bytecode.ConstString {
		return "", errs.NewFrame("expected a string constant, got kind %v", c.Kind)
	}
	return c.Str, nil
}

// materializeConstant turns a compile-time Constant into a runtime Value,
// allocating a heap object when the constant is reference-like.
func (vm *VM) materializeConstant(c bytecode.Constant) (bytecode.Value, errs.Error) {
	switch c.Kind {
	case bytecode.ConstBool:
		return bytecode.NewBool(c.Bool), nil
	case bytecode.ConstInt:
		return bytecode.NewInt(c.Int), nil
	case bytecode.ConstReal:
		return bytecode.NewReal(c.Real), nil
	case bytecode.ConstString:
		h, err := vm.heap.Alloc(&bytecode.String{Text: c.Str})
		if err != nil {
			return bytecode.Value{}, errs.NewHeap("materializing string constant: %v", err)
		}
		return bytecode.NewHandle(h), nil
	case bytecode.ConstFunction, bytecode.ConstFunctionExt:
		v, ok := vm.globals[c.FuncName]
		if !ok {
			return bytecode.Value{}, errs.NewICE("function constant %q was never loaded into globals", c.FuncName)
		}
		return vm.retain(v), nil
	default:
		return bytecode.Value{}, errs.NewICE("unexpected constant kind: %v", c.Kind)
	}
}

// truthy reports whether v is true-ish: booleans by their value, unit is
// false, everything else is true (only Not and the control-flow opcodes care about
// truthiness, and only boolean conditions are expected there).
func truthy(v bytecode.Value) bool {
	if v.IsBool() {
		return v.AsBool()
	}
	return !v.IsUnit()
}

// trace prints the operand stack and the next instruction to stdout, when
// Options.Trace is set.
func (vm *VM) trace() {
	var sb strings.Builder
	sb.WriteString("Stack: ")
	for i := 0; i < vm.stack.size(); i++ {
		fmt.Fprintf(&sb, "[ %v ]", vm.stack.at(i))
	}
	fmt.Println(sb.String())

	if vm.program != nil {
		fn, err := vm.function(vm.frame)
		if err == nil {
			vm.program.DisassembleInstruction(fn.Chunk, os.Stdout, vm.frame.ip, 0)
		}
	}
}

// runtimeError stops execution and panics with a descriptive errs.Runtime,
// including a stack trace built from the current frame stack. The panic is
// caught by Main's deferred recover.
func (vm *VM) runtimeError(format string, a ...interface{}) {
	var sb strings.Builder
	fmt.Fprintf(&sb, format, a...)
	sb.WriteRune('\n')

	for i := len(vm.frames) - 1; i >= 0; i-- {
		f := vm.frames[i]
		fn, err := vm.function(f)
		name := "?"
		if err == nil {
			name = fn.Name
		}
		fmt.Fprintf(&sb, "  in %v (ip=%v)\n", name, f.ip)
	}

	panic(errs.NewRuntime(sb.String()))
}
