/******************************************************************************\
* Pararuna                                                                     *
*                                                                               *
* Copyright 2020-2023 Leandro Motta Barros                                     *
* Licensed under the MIT license (see LICENSE.txt for details)                 *
\******************************************************************************/

package vm

import (
	"context"

	"github.com/stackedboxes/pararuna/pkg/bytecode"
	"github.com/stackedboxes/pararuna/pkg/errs"
	"github.com/stackedboxes/pararuna/pkg/executor"
)

// Built-in function codes: the one-byte operand of OpBuiltin. This table is
// the VM's own, separate from whatever opcode numbering a source-level
// compiler might use internally -- only the assembler and this file need to
// agree on it.
const (
	BuiltinPrint            bytecode.BuiltinCode = 1
	BuiltinWaitUntilStarted bytecode.BuiltinCode = 2
	BuiltinWaitUntilDone    bytecode.BuiltinCode = 3
)

// servicePropIdentifier and servicePropLocation name the properties a
// Service instance carries. "identifier" is the property serviceJobID reads
// back out for the wait_until_started and wait_until_done builtins.
const (
	servicePropIdentifier = "identifier"
	servicePropLocation   = "location"
)

// newService allocates the Instance that represents a dispatched job: no
// backing Class (there is no user-defined "Service" type, it's a VM
// built-in), just the job's identity as properties.
func (vm *VM) newService(h executor.JobHandle) (bytecode.Value, errs.Error) {
	jobID, err := vm.heap.Alloc(&bytecode.String{Text: h.JobID})
	if err != nil {
		return bytecode.Value{}, errs.NewHeap("allocating service job id: %v", err)
	}
	location, err := vm.heap.Alloc(&bytecode.String{Text: h.Location})
	if err != nil {
		return bytecode.Value{}, errs.NewHeap("allocating service location: %v", err)
	}

	inst := &bytecode.Instance{
		Properties: map[string]bytecode.Value{
			servicePropIdentifier: bytecode.NewHandle(jobID),
			servicePropLocation:   bytecode.NewHandle(location),
		},
	}
	instHandle, err := vm.heap.Alloc(inst)
	if err != nil {
		return bytecode.Value{}, errs.NewHeap("allocating service instance: %v", err)
	}
	return bytecode.NewHandle(instHandle), nil
}

// serviceJobID pops a Value off the stack expecting a Service instance, and
// returns its job id.
func (vm *VM) serviceJobID() (string, errs.Error) {
	v := vm.pop()
	if !v.IsHandle() {
		vm.runtimeError("expected a service handle, got %v", v)
	}
	obj, err := vm.heap.Get(v.AsHandle())
	if err != nil {
		return "", errs.NewFrame("illegal service handle: %v", err)
	}
	inst, ok := (*obj).(*bytecode.Instance)
	if !ok {
		vm.runtimeError("expected a service handle, got %v", (*obj).TypeName())
	}

	idVal, ok := inst.Properties[servicePropIdentifier]
	if !ok {
		vm.runtimeError("value is not a service: missing %q property", servicePropIdentifier)
	}
	jobID, ok := vm.asString(idVal)
	if !ok {
		vm.runtimeError("service %q property is not a string", servicePropIdentifier)
	}
	vm.release(v)
	return jobID, nil
}

// callBuiltin dispatches a one-byte built-in function code, consuming its
// arguments and pushing its result (or unit) onto the operand stack.
func (vm *VM) callBuiltin(ctx context.Context, code bytecode.BuiltinCode) errs.Error {
	switch code {
	case BuiltinPrint:
		v := vm.pop()
		text := vm.render(v)
		vm.release(v)
		if err := vm.executor.Stdout(text); err != nil {
			return errs.NewBuiltin("stdout: %v", err)
		}
		vm.push(bytecode.NewUnit())
		return nil

	case BuiltinWaitUntilStarted:
		jobID, err := vm.serviceJobID()
		if err != nil {
			return err
		}
		if waitErr := vm.executor.WaitUntil(ctx, jobID, executor.StatusStarted); waitErr != nil {
			return errs.NewBuiltin("wait_until_started(%q): %v", jobID, waitErr)
		}
		vm.push(bytecode.NewUnit())
		return nil

	case BuiltinWaitUntilDone:
		jobID, err := vm.serviceJobID()
		if err != nil {
			return err
		}
		if waitErr := vm.executor.WaitUntil(ctx, jobID, executor.StatusFinished); waitErr != nil {
			return errs.NewBuiltin("wait_until_done(%q): %v", jobID, waitErr)
		}
		vm.push(bytecode.NewUnit())
		return nil

	default:
		return errs.NewBuiltin("unknown built-in function code: %v", code)
	}
}
