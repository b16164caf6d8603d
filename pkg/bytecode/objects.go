/******************************************************************************\
* Pararuna                                                                     *
*                                                                               *
* Copyright 2020-2023 Leandro Motta Barros                                     *
* Licensed under the MIT license (see LICENSE.txt for details)                 *
\******************************************************************************/

package bytecode

import (
	"fmt"

	"github.com/stackedboxes/pararuna/pkg/errs"
	"github.com/stackedboxes/pararuna/pkg/heap"
)

// Object is anything that lives on the heap rather than directly on the
// operand stack. Every Object carries a derivable type name, used by the
// Array homogeneity check and by diagnostics.
type Object interface {
	// TypeName returns this object's type name.
	TypeName() string
}

//
// Array
//

// Array is a heap-allocated, homogeneous array object.
type Array struct {
	// ElementType is the type name shared by every element, derived at
	// construction time. An empty Array has ElementType "unit".
	ElementType string

	// Elements holds the array's values.
	Elements []Value
}

// NewArray builds an Array out of elements, deriving (and checking) its
// element type. Returns an Object error if the elements don't all share the
// same type.
func NewArray(elements []Value, h *heap.Heap[Object]) (*Array, error) {
	elementType := "unit"
	for i, elem := range elements {
		t := elem.TypeName(h)
		if i == 0 {
			elementType = t
			continue
		}
		if t != elementType {
			return nil, errs.NewObject(
				"could not resolve type of array: conflicting types '%v' and '%v'", elementType, t)
		}
	}

	return &Array{ElementType: elementType, Elements: elements}, nil
}

// TypeName fulfills the Object interface.
func (a *Array) TypeName() string {
	return fmt.Sprintf("Array<%v>", a.ElementType)
}

//
// Class
//

// Class defines a user-level type: a name plus a table of methods.
type Class struct {
	// Name is the class's name.
	Name string

	// Methods maps a method name to the slot (a Value wrapping a heap handle
	// to a Function) implementing it.
	Methods map[string]Value
}

// TypeName fulfills the Object interface.
func (c *Class) TypeName() string {
	return fmt.Sprintf("Class<%v>", c.Name)
}

//
// Function
//

// Function is a local function: one whose body runs directly on the VM,
// without suspending to the executor.
type Function struct {
	// Name is the function's name, used for diagnostics.
	Name string

	// Arity is the number of arguments this function expects.
	Arity int

	// Chunk holds the function's bytecode.
	Chunk *Chunk
}

// TypeName fulfills the Object interface.
func (f *Function) TypeName() string {
	return fmt.Sprintf("Function<%v>", f.Name)
}

//
// FunctionExt
//

// FunctionExt is an external function: calling it suspends the VM and hands
// a job descriptor to the executor instead of pushing a new call frame.
type FunctionExt struct {
	// Name is the function's name.
	Name string

	// Kind identifies which external runtime should execute this function
	// (e.g. a container image reference).
	Kind string

	// Arity is the number of arguments this function expects.
	Arity int

	// Descriptor carries whatever opaque, executor-specific data is needed
	// to build a job out of a call to this function.
	Descriptor string
}

// TypeName fulfills the Object interface.
func (f *FunctionExt) TypeName() string {
	return fmt.Sprintf("FunctionExt<%v; %v>", f.Name, f.Kind)
}

//
// Instance
//

// Instance is an instantiated Class: a handle to its class plus a table of
// property values.
type Instance struct {
	// Class is a handle to this instance's class.
	Class heap.Handle

	// Properties maps a property name to its current value.
	Properties map[string]Value
}

// TypeName fulfills the Object interface. It has no heap access, so it names
// the class by its handle rather than resolving the class's name.
func (i *Instance) TypeName() string {
	return fmt.Sprintf("Instance<%v>", i.Class)
}

//
// String
//

// String is a heap-allocated string object.
type String struct {
	Text string
}

// TypeName fulfills the Object interface.
func (s *String) TypeName() string {
	return "string"
}
