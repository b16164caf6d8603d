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
	"github.com/stackedboxes/pararuna/pkg/romutil"
)

// Stack implements the VM's operand stack: a stack of bytecode.Values.
type Stack struct {
	data []bytecode.Value
}

// size returns the number of elements in the stack.
func (s *Stack) size() int {
	return len(s.data)
}

// top returns the value at the top of the stack, without popping it. Panics
// if the stack is empty.
func (s *Stack) top() bytecode.Value {
	return s.data[len(s.data)-1]
}

// push pushes a new value into the stack.
func (s *Stack) push(v bytecode.Value) {
	s.data = append(s.data, v)
}

// pop pops a value from the top of the stack and returns it. Panics on
// underflow.
func (s *Stack) pop() bytecode.Value {
	top := s.top()
	s.data = s.data[:len(s.data)-1]
	return top
}

// popN pops n values from the top of the stack and discards them. Panics on
// underflow.
func (s *Stack) popN(n int) {
	s.data = s.data[:len(s.data)-n]
}

// peek returns a value on the stack that is a given distance from the top.
// Passing 0 means "give me the value on the top of the stack". The stack is
// not changed at all.
func (s *Stack) peek(distance int) bytecode.Value {
	return s.data[len(s.data)-1-distance]
}

// at returns the value at a given index of the stack, treating it as a plain
// array. Panics if index is out-of-bounds.
func (s *Stack) at(index int) bytecode.Value {
	return s.data[index]
}

// setAt sets the value at a given index of the stack, treating it as a plain
// array. Panics if index is out-of-bounds.
func (s *Stack) setAt(index int, value bytecode.Value) {
	s.data[index] = value
}

// createView creates a read/write view into the Stack, so that the view
// looks like a new stack on top of the backing stack, sharing offset elements
// with it. Passing 0 means the view starts empty; passing 1 means it starts
// with the single element that was on top of the backing stack (the callee,
// for a fresh call frame).
func (s *Stack) createView(offset int) *StackView {
	return &StackView{
		stack: s,
		base:  s.size() - offset,
	}
}

// Serialize serializes the Stack to the given io.Writer.
func (s *Stack) Serialize(w io.Writer) error {
	if err := romutil.SerializeU32(w, uint32(len(s.data))); err != nil {
		return err
	}
	for _, v := range s.data {
		if err := v.Serialize(w); err != nil {
			return err
		}
	}
	return nil
}

// DeserializeStack deserializes a Stack from the given io.Reader.
func DeserializeStack(r io.Reader) (*Stack, error) {
	length, err := romutil.DeserializeU32(r)
	if err != nil {
		return nil, err
	}

	values := make([]bytecode.Value, length)
	for i := uint32(0); i < length; i++ {
		v, err := bytecode.DeserializeValue(r)
		if err != nil {
			return nil, err
		}
		values[i] = v
	}
	return &Stack{data: values}, nil
}

// StackView provides a read/write view into a Stack: it looks just like a
// Stack, but addresses data owned by a real Stack, offset by some base. It's
// assumed that all accesses to a view happen while it is the topmost view
// created on the backing stack -- exactly how call frames use it.
type StackView struct {
	stack *Stack
	base  int
}

// size returns the number of elements visible through the view.
func (s *StackView) size() int {
	return s.stack.size() - s.base
}

// push pushes a new value into the view (and so into the backing stack).
func (s *StackView) push(v bytecode.Value) {
	s.stack.push(v)
}

// pop pops a value from the top of the view.
func (s *StackView) pop() bytecode.Value {
	return s.stack.pop()
}

// peek returns a value a given distance from the top of the view.
func (s *StackView) peek(distance int) bytecode.Value {
	return s.stack.peek(distance)
}

// at returns the value at a given index of the view, i.e., as if the view
// were a freestanding stack starting at its base.
func (s *StackView) at(index int) bytecode.Value {
	return s.stack.at(s.base + index)
}

// setAt sets the value at a given index of the view.
func (s *StackView) setAt(index int, value bytecode.Value) {
	s.stack.setAt(s.base+index, value)
}
