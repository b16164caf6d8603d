/******************************************************************************\
* Pararuna                                                                     *
*                                                                               *
* Copyright 2020-2023 Leandro Motta Barros                                     *
* Licensed under the MIT license (see LICENSE.txt for details)                 *
\******************************************************************************/

package bytecode

import "fmt"

// MaxConstants is the maximum number of constants a Program can hold. This is
// 2^31: constant indices are encoded as UInt31 operands, so they run from 0
// to 2^31-1.
const MaxConstants = 2_147_483_648

// ConstantKind identifies which field of a Constant is meaningful.
type ConstantKind int

const (
	ConstBool ConstantKind = iota
	ConstInt
	ConstReal
	ConstString
	ConstFunction
	ConstFunctionExt
)

// Constant is a compile-time constant-pool entry. Unlike Value, a Constant
// may describe a Function or a String: values the runtime only represents as
// heap handles, but which the loader must first materialize onto a VM's heap
// before any handle can exist. OpConstant operands index into a Program's
// Constants slice; loading a program materializes every ConstFunction /
// ConstFunctionExt constant onto the heap exactly once, while a ConstString
// gets a fresh heap String each time an OpConstant reads it.
type Constant struct {
	Kind ConstantKind

	Bool bool
	Int  int64
	Real float64
	Str  string

	// ChunkIndex, FuncName and FuncArity are used by ConstFunction.
	ChunkIndex int
	FuncName   string
	FuncArity  int

	// FuncExtKind and FuncExtDescriptor are used by ConstFunctionExt, on top
	// of FuncName/FuncArity above.
	FuncExtKind       string
	FuncExtDescriptor string
}

// NewBoolConstant creates a boolean Constant.
func NewBoolConstant(b bool) Constant {
	return Constant{Kind: ConstBool, Bool: b}
}

// NewIntConstant creates an integer Constant.
func NewIntConstant(i int64) Constant {
	return Constant{Kind: ConstInt, Int: i}
}

// NewRealConstant creates a real Constant.
func NewRealConstant(f float64) Constant {
	return Constant{Kind: ConstReal, Real: f}
}

// NewStringConstant creates a string Constant.
func NewStringConstant(s string) Constant {
	return Constant{Kind: ConstString, Str: s}
}

// NewFunctionConstant creates a Constant referring to a local function whose
// bytecode lives at chunkIndex in the owning Program.
func NewFunctionConstant(name string, arity int, chunkIndex int) Constant {
	return Constant{Kind: ConstFunction, FuncName: name, FuncArity: arity, ChunkIndex: chunkIndex}
}

// NewFunctionExtConstant creates a Constant referring to an external
// function.
func NewFunctionExtConstant(name, kind string, arity int, descriptor string) Constant {
	return Constant{
		Kind:              ConstFunctionExt,
		FuncName:          name,
		FuncArity:         arity,
		FuncExtKind:       kind,
		FuncExtDescriptor: descriptor,
	}
}

// Equal checks if c and other describe the same constant.
func (c Constant) Equal(other Constant) bool {
	if c.Kind != other.Kind {
		return false
	}
	switch c.Kind {
	case ConstBool:
		return c.Bool == other.Bool
	case ConstInt:
		return c.Int == other.Int
	case ConstReal:
		return c.Real == other.Real
	case ConstString:
		return c.Str == other.Str
	case ConstFunction:
		return c.ChunkIndex == other.ChunkIndex && c.FuncName == other.FuncName && c.FuncArity == other.FuncArity
	case ConstFunctionExt:
		return c.FuncName == other.FuncName && c.FuncArity == other.FuncArity &&
			c.FuncExtKind == other.FuncExtKind && c.FuncExtDescriptor == other.FuncExtDescriptor
	default:
		panic(fmt.Sprintf("unexpected constant kind: %v", c.Kind))
	}
}

// DebugString renders a Constant for disassembly.
func (c Constant) DebugString() string {
	switch c.Kind {
	case ConstBool:
		return fmt.Sprintf("%v", c.Bool)
	case ConstInt:
		return fmt.Sprintf("%v", c.Int)
	case ConstReal:
		return fmt.Sprintf("%v", c.Real)
	case ConstString:
		return fmt.Sprintf("%q", c.Str)
	case ConstFunction:
		return fmt.Sprintf("<function %v/%v@%v>", c.FuncName, c.FuncArity, c.ChunkIndex)
	case ConstFunctionExt:
		return fmt.Sprintf("<external function %v/%v; %v>", c.FuncName, c.FuncArity, c.FuncExtKind)
	default:
		return "<unknown constant>"
	}
}

// Program is a compiled, binary Pararuna program: every chunk of bytecode,
// the constant pool they share, and the entry point.
type Program struct {
	// Chunks holds one Chunk per local function in the program.
	Chunks []*Chunk

	// FirstChunk indexes the element in Chunks where execution starts, i.e.,
	// the program's "main" entry point.
	FirstChunk int

	// Constants holds every constant value used across all Chunks.
	Constants []Constant

	// Debug carries debug information matching this Program, if any.
	Debug *DebugInfo
}

// SearchConstant searches the constant pool for an entry equal to value,
// returning its index, or a negative number if not found.
func (p *Program) SearchConstant(value Constant) int {
	for i, v := range p.Constants {
		if value.Equal(v) {
			return i
		}
	}
	return -1
}

// AddConstant adds a constant to the Program, returning the index of the new
// entry.
func (p *Program) AddConstant(value Constant) int {
	p.Constants = append(p.Constants, value)
	return len(p.Constants) - 1
}
