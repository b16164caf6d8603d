/******************************************************************************\
* Pararuna                                                                     *
*                                                                               *
* Copyright 2020-2023 Leandro Motta Barros                                     *
* Licensed under the MIT license (see LICENSE.txt for details)                 *
\******************************************************************************/

package bytecode

// OpCode is an opcode in the Pararuna Virtual Machine.
type OpCode uint8

const (
	OpNop OpCode = iota

	// Constants and literals.
	OpConstant
	OpUnit
	OpTrue
	OpFalse

	// Stack management.
	OpPop

	// Arithmetic and comparison. All operate on the top one or two slots of
	// the operand stack.
	OpAdd
	OpSubtract
	OpMultiply
	OpDivide
	OpNegate
	OpNot
	OpEqual
	OpGreater
	OpLess

	// Locals and globals.
	OpGetLocal
	OpSetLocal
	OpGetGlobal
	OpSetGlobal
	OpDefineGlobal

	// Control flow. Jump offsets are 16-bit and relative to the instruction
	// following the jump.
	OpJump
	OpJumpIfFalse
	OpLoop

	// Calls. OpCall pops arity+1 slots (the callee plus its arguments) and
	// either pushes a new frame, for a local Function, or suspends to the
	// executor, for a FunctionExt.
	OpCall
	OpReturn

	// Composite values.
	OpArray
	OpClass
	OpInstance
	OpGetField
	OpSetField

	// Built-in functions, dispatched by a one-byte code.
	OpBuiltin
)

// opcodeNames gives a human-readable name for every OpCode, used by the
// disassembler.
var opcodeNames = map[OpCode]string{
	OpNop:           "NOP",
	OpConstant:      "CONSTANT",
	OpUnit:          "UNIT",
	OpTrue:          "TRUE",
	OpFalse:         "FALSE",
	OpPop:           "POP",
	OpAdd:           "ADD",
	OpSubtract:      "SUBTRACT",
	OpMultiply:      "MULTIPLY",
	OpDivide:        "DIVIDE",
	OpNegate:        "NEGATE",
	OpNot:           "NOT",
	OpEqual:         "EQUAL",
	OpGreater:       "GREATER",
	OpLess:          "LESS",
	OpGetLocal:      "GET_LOCAL",
	OpSetLocal:      "SET_LOCAL",
	OpGetGlobal:     "GET_GLOBAL",
	OpSetGlobal:     "SET_GLOBAL",
	OpDefineGlobal:  "DEFINE_GLOBAL",
	OpJump:          "JUMP",
	OpJumpIfFalse:   "JUMP_IF_FALSE",
	OpLoop:          "LOOP",
	OpCall:          "CALL",
	OpReturn:        "RETURN",
	OpArray:         "ARRAY",
	OpClass:         "CLASS",
	OpInstance:      "INSTANCE",
	OpGetField:      "GET_FIELD",
	OpSetField:      "SET_FIELD",
	OpBuiltin:       "BUILTIN",
}

// String gives a human-readable name for the OpCode. Fulfills the Stringer
// interface.
func (op OpCode) String() string {
	if name, ok := opcodeNames[op]; ok {
		return name
	}
	return "UNKNOWN"
}
