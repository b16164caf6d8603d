/******************************************************************************\
* Pararuna                                                                     *
*                                                                               *
* Copyright 2020-2023 Leandro Motta Barros                                     *
* Licensed under the MIT license (see LICENSE.txt for details)                 *
\******************************************************************************/

package bytecode

import (
	"encoding/binary"
	"fmt"
	"math"
)

// A Chunk is a chunk of bytecode: the immutable body of a Function, once
// frozen. Lines holds, for each byte in Code, the source line that generated
// it -- one entry per byte is wasteful but simple, and is only paid for code
// that was actually compiled from source (the assembler can leave it empty).
type Chunk struct {
	Code  []uint8
	Lines []int
}

// EncodeUInt31 encodes an unsigned 31-bit integer into the four first bytes
// of bytecode. Panics if v does not fit into 31 bits.
func EncodeUInt31(bytecode []byte, v int) {
	if v < 0 || v > math.MaxInt32 {
		panic("value does not fit into 31 bits")
	}
	binary.LittleEndian.PutUint32(bytecode, uint32(v))
}

// DecodeUInt31 decodes the first four bytes in bytecode into an unsigned
// 31-bit integer. Panics if the value read does not fit into 31 bits.
func DecodeUInt31(bytecode []byte) int {
	v := binary.LittleEndian.Uint32(bytecode)
	if v > math.MaxInt32 {
		panic("value does not fit into 31 bits")
	}
	return int(v)
}

// encodeUInt16 encodes an unsigned 16-bit integer into the first two bytes of
// bytecode, used for jump offsets. Big-endian, matching the call frame's
// read_u16 primitive.
func encodeUInt16(bytecode []byte, v int) {
	if v < 0 || v > math.MaxUint16 {
		panic("value does not fit into 16 bits")
	}
	binary.BigEndian.PutUint16(bytecode, uint16(v))
}

// decodeUInt16 decodes the first two bytes in bytecode into an unsigned
// 16-bit integer. Big-endian, matching the call frame's read_u16 primitive.
func decodeUInt16(bytecode []byte) int {
	return int(binary.BigEndian.Uint16(bytecode))
}

// FunctionBuilder incrementally assembles a Function's bytecode. Freezing it
// produces an immutable Function suitable for the heap; Unfreeze recovers a
// builder from a previously frozen Function. Freeze and Unfreeze must
// round-trip: Freeze(Unfreeze(f)) is equal to f.
type FunctionBuilder struct {
	Name  string
	Arity int
	code  []uint8
	lines []int
}

// NewFunctionBuilder creates a new, empty FunctionBuilder for a function with
// the given name and arity.
func NewFunctionBuilder(name string, arity int) *FunctionBuilder {
	return &FunctionBuilder{Name: name, Arity: arity}
}

// Len returns the number of bytes emitted so far.
func (fb *FunctionBuilder) Len() int {
	return len(fb.code)
}

// EmitByte appends a single byte, attributing it to the given source line.
func (fb *FunctionBuilder) EmitByte(b byte, line int) {
	fb.code = append(fb.code, b)
	fb.lines = append(fb.lines, line)
}

// EmitOpCode appends an opcode byte.
func (fb *FunctionBuilder) EmitOpCode(op OpCode, line int) {
	fb.EmitByte(byte(op), line)
}

// EmitUInt31 appends a four-byte little-endian operand, as used by
// OpConstant, OpGetGlobal and friends.
func (fb *FunctionBuilder) EmitUInt31(v int, line int) {
	buf := make([]byte, 4)
	EncodeUInt31(buf, v)
	for _, b := range buf {
		fb.EmitByte(b, line)
	}
}

// EmitJump appends a jump opcode followed by a two-byte placeholder operand,
// and returns the offset of the placeholder so it can later be fixed up with
// PatchJump.
func (fb *FunctionBuilder) EmitJump(op OpCode, line int) int {
	fb.EmitOpCode(op, line)
	fb.EmitByte(0xFF, line)
	fb.EmitByte(0xFF, line)
	return fb.Len() - 2
}

// PatchJump fixes up the two-byte operand at offset (as returned by
// EmitJump) so that it jumps to the current end of the code.
func (fb *FunctionBuilder) PatchJump(offset int) error {
	jump := fb.Len() - offset - 2
	if jump < 0 || jump > math.MaxUint16 {
		return fmt.Errorf("jump offset too large to encode in 16 bits: %v", jump)
	}
	buf := make([]byte, 2)
	encodeUInt16(buf, jump)
	fb.code[offset] = buf[0]
	fb.code[offset+1] = buf[1]
	return nil
}

// EmitLoop appends a Loop instruction that jumps back to loopStart.
func (fb *FunctionBuilder) EmitLoop(loopStart int, line int) error {
	fb.EmitOpCode(OpLoop, line)
	offset := fb.Len() - loopStart + 2
	if offset < 0 || offset > math.MaxUint16 {
		return fmt.Errorf("loop body too large to encode in 16 bits: %v", offset)
	}
	buf := make([]byte, 2)
	encodeUInt16(buf, offset)
	fb.EmitByte(buf[0], line)
	fb.EmitByte(buf[1], line)
	return nil
}

// Freeze converts the builder into an immutable Function.
func (fb *FunctionBuilder) Freeze() *Function {
	code := make([]uint8, len(fb.code))
	copy(code, fb.code)
	lines := make([]int, len(fb.lines))
	copy(lines, fb.lines)

	return &Function{
		Name:  fb.Name,
		Arity: fb.Arity,
		Chunk: &Chunk{Code: code, Lines: lines},
	}
}

// Unfreeze recovers a mutable FunctionBuilder from a frozen Function. Used
// when replaying a captured session's state into a fresh VM.
func (f *Function) Unfreeze() *FunctionBuilder {
	code := make([]uint8, len(f.Chunk.Code))
	copy(code, f.Chunk.Code)
	lines := make([]int, len(f.Chunk.Lines))
	copy(lines, f.Chunk.Lines)

	return &FunctionBuilder{
		Name:  f.Name,
		Arity: f.Arity,
		code:  code,
		lines: lines,
	}
}
