/******************************************************************************\
* Pararuna                                                                     *
*                                                                               *
* Copyright 2020-2023 Leandro Motta Barros                                     *
* Licensed under the MIT license (see LICENSE.txt for details)                 *
\******************************************************************************/

package vm

import (
	"context"
	"testing"

	"github.com/stackedboxes/pararuna/pkg/bytecode"
	"github.com/stackedboxes/pararuna/pkg/executor"
)

// buildArithmeticProgram assembles `main() { return 2 + 3 * 4 }`.
func buildArithmeticProgram() *bytecode.Program {
	program := &bytecode.Program{}

	two := program.AddConstant(bytecode.NewIntConstant(2))
	three := program.AddConstant(bytecode.NewIntConstant(3))
	four := program.AddConstant(bytecode.NewIntConstant(4))

	fb := bytecode.NewFunctionBuilder("main", 0)
	fb.EmitOpCode(bytecode.OpConstant, 1)
	fb.EmitUInt31(two, 1)
	fb.EmitOpCode(bytecode.OpConstant, 1)
	fb.EmitUInt31(three, 1)
	fb.EmitOpCode(bytecode.OpConstant, 1)
	fb.EmitUInt31(four, 1)
	fb.EmitOpCode(bytecode.OpMultiply, 1)
	fb.EmitOpCode(bytecode.OpAdd, 1)
	fb.EmitOpCode(bytecode.OpReturn, 1)

	chunkIndex := len(program.Chunks)
	program.Chunks = append(program.Chunks, fb.Freeze().Chunk)
	program.FirstChunk = chunkIndex
	program.AddConstant(bytecode.NewFunctionConstant("main", 0, chunkIndex))

	return program
}

func TestMainArithmetic(t *testing.T) {
	program := buildArithmeticProgram()

	v := New(executor.NewMemory(), nil, DefaultOptions())
	if err := v.Load(program); err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	entry, err := v.EntryPoint()
	if err != nil {
		t.Fatalf("EntryPoint failed: %v", err)
	}

	result, err := v.Main(context.Background(), entry)
	if err != nil {
		t.Fatalf("Main failed: %v", err)
	}
	if !result.IsInt() || result.AsInt() != 14 {
		t.Fatalf("expected 14, got %v", result)
	}
}

// buildCallProgram assembles:
//
//	func addOne(x) { return x + 1 }
//	func main() { return addOne(41) }
func buildCallProgram() *bytecode.Program {
	program := &bytecode.Program{}

	addOneFB := bytecode.NewFunctionBuilder("addOne", 1)
	one := program.AddConstant(bytecode.NewIntConstant(1))
	addOneFB.EmitOpCode(bytecode.OpGetLocal, 1)
	addOneFB.EmitUInt31(1, 1)
	addOneFB.EmitOpCode(bytecode.OpConstant, 1)
	addOneFB.EmitUInt31(one, 1)
	addOneFB.EmitOpCode(bytecode.OpAdd, 1)
	addOneFB.EmitOpCode(bytecode.OpReturn, 1)
	addOneChunk := len(program.Chunks)
	program.Chunks = append(program.Chunks, addOneFB.Freeze().Chunk)
	addOneConst := program.AddConstant(bytecode.NewFunctionConstant("addOne", 1, addOneChunk))

	fortyOne := program.AddConstant(bytecode.NewIntConstant(41))

	mainFB := bytecode.NewFunctionBuilder("main", 0)
	mainFB.EmitOpCode(bytecode.OpConstant, 1)
	mainFB.EmitUInt31(addOneConst, 1)
	mainFB.EmitOpCode(bytecode.OpConstant, 1)
	mainFB.EmitUInt31(fortyOne, 1)
	mainFB.EmitOpCode(bytecode.OpCall, 1)
	mainFB.EmitByte(1, 1)
	mainFB.EmitOpCode(bytecode.OpReturn, 1)
	mainChunk := len(program.Chunks)
	program.Chunks = append(program.Chunks, mainFB.Freeze().Chunk)
	program.FirstChunk = mainChunk
	program.AddConstant(bytecode.NewFunctionConstant("main", 0, mainChunk))

	return program
}

func TestMainLocalCall(t *testing.T) {
	program := buildCallProgram()

	v := New(executor.NewMemory(), nil, DefaultOptions())
	if err := v.Load(program); err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	entry, err := v.EntryPoint()
	if err != nil {
		t.Fatalf("EntryPoint failed: %v", err)
	}

	result, err := v.Main(context.Background(), entry)
	if err != nil {
		t.Fatalf("Main failed: %v", err)
	}
	if !result.IsInt() || result.AsInt() != 42 {
		t.Fatalf("expected 42, got %v", result)
	}
}

// buildExternalCallProgram assembles a program with one external function
// and a main that calls it, then waits for it to finish.
func buildExternalCallProgram() *bytecode.Program {
	program := &bytecode.Program{}

	extConst := program.AddConstant(bytecode.NewFunctionExtConstant("render", "container:renderer", 1, "image:renderer:latest"))
	arg := program.AddConstant(bytecode.NewIntConstant(7))

	mainFB := bytecode.NewFunctionBuilder("main", 0)
	mainFB.EmitOpCode(bytecode.OpConstant, 1)
	mainFB.EmitUInt31(extConst, 1)
	mainFB.EmitOpCode(bytecode.OpConstant, 1)
	mainFB.EmitUInt31(arg, 1)
	mainFB.EmitOpCode(bytecode.OpCall, 1)
	mainFB.EmitByte(1, 1)
	mainFB.EmitOpCode(bytecode.OpBuiltin, 1)
	mainFB.EmitByte(byte(BuiltinWaitUntilDone), 1)
	mainFB.EmitOpCode(bytecode.OpReturn, 1)
	mainChunk := len(program.Chunks)
	program.Chunks = append(program.Chunks, mainFB.Freeze().Chunk)
	program.FirstChunk = mainChunk
	program.AddConstant(bytecode.NewFunctionConstant("main", 0, mainChunk))

	return program
}

func TestMainExternalCallAndWait(t *testing.T) {
	program := buildExternalCallProgram()

	v := New(executor.NewMemory(), nil, DefaultOptions())
	if err := v.Load(program); err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	entry, err := v.EntryPoint()
	if err != nil {
		t.Fatalf("EntryPoint failed: %v", err)
	}

	if _, err := v.Main(context.Background(), entry); err != nil {
		t.Fatalf("Main failed: %v", err)
	}
}

func TestCaptureAndRestoreStateRoundTrip(t *testing.T) {
	program := buildArithmeticProgram()

	v := New(executor.NewMemory(), nil, DefaultOptions())
	if err := v.Load(program); err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	data, err := v.CaptureState()
	if err != nil {
		t.Fatalf("CaptureState failed: %v", err)
	}

	restored, err := NewWithState(executor.NewMemory(), nil, program, DefaultOptions(), data)
	if err != nil {
		t.Fatalf("NewWithState failed: %v", err)
	}

	entry, err := restored.EntryPoint()
	if err != nil {
		t.Fatalf("EntryPoint on restored VM failed: %v", err)
	}
	result, err := restored.Main(context.Background(), entry)
	if err != nil {
		t.Fatalf("Main on restored VM failed: %v", err)
	}
	if !result.IsInt() || result.AsInt() != 14 {
		t.Fatalf("expected 14, got %v", result)
	}
}

func TestMainRuntimeErrorOnTypeMismatch(t *testing.T) {
	program := &bytecode.Program{}
	trueConst := program.AddConstant(bytecode.NewBoolConstant(true))
	oneConst := program.AddConstant(bytecode.NewIntConstant(1))

	fb := bytecode.NewFunctionBuilder("main", 0)
	fb.EmitOpCode(bytecode.OpConstant, 1)
	fb.EmitUInt31(trueConst, 1)
	fb.EmitOpCode(bytecode.OpConstant, 1)
	fb.EmitUInt31(oneConst, 1)
	fb.EmitOpCode(bytecode.OpAdd, 1)
	fb.EmitOpCode(bytecode.OpReturn, 1)
	chunkIndex := len(program.Chunks)
	program.Chunks = append(program.Chunks, fb.Freeze().Chunk)
	program.FirstChunk = chunkIndex
	program.AddConstant(bytecode.NewFunctionConstant("main", 0, chunkIndex))

	v := New(executor.NewMemory(), nil, DefaultOptions())
	if err := v.Load(program); err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	entry, err := v.EntryPoint()
	if err != nil {
		t.Fatalf("EntryPoint failed: %v", err)
	}

	if _, err := v.Main(context.Background(), entry); err == nil {
		t.Fatal("expected a runtime error, got none")
	}
}
