/******************************************************************************\
* Pararuna                                                                     *
*                                                                               *
* Copyright 2020-2023 Leandro Motta Barros                                     *
* Licensed under the MIT license (see LICENSE.txt for details)                 *
\******************************************************************************/

package asm

import (
	"context"
	"testing"

	"github.com/stackedboxes/pararuna/pkg/executor"
	"github.com/stackedboxes/pararuna/pkg/vm"
)

func run(t *testing.T, source, entry string) (float64, bool) {
	t.Helper()
	program, err := Assemble(source)
	if err != nil {
		t.Fatalf("Assemble failed: %v", err)
	}

	theVM := vm.New(executor.NewMemory(), nil, vm.DefaultOptions())
	if loadErr := theVM.Load(program); loadErr != nil {
		t.Fatalf("Load failed: %v", loadErr)
	}

	fn, ok := theVM.Global(entry)
	if !ok {
		t.Fatalf("no such global: %v", entry)
	}

	result, runErr := theVM.Main(context.Background(), fn)
	if runErr != nil {
		t.Fatalf("Main failed: %v", runErr)
	}

	if result.IsInt() {
		return float64(result.AsInt()), true
	}
	return 0, false
}

func TestAssembleArithmetic(t *testing.T) {
	source := `
.const two int 2
.const three int 3
.const four int 4

.func main 0
    CONSTANT two
    CONSTANT three
    CONSTANT four
    MULTIPLY
    ADD
    RETURN
.endfunc

.entry main
`
	result, ok := run(t, source, "main")
	if !ok {
		t.Fatalf("expected an int result")
	}
	if result != 14 {
		t.Errorf("expected 14, got %v", result)
	}
}

func TestAssembleLoopCountsDownToZero(t *testing.T) {
	// while (n > 0) n = n - 1; return n
	source := `
.const start int 5
.const one int 1
.const zero int 0

.func main 0
    CONSTANT start

top:
    GET_LOCAL 1
    CONSTANT zero
    GREATER
    JUMP_IF_FALSE done
    POP
    GET_LOCAL 1
    CONSTANT one
    SUBTRACT
    SET_LOCAL 1
    POP
    LOOP top

done:
    POP
    GET_LOCAL 1
    RETURN
.endfunc

.entry main
`
	result, ok := run(t, source, "main")
	if !ok {
		t.Fatalf("expected an int result")
	}
	if result != 0 {
		t.Errorf("expected 0, got %v", result)
	}
}

func TestAssembleUnknownMnemonicFails(t *testing.T) {
	source := `
.func main 0
    FROBNICATE
.endfunc
.entry main
`
	if _, err := Assemble(source); err == nil {
		t.Fatalf("expected an error for an unknown mnemonic")
	}
}

func TestAssembleUndefinedLabelFails(t *testing.T) {
	source := `
.func main 0
    JUMP nowhere
    RETURN
.endfunc
.entry main
`
	if _, err := Assemble(source); err == nil {
		t.Fatalf("expected an error for an undefined label")
	}
}
