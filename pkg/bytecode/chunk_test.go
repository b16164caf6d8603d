/******************************************************************************\
* Pararuna                                                                     *
*                                                                               *
* Copyright 2020-2023 Leandro Motta Barros                                     *
* Licensed under the MIT license (see LICENSE.txt for details)                 *
\******************************************************************************/

package bytecode

import (
	"reflect"
	"testing"
)

func TestFreezeUnfreezeRoundTrip(t *testing.T) {
	fb := NewFunctionBuilder("greet", 1)
	fb.EmitOpCode(OpGetLocal, 1)
	fb.EmitUInt31(0, 1)
	jumpOffset := fb.EmitJump(OpJumpIfFalse, 2)
	fb.EmitOpCode(OpPop, 3)
	if err := fb.PatchJump(jumpOffset); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	fb.EmitOpCode(OpReturn, 4)

	frozen := fb.Freeze()
	rebuilt := frozen.Unfreeze()
	refrozen := rebuilt.Freeze()

	if !reflect.DeepEqual(frozen, refrozen) {
		t.Fatalf("freeze/unfreeze did not round-trip:\n%#v\n%#v", frozen, refrozen)
	}
}

func TestEncodeDecodeUInt31(t *testing.T) {
	buf := make([]byte, 4)
	EncodeUInt31(buf, 123456)
	if got := DecodeUInt31(buf); got != 123456 {
		t.Fatalf("got %v, want 123456", got)
	}
}

func TestEmitJumpPatchesForwardOffset(t *testing.T) {
	fb := NewFunctionBuilder("f", 0)
	off := fb.EmitJump(OpJump, 1)
	fb.EmitOpCode(OpNop, 2)
	fb.EmitOpCode(OpNop, 2)
	if err := fb.PatchJump(off); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	jump := decodeUInt16(fb.code[off:])
	if jump != 2 {
		t.Fatalf("got jump %v, want 2", jump)
	}
}
