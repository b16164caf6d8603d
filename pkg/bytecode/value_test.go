/******************************************************************************\
* Pararuna                                                                     *
*                                                                               *
* Copyright 2020-2023 Leandro Motta Barros                                     *
* Licensed under the MIT license (see LICENSE.txt for details)                 *
\******************************************************************************/

package bytecode

import (
	"bytes"
	"testing"

	"github.com/stackedboxes/pararuna/pkg/heap"
)

func TestValueSerializeRoundTrip(t *testing.T) {
	values := []Value{
		NewUnit(),
		NewBool(true),
		NewBool(false),
		NewInt(-42),
		NewReal(3.5),
		NewBuiltin(BuiltinCode(7)),
		NewHandle(heap.FromParts(3, 9)),
	}

	for _, v := range values {
		var buf bytes.Buffer
		if err := v.Serialize(&buf); err != nil {
			t.Fatalf("serialize %v: unexpected error: %v", v, err)
		}

		got, err := DeserializeValue(&buf)
		if err != nil {
			t.Fatalf("deserialize %v: unexpected error: %v", v, err)
		}

		if !ValuesEqual(v, got) {
			t.Fatalf("round trip mismatch: got %v, want %v", got, v)
		}
	}
}

func TestValuesEqualDifferentKinds(t *testing.T) {
	if ValuesEqual(NewInt(1), NewReal(1)) {
		t.Fatalf("values of different kinds must not be equal")
	}
}

func TestArrayHomogeneityCheck(t *testing.T) {
	h := heap.New[Object](4)

	if _, err := NewArray([]Value{NewInt(1), NewReal(2)}, h); err == nil {
		t.Fatalf("expected error building array of mismatched types")
	}

	arr, err := NewArray([]Value{NewInt(1), NewInt(2)}, h)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if arr.ElementType != "integer" {
		t.Fatalf("got element type %v, want integer", arr.ElementType)
	}
}

func TestEmptyArrayIsUnitTyped(t *testing.T) {
	h := heap.New[Object](4)
	arr, err := NewArray(nil, h)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if arr.ElementType != "unit" {
		t.Fatalf("got element type %v, want unit", arr.ElementType)
	}
}
