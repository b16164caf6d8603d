/******************************************************************************\
* Pararuna                                                                     *
*                                                                               *
* Copyright 2020-2023 Leandro Motta Barros                                     *
* Licensed under the MIT license (see LICENSE.txt for details)                 *
\******************************************************************************/

package bytecode

import (
	"fmt"
	"io"
	"math"
	"reflect"

	"github.com/stackedboxes/pararuna/pkg/heap"
	"github.com/stackedboxes/pararuna/pkg/romutil"
)

// BuiltinCode identifies a built-in function by its one-byte opcode operand.
// The meaning of each code is owned by whoever registers built-ins against a
// VM; this package only needs to carry the value around.
type BuiltinCode uint8

// unitValue is the single inhabitant of the unit type.
type unitValue struct{}

// Value is a Pararuna stack slot: a tagged union of unit, boolean, integer,
// real, built-in-function code, and heap handle. Stack slots are small and
// copyable; anything bigger lives on the heap and is referred to through a
// Handle.
type Value struct {
	Value interface{}
}

// NewUnit creates the unit Value.
func NewUnit() Value {
	return Value{Value: unitValue{}}
}

// NewBool creates a new boolean Value.
func NewBool(b bool) Value {
	return Value{Value: b}
}

// NewInt creates a new integer Value.
func NewInt(i int64) Value {
	return Value{Value: i}
}

// NewReal creates a new floating-point Value.
func NewReal(f float64) Value {
	return Value{Value: f}
}

// NewBuiltin creates a new Value carrying a built-in-function code.
func NewBuiltin(code BuiltinCode) Value {
	return Value{Value: code}
}

// NewHandle creates a new Value referring to a heap object.
func NewHandle(h heap.Handle) Value {
	return Value{Value: h}
}

// IsUnit checks if this Value is the unit value.
func (v Value) IsUnit() bool {
	_, ok := v.Value.(unitValue)
	return ok
}

// IsBool checks if this Value is a boolean.
func (v Value) IsBool() bool {
	_, ok := v.Value.(bool)
	return ok
}

// IsInt checks if this Value is an integer.
func (v Value) IsInt() bool {
	_, ok := v.Value.(int64)
	return ok
}

// IsReal checks if this Value is a real.
func (v Value) IsReal() bool {
	_, ok := v.Value.(float64)
	return ok
}

// IsBuiltin checks if this Value is a built-in-function code.
func (v Value) IsBuiltin() bool {
	_, ok := v.Value.(BuiltinCode)
	return ok
}

// IsHandle checks if this Value is a heap handle.
func (v Value) IsHandle() bool {
	_, ok := v.Value.(heap.Handle)
	return ok
}

// AsBool returns this Value's value, assuming it is a boolean.
func (v Value) AsBool() bool {
	return v.Value.(bool)
}

// AsInt returns this Value's value, assuming it is an integer.
func (v Value) AsInt() int64 {
	return v.Value.(int64)
}

// AsReal returns this Value's value, assuming it is a real.
func (v Value) AsReal() float64 {
	return v.Value.(float64)
}

// AsBuiltin returns this Value's value, assuming it is a built-in-function
// code.
func (v Value) AsBuiltin() BuiltinCode {
	return v.Value.(BuiltinCode)
}

// AsHandle returns this Value's value, assuming it is a heap handle.
func (v Value) AsHandle() heap.Handle {
	return v.Value.(heap.Handle)
}

// TypeName returns the name of this Value's type, as used by diagnostics and
// by the homogeneous-array check. Handle-backed values defer to the type name
// of the object they point to.
func (v Value) TypeName(h *heap.Heap[Object]) string {
	switch vv := v.Value.(type) {
	case unitValue:
		return "unit"
	case bool:
		return "bool"
	case int64:
		return "integer"
	case float64:
		return "real"
	case BuiltinCode:
		return "builtin-function"
	case heap.Handle:
		obj, err := h.Get(vv)
		if err != nil {
			return "<dangling>"
		}
		return (*obj).TypeName()
	default:
		panic(fmt.Sprintf("unexpected value type: %T", vv))
	}
}

// String converts the value to a string suitable for tracing and display; it
// does not resolve handles, since that requires heap access.
func (v Value) String() string {
	switch vv := v.Value.(type) {
	case unitValue:
		return "unit"
	case bool:
		if vv {
			return "true"
		}
		return "false"
	case int64:
		return fmt.Sprintf("%v", vv)
	case float64:
		return fmt.Sprintf("%v", vv)
	case BuiltinCode:
		return fmt.Sprintf("<builtin %v>", uint8(vv))
	case heap.Handle:
		return vv.String()
	default:
		return fmt.Sprintf("<unexpected type %T>", vv)
	}
}

// ValuesEqual checks if a and b are considered equal. Handles are equal when
// they name the same cell; this function does not dereference into the heap.
func ValuesEqual(a, b Value) bool {
	if reflect.TypeOf(a.Value) != reflect.TypeOf(b.Value) {
		return false
	}

	switch va := a.Value.(type) {
	case unitValue:
		return true
	case bool:
		return va == b.Value.(bool)
	case int64:
		return va == b.Value.(int64)
	case float64:
		return va == b.Value.(float64)
	case BuiltinCode:
		return va == b.Value.(BuiltinCode)
	case heap.Handle:
		return va == b.Value.(heap.Handle)
	default:
		panic(fmt.Sprintf("unexpected value type: %T", va))
	}
}

//
// Serialization and deserialization
//
// Values serialize as a one-byte tag followed by the payload. Handles
// serialize as their raw index/generation: this is only meaningful when
// paired with a heap snapshot taken (and later restored) as part of the same
// state capture, which is exactly how the VM uses it.
//

const (
	cswUnit    byte = 0
	cswBoolean byte = 1
	cswInt     byte = 2
	cswReal    byte = 3
	cswBuiltin byte = 4
	cswHandle  byte = 5
)

// Serialize serializes the Value to the given io.Writer.
func (v Value) Serialize(w io.Writer) error {
	switch vv := v.Value.(type) {
	case unitValue:
		_, err := w.Write([]byte{cswUnit})
		return err

	case bool:
		b := byte(0)
		if vv {
			b = 1
		}
		_, err := w.Write([]byte{cswBoolean, b})
		return err

	case int64:
		if _, err := w.Write([]byte{cswInt}); err != nil {
			return err
		}
		return romutil.SerializeU64(w, uint64(vv))

	case float64:
		if _, err := w.Write([]byte{cswReal}); err != nil {
			return err
		}
		return romutil.SerializeU64(w, math.Float64bits(vv))

	case BuiltinCode:
		_, err := w.Write([]byte{cswBuiltin, byte(vv)})
		return err

	case heap.Handle:
		if _, err := w.Write([]byte{cswHandle}); err != nil {
			return err
		}
		idx, gen := vv.Parts()
		if err := romutil.SerializeU32(w, idx); err != nil {
			return err
		}
		return romutil.SerializeU32(w, gen)

	default:
		return fmt.Errorf("unexpected value type: %T", vv)
	}
}

// DeserializeValue deserializes a Value from the given io.Reader.
func DeserializeValue(r io.Reader) (Value, error) {
	tag := make([]byte, 1)
	if _, err := io.ReadFull(r, tag); err != nil {
		return Value{}, err
	}

	switch tag[0] {
	case cswUnit:
		return NewUnit(), nil

	case cswBoolean:
		b := make([]byte, 1)
		if _, err := io.ReadFull(r, b); err != nil {
			return Value{}, err
		}
		return NewBool(b[0] != 0), nil

	case cswInt:
		u, err := romutil.DeserializeU64(r)
		if err != nil {
			return Value{}, err
		}
		return NewInt(int64(u)), nil

	case cswReal:
		u, err := romutil.DeserializeU64(r)
		if err != nil {
			return Value{}, err
		}
		return NewReal(math.Float64frombits(u)), nil

	case cswBuiltin:
		b := make([]byte, 1)
		if _, err := io.ReadFull(r, b); err != nil {
			return Value{}, err
		}
		return NewBuiltin(BuiltinCode(b[0])), nil

	case cswHandle:
		idx, err := romutil.DeserializeU32(r)
		if err != nil {
			return Value{}, err
		}
		gen, err := romutil.DeserializeU32(r)
		if err != nil {
			return Value{}, err
		}
		return NewHandle(heap.FromParts(idx, gen)), nil

	default:
		return Value{}, fmt.Errorf("unexpected value tag: %v", tag[0])
	}
}
