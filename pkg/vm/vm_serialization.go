/******************************************************************************\
* Pararuna                                                                     *
*                                                                               *
* Copyright 2020-2023 Leandro Motta Barros                                     *
* Licensed under the MIT license (see LICENSE.txt for details)                 *
\******************************************************************************/

package vm

import (
	"bytes"
	"hash/crc32"
	"io"

	"github.com/stackedboxes/pararuna/pkg/bytecode"
	"github.com/stackedboxes/pararuna/pkg/errs"
	"github.com/stackedboxes/pararuna/pkg/executor"
	"github.com/stackedboxes/pararuna/pkg/heap"
	"github.com/stackedboxes/pararuna/pkg/romutil"
)

// savedStateVersion is the current version of a Pararuna session snapshot.
const savedStateVersion uint32 = 0

// savedStateMagic identifies a Pararuna VM snapshot: the "PrrnSav" string
// followed by a SUB character.
var savedStateMagic = []byte{0x50, 0x72, 0x72, 0x6E, 0x53, 0x61, 0x76, 0x1A}

// Object kind tags, used to serialize the heterogeneous heap.
const (
	coString      byte = 0
	coArray       byte = 1
	coClass       byte = 2
	coFunction    byte = 3
	coFunctionExt byte = 4
	coInstance    byte = 5
)

// CaptureState snapshots everything needed to resume this VM later with
// NewWithState: the heap, globals, operand stack and frame stack. The
// snapshot is only meaningful when later paired with the same Program (or
// one with an identical constant-pool/chunk layout); NewWithState checks a
// fingerprint of that and refuses a mismatched pairing.
func (vm *VM) CaptureState() ([]byte, errs.Error) {
	var out bytes.Buffer

	if _, err := out.Write(savedStateMagic); err != nil {
		return nil, errs.NewState("writing snapshot magic: %v", err)
	}
	if err := romutil.SerializeU32(&out, savedStateVersion); err != nil {
		return nil, errs.NewState("writing snapshot version: %v", err)
	}

	crc := crc32.NewIEEE()
	mw := io.MultiWriter(&out, crc)

	if err := vm.serializePayload(mw); err != nil {
		return nil, errs.NewState("writing snapshot payload: %v", err)
	}

	if err := romutil.SerializeU32(&out, crc.Sum32()); err != nil {
		return nil, errs.NewState("writing snapshot checksum: %v", err)
	}

	return out.Bytes(), nil
}

// serializePayload writes everything but the magic/version header and the
// trailing checksum.
func (vm *VM) serializePayload(w io.Writer) error {
	if err := romutil.SerializeU32(w, uint32(vm.heap.Capacity())); err != nil {
		return err
	}
	if err := romutil.SerializeU32(w, uint32(len(vm.program.Constants))); err != nil {
		return err
	}
	if err := romutil.SerializeU32(w, uint32(len(vm.program.Chunks))); err != nil {
		return err
	}

	cells := vm.heap.Cells()
	if err := romutil.SerializeU32(w, uint32(len(cells))); err != nil {
		return err
	}
	for _, c := range cells {
		if err := romutil.SerializeU32(w, uint32(c.Shares)); err != nil {
			return err
		}
		if err := romutil.SerializeU32(w, c.Generation); err != nil {
			return err
		}
		if err := serializeObject(w, c.Object); err != nil {
			return err
		}
	}

	if err := romutil.SerializeU32(w, uint32(len(vm.globals))); err != nil {
		return err
	}
	for name, v := range vm.globals {
		if err := romutil.SerializeString(w, name); err != nil {
			return err
		}
		if err := v.Serialize(w); err != nil {
			return err
		}
	}

	if err := vm.stack.Serialize(w); err != nil {
		return err
	}

	if err := romutil.SerializeU32(w, uint32(len(vm.frames))); err != nil {
		return err
	}
	for _, f := range vm.frames {
		fn, ferr := vm.function(f)
		if ferr != nil {
			return ferr
		}
		if err := f.Serialize(w, fn); err != nil {
			return err
		}
	}

	return nil
}

// serializeObject writes a single heap object, tagged by its concrete type.
func serializeObject(w io.Writer, obj bytecode.Object) error {
	switch o := obj.(type) {
	case *bytecode.String:
		if _, err := w.Write([]byte{coString}); err != nil {
			return err
		}
		return romutil.SerializeString(w, o.Text)

	case *bytecode.Array:
		if _, err := w.Write([]byte{coArray}); err != nil {
			return err
		}
		if err := romutil.SerializeString(w, o.ElementType); err != nil {
			return err
		}
		if err := romutil.SerializeU32(w, uint32(len(o.Elements))); err != nil {
			return err
		}
		for _, v := range o.Elements {
			if err := v.Serialize(w); err != nil {
				return err
			}
		}
		return nil

	case *bytecode.Class:
		if _, err := w.Write([]byte{coClass}); err != nil {
			return err
		}
		if err := romutil.SerializeString(w, o.Name); err != nil {
			return err
		}
		return serializeValueMap(w, o.Methods)

	case *bytecode.Function:
		if _, err := w.Write([]byte{coFunction}); err != nil {
			return err
		}
		if err := romutil.SerializeString(w, o.Name); err != nil {
			return err
		}
		return romutil.SerializeU32(w, uint32(o.Arity))

	case *bytecode.FunctionExt:
		if _, err := w.Write([]byte{coFunctionExt}); err != nil {
			return err
		}
		if err := romutil.SerializeString(w, o.Name); err != nil {
			return err
		}
		if err := romutil.SerializeString(w, o.Kind); err != nil {
			return err
		}
		if err := romutil.SerializeU32(w, uint32(o.Arity)); err != nil {
			return err
		}
		return romutil.SerializeString(w, o.Descriptor)

	case *bytecode.Instance:
		if _, err := w.Write([]byte{coInstance}); err != nil {
			return err
		}
		idx, gen := o.Class.Parts()
		if err := romutil.SerializeU32(w, idx); err != nil {
			return err
		}
		if err := romutil.SerializeU32(w, gen); err != nil {
			return err
		}
		return serializeValueMap(w, o.Properties)

	default:
		return errs.NewState("cannot serialize heap object of type %T", obj)
	}
}

// serializeValueMap writes a string-keyed map of Values, in an arbitrary but
// self-consistent order.
func serializeValueMap(w io.Writer, m map[string]bytecode.Value) error {
	if err := romutil.SerializeU32(w, uint32(len(m))); err != nil {
		return err
	}
	for k, v := range m {
		if err := romutil.SerializeString(w, k); err != nil {
			return err
		}
		if err := v.Serialize(w); err != nil {
			return err
		}
	}
	return nil
}

// deserializeValueMap reads back what serializeValueMap wrote.
func deserializeValueMap(r io.Reader) (map[string]bytecode.Value, error) {
	count, err := romutil.DeserializeU32(r)
	if err != nil {
		return nil, err
	}
	m := make(map[string]bytecode.Value, count)
	for i := uint32(0); i < count; i++ {
		k, err := romutil.DeserializeString(r)
		if err != nil {
			return nil, err
		}
		v, err := bytecode.DeserializeValue(r)
		if err != nil {
			return nil, err
		}
		m[k] = v
	}
	return m, nil
}

// deserializeObject reads back a single heap object, using program to
// resolve a Function's Chunk by the function's name.
func deserializeObject(r io.Reader, program *bytecode.Program) (bytecode.Object, error) {
	tag := make([]byte, 1)
	if _, err := io.ReadFull(r, tag); err != nil {
		return nil, err
	}

	switch tag[0] {
	case coString:
		text, err := romutil.DeserializeString(r)
		if err != nil {
			return nil, err
		}
		return &bytecode.String{Text: text}, nil

	case coArray:
		elementType, err := romutil.DeserializeString(r)
		if err != nil {
			return nil, err
		}
		count, err := romutil.DeserializeU32(r)
		if err != nil {
			return nil, err
		}
		elements := make([]bytecode.Value, count)
		for i := uint32(0); i < count; i++ {
			v, err := bytecode.DeserializeValue(r)
			if err != nil {
				return nil, err
			}
			elements[i] = v
		}
		return &bytecode.Array{ElementType: elementType, Elements: elements}, nil

	case coClass:
		name, err := romutil.DeserializeString(r)
		if err != nil {
			return nil, err
		}
		methods, err := deserializeValueMap(r)
		if err != nil {
			return nil, err
		}
		return &bytecode.Class{Name: name, Methods: methods}, nil

	case coFunction:
		name, err := romutil.DeserializeString(r)
		if err != nil {
			return nil, err
		}
		arity, err := romutil.DeserializeU32(r)
		if err != nil {
			return nil, err
		}
		chunk, findErr := findChunkByFunctionName(program, name)
		if findErr != nil {
			return nil, findErr
		}
		return &bytecode.Function{Name: name, Arity: int(arity), Chunk: chunk}, nil

	case coFunctionExt:
		name, err := romutil.DeserializeString(r)
		if err != nil {
			return nil, err
		}
		kind, err := romutil.DeserializeString(r)
		if err != nil {
			return nil, err
		}
		arity, err := romutil.DeserializeU32(r)
		if err != nil {
			return nil, err
		}
		descriptor, err := romutil.DeserializeString(r)
		if err != nil {
			return nil, err
		}
		return &bytecode.FunctionExt{Name: name, Kind: kind, Arity: int(arity), Descriptor: descriptor}, nil

	case coInstance:
		idx, err := romutil.DeserializeU32(r)
		if err != nil {
			return nil, err
		}
		gen, err := romutil.DeserializeU32(r)
		if err != nil {
			return nil, err
		}
		props, err := deserializeValueMap(r)
		if err != nil {
			return nil, err
		}
		return &bytecode.Instance{Class: heap.FromParts(idx, gen), Properties: props}, nil

	default:
		return nil, errs.NewState("unexpected heap object tag: %v", tag[0])
	}
}

// findChunkByFunctionName looks up, among program's constant pool, the Chunk
// belonging to the local function named name.
func findChunkByFunctionName(program *bytecode.Program, name string) (*bytecode.Chunk, error) {
	for _, c := range program.Constants {
		if c.Kind == bytecode.ConstFunction && c.FuncName == name {
			return program.Chunks[c.ChunkIndex], nil
		}
	}
	return nil, errs.NewState("snapshot refers to function %q, not found in program", name)
}

// NewWithState rebuilds a VM from a snapshot taken by CaptureState, pairing
// it with program. Fails with a State error if the snapshot's recorded
// constant-pool/chunk layout doesn't match program's -- the conservative
// proxy this implementation uses for "this snapshot belongs to this program".
func NewWithState(ex executor.Executor, index PackageIndex, program *bytecode.Program, opts Options, data []byte) (vm *VM, rerr errs.Error) {
	defer func() {
		if r := recover(); r != nil {
			vm = nil
			if e, ok := r.(errs.Error); ok {
				rerr = e
				return
			}
			rerr = errs.NewICE("unexpected panic restoring VM state: %v", r)
		}
	}()

	r := bytes.NewReader(data)

	magic := make([]byte, len(savedStateMagic))
	if _, err := io.ReadFull(r, magic); err != nil {
		return nil, errs.NewState("reading snapshot magic: %v", err)
	}
	for i, b := range magic {
		if b != savedStateMagic[i] {
			return nil, errs.NewState("invalid snapshot magic number")
		}
	}

	version, err := romutil.DeserializeU32(r)
	if err != nil {
		return nil, errs.NewState("reading snapshot version: %v", err)
	}
	if version != savedStateVersion {
		return nil, errs.NewState("unsupported snapshot version: %v", version)
	}

	crc := crc32.NewIEEE()
	tr := io.TeeReader(r, crc)

	capacity, err := romutil.DeserializeU32(tr)
	if err != nil {
		return nil, errs.NewState("reading snapshot heap capacity: %v", err)
	}

	constCount, err := romutil.DeserializeU32(tr)
	if err != nil {
		return nil, errs.NewState("reading snapshot fingerprint: %v", err)
	}
	chunkCount, err := romutil.DeserializeU32(tr)
	if err != nil {
		return nil, errs.NewState("reading snapshot fingerprint: %v", err)
	}
	if int(constCount) != len(program.Constants) || int(chunkCount) != len(program.Chunks) {
		return nil, errs.NewState(
			"snapshot does not match program: constants %v/%v, chunks %v/%v",
			constCount, len(program.Constants), chunkCount, len(program.Chunks))
	}

	cellCount, err := romutil.DeserializeU32(tr)
	if err != nil {
		return nil, errs.NewState("reading snapshot heap cell count: %v", err)
	}
	cells := make([]heap.CellState[bytecode.Object], cellCount)
	for i := uint32(0); i < cellCount; i++ {
		shares, err := romutil.DeserializeU32(tr)
		if err != nil {
			return nil, errs.NewState("reading snapshot cell %v: %v", i, err)
		}
		generation, err := romutil.DeserializeU32(tr)
		if err != nil {
			return nil, errs.NewState("reading snapshot cell %v: %v", i, err)
		}
		obj, err := deserializeObject(tr, program)
		if err != nil {
			return nil, errs.NewState("reading snapshot cell %v: %v", i, err)
		}
		cells[i] = heap.CellState[bytecode.Object]{Object: obj, Shares: int(shares), Generation: generation}
	}

	globalCount, err := romutil.DeserializeU32(tr)
	if err != nil {
		return nil, errs.NewState("reading snapshot globals: %v", err)
	}
	globals := make(map[string]bytecode.Value, globalCount)
	for i := uint32(0); i < globalCount; i++ {
		name, err := romutil.DeserializeString(tr)
		if err != nil {
			return nil, errs.NewState("reading snapshot globals: %v", err)
		}
		v, err := bytecode.DeserializeValue(tr)
		if err != nil {
			return nil, errs.NewState("reading snapshot globals: %v", err)
		}
		globals[name] = v
	}

	stack, err := DeserializeStack(tr)
	if err != nil {
		return nil, errs.NewState("reading snapshot stack: %v", err)
	}

	frameCount, err := romutil.DeserializeU32(tr)
	if err != nil {
		return nil, errs.NewState("reading snapshot frame count: %v", err)
	}
	frames := make([]*callFrame, frameCount)
	for i := uint32(0); i < frameCount; i++ {
		sf, err := deserializeCallFrame(tr)
		if err != nil {
			return nil, errs.NewState("reading snapshot frame %v: %v", i, err)
		}
		fnVal, ok := globals[sf.FuncName]
		if !ok || !fnVal.IsHandle() {
			return nil, errs.NewState("snapshot frame refers to unknown function %q", sf.FuncName)
		}
		frames[i] = &callFrame{
			fn: fnVal.AsHandle(),
			ip: sf.IP,
			stack: &StackView{
				stack: stack,
				base:  sf.StackOffset,
			},
		}
	}

	readCRC, err := romutil.DeserializeU32(r)
	if err != nil {
		return nil, errs.NewState("reading snapshot checksum: %v", err)
	}
	if readCRC != crc.Sum32() {
		return nil, errs.NewState("snapshot checksum mismatch")
	}

	newVM := &VM{
		options:  opts,
		executor: ex,
		index:    index,
		heap:     heap.NewFromCells[bytecode.Object](int(capacity), cells),
		globals:  globals,
		program:  program,
		stack:    stack,
		frames:   frames,
	}
	if len(frames) > 0 {
		newVM.frame = frames[len(frames)-1]
	}

	return newVM, nil
}
