/******************************************************************************\
* Pararuna                                                                     *
*                                                                               *
* Copyright 2020-2023 Leandro Motta Barros                                     *
* Licensed under the MIT license (see LICENSE.txt for details)                 *
\******************************************************************************/

package bytecode

import (
	"bytes"
	"fmt"
	"hash/crc32"
	"io"
	"math"

	"github.com/stackedboxes/pararuna/pkg/romutil"
)

// programMagic identifies a Pararuna compiled program file: the "PrrnPrg"
// string followed by a SUB character, mirroring the VM session snapshot's
// own magic/version/checksum framing.
var programMagic = []byte{0x50, 0x72, 0x72, 0x6E, 0x50, 0x72, 0x67, 0x1A}

// programVersion is the current version of the on-disk Program format.
const programVersion uint32 = 0

// Serialize writes p in the on-disk compiled-program format: a magic header,
// a version, the constant pool, every chunk's code and line table, and a
// trailing checksum.
func (p *Program) Serialize(w io.Writer) error {
	var out bytes.Buffer

	if _, err := out.Write(programMagic); err != nil {
		return err
	}
	if err := romutil.SerializeU32(&out, programVersion); err != nil {
		return err
	}

	crc := crc32.NewIEEE()
	mw := io.MultiWriter(&out, crc)

	if err := romutil.SerializeU32(mw, uint32(p.FirstChunk)); err != nil {
		return err
	}

	if err := romutil.SerializeU32(mw, uint32(len(p.Constants))); err != nil {
		return err
	}
	for _, c := range p.Constants {
		if err := serializeConstant(mw, c); err != nil {
			return err
		}
	}

	if err := romutil.SerializeU32(mw, uint32(len(p.Chunks))); err != nil {
		return err
	}
	for _, c := range p.Chunks {
		if err := serializeChunk(mw, c); err != nil {
			return err
		}
	}

	if err := romutil.SerializeU32(&out, crc.Sum32()); err != nil {
		return err
	}

	_, err := w.Write(out.Bytes())
	return err
}

// Deserialize reads a Program previously written by Serialize.
func Deserialize(r io.Reader) (*Program, error) {
	magic := make([]byte, len(programMagic))
	if _, err := io.ReadFull(r, magic); err != nil {
		return nil, fmt.Errorf("reading program magic: %w", err)
	}
	if !bytes.Equal(magic, programMagic) {
		return nil, fmt.Errorf("not a pararuna compiled program file")
	}

	version, err := romutil.DeserializeU32(r)
	if err != nil {
		return nil, fmt.Errorf("reading program version: %w", err)
	}
	if version != programVersion {
		return nil, fmt.Errorf("unsupported program version: %v", version)
	}

	crc := crc32.NewIEEE()
	tr := io.TeeReader(r, crc)

	firstChunk, err := romutil.DeserializeU32(tr)
	if err != nil {
		return nil, fmt.Errorf("reading first chunk index: %w", err)
	}

	numConstants, err := romutil.DeserializeU32(tr)
	if err != nil {
		return nil, fmt.Errorf("reading constant count: %w", err)
	}
	constants := make([]Constant, numConstants)
	for i := range constants {
		c, err := deserializeConstant(tr)
		if err != nil {
			return nil, fmt.Errorf("reading constant %v: %w", i, err)
		}
		constants[i] = c
	}

	numChunks, err := romutil.DeserializeU32(tr)
	if err != nil {
		return nil, fmt.Errorf("reading chunk count: %w", err)
	}
	chunks := make([]*Chunk, numChunks)
	for i := range chunks {
		c, err := deserializeChunk(tr)
		if err != nil {
			return nil, fmt.Errorf("reading chunk %v: %w", i, err)
		}
		chunks[i] = c
	}

	wantChecksum := crc.Sum32()
	gotChecksum, err := romutil.DeserializeU32(r)
	if err != nil {
		return nil, fmt.Errorf("reading checksum: %w", err)
	}
	if gotChecksum != wantChecksum {
		return nil, fmt.Errorf("checksum mismatch: program file is corrupt")
	}

	return &Program{
		Chunks:     chunks,
		FirstChunk: int(firstChunk),
		Constants:  constants,
	}, nil
}

func serializeConstant(w io.Writer, c Constant) error {
	if err := romutil.SerializeU32(w, uint32(c.Kind)); err != nil {
		return err
	}
	switch c.Kind {
	case ConstBool:
		b := byte(0)
		if c.Bool {
			b = 1
		}
		_, err := w.Write([]byte{b})
		return err
	case ConstInt:
		return romutil.SerializeU64(w, uint64(c.Int))
	case ConstReal:
		return romutil.SerializeU64(w, math.Float64bits(c.Real))
	case ConstString:
		return romutil.SerializeString(w, c.Str)
	case ConstFunction:
		if err := romutil.SerializeString(w, c.FuncName); err != nil {
			return err
		}
		if err := romutil.SerializeU32(w, uint32(c.FuncArity)); err != nil {
			return err
		}
		return romutil.SerializeU32(w, uint32(c.ChunkIndex))
	case ConstFunctionExt:
		if err := romutil.SerializeString(w, c.FuncName); err != nil {
			return err
		}
		if err := romutil.SerializeU32(w, uint32(c.FuncArity)); err != nil {
			return err
		}
		if err := romutil.SerializeString(w, c.FuncExtKind); err != nil {
			return err
		}
		return romutil.SerializeString(w, c.FuncExtDescriptor)
	default:
		return fmt.Errorf("unknown constant kind: %v", c.Kind)
	}
}

func deserializeConstant(r io.Reader) (Constant, error) {
	kind, err := romutil.DeserializeU32(r)
	if err != nil {
		return Constant{}, err
	}
	switch ConstantKind(kind) {
	case ConstBool:
		var b [1]byte
		if _, err := io.ReadFull(r, b[:]); err != nil {
			return Constant{}, err
		}
		return NewBoolConstant(b[0] != 0), nil
	case ConstInt:
		v, err := romutil.DeserializeU64(r)
		if err != nil {
			return Constant{}, err
		}
		return NewIntConstant(int64(v)), nil
	case ConstReal:
		v, err := romutil.DeserializeU64(r)
		if err != nil {
			return Constant{}, err
		}
		return NewRealConstant(math.Float64frombits(v)), nil
	case ConstString:
		s, err := romutil.DeserializeString(r)
		if err != nil {
			return Constant{}, err
		}
		return NewStringConstant(s), nil
	case ConstFunction:
		name, err := romutil.DeserializeString(r)
		if err != nil {
			return Constant{}, err
		}
		arity, err := romutil.DeserializeU32(r)
		if err != nil {
			return Constant{}, err
		}
		chunkIndex, err := romutil.DeserializeU32(r)
		if err != nil {
			return Constant{}, err
		}
		return NewFunctionConstant(name, int(arity), int(chunkIndex)), nil
	case ConstFunctionExt:
		name, err := romutil.DeserializeString(r)
		if err != nil {
			return Constant{}, err
		}
		arity, err := romutil.DeserializeU32(r)
		if err != nil {
			return Constant{}, err
		}
		extKind, err := romutil.DeserializeString(r)
		if err != nil {
			return Constant{}, err
		}
		descriptor, err := romutil.DeserializeString(r)
		if err != nil {
			return Constant{}, err
		}
		return NewFunctionExtConstant(name, extKind, int(arity), descriptor), nil
	default:
		return Constant{}, fmt.Errorf("unknown constant kind: %v", kind)
	}
}

func serializeChunk(w io.Writer, c *Chunk) error {
	if err := romutil.SerializeBytes(w, c.Code); err != nil {
		return err
	}
	if err := romutil.SerializeU32(w, uint32(len(c.Lines))); err != nil {
		return err
	}
	for _, l := range c.Lines {
		if err := romutil.SerializeU32(w, uint32(l)); err != nil {
			return err
		}
	}
	return nil
}

func deserializeChunk(r io.Reader) (*Chunk, error) {
	code, err := romutil.DeserializeBytes(r)
	if err != nil {
		return nil, err
	}
	numLines, err := romutil.DeserializeU32(r)
	if err != nil {
		return nil, err
	}
	lines := make([]int, numLines)
	for i := range lines {
		l, err := romutil.DeserializeU32(r)
		if err != nil {
			return nil, err
		}
		lines[i] = int(l)
	}
	return &Chunk{Code: code, Lines: lines}, nil
}
