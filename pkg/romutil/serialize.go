/******************************************************************************\
* Pararuna                                                                     *
*                                                                               *
* Copyright 2020-2023 Leandro Motta Barros                                     *
* Licensed under the MIT license (see LICENSE.txt for details)                 *
\******************************************************************************/

package romutil

import (
	"encoding/binary"
	"io"
)

// Serializer is the interface implemented by objects that can serialize
// themselves.
type Serializer interface {
	// Serialize serializes the given object writing the serialized data to w.
	Serialize(w io.Writer) error
}

// Deserializer is the interface implemented by objects that can deserialize
// themselves.
type Deserializer interface {
	// Deserialize deserializes the given object reading the serialized data
	// from r.
	Deserialize(r io.Reader) error
}

// SerializeU32 writes a uint32 to the given io.Writer, in little endian
// format.
func SerializeU32(w io.Writer, v uint32) error {
	var u32 [4]byte
	binary.LittleEndian.PutUint32(u32[:], v)
	_, err := w.Write(u32[:])
	return err
}

// DeserializeU32 reads a uint32 from the given io.Reader, in little endian
// format.
func DeserializeU32(r io.Reader) (uint32, error) {
	var u32 [4]byte
	if _, err := io.ReadFull(r, u32[:]); err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(u32[:]), nil
}

// SerializeU64 writes a uint64 to the given io.Writer, in little endian
// format.
func SerializeU64(w io.Writer, v uint64) error {
	var u64 [8]byte
	binary.LittleEndian.PutUint64(u64[:], v)
	_, err := w.Write(u64[:])
	return err
}

// DeserializeU64 reads a uint64 from the given io.Reader, in little endian
// format.
func DeserializeU64(r io.Reader) (uint64, error) {
	var u64 [8]byte
	if _, err := io.ReadFull(r, u64[:]); err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint64(u64[:]), nil
}

// SerializeBytes writes a length-prefixed byte slice to w: a uint32 length
// followed by the raw bytes.
func SerializeBytes(w io.Writer, bs []byte) error {
	if err := SerializeU32(w, uint32(len(bs))); err != nil {
		return err
	}
	_, err := w.Write(bs)
	return err
}

// DeserializeBytes reads a length-prefixed byte slice previously written by
// SerializeBytes.
func DeserializeBytes(r io.Reader) ([]byte, error) {
	n, err := DeserializeU32(r)
	if err != nil {
		return nil, err
	}
	bs := make([]byte, n)
	if _, err := io.ReadFull(r, bs); err != nil {
		return nil, err
	}
	return bs, nil
}

// SerializeString writes a length-prefixed string to w.
func SerializeString(w io.Writer, s string) error {
	return SerializeBytes(w, []byte(s))
}

// DeserializeString reads a length-prefixed string previously written by
// SerializeString.
func DeserializeString(r io.Reader) (string, error) {
	bs, err := DeserializeBytes(r)
	if err != nil {
		return "", err
	}
	return string(bs), nil
}
