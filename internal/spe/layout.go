package spe

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"reflect"
)

// FieldInfo describes where a named value lives in the 4100-byte header.
type FieldInfo struct {
	Name   string `json:"name"`
	Offset int    `json:"offset"`
	Size   int    `json:"size"`
}

// field locates one value of a fixed-layout record of type T. ref returns a
// pointer into the record; its binary.Size must equal size.
type field[T any] struct {
	name   string
	offset int
	size   int
	ref    func(*T) any
}

// nest places a sub-record table inside its parent at base. Names are
// qualified with prefix so they stay unique after flattening.
func nest[P, C any](prefix string, base int, sub []field[C], sel func(*P) *C) []field[P] {
	out := make([]field[P], len(sub))
	for i, f := range sub {
		f := f
		out[i] = field[P]{
			name:   prefix + "." + f.name,
			offset: base + f.offset,
			size:   f.size,
			ref:    func(p *P) any { return f.ref(sel(p)) },
		}
	}
	return out
}

func decodeFields[T any](fields []field[T], b []byte, rec *T) error {
	for _, f := range fields {
		if f.offset+f.size > len(b) {
			return fmt.Errorf("spe: field %s [%d:%d] outside %d byte buffer", f.name, f.offset, f.offset+f.size, len(b))
		}
		r := bytes.NewReader(b[f.offset : f.offset+f.size])
		if err := binary.Read(r, binary.LittleEndian, f.ref(rec)); err != nil {
			return fmt.Errorf("spe: field %s: %w", f.name, err)
		}
	}
	return nil
}

func encodeFields[T any](fields []field[T], rec *T, b []byte) error {
	for _, f := range fields {
		if f.offset+f.size > len(b) {
			return fmt.Errorf("spe: field %s [%d:%d] outside %d byte buffer", f.name, f.offset, f.offset+f.size, len(b))
		}
		var buf bytes.Buffer
		if err := binary.Write(&buf, binary.LittleEndian, f.ref(rec)); err != nil {
			return fmt.Errorf("spe: field %s: %w", f.name, err)
		}
		if buf.Len() != f.size {
			return fmt.Errorf("spe: field %s encodes to %d bytes, layout says %d", f.name, buf.Len(), f.size)
		}
		copy(b[f.offset:], buf.Bytes())
	}
	return nil
}

// value dereferences the pointer returned by a field ref.
func value(ptr any) any {
	return reflect.ValueOf(ptr).Elem().Interface()
}
