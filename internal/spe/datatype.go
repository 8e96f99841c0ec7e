package spe

import "fmt"

// DataType is the on-disk sample representation selected by the header's
// datatype field (offset 108).
type DataType int16

const (
	Float32 DataType = 0 // float (4 bytes)
	Int32   DataType = 1 // long (4 bytes)
	Int16   DataType = 2 // short (2 bytes)
	Uint16  DataType = 3 // unsigned short (2 bytes)
)

// Valid reports whether d is one of the four known codes.
func (d DataType) Valid() bool {
	switch d {
	case Float32, Int32, Int16, Uint16:
		return true
	}
	return false
}

// Size returns the width of one sample in bytes, or 0 for an invalid code.
func (d DataType) Size() int {
	switch d {
	case Float32, Int32:
		return 4
	case Int16, Uint16:
		return 2
	}
	return 0
}

func (d DataType) String() string {
	switch d {
	case Float32:
		return "float32"
	case Int32:
		return "int32"
	case Int16:
		return "int16"
	case Uint16:
		return "uint16"
	}
	return fmt.Sprintf("DataType(%d)", int16(d))
}
