package spe

import "errors"

var (
	// ErrTruncatedHeader is returned when the source ends before HeaderSize bytes.
	ErrTruncatedHeader = errors.New("spe: truncated header")
	// ErrUnsupportedDataType is returned for a datatype code outside 0..3.
	ErrUnsupportedDataType = errors.New("spe: unsupported datatype")
	// ErrTruncatedData is returned when the source ends before the declared frame data.
	ErrTruncatedData = errors.New("spe: truncated frame data")
	// ErrInvalidShape is returned for negative frame dimensions.
	ErrInvalidShape = errors.New("spe: invalid frame shape")
	// ErrFrameOutOfRange is returned by ReadFrame for an index outside [0,NumFrames).
	ErrFrameOutOfRange = errors.New("spe: frame index out of range")
	// ErrUnknownField is returned by Header.Field for names not in the layout.
	ErrUnknownField = errors.New("spe: unknown header field")
)
