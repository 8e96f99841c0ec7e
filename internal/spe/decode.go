package spe

import (
	"errors"
	"fmt"
	"io"
)

// DecodeHeader reads exactly HeaderSize bytes from r and decodes them.
// A short source yields ErrTruncatedHeader; other read errors are returned
// as they are.
func DecodeHeader(r io.Reader) (*Header, error) {
	var buf [HeaderSize]byte
	n, err := io.ReadFull(r, buf[:])
	if err != nil {
		if errors.Is(err, io.ErrUnexpectedEOF) || errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("%w: got %d of %d bytes", ErrTruncatedHeader, n, HeaderSize)
		}
		return nil, err
	}
	h := &Header{}
	if err := decodeFields(headerFields, buf[:], h); err != nil {
		return nil, err
	}
	return h, nil
}

// UnmarshalBinary decodes the first HeaderSize bytes of data into h.
func (h *Header) UnmarshalBinary(data []byte) error {
	if len(data) < HeaderSize {
		return fmt.Errorf("%w: got %d of %d bytes", ErrTruncatedHeader, len(data), HeaderSize)
	}
	var decoded Header
	if err := decodeFields(headerFields, data[:HeaderSize], &decoded); err != nil {
		return err
	}
	*h = decoded
	return nil
}

// MarshalBinary encodes h into a HeaderSize byte slice.
func (h *Header) MarshalBinary() ([]byte, error) {
	buf := make([]byte, HeaderSize)
	if err := encodeFields(headerFields, h, buf); err != nil {
		return nil, err
	}
	return buf, nil
}

// Decode reads a complete file: the header, then the frames it describes.
// Either both are returned or the first error encountered.
func Decode(r io.Reader) (*Header, *FrameStack, error) {
	h, err := DecodeHeader(r)
	if err != nil {
		return nil, nil, err
	}
	frames, err := ExtractFrames(r, int(h.XDim), int(h.YDim), int(h.NumFrames), h.DataType)
	if err != nil {
		return nil, nil, err
	}
	return h, frames, nil
}

// ReadFrame seeks to frame i of a file whose header h has already been
// decoded and extracts that frame alone. Offsets are relative to the start of
// the file.
func ReadFrame(r io.ReadSeeker, h *Header, i int) (*FrameStack, error) {
	if !h.DataType.Valid() {
		return nil, fmt.Errorf("%w: %d", ErrUnsupportedDataType, int16(h.DataType))
	}
	if i < 0 || i >= int(h.NumFrames) {
		return nil, fmt.Errorf("%w: %d not in [0,%d)", ErrFrameOutOfRange, i, h.NumFrames)
	}
	frameBytes := int64(h.XDim) * int64(h.YDim) * int64(h.DataType.Size())
	if _, err := r.Seek(HeaderSize+int64(i)*frameBytes, io.SeekStart); err != nil {
		return nil, err
	}
	return ExtractFrames(r, int(h.XDim), int(h.YDim), 1, h.DataType)
}

// Encode writes h followed by the samples of fs. The geometry and datatype
// fields of the written header are taken from fs; h itself is not modified.
func Encode(w io.Writer, h *Header, fs *FrameStack) error {
	frames, rows, cols := fs.Shape()
	if rows > 0xFFFF || cols > 0xFFFF || int64(frames) > int64(^uint32(0)>>1) {
		return fmt.Errorf("%w: %dx%dx%d does not fit the header", ErrInvalidShape, frames, rows, cols)
	}
	out := *h
	out.XDim = uint16(cols)
	out.YDim = uint16(rows)
	out.NumFrames = int32(frames)
	out.DataType = fs.DataType()
	hdr, err := out.MarshalBinary()
	if err != nil {
		return err
	}
	if _, err := w.Write(hdr); err != nil {
		return err
	}
	return fs.WriteSamples(w)
}
