package spe

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
	"math/bits"
)

const (
	// chunkSize bounds the read buffer used while extracting frames.
	chunkSize = 64 << 10
	// maxPrealloc caps the up-front sample allocation so that a corrupt
	// header cannot demand more memory than the source actually holds.
	maxPrealloc = 1 << 20
)

// Sample is the set of on-disk sample types.
type Sample interface {
	float32 | int32 | int16 | uint16
}

// Stack is a dense (frames, rows, cols) array of samples stored row-major,
// frame-major, exactly as on disk.
type Stack[T Sample] struct {
	frames, rows, cols int
	data               []T
}

// Shape returns the number of frames, rows (ydim) and columns (xdim).
func (s *Stack[T]) Shape() (frames, rows, cols int) {
	return s.frames, s.rows, s.cols
}

// At returns the sample at [frame][row][col].
func (s *Stack[T]) At(frame, row, col int) T {
	if frame < 0 || frame >= s.frames || row < 0 || row >= s.rows || col < 0 || col >= s.cols {
		panic(fmt.Sprintf("spe: index [%d][%d][%d] out of range for shape (%d,%d,%d)", frame, row, col, s.frames, s.rows, s.cols))
	}
	return s.data[(frame*s.rows+row)*s.cols+col]
}

// Frame returns frame i as rows. The rows share storage with the stack and
// must not be modified.
func (s *Stack[T]) Frame(i int) [][]T {
	if i < 0 || i >= s.frames {
		panic(fmt.Sprintf("spe: frame %d out of range [0,%d)", i, s.frames))
	}
	out := make([][]T, s.rows)
	base := i * s.rows * s.cols
	for r := range out {
		lo := base + r*s.cols
		out[r] = s.data[lo : lo+s.cols : lo+s.cols]
	}
	return out
}

// Data returns the backing samples in file order.
func (s *Stack[T]) Data() []T {
	return s.data
}

// FrameStack holds the decoded frames of one file. Exactly one typed stack
// is set, selected by DataType. Stacks come from NewFrameStack or
// ExtractFrames; the zero FrameStack is empty, with shape (0,0,0).
type FrameStack struct {
	dataType DataType
	f32      *Stack[float32]
	i32      *Stack[int32]
	i16      *Stack[int16]
	u16      *Stack[uint16]
}

// NewFrameStack wraps data, laid out as (frames, rows, cols), in a FrameStack.
// The element type of data selects the DataType.
func NewFrameStack[T Sample](frames, rows, cols int, data []T) (*FrameStack, error) {
	n, ok := sampleCount(frames, rows, cols)
	if !ok {
		return nil, fmt.Errorf("%w: (%d,%d,%d)", ErrInvalidShape, frames, rows, cols)
	}
	if len(data) != n {
		return nil, fmt.Errorf("%w: %d samples for shape (%d,%d,%d)", ErrInvalidShape, len(data), frames, rows, cols)
	}
	return wrap(&Stack[T]{frames: frames, rows: rows, cols: cols, data: data}), nil
}

func wrap[T Sample](s *Stack[T]) *FrameStack {
	fs := &FrameStack{}
	switch st := any(s).(type) {
	case *Stack[float32]:
		fs.dataType, fs.f32 = Float32, st
	case *Stack[int32]:
		fs.dataType, fs.i32 = Int32, st
	case *Stack[int16]:
		fs.dataType, fs.i16 = Int16, st
	case *Stack[uint16]:
		fs.dataType, fs.u16 = Uint16, st
	}
	return fs
}

// DataType returns the sample representation of the stack.
func (fs *FrameStack) DataType() DataType {
	return fs.dataType
}

// Shape returns (NumFrames, ydim, xdim).
func (fs *FrameStack) Shape() (frames, rows, cols int) {
	switch {
	case fs.f32 != nil:
		return fs.f32.Shape()
	case fs.i32 != nil:
		return fs.i32.Shape()
	case fs.i16 != nil:
		return fs.i16.Shape()
	case fs.u16 != nil:
		return fs.u16.Shape()
	}
	return 0, 0, 0
}

// Len returns the number of frames.
func (fs *FrameStack) Len() int {
	frames, _, _ := fs.Shape()
	return frames
}

// At returns the sample at [frame][row][col] widened to float64.
func (fs *FrameStack) At(frame, row, col int) float64 {
	switch {
	case fs.f32 != nil:
		return float64(fs.f32.At(frame, row, col))
	case fs.i32 != nil:
		return float64(fs.i32.At(frame, row, col))
	case fs.i16 != nil:
		return float64(fs.i16.At(frame, row, col))
	case fs.u16 != nil:
		return float64(fs.u16.At(frame, row, col))
	}
	panic(fmt.Sprintf("spe: index [%d][%d][%d] out of range for empty FrameStack", frame, row, col))
}

// FrameFloat64 returns a copy of frame i widened to float64, row-major.
func (fs *FrameStack) FrameFloat64(i int) []float64 {
	switch {
	case fs.f32 != nil:
		return widen(fs.f32, i)
	case fs.i32 != nil:
		return widen(fs.i32, i)
	case fs.i16 != nil:
		return widen(fs.i16, i)
	case fs.u16 != nil:
		return widen(fs.u16, i)
	}
	panic(fmt.Sprintf("spe: frame %d out of range [0,0)", i))
}

func widen[T Sample](s *Stack[T], i int) []float64 {
	if i < 0 || i >= s.frames {
		panic(fmt.Sprintf("spe: frame %d out of range [0,%d)", i, s.frames))
	}
	n := s.rows * s.cols
	out := make([]float64, n)
	for j, v := range s.data[i*n : (i+1)*n] {
		out[j] = float64(v)
	}
	return out
}

func (fs *FrameStack) Float32s() (*Stack[float32], bool) { return fs.f32, fs.f32 != nil }
func (fs *FrameStack) Int32s() (*Stack[int32], bool)     { return fs.i32, fs.i32 != nil }
func (fs *FrameStack) Int16s() (*Stack[int16], bool)     { return fs.i16, fs.i16 != nil }
func (fs *FrameStack) Uint16s() (*Stack[uint16], bool)   { return fs.u16, fs.u16 != nil }

// ExtractFrames reads numFrames*ydim*xdim samples of type dt from r and
// returns them as a stack of shape (numFrames, ydim, xdim). The datatype is
// checked before anything is read. A short source yields ErrTruncatedData
// after consuming what was there; other read errors are returned as they are.
func ExtractFrames(r io.Reader, xdim, ydim, numFrames int, dt DataType) (*FrameStack, error) {
	if !dt.Valid() {
		return nil, fmt.Errorf("%w: %d", ErrUnsupportedDataType, int16(dt))
	}
	if xdim < 0 || ydim < 0 || numFrames < 0 {
		return nil, fmt.Errorf("%w: (%d,%d,%d)", ErrInvalidShape, numFrames, ydim, xdim)
	}
	switch dt {
	case Float32:
		return readStack(r, numFrames, ydim, xdim, 4, func(b []byte) float32 {
			return math.Float32frombits(binary.LittleEndian.Uint32(b))
		})
	case Int32:
		return readStack(r, numFrames, ydim, xdim, 4, func(b []byte) int32 {
			return int32(binary.LittleEndian.Uint32(b))
		})
	case Int16:
		return readStack(r, numFrames, ydim, xdim, 2, func(b []byte) int16 {
			return int16(binary.LittleEndian.Uint16(b))
		})
	default:
		return readStack(r, numFrames, ydim, xdim, 2, binary.LittleEndian.Uint16)
	}
}

func readStack[T Sample](r io.Reader, frames, rows, cols, size int, conv func([]byte) T) (*FrameStack, error) {
	n, ok := sampleCount(frames, rows, cols)
	if !ok {
		return nil, fmt.Errorf("%w: (%d,%d,%d)", ErrInvalidShape, frames, rows, cols)
	}
	hi, total := bits.Mul64(uint64(n), uint64(size))
	if hi != 0 || total > math.MaxInt64 {
		return nil, fmt.Errorf("%w: (%d,%d,%d) exceeds addressable size", ErrInvalidShape, frames, rows, cols)
	}
	want := int64(total)

	data := make([]T, 0, min(n, maxPrealloc))
	buf := make([]byte, min(want, chunkSize/int64(size)*int64(size)))
	var read int64
	for read < want {
		chunk := buf[:min(int64(len(buf)), want-read)]
		got, err := io.ReadFull(r, chunk)
		read += int64(got)
		for off := 0; off+size <= got; off += size {
			data = append(data, conv(chunk[off:off+size]))
		}
		if err != nil {
			if errors.Is(err, io.ErrUnexpectedEOF) || errors.Is(err, io.EOF) {
				return nil, fmt.Errorf("%w: got %d of %d bytes", ErrTruncatedData, read, want)
			}
			return nil, err
		}
	}
	return wrap(&Stack[T]{frames: frames, rows: rows, cols: cols, data: data}), nil
}

// sampleCount returns frames*rows*cols, or false on negative input or overflow.
func sampleCount(frames, rows, cols int) (int, bool) {
	if frames < 0 || rows < 0 || cols < 0 {
		return 0, false
	}
	hi, fr := bits.Mul64(uint64(frames), uint64(rows))
	if hi != 0 {
		return 0, false
	}
	hi, n := bits.Mul64(fr, uint64(cols))
	if hi != 0 || n > math.MaxInt {
		return 0, false
	}
	return int(n), true
}

// WriteSamples writes every sample of the stack to w in file order,
// little-endian, without a header.
func (fs *FrameStack) WriteSamples(w io.Writer) error {
	switch {
	case fs.f32 != nil:
		return writeSamples(w, fs.f32.data, 4, func(b []byte, v float32) {
			binary.LittleEndian.PutUint32(b, math.Float32bits(v))
		})
	case fs.i32 != nil:
		return writeSamples(w, fs.i32.data, 4, func(b []byte, v int32) {
			binary.LittleEndian.PutUint32(b, uint32(v))
		})
	case fs.i16 != nil:
		return writeSamples(w, fs.i16.data, 2, func(b []byte, v int16) {
			binary.LittleEndian.PutUint16(b, uint16(v))
		})
	case fs.u16 != nil:
		return writeSamples(w, fs.u16.data, 2, binary.LittleEndian.PutUint16)
	}
	return nil
}

func writeSamples[T Sample](w io.Writer, data []T, size int, put func([]byte, T)) error {
	per := chunkSize / size
	buf := make([]byte, min(len(data), per)*size)
	for len(data) > 0 {
		k := min(len(data), per)
		for i, v := range data[:k] {
			put(buf[i*size:], v)
		}
		if _, err := w.Write(buf[:k*size]); err != nil {
			return err
		}
		data = data[k:]
	}
	return nil
}
