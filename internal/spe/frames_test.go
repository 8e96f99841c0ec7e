package spe

import (
	"bytes"
	"encoding/binary"
	"math"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func le16(vals ...uint16) []byte {
	b := make([]byte, 2*len(vals))
	for i, v := range vals {
		binary.LittleEndian.PutUint16(b[2*i:], v)
	}
	return b
}

func TestExtractFramesUint16(t *testing.T) {
	fs, err := ExtractFrames(bytes.NewReader(le16(1, 2, 3, 4)), 2, 2, 1, Uint16)
	require.NoError(t, err)
	assert.Equal(t, Uint16, fs.DataType())

	frames, rows, cols := fs.Shape()
	assert.Equal(t, []int{1, 2, 2}, []int{frames, rows, cols})

	st, ok := fs.Uint16s()
	require.True(t, ok)
	if diff := cmp.Diff([][]uint16{{1, 2}, {3, 4}}, st.Frame(0)); diff != "" {
		t.Errorf("frame 0 mismatch (-want +got):\n%s", diff)
	}
	assert.Equal(t, 3.0, fs.At(0, 1, 0))
	assert.Equal(t, []float64{1, 2, 3, 4}, fs.FrameFloat64(0))

	_, ok = fs.Float32s()
	assert.False(t, ok)
}

func TestExtractFramesPerDataType(t *testing.T) {
	const xdim, ydim, nf = 3, 2, 2
	n := xdim * ydim * nf

	tests := []struct {
		name  string
		dt    DataType
		bytes []byte
		check func(t *testing.T, fs *FrameStack)
	}{
		{
			name: "float32",
			dt:   Float32,
			bytes: func() []byte {
				b := make([]byte, 4*n)
				for i := 0; i < n; i++ {
					binary.LittleEndian.PutUint32(b[4*i:], math.Float32bits(float32(i)-0.5))
				}
				return b
			}(),
			check: func(t *testing.T, fs *FrameStack) {
				st, ok := fs.Float32s()
				require.True(t, ok)
				assert.Equal(t, float32(-0.5), st.At(0, 0, 0))
				assert.Equal(t, float32(10.5), st.At(1, 1, 2))
			},
		},
		{
			name: "int32",
			dt:   Int32,
			bytes: func() []byte {
				b := make([]byte, 4*n)
				for i := 0; i < n; i++ {
					binary.LittleEndian.PutUint32(b[4*i:], uint32(int32(-100000*i)))
				}
				return b
			}(),
			check: func(t *testing.T, fs *FrameStack) {
				st, ok := fs.Int32s()
				require.True(t, ok)
				assert.Equal(t, int32(-600000), st.At(1, 0, 0))
				assert.Equal(t, int32(-1100000), st.At(1, 1, 2))
			},
		},
		{
			name: "int16",
			dt:   Int16,
			bytes: func() []byte {
				b := make([]byte, 2*n)
				for i := 0; i < n; i++ {
					binary.LittleEndian.PutUint16(b[2*i:], uint16(int16(-i)))
				}
				return b
			}(),
			check: func(t *testing.T, fs *FrameStack) {
				st, ok := fs.Int16s()
				require.True(t, ok)
				assert.Equal(t, int16(-4), st.At(0, 1, 1))
				assert.Equal(t, -11.0, fs.At(1, 1, 2))
			},
		},
		{
			name: "uint16",
			dt:   Uint16,
			bytes: func() []byte {
				b := make([]byte, 2*n)
				for i := 0; i < n; i++ {
					binary.LittleEndian.PutUint16(b[2*i:], uint16(65535-i))
				}
				return b
			}(),
			check: func(t *testing.T, fs *FrameStack) {
				st, ok := fs.Uint16s()
				require.True(t, ok)
				assert.Equal(t, uint16(65535), st.At(0, 0, 0))
				assert.Equal(t, uint16(65524), st.At(1, 1, 2))
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Len(t, tt.bytes, n*tt.dt.Size())
			r := bytes.NewReader(append(tt.bytes, 0xEE))
			fs, err := ExtractFrames(r, xdim, ydim, nf, tt.dt)
			require.NoError(t, err)
			assert.Equal(t, tt.dt, fs.DataType())
			assert.Equal(t, nf, fs.Len())
			assert.Equal(t, 1, r.Len(), "trailing bytes must be left unread")
			tt.check(t, fs)
		})
	}
}

func TestExtractFramesEmpty(t *testing.T) {
	shapes := [][3]int{{0, 4, 2}, {4, 0, 2}, {4, 2, 0}, {0, 0, 0}}
	for _, s := range shapes {
		fs, err := ExtractFrames(bytes.NewReader(nil), s[0], s[1], s[2], Int16)
		require.NoError(t, err, "shape %v", s)
		frames, rows, cols := fs.Shape()
		assert.Equal(t, s[2], frames)
		assert.Equal(t, s[1], rows)
		assert.Equal(t, s[0], cols)
		st, _ := fs.Int16s()
		assert.Empty(t, st.Data())
	}
}

func TestExtractFramesTruncated(t *testing.T) {
	for _, dt := range []DataType{Float32, Int32, Int16, Uint16} {
		full := 4 * 3 * 2 * dt.Size()
		_, err := ExtractFrames(bytes.NewReader(make([]byte, full-1)), 4, 3, 2, dt)
		assert.ErrorIs(t, err, ErrTruncatedData, dt.String())

		_, err = ExtractFrames(bytes.NewReader(nil), 4, 3, 2, dt)
		assert.ErrorIs(t, err, ErrTruncatedData, dt.String())
	}
}

func TestExtractFramesUnsupportedDataType(t *testing.T) {
	for _, dt := range []DataType{-1, 4, 7} {
		r := bytes.NewReader(make([]byte, 64))
		_, err := ExtractFrames(r, 2, 2, 1, dt)
		assert.ErrorIs(t, err, ErrUnsupportedDataType)
		assert.Equal(t, 64, r.Len(), "nothing may be read for datatype %d", dt)
	}
}

func TestExtractFramesInvalidShape(t *testing.T) {
	_, err := ExtractFrames(bytes.NewReader(nil), -1, 2, 1, Int16)
	assert.ErrorIs(t, err, ErrInvalidShape)

	_, err = ExtractFrames(bytes.NewReader(nil), math.MaxInt/2, math.MaxInt/2, 4, Int16)
	assert.ErrorIs(t, err, ErrInvalidShape)
}

func TestExtractFramesSpansChunks(t *testing.T) {
	// 300x200 uint16 samples is larger than a single read chunk.
	const xdim, ydim = 300, 200
	vals := make([]uint16, xdim*ydim)
	for i := range vals {
		vals[i] = uint16(i * 7)
	}
	fs, err := ExtractFrames(bytes.NewReader(le16(vals...)), xdim, ydim, 1, Uint16)
	require.NoError(t, err)
	st, _ := fs.Uint16s()
	assert.Equal(t, vals, st.Data())
	assert.Equal(t, vals[xdim*ydim-1], st.At(0, ydim-1, xdim-1))
}

func TestExtractFramesPropagatesReadError(t *testing.T) {
	boom := &readError{msg: "connection reset"}
	_, err := ExtractFrames(&failingReader{data: make([]byte, 6), err: boom}, 4, 4, 1, Uint16)
	assert.Same(t, boom, err)
}

func TestStackBounds(t *testing.T) {
	fs, err := NewFrameStack(2, 1, 2, []int32{1, 2, 3, 4})
	require.NoError(t, err)
	st, _ := fs.Int32s()
	assert.Equal(t, [][]int32{{3, 4}}, st.Frame(1))
	assert.Panics(t, func() { st.At(2, 0, 0) })
	assert.Panics(t, func() { st.At(0, 0, 2) })
	assert.Panics(t, func() { st.Frame(-1) })

	_, err = NewFrameStack(2, 2, 2, []int32{1, 2, 3})
	assert.ErrorIs(t, err, ErrInvalidShape)
}

func TestZeroFrameStack(t *testing.T) {
	var fs FrameStack
	frames, rows, cols := fs.Shape()
	assert.Equal(t, [3]int{0, 0, 0}, [3]int{frames, rows, cols})
	assert.Equal(t, 0, fs.Len())
	assert.Panics(t, func() { fs.At(0, 0, 0) })
	assert.Panics(t, func() { fs.FrameFloat64(0) })

	var buf bytes.Buffer
	require.NoError(t, fs.WriteSamples(&buf))
	assert.Zero(t, buf.Len())
}
