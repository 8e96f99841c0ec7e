package spe

import (
	"bytes"
	"fmt"
	"math"
	"reflect"
	"strconv"
)

// TrimString converts a fixed-length character field to a string, cutting at
// the first NUL and dropping trailing spaces.
func TrimString(b []byte) string {
	if i := bytes.IndexByte(b, 0); i >= 0 {
		b = b[:i]
	}
	return string(bytes.TrimRight(b, " "))
}

// Summary is the subset of the header most callers care about.
type Summary struct {
	XDim        int      `json:"xdim"`
	YDim        int      `json:"ydim"`
	NumFrames   int      `json:"num_frames"`
	DataType    string   `json:"datatype"`
	Bpe         int      `json:"bpe"` // bytes per element
	FrameBytes  int      `json:"frame_bytes"`
	XDimDet     int      `json:"xdim_det"`
	YDimDet     int      `json:"ydim_det"`
	ExposureSec float32  `json:"exposure_sec"`
	Date        string   `json:"date"`
	TimeLocal   string   `json:"time_local"`
	TimeUTC     string   `json:"time_utc"`
	SWVersion   string   `json:"sw_version"`
	XLabel      string   `json:"xlabel"`
	YLabel      string   `json:"ylabel"`
	DLabel      string   `json:"dlabel"`
	Comments    []string `json:"comments"`
	NumROI      int      `json:"num_roi"`
	WinX        bool     `json:"winx"`
}

// Summary extracts geometry, encoding and labels with char fields trimmed.
func (h *Header) Summary() Summary {
	s := Summary{
		XDim:        int(h.XDim),
		YDim:        int(h.YDim),
		NumFrames:   int(h.NumFrames),
		DataType:    h.DataType.String(),
		Bpe:         h.DataType.Size(),
		XDimDet:     int(h.XDimDet),
		YDimDet:     int(h.YDimDet),
		ExposureSec: h.ExpSec,
		Date:        TrimString(h.Date[:]),
		TimeLocal:   TrimString(h.ExperimentTimeLocal[:]),
		TimeUTC:     TrimString(h.ExperimentTimeUTC[:]),
		SWVersion:   TrimString(h.SWVersion[:]),
		XLabel:      TrimString(h.XLabel[:]),
		YLabel:      TrimString(h.YLabel[:]),
		DLabel:      TrimString(h.DLabel[:]),
		NumROI:      int(h.NumROI),
		WinX:        h.WinViewID == WinViewID,
	}
	s.FrameBytes = s.XDim * s.YDim * s.Bpe
	if f := float64(s.ExposureSec); math.IsNaN(f) || math.IsInf(f, 0) {
		s.ExposureSec = 0
	}
	for i := range h.Comments {
		s.Comments = append(s.Comments, TrimString(h.Comments[i][:]))
	}
	return s
}

// NamedValue is one header field ready for display.
type NamedValue struct {
	FieldInfo
	Value any `json:"value"`
}

// Values returns every header field in offset order. Character arrays are
// trimmed to strings; numeric values and arrays are returned as decoded.
func (h *Header) Values() []NamedValue {
	out := make([]NamedValue, len(headerFields))
	for i, f := range headerFields {
		out[i] = NamedValue{
			FieldInfo: FieldInfo{Name: f.name, Offset: f.offset, Size: f.size},
			Value:     display(reflect.ValueOf(f.ref(h)).Elem()),
		}
	}
	return out
}

// FieldValue returns one header field the way Values presents it.
func (h *Header) FieldValue(name string) (NamedValue, error) {
	i, ok := headerFieldIndex[name]
	if !ok {
		return NamedValue{}, fmt.Errorf("%w: %q", ErrUnknownField, name)
	}
	f := headerFields[i]
	return NamedValue{
		FieldInfo: FieldInfo{Name: f.name, Offset: f.offset, Size: f.size},
		Value:     display(reflect.ValueOf(f.ref(h)).Elem()),
	}, nil
}

func display(v reflect.Value) any {
	if v.Kind() != reflect.Array {
		return scalar(v)
	}
	if v.Type().Elem().Kind() == reflect.Uint8 {
		b := make([]byte, v.Len())
		for i := range b {
			b[i] = byte(v.Index(i).Uint())
		}
		return TrimString(b)
	}
	out := make([]any, v.Len())
	for i := range out {
		out[i] = display(v.Index(i))
	}
	return out
}

// scalar returns v as is, except non-finite floats which become strings so
// the result stays JSON encodable.
func scalar(v reflect.Value) any {
	switch v.Kind() {
	case reflect.Float32, reflect.Float64:
		if f := v.Float(); math.IsNaN(f) || math.IsInf(f, 0) {
			return strconv.FormatFloat(f, 'g', -1, 64)
		}
	}
	return v.Interface()
}
