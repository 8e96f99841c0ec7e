package api

import (
	"fmt"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/spectriclabs/spe-data-service/internal/numerical"
	"github.com/spectriclabs/spe-data-service/internal/spe"
)

// GetRDSXCut returns row :line of a frame resampled to :outsize values.
// Optional x1/x2 query parameters restrict the cut to columns [x1,x2), which
// is how single-line spectra are zoomed.
func (a *API) GetRDSXCut(c echo.Context) error {
	return a.getXYCut(c, true)
}

// GetRDSYCut returns column :line of a frame resampled to :outsize values.
// Optional y1/y2 query parameters restrict the cut to rows [y1,y2).
func (a *API) GetRDSYCut(c echo.Context) error {
	return a.getXYCut(c, false)
}

func (a *API) getXYCut(c echo.Context, xcut bool) error {
	line, err := intParam(c, "line", 0)
	if err != nil {
		return a.fail(c, err)
	}
	outsize, err := intParam(c, "outsize", 1)
	if err != nil {
		return a.fail(c, err)
	}
	params, err := parseReduceParams(c)
	if err != nil {
		return a.fail(c, err)
	}
	lo, hi := "x1", "x2"
	if !xcut {
		lo, hi = "y1", "y2"
	}
	src, frame, err := a.openFrame(c)
	if err != nil {
		return a.fail(c, err)
	}
	defer src.Close()

	return a.serveCached(c, src, func() ([]float64, FileMetaData, error) {
		_, fs, err := readFrame(src, frame)
		if err != nil {
			return nil, FileMetaData{}, err
		}
		_, rows, cols := fs.Shape()
		cut, err := extractCut(fs, line, xcut)
		if err != nil {
			return nil, FileMetaData{}, err
		}
		start, end, err := rangeParams(c, lo, hi, len(cut))
		if err != nil {
			return nil, FileMetaData{}, err
		}
		scaled, zmin, zmax, err := numerical.ApplyCXmode(cut[start:end], params.cxmode)
		if err != nil {
			return nil, FileMetaData{}, err
		}
		out := make([]float64, outsize)
		numerical.DownSampleLineInX(scaled, outsize, params.transform, out, 0)

		meta := FileMetaData{
			Outxsize:  outsize,
			Outysize:  1,
			Zmin:      zmin,
			Zmax:      zmax,
			Xdim:      cols,
			Ydim:      rows,
			Frame:     frame,
			Transform: params.transform,
			Cxmode:    params.cxmode,
		}
		return out, meta, nil
	})
}

// extractCut copies row line (xcut) or column line of the only frame in fs.
func extractCut(fs *spe.FrameStack, line int, xcut bool) ([]float64, error) {
	_, rows, cols := fs.Shape()
	frame := fs.FrameFloat64(0)
	if xcut {
		if line >= rows {
			return nil, fmt.Errorf("%w: row %d not in [0,%d)", errBadParam, line, rows)
		}
		return frame[line*cols : (line+1)*cols], nil
	}
	if line >= cols {
		return nil, fmt.Errorf("%w: column %d not in [0,%d)", errBadParam, line, cols)
	}
	out := make([]float64, rows)
	for r := range out {
		out[r] = frame[r*cols+line]
	}
	return out, nil
}

// rangeParams reads the optional [lo,hi) query bounds, defaulting to the full
// length n.
func rangeParams(c echo.Context, lo, hi string, n int) (int, int, error) {
	start, end := 0, n
	var err error
	if v := c.QueryParam(lo); v != "" {
		if start, err = strconv.Atoi(v); err != nil {
			return 0, 0, fmt.Errorf("%w: %s=%q", errBadParam, lo, v)
		}
	}
	if v := c.QueryParam(hi); v != "" {
		if end, err = strconv.Atoi(v); err != nil {
			return 0, 0, fmt.Errorf("%w: %s=%q", errBadParam, hi, v)
		}
	}
	if start < 0 || end > n || start >= end {
		return 0, 0, fmt.Errorf("%w: range [%d,%d) outside [0,%d)", errBadParam, start, end, n)
	}
	return start, end, nil
}
