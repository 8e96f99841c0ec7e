package api

import (
	"bytes"
	"math"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/spectriclabs/spe-data-service/internal/numerical"
	"github.com/spectriclabs/spe-data-service/internal/spe"
)

type frameResponse struct {
	Frame    int    `json:"frame"`
	Rows     int    `json:"rows"`
	Cols     int    `json:"cols"`
	DataType string `json:"datatype"`
	Data     any    `json:"data"`
}

// GetFrame returns one frame as JSON rows (outfmt=json, the default) or as
// the little-endian samples stored in the file (outfmt=raw).
func (a *API) GetFrame(c echo.Context) error {
	src, frame, err := a.openFrame(c)
	if err != nil {
		return a.fail(c, err)
	}
	defer src.Close()

	_, fs, err := readFrame(src, frame)
	if err != nil {
		return a.fail(c, err)
	}
	_, rows, cols := fs.Shape()

	switch outfmt := c.QueryParam("outfmt"); outfmt {
	case "", "json":
		return c.JSON(http.StatusOK, frameResponse{
			Frame:    frame,
			Rows:     rows,
			Cols:     cols,
			DataType: fs.DataType().String(),
			Data:     frameRows(fs),
		})
	case "raw":
		var buf bytes.Buffer
		if err := fs.WriteSamples(&buf); err != nil {
			return a.fail(c, err)
		}
		setShapeHeaders(c, rows, cols, fs.DataType())
		return c.Blob(http.StatusOK, contentTypeBinary, buf.Bytes())
	default:
		return c.String(http.StatusBadRequest, "outfmt must be json or raw, got "+outfmt)
	}
}

func setShapeHeaders(c echo.Context, rows, cols int, dt spe.DataType) {
	h := c.Response().Header()
	h.Set(echo.HeaderAccessControlExposeHeaders, "xdim,ydim,datatype")
	h.Set("xdim", strconv.Itoa(cols))
	h.Set("ydim", strconv.Itoa(rows))
	h.Set("datatype", dt.String())
}

// frameRows returns the single frame of fs as typed rows. Non-finite float
// samples become null.
func frameRows(fs *spe.FrameStack) any {
	switch fs.DataType() {
	case spe.Float32:
		st, _ := fs.Float32s()
		frame := st.Frame(0)
		out := make([][]*float32, len(frame))
		for r, row := range frame {
			out[r] = make([]*float32, len(row))
			for i := range row {
				if v := float64(row[i]); !math.IsNaN(v) && !math.IsInf(v, 0) {
					out[r][i] = &row[i]
				}
			}
		}
		return out
	case spe.Int32:
		st, _ := fs.Int32s()
		return st.Frame(0)
	case spe.Int16:
		st, _ := fs.Int16s()
		return st.Frame(0)
	case spe.Uint16:
		st, _ := fs.Uint16s()
		return st.Frame(0)
	}
	return nil
}

type statsResponse struct {
	Frame  int             `json:"frame"`
	Cached bool            `json:"cached"`
	Stats  numerical.Stats `json:"stats"`
}

// GetFrameStats returns summary statistics of one frame. Results are kept in
// the stats store keyed by file version and frame.
func (a *API) GetFrameStats(c echo.Context) error {
	src, frame, err := a.openFrame(c)
	if err != nil {
		return a.fail(c, err)
	}
	defer src.Close()

	key := frameKey(c, src, frame)
	resp := statsResponse{Frame: frame}
	if a.Stats != nil {
		found, err := a.Stats.Get(key, &resp.Stats)
		if err != nil {
			a.Logger.Warn("Reading stats store", zap.String("key", key), zap.Error(err))
		} else if found {
			resp.Cached = true
			return c.JSON(http.StatusOK, resp)
		}
	}

	_, fs, err := readFrame(src, frame)
	if err != nil {
		return a.fail(c, err)
	}
	resp.Stats = numerical.FrameStats(fs.FrameFloat64(0))

	if a.Stats != nil {
		if err := a.Stats.Put(key, resp.Stats); err != nil {
			a.Logger.Warn("Writing stats store", zap.String("key", key), zap.Error(err))
		}
	}
	return c.JSON(http.StatusOK, resp)
}
