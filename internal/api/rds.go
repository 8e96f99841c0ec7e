package api

import (
	"bytes"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/spectriclabs/spe-data-service/internal/cache"
	"github.com/spectriclabs/spe-data-service/internal/datasource"
	"github.com/spectriclabs/spe-data-service/internal/numerical"
)

// FileMetaData describes a reduced output; it is cached next to the data and
// returned in response headers.
type FileMetaData struct {
	Outxsize  int     `json:"outxsize"`
	Outysize  int     `json:"outysize"`
	Zmin      float64 `json:"zmin"`
	Zmax      float64 `json:"zmax"`
	Xdim      int     `json:"xdim"`
	Ydim      int     `json:"ydim"`
	Frame     int     `json:"frame"`
	Transform string  `json:"transform"`
	Cxmode    string  `json:"cxmode"`
}

type reduceParams struct {
	transform string
	cxmode    string
}

func parseReduceParams(c echo.Context) (reduceParams, error) {
	p := reduceParams{transform: c.QueryParam("transform"), cxmode: c.QueryParam("cxmode")}
	if p.transform == "" {
		p.transform = "mean"
	}
	if p.cxmode == "" {
		p.cxmode = "Re"
	}
	if !numerical.ValidTransform(p.transform) {
		return p, fmt.Errorf("%w: transform must be one of %v, got %q", errBadParam, numerical.Transforms, p.transform)
	}
	return p, nil
}

// GetRDS returns a frame decimated to outysize lines of outxsize values,
// encoded as little-endian float64.
//
// The URL is of the form:
// /spe/rds/:location/:frame/:outxsize/:outysize/*filepath?transform=mean&cxmode=Re
func (a *API) GetRDS(c echo.Context) error {
	outxsize, err := intParam(c, "outxsize", 1)
	if err != nil {
		return a.fail(c, err)
	}
	outysize, err := intParam(c, "outysize", 1)
	if err != nil {
		return a.fail(c, err)
	}
	params, err := parseReduceParams(c)
	if err != nil {
		return a.fail(c, err)
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
		scaled, zmin, zmax, err := numerical.ApplyCXmode(fs.FrameFloat64(0), params.cxmode)
		if err != nil {
			return nil, FileMetaData{}, err
		}
		out, err := numerical.Decimate(scaled, rows, cols, outxsize, outysize, params.transform)
		if err != nil {
			return nil, FileMetaData{}, err
		}
		return out, FileMetaData{
			Outxsize:  outxsize,
			Outysize:  outysize,
			Zmin:      zmin,
			Zmax:      zmax,
			Xdim:      cols,
			Ydim:      rows,
			Frame:     frame,
			Transform: params.transform,
			Cxmode:    params.cxmode,
		}, nil
	})
}

// serveCached answers the request from the output cache when possible and
// otherwise runs compute and stores its result.
func (a *API) serveCached(c echo.Context, src *datasource.Source, compute func() ([]float64, FileMetaData, error)) error {
	start := time.Now()
	cacheFileName := cache.UrlToCacheFileName(fmt.Sprintf("%s_%d_%d", c.Request().URL.String(), src.Size, src.ModTime.UnixNano()))

	var data []byte
	var meta FileMetaData
	inCache := false
	// Check if request has been previously processed and is in cache. If not process request.
	if a.Cfg.UseCache {
		var dataErr error
		data, dataErr = a.Cache.GetDataFromCache(cacheFileName, cache.OutputDir)
		metaJSON, metaErr := a.Cache.GetDataFromCache(cacheFileName+"meta", cache.OutputDir)
		if dataErr == nil && metaErr == nil && json.Unmarshal(metaJSON, &meta) == nil {
			inCache = true
		}
	}

	if !inCache {
		a.Logger.Debug("Request not in cache, computing result", zap.String("cache_name", cacheFileName))
		values, m, err := compute()
		if err != nil {
			return a.fail(c, err)
		}
		var buf bytes.Buffer
		if err := binary.Write(&buf, binary.LittleEndian, values); err != nil {
			return a.fail(c, err)
		}
		data, meta = buf.Bytes(), m

		if a.Cfg.UseCache {
			metaJSON, err := json.Marshal(meta)
			if err != nil {
				return a.fail(c, err)
			}
			if err := a.Cache.PutItemInCache(cacheFileName, cache.OutputDir, data); err != nil {
				a.Logger.Warn("Unable to cache output", zap.Error(err))
			} else if err := a.Cache.PutItemInCache(cacheFileName+"meta", cache.OutputDir, metaJSON); err != nil {
				a.Logger.Warn("Unable to cache output metadata", zap.Error(err))
			}
		}
	} else {
		a.Logger.Debug("Request in cache - returning data from cache", zap.String("cache_name", cacheFileName))
	}

	a.Logger.Info("Processed request",
		zap.String("uri", c.Request().RequestURI),
		zap.Int("bytes", len(data)),
		zap.Bool("cached", inCache),
		zap.Duration("elapsed", time.Since(start)),
	)

	// Create a Return header with some metadata in it.
	h := c.Response().Header()
	h.Set(echo.HeaderAccessControlExposeHeaders, "outxsize,outysize,zmin,zmax,xdim,ydim,frame")
	h.Set("outxsize", strconv.Itoa(meta.Outxsize))
	h.Set("outysize", strconv.Itoa(meta.Outysize))
	h.Set("zmin", fmt.Sprintf("%f", meta.Zmin))
	h.Set("zmax", fmt.Sprintf("%f", meta.Zmax))
	h.Set("xdim", strconv.Itoa(meta.Xdim))
	h.Set("ydim", strconv.Itoa(meta.Ydim))
	h.Set("frame", strconv.Itoa(meta.Frame))
	return c.Blob(http.StatusOK, contentTypeBinary, data)
}
