package api

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strconv"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/spectriclabs/spe-data-service/internal/cache"
	"github.com/spectriclabs/spe-data-service/internal/config"
	"github.com/spectriclabs/spe-data-service/internal/datasource"
	"github.com/spectriclabs/spe-data-service/internal/numerical"
	"github.com/spectriclabs/spe-data-service/internal/spe"
)

type API struct {
	Cfg    *config.Config
	Cache  *cache.Cache
	Source *datasource.DataSource
	// Stats is optional; without it statistics are computed on every request.
	Stats  *cache.StatsStore
	Logger *zap.Logger
}

func NewSPEAPI(cfg *config.Config, logger *zap.Logger, stats *cache.StatsStore) *API {
	c := cache.New(cfg.CacheLocation, logger)
	return &API{
		Cfg:    cfg,
		Cache:  c,
		Source: datasource.New(cfg, c, logger),
		Stats:  stats,
		Logger: logger,
	}
}

// RegisterRoutes binds every handler below /spe.
func (a *API) RegisterRoutes(e *echo.Echo) {
	g := e.Group("/spe")

	// File-specific routes
	g.GET("/fs", a.GetFileLocations)
	g.GET("/fs/:location/*", a.GetFileOrDirectory)
	g.GET("/hdr/:location/*", a.GetHeader)

	// Data-service routes
	g.GET("/frame/:location/:frame/*", a.GetFrame)
	g.GET("/stats/:location/:frame/*", a.GetFrameStats)
	g.GET("/rds/:location/:frame/:outxsize/:outysize/*", a.GetRDS)
	g.GET("/rdsxcut/:location/:frame/:line/:outsize/*", a.GetRDSXCut)
	g.GET("/rdsycut/:location/:frame/:line/:outsize/*", a.GetRDSYCut)
}

var errBadParam = errors.New("bad parameter")

// statusFor maps an error from the lower layers to an HTTP status.
func statusFor(err error) int {
	switch {
	case errors.Is(err, spe.ErrTruncatedHeader),
		errors.Is(err, spe.ErrTruncatedData),
		errors.Is(err, spe.ErrUnsupportedDataType),
		errors.Is(err, spe.ErrInvalidShape):
		return http.StatusUnprocessableEntity
	case errors.Is(err, datasource.ErrUnknownLocation),
		errors.Is(err, datasource.ErrUnsupportedLocation),
		errors.Is(err, spe.ErrFrameOutOfRange),
		errors.Is(err, spe.ErrUnknownField),
		errors.Is(err, numerical.ErrBadRequest),
		errors.Is(err, errBadParam):
		return http.StatusBadRequest
	case errors.Is(err, os.ErrNotExist):
		return http.StatusNotFound
	}
	return http.StatusInternalServerError
}

func (a *API) fail(c echo.Context, err error) error {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		a.Logger.Error("Request failed", zap.String("uri", c.Request().RequestURI), zap.Error(err))
	} else {
		a.Logger.Debug("Request rejected", zap.String("uri", c.Request().RequestURI), zap.Int("status", status), zap.Error(err))
	}
	return c.String(status, err.Error())
}

func intParam(c echo.Context, name string, lo int) (int, error) {
	v, err := strconv.Atoi(c.Param(name))
	if err != nil || v < lo {
		return 0, fmt.Errorf("%w: %s must be an integer >= %d, got %q", errBadParam, name, lo, c.Param(name))
	}
	return v, nil
}

// openFrame opens the file named by the request and parses the :frame
// parameter. The caller closes the source.
func (a *API) openFrame(c echo.Context) (*datasource.Source, int, error) {
	frame, err := intParam(c, "frame", 0)
	if err != nil {
		return nil, 0, err
	}
	src, err := a.Source.Open(c.Request().Context(), c.Param("location"), c.Param("*"))
	if err != nil {
		return nil, 0, err
	}
	return src, frame, nil
}

// frameKey identifies one frame of one version of a file.
func frameKey(c echo.Context, src *datasource.Source, frame int) string {
	return fmt.Sprintf("%s/%s@%d:%d#%d", c.Param("location"), src.Name, src.Size, src.ModTime.UnixNano(), frame)
}

// readFrame decodes the header of src and extracts frame i.
func readFrame(src io.ReadSeeker, i int) (*spe.Header, *spe.FrameStack, error) {
	h, err := spe.DecodeHeader(src)
	if err != nil {
		return nil, nil, err
	}
	fs, err := spe.ReadFrame(src, h, i)
	if err != nil {
		return nil, nil, err
	}
	return h, fs, nil
}
