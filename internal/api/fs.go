package api

import (
	"net/http"
	"path"
	"strings"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/spectriclabs/spe-data-service/internal/spe"
)

const (
	contentTypeSPE    = "application/x-spe"
	contentTypeBinary = "application/octet-stream"
)

func (a *API) GetFileLocations(c echo.Context) error {
	return c.JSON(http.StatusOK, a.Cfg.LocationDetails)
}

// GetFileOrDirectory returns the listing of a directory, or the raw contents
// of a file.
func (a *API) GetFileOrDirectory(c echo.Context) error {
	filePath := c.Param("*")
	locationName := c.Param("location")

	isDir, err := a.Source.IsDir(locationName, filePath)
	if err != nil {
		return a.fail(c, err)
	}
	if isDir {
		a.Logger.Debug("Path is a directory; returning directory listing", zap.String("path", filePath))
		entries, err := a.Source.List(c.Request().Context(), locationName, filePath)
		if err != nil {
			return a.fail(c, err)
		}
		return c.JSON(http.StatusOK, entries)
	}

	a.Logger.Debug("Path is a file; returning contents in raw mode", zap.String("path", filePath))
	src, err := a.Source.Open(c.Request().Context(), locationName, filePath)
	if err != nil {
		return a.fail(c, err)
	}
	defer src.Close()

	contentType := contentTypeBinary
	if strings.EqualFold(path.Ext(filePath), ".spe") {
		contentType = contentTypeSPE
	}
	return c.Stream(http.StatusOK, contentType, src)
}

type headerResponse struct {
	Summary spe.Summary      `json:"summary"`
	Fields  []spe.NamedValue `json:"fields"`
}

// GetHeader decodes only the 4100 byte header of a file. With ?field=name a
// single named field is returned.
func (a *API) GetHeader(c echo.Context) error {
	src, err := a.Source.Open(c.Request().Context(), c.Param("location"), c.Param("*"))
	if err != nil {
		return a.fail(c, err)
	}
	defer src.Close()

	h, err := spe.DecodeHeader(src)
	if err != nil {
		return a.fail(c, err)
	}

	if name := c.QueryParam("field"); name != "" {
		v, err := h.FieldValue(name)
		if err != nil {
			return a.fail(c, err)
		}
		return c.JSON(http.StatusOK, v)
	}
	return c.JSON(http.StatusOK, headerResponse{Summary: h.Summary(), Fields: h.Values()})
}
