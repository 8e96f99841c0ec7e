package api

import (
	"bytes"
	"encoding/binary"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/spectriclabs/spe-data-service/internal/cache"
	"github.com/spectriclabs/spe-data-service/internal/config"
	"github.com/spectriclabs/spe-data-service/internal/spe"
)

// run1.spe holds two uint16 frames of 2 rows by 3 columns.
var run1 = [][]uint16{
	{1, 2, 3, 4, 5, 6},
	{10, 20, 30, 40, 50, 60},
}

func writeSPE(t *testing.T, path string, h *spe.Header, fs *spe.FrameStack) {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, spe.Encode(&buf, h, fs))
	require.NoError(t, os.WriteFile(path, buf.Bytes(), 0o644))
}

func newTestAPI(t *testing.T) (*API, *echo.Echo) {
	t.Helper()
	root := t.TempDir()

	h := &spe.Header{ExpSec: 0.5, WinViewID: spe.WinViewID}
	copy(h.SWVersion[:], "2.5.25")
	fs, err := spe.NewFrameStack(2, 2, 3, append(append([]uint16{}, run1[0]...), run1[1]...))
	require.NoError(t, err)
	writeSPE(t, filepath.Join(root, "run1.spe"), h, fs)

	bad := &spe.Header{XDim: 2, YDim: 2, NumFrames: 1, DataType: 7}
	raw, err := bad.MarshalBinary()
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(root, "bad.spe"), append(raw, make([]byte, 8)...), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(root, "short.spe"), make([]byte, 100), 0o644))
	require.NoError(t, os.Mkdir(filepath.Join(root, "archive"), 0o755))

	cfg := &config.Config{
		UseCache:      true,
		CacheLocation: t.TempDir(),
		LocationDetails: []config.Location{
			{LocationName: "local", LocationType: config.LocalFile, Path: root},
			{LocationName: "lab", LocationType: config.Minio, Location: "127.0.0.1:1", MinioBucket: "spedata", MinioSecretKey: "s3cr3t"},
		},
	}
	stats, err := cache.OpenStatsStore(filepath.Join(t.TempDir(), "stats.db"))
	require.NoError(t, err)
	t.Cleanup(func() { stats.Close() })

	a := NewSPEAPI(cfg, zap.NewNop(), stats)
	require.NoError(t, a.Cache.Setup())
	e := echo.New()
	a.RegisterRoutes(e)
	return a, e
}

func get(t *testing.T, e *echo.Echo, url string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, url, nil)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func decodeFloats(t *testing.T, body []byte) []float64 {
	t.Helper()
	require.Zero(t, len(body)%8)
	out := make([]float64, len(body)/8)
	require.NoError(t, binary.Read(bytes.NewReader(body), binary.LittleEndian, out))
	return out
}

func TestFS(t *testing.T) {
	a, e := newTestAPI(t)
	rec := get(t, e, "/spe/fs")
	require.Equal(t, http.StatusOK, rec.Code)

	want, err := json.Marshal(a.Cfg.LocationDetails)
	require.NoError(t, err)
	assert.JSONEq(t, string(want), rec.Body.String())
	assert.NotContains(t, rec.Body.String(), "s3cr3t")
}

func TestFSDir(t *testing.T) {
	_, e := newTestAPI(t)
	rec := get(t, e, "/spe/fs/local/")
	require.Equal(t, http.StatusOK, rec.Code)

	var entries []struct {
		Filename string `json:"filename"`
		Type     string `json:"type"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &entries))
	require.Len(t, entries, 4)
	assert.Equal(t, "archive", entries[0].Filename)
	assert.Equal(t, "directory", entries[0].Type)
	assert.Equal(t, "run1.spe", entries[2].Filename)
	assert.Equal(t, "file", entries[2].Type)
}

func TestFSFile(t *testing.T) {
	_, e := newTestAPI(t)
	rec := get(t, e, "/spe/fs/local/run1.spe")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, contentTypeSPE, rec.Header().Get(echo.HeaderContentType))
	assert.Equal(t, spe.HeaderSize+2*2*3*2, rec.Body.Len())
}

func TestFSErrors(t *testing.T) {
	_, e := newTestAPI(t)
	assert.Equal(t, http.StatusBadRequest, get(t, e, "/spe/fs/nowhere/run1.spe").Code)
	assert.Equal(t, http.StatusNotFound, get(t, e, "/spe/fs/local/missing.spe").Code)
}

func TestHeader(t *testing.T) {
	_, e := newTestAPI(t)
	rec := get(t, e, "/spe/hdr/local/run1.spe")
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Summary spe.Summary       `json:"summary"`
		Fields  []json.RawMessage `json:"fields"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, 3, resp.Summary.XDim)
	assert.Equal(t, 2, resp.Summary.YDim)
	assert.Equal(t, 2, resp.Summary.NumFrames)
	assert.Equal(t, "uint16", resp.Summary.DataType)
	assert.Equal(t, "2.5.25", resp.Summary.SWVersion)
	assert.True(t, resp.Summary.WinX)
	assert.Len(t, resp.Fields, len(spe.Fields()))
}

func TestHeaderField(t *testing.T) {
	_, e := newTestAPI(t)
	rec := get(t, e, "/spe/hdr/local/run1.spe?field=xdim")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"name":"xdim","offset":42,"size":2,"value":3}`, rec.Body.String())

	rec = get(t, e, "/spe/hdr/local/run1.spe?field=sw_version")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"name":"sw_version","offset":688,"size":16,"value":"2.5.25"}`, rec.Body.String())

	assert.Equal(t, http.StatusBadRequest, get(t, e, "/spe/hdr/local/run1.spe?field=bogus").Code)
}

func TestHeaderErrors(t *testing.T) {
	_, e := newTestAPI(t)
	rec := get(t, e, "/spe/hdr/local/short.spe")
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Contains(t, rec.Body.String(), "truncated header")

	assert.Equal(t, http.StatusNotFound, get(t, e, "/spe/hdr/local/missing.spe").Code)
}

func TestFrameJSON(t *testing.T) {
	_, e := newTestAPI(t)
	rec := get(t, e, "/spe/frame/local/1/run1.spe")
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Frame    int        `json:"frame"`
		Rows     int        `json:"rows"`
		Cols     int        `json:"cols"`
		DataType string     `json:"datatype"`
		Data     [][]uint16 `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, 1, resp.Frame)
	assert.Equal(t, 2, resp.Rows)
	assert.Equal(t, 3, resp.Cols)
	assert.Equal(t, "uint16", resp.DataType)
	assert.Equal(t, [][]uint16{{10, 20, 30}, {40, 50, 60}}, resp.Data)
}

func TestFrameRaw(t *testing.T) {
	_, e := newTestAPI(t)
	rec := get(t, e, "/spe/frame/local/0/run1.spe?outfmt=raw")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "3", rec.Header().Get("xdim"))
	assert.Equal(t, "2", rec.Header().Get("ydim"))

	got := make([]uint16, 6)
	require.NoError(t, binary.Read(bytes.NewReader(rec.Body.Bytes()), binary.LittleEndian, got))
	assert.Equal(t, run1[0], got)

	assert.Equal(t, http.StatusBadRequest, get(t, e, "/spe/frame/local/0/run1.spe?outfmt=png").Code)
}

func TestFrameErrors(t *testing.T) {
	_, e := newTestAPI(t)
	expected := []struct {
		URL    string
		Status int
	}{
		{URL: "/spe/frame/local/2/run1.spe", Status: http.StatusBadRequest},
		{URL: "/spe/frame/local/x/run1.spe", Status: http.StatusBadRequest},
		{URL: "/spe/frame/local/-1/run1.spe", Status: http.StatusBadRequest},
		{URL: "/spe/frame/local/0/bad.spe", Status: http.StatusUnprocessableEntity},
		{URL: "/spe/frame/local/0/short.spe", Status: http.StatusUnprocessableEntity},
		{URL: "/spe/frame/local/0/missing.spe", Status: http.StatusNotFound},
		{URL: "/spe/frame/nowhere/0/run1.spe", Status: http.StatusBadRequest},
	}
	for _, exp := range expected {
		assert.Equal(t, exp.Status, get(t, e, exp.URL).Code, exp.URL)
	}
}

func TestFrameStats(t *testing.T) {
	_, e := newTestAPI(t)
	var resp statsResponse

	rec := get(t, e, "/spe/stats/local/1/run1.spe")
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.False(t, resp.Cached)
	assert.Equal(t, 6, resp.Stats.Count)
	assert.Equal(t, 10.0, resp.Stats.Min)
	assert.Equal(t, 60.0, resp.Stats.Max)
	assert.Equal(t, 35.0, resp.Stats.Mean)
	assert.Equal(t, 5, resp.Stats.ArgMax)

	rec = get(t, e, "/spe/stats/local/1/run1.spe")
	require.Equal(t, http.StatusOK, rec.Code)
	first := resp.Stats
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.True(t, resp.Cached)
	assert.Equal(t, first, resp.Stats)
}

func TestRDS(t *testing.T) {
	a, e := newTestAPI(t)
	url := "/spe/rds/local/0/3/1/run1.spe?transform=max"

	rec := get(t, e, url)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, []float64{4, 5, 6}, decodeFloats(t, rec.Body.Bytes()))
	assert.Equal(t, "3", rec.Header().Get("outxsize"))
	assert.Equal(t, "1", rec.Header().Get("outysize"))
	assert.Equal(t, "1.000000", rec.Header().Get("zmin"))
	assert.Equal(t, "6.000000", rec.Header().Get("zmax"))

	entries, err := os.ReadDir(filepath.Join(a.Cache.Location, cache.OutputDir))
	require.NoError(t, err)
	require.Len(t, entries, 2)
	for _, entry := range entries {
		assert.True(t, strings.HasPrefix(entry.Name(), "sperds"), entry.Name())
	}

	// served from the cache
	rec = get(t, e, url)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []float64{4, 5, 6}, decodeFloats(t, rec.Body.Bytes()))
	assert.Equal(t, "6.000000", rec.Header().Get("zmax"))
}

func TestRDSExpandAndMean(t *testing.T) {
	_, e := newTestAPI(t)
	rec := get(t, e, "/spe/rds/local/1/6/1/run1.spe")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []float64{25, 25, 35, 35, 45, 45}, decodeFloats(t, rec.Body.Bytes()))
}

func TestRDSBadRequest(t *testing.T) {
	_, e := newTestAPI(t)
	assert.Equal(t, http.StatusBadRequest, get(t, e, "/spe/rds/local/0/3/1/run1.spe?transform=median").Code)
	assert.Equal(t, http.StatusBadRequest, get(t, e, "/spe/rds/local/0/3/1/run1.spe?cxmode=Zz").Code)
	assert.Equal(t, http.StatusBadRequest, get(t, e, "/spe/rds/local/0/0/1/run1.spe").Code)
	assert.Equal(t, http.StatusUnprocessableEntity, get(t, e, "/spe/rds/local/0/1/1/bad.spe").Code)
}

func TestXYCut(t *testing.T) {
	_, e := newTestAPI(t)

	rec := get(t, e, "/spe/rdsxcut/local/1/0/3/run1.spe")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []float64{10, 20, 30}, decodeFloats(t, rec.Body.Bytes()))

	rec = get(t, e, "/spe/rdsxcut/local/1/1/2/run1.spe?x1=1&x2=3")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []float64{50, 60}, decodeFloats(t, rec.Body.Bytes()))

	rec = get(t, e, "/spe/rdsycut/local/0/2/2/run1.spe")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []float64{3, 6}, decodeFloats(t, rec.Body.Bytes()))

	rec = get(t, e, "/spe/rdsxcut/local/0/0/1/run1.spe?transform=max&cxmode=Ma")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []float64{3}, decodeFloats(t, rec.Body.Bytes()))

	assert.Equal(t, http.StatusBadRequest, get(t, e, "/spe/rdsxcut/local/0/2/3/run1.spe").Code)
	assert.Equal(t, http.StatusBadRequest, get(t, e, "/spe/rdsycut/local/0/3/3/run1.spe").Code)
	assert.Equal(t, http.StatusBadRequest, get(t, e, "/spe/rdsxcut/local/0/0/3/run1.spe?x1=2&x2=2").Code)
}


func TestRDSCacheKeepsRequestsApart(t *testing.T) {
	a, e := newTestAPI(t)
	// frame i of ramp.spe holds the value i everywhere
	data := make([]uint16, 0, 13*2*2)
	for i := 0; i < 13; i++ {
		data = append(data, uint16(i), uint16(i), uint16(i), uint16(i))
	}
	fs, err := spe.NewFrameStack(13, 2, 2, data)
	require.NoError(t, err)
	writeSPE(t, filepath.Join(a.Cfg.LocationDetails[0].Path, "ramp.spe"), &spe.Header{}, fs)

	expected := []struct {
		URL    string
		Frame  string
		Values []float64
	}{
		{URL: "/spe/rds/local/1/23/4/ramp.spe", Frame: "1", Values: repeat(1, 92)},
		{URL: "/spe/rds/local/12/3/4/ramp.spe", Frame: "12", Values: repeat(12, 12)},
		{URL: "/spe/rdsxcut/local/1/1/12/ramp.spe", Frame: "1", Values: repeat(1, 12)},
		{URL: "/spe/rdsxcut/local/11/1/2/ramp.spe", Frame: "11", Values: repeat(11, 2)},
	}
	// twice, so the second pass is served from the cache
	for pass := 0; pass < 2; pass++ {
		for _, exp := range expected {
			rec := get(t, e, exp.URL)
			require.Equal(t, http.StatusOK, rec.Code, exp.URL)
			assert.Equal(t, exp.Frame, rec.Header().Get("frame"), exp.URL)
			assert.Equal(t, exp.Values, decodeFloats(t, rec.Body.Bytes()), exp.URL)
		}
	}
}

func repeat(v float64, n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = v
	}
	return out
}
