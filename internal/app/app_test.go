package app

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/spectriclabs/spe-data-service/internal/api"
	"github.com/spectriclabs/spe-data-service/internal/cache"
	"github.com/spectriclabs/spe-data-service/internal/config"
)

func TestParseCLIDefaults(t *testing.T) {
	cfg, opts, err := ParseCLI(nil)
	require.NoError(t, err)
	assert.Equal(t, "0.0.0.0", cfg.Host)
	assert.Equal(t, 5055, cfg.Port)
	assert.Equal(t, "./speConfig.yml", cfg.ConfigFile)
	assert.True(t, cfg.UseCache)
	assert.Equal(t, "./specache/", cfg.CacheLocation)
	assert.Equal(t, 60, cfg.CachePollingInterval)
	assert.Equal(t, int64(100000000), cfg.CacheMaxBytes)
	assert.Empty(t, opts.CPUProfile)
}

func TestParseCLI(t *testing.T) {
	cfg, opts, err := ParseCLI([]string{
		"-p", "8080", "--debug", "--use-cache=false", "-C", "/tmp/c",
		"--stats-db", "/tmp/s.db", "--cpuprofile", "cpu.out",
	})
	require.NoError(t, err)
	assert.Equal(t, 8080, cfg.Port)
	assert.True(t, cfg.Debug)
	assert.False(t, cfg.UseCache)
	assert.Equal(t, "/tmp/c", cfg.CacheLocation)
	assert.Equal(t, "/tmp/s.db", cfg.StatsDBPath())
	assert.Equal(t, "cpu.out", opts.CPUProfile)

	_, _, err = ParseCLI([]string{"--port", "many"})
	assert.Error(t, err)
}

func TestSetupLogger(t *testing.T) {
	assert.True(t, SetupLogger(true).Core().Enabled(zap.DebugLevel))
	assert.False(t, SetupLogger(false).Core().Enabled(zap.DebugLevel))
}

func TestSetupCache(t *testing.T) {
	cfg := &config.Config{UseCache: true, CacheLocation: t.TempDir(), CachePollingInterval: 1, CacheMaxBytes: 1 << 20}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	require.NoError(t, SetupCache(ctx, cfg, cache.New(cfg.CacheLocation, zap.NewNop())))
	for _, dir := range []string{cache.OutputDir, cache.MinioDir} {
		fi, err := os.Stat(filepath.Join(cfg.CacheLocation, dir))
		require.NoError(t, err)
		assert.True(t, fi.IsDir())
	}
}

func TestSetupServer(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, "a.spe"), []byte("x"), 0o644))
	cfg := &config.Config{
		CacheLocation:   t.TempDir(),
		LocationDetails: []config.Location{{LocationName: "local", LocationType: config.LocalFile, Path: root}},
	}
	e := SetupServer(api.NewSPEAPI(cfg, zap.NewNop(), nil))

	req := httptest.NewRequest(http.MethodGet, "/spe/fs/local/", nil)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"filename":"a.spe"`)
	assert.Len(t, rec.Header().Get(echo.HeaderXRequestID), 36)

	rec = httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "requests_total")
}

func TestStartProfile(t *testing.T) {
	out := filepath.Join(t.TempDir(), "cpu.out")
	stop, err := StartProfile(out)
	require.NoError(t, err)
	stop()
	_, err = os.Stat(out)
	assert.NoError(t, err)
}
