package app

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"runtime/pprof"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo-contrib/prometheus"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/spf13/pflag"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/spectriclabs/spe-data-service/internal/api"
	"github.com/spectriclabs/spe-data-service/internal/cache"
	"github.com/spectriclabs/spe-data-service/internal/config"
)

// Options holds the flags that are not part of config.Config.
type Options struct {
	CPUProfile string
}

func Run() {
	cfg, opts, err := ParseCLI(os.Args[1:])
	if err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return
		}
		log.Fatalf("Couldn't parse flags: %v", err)
	}

	logger := SetupLogger(cfg.Debug)
	defer logger.Sync()

	cfg.LocationDetails, err = config.LoadLocations(cfg.ConfigFile)
	if err != nil {
		logger.Fatal("Error reading config file", zap.String("config_file", cfg.ConfigFile), zap.Error(err))
	}
	if err := cfg.Validate(); err != nil {
		logger.Fatal("Invalid configuration", zap.Error(err))
	}

	if opts.CPUProfile != "" {
		stop, err := StartProfile(opts.CPUProfile)
		if err != nil {
			logger.Fatal("Couldn't start CPU profile", zap.String("profile_file", opts.CPUProfile), zap.Error(err))
		}
		defer stop()
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var stats *cache.StatsStore
	if cfg.UseCache {
		c := cache.New(cfg.CacheLocation, logger)
		if err := SetupCache(ctx, &cfg, c); err != nil {
			logger.Fatal("Error creating cache directories", zap.String("cache_location", cfg.CacheLocation), zap.Error(err))
		}
		stats, err = cache.OpenStatsStore(cfg.StatsDBPath())
		if err != nil {
			logger.Warn("Stats store unavailable; statistics will not be kept", zap.String("path", cfg.StatsDBPath()), zap.Error(err))
		} else {
			defer stats.Close()
		}
	}

	speapi := api.NewSPEAPI(&cfg, logger, stats)
	e := SetupServer(speapi)

	address := fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)
	logger.Info("Starting server", zap.String("address", address), zap.Int("locations", len(cfg.LocationDetails)))
	go func() {
		if err := e.Start(address); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("Server stopped", zap.Error(err))
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server with a timeout of 10 seconds.
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt)
	<-quit
	logger.Info("Shutting down the server")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		logger.Error("Error during shutdown", zap.Error(err))
	}
}

// ParseCLI reads the command line into a config.Config. Locations are
// loaded separately from the file named by --config.
func ParseCLI(args []string) (config.Config, Options, error) {
	cfg := config.Config{}
	opts := Options{}
	flags := pflag.NewFlagSet("spe-data-service", pflag.ContinueOnError)
	flags.StringVarP(&cfg.Host, "host", "i", "0.0.0.0", "Host where the server will run")
	flags.IntVarP(&cfg.Port, "port", "p", 5055, "Port where the server will run")
	flags.BoolVarP(&cfg.Debug, "debug", "d", false, "Whether or not to enable debug logging")
	flags.StringVarP(&cfg.ConfigFile, "config", "c", "./speConfig.yml", "Location of the locations config file (yaml or json)")
	flags.BoolVarP(&cfg.UseCache, "use-cache", "u", true, "Use the output cache. Can be disabled for certain cases like testing.")
	flags.StringVarP(&cfg.CacheLocation, "cache-location", "C", "./specache/", "Where the cache will be stored")
	flags.IntVarP(&cfg.CachePollingInterval, "cache-polling-interval", "P", 60, "How often to check the cache (in seconds)")
	flags.Int64VarP(&cfg.CacheMaxBytes, "cache-max-bytes", "m", 100000000, "How large to allow each cache directory to be")
	flags.StringVar(&cfg.StatsDB, "stats-db", "", "Frame statistics database (default <cache-location>/stats.db)")
	flags.StringVar(&opts.CPUProfile, "cpuprofile", "", "Profile the server and write to file")
	if err := flags.Parse(args); err != nil {
		return cfg, opts, err
	}
	return cfg, opts, nil
}

// SetupLogger sets up the zap.Logger structured logger.
func SetupLogger(debug bool) *zap.Logger {
	level := zapcore.InfoLevel
	if debug {
		level = zapcore.DebugLevel
	}
	logger, logErr := zap.Config{
		Encoding:    "json",
		Level:       zap.NewAtomicLevelAt(level),
		OutputPaths: []string{"stdout"},
		EncoderConfig: zapcore.EncoderConfig{
			MessageKey:  "message",
			LevelKey:    "level",
			EncodeLevel: zapcore.CapitalLevelEncoder,

			TimeKey:    "time",
			EncodeTime: zapcore.ISO8601TimeEncoder,

			CallerKey:    "caller",
			EncodeCaller: zapcore.ShortCallerEncoder,
		},
	}.Build()
	if logErr != nil {
		log.Fatalf("Couldn't setup logger: %v", logErr)
	}

	return logger
}

func SetupServer(speapi *api.API) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.Debug = speapi.Cfg.Debug

	// Setup Middleware
	e.Use(middleware.CORS())
	e.Use(middleware.RequestIDWithConfig(middleware.RequestIDConfig{Generator: uuid.NewString}))
	e.Use(middleware.Logger())
	e.Use(middleware.Recover())

	speapi.RegisterRoutes(e)

	// Add Prometheus as middleware for metrics gathering
	p := prometheus.NewPrometheus("spe_data_service", nil)
	p.Use(e)

	return e
}

// SetupCache creates the cache directories and kicks off a monitor for the
// output and minio caches. The monitors stop when ctx is done.
func SetupCache(ctx context.Context, cfg *config.Config, c *cache.Cache) error {
	if err := c.Setup(); err != nil {
		return err
	}
	interval := time.Duration(cfg.CachePollingInterval) * time.Second
	go c.CheckCache(ctx, cache.OutputDir, interval, cfg.CacheMaxBytes)
	go c.CheckCache(ctx, cache.MinioDir, interval, cfg.CacheMaxBytes)
	return nil
}

// StartProfile writes a CPU profile to profileFile until the returned stop
// function is called.
func StartProfile(profileFile string) (func(), error) {
	f, err := os.Create(profileFile)
	if err != nil {
		return nil, err
	}
	if err := pprof.StartCPUProfile(f); err != nil {
		f.Close()
		return nil, err
	}
	return func() {
		pprof.StopCPUProfile()
		f.Close()
	}, nil
}
