package config

import (
	"errors"
	"fmt"
	"path/filepath"
)

// Location types understood by the datasource package.
const (
	LocalFile = "localFile"
	Minio     = "minio"
)

// ErrInvalidConfig is wrapped by every Validate failure.
var ErrInvalidConfig = errors.New("invalid configuration")

type Config struct {
	Host                 string     `json:"host,omitempty"`
	Port                 int        `json:"port,omitempty"`
	Debug                bool       `json:"debug,omitempty"`
	ConfigFile           string     `json:"config_file,omitempty"`
	UseCache             bool       `json:"use_cache,omitempty"`
	CacheLocation        string     `json:"cache_location,omitempty"`
	CachePollingInterval int        `json:"cache_polling_interval,omitempty"`
	CacheMaxBytes        int64      `json:"cache_max_bytes,omitempty"`
	StatsDB              string     `json:"stats_db,omitempty"`
	LocationDetails      []Location `json:"location_details,omitempty"`
}

// FindLocation returns the configured location called name.
func (c *Config) FindLocation(name string) (Location, bool) {
	for i := range c.LocationDetails {
		if c.LocationDetails[i].LocationName == name {
			return c.LocationDetails[i], true
		}
	}
	return Location{}, false
}

// StatsDBPath is where the frame statistics database lives. It defaults to a
// file inside the cache directory.
func (c *Config) StatsDBPath() string {
	if c.StatsDB != "" {
		return c.StatsDB
	}
	return filepath.Join(c.CacheLocation, "stats.db")
}

// Validate checks the server settings and every configured location.
func (c *Config) Validate() error {
	if c.Port < 0 || c.Port > 65535 {
		return fmt.Errorf("%w: port %d out of range", ErrInvalidConfig, c.Port)
	}
	if c.UseCache {
		if c.CacheLocation == "" {
			return fmt.Errorf("%w: cache enabled without a cache location", ErrInvalidConfig)
		}
		if c.CachePollingInterval <= 0 {
			return fmt.Errorf("%w: cache polling interval must be positive, got %d", ErrInvalidConfig, c.CachePollingInterval)
		}
		if c.CacheMaxBytes <= 0 {
			return fmt.Errorf("%w: cache max bytes must be positive, got %d", ErrInvalidConfig, c.CacheMaxBytes)
		}
	}

	seen := make(map[string]bool, len(c.LocationDetails))
	for _, loc := range c.LocationDetails {
		if loc.LocationName == "" {
			return fmt.Errorf("%w: location without a name", ErrInvalidConfig)
		}
		if seen[loc.LocationName] {
			return fmt.Errorf("%w: duplicate location %s", ErrInvalidConfig, loc.LocationName)
		}
		seen[loc.LocationName] = true

		switch loc.LocationType {
		case LocalFile:
			if loc.Path == "" {
				return fmt.Errorf("%w: location %s needs a path", ErrInvalidConfig, loc.LocationName)
			}
		case Minio:
			if loc.Location == "" || loc.MinioBucket == "" {
				return fmt.Errorf("%w: location %s needs an endpoint and a bucket", ErrInvalidConfig, loc.LocationName)
			}
		default:
			return fmt.Errorf("%w: location %s has unsupported type %q", ErrInvalidConfig, loc.LocationName, loc.LocationType)
		}
	}
	return nil
}
