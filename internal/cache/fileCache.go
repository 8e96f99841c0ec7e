package cache

import (
	"context"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"
)

// CheckCache runs Prune on `subDir` every `checkInterval` until ctx is done.
func (c *Cache) CheckCache(ctx context.Context, subDir string, checkInterval time.Duration, maxBytes int64) {
	ticker := time.NewTicker(checkInterval)
	defer ticker.Stop()
	for {
		if _, err := c.Prune(subDir, maxBytes); err != nil {
			c.logger.Error("CheckCache error", zap.String("sub_dir", subDir), zap.Error(err))
		}
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// Prune removes the oldest cache files in `subDir` until the directory holds
// at most `maxBytes`. Files not created by the cache are counted but never
// removed. It returns the number of files removed.
func (c *Cache) Prune(subDir string, maxBytes int64) (int, error) {
	dir := filepath.Join(c.Location, subDir)
	entries, err := os.ReadDir(dir)
	if err != nil {
		return 0, err
	}

	var currentBytes int64
	var candidates []os.FileInfo
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			// removed concurrently
			continue
		}
		currentBytes += info.Size()
		if strings.HasPrefix(info.Name(), Prefix) {
			candidates = append(candidates, info)
		}
	}
	if currentBytes <= maxBytes {
		return 0, nil
	}

	sort.Slice(candidates, func(i, j int) bool {
		return candidates[i].ModTime().Before(candidates[j].ModTime())
	})

	removed := 0
	for _, oldest := range candidates {
		if currentBytes <= maxBytes {
			break
		}
		c.logger.Info("Cache over maximum, removing old file",
			zap.String("name", oldest.Name()),
			zap.Int64("cache_bytes", currentBytes),
			zap.Int64("max_bytes", maxBytes),
		)
		if err := os.Remove(filepath.Join(dir, oldest.Name())); err != nil {
			c.logger.Error("Error removing cache file", zap.String("name", oldest.Name()), zap.Error(err))
			continue
		}
		currentBytes -= oldest.Size()
		removed++
	}
	if currentBytes > maxBytes {
		c.logger.Warn("Cache still over maximum; non-cache files in the cache directory?",
			zap.String("sub_dir", subDir),
			zap.Int64("cache_bytes", currentBytes),
		)
	}
	return removed, nil
}
