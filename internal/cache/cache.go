package cache

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/cespare/xxhash/v2"
	"go.uber.org/zap"
)

// Cache sub-directories.
const (
	OutputDir = "outputFiles"
	MinioDir  = "miniocache"
)

// Prefix starts every file name the cache hands out. CheckCache only ever
// removes files carrying it.
const Prefix = "spe"

// maxNameLen keeps generated names below common filesystem limits.
const maxNameLen = 200

// hashSuffixLen is the length of "_" plus 16 hex digits.
const hashSuffixLen = 17

type Cache struct {
	Location string
	logger   *zap.Logger
}

func New(location string, logger *zap.Logger) *Cache {
	return &Cache{Location: location, logger: logger}
}

// Setup creates the cache sub-directories.
func (c *Cache) Setup() error {
	for _, dir := range []string{OutputDir, MinioDir} {
		if err := os.MkdirAll(filepath.Join(c.Location, dir), 0o755); err != nil {
			return fmt.Errorf("creating cache directory %s: %w", dir, err)
		}
	}
	return nil
}

// UrlToCacheFileName uses a url and query string to form the cached file
// name: a readable head with the separators stripped, then the xxhash of the
// full url. Only the hash tells apart urls whose heads are equal, such as
// /0/1/12/ and /0/11/2/.
func UrlToCacheFileName(url string) string {
	response := strings.Replace(url, "?", "_", 1)
	replacer := strings.NewReplacer("&", "", "=", "", ".", "", "/", "", "\\", "", ":", "")
	head := replacer.Replace(response)
	if !strings.HasPrefix(head, Prefix) {
		head = Prefix + "_" + head
	}
	if len(head) > maxNameLen-hashSuffixLen {
		head = head[:maxNameLen-hashSuffixLen]
	}
	return fmt.Sprintf("%s_%016x", head, xxhash.Sum64String(url))
}

func (c *Cache) path(cacheFileName, subDir string) string {
	return filepath.Join(c.Location, subDir, cacheFileName)
}

// GetDataFromCache retrieves data from a provided `cacheFileName`
// within a `subDir` directory
func (c *Cache) GetDataFromCache(cacheFileName string, subDir string) ([]byte, error) {
	return os.ReadFile(c.path(cacheFileName, subDir))
}

// GetItemFromCache opens the file `cacheFileName` within `subDir`.
func (c *Cache) GetItemFromCache(cacheFileName string, subDir string) (*os.File, error) {
	return os.Open(c.path(cacheFileName, subDir))
}

// CreateItem returns a temporary file in `subDir` and a commit function that
// moves it to `cacheFileName`. Readers never observe a partial item.
func (c *Cache) CreateItem(cacheFileName string, subDir string) (*os.File, func() error, error) {
	dir := filepath.Join(c.Location, subDir)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, nil, err
	}
	tmp, err := os.CreateTemp(dir, ".tmp-"+cacheFileName)
	if err != nil {
		return nil, nil, err
	}
	commit := func() error {
		if err := tmp.Sync(); err != nil {
			return err
		}
		return os.Rename(tmp.Name(), c.path(cacheFileName, subDir))
	}
	return tmp, commit, nil
}

// PutItemInCache places `data` into file denoted by `cacheFileName`
// within `subDir`
func (c *Cache) PutItemInCache(cacheFileName string, subDir string, data []byte) error {
	file, commit, err := c.CreateItem(cacheFileName, subDir)
	if err != nil {
		return err
	}
	defer os.Remove(file.Name())
	defer file.Close()

	if _, err := file.Write(data); err != nil {
		return err
	}
	if err := commit(); err != nil {
		return err
	}
	c.logger.Debug("Stored item in cache",
		zap.String("name", cacheFileName),
		zap.String("sub_dir", subDir),
		zap.Int("bytes", len(data)),
	)
	return nil
}
