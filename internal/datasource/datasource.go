package datasource

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"go.uber.org/zap"

	"github.com/spectriclabs/spe-data-service/internal/cache"
	"github.com/spectriclabs/spe-data-service/internal/config"
)

var (
	// ErrUnknownLocation is returned for a location name that is not configured.
	ErrUnknownLocation = errors.New("unknown location")
	// ErrUnsupportedLocation is returned for location types that cannot serve the request.
	ErrUnsupportedLocation = errors.New("unsupported location type")
)

// Source is an opened file together with what is known about it.
type Source struct {
	io.ReadSeekCloser
	Name    string
	Size    int64
	ModTime time.Time
}

// Entry is one item of a directory listing.
type Entry struct {
	Filename string `json:"filename"`
	Type     string `json:"type"`
	Size     int64  `json:"size"`
}

type DataSource struct {
	Cfg    *config.Config
	Cache  *cache.Cache
	Logger *zap.Logger
}

func New(cfg *config.Config, c *cache.Cache, logger *zap.Logger) *DataSource {
	return &DataSource{Cfg: cfg, Cache: c, Logger: logger}
}

func (d *DataSource) location(name string) (config.Location, error) {
	loc, ok := d.Cfg.FindLocation(name)
	if !ok {
		return config.Location{}, fmt.Errorf("%w: %s", ErrUnknownLocation, name)
	}
	return loc, nil
}

// localPath joins filePath below root without letting it escape.
func localPath(root, filePath string) string {
	return filepath.Join(root, filepath.FromSlash(path.Clean("/"+filePath)))
}

// objectKey joins filePath below the location prefix of a bucket.
func objectKey(prefix, filePath string) string {
	return strings.TrimPrefix(path.Join(prefix, path.Clean("/"+filePath)), "/")
}

// IsDir reports whether filePath names a directory of a localFile location.
// Minio locations treat an empty path or one ending in "/" as a directory.
func (d *DataSource) IsDir(locationName, filePath string) (bool, error) {
	loc, err := d.location(locationName)
	if err != nil {
		return false, err
	}
	switch loc.LocationType {
	case config.LocalFile:
		fi, err := os.Stat(localPath(loc.Path, filePath))
		if err != nil {
			return false, err
		}
		return fi.IsDir(), nil
	case config.Minio:
		return filePath == "" || strings.HasSuffix(filePath, "/"), nil
	default:
		return false, fmt.Errorf("%w: %s", ErrUnsupportedLocation, loc.LocationType)
	}
}

// List returns the entries of directory dirPath, sorted by name.
func (d *DataSource) List(ctx context.Context, locationName, dirPath string) ([]Entry, error) {
	loc, err := d.location(locationName)
	if err != nil {
		return nil, err
	}

	var entries []Entry
	switch loc.LocationType {
	case config.LocalFile:
		files, err := os.ReadDir(localPath(loc.Path, dirPath))
		if err != nil {
			return nil, err
		}
		for _, file := range files {
			e := Entry{Filename: file.Name(), Type: "file"}
			if file.IsDir() {
				e.Type = "directory"
			} else if info, err := file.Info(); err == nil {
				e.Size = info.Size()
			}
			entries = append(entries, e)
		}
	case config.Minio:
		client, err := d.minioClient(loc)
		if err != nil {
			return nil, err
		}
		prefix := objectKey(loc.Path, dirPath)
		if prefix != "" {
			prefix += "/"
		}
		for obj := range client.ListObjects(ctx, loc.MinioBucket, minio.ListObjectsOptions{Prefix: prefix}) {
			if obj.Err != nil {
				return nil, obj.Err
			}
			name := strings.TrimPrefix(obj.Key, prefix)
			e := Entry{Filename: strings.TrimSuffix(name, "/"), Type: "file", Size: obj.Size}
			if strings.HasSuffix(name, "/") {
				e.Type = "directory"
			}
			entries = append(entries, e)
		}
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedLocation, loc.LocationType)
	}

	sort.Slice(entries, func(i, j int) bool { return entries[i].Filename < entries[j].Filename })
	return entries, nil
}

// Open returns a reader for filePath in the named location. Minio objects are
// copied to the cache on first access and served from there afterwards.
func (d *DataSource) Open(ctx context.Context, locationName, filePath string) (*Source, error) {
	loc, err := d.location(locationName)
	if err != nil {
		return nil, err
	}

	switch loc.LocationType {
	case config.LocalFile:
		fullFilepath := localPath(loc.Path, filePath)
		d.Logger.Debug(
			"Reading local file",
			zap.String("location_name", locationName),
			zap.String("filename", filePath),
			zap.String("path", fullFilepath),
		)
		return openFile(fullFilepath, filePath)
	case config.Minio:
		return d.openMinio(ctx, loc, filePath)
	default:
		d.Logger.Error(
			"Unsupported location type",
			zap.String("location_type", loc.LocationType),
		)
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedLocation, loc.LocationType)
	}
}

func openFile(fullPath, name string) (*Source, error) {
	file, err := os.Open(fullPath)
	if err != nil {
		return nil, err
	}
	fi, err := file.Stat()
	if err != nil {
		file.Close()
		return nil, err
	}
	if fi.IsDir() {
		file.Close()
		return nil, fmt.Errorf("%s is a directory", name)
	}
	return &Source{ReadSeekCloser: file, Name: name, Size: fi.Size(), ModTime: fi.ModTime()}, nil
}

func (d *DataSource) minioClient(loc config.Location) (*minio.Client, error) {
	client, err := minio.New(loc.Location, &minio.Options{
		Creds:  credentials.NewStaticV4(loc.MinioAccessKey, loc.MinioSecretKey, ""),
		Secure: loc.MinioUseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("connecting to minio at %s: %w", loc.Location, err)
	}
	return client, nil
}

// minioCacheName names the cache mirror of one object. Bucket names cannot
// contain "/", so the bucket/key pair hashed by UrlToCacheFileName is
// unambiguous.
func minioCacheName(bucket, key string) string {
	return cache.UrlToCacheFileName(cache.Prefix + "_" + bucket + "/" + key)
}

func (d *DataSource) openMinio(ctx context.Context, loc config.Location, filePath string) (*Source, error) {
	start := time.Now()
	key := objectKey(loc.Path, filePath)
	cacheFileName := minioCacheName(loc.MinioBucket, key)

	if d.Cfg.UseCache {
		if src, err := openFile(filepath.Join(d.Cache.Location, cache.MinioDir, cacheFileName), filePath); err == nil {
			d.Logger.Debug("Minio object served from cache", zap.String("key", key))
			return src, nil
		}
	}

	d.Logger.Info("Minio object not in local cache, fetching",
		zap.String("bucket", loc.MinioBucket),
		zap.String("key", key),
	)
	client, err := d.minioClient(loc)
	if err != nil {
		return nil, err
	}
	object, err := client.GetObject(ctx, loc.MinioBucket, key, minio.GetObjectOptions{})
	if err != nil {
		return nil, err
	}
	defer object.Close()

	fi, err := object.Stat()
	if err != nil {
		if minio.ToErrorResponse(err).Code == "NoSuchKey" {
			return nil, fmt.Errorf("%s/%s: %w", loc.MinioBucket, key, os.ErrNotExist)
		}
		return nil, err
	}

	if !d.Cfg.UseCache {
		data, err := io.ReadAll(object)
		if err != nil {
			return nil, err
		}
		d.Logger.Info("Fetched minio object", zap.String("key", key), zap.Duration("elapsed", time.Since(start)))
		return &Source{ReadSeekCloser: nopCloser{bytes.NewReader(data)}, Name: filePath, Size: int64(len(data)), ModTime: fi.LastModified}, nil
	}

	tmp, commit, err := d.Cache.CreateItem(cacheFileName, cache.MinioDir)
	if err != nil {
		return nil, err
	}
	defer os.Remove(tmp.Name())
	defer tmp.Close()
	n, err := io.Copy(tmp, object)
	if err != nil {
		return nil, fmt.Errorf("reading %s/%s from minio: %w", loc.MinioBucket, key, err)
	}
	if n != fi.Size {
		return nil, fmt.Errorf("reading %s/%s from minio: expected %d bytes, got %d", loc.MinioBucket, key, fi.Size, n)
	}
	if err := commit(); err != nil {
		return nil, err
	}
	d.Logger.Info("Fetched minio object", zap.String("key", key), zap.Int64("bytes", n), zap.Duration("elapsed", time.Since(start)))
	return openFile(filepath.Join(d.Cache.Location, cache.MinioDir, cacheFileName), filePath)
}

type nopCloser struct {
	io.ReadSeeker
}

func (nopCloser) Close() error { return nil }
