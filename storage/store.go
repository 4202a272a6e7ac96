package storage

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"path"
	"sort"
	"strings"
	"time"

	"github.com/minio/minio-go/v7"

	"GenreFM/logger"
)

// Object prefixes inside the bucket.
const (
	ModelPrefix   = "models/"
	ArchivePrefix = "uploads/"
)

// BucketStats summarises a listing.
type BucketStats struct {
	TotalObjects int64
	TotalSize    int64
	LastModified time.Time
}

// ObjectInfo describes one stored object.
type ObjectInfo struct {
	Key          string
	Size         int64
	LastModified time.Time
	ContentType  string
	ETag         string
}

// Store reads and writes GenreFM objects in one bucket.
type Store struct {
	client *minio.Client
	bucket string
}

// NewStore wraps client for bucket.
func NewStore(client *minio.Client, bucket string) *Store {
	return &Store{client: client, bucket: bucket}
}

// Bucket returns the bucket name.
func (s *Store) Bucket() string {
	return s.bucket
}

// List returns objects under prefix, newest first, with totals.
func (s *Store) List(ctx context.Context, prefix string, recursive bool) ([]ObjectInfo, *BucketStats, error) {
	listed, err := s.listObjects(ctx, prefix, recursive)
	if err != nil {
		return nil, nil, err
	}

	stats := &BucketStats{}
	objects := make([]ObjectInfo, 0, len(listed))
	for _, object := range listed {
		objects = append(objects, ObjectInfo{
			Key:          object.Key,
			Size:         object.Size,
			LastModified: object.LastModified,
			ContentType:  object.ContentType,
			ETag:         object.ETag,
		})
		stats.TotalObjects++
		stats.TotalSize += object.Size
		if object.LastModified.After(stats.LastModified) {
			stats.LastModified = object.LastModified
		}
	}
	sort.Slice(objects, func(i, j int) bool {
		return objects[i].LastModified.After(objects[j].LastModified)
	})
	return objects, stats, nil
}

// listObjects drains a listing. The listing goroutine is bound to a child
// context that is cancelled on return, so an early error stops it.
func (s *Store) listObjects(ctx context.Context, prefix string, recursive bool) ([]minio.ObjectInfo, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var objects []minio.ObjectInfo
	for object := range s.client.ListObjects(ctx, s.bucket, minio.ListObjectsOptions{Prefix: prefix, Recursive: recursive}) {
		if object.Err != nil {
			return nil, fmt.Errorf("list %s/%s: %w", s.bucket, prefix, object.Err)
		}
		objects = append(objects, object)
	}
	return objects, nil
}

// Put uploads data under key.
func (s *Store) Put(ctx context.Context, key string, data []byte, contentType string) error {
	opts := minio.PutObjectOptions{ContentType: contentType, DisableMultipart: true}
	if _, err := s.client.PutObject(ctx, s.bucket, key, bytes.NewReader(data), int64(len(data)), opts); err != nil {
		return fmt.Errorf("upload %s: %w", key, err)
	}
	return nil
}

// Get downloads key.
func (s *Store) Get(ctx context.Context, key string) ([]byte, error) {
	obj, err := s.client.GetObject(ctx, s.bucket, key, minio.GetObjectOptions{})
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", key, err)
	}
	defer obj.Close()

	data, err := io.ReadAll(obj)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", key, err)
	}
	return data, nil
}

// DeletePrefix removes every object under prefix and returns how many were
// removed. An empty prefix is rejected so the whole bucket is never wiped.
func (s *Store) DeletePrefix(ctx context.Context, prefix string) (int, error) {
	if prefix == "" {
		return 0, fmt.Errorf("refusing to delete with an empty prefix")
	}

	keys, err := s.listObjects(ctx, prefix, true)
	if err != nil {
		return 0, err
	}
	if len(keys) == 0 {
		return 0, nil
	}

	objectsCh := make(chan minio.ObjectInfo, len(keys))
	for _, k := range keys {
		objectsCh <- k
	}
	close(objectsCh)

	for rerr := range s.client.RemoveObjects(ctx, s.bucket, objectsCh, minio.RemoveObjectsOptions{}) {
		if rerr.Err != nil {
			return 0, fmt.Errorf("delete %s: %w", rerr.ObjectName, rerr.Err)
		}
	}
	logger.Info("deleted objects", logger.String("prefix", prefix), logger.Int("count", len(keys)))
	return len(keys), nil
}

// ModelKey maps an artifact file name to its object key.
func ModelKey(name string) string {
	return ModelPrefix + path.Base(name)
}

// PutModel uploads a model artifact.
func (s *Store) PutModel(ctx context.Context, name string, data []byte) (string, error) {
	key := ModelKey(name)
	if err := s.Put(ctx, key, data, artifactContentType(name)); err != nil {
		return "", err
	}
	logger.Info("model artifact uploaded", logger.String("key", key), logger.Int("size", len(data)))
	return key, nil
}

// FetchModel downloads a model artifact by file name or full key.
func (s *Store) FetchModel(ctx context.Context, name string) ([]byte, error) {
	key := name
	if !strings.HasPrefix(key, ModelPrefix) {
		key = ModelKey(name)
	}
	return s.Get(ctx, key)
}

// Archive stores a raw upload; it satisfies pipeline.Archiver.
func (s *Store) Archive(ctx context.Context, key string, data []byte) error {
	return s.Put(ctx, key, data, "application/octet-stream")
}

func artifactContentType(name string) string {
	switch strings.ToLower(path.Ext(name)) {
	case ".yaml", ".yml":
		return "application/yaml"
	case ".json":
		return "application/json"
	case ".msgpack", ".mpk":
		return "application/msgpack"
	default:
		return "application/octet-stream"
	}
}
