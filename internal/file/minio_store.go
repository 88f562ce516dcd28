package file

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"path"

	"github.com/minio/minio-go/v7"
)

// objectAPI is the subset of the MinIO client used by MinIOStore.
type objectAPI interface {
	StatObject(ctx context.Context, bucketName, objectName string, opts minio.StatObjectOptions) (minio.ObjectInfo, error)
	PutObject(ctx context.Context, bucketName, objectName string, reader io.Reader, objectSize int64, opts minio.PutObjectOptions) (minio.UploadInfo, error)
	GetObject(ctx context.Context, bucketName, objectName string, opts minio.GetObjectOptions) (io.ReadCloser, error)
	RemoveObject(ctx context.Context, bucketName, objectName string, opts minio.RemoveObjectOptions) error
	BucketExists(ctx context.Context, bucketName string) (bool, error)
}

// minioAdapter adapts minio.Client to objectAPI.
type minioAdapter struct {
	client *minio.Client
}

func (a minioAdapter) StatObject(ctx context.Context, bucketName, objectName string, opts minio.StatObjectOptions) (minio.ObjectInfo, error) {
	return a.client.StatObject(ctx, bucketName, objectName, opts)
}

func (a minioAdapter) PutObject(ctx context.Context, bucketName, objectName string, reader io.Reader, objectSize int64, opts minio.PutObjectOptions) (minio.UploadInfo, error) {
	return a.client.PutObject(ctx, bucketName, objectName, reader, objectSize, opts)
}

func (a minioAdapter) GetObject(ctx context.Context, bucketName, objectName string, opts minio.GetObjectOptions) (io.ReadCloser, error) {
	return a.client.GetObject(ctx, bucketName, objectName, opts)
}

func (a minioAdapter) RemoveObject(ctx context.Context, bucketName, objectName string, opts minio.RemoveObjectOptions) error {
	return a.client.RemoveObject(ctx, bucketName, objectName, opts)
}

func (a minioAdapter) BucketExists(ctx context.Context, bucketName string) (bool, error) {
	return a.client.BucketExists(ctx, bucketName)
}

// MinIOStore keeps payloads in an S3-compatible bucket under an optional prefix.
// S3 PUTs are atomic, so a partially uploaded object is never visible.
// It relies on the caller's per-name locking for the no-overwrite guarantee.
type MinIOStore struct {
	api     objectAPI
	bucket  string
	prefix  string
	maxSize int64
}

// NewMinIOStore constructs a store backed by client.
func NewMinIOStore(client *minio.Client, bucket, prefix string, maxSize int64) *MinIOStore {
	return &MinIOStore{
		api:     minioAdapter{client: client},
		bucket:  bucket,
		prefix:  prefix,
		maxSize: maxSize,
	}
}

func (s *MinIOStore) objectName(name string) string {
	if s.prefix == "" {
		return name
	}
	return path.Join(s.prefix, name)
}

func (s *MinIOStore) Write(ctx context.Context, name string, data []byte) error {
	if !IsSafe(name) {
		return ErrInvalidName
	}
	if s.maxSize > 0 && int64(len(data)) > s.maxSize {
		return ErrTooLarge
	}

	exists, err := s.Exists(ctx, name)
	if err != nil {
		return err
	}
	if exists {
		return ErrAlreadyExists
	}

	_, err = s.api.PutObject(ctx, s.bucket, s.objectName(name), bytes.NewReader(data), int64(len(data)), minio.PutObjectOptions{
		ContentType: ContentType(name),
	})
	if err != nil {
		return fmt.Errorf("%w: put object %q: %w", ErrIO, name, err)
	}
	return nil
}

func (s *MinIOStore) Read(ctx context.Context, name string) ([]byte, error) {
	if !IsSafe(name) {
		return nil, ErrInvalidName
	}

	obj, err := s.api.GetObject(ctx, s.bucket, s.objectName(name), minio.GetObjectOptions{})
	if err != nil {
		return nil, translateMinIOError("get object", name, err)
	}
	defer obj.Close()

	data, err := io.ReadAll(obj)
	if err != nil {
		return nil, translateMinIOError("read object", name, err)
	}
	return data, nil
}

func (s *MinIOStore) Delete(ctx context.Context, name string) error {
	if _, err := s.Stat(ctx, name); err != nil {
		return err
	}

	// RemoveObject succeeds for missing keys, hence the Stat above
	if err := s.api.RemoveObject(ctx, s.bucket, s.objectName(name), minio.RemoveObjectOptions{}); err != nil {
		return translateMinIOError("remove object", name, err)
	}
	return nil
}

func (s *MinIOStore) Exists(ctx context.Context, name string) (bool, error) {
	_, err := s.Stat(ctx, name)
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, ErrNotFound):
		return false, nil
	default:
		return false, err
	}
}

func (s *MinIOStore) Stat(ctx context.Context, name string) (ObjectInfo, error) {
	if !IsSafe(name) {
		return ObjectInfo{}, ErrInvalidName
	}

	info, err := s.api.StatObject(ctx, s.bucket, s.objectName(name), minio.StatObjectOptions{})
	if err != nil {
		return ObjectInfo{}, translateMinIOError("stat object", name, err)
	}
	return ObjectInfo{Name: name, Size: info.Size, ModTime: info.LastModified}, nil
}

func (s *MinIOStore) Ping(ctx context.Context) error {
	exists, err := s.api.BucketExists(ctx, s.bucket)
	if err != nil {
		return fmt.Errorf("check bucket: %w", err)
	}
	if !exists {
		return fmt.Errorf("bucket %q does not exist", s.bucket)
	}
	return nil
}

func translateMinIOError(op, name string, err error) error {
	resp := minio.ToErrorResponse(err)
	if resp.Code == "NoSuchKey" || resp.StatusCode == http.StatusNotFound {
		return ErrNotFound
	}
	return fmt.Errorf("%w: %s %q: %w", ErrIO, op, name, err)
}
