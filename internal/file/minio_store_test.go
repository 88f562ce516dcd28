package file

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestMinIOStore(prefix string, maxSize int64) (*MinIOStore, *fakeObjectAPI) {
	api := newFakeObjectAPI("filedrop")
	return &MinIOStore{api: api, bucket: "filedrop", prefix: prefix, maxSize: maxSize}, api
}

func TestMinIOStoreWriteReadDelete(t *testing.T) {
	ctx := context.Background()
	store, api := newTestMinIOStore("uploads", 0)

	require.NoError(t, store.Write(ctx, "cat.png", []byte("png")))
	assert.Equal(t, "image/png", api.contentTypes["uploads/cat.png"])

	data, err := store.Read(ctx, "cat.png")
	require.NoError(t, err)
	assert.Equal(t, "png", string(data))

	info, err := store.Stat(ctx, "cat.png")
	require.NoError(t, err)
	assert.Equal(t, int64(3), info.Size)

	require.NoError(t, store.Delete(ctx, "cat.png"))
	_, err = store.Read(ctx, "cat.png")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, store.Delete(ctx, "cat.png"), ErrNotFound)
}

func TestMinIOStoreNeverOverwrites(t *testing.T) {
	ctx := context.Background()
	store, _ := newTestMinIOStore("", 0)

	require.NoError(t, store.Write(ctx, "a.txt", []byte("first")))
	assert.ErrorIs(t, store.Write(ctx, "a.txt", []byte("second")), ErrAlreadyExists)

	data, err := store.Read(ctx, "a.txt")
	require.NoError(t, err)
	assert.Equal(t, "first", string(data))
}

func TestMinIOStoreValidatesInput(t *testing.T) {
	ctx := context.Background()
	store, api := newTestMinIOStore("", 2)

	assert.ErrorIs(t, store.Write(ctx, "../escape", []byte("x")), ErrInvalidName)
	assert.ErrorIs(t, store.Write(ctx, "big", []byte("xyz")), ErrTooLarge)
	_, err := store.Stat(ctx, "a/b")
	assert.ErrorIs(t, err, ErrInvalidName)
	assert.Empty(t, api.objects)
}

func TestMinIOStoreTranslatesBackendErrors(t *testing.T) {
	ctx := context.Background()
	store, api := newTestMinIOStore("", 0)
	api.failWith = errors.New("connection reset")

	_, err := store.Stat(ctx, "a.txt")
	assert.ErrorIs(t, err, ErrIO)
	assert.ErrorContains(t, err, "connection reset")

	_, err = store.Exists(ctx, "a.txt")
	assert.ErrorIs(t, err, ErrIO)
}

func TestMinIOStorePing(t *testing.T) {
	ctx := context.Background()
	store, _ := newTestMinIOStore("", 0)
	assert.NoError(t, store.Ping(ctx))

	store.bucket = "other"
	assert.Error(t, store.Ping(ctx))
}

func TestMinIOStoreBacksService(t *testing.T) {
	ctx := context.Background()
	store, _ := newTestMinIOStore("objects", 0)
	service := NewService(newMemCatalog(), store, nil, 0)

	rec, err := service.Put(ctx, "clip.webm", []byte("webm"))
	require.NoError(t, err)

	p, err := service.PreviewByToken(ctx, rec.Code)
	require.NoError(t, err)
	assert.Equal(t, CategoryVideo, p.Category)
	assert.Equal(t, int64(4), p.Size)

	_, err = service.DeleteByToken(ctx, rec.Code)
	require.NoError(t, err)
	_, err = service.Get(ctx, "clip.webm")
	assert.ErrorIs(t, err, ErrNotFound)
}

// --- fakes ----

type fakeObjectAPI struct {
	mu           sync.Mutex
	bucket       string
	objects      map[string][]byte
	contentTypes map[string]string
	failWith     error
}

func newFakeObjectAPI(bucket string) *fakeObjectAPI {
	return &fakeObjectAPI{
		bucket:       bucket,
		objects:      make(map[string][]byte),
		contentTypes: make(map[string]string),
	}
}

func noSuchKey(key string) error {
	return minio.ErrorResponse{
		Code:       "NoSuchKey",
		Message:    "The specified key does not exist.",
		Key:        key,
		StatusCode: http.StatusNotFound,
	}
}

func (f *fakeObjectAPI) StatObject(_ context.Context, _ string, objectName string, _ minio.StatObjectOptions) (minio.ObjectInfo, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failWith != nil {
		return minio.ObjectInfo{}, f.failWith
	}
	data, ok := f.objects[objectName]
	if !ok {
		return minio.ObjectInfo{}, noSuchKey(objectName)
	}
	return minio.ObjectInfo{Key: objectName, Size: int64(len(data)), LastModified: time.Now()}, nil
}

func (f *fakeObjectAPI) PutObject(_ context.Context, _ string, objectName string, reader io.Reader, _ int64, opts minio.PutObjectOptions) (minio.UploadInfo, error) {
	data, err := io.ReadAll(reader)
	if err != nil {
		return minio.UploadInfo{}, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.objects[objectName] = data
	f.contentTypes[objectName] = opts.ContentType
	return minio.UploadInfo{Key: objectName, Size: int64(len(data))}, nil
}

func (f *fakeObjectAPI) GetObject(_ context.Context, _ string, objectName string, _ minio.GetObjectOptions) (io.ReadCloser, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	data, ok := f.objects[objectName]
	if !ok {
		// the real client reports missing keys on first read
		return io.NopCloser(&failingReader{err: noSuchKey(objectName)}), nil
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

func (f *fakeObjectAPI) RemoveObject(_ context.Context, _ string, objectName string, _ minio.RemoveObjectOptions) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.objects, objectName)
	return nil
}

func (f *fakeObjectAPI) BucketExists(_ context.Context, bucketName string) (bool, error) {
	return bucketName == f.bucket, nil
}

type failingReader struct {
	err error
}

func (r *failingReader) Read([]byte) (int, error) {
	return 0, r.err
}
