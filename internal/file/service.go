package file

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/abduss/filedrop/internal/metrics"
	"go.uber.org/zap"
)

const (
	// DefaultMaxFileSize is the upload ceiling used when none is configured.
	DefaultMaxFileSize int64 = 100 * 1024 * 1024 // 100MiB

	maxCodeAttempts = 8
)

// ObjectStore owns payloads, addressed by validated name.
type ObjectStore interface {
	Write(ctx context.Context, name string, data []byte) error
	Read(ctx context.Context, name string) ([]byte, error)
	Delete(ctx context.Context, name string) error
	Exists(ctx context.Context, name string) (bool, error)
	Stat(ctx context.Context, name string) (ObjectInfo, error)
	Ping(ctx context.Context) error
}

type tokenSource interface {
	NewToken() string
}

// Service keeps payloads and catalog records consistent.
//
// Put writes the payload before appending the record and deletes the payload
// again if the append fails. DeleteByToken removes the record before the
// payload, so a failure can leave an orphaned file but never a record that
// points at nothing.
type Service struct {
	catalog     Catalog
	store       ObjectStore
	tokens      tokenSource
	locks       *nameLocks
	logger      *zap.Logger
	maxFileSize int64
	now         func() time.Time
}

// NewService constructs a file service. maxFileSize <= 0 selects DefaultMaxFileSize.
func NewService(catalog Catalog, store ObjectStore, logger *zap.Logger, maxFileSize int64) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	if maxFileSize <= 0 {
		maxFileSize = DefaultMaxFileSize
	}
	return &Service{
		catalog:     catalog,
		store:       store,
		tokens:      NewTokenGenerator(),
		locks:       newNameLocks(),
		logger:      logger,
		maxFileSize: maxFileSize,
		now:         time.Now,
	}
}

// MaxFileSize returns the upload ceiling in bytes.
func (s *Service) MaxFileSize() int64 {
	return s.maxFileSize
}

// Put stores data under name and records it in the catalog.
func (s *Service) Put(ctx context.Context, name string, data []byte) (rec Record, err error) {
	defer func() { metrics.ObserveOperation("put", resultLabel(err)) }()

	if !IsSafe(name) {
		return Record{}, ErrInvalidName
	}
	if int64(len(data)) > s.maxFileSize {
		return Record{}, ErrTooLarge
	}

	unlock := s.locks.Lock(name)
	defer unlock()

	exists, err := s.store.Exists(ctx, name)
	if err != nil {
		return Record{}, err
	}
	if exists {
		return Record{}, ErrAlreadyExists
	}

	if err := s.store.Write(ctx, name, data); err != nil {
		return Record{}, err
	}

	if err := ctx.Err(); err != nil {
		s.rollbackPayload(ctx, name, err)
		return Record{}, fmt.Errorf("upload %q canceled: %w", name, err)
	}

	rec = Record{
		Name:       name,
		Size:       int64(len(data)),
		UploadTime: s.now().UTC().Truncate(time.Second),
	}
	if err := s.appendWithFreshCode(ctx, &rec); err != nil {
		s.rollbackPayload(ctx, name, err)
		return Record{}, err
	}

	metrics.ObserveUpload(rec.Size)
	s.publishCatalogSize(ctx)
	s.logger.Info("object stored",
		zap.String("filename", rec.Name),
		zap.Int64("size", rec.Size))
	return rec, nil
}

// appendWithFreshCode assigns rec a code no live record holds and appends it.
func (s *Service) appendWithFreshCode(ctx context.Context, rec *Record) error {
	for attempt := 0; attempt < maxCodeAttempts; attempt++ {
		code := s.tokens.NewToken()

		_, taken, err := s.catalog.FindByToken(ctx, code)
		if err != nil {
			return err
		}
		if taken {
			continue
		}

		rec.Code = code
		err = s.catalog.Append(ctx, *rec)
		if errors.Is(err, ErrTokenTaken) {
			continue
		}
		return err
	}
	return fmt.Errorf("%w: no free code after %d attempts", ErrIO, maxCodeAttempts)
}

// rollbackPayload removes a payload whose record could not be written.
func (s *Service) rollbackPayload(ctx context.Context, name string, cause error) {
	if err := s.store.Delete(context.WithoutCancel(ctx), name); err != nil && !errors.Is(err, ErrNotFound) {
		metrics.ObserveOrphan("rollback_failed")
		s.logger.Error("payload orphaned after failed upload",
			zap.String("filename", name),
			zap.NamedError("cause", cause),
			zap.Error(err))
		return
	}
	s.logger.Warn("upload rolled back",
		zap.String("filename", name),
		zap.Error(cause))
}

// Get returns the payload stored under name. The catalog is not consulted.
func (s *Service) Get(ctx context.Context, name string) (data []byte, err error) {
	defer func() { metrics.ObserveOperation("get", resultLabel(err)) }()

	if !IsSafe(name) {
		return nil, ErrInvalidName
	}

	unlock := s.locks.RLock(name)
	defer unlock()

	return s.store.Read(ctx, name)
}

// List returns every live record in insertion order.
func (s *Service) List(ctx context.Context) (records []Record, err error) {
	defer func() { metrics.ObserveOperation("list", resultLabel(err)) }()

	records, err = s.catalog.List(ctx)
	if err != nil {
		return nil, err
	}
	if records == nil {
		records = []Record{}
	}
	return records, nil
}

// DeleteByToken removes the record carrying code and then its payload.
// Once the record is gone the call succeeds even if the payload cannot be removed.
func (s *Service) DeleteByToken(ctx context.Context, code string) (rec Record, err error) {
	defer func() { metrics.ObserveOperation("delete", resultLabel(err)) }()

	if !ValidCode(code) {
		return Record{}, ErrInvalidCode
	}

	rec, found, err := s.catalog.RemoveByToken(ctx, code)
	if err != nil {
		return Record{}, err
	}
	if !found {
		return Record{}, ErrNotFoundOrInvalidCode
	}
	s.publishCatalogSize(ctx)

	unlock := s.locks.Lock(rec.Name)
	defer unlock()

	switch err := s.store.Delete(context.WithoutCancel(ctx), rec.Name); {
	case err == nil:
		s.logger.Info("object deleted", zap.String("filename", rec.Name))
	case errors.Is(err, ErrNotFound):
		s.logger.Warn("record removed, payload already missing", zap.String("filename", rec.Name))
	default:
		metrics.ObserveOrphan("delete_failed")
		s.logger.Error("record removed but payload could not be deleted",
			zap.String("filename", rec.Name),
			zap.Error(err))
	}
	return rec, nil
}

// PreviewByToken describes the object behind code.
func (s *Service) PreviewByToken(ctx context.Context, code string) (p Preview, err error) {
	defer func() { metrics.ObserveOperation("preview", resultLabel(err)) }()

	if !ValidCode(code) {
		return Preview{}, ErrInvalidCode
	}

	rec, found, err := s.catalog.FindByToken(ctx, code)
	if err != nil {
		return Preview{}, err
	}
	if !found {
		return Preview{}, ErrNotFoundOrInvalidCode
	}

	unlock := s.locks.RLock(rec.Name)
	defer unlock()

	info, err := s.store.Stat(ctx, rec.Name)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return Preview{}, ErrNotFoundOnDisk
		}
		return Preview{}, err
	}

	p = Preview{
		Name:     rec.Name,
		Category: Classify(rec.Name),
		Size:     info.Size,
	}
	if p.Category == CategoryImage || p.Category == CategoryVideo {
		p.URL = DownloadPath(rec.Name)
	}
	return p, nil
}

// Ping checks that both the catalog and the store are reachable.
func (s *Service) Ping(ctx context.Context) error {
	if err := s.catalog.Ping(ctx); err != nil {
		return fmt.Errorf("catalog: %w", err)
	}
	if err := s.store.Ping(ctx); err != nil {
		return fmt.Errorf("store: %w", err)
	}
	return nil
}

func (s *Service) publishCatalogSize(ctx context.Context) {
	n, err := s.catalog.Len(ctx)
	if err != nil {
		s.logger.Debug("catalog size unavailable", zap.Error(err))
		return
	}
	metrics.SetCatalogRecords(n)
}

func resultLabel(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, ErrInvalidName), errors.Is(err, ErrInvalidCode):
		return "invalid"
	case errors.Is(err, ErrAlreadyExists):
		return "conflict"
	case errors.Is(err, ErrTooLarge):
		return "too_large"
	case errors.Is(err, ErrNotFound), errors.Is(err, ErrNotFoundOrInvalidCode), errors.Is(err, ErrNotFoundOnDisk):
		return "not_found"
	default:
		return "error"
	}
}
