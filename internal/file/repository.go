package file

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

const repoTimeout = 5 * time.Second

const (
	uniqueViolation = "23505"

	nameConstraint = "file_records_filename_key"
	codeConstraint = "file_records_code_key"
)

const schema = `
CREATE TABLE IF NOT EXISTS file_records (
	seq         BIGSERIAL PRIMARY KEY,
	filename    TEXT NOT NULL,
	size_bytes  BIGINT NOT NULL,
	upload_time TIMESTAMPTZ NOT NULL,
	code        TEXT NOT NULL,
	CONSTRAINT file_records_filename_key UNIQUE (filename),
	CONSTRAINT file_records_code_key UNIQUE (code)
);`

// PostgresCatalog keeps the catalog in a PostgreSQL table. Uniqueness of
// names and codes is enforced by constraints; insertion order by seq.
type PostgresCatalog struct {
	pool *pgxpool.Pool
}

// NewPostgresCatalog builds a catalog on pool.
func NewPostgresCatalog(pool *pgxpool.Pool) *PostgresCatalog {
	return &PostgresCatalog{pool: pool}
}

// EnsureSchema creates the catalog table when missing.
func (r *PostgresCatalog) EnsureSchema(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, repoTimeout)
	defer cancel()

	if _, err := r.pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("create file_records: %w", err)
	}
	return nil
}

// Append inserts a record.
func (r *PostgresCatalog) Append(ctx context.Context, rec Record) error {
	ctx, cancel := context.WithTimeout(ctx, repoTimeout)
	defer cancel()

	query := `
INSERT INTO file_records (filename, size_bytes, upload_time, code)
VALUES ($1, $2, $3, $4);`

	if _, err := r.pool.Exec(ctx, query, rec.Name, rec.Size, rec.UploadTime, rec.Code); err != nil {
		return translatePgError("insert file record", err)
	}
	return nil
}

// FindByToken fetches the record carrying code.
func (r *PostgresCatalog) FindByToken(ctx context.Context, code string) (Record, bool, error) {
	ctx, cancel := context.WithTimeout(ctx, repoTimeout)
	defer cancel()

	query := `
SELECT filename, size_bytes, upload_time, code
FROM file_records
WHERE code = $1;`

	rec, err := scanRecord(r.pool.QueryRow(ctx, query, code))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Record{}, false, nil
		}
		return Record{}, false, translatePgError("get file record", err)
	}
	return rec, true, nil
}

// RemoveByToken deletes the record carrying code and returns it.
func (r *PostgresCatalog) RemoveByToken(ctx context.Context, code string) (Record, bool, error) {
	ctx, cancel := context.WithTimeout(ctx, repoTimeout)
	defer cancel()

	query := `
DELETE FROM file_records
WHERE code = $1
RETURNING filename, size_bytes, upload_time, code;`

	rec, err := scanRecord(r.pool.QueryRow(ctx, query, code))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Record{}, false, nil
		}
		return Record{}, false, translatePgError("delete file record", err)
	}
	return rec, true, nil
}

// List returns all records in insertion order.
func (r *PostgresCatalog) List(ctx context.Context) ([]Record, error) {
	ctx, cancel := context.WithTimeout(ctx, repoTimeout)
	defer cancel()

	query := `
SELECT filename, size_bytes, upload_time, code
FROM file_records
ORDER BY seq ASC;`

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, translatePgError("list file records", err)
	}
	defer rows.Close()

	records := []Record{}
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, translatePgError("scan file record", err)
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, translatePgError("iterate file records", err)
	}
	return records, nil
}

// Len counts live records.
func (r *PostgresCatalog) Len(ctx context.Context) (int, error) {
	ctx, cancel := context.WithTimeout(ctx, repoTimeout)
	defer cancel()

	var n int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM file_records;`).Scan(&n); err != nil {
		return 0, translatePgError("count file records", err)
	}
	return n, nil
}

// Ping checks database connectivity.
func (r *PostgresCatalog) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, repoTimeout)
	defer cancel()
	return r.pool.Ping(ctx)
}

func scanRecord(row pgx.Row) (Record, error) {
	var rec Record
	if err := row.Scan(&rec.Name, &rec.Size, &rec.UploadTime, &rec.Code); err != nil {
		return Record{}, err
	}
	rec.UploadTime = rec.UploadTime.UTC()
	return rec, nil
}

func translatePgError(op string, err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		switch pgErr.ConstraintName {
		case nameConstraint:
			return ErrAlreadyExists
		case codeConstraint:
			return ErrTokenTaken
		}
	}
	return fmt.Errorf("%w: %s: %w", ErrIO, op, err)
}
