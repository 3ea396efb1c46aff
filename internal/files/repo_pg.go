package files

import (
	"context"
	"database/sql"
	"errors"

	"github.com/google/uuid"
)

// PGRepo implements Repo using Postgres.
type PGRepo struct {
	DB *sql.DB
}

const selectColumns = `id, original_name, storage_key, content_type, size_bytes, created_at`

// Insert stores rec; the database assigns id and created_at.
func (r *PGRepo) Insert(ctx context.Context, rec FileRecord) (FileRecord, error) {
	if err := validateRecord(rec); err != nil {
		return FileRecord{}, err
	}

	const query = `
INSERT INTO files (original_name, storage_key, content_type, size_bytes)
VALUES ($1, $2, $3, $4)
RETURNING id, created_at`

	err := r.DB.QueryRowContext(ctx, query,
		rec.OriginalName,
		rec.StorageKey,
		rec.ContentType,
		rec.SizeBytes,
	).Scan(&rec.ID, &rec.CreatedAt)
	if err != nil {
		return FileRecord{}, err
	}
	rec.CreatedAt = rec.CreatedAt.UTC()
	return rec, nil
}

// ListNewestFirst returns every record, newest first.
func (r *PGRepo) ListNewestFirst(ctx context.Context) ([]FileRecord, error) {
	const query = `
SELECT ` + selectColumns + `
FROM files
ORDER BY created_at DESC, seq DESC`

	rows, err := r.DB.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []FileRecord{}
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

// GetByID fetches a record. Ids that are not UUIDs cannot exist.
func (r *PGRepo) GetByID(ctx context.Context, id string) (FileRecord, error) {
	if _, err := uuid.Parse(id); err != nil {
		return FileRecord{}, ErrNotFound
	}

	const query = `
SELECT ` + selectColumns + `
FROM files
WHERE id = $1`

	rec, err := scanRecord(r.DB.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return FileRecord{}, ErrNotFound
		}
		return FileRecord{}, err
	}
	return rec, nil
}

// DeleteByID removes a record.
func (r *PGRepo) DeleteByID(ctx context.Context, id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return ErrNotFound
	}

	res, err := r.DB.ExecContext(ctx, `DELETE FROM files WHERE id = $1`, id)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

// Ping checks database connectivity.
func (r *PGRepo) Ping(ctx context.Context) error {
	return r.DB.PingContext(ctx)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRecord(row rowScanner) (FileRecord, error) {
	var rec FileRecord
	if err := row.Scan(
		&rec.ID,
		&rec.OriginalName,
		&rec.StorageKey,
		&rec.ContentType,
		&rec.SizeBytes,
		&rec.CreatedAt,
	); err != nil {
		return FileRecord{}, err
	}
	rec.CreatedAt = rec.CreatedAt.UTC()
	return rec, nil
}

var (
	_ Repo   = (*PGRepo)(nil)
	_ Pinger = (*PGRepo)(nil)
)
