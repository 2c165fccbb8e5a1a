package imagedup

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// SQLiteStore is a RecordStore backed by a SQLite file. The grid size is
// stored per row so an index written under one configuration is never
// silently compared under another.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens (or creates) the database file at path and ensures
// the schema exists.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}

	const schema = `
	CREATE TABLE IF NOT EXISTS images (
		id            TEXT PRIMARY KEY,
		original_name TEXT NOT NULL,
		storage_path  TEXT NOT NULL,
		mime_type     TEXT,
		size          INTEGER,
		width         INTEGER,
		height        INTEGER,
		format        TEXT,
		artist        TEXT,
		copyright     TEXT,
		uploaded_at   TEXT NOT NULL,
		grid_size     INTEGER NOT NULL,
		fingerprint   TEXT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_images_fingerprint ON images(fingerprint);`

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}
	return &SQLiteStore{db: db}, nil
}

// Close releases the underlying database handle.
func (s *SQLiteStore) Close() error { return s.db.Close() }

func (s *SQLiteStore) Insert(ctx context.Context, rec *Record) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO images (
			id, original_name, storage_path, mime_type, size,
			width, height, format, artist, copyright,
			uploaded_at, grid_size, fingerprint
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.ID,
		rec.OriginalName,
		rec.StoragePath,
		rec.MIMEType,
		rec.Size,
		rec.Width,
		rec.Height,
		rec.Format,
		rec.Artist,
		rec.Copyright,
		rec.UploadedAt.Format(time.RFC3339),
		rec.Fingerprint.GridSize(),
		rec.Fingerprint.String(),
	)
	if err != nil {
		return fmt.Errorf("insert %s: %w", rec.ID, err)
	}
	return nil
}

const selectColumns = `id, original_name, storage_path, mime_type, size,
	width, height, format, artist, copyright, uploaded_at, grid_size, fingerprint`

func (s *SQLiteStore) ByID(ctx context.Context, id string) (*Record, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+selectColumns+` FROM images WHERE id = ?`, id)
	rec, err := scanRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return rec, err
}

func (s *SQLiteStore) All(ctx context.Context) ([]*Record, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+selectColumns+` FROM images`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var recs []*Record
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		recs = append(recs, rec)
	}
	return recs, rows.Err()
}

func (s *SQLiteStore) Delete(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM images WHERE id = ?`, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *SQLiteStore) Count(ctx context.Context) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM images`).Scan(&n)
	return n, err
}

// scanner is satisfied by both *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanRecord(row scanner) (*Record, error) {
	var (
		rec      Record
		uploaded string
		grid     int
		fpHex    string
	)
	err := row.Scan(
		&rec.ID,
		&rec.OriginalName,
		&rec.StoragePath,
		&rec.MIMEType,
		&rec.Size,
		&rec.Width,
		&rec.Height,
		&rec.Format,
		&rec.Artist,
		&rec.Copyright,
		&uploaded,
		&grid,
		&fpHex,
	)
	if err != nil {
		return nil, err
	}

	rec.UploadedAt, err = time.Parse(time.RFC3339, uploaded)
	if err != nil {
		return nil, fmt.Errorf("record %s: bad uploaded_at %q: %w", rec.ID, uploaded, err)
	}
	rec.Fingerprint, err = ParseFingerprint(fpHex, grid)
	if err != nil {
		return nil, fmt.Errorf("record %s: %w", rec.ID, err)
	}
	return &rec, nil
}
