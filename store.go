package imagedup

import (
	"context"
	"time"
)

// Record is the persisted metadata and fingerprint for one accepted image.
// Records are created on successful registration and never mutated; removal
// deletes the record, its fingerprint index entry and the stored blob
// together.
type Record struct {
	ID           string
	OriginalName string
	StoragePath  string
	MIMEType     string
	Size         int64
	Width        int
	Height       int
	Format       string // decoder name, e.g. "jpeg"
	Artist       string // EXIF Artist, when present
	Copyright    string // EXIF Copyright, when present
	UploadedAt   time.Time
	Fingerprint  *Fingerprint
}

// RecordStore is the metadata + fingerprint index. Every record carries
// exactly one fingerprint; the index never holds an entry without a backing
// blob (the Detector guarantees that by rolling back blob writes when the
// record insert fails).
type RecordStore interface {
	Insert(ctx context.Context, rec *Record) error
	ByID(ctx context.Context, id string) (*Record, error)
	// All returns every record. Linear scanning the result is the
	// duplicate lookup strategy; fine at library scale (thousands of
	// images, not millions).
	All(ctx context.Context) ([]*Record, error)
	Delete(ctx context.Context, id string) error
	Count(ctx context.Context) (int, error)
}

// BlobStore holds the image bytes, keyed by record ID. Put returns the
// storage path (or locator) recorded alongside the metadata.
type BlobStore interface {
	Put(ctx context.Context, id string, data []byte) (string, error)
	Get(ctx context.Context, id string) ([]byte, error)
	Delete(ctx context.Context, id string) error
}
