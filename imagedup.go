// Package imagedup detects duplicate images in a media library using
// perceptual average-hash fingerprints.
//
// A Detector computes a fixed-size binary fingerprint for every accepted
// image and compares new uploads against the stored fingerprints by Hamming
// distance. Two images whose fingerprints differ in at most a configurable
// number of bit positions are considered the same image, which makes the
// check robust to re-encoding, recompression and minor resizing.
//
// Storage is injected: a RecordStore keeps the metadata + fingerprint index
// and a BlobStore keeps the image bytes. In-memory, SQLite and
// directory-backed implementations ship with the package.
package imagedup

import (
	"fmt"
	"log/slog"
	"net/http"
)

const (
	// DefaultGridSize is the downsample grid used for fingerprints,
	// producing 8x8 = 64-bit hashes.
	DefaultGridSize = 8

	// DefaultThreshold is the maximum Hamming distance at which two
	// fingerprints are treated as the same image.
	DefaultThreshold = 5

	// DefaultMaxUploadBytes caps the size of images accepted for
	// registration.
	DefaultMaxUploadBytes = 20 << 20 // 20MB
)

// Config holds the knobs and collaborators injected by the consumer.
// The zero value is usable: defaults() fills unset fields.
type Config struct {
	// GridSize is the fingerprint grid edge length N; fingerprints are
	// N*N bits. Default: DefaultGridSize.
	GridSize int

	// Threshold is the default maximum Hamming distance for duplicate
	// classification, used when a call does not supply its own.
	// 0 means DefaultThreshold; to match identical fingerprints only,
	// pass an explicit threshold of 0 to FindDuplicate or set
	// RegisterOpts.Threshold to ExactOnly.
	Threshold int

	// MaxUploadBytes rejects images larger than this many bytes.
	// Default: DefaultMaxUploadBytes.
	MaxUploadBytes int64

	// AcceptedMIMETypes limits registration to the listed content types
	// (e.g. "image/jpeg"). Empty means any decodable raster image.
	AcceptedMIMETypes []string

	// HTTPClient is used by FetchImage / RegisterURL (nil = http.DefaultClient).
	HTTPClient *http.Client

	// UserAgent is sent on outgoing fetches.
	UserAgent string

	// Logger receives diagnostics (nil = slog.Default()).
	Logger *slog.Logger
}

// defaults fills zero-value fields with sensible defaults.
func (c *Config) defaults() {
	if c.GridSize == 0 {
		c.GridSize = DefaultGridSize
	}
	if c.Threshold == 0 {
		c.Threshold = DefaultThreshold
	}
	if c.MaxUploadBytes <= 0 {
		c.MaxUploadBytes = DefaultMaxUploadBytes
	}
	if c.UserAgent == "" {
		c.UserAgent = "go-imagedup/1.0"
	}
	if c.HTTPClient == nil {
		c.HTTPClient = http.DefaultClient
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
}

// Detector classifies images as duplicate or unique against a fingerprint
// index. Lookups may run concurrently; registrations are best-effort under
// concurrency (two identical images registered at the same instant can both
// pass the duplicate check — the workload is single-writer by design).
type Detector struct {
	cfg     Config
	records RecordStore
	blobs   BlobStore
	log     *slog.Logger
}

// New builds a Detector over the given stores. GridSize and Threshold are
// range-checked: the grid must be positive and the threshold must fit in
// [0, GridSize*GridSize].
func New(records RecordStore, blobs BlobStore, cfg Config) (*Detector, error) {
	if records == nil {
		return nil, fmt.Errorf("imagedup: nil RecordStore")
	}
	if blobs == nil {
		return nil, fmt.Errorf("imagedup: nil BlobStore")
	}
	if cfg.GridSize < 0 {
		return nil, fmt.Errorf("imagedup: grid size must be positive, got %d", cfg.GridSize)
	}
	if cfg.Threshold < 0 {
		return nil, fmt.Errorf("imagedup: threshold must not be negative, got %d", cfg.Threshold)
	}
	cfg.defaults()
	if bits := cfg.GridSize * cfg.GridSize; cfg.Threshold > bits {
		return nil, fmt.Errorf("imagedup: threshold %d exceeds fingerprint bit length %d", cfg.Threshold, bits)
	}
	return &Detector{
		cfg:     cfg,
		records: records,
		blobs:   blobs,
		log:     cfg.Logger,
	}, nil
}

// GridSize returns the configured fingerprint grid edge length.
func (d *Detector) GridSize() int { return d.cfg.GridSize }

// Threshold returns the configured default duplicate threshold.
func (d *Detector) Threshold() int { return d.cfg.Threshold }
