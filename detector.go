package imagedup

import (
	"context"
	"fmt"
	"net/http"
	"slices"
	"time"

	"github.com/google/uuid"
)

// ExactOnly as a RegisterOpts.Threshold requires bit-identical fingerprints
// for the duplicate check (Hamming distance 0).
const ExactOnly = -1

// Match describes the closest stored image found for a candidate
// fingerprint. Distance is minimal over the whole index; when several
// records tie at the minimum, which one is returned is unspecified.
type Match struct {
	Record     *Record
	Distance   int
	Similarity float64 // 100 * (1 - Distance/bits), presentation only
}

// RegisterOpts configures one registration.
type RegisterOpts struct {
	// OriginalName is the caller-side filename recorded with the image.
	OriginalName string

	// MIMEType is recorded with the image. Empty means sniff from the
	// bytes.
	MIMEType string

	// AllowDuplicates skips the duplicate check entirely.
	AllowDuplicates bool

	// Threshold overrides the configured duplicate threshold for this
	// call. 0 means Config.Threshold; ExactOnly means distance 0 only.
	Threshold int
}

// FindDuplicate fingerprints data and returns the closest stored image at
// Hamming distance <= threshold, or nil when the index holds no image that
// close (or is empty). Nothing is written.
func (d *Detector) FindDuplicate(ctx context.Context, data []byte, threshold int) (*Match, error) {
	fp, err := ComputeFingerprint(data, d.cfg.GridSize)
	if err != nil {
		return nil, err
	}
	return d.FindDuplicateFingerprint(ctx, fp, threshold)
}

// FindDuplicateFingerprint is FindDuplicate for an already computed
// fingerprint.
func (d *Detector) FindDuplicateFingerprint(ctx context.Context, fp *Fingerprint, threshold int) (*Match, error) {
	if threshold < 0 || threshold > fp.BitLen() {
		return nil, fmt.Errorf("imagedup: threshold %d out of range [0, %d]", threshold, fp.BitLen())
	}

	recs, err := d.records.All(ctx)
	if err != nil {
		return nil, &StorageError{Op: "scan index", Err: err}
	}

	var best *Match
	for _, rec := range recs {
		dist, err := fp.Distance(rec.Fingerprint)
		if err != nil {
			// A record indexed under an older grid size: the index
			// needs migrating before it can be compared at all.
			d.log.Error("fingerprint grid mismatch in index",
				"record", rec.ID,
				"record_grid", rec.Fingerprint.GridSize(),
				"detector_grid", d.cfg.GridSize)
			return nil, err
		}
		if best == nil || dist < best.Distance {
			best = &Match{
				Record:     rec,
				Distance:   dist,
				Similarity: SimilarityPercent(dist, fp.BitLen()),
			}
		}
	}

	if best == nil || best.Distance > threshold {
		return nil, nil
	}
	return best, nil
}

// Register stores an image in the library unless a perceptual duplicate is
// already present. On a duplicate it returns a DuplicateError carrying the
// closest match and writes nothing. On success the blob and the record are
// persisted as a unit: if the record insert fails after the blob write, the
// blob is removed again so neither store ends up with an orphan.
func (d *Detector) Register(ctx context.Context, data []byte, opts RegisterOpts) (*Record, error) {
	if int64(len(data)) > d.cfg.MaxUploadBytes {
		return nil, fmt.Errorf("imagedup: image of %d bytes exceeds limit %d", len(data), d.cfg.MaxUploadBytes)
	}

	mime := opts.MIMEType
	if mime == "" {
		mime = http.DetectContentType(data)
	}
	if len(d.cfg.AcceptedMIMETypes) > 0 && !slices.Contains(d.cfg.AcceptedMIMETypes, mime) {
		return nil, fmt.Errorf("imagedup: content type %s not accepted", mime)
	}

	fp, err := ComputeFingerprint(data, d.cfg.GridSize)
	if err != nil {
		return nil, err
	}

	if !opts.AllowDuplicates {
		threshold := opts.Threshold
		switch {
		case threshold == ExactOnly:
			threshold = 0
		case threshold == 0:
			threshold = d.cfg.Threshold
		}
		match, err := d.FindDuplicateFingerprint(ctx, fp, threshold)
		if err != nil {
			return nil, err
		}
		if match != nil {
			return nil, &DuplicateError{Match: *match}
		}
	}

	rec := &Record{
		ID:           uuid.NewString(),
		OriginalName: opts.OriginalName,
		MIMEType:     mime,
		Size:         int64(len(data)),
		UploadedAt:   time.Now().UTC(),
		Fingerprint:  fp,
	}
	if info := ExtractPhotoInfo(data); info != nil {
		rec.Width = info.Width
		rec.Height = info.Height
		rec.Format = info.Format
		rec.Artist = info.Artist
		rec.Copyright = info.Copyright
	}

	path, err := d.blobs.Put(ctx, rec.ID, data)
	if err != nil {
		return nil, &StorageError{Op: "write blob", Err: err}
	}
	rec.StoragePath = path

	if err := d.records.Insert(ctx, rec); err != nil {
		// Roll the blob back; a file without an index entry is an
		// orphan the library can never find again.
		if delErr := d.blobs.Delete(ctx, rec.ID); delErr != nil {
			d.log.Error("rollback failed, orphan blob left behind",
				"id", rec.ID, "err", delErr)
		}
		return nil, &StorageError{Op: "insert record", Err: err}
	}

	d.log.Debug("image registered",
		"id", rec.ID, "name", rec.OriginalName, "fingerprint", fp.String())
	return rec, nil
}

// Remove deletes the record and its stored blob together.
func (d *Detector) Remove(ctx context.Context, id string) error {
	if _, err := d.records.ByID(ctx, id); err != nil {
		return err
	}
	if err := d.records.Delete(ctx, id); err != nil {
		return &StorageError{Op: "delete record", Err: err}
	}
	if err := d.blobs.Delete(ctx, id); err != nil {
		return &StorageError{Op: "delete blob", Err: err}
	}
	return nil
}

// Records lists every stored image record.
func (d *Detector) Records(ctx context.Context) ([]*Record, error) {
	return d.records.All(ctx)
}

// Image returns the stored bytes for a record.
func (d *Detector) Image(ctx context.Context, id string) ([]byte, error) {
	return d.blobs.Get(ctx, id)
}
