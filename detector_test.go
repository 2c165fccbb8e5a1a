package imagedup

import (
	"context"
	"errors"
	"image/color"
	"testing"
)

func TestFindDuplicate_EmptyIndex(t *testing.T) {
	d, _, _ := newTestDetector(t, Config{})

	match, err := d.FindDuplicate(context.Background(), encodePNG(t, gradientImage(64, 64)), 10)
	if err != nil {
		t.Fatalf("FindDuplicate: %v", err)
	}
	if match != nil {
		t.Errorf("match on empty index: %+v", match)
	}
}

func TestRegister_ThenSelfMatch(t *testing.T) {
	d, _, _ := newTestDetector(t, Config{})
	ctx := context.Background()
	data := encodePNG(t, gradientImage(128, 128))

	rec, err := d.Register(ctx, data, RegisterOpts{OriginalName: "gradient.png"})
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	if rec.ID == "" {
		t.Fatal("record has empty ID")
	}

	match, err := d.FindDuplicate(ctx, data, 0)
	if err != nil {
		t.Fatalf("FindDuplicate: %v", err)
	}
	if match == nil {
		t.Fatal("expected a match for the registered image itself")
	}
	if match.Distance != 0 {
		t.Errorf("self-match distance = %d, want 0", match.Distance)
	}
	if match.Similarity != 100 {
		t.Errorf("self-match similarity = %v, want 100", match.Similarity)
	}
	if match.Record.ID != rec.ID {
		t.Errorf("matched record %s, want %s", match.Record.ID, rec.ID)
	}
}

func TestRegister_ExactDuplicateRejected(t *testing.T) {
	d, recs, _ := newTestDetector(t, Config{})
	ctx := context.Background()
	data := encodePNG(t, solidImage(500, 500, color.RGBA{R: 255, A: 255}))

	first, err := d.Register(ctx, data, RegisterOpts{OriginalName: "red.png"})
	if err != nil {
		t.Fatalf("first Register: %v", err)
	}

	_, err = d.Register(ctx, data, RegisterOpts{OriginalName: "red-again.png"})
	match, ok := AsDuplicate(err)
	if !ok {
		t.Fatalf("second Register error = %v, want DuplicateError", err)
	}
	if match.Distance != 0 {
		t.Errorf("duplicate distance = %d, want 0", match.Distance)
	}
	if match.Similarity != 100 {
		t.Errorf("duplicate similarity = %v, want 100", match.Similarity)
	}
	if match.Record.ID != first.ID {
		t.Errorf("duplicate of %s, want %s", match.Record.ID, first.ID)
	}

	// The rejected upload must not have been persisted.
	if n, _ := recs.Count(ctx); n != 1 {
		t.Errorf("record count = %d, want 1", n)
	}
}

func TestRegister_ReencodedNearDuplicateRejected(t *testing.T) {
	d, _, _ := newTestDetector(t, Config{Threshold: 5})
	ctx := context.Background()
	img := gradientImage(256, 256)

	if _, err := d.Register(ctx, encodePNG(t, img), RegisterOpts{OriginalName: "a.png"}); err != nil {
		t.Fatalf("Register: %v", err)
	}

	_, err := d.Register(ctx, encodeJPEG(t, img, 80), RegisterOpts{OriginalName: "a.jpg"})
	match, ok := AsDuplicate(err)
	if !ok {
		t.Fatalf("error = %v, want DuplicateError for re-encoded image", err)
	}
	if match.Distance > 5 {
		t.Errorf("re-encode distance = %d, want <= 5", match.Distance)
	}
}

func TestRegister_DistinctImagesBothAccepted(t *testing.T) {
	// Solid colors of any hue collapse to the all-zero fingerprint, so
	// distinctness needs luminance structure, not just different hues.
	d, recs, _ := newTestDetector(t, Config{})
	ctx := context.Background()

	if _, err := d.Register(ctx, encodePNG(t, whiteCols(4)), RegisterOpts{Threshold: ExactOnly}); err != nil {
		t.Fatalf("first Register: %v", err)
	}
	if _, err := d.Register(ctx, encodePNG(t, whiteRows(4)), RegisterOpts{Threshold: ExactOnly}); err != nil {
		t.Fatalf("second Register: %v", err)
	}
	if n, _ := recs.Count(ctx); n != 2 {
		t.Errorf("record count = %d, want 2", n)
	}
}

func TestRegister_AllowDuplicates(t *testing.T) {
	d, recs, _ := newTestDetector(t, Config{})
	ctx := context.Background()
	data := encodePNG(t, gradientImage(64, 64))

	if _, err := d.Register(ctx, data, RegisterOpts{}); err != nil {
		t.Fatalf("Register: %v", err)
	}
	if _, err := d.Register(ctx, data, RegisterOpts{AllowDuplicates: true}); err != nil {
		t.Fatalf("Register with AllowDuplicates: %v", err)
	}
	if n, _ := recs.Count(ctx); n != 2 {
		t.Errorf("record count = %d, want 2", n)
	}
}

func TestFindDuplicate_ThresholdMonotonic(t *testing.T) {
	// whiteCols(4) vs whiteCols(5) sit at distance exactly 8.
	d, _, _ := newTestDetector(t, Config{})
	ctx := context.Background()

	if _, err := d.Register(ctx, encodePNG(t, whiteCols(4)), RegisterOpts{}); err != nil {
		t.Fatalf("Register: %v", err)
	}
	candidate := encodePNG(t, whiteCols(5))

	below, err := d.FindDuplicate(ctx, candidate, 7)
	if err != nil {
		t.Fatalf("FindDuplicate(7): %v", err)
	}
	if below != nil {
		t.Errorf("match at threshold 7 for distance-8 pair: %+v", below)
	}

	for _, threshold := range []int{8, 12, 64} {
		match, err := d.FindDuplicate(ctx, candidate, threshold)
		if err != nil {
			t.Fatalf("FindDuplicate(%d): %v", threshold, err)
		}
		if match == nil {
			t.Errorf("no match at threshold %d although one existed at 8", threshold)
		} else if match.Distance != 8 {
			t.Errorf("threshold %d: distance = %d, want 8", threshold, match.Distance)
		}
	}
}

func TestFindDuplicate_ReturnsMinimumDistance(t *testing.T) {
	d, _, _ := newTestDetector(t, Config{})
	ctx := context.Background()

	// Distances from whiteCols(5): whiteCols(4) -> 8, whiteCols(2) -> 24.
	for _, n := range []int{2, 4} {
		if _, err := d.Register(ctx, encodePNG(t, whiteCols(n)), RegisterOpts{Threshold: ExactOnly}); err != nil {
			t.Fatalf("Register whiteCols(%d): %v", n, err)
		}
	}

	match, err := d.FindDuplicate(ctx, encodePNG(t, whiteCols(5)), 30)
	if err != nil {
		t.Fatalf("FindDuplicate: %v", err)
	}
	if match == nil {
		t.Fatal("expected a match")
	}
	if match.Distance != 8 {
		t.Errorf("distance = %d, want the minimum 8", match.Distance)
	}
}

func TestFindDuplicate_ThresholdOutOfRange(t *testing.T) {
	d, _, _ := newTestDetector(t, Config{})
	data := encodePNG(t, gradientImage(64, 64))

	if _, err := d.FindDuplicate(context.Background(), data, -1); err == nil {
		t.Error("expected error for negative threshold")
	}
	if _, err := d.FindDuplicate(context.Background(), data, 65); err == nil {
		t.Error("expected error for threshold above bit length")
	}
}

func TestFindDuplicate_GridMismatchInIndex(t *testing.T) {
	d, recs, _ := newTestDetector(t, Config{GridSize: 8})
	ctx := context.Background()

	// Simulate an index written under an older 4x4 configuration.
	oldFp, err := FingerprintImage(gradientImage(64, 64), 4)
	if err != nil {
		t.Fatalf("FingerprintImage: %v", err)
	}
	if err := recs.Insert(ctx, &Record{ID: "legacy", Fingerprint: oldFp}); err != nil {
		t.Fatalf("Insert: %v", err)
	}

	_, err = d.FindDuplicate(ctx, encodePNG(t, gradientImage(64, 64)), 5)
	if !errors.Is(err, ErrGridMismatch) {
		t.Errorf("error = %v, want ErrGridMismatch", err)
	}
}

// failingRecordStore refuses inserts to exercise the rollback path.
type failingRecordStore struct {
	*MemoryRecordStore
}

func (s *failingRecordStore) Insert(context.Context, *Record) error {
	return errors.New("disk full")
}

// trackingBlobStore records the last ID written.
type trackingBlobStore struct {
	*MemoryBlobStore
	lastPut string
}

func (s *trackingBlobStore) Put(ctx context.Context, id string, data []byte) (string, error) {
	s.lastPut = id
	return s.MemoryBlobStore.Put(ctx, id, data)
}

func TestRegister_RollsBackBlobWhenRecordInsertFails(t *testing.T) {
	recs := &failingRecordStore{NewMemoryRecordStore()}
	blobs := &trackingBlobStore{MemoryBlobStore: NewMemoryBlobStore()}
	d, err := New(recs, blobs, Config{})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	ctx := context.Background()

	_, err = d.Register(ctx, encodePNG(t, gradientImage(64, 64)), RegisterOpts{})
	var storeErr *StorageError
	if !errors.As(err, &storeErr) {
		t.Fatalf("error = %v, want *StorageError", err)
	}

	if blobs.lastPut == "" {
		t.Fatal("blob was never written, rollback path not exercised")
	}
	if _, err := blobs.Get(ctx, blobs.lastPut); !errors.Is(err, ErrNotFound) {
		t.Errorf("blob %s still present after failed insert: err = %v", blobs.lastPut, err)
	}
}

func TestRegister_SizeLimit(t *testing.T) {
	d, _, _ := newTestDetector(t, Config{MaxUploadBytes: 64})

	_, err := d.Register(context.Background(), encodePNG(t, gradientImage(128, 128)), RegisterOpts{})
	if err == nil {
		t.Error("expected error for oversized upload")
	}
}

func TestRegister_MIMETypeRestriction(t *testing.T) {
	d, _, _ := newTestDetector(t, Config{AcceptedMIMETypes: []string{"image/jpeg"}})
	ctx := context.Background()

	if _, err := d.Register(ctx, encodePNG(t, gradientImage(64, 64)), RegisterOpts{}); err == nil {
		t.Error("expected PNG to be rejected when only image/jpeg is accepted")
	}
	if _, err := d.Register(ctx, encodeJPEG(t, gradientImage(64, 64), 90), RegisterOpts{}); err != nil {
		t.Errorf("JPEG rejected: %v", err)
	}
}

func TestRegister_RecordsMetadata(t *testing.T) {
	d, _, _ := newTestDetector(t, Config{})

	rec, err := d.Register(context.Background(), encodePNG(t, gradientImage(120, 90)), RegisterOpts{OriginalName: "g.png"})
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	if rec.Width != 120 || rec.Height != 90 {
		t.Errorf("dimensions = %dx%d, want 120x90", rec.Width, rec.Height)
	}
	if rec.Format != "png" {
		t.Errorf("format = %q, want png", rec.Format)
	}
	if rec.MIMEType != "image/png" {
		t.Errorf("mime = %q, want image/png", rec.MIMEType)
	}
	if rec.Size == 0 || rec.UploadedAt.IsZero() {
		t.Errorf("size/uploadedAt not filled: %+v", rec)
	}
}

func TestRemove_DeletesRecordAndBlob(t *testing.T) {
	d, recs, blobs := newTestDetector(t, Config{})
	ctx := context.Background()

	rec, err := d.Register(ctx, encodePNG(t, gradientImage(64, 64)), RegisterOpts{})
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	if err := d.Remove(ctx, rec.ID); err != nil {
		t.Fatalf("Remove: %v", err)
	}

	if _, err := recs.ByID(ctx, rec.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("record still present: err = %v", err)
	}
	if _, err := blobs.Get(ctx, rec.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("blob still present: err = %v", err)
	}

	match, err := d.FindDuplicate(ctx, encodePNG(t, gradientImage(64, 64)), 64)
	if err != nil {
		t.Fatalf("FindDuplicate: %v", err)
	}
	if match != nil {
		t.Errorf("removed image still matched: %+v", match)
	}
}

func TestRemove_MissingRecord(t *testing.T) {
	d, _, _ := newTestDetector(t, Config{})
	if err := d.Remove(context.Background(), "nope"); !errors.Is(err, ErrNotFound) {
		t.Errorf("error = %v, want ErrNotFound", err)
	}
}
