package imagedup

import (
	"bytes"
	"encoding/hex"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	"github.com/corona10/goimagehash"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

// Fingerprint is a fixed-length average-hash bit pattern summarizing an
// image's coarse luminance structure. Fingerprints are immutable once
// computed and are only ever compared by Hamming distance, never by
// exact equality.
type Fingerprint struct {
	hash *goimagehash.ExtImageHash
	grid int
}

// ComputeFingerprint decodes data and returns its grid*grid-bit average
// hash. The image is downsampled by area averaging, each cell is reduced to
// a plain (r+g+b)/3 gray value, and a bit is set for every cell brighter
// than the mean cell. The result depends only on pixel content: identical
// pixels always produce identical fingerprints.
func ComputeFingerprint(data []byte, grid int) (*Fingerprint, error) {
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, &DecodeError{Err: err}
	}
	return FingerprintImage(img, grid)
}

// FingerprintImage computes the average hash of an already decoded image.
func FingerprintImage(img image.Image, grid int) (*Fingerprint, error) {
	if grid <= 0 {
		return nil, fmt.Errorf("imagedup: grid size must be positive, got %d", grid)
	}

	cells := downsampleGray(img, grid)

	var sum float64
	for _, c := range cells {
		sum += c
	}
	mean := sum / float64(len(cells))

	bits := grid * grid
	words := make([]uint64, (bits+63)/64)
	for i, c := range cells {
		if c > mean {
			words[i/64] |= 1 << (63 - uint(i)%64)
		}
	}

	return &Fingerprint{
		hash: goimagehash.NewExtImageHash(words, goimagehash.AHash, bits),
		grid: grid,
	}, nil
}

// downsampleGray resamples img to a grid x grid matrix of gray intensities,
// averaging every source pixel that falls into a cell. Area averaging (as
// opposed to point sampling) is what makes the hash stable under
// recompression: high-frequency detail is discarded before thresholding.
func downsampleGray(img image.Image, grid int) []float64 {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()

	cells := make([]float64, grid*grid)
	for cy := 0; cy < grid; cy++ {
		y0 := b.Min.Y + cy*h/grid
		y1 := b.Min.Y + (cy+1)*h/grid
		if y1 <= y0 {
			y1 = y0 + 1 // image smaller than the grid
		}
		for cx := 0; cx < grid; cx++ {
			x0 := b.Min.X + cx*w/grid
			x1 := b.Min.X + (cx+1)*w/grid
			if x1 <= x0 {
				x1 = x0 + 1
			}

			var sum, n uint64
			for y := y0; y < y1; y++ {
				for x := x0; x < x1; x++ {
					r, g, bl, _ := img.At(x, y).RGBA()
					// Plain channel average, deliberately not
					// perceptually weighted luminance: the hash
					// only needs a deterministic gray value.
					sum += uint64(r>>8+g>>8+bl>>8) / 3
					n++
				}
			}
			cells[cy*grid+cx] = float64(sum) / float64(n)
		}
	}
	return cells
}

// GridSize returns the grid edge length the fingerprint was computed under.
func (f *Fingerprint) GridSize() int { return f.grid }

// BitLen returns the number of bits in the fingerprint (GridSize squared).
func (f *Fingerprint) BitLen() int { return f.grid * f.grid }

// Bit reports whether bit i (row-major cell order) is set.
func (f *Fingerprint) Bit(i int) bool {
	words := f.hash.GetHash()
	return words[i/64]&(1<<(63-uint(i)%64)) != 0
}

// Distance returns the Hamming distance to other: the count of bit
// positions where the two fingerprints differ. Comparing fingerprints
// computed under different grid sizes returns ErrGridMismatch.
func (f *Fingerprint) Distance(other *Fingerprint) (int, error) {
	if f.grid != other.grid {
		return 0, ErrGridMismatch
	}
	dist, err := f.hash.Distance(other.hash)
	if err != nil {
		return 0, ErrGridMismatch
	}
	return dist, nil
}

// String encodes the fingerprint bits as a fixed-length hex string.
func (f *Fingerprint) String() string {
	words := f.hash.GetHash()
	buf := make([]byte, 0, len(words)*8)
	for _, w := range words {
		for shift := 56; shift >= 0; shift -= 8 {
			buf = append(buf, byte(w>>uint(shift)))
		}
	}
	return hex.EncodeToString(buf)
}

// ParseFingerprint decodes the hex form produced by String for the given
// grid size.
func ParseFingerprint(s string, grid int) (*Fingerprint, error) {
	if grid <= 0 {
		return nil, fmt.Errorf("imagedup: grid size must be positive, got %d", grid)
	}
	bits := grid * grid
	nwords := (bits + 63) / 64

	raw, err := hex.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("imagedup: malformed fingerprint %q: %w", s, err)
	}
	if len(raw) != nwords*8 {
		return nil, fmt.Errorf("imagedup: fingerprint %q has %d bytes, want %d for grid %d",
			s, len(raw), nwords*8, grid)
	}

	words := make([]uint64, nwords)
	for i := range words {
		for j := 0; j < 8; j++ {
			words[i] = words[i]<<8 | uint64(raw[i*8+j])
		}
	}
	return &Fingerprint{
		hash: goimagehash.NewExtImageHash(words, goimagehash.AHash, bits),
		grid: grid,
	}, nil
}

// SimilarityPercent converts a Hamming distance over bits fingerprint bits
// into a 0-100 similarity figure. Presentation only; threshold logic always
// works on the raw distance.
func SimilarityPercent(distance, bits int) float64 {
	if bits <= 0 {
		return 0
	}
	return 100 * (1 - float64(distance)/float64(bits))
}
