package imagedup

import (
	"bytes"
	"image"
	"time"

	"github.com/bep/imagemeta"
)

// PhotoInfo holds the descriptive fields recorded alongside a registered
// image: pixel dimensions, decoder format and authorship EXIF tags.
type PhotoInfo struct {
	Width     int
	Height    int
	Format    string // "jpeg", "png", ...
	Artist    string
	Copyright string
	Taken     time.Time // EXIF DateTimeOriginal, zero when absent
}

// exifTags are the EXIF tag names worth pulling into a PhotoInfo.
var exifTags = map[string]bool{
	"Artist":           true,
	"Copyright":        true,
	"DateTimeOriginal": true,
}

// ExtractPhotoInfo parses dimensions and EXIF metadata from raw image
// bytes. Returns nil if data is empty or the dimensions cannot be decoded.
// EXIF parsing is best-effort: a missing or broken EXIF segment still
// yields the dimension fields. Never returns an error.
func ExtractPhotoInfo(data []byte) *PhotoInfo {
	if len(data) == 0 {
		return nil
	}

	cfg, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil
	}
	info := &PhotoInfo{
		Width:  cfg.Width,
		Height: cfg.Height,
		Format: format,
	}

	_ = imagemeta.Decode(imagemeta.Options{
		R:       bytes.NewReader(data),
		Sources: imagemeta.EXIF,
		ShouldHandleTag: func(ti imagemeta.TagInfo) bool {
			return exifTags[ti.Tag]
		},
		HandleTag: func(ti imagemeta.TagInfo) error {
			switch ti.Tag {
			case "Artist":
				info.Artist = exifString(ti.Value)
			case "Copyright":
				info.Copyright = exifString(ti.Value)
			case "DateTimeOriginal":
				info.Taken = exifTime(ti.Value)
			}
			return nil
		},
	})

	return info
}

// exifString extracts a string from an EXIF tag value.
func exifString(v any) string {
	s, _ := v.(string)
	return s
}

// exifTime extracts a timestamp from an EXIF date tag, which imagemeta may
// hand over as time.Time or as the raw "2006:01:02 15:04:05" string.
func exifTime(v any) time.Time {
	switch val := v.(type) {
	case time.Time:
		return val
	case string:
		t, err := time.Parse("2006:01:02 15:04:05", val)
		if err != nil {
			return time.Time{}
		}
		return t
	default:
		return time.Time{}
	}
}
