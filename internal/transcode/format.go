package transcode

import (
	"fmt"
	"path/filepath"
	"strings"
)

// MediaClass categorizes an artifact by its filename extension.
type MediaClass int

const (
	ClassUnsupported MediaClass = iota
	ClassImage
	ClassAudio
)

// Classify infers the media class of a filename. Image and WAV extensions are
// recognized; everything else is unsupported.
func Classify(filename string) MediaClass {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".jpg", ".jpeg", ".png":
		return ClassImage
	case ".wav":
		return ClassAudio
	default:
		return ClassUnsupported
	}
}

const (
	kindJPEG = "jpeg"
	kindPNG  = "png"
	kindWAV  = "wav"
)

// Format is the selected output format. The JPEG quality setting only exists
// on the jpeg variant; the constructors are the only way to build a Format,
// so an out-of-range or misplaced quality value is unrepresentable.
type Format struct {
	kind    string
	quality int
}

// JPEG builds the jpeg output format with a re-encode quality of 1-100.
func JPEG(quality int) (Format, error) {
	if quality < 1 || quality > 100 {
		return Format{}, fmt.Errorf("jpeg quality must be between 1 and 100, got %d", quality)
	}
	return Format{kind: kindJPEG, quality: quality}, nil
}

// PNG builds the lossless png output format.
func PNG() Format {
	return Format{kind: kindPNG}
}

// WAV builds the passthrough wav output format.
func WAV() Format {
	return Format{kind: kindWAV}
}

// ParseFormat builds a Format from its configuration name. jpegQuality is
// consulted only when name selects jpeg.
func ParseFormat(name string, jpegQuality int) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "jpeg", "jpg":
		return JPEG(jpegQuality)
	case "png":
		return PNG(), nil
	case "wav":
		return WAV(), nil
	default:
		return Format{}, fmt.Errorf("unsupported output format %q (expected jpeg, png, or wav)", name)
	}
}

// MediaClass returns the artifact class this format can encode.
func (f Format) MediaClass() MediaClass {
	switch f.kind {
	case kindJPEG, kindPNG:
		return ClassImage
	case kindWAV:
		return ClassAudio
	default:
		return ClassUnsupported
	}
}

// MimeType returns the MIME type of payloads produced in this format.
func (f Format) MimeType() string {
	switch f.kind {
	case kindJPEG:
		return "image/jpeg"
	case kindPNG:
		return "image/png"
	case kindWAV:
		return "audio/wav"
	default:
		return ""
	}
}

// Extension returns the file extension for payloads in this format.
func (f Format) Extension() string {
	switch f.kind {
	case kindJPEG:
		return "jpg"
	default:
		return f.kind
	}
}

// Quality returns the jpeg re-encode quality, or zero for non-jpeg formats.
func (f Format) Quality() int {
	return f.quality
}

func (f Format) String() string {
	if f.kind == kindJPEG {
		return fmt.Sprintf("jpeg(q%d)", f.quality)
	}
	return f.kind
}
