package transcode

import (
	"bytes"
	"encoding/base64"
	"errors"
	"fmt"
	"image"
	"image/jpeg"
	"image/png"
)

// ErrUnsupportedFormat is returned when an artifact cannot be expressed in
// the selected output format. The message is surfaced verbatim on the
// artifact's output record.
var ErrUnsupportedFormat = errors.New("only jpeg, png and wav are supported")

// ImageCodec is the image decode/encode capability the adapter relies on.
type ImageCodec interface {
	Decode(data []byte) (image.Image, error)
	EncodeJPEG(img image.Image, quality int) ([]byte, error)
	EncodePNG(img image.Image) ([]byte, error)
}

// StdCodec implements ImageCodec with the standard library codecs.
type StdCodec struct{}

var _ ImageCodec = StdCodec{}

// Decode parses image bytes in any registered format.
func (StdCodec) Decode(data []byte) (image.Image, error) {
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decode image: %w", err)
	}
	return img, nil
}

// EncodeJPEG re-encodes img as JPEG at the given quality.
func (StdCodec) EncodeJPEG(img image.Image, quality int) ([]byte, error) {
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: quality}); err != nil {
		return nil, fmt.Errorf("encode jpeg: %w", err)
	}
	return buf.Bytes(), nil
}

// EncodePNG re-encodes img as lossless PNG.
func (StdCodec) EncodePNG(img image.Image) ([]byte, error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("encode png: %w", err)
	}
	return buf.Bytes(), nil
}

// Adapter converts raw artifact bytes into the selected output format.
type Adapter struct {
	codec ImageCodec
}

// NewAdapter builds an adapter around the given codec. A nil codec selects
// the standard library implementation.
func NewAdapter(codec ImageCodec) *Adapter {
	if codec == nil {
		codec = StdCodec{}
	}
	return &Adapter{codec: codec}
}

// Transcode converts data into format. Image formats decode and re-encode;
// wav passes the bytes through unchanged.
func (a *Adapter) Transcode(data []byte, format Format) ([]byte, error) {
	switch format.kind {
	case kindJPEG:
		img, err := a.codec.Decode(data)
		if err != nil {
			return nil, err
		}
		return a.codec.EncodeJPEG(img, format.quality)
	case kindPNG:
		img, err := a.codec.Decode(data)
		if err != nil {
			return nil, err
		}
		return a.codec.EncodePNG(img)
	case kindWAV:
		return data, nil
	default:
		return nil, ErrUnsupportedFormat
	}
}

// EncodePayload renders a payload in its base64 transport form.
func EncodePayload(data []byte) string {
	return base64.StdEncoding.EncodeToString(data)
}

// SizeLabel renders a byte count as kilobytes with one decimal.
func SizeLabel(n int) string {
	return fmt.Sprintf("%.1f KB", float64(n)/1024.0)
}
