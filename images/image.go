// Package images - Image decoding and format detection for uploaded files.
package images

import (
	"bytes"
	"image"

	// Register the decoders for the formats accepted by the upload widget.
	_ "image/jpeg"
	_ "image/png"

	_ "github.com/chai2010/webp"
	"github.com/pkg/errors"
)

// ErrDecode indicates that a payload could not be decoded as an image.
// Callers match it with errors.Is to distinguish bad uploads from
// internal failures.
var ErrDecode = errors.New("image cannot be decoded")

// ImageFormat represents supported image formats.
type ImageFormat string

// ImageFormat constants
const (
	// FormatJPEG is the JPEG image format.
	FormatJPEG ImageFormat = "jpeg"
	// FormatWebP is the WebP image format.
	FormatWebP ImageFormat = "webp"
	// FormatPNG is the PNG image format.
	FormatPNG ImageFormat = "png"
	// FormatUnknown is reported when the payload matches no known signature.
	FormatUnknown ImageFormat = "unknown"
)

// Image represents an uploaded image with its raw bytes and metadata.
type Image struct {
	// The format of the image.
	Format ImageFormat `json:"format" yaml:"format"`
	// The raw encoded bytes of the image.
	Data []byte `json:"data" yaml:"data"`
	// The width of the image in pixels.
	Width int `json:"width" yaml:"width"`
	// The height of the image in pixels.
	Height int `json:"height" yaml:"height"`
}

// DetectFormat sniffs the image format from the payload's magic bytes.
//
// Arguments:
//   - data: The raw bytes to inspect.
//
// Returns:
//   - ImageFormat: The detected format, or FormatUnknown.
func DetectFormat(data []byte) ImageFormat {
	switch {
	case len(data) >= 3 && data[0] == 0xFF && data[1] == 0xD8 && data[2] == 0xFF:
		return FormatJPEG
	case len(data) >= 8 && bytes.Equal(data[:8], []byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1A, '\n'}):
		return FormatPNG
	case len(data) >= 12 && bytes.Equal(data[:4], []byte("RIFF")) && bytes.Equal(data[8:12], []byte("WEBP")):
		return FormatWebP
	default:
		return FormatUnknown
	}
}

// FromBytes builds an Image from raw upload bytes.
//
// Only the header is decoded here; full pixel decoding is deferred to
// Decode so that malformed uploads are rejected cheaply.
//
// Arguments:
//   - data: The raw encoded image bytes.
//
// Returns:
//   - *Image: The image with sniffed format and dimensions.
//   - error: ErrDecode if the payload is not a decodable image.
func FromBytes(data []byte) (*Image, error) {
	if len(data) == 0 {
		return nil, errors.Wrap(ErrDecode, "empty payload")
	}

	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, errors.Wrap(ErrDecode, err.Error())
	}
	if cfg.Width <= 0 || cfg.Height <= 0 {
		return nil, errors.Wrapf(ErrDecode, "invalid dimensions %dx%d", cfg.Width, cfg.Height)
	}

	return &Image{
		Format: DetectFormat(data),
		Data:   data,
		Width:  cfg.Width,
		Height: cfg.Height,
	}, nil
}

// Decode decodes the image pixels.
//
// Returns:
//   - image.Image: The decoded image.
//   - error: ErrDecode if the pixel data is corrupt.
func (i *Image) Decode() (image.Image, error) {
	img, _, err := image.Decode(bytes.NewReader(i.Data))
	if err != nil {
		return nil, errors.Wrap(ErrDecode, err.Error())
	}
	return img, nil
}
