// Package preprocess - Image preprocessing for ONNX classifier models.
package preprocess

import (
	"image"
	"image/color"
	"image/draw"
	"math"

	"github.com/nfnt/resize"
	"github.com/pkg/errors"
	"gorgonia.org/tensor"

	"github.com/embryo-vision/go-embryo/images"
)

// ErrShape indicates that preprocessing could not produce, or did not
// produce, a tensor of the shape the model expects.
var ErrShape = errors.New("tensor shape mismatch")

// NormalizationType defines how pixel values are normalized.
type NormalizationType int

const (
	// NormalizeZeroToOne scales pixel values to [0, 1].
	NormalizeZeroToOne NormalizationType = iota
	// NormalizeMinusOneToOne scales pixel values to [-1, 1].
	NormalizeMinusOneToOne
)

// ChannelOrder defines the ordering of image channels.
type ChannelOrder int

const (
	// ChannelOrderNHWC is batch-height-width-channel ordering (Keras exports).
	ChannelOrderNHWC ChannelOrder = iota
	// ChannelOrderNCHW is batch-channel-height-width ordering.
	ChannelOrderNCHW
)

// Config defines preprocessing for a specific model.
type Config struct {
	// Name of the model, for error messages.
	Name string
	// InputWidth is the expected width of the model input.
	InputWidth int
	// InputHeight is the expected height of the model input.
	InputHeight int
	// InputChannels is the number of channels (3 for RGB).
	InputChannels int
	// Normalization defines how to scale pixel values.
	Normalization NormalizationType
	// ChannelOrder defines the tensor layout.
	ChannelOrder ChannelOrder
	// KeepAspectRatio if true, maintains aspect ratio with letterboxing.
	KeepAspectRatio bool
	// LetterboxColor is the padding color when letterboxing (default black).
	LetterboxColor color.Color
}

// Result contains the preprocessed tensor and the geometry applied to
// produce it. It is owned by the inference call that requested it and is
// discarded afterwards.
type Result struct {
	// Tensor is the dense float32 tensor in the configured layout,
	// including the leading batch dimension.
	Tensor *tensor.Dense
	// OriginalWidth is the image width before preprocessing.
	OriginalWidth int
	// OriginalHeight is the image height before preprocessing.
	OriginalHeight int
	// ScaleX is the horizontal scaling factor applied.
	ScaleX float64
	// ScaleY is the vertical scaling factor applied.
	ScaleY float64
	// PadLeft is the left padding applied for letterboxing.
	PadLeft int
	// PadTop is the top padding applied for letterboxing.
	PadTop int
}

// Data returns the flat float32 backing of the tensor.
func (r *Result) Data() []float32 {
	return r.Tensor.Data().([]float32)
}

// Shape returns the tensor shape as int64, the convention used by the
// ONNX Runtime bindings and the metadata sidecar.
func (r *Result) Shape() []int64 {
	shape := r.Tensor.Shape()
	out := make([]int64, len(shape))
	for i, dim := range shape {
		out[i] = int64(dim)
	}
	return out
}

// EnsureShape verifies the tensor shape against the model's declared
// input shape.
//
// Arguments:
//   - expected: The declared input shape, e.g. [1, 224, 224, 3].
//
// Returns:
//   - error: ErrShape when the shapes differ, nil otherwise.
func (r *Result) EnsureShape(expected []int64) error {
	got := r.Shape()
	if len(got) != len(expected) {
		return errors.Wrapf(ErrShape, "got rank %d, want rank %d", len(got), len(expected))
	}
	for i := range got {
		if got[i] != expected[i] {
			return errors.Wrapf(ErrShape, "got %v, want %v", got, expected)
		}
	}
	return nil
}

// Preprocessor converts uploaded images into model input tensors.
type Preprocessor struct {
	config Config
}

// New creates a preprocessor after validating the configuration.
//
// Arguments:
//   - config: The model-specific preprocessing configuration.
//
// Returns:
//   - *Preprocessor: The configured preprocessor.
//   - error: ErrShape if the configured dimensions are unusable.
func New(config Config) (*Preprocessor, error) {
	if config.InputWidth <= 0 || config.InputHeight <= 0 {
		return nil, errors.Wrapf(ErrShape, "invalid input dimensions %dx%d",
			config.InputWidth, config.InputHeight)
	}
	if config.InputChannels != 1 && config.InputChannels != 3 {
		return nil, errors.Wrapf(ErrShape, "unsupported channel count %d", config.InputChannels)
	}
	if config.LetterboxColor == nil {
		config.LetterboxColor = color.Black
	}
	return &Preprocessor{config: config}, nil
}

// Config returns a copy of the preprocessor's configuration.
func (p *Preprocessor) Config() Config {
	return p.config
}

// Run performs decoding, resizing, layout conversion, and normalization.
//
// Arguments:
//   - img: The uploaded image.
//
// Returns:
//   - *Result: The preprocessed tensor with its geometry.
//   - error: images.ErrDecode for undecodable payloads, ErrShape when the
//     target dimensions cannot be produced.
func (p *Preprocessor) Run(img *images.Image) (*Result, error) {
	if img == nil || len(img.Data) == 0 {
		return nil, errors.Wrap(images.ErrDecode, "no image data")
	}

	decoded, err := img.Decode()
	if err != nil {
		return nil, err
	}

	originalWidth := decoded.Bounds().Dx()
	originalHeight := decoded.Bounds().Dy()
	if originalWidth == 0 || originalHeight == 0 {
		return nil, errors.Wrap(images.ErrDecode, "decoded image has no pixels")
	}

	resized, scaleX, scaleY, padLeft, padTop := p.resizeImage(decoded)
	if resized.Bounds().Dx() != p.config.InputWidth || resized.Bounds().Dy() != p.config.InputHeight {
		return nil, errors.Wrapf(ErrShape, "resize produced %dx%d, want %dx%d",
			resized.Bounds().Dx(), resized.Bounds().Dy(),
			p.config.InputWidth, p.config.InputHeight)
	}

	data := p.imageToTensor(resized)
	p.normalize(data)

	var shape tensor.Shape
	if p.config.ChannelOrder == ChannelOrderNCHW {
		shape = tensor.Shape{1, p.config.InputChannels, p.config.InputHeight, p.config.InputWidth}
	} else {
		shape = tensor.Shape{1, p.config.InputHeight, p.config.InputWidth, p.config.InputChannels}
	}

	dense := tensor.New(tensor.WithShape(shape...), tensor.WithBacking(data))

	return &Result{
		Tensor:         dense,
		OriginalWidth:  originalWidth,
		OriginalHeight: originalHeight,
		ScaleX:         scaleX,
		ScaleY:         scaleY,
		PadLeft:        padLeft,
		PadTop:         padTop,
	}, nil
}

// resizeImage resizes the image to the configured input dimensions using
// Lanczos3 resampling, optionally preserving aspect ratio with letterbox
// padding.
func (p *Preprocessor) resizeImage(img image.Image) (image.Image, float64, float64, int, int) {
	bounds := img.Bounds()
	srcWidth := bounds.Dx()
	srcHeight := bounds.Dy()

	if !p.config.KeepAspectRatio {
		resized := resize.Resize(
			uint(p.config.InputWidth), uint(p.config.InputHeight), img, resize.Lanczos3)
		scaleX := float64(p.config.InputWidth) / float64(srcWidth)
		scaleY := float64(p.config.InputHeight) / float64(srcHeight)
		return resized, scaleX, scaleY, 0, 0
	}

	scale := math.Min(
		float64(p.config.InputWidth)/float64(srcWidth),
		float64(p.config.InputHeight)/float64(srcHeight),
	)
	newWidth := int(float64(srcWidth) * scale)
	newHeight := int(float64(srcHeight) * scale)

	resized := resize.Resize(uint(newWidth), uint(newHeight), img, resize.Lanczos3)

	padLeft := (p.config.InputWidth - newWidth) / 2
	padTop := (p.config.InputHeight - newHeight) / 2

	letterboxed := image.NewRGBA(image.Rect(0, 0, p.config.InputWidth, p.config.InputHeight))
	draw.Draw(letterboxed, letterboxed.Bounds(),
		&image.Uniform{p.config.LetterboxColor}, image.Point{}, draw.Src)
	draw.Draw(letterboxed, image.Rect(padLeft, padTop, padLeft+newWidth, padTop+newHeight),
		resized, image.Point{}, draw.Over)

	return letterboxed, scale, scale, padLeft, padTop
}

// imageToTensor flattens the image into a float32 slice in the configured
// channel order, with values still in [0, 255].
func (p *Preprocessor) imageToTensor(img image.Image) []float32 {
	width := p.config.InputWidth
	height := p.config.InputHeight

	data := make([]float32, width*height*p.config.InputChannels)

	idx := 0
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			r, g, b, _ := img.At(x, y).RGBA()
			r8 := float32(r >> 8)
			g8 := float32(g >> 8)
			b8 := float32(b >> 8)

			if p.config.InputChannels == 1 {
				data[y*width+x] = 0.299*r8 + 0.587*g8 + 0.114*b8
				continue
			}

			if p.config.ChannelOrder == ChannelOrderNCHW {
				data[0*height*width+y*width+x] = r8
				data[1*height*width+y*width+x] = g8
				data[2*height*width+y*width+x] = b8
			} else {
				data[idx] = r8
				data[idx+1] = g8
				data[idx+2] = b8
				idx += 3
			}
		}
	}

	return data
}

// normalize scales the tensor in place according to the configuration.
func (p *Preprocessor) normalize(data []float32) {
	switch p.config.Normalization {
	case NormalizeMinusOneToOne:
		for i := range data {
			data[i] = (data[i] / 127.5) - 1.0
		}
	default:
		for i := range data {
			data[i] /= 255.0
		}
	}
}
