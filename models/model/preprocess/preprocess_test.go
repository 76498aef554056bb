package preprocess

import (
	"bytes"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/embryo-vision/go-embryo/images"
)

// createTestImage renders a deterministic gradient and encodes it as JPEG
// or PNG, returning the wrapped upload.
func createTestImage(t *testing.T, format images.ImageFormat, width, height int) *images.Image {
	t.Helper()

	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.Set(x, y, color.RGBA{
				R: uint8((x + y) % 256),
				G: uint8(x % 256),
				B: uint8(y % 256),
				A: 255,
			})
		}
	}

	var buf bytes.Buffer
	var err error
	switch format {
	case images.FormatJPEG:
		err = jpeg.Encode(&buf, img, &jpeg.Options{Quality: 95})
	case images.FormatPNG:
		err = png.Encode(&buf, img)
	default:
		t.Fatalf("unsupported test format: %s", format)
	}
	require.NoError(t, err)

	upload, err := images.FromBytes(buf.Bytes())
	require.NoError(t, err)
	return upload
}

func mobilenetConfig() Config {
	return Config{
		Name:          "mobilenetv2",
		InputWidth:    224,
		InputHeight:   224,
		InputChannels: 3,
		Normalization: NormalizeMinusOneToOne,
		ChannelOrder:  ChannelOrderNHWC,
	}
}

func TestRun_ShapeMatchesDeclaredInput(t *testing.T) {
	pre, err := New(mobilenetConfig())
	require.NoError(t, err)

	for _, format := range []images.ImageFormat{images.FormatJPEG, images.FormatPNG} {
		t.Run(string(format), func(t *testing.T) {
			upload := createTestImage(t, format, 800, 600)

			result, err := pre.Run(upload)
			require.NoError(t, err)

			assert.Equal(t, []int64{1, 224, 224, 3}, result.Shape())
			assert.Len(t, result.Data(), 1*224*224*3)
			assert.NoError(t, result.EnsureShape([]int64{1, 224, 224, 3}))

			assert.Equal(t, 800, result.OriginalWidth)
			assert.Equal(t, 600, result.OriginalHeight)
		})
	}
}

func TestRun_MinusOneToOneRange(t *testing.T) {
	pre, err := New(mobilenetConfig())
	require.NoError(t, err)

	result, err := pre.Run(createTestImage(t, images.FormatPNG, 224, 224))
	require.NoError(t, err)

	for _, v := range result.Data() {
		assert.GreaterOrEqual(t, v, float32(-1.0))
		assert.LessOrEqual(t, v, float32(1.0))
	}
}

func TestRun_ZeroToOneRange(t *testing.T) {
	cfg := mobilenetConfig()
	cfg.Normalization = NormalizeZeroToOne
	pre, err := New(cfg)
	require.NoError(t, err)

	result, err := pre.Run(createTestImage(t, images.FormatPNG, 100, 100))
	require.NoError(t, err)

	for _, v := range result.Data() {
		assert.GreaterOrEqual(t, v, float32(0.0))
		assert.LessOrEqual(t, v, float32(1.0))
	}
}

func TestRun_NCHWLayout(t *testing.T) {
	cfg := Config{
		Name:          "nchw-model",
		InputWidth:    64,
		InputHeight:   64,
		InputChannels: 3,
		Normalization: NormalizeZeroToOne,
		ChannelOrder:  ChannelOrderNCHW,
	}
	pre, err := New(cfg)
	require.NoError(t, err)

	result, err := pre.Run(createTestImage(t, images.FormatPNG, 128, 128))
	require.NoError(t, err)
	assert.Equal(t, []int64{1, 3, 64, 64}, result.Shape())
}

func TestRun_LetterboxGeometry(t *testing.T) {
	cfg := mobilenetConfig()
	cfg.KeepAspectRatio = true
	pre, err := New(cfg)
	require.NoError(t, err)

	// 448x224 source scales by 0.5 into 224x112, padded vertically.
	result, err := pre.Run(createTestImage(t, images.FormatPNG, 448, 224))
	require.NoError(t, err)

	assert.Equal(t, []int64{1, 224, 224, 3}, result.Shape())
	assert.InDelta(t, 0.5, result.ScaleX, 0.001)
	assert.InDelta(t, 0.5, result.ScaleY, 0.001)
	assert.Equal(t, 0, result.PadLeft)
	assert.Equal(t, 56, result.PadTop)
}

func TestRun_Deterministic(t *testing.T) {
	pre, err := New(mobilenetConfig())
	require.NoError(t, err)

	upload := createTestImage(t, images.FormatPNG, 300, 200)

	first, err := pre.Run(upload)
	require.NoError(t, err)
	second, err := pre.Run(upload)
	require.NoError(t, err)

	assert.Equal(t, first.Data(), second.Data(), "same input must produce identical tensors")
}

func TestRun_RejectsUndecodableInput(t *testing.T) {
	pre, err := New(mobilenetConfig())
	require.NoError(t, err)

	_, err = pre.Run(nil)
	assert.ErrorIs(t, err, images.ErrDecode)

	_, err = pre.Run(&images.Image{Format: images.FormatJPEG, Data: []byte("not an image")})
	assert.ErrorIs(t, err, images.ErrDecode)
}

func TestNew_RejectsInvalidConfig(t *testing.T) {
	tests := []struct {
		name string
		cfg  Config
	}{
		{"Zero width", Config{InputWidth: 0, InputHeight: 224, InputChannels: 3}},
		{"Negative height", Config{InputWidth: 224, InputHeight: -1, InputChannels: 3}},
		{"Two channels", Config{InputWidth: 224, InputHeight: 224, InputChannels: 2}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(tt.cfg)
			assert.ErrorIs(t, err, ErrShape)
		})
	}
}

func TestEnsureShape_Mismatch(t *testing.T) {
	pre, err := New(mobilenetConfig())
	require.NoError(t, err)

	result, err := pre.Run(createTestImage(t, images.FormatPNG, 50, 50))
	require.NoError(t, err)

	assert.ErrorIs(t, result.EnsureShape([]int64{1, 3, 224, 224}), ErrShape)
	assert.ErrorIs(t, result.EnsureShape([]int64{1, 224, 224}), ErrShape)
}
