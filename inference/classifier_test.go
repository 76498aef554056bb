package inference

import (
	"bytes"
	"context"
	"encoding/json"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/embryo-vision/go-embryo/images"
	"github.com/embryo-vision/go-embryo/models"
	"github.com/embryo-vision/go-embryo/models/model"
	"github.com/embryo-vision/go-embryo/models/postprocess"
	"github.com/embryo-vision/go-embryo/profiler"
)

// fakeRunner is a Runner with fixed buffers and a scripted outcome.
type fakeRunner struct {
	input  []float32
	output []float32
	scores []float32
	runErr error
	runs   int
	closed bool
}

func (f *fakeRunner) Run() error {
	f.runs++
	if f.runErr != nil {
		return f.runErr
	}
	copy(f.output, f.scores)
	return nil
}

func (f *fakeRunner) InputData() []float32  { return f.input }
func (f *fakeRunner) OutputData() []float32 { return f.output }

func (f *fakeRunner) Close() error {
	f.closed = true
	return nil
}

func testMetadata() model.Metadata {
	return model.Metadata{
		ModelName:       "mobilenetv2",
		Classes:         []string{"Grade A", "Grade B", "Grade C"},
		InputShape:      []int64{1, 64, 64, 3},
		OutputShape:     []int64{1, 3},
		ImageSize:       64,
		Normalization:   model.NormalizationMinusOneToOne,
		ConfidenceFloor: 0.6,
		InputName:       "input_layer",
		OutputName:      "predictions",
	}
}

func testModel(t *testing.T) model.Model {
	t.Helper()
	dir := t.TempDir()

	meta := testMetadata()
	data, err := json.Marshal(meta)
	require.NoError(t, err)
	metaPath := filepath.Join(dir, "metadata.json")
	require.NoError(t, os.WriteFile(metaPath, data, 0o644))

	artifactPath := filepath.Join(dir, "model.onnx")
	require.NoError(t, os.WriteFile(artifactPath, []byte{0x08, 0x07}, 0o644))

	m, err := models.NewModel(model.NewModelArgs{
		Name:         model.NameMobileNetV2,
		Path:         artifactPath,
		MetadataPath: metaPath,
	})
	require.NoError(t, err)
	return m
}

func testRunner(meta model.Metadata, scores []float32) *fakeRunner {
	return &fakeRunner{
		input:  make([]float32, meta.InputElements()),
		output: make([]float32, meta.OutputElements()),
		scores: scores,
	}
}

func testUpload(t *testing.T) *images.Image {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 120, 90))
	for y := 0; y < 90; y++ {
		for x := 0; x < 120; x++ {
			img.Set(x, y, color.RGBA{R: uint8(2 * x), G: uint8(2 * y), B: 120, A: 255})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	upload, err := images.FromBytes(buf.Bytes())
	require.NoError(t, err)
	return upload
}

func TestClassify(t *testing.T) {
	m := testModel(t)
	runner := testRunner(testMetadata(), []float32{0.1, 0.7, 0.2})
	c := NewClassifierWithSession(m, runner, nil)

	pred, err := c.Classify(context.Background(), testUpload(t))
	require.NoError(t, err)

	assert.Equal(t, "Grade B", pred.Class)
	assert.InDelta(t, 0.7, float64(pred.Confidence), 1e-6)
	assert.Equal(t, 1, runner.runs)
}

func TestClassify_FillsInputBuffer(t *testing.T) {
	m := testModel(t)
	runner := testRunner(testMetadata(), []float32{1, 0, 0})
	c := NewClassifierWithSession(m, runner, nil)

	_, err := c.Classify(context.Background(), testUpload(t))
	require.NoError(t, err)

	var nonZero bool
	for _, v := range runner.input {
		if v != 0 {
			nonZero = true
			break
		}
	}
	assert.True(t, nonZero, "input buffer was not populated")
}

func TestClassify_SessionFailure(t *testing.T) {
	m := testModel(t)
	runner := testRunner(testMetadata(), nil)
	runner.runErr = errors.New("native runtime fault")
	c := NewClassifierWithSession(m, runner, nil)

	_, err := c.Classify(context.Background(), testUpload(t))
	assert.ErrorIs(t, err, postprocess.ErrInference)
}

func TestClassify_BadUpload(t *testing.T) {
	m := testModel(t)
	runner := testRunner(testMetadata(), []float32{1, 0, 0})
	c := NewClassifierWithSession(m, runner, nil)

	_, err := c.Classify(context.Background(), &images.Image{Data: []byte("not an image")})
	assert.ErrorIs(t, err, images.ErrDecode)
	assert.Zero(t, runner.runs, "session must not run on a bad upload")
}

func TestClassify_CancelledContext(t *testing.T) {
	m := testModel(t)
	runner := testRunner(testMetadata(), []float32{1, 0, 0})
	c := NewClassifierWithSession(m, runner, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := c.Classify(ctx, testUpload(t))
	assert.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, runner.runs)
}

func TestClassify_ConcurrentRequests(t *testing.T) {
	m := testModel(t)
	runner := testRunner(testMetadata(), []float32{0.2, 0.3, 0.5})
	c := NewClassifierWithSession(m, runner, profiler.New())
	upload := testUpload(t)

	const workers = 8
	done := make(chan error, workers)
	for i := 0; i < workers; i++ {
		go func() {
			_, err := c.Classify(context.Background(), upload)
			done <- err
		}()
	}
	for i := 0; i < workers; i++ {
		require.NoError(t, <-done)
	}
	assert.Equal(t, workers, runner.runs)
}

func TestClose(t *testing.T) {
	m := testModel(t)
	runner := testRunner(testMetadata(), nil)
	c := NewClassifierWithSession(m, runner, nil)

	require.NoError(t, c.Close())
	assert.True(t, runner.closed)
}
