package inference

import (
	"context"
	"sync"

	"github.com/pkg/errors"

	"github.com/embryo-vision/go-embryo/images"
	"github.com/embryo-vision/go-embryo/inference/providers"
	"github.com/embryo-vision/go-embryo/models"
	"github.com/embryo-vision/go-embryo/models/model"
	"github.com/embryo-vision/go-embryo/models/postprocess"
	"github.com/embryo-vision/go-embryo/profiler"
)

// Classifier runs a classifier model over an ONNX Runtime session.
//
// The session's input and output tensors are preallocated and reused, so
// runs are serialized with a mutex. Preprocessing happens outside the
// critical section.
type Classifier struct {
	model   model.Model
	session Runner
	prof    *profiler.Profiler
	mu      sync.Mutex
}

// NewClassifierArgs represents the arguments for creating a new Classifier.
type NewClassifierArgs struct {
	// The model name together with the artifact and sidecar paths.
	Model model.NewModelArgs `json:"model" yaml:"model"`
	// The execution provider configuration.
	Provider providers.Config `json:"provider" yaml:"provider"`
	// Optional profiler for per-stage latency tracking.
	Profiler *profiler.Profiler `json:"-" yaml:"-"`
}

// NewClassifier creates a classifier by loading the model artifacts and
// opening an ONNX Runtime session bound to the metadata's tensor names and
// shapes.
//
// Arguments:
//   - args: The model, provider, and profiler configuration.
//
// Returns:
//   - *Classifier: The classifier, ready to serve Classify calls.
//   - error: model.ErrArtifactMissing, model.ErrArtifactCorrupt, or a
//     runtime setup error. These are startup failures; callers treat them
//     as fatal.
func NewClassifier(args NewClassifierArgs) (*Classifier, error) {
	m, err := models.NewModel(args.Model)
	if err != nil {
		return nil, err
	}

	session, err := NewSession(NewSessionArgs{
		ModelPath: m.Path(),
		Metadata:  m.Metadata(),
		Provider:  args.Provider,
	})
	if err != nil {
		return nil, err
	}

	return &Classifier{
		model:   m,
		session: session,
		prof:    args.Profiler,
	}, nil
}

// NewClassifierWithSession wires a classifier over an existing session.
// Used by tests to substitute a fake runner.
func NewClassifierWithSession(m model.Model, session Runner, prof *profiler.Profiler) *Classifier {
	return &Classifier{
		model:   m,
		session: session,
		prof:    prof,
	}
}

// Metadata returns the metadata of the loaded model.
func (c *Classifier) Metadata() *model.Metadata {
	return c.model.Metadata()
}

// Classify scores an uploaded image.
//
// The pipeline is preprocess, run, postprocess. The prediction is detached
// from the session's reusable output buffer before the lock is released.
//
// Arguments:
//   - ctx: The context for the classification.
//   - img: The uploaded image.
//
// Returns:
//   - *postprocess.Prediction: The top-1 class with the full distribution.
//   - error: images.ErrDecode or preprocess.ErrShape from preprocessing,
//     postprocess.ErrInference from the run, or the context's error.
func (c *Classifier) Classify(ctx context.Context, img *images.Image) (*postprocess.Prediction, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	stopPre := c.startOperation("preprocess")
	result, err := c.model.PreProcess(img)
	stopPre()
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	input := c.session.InputData()
	data := result.Data()
	if len(input) != len(data) {
		return nil, errors.Wrapf(postprocess.ErrInference,
			"input buffer holds %d elements, tensor has %d", len(input), len(data))
	}
	copy(input, data)

	stopRun := c.startOperation("inference")
	err = c.session.Run()
	stopRun()
	if err != nil {
		return nil, errors.Wrapf(postprocess.ErrInference, "session run: %v", err)
	}

	stopPost := c.startOperation("postprocess")
	pred, err := c.model.PostProcess(c.session.OutputData())
	stopPost()
	if err != nil {
		return nil, err
	}
	return pred, nil
}

// Close releases the session resources.
func (c *Classifier) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.session.Close()
}

func (c *Classifier) startOperation(name string) func() {
	if c.prof == nil {
		return func() {}
	}
	return c.prof.StartOperation(name)
}
