// Package inference - Inference sessions.
package inference

import (
	"os"
	"sync"

	"github.com/pkg/errors"
	ort "github.com/yalue/onnxruntime_go"

	"github.com/embryo-vision/go-embryo/inference/providers"
	"github.com/embryo-vision/go-embryo/models/model"
)

// Runner abstracts a loaded model session with preallocated input and
// output buffers. The production implementation is Session; tests swap in
// a fake.
type Runner interface {
	// Run executes the model over the current input buffer contents.
	Run() error
	// InputData returns the session's reusable input buffer.
	InputData() []float32
	// OutputData returns the session's reusable output buffer.
	OutputData() []float32
	// Close releases the session resources.
	Close() error
}

// Session represents a model session from the onnxruntime.
//
// The input and output tensors are allocated once from the metadata's
// declared shapes and reused across runs. Callers serialize access; the
// Classifier does this with a mutex.
type Session struct {
	session *ort.AdvancedSession
	input   *ort.Tensor[float32]
	output  *ort.Tensor[float32]
}

// NewSessionArgs represents the arguments for creating a new session.
type NewSessionArgs struct {
	// The path to the ONNX model file.
	ModelPath string
	// The metadata declaring tensor names and shapes.
	Metadata *model.Metadata
	// The execution provider configuration.
	Provider providers.Config
}

var ortInitOnce sync.Once
var ortInitErr error

// initializeRuntime points ONNX Runtime at the shared library and
// initializes the native environment. Required once per process.
func initializeRuntime() error {
	ortInitOnce.Do(func() {
		libPath := providers.SharedLibPath()
		if _, err := os.Stat(libPath); err != nil {
			ortInitErr = errors.Wrapf(err, "ONNX Runtime library not found at %s (set %s to override)",
				libPath, providers.SharedLibEnvVar)
			return
		}
		ort.SetSharedLibraryPath(libPath)
		if err := ort.InitializeEnvironment(); err != nil {
			ortInitErr = errors.Wrap(err, "error initializing ORT environment")
		}
	})
	return ortInitErr
}

// NewSession creates a new ONNX Runtime session for a classifier model.
//
// Order of operations:
//  1. Runtime initialization: loads the native library once per process.
//  2. Tensor allocation: fixed-shape input/output buffers from the metadata.
//  3. Session options: threading, graph optimization, execution provider.
//  4. Session creation: loads the artifact and binds the tensors.
//
// Arguments:
//   - args: The artifact path, metadata, and provider configuration.
//
// Returns:
//   - *Session: The session holding the native session and reusable tensors.
//   - error: model.ErrArtifactCorrupt when the artifact cannot be loaded as
//     a model, or a runtime setup error.
func NewSession(args NewSessionArgs) (*Session, error) {
	if err := initializeRuntime(); err != nil {
		return nil, err
	}

	input, err := ort.NewEmptyTensor[float32](ort.NewShape(args.Metadata.InputShape...))
	if err != nil {
		return nil, errors.Wrap(err, "error creating input tensor")
	}

	output, err := ort.NewEmptyTensor[float32](ort.NewShape(args.Metadata.OutputShape...))
	if err != nil {
		input.Destroy()
		return nil, errors.Wrap(err, "error creating output tensor")
	}

	options, err := providers.SessionOptions(args.Provider)
	if err != nil {
		input.Destroy()
		output.Destroy()
		return nil, err
	}
	defer options.Destroy()

	session, err := ort.NewAdvancedSession(
		args.ModelPath,
		[]string{args.Metadata.InputName},
		[]string{args.Metadata.OutputName},
		[]ort.ArbitraryTensor{input},
		[]ort.ArbitraryTensor{output},
		options,
	)
	if err != nil {
		input.Destroy()
		output.Destroy()
		// The runtime rejects truncated or non-ONNX artifacts here.
		return nil, errors.Wrapf(model.ErrArtifactCorrupt, "error creating ORT session: %v", err)
	}

	return &Session{
		session: session,
		input:   input,
		output:  output,
	}, nil
}

// Run executes the model over the current input buffer contents.
func (s *Session) Run() error {
	return s.session.Run()
}

// InputData returns the session's reusable input buffer.
func (s *Session) InputData() []float32 {
	return s.input.GetData()
}

// OutputData returns the session's reusable output buffer.
func (s *Session) OutputData() []float32 {
	return s.output.GetData()
}

// Close releases the resources associated with the Session.
func (s *Session) Close() error {
	if s.input != nil {
		s.input.Destroy()
		s.input = nil
	}
	if s.output != nil {
		s.output.Destroy()
		s.output = nil
	}
	if s.session != nil {
		if err := s.session.Destroy(); err != nil {
			return errors.Wrap(err, "error destroying ORT session")
		}
		s.session = nil
	}
	return nil
}
