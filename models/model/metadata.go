// Package model - Artifact metadata sidecar loading and validation.
package model

import (
	"encoding/json"
	"os"

	"github.com/pkg/errors"
)

// Artifact errors. Both are startup-time failures: callers treat them as
// fatal and refuse to serve.
var (
	// ErrArtifactMissing indicates the artifact or its sidecar is absent.
	ErrArtifactMissing = errors.New("model artifact missing")
	// ErrArtifactCorrupt indicates the artifact or its sidecar cannot be
	// deserialized or fails validation.
	ErrArtifactCorrupt = errors.New("model artifact corrupt")
)

// Normalization identifies the pixel scaling the model was trained with.
type Normalization string

const (
	// NormalizationZeroToOne scales pixels to [0, 1].
	NormalizationZeroToOne Normalization = "zero-to-one"
	// NormalizationMinusOneToOne scales pixels to [-1, 1] (MobileNetV2).
	NormalizationMinusOneToOne Normalization = "minus-one-to-one"
)

// Metadata describes a trained artifact: the values here are written at
// export time and are the source of truth for class labels, tensor shapes,
// and the confidence floor. They are never hard-coded in the application.
type Metadata struct {
	// The model name, e.g. "mobilenetv2".
	ModelName string `json:"model_name"`
	// The class labels, indexed by output position.
	Classes []string `json:"classes"`
	// The input tensor shape, e.g. [1, 224, 224, 3] for NHWC.
	InputShape []int64 `json:"input_shape"`
	// The output tensor shape, e.g. [1, 4].
	OutputShape []int64 `json:"output_shape"`
	// The square input edge length in pixels.
	ImageSize int `json:"image_size"`
	// The pixel normalization applied during training.
	Normalization Normalization `json:"normalization"`
	// The confidence floor established at model validation time.
	// Predictions below it are flagged as low confidence.
	ConfidenceFloor float32 `json:"confidence_floor"`
	// The graph input tensor name.
	InputName string `json:"input_name"`
	// The graph output tensor name.
	OutputName string `json:"output_name"`
}

// LoadMetadata reads and validates the metadata sidecar.
//
// Arguments:
//   - path: Path to the JSON sidecar exported with the artifact.
//
// Returns:
//   - *Metadata: The validated metadata.
//   - error: ErrArtifactMissing if the file is absent, ErrArtifactCorrupt
//     if it cannot be parsed or fails validation.
func LoadMetadata(path string) (*Metadata, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.Wrapf(ErrArtifactMissing, "metadata sidecar %s", path)
		}
		return nil, errors.Wrapf(err, "reading metadata sidecar %s", path)
	}

	var meta Metadata
	if err := json.Unmarshal(data, &meta); err != nil {
		return nil, errors.Wrapf(ErrArtifactCorrupt, "parsing %s: %v", path, err)
	}

	if err := meta.Validate(); err != nil {
		return nil, errors.Wrapf(ErrArtifactCorrupt, "validating %s: %v", path, err)
	}

	return &meta, nil
}

// CheckArtifact verifies that the ONNX artifact exists and is non-empty.
//
// Deserialization itself happens when the inference session is created;
// this check exists so a missing file fails with the right error before
// the runtime is initialized.
//
// Arguments:
//   - path: Path to the ONNX artifact.
//
// Returns:
//   - error: ErrArtifactMissing or ErrArtifactCorrupt.
func CheckArtifact(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return errors.Wrapf(ErrArtifactMissing, "artifact %s", path)
		}
		return errors.Wrapf(err, "stat artifact %s", path)
	}
	if info.IsDir() {
		return errors.Wrapf(ErrArtifactCorrupt, "artifact %s is a directory", path)
	}
	if info.Size() == 0 {
		return errors.Wrapf(ErrArtifactCorrupt, "artifact %s is empty", path)
	}
	return nil
}

// Validate checks internal consistency of the metadata.
//
// Returns:
//   - error: A description of the first inconsistency, nil when valid.
func (m *Metadata) Validate() error {
	if len(m.Classes) == 0 {
		return errors.New("no classes declared")
	}
	if m.ImageSize <= 0 {
		return errors.Errorf("invalid image_size %d", m.ImageSize)
	}
	if len(m.InputShape) != 4 {
		return errors.Errorf("input_shape must have 4 dimensions, got %v", m.InputShape)
	}
	if len(m.OutputShape) != 2 {
		return errors.Errorf("output_shape must have 2 dimensions, got %v", m.OutputShape)
	}
	if int(m.OutputShape[1]) != len(m.Classes) {
		return errors.Errorf(
			"output_shape %v disagrees with %d declared classes",
			m.OutputShape, len(m.Classes),
		)
	}
	for _, dim := range m.InputShape {
		if dim <= 0 {
			return errors.Errorf("non-positive dimension in input_shape %v", m.InputShape)
		}
	}
	switch m.Normalization {
	case NormalizationZeroToOne, NormalizationMinusOneToOne:
	case "":
		return errors.New("normalization not declared")
	default:
		return errors.Errorf("unknown normalization %q", m.Normalization)
	}
	if m.ConfidenceFloor < 0 || m.ConfidenceFloor > 1 {
		return errors.Errorf("confidence_floor %g outside [0, 1]", m.ConfidenceFloor)
	}
	if m.InputName == "" || m.OutputName == "" {
		return errors.New("input_name and output_name are required")
	}
	return nil
}

// InputElements returns the number of float32 elements in the input tensor.
func (m *Metadata) InputElements() int {
	n := 1
	for _, dim := range m.InputShape {
		n *= int(dim)
	}
	return n
}

// OutputElements returns the number of float32 elements in the output tensor.
func (m *Metadata) OutputElements() int {
	n := 1
	for _, dim := range m.OutputShape {
		n *= int(dim)
	}
	return n
}
