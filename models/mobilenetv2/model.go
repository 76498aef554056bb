// Package mobilenetv2 - The MobileNetV2 embryo grading model.
//
// The artifact is a transfer-learned MobileNetV2 with a softmax grading
// head, exported to ONNX together with a JSON metadata sidecar. All
// model-specific numbers (input size, class labels, confidence floor)
// come from the sidecar.
package mobilenetv2

import (
	"github.com/pkg/errors"

	"github.com/embryo-vision/go-embryo/images"
	"github.com/embryo-vision/go-embryo/models/model"
	"github.com/embryo-vision/go-embryo/models/model/preprocess"
)

// MobileNetV2 is the instance of the embryo grading model.
type MobileNetV2 struct {
	path string
	meta *model.Metadata
	pre  *preprocess.Preprocessor
}

// NewModel creates a new model from an artifact and its metadata sidecar.
//
// Arguments:
//   - args: The artifact and sidecar paths.
//
// Returns:
//   - *MobileNetV2: The model, ready for preprocessing and postprocessing.
//   - error: model.ErrArtifactMissing or model.ErrArtifactCorrupt when the
//     artifact pair is unusable.
func NewModel(args model.NewModelArgs) (*MobileNetV2, error) {
	meta, err := model.LoadMetadata(args.MetadataPath)
	if err != nil {
		return nil, err
	}

	if err := model.CheckArtifact(args.Path); err != nil {
		return nil, err
	}

	cfg, err := preprocessConfig(meta)
	if err != nil {
		return nil, errors.Wrapf(model.ErrArtifactCorrupt, "%v", err)
	}

	pre, err := preprocess.New(cfg)
	if err != nil {
		return nil, errors.Wrapf(model.ErrArtifactCorrupt, "%v", err)
	}

	return &MobileNetV2{
		path: args.Path,
		meta: meta,
		pre:  pre,
	}, nil
}

// preprocessConfig derives the preprocessing configuration from the
// metadata's declared input shape and normalization.
func preprocessConfig(meta *model.Metadata) (preprocess.Config, error) {
	cfg := preprocess.Config{
		Name:        string(model.NameMobileNetV2),
		InputWidth:  meta.ImageSize,
		InputHeight: meta.ImageSize,
	}

	switch {
	case meta.InputShape[3] == 3 || meta.InputShape[3] == 1:
		cfg.ChannelOrder = preprocess.ChannelOrderNHWC
		cfg.InputChannels = int(meta.InputShape[3])
	case meta.InputShape[1] == 3 || meta.InputShape[1] == 1:
		cfg.ChannelOrder = preprocess.ChannelOrderNCHW
		cfg.InputChannels = int(meta.InputShape[1])
	default:
		return cfg, errors.Errorf("cannot infer channel layout from input_shape %v", meta.InputShape)
	}

	switch meta.Normalization {
	case model.NormalizationMinusOneToOne:
		cfg.Normalization = preprocess.NormalizeMinusOneToOne
	case model.NormalizationZeroToOne:
		cfg.Normalization = preprocess.NormalizeZeroToOne
	default:
		return cfg, errors.Errorf("unsupported normalization %q", meta.Normalization)
	}

	return cfg, nil
}

// Metadata returns the artifact metadata.
func (m *MobileNetV2) Metadata() *model.Metadata {
	return m.meta
}

// Path returns the location of the ONNX artifact.
func (m *MobileNetV2) Path() string {
	return m.path
}

// PreProcess converts an uploaded image into the model's input tensor and
// verifies the shape invariant against the declared input shape.
//
// Arguments:
//   - img: The uploaded image.
//
// Returns:
//   - *preprocess.Result: The input tensor.
//   - error: images.ErrDecode or preprocess.ErrShape.
func (m *MobileNetV2) PreProcess(img *images.Image) (*preprocess.Result, error) {
	result, err := m.pre.Run(img)
	if err != nil {
		return nil, err
	}
	if err := result.EnsureShape(m.meta.InputShape); err != nil {
		return nil, err
	}
	return result, nil
}
