// Package mobilenetv2 - postprocess the grading head's output vector.
package mobilenetv2

import (
	"github.com/pkg/errors"

	"github.com/embryo-vision/go-embryo/models/postprocess"
)

// PostProcess converts the raw output vector into a Prediction.
//
// The exported head ends in a softmax, so the vector normally already
// sums to 1. Some export paths strip the activation, so unnormalized
// vectors are treated as logits and passed through softmax here.
//
// Arguments:
//   - output: The raw output vector from the session run.
//
// Returns:
//   - *postprocess.Prediction: The top-1 grade with the full distribution.
//   - error: postprocess.ErrInference on NaN propagation or a vector that
//     disagrees with the declared class set.
func (m *MobileNetV2) PostProcess(output []float32) (*postprocess.Prediction, error) {
	numClasses := len(m.meta.Classes)
	if len(output) < numClasses {
		return nil, errors.Wrapf(postprocess.ErrInference,
			"output has %d entries, model declares %d classes", len(output), numClasses)
	}

	raw := output[:numClasses]
	if err := postprocess.ValidateFinite(raw); err != nil {
		return nil, errors.Wrapf(postprocess.ErrInference, "%v", err)
	}

	var probs []float32
	if postprocess.IsNormalized(raw) {
		// Detach from the session's reusable output buffer.
		probs = append([]float32(nil), raw...)
	} else {
		probs = postprocess.Softmax(raw)
	}

	if err := postprocess.ValidateDistribution(probs); err != nil {
		return nil, errors.Wrapf(postprocess.ErrInference, "%v", err)
	}

	pred, err := postprocess.NewPrediction(probs, m.meta.Classes)
	if err != nil {
		return nil, errors.Wrapf(postprocess.ErrInference, "%v", err)
	}
	return pred, nil
}
