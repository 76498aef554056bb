// Package postprocess - probability distribution handling for classifier outputs.
package postprocess

import (
	"sort"

	"github.com/chewxy/math32"
	"github.com/pkg/errors"
)

// ErrInference indicates a runtime scoring failure: a malformed output
// vector (NaN propagation, wrong width) or a session execution error.
var ErrInference = errors.New("inference failed")

// DistributionTolerance is the allowed deviation of a probability vector's
// sum from 1.0 before the vector is treated as unnormalized logits.
const DistributionTolerance = 1e-3

// Softmax converts a logit vector into a probability distribution.
//
// The maximum logit is subtracted before exponentiation so that large
// activations do not overflow float32.
//
// Arguments:
//   - logits: The raw output vector of the model.
//
// Returns:
//   - []float32: A vector of the same length whose entries sum to 1.
func Softmax(logits []float32) []float32 {
	if len(logits) == 0 {
		return nil
	}

	maxLogit := logits[0]
	for _, v := range logits[1:] {
		if v > maxLogit {
			maxLogit = v
		}
	}

	probs := make([]float32, len(logits))
	var sum float32
	for i, v := range logits {
		probs[i] = math32.Exp(v - maxLogit)
		sum += probs[i]
	}
	for i := range probs {
		probs[i] /= sum
	}
	return probs
}

// ValidateFinite checks that every entry of a vector is a finite number.
// Raw logits may legitimately be negative, so this is the only check that
// applies before normalization.
//
// Arguments:
//   - values: The vector to validate.
//
// Returns:
//   - error: A description of the first non-finite entry, nil when valid.
func ValidateFinite(values []float32) error {
	if len(values) == 0 {
		return errors.New("empty output vector")
	}
	for i, v := range values {
		if math32.IsNaN(v) {
			return errors.Errorf("NaN at index %d", i)
		}
		if math32.IsInf(v, 0) {
			return errors.Errorf("infinity at index %d", i)
		}
	}
	return nil
}

// ValidateDistribution checks that a probability vector is well formed:
// finite entries and no negative probabilities.
//
// Arguments:
//   - probs: The vector to validate.
//
// Returns:
//   - error: A description of the first malformed entry, nil when valid.
func ValidateDistribution(probs []float32) error {
	if err := ValidateFinite(probs); err != nil {
		return err
	}
	for i, p := range probs {
		if p < 0 {
			return errors.Errorf("negative probability %g at index %d", p, i)
		}
	}
	return nil
}

// IsNormalized reports whether the vector already sums to 1 within
// DistributionTolerance.
func IsNormalized(probs []float32) bool {
	var sum float32
	for _, p := range probs {
		sum += p
	}
	return math32.Abs(sum-1.0) <= DistributionTolerance
}

// NewPrediction builds a Prediction from a probability vector and the
// class labels declared by the model metadata.
//
// The vector must already be validated and normalized; entries beyond
// len(classes) are ignored, matching the model's declared output width.
//
// Arguments:
//   - probs: The normalized probability vector.
//   - classes: The class labels, indexed by output position.
//
// Returns:
//   - *Prediction: The top-1 class with the full ranked distribution.
//   - error: An error if the vector and label set are incompatible.
func NewPrediction(probs []float32, classes []string) (*Prediction, error) {
	if len(classes) == 0 {
		return nil, errors.New("no class labels declared")
	}
	if len(probs) < len(classes) {
		return nil, errors.Errorf(
			"output vector has %d entries, model declares %d classes",
			len(probs), len(classes),
		)
	}

	ranked := make([]ClassProbability, len(classes))
	for i, class := range classes {
		ranked[i] = ClassProbability{Class: class, Index: i, Probability: probs[i]}
	}
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].Probability > ranked[j].Probability
	})

	top := ranked[0]
	return &Prediction{
		Class:         top.Class,
		Index:         top.Index,
		Confidence:    top.Probability,
		Probabilities: ranked,
	}, nil
}
