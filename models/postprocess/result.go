// Package postprocess - Postprocessing utilities for classifier outputs.
package postprocess

// ClassProbability pairs a class label with its probability.
type ClassProbability struct {
	// The class label, as declared by the model metadata.
	Class string `json:"class"`
	// The index of the class in the model's output vector.
	Index int `json:"index"`
	// The probability assigned to the class.
	Probability float32 `json:"probability"`
}

// Prediction represents the outcome of a single classification.
type Prediction struct {
	// The predicted class label (highest probability).
	Class string `json:"class"`
	// The index of the predicted class in the output vector.
	Index int `json:"index"`
	// The probability of the predicted class.
	Confidence float32 `json:"confidence"`
	// All class probabilities, sorted by descending probability.
	Probabilities []ClassProbability `json:"probabilities"`
}
