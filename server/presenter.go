// Package server - HTTP GUI and JSON API for the embryo classifier.
package server

import (
	"fmt"

	"github.com/embryo-vision/go-embryo/models/postprocess"
)

// Bar is one row of the per-class probability chart.
type Bar struct {
	// The class label.
	Class string
	// The probability formatted as a percentage, e.g. "72.4%".
	Percent string
	// The bar width in whole percent, clamped to [0, 100].
	Width int
}

// Presentation is a prediction prepared for the result template.
type Presentation struct {
	// The predicted class label.
	Class string
	// The top-1 confidence formatted as a percentage.
	Confidence string
	// Whether the confidence fell below the model's floor.
	LowConfidence bool
	// The confidence floor formatted as a percentage.
	Floor string
	// The full distribution, ranked by probability.
	Bars []Bar
}

// Present maps a prediction to display strings and flags predictions below
// the confidence floor.
//
// Arguments:
//   - pred: The prediction to present.
//   - floor: The confidence floor from the model metadata.
//
// Returns:
//   - *Presentation: The display form of the prediction.
func Present(pred *postprocess.Prediction, floor float32) *Presentation {
	bars := make([]Bar, len(pred.Probabilities))
	for i, p := range pred.Probabilities {
		width := int(p.Probability * 100)
		if width < 0 {
			width = 0
		}
		if width > 100 {
			width = 100
		}
		bars[i] = Bar{
			Class:   p.Class,
			Percent: formatPercent(p.Probability),
			Width:   width,
		}
	}

	return &Presentation{
		Class:         pred.Class,
		Confidence:    formatPercent(pred.Confidence),
		LowConfidence: pred.Confidence < floor,
		Floor:         formatPercent(floor),
		Bars:          bars,
	}
}

func formatPercent(p float32) string {
	return fmt.Sprintf("%.1f%%", p*100)
}
