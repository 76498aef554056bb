package server

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/embryo-vision/go-embryo/models/postprocess"
)

func rankedPrediction(confidence float32) *postprocess.Prediction {
	rest := (1 - confidence) / 2
	return &postprocess.Prediction{
		Class:      "Grade A",
		Index:      0,
		Confidence: confidence,
		Probabilities: []postprocess.ClassProbability{
			{Class: "Grade A", Index: 0, Probability: confidence},
			{Class: "Grade B", Index: 1, Probability: rest},
			{Class: "Grade C", Index: 2, Probability: rest},
		},
	}
}

func TestPresent(t *testing.T) {
	p := Present(rankedPrediction(0.724), 0.6)

	assert.Equal(t, "Grade A", p.Class)
	assert.Equal(t, "72.4%", p.Confidence)
	assert.False(t, p.LowConfidence)
	assert.Equal(t, "60.0%", p.Floor)

	assert.Len(t, p.Bars, 3)
	assert.Equal(t, Bar{Class: "Grade A", Percent: "72.4%", Width: 72}, p.Bars[0])
}

func TestPresent_LowConfidence(t *testing.T) {
	tests := []struct {
		name       string
		confidence float32
		floor      float32
		low        bool
	}{
		{"Above floor", 0.9, 0.6, false},
		{"At floor", 0.6, 0.6, false},
		{"Below floor", 0.45, 0.6, true},
		{"No floor", 0.2, 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := Present(rankedPrediction(tt.confidence), tt.floor)
			assert.Equal(t, tt.low, p.LowConfidence)
		})
	}
}

func TestPresent_ClampsBarWidth(t *testing.T) {
	pred := &postprocess.Prediction{
		Class:      "Grade A",
		Confidence: 1.0001,
		Probabilities: []postprocess.ClassProbability{
			{Class: "Grade A", Probability: 1.0001},
		},
	}

	p := Present(pred, 0.6)
	assert.Equal(t, 100, p.Bars[0].Width)
}
