// Package inference - Classification engine over ONNX Runtime sessions.
package inference

import (
	"context"

	"github.com/embryo-vision/go-embryo/images"
	"github.com/embryo-vision/go-embryo/models/model"
	"github.com/embryo-vision/go-embryo/models/postprocess"
)

// Engine defines the interface for classification engines.
//
// The HTTP layer depends on this interface rather than on the ONNX-backed
// Classifier so that handlers can be exercised without a native runtime.
type Engine interface {
	// Classify scores an uploaded image and returns the prediction.
	Classify(ctx context.Context, img *images.Image) (*postprocess.Prediction, error)
	// Metadata returns the metadata of the loaded model.
	Metadata() *model.Metadata
	// Close releases the engine resources.
	Close() error
}
