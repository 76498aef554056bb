// Package models - registry for classifier models.
package models

import (
	"fmt"

	"github.com/embryo-vision/go-embryo/models/mobilenetv2"
	"github.com/embryo-vision/go-embryo/models/model"
)

// NewModel creates a new classifier model instance based on the specified
// model name.
//
// This factory function is the single entry point for model creation,
// routing requests to the model-specific constructors while keeping a
// unified interface for instantiation across the system.
//
// Arguments:
//   - args: The model name together with the artifact and sidecar paths.
//
// Returns:
//   - model.Model: A fully configured model implementing the Model interface.
//   - error: model.ErrArtifactMissing or model.ErrArtifactCorrupt from the
//     constructor, or an error for an unsupported model name.
//
// Example:
//
// ```go
//
//	args := model.NewModelArgs{
//	    Name:         model.NameMobileNetV2,
//	    Path:         "/models/embryo_mobilenetv2.onnx",
//	    MetadataPath: "/models/embryo_mobilenetv2.json",
//	}
//
//	grader, err := models.NewModel(args)
//	if err != nil {
//	    log.Fatalf("Failed to create grading model: %v", err)
//	}
//
// ```
func NewModel(args model.NewModelArgs) (model.Model, error) {
	switch args.Name {
	case model.NameMobileNetV2:
		m, err := mobilenetv2.NewModel(args)
		if err != nil {
			return nil, err
		}
		return m, nil
	default:
		return nil, fmt.Errorf("unsupported model name: %s", args.Name)
	}
}
