// Package model - Contracts shared by all classifier models.
package model

import (
	"github.com/embryo-vision/go-embryo/images"
	"github.com/embryo-vision/go-embryo/models/model/preprocess"
	"github.com/embryo-vision/go-embryo/models/postprocess"
)

// Family is the family of models.
type Family string

const (
	// FamilyMobileNet is the MobileNet transfer-learning family.
	FamilyMobileNet Family = "mobilenet"
)

// Name is the unique identifier of a model.
type Name string

const (
	// NameMobileNetV2 is the name of the MobileNetV2 embryo grading model.
	NameMobileNetV2 Name = "mobilenetv2"
)

// Model is a classifier with a preprocessing and postprocessing contract.
//
// Implementations are immutable after construction and safe for concurrent
// read-only use.
type Model interface {
	// Metadata returns the artifact metadata the model was built from.
	Metadata() *Metadata
	// Path returns the location of the ONNX artifact on disk.
	Path() string
	// PreProcess converts an uploaded image into the model's input tensor.
	PreProcess(img *images.Image) (*preprocess.Result, error)
	// PostProcess converts the raw output vector into a Prediction.
	PostProcess(output []float32) (*postprocess.Prediction, error)
}

// NewModelArgs is the arguments for creating a new model.
type NewModelArgs struct {
	// The name of the model implementation to instantiate.
	Name Name `json:"name" yaml:"name"`
	// The path to the ONNX artifact.
	Path string `json:"path" yaml:"path"`
	// The path to the JSON metadata sidecar exported with the artifact.
	MetadataPath string `json:"metadata_path" yaml:"metadata_path"`
}
