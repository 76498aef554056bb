// Package providers - Execution provider configuration for ONNX Runtime sessions.
package providers

import (
	"fmt"

	ort "github.com/yalue/onnxruntime_go"
)

// Backend represents an ONNX Runtime execution provider.
type Backend string

const (
	// BackendCPU runs the session on the default CPU provider.
	BackendCPU Backend = "cpu"
	// BackendCoreML runs the session on the Apple CoreML provider.
	BackendCoreML Backend = "coreml"
	// BackendCUDA runs the session on the NVIDIA CUDA provider.
	BackendCUDA Backend = "cuda"
)

// Config selects the execution provider and the session threading model.
type Config struct {
	// Backend specifies the execution provider to use. Empty selects CPU.
	Backend Backend `json:"backend" yaml:"backend"`

	// IntraOpThreads sets parallelism inside a graph node. 0 lets the
	// runtime pick.
	IntraOpThreads int `json:"intra_op_threads" yaml:"intra_op_threads"`

	// InterOpThreads sets parallelism across independent graph nodes.
	// 0 lets the runtime pick.
	InterOpThreads int `json:"inter_op_threads" yaml:"inter_op_threads"`

	// CUDADeviceID selects the GPU for the CUDA backend.
	CUDADeviceID int `json:"cuda_device_id" yaml:"cuda_device_id"`
}

// Validate checks that the configuration names a known backend.
//
// Returns:
//   - error: An error for an unknown backend, nil otherwise.
func (c Config) Validate() error {
	switch c.Backend {
	case "", BackendCPU, BackendCoreML, BackendCUDA:
		return nil
	default:
		return fmt.Errorf("unsupported provider backend: %s", c.Backend)
	}
}

// SessionOptions builds ONNX Runtime session options for the configured
// provider.
//
// The options control threading, graph optimization, and hardware
// acceleration. The caller owns the returned options and must Destroy them
// after session creation.
//
// Arguments:
//   - cfg: The provider configuration.
//
// Returns:
//   - *ort.SessionOptions: The configured session options.
//   - error: An error if the options or the execution provider cannot be set up.
func SessionOptions(cfg Config) (*ort.SessionOptions, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	options, err := ort.NewSessionOptions()
	if err != nil {
		return nil, fmt.Errorf("error creating ORT session options: %w", err)
	}

	if err := options.SetIntraOpNumThreads(cfg.IntraOpThreads); err != nil {
		options.Destroy()
		return nil, fmt.Errorf("error setting intra-op threads: %w", err)
	}
	if err := options.SetInterOpNumThreads(cfg.InterOpThreads); err != nil {
		options.Destroy()
		return nil, fmt.Errorf("error setting inter-op threads: %w", err)
	}
	// Graph optimizations fuse operations and fold constants at load time.
	if err := options.SetGraphOptimizationLevel(ort.GraphOptimizationLevelEnableExtended); err != nil {
		options.Destroy()
		return nil, fmt.Errorf("error setting graph optimization level: %w", err)
	}

	switch cfg.Backend {
	case BackendCoreML:
		if err := options.AppendExecutionProviderCoreML(0); err != nil {
			options.Destroy()
			return nil, fmt.Errorf("error enabling CoreML: %w", err)
		}
	case BackendCUDA:
		cuda, err := ort.NewCUDAProviderOptions()
		if err != nil {
			options.Destroy()
			return nil, fmt.Errorf("error creating CUDA provider options: %w", err)
		}
		defer cuda.Destroy()
		if err := cuda.Update(map[string]string{
			"device_id": fmt.Sprintf("%d", cfg.CUDADeviceID),
		}); err != nil {
			options.Destroy()
			return nil, fmt.Errorf("error configuring CUDA device: %w", err)
		}
		if err := options.AppendExecutionProviderCUDA(cuda); err != nil {
			options.Destroy()
			return nil, fmt.Errorf("error enabling CUDA: %w", err)
		}
	}

	return options, nil
}
