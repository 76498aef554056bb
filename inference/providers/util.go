// Package providers - Utility functions.
package providers

import (
	"os"
	"runtime"
)

// SharedLibEnvVar overrides the default ONNX Runtime shared library path.
const SharedLibEnvVar = "ONNXRUNTIME_SHARED_LIBRARY"

// SharedLibPath returns the path to the ONNX Runtime shared library for the
// current platform. The SharedLibEnvVar environment variable takes
// precedence over the platform defaults.
//
// Returns:
//   - string: The path to the shared library.
func SharedLibPath() string {
	if path := os.Getenv(SharedLibEnvVar); path != "" {
		return path
	}
	if runtime.GOOS == "windows" {
		return "./third_party/onnxruntime.dll"
	}
	if runtime.GOOS == "darwin" {
		return "./third_party/libonnxruntime.dylib"
	}
	if runtime.GOARCH == "arm64" {
		return "./third_party/onnxruntime_arm64.so"
	}
	return "./third_party/onnxruntime.so"
}
