//go:build !gocv
// +build !gocv

package detector

import (
	"context"
	"log/slog"

	"github.com/LdDl/conveyor-inspect/inspect"
)

// VideoSource is a placeholder of OpenCV-backed video reader
type VideoSource struct{}

// OpenVideo always fails: OpenCV support is not compiled in
func OpenVideo(path string, params Params, logger *slog.Logger) (*VideoSource, error) {
	return nil, ErrNoOpenCV
}

// Next always fails: OpenCV support is not compiled in
func (source *VideoSource) Next(ctx context.Context) ([]inspect.Detection, error) {
	return nil, ErrNoOpenCV
}

// Close does nothing
func (source *VideoSource) Close() error {
	return nil
}
