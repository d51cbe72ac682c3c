//go:build !gocv
// +build !gocv

package detector

import (
	"context"
	"testing"

	"github.com/pkg/errors"
)

func TestOpenVideoWithoutOpenCV(t *testing.T) {
	source, err := OpenVideo("belt.mp4", DefaultParams(), nil)
	if errors.Cause(err) != ErrNoOpenCV || source != nil {
		t.Errorf("Expected ErrNoOpenCV, got %v", err)
	}
	var empty VideoSource
	if _, err := empty.Next(context.Background()); err != ErrNoOpenCV {
		t.Errorf("Expected ErrNoOpenCV, got %v", err)
	}
}
