package detector

import (
	"github.com/pkg/errors"
)

// ErrInvalidParams is returned by Params.Validate
var ErrInvalidParams = errors.New("invalid detector params")

// Params are thresholds of the background segmentation and contour filtering
type Params struct {
	// HSV bounds of the conveyor belt. OpenCV hue range is [0, 179]
	HueMin, HueMax float64
	SatMin, SatMax float64
	ValMin, ValMax float64
	// Invert mask: belt matched by HSV bounds is the background
	InvertMask bool
	// Side of the square structuring element. Default 5
	KernelSize int
	// Number of opening passes (noise removal). Default 2
	OpenIterations int
	// Number of closing passes (hole filling). Default 1
	CloseIterations int
	// Contours with smaller area are dropped (square pixels). Default 5000
	MinArea float64
	// Polygon approximation tolerance as fraction of contour perimeter. Default 0.04
	ApproxEpsilon float64
}

// DefaultParams returns thresholds for items on a white belt
func DefaultParams() Params {
	return Params{
		HueMin:          0,
		HueMax:          179,
		SatMin:          0,
		SatMax:          30,
		ValMin:          200,
		ValMax:          255,
		InvertMask:      true,
		KernelSize:      5,
		OpenIterations:  2,
		CloseIterations: 1,
		MinArea:         5000,
		ApproxEpsilon:   0.04,
	}
}

// Validate checks bounds and kernel settings
func (params Params) Validate() error {
	if params.HueMin > params.HueMax || params.SatMin > params.SatMax || params.ValMin > params.ValMax {
		return errors.Wrap(ErrInvalidParams, "lower HSV bound exceeds upper one")
	}
	if params.KernelSize < 1 {
		return errors.Wrapf(ErrInvalidParams, "kernel size must be positive, got %d", params.KernelSize)
	}
	if params.OpenIterations < 0 || params.CloseIterations < 0 {
		return errors.Wrap(ErrInvalidParams, "morphology iterations must be non-negative")
	}
	if params.MinArea < 0 {
		return errors.Wrapf(ErrInvalidParams, "min area must be non-negative, got %f", params.MinArea)
	}
	if params.ApproxEpsilon <= 0 || params.ApproxEpsilon >= 1 {
		return errors.Wrapf(ErrInvalidParams, "approximation epsilon must be in (0, 1), got %f", params.ApproxEpsilon)
	}
	return nil
}
