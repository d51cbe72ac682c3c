package detector

import (
	"github.com/LdDl/conveyor-inspect/inspect"
	"github.com/LdDl/conveyor-inspect/mot"
)

// Measurement is what contour analysis tells about a single region
type Measurement struct {
	// Contour area
	Area float64
	// Vertices of approximated polygon
	Vertices int
	// Minimal-area rotated rectangle
	Center  mot.Point
	Width   float64
	Height  float64
	Angle   float64
	Corners [4]mot.Point
}

// BuildDetection turns contour measurement into unclassified detection.
// Returns false for regions smaller than params.MinArea and for degenerate rectangles
func BuildDetection(m Measurement, params Params) (inspect.Detection, bool) {
	if m.Area < params.MinArea {
		return inspect.Detection{}, false
	}
	det := inspect.Detection{
		Centroid: m.Center,
		Box: inspect.OrientedBox{
			Points: m.Corners,
			Angle:  m.Angle,
			Width:  m.Width,
			Height: m.Height,
		},
		Features: inspect.ShapeFeatures{
			Vertices:  m.Vertices,
			Area:      m.Area,
			FillRatio: inspect.FillRatio(m.Area, m.Width, m.Height),
		},
	}
	if det.IsDegenerate() {
		return inspect.Detection{}, false
	}
	return det, true
}

// approxEpsilon returns polygon approximation tolerance for contour of given perimeter
func approxEpsilon(perimeter float64, params Params) float64 {
	return params.ApproxEpsilon * perimeter
}
