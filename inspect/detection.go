package inspect

import (
	"math"

	"github.com/pkg/errors"

	"github.com/LdDl/conveyor-inspect/mot"
)

// ShapeClass is the verdict of the shape classifier
type ShapeClass uint8

const (
	// ShapeDefective is any region that is not a well filled quadrilateral
	ShapeDefective ShapeClass = iota
	// ShapeQualified is a rectangular item
	ShapeQualified
)

// String returns human-readable name of the class
func (class ShapeClass) String() string {
	if class == ShapeQualified {
		return "qualified"
	}
	return "defective"
}

// ParseShapeClass converts name produced by String() back to class
func ParseShapeClass(name string) (ShapeClass, error) {
	switch name {
	case "qualified":
		return ShapeQualified, nil
	case "defective":
		return ShapeDefective, nil
	default:
		return ShapeDefective, errors.Errorf("unknown shape class '%s'", name)
	}
}

// ShapeFeatures are raw contour features produced by the frame detector
type ShapeFeatures struct {
	// Number of vertices after polygon approximation
	Vertices int
	// Contour area in square pixels
	Area float64
	// Contour area divided by area of its minimal bounding rectangle
	FillRatio float64
}

// OrientedBox is minimal-area rotated rectangle enclosing the region
type OrientedBox struct {
	Points [4]mot.Point
	// Raw angle reported by rectangle fitting, degrees
	Angle  float64
	Width  float64
	Height float64
}

// LongEdge returns length of the longest side
func (box OrientedBox) LongEdge() float64 {
	return math.Max(box.Width, box.Height)
}

// Area returns area of the rectangle
func (box OrientedBox) Area() float64 {
	return box.Width * box.Height
}

// Detection is a single region observed on a frame.
// Class, RotationDegrees and ScaleFactor are filled by Classifier.Apply
type Detection struct {
	Centroid mot.Point
	Box      OrientedBox
	Features ShapeFeatures

	Class           ShapeClass
	RotationDegrees float64
	ScaleFactor     float64
}

// IsDegenerate reports regions with no area or zero-sized box. Those never reach the tracker
func (det Detection) IsDegenerate() bool {
	return det.Features.Area <= 0 || det.Box.Width <= 0 || det.Box.Height <= 0
}

// FillRatio returns contour area relative to its bounding rectangle area. Zero for degenerate rectangles
func FillRatio(area, width, height float64) float64 {
	rectArea := width * height
	if rectArea <= 0 {
		return 0
	}
	return area / rectArea
}

func centroidsOf(detections []Detection) []mot.Point {
	centroids := make([]mot.Point, len(detections))
	for i := range detections {
		centroids[i] = detections[i].Centroid
	}
	return centroids
}
