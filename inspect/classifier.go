package inspect

import (
	"math"
)

// DefaultFillRatioThreshold separates rectangles from triangles, circles and torn blobs
const DefaultFillRatioThreshold = 0.72

// Calibration holds reference size used to express item sizes as scale factors.
// It is set once by the first qualified detection of a run
type Calibration struct {
	referenceSize float64
	set           bool
}

// ReferenceSize returns reference size and whether it has been set
func (calibration Calibration) ReferenceSize() (float64, bool) {
	return calibration.referenceSize, calibration.set
}

// IsSet reports whether calibration has been initialized
func (calibration Calibration) IsSet() bool {
	return calibration.set
}

// observe sets reference size unless it is set already. First writer wins
func (calibration *Calibration) observe(size float64) bool {
	if calibration.set || size <= 0 {
		return false
	}
	calibration.referenceSize = size
	calibration.set = true
	return true
}

// Reset forgets reference size
func (calibration *Calibration) Reset() {
	calibration.referenceSize = 0
	calibration.set = false
}

// Classifier maps detection geometry to shape class and pose.
// The only state it owns is calibration of the current run
type Classifier struct {
	fillRatioThreshold float64
	calibration        Calibration
}

// NewClassifier creates classifier with given fill ratio threshold
func NewClassifier(fillRatioThreshold float64) *Classifier {
	return &Classifier{
		fillRatioThreshold: fillRatioThreshold,
	}
}

// Calibration returns copy of current calibration state
func (classifier *Classifier) Calibration() Calibration {
	return classifier.calibration
}

// Reset clears calibration. Call it before every new video
func (classifier *Classifier) Reset() {
	classifier.calibration.Reset()
}

// Classify returns ShapeQualified iff region has exactly four vertices and fills its bounding rectangle
// above the threshold. Every region is either qualified or defective.
func (classifier *Classifier) Classify(features ShapeFeatures) ShapeClass {
	if features.Vertices == 4 && features.FillRatio > classifier.fillRatioThreshold {
		return ShapeQualified
	}
	return ShapeDefective
}

// Rotation returns orientation in [0, 360).
// Qualified items are measured along their long edge, so a box reported narrower than tall is turned by 90 degrees.
// Defective items have no canonical long edge and report raw angle.
func (classifier *Classifier) Rotation(class ShapeClass, box OrientedBox) float64 {
	angle := box.Angle
	if class == ShapeQualified && box.Width < box.Height {
		angle += 90
	}
	return NormalizeDegrees(angle)
}

// Scale returns long edge of the box relative to calibration reference. 1.0 while calibration is not set
func (classifier *Classifier) Scale(box OrientedBox) float64 {
	reference, ok := classifier.calibration.ReferenceSize()
	if !ok {
		return 1.0
	}
	return box.LongEdge() / reference
}

// Apply classifies detection and fills its measurements.
// The first qualified detection ever applied sets calibration, hence its own scale is exactly 1.0
func (classifier *Classifier) Apply(det Detection) Detection {
	det.Class = classifier.Classify(det.Features)
	if det.Class == ShapeQualified {
		classifier.calibration.observe(det.Box.LongEdge())
	}
	det.RotationDegrees = classifier.Rotation(det.Class, det.Box)
	det.ScaleFactor = classifier.Scale(det.Box)
	return det
}

// NormalizeDegrees wraps angle into [0, 360)
func NormalizeDegrees(angle float64) float64 {
	angle = math.Mod(angle, 360)
	if angle < 0 {
		angle += 360
	}
	// -1e-15 + 360 rounds to 360 in float64
	if angle >= 360 {
		angle = 0
	}
	return angle
}
