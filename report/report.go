package report

import (
	"fmt"
	"io"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"gonum.org/v1/gonum/stat"

	"github.com/LdDl/conveyor-inspect/inspect"
)

// ClassStats aggregates counted items of a single class
type ClassStats struct {
	Class          inspect.ShapeClass
	Count          int
	MeanScale      float64
	StdDevScale    float64
	MeanRotation   float64
	StdDevRotation float64
}

// Report is end-of-run statistics of a single video
type Report struct {
	Source string
	RunID  uuid.UUID
	Stats  inspect.Stats
	// Zero if calibration never happened
	ReferenceSize float64
	Classes       []ClassStats
	// Sorted by track identifier
	Ledger []inspect.CountedProduct
}

// Build computes per-class statistics of a finished run
func Build(source string, summary inspect.Summary) Report {
	report := Report{
		Source: source,
		RunID:  summary.RunID,
		Stats:  summary.Stats,
		Ledger: summary.Ledger,
	}
	report.ReferenceSize, _ = summary.Calibration.ReferenceSize()
	for _, class := range []inspect.ShapeClass{inspect.ShapeQualified, inspect.ShapeDefective} {
		scales := make([]float64, 0, len(summary.Ledger))
		rotations := make([]float64, 0, len(summary.Ledger))
		for _, product := range summary.Ledger {
			if product.Class != class {
				continue
			}
			scales = append(scales, product.ScaleFactor)
			rotations = append(rotations, product.RotationDegrees)
		}
		classStats := ClassStats{Class: class, Count: len(scales)}
		classStats.MeanScale, classStats.StdDevScale = meanStdDev(scales)
		classStats.MeanRotation, classStats.StdDevRotation = meanStdDev(rotations)
		report.Classes = append(report.Classes, classStats)
	}
	return report
}

// meanStdDev returns zeros for empty sample and zero deviation for a single value
func meanStdDev(values []float64) (float64, float64) {
	switch len(values) {
	case 0:
		return 0, 0
	case 1:
		return values[0], 0
	default:
		return stat.MeanStdDev(values, nil)
	}
}

// Write prints statistics block followed by per-item lines
func (report Report) Write(w io.Writer) error {
	lines := []string{
		"==============================",
		fmt.Sprintf("Video:      %s", report.Source),
		fmt.Sprintf("Run:        %s", report.RunID),
		fmt.Sprintf("Frames:     %d", report.Stats.Frames),
		fmt.Sprintf("Qualified:  %d", report.Stats.Qualified),
		fmt.Sprintf("Defective:  %d", report.Stats.Defective),
		fmt.Sprintf("Total:      %d", report.Stats.Total()),
	}
	if report.ReferenceSize > 0 {
		lines = append(lines, fmt.Sprintf("Reference:  %.1f px", report.ReferenceSize))
	} else {
		lines = append(lines, "Reference:  not calibrated")
	}
	for _, class := range report.Classes {
		if class.Count == 0 {
			continue
		}
		lines = append(lines, fmt.Sprintf("  %-9s scale %.3f ± %.3f, angle %.1f ± %.1f",
			class.Class, class.MeanScale, class.StdDevScale, class.MeanRotation, class.StdDevRotation,
		))
	}
	lines = append(lines, "------------------------------")
	for _, product := range report.Ledger {
		lines = append(lines, fmt.Sprintf("#%d %s angle=%.1f scale=%.3f frame=%d",
			product.TrackID, product.Class, product.RotationDegrees, product.ScaleFactor, product.FrameIndex,
		))
	}
	lines = append(lines, "==============================")
	for _, line := range lines {
		if _, err := fmt.Fprintln(w, line); err != nil {
			return errors.Wrap(err, "Can't write report")
		}
	}
	return nil
}
