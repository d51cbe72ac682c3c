//go:build gocv
// +build gocv

package detector

import (
	"context"
	"image"
	"log/slog"

	"github.com/pkg/errors"
	"gocv.io/x/gocv"

	"github.com/LdDl/conveyor-inspect/inspect"
	"github.com/LdDl/conveyor-inspect/mot"
)

// VideoSource reads frames of a video file and turns each of them into detections.
// Implements inspect.DetectionSource
type VideoSource struct {
	path    string
	params  Params
	capture *gocv.VideoCapture
	frame   gocv.Mat
	kernel  gocv.Mat
	frames  int
	logger  *slog.Logger
}

// OpenVideo opens video file for sequential reading
func OpenVideo(path string, params Params, logger *slog.Logger) (*VideoSource, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}
	capture, err := gocv.VideoCaptureFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "Can't open video '%s'", path)
	}
	if !capture.IsOpened() {
		capture.Close()
		return nil, errors.Errorf("Can't open video '%s'", path)
	}
	if logger == nil {
		logger = slog.Default()
	}
	logger.Info("detector: video opened",
		"path", path,
		"width", capture.Get(gocv.VideoCaptureFrameWidth),
		"height", capture.Get(gocv.VideoCaptureFrameHeight),
		"fps", capture.Get(gocv.VideoCaptureFPS),
	)
	return &VideoSource{
		path:    path,
		params:  params,
		capture: capture,
		frame:   gocv.NewMat(),
		kernel:  gocv.GetStructuringElement(gocv.MorphRect, image.Pt(params.KernelSize, params.KernelSize)),
		logger:  logger,
	}, nil
}

// Next reads next frame and segments it. Returns inspect.ErrNoMoreFrames at the end of the file
func (source *VideoSource) Next(ctx context.Context) ([]inspect.Detection, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	for {
		if ok := source.capture.Read(&source.frame); !ok {
			source.logger.Info("detector: end of video", "path", source.path, "frames", source.frames)
			return nil, inspect.ErrNoMoreFrames
		}
		if source.frame.Empty() {
			continue
		}
		break
	}
	source.frames++
	return segment(source.frame, source.kernel, source.params), nil
}

// Close releases capture device and buffers
func (source *VideoSource) Close() error {
	source.frame.Close()
	source.kernel.Close()
	return source.capture.Close()
}

// Segment separates items from the belt on a single BGR frame and measures every remaining contour
func Segment(frame gocv.Mat, params Params) []inspect.Detection {
	kernel := gocv.GetStructuringElement(gocv.MorphRect, image.Pt(params.KernelSize, params.KernelSize))
	defer kernel.Close()
	return segment(frame, kernel, params)
}

func segment(frame gocv.Mat, kernel gocv.Mat, params Params) []inspect.Detection {
	hsv := gocv.NewMat()
	defer hsv.Close()
	gocv.CvtColor(frame, &hsv, gocv.ColorBGRToHSV)

	mask := gocv.NewMat()
	defer mask.Close()
	lowerBound := gocv.NewScalar(params.HueMin, params.SatMin, params.ValMin, 0)
	upperBound := gocv.NewScalar(params.HueMax, params.SatMax, params.ValMax, 0)
	gocv.InRangeWithScalar(hsv, lowerBound, upperBound, &mask)
	if params.InvertMask {
		gocv.BitwiseNot(mask, &mask)
	}

	for i := 0; i < params.OpenIterations; i++ {
		gocv.MorphologyEx(mask, &mask, gocv.MorphOpen, kernel)
	}
	for i := 0; i < params.CloseIterations; i++ {
		gocv.MorphologyEx(mask, &mask, gocv.MorphClose, kernel)
	}

	contours := gocv.FindContours(mask, gocv.RetrievalExternal, gocv.ChainApproxSimple)
	defer contours.Close()

	detections := make([]inspect.Detection, 0, contours.Size())
	for i := 0; i < contours.Size(); i++ {
		contour := contours.At(i)
		area := gocv.ContourArea(contour)
		// Filter before the expensive part
		if area < params.MinArea {
			continue
		}
		approx := gocv.ApproxPolyDP(contour, approxEpsilon(gocv.ArcLength(contour, true), params), true)
		vertices := approx.Size()
		approx.Close()

		rect := gocv.MinAreaRect(contour)
		m := Measurement{
			Area:     area,
			Vertices: vertices,
			Center:   mot.NewPointFrom(rect.Center),
			Width:    float64(rect.Width),
			Height:   float64(rect.Height),
			Angle:    rect.Angle,
		}
		for j := 0; j < len(rect.Points) && j < 4; j++ {
			m.Corners[j] = mot.NewPointFrom(rect.Points[j])
		}
		if det, ok := BuildDetection(m, params); ok {
			detections = append(detections, det)
		}
	}
	return detections
}
