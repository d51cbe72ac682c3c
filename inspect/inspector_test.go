package inspect

import (
	"context"
	"io"
	"log/slog"
	"math"
	"testing"

	"github.com/pkg/errors"

	"github.com/LdDl/conveyor-inspect/mot"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestInspector(t *testing.T, options ...InspectorOption) *Inspector {
	t.Helper()
	options = append([]InspectorOption{WithLogger(quietLogger())}, options...)
	inspector, err := NewInspector(DefaultConfig(), options...)
	if err != nil {
		t.Fatal(err)
	}
	return inspector
}

// rectDetection builds a well filled four-vertex detection centered at (x, y)
func rectDetection(x, y, width, height float64) Detection {
	return Detection{
		Centroid: mot.NewPoint(x, y),
		Box:      OrientedBox{Width: width, Height: height, Angle: 0},
		Features: ShapeFeatures{Vertices: 4, Area: width * height * 0.95, FillRatio: 0.95},
	}
}

func triangleDetection(x, y, width, height float64) Detection {
	return Detection{
		Centroid: mot.NewPoint(x, y),
		Box:      OrientedBox{Width: width, Height: height, Angle: 15},
		Features: ShapeFeatures{Vertices: 3, Area: width * height * 0.55, FillRatio: 0.55},
	}
}

func TestSingleTrackCountedOnce(t *testing.T) {
	inspector := newTestInspector(t)
	// Frame 0 at initial position, then 12 frames moving by 5 px along x
	for frame := 0; frame <= 12; frame++ {
		x := 10.0 + 5.0*float64(frame)
		result := inspector.ProcessFrame([]Detection{rectDetection(x, 50, 200, 80)})
		switch {
		case frame < 10:
			if len(result.Counted) != 0 {
				t.Fatalf("Frame %d: counted too early", frame)
			}
		case frame == 10:
			if len(result.Counted) != 1 {
				t.Fatalf("Frame %d: expected exactly one count, got %d", frame, len(result.Counted))
			}
			product := result.Counted[0]
			if product.Class != ShapeQualified || product.FrameIndex != 10 || product.TrackID != 0 {
				t.Errorf("Unexpected product: %+v", product)
			}
			if result.Tracks[0].FramesTracked != 10 || math.Abs(result.Tracks[0].Displacement()-50) > eps {
				t.Errorf("Unexpected track state: tracked=%d displacement=%f", result.Tracks[0].FramesTracked, result.Tracks[0].Displacement())
			}
			if inspector.Stats().Qualified != 1 {
				t.Errorf("Expected qualified count 1, got %d", inspector.Stats().Qualified)
			}
		default:
			if len(result.Counted) != 0 {
				t.Errorf("Frame %d: track counted twice", frame)
			}
		}
	}
	stats := inspector.Stats()
	if stats.Qualified != 1 || stats.Defective != 0 || stats.Total() != 1 || stats.Frames != 13 {
		t.Errorf("Unexpected stats: %+v", stats)
	}
	if len(inspector.Ledger()) != 1 {
		t.Errorf("Expected single ledger entry, got %d", len(inspector.Ledger()))
	}
	// Counted track stays tracked
	tracks := inspector.Tracks()
	if len(tracks) != 1 || !tracks[0].Counted {
		t.Errorf("Counted track should stay in the live set")
	}
}

func TestStaticObjectIsNeverCounted(t *testing.T) {
	inspector := newTestInspector(t)
	for frame := 0; frame < 100; frame++ {
		inspector.ProcessFrame([]Detection{rectDetection(300, 300, 200, 80)})
	}
	if inspector.Stats().Total() != 0 {
		t.Errorf("Static object must not be counted, got %+v", inspector.Stats())
	}
}

func TestNoDoubleCountAcrossOcclusion(t *testing.T) {
	inspector := newTestInspector(t)
	x := 10.0
	for frame := 0; frame < 40; frame++ {
		// Blink every third frame: preconditions are re-satisfied many times after the first count
		if frame%3 == 2 {
			inspector.ProcessFrame(nil)
			continue
		}
		x += 6
		inspector.ProcessFrame([]Detection{triangleDetection(x, 200, 120, 100)})
	}
	ledger := inspector.Ledger()
	perTrack := make(map[int]int)
	for _, product := range ledger {
		perTrack[product.TrackID]++
	}
	for trackID, n := range perTrack {
		if n != 1 {
			t.Errorf("Track %d counted %d times", trackID, n)
		}
	}
	if inspector.Stats().Defective != 1 || inspector.Stats().Qualified != 0 {
		t.Errorf("Expected one defective item, got %+v", inspector.Stats())
	}
}

func TestTwoItemsCountedIndependently(t *testing.T) {
	inspector := newTestInspector(t)
	frames := make([][]Detection, 0, 30)
	for frame := 0; frame < 30; frame++ {
		step := 8.0 * float64(frame)
		frames = append(frames, []Detection{
			rectDetection(600-step, 100, 200, 80),
			triangleDetection(600-step, 400, 150, 130),
		})
	}
	summary, err := inspector.Run(context.Background(), NewSliceSource(frames))
	if err != nil {
		t.Fatal(err)
	}
	if summary.Stats.Qualified != 1 || summary.Stats.Defective != 1 {
		t.Errorf("Expected 1 qualified and 1 defective, got %+v", summary.Stats)
	}
	if len(summary.Ledger) != 2 || summary.Ledger[0].TrackID != 0 || summary.Ledger[1].TrackID != 1 {
		t.Errorf("Ledger must be sorted by track id: %+v", summary.Ledger)
	}
	if reference, ok := summary.Calibration.ReferenceSize(); !ok || reference != 200 {
		t.Errorf("Expected calibration 200, got %f (set=%v)", reference, ok)
	}
	if summary.Stats.Frames != 30 {
		t.Errorf("Expected 30 frames, got %d", summary.Stats.Frames)
	}
}

func TestDegenerateDetectionsAreFiltered(t *testing.T) {
	inspector := newTestInspector(t)
	result := inspector.ProcessFrame([]Detection{
		{Centroid: mot.NewPoint(10, 10), Features: ShapeFeatures{Vertices: 4, FillRatio: 1}},
		{Centroid: mot.NewPoint(20, 20), Box: OrientedBox{Width: 0, Height: 10}, Features: ShapeFeatures{Vertices: 4, Area: 10, FillRatio: 1}},
		rectDetection(400, 400, 100, 50),
	})
	if len(result.Detections) != 1 || len(result.Tracks) != 1 {
		t.Errorf("Expected degenerate detections to be dropped, got %d detections and %d tracks", len(result.Detections), len(result.Tracks))
	}
}

func TestCountHookAndRunReset(t *testing.T) {
	var hooked []CountedProduct
	inspector := newTestInspector(t, WithCountHook(func(product CountedProduct) {
		hooked = append(hooked, product)
	}))
	frames := make([][]Detection, 0, 20)
	for frame := 0; frame < 20; frame++ {
		frames = append(frames, []Detection{rectDetection(100+10*float64(frame), 100, 150, 60)})
	}
	firstRun := inspector.RunID()
	summary, err := inspector.Run(context.Background(), NewSliceSource(frames))
	if err != nil {
		t.Fatal(err)
	}
	if len(hooked) != 1 || hooked[0] != summary.Ledger[0] {
		t.Errorf("Hook should receive every counted product: %+v", hooked)
	}

	inspector.Reset()
	if inspector.RunID() == firstRun {
		t.Error("Reset should start a new run id")
	}
	if inspector.Calibration().IsSet() || inspector.Stats().Total() != 0 || len(inspector.Tracks()) != 0 {
		t.Error("Reset should clear calibration, totals and tracks")
	}
}

func TestCalibrationDeterminism(t *testing.T) {
	frames := make([][]Detection, 0, 25)
	for frame := 0; frame < 25; frame++ {
		step := 9.0 * float64(frame)
		frames = append(frames, []Detection{
			triangleDetection(50+step, 100, 90, 90),
			rectDetection(50+step, 300, 180+float64(frame), 70),
			rectDetection(50+step, 500, 240, 90),
		})
	}
	var references []float64
	for run := 0; run < 2; run++ {
		inspector := newTestInspector(t)
		summary, err := inspector.Run(context.Background(), NewSliceSource(frames))
		if err != nil {
			t.Fatal(err)
		}
		reference, ok := summary.Calibration.ReferenceSize()
		if !ok {
			t.Fatal("Calibration should be set")
		}
		references = append(references, reference)
	}
	if references[0] != references[1] || references[0] != 180 {
		t.Errorf("Calibration should converge to 180 in both runs, got %v", references)
	}
}

type failingSource struct{}

func (failingSource) Next(ctx context.Context) ([]Detection, error) {
	return nil, errors.New("device unplugged")
}

func TestRunErrors(t *testing.T) {
	inspector := newTestInspector(t)
	if _, err := inspector.Run(context.Background(), failingSource{}); err == nil {
		t.Error("Expected source error to be returned")
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := inspector.Run(ctx, NewSliceSource([][]Detection{{rectDetection(1, 1, 10, 10)}}))
	if !errors.Is(err, context.Canceled) {
		t.Errorf("Expected context.Canceled, got %v", err)
	}
	if inspector.Stats().Frames != 0 {
		t.Errorf("Cancelled run must not process frames, got %d", inspector.Stats().Frames)
	}
}

func TestInvalidConfig(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MatchRadius = 0
	if _, err := NewInspector(cfg); errors.Cause(err) != ErrInvalidConfig {
		t.Errorf("Expected ErrInvalidConfig, got %v", err)
	}
	// Threshold of 1 would turn a fully filled quadrilateral into a defective one
	cfg = DefaultConfig()
	cfg.FillRatioThreshold = 1
	if _, err := NewInspector(cfg); errors.Cause(err) != ErrInvalidConfig {
		t.Errorf("Expected ErrInvalidConfig for fill ratio threshold 1, got %v", err)
	}
	cfg = DefaultConfig()
	cfg.FillRatioThreshold = 0.999
	if err := cfg.Validate(); err != nil {
		t.Errorf("Threshold just below 1 should be valid: %v", err)
	}
	if NewClassifier(cfg.FillRatioThreshold).Classify(ShapeFeatures{Vertices: 4, FillRatio: 1.0, Area: 5000}) != ShapeQualified {
		t.Error("Fully filled quadrilateral must be qualified under any valid threshold")
	}
	cfg = DefaultConfig()
	cfg.MaxTrackLen = 0
	if _, err := NewInspector(cfg); errors.Cause(err) != mot.ErrInvalidOption {
		t.Errorf("Expected mot.ErrInvalidOption for empty history, got %v", err)
	}
	cfg = DefaultConfig()
	cfg.DistanceThreshold = -1
	if _, err := NewInspector(cfg); errors.Cause(err) != mot.ErrInvalidOption {
		t.Errorf("Expected mot.ErrInvalidOption, got %v", err)
	}
}
