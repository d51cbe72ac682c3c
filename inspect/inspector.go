package inspect

import (
	"context"
	"log/slog"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/LdDl/conveyor-inspect/mot"
)

// ErrNoMoreFrames is returned by DetectionSource when the frame sequence is exhausted.
// Run treats it as normal termination
var ErrNoMoreFrames = errors.New("no more frames")

// DetectionSource yields detections of consecutive frames. Next may block until the frame is available
type DetectionSource interface {
	Next(ctx context.Context) ([]Detection, error)
}

// FrameResult is what happened on a single frame
type FrameResult struct {
	FrameIndex int
	// Classified non-degenerate detections of the frame
	Detections []Detection
	// Live tracks after association
	Tracks []*mot.Track
	// Products counted on this frame
	Counted []CountedProduct
}

// Summary is the outcome of a run
type Summary struct {
	RunID       uuid.UUID
	Stats       Stats
	Ledger      []CountedProduct
	Calibration Calibration
}

// Inspector glues identity tracker, classifier and counter for a single video.
// It is not safe for concurrent use: frames must be fed sequentially
type Inspector struct {
	cfg        Config
	runID      uuid.UUID
	tracker    *mot.CentroidTracker
	classifier *Classifier
	counter    *Counter
	frameIndex int

	logger    *slog.Logger
	countHook func(CountedProduct)
}

// InspectorOption configures Inspector
type InspectorOption func(inspector *Inspector)

// WithLogger sets structured logger. Default is slog.Default()
func WithLogger(logger *slog.Logger) InspectorOption {
	return func(inspector *Inspector) {
		if logger != nil {
			inspector.logger = logger
		}
	}
}

// WithCountHook registers callback invoked synchronously for every counted product
func WithCountHook(hook func(CountedProduct)) InspectorOption {
	return func(inspector *Inspector) {
		inspector.countHook = hook
	}
}

// NewInspector creates inspector for a new run
func NewInspector(cfg Config, options ...InspectorOption) (*Inspector, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	tracker, err := mot.NewCentroidTracker(cfg.trackerOptions()...)
	if err != nil {
		return nil, errors.Wrap(err, "Can't create identity tracker")
	}
	inspector := &Inspector{
		cfg:        cfg,
		runID:      uuid.New(),
		tracker:    tracker,
		classifier: NewClassifier(cfg.FillRatioThreshold),
		counter:    NewCounter(cfg),
		logger:     slog.Default(),
	}
	for _, option := range options {
		option(inspector)
	}
	return inspector, nil
}

// RunID returns identifier of the current run
func (inspector *Inspector) RunID() uuid.UUID {
	return inspector.runID
}

// Stats returns running totals
func (inspector *Inspector) Stats() Stats {
	return inspector.counter.Stats()
}

// Ledger returns counted products in commit order
func (inspector *Inspector) Ledger() []CountedProduct {
	return inspector.counter.Ledger()
}

// Calibration returns calibration state of the current run
func (inspector *Inspector) Calibration() Calibration {
	return inspector.classifier.Calibration()
}

// Tracks returns live tracks
func (inspector *Inspector) Tracks() []*mot.Track {
	return inspector.tracker.Tracks()
}

// Reset starts a new run: fresh identifier, no tracks, no calibration, empty ledger
func (inspector *Inspector) Reset() {
	inspector.runID = uuid.New()
	inspector.tracker.Reset()
	inspector.classifier.Reset()
	inspector.counter.Reset()
	inspector.frameIndex = 0
}

// Summary returns snapshot of the run with ledger sorted by track identifier
func (inspector *Inspector) Summary() Summary {
	return Summary{
		RunID:       inspector.runID,
		Stats:       inspector.counter.Stats(),
		Ledger:      inspector.counter.SortedLedger(),
		Calibration: inspector.classifier.Calibration(),
	}
}

// ProcessFrame runs the whole per-frame chain: filtering, association, classification, counting.
// Frames are numbered from 0
func (inspector *Inspector) ProcessFrame(detections []Detection) FrameResult {
	frameIndex := inspector.frameIndex
	inspector.frameIndex++
	valid := make([]Detection, 0, len(detections))
	for _, det := range detections {
		if det.IsDegenerate() {
			inspector.logger.Debug("inspect: skipping degenerate detection",
				"frame", frameIndex,
				"area", det.Features.Area,
				"width", det.Box.Width,
				"height", det.Box.Height,
			)
			continue
		}
		valid = append(valid, det)
	}

	previous := inspector.tracker.Tracks()
	tracks := inspector.tracker.Update(centroidsOf(valid))
	inspector.logDropped(frameIndex, previous, tracks)

	wasSet := inspector.classifier.calibration.IsSet()
	for i := range valid {
		valid[i] = inspector.classifier.Apply(valid[i])
	}
	if !wasSet && inspector.classifier.calibration.IsSet() {
		reference, _ := inspector.classifier.calibration.ReferenceSize()
		inspector.logger.Info("inspect: calibration set",
			"run_id", inspector.runID,
			"frame", frameIndex,
			"reference_size", reference,
		)
	}

	inspector.counter.tick()
	counted := inspector.counter.Evaluate(frameIndex, tracks, valid)
	trails := make(map[int]*mot.Track, len(counted))
	for _, track := range tracks {
		trails[track.ID] = track
	}
	for _, product := range counted {
		stats := inspector.counter.Stats()
		trail := trails[product.TrackID]
		inspector.logger.Info("inspect: item counted",
			"frame", product.FrameIndex,
			"track_id", product.TrackID,
			"trail_points", len(trail.GetTrack()),
			"path_length", trail.PathLength(),
			"class", product.Class.String(),
			"angle", product.RotationDegrees,
			"scale", product.ScaleFactor,
			"qualified", stats.Qualified,
			"defective", stats.Defective,
		)
		if inspector.countHook != nil {
			inspector.countHook(product)
		}
	}

	return FrameResult{
		FrameIndex: frameIndex,
		Detections: valid,
		Tracks:     tracks,
		Counted:    counted,
	}
}

// logDropped reports tracks which were given up by the tracker on this frame
func (inspector *Inspector) logDropped(frameIndex int, previous, current []*mot.Track) {
	if !inspector.logger.Enabled(context.Background(), slog.LevelDebug) {
		return
	}
	alive := make(map[int]struct{}, len(current))
	for _, track := range current {
		alive[track.ID] = struct{}{}
	}
	for _, track := range previous {
		if _, ok := alive[track.ID]; ok {
			continue
		}
		inspector.logger.Debug("inspect: track dropped",
			"frame", frameIndex,
			"track_id", track.ID,
			"frames_tracked", track.FramesTracked,
			"trail_points", len(track.GetTrack()),
			"path_length", track.PathLength(),
			"counted", track.Counted,
		)
	}
}

// Run consumes source until it reports ErrNoMoreFrames. Context is checked between frames only,
// so a cancelled run never leaves a half-processed frame behind
func (inspector *Inspector) Run(ctx context.Context, source DetectionSource) (Summary, error) {
	inspector.logger.Info("inspect: run started", "run_id", inspector.runID)
	for {
		select {
		case <-ctx.Done():
			inspector.logger.Info("inspect: run cancelled",
				"run_id", inspector.runID,
				"frames", inspector.counter.Stats().Frames,
			)
			return inspector.Summary(), errors.Wrap(ctx.Err(), "run cancelled")
		default:
		}
		detections, err := source.Next(ctx)
		if err != nil {
			if errors.Is(err, ErrNoMoreFrames) {
				break
			}
			return inspector.Summary(), errors.Wrapf(err, "Can't read frame %d", inspector.frameIndex)
		}
		inspector.ProcessFrame(detections)
	}
	summary := inspector.Summary()
	inspector.logger.Info("inspect: run finished",
		"run_id", summary.RunID,
		"frames", summary.Stats.Frames,
		"qualified", summary.Stats.Qualified,
		"defective", summary.Stats.Defective,
	)
	return summary, nil
}

// SliceSource replays pre-recorded detections frame by frame
type SliceSource struct {
	frames [][]Detection
	pos    int
}

// NewSliceSource creates source over given frames
func NewSliceSource(frames [][]Detection) *SliceSource {
	return &SliceSource{frames: frames}
}

// Next returns detections of the next frame or ErrNoMoreFrames
func (source *SliceSource) Next(ctx context.Context) ([]Detection, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if source.pos >= len(source.frames) {
		return nil, ErrNoMoreFrames
	}
	frame := source.frames[source.pos]
	source.pos++
	return frame, nil
}
