package inspect

import (
	"github.com/pkg/errors"

	"github.com/LdDl/conveyor-inspect/mot"
)

const (
	// DefaultMinFramesTracked rejects short-lived noise blobs
	DefaultMinFramesTracked = 10
	// DefaultMinDisplacement rejects static background artifacts (pixels)
	DefaultMinDisplacement = 50.0
	// DefaultMatchRadius bridges a track back to the detection of the current frame (pixels)
	DefaultMatchRadius = 50.0
)

// ErrInvalidConfig is returned by Config.Validate
var ErrInvalidConfig = errors.New("invalid inspector config")

// Config gathers every threshold of the tracking-and-counting engine
type Config struct {
	// Spatial match radius of the identity tracker
	DistanceThreshold float64
	// Patience: frames a track survives without a match
	MaxNoMatch int
	// Association algorithm of the identity tracker
	Association mot.AssociationStrategy
	// Length of centroids history kept for every track
	MaxTrackLen int
	// Minimal fill ratio of a qualified item (exclusive)
	FillRatioThreshold float64
	// Minimal number of matched frames before an item can be counted
	MinFramesTracked int
	// Minimal distance between first and current positions before an item can be counted
	MinDisplacement float64
	// Max distance between track centroid and detection used for counting
	MatchRadius float64
}

// DefaultConfig returns thresholds tuned on conveyor footage
func DefaultConfig() Config {
	return Config{
		DistanceThreshold:  mot.DefaultDistanceThreshold,
		MaxNoMatch:         mot.DefaultMaxNoMatch,
		Association:        mot.AssociationFirstMatch,
		MaxTrackLen:        mot.DefaultMaxTrackLen,
		FillRatioThreshold: DefaultFillRatioThreshold,
		MinFramesTracked:   DefaultMinFramesTracked,
		MinDisplacement:    DefaultMinDisplacement,
		MatchRadius:        DefaultMatchRadius,
	}
}

// Validate checks that thresholds are usable
func (cfg Config) Validate() error {
	// A fully filled quadrilateral is always qualified
	if cfg.FillRatioThreshold < 0 || cfg.FillRatioThreshold >= 1 {
		return errors.Wrapf(ErrInvalidConfig, "fill ratio threshold must be in [0, 1), got %f", cfg.FillRatioThreshold)
	}
	if cfg.MinFramesTracked < 0 {
		return errors.Wrapf(ErrInvalidConfig, "min frames tracked must be non-negative, got %d", cfg.MinFramesTracked)
	}
	if cfg.MinDisplacement < 0 {
		return errors.Wrapf(ErrInvalidConfig, "min displacement must be non-negative, got %f", cfg.MinDisplacement)
	}
	if cfg.MatchRadius <= 0 {
		return errors.Wrapf(ErrInvalidConfig, "match radius must be positive, got %f", cfg.MatchRadius)
	}
	return nil
}

func (cfg Config) trackerOptions() []mot.TrackerOption {
	return []mot.TrackerOption{
		mot.WithDistanceThreshold(cfg.DistanceThreshold),
		mot.WithMaxNoMatch(cfg.MaxNoMatch),
		mot.WithAssociation(cfg.Association),
		mot.WithMaxTrackLen(cfg.MaxTrackLen),
	}
}
