package mot

import (
	"github.com/pkg/errors"
)

// AssociationStrategy is for algorithm type for matching centroids to tracks
type AssociationStrategy uint16

const (
	// AssociationFirstMatch assigns centroid to the first track (in creation order) within distance threshold
	AssociationFirstMatch AssociationStrategy = iota
	// AssociationNearest assigns pairs greedily by increasing distance
	AssociationNearest
	// AssociationHungarian uses the Hungarian algorithm (Kuhn-Munkres) for optimal assignment
	AssociationHungarian
)

// String returns human-readable name of the strategy
func (strategy AssociationStrategy) String() string {
	switch strategy {
	case AssociationFirstMatch:
		return "first_match"
	case AssociationNearest:
		return "nearest"
	case AssociationHungarian:
		return "hungarian"
	default:
		return "unknown"
	}
}

// ParseAssociationStrategy converts name produced by String() back to strategy
func ParseAssociationStrategy(name string) (AssociationStrategy, error) {
	switch name {
	case "", "first_match":
		return AssociationFirstMatch, nil
	case "nearest":
		return AssociationNearest, nil
	case "hungarian":
		return AssociationHungarian, nil
	default:
		return AssociationFirstMatch, errors.Wrapf(ErrInvalidOption, "unknown association strategy '%s'", name)
	}
}

// ErrInvalidOption is returned when tracker is configured with values it can't work with
var ErrInvalidOption = errors.New("invalid tracker option")

// TrackerOption configures CentroidTracker
type TrackerOption func(tracker *CentroidTracker) error

// WithDistanceThreshold sets spatial match radius (in pixels). Must be positive
func WithDistanceThreshold(threshold float64) TrackerOption {
	return func(tracker *CentroidTracker) error {
		if threshold <= 0 {
			return errors.Wrapf(ErrInvalidOption, "distance threshold must be positive, got %f", threshold)
		}
		tracker.distanceThreshold = threshold
		return nil
	}
}

// WithMaxNoMatch sets patience: max number of consecutive frames a track could stay unmatched
func WithMaxNoMatch(maxNoMatch int) TrackerOption {
	return func(tracker *CentroidTracker) error {
		if maxNoMatch < 0 {
			return errors.Wrapf(ErrInvalidOption, "max no match must be non-negative, got %d", maxNoMatch)
		}
		tracker.maxNoMatch = maxNoMatch
		return nil
	}
}

// WithAssociation sets association strategy
func WithAssociation(strategy AssociationStrategy) TrackerOption {
	return func(tracker *CentroidTracker) error {
		switch strategy {
		case AssociationFirstMatch, AssociationNearest, AssociationHungarian:
			tracker.strategy = strategy
			return nil
		default:
			return errors.Wrapf(ErrInvalidOption, "unknown association strategy %d", strategy)
		}
	}
}

// WithMaxTrackLen sets length of centroids history kept for every track
func WithMaxTrackLen(maxTrackLen int) TrackerOption {
	return func(tracker *CentroidTracker) error {
		if maxTrackLen < 1 {
			return errors.Wrapf(ErrInvalidOption, "max track length must be at least 1, got %d", maxTrackLen)
		}
		tracker.maxTrackLen = maxTrackLen
		return nil
	}
}
