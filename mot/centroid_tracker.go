package mot

import (
	"github.com/pkg/errors"
)

const (
	// DefaultDistanceThreshold is spatial match radius in pixels
	DefaultDistanceThreshold = 80.0
	// DefaultMaxNoMatch is occlusion tolerance in frames
	DefaultMaxNoMatch = 10
	// DefaultMaxTrackLen is length of centroids history kept for every track
	DefaultMaxTrackLen = 150
)

// CentroidTracker is naive implementation of Multi-object tracker (MOT) working on centroids only.
// There is no motion model: track is expected where it has been seen last time.
type CentroidTracker struct {
	// Live tracks in creation order
	tracks []*Track
	// Identifier for next new track
	nextID int
	// Threshold distance (most of time in pixels). Default 80.0
	distanceThreshold float64
	// Max no match (max number of frames when object could not be found again). Default is 10
	maxNoMatch int
	// Length of centroids history. Default is 150
	maxTrackLen int
	// Matching algorithm. Default is first match
	strategy AssociationStrategy
}

// NewCentroidTrackerDefault creates default instance of CentroidTracker
func NewCentroidTrackerDefault() *CentroidTracker {
	return &CentroidTracker{
		tracks:            make([]*Track, 0),
		distanceThreshold: DefaultDistanceThreshold,
		maxNoMatch:        DefaultMaxNoMatch,
		maxTrackLen:       DefaultMaxTrackLen,
		strategy:          AssociationFirstMatch,
	}
}

// NewCentroidTracker creates new instance of CentroidTracker. Options are applied on top of defaults
func NewCentroidTracker(options ...TrackerOption) (*CentroidTracker, error) {
	tracker := NewCentroidTrackerDefault()
	for _, option := range options {
		if err := option(tracker); err != nil {
			return nil, errors.Wrap(err, "Can't configure centroid tracker")
		}
	}
	return tracker, nil
}

// GetDistanceThreshold returns spatial match radius
func (tracker *CentroidTracker) GetDistanceThreshold() float64 {
	return tracker.distanceThreshold
}

// GetMaxNoMatch returns patience threshold
func (tracker *CentroidTracker) GetMaxNoMatch() int {
	return tracker.maxNoMatch
}

// GetAssociation returns matching algorithm in use
func (tracker *CentroidTracker) GetAssociation() AssociationStrategy {
	return tracker.strategy
}

// Tracks returns live tracks in creation order. Slice is a copy, tracks are not
func (tracker *CentroidTracker) Tracks() []*Track {
	tracks := make([]*Track, len(tracker.tracks))
	copy(tracks, tracker.tracks)
	return tracks
}

// Reset drops every track and restarts identifiers from zero
func (tracker *CentroidTracker) Reset() {
	tracker.tracks = make([]*Track, 0)
	tracker.nextID = 0
}

// Update associates centroids of current frame with live tracks and returns updated live tracks.
//
// Every centroid is matched to at most one track and vice versa. Centroids without a match become new tracks,
// tracks without a match are aged and dropped once they were lost for more than maxNoMatch frames.
func (tracker *CentroidTracker) Update(centroids []Point) []*Track {
	var assigned []int
	switch tracker.strategy {
	case AssociationNearest:
		assigned = tracker.associateNearest(centroids)
	case AssociationHungarian:
		assigned = tracker.associateHungarian(centroids)
	default:
		assigned = tracker.associateFirstMatch(centroids)
	}

	matched := make([]bool, len(tracker.tracks))
	for i, trackIdx := range assigned {
		if trackIdx < 0 {
			continue
		}
		tracker.tracks[trackIdx].match(centroids[i])
		matched[trackIdx] = true
	}

	live := make([]*Track, 0, len(tracker.tracks)+len(centroids))
	for idx, track := range tracker.tracks {
		if !matched[idx] {
			track.miss()
			// Remove object if it was not found for a long time
			if track.FramesLost > tracker.maxNoMatch {
				continue
			}
		}
		live = append(live, track)
	}

	// Register unmatched centroids as new objects
	for i, trackIdx := range assigned {
		if trackIdx >= 0 {
			continue
		}
		live = append(live, newTrack(tracker.nextID, centroids[i], tracker.maxTrackLen))
		tracker.nextID++
	}

	tracker.tracks = live
	return tracker.Tracks()
}

// associateFirstMatch scans tracks in creation order and takes the first free one within threshold.
// Returns index of track for every centroid or -1
func (tracker *CentroidTracker) associateFirstMatch(centroids []Point) []int {
	assigned := unassigned(len(centroids))
	reserved := make([]bool, len(tracker.tracks))
	for i, centroid := range centroids {
		for j, track := range tracker.tracks {
			if reserved[j] {
				continue
			}
			if euclideanDistance(centroid, track.Centroid) < tracker.distanceThreshold {
				assigned[i] = j
				reserved[j] = true
				break
			}
		}
	}
	return assigned
}

// associateNearest pops (centroid, track) pairs from min-heap by distance and keeps those with both sides free
func (tracker *CentroidTracker) associateNearest(centroids []Point) []int {
	assigned := unassigned(len(centroids))
	priorityQueue := make(distanceHeap, 0, len(centroids))
	for i, centroid := range centroids {
		for j, track := range tracker.tracks {
			dist := euclideanDistance(centroid, track.Centroid)
			if dist < tracker.distanceThreshold {
				priorityQueue.Push(&distancePair{centroidIdx: i, trackIdx: j, trackID: track.ID, distance: dist})
			}
		}
	}
	// We need to prevent double update of objects
	reserved := make([]bool, len(tracker.tracks))
	for priorityQueue.Len() > 0 {
		pair := priorityQueue.Pop()
		if reserved[pair.trackIdx] || assigned[pair.centroidIdx] >= 0 {
			continue
		}
		assigned[pair.centroidIdx] = pair.trackIdx
		reserved[pair.trackIdx] = true
	}
	return assigned
}

func unassigned(n int) []int {
	assigned := make([]int, n)
	for i := range assigned {
		assigned[i] = -1
	}
	return assigned
}
