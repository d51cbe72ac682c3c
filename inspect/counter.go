package inspect

import (
	"sort"

	"github.com/LdDl/conveyor-inspect/mot"
)

// CountedProduct is a permanent ledger entry: one per counted track
type CountedProduct struct {
	TrackID         int
	Class           ShapeClass
	RotationDegrees float64
	ScaleFactor     float64
	// Frame at which the count was committed
	FrameIndex int
}

// Stats holds running totals of a run
type Stats struct {
	Qualified int
	Defective int
	// Number of processed frames
	Frames int
}

// Total returns number of counted items
func (stats Stats) Total() int {
	return stats.Qualified + stats.Defective
}

// Counter decides when a track has passed inspection and commits it to the ledger exactly once
type Counter struct {
	minFramesTracked int
	minDisplacement  float64
	matchRadius      float64

	ledger []CountedProduct
	stats  Stats
}

// NewCounter creates counter with preconditions taken from config
func NewCounter(cfg Config) *Counter {
	return &Counter{
		minFramesTracked: cfg.MinFramesTracked,
		minDisplacement:  cfg.MinDisplacement,
		matchRadius:      cfg.MatchRadius,
		ledger:           make([]CountedProduct, 0),
	}
}

// Evaluate checks every live track against counting preconditions and commits those that pass.
// Detections must be classified already. Returns products counted on this frame.
//
// A track is counted when it is not counted yet, matched on this frame, tracked for at least minFramesTracked frames,
// moved at least minDisplacement away from its initial position and has a detection within matchRadius.
func (counter *Counter) Evaluate(frameIndex int, tracks []*mot.Track, detections []Detection) []CountedProduct {
	var counted []CountedProduct
	for _, track := range tracks {
		if track.Counted || !track.IsMatched() {
			continue
		}
		if track.FramesTracked < counter.minFramesTracked {
			continue
		}
		if track.Displacement() < counter.minDisplacement {
			continue
		}
		detIdx := nearestDetection(track.Centroid, detections, counter.matchRadius)
		if detIdx < 0 {
			continue
		}
		det := detections[detIdx]
		track.Counted = true
		product := CountedProduct{
			TrackID:         track.ID,
			Class:           det.Class,
			RotationDegrees: det.RotationDegrees,
			ScaleFactor:     det.ScaleFactor,
			FrameIndex:      frameIndex,
		}
		counter.ledger = append(counter.ledger, product)
		if det.Class == ShapeQualified {
			counter.stats.Qualified++
		} else {
			counter.stats.Defective++
		}
		counted = append(counted, product)
	}
	return counted
}

// Ledger returns copy of counted products in commit order
func (counter *Counter) Ledger() []CountedProduct {
	ledger := make([]CountedProduct, len(counter.ledger))
	copy(ledger, counter.ledger)
	return ledger
}

// SortedLedger returns copy of counted products ordered by track identifier
func (counter *Counter) SortedLedger() []CountedProduct {
	ledger := counter.Ledger()
	sort.SliceStable(ledger, func(i, j int) bool {
		return ledger[i].TrackID < ledger[j].TrackID
	})
	return ledger
}

// Stats returns running totals
func (counter *Counter) Stats() Stats {
	return counter.stats
}

func (counter *Counter) tick() {
	counter.stats.Frames++
}

// Reset empties ledger and totals
func (counter *Counter) Reset() {
	counter.ledger = make([]CountedProduct, 0)
	counter.stats = Stats{}
}

// nearestDetection returns index of the closest detection strictly within radius or -1
func nearestDetection(point mot.Point, detections []Detection, radius float64) int {
	best := -1
	bestDistance := radius
	for i := range detections {
		dist := point.DistanceTo(detections[i].Centroid)
		if dist < bestDistance {
			best = i
			bestDistance = dist
		}
	}
	return best
}
