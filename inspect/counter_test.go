package inspect

import (
	"testing"

	"github.com/LdDl/conveyor-inspect/mot"
)

// movedTrack runs a tracker over a straight path so the returned track has the requested history
func movedTrack(t *testing.T, matches int, step float64) (*mot.CentroidTracker, *mot.Track) {
	t.Helper()
	tracker := mot.NewCentroidTrackerDefault()
	var tracks []*mot.Track
	for i := 0; i <= matches; i++ {
		tracks = tracker.Update([]mot.Point{mot.NewPoint(100+step*float64(i), 100)})
	}
	if len(tracks) != 1 {
		t.Fatalf("Expected single track, got %d", len(tracks))
	}
	return tracker, tracks[0]
}

func classified(class ShapeClass, x, y float64) Detection {
	return Detection{
		Centroid:        mot.NewPoint(x, y),
		Box:             OrientedBox{Width: 100, Height: 50},
		Features:        ShapeFeatures{Vertices: 4, Area: 4750, FillRatio: 0.95},
		Class:           class,
		RotationDegrees: 12,
		ScaleFactor:     1,
	}
}

func TestCounterPreconditions(t *testing.T) {
	cases := []struct {
		name     string
		matches  int
		step     float64
		expected int
	}{
		{"too young", 9, 10, 0},
		{"not moved enough", 12, 4, 0},
		{"exact thresholds", 10, 5, 1},
		{"well tracked", 20, 10, 1},
	}
	for _, c := range cases {
		_, track := movedTrack(t, c.matches, c.step)
		counter := NewCounter(DefaultConfig())
		counted := counter.Evaluate(0, []*mot.Track{track}, []Detection{classified(ShapeQualified, track.Centroid.X, track.Centroid.Y)})
		if len(counted) != c.expected {
			t.Errorf("Case %q: expected %d counted, got %d", c.name, c.expected, len(counted))
		}
	}
}

func TestCounterNeedsNearbyDetection(t *testing.T) {
	_, track := movedTrack(t, 15, 10)
	counter := NewCounter(DefaultConfig())
	far := classified(ShapeQualified, track.Centroid.X+DefaultMatchRadius, track.Centroid.Y)
	if counted := counter.Evaluate(0, []*mot.Track{track}, []Detection{far}); len(counted) != 0 {
		t.Errorf("Detection on the radius boundary must not be used")
	}
	if track.Counted {
		t.Errorf("Track must not be latched without a detection")
	}
}

func TestCounterUsesNearestDetection(t *testing.T) {
	_, track := movedTrack(t, 15, 10)
	counter := NewCounter(DefaultConfig())
	detections := []Detection{
		classified(ShapeDefective, track.Centroid.X+30, track.Centroid.Y),
		classified(ShapeQualified, track.Centroid.X+2, track.Centroid.Y-1),
	}
	counted := counter.Evaluate(7, []*mot.Track{track}, detections)
	if len(counted) != 1 {
		t.Fatalf("Expected single count, got %d", len(counted))
	}
	if counted[0].Class != ShapeQualified || counted[0].FrameIndex != 7 || counted[0].RotationDegrees != 12 {
		t.Errorf("Unexpected product: %+v", counted[0])
	}
	if stats := counter.Stats(); stats.Qualified != 1 || stats.Defective != 0 {
		t.Errorf("Unexpected stats: %+v", stats)
	}
}

func TestCounterNoDoubleCount(t *testing.T) {
	tracker, track := movedTrack(t, 15, 10)
	counter := NewCounter(DefaultConfig())
	for frame := 0; frame < 30; frame++ {
		x := track.Centroid.X + 10
		tracks := tracker.Update([]mot.Point{mot.NewPoint(x, 100)})
		counter.Evaluate(frame, tracks, []Detection{classified(ShapeDefective, x, 100)})
	}
	if len(counter.Ledger()) != 1 || counter.Stats().Defective != 1 {
		t.Errorf("Track must be counted exactly once, ledger: %+v", counter.Ledger())
	}
}

func TestCounterSkipsLostTracks(t *testing.T) {
	tracker, _ := movedTrack(t, 15, 10)
	tracks := tracker.Update(nil)
	counter := NewCounter(DefaultConfig())
	counted := counter.Evaluate(0, tracks, []Detection{classified(ShapeQualified, tracks[0].Centroid.X, tracks[0].Centroid.Y)})
	if len(counted) != 0 {
		t.Errorf("Track lost on current frame must not be counted")
	}
}

func TestSortedLedger(t *testing.T) {
	tracker := mot.NewCentroidTrackerDefault()
	counter := NewCounter(DefaultConfig())
	// Second item starts moving first, so it is counted before the first one
	for frame := 0; frame < 40; frame++ {
		slow := mot.NewPoint(100+3*float64(frame), 100)
		fast := mot.NewPoint(100+10*float64(frame), 400)
		tracks := tracker.Update([]mot.Point{slow, fast})
		counter.Evaluate(frame, tracks, []Detection{
			classified(ShapeQualified, slow.X, slow.Y),
			classified(ShapeDefective, fast.X, fast.Y),
		})
	}
	ledger := counter.Ledger()
	if len(ledger) != 2 || ledger[0].TrackID != 1 || ledger[1].TrackID != 0 {
		t.Fatalf("Unexpected commit order: %+v", ledger)
	}
	sorted := counter.SortedLedger()
	if sorted[0].TrackID != 0 || sorted[1].TrackID != 1 {
		t.Errorf("Sorted ledger must be ordered by track id: %+v", sorted)
	}
	counter.Reset()
	if len(counter.Ledger()) != 0 || counter.Stats().Total() != 0 {
		t.Errorf("Reset should clear ledger and totals")
	}
}
