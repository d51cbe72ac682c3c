package mot

// Track is a persistent identity of a blob observed across frames.
// Tracks are owned by CentroidTracker: callers may read them and flip Counted, nothing else.
type Track struct {
	// Unique identifier. Assigned at first observation and never reused by the same tracker
	ID int
	// Last matched position (last known one while the track is lost)
	Centroid Point
	// Position at the moment of creation. Immutable
	InitialPosition Point
	// Number of frames the track has been matched in after creation
	FramesTracked int
	// Consecutive frames since last successful match
	FramesLost int
	// One-way latch for counting logic. Tracker never touches it
	Counted bool

	history     []Point
	maxTrackLen int
}

func newTrack(id int, centroid Point, maxTrackLen int) *Track {
	track := Track{
		ID:              id,
		Centroid:        centroid,
		InitialPosition: centroid,
		FramesTracked:   0,
		FramesLost:      0,
		Counted:         false,
		history:         make([]Point, 0, maxTrackLen),
		maxTrackLen:     maxTrackLen,
	}
	track.history = append(track.history, centroid)
	return &track
}

// Displacement returns distance between current and initial positions
func (track *Track) Displacement() float64 {
	return euclideanDistance(track.Centroid, track.InitialPosition)
}

// IsMatched reports whether the track has been matched on the latest update
func (track *Track) IsMatched() bool {
	return track.FramesLost == 0
}

// GetTrack returns track's history of matched centroids. Be careful: this is not copy of track, but reference to it
func (track *Track) GetTrack() []Point {
	return track.history
}

// PathLength returns length of the polyline through kept history
func (track *Track) PathLength() float64 {
	length := 0.0
	for i := 1; i < len(track.history); i++ {
		length += euclideanDistance(track.history[i-1], track.history[i])
	}
	return length
}

// GetMaxTrackLen returns max length of centroids history
func (track *Track) GetMaxTrackLen() int {
	return track.maxTrackLen
}

// match moves the track to the new centroid
func (track *Track) match(centroid Point) {
	track.Centroid = centroid
	track.FramesTracked++
	track.FramesLost = 0
	track.history = append(track.history, centroid)
	if len(track.history) > track.maxTrackLen {
		track.history = track.history[1:]
	}
}

// miss ages the track by one frame
func (track *Track) miss() {
	track.FramesLost++
}
