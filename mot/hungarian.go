package mot

import (
	"github.com/arthurkushman/go-hungarian"
)

// associateHungarian solves assignment problem on similarity matrix: rows are tracks, columns are centroids.
// Similarity is (threshold - distance) inside of match radius and zero outside, so maximizing total similarity
// minimizes total distance of accepted pairs.
func (tracker *CentroidTracker) associateHungarian(centroids []Point) []int {
	assigned := unassigned(len(centroids))
	numTracks := len(tracker.tracks)
	numCentroids := len(centroids)
	if numTracks == 0 || numCentroids == 0 {
		return assigned
	}

	distances := make([][]float64, numTracks)
	for i, track := range tracker.tracks {
		distances[i] = make([]float64, numCentroids)
		for j, centroid := range centroids {
			distances[i][j] = euclideanDistance(track.Centroid, centroid)
		}
	}

	// Rectangular matrix - pad to make it square. Padding is done with 0.0 values (lowest similarity)
	paddedSize := maxInt(numTracks, numCentroids)
	paddedMatrix := make([][]float64, paddedSize)
	for i := 0; i < paddedSize; i++ {
		paddedMatrix[i] = make([]float64, paddedSize)
	}
	for i := 0; i < numTracks; i++ {
		for j := 0; j < numCentroids; j++ {
			if distances[i][j] < tracker.distanceThreshold {
				paddedMatrix[i][j] = tracker.distanceThreshold - distances[i][j]
			}
		}
	}

	assignmentsMap := hungarian.SolveMax(paddedMatrix)
	for trackIdx, rowMap := range assignmentsMap {
		if trackIdx >= numTracks {
			continue
		}
		for centroidIdx := range rowMap {
			if centroidIdx >= numCentroids {
				continue
			}
			// Dummy assignment with zero similarity means the pair is out of match radius
			if distances[trackIdx][centroidIdx] >= tracker.distanceThreshold {
				continue
			}
			if assigned[centroidIdx] >= 0 {
				continue
			}
			assigned[centroidIdx] = trackIdx
		}
	}
	return assigned
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
