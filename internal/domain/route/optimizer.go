package route

import (
	"sort"
	"time"

	"github.com/Kilat-Pet-Delivery/service-geo/internal/domain/geo"
	"github.com/google/uuid"
)

// Stop is a booking with resolved coordinates, ready to be ordered.
type Stop struct {
	BookingID uuid.UUID
	Point     geo.Point
	StartsAt  time.Time
	EndsAt    time.Time
}

// DistanceFunc measures the distance in miles between two points.
type DistanceFunc func(from, to geo.Point) (float64, error)

// NearestNeighbor orders stops greedily: from start (or the first stop when start
// is nil) it always moves to the closest unvisited stop. Ties keep input order.
// It is O(n²) and not globally optimal, which is fine for a day's worth of stops.
func NearestNeighbor(start *geo.Point, stops []Stop, dist DistanceFunc) ([]Stop, error) {
	if len(stops) == 0 {
		return nil, nil
	}

	visited := make([]bool, len(stops))
	ordered := make([]Stop, 0, len(stops))

	var current geo.Point
	if start != nil {
		current = *start
	} else {
		ordered = append(ordered, stops[0])
		visited[0] = true
		current = stops[0].Point
	}

	for len(ordered) < len(stops) {
		best := -1
		var bestDist float64
		for i, s := range stops {
			if visited[i] {
				continue
			}
			d, err := dist(current, s.Point)
			if err != nil {
				return nil, err
			}
			if best == -1 || d < bestDist {
				best = i
				bestDist = d
			}
		}
		visited[best] = true
		ordered = append(ordered, stops[best])
		current = stops[best].Point
	}
	return ordered, nil
}

// ClusterByStart sorts stops by start time and groups consecutive stops whose
// starts are at most gap apart.
func ClusterByStart(stops []Stop, gap time.Duration) [][]Stop {
	if len(stops) == 0 {
		return nil
	}
	sorted := make([]Stop, len(stops))
	copy(sorted, stops)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].StartsAt.Before(sorted[j].StartsAt) })

	clusters := [][]Stop{{sorted[0]}}
	for i := 1; i < len(sorted); i++ {
		last := clusters[len(clusters)-1]
		if sorted[i].StartsAt.Sub(last[len(last)-1].StartsAt) <= gap {
			clusters[len(clusters)-1] = append(last, sorted[i])
			continue
		}
		clusters = append(clusters, []Stop{sorted[i]})
	}
	return clusters
}

// TimeWindowed keeps appointment order across clusters of nearby start times and
// only applies nearest-neighbor inside each cluster.
func TimeWindowed(start *geo.Point, stops []Stop, gap time.Duration, dist DistanceFunc) ([]Stop, error) {
	ordered := make([]Stop, 0, len(stops))
	current := start
	for _, cluster := range ClusterByStart(stops, gap) {
		part, err := NearestNeighbor(current, cluster, dist)
		if err != nil {
			return nil, err
		}
		ordered = append(ordered, part...)
		p := part[len(part)-1].Point
		current = &p
	}
	return ordered, nil
}
