package pipeline

import (
	"errors"
	"fmt"
	"math"
	"math/rand/v2"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

var (
	ErrTooFewPoints   = errors.New("fewer points than clusters")
	ErrDegenerateData = errors.New("fewer distinct points than clusters")
)

// KMeans is Lloyd's algorithm with k-means++ seeding. The same Seed always
// yields the same clustering for the same points.
type KMeans struct {
	K             int
	NInit         int
	MaxIterations int
	Tolerance     float64
	Seed          uint64
}

type Clustering struct {
	Labels     []int
	Centroids  [][]float64
	Inertia    float64
	Iterations int
}

// Fit runs NInit seeded restarts and keeps the one with the lowest inertia.
func (km KMeans) Fit(points [][]float64) (*Clustering, error) {
	if km.K < 1 {
		return nil, fmt.Errorf("k must be positive, got %d", km.K)
	}
	if len(points) < km.K {
		return nil, fmt.Errorf("%w: %d points, %d clusters", ErrTooFewPoints, len(points), km.K)
	}
	if distinctPoints(points, km.K) < km.K {
		return nil, fmt.Errorf("%w: need %d", ErrDegenerateData, km.K)
	}

	nInit := max(km.NInit, 1)
	maxIter := max(km.MaxIterations, 1)
	tol := km.Tolerance * meanVariance(points)

	rng := rand.New(rand.NewPCG(km.Seed, km.Seed))

	var best *Clustering
	for range nInit {
		centroids := seedPlusPlus(points, km.K, rng)
		result := lloyd(points, centroids, maxIter, tol)
		if best == nil || result.Inertia < best.Inertia {
			best = result
		}
	}

	return best, nil
}

func seedPlusPlus(points [][]float64, k int, rng *rand.Rand) [][]float64 {
	centroids := make([][]float64, 0, k)
	centroids = append(centroids, clonePoint(points[rng.IntN(len(points))]))

	dist := make([]float64, len(points))
	for i, p := range points {
		dist[i] = squaredDistance(p, centroids[0])
	}

	for len(centroids) < k {
		target := rng.Float64() * floats.Sum(dist)
		next, cumulative := -1, 0.0
		for i, d := range dist {
			if d <= 0 {
				continue
			}
			next = i
			cumulative += d
			if cumulative >= target {
				break
			}
		}
		if next < 0 {
			next = rng.IntN(len(points))
		}

		centroid := clonePoint(points[next])
		centroids = append(centroids, centroid)
		for i, p := range points {
			dist[i] = math.Min(dist[i], squaredDistance(p, centroid))
		}
	}

	return centroids
}

func lloyd(points [][]float64, centroids [][]float64, maxIter int, tol float64) *Clustering {
	k := len(centroids)
	dim := len(points[0])
	labels := make([]int, len(points))

	iterations := 0
	for iterations < maxIter {
		iterations++
		assign(points, centroids, labels)

		sums := make([][]float64, k)
		counts := make([]int, k)
		for c := range sums {
			sums[c] = make([]float64, dim)
		}
		for i, p := range points {
			floats.Add(sums[labels[i]], p)
			counts[labels[i]]++
		}

		updated := make([][]float64, k)
		relocated := make(map[int]bool)
		for c := range updated {
			if counts[c] == 0 {
				// Empty cluster: move it onto the point worst served by its centroid.
				far := farthestPoint(points, centroids, labels, relocated)
				relocated[far] = true
				updated[c] = clonePoint(points[far])
				continue
			}
			updated[c] = sums[c]
			floats.Scale(1/float64(counts[c]), updated[c])
		}

		shift := 0.0
		for c := range centroids {
			shift += squaredDistance(centroids[c], updated[c])
		}
		centroids = updated

		if shift <= tol {
			break
		}
	}

	assign(points, centroids, labels)

	inertia := 0.0
	for i, p := range points {
		inertia += squaredDistance(p, centroids[labels[i]])
	}

	return &Clustering{
		Labels:     labels,
		Centroids:  centroids,
		Inertia:    inertia,
		Iterations: iterations,
	}
}

func assign(points, centroids [][]float64, labels []int) {
	for i, p := range points {
		best, bestDist := 0, math.Inf(1)
		for c, centroid := range centroids {
			if d := squaredDistance(p, centroid); d < bestDist {
				best, bestDist = c, d
			}
		}
		labels[i] = best
	}
}

func farthestPoint(points, centroids [][]float64, labels []int, skip map[int]bool) int {
	far, farDist := 0, -1.0
	for i, p := range points {
		if skip[i] {
			continue
		}
		if d := squaredDistance(p, centroids[labels[i]]); d > farDist {
			far, farDist = i, d
		}
	}
	return far
}

func squaredDistance(a, b []float64) float64 {
	d := floats.Distance(a, b, 2)
	return d * d
}

// meanVariance is the mean of the per-dimension population variances; the
// convergence tolerance is relative to it.
func meanVariance(points [][]float64) float64 {
	dim := len(points[0])
	column := make([]float64, len(points))
	total := 0.0
	for j := range dim {
		for i, p := range points {
			column[i] = p[j]
		}
		_, std := stat.PopMeanStdDev(column, nil)
		total += std * std
	}
	return total / float64(dim)
}

// distinctPoints counts distinct points, stopping early once limit is reached.
func distinctPoints(points [][]float64, limit int) int {
	seen := make([][]float64, 0, limit)
	for _, p := range points {
		dup := false
		for _, s := range seen {
			if floats.Equal(p, s) {
				dup = true
				break
			}
		}
		if !dup {
			seen = append(seen, p)
			if len(seen) >= limit {
				break
			}
		}
	}
	return len(seen)
}

func clonePoint(p []float64) []float64 {
	out := make([]float64, len(p))
	copy(out, p)
	return out
}
