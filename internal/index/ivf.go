package index

import "math"

const (
	defaultProbes = 4
	kmeansIters   = 10
)

// ivf is an inverted-file backend: vectors are partitioned into k-means
// clusters at build time and a query scans only the nearest clusters.
type ivf struct {
	dim       int
	probes    int
	centroids [][]float32
	lists     [][]Entry
}

func newIVF(dim int, sorted []Entry, probes int) *ivf {
	if probes <= 0 {
		probes = defaultProbes
	}

	n := len(sorted)
	k := int(math.Sqrt(float64(n)))
	if k < 1 {
		k = 1
	}
	if probes > k {
		probes = k
	}

	centroids := trainCentroids(dim, sorted, k)

	lists := make([][]Entry, len(centroids))
	for _, e := range sorted {
		c := nearestCentroid(centroids, e.Vector)
		lists[c] = append(lists[c], e)
	}

	return &ivf{dim: dim, probes: probes, centroids: centroids, lists: lists}
}

// trainCentroids runs a fixed number of Lloyd iterations. Seeding picks
// evenly spaced entries from the ID-sorted slice, keeping the build
// deterministic for a given corpus.
func trainCentroids(dim int, sorted []Entry, k int) [][]float32 {
	n := len(sorted)
	centroids := make([][]float32, k)
	for i := range centroids {
		seed := sorted[i*n/k].Vector
		c := make([]float32, dim)
		copy(c, seed)
		centroids[i] = c
	}

	assignments := make([]int, n)
	for iter := 0; iter < kmeansIters; iter++ {
		changed := false
		for i, e := range sorted {
			c := nearestCentroid(centroids, e.Vector)
			if assignments[i] != c {
				assignments[i] = c
				changed = true
			}
		}
		if iter > 0 && !changed {
			break
		}

		sums := make([][]float64, k)
		counts := make([]int, k)
		for i := range sums {
			sums[i] = make([]float64, dim)
		}
		for i, e := range sorted {
			c := assignments[i]
			counts[c]++
			for d, v := range e.Vector {
				sums[c][d] += float64(v)
			}
		}
		for c := range centroids {
			if counts[c] == 0 {
				continue // empty cluster keeps its old centroid
			}
			for d := range centroids[c] {
				centroids[c][d] = float32(sums[c][d] / float64(counts[c]))
			}
		}
	}

	return centroids
}

func nearestCentroid(centroids [][]float32, vec []float32) int {
	best, bestDist := 0, math.Inf(1)
	for i, c := range centroids {
		if d := squaredDistance(vec, c); d < bestDist {
			best, bestDist = i, d
		}
	}
	return best
}

func (x *ivf) Search(vector []float32, k int) ([]Candidate, error) {
	if err := checkQuery(x.dim, vector, k); err != nil {
		return nil, err
	}

	// Rank clusters by centroid distance, scan the closest ones.
	type clusterDist struct {
		idx  int
		dist float64
	}
	order := make([]clusterDist, len(x.centroids))
	for i, c := range x.centroids {
		order[i] = clusterDist{idx: i, dist: squaredDistance(vector, c)}
	}
	for i := 0; i < x.probes; i++ {
		min := i
		for j := i + 1; j < len(order); j++ {
			if order[j].dist < order[min].dist {
				min = j
			}
		}
		order[i], order[min] = order[min], order[i]
	}

	var candidates []Candidate
	for i := 0; i < x.probes; i++ {
		for _, e := range x.lists[order[i].idx] {
			candidates = append(candidates, Candidate{
				ID:         e.ID,
				Similarity: similarityFromDistance(squaredDistance(vector, e.Vector)),
			})
		}
	}
	return rank(candidates, k), nil
}

func (x *ivf) Dimension() int { return x.dim }

func (x *ivf) Size() int {
	var n int
	for _, l := range x.lists {
		n += len(l)
	}
	return n
}
