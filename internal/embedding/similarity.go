package embedding

import "math"

// Similarity metrics.
const (
	MetricCosine    = "cosine"
	MetricDot       = "dot"
	MetricEuclidean = "euclidean"
)

// Similarity computes the similarity between two vectors under the named
// metric. Cosine is rescaled from [-1, 1] to [0, 1]; euclidean distance is
// mapped to similarity by 1/(1+d); dot product is returned raw. Mismatched
// or empty vectors score 0. Unknown metrics fall back to cosine.
func Similarity(a, b []float32, metric string) float64 {
	if len(a) == 0 || len(b) == 0 || len(a) != len(b) {
		return 0
	}

	switch metric {
	case MetricDot:
		return dot(a, b)
	case MetricEuclidean:
		var sum float64
		for i := range a {
			d := float64(a[i]) - float64(b[i])
			sum += d * d
		}
		return 1 / (1 + math.Sqrt(sum))
	default: // MetricCosine
		na, nb := norm(a), norm(b)
		if na == 0 || nb == 0 {
			return 0
		}
		cos := dot(a, b) / (na * nb)
		return (cos + 1) / 2
	}
}

func dot(a, b []float32) float64 {
	var sum float64
	for i := range a {
		sum += float64(a[i]) * float64(b[i])
	}
	return sum
}

func norm(v []float32) float64 {
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	return math.Sqrt(sum)
}
