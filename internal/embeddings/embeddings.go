package embeddings

import (
	"context"
	"errors"
	"math"
)

// ErrModelUnavailable is returned when the embedding model cannot be loaded
// or fails to produce a vector.
var ErrModelUnavailable = errors.New("embedding model unavailable")

// Vector is a simple float32 slice wrapper.
type Vector []float32

// Embedder defines the embedding interface consumed by the matcher and the
// repository.
type Embedder interface {
	// Embed returns the vector for text. text must be non-empty.
	Embed(ctx context.Context, text string) (Vector, error)

	// Model identifies the model and dimensionality producing the vectors,
	// e.g. "text-embedding-3-small@384".
	Model() string
}

// Model is a loaded embedding backend. Inference must not mutate shared
// state so a single Model can serve concurrent callers.
type Model interface {
	Infer(ctx context.Context, text string) (Vector, error)
}

// Loader initializes a Model. It is called lazily by Lazy and may be called
// again after a failure.
type Loader func(ctx context.Context) (Model, error)

// CosineSimilarity computes dot(a,b)/(|a||b|) in float64.
// Returns 0 for empty or mismatched vectors and when either has zero magnitude.
func CosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}

	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}

	sim := dot / (math.Sqrt(normA) * math.Sqrt(normB))
	// Rounding can push parallel vectors a hair outside [-1, 1].
	return math.Max(-1, math.Min(1, sim))
}

// Normalize scales v to unit length in place and returns it.
// Zero vectors are returned unchanged.
func Normalize(v Vector) Vector {
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	if sum == 0 {
		return v
	}
	norm := math.Sqrt(sum)
	for i := range v {
		v[i] = float32(float64(v[i]) / norm)
	}
	return v
}
