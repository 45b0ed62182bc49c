package memstore

import (
	"context"
	"hash/fnv"
	"math"
)

// HashEmbedder is a deterministic offline EmbeddingProvider: identical text
// always maps to the same unit vector, distinct text lands elsewhere on the
// sphere. Exact duplicates therefore score as near matches without calling
// an embedding service, which is what tests and air-gapped setups need.
type HashEmbedder struct {
	Dim int
}

func (e HashEmbedder) Dimension() int {
	return e.Dim
}

func (e HashEmbedder) GenerateEmbedding(ctx context.Context, text string) ([]float32, error) {
	h := fnv.New64a()
	_, _ = h.Write([]byte(text))
	state := h.Sum64()

	vec := make([]float32, e.Dim)
	var norm float64
	for i := range vec {
		// Splitmix-style advance keeps components decorrelated
		state += 0x9e3779b97f4a7c15
		z := state
		z = (z ^ (z >> 30)) * 0xbf58476d1ce4e5b9
		z = (z ^ (z >> 27)) * 0x94d049bb133111eb
		z ^= z >> 31

		v := float64(int64(z)) / float64(math.MaxInt64)
		vec[i] = float32(v)
		norm += v * v
	}

	if norm > 0 {
		scale := float32(1 / math.Sqrt(norm))
		for i := range vec {
			vec[i] *= scale
		}
	}
	return vec, nil
}

func (e HashEmbedder) GenerateEmbeddings(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, text := range texts {
		vec, err := e.GenerateEmbedding(ctx, text)
		if err != nil {
			return nil, err
		}
		out[i] = vec
	}
	return out, nil
}
