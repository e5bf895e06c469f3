package verify

import (
	"context"
	"fmt"
	"sync"

	"gocv.io/x/gocv"
)

// Embedder computes a face embedding for an image
type Embedder interface {
	Represent(ctx context.Context, img gocv.Mat) ([]float64, error)
}

// EmbeddingComparer compares faces by the distance between their embeddings.
// The embedding of the second image is computed on the first call and reused
// afterwards, so b must always be the same reference image.
type EmbeddingComparer struct {
	embedder  Embedder
	metric    Metric
	threshold float64
	model     string
	mu        sync.Mutex
	reference []float64
}

// NewEmbeddingComparer returns a comparer matching embeddings whose distance
// is below threshold
func NewEmbeddingComparer(embedder Embedder, metric Metric, threshold float64, model string) *EmbeddingComparer {
	return &EmbeddingComparer{
		embedder:  embedder,
		metric:    metric,
		threshold: threshold,
		model:     model,
	}
}

// Compare computes the embedding distance between a and b
func (e *EmbeddingComparer) Compare(ctx context.Context, a, b gocv.Mat) (Comparison, error) {

	ref, err := e.referenceEmbedding(ctx, b)
	if err != nil {
		return Comparison{}, fmt.Errorf("reference embedding: %w", err)
	}

	emb, err := e.embedder.Represent(ctx, a)
	if err != nil {
		return Comparison{}, fmt.Errorf("frame embedding: %w", err)
	}

	dist, err := Distance(e.metric, emb, ref)
	if err != nil {
		return Comparison{}, err
	}

	return Comparison{
		Verified:  dist < e.threshold,
		Distance:  dist,
		Threshold: e.threshold,
		Model:     e.model,
	}, nil
}

// referenceEmbedding returns the cached reference embedding, computing it
// from img if not yet known
func (e *EmbeddingComparer) referenceEmbedding(ctx context.Context, img gocv.Mat) ([]float64, error) {

	e.mu.Lock()
	defer e.mu.Unlock()

	if e.reference != nil {
		return e.reference, nil
	}

	emb, err := e.embedder.Represent(ctx, img)
	if err != nil {
		return nil, err
	}

	e.reference = emb
	return emb, nil
}
