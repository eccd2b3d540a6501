package search

import "context"

// Embedder turns encoded applicant profiles and historical quote texts
// into vectors comparable by inner product. Implementations batch: the
// returned slice is position-aligned with texts.
type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float64, error)
}
