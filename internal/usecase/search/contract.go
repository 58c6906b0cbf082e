package search

import (
	"context"

	"github.com/fusegate/fusegate/internal/domain/search/result"
	"github.com/fusegate/fusegate/internal/repository/fusioncache"
	"github.com/fusegate/fusegate/internal/usecase/admission"
)

// VectorSearcher is the external vector similarity ranking source.
type VectorSearcher interface {
	SearchVectors(ctx context.Context, datasetID string, vector []float32, candidates int) (result.List, error)
}

// TextSearcher is the external text relevance (BM25-style) ranking source.
type TextSearcher interface {
	SearchText(ctx context.Context, datasetID, query string, candidates int) (result.List, error)
}

// Embedder vectorizes query text when the caller supplies none.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// Gate is the admission control contract.
type Gate interface {
	CheckAndConsume(ctx context.Context, tenantID, opClass string) admission.Decision
}

// Cache is the single-flight result cache contract.
type Cache interface {
	GetOrCompute(ctx context.Context, fingerprint string, compute fusioncache.ComputeFn) (result.List, bool, error)
}
