package request

import (
	"strings"

	"github.com/fusegate/fusegate/internal/domain"
	"github.com/fusegate/fusegate/internal/domain/search/method"
)

// Search parameter limits.
const (
	// MaxQueryLength is the maximum allowed query text length.
	MaxQueryLength = 4096
	DefaultK       = 10
	MaxK           = 500
)

// Request is a validated fusion request. Constructed once per incoming
// search call and never mutated.
type Request struct {
	tenantID    string
	datasetID   string
	queryText   string
	queryVector []float32
	k           int
	alpha       float64
	fuseMethod  method.Method
}

// New validates and normalizes fusion request parameters.
// Defaults: method=rrf, k=10. At least one of query text or query
// vector must be present.
func New(
	tenantID, datasetID, queryText string,
	queryVector []float32,
	k int,
	alpha float64,
	m method.Method,
) (Request, error) {
	if tenantID == "" {
		return Request{}, domain.NewValidation("tenant_id", "is required")
	}
	if datasetID == "" {
		return Request{}, domain.NewValidation("dataset_id", "is required")
	}
	if queryText == "" && len(queryVector) == 0 {
		return Request{}, domain.NewValidation("query", "query text or query vector is required")
	}
	if len(queryText) > MaxQueryLength {
		return Request{}, domain.NewValidation("query_text", "too long")
	}
	if k < 0 {
		return Request{}, domain.NewValidation("k", "must be positive")
	}
	if k == 0 {
		k = DefaultK
	}
	if k > MaxK {
		k = MaxK
	}
	if alpha < 0 || alpha > 1 {
		return Request{}, domain.NewValidation("alpha", "must be between 0 and 1")
	}
	if m == "" {
		m = method.RRF
	}
	if !m.IsValid() {
		return Request{}, domain.NewValidation("method", "unknown fusion method "+string(m))
	}

	return Request{
		tenantID:    tenantID,
		datasetID:   datasetID,
		queryText:   queryText,
		queryVector: queryVector,
		k:           k,
		alpha:       alpha,
		fuseMethod:  m,
	}, nil
}

// TenantID returns the requesting tenant.
func (r *Request) TenantID() string { return r.tenantID }

// DatasetID returns the target dataset.
func (r *Request) DatasetID() string { return r.datasetID }

// QueryText returns the text query.
func (r *Request) QueryText() string { return r.queryText }

// QueryVector returns the query embedding (nil when text-only).
func (r *Request) QueryVector() []float32 { return r.queryVector }

// K returns the requested result count.
func (r *Request) K() int { return r.k }

// Alpha returns the vector-vs-text weight.
func (r *Request) Alpha() float64 { return r.alpha }

// Method returns the fusion algorithm.
func (r *Request) Method() method.Method { return r.fuseMethod }

// normalizedText lowercases the query and collapses runs of whitespace,
// so semantically identical queries fingerprint identically.
func (r *Request) normalizedText() string {
	return strings.Join(strings.Fields(strings.ToLower(r.queryText)), " ")
}
