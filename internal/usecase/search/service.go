package search

import (
	"context"
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/fusegate/fusegate/internal/domain"
	"github.com/fusegate/fusegate/internal/domain/search/method"
	"github.com/fusegate/fusegate/internal/domain/search/request"
	"github.com/fusegate/fusegate/internal/domain/search/result"
	"github.com/fusegate/fusegate/internal/logger"
	"github.com/fusegate/fusegate/internal/usecase/admission"
)

// Service is the hybrid search pipeline: admission gate, result cache,
// concurrent source fetch, rank fusion.
type Service struct {
	gate           Gate
	cache          Cache
	vectors        VectorSearcher
	texts          TextSearcher
	embed          Embedder // optional; nil disables query embedding
	k0             int
	candidatePool  int
	adapterTimeout time.Duration
	fusionDuration *prometheus.HistogramVec
	adapterErrors  *prometheus.CounterVec
}

// New creates the search pipeline service.
func New(gate Gate, cache Cache, vectors VectorSearcher, texts TextSearcher) *Service {
	return &Service{
		gate:           gate,
		cache:          cache,
		vectors:        vectors,
		texts:          texts,
		k0:             method.DefaultK0,
		candidatePool:  100,
		adapterTimeout: 2 * time.Second,
	}
}

// WithEmbedder attaches a query embedder for text-only requests.
func (s *Service) WithEmbedder(embed Embedder) *Service {
	s.embed = embed
	return s
}

// WithFusion overrides the RRF constant and candidate pool floor.
func (s *Service) WithFusion(k0, candidatePool int) *Service {
	if k0 > 0 {
		s.k0 = k0
	}
	if candidatePool > 0 {
		s.candidatePool = candidatePool
	}
	return s
}

// WithAdapterTimeout sets the per-adapter call deadline.
func (s *Service) WithAdapterTimeout(d time.Duration) *Service {
	if d > 0 {
		s.adapterTimeout = d
	}
	return s
}

// WithMetrics attaches the fusion duration histogram (label: method) and
// the adapter error counter (labels: adapter, error_type). Either may be nil.
func (s *Service) WithMetrics(fusionDuration *prometheus.HistogramVec, adapterErrors *prometheus.CounterVec) *Service {
	s.fusionDuration = fusionDuration
	s.adapterErrors = adapterErrors
	return s
}

// HybridSearch runs the full pipeline for a validated request.
// The cheapest rejection path runs first: an admission rejection
// short-circuits before fingerprinting or any adapter call.
func (s *Service) HybridSearch(ctx context.Context, req *request.Request) (result.List, bool, error) {
	opClass := domain.DefaultOpClass
	if id, ok := domain.IdentityFromContext(ctx); ok && id.OpClass != "" {
		opClass = id.OpClass
	}

	decision := s.gate.CheckAndConsume(ctx, req.TenantID(), opClass)
	if !decision.Allowed() {
		return nil, false, domain.NewRateLimited(
			decision.RetryAfter, decision.Limit, decision.Outcome == admission.Defer,
		)
	}

	list, hit, err := s.cache.GetOrCompute(ctx, req.Fingerprint(), func(ctx context.Context) (result.List, error) {
		return s.fetchAndFuse(ctx, req)
	})
	if err != nil {
		return nil, false, err
	}
	return list, hit, nil
}

// fetchAndFuse retrieves both ranked source lists concurrently and
// fuses them. Failures here are never cached.
func (s *Service) fetchAndFuse(ctx context.Context, req *request.Request) (result.List, error) {
	start := time.Now()

	vector := req.QueryVector()
	if len(vector) == 0 && s.embed != nil {
		embedded, err := s.embed.Embed(ctx, req.QueryText())
		if err != nil {
			return nil, s.classifyAdapterErr("embed_query", err)
		}
		vector = embedded
	}

	candidates := req.K()
	if candidates < s.candidatePool {
		candidates = s.candidatePool
	}

	// The two sources are independent; fetch them concurrently.
	var vList, tList result.List
	g, gctx := errgroup.WithContext(ctx)

	if len(vector) > 0 {
		g.Go(func() error {
			callCtx, cancel := context.WithTimeout(gctx, s.adapterTimeout)
			defer cancel()
			list, err := s.vectors.SearchVectors(callCtx, req.DatasetID(), vector, candidates)
			if err != nil {
				return s.classifyAdapterErr("search_vectors", err)
			}
			vList = list
			return nil
		})
	}
	if req.QueryText() != "" {
		g.Go(func() error {
			callCtx, cancel := context.WithTimeout(gctx, s.adapterTimeout)
			defer cancel()
			list, err := s.texts.SearchText(callCtx, req.DatasetID(), req.QueryText(), candidates)
			if err != nil {
				return s.classifyAdapterErr("search_text", err)
			}
			tList = list
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	fused := fuse(vList, tList, req.K(), req.Alpha(), req.Method(), s.k0)

	if s.fusionDuration != nil {
		s.fusionDuration.WithLabelValues(string(req.Method())).Observe(time.Since(start).Seconds())
	}
	logger.FromContext(ctx).Debug("fused ranked lists",
		zap.String("dataset", req.DatasetID()),
		zap.String("method", string(req.Method())),
		zap.Int("vector_hits", len(vList)),
		zap.Int("text_hits", len(tList)),
		zap.Int("fused", len(fused)),
	)
	return fused, nil
}

// classifyAdapterErr maps adapter failures onto the error taxonomy.
// Deadline hits become retriable timeouts; NotFound passes through.
func (s *Service) classifyAdapterErr(op string, err error) error {
	switch {
	case errors.Is(err, context.DeadlineExceeded) || errors.Is(err, domain.ErrTimeout):
		s.incAdapterError(op, "timeout")
		return domain.NewUpstreamTimeout(op, err)
	case errors.Is(err, domain.ErrNotFound):
		s.incAdapterError(op, "not_found")
		return err
	default:
		s.incAdapterError(op, "other")
		return domain.NewUpstream(op, err)
	}
}

func (s *Service) incAdapterError(adapter, errorType string) {
	if s.adapterErrors != nil {
		s.adapterErrors.WithLabelValues(adapter, errorType).Inc()
	}
}
