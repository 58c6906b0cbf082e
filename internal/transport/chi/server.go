// Package chi is the thin HTTP glue over the search pipeline.
package chi

import (
	"context"
	"encoding/json"
	"errors"
	"math"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/fusegate/fusegate/internal/domain"
	"github.com/fusegate/fusegate/internal/domain/search/method"
	"github.com/fusegate/fusegate/internal/domain/search/request"
	searchuc "github.com/fusegate/fusegate/internal/usecase/search"
)

// BackendPinger reports search backend health.
type BackendPinger interface {
	Ping(ctx context.Context) error
}

// Server exposes the hybrid search pipeline over HTTP.
type Server struct {
	search  *searchuc.Service
	backend BackendPinger
	logger  *zap.Logger
}

// NewServer creates the HTTP API server.
func NewServer(search *searchuc.Service, backend BackendPinger, logger *zap.Logger) *Server {
	return &Server{search: search, backend: backend, logger: logger}
}

// Routes mounts all handlers on the router.
func (s *Server) Routes(r chi.Router) {
	r.Post("/v1/search", s.handleSearch)
	r.Get("/health", s.handleHealth)
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())
}

// searchRequest is the POST /v1/search body.
type searchRequest struct {
	DatasetID   string    `json:"dataset_id"`
	QueryText   string    `json:"query_text"`
	QueryVector []float32 `json:"query_vector,omitempty"`
	K           int       `json:"k"`
	Alpha       *float64  `json:"alpha,omitempty"` // default 0.5
	Method      string    `json:"method,omitempty"`
}

// searchResponse is the POST /v1/search reply.
type searchResponse struct {
	Results         []searchHit `json:"results"`
	ServedFromCache bool        `json:"served_from_cache"`
}

type searchHit struct {
	ID    string  `json:"id"`
	Score float64 `json:"score"`
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	var body searchRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", "invalid request body: "+err.Error())
		return
	}

	id, ok := domain.IdentityFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized", "missing tenant identity")
		return
	}

	alpha := 0.5
	if body.Alpha != nil {
		alpha = *body.Alpha
	}

	req, err := request.New(
		id.TenantID, body.DatasetID, body.QueryText,
		body.QueryVector, body.K, alpha, method.Method(body.Method),
	)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	list, cached, err := s.search.HybridSearch(r.Context(), &req)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	hits := make([]searchHit, len(list))
	for i, item := range list {
		hits[i] = searchHit{ID: item.ID(), Score: item.Score()}
	}
	writeJSON(w, http.StatusOK, searchResponse{Results: hits, ServedFromCache: cached})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if s.backend != nil {
		if err := s.backend.Ping(r.Context()); err != nil {
			writeError(w, http.StatusServiceUnavailable, "unhealthy", err.Error())
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleDomainError maps the error taxonomy onto HTTP statuses.
func (s *Server) handleDomainError(w http.ResponseWriter, err error) {
	var vErr *domain.ValidationError
	if errors.As(err, &vErr) {
		writeError(w, http.StatusBadRequest, "validation_failed", vErr.Field+": "+vErr.Reason)
		return
	}

	var rlErr *domain.RateLimitedError
	if errors.As(err, &rlErr) {
		secs := int(math.Ceil(rlErr.RetryAfter.Seconds()))
		if secs < 1 {
			secs = 1
		}
		w.Header().Set("Retry-After", strconv.Itoa(secs))
		writeError(w, http.StatusTooManyRequests, "rate_limited", err.Error())
		return
	}

	switch {
	case errors.Is(err, domain.ErrValidation):
		writeError(w, http.StatusBadRequest, "validation_failed", err.Error())
	case errors.Is(err, domain.ErrRateLimited):
		writeError(w, http.StatusTooManyRequests, "rate_limited", err.Error())
	case errors.Is(err, domain.ErrNotFound):
		writeError(w, http.StatusNotFound, "dataset_not_found", err.Error())
	case errors.Is(err, domain.ErrTimeout):
		writeError(w, http.StatusGatewayTimeout, "upstream_timeout", err.Error())
	case errors.Is(err, domain.ErrUpstream):
		writeError(w, http.StatusBadGateway, "upstream_error", err.Error())
	case errors.Is(err, context.Canceled):
		// Client went away; 499-style, but chi has no constant for it.
		writeError(w, http.StatusBadRequest, "request_cancelled", "request cancelled")
	default:
		s.logger.Error("unhandled pipeline error", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal_error", "internal error")
	}
}

// errorResponse is the structured error body.
type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, errorResponse{Code: code, Message: message})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
