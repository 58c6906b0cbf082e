package chi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/fusegate/fusegate/internal/domain"
	"github.com/fusegate/fusegate/internal/domain/search/result"
	"github.com/fusegate/fusegate/internal/repository/fusioncache"
	"github.com/fusegate/fusegate/internal/usecase/admission"
	searchuc "github.com/fusegate/fusegate/internal/usecase/search"
)

type stubGate struct {
	decision admission.Decision
}

func (s *stubGate) CheckAndConsume(ctx context.Context, tenantID, opClass string) admission.Decision {
	return s.decision
}

type stubSearcher struct {
	vectors result.List
	texts   result.List
	err     error
}

func (s *stubSearcher) SearchVectors(ctx context.Context, datasetID string, vector []float32, candidates int) (result.List, error) {
	return s.vectors, s.err
}

func (s *stubSearcher) SearchText(ctx context.Context, datasetID, query string, candidates int) (result.List, error) {
	return s.texts, s.err
}

type stubPinger struct {
	err error
}

func (s *stubPinger) Ping(ctx context.Context) error { return s.err }

func newTestServer(t *testing.T, gate searchuc.Gate, backend *stubSearcher, pinger BackendPinger) http.Handler {
	t.Helper()
	cache, err := fusioncache.New(64, time.Minute, nil)
	if err != nil {
		t.Fatalf("fusioncache.New: %v", err)
	}
	svc := searchuc.New(gate, cache, backend, backend)
	server := NewServer(svc, pinger, zap.NewNop())

	r := chi.NewRouter()
	r.Use(BearerAuthMiddleware(nil))
	server.Routes(r)
	return r
}

func allowGate() *stubGate {
	return &stubGate{decision: admission.Decision{Outcome: admission.Allow}}
}

func postSearch(t *testing.T, handler http.Handler, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/v1/search", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func TestHandleSearch_OK(t *testing.T) {
	backend := &stubSearcher{
		vectors: result.List{result.New("a", 0.9), result.New("b", 0.8)},
		texts:   result.List{result.New("b", 12.0)},
	}
	handler := newTestServer(t, allowGate(), backend, nil)

	body := `{"dataset_id":"docs","query_text":"hello","query_vector":[0.1,0.2],"k":5}`
	rec := postSearch(t, handler, body)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var resp struct {
		Results []struct {
			ID    string  `json:"id"`
			Score float64 `json:"score"`
		} `json:"results"`
		ServedFromCache bool `json:"served_from_cache"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(resp.Results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(resp.Results))
	}
	if resp.Results[0].ID != "b" {
		t.Errorf("expected 'b' ranked first, got %q", resp.Results[0].ID)
	}
	if resp.ServedFromCache {
		t.Error("first request must not be served from cache")
	}

	// Identical request is a cache hit.
	rec = postSearch(t, handler, body)
	if rec.Code != http.StatusOK {
		t.Fatalf("second request: expected 200, got %d", rec.Code)
	}
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode second response: %v", err)
	}
	if !resp.ServedFromCache {
		t.Error("second identical request should be served from cache")
	}
}

func TestHandleSearch_InvalidBody(t *testing.T) {
	handler := newTestServer(t, allowGate(), &stubSearcher{}, nil)

	rec := postSearch(t, handler, `{not json`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestHandleSearch_ValidationFailure(t *testing.T) {
	handler := newTestServer(t, allowGate(), &stubSearcher{}, nil)

	tests := []struct {
		name string
		body string
	}{
		{"missing dataset", `{"query_text":"hello"}`},
		{"no query", `{"dataset_id":"docs"}`},
		{"alpha out of range", `{"dataset_id":"docs","query_text":"hello","alpha":1.5}`},
		{"unknown method", `{"dataset_id":"docs","query_text":"hello","method":"bayesian"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := postSearch(t, handler, tt.body)
			if rec.Code != http.StatusBadRequest {
				t.Fatalf("expected 400, got %d: %s", rec.Code, rec.Body.String())
			}
			var resp errorResponse
			if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
				t.Fatalf("decode error body: %v", err)
			}
			if resp.Code != "validation_failed" {
				t.Errorf("expected code validation_failed, got %q", resp.Code)
			}
		})
	}
}

func TestHandleSearch_RateLimited(t *testing.T) {
	gate := &stubGate{decision: admission.Decision{
		Outcome:    admission.Reject,
		RetryAfter: 1500 * time.Millisecond,
		Limit:      "per_minute",
	}}
	handler := newTestServer(t, gate, &stubSearcher{}, nil)

	rec := postSearch(t, handler, `{"dataset_id":"docs","query_text":"hello"}`)
	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429, got %d", rec.Code)
	}
	// 1.5s rounds up to 2 whole seconds.
	if got := rec.Header().Get("Retry-After"); got != "2" {
		t.Errorf("expected Retry-After header 2, got %q", got)
	}
}

func TestHandleSearch_RetryAfterIsAtLeastOneSecond(t *testing.T) {
	gate := &stubGate{decision: admission.Decision{
		Outcome:    admission.Reject,
		RetryAfter: 50 * time.Millisecond,
		Limit:      "per_minute",
	}}
	handler := newTestServer(t, gate, &stubSearcher{}, nil)

	rec := postSearch(t, handler, `{"dataset_id":"docs","query_text":"hello"}`)
	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429, got %d", rec.Code)
	}
	if got := rec.Header().Get("Retry-After"); got != "1" {
		t.Errorf("expected Retry-After header 1, got %q", got)
	}
}

func TestHandleSearch_UpstreamErrors(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   string
	}{
		{"missing dataset", domain.ErrNotFound, http.StatusNotFound, "dataset_not_found"},
		{"adapter timeout", domain.NewUpstreamTimeout("search_text", context.DeadlineExceeded), http.StatusGatewayTimeout, "upstream_timeout"},
		{"adapter failure", errors.New("connection refused"), http.StatusBadGateway, "upstream_error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			handler := newTestServer(t, allowGate(), &stubSearcher{err: tt.err}, nil)

			rec := postSearch(t, handler, `{"dataset_id":"docs","query_text":"hello"}`)
			if rec.Code != tt.wantStatus {
				t.Fatalf("expected %d, got %d: %s", tt.wantStatus, rec.Code, rec.Body.String())
			}
			var resp errorResponse
			if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
				t.Fatalf("decode error body: %v", err)
			}
			if resp.Code != tt.wantCode {
				t.Errorf("expected code %q, got %q", tt.wantCode, resp.Code)
			}
		})
	}
}

func TestHandleHealth(t *testing.T) {
	t.Run("healthy backend", func(t *testing.T) {
		handler := newTestServer(t, allowGate(), &stubSearcher{}, &stubPinger{})

		req := httptest.NewRequest(http.MethodGet, "/health", nil)
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", rec.Code)
		}
	})

	t.Run("unreachable backend", func(t *testing.T) {
		handler := newTestServer(t, allowGate(), &stubSearcher{}, &stubPinger{err: errors.New("connection refused")})

		req := httptest.NewRequest(http.MethodGet, "/health", nil)
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		if rec.Code != http.StatusServiceUnavailable {
			t.Fatalf("expected 503, got %d", rec.Code)
		}
	})
}
