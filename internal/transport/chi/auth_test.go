package chi

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/fusegate/fusegate/internal/domain"
)

// okHandler records the identity it was invoked with.
func okHandler(got *domain.Identity) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if id, ok := domain.IdentityFromContext(r.Context()); ok {
			*got = id
		}
		w.WriteHeader(http.StatusOK)
	})
}

func TestBearerAuthMiddleware(t *testing.T) {
	identities := map[string]domain.Identity{
		"sk-valid": {TenantID: "acme", OpClass: "export"},
		"sk-plain": {TenantID: "globex"},
	}

	tests := []struct {
		name       string
		path       string
		header     string
		wantStatus int
		wantTenant string
		wantClass  string
	}{
		{
			name:       "valid key",
			path:       "/v1/search",
			header:     "Bearer sk-valid",
			wantStatus: http.StatusOK,
			wantTenant: "acme",
			wantClass:  "export",
		},
		{
			name:       "valid key without op class falls back to default",
			path:       "/v1/search",
			header:     "Bearer sk-plain",
			wantStatus: http.StatusOK,
			wantTenant: "globex",
			wantClass:  domain.DefaultOpClass,
		},
		{
			name:       "missing header",
			path:       "/v1/search",
			wantStatus: http.StatusUnauthorized,
		},
		{
			name:       "wrong scheme",
			path:       "/v1/search",
			header:     "Basic c2stdmFsaWQ=",
			wantStatus: http.StatusUnauthorized,
		},
		{
			name:       "unknown key",
			path:       "/v1/search",
			header:     "Bearer sk-unknown",
			wantStatus: http.StatusUnauthorized,
		},
		{
			name:       "health is exempt",
			path:       "/health",
			wantStatus: http.StatusOK,
		},
		{
			name:       "metrics is exempt",
			path:       "/metrics",
			wantStatus: http.StatusOK,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got domain.Identity
			handler := BearerAuthMiddleware(identities)(okHandler(&got))

			req := httptest.NewRequest(http.MethodGet, tt.path, nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)

			if rec.Code != tt.wantStatus {
				t.Fatalf("expected status %d, got %d", tt.wantStatus, rec.Code)
			}
			if tt.wantTenant != "" && got.TenantID != tt.wantTenant {
				t.Errorf("expected tenant %q, got %q", tt.wantTenant, got.TenantID)
			}
			if tt.wantClass != "" && got.OpClass != tt.wantClass {
				t.Errorf("expected op class %q, got %q", tt.wantClass, got.OpClass)
			}
		})
	}
}

func TestBearerAuthMiddleware_DisabledRunsAsDefaultTenant(t *testing.T) {
	var got domain.Identity
	handler := BearerAuthMiddleware(nil)(okHandler(&got))

	req := httptest.NewRequest(http.MethodGet, "/v1/search", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if got.TenantID != anonymousTenant {
		t.Errorf("expected anonymous tenant %q, got %q", anonymousTenant, got.TenantID)
	}
	if got.OpClass != domain.DefaultOpClass {
		t.Errorf("expected default op class, got %q", got.OpClass)
	}
}
