package http

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewRouter(t *testing.T) {
	resetter := &stubResetter{known: map[string]bool{"matcher": true}}
	router := NewRouter(RouterDeps{
		Aggregator:         &stubAggregator{report: sampleReport(true)},
		Resetter:           resetter,
		Remediators:        map[string]Remediator{"matcher": &stubRemediator{}},
		Logger:             discardLogger(),
		AdminRatePerSecond: 100,
		AdminBurst:         100,
	})

	tests := []struct {
		method string
		path   string
		want   int
	}{
		{http.MethodGet, "/status", http.StatusOK},
		{http.MethodPost, "/services/matcher/reset", http.StatusOK},
		{http.MethodPost, "/services/matcher/restart", http.StatusAccepted},
		{http.MethodPost, "/services/unknown/reset", http.StatusNotFound},
		{http.MethodGet, "/healthz", http.StatusOK},
		{http.MethodGet, "/readyz", http.StatusOK},
		{http.MethodGet, "/metrics", http.StatusOK},
		{http.MethodGet, "/services/matcher/reset", http.StatusMethodNotAllowed},
	}

	for _, tt := range tests {
		t.Run(tt.method+" "+tt.path, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, tt.path, nil)
			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, req)

			assert.Equal(t, tt.want, rec.Code)
			assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))
		})
	}
}
