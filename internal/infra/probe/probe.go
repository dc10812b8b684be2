// Package probe provides dependency health probes for the aggregator.
// A probe answers one question: is this subsystem reachable and willing to
// serve right now. Probes observe only; they never drive breaker state.
package probe

import (
	"context"
	"fmt"
	"net/http"
	"time"
)

// HTTPProber checks a subsystem by issuing a GET against its health endpoint.
// Any 2xx response counts as healthy.
type HTTPProber struct {
	name       string
	url        string
	httpClient *http.Client
}

// NewHTTPProber creates a prober for the named subsystem at the given URL.
func NewHTTPProber(name, url string, timeout time.Duration) *HTTPProber {
	return &HTTPProber{
		name: name,
		url:  url,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

func (p *HTTPProber) Name() string {
	return p.name
}

// HealthCheck issues the probe request. Context cancellation, transport
// errors, and non-2xx responses all report as unhealthy.
func (p *HTTPProber) HealthCheck(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.url, nil)
	if err != nil {
		return fmt.Errorf("create probe request: %w", err)
	}

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("probe %s: %w", p.name, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("probe %s: unexpected status %d", p.name, resp.StatusCode)
	}
	return nil
}

// StaticProber always reports the same result. It stands in for subsystems
// that expose no health endpoint, and for tests.
type StaticProber struct {
	name string
	err  error
}

// NewStaticProber creates a prober that reports healthy for name.
func NewStaticProber(name string) *StaticProber {
	return &StaticProber{name: name}
}

// NewFailingProber creates a prober that always reports err.
func NewFailingProber(name string, err error) *StaticProber {
	return &StaticProber{name: name, err: err}
}

func (p *StaticProber) Name() string {
	return p.name
}

func (p *StaticProber) HealthCheck(ctx context.Context) error {
	return p.err
}
