package core

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/goliatone/go-supertokens/ingredients/emaildelivery"
)

type fakeRoute func(req TransportRequest) (TransportResponse, error)

// fakeTransport answers requests by endpoint path relative to the api base
// path and records every request it sees.
type fakeTransport struct {
	mu       sync.Mutex
	basePath string
	routes   map[string]fakeRoute
	requests []TransportRequest
}

func newFakeTransport(routes map[string]fakeRoute) *fakeTransport {
	return &fakeTransport{basePath: DefaultAPIBasePath, routes: routes}
}

func (f *fakeTransport) Kind() string { return "fake" }

func (f *fakeTransport) Do(_ context.Context, req TransportRequest) (TransportResponse, error) {
	parsed, err := url.Parse(req.URL)
	if err != nil {
		return TransportResponse{}, err
	}
	path := strings.TrimPrefix(parsed.Path, f.basePath)

	f.mu.Lock()
	f.requests = append(f.requests, cloneRequest(req))
	route, ok := f.routes[path]
	f.mu.Unlock()

	if !ok {
		return textResponse(http.StatusNotFound, "not found"), nil
	}
	return route(req)
}

func (f *fakeTransport) requestsFor(path string) []TransportRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := []TransportRequest{}
	for _, req := range f.requests {
		parsed, err := url.Parse(req.URL)
		if err != nil {
			continue
		}
		if strings.TrimPrefix(parsed.Path, f.basePath) == path {
			out = append(out, req)
		}
	}
	return out
}

func cloneRequest(req TransportRequest) TransportRequest {
	copied := req
	copied.Headers = map[string]string{}
	for key, value := range req.Headers {
		copied.Headers[key] = value
	}
	copied.Query = cloneQuery(req.Query)
	copied.Body = append([]byte(nil), req.Body...)
	return copied
}

func jsonRoute(status int, body string) fakeRoute {
	return func(TransportRequest) (TransportResponse, error) {
		return TransportResponse{
			StatusCode: status,
			Headers:    map[string]string{"Content-Type": "application/json"},
			Body:       []byte(body),
		}, nil
	}
}

func textRoute(status int, body string) fakeRoute {
	return func(TransportRequest) (TransportResponse, error) {
		return textResponse(status, body), nil
	}
}

func failingRoute(err error) fakeRoute {
	return func(TransportRequest) (TransportResponse, error) {
		return TransportResponse{}, err
	}
}

func textResponse(status int, body string) TransportResponse {
	return TransportResponse{
		StatusCode: status,
		Headers:    map[string]string{"Content-Type": "text/plain"},
		Body:       []byte(body),
	}
}

func versionsRoute(versions ...string) fakeRoute {
	quoted := make([]string, 0, len(versions))
	for _, version := range versions {
		quoted = append(quoted, fmt.Sprintf("%q", version))
	}
	return jsonRoute(http.StatusOK, `{"versions":[`+strings.Join(quoted, ",")+`]}`)
}

func newTestClient(t *testing.T, transport TransportAdapter, opts ...Option) *Client {
	t.Helper()
	all := append([]Option{WithTransport(transport)}, opts...)
	client, err := NewClient(Config{Connection: ConnectionConfig{APIKey: "test-api-key"}}, all...)
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	return client
}

type countingDiscoverer struct {
	calls    atomic.Int32
	versions []string
	err      error
	release  chan struct{}
}

func (d *countingDiscoverer) SupportedVersions(ctx context.Context) ([]string, error) {
	d.calls.Add(1)
	if d.release != nil {
		select {
		case <-d.release:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if d.err != nil {
		return nil, d.err
	}
	return append([]string(nil), d.versions...), nil
}

type emailRecipe struct {
	id    string
	mu    sync.Mutex
	calls []emaildelivery.Input
	err   error
}

func (r *emailRecipe) RecipeID() string { return r.id }

func (r *emailRecipe) SendEmail(_ context.Context, input emaildelivery.Input) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, input)
	return r.err
}

func (r *emailRecipe) callCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.calls)
}

type plainRecipe struct {
	id string
}

func (r plainRecipe) RecipeID() string { return r.id }

type stubLogger struct{}

func (stubLogger) Trace(string, ...any) {}
func (stubLogger) Debug(string, ...any) {}
func (stubLogger) Info(string, ...any)  {}
func (stubLogger) Warn(string, ...any)  {}
func (stubLogger) Error(string, ...any) {}
func (stubLogger) Fatal(string, ...any) {}
func (s stubLogger) WithContext(context.Context) Logger {
	return s
}

type stubLoggerProvider struct {
	logger Logger
}

func (s stubLoggerProvider) GetLogger(string) Logger {
	return s.logger
}
