package core_test

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/google/uuid"

	"github.com/goliatone/go-supertokens/core"
	"github.com/goliatone/go-supertokens/transport"
)

type fakeCore struct {
	t           *testing.T
	apiKey      string
	discoveries atomic.Int32
	mu          sync.Mutex
	versions    []string
	removed     []string
	seenPID     string
}

func (f *fakeCore) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if got := r.Header.Get(core.HeaderAPIKey); got != f.apiKey {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = io.WriteString(w, "bad api key")
		return
	}
	switch {
	case strings.HasSuffix(r.URL.Path, core.PathAPIVersion):
		if r.Header.Get(core.HeaderCDIVersion) != "" {
			f.t.Errorf("version discovery must not carry a cdi-version header")
		}
		f.discoveries.Add(1)
		_ = json.NewEncoder(w).Encode(map[string]any{"versions": []string{"2.21", "2.20"}})
		return
	}

	version := r.Header.Get(core.HeaderCDIVersion)
	f.mu.Lock()
	f.versions = append(f.versions, version)
	f.mu.Unlock()
	if version != "2.21" {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = io.WriteString(w, "unsupported cdi version")
		return
	}

	switch {
	case strings.HasSuffix(r.URL.Path, core.PathHello):
		_, _ = io.WriteString(w, "Hello\n")
	case strings.HasSuffix(r.URL.Path, core.PathConfig):
		f.mu.Lock()
		f.seenPID = r.URL.Query().Get("pid")
		f.mu.Unlock()
		_, _ = io.WriteString(w, `{"status":"OK","path":"/usr/lib/supertokens/config.yaml"}`)
	case strings.HasSuffix(r.URL.Path, core.PathTelemetry):
		_, _ = io.WriteString(w, `{"exists":true,"telemetryId":"t-1"}`)
	case strings.HasSuffix(r.URL.Path, core.PathRemoveUser):
		if r.Method != http.MethodPost {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		if ct := r.Header.Get("Content-Type"); ct != "application/json" {
			f.t.Errorf("expected json content type, got %q", ct)
		}
		var body struct {
			UserID string `json:"userId"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		f.mu.Lock()
		f.removed = append(f.removed, body.UserID)
		f.mu.Unlock()
		_, _ = io.WriteString(w, `{"status":"UNKNOWN_USER_ID_ERROR"}`)
	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

func newHTTPClient(t *testing.T, fake *fakeCore) *core.Client {
	t.Helper()
	server := httptest.NewServer(fake)
	t.Cleanup(server.Close)

	client, err := core.NewClient(core.Config{
		Connection: core.ConnectionConfig{URI: server.URL, APIKey: fake.apiKey},
	}, core.WithTransport(transport.NewRESTAdapter(server.Client())))
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	return client
}

func TestClientHTTP_RoundTripsThroughRESTAdapter(t *testing.T) {
	fake := &fakeCore{t: t, apiKey: "secret-key"}
	client := newHTTPClient(t, fake)
	ctx := context.Background()

	body, err := client.Hello(ctx, "get")
	if err != nil {
		t.Fatalf("hello: %v", err)
	}
	if body != core.HelloBody {
		t.Fatalf("expected trimmed hello body, got %q", body)
	}
	if err := client.HealthCheck(ctx, "PUT"); err != nil {
		t.Fatalf("health check: %v", err)
	}

	cfg, err := client.GetConfig(ctx, "proc-7")
	if err != nil {
		t.Fatalf("get config: %v", err)
	}
	if cfg.Status != core.StatusOK || cfg.Path == nil || *cfg.Path != "/usr/lib/supertokens/config.yaml" {
		t.Fatalf("unexpected config: %#v", cfg)
	}

	telemetry, err := client.GetTelemetry(ctx)
	if err != nil {
		t.Fatalf("get telemetry: %v", err)
	}
	if !telemetry.Exists || telemetry.TelemetryID == nil || *telemetry.TelemetryID != "t-1" {
		t.Fatalf("unexpected telemetry: %#v", telemetry)
	}

	userID := uuid.New()
	status, err := client.RemoveUser(ctx, userID)
	if err != nil {
		t.Fatalf("remove user: %v", err)
	}
	if status.IsOK() || status.Status != "UNKNOWN_USER_ID_ERROR" {
		t.Fatalf("expected non OK status to be returned as a value, got %#v", status)
	}

	if got := fake.discoveries.Load(); got != 1 {
		t.Fatalf("expected exactly one version discovery, got %d", got)
	}
	fake.mu.Lock()
	defer fake.mu.Unlock()
	if fake.seenPID != "proc-7" {
		t.Fatalf("expected pid query parameter, got %q", fake.seenPID)
	}
	if len(fake.removed) != 1 || fake.removed[0] != userID.String() {
		t.Fatalf("expected remove user body to carry the user id, got %v", fake.removed)
	}
	for _, version := range fake.versions {
		if version != "2.21" {
			t.Fatalf("expected every gated call to carry the preferred version, got %v", fake.versions)
		}
	}
}

func TestClientHTTP_ConcurrentCallsShareOneDiscovery(t *testing.T) {
	fake := &fakeCore{t: t, apiKey: "secret-key"}
	client := newHTTPClient(t, fake)

	const callers = 16
	var wg sync.WaitGroup
	errs := make(chan error, callers)
	for range callers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := client.Hello(context.Background(), "GET"); err != nil {
				errs <- err
			}
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Fatalf("concurrent hello: %v", err)
	}
	if got := fake.discoveries.Load(); got != 1 {
		t.Fatalf("expected one discovery for concurrent callers, got %d", got)
	}
}

func TestClientHTTP_InvalidateRenegotiates(t *testing.T) {
	fake := &fakeCore{t: t, apiKey: "secret-key"}
	client := newHTTPClient(t, fake)
	ctx := context.Background()

	if _, err := client.APIVersion(ctx); err != nil {
		t.Fatalf("api version: %v", err)
	}
	if err := client.InvalidateAPIVersion(ctx); err != nil {
		t.Fatalf("invalidate: %v", err)
	}
	if _, err := client.Hello(ctx, "GET"); err != nil {
		t.Fatalf("hello after invalidate: %v", err)
	}
	if got := fake.discoveries.Load(); got != 2 {
		t.Fatalf("expected renegotiation after invalidate, got %d discoveries", got)
	}
}

func TestClientHTTP_SurfacesUpstreamStatus(t *testing.T) {
	fake := &fakeCore{t: t, apiKey: "secret-key"}
	server := httptest.NewServer(fake)
	t.Cleanup(server.Close)

	client, err := core.NewClient(core.Config{
		Connection: core.ConnectionConfig{URI: server.URL, APIKey: "wrong-key"},
	}, core.WithTransport(transport.NewRESTAdapter(server.Client())))
	if err != nil {
		t.Fatalf("new client: %v", err)
	}

	_, err = client.SupportedVersions(context.Background())
	if err == nil {
		t.Fatalf("expected unauthorized discovery to fail")
	}
	if !core.HasTextCode(err, core.ClientErrorHTTPStatus) {
		t.Fatalf("expected http status error, got %v", err)
	}
	if got, ok := core.UpstreamStatus(err); !ok || got != http.StatusUnauthorized {
		t.Fatalf("expected upstream status 401, got %d", got)
	}
}
