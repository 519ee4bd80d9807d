package core

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"

	"github.com/google/uuid"
)

func TestClient_GetConfigRoundTrip(t *testing.T) {
	transport := newFakeTransport(map[string]fakeRoute{
		PathAPIVersion: versionsRoute("2.14"),
		PathConfig:     jsonRoute(http.StatusOK, `{"status":"OK","path":"/usr/lib/supertokens/config.yaml"}`),
	})
	client := newTestClient(t, transport)

	cfg, err := client.GetConfig(context.Background(), "10512")
	if err != nil {
		t.Fatalf("get config: %v", err)
	}
	if cfg.Status != StatusOK {
		t.Fatalf("expected OK status, got %q", cfg.Status)
	}
	if cfg.Path == nil || *cfg.Path != "/usr/lib/supertokens/config.yaml" {
		t.Fatalf("expected config path to round trip, got %#v", cfg.Path)
	}

	requests := transport.requestsFor(PathConfig)
	if len(requests) != 1 {
		t.Fatalf("expected one config request, got %d", len(requests))
	}
	req := requests[0]
	if req.Headers[HeaderCDIVersion] != "2.14" {
		t.Fatalf("expected cdi-version 2.14, got %#v", req.Headers)
	}
	if req.Query["pid"] != "10512" {
		t.Fatalf("expected pid query, got %#v", req.Query)
	}
	if req.Method != http.MethodGet {
		t.Fatalf("expected GET, got %s", req.Method)
	}
}

func TestClient_GetConfigWithoutPath(t *testing.T) {
	transport := newFakeTransport(map[string]fakeRoute{
		PathAPIVersion: versionsRoute("2.14"),
		PathConfig:     jsonRoute(http.StatusOK, `{"status":"OK"}`),
	})
	cfg, err := newTestClient(t, transport).GetConfig(context.Background(), "10512")
	if err != nil {
		t.Fatalf("get config: %v", err)
	}
	if cfg.Path != nil {
		t.Fatalf("expected absent path, got %q", *cfg.Path)
	}
}

func TestClient_VersionNegotiatedOncePerClient(t *testing.T) {
	transport := newFakeTransport(map[string]fakeRoute{
		PathAPIVersion: versionsRoute("2.14"),
		PathConfig:     jsonRoute(http.StatusOK, `{"status":"OK"}`),
		PathTelemetry:  jsonRoute(http.StatusOK, `{"exists":false}`),
	})
	client := newTestClient(t, transport)
	ctx := context.Background()
	for index := 0; index < 3; index++ {
		if _, err := client.GetConfig(ctx, "1"); err != nil {
			t.Fatalf("get config: %v", err)
		}
		if _, err := client.GetTelemetry(ctx); err != nil {
			t.Fatalf("get telemetry: %v", err)
		}
	}
	if got := len(transport.requestsFor(PathAPIVersion)); got != 1 {
		t.Fatalf("expected one discovery request, got %d", got)
	}

	if err := client.InvalidateAPIVersion(ctx); err != nil {
		t.Fatalf("invalidate: %v", err)
	}
	if _, err := client.GetTelemetry(ctx); err != nil {
		t.Fatalf("get telemetry: %v", err)
	}
	if got := len(transport.requestsFor(PathAPIVersion)); got != 2 {
		t.Fatalf("expected renegotiation after invalidation, got %d discovery requests", got)
	}
}

func TestClient_GetConfigRequiresProcessID(t *testing.T) {
	transport := newFakeTransport(nil)
	_, err := newTestClient(t, transport).GetConfig(context.Background(), "  ")
	if !HasTextCode(err, ClientErrorBadInput) {
		t.Fatalf("expected bad input, got %v", err)
	}
	if len(transport.requests) != 0 {
		t.Fatalf("expected no request to be sent, got %d", len(transport.requests))
	}
}

func TestClient_GetTelemetry(t *testing.T) {
	transport := newFakeTransport(map[string]fakeRoute{
		PathAPIVersion: versionsRoute("2.14"),
		PathTelemetry:  jsonRoute(http.StatusOK, `{"exists":true,"telemetryId":"7a6b5c"}`),
	})
	status, err := newTestClient(t, transport).GetTelemetry(context.Background())
	if err != nil {
		t.Fatalf("get telemetry: %v", err)
	}
	if !status.Exists || status.TelemetryID == nil || *status.TelemetryID != "7a6b5c" {
		t.Fatalf("unexpected telemetry status %#v", status)
	}
	if got := transport.requestsFor(PathTelemetry)[0].Headers[HeaderCDIVersion]; got != "2.14" {
		t.Fatalf("expected cdi-version on telemetry, got %q", got)
	}
}

func TestClient_RemoveUserBodyAndStatus(t *testing.T) {
	userID := uuid.MustParse("0b6b7c6e-4b1f-4f0a-9d8e-2c3b4a5d6e7f")
	transport := newFakeTransport(map[string]fakeRoute{
		PathAPIVersion: versionsRoute("2.14"),
		PathRemoveUser: jsonRoute(http.StatusOK, `{"status":"OK"}`),
	})
	client := newTestClient(t, transport)

	status, err := client.RemoveUser(context.Background(), userID)
	if err != nil {
		t.Fatalf("remove user: %v", err)
	}
	if !status.IsOK() {
		t.Fatalf("expected OK status, got %q", status.Status)
	}
	req := transport.requestsFor(PathRemoveUser)[0]
	if req.Method != http.MethodPost {
		t.Fatalf("expected POST, got %s", req.Method)
	}
	if string(req.Body) != `{"userId":"0b6b7c6e-4b1f-4f0a-9d8e-2c3b4a5d6e7f"}` {
		t.Fatalf("unexpected remove user body %s", req.Body)
	}
	var decoded map[string]string
	if err := json.Unmarshal(req.Body, &decoded); err != nil || len(decoded) != 1 {
		t.Fatalf("expected a single userId field, got %s (%v)", req.Body, err)
	}
	if req.Headers[HeaderCDIVersion] != "2.14" {
		t.Fatalf("expected cdi-version on remove user, got %#v", req.Headers)
	}
}

func TestClient_RemoveUserNonOKStatusIsNotAnError(t *testing.T) {
	transport := newFakeTransport(map[string]fakeRoute{
		PathAPIVersion: versionsRoute("2.14"),
		PathRemoveUser: jsonRoute(http.StatusOK, `{"status":"UNKNOWN_USER_ID_ERROR"}`),
	})
	status, err := newTestClient(t, transport).RemoveUser(context.Background(), uuid.New())
	if err != nil {
		t.Fatalf("expected non OK status to be a result, got %v", err)
	}
	if status.IsOK() || status.Status != "UNKNOWN_USER_ID_ERROR" {
		t.Fatalf("expected UNKNOWN_USER_ID_ERROR status, got %#v", status)
	}
}

func TestClient_RemoveUserRejectsNilID(t *testing.T) {
	_, err := newTestClient(t, newFakeTransport(nil)).RemoveUser(context.Background(), uuid.Nil)
	if !HasTextCode(err, ClientErrorBadInput) {
		t.Fatalf("expected bad input, got %v", err)
	}
}

func TestClient_HealthCheckEveryVerb(t *testing.T) {
	transport := newFakeTransport(map[string]fakeRoute{
		PathAPIVersion: versionsRoute("2.14"),
		PathHello:      textRoute(http.StatusOK, "Hello\n"),
	})
	client := newTestClient(t, transport)
	methods := []string{http.MethodGet, http.MethodPut, http.MethodPost, http.MethodDelete}
	for _, method := range methods {
		body, err := client.Hello(context.Background(), method)
		if err != nil {
			t.Fatalf("hello %s: %v", method, err)
		}
		if body != HelloBody {
			t.Fatalf("expected trimmed Hello for %s, got %q", method, body)
		}
		if err := client.HealthCheck(context.Background(), method); err != nil {
			t.Fatalf("health check %s: %v", method, err)
		}
	}
	requests := transport.requestsFor(PathHello)
	if len(requests) != 2*len(methods) {
		t.Fatalf("expected %d hello requests, got %d", 2*len(methods), len(requests))
	}
	for index, method := range methods {
		if requests[2*index].Method != method {
			t.Fatalf("expected %s, got %s", method, requests[2*index].Method)
		}
	}
}

func TestClient_HealthCheckMismatch(t *testing.T) {
	transport := newFakeTransport(map[string]fakeRoute{
		PathAPIVersion: versionsRoute("2.14"),
		PathHello:      textRoute(http.StatusOK, "<html>proxy</html>"),
	})
	client := newTestClient(t, transport)
	body, err := client.Hello(context.Background(), http.MethodGet)
	if err != nil {
		t.Fatalf("hello: %v", err)
	}
	if body == HelloBody {
		t.Fatalf("expected unexpected body to be returned as is")
	}
	if err := client.HealthCheck(context.Background(), http.MethodGet); !HasTextCode(err, ClientErrorHealthCheckMismatch) {
		t.Fatalf("expected health check mismatch, got %v", err)
	}
}

func TestClient_HelloRejectsUnsupportedMethod(t *testing.T) {
	_, err := newTestClient(t, newFakeTransport(nil)).Hello(context.Background(), http.MethodPatch)
	if !HasTextCode(err, ClientErrorBadInput) {
		t.Fatalf("expected bad input, got %v", err)
	}
}

func TestClient_UnimplementedOperationsFailExplicitly(t *testing.T) {
	client := newTestClient(t, newFakeTransport(nil))
	count, err := client.UsersCount(context.Background(), "emailpassword")
	if !HasTextCode(err, ClientErrorNotImplemented) {
		t.Fatalf("expected users count not implemented, got %v", err)
	}
	if count != 0 {
		t.Fatalf("expected zero count, got %d", count)
	}
	page, err := client.Users(context.Background(), UsersRequest{Limit: 10})
	if !HasTextCode(err, ClientErrorNotImplemented) {
		t.Fatalf("expected users not implemented, got %v", err)
	}
	if len(page.Users) != 0 {
		t.Fatalf("expected empty page, got %#v", page)
	}
}

func TestClient_Accessors(t *testing.T) {
	client := newTestClient(t, newFakeTransport(nil), WithLogger(stubLogger{}))
	if got := client.Connection().Root().String(); got != "http://127.0.0.1:3567/auth" {
		t.Fatalf("unexpected connection root %q", got)
	}
	if got := client.Connection().APIKey(); got != "test-api-key" {
		t.Fatalf("unexpected api key %q", got)
	}
	if client.TelemetryEnabled() {
		t.Fatalf("expected telemetry to be opt in")
	}
	if client.AppInfo().APIBasePath() != DefaultAPIBasePath {
		t.Fatalf("unexpected api base path %q", client.AppInfo().APIBasePath())
	}
	if !client.Recipes().Sealed() {
		t.Fatalf("expected client registry to be sealed")
	}
}

func TestNewClient_RequiresTransport(t *testing.T) {
	if _, err := NewClient(Config{}); !HasTextCode(err, ClientErrorInternal) {
		t.Fatalf("expected missing transport to fail, got %v", err)
	}
}

func TestClient_ZeroValueIsNotUsable(t *testing.T) {
	var client Client
	if _, err := client.GetTelemetry(context.Background()); !HasTextCode(err, ClientErrorInternal) {
		t.Fatalf("expected zero client to fail, got %v", err)
	}
}
