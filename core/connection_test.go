package core

import (
	"strings"
	"testing"
)

func TestNewConnection_RootsAtAPIBasePath(t *testing.T) {
	cases := []struct {
		uri      string
		basePath string
		wantRoot string
	}{
		{uri: "http://localhost:3567", basePath: "/auth", wantRoot: "http://localhost:3567/auth"},
		{uri: "https://core.example.com/ignored/path?debug=1#frag", basePath: "auth/v2", wantRoot: "https://core.example.com/auth/v2"},
		{uri: "http://127.0.0.1:3567/", basePath: "", wantRoot: "http://127.0.0.1:3567/"},
		{uri: "http://core.internal:3567/prefix", basePath: "/api/auth/", wantRoot: "http://core.internal:3567/api/auth/"},
	}
	endpoints := []string{PathAPIVersion, PathConfig, PathTelemetry, PathRemoveUser, PathHello, "recipe/user"}

	for _, tc := range cases {
		connection, err := NewConnection(ConnectionConfig{URI: tc.uri, APIKey: "key"}, tc.basePath)
		if err != nil {
			t.Fatalf("new connection %q: %v", tc.uri, err)
		}
		root := connection.Root()
		if got := root.String(); got != tc.wantRoot {
			t.Fatalf("expected root %q, got %q", tc.wantRoot, got)
		}
		prefix := strings.TrimSuffix(root.Path, "/")
		for _, endpoint := range endpoints {
			resolved, err := connection.Endpoint(endpoint)
			if err != nil {
				t.Fatalf("endpoint %q: %v", endpoint, err)
			}
			if resolved.Scheme != root.Scheme || resolved.Host != root.Host {
				t.Fatalf("endpoint %q changed origin: %s", endpoint, resolved)
			}
			if !strings.HasPrefix(resolved.Path, prefix+"/") {
				t.Fatalf("endpoint %q lost root %q: %s", endpoint, prefix, resolved.Path)
			}
			want := prefix + "/" + strings.TrimPrefix(endpoint, "/")
			if resolved.Path != want {
				t.Fatalf("expected endpoint path %q, got %q", want, resolved.Path)
			}
		}
	}
}

func TestConnectionEndpoint_RejectsEscapes(t *testing.T) {
	connection, err := NewConnection(ConnectionConfig{URI: "http://localhost:3567"}, "/auth")
	if err != nil {
		t.Fatalf("new connection: %v", err)
	}
	for _, path := range []string{"", "  ", "../admin", "/config/../../x", "/config?pid=1", "/hello#x", "http://elsewhere/hello"} {
		if _, err := connection.Endpoint(path); err == nil {
			t.Fatalf("expected endpoint %q to be rejected", path)
		} else if !HasTextCode(err, ClientErrorBadInput) {
			t.Fatalf("expected bad input for %q, got %v", path, err)
		}
	}
}

func TestBasePaths_RejectParentSegments(t *testing.T) {
	for _, basePath := range []string{"/auth/..", "../admin", "/auth/../../internal", " /a/../b "} {
		if _, err := NewConnection(ConnectionConfig{URI: "http://localhost:3567"}, basePath); !HasTextCode(err, ClientErrorBadInput) {
			t.Fatalf("expected api base path %q to be rejected, got %v", basePath, err)
		}

		cfg := DefaultConfig()
		cfg.Connection.URI = "http://localhost:3567"
		cfg.AppInfo.APIGatewayPath = basePath
		if err := cfg.Validate(); err == nil || !strings.Contains(err.Error(), "app_info.api_gateway_path") {
			t.Fatalf("expected gateway path %q to fail validation, got %v", basePath, err)
		}
		if _, err := NewAppInfo(cfg.AppInfo); !HasTextCode(err, ClientErrorBadInput) {
			t.Fatalf("expected app info with gateway path %q to be rejected, got %v", basePath, err)
		}

		cfg = DefaultConfig()
		cfg.Connection.URI = "http://localhost:3567"
		cfg.AppInfo.WebsiteBasePath = basePath
		if err := cfg.Validate(); err == nil {
			t.Fatalf("expected website base path %q to fail validation", basePath)
		}
	}

	connection, err := NewConnection(ConnectionConfig{URI: "http://localhost:3567"}, "/auth/..v2")
	if err != nil {
		t.Fatalf("dots inside a segment are allowed: %v", err)
	}
	if got := connection.Root().Path; got != "/auth/..v2" {
		t.Fatalf("expected root to keep /auth/..v2, got %q", got)
	}
}

func TestConnectionRoot_ReturnsCopy(t *testing.T) {
	connection, err := NewConnection(ConnectionConfig{URI: "http://localhost:3567"}, "/auth")
	if err != nil {
		t.Fatalf("new connection: %v", err)
	}
	root := connection.Root()
	root.Path = "/mutated"
	if got := connection.Root().Path; got != "/auth" {
		t.Fatalf("expected root to stay /auth, got %q", got)
	}
}

func TestNewConnection_RejectsRelativeURI(t *testing.T) {
	if _, err := NewConnection(ConnectionConfig{URI: "localhost:3567/auth"}, "/auth"); err == nil {
		t.Fatalf("expected relative uri to fail")
	}
	if _, err := NewConnection(ConnectionConfig{URI: ""}, "/auth"); err == nil {
		t.Fatalf("expected empty uri to fail")
	}
}

func TestNewAppInfo_Defaults(t *testing.T) {
	info, err := NewAppInfo(DefaultConfig().AppInfo)
	if err != nil {
		t.Fatalf("new app info: %v", err)
	}
	if got := info.WebsiteDomain().String(); got != DefaultWebsiteDomain {
		t.Fatalf("expected website domain %q, got %q", DefaultWebsiteDomain, got)
	}
	if got := info.APIDomain().String(); got != DefaultAPIDomain {
		t.Fatalf("expected api domain %q, got %q", DefaultAPIDomain, got)
	}
	if info.APIBasePath() != "/auth" || info.WebsiteBasePath() != "/auth" {
		t.Fatalf("expected /auth base paths, got %q and %q", info.APIBasePath(), info.WebsiteBasePath())
	}
	if info.APIGatewayPath() != "" {
		t.Fatalf("expected empty gateway path, got %q", info.APIGatewayPath())
	}

	domain := info.APIDomain()
	domain.Host = "mutated"
	if info.APIDomain().Host == "mutated" {
		t.Fatalf("expected app info to be immutable")
	}
}
