package core

import (
	"context"

	glog "github.com/goliatone/go-logger/glog"
)

type Logger = glog.Logger

type LoggerProvider = glog.LoggerProvider

type FieldsLogger = glog.FieldsLogger

// TransportRequest is a fully resolved request: URL is absolute and headers
// already carry authentication.
type TransportRequest struct {
	Method               string
	URL                  string
	Headers              map[string]string
	Query                map[string]string
	Body                 []byte
	MaxResponseBodyBytes int64
}

type TransportResponse struct {
	StatusCode int
	Headers    map[string]string
	Body       []byte
	Metadata   map[string]any
}

// TransportAdapter executes requests against the core. Implementations must
// be safe for concurrent use and must not keep per-request state.
type TransportAdapter interface {
	Kind() string
	Do(ctx context.Context, req TransportRequest) (TransportResponse, error)
}

// Recipe is a pluggable unit registered with the client. A recipe opts into
// capabilities by implementing their interfaces.
type Recipe interface {
	RecipeID() string
}

// VersionCache holds the negotiated protocol version. GetOrFetch must only
// call fetch on a miss and must not store failed results.
type VersionCache interface {
	GetOrFetch(ctx context.Context, fetch func(ctx context.Context) (string, error)) (string, error)
	Invalidate(ctx context.Context) error
}

type VersionDiscoverer interface {
	SupportedVersions(ctx context.Context) ([]string, error)
}
