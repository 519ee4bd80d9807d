package supertokens

import (
	"github.com/goliatone/go-supertokens/core"
	"github.com/goliatone/go-supertokens/transport"
)

type Config = core.Config

type AppInfoConfig = core.AppInfoConfig

type ConnectionConfig = core.ConnectionConfig

type Option = core.Option

type Client = core.Client

type ClientDependencies = core.ClientDependencies

type Recipe = core.Recipe
type Capability = core.Capability
type VersionSelector = core.VersionSelector
type VersionCache = core.VersionCache
type TransportAdapter = core.TransportAdapter

type CoreConfig = core.CoreConfig
type TelemetryStatus = core.TelemetryStatus
type Status = core.Status
type UsersRequest = core.UsersRequest
type UsersPage = core.UsersPage

const CapabilityEmailDelivery = core.CapabilityEmailDelivery

var (
	WithLogger          = core.WithLogger
	WithLoggerProvider  = core.WithLoggerProvider
	WithMetricsRecorder = core.WithMetricsRecorder
	WithErrorMapper     = core.WithErrorMapper
	WithTransport       = core.WithTransport
	WithConfigProvider  = core.WithConfigProvider
	WithOptionsResolver = core.WithOptionsResolver
	WithRecipes         = core.WithRecipes
	WithVersionSelector = core.WithVersionSelector
	WithVersionCache    = core.WithVersionCache

	SelectPreferredVersion = core.SelectPreferredVersion
	SelectHighestSupported = core.SelectHighestSupported
	HasTextCode            = core.HasTextCode
	UpstreamStatus         = core.UpstreamStatus
)

func DefaultConfig() Config {
	return core.DefaultConfig()
}

// NewClient builds a client that talks to the core over net/http. A
// WithTransport option replaces the default REST adapter.
func NewClient(cfg Config, opts ...Option) (*Client, error) {
	options := make([]Option, 0, len(opts)+1)
	options = append(options, core.WithTransport(transport.NewRESTAdapter(nil)))
	options = append(options, opts...)
	return core.NewClient(cfg, options...)
}
