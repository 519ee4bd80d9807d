package core

import (
	"context"
	"net/http"
	"strings"
	"time"

	glog "github.com/goliatone/go-logger/glog"
	"github.com/google/uuid"

	"github.com/goliatone/go-supertokens/ingredients/emaildelivery"
)

// Client talks to one core with one API key. Its connection, app info and
// recipes are fixed at construction; build a new client to change them.
type Client struct {
	config          Config
	appInfo         AppInfo
	connection      Connection
	logger          Logger
	loggerProvider  LoggerProvider
	metricsRecorder MetricsRecorder
	errorMapper     ErrorMapper
	transport       TransportAdapter
	configProvider  ConfigProvider
	optionsResolver OptionsResolver
	versionCache    VersionCache
	pipeline        *RequestPipeline
	negotiator      *VersionNegotiator
	recipes         *RecipeRegistry
}

type ClientDependencies struct {
	Logger          Logger
	LoggerProvider  LoggerProvider
	MetricsRecorder MetricsRecorder
	ErrorMapper     ErrorMapper
	Transport       TransportAdapter
	ConfigProvider  ConfigProvider
	OptionsResolver OptionsResolver
	VersionCache    VersionCache
	Recipes         *RecipeRegistry
}

func NewClient(cfg Config, opts ...Option) (*Client, error) {
	builder := defaultClientBuilder(cfg)
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		opt(&builder)
	}

	provider, logger := glog.Resolve(loggerName, builder.loggerProvider, builder.logger)
	logger = glog.Ensure(logger)
	if provider != nil {
		if named := provider.GetLogger(loggerName); named != nil {
			logger = glog.Ensure(named)
		}
	}

	if builder.metricsRecorder == nil {
		builder.metricsRecorder = NopMetricsRecorder{}
	}
	if builder.errorMapper == nil {
		builder.errorMapper = defaultErrorMapper
	}
	if builder.configProvider == nil {
		builder.configProvider = NewCfgxConfigProvider(nil)
	}
	if builder.optionsResolver == nil {
		builder.optionsResolver = GoOptionsResolver{}
	}
	if builder.versionSelector == nil {
		builder.versionSelector = SelectPreferredVersion
	}
	if builder.versionCache == nil {
		builder.versionCache = NewMemoryVersionCache()
	}
	if builder.transport == nil {
		return nil, mapBuildError(builder.errorMapper, internalError("core: transport adapter is required"))
	}

	defaults := DefaultConfig()
	loaded, err := builder.configProvider.Load(context.Background(), defaults)
	if err != nil {
		return nil, mapBuildError(builder.errorMapper, err)
	}
	finalConfig, err := builder.optionsResolver.Resolve(defaults, loaded, builder.runtimeConfig)
	if err != nil {
		return nil, mapBuildError(builder.errorMapper, err)
	}

	appInfo, err := NewAppInfo(finalConfig.AppInfo)
	if err != nil {
		return nil, mapBuildError(builder.errorMapper, err)
	}
	connection, err := NewConnection(finalConfig.Connection, appInfo.APIBasePath())
	if err != nil {
		return nil, mapBuildError(builder.errorMapper, err)
	}

	pipeline := NewRequestPipeline(connection, builder.transport)
	negotiator := NewVersionNegotiator(pipeline, builder.versionSelector, builder.versionCache)
	pipeline.useVersions(negotiator)

	recipes, err := NewRecipeRegistry(builder.recipes...)
	if err != nil {
		return nil, mapBuildError(builder.errorMapper, err)
	}
	recipes.Seal()

	return &Client{
		config:          finalConfig,
		appInfo:         appInfo,
		connection:      connection,
		logger:          logger,
		loggerProvider:  provider,
		metricsRecorder: builder.metricsRecorder,
		errorMapper:     builder.errorMapper,
		transport:       builder.transport,
		configProvider:  builder.configProvider,
		optionsResolver: builder.optionsResolver,
		versionCache:    builder.versionCache,
		pipeline:        pipeline,
		negotiator:      negotiator,
		recipes:         recipes,
	}, nil
}

func mapBuildError(mapper ErrorMapper, err error) error {
	if err == nil {
		return nil
	}
	if mapper == nil {
		return err
	}
	mapped := mapper(err)
	if mapped == nil {
		return err
	}
	return mapped
}

func (c *Client) Config() Config {
	if c == nil {
		return Config{}
	}
	return c.config
}

func (c *Client) AppInfo() AppInfo {
	if c == nil {
		return AppInfo{}
	}
	return c.appInfo
}

func (c *Client) Connection() Connection {
	if c == nil {
		return Connection{}
	}
	return c.connection
}

func (c *Client) TelemetryEnabled() bool {
	return c != nil && c.config.Telemetry
}

// Recipes returns the sealed registry the client dispatches capabilities to.
func (c *Client) Recipes() *RecipeRegistry {
	if c == nil {
		return nil
	}
	return c.recipes
}

func (c *Client) Dependencies() ClientDependencies {
	if c == nil {
		return ClientDependencies{}
	}
	return ClientDependencies{
		Logger:          c.logger,
		LoggerProvider:  c.loggerProvider,
		MetricsRecorder: c.metricsRecorder,
		ErrorMapper:     c.errorMapper,
		Transport:       c.transport,
		ConfigProvider:  c.configProvider,
		OptionsResolver: c.optionsResolver,
		VersionCache:    c.versionCache,
		Recipes:         c.recipes,
	}
}

// SupportedVersions queries version discovery directly, bypassing the cache.
func (c *Client) SupportedVersions(ctx context.Context) (versions []string, err error) {
	startedAt := time.Now().UTC()
	fields := map[string]any{"method": http.MethodGet, "path": PathAPIVersion}
	defer func() {
		c.observeOperation(ctx, startedAt, "supported_versions", err, fields)
	}()

	if err = c.ready(); err != nil {
		return nil, err
	}
	versions, err = c.pipeline.SupportedVersions(ctx)
	if err != nil {
		err = c.mapError(err)
		return nil, err
	}
	fields["versions"] = len(versions)
	return versions, nil
}

// APIVersion returns the negotiated protocol version, negotiating on first use.
func (c *Client) APIVersion(ctx context.Context) (version string, err error) {
	startedAt := time.Now().UTC()
	fields := map[string]any{"path": PathAPIVersion}
	defer func() {
		c.observeOperation(ctx, startedAt, "api_version", err, fields)
	}()

	if err = c.ready(); err != nil {
		return "", err
	}
	version, err = c.negotiator.Resolve(ctx)
	if err != nil {
		err = c.mapError(err)
		return "", err
	}
	fields["cdi_version"] = version
	return version, nil
}

// InvalidateAPIVersion forgets the negotiated version, for instance after the
// core rejected it. The next version gated call negotiates again.
func (c *Client) InvalidateAPIVersion(ctx context.Context) (err error) {
	startedAt := time.Now().UTC()
	defer func() {
		c.observeOperation(ctx, startedAt, "invalidate_api_version", err, nil)
	}()

	if err = c.ready(); err != nil {
		return err
	}
	if err = c.negotiator.Invalidate(ctx); err != nil {
		err = c.mapError(err)
		return err
	}
	return nil
}

func (c *Client) GetConfig(ctx context.Context, processID string) (cfg CoreConfig, err error) {
	startedAt := time.Now().UTC()
	fields := map[string]any{"method": http.MethodGet, "path": PathConfig, "pid": processID}
	defer func() {
		c.observeOperation(ctx, startedAt, "get_config", err, fields)
	}()

	if err = c.ready(); err != nil {
		return CoreConfig{}, err
	}
	processID = strings.TrimSpace(processID)
	if processID == "" {
		err = badInputError("core: process id is required", map[string]any{"path": PathConfig})
		return CoreConfig{}, err
	}
	cfg, err = DispatchJSON[CoreConfig](ctx, c.pipeline, Request{
		Method:          http.MethodGet,
		Path:            PathConfig,
		Query:           map[string]string{"pid": processID},
		RequiresVersion: true,
	}, configRequiredFields...)
	if err != nil {
		err = c.mapError(err)
		return CoreConfig{}, err
	}
	return cfg, nil
}

func (c *Client) GetTelemetry(ctx context.Context) (status TelemetryStatus, err error) {
	startedAt := time.Now().UTC()
	fields := map[string]any{"method": http.MethodGet, "path": PathTelemetry}
	defer func() {
		c.observeOperation(ctx, startedAt, "get_telemetry", err, fields)
	}()

	if err = c.ready(); err != nil {
		return TelemetryStatus{}, err
	}
	status, err = DispatchJSON[TelemetryStatus](ctx, c.pipeline, Request{
		Method:          http.MethodGet,
		Path:            PathTelemetry,
		RequiresVersion: true,
	}, telemetryRequiredFields...)
	if err != nil {
		err = c.mapError(err)
		return TelemetryStatus{}, err
	}
	fields["exists"] = status.Exists
	return status, nil
}

// RemoveUser asks the core to delete a user. A status other than OK is
// returned as is; check Status.IsOK.
func (c *Client) RemoveUser(ctx context.Context, userID uuid.UUID) (status Status, err error) {
	startedAt := time.Now().UTC()
	fields := map[string]any{"method": http.MethodPost, "path": PathRemoveUser, "user_id": userID.String()}
	defer func() {
		c.observeOperation(ctx, startedAt, "remove_user", err, fields)
	}()

	if err = c.ready(); err != nil {
		return Status{}, err
	}
	if userID == uuid.Nil {
		err = badInputError("core: user id is required", map[string]any{"path": PathRemoveUser})
		return Status{}, err
	}
	status, err = DispatchJSON[Status](ctx, c.pipeline, Request{
		Method:          http.MethodPost,
		Path:            PathRemoveUser,
		Body:            newRemoveUserBody(userID),
		RequiresVersion: true,
	}, statusRequiredFields...)
	if err != nil {
		err = c.mapError(err)
		return Status{}, err
	}
	fields["core_status"] = status.Status
	return status, nil
}

// Hello calls the echo endpoint with method and returns the trimmed body.
func (c *Client) Hello(ctx context.Context, method string) (body string, err error) {
	startedAt := time.Now().UTC()
	method = strings.ToUpper(strings.TrimSpace(method))
	if method == "" {
		method = http.MethodGet
	}
	fields := map[string]any{"method": method, "path": PathHello}
	defer func() {
		c.observeOperation(ctx, startedAt, "hello", err, fields)
	}()

	if err = c.ready(); err != nil {
		return "", err
	}
	if !isHelloMethod(method) {
		err = badInputError("core: hello supports GET, PUT, POST and DELETE, got "+method, fields)
		return "", err
	}
	body, err = c.pipeline.DispatchText(ctx, Request{
		Method:          method,
		Path:            PathHello,
		Accept:          "text/plain",
		RequiresVersion: true,
	})
	if err != nil {
		err = c.mapError(err)
		return "", err
	}
	return body, nil
}

// HealthCheck probes the core with method and fails when the echo is not Hello.
func (c *Client) HealthCheck(ctx context.Context, method string) error {
	body, err := c.Hello(ctx, method)
	if err != nil {
		return err
	}
	if body != HelloBody {
		return c.mapError(healthCheckMismatchError(strings.ToUpper(strings.TrimSpace(method)), body))
	}
	return nil
}

func (c *Client) UsersCount(ctx context.Context, recipeIDs ...string) (count int, err error) {
	startedAt := time.Now().UTC()
	fields := map[string]any{"recipe_ids": append([]string(nil), recipeIDs...)}
	defer func() {
		c.observeOperation(ctx, startedAt, "users_count", err, fields)
	}()
	err = c.mapError(notImplementedError("users_count"))
	return 0, err
}

func (c *Client) Users(ctx context.Context, req UsersRequest) (page UsersPage, err error) {
	startedAt := time.Now().UTC()
	fields := map[string]any{"limit": req.Limit, "recipe_ids": append([]string(nil), req.RecipeIDs...)}
	defer func() {
		c.observeOperation(ctx, startedAt, "users", err, fields)
	}()
	err = c.mapError(notImplementedError("users"))
	return UsersPage{}, err
}

// SendEmail hands input to the last registered recipe that delivers email.
func (c *Client) SendEmail(ctx context.Context, input emaildelivery.Input) (err error) {
	startedAt := time.Now().UTC()
	fields := map[string]any{"capability": string(CapabilityEmailDelivery)}
	if input.Request != nil {
		fields["email_kind"] = string(input.Request.Kind())
	}
	defer func() {
		c.observeOperation(ctx, startedAt, "send_email", err, fields)
	}()

	if err = c.ready(); err != nil {
		return err
	}
	if handle, ok := c.recipes.Lookup(CapabilityEmailDelivery); ok {
		fields["recipe_id"] = handle.RecipeID()
	}
	if err = c.recipes.Invoke(ctx, CapabilityEmailDelivery, input); err != nil {
		err = c.mapError(err)
		return err
	}
	return nil
}

func (c *Client) ready() error {
	if c == nil || c.pipeline == nil || c.negotiator == nil || c.recipes == nil {
		return internalError("core: client is not initialized, use NewClient")
	}
	return nil
}

func (c *Client) mapError(err error) error {
	if err == nil {
		return nil
	}
	if c == nil || c.errorMapper == nil {
		return err
	}
	mapped := c.errorMapper(err)
	if mapped == nil {
		return err
	}
	return mapped
}

func isHelloMethod(method string) bool {
	switch method {
	case http.MethodGet, http.MethodPut, http.MethodPost, http.MethodDelete:
		return true
	default:
		return false
	}
}
