package core

import (
	"fmt"
	"net/url"
	"strings"
)

// AppInfo describes the embedding application. It is immutable once built.
type AppInfo struct {
	appName         string
	websiteDomain   url.URL
	apiDomain       url.URL
	websiteBasePath string
	apiBasePath     string
	apiGatewayPath  string
}

func NewAppInfo(cfg AppInfoConfig) (AppInfo, error) {
	website, err := parseAbsoluteURI("app_info.website_domain", cfg.WebsiteDomain)
	if err != nil {
		return AppInfo{}, err
	}
	api, err := parseAbsoluteURI("app_info.api_domain", cfg.APIDomain)
	if err != nil {
		return AppInfo{}, err
	}
	for field, value := range map[string]string{
		"app_info.website_base_path": cfg.WebsiteBasePath,
		"app_info.api_base_path":     cfg.APIBasePath,
		"app_info.api_gateway_path":  cfg.APIGatewayPath,
	} {
		if hasParentSegment(value) {
			return AppInfo{}, badInputError(
				fmt.Sprintf("core: %s %q must not contain .. segments", field, value),
				map[string]any{"field": field},
			)
		}
	}
	return AppInfo{
		appName:         strings.TrimSpace(cfg.AppName),
		websiteDomain:   *website,
		apiDomain:       *api,
		websiteBasePath: normalizeBasePath(cfg.WebsiteBasePath),
		apiBasePath:     normalizeBasePath(cfg.APIBasePath),
		apiGatewayPath:  normalizeGatewayPath(cfg.APIGatewayPath),
	}, nil
}

func (a AppInfo) AppName() string { return a.appName }

func (a AppInfo) WebsiteDomain() *url.URL {
	copied := a.websiteDomain
	return &copied
}

func (a AppInfo) APIDomain() *url.URL {
	copied := a.apiDomain
	return &copied
}

func (a AppInfo) WebsiteBasePath() string { return a.websiteBasePath }

func (a AppInfo) APIBasePath() string { return a.apiBasePath }

func (a AppInfo) APIGatewayPath() string { return a.apiGatewayPath }

// Connection is the authenticated root every core request is resolved
// against. The root path is the internal API base path, not the document root.
type Connection struct {
	root   url.URL
	apiKey string
}

// NewConnection parses the core URI and replaces its path with apiBasePath.
// Query and fragment of the configured URI are dropped.
func NewConnection(cfg ConnectionConfig, apiBasePath string) (Connection, error) {
	parsed, err := parseAbsoluteURI("connection.uri", cfg.URI)
	if err != nil {
		return Connection{}, err
	}
	if hasParentSegment(apiBasePath) {
		return Connection{}, badInputError(
			fmt.Sprintf("core: api base path %q must not contain .. segments", apiBasePath),
			map[string]any{"field": "app_info.api_base_path"},
		)
	}
	root := *parsed
	root.Path = normalizeBasePath(apiBasePath)
	root.RawPath = ""
	root.RawQuery = ""
	root.ForceQuery = false
	root.Fragment = ""
	root.RawFragment = ""
	return Connection{root: root, apiKey: cfg.APIKey}, nil
}

func (c Connection) Root() *url.URL {
	copied := c.root
	return &copied
}

func (c Connection) APIKey() string { return c.apiKey }

// Endpoint joins a relative endpoint path onto the root. The root path is
// always preserved as a prefix of the result.
func (c Connection) Endpoint(relativePath string) (*url.URL, error) {
	relativePath = strings.TrimSpace(relativePath)
	if relativePath == "" {
		return nil, badInputError("core: endpoint path is required", nil)
	}
	if strings.ContainsAny(relativePath, "?#") || strings.Contains(relativePath, "://") {
		return nil, badInputError(
			fmt.Sprintf("core: endpoint path %q must be a plain relative path", relativePath),
			map[string]any{"path": relativePath},
		)
	}
	if hasParentSegment(relativePath) {
		return nil, badInputError(
			fmt.Sprintf("core: endpoint path %q escapes the api base path", relativePath),
			map[string]any{"path": relativePath},
		)
	}
	root := c.root
	return root.JoinPath(relativePath), nil
}

func parseAbsoluteURI(field string, raw string) (*url.URL, error) {
	if err := validateAbsoluteURI(field, raw); err != nil {
		return nil, badInputError(err.Error(), map[string]any{"field": field})
	}
	parsed, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return nil, badInputError(err.Error(), map[string]any{"field": field})
	}
	return parsed, nil
}

func hasParentSegment(path string) bool {
	for _, segment := range strings.Split(strings.TrimSpace(path), "/") {
		if segment == ".." {
			return true
		}
	}
	return false
}

func normalizeBasePath(path string) string {
	path = strings.TrimSpace(path)
	if path == "" {
		return "/"
	}
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	return path
}

func normalizeGatewayPath(path string) string {
	path = strings.TrimSpace(path)
	if path == "" {
		return ""
	}
	return normalizeBasePath(path)
}
