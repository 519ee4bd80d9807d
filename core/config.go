package core

import (
	"fmt"
	"net/url"
	"strings"
)

const (
	DefaultCoreURI         = "http://127.0.0.1:3567"
	DefaultWebsiteDomain   = "http://127.0.0.1:80"
	DefaultAPIDomain       = "http://127.0.0.1:3567"
	DefaultWebsiteBasePath = "/auth"
	DefaultAPIBasePath     = "/auth"
)

type AppInfoConfig struct {
	AppName         string `koanf:"app_name" mapstructure:"app_name"`
	WebsiteDomain   string `koanf:"website_domain" mapstructure:"website_domain"`
	APIDomain       string `koanf:"api_domain" mapstructure:"api_domain"`
	WebsiteBasePath string `koanf:"website_base_path" mapstructure:"website_base_path"`
	APIBasePath     string `koanf:"api_base_path" mapstructure:"api_base_path"`
	APIGatewayPath  string `koanf:"api_gateway_path" mapstructure:"api_gateway_path"`
}

type ConnectionConfig struct {
	URI    string `koanf:"uri" mapstructure:"uri"`
	APIKey string `koanf:"api_key" mapstructure:"api_key"`
}

type Config struct {
	AppInfo    AppInfoConfig    `koanf:"app_info" mapstructure:"app_info"`
	Connection ConnectionConfig `koanf:"connection" mapstructure:"connection"`
	Telemetry  bool             `koanf:"telemetry" mapstructure:"telemetry"`
}

// DefaultConfig targets a core running locally on its default port.
func DefaultConfig() Config {
	return Config{
		AppInfo: AppInfoConfig{
			WebsiteDomain:   DefaultWebsiteDomain,
			APIDomain:       DefaultAPIDomain,
			WebsiteBasePath: DefaultWebsiteBasePath,
			APIBasePath:     DefaultAPIBasePath,
		},
		Connection: ConnectionConfig{
			URI: DefaultCoreURI,
		},
	}
}

func (c Config) Validate() error {
	if err := validateAbsoluteURI("connection.uri", c.Connection.URI); err != nil {
		return err
	}
	if err := validateAbsoluteURI("app_info.website_domain", c.AppInfo.WebsiteDomain); err != nil {
		return err
	}
	if err := validateAbsoluteURI("app_info.api_domain", c.AppInfo.APIDomain); err != nil {
		return err
	}
	for field, value := range map[string]string{
		"app_info.website_base_path": c.AppInfo.WebsiteBasePath,
		"app_info.api_base_path":     c.AppInfo.APIBasePath,
		"app_info.api_gateway_path":  c.AppInfo.APIGatewayPath,
	} {
		if strings.ContainsAny(value, "?#") {
			return fmt.Errorf("core: %s must be a plain path, got %q", field, value)
		}
		if hasParentSegment(value) {
			return fmt.Errorf("core: %s must not contain .. segments, got %q", field, value)
		}
	}
	return nil
}

func validateAbsoluteURI(field string, raw string) error {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return fmt.Errorf("core: %s is required", field)
	}
	parsed, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("core: %s is invalid: %w", field, err)
	}
	if parsed.Scheme == "" || parsed.Host == "" {
		return fmt.Errorf("core: %s must be an absolute uri, got %q", field, raw)
	}
	return nil
}
