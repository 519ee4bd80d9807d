package query

import (
	"net/http"
	"strings"
)

const (
	TypeSupportedVersions = "supertokens.query.api_version.supported"
	TypeAPIVersion        = "supertokens.query.api_version.current"
	TypeGetConfig         = "supertokens.query.config.get"
	TypeGetTelemetry      = "supertokens.query.telemetry.get"
	TypeHello             = "supertokens.query.hello"
)

type SupportedVersionsMessage struct{}

func (SupportedVersionsMessage) Type() string { return TypeSupportedVersions }

func (SupportedVersionsMessage) Validate() error { return nil }

type APIVersionMessage struct{}

func (APIVersionMessage) Type() string { return TypeAPIVersion }

func (APIVersionMessage) Validate() error { return nil }

type GetConfigMessage struct {
	ProcessID string
}

func (GetConfigMessage) Type() string { return TypeGetConfig }

func (m GetConfigMessage) Validate() error {
	if strings.TrimSpace(m.ProcessID) == "" {
		return invalidField("process_id", "process id is required")
	}
	return nil
}

type GetTelemetryMessage struct{}

func (GetTelemetryMessage) Type() string { return TypeGetTelemetry }

func (GetTelemetryMessage) Validate() error { return nil }

// HelloMessage pings the core with one of GET, PUT, POST or DELETE. An empty
// method means GET.
type HelloMessage struct {
	Method string
}

func (HelloMessage) Type() string { return TypeHello }

func (m HelloMessage) Validate() error {
	switch strings.ToUpper(strings.TrimSpace(m.Method)) {
	case "", http.MethodGet, http.MethodPut, http.MethodPost, http.MethodDelete:
		return nil
	default:
		return invalidField("method", "hello supports GET, PUT, POST and DELETE")
	}
}

func (m HelloMessage) method() string {
	method := strings.ToUpper(strings.TrimSpace(m.Method))
	if method == "" {
		return http.MethodGet
	}
	return method
}
