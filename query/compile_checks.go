package query

import (
	gocmd "github.com/goliatone/go-command"

	"github.com/goliatone/go-supertokens/core"
)

var (
	_ gocmd.Querier[SupportedVersionsMessage, []string]        = (*SupportedVersionsQuery)(nil)
	_ gocmd.Querier[APIVersionMessage, string]                 = (*APIVersionQuery)(nil)
	_ gocmd.Querier[GetConfigMessage, core.CoreConfig]         = (*GetConfigQuery)(nil)
	_ gocmd.Querier[GetTelemetryMessage, core.TelemetryStatus] = (*GetTelemetryQuery)(nil)
	_ gocmd.Querier[HelloMessage, string]                      = (*HelloQuery)(nil)
	_ CoreReader                                               = (*core.Client)(nil)
)
