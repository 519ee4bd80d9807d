package query

import (
	"context"

	"github.com/goliatone/go-supertokens/core"
)

type VersionReader interface {
	SupportedVersions(ctx context.Context) ([]string, error)
	APIVersion(ctx context.Context) (string, error)
}

type CoreReader interface {
	VersionReader
	GetConfig(ctx context.Context, processID string) (core.CoreConfig, error)
	GetTelemetry(ctx context.Context) (core.TelemetryStatus, error)
	Hello(ctx context.Context, method string) (string, error)
}

type SupportedVersionsQuery struct {
	reader VersionReader
}

func NewSupportedVersionsQuery(reader VersionReader) *SupportedVersionsQuery {
	return &SupportedVersionsQuery{reader: reader}
}

func (q *SupportedVersionsQuery) Query(ctx context.Context, _ SupportedVersionsMessage) ([]string, error) {
	if q == nil || q.reader == nil {
		return nil, missingReaderError("version")
	}
	return q.reader.SupportedVersions(ctx)
}

type APIVersionQuery struct {
	reader VersionReader
}

func NewAPIVersionQuery(reader VersionReader) *APIVersionQuery {
	return &APIVersionQuery{reader: reader}
}

func (q *APIVersionQuery) Query(ctx context.Context, _ APIVersionMessage) (string, error) {
	if q == nil || q.reader == nil {
		return "", missingReaderError("version")
	}
	return q.reader.APIVersion(ctx)
}

type GetConfigQuery struct {
	reader CoreReader
}

func NewGetConfigQuery(reader CoreReader) *GetConfigQuery {
	return &GetConfigQuery{reader: reader}
}

func (q *GetConfigQuery) Query(ctx context.Context, msg GetConfigMessage) (core.CoreConfig, error) {
	if q == nil || q.reader == nil {
		return core.CoreConfig{}, missingReaderError("core")
	}
	if err := msg.Validate(); err != nil {
		return core.CoreConfig{}, err
	}
	return q.reader.GetConfig(ctx, msg.ProcessID)
}

type GetTelemetryQuery struct {
	reader CoreReader
}

func NewGetTelemetryQuery(reader CoreReader) *GetTelemetryQuery {
	return &GetTelemetryQuery{reader: reader}
}

func (q *GetTelemetryQuery) Query(ctx context.Context, _ GetTelemetryMessage) (core.TelemetryStatus, error) {
	if q == nil || q.reader == nil {
		return core.TelemetryStatus{}, missingReaderError("core")
	}
	return q.reader.GetTelemetry(ctx)
}

type HelloQuery struct {
	reader CoreReader
}

func NewHelloQuery(reader CoreReader) *HelloQuery {
	return &HelloQuery{reader: reader}
}

func (q *HelloQuery) Query(ctx context.Context, msg HelloMessage) (string, error) {
	if q == nil || q.reader == nil {
		return "", missingReaderError("core")
	}
	if err := msg.Validate(); err != nil {
		return "", err
	}
	return q.reader.Hello(ctx, msg.method())
}
