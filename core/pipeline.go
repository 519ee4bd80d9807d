package core

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
)

const contentTypeJSON = "application/json"

// Request describes one call against the core, relative to the api base path.
type Request struct {
	Method          string
	Path            string
	Query           map[string]string
	Body            any
	RequiresVersion bool
	Accept          string
}

type versionResolver interface {
	Resolve(ctx context.Context) (string, error)
}

// RequestPipeline builds authenticated requests, hands them to the transport
// and checks the answer. It keeps no per-request state, so one pipeline serves
// concurrent callers.
type RequestPipeline struct {
	connection Connection
	transport  TransportAdapter
	versions   versionResolver
}

func NewRequestPipeline(connection Connection, transport TransportAdapter) *RequestPipeline {
	return &RequestPipeline{connection: connection, transport: transport}
}

func (p *RequestPipeline) useVersions(resolver versionResolver) {
	p.versions = resolver
}

// Dispatch sends req and returns the raw answer for any 2xx status.
func (p *RequestPipeline) Dispatch(ctx context.Context, req Request) (TransportResponse, error) {
	if p == nil || p.transport == nil {
		return TransportResponse{}, internalError("core: request pipeline requires a transport adapter")
	}
	if ctx == nil {
		ctx = context.Background()
	}

	method := strings.TrimSpace(strings.ToUpper(req.Method))
	if method == "" {
		method = http.MethodGet
	}
	metadata := map[string]any{"method": method, "path": req.Path}

	endpoint, err := p.connection.Endpoint(req.Path)
	if err != nil {
		return TransportResponse{}, err
	}

	headers := map[string]string{HeaderAPIKey: p.connection.APIKey()}
	if accept := strings.TrimSpace(req.Accept); accept != "" {
		headers["Accept"] = accept
	}
	if req.RequiresVersion {
		if p.versions == nil {
			return TransportResponse{}, internalError("core: request pipeline has no version negotiator")
		}
		version, err := p.versions.Resolve(ctx)
		if err != nil {
			return TransportResponse{}, err
		}
		headers[HeaderCDIVersion] = version
	}

	var body []byte
	if req.Body != nil {
		body, err = json.Marshal(req.Body)
		if err != nil {
			return TransportResponse{}, badInputError(
				fmt.Sprintf("core: encode request body: %v", err),
				metadata,
			)
		}
		headers["Content-Type"] = contentTypeJSON
	}

	res, err := p.transport.Do(ctx, TransportRequest{
		Method:  method,
		URL:     endpoint.String(),
		Headers: headers,
		Query:   cloneQuery(req.Query),
		Body:    body,
	})
	if err != nil {
		return TransportResponse{}, transportFailure(err, metadata)
	}
	if res.StatusCode < http.StatusOK || res.StatusCode >= http.StatusMultipleChoices {
		return TransportResponse{}, httpStatusError(res.StatusCode, res.Body, metadata)
	}
	return res, nil
}

// DispatchText sends req and returns the body trimmed of surrounding whitespace.
func (p *RequestPipeline) DispatchText(ctx context.Context, req Request) (string, error) {
	res, err := p.Dispatch(ctx, req)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(res.Body)), nil
}

// SupportedVersions asks the core which protocol versions it speaks. The
// version header is never attached here.
func (p *RequestPipeline) SupportedVersions(ctx context.Context) ([]string, error) {
	res, err := p.Dispatch(ctx, Request{
		Method: http.MethodGet,
		Path:   PathAPIVersion,
		Accept: contentTypeJSON,
	})
	if err != nil {
		return nil, err
	}
	out, err := decodeJSON[APIVersions](res.Body, PathAPIVersion, apiVersionRequiredFields...)
	if err != nil {
		return nil, protocolError(err, "core: version discovery answer is not a list of versions")
	}
	for _, version := range out.Versions {
		if strings.TrimSpace(version) == "" {
			return nil, protocolError(nil, "core: version discovery answer contains a blank version")
		}
	}
	return out.Versions, nil
}

// DispatchJSON sends req and decodes the answer into T. Missing required
// top-level fields are decode failures.
func DispatchJSON[T any](ctx context.Context, p *RequestPipeline, req Request, required ...string) (T, error) {
	var zero T
	if strings.TrimSpace(req.Accept) == "" {
		req.Accept = contentTypeJSON
	}
	res, err := p.Dispatch(ctx, req)
	if err != nil {
		return zero, err
	}
	return decodeJSON[T](res.Body, req.Path, required...)
}

func decodeJSON[T any](body []byte, path string, required ...string) (T, error) {
	var out T
	metadata := map[string]any{"path": path}
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 {
		return out, decodeError(fmt.Errorf("empty body"), metadata)
	}
	if len(required) > 0 {
		var fields map[string]json.RawMessage
		if err := json.Unmarshal(trimmed, &fields); err != nil {
			return out, decodeError(err, metadata)
		}
		for _, name := range required {
			value, ok := fields[name]
			if !ok || bytes.Equal(bytes.TrimSpace(value), []byte("null")) {
				return out, decodeError(fmt.Errorf("missing required field %q", name), metadata)
			}
		}
	}
	if err := json.Unmarshal(trimmed, &out); err != nil {
		return out, decodeError(err, metadata)
	}
	return out, nil
}

func cloneQuery(query map[string]string) map[string]string {
	if len(query) == 0 {
		return nil
	}
	out := make(map[string]string, len(query))
	for key, value := range query {
		out[key] = value
	}
	return out
}
