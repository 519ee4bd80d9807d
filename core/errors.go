package core

import (
	"net/http"
	"strings"

	goerrors "github.com/goliatone/go-errors"
)

const (
	ClientErrorBadInput                 = "SUPERTOKENS_BAD_INPUT"
	ClientErrorTransportFailure         = "SUPERTOKENS_TRANSPORT_FAILURE"
	ClientErrorHTTPStatus               = "SUPERTOKENS_HTTP_STATUS"
	ClientErrorDecodeFailure            = "SUPERTOKENS_DECODE_FAILURE"
	ClientErrorProtocol                 = "SUPERTOKENS_PROTOCOL_ERROR"
	ClientErrorNoSupportedVersion       = "SUPERTOKENS_NO_SUPPORTED_VERSION"
	ClientErrorCapabilityNotImplemented = "SUPERTOKENS_CAPABILITY_NOT_IMPLEMENTED"
	ClientErrorNotImplemented           = "SUPERTOKENS_NOT_IMPLEMENTED"
	ClientErrorHealthCheckMismatch      = "SUPERTOKENS_HEALTH_CHECK_MISMATCH"
	ClientErrorInternal                 = "SUPERTOKENS_INTERNAL_ERROR"
)

const maxErrorBodyExcerpt = 512

// HasTextCode reports whether err carries a go-errors envelope with the given text code.
func HasTextCode(err error, textCode string) bool {
	if err == nil {
		return false
	}
	var rich *goerrors.Error
	if !goerrors.As(err, &rich) {
		return false
	}
	return rich.TextCode == textCode
}

// UpstreamStatus returns the status code the core answered with when err is an
// HTTP status error.
func UpstreamStatus(err error) (int, bool) {
	if !HasTextCode(err, ClientErrorHTTPStatus) {
		return 0, false
	}
	var rich *goerrors.Error
	goerrors.As(err, &rich)
	return rich.Code, true
}

func newClientError(
	message string,
	category goerrors.Category,
	code int,
	textCode string,
	metadata map[string]any,
) *goerrors.Error {
	err := goerrors.New(message, category).
		WithCode(code).
		WithTextCode(textCode)
	if len(metadata) > 0 {
		err.WithMetadata(metadata)
	}
	return err
}

func wrapClientError(
	source error,
	category goerrors.Category,
	message string,
	code int,
	textCode string,
	metadata map[string]any,
) *goerrors.Error {
	if source == nil {
		return newClientError(message, category, code, textCode, metadata)
	}
	err := goerrors.Wrap(source, category, message).
		WithCode(code).
		WithTextCode(textCode)
	if len(metadata) > 0 {
		err.WithMetadata(metadata)
	}
	return err
}

func badInputError(message string, metadata map[string]any) error {
	return newClientError(message, goerrors.CategoryBadInput, http.StatusBadRequest, ClientErrorBadInput, metadata)
}

func internalError(message string) error {
	return newClientError(message, goerrors.CategoryInternal, http.StatusInternalServerError, ClientErrorInternal, nil)
}

func transportFailure(source error, metadata map[string]any) error {
	var rich *goerrors.Error
	if goerrors.As(source, &rich) && rich.TextCode == ClientErrorTransportFailure {
		return rich
	}
	return wrapClientError(
		source,
		goerrors.CategoryExternal,
		"core: request to core failed",
		http.StatusBadGateway,
		ClientErrorTransportFailure,
		metadata,
	)
}

func httpStatusError(statusCode int, body []byte, metadata map[string]any) error {
	fields := cloneFields(metadata)
	fields["status_code"] = statusCode
	if excerpt := bodyExcerpt(body); excerpt != "" {
		fields["body"] = excerpt
	}
	return newClientError(
		"core: unexpected status "+http.StatusText(statusCode)+" from core",
		goerrors.CategoryExternal,
		statusCode,
		ClientErrorHTTPStatus,
		fields,
	)
}

func decodeError(source error, metadata map[string]any) error {
	return wrapClientError(
		source,
		goerrors.CategoryExternal,
		"core: response body does not match the expected shape",
		http.StatusBadGateway,
		ClientErrorDecodeFailure,
		metadata,
	)
}

func protocolError(source error, message string) error {
	return wrapClientError(
		source,
		goerrors.CategoryExternal,
		message,
		http.StatusBadGateway,
		ClientErrorProtocol,
		map[string]any{"path": PathAPIVersion},
	)
}

func noSupportedVersionError(message string, metadata map[string]any) error {
	return newClientError(message, goerrors.CategoryOperation, http.StatusBadGateway, ClientErrorNoSupportedVersion, metadata)
}

func capabilityNotImplementedError(capability Capability) error {
	return newClientError(
		"core: no registered recipe implements capability "+string(capability),
		goerrors.CategoryOperation,
		http.StatusNotImplemented,
		ClientErrorCapabilityNotImplemented,
		map[string]any{"capability": string(capability)},
	)
}

func notImplementedError(operation string) error {
	return newClientError(
		"core: "+operation+" is not implemented",
		goerrors.CategoryOperation,
		http.StatusNotImplemented,
		ClientErrorNotImplemented,
		map[string]any{"operation": operation},
	)
}

func healthCheckMismatchError(method string, body string) error {
	return newClientError(
		"core: health check returned an unexpected body",
		goerrors.CategoryExternal,
		http.StatusBadGateway,
		ClientErrorHealthCheckMismatch,
		map[string]any{"method": method, "body": bodyExcerpt([]byte(body)), "expected": HelloBody},
	)
}

func bodyExcerpt(body []byte) string {
	trimmed := strings.TrimSpace(string(body))
	if len(trimmed) > maxErrorBodyExcerpt {
		return trimmed[:maxErrorBodyExcerpt]
	}
	return trimmed
}

// clientErrorMapper gives every error leaving the client a go-errors envelope
// with a text code.
func clientErrorMapper(err error) *goerrors.Error {
	if err == nil {
		return nil
	}

	var rich *goerrors.Error
	if goerrors.As(err, &rich) {
		return ensureClientErrorEnvelope(rich)
	}

	msg := strings.ToLower(strings.TrimSpace(err.Error()))
	switch {
	case strings.Contains(msg, "required"), strings.Contains(msg, "invalid"), strings.Contains(msg, "must"):
		return ensureClientErrorEnvelope(goerrors.New(err.Error(), goerrors.CategoryBadInput).
			WithTextCode(ClientErrorBadInput))
	}

	return ensureClientErrorEnvelope(goerrors.MapToError(err, goerrors.DefaultErrorMappers()))
}

func ensureClientErrorEnvelope(err *goerrors.Error) *goerrors.Error {
	if err == nil {
		return nil
	}
	if err.Code == 0 {
		err.Code = clientHTTPStatus(err.Category)
	}
	if strings.TrimSpace(err.TextCode) == "" {
		err.TextCode = defaultClientTextCode(err.Category)
	}
	if err.Category == goerrors.CategoryInternal && strings.TrimSpace(err.Message) == "" {
		err.Message = "An unexpected error occurred"
	}
	return err
}

func defaultClientTextCode(category goerrors.Category) string {
	switch category {
	case goerrors.CategoryBadInput, goerrors.CategoryValidation:
		return ClientErrorBadInput
	case goerrors.CategoryExternal:
		return ClientErrorTransportFailure
	default:
		return ClientErrorInternal
	}
}

func clientHTTPStatus(category goerrors.Category) int {
	switch category {
	case goerrors.CategoryBadInput, goerrors.CategoryValidation:
		return http.StatusBadRequest
	case goerrors.CategoryExternal:
		return http.StatusBadGateway
	case goerrors.CategoryOperation:
		return http.StatusNotImplemented
	default:
		return http.StatusInternalServerError
	}
}
