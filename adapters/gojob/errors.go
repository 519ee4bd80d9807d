package gojob

import (
	"net/http"

	goerrors "github.com/goliatone/go-errors"

	"github.com/goliatone/go-supertokens/core"
)

func dependencyError(message string) error {
	return goerrors.New(message, goerrors.CategoryInternal).
		WithCode(http.StatusInternalServerError).
		WithTextCode(core.ClientErrorInternal)
}

func enqueueError(err error, metadata map[string]any) error {
	wrapped := goerrors.Wrap(err, goerrors.CategoryExternal, "gojob: enqueue email delivery failed").
		WithCode(http.StatusBadGateway).
		WithTextCode(core.ClientErrorTransportFailure)
	if len(metadata) > 0 {
		wrapped.WithMetadata(metadata)
	}
	return wrapped
}
