package transport

import (
	goerrors "github.com/goliatone/go-errors"

	"github.com/goliatone/go-supertokens/core"
)

func transportError(message string, category goerrors.Category, code int, metadata map[string]any) error {
	return decorate(goerrors.New(message, category), category, code, metadata)
}

// transportWrapError keeps source as the cause when there is one.
func transportWrapError(source error, category goerrors.Category, message string, code int, metadata map[string]any) error {
	if source == nil {
		return transportError(message, category, code, metadata)
	}
	return decorate(goerrors.Wrap(source, category, message), category, code, metadata)
}

func decorate(err *goerrors.Error, category goerrors.Category, code int, metadata map[string]any) error {
	err = err.WithCode(code).WithTextCode(textCodeFor(category))
	if len(metadata) > 0 {
		err.WithMetadata(metadata)
	}
	return err
}

// textCodeFor maps adapter failures onto the client taxonomy; anything that
// went wrong on the wire is a transport failure.
func textCodeFor(category goerrors.Category) string {
	switch category {
	case goerrors.CategoryBadInput, goerrors.CategoryValidation:
		return core.ClientErrorBadInput
	case goerrors.CategoryExternal:
		return core.ClientErrorTransportFailure
	default:
		return core.ClientErrorInternal
	}
}
