package query

import (
	"net/http"

	goerrors "github.com/goliatone/go-errors"

	"github.com/goliatone/go-supertokens/core"
)

// missingReaderError reports a handler built without its core reader.
func missingReaderError(reader string) error {
	return goerrors.New("query: "+reader+" reader is required", goerrors.CategoryInternal).
		WithCode(http.StatusInternalServerError).
		WithTextCode(core.ClientErrorInternal)
}

func invalidField(field string, message string) error {
	return goerrors.NewValidation("query: validation failed", goerrors.FieldError{Field: field, Message: message}).
		WithCode(http.StatusBadRequest).
		WithTextCode(core.ClientErrorBadInput).
		WithSeverity(goerrors.SeverityError)
}
