package command

import (
	"net/http"

	goerrors "github.com/goliatone/go-errors"

	"github.com/goliatone/go-supertokens/core"
)

// missingClientError reports a handler built without the client it needs.
func missingClientError(handler string) error {
	return goerrors.New("command: "+handler+" client is required", goerrors.CategoryInternal).
		WithCode(http.StatusInternalServerError).
		WithTextCode(core.ClientErrorInternal)
}

func invalidField(field string, message string) error {
	return goerrors.NewValidation("command: validation failed", goerrors.FieldError{Field: field, Message: message}).
		WithCode(http.StatusBadRequest).
		WithTextCode(core.ClientErrorBadInput).
		WithSeverity(goerrors.SeverityError)
}

// invalidInput lifts a recipe input error into the command validation envelope.
func invalidInput(err error) error {
	if err == nil {
		return nil
	}
	return goerrors.Wrap(err, goerrors.CategoryValidation, "command: invalid email delivery request").
		WithCode(http.StatusBadRequest).
		WithTextCode(core.ClientErrorBadInput)
}
