package emaildelivery

import (
	"net/http"

	goerrors "github.com/goliatone/go-errors"
)

const (
	TextCodeBadInput      = "SUPERTOKENS_BAD_INPUT"
	TextCodeDecodeFailure = "SUPERTOKENS_DECODE_FAILURE"
)

func validationError(field string, message string) error {
	return goerrors.NewValidation("emaildelivery: validation failed", goerrors.FieldError{
		Field:   field,
		Message: message,
	}).
		WithCode(http.StatusBadRequest).
		WithTextCode(TextCodeBadInput).
		WithSeverity(goerrors.SeverityError)
}

func payloadError(message string, metadata map[string]any) error {
	err := goerrors.New(message, goerrors.CategoryBadInput).
		WithCode(http.StatusBadRequest).
		WithTextCode(TextCodeDecodeFailure)
	if len(metadata) > 0 {
		err.WithMetadata(metadata)
	}
	return err
}
