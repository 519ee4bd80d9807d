// Package emaildelivery defines the email delivery capability: the requests a
// business flow asks to be delivered and the interface a recipe implements to
// deliver them.
package emaildelivery

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
)

type Kind string

const (
	KindEmailVerification Kind = "email_verification"
	KindPasswordReset     Kind = "password_reset"
	KindPasswordlessLogin Kind = "passwordless_login"
)

// UserIdentity is the recipient of a user bound email.
type UserIdentity struct {
	ID    uuid.UUID
	Email string
}

// Request is one of EmailVerification, PasswordReset or PasswordlessLogin.
type Request interface {
	Kind() Kind
	Validate() error
	isRequest()
}

type EmailVerification struct {
	User            UserIdentity
	EmailVerifyLink string
}

func (EmailVerification) Kind() Kind { return KindEmailVerification }

func (EmailVerification) isRequest() {}

func (r EmailVerification) Validate() error {
	if err := validateUser(r.User); err != nil {
		return err
	}
	return validateLink("email_verify_link", r.EmailVerifyLink)
}

type PasswordReset struct {
	User              UserIdentity
	PasswordResetLink string
}

func (PasswordReset) Kind() Kind { return KindPasswordReset }

func (PasswordReset) isRequest() {}

func (r PasswordReset) Validate() error {
	if err := validateUser(r.User); err != nil {
		return err
	}
	return validateLink("password_reset_link", r.PasswordResetLink)
}

// PasswordlessLogin carries either a code the user types, a magic link, or both.
type PasswordlessLogin struct {
	Email            string
	UserInputCode    string
	URLWithLinkCode  string
	CodeLifetime     time.Duration
	PreAuthSessionID string
}

func (PasswordlessLogin) Kind() Kind { return KindPasswordlessLogin }

func (PasswordlessLogin) isRequest() {}

func (r PasswordlessLogin) Validate() error {
	if strings.TrimSpace(r.Email) == "" {
		return validationError("email", "email is required")
	}
	if strings.TrimSpace(r.UserInputCode) == "" && strings.TrimSpace(r.URLWithLinkCode) == "" {
		return validationError("user_input_code", "user input code or link code url is required")
	}
	if strings.TrimSpace(r.URLWithLinkCode) != "" {
		if err := validateLink("url_with_link_code", r.URLWithLinkCode); err != nil {
			return err
		}
	}
	if r.CodeLifetime < time.Millisecond {
		return validationError("code_lifetime", "code lifetime must be at least one millisecond")
	}
	if r.CodeLifetime%time.Millisecond != 0 {
		return validationError("code_lifetime", "code lifetime must be a whole number of milliseconds")
	}
	if strings.TrimSpace(r.PreAuthSessionID) == "" {
		return validationError("pre_auth_session_id", "pre auth session id is required")
	}
	return nil
}

// Input is what a recipe receives. UserContext is passed through untouched
// from the flow that asked for the delivery.
type Input struct {
	Request     Request
	UserContext map[string]any
}

// Validate accepts only the value forms of the request variants; pointers
// satisfy Request too but are not part of the union.
func (in Input) Validate() error {
	switch in.Request.(type) {
	case nil:
		return validationError("request", "email delivery request is required")
	case EmailVerification, PasswordReset, PasswordlessLogin:
		return in.Request.Validate()
	default:
		return validationError("request", fmt.Sprintf("unsupported email delivery request %T", in.Request))
	}
}

// EmailDelivery is the capability a recipe implements to take over email
// delivery. The result carries no value; a nil error means the email was
// accepted for delivery.
type EmailDelivery interface {
	SendEmail(ctx context.Context, input Input) error
}

type SendEmailFunc func(ctx context.Context, input Input) error

func (f SendEmailFunc) SendEmail(ctx context.Context, input Input) error {
	return f(ctx, input)
}

// Recipient returns the address the request is sent to.
func Recipient(req Request) string {
	switch typed := req.(type) {
	case EmailVerification:
		return strings.TrimSpace(typed.User.Email)
	case PasswordReset:
		return strings.TrimSpace(typed.User.Email)
	case PasswordlessLogin:
		return strings.TrimSpace(typed.Email)
	default:
		return ""
	}
}

func validateUser(user UserIdentity) error {
	if user.ID == uuid.Nil {
		return validationError("user.id", "user id is required")
	}
	if strings.TrimSpace(user.Email) == "" {
		return validationError("user.email", "user email is required")
	}
	return nil
}

func validateLink(field string, raw string) error {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return validationError(field, "link is required")
	}
	parsed, err := url.Parse(raw)
	if err != nil || parsed.Scheme == "" || parsed.Host == "" {
		return validationError(field, "link must be an absolute url")
	}
	return nil
}
