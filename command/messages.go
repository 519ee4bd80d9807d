package command

import (
	"github.com/google/uuid"

	"github.com/goliatone/go-supertokens/ingredients/emaildelivery"
)

const (
	TypeRemoveUser           = "supertokens.command.user.remove"
	TypeSendEmail            = "supertokens.command.email.send"
	TypeInvalidateAPIVersion = "supertokens.command.api_version.invalidate"
)

type RemoveUserMessage struct {
	UserID uuid.UUID
}

func (RemoveUserMessage) Type() string { return TypeRemoveUser }

func (m RemoveUserMessage) Validate() error {
	if m.UserID == uuid.Nil {
		return invalidField("user_id", "user id is required")
	}
	return nil
}

type SendEmailMessage struct {
	Input emaildelivery.Input
}

func (SendEmailMessage) Type() string { return TypeSendEmail }

func (m SendEmailMessage) Validate() error {
	if m.Input.Request == nil {
		return invalidField("input.request", "email delivery request is required")
	}
	return invalidInput(m.Input.Validate())
}

type InvalidateAPIVersionMessage struct{}

func (InvalidateAPIVersionMessage) Type() string { return TypeInvalidateAPIVersion }

func (InvalidateAPIVersionMessage) Validate() error { return nil }
