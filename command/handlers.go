package command

import (
	"context"

	gocmd "github.com/goliatone/go-command"
	"github.com/google/uuid"

	"github.com/goliatone/go-supertokens/core"
	"github.com/goliatone/go-supertokens/ingredients/emaildelivery"
)

// MutatingClient is the part of the client that changes state in the core or
// triggers side effects.
type MutatingClient interface {
	RemoveUser(ctx context.Context, userID uuid.UUID) (core.Status, error)
	SendEmail(ctx context.Context, input emaildelivery.Input) error
	InvalidateAPIVersion(ctx context.Context) error
}

type RemoveUserCommand struct {
	client MutatingClient
}

func NewRemoveUserCommand(client MutatingClient) *RemoveUserCommand {
	return &RemoveUserCommand{client: client}
}

// Execute stores the core status as the result; a non OK status is not an error.
func (c *RemoveUserCommand) Execute(ctx context.Context, msg RemoveUserMessage) error {
	if c == nil || c.client == nil {
		return missingClientError("remove user")
	}
	if err := msg.Validate(); err != nil {
		return err
	}
	out, err := c.client.RemoveUser(ctx, msg.UserID)
	if err != nil {
		return err
	}
	storeResult(ctx, out)
	return nil
}

type SendEmailCommand struct {
	client MutatingClient
}

func NewSendEmailCommand(client MutatingClient) *SendEmailCommand {
	return &SendEmailCommand{client: client}
}

func (c *SendEmailCommand) Execute(ctx context.Context, msg SendEmailMessage) error {
	if c == nil || c.client == nil {
		return missingClientError("send email")
	}
	if err := msg.Validate(); err != nil {
		return err
	}
	return c.client.SendEmail(ctx, msg.Input)
}

type InvalidateAPIVersionCommand struct {
	client MutatingClient
}

func NewInvalidateAPIVersionCommand(client MutatingClient) *InvalidateAPIVersionCommand {
	return &InvalidateAPIVersionCommand{client: client}
}

func (c *InvalidateAPIVersionCommand) Execute(ctx context.Context, _ InvalidateAPIVersionMessage) error {
	if c == nil || c.client == nil {
		return missingClientError("invalidate api version")
	}
	return c.client.InvalidateAPIVersion(ctx)
}

func storeResult[T any](ctx context.Context, value T) {
	collector := gocmd.ResultFromContext[T](ctx)
	if collector == nil {
		return
	}
	collector.Store(value)
}
