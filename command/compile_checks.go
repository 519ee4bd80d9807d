package command

import (
	gocmd "github.com/goliatone/go-command"

	"github.com/goliatone/go-supertokens/core"
)

var (
	_ gocmd.Commander[RemoveUserMessage]           = (*RemoveUserCommand)(nil)
	_ gocmd.Commander[SendEmailMessage]            = (*SendEmailCommand)(nil)
	_ gocmd.Commander[InvalidateAPIVersionMessage] = (*InvalidateAPIVersionCommand)(nil)

	_ MutatingClient = (*core.Client)(nil)
)
