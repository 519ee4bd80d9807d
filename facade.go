package supertokens

import (
	"fmt"

	supertokenscommand "github.com/goliatone/go-supertokens/command"
	supertokensquery "github.com/goliatone/go-supertokens/query"
)

// CommandQueryClient is everything the facade handlers delegate to.
// *core.Client satisfies it.
type CommandQueryClient interface {
	supertokenscommand.MutatingClient
	supertokensquery.CoreReader
}

type Commands struct {
	RemoveUser           *supertokenscommand.RemoveUserCommand
	SendEmail            *supertokenscommand.SendEmailCommand
	InvalidateAPIVersion *supertokenscommand.InvalidateAPIVersionCommand
}

type Queries struct {
	SupportedVersions *supertokensquery.SupportedVersionsQuery
	APIVersion        *supertokensquery.APIVersionQuery
	GetConfig         *supertokensquery.GetConfigQuery
	GetTelemetry      *supertokensquery.GetTelemetryQuery
	Hello             *supertokensquery.HelloQuery
}

type Facade struct {
	client   CommandQueryClient
	commands Commands
	queries  Queries
}

func NewFacade(client CommandQueryClient) (*Facade, error) {
	if client == nil {
		return nil, fmt.Errorf("supertokens: command/query client is required")
	}
	return &Facade{
		client: client,
		commands: Commands{
			RemoveUser:           supertokenscommand.NewRemoveUserCommand(client),
			SendEmail:            supertokenscommand.NewSendEmailCommand(client),
			InvalidateAPIVersion: supertokenscommand.NewInvalidateAPIVersionCommand(client),
		},
		queries: Queries{
			SupportedVersions: supertokensquery.NewSupportedVersionsQuery(client),
			APIVersion:        supertokensquery.NewAPIVersionQuery(client),
			GetConfig:         supertokensquery.NewGetConfigQuery(client),
			GetTelemetry:      supertokensquery.NewGetTelemetryQuery(client),
			Hello:             supertokensquery.NewHelloQuery(client),
		},
	}, nil
}

func (f *Facade) Commands() Commands {
	if f == nil {
		return Commands{}
	}
	return f.commands
}

func (f *Facade) Queries() Queries {
	if f == nil {
		return Queries{}
	}
	return f.queries
}

func (f *Facade) Client() CommandQueryClient {
	if f == nil {
		return nil
	}
	return f.client
}
