package sqlstore

import (
	"strings"

	repository "github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
)

// outboxHandlers keys outbox rows by their uuid text id.
func outboxHandlers() repository.ModelHandlers[*emailOutboxRecord] {
	return repository.ModelHandlers[*emailOutboxRecord]{
		NewRecord: func() *emailOutboxRecord { return new(emailOutboxRecord) },
		GetID: func(record *emailOutboxRecord) uuid.UUID {
			if record == nil {
				return uuid.Nil
			}
			id, err := uuid.Parse(strings.TrimSpace(record.ID))
			if err != nil {
				return uuid.Nil
			}
			return id
		},
		SetID: func(record *emailOutboxRecord, id uuid.UUID) {
			if record != nil {
				record.ID = id.String()
			}
		},
		GetIdentifier: func() string { return "id" },
		GetIdentifierValue: func(record *emailOutboxRecord) string {
			if record == nil {
				return ""
			}
			return strings.TrimSpace(record.ID)
		},
	}
}
