package sqlstore

import (
	"time"

	"github.com/uptrace/bun"
)

type emailOutboxRecord struct {
	bun.BaseModel `bun:"table:supertokens_email_outbox,alias:seo"`

	ID          string         `bun:"id,pk"`
	RecipeID    string         `bun:"recipe_id,notnull"`
	Kind        string         `bun:"kind,notnull"`
	Recipient   string         `bun:"recipient,notnull"`
	Payload     map[string]any `bun:"payload,type:jsonb,notnull"`
	Status      string         `bun:"status,notnull"`
	Attempts    int            `bun:"attempts,notnull"`
	NextAttempt *time.Time     `bun:"next_attempt_at,nullzero"`
	LastError   string         `bun:"last_error,notnull"`
	DeliveredAt *time.Time     `bun:"delivered_at,nullzero"`
	CreatedAt   time.Time      `bun:"created_at,nullzero,notnull,default:current_timestamp"`
	UpdatedAt   time.Time      `bun:"updated_at,nullzero,notnull,default:current_timestamp"`
}
