package sqlstore

import (
	"context"
	"fmt"
	"strings"
	"time"

	repository "github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/uptrace/bun"

	"github.com/goliatone/go-supertokens/ingredients/emaildelivery"
)

const (
	OutboxStatusPending   = "pending"
	OutboxStatusDelivered = "delivered"
	OutboxStatusFailed    = "failed"
)

// EmailOutboxEntry is one persisted email delivery request.
type EmailOutboxEntry struct {
	ID            string
	RecipeID      string
	Input         emaildelivery.Input
	Status        string
	Attempts      int
	LastError     string
	NextAttemptAt *time.Time
	DeliveredAt   *time.Time
	CreatedAt     time.Time
}

type EmailOutboxStore struct {
	db   *bun.DB
	repo repository.Repository[*emailOutboxRecord]
	now  func() time.Time
}

func NewEmailOutboxStore(db *bun.DB) (*EmailOutboxStore, error) {
	if db == nil {
		return nil, fmt.Errorf("sqlstore: bun db is required")
	}
	repo := repository.NewRepository[*emailOutboxRecord](db, outboxHandlers())
	if validator, ok := repo.(repository.Validator); ok {
		if err := validator.Validate(); err != nil {
			return nil, fmt.Errorf("sqlstore: invalid email outbox repository wiring: %w", err)
		}
	}
	return &EmailOutboxStore{db: db, repo: repo, now: time.Now}, nil
}

// NewEmailOutboxStoreFromPersistence accepts a *bun.DB or anything exposing
// DB() *bun.DB, such as a go-persistence-bun client.
func NewEmailOutboxStoreFromPersistence(client any) (*EmailOutboxStore, error) {
	db, err := resolveBunDB(client)
	if err != nil {
		return nil, err
	}
	return NewEmailOutboxStore(db)
}

func (s *EmailOutboxStore) DB() *bun.DB {
	if s == nil {
		return nil
	}
	return s.db
}

// EnsureSchema creates the outbox table when it does not exist yet. Callers
// running the embedded migrations do not need it.
func (s *EmailOutboxStore) EnsureSchema(ctx context.Context) error {
	if s == nil || s.db == nil {
		return fmt.Errorf("sqlstore: email outbox store is not configured")
	}
	_, err := s.db.NewCreateTable().
		Model((*emailOutboxRecord)(nil)).
		IfNotExists().
		Exec(ctx)
	return err
}

// Save stores input as a pending delivery owned by recipeID.
func (s *EmailOutboxStore) Save(ctx context.Context, recipeID string, input emaildelivery.Input) (EmailOutboxEntry, error) {
	if s == nil || s.repo == nil {
		return EmailOutboxEntry{}, fmt.Errorf("sqlstore: email outbox store is not configured")
	}
	recipeID = strings.TrimSpace(recipeID)
	if recipeID == "" {
		return EmailOutboxEntry{}, fmt.Errorf("sqlstore: outbox recipe id is required")
	}
	payload, err := emaildelivery.EncodePayload(input)
	if err != nil {
		return EmailOutboxEntry{}, err
	}
	// only rows that decode again are written, so Pending never sees one it cannot hand out
	stored, err := emaildelivery.DecodePayload(payload)
	if err != nil {
		return EmailOutboxEntry{}, err
	}

	now := s.now().UTC()
	record := &emailOutboxRecord{
		ID:        uuid.NewString(),
		RecipeID:  recipeID,
		Kind:      string(stored.Request.Kind()),
		Recipient: emaildelivery.Recipient(stored.Request),
		Payload:   payload,
		Status:    OutboxStatusPending,
		CreatedAt: now,
		UpdatedAt: now,
	}
	created, err := s.repo.Create(ctx, record)
	if err != nil {
		return EmailOutboxEntry{}, err
	}
	if created != nil {
		record = created
	}
	return newEntry(*record, stored), nil
}

// Pending returns up to limit deliveries that are due, oldest first. Rows
// whose payload no longer decodes are marked failed and skipped.
func (s *EmailOutboxStore) Pending(ctx context.Context, limit int) ([]EmailOutboxEntry, error) {
	entries, _, err := s.pending(ctx, limit)
	return entries, err
}

func (s *EmailOutboxStore) pending(ctx context.Context, limit int) ([]EmailOutboxEntry, int, error) {
	if s == nil || s.db == nil {
		return nil, 0, fmt.Errorf("sqlstore: email outbox store is not configured")
	}
	if limit <= 0 {
		limit = 1
	}
	entries := make([]EmailOutboxEntry, 0, limit)
	rejected := 0
	for len(entries) < limit {
		var records []emailOutboxRecord
		err := s.db.NewSelect().
			Model(&records).
			Where("status = ?", OutboxStatusPending).
			Where("(next_attempt_at IS NULL OR next_attempt_at <= ?)", s.now().UTC()).
			OrderExpr("created_at ASC").
			Limit(limit - len(entries)).
			Scan(ctx)
		if err != nil {
			return nil, rejected, err
		}

		marked := 0
		for _, record := range records {
			input, decodeErr := emaildelivery.DecodePayload(record.Payload)
			if decodeErr != nil {
				if err := s.MarkFailed(ctx, record.ID, fmt.Errorf("undecodable payload: %w", decodeErr), time.Time{}); err != nil {
					return nil, rejected, err
				}
				marked++
				continue
			}
			entries = append(entries, newEntry(record, input))
		}
		rejected += marked
		// marked rows left the pending set, so a refill query cannot see them again
		if marked == 0 || len(records) == 0 {
			break
		}
	}
	return entries, rejected, nil
}

// Claim leases a due pending entry until now+lease so concurrent
// dispatchers skip it. It reports false when another dispatcher holds it or
// it is no longer pending. An expired lease makes the entry due again.
func (s *EmailOutboxStore) Claim(ctx context.Context, id string, lease time.Duration) (bool, error) {
	if s == nil || s.db == nil {
		return false, fmt.Errorf("sqlstore: email outbox store is not configured")
	}
	id = strings.TrimSpace(id)
	if id == "" {
		return false, fmt.Errorf("sqlstore: outbox entry id is required")
	}
	if lease <= 0 {
		return false, fmt.Errorf("sqlstore: outbox lease must be positive")
	}
	now := s.now().UTC()
	res, err := s.db.NewUpdate().
		Model((*emailOutboxRecord)(nil)).
		Set("next_attempt_at = ?", now.Add(lease)).
		Set("updated_at = ?", now).
		Where("id = ?", id).
		Where("status = ?", OutboxStatusPending).
		Where("(next_attempt_at IS NULL OR next_attempt_at <= ?)", now).
		Exec(ctx)
	if err != nil {
		return false, err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return affected == 1, nil
}

func (s *EmailOutboxStore) Count(ctx context.Context, status string) (int, error) {
	if s == nil || s.db == nil {
		return 0, fmt.Errorf("sqlstore: email outbox store is not configured")
	}
	return s.db.NewSelect().
		Model((*emailOutboxRecord)(nil)).
		Where("status = ?", strings.TrimSpace(status)).
		Count(ctx)
}

func (s *EmailOutboxStore) MarkDelivered(ctx context.Context, id string) error {
	if s == nil || s.db == nil {
		return fmt.Errorf("sqlstore: email outbox store is not configured")
	}
	id = strings.TrimSpace(id)
	if id == "" {
		return fmt.Errorf("sqlstore: outbox entry id is required")
	}
	now := s.now().UTC()
	_, err := s.db.NewUpdate().
		Model((*emailOutboxRecord)(nil)).
		Set("status = ?", OutboxStatusDelivered).
		Set("attempts = attempts + 1").
		Set("last_error = ?", "").
		Set("next_attempt_at = NULL").
		Set("delivered_at = ?", now).
		Set("updated_at = ?", now).
		Where("id = ?", id).
		Exec(ctx)
	return err
}

// MarkFailed records a failed attempt. A zero nextAttemptAt gives up on the
// entry; otherwise it stays pending until then.
func (s *EmailOutboxStore) MarkFailed(ctx context.Context, id string, cause error, nextAttemptAt time.Time) error {
	if s == nil || s.db == nil {
		return fmt.Errorf("sqlstore: email outbox store is not configured")
	}
	id = strings.TrimSpace(id)
	if id == "" {
		return fmt.Errorf("sqlstore: outbox entry id is required")
	}
	status := OutboxStatusPending
	var next *time.Time
	if !nextAttemptAt.IsZero() {
		value := nextAttemptAt.UTC()
		next = &value
	} else {
		status = OutboxStatusFailed
	}
	lastError := ""
	if cause != nil {
		lastError = strings.TrimSpace(cause.Error())
	}
	_, err := s.db.NewUpdate().
		Model((*emailOutboxRecord)(nil)).
		Set("status = ?", status).
		Set("attempts = attempts + 1").
		Set("next_attempt_at = ?", next).
		Set("last_error = ?", lastError).
		Set("updated_at = ?", s.now().UTC()).
		Where("id = ?", id).
		Exec(ctx)
	return err
}

func newEntry(record emailOutboxRecord, input emaildelivery.Input) EmailOutboxEntry {
	return EmailOutboxEntry{
		ID:            record.ID,
		RecipeID:      record.RecipeID,
		Input:         input,
		Status:        record.Status,
		Attempts:      record.Attempts,
		LastError:     record.LastError,
		NextAttemptAt: record.NextAttempt,
		DeliveredAt:   record.DeliveredAt,
		CreatedAt:     record.CreatedAt,
	}
}

func resolveBunDB(candidate any) (*bun.DB, error) {
	switch typed := candidate.(type) {
	case nil:
		return nil, fmt.Errorf("sqlstore: persistence client is required")
	case *bun.DB:
		return typed, nil
	case interface{ DB() *bun.DB }:
		db := typed.DB()
		if db == nil {
			return nil, fmt.Errorf("sqlstore: persistence client returned nil bun db")
		}
		return db, nil
	default:
		return nil, fmt.Errorf("sqlstore: unsupported persistence client type %T", candidate)
	}
}
