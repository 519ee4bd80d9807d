package gojob

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"sort"
	"strings"

	job "github.com/goliatone/go-job"
	"github.com/goliatone/go-job/queue"
	glog "github.com/goliatone/go-logger/glog"

	"github.com/goliatone/go-supertokens/core"
	"github.com/goliatone/go-supertokens/ingredients/emaildelivery"
)

const (
	JobIDEmailDeliver      = "supertokens.email.deliver"
	ScriptPathEmailDeliver = "supertokens/email/deliver"
	DefaultQueueRecipeID   = "gojob_email_queue"
)

// EmailQueueRecipe takes over email delivery by enqueuing each request as a
// go-job execution message. An EmailQueueWorker delivers them later.
type EmailQueueRecipe struct {
	id          string
	enqueuer    queue.Enqueuer
	dedupPolicy job.DeduplicationPolicy
	logger      glog.Logger
}

type RecipeOption func(*EmailQueueRecipe)

func WithRecipeID(id string) RecipeOption {
	return func(r *EmailQueueRecipe) {
		if trimmed := strings.TrimSpace(id); trimmed != "" {
			r.id = trimmed
		}
	}
}

func WithDedupPolicy(policy job.DeduplicationPolicy) RecipeOption {
	return func(r *EmailQueueRecipe) {
		r.dedupPolicy = policy
	}
}

func WithRecipeLogger(logger glog.Logger) RecipeOption {
	return func(r *EmailQueueRecipe) {
		r.logger = logger
	}
}

func NewEmailQueueRecipe(enqueuer queue.Enqueuer, opts ...RecipeOption) *EmailQueueRecipe {
	recipe := &EmailQueueRecipe{id: DefaultQueueRecipeID, enqueuer: enqueuer}
	for _, opt := range opts {
		if opt != nil {
			opt(recipe)
		}
	}
	recipe.logger = glog.Ensure(recipe.logger)
	return recipe
}

func (r *EmailQueueRecipe) RecipeID() string {
	if r == nil {
		return ""
	}
	return r.id
}

func (r *EmailQueueRecipe) SendEmail(ctx context.Context, input emaildelivery.Input) error {
	if r == nil || r.enqueuer == nil {
		return dependencyError("gojob: email queue enqueuer is required")
	}
	msg, err := ExecutionMessage(input)
	if err != nil {
		return err
	}
	msg.DedupPolicy = r.dedupPolicy
	receipt, err := r.enqueuer.Enqueue(ctx, msg)
	fields := map[string]any{
		"job_id":          msg.JobID,
		"kind":            string(input.Request.Kind()),
		"idempotency_key": msg.IdempotencyKey,
	}
	if receipt.DispatchID != "" {
		fields["dispatch_id"] = receipt.DispatchID
	}
	if err != nil {
		return enqueueError(err, fields)
	}
	r.logger.WithContext(ctx).Info("email delivery enqueued", flatten(fields)...)
	return nil
}

// ExecutionMessage encodes input as the go-job message the worker understands.
func ExecutionMessage(input emaildelivery.Input) (*job.ExecutionMessage, error) {
	payload, err := emaildelivery.EncodePayload(input)
	if err != nil {
		return nil, err
	}
	key, err := IdempotencyKey(input)
	if err != nil {
		return nil, err
	}
	return &job.ExecutionMessage{
		JobID:          JobIDEmailDeliver,
		ScriptPath:     ScriptPathEmailDeliver,
		Parameters:     payload,
		IdempotencyKey: key,
	}, nil
}

// IdempotencyKey is stable for identical requests, so a retried SendEmail
// does not queue a second email.
func IdempotencyKey(input emaildelivery.Input) (string, error) {
	raw, err := emaildelivery.EncodeJSON(input)
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256(raw)
	return JobIDEmailDeliver + ":" + hex.EncodeToString(sum[:16]), nil
}

func flatten(fields map[string]any) []any {
	keys := make([]string, 0, len(fields))
	for key := range fields {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	args := make([]any, 0, len(keys)*2)
	for _, key := range keys {
		args = append(args, key, fields[key])
	}
	return args
}

var (
	_ core.Recipe                 = (*EmailQueueRecipe)(nil)
	_ emaildelivery.EmailDelivery = (*EmailQueueRecipe)(nil)
)
