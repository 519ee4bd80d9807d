package gojob

import (
	"context"
	"strings"
	"sync"
	"time"

	job "github.com/goliatone/go-job"
	"github.com/goliatone/go-job/queue"
	"github.com/goliatone/go-job/queue/worker"
	glog "github.com/goliatone/go-logger/glog"

	"github.com/goliatone/go-supertokens/ingredients/emaildelivery"
)

const workerLoggerName = "supertokens.gojob"

// Outcome reports what ProcessNext did with a delivery.
type Outcome string

const (
	OutcomeDelivered  Outcome = "delivered"
	OutcomeRetry      Outcome = "retry"
	OutcomeDeadLetter Outcome = "dead_letter"
	OutcomeFailed     Outcome = "failed"
)

// EmailQueueWorker drains email delivery messages into a downstream
// EmailDelivery, usually the provider that actually sends mail.
type EmailQueueWorker struct {
	dequeuer  queue.Dequeuer
	delivery  emaildelivery.EmailDelivery
	policy    RetryPolicy
	hook      worker.Hook
	logger    glog.Logger
	provider  glog.LoggerProvider
	idleDelay time.Duration
	now       func() time.Time

	mu       sync.Mutex
	attempts map[string]int
}

type WorkerOption func(*EmailQueueWorker)

func WithRetryPolicy(policy RetryPolicy) WorkerOption {
	return func(w *EmailQueueWorker) {
		w.policy = policy
	}
}

func WithWorkerHook(hook worker.Hook) WorkerOption {
	return func(w *EmailQueueWorker) {
		w.hook = hook
	}
}

func WithWorkerLogger(logger glog.Logger) WorkerOption {
	return func(w *EmailQueueWorker) {
		w.logger = logger
	}
}

func WithWorkerLoggerProvider(provider glog.LoggerProvider) WorkerOption {
	return func(w *EmailQueueWorker) {
		w.provider = provider
	}
}

// WithIdleDelay sets how long Run waits after a failed dequeue.
func WithIdleDelay(delay time.Duration) WorkerOption {
	return func(w *EmailQueueWorker) {
		w.idleDelay = delay
	}
}

func NewEmailQueueWorker(dequeuer queue.Dequeuer, delivery emaildelivery.EmailDelivery, opts ...WorkerOption) *EmailQueueWorker {
	w := &EmailQueueWorker{
		dequeuer:  dequeuer,
		delivery:  delivery,
		policy:    DefaultRetryPolicy(),
		idleDelay: time.Second,
		now:       time.Now,
		attempts:  map[string]int{},
	}
	for _, opt := range opts {
		if opt != nil {
			opt(w)
		}
	}
	w.provider, w.logger = glog.Resolve(workerLoggerName, w.provider, w.logger)
	w.logger = glog.Ensure(w.logger)
	return w
}

// JobLogger exposes the worker logger to go-job runners sharing the queue.
func (w *EmailQueueWorker) JobLogger() job.Logger {
	if w == nil || w.logger == nil {
		return nil
	}
	return job.GoLogger(w.logger)
}

func (w *EmailQueueWorker) JobLoggerProvider() job.LoggerProvider {
	if w == nil || w.provider == nil {
		return nil
	}
	return job.GoLoggerProvider(w.provider)
}

// ProcessNext dequeues one message and acks or nacks it. Delivery failures
// are reported through the outcome; the error is reserved for queue failures.
func (w *EmailQueueWorker) ProcessNext(ctx context.Context) (Outcome, error) {
	if w == nil || w.dequeuer == nil || w.delivery == nil {
		return "", dependencyError("gojob: email queue worker requires a dequeuer and a delivery")
	}
	delivery, err := w.dequeuer.Dequeue(ctx)
	if err != nil {
		return "", err
	}
	if delivery == nil {
		return "", dependencyError("gojob: dequeuer returned no delivery")
	}

	msg := delivery.Message()
	key := attemptKey(msg)
	attempt := w.nextAttempt(key)
	event := worker.Event{
		Message:   msg,
		Delivery:  delivery,
		Attempt:   attempt,
		StartedAt: w.now(),
	}
	w.onStart(ctx, event)

	if msg == nil || strings.TrimSpace(msg.JobID) != JobIDEmailDeliver {
		return w.reject(ctx, delivery, event, key, "unexpected job for email queue worker")
	}
	input, err := emaildelivery.DecodePayload(msg.Parameters)
	if err != nil {
		event.Err = err
		return w.reject(ctx, delivery, event, key, "undecodable email payload")
	}

	if err := w.delivery.SendEmail(ctx, input); err != nil {
		return w.retry(ctx, delivery, event, key, err)
	}
	if err := delivery.Ack(ctx); err != nil {
		return "", err
	}
	w.forget(key)
	event.Duration = w.now().Sub(event.StartedAt)
	w.onSuccess(ctx, event)
	w.logger.Info("email delivered", "kind", string(input.Request.Kind()), "attempt", attempt, "job_id", msg.JobID)
	return OutcomeDelivered, nil
}

// Run processes messages until ctx is done.
func (w *EmailQueueWorker) Run(ctx context.Context) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		if _, err := w.ProcessNext(ctx); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			w.logger.Warn("email queue worker iteration failed", "error", err.Error())
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(w.idleDelay):
			}
		}
	}
}

func (w *EmailQueueWorker) retry(
	ctx context.Context,
	delivery queue.Delivery,
	event worker.Event,
	key string,
	cause error,
) (Outcome, error) {
	event.Err = cause
	event.Delay = w.policy.Backoff(event.Attempt)
	event.Duration = w.now().Sub(event.StartedAt)
	opts := w.policy.NormalizeAttempt(queue.NackOptions{
		Disposition: queue.NackDispositionRetry,
		Delay:       event.Delay,
		Reason:      cause.Error(),
	}, event.Attempt)
	event.Delay = opts.Delay
	if err := delivery.Nack(ctx, opts); err != nil {
		return "", err
	}
	if opts.Disposition == queue.NackDispositionRetry {
		w.onRetry(ctx, event)
		w.logger.Warn("email delivery failed, retrying",
			"attempt", event.Attempt, "delay_ms", opts.Delay.Milliseconds(), "error", cause.Error())
		return OutcomeRetry, nil
	}
	w.forget(key)
	w.onFailure(ctx, event)
	w.logger.Error("email delivery failed, giving up",
		"attempt", event.Attempt, "disposition", string(opts.Disposition), "error", cause.Error())
	if opts.Disposition == queue.NackDispositionDeadLetter {
		return OutcomeDeadLetter, nil
	}
	return OutcomeFailed, nil
}

// reject dead letters messages that can never succeed.
func (w *EmailQueueWorker) reject(
	ctx context.Context,
	delivery queue.Delivery,
	event worker.Event,
	key string,
	reason string,
) (Outcome, error) {
	if err := delivery.Nack(ctx, queue.NackOptions{
		Disposition: queue.NackDispositionDeadLetter,
		Reason:      reason,
	}); err != nil {
		return "", err
	}
	w.forget(key)
	event.Duration = w.now().Sub(event.StartedAt)
	w.onFailure(ctx, event)
	w.logger.Error("email queue message rejected", "reason", reason)
	return OutcomeDeadLetter, nil
}

func (w *EmailQueueWorker) nextAttempt(key string) int {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.attempts[key]++
	return w.attempts[key]
}

func (w *EmailQueueWorker) forget(key string) {
	w.mu.Lock()
	delete(w.attempts, key)
	w.mu.Unlock()
}

func (w *EmailQueueWorker) onStart(ctx context.Context, event worker.Event) {
	if w.hook != nil {
		w.hook.OnStart(ctx, event)
	}
}

func (w *EmailQueueWorker) onSuccess(ctx context.Context, event worker.Event) {
	if w.hook != nil {
		w.hook.OnSuccess(ctx, event)
	}
}

func (w *EmailQueueWorker) onFailure(ctx context.Context, event worker.Event) {
	if w.hook != nil {
		w.hook.OnFailure(ctx, event)
	}
}

func (w *EmailQueueWorker) onRetry(ctx context.Context, event worker.Event) {
	if w.hook != nil {
		w.hook.OnRetry(ctx, event)
	}
}

func attemptKey(msg *job.ExecutionMessage) string {
	if msg == nil {
		return ""
	}
	if key := strings.TrimSpace(msg.IdempotencyKey); key != "" {
		return key
	}
	return strings.TrimSpace(msg.JobID)
}
