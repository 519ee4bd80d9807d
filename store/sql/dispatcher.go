package sqlstore

import (
	"context"
	"fmt"
	"time"

	glog "github.com/goliatone/go-logger/glog"

	"github.com/goliatone/go-supertokens/ingredients/emaildelivery"
)

// DispatchReport summarizes one DispatchPending pass. Claimed counts the
// entries this dispatcher leased; Skipped the due entries another dispatcher
// leased first; Rejected the rows marked failed because they no longer decode.
type DispatchReport struct {
	Claimed   int
	Skipped   int
	Delivered int
	Retrying  int
	Failed    int
	Rejected  int
}

const defaultClaimLease = 5 * time.Minute

// EmailOutboxDispatcher hands pending outbox entries to a downstream delivery.
type EmailOutboxDispatcher struct {
	store       *EmailOutboxStore
	delivery    emaildelivery.EmailDelivery
	maxAttempts int
	lease       time.Duration
	backoff     func(attempt int) time.Duration
	logger      glog.Logger
	now         func() time.Time
}

type DispatcherOption func(*EmailOutboxDispatcher)

// WithMaxAttempts bounds the attempts per entry; later failures mark it failed.
func WithMaxAttempts(attempts int) DispatcherOption {
	return func(d *EmailOutboxDispatcher) {
		if attempts > 0 {
			d.maxAttempts = attempts
		}
	}
}

// WithClaimLease sets how long a claimed entry stays hidden from other
// dispatchers. It should exceed the time one delivery takes.
func WithClaimLease(lease time.Duration) DispatcherOption {
	return func(d *EmailOutboxDispatcher) {
		if lease > 0 {
			d.lease = lease
		}
	}
}

func WithBackoff(backoff func(attempt int) time.Duration) DispatcherOption {
	return func(d *EmailOutboxDispatcher) {
		if backoff != nil {
			d.backoff = backoff
		}
	}
}

func WithDispatcherLogger(logger glog.Logger) DispatcherOption {
	return func(d *EmailOutboxDispatcher) {
		d.logger = logger
	}
}

func NewEmailOutboxDispatcher(
	store *EmailOutboxStore,
	delivery emaildelivery.EmailDelivery,
	opts ...DispatcherOption,
) (*EmailOutboxDispatcher, error) {
	if store == nil {
		return nil, fmt.Errorf("sqlstore: email outbox store is required")
	}
	if delivery == nil {
		return nil, fmt.Errorf("sqlstore: email delivery is required")
	}
	d := &EmailOutboxDispatcher{
		store:       store,
		delivery:    delivery,
		maxAttempts: 5,
		lease:       defaultClaimLease,
		backoff: func(attempt int) time.Duration {
			return time.Duration(attempt) * 30 * time.Second
		},
		now: time.Now,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(d)
		}
	}
	_, d.logger = glog.Resolve("supertokens.outbox", nil, d.logger)
	d.logger = glog.Ensure(d.logger)
	return d, nil
}

// DispatchPending delivers up to limit due entries. Each entry is claimed
// before it is sent, so dispatchers sharing a table do not send it twice.
// Delivery failures are recorded on the entries; only store failures return
// an error.
func (d *EmailOutboxDispatcher) DispatchPending(ctx context.Context, limit int) (DispatchReport, error) {
	entries, rejected, err := d.store.pending(ctx, limit)
	report := DispatchReport{Rejected: rejected}
	if err != nil {
		return report, err
	}
	if rejected > 0 {
		d.logger.Error("outbox entries with undecodable payloads marked failed", "count", rejected)
	}
	for _, entry := range entries {
		claimed, err := d.store.Claim(ctx, entry.ID, d.lease)
		if err != nil {
			return report, err
		}
		if !claimed {
			report.Skipped++
			continue
		}
		report.Claimed++

		sendErr := d.delivery.SendEmail(ctx, entry.Input)
		if sendErr == nil {
			if err := d.store.MarkDelivered(ctx, entry.ID); err != nil {
				return report, err
			}
			report.Delivered++
			continue
		}

		attempt := entry.Attempts + 1
		var next time.Time
		if attempt < d.maxAttempts {
			next = d.now().Add(d.backoff(attempt))
		}
		if err := d.store.MarkFailed(ctx, entry.ID, sendErr, next); err != nil {
			return report, err
		}
		if next.IsZero() {
			report.Failed++
			d.logger.Error("outbox email delivery failed, giving up",
				"outbox_id", entry.ID, "attempt", attempt, "error", sendErr.Error())
			continue
		}
		report.Retrying++
		d.logger.Warn("outbox email delivery failed, retrying",
			"outbox_id", entry.ID, "attempt", attempt, "next_attempt_at", next.UTC().Format(time.RFC3339))
	}
	return report, nil
}
