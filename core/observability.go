package core

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	goerrors "github.com/goliatone/go-errors"
)

const (
	outcomeSuccess  = "success"
	outcomeFailure  = "failure"
	outcomeRejected = "rejected"
)

// tagFields are the event fields promoted to metric tags.
var tagFields = []string{"method", "path", "capability", "email_kind", "cdi_version", "error_text_code"}

// observeOperation logs one client call and records its counter and duration
// histogram. Calls rejected for bad input log at warn level; every other
// failure logs at error level.
func (c *Client) observeOperation(
	ctx context.Context,
	startedAt time.Time,
	operation string,
	err error,
	fields map[string]any,
) {
	if c == nil {
		return
	}
	operation = normalizeOperation(operation)
	if operation == "" {
		operation = "unknown"
	}
	elapsed := time.Since(startedAt).Milliseconds()

	event := cloneFields(fields)
	event["event_type"] = operation
	event["duration_ms"] = elapsed
	outcome := outcomeSuccess
	if err != nil {
		outcome = describeError(err, event)
	}
	event["status"] = outcome

	tags := map[string]string{"operation": operation, "status": outcome}
	for _, key := range tagFields {
		value, ok := event[key]
		if !ok || value == nil {
			continue
		}
		if text := strings.TrimSpace(fmt.Sprint(value)); text != "" {
			tags[key] = text
		}
	}
	c.recordCounter(ctx, CounterName(operation), 1, tags)
	c.recordHistogram(ctx, DurationName(operation), float64(elapsed), tags)

	switch outcome {
	case outcomeSuccess:
		c.log(ctx, "info", operation+" succeeded", event)
	case outcomeRejected:
		c.log(ctx, "warn", operation+" rejected", event)
	default:
		c.log(ctx, "error", operation+" failed", event)
	}
}

// describeError copies the go-errors envelope of err into event and returns
// the outcome it stands for.
func describeError(err error, event map[string]any) string {
	event["error"] = err.Error()
	var rich *goerrors.Error
	if !goerrors.As(err, &rich) {
		return outcomeFailure
	}
	event["error_category"] = fmt.Sprint(rich.Category)
	event["error_text_code"] = rich.TextCode
	if rich.Code != 0 {
		event["error_code"] = rich.Code
	}
	switch rich.Category {
	case goerrors.CategoryBadInput, goerrors.CategoryValidation:
		return outcomeRejected
	default:
		return outcomeFailure
	}
}

func (c *Client) log(ctx context.Context, level string, message string, fields map[string]any) {
	if c == nil || c.logger == nil {
		return
	}
	logger := c.logger
	if ctx != nil {
		logger = logger.WithContext(ctx)
	}
	if fieldsLogger, ok := logger.(FieldsLogger); ok {
		logger = fieldsLogger.WithFields(cloneFields(fields))
	}
	args := flattenFields(fields)
	switch level {
	case "error":
		logger.Error(message, args...)
	case "warn":
		logger.Warn(message, args...)
	default:
		logger.Info(message, args...)
	}
}

func (c *Client) recordCounter(ctx context.Context, name string, value int64, tags map[string]string) {
	if c == nil || c.metricsRecorder == nil {
		return
	}
	c.metricsRecorder.IncCounter(ctx, name, value, cloneTags(tags))
}

func (c *Client) recordHistogram(ctx context.Context, name string, value float64, tags map[string]string) {
	if c == nil || c.metricsRecorder == nil {
		return
	}
	c.metricsRecorder.ObserveHistogram(ctx, name, value, cloneTags(tags))
}

func cloneFields(fields map[string]any) map[string]any {
	copied := make(map[string]any, len(fields))
	for key, value := range fields {
		copied[key] = value
	}
	return copied
}

// flattenFields turns fields into sorted key/value pairs for glog.
func flattenFields(fields map[string]any) []any {
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

func normalizeOperation(operation string) string {
	return strings.NewReplacer(" ", "_", "-", "_").Replace(strings.ToLower(strings.TrimSpace(operation)))
}
