package core

import "context"

const metricPrefix = "supertokens."

// MetricsRecorder receives one counter and one duration histogram per client
// operation.
type MetricsRecorder interface {
	IncCounter(ctx context.Context, name string, value int64, tags map[string]string)
	ObserveHistogram(ctx context.Context, name string, value float64, tags map[string]string)
}

// CounterName is the counter recorded for operation, e.g. supertokens.get_config.total.
func CounterName(operation string) string {
	return metricPrefix + normalizeOperation(operation) + ".total"
}

// DurationName is the millisecond histogram recorded for operation.
func DurationName(operation string) string {
	return metricPrefix + normalizeOperation(operation) + ".duration_ms"
}

type NopMetricsRecorder struct{}

func (NopMetricsRecorder) IncCounter(context.Context, string, int64, map[string]string) {}

func (NopMetricsRecorder) ObserveHistogram(context.Context, string, float64, map[string]string) {}

func cloneTags(tags map[string]string) map[string]string {
	copied := make(map[string]string, len(tags))
	for key, value := range tags {
		copied[key] = value
	}
	return copied
}

var _ MetricsRecorder = NopMetricsRecorder{}
