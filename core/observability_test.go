package core

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"testing"
	"time"

	goerrors "github.com/goliatone/go-errors"
)

type capturedCounter struct {
	name  string
	value int64
	tags  map[string]string
}

type capturedHistogram struct {
	name  string
	value float64
	tags  map[string]string
}

type captureMetricsRecorder struct {
	mu         sync.Mutex
	counters   []capturedCounter
	histograms []capturedHistogram
}

func (m *captureMetricsRecorder) IncCounter(_ context.Context, name string, value int64, tags map[string]string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.counters = append(m.counters, capturedCounter{name: name, value: value, tags: cloneTags(tags)})
}

func (m *captureMetricsRecorder) ObserveHistogram(_ context.Context, name string, value float64, tags map[string]string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.histograms = append(m.histograms, capturedHistogram{name: name, value: value, tags: cloneTags(tags)})
}

type capturedLog struct {
	level  string
	msg    string
	fields map[string]any
}

type captureLogger struct {
	mu       *sync.Mutex
	records  *[]capturedLog
	defaults map[string]any
}

func newCaptureLogger() *captureLogger {
	records := []capturedLog{}
	return &captureLogger{mu: &sync.Mutex{}, records: &records, defaults: map[string]any{}}
}

func (l *captureLogger) WithFields(fields map[string]any) Logger {
	merged := cloneFields(l.defaults)
	for key, value := range fields {
		merged[key] = value
	}
	return &captureLogger{mu: l.mu, records: l.records, defaults: merged}
}

func (l *captureLogger) Trace(msg string, args ...any) { l.record("trace", msg, args...) }
func (l *captureLogger) Debug(msg string, args ...any) { l.record("debug", msg, args...) }
func (l *captureLogger) Info(msg string, args ...any)  { l.record("info", msg, args...) }
func (l *captureLogger) Warn(msg string, args ...any)  { l.record("warn", msg, args...) }
func (l *captureLogger) Error(msg string, args ...any) { l.record("error", msg, args...) }
func (l *captureLogger) Fatal(msg string, args ...any) { l.record("fatal", msg, args...) }

func (l *captureLogger) WithContext(context.Context) Logger {
	return &captureLogger{mu: l.mu, records: l.records, defaults: cloneFields(l.defaults)}
}

func (l *captureLogger) record(level string, msg string, args ...any) {
	fields := cloneFields(l.defaults)
	for index := 0; index+1 < len(args); index += 2 {
		key, ok := args[index].(string)
		if !ok {
			continue
		}
		fields[key] = args[index+1]
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	*l.records = append(*l.records, capturedLog{level: level, msg: msg, fields: fields})
}

func (l *captureLogger) snapshot() []capturedLog {
	l.mu.Lock()
	defer l.mu.Unlock()
	items := *l.records
	out := make([]capturedLog, len(items))
	copy(out, items)
	return out
}

func newObservedClient(t *testing.T, transport TransportAdapter) (*Client, *captureMetricsRecorder, *captureLogger) {
	t.Helper()
	metrics := &captureMetricsRecorder{}
	logger := newCaptureLogger()
	client := newTestClient(t, transport,
		WithMetricsRecorder(metrics),
		WithLoggerProvider(stubLoggerProvider{logger: logger}),
		WithLogger(logger),
	)
	return client, metrics, logger
}

func TestClientObservability_GetConfigSuccess(t *testing.T) {
	transport := newFakeTransport(map[string]fakeRoute{
		PathAPIVersion: versionsRoute("2.14"),
		PathConfig:     jsonRoute(http.StatusOK, `{"status":"OK"}`),
	})
	client, metrics, logger := newObservedClient(t, transport)

	if _, err := client.GetConfig(context.Background(), "10512"); err != nil {
		t.Fatalf("get config: %v", err)
	}

	if !hasCounter(metrics.counters, "supertokens.get_config.total", "success") {
		t.Fatalf("expected supertokens.get_config.total success counter")
	}
	if !hasHistogram(metrics.histograms, "supertokens.get_config.duration_ms", "success") {
		t.Fatalf("expected supertokens.get_config.duration_ms histogram")
	}
	if !hasLog(logger.snapshot(), "info", "get_config succeeded", "get_config") {
		t.Fatalf("expected get_config succeeded structured log")
	}
	for _, counter := range metrics.counters {
		if counter.name == "supertokens.get_config.total" && counter.tags["path"] != PathConfig {
			t.Fatalf("expected path tag, got %#v", counter.tags)
		}
	}
}

func TestClientObservability_FailureCarriesTextCode(t *testing.T) {
	client, metrics, logger := newObservedClient(t, newFakeTransport(nil))

	if _, err := client.UsersCount(context.Background()); err == nil {
		t.Fatalf("expected users count to fail")
	}
	if !hasCounter(metrics.counters, "supertokens.users_count.total", "failure") {
		t.Fatalf("expected users count failure counter")
	}
	records := logger.snapshot()
	if !hasLog(records, "error", "users_count failed", "users_count") {
		t.Fatalf("expected users count failure log")
	}
	last := records[len(records)-1]
	if last.fields["error_text_code"] != ClientErrorNotImplemented {
		t.Fatalf("expected error_text_code %q, got %#v", ClientErrorNotImplemented, last.fields["error_text_code"])
	}
	for _, counter := range metrics.counters {
		if counter.name == "supertokens.users_count.total" && counter.tags["error_text_code"] != ClientErrorNotImplemented {
			t.Fatalf("expected error_text_code tag, got %#v", counter.tags)
		}
	}
}

func TestMetricNames_NormalizeOperation(t *testing.T) {
	if got := CounterName("Remove User"); got != "supertokens.remove_user.total" {
		t.Fatalf("unexpected counter name %q", got)
	}
	if got := DurationName("send-email"); got != "supertokens.send_email.duration_ms" {
		t.Fatalf("unexpected histogram name %q", got)
	}
}

func TestClientObservability_BadInputIsRejectedNotFailed(t *testing.T) {
	client, metrics, logger := newObservedClient(t, newFakeTransport(nil))

	if _, err := client.GetConfig(context.Background(), "  "); err == nil {
		t.Fatalf("expected blank process id to fail")
	}
	if !hasCounter(metrics.counters, "supertokens.get_config.total", "rejected") {
		t.Fatalf("expected get_config rejected counter")
	}
	if !hasLog(logger.snapshot(), "warn", "get_config rejected", "get_config") {
		t.Fatalf("expected get_config rejected warn log")
	}
}

func TestClientObservability_EnrichesStructuredErrorFields(t *testing.T) {
	client, _, logger := newObservedClient(t, newFakeTransport(nil))

	richErr := goerrors.New("core timeout", goerrors.CategoryExternal).
		WithCode(http.StatusBadGateway).
		WithTextCode(ClientErrorTransportFailure)
	client.observeOperation(
		context.Background(),
		time.Now().UTC().Add(-100*time.Millisecond),
		"Get Config",
		richErr,
		map[string]any{"path": PathConfig},
	)

	records := logger.snapshot()
	if len(records) == 0 {
		t.Fatalf("expected logs to be emitted")
	}
	last := records[len(records)-1]
	if last.fields["event_type"] != "get_config" {
		t.Fatalf("expected normalized event type, got %#v", last.fields["event_type"])
	}
	if last.fields["error_category"] != "external" {
		t.Fatalf("expected error_category external, got %#v", last.fields["error_category"])
	}
	if last.fields["error_code"] != http.StatusBadGateway {
		t.Fatalf("expected error_code 502, got %#v", last.fields["error_code"])
	}
	if duration, ok := last.fields["duration_ms"].(int64); !ok || duration < 100 {
		t.Fatalf("expected duration_ms >= 100, got %#v", last.fields["duration_ms"])
	}
}

func TestClientObservability_NeverLogsAPIKey(t *testing.T) {
	transport := newFakeTransport(map[string]fakeRoute{
		PathAPIVersion: versionsRoute("2.14"),
		PathConfig:     textRoute(http.StatusUnauthorized, "bad key"),
	})
	client, _, logger := newObservedClient(t, transport)
	_, _ = client.APIVersion(context.Background())
	_, _ = client.GetConfig(context.Background(), "1")

	for _, record := range logger.snapshot() {
		for key, value := range record.fields {
			if strings.Contains(fmt.Sprint(value), "test-api-key") {
				t.Fatalf("api key leaked in log field %q of %q", key, record.msg)
			}
		}
	}
}

func hasCounter(items []capturedCounter, name string, status string) bool {
	for _, item := range items {
		if item.name == name && item.tags["status"] == status {
			return true
		}
	}
	return false
}

func hasHistogram(items []capturedHistogram, name string, status string) bool {
	for _, item := range items {
		if item.name == name && item.tags["status"] == status {
			return true
		}
	}
	return false
}

func hasLog(items []capturedLog, level string, message string, eventType string) bool {
	for _, item := range items {
		if item.level != level {
			continue
		}
		if item.msg != message {
			continue
		}
		if item.fields["event_type"] == eventType {
			return true
		}
	}
	return false
}
