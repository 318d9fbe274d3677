package core

import (
	"bytes"
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

type captureLogger struct {
	mu       sync.Mutex
	messages []string
}

func (l *captureLogger) log(level, msg string) {
	l.mu.Lock()
	l.messages = append(l.messages, level+": "+msg)
	l.mu.Unlock()
}

func (l *captureLogger) Debug(msg string, _ ...any) { l.log("debug", msg) }
func (l *captureLogger) Info(msg string, _ ...any)  { l.log("info", msg) }
func (l *captureLogger) Warn(msg string, _ ...any)  { l.log("warn", msg) }
func (l *captureLogger) Error(msg string, _ ...any) { l.log("error", msg) }

type captureAuditRecorder struct {
	mu      sync.Mutex
	entries []AuditEntry
}

func (r *captureAuditRecorder) Record(_ context.Context, entry AuditEntry) {
	r.mu.Lock()
	r.entries = append(r.entries, entry)
	r.mu.Unlock()
}

type metricsObservation struct {
	operation string
	success   bool
}

type captureMetricsRecorder struct {
	mu           sync.Mutex
	observations []metricsObservation
}

func (r *captureMetricsRecorder) Observe(_ context.Context, operation string, success bool, _ time.Duration) {
	r.mu.Lock()
	r.observations = append(r.observations, metricsObservation{operation: operation, success: success})
	r.mu.Unlock()
}

func TestServiceEmitsObservabilitySignals(t *testing.T) {
	logger := &captureLogger{}
	audit := &captureAuditRecorder{}
	metrics := &captureMetricsRecorder{}
	tracer := NewJSONTracer(nil)

	svc := newTestService(t,
		WithLogger(logger),
		WithAuditRecorder(audit),
		WithMetricsRecorder(metrics),
		WithTracer(tracer),
	)
	ctx := context.Background()

	person, _, err := svc.CreatePersonnel(ctx, Personnel{Name: "Ada"})
	if err != nil {
		t.Fatalf("create personnel: %v", err)
	}
	ghost := "no-such-team"
	if _, _, err := svc.MovePersonnel(ctx, person.ID, &ghost); err == nil {
		t.Fatalf("expected move to fail")
	}

	if len(audit.entries) != 2 {
		t.Fatalf("expected 2 audit entries, got %d", len(audit.entries))
	}
	created := audit.entries[0]
	if created.Operation != "create_personnel" || created.Status != AuditStatusSuccess {
		t.Fatalf("unexpected audit entry %+v", created)
	}
	if created.EntityID != person.ID {
		t.Fatalf("create audit entry should carry the generated id, got %q", created.EntityID)
	}
	failed := audit.entries[1]
	if failed.Operation != "move_personnel" || failed.Status != AuditStatusError {
		t.Fatalf("unexpected audit entry %+v", failed)
	}

	if len(metrics.observations) != 2 {
		t.Fatalf("expected 2 metric observations, got %d", len(metrics.observations))
	}
	if !metrics.observations[0].success || metrics.observations[1].success {
		t.Fatalf("unexpected metric outcomes %+v", metrics.observations)
	}

	entries := tracer.Entries()
	if len(entries) != 2 {
		t.Fatalf("expected 2 trace spans, got %d", len(entries))
	}
	if entries[1].Status != "error" || entries[1].Error == "" {
		t.Fatalf("expected failed span with error detail, got %+v", entries[1])
	}

	var sawWarn bool
	for _, msg := range logger.messages {
		if strings.HasPrefix(msg, "warn:") {
			sawWarn = true
		}
	}
	if !sawWarn {
		t.Fatalf("expected a warn log for the failed operation, got %v", logger.messages)
	}
}

func TestExpvarMetricsRecorderAggregates(t *testing.T) {
	rec := NewExpvarMetricsRecorder("")
	if rec.Name() == "" {
		t.Fatalf("expected generated expvar name")
	}
	ctx := context.Background()
	rec.Observe(ctx, "create_team", true, 10*time.Millisecond)
	rec.Observe(ctx, "create_team", true, 5*time.Millisecond)
	rec.Observe(ctx, "create_team", false, time.Millisecond)
	rec.Observe(ctx, "", true, time.Millisecond)

	snap := rec.Snapshot()
	if snap.DurationsMS["create_team"] != 16 {
		t.Fatalf("unexpected duration total %v", snap.DurationsMS["create_team"])
	}
	if snap.Results["create_team"]["success"] != 2 || snap.Results["create_team"]["error"] != 1 {
		t.Fatalf("unexpected result counts %v", snap.Results["create_team"])
	}
	if len(snap.Results) != 1 {
		t.Fatalf("empty operation names must be ignored, got %v", snap.Results)
	}
}

func TestPrometheusMetricsRecorder(t *testing.T) {
	reg := prometheus.NewRegistry()
	rec, err := NewPrometheusMetricsRecorder(reg)
	if err != nil {
		t.Fatalf("new recorder: %v", err)
	}
	ctx := context.Background()
	rec.Observe(ctx, "create_team", true, 10*time.Millisecond)
	rec.Observe(ctx, "create_team", false, time.Millisecond)

	if got := testutil.ToFloat64(rec.results.WithLabelValues("create_team", "success")); got != 1 {
		t.Fatalf("unexpected success count %v", got)
	}
	if got := testutil.ToFloat64(rec.results.WithLabelValues("create_team", "error")); got != 1 {
		t.Fatalf("unexpected error count %v", got)
	}
	if got := testutil.CollectAndCount(rec.durations); got != 1 {
		t.Fatalf("expected 1 duration series, got %d", got)
	}

	if _, err := NewPrometheusMetricsRecorder(reg); err == nil {
		t.Fatalf("expected duplicate registration to fail")
	}
}

func TestJSONTracerWritesLines(t *testing.T) {
	var buf bytes.Buffer
	tracer := NewJSONTracer(&buf)
	_, span := tracer.Start(context.Background(), "create_team")
	span.End(nil)

	entries := tracer.Entries()
	if len(entries) != 1 || entries[0].Operation != "create_team" || entries[0].Status != "success" {
		t.Fatalf("unexpected entries %+v", entries)
	}
	if !strings.Contains(buf.String(), `"operation":"create_team"`) {
		t.Fatalf("unexpected encoded span %q", buf.String())
	}
}
