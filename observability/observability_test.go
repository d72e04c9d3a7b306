package observability

import (
	"context"
	"testing"
	"time"

	"go.opentelemetry.io/otel/metric/noop"
)

func TestDefaultTracerConfig(t *testing.T) {
	cfg := DefaultTracerConfig("containerkit-test")

	if cfg.ServiceName != "containerkit-test" {
		t.Errorf("expected service name containerkit-test, got %s", cfg.ServiceName)
	}
	if cfg.Endpoint != "localhost:4318" {
		t.Errorf("expected default endpoint localhost:4318, got %s", cfg.Endpoint)
	}
	if !cfg.Insecure {
		t.Error("expected insecure default for development")
	}
	if cfg.SampleRate != 1.0 {
		t.Errorf("expected full sampling by default, got %f", cfg.SampleRate)
	}
}

func TestDefaultMeterConfig(t *testing.T) {
	cfg := DefaultMeterConfig("containerkit-test")

	if cfg.ServiceName != "containerkit-test" {
		t.Errorf("expected service name containerkit-test, got %s", cfg.ServiceName)
	}
	if cfg.Interval != 15*time.Second {
		t.Errorf("expected 15s export interval, got %s", cfg.Interval)
	}
}

func TestNewMetrics(t *testing.T) {
	m, err := NewMetrics(noop.NewMeterProvider().Meter("test"))
	if err != nil {
		t.Fatalf("NewMetrics failed: %v", err)
	}
	if m == nil {
		t.Fatal("expected metrics")
	}

	// Recording on noop instruments must not panic.
	ctx := context.Background()
	m.RecordDiscovery(ctx, 3)
	m.RecordProbe(ctx, "alpha", OutcomeSelected)
	m.RecordResolution(ctx, 5*time.Millisecond)
	m.RecordShutdown(ctx, "completed")
}

func TestMetrics_NilReceiverIsSafe(t *testing.T) {
	var m *Metrics

	ctx := context.Background()
	m.RecordDiscovery(ctx, 1)
	m.RecordProbe(ctx, "alpha", OutcomeError)
	m.RecordResolution(ctx, time.Millisecond)
	m.RecordShutdown(ctx, OutcomeError)
}

func TestStartSpan(t *testing.T) {
	ctx, span := StartSpan(context.Background(), "test.operation")
	defer span.End()

	if SpanFromContext(ctx) != span {
		t.Error("expected the started span in context")
	}
}

func TestSetSpanError_NoRecordingSpan(t *testing.T) {
	// Must be a no-op without a recording span in context.
	SetSpanError(context.Background(), context.Canceled)
}
