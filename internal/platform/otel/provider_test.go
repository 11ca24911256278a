package otel_test

import (
	"context"
	"testing"

	"github.com/louisbranch/wager.space/internal/platform/otel"
)

func TestSetup_NoopWhenEndpointEmpty(t *testing.T) {
	t.Setenv("WAGER_SPACE_OTEL_ENDPOINT", "")
	t.Setenv("WAGER_SPACE_OTEL_ENABLED", "true")

	shutdown, err := otel.Setup(context.Background(), "test-service")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := shutdown(context.Background()); err != nil {
		t.Fatalf("shutdown error: %v", err)
	}
}

func TestSetup_NoopWhenExplicitlyDisabled(t *testing.T) {
	t.Setenv("WAGER_SPACE_OTEL_ENDPOINT", "http://localhost:4318")
	t.Setenv("WAGER_SPACE_OTEL_ENABLED", "false")

	shutdown, err := otel.Setup(context.Background(), "test-service")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := shutdown(context.Background()); err != nil {
		t.Fatalf("shutdown error: %v", err)
	}
}

func TestSetup_RejectsMalformedSampleRatio(t *testing.T) {
	t.Setenv("WAGER_SPACE_OTEL_SAMPLE_RATIO", "often")

	if _, err := otel.Setup(context.Background(), "test-service"); err == nil {
		t.Fatal("expected sample ratio parse error")
	}
}

func TestSetup_CreatesProviderWhenEndpointSet(t *testing.T) {
	// Use a non-routable address so no actual export happens.
	t.Setenv("WAGER_SPACE_OTEL_ENDPOINT", "http://192.0.2.1:4318")
	t.Setenv("WAGER_SPACE_OTEL_ENABLED", "true")
	t.Setenv("WAGER_SPACE_OTEL_SAMPLE_RATIO", "0.5")

	shutdown, err := otel.Setup(context.Background(), "test-service")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	_, span := otel.Tracer().Start(context.Background(), "probe")
	span.End()
	// Shutdown should flush cleanly even though the endpoint is unreachable.
	if err := shutdown(context.Background()); err != nil {
		t.Fatalf("shutdown error: %v", err)
	}
}

func TestSetup_NoopShutdownIgnoresCancelledContext(t *testing.T) {
	t.Setenv("WAGER_SPACE_OTEL_ENDPOINT", "")

	shutdown, err := otel.Setup(context.Background(), "noop-test")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := shutdown(ctx); err != nil {
		t.Fatalf("noop shutdown should not error: %v", err)
	}
}
