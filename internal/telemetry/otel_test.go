package telemetry

import (
	"context"
	"testing"
	"time"
)

func TestSetup_DisabledIsNoop(t *testing.T) {
	shutdown, err := Setup(context.Background(), Options{Enabled: false})
	if err != nil {
		t.Fatalf("Setup() error = %v", err)
	}
	if err := shutdown(context.Background()); err != nil {
		t.Errorf("shutdown() error = %v", err)
	}
}

func TestSetup_Enabled(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	// The exporter connects lazily, so no collector is needed
	shutdown, err := Setup(ctx, Options{Enabled: true, Endpoint: "localhost:4318"})
	if err != nil {
		t.Fatalf("Setup() error = %v", err)
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := shutdown(shutdownCtx); err != nil {
		t.Errorf("shutdown() error = %v", err)
	}
}

func TestShutdown_NilProvider(t *testing.T) {
	if err := Shutdown(context.Background(), nil); err != nil {
		t.Errorf("Shutdown() with nil provider should not error, got: %v", err)
	}
}
