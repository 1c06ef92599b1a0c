package telemetry

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gorilla/mux"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gorilla/mux/otelmux"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

// TestTraceContextPropagation verifies that an incoming traceparent is continued
// and that spans started by handlers nest under the router span
func TestTraceContextPropagation(t *testing.T) {
	exporter := tracetest.NewInMemoryExporter()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSyncer(exporter))
	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	r := mux.NewRouter()
	r.Use(otelmux.Middleware(DefaultServiceName))
	r.HandleFunc("/api/parse", func(w http.ResponseWriter, r *http.Request) {
		_, span := otel.Tracer("test").Start(r.Context(), "assistant.parse")
		span.End()
		w.WriteHeader(http.StatusOK)
	})

	const traceParent = "00-4bf92f3577b34da6a3ce929d0e0e4736-00f067aa0ba902b7-01"

	tests := []struct {
		name        string
		traceParent string
	}{
		{name: "without existing trace ID"},
		{name: "with existing trace ID", traceParent: traceParent},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			exporter.Reset()

			req := httptest.NewRequest(http.MethodPost, "/api/parse", nil)
			if tt.traceParent != "" {
				req.Header.Set("traceparent", tt.traceParent)
			}
			rr := httptest.NewRecorder()
			r.ServeHTTP(rr, req)

			if rr.Code != http.StatusOK {
				t.Errorf("Expected status OK, got %d", rr.Code)
			}
			if err := tp.ForceFlush(context.Background()); err != nil {
				t.Errorf("Failed to flush tracer provider: %v", err)
			}

			spans := exporter.GetSpans()
			if len(spans) != 2 {
				t.Fatalf("Expected handler and router spans, got %d", len(spans))
			}
			child, parent := spans[0], spans[1]
			if child.Parent.SpanID() != parent.SpanContext.SpanID() {
				t.Error("Expected handler span to be a child of the router span")
			}
			if tt.traceParent != "" && parent.SpanContext.TraceID().String() != "4bf92f3577b34da6a3ce929d0e0e4736" {
				t.Errorf("Expected incoming trace ID to be continued, got %s", parent.SpanContext.TraceID())
			}
		})
	}
}
