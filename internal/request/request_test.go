package request

import (
	"context"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
)

func TestClientIP(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name    string
		headers map[string]string
		remote  string
		wantIP  string
	}{
		{"x-forwarded-for", map[string]string{"X-Forwarded-For": "1.2.3.4"}, "", "1.2.3.4"},
		{"x-forwarded-for first", map[string]string{"X-Forwarded-For": " 1.2.3.4 , 5.6.7.8 "}, "", "1.2.3.4"},
		{"x-real-ip", map[string]string{"X-Real-IP": "9.9.9.9"}, "", "9.9.9.9"},
		{"remote addr", nil, "10.0.0.1:12345", "10.0.0.1:12345"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			r := httptest.NewRequest("GET", "/", nil)
			for k, v := range tt.headers {
				r.Header.Set(k, v)
			}
			if tt.remote != "" {
				r.RemoteAddr = tt.remote
			}
			if got := ClientIP(r); got != tt.wantIP {
				t.Errorf("ClientIP() = %q, want %q", got, tt.wantIP)
			}
		})
	}
}

func TestRequestID(t *testing.T) {
	t.Parallel()

	if got := IDFromContext(context.Background()); got != "" {
		t.Errorf("expected empty id, got %q", got)
	}
	ctx := WithID(context.Background(), "abc")
	if got := IDFromContext(ctx); got != "abc" {
		t.Errorf("IDFromContext() = %q, want abc", got)
	}

	supplied := uuid.NewString()
	r := httptest.NewRequest("GET", "/", nil)
	r.Header.Set(HeaderRequestID, supplied)
	if got := IDFromRequest(r); got != supplied {
		t.Errorf("expected supplied id to be kept, got %q", got)
	}

	r.Header.Set(HeaderRequestID, "not a uuid\n")
	if got := IDFromRequest(r); got == "not a uuid" {
		t.Error("expected invalid id to be replaced")
	} else if _, err := uuid.Parse(got); err != nil {
		t.Errorf("expected generated uuid, got %q", got)
	}
}
